// Package stage implements the five recruitment stages. Each stage is one
// or two agent steps plus the store reads and writes around them.
package stage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/lucasnoah/hirefactory/internal/agent"
	"github.com/lucasnoah/hirefactory/internal/db"
	"github.com/lucasnoah/hirefactory/internal/llm"
	"github.com/lucasnoah/hirefactory/internal/pipeline"
	"github.com/lucasnoah/hirefactory/internal/prompt"
)

// Stage names, in execution order.
const (
	Interpret  = "interpret"
	Coordinate = "coordinate"
	Research   = "research"
	Execute    = "execute"
	Review     = "review"
)

// Order is the fixed stage sequence.
var Order = []string{Interpret, Coordinate, Research, Execute, Review}

// Store is the record store the stages read and write.
type Store interface {
	FetchSalaryBands(ctx context.Context, jobLevel, location string) ([]db.SalaryBand, error)
	FindCandidateByEmail(ctx context.Context, email string) (*db.Candidate, error)
	UpsertCandidate(ctx context.Context, c db.Candidate) error
	InsertInterviewSchedule(ctx context.Context, s db.InterviewSchedule) error
	InsertCompensationProposal(ctx context.Context, p db.CompensationProposal) (int64, error)
	InsertComplianceLog(ctx context.Context, l db.ComplianceLog) error
}

// Policies answers policy queries for Coordinate.
type Policies interface {
	Query(query, policyType string) []pipeline.PolicyDoc
}

// Settings configures one stage's model call.
type Settings struct {
	Temperature float64
	Model       string
	// Template is the prompt text. Empty means the built-in template.
	Template string
}

// DefaultTemperatures are the per-stage sampling temperatures.
var DefaultTemperatures = map[string]float64{
	Interpret:  0.7,
	Coordinate: 0.5,
	Research:   0.6,
	Execute:    0.5,
	Review:     0.3,
}

var templateNames = map[string]string{
	Interpret:  prompt.Interpret,
	Coordinate: prompt.Coordinate,
	Research:   prompt.Research,
	Execute:    prompt.Email,
	Review:     prompt.Review,
}

// TemplateName returns the template file a stage renders.
func TemplateName(stage string) string {
	return templateNames[stage]
}

// Trace describes how a stage produced its record.
type Trace struct {
	Fallback bool
	Reason   string
	// Dropped counts alternatives discarded by first-match selection.
	Dropped int
	Prompt  string
	Reply   string
	// Notes are absorbed problems worth surfacing (missing data, failed writes).
	Notes []string
}

func (t *Trace) note(format string, args ...interface{}) {
	t.Notes = append(t.Notes, fmt.Sprintf(format, args...))
}

func traceFrom[T any](out agent.Outcome[T]) Trace {
	return Trace{Fallback: out.Fallback(), Reason: out.Reason, Prompt: out.Prompt, Reply: out.Raw}
}

// Engine runs the stages against one generator and one record store.
type Engine struct {
	gen            llm.Generator
	store          Store
	policies       Policies
	settings       map[string]Settings
	reviewFallback string
	progress       io.Writer // nil = silent
	now            func() time.Time
}

// NewEngine creates an engine with built-in templates and default temperatures.
func NewEngine(gen llm.Generator, store Store, policies Policies) *Engine {
	settings := make(map[string]Settings, len(Order))
	for _, name := range Order {
		settings[name] = Settings{Temperature: DefaultTemperatures[name]}
	}
	return &Engine{
		gen:            gen,
		store:          store,
		policies:       policies,
		settings:       settings,
		reviewFallback: pipeline.StatusApproved,
		now:            time.Now,
	}
}

// Configure replaces the settings for one stage.
func (e *Engine) Configure(stage string, s Settings) error {
	if _, ok := templateNames[stage]; !ok {
		return fmt.Errorf("unknown stage %q", stage)
	}
	e.settings[stage] = s
	return nil
}

// SetReviewFallback sets the verdict used when the review reply cannot be parsed.
func (e *Engine) SetReviewFallback(status string) error {
	if status != pipeline.StatusApproved && status != pipeline.StatusRejected {
		return fmt.Errorf("review fallback status must be %s or %s, got %q", pipeline.StatusApproved, pipeline.StatusRejected, status)
	}
	e.reviewFallback = status
	return nil
}

// SetProgress sets a writer for live progress output (e.g. os.Stderr).
func (e *Engine) SetProgress(w io.Writer) {
	e.progress = w
}

// SetClock overrides the time source (for testing).
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

func (e *Engine) logf(format string, args ...interface{}) {
	if e.progress != nil {
		fmt.Fprintf(e.progress, "  → "+format+"\n", args...)
	}
}

func (e *Engine) template(stage string) (string, error) {
	s := e.settings[stage]
	if s.Template != "" {
		return s.Template, nil
	}
	text, ok := prompt.Builtin(templateNames[stage])
	if !ok {
		return "", fmt.Errorf("no template for stage %s", stage)
	}
	return text, nil
}

func newStep[T any](e *Engine, stage string, parse func(string) (T, error)) (agent.Step[T], error) {
	text, err := e.template(stage)
	if err != nil {
		return agent.Step[T]{}, err
	}
	s := e.settings[stage]
	return agent.Step[T]{
		Name:        stage,
		Template:    text,
		Temperature: s.Temperature,
		Model:       s.Model,
		Parse:       parse,
	}, nil
}
