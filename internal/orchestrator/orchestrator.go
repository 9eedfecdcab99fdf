// Package orchestrator runs the five recruitment stages in their fixed order
// and assembles the run report.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lucasnoah/hirefactory/internal/db"
	"github.com/lucasnoah/hirefactory/internal/pipeline"
	"github.com/lucasnoah/hirefactory/internal/stage"
)

// Stages is the set of stage operations a run invokes. *stage.Engine implements it.
type Stages interface {
	Interpret(ctx context.Context, raw string) (*pipeline.InterpretedTask, stage.Trace, error)
	Coordinate(ctx context.Context, task *pipeline.InterpretedTask, raw string) (*pipeline.CoordinatedContext, stage.Trace, error)
	Research(ctx context.Context, task *pipeline.InterpretedTask, cc *pipeline.CoordinatedContext) (*pipeline.ResearchResult, stage.Trace, error)
	Execute(ctx context.Context, rr *pipeline.ResearchResult, cc *pipeline.CoordinatedContext) (*pipeline.ExecutionResult, stage.Trace, error)
	Review(ctx context.Context, er *pipeline.ExecutionResult, rr *pipeline.ResearchResult, cc *pipeline.CoordinatedContext) (*pipeline.ReviewResult, stage.Trace, error)
}

// EventLog receives one event per stage outcome.
type EventLog interface {
	LogPipelineEvent(ctx context.Context, runID, stage, event, detail string) error
}

// StageError reports the stage that aborted a run.
type StageError struct {
	RunID    string
	Stage    string
	Err      error
	AuditLog []string
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Orchestrator sequences the stages. It holds no per-run state, so one
// instance can serve concurrent runs if its Stages can.
type Orchestrator struct {
	stages   Stages
	progress io.Writer // nil = silent
	now      func() time.Time
	newID    func() string
	events   EventLog
	archive  *pipeline.Archive
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithProgress sets a writer for live progress output (e.g. os.Stderr).
func WithProgress(w io.Writer) Option {
	return func(o *Orchestrator) { o.progress = w }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithRunIDs overrides run id generation.
func WithRunIDs(newID func() string) Option {
	return func(o *Orchestrator) { o.newID = newID }
}

// WithEvents records each stage's outcome (completed, fallback or failed).
func WithEvents(events EventLog) Option {
	return func(o *Orchestrator) { o.events = events }
}

// WithArchive saves every completed report, including prompts and replies.
func WithArchive(a *pipeline.Archive) Option {
	return func(o *Orchestrator) { o.archive = a }
}

// New creates an Orchestrator over stages.
func New(stages Stages, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		stages: stages,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) logf(format string, args ...interface{}) {
	if o.progress != nil {
		fmt.Fprintf(o.progress, format+"\n", args...)
	}
}

// run carries one invocation's state through the stage sequence.
type run struct {
	o      *Orchestrator
	ctx    context.Context
	state  *pipeline.State
	report *pipeline.Report
}

// step advances the phase, runs fn and records the audit line. fn returns
// the stage's trace and a one-line summary of its salient result.
func (r *run) step(phase pipeline.Phase, name string, fn func() (stage.Trace, string, error)) error {
	if err := r.ctx.Err(); err != nil {
		return r.fail(name, err)
	}
	if err := r.state.Advance(phase); err != nil {
		return r.fail(name, err)
	}
	r.o.logf("[%s] running", strings.ToUpper(name))

	start := r.o.now()
	trace, summary, err := fn()
	if err != nil {
		return r.fail(name, err)
	}

	line := fmt.Sprintf("[%s] %s", strings.ToUpper(name), summary)
	if trace.Fallback {
		line += fmt.Sprintf(" [fallback: %s]", trace.Reason)
	}
	if trace.Dropped > 0 {
		line += fmt.Sprintf(" [dropped: %d]", trace.Dropped)
	}
	for _, n := range trace.Notes {
		line += fmt.Sprintf(" [note: %s]", n)
	}
	r.state.Record(line)
	r.o.logf("%s", line)

	r.report.Stages = append(r.report.Stages, pipeline.StageSummary{
		Stage:    name,
		Fallback: trace.Fallback,
		Reason:   trace.Reason,
		Dropped:  trace.Dropped,
		Notes:    trace.Notes,
		Duration: r.o.now().Sub(start),
		Prompt:   trace.Prompt,
		Reply:    trace.Reply,
	})
	return nil
}

func (r *run) fail(name string, err error) error {
	_ = r.state.Advance(pipeline.PhaseFailed)
	r.state.Record(fmt.Sprintf("[%s] failed: %v", strings.ToUpper(name), err))
	r.o.logf("[%s] failed: %v", strings.ToUpper(name), err)
	r.recordEvents(name, err)
	return &StageError{RunID: r.report.RunID, Stage: name, Err: err, AuditLog: append([]string(nil), r.state.AuditLog...)}
}

// recordEvents writes one event per finished stage plus, when failed is
// set, a failed event for that stage. Store errors are logged and dropped.
func (r *run) recordEvents(failed string, cause error) {
	if r.o.events == nil {
		return
	}
	ctx := context.WithoutCancel(r.ctx)
	write := func(stageName, event, detail string) {
		if err := r.o.events.LogPipelineEvent(ctx, r.report.RunID, stageName, event, detail); err != nil {
			r.o.logf("record %s event for %s: %v", event, stageName, err)
		}
	}
	for _, s := range r.report.Stages {
		if s.Fallback {
			write(s.Stage, db.EventFallback, s.Reason)
		} else {
			write(s.Stage, db.EventCompleted, "")
		}
	}
	if failed != "" {
		write(failed, db.EventFailed, cause.Error())
	}
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}

// Run executes Interpret, Coordinate, Research, Execute and Review exactly
// once each, in that order. It returns either a complete report or a
// *StageError naming the stage that failed; never a partial report.
func (o *Orchestrator) Run(ctx context.Context, raw string) (*pipeline.Report, error) {
	state := pipeline.NewState(raw)
	r := &run{
		o:     o,
		ctx:   ctx,
		state: state,
		report: &pipeline.Report{
			RunID:     o.newID(),
			Request:   raw,
			StartedAt: o.now().UTC().Format(time.RFC3339Nano),
		},
	}

	err := r.step(pipeline.PhaseInterpreting, stage.Interpret, func() (stage.Trace, string, error) {
		task, trace, err := o.stages.Interpret(ctx, raw)
		if err != nil {
			return trace, "", err
		}
		state.InterpretedTask = task
		return trace, "Interpreted task: " + truncate(task.Objective, 120), nil
	})
	if err != nil {
		return nil, err
	}

	err = r.step(pipeline.PhaseCoordinating, stage.Coordinate, func() (stage.Trace, string, error) {
		cc, trace, err := o.stages.Coordinate(ctx, state.InterpretedTask, raw)
		if err != nil {
			return trace, "", err
		}
		state.CoordinatedContext = cc
		band := "no salary band"
		if cc.SalaryBands != nil {
			band = fmt.Sprintf("band %s %.0f-%.0f", cc.SalaryBands.Currency, cc.SalaryBands.BaseRangeMin, cc.SalaryBands.BaseRangeMax)
		}
		return trace, fmt.Sprintf("Gathered data for %s in %s (%s, %d policy document(s), candidate %s)",
			cc.JobLevel, cc.Location, band, len(cc.Policies), cc.CandidateData.CandidateID), nil
	})
	if err != nil {
		return nil, err
	}

	err = r.step(pipeline.PhaseResearching, stage.Research, func() (stage.Trace, string, error) {
		rr, trace, err := o.stages.Research(ctx, state.InterpretedTask, state.CoordinatedContext)
		if err != nil {
			return trace, "", err
		}
		state.ResearchResult = rr
		c := rr.CompensationProposal
		return trace, fmt.Sprintf("Proposed compensation: %.0f base, %.0f equity, %.0f bonus", c.BaseSalary, c.Equity, c.BonusTarget), nil
	})
	if err != nil {
		return nil, err
	}

	err = r.step(pipeline.PhaseExecuting, stage.Execute, func() (stage.Trace, string, error) {
		er, trace, err := o.stages.Execute(ctx, state.ResearchResult, state.CoordinatedContext)
		if err != nil {
			return trace, "", err
		}
		state.ExecutionResult = er
		return trace, fmt.Sprintf("Created candidate %s, %d interview(s) scheduled, proposal %d",
			er.CandidateID, len(er.ScheduleIDs), er.ProposalID), nil
	})
	if err != nil {
		return nil, err
	}

	err = r.step(pipeline.PhaseReviewing, stage.Review, func() (stage.Trace, string, error) {
		rv, trace, err := o.stages.Review(ctx, state.ExecutionResult, state.ResearchResult, state.CoordinatedContext)
		if err != nil {
			return trace, "", err
		}
		if rv.ValidationStatus != pipeline.StatusApproved && rv.ValidationStatus != pipeline.StatusRejected {
			return trace, "", fmt.Errorf("validation status %q is not %s or %s", rv.ValidationStatus, pipeline.StatusApproved, pipeline.StatusRejected)
		}
		state.ReviewResult = rv
		return trace, "Validation: " + rv.ValidationStatus, nil
	})
	if err != nil {
		return nil, err
	}

	out, err := state.Finish()
	if err != nil {
		return nil, r.fail("finish", err)
	}
	if err := state.Advance(pipeline.PhaseDone); err != nil {
		return nil, r.fail("finish", err)
	}

	r.report.Output = out
	r.report.AuditLog = state.AuditLog
	r.report.FinishedAt = o.now().UTC().Format(time.RFC3339Nano)

	r.recordEvents("", nil)
	if o.archive != nil {
		if err := o.archive.Save(r.report); err != nil {
			o.logf("archive run %s: %v", r.report.RunID, err)
		} else {
			o.logf("archived run %s", r.report.RunID)
		}
	}
	return r.report, nil
}
