package stage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/lucasnoah/hirefactory/internal/agent"
	"github.com/lucasnoah/hirefactory/internal/pipeline"
	"github.com/lucasnoah/hirefactory/internal/prompt"
)

// candidateNamespace seeds the stable candidate ids derived from email addresses.
var candidateNamespace = uuid.MustParse("6f1c7b52-3c1e-5a52-9a43-1d0c5b7e2a10")

// Candidate statuses written by the pipeline.
const (
	CandidateScreening          = "screening"
	CandidateInterviewScheduled = "interview_scheduled"
)

type candidateIdentity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func parseIdentity(payload string) (candidateIdentity, error) {
	id, err := agent.DecodeJSON[candidateIdentity](payload)
	if err != nil {
		return id, err
	}
	id.Name = strings.TrimSpace(id.Name)
	id.Email = strings.TrimSpace(id.Email)
	if id.Name == "" {
		return id, errors.New("reply has no candidate name")
	}
	if id.Email != "" && !strings.Contains(id.Email, "@") {
		return id, fmt.Errorf("invalid email %q", id.Email)
	}
	return id, nil
}

// CandidateID derives the stable id for a candidate without a stored row.
func CandidateID(email string) string {
	u := uuid.NewSHA1(candidateNamespace, []byte(strings.ToLower(strings.TrimSpace(email))))
	return "CAND-" + strings.ToUpper(strings.ReplaceAll(u.String(), "-", "")[:8])
}

// Coordinate resolves the job level and location, then gathers the salary
// band, policies and candidate shell the research stage needs.
func (e *Engine) Coordinate(ctx context.Context, task *pipeline.InterpretedTask, raw string) (*pipeline.CoordinatedContext, Trace, error) {
	if task == nil {
		return nil, Trace{}, errors.New("coordinate: no interpreted task")
	}
	var trace Trace

	level := ResolveJobLevel(string(task.RequiredData.SalaryBands), task.Objective, raw)
	location := ResolveLocation(string(task.RequiredData.SalaryBands), task.Objective, raw)
	e.logf("coordinate: resolved %s in %s", level, location)

	cc := &pipeline.CoordinatedContext{JobLevel: level, Location: location}

	bands, err := e.store.FetchSalaryBands(ctx, level, location)
	if err != nil {
		return nil, trace, fmt.Errorf("fetch salary band: %w", err)
	}
	if len(bands) == 0 {
		e.logf("coordinate: no salary band for %s in %s", level, location)
		trace.note("no salary band for %s in %s", level, location)
	} else {
		b := bands[0]
		cc.SalaryBands = &pipeline.SalaryBand{
			JobLevel:      b.JobLevel,
			Location:      b.Location,
			Currency:      b.Currency,
			BaseRangeMin:  b.BaseRangeMin,
			BaseRangeMax:  b.BaseRangeMax,
			EquityBandMin: b.EquityBandMin,
			EquityBandMax: b.EquityBandMax,
			BenefitsNotes: b.BenefitsNotes,
			PolicyDocID:   b.PolicyDocID,
		}
		if extra := len(bands) - 1; extra > 0 {
			trace.Dropped = extra
			e.logf("coordinate: %d additional salary band(s) for %s in %s ignored", extra, level, location)
		}
	}

	categories := []string(task.RequiredData.Policies)
	if len(categories) == 0 {
		categories = []string{"compensation"}
	}
	cc.Policies = []pipeline.PolicyDoc{}
	if e.policies != nil {
		for _, cat := range categories {
			cc.Policies = append(cc.Policies, e.policies.Query(fmt.Sprintf("Retrieve %s policy information", cat), cat)...)
		}
	}
	if len(cc.Policies) == 0 {
		trace.note("no policy documents for %s", strings.Join(categories, ", "))
	}
	e.logf("coordinate: retrieved %d policy document(s)", len(cc.Policies))

	step, err := newStep(e, Coordinate, parseIdentity)
	if err != nil {
		return nil, trace, err
	}
	vars := prompt.Vars{"request": raw, "objective": task.Objective, "job_level": level, "location": location}
	out, err := step.Perform(ctx, e.gen, vars, func() candidateIdentity {
		return candidateIdentity{Name: NameFromRequest(raw)}
	})
	if err != nil {
		return nil, trace, err
	}
	call := traceFrom(out)
	trace.Fallback, trace.Reason, trace.Prompt, trace.Reply = call.Fallback, call.Reason, call.Prompt, call.Reply
	if trace.Fallback {
		e.logf("coordinate: identity reply unusable (%s), taking name from request", out.Reason)
	}

	ident := out.Value
	if ident.Email == "" {
		ident.Email = PlaceholderEmail(ident.Name)
	}
	cand := pipeline.CandidateData{
		Name:     ident.Name,
		Email:    ident.Email,
		Location: location,
		Status:   CandidateScreening,
	}
	existing, err := e.store.FindCandidateByEmail(ctx, ident.Email)
	if err != nil {
		return nil, trace, fmt.Errorf("find candidate %s: %w", ident.Email, err)
	}
	if existing != nil {
		cand.CandidateID = existing.CandidateID
		cand.ResumeAttached = existing.ResumeAttached
		cand.Status = existing.Status
		e.logf("coordinate: matched existing candidate %s", existing.CandidateID)
	} else {
		cand.CandidateID = CandidateID(ident.Email)
	}
	cc.CandidateData = cand

	return cc, trace, nil
}
