package stage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lucasnoah/hirefactory/internal/agent"
	"github.com/lucasnoah/hirefactory/internal/db"
	"github.com/lucasnoah/hirefactory/internal/pipeline"
	"github.com/lucasnoah/hirefactory/internal/prompt"
)

// Values written to compliance_logs.checked_by.
const (
	CheckedByReviewer = "REVIEWER_AGENT"
	CheckedByFallback = "REVIEWER_FALLBACK"
)

func parseReview(payload string) (pipeline.ReviewResult, error) {
	r, err := agent.DecodeJSON[pipeline.ReviewResult](payload)
	if err != nil {
		return r, err
	}
	r.ValidationStatus = strings.ToUpper(strings.TrimSpace(r.ValidationStatus))
	if r.ValidationStatus != pipeline.StatusApproved && r.ValidationStatus != pipeline.StatusRejected {
		return r, fmt.Errorf("validation_status %q is not %s or %s", r.ValidationStatus, pipeline.StatusApproved, pipeline.StatusRejected)
	}
	if r.ComplianceChecks == nil {
		return r, errors.New("reply has no compliance_checks")
	}
	for _, name := range pipeline.ComplianceCheckNames {
		if _, ok := r.ComplianceChecks[name]; !ok {
			return r, fmt.Errorf("compliance check %s missing", name)
		}
	}
	for name, c := range r.ComplianceChecks {
		c.Status = strings.ToUpper(strings.TrimSpace(c.Status))
		if c.Status != pipeline.CheckPass && c.Status != pipeline.CheckFail {
			return r, fmt.Errorf("compliance check %s status %q is not %s or %s", name, c.Status, pipeline.CheckPass, pipeline.CheckFail)
		}
		r.ComplianceChecks[name] = c
	}
	if r.IssuesFound == nil {
		r.IssuesFound = pipeline.StringList{}
	}
	if r.Recommendations == nil {
		r.Recommendations = pipeline.StringList{}
	}
	return r, nil
}

var approvedDetails = map[string]string{
	"content_language": "No issues detected",
	"compensation":     "Within salary band",
	"scheduling":       "Schedule looks valid",
	"data_integrity":   "All required fields present",
}

// ReviewFallback is the verdict used when the review reply cannot be parsed.
// status must be APPROVED or REJECTED.
func ReviewFallback(status string) pipeline.ReviewResult {
	r := pipeline.ReviewResult{
		ValidationStatus: status,
		ComplianceChecks: make(map[string]pipeline.ComplianceCheck, len(pipeline.ComplianceCheckNames)),
		IssuesFound:      pipeline.StringList{},
		Recommendations:  pipeline.StringList{},
	}
	for _, name := range pipeline.ComplianceCheckNames {
		if status == pipeline.StatusApproved {
			r.ComplianceChecks[name] = pipeline.ComplianceCheck{Status: pipeline.CheckPass, Details: approvedDetails[name]}
		} else {
			r.ComplianceChecks[name] = pipeline.ComplianceCheck{Status: pipeline.CheckFail, Details: "Not verified: reviewer reply unusable"}
		}
	}
	if status == pipeline.StatusRejected {
		r.IssuesFound = pipeline.StringList{"Reviewer reply could not be parsed"}
		r.Recommendations = pipeline.StringList{"Review the proposal manually"}
	}
	return r
}

// extraChecks returns the checks outside ComplianceCheckNames, sorted.
func extraChecks(checks map[string]pipeline.ComplianceCheck) []string {
	known := make(map[string]bool, len(pipeline.ComplianceCheckNames))
	for _, name := range pipeline.ComplianceCheckNames {
		known[name] = true
	}
	var extra []string
	for name := range checks {
		if !known[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return extra
}

// Review validates the executed actions and logs one compliance row per
// named check.
func (e *Engine) Review(ctx context.Context, er *pipeline.ExecutionResult, rr *pipeline.ResearchResult, cc *pipeline.CoordinatedContext) (*pipeline.ReviewResult, Trace, error) {
	if er == nil || rr == nil || cc == nil {
		return nil, Trace{}, errors.New("review: missing execution, research or coordinated context")
	}
	step, err := newStep(e, Review, parseReview)
	if err != nil {
		return nil, Trace{}, err
	}

	band := "{}"
	if cc.SalaryBands != nil {
		band = toJSON(cc.SalaryBands)
	}
	results := toJSON(struct {
		Execution *pipeline.ExecutionResult `json:"execution"`
		Research  *pipeline.ResearchResult  `json:"research"`
	}{er, rr})
	vars := prompt.Vars{
		"results":     results,
		"salary_band": band,
		"policies":    policyExcerpts(cc.Policies, "Standard policies"),
	}
	out, err := step.Perform(ctx, e.gen, vars, func() pipeline.ReviewResult {
		return ReviewFallback(e.reviewFallback)
	})
	if err != nil {
		return nil, Trace{}, err
	}
	trace := traceFrom(out)
	checkedBy := CheckedByReviewer
	if trace.Fallback {
		checkedBy = CheckedByFallback
		e.logf("WARNING review: reply unusable (%s), defaulting verdict to %s without model review", out.Reason, e.reviewFallback)
	}

	r := out.Value
	if extra := extraChecks(r.ComplianceChecks); len(extra) > 0 {
		trace.note("unlogged extra compliance checks: %s", strings.Join(extra, ", "))
	}
	if er.CandidateID != "" {
		failed := 0
		for _, name := range pipeline.ComplianceCheckNames {
			c, ok := r.ComplianceChecks[name]
			if !ok {
				continue
			}
			err := e.store.InsertComplianceLog(ctx, db.ComplianceLog{
				CandidateID: er.CandidateID,
				CheckType:   name,
				Result:      c.Status,
				Details:     c.Details,
				CheckedBy:   checkedBy,
			})
			if err != nil {
				failed++
				e.logf("review: compliance log %s not saved: %v", name, err)
			}
		}
		if failed > 0 {
			trace.note("%d compliance log write(s) failed", failed)
		}
	}
	return &r, trace, nil
}
