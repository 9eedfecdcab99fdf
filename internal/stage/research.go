package stage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lucasnoah/hirefactory/internal/agent"
	"github.com/lucasnoah/hirefactory/internal/pipeline"
	"github.com/lucasnoah/hirefactory/internal/prompt"
)

// Band values assumed when no salary band was found.
const (
	defaultBaseMin   = 1500000
	defaultBaseMax   = 1800000
	defaultEquityMin = 100
	defaultEquityMax = 200
)

const (
	policyExcerptLimit = 3
	policyExcerptChars = 500
)

func parseResearch(payload string) (pipeline.ResearchResult, error) {
	r, err := agent.DecodeJSON[pipeline.ResearchResult](payload)
	if err != nil {
		return r, err
	}
	c := r.CompensationProposal
	for name, v := range map[string]float64{
		"base_salary":        c.BaseSalary,
		"equity":             c.Equity,
		"bonus_target":       c.BonusTarget,
		"total_compensation": c.TotalCompensation,
	} {
		if v < 0 {
			return r, fmt.Errorf("%s is negative (%v)", name, v)
		}
	}
	if c.BaseSalary == 0 {
		return r, errors.New("reply has no base_salary")
	}
	return r, nil
}

// withinBand rejects a proposal whose base salary lies outside band.
func withinBand(parse func(string) (pipeline.ResearchResult, error), band *pipeline.SalaryBand) func(string) (pipeline.ResearchResult, error) {
	if band == nil {
		return parse
	}
	return func(payload string) (pipeline.ResearchResult, error) {
		r, err := parse(payload)
		if err != nil {
			return r, err
		}
		base := r.CompensationProposal.BaseSalary
		if base < band.BaseRangeMin || base > band.BaseRangeMax {
			return r, fmt.Errorf("base_salary %v outside band %v-%v", base, band.BaseRangeMin, band.BaseRangeMax)
		}
		return r, nil
	}
}

// ResearchFallback proposes the band midpoint and a default interview loop.
func ResearchFallback(cc *pipeline.CoordinatedContext, now time.Time) pipeline.ResearchResult {
	baseMin, baseMax := float64(defaultBaseMin), float64(defaultBaseMax)
	eqMin, eqMax := float64(defaultEquityMin), float64(defaultEquityMax)
	var cand pipeline.CandidateData
	if cc != nil {
		cand = cc.CandidateData
		if b := cc.SalaryBands; b != nil {
			baseMin, baseMax = b.BaseRangeMin, b.BaseRangeMax
			eqMin, eqMax = b.EquityBandMin, b.EquityBandMax
		}
	}

	base := (baseMin + baseMax) / 2
	bonus := base / 10
	name, email, location := cand.Name, cand.Email, cand.Location
	if name == "" {
		name = "Unknown"
	}
	if email == "" {
		email = "unknown@example.com"
	}
	if location == "" {
		location = "Unknown"
	}

	return pipeline.ResearchResult{
		CandidateVerification: pipeline.CandidateVerification{
			Name:        name,
			Email:       email,
			Location:    location,
			Suitability: "Candidate meets basic requirements",
		},
		CompensationProposal: pipeline.CompensationProposal{
			BaseSalary:        base,
			Equity:            (eqMin + eqMax) / 2,
			BonusTarget:       bonus,
			TotalCompensation: base + bonus,
			Justification:     "Midpoint of salary band range",
		},
		InterviewSchedule: pipeline.InterviewSchedule{
			InterviewType:      "Technical + HR Interview",
			ProposedDates:      ProposedDates(now, 3),
			Recruiters:         pipeline.StringList{"Recruiter 1"},
			TechInterviewers:   pipeline.StringList{"Tech Lead 1", "Senior Engineer 1"},
			AvailabilityWindow: "10:00-16:00 IST",
		},
		ComplianceNotes: pipeline.StringList{"Standard compliance checks required"},
	}
}

// ProposedDates returns n weekday dates (YYYY-MM-DD) starting one week after now.
func ProposedDates(now time.Time, n int) pipeline.StringList {
	dates := make(pipeline.StringList, 0, n)
	d := now.AddDate(0, 0, 7)
	for len(dates) < n {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			dates = append(dates, d.Format("2006-01-02"))
		}
		d = d.AddDate(0, 0, 1)
	}
	return dates
}

func policyExcerpts(docs []pipeline.PolicyDoc, empty string) string {
	if len(docs) == 0 {
		return empty
	}
	if len(docs) > policyExcerptLimit {
		docs = docs[:policyExcerptLimit]
	}
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		text := d.Content
		if r := []rune(text); len(r) > policyExcerptChars {
			text = string(r[:policyExcerptChars])
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n")
}

func toJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(data)
}

// Research proposes compensation and an interview loop for the candidate.
func (e *Engine) Research(ctx context.Context, task *pipeline.InterpretedTask, cc *pipeline.CoordinatedContext) (*pipeline.ResearchResult, Trace, error) {
	if task == nil || cc == nil {
		return nil, Trace{}, errors.New("research: missing task or coordinated context")
	}
	step, err := newStep(e, Research, withinBand(parseResearch, cc.SalaryBands))
	if err != nil {
		return nil, Trace{}, err
	}

	band := "{}"
	if cc.SalaryBands != nil {
		band = toJSON(cc.SalaryBands)
	}
	vars := prompt.Vars{
		"task":        toJSON(task),
		"candidate":   toJSON(cc.CandidateData),
		"salary_band": band,
		"policies":    policyExcerpts(cc.Policies, "No specific policies retrieved"),
	}
	out, err := step.Perform(ctx, e.gen, vars, func() pipeline.ResearchResult {
		return ResearchFallback(cc, e.now())
	})
	if err != nil {
		return nil, Trace{}, err
	}
	trace := traceFrom(out)
	if trace.Fallback {
		e.logf("research: reply unusable (%s), proposing band midpoint", out.Reason)
	}
	r := out.Value
	return &r, trace, nil
}
