package stage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lucasnoah/hirefactory/internal/db"
	"github.com/lucasnoah/hirefactory/internal/pipeline"
	"github.com/lucasnoah/hirefactory/internal/prompt"
)

// Statuses for rows written by Execute.
const (
	ScheduleScheduled = "scheduled"
	ProposalDraft     = "draft"
)

const interviewTime = "14:00:00"

// interviewLogID returns a unique reference for an interview row.
func interviewLogID(now time.Time) string {
	return fmt.Sprintf("INT-%s-%s", now.Format("20060102-150405"), strings.ToUpper(uuid.NewString()[:6]))
}

// scheduledAt appends the standard interview time to a bare date.
func scheduledAt(date string) string {
	date = strings.TrimSpace(date)
	if strings.ContainsAny(date, " T") {
		return date
	}
	return date + " " + interviewTime
}

func firstOr(list []string, def string) string {
	for _, s := range list {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return def
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// EmailFallback is the invitation used when the model returns nothing.
func EmailFallback(name string, sched pipeline.InterviewSchedule) string {
	var b strings.Builder
	itype := orDefault(sched.InterviewType, "Technical Interview")
	fmt.Fprintf(&b, "Subject: Interview Invitation - %s\n\n", itype)
	fmt.Fprintf(&b, "Dear %s,\n\n", orDefault(name, "Candidate"))
	fmt.Fprintf(&b, "Thank you for your interest in joining us. We would like to invite you to a %s.\n\n", itype)
	if len(sched.ProposedDates) > 0 {
		fmt.Fprintf(&b, "Proposed dates: %s\n", strings.Join(sched.ProposedDates, ", "))
	}
	if sched.AvailabilityWindow != "" {
		fmt.Fprintf(&b, "Time window: %s\n", sched.AvailabilityWindow)
	}
	b.WriteString("\nPlease reply with your preferred date and time.\n\nBest regards,\nRecruitment Team\n")
	return b.String()
}

func parseEmail(payload string) (string, error) {
	if strings.TrimSpace(payload) == "" {
		return "", errors.New("empty email draft")
	}
	return payload, nil
}

// Execute persists the candidate, one interview and the compensation
// proposal, and drafts the invitation email. Store write failures are
// logged and absorbed.
func (e *Engine) Execute(ctx context.Context, rr *pipeline.ResearchResult, cc *pipeline.CoordinatedContext) (*pipeline.ExecutionResult, Trace, error) {
	if rr == nil || cc == nil {
		return nil, Trace{}, errors.New("execute: missing research result or coordinated context")
	}
	var trace Trace
	now := e.now()
	cand := cc.CandidateData
	ver := rr.CandidateVerification
	sched := rr.InterviewSchedule

	candidateID := cand.CandidateID
	if candidateID == "" {
		candidateID = CandidateID(orDefault(ver.Email, cand.Email))
	}
	row := db.Candidate{
		CandidateID:    candidateID,
		Name:           orDefault(ver.Name, orDefault(cand.Name, "Unknown")),
		Email:          orDefault(ver.Email, orDefault(cand.Email, "unknown@example.com")),
		Location:       orDefault(ver.Location, orDefault(cand.Location, "Unknown")),
		ResumeAttached: cand.ResumeAttached,
		Status:         CandidateInterviewScheduled,
	}
	if err := e.store.UpsertCandidate(ctx, row); err != nil {
		e.logf("execute: candidate %s not saved: %v", candidateID, err)
		trace.note("candidate write failed: %v", err)
	} else {
		e.logf("execute: saved candidate %s", candidateID)
	}

	scheduleIDs := []string{}
	if len(sched.ProposedDates) > 0 {
		logID := interviewLogID(now)
		err := e.store.InsertInterviewSchedule(ctx, db.InterviewSchedule{
			CandidateID:        candidateID,
			InterviewType:      orDefault(sched.InterviewType, "Technical Interview"),
			InterviewLogID:     logID,
			ScheduledDate:      scheduledAt(sched.ProposedDates[0]),
			Recruiter:          firstOr(sched.Recruiters, "Recruiter"),
			TechInterviewer:    orDefault(strings.Join(sched.TechInterviewers, ", "), "Tech Lead"),
			AvailabilityWindow: orDefault(sched.AvailabilityWindow, "10:00-16:00"),
			Status:             ScheduleScheduled,
		})
		if err != nil {
			e.logf("execute: interview not scheduled: %v", err)
			trace.note("interview write failed: %v", err)
		} else {
			scheduleIDs = append(scheduleIDs, logID)
			e.logf("execute: scheduled interview %s", logID)
		}
		if extra := len(sched.ProposedDates) - 1; extra > 0 {
			trace.Dropped = extra
			e.logf("execute: %d further proposed date(s) not scheduled", extra)
		}
	} else {
		trace.note("no proposed interview dates")
	}

	step, err := newStep(e, Execute, parseEmail)
	if err != nil {
		return nil, trace, err
	}
	step.Extract = strings.TrimSpace
	vars := prompt.Vars{
		"candidate_name": row.Name,
		"interview_type": orDefault(sched.InterviewType, "Technical Interview"),
		"proposed_dates": strings.Join(sched.ProposedDates, ", "),
		"window":         sched.AvailabilityWindow,
	}
	out, err := step.Perform(ctx, e.gen, vars, func() string {
		return EmailFallback(row.Name, sched)
	})
	if err != nil {
		return nil, trace, err
	}
	call := traceFrom(out)
	trace.Fallback, trace.Reason, trace.Prompt, trace.Reply = call.Fallback, call.Reason, call.Prompt, call.Reply
	if trace.Fallback {
		e.logf("execute: email reply unusable (%s), using template", out.Reason)
	}

	comp := rr.CompensationProposal
	proposalID, err := e.store.InsertCompensationProposal(ctx, db.CompensationProposal{
		CandidateID:     candidateID,
		BaseSalary:      comp.BaseSalary,
		EquityAmount:    comp.Equity,
		BonusTarget:     comp.BonusTarget,
		BenefitsSummary: comp.Justification,
		Status:          ProposalDraft,
	})
	if err != nil {
		e.logf("execute: compensation proposal not saved: %v", err)
		trace.note("proposal write failed: %v", err)
		proposalID = 0
	} else {
		e.logf("execute: created compensation proposal %d", proposalID)
	}

	return &pipeline.ExecutionResult{
		CandidateID:     candidateID,
		ScheduleIDs:     scheduleIDs,
		ProposalID:      proposalID,
		EmailDraft:      out.Value,
		ExecutionStatus: pipeline.ExecutionCompleted,
		Timestamp:       now.UTC().Format(time.RFC3339),
	}, trace, nil
}
