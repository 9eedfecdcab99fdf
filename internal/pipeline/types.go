package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Validation verdicts.
const (
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// Compliance check results.
const (
	CheckPass = "PASS"
	CheckFail = "FAIL"
)

// ExecutionCompleted is the only execution status a finished Execute stage reports.
const ExecutionCompleted = "completed"

// ComplianceCheckNames are the four checks every review carries, in report order.
var ComplianceCheckNames = []string{"content_language", "compensation", "scheduling", "data_integrity"}

// StringList decodes either a JSON string or an array of strings.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*l = nil
		return nil
	}
	if strings.HasPrefix(trimmed, "\"") {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*l = StringList{}
		} else {
			*l = StringList{s}
		}
		return nil
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*l = items
	return nil
}

// FlexText decodes a JSON string, or re-encodes any other JSON value as text.
type FlexText string

// UnmarshalJSON implements json.Unmarshaler.
func (t *FlexText) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = FlexText(s)
		return nil
	}
	*t = FlexText(trimmed)
	return nil
}

// RequiredData lists what the downstream stages must gather.
type RequiredData struct {
	CandidateInfo StringList `json:"candidate_info"`
	JobDetails    StringList `json:"job_details"`
	SalaryBands   FlexText   `json:"salary_bands"`
	Policies      StringList `json:"policies"`
}

// InterpretedTask is the Interpret stage's structured reading of the request.
type InterpretedTask struct {
	Objective       string       `json:"objective"`
	RequiredData    RequiredData `json:"required_data"`
	Constraints     StringList   `json:"constraints"`
	SuccessCriteria StringList   `json:"success_criteria"`
	NextAgent       string       `json:"next_agent"`
}

// SalaryBand is the compensation range for one job level and location.
type SalaryBand struct {
	JobLevel      string  `json:"job_level"`
	Location      string  `json:"location"`
	Currency      string  `json:"currency"`
	BaseRangeMin  float64 `json:"base_range_min"`
	BaseRangeMax  float64 `json:"base_range_max"`
	EquityBandMin float64 `json:"equity_band_min"`
	EquityBandMax float64 `json:"equity_band_max"`
	BenefitsNotes string  `json:"benefits_notes"`
	PolicyDocID   string  `json:"policy_doc_id"`
}

// CandidateData is the candidate shell gathered by Coordinate.
type CandidateData struct {
	CandidateID    string `json:"candidate_id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Location       string `json:"location"`
	ResumeAttached bool   `json:"resume_attached"`
	Status         string `json:"status"`
}

// PolicyDoc is one retrieved policy document.
type PolicyDoc struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// CoordinatedContext is the reference data gathered for the research stage.
// SalaryBands is nil when no band matched.
type CoordinatedContext struct {
	SalaryBands   *SalaryBand   `json:"salary_bands"`
	CandidateData CandidateData `json:"candidate_data"`
	Policies      []PolicyDoc   `json:"policies"`
	JobLevel      string        `json:"job_level"`
	Location      string        `json:"location"`
}

// CandidateVerification is Research's view of the candidate.
type CandidateVerification struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Location    string `json:"location"`
	Suitability string `json:"suitability"`
}

// CompensationProposal is the proposed package. Amounts share one currency;
// equity is an option count.
type CompensationProposal struct {
	BaseSalary        float64 `json:"base_salary"`
	Equity            float64 `json:"equity"`
	BonusTarget       float64 `json:"bonus_target"`
	TotalCompensation float64 `json:"total_compensation"`
	Justification     string  `json:"justification"`
}

// InterviewSchedule is the proposed interview loop.
type InterviewSchedule struct {
	InterviewType      string     `json:"interview_type"`
	ProposedDates      StringList `json:"proposed_dates"`
	Recruiters         StringList `json:"recruiters"`
	TechInterviewers   StringList `json:"tech_interviewers"`
	AvailabilityWindow string     `json:"availability_window"`
}

// ResearchResult is the Research stage's proposal.
type ResearchResult struct {
	CandidateVerification CandidateVerification `json:"candidate_verification"`
	CompensationProposal  CompensationProposal  `json:"compensation_proposal"`
	InterviewSchedule     InterviewSchedule     `json:"interview_schedule"`
	ComplianceNotes       StringList            `json:"compliance_notes"`
}

// ExecutionResult records what Execute persisted.
type ExecutionResult struct {
	CandidateID     string   `json:"candidate_id"`
	ScheduleIDs     []string `json:"schedule_ids"`
	ProposalID      int64    `json:"proposal_id"`
	EmailDraft      string   `json:"email_draft"`
	ExecutionStatus string   `json:"execution_status"`
	Timestamp       string   `json:"timestamp"`
}

// ComplianceCheck is one named review check.
type ComplianceCheck struct {
	Status  string `json:"status"`
	Details string `json:"details"`
}

// ReviewResult is the Review stage's verdict.
type ReviewResult struct {
	ValidationStatus string                     `json:"validation_status"`
	ComplianceChecks map[string]ComplianceCheck `json:"compliance_checks"`
	IssuesFound      StringList                 `json:"issues_found"`
	Recommendations  StringList                 `json:"recommendations"`
}

// FinalOutput is the terminal aggregate returned to callers.
type FinalOutput struct {
	Candidate ExecutionResult `json:"candidate"`
	Research  ResearchResult  `json:"research"`
	Review    ReviewResult    `json:"review"`
}
