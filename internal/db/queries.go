package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Candidate represents a row in the candidates table.
type Candidate struct {
	CandidateID    string `json:"candidate_id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Location       string `json:"location"`
	ResumeAttached bool   `json:"resume_attached"`
	Status         string `json:"status"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// SalaryBand represents a row in the salary_bands table.
type SalaryBand struct {
	ID            int64   `json:"id"`
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

// InterviewSchedule represents a row in the interview_schedules table.
type InterviewSchedule struct {
	ID                 int64  `json:"id"`
	CandidateID        string `json:"candidate_id"`
	InterviewType      string `json:"interview_type"`
	InterviewLogID     string `json:"interview_log_id"`
	ScheduledDate      string `json:"scheduled_date"`
	Recruiter          string `json:"recruiter"`
	TechInterviewer    string `json:"tech_interviewer"`
	AvailabilityWindow string `json:"availability_window"`
	Status             string `json:"status"`
	CreatedAt          string `json:"created_at"`
}

// CompensationProposal represents a row in the compensation_proposals table.
type CompensationProposal struct {
	ProposalID      int64   `json:"proposal_id"`
	CandidateID     string  `json:"candidate_id"`
	BaseSalary      float64 `json:"base_salary"`
	EquityAmount    float64 `json:"equity_amount"`
	BonusTarget     float64 `json:"bonus_target"`
	BenefitsSummary string  `json:"benefits_summary"`
	Status          string  `json:"status"`
	CreatedAt       string  `json:"created_at"`
}

// ComplianceLog represents a row in the compliance_logs table.
type ComplianceLog struct {
	ID          int64  `json:"id"`
	CandidateID string `json:"candidate_id"`
	CheckType   string `json:"check_type"`
	Result      string `json:"result"`
	Details     string `json:"details"`
	CheckedBy   string `json:"checked_by"`
	CheckedAt   string `json:"checked_at"`
}

// Policy represents a row in the policies table.
type Policy struct {
	PolicyID   string `json:"policy_id"`
	PolicyType string `json:"policy_type"`
	PolicyName string `json:"policy_name"`
	Content    string `json:"content"`
	DocID      string `json:"doc_id"`
	CreatedAt  string `json:"created_at"`
}

// PipelineEvent represents a row in the pipeline_events table.
type PipelineEvent struct {
	ID        int64  `json:"id"`
	RunID     string `json:"run_id"`
	Stage     string `json:"stage"`
	Event     string `json:"event"`
	Detail    string `json:"detail"`
	Timestamp string `json:"timestamp"`
}

// Pipeline event kinds accepted by the pipeline_events table.
const (
	EventCompleted = "completed"
	EventFallback  = "fallback"
	EventFailed    = "failed"
)

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// FetchSalaryBands returns every band matching the job level and location
// exactly, in insertion order.
func (d *DB) FetchSalaryBands(ctx context.Context, jobLevel, location string) ([]SalaryBand, error) {
	rows, err := d.conn.QueryContext(ctx, d.Rebind(
		`SELECT id, job_level, location, currency, base_range_min, base_range_max,
		        equity_band_min, equity_band_max, benefits_notes, policy_doc_id
		 FROM salary_bands WHERE job_level = ? AND location = ? ORDER BY id`),
		jobLevel, location,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch salary bands: %w", err)
	}
	defer rows.Close()

	var bands []SalaryBand
	for rows.Next() {
		var b SalaryBand
		if err := rows.Scan(&b.ID, &b.JobLevel, &b.Location, &b.Currency, &b.BaseRangeMin, &b.BaseRangeMax,
			&b.EquityBandMin, &b.EquityBandMax, &b.BenefitsNotes, &b.PolicyDocID); err != nil {
			return nil, fmt.Errorf("scan salary band: %w", err)
		}
		bands = append(bands, b)
	}
	return bands, rows.Err()
}

// ListSalaryBands returns all bands ordered by level and location.
func (d *DB) ListSalaryBands(ctx context.Context) ([]SalaryBand, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT id, job_level, location, currency, base_range_min, base_range_max,
		        equity_band_min, equity_band_max, benefits_notes, policy_doc_id
		 FROM salary_bands ORDER BY job_level, location, id`)
	if err != nil {
		return nil, fmt.Errorf("list salary bands: %w", err)
	}
	defer rows.Close()

	var bands []SalaryBand
	for rows.Next() {
		var b SalaryBand
		if err := rows.Scan(&b.ID, &b.JobLevel, &b.Location, &b.Currency, &b.BaseRangeMin, &b.BaseRangeMax,
			&b.EquityBandMin, &b.EquityBandMax, &b.BenefitsNotes, &b.PolicyDocID); err != nil {
			return nil, fmt.Errorf("scan salary band: %w", err)
		}
		bands = append(bands, b)
	}
	return bands, rows.Err()
}

// InsertSalaryBand adds a salary band row.
func (d *DB) InsertSalaryBand(ctx context.Context, b SalaryBand) error {
	_, err := d.conn.ExecContext(ctx, d.Rebind(
		`INSERT INTO salary_bands (job_level, location, currency, base_range_min, base_range_max,
		                           equity_band_min, equity_band_max, benefits_notes, policy_doc_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		b.JobLevel, b.Location, b.Currency, b.BaseRangeMin, b.BaseRangeMax,
		b.EquityBandMin, b.EquityBandMax, b.BenefitsNotes, b.PolicyDocID,
	)
	if err != nil {
		return fmt.Errorf("insert salary band: %w", err)
	}
	return nil
}

// UpsertCandidate inserts a candidate or updates the existing row with the
// same candidate_id in place.
func (d *DB) UpsertCandidate(ctx context.Context, c Candidate) error {
	ts := now()
	_, err := d.conn.ExecContext(ctx, d.Rebind(
		`INSERT INTO candidates (candidate_id, name, email, location, resume_attached, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(candidate_id) DO UPDATE SET
		     name = excluded.name,
		     email = excluded.email,
		     location = excluded.location,
		     resume_attached = excluded.resume_attached,
		     status = excluded.status,
		     updated_at = excluded.updated_at`),
		c.CandidateID, c.Name, c.Email, c.Location, c.ResumeAttached, c.Status, ts, ts,
	)
	if err != nil {
		return fmt.Errorf("upsert candidate %s: %w", c.CandidateID, err)
	}
	return nil
}

// GetCandidate returns a candidate by id, or nil if none exists.
func (d *DB) GetCandidate(ctx context.Context, candidateID string) (*Candidate, error) {
	return d.scanCandidate(d.conn.QueryRowContext(ctx, d.Rebind(
		`SELECT candidate_id, name, email, location, resume_attached, status, created_at, updated_at
		 FROM candidates WHERE candidate_id = ?`), candidateID))
}

// FindCandidateByEmail returns the oldest candidate with the given email, or nil.
func (d *DB) FindCandidateByEmail(ctx context.Context, email string) (*Candidate, error) {
	return d.scanCandidate(d.conn.QueryRowContext(ctx, d.Rebind(
		`SELECT candidate_id, name, email, location, resume_attached, status, created_at, updated_at
		 FROM candidates WHERE LOWER(email) = LOWER(?) ORDER BY created_at LIMIT 1`), email))
}

func (d *DB) scanCandidate(row *sql.Row) (*Candidate, error) {
	var c Candidate
	err := row.Scan(&c.CandidateID, &c.Name, &c.Email, &c.Location, &c.ResumeAttached, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get candidate: %w", err)
	}
	return &c, nil
}

// ListCandidates returns candidates, most recently updated first.
func (d *DB) ListCandidates(ctx context.Context, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.conn.QueryContext(ctx, d.Rebind(
		`SELECT candidate_id, name, email, location, resume_attached, status, created_at, updated_at
		 FROM candidates ORDER BY updated_at DESC, candidate_id LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.CandidateID, &c.Name, &c.Email, &c.Location, &c.ResumeAttached, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// InsertInterviewSchedule appends an interview schedule row.
func (d *DB) InsertInterviewSchedule(ctx context.Context, s InterviewSchedule) error {
	_, err := d.conn.ExecContext(ctx, d.Rebind(
		`INSERT INTO interview_schedules
		 (candidate_id, interview_type, interview_log_id, scheduled_date, recruiter,
		  tech_interviewer, availability_window, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		s.CandidateID, s.InterviewType, s.InterviewLogID, s.ScheduledDate, s.Recruiter,
		s.TechInterviewer, s.AvailabilityWindow, s.Status, now(),
	)
	if err != nil {
		return fmt.Errorf("insert interview schedule: %w", err)
	}
	return nil
}

// ListInterviewSchedules returns the schedules for a candidate in insertion order.
func (d *DB) ListInterviewSchedules(ctx context.Context, candidateID string) ([]InterviewSchedule, error) {
	rows, err := d.conn.QueryContext(ctx, d.Rebind(
		`SELECT id, candidate_id, interview_type, interview_log_id, scheduled_date, recruiter,
		        tech_interviewer, availability_window, status, created_at
		 FROM interview_schedules WHERE candidate_id = ? ORDER BY id`), candidateID)
	if err != nil {
		return nil, fmt.Errorf("list interview schedules: %w", err)
	}
	defer rows.Close()

	var out []InterviewSchedule
	for rows.Next() {
		var s InterviewSchedule
		if err := rows.Scan(&s.ID, &s.CandidateID, &s.InterviewType, &s.InterviewLogID, &s.ScheduledDate,
			&s.Recruiter, &s.TechInterviewer, &s.AvailabilityWindow, &s.Status, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan interview schedule: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// InsertCompensationProposal appends a proposal row and returns its generated id.
func (d *DB) InsertCompensationProposal(ctx context.Context, p CompensationProposal) (int64, error) {
	var id int64
	err := d.conn.QueryRowContext(ctx, d.Rebind(
		`INSERT INTO compensation_proposals
		 (candidate_id, base_salary, equity_amount, bonus_target, benefits_summary, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 RETURNING proposal_id`),
		p.CandidateID, p.BaseSalary, p.EquityAmount, p.BonusTarget, p.BenefitsSummary, p.Status, now(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert compensation proposal: %w", err)
	}
	return id, nil
}

// ListCompensationProposals returns the proposals for a candidate in insertion order.
func (d *DB) ListCompensationProposals(ctx context.Context, candidateID string) ([]CompensationProposal, error) {
	rows, err := d.conn.QueryContext(ctx, d.Rebind(
		`SELECT proposal_id, candidate_id, base_salary, equity_amount, bonus_target, benefits_summary, status, created_at
		 FROM compensation_proposals WHERE candidate_id = ? ORDER BY proposal_id`), candidateID)
	if err != nil {
		return nil, fmt.Errorf("list compensation proposals: %w", err)
	}
	defer rows.Close()

	var out []CompensationProposal
	for rows.Next() {
		var p CompensationProposal
		if err := rows.Scan(&p.ProposalID, &p.CandidateID, &p.BaseSalary, &p.EquityAmount, &p.BonusTarget,
			&p.BenefitsSummary, &p.Status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan compensation proposal: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// InsertComplianceLog appends a compliance check result.
func (d *DB) InsertComplianceLog(ctx context.Context, l ComplianceLog) error {
	checkedAt := l.CheckedAt
	if checkedAt == "" {
		checkedAt = now()
	}
	_, err := d.conn.ExecContext(ctx, d.Rebind(
		`INSERT INTO compliance_logs (candidate_id, check_type, result, details, checked_by, checked_at)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		l.CandidateID, l.CheckType, l.Result, l.Details, l.CheckedBy, checkedAt,
	)
	if err != nil {
		return fmt.Errorf("insert compliance log: %w", err)
	}
	return nil
}

// ListComplianceLogs returns the compliance rows for a candidate in insertion order.
func (d *DB) ListComplianceLogs(ctx context.Context, candidateID string) ([]ComplianceLog, error) {
	rows, err := d.conn.QueryContext(ctx, d.Rebind(
		`SELECT id, candidate_id, check_type, result, details, checked_by, checked_at
		 FROM compliance_logs WHERE candidate_id = ? ORDER BY id`), candidateID)
	if err != nil {
		return nil, fmt.Errorf("list compliance logs: %w", err)
	}
	defer rows.Close()

	var out []ComplianceLog
	for rows.Next() {
		var l ComplianceLog
		if err := rows.Scan(&l.ID, &l.CandidateID, &l.CheckType, &l.Result, &l.Details, &l.CheckedBy, &l.CheckedAt); err != nil {
			return nil, fmt.Errorf("scan compliance log: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// InsertPolicy adds a policy document. An existing policy_id is replaced.
func (d *DB) InsertPolicy(ctx context.Context, p Policy) error {
	_, err := d.conn.ExecContext(ctx, d.Rebind(
		`INSERT INTO policies (policy_id, policy_type, policy_name, policy_content, doc_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(policy_id) DO UPDATE SET
		     policy_type = excluded.policy_type,
		     policy_name = excluded.policy_name,
		     policy_content = excluded.policy_content,
		     doc_id = excluded.doc_id`),
		p.PolicyID, p.PolicyType, p.PolicyName, p.Content, p.DocID, now(),
	)
	if err != nil {
		return fmt.Errorf("insert policy %s: %w", p.PolicyID, err)
	}
	return nil
}

// ListPolicies returns every policy in insertion order.
func (d *DB) ListPolicies(ctx context.Context) ([]Policy, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT policy_id, policy_type, policy_name, policy_content, doc_id, created_at
		 FROM policies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	defer rows.Close()

	var out []Policy
	for rows.Next() {
		var p Policy
		if err := rows.Scan(&p.PolicyID, &p.PolicyType, &p.PolicyName, &p.Content, &p.DocID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan policy: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountPolicies returns the number of stored policies.
func (d *DB) CountPolicies(ctx context.Context) (int, error) {
	var n int
	if err := d.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM policies").Scan(&n); err != nil {
		return 0, fmt.Errorf("count policies: %w", err)
	}
	return n, nil
}

// LogPipelineEvent records a per-stage outcome for a pipeline run.
func (d *DB) LogPipelineEvent(ctx context.Context, runID, stage, event, detail string) error {
	_, err := d.conn.ExecContext(ctx, d.Rebind(
		`INSERT INTO pipeline_events (run_id, stage, event, detail, timestamp) VALUES (?, ?, ?, ?, ?)`),
		runID, stage, event, detail, now(),
	)
	if err != nil {
		return fmt.Errorf("log pipeline event: %w", err)
	}
	return nil
}

// GetPipelineEvents returns all events for a run in insertion order.
func (d *DB) GetPipelineEvents(ctx context.Context, runID string) ([]PipelineEvent, error) {
	rows, err := d.conn.QueryContext(ctx, d.Rebind(
		`SELECT id, run_id, stage, event, detail, timestamp
		 FROM pipeline_events WHERE run_id = ? ORDER BY id`), runID)
	if err != nil {
		return nil, fmt.Errorf("get pipeline events: %w", err)
	}
	defer rows.Close()

	var out []PipelineEvent
	for rows.Next() {
		var e PipelineEvent
		if err := rows.Scan(&e.ID, &e.RunID, &e.Stage, &e.Event, &e.Detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan pipeline event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
