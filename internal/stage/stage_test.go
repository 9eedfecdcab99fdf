package stage

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lucasnoah/hirefactory/internal/db"
	"github.com/lucasnoah/hirefactory/internal/llm"
	"github.com/lucasnoah/hirefactory/internal/pipeline"
)

const rajaRequest = "Find candidate data for Raja. He's applying for SOE-1 Software Development Engineer position in Bangalore. Compute compensation and schedule an interview."

// replies hands out canned replies in order; once exhausted it returns "".
type replies struct {
	queue []string
	err   error
	calls []llm.Request
}

func (r *replies) Generate(ctx context.Context, req llm.Request) (string, error) {
	r.calls = append(r.calls, req)
	if r.err != nil {
		return "", r.err
	}
	if len(r.queue) == 0 {
		return "", nil
	}
	out := r.queue[0]
	r.queue = r.queue[1:]
	return out, nil
}

// memStore records writes and can be told to fail them.
type memStore struct {
	bands        []db.SalaryBand
	candidates   map[string]db.Candidate
	schedules    []db.InterviewSchedule
	proposals    []db.CompensationProposal
	compliance   []db.ComplianceLog
	failWrites   bool
	failReads    bool
	nextProposal int64
}

func newMemStore(bands ...db.SalaryBand) *memStore {
	return &memStore{bands: bands, candidates: map[string]db.Candidate{}}
}

var errWrite = errors.New("disk full")

func (m *memStore) FetchSalaryBands(ctx context.Context, level, location string) ([]db.SalaryBand, error) {
	if m.failReads {
		return nil, errors.New("connection lost")
	}
	var out []db.SalaryBand
	for _, b := range m.bands {
		if b.JobLevel == level && b.Location == location {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memStore) FindCandidateByEmail(ctx context.Context, email string) (*db.Candidate, error) {
	for _, c := range m.candidates {
		if strings.EqualFold(c.Email, email) {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memStore) UpsertCandidate(ctx context.Context, c db.Candidate) error {
	if m.failWrites {
		return errWrite
	}
	m.candidates[c.CandidateID] = c
	return nil
}

func (m *memStore) InsertInterviewSchedule(ctx context.Context, s db.InterviewSchedule) error {
	if m.failWrites {
		return errWrite
	}
	m.schedules = append(m.schedules, s)
	return nil
}

func (m *memStore) InsertCompensationProposal(ctx context.Context, p db.CompensationProposal) (int64, error) {
	if m.failWrites {
		return 0, errWrite
	}
	m.nextProposal++
	m.proposals = append(m.proposals, p)
	return m.nextProposal, nil
}

func (m *memStore) InsertComplianceLog(ctx context.Context, l db.ComplianceLog) error {
	if m.failWrites {
		return errWrite
	}
	m.compliance = append(m.compliance, l)
	return nil
}

type fixedPolicies []pipeline.PolicyDoc

func (f fixedPolicies) Query(query, policyType string) []pipeline.PolicyDoc {
	var out []pipeline.PolicyDoc
	for _, d := range f {
		if policyType == "" || d.Metadata["policy_type"] == policyType {
			out = append(out, d)
		}
	}
	return out
}

var soe1Bangalore = db.SalaryBand{JobLevel: "SOE-1", Location: "Bangalore", Currency: "INR",
	BaseRangeMin: 1500000, BaseRangeMax: 1800000, EquityBandMin: 100, EquityBandMax: 200}

// monday is a fixed clock for date-dependent fallbacks.
var monday = time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC)

func newTestEngine(gen llm.Generator, store Store, pol Policies) (*Engine, *bytes.Buffer) {
	e := NewEngine(gen, store, pol)
	var buf bytes.Buffer
	e.SetProgress(&buf)
	e.SetClock(func() time.Time { return monday })
	return e, &buf
}

func TestInterpret_Parsed(t *testing.T) {
	gen := &replies{queue: []string{"```json\n" + `{
		"objective": "Compute compensation for Raja",
		"required_data": {"candidate_info": ["name"], "job_details": "title", "salary_bands": "SOE-1 Bangalore", "policies": ["compensation"]},
		"constraints": ["stay in band"],
		"success_criteria": ["proposal created"]
	}` + "\n```"}}
	e, _ := newTestEngine(gen, newMemStore(), nil)

	task, trace, err := e.Interpret(context.Background(), rajaRequest)
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if trace.Fallback {
		t.Errorf("unexpected fallback: %s", trace.Reason)
	}
	if task.Objective != "Compute compensation for Raja" {
		t.Errorf("Objective = %q", task.Objective)
	}
	if len(task.RequiredData.JobDetails) != 1 || task.RequiredData.JobDetails[0] != "title" {
		t.Errorf("JobDetails = %v", task.RequiredData.JobDetails)
	}
	if task.NextAgent != NextAgentCoordinator {
		t.Errorf("NextAgent = %q, want %q", task.NextAgent, NextAgentCoordinator)
	}
	if gen.calls[0].Temperature != 0.7 {
		t.Errorf("temperature = %v, want 0.7", gen.calls[0].Temperature)
	}
	if !strings.Contains(gen.calls[0].Prompt, rajaRequest) {
		t.Error("prompt should embed the request")
	}
}

func TestInterpret_Fallback(t *testing.T) {
	for _, reply := range []string{"no idea", `{"objective": "  "}`} {
		e, buf := newTestEngine(&replies{queue: []string{reply}}, newMemStore(), nil)
		task, trace, err := e.Interpret(context.Background(), "hire Raja")
		if err != nil {
			t.Fatalf("Interpret: %v", err)
		}
		if !trace.Fallback {
			t.Errorf("reply %q: expected fallback", reply)
		}
		if task.Objective != "hire Raja" {
			t.Errorf("Objective = %q, want raw request", task.Objective)
		}
		if got := []string(task.RequiredData.Policies); len(got) != 2 || got[0] != "compensation" || got[1] != "hiring" {
			t.Errorf("Policies = %v", got)
		}
		if !strings.Contains(buf.String(), "interpret") {
			t.Error("fallback should be logged")
		}
	}
}

func TestInterpret_GeneratorFault(t *testing.T) {
	e, _ := newTestEngine(&replies{err: errors.New("unreachable")}, newMemStore(), nil)
	if _, _, err := e.Interpret(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
}

func TestResolveKeywords(t *testing.T) {
	tests := []struct {
		texts    []string
		level    string
		location string
	}{
		{[]string{"hire someone"}, DefaultJobLevel, DefaultLocation},
		{[]string{"SOE-2 role in Mumbai"}, "SOE-2", "Mumbai"},
		{[]string{"unknown", "Senior Manager role, Bengaluru office"}, "Senior Manager", "Bangalore"},
		{[]string{"soe3 Pune", "SOE-1 Delhi"}, "SOE-3", "Pune"},
		{[]string{"SOE 2 opening"}, "SOE-2", DefaultLocation},
		{[]string{"", "manager position in hyderabad"}, "Manager", "Hyderabad"},
		{[]string{"Schedule an interview for Raja with the hiring manager and compute compensation."}, DefaultJobLevel, DefaultLocation},
		{[]string{"the senior manager will join from Mumbai"}, DefaultJobLevel, "Mumbai"},
		{[]string{"reassoe-1x"}, DefaultJobLevel, DefaultLocation},
	}
	for _, tt := range tests {
		if got := ResolveJobLevel(tt.texts...); got != tt.level {
			t.Errorf("ResolveJobLevel(%q) = %q, want %q", tt.texts, got, tt.level)
		}
		if got := ResolveLocation(tt.texts...); got != tt.location {
			t.Errorf("ResolveLocation(%q) = %q, want %q", tt.texts, got, tt.location)
		}
	}
}

func TestNameFromRequest(t *testing.T) {
	tests := map[string]string{
		rajaRequest:                            "Raja",
		"Schedule an interview for Priya Shah": "Priya Shah",
		"Open a role for SOE-2":                "Unknown",
		"nothing here":                         "Unknown",
	}
	for in, want := range tests {
		if got := NameFromRequest(in); got != want {
			t.Errorf("NameFromRequest(%q) = %q, want %q", in, got, want)
		}
	}
	if got := PlaceholderEmail("Priya Shah"); got != "priya.shah@example.com" {
		t.Errorf("PlaceholderEmail = %q", got)
	}
}

func TestCoordinate_DefaultsWhenNothingMatches(t *testing.T) {
	e, _ := newTestEngine(&replies{}, newMemStore(), nil)
	task := InterpretFallback("please help with a hire")

	cc, trace, err := e.Coordinate(context.Background(), &task, "please help with a hire")
	if err != nil {
		t.Fatalf("Coordinate: %v", err)
	}
	if cc.JobLevel != "SOE-1" || cc.Location != "Bangalore" {
		t.Errorf("resolved %s/%s, want SOE-1/Bangalore", cc.JobLevel, cc.Location)
	}
	if cc.SalaryBands != nil {
		t.Errorf("SalaryBands = %+v, want nil", cc.SalaryBands)
	}
	if !trace.Fallback {
		t.Error("empty identity reply should fall back")
	}
	if cc.CandidateData.Name != "Unknown" || cc.CandidateData.Email != "unknown@example.com" {
		t.Errorf("candidate = %+v", cc.CandidateData)
	}
	if len(trace.Notes) == 0 {
		t.Error("missing band should be noted")
	}
}

func TestCoordinate_GathersBandPoliciesAndIdentity(t *testing.T) {
	second := soe1Bangalore
	second.BaseRangeMin = 1600000
	store := newMemStore(soe1Bangalore, second)
	pol := fixedPolicies{
		{Content: "comp", Metadata: map[string]string{"policy_type": "compensation"}},
		{Content: "hire", Metadata: map[string]string{"policy_type": "hiring"}},
	}
	gen := &replies{queue: []string{`{"name": "Raja", "email": "raja@corp.test"}`}}
	e, _ := newTestEngine(gen, store, pol)

	task := InterpretFallback(rajaRequest)
	cc, trace, err := e.Coordinate(context.Background(), &task, rajaRequest)
	if err != nil {
		t.Fatalf("Coordinate: %v", err)
	}
	if cc.SalaryBands == nil || cc.SalaryBands.BaseRangeMin != 1500000 {
		t.Errorf("SalaryBands = %+v, want first row", cc.SalaryBands)
	}
	if trace.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", trace.Dropped)
	}
	if len(cc.Policies) != 2 {
		t.Errorf("len(Policies) = %d, want 2 (compensation + hiring)", len(cc.Policies))
	}
	if trace.Fallback {
		t.Errorf("unexpected fallback: %s", trace.Reason)
	}
	if cc.CandidateData.Email != "raja@corp.test" || cc.CandidateData.Status != CandidateScreening {
		t.Errorf("candidate = %+v", cc.CandidateData)
	}
	if cc.CandidateData.CandidateID != CandidateID("RAJA@corp.test") {
		t.Errorf("CandidateID = %q, want stable id", cc.CandidateData.CandidateID)
	}
	if !strings.HasPrefix(cc.CandidateData.CandidateID, "CAND-") || len(cc.CandidateData.CandidateID) != 13 {
		t.Errorf("CandidateID format = %q", cc.CandidateData.CandidateID)
	}
}

func TestCoordinate_HiringManagerKeepsDefaultLevel(t *testing.T) {
	const req = "Schedule an interview for Raja with the hiring manager and compute compensation."
	e, _ := newTestEngine(&replies{}, newMemStore(soe1Bangalore), nil)
	task := InterpretFallback(req)

	cc, _, err := e.Coordinate(context.Background(), &task, req)
	if err != nil {
		t.Fatalf("Coordinate: %v", err)
	}
	if cc.JobLevel != "SOE-1" {
		t.Errorf("JobLevel = %q, want SOE-1", cc.JobLevel)
	}
	if cc.SalaryBands == nil || cc.SalaryBands.BaseRangeMax != 1800000 {
		t.Errorf("SalaryBands = %+v, want seeded SOE-1/Bangalore band", cc.SalaryBands)
	}
}

func TestCoordinate_ReusesExistingCandidate(t *testing.T) {
	store := newMemStore()
	store.candidates["CAND-OLD"] = db.Candidate{CandidateID: "CAND-OLD", Email: "raja@example.com", ResumeAttached: true, Status: "interview_scheduled"}
	e, _ := newTestEngine(&replies{}, store, nil)

	task := InterpretFallback(rajaRequest)
	cc, _, err := e.Coordinate(context.Background(), &task, rajaRequest)
	if err != nil {
		t.Fatalf("Coordinate: %v", err)
	}
	if cc.CandidateData.CandidateID != "CAND-OLD" || !cc.CandidateData.ResumeAttached {
		t.Errorf("candidate = %+v, want existing row", cc.CandidateData)
	}
}

func TestCoordinate_StoreReadFaultIsFatal(t *testing.T) {
	store := newMemStore()
	store.failReads = true
	e, _ := newTestEngine(&replies{}, store, nil)
	task := InterpretFallback("x")
	if _, _, err := e.Coordinate(context.Background(), &task, "x"); err == nil {
		t.Fatal("expected error")
	}
}

func bandContext() *pipeline.CoordinatedContext {
	return &pipeline.CoordinatedContext{
		SalaryBands: &pipeline.SalaryBand{JobLevel: "SOE-1", Location: "Bangalore", Currency: "INR",
			BaseRangeMin: 1500000, BaseRangeMax: 1800000, EquityBandMin: 100, EquityBandMax: 200},
		CandidateData: pipeline.CandidateData{CandidateID: "CAND-1", Name: "Raja", Email: "raja@example.com", Location: "Bangalore"},
		JobLevel:      "SOE-1",
		Location:      "Bangalore",
	}
}

func TestResearch_FallbackMidpoint(t *testing.T) {
	e, _ := newTestEngine(&replies{queue: []string{"Here is my analysis, no JSON."}}, newMemStore(), nil)
	task := InterpretFallback(rajaRequest)

	rr, trace, err := e.Research(context.Background(), &task, bandContext())
	if err != nil {
		t.Fatalf("Research: %v", err)
	}
	if !trace.Fallback {
		t.Fatal("expected fallback")
	}
	c := rr.CompensationProposal
	if c.BaseSalary != 1650000 || c.Equity != 150 || c.BonusTarget != 165000 || c.TotalCompensation != 1815000 {
		t.Errorf("proposal = %+v, want 1650000/150/165000/1815000", c)
	}
	want := []string{"2026-01-19", "2026-01-20", "2026-01-21"}
	got := []string(rr.InterviewSchedule.ProposedDates)
	if len(got) != 3 {
		t.Fatalf("dates = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("date[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if rr.CandidateVerification.Name != "Raja" {
		t.Errorf("verification name = %q", rr.CandidateVerification.Name)
	}
}

func TestResearch_FallbackWithoutBand(t *testing.T) {
	rr := ResearchFallback(&pipeline.CoordinatedContext{}, monday)
	if rr.CompensationProposal.BaseSalary != 1650000 || rr.CompensationProposal.Equity != 150 {
		t.Errorf("proposal = %+v, want default band midpoint", rr.CompensationProposal)
	}
	if rr.CandidateVerification.Email != "unknown@example.com" {
		t.Errorf("email = %q", rr.CandidateVerification.Email)
	}
}

func TestProposedDates_SkipsWeekends(t *testing.T) {
	friday := time.Date(2026, 1, 9, 12, 0, 0, 0, time.UTC)
	got := ProposedDates(friday, 3)
	want := []string{"2026-01-16", "2026-01-19", "2026-01-20"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("date[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestResearch_ParsedAndNegativeRejected(t *testing.T) {
	good := `{"candidate_verification": {"name": "Raja"},
		"compensation_proposal": {"base_salary": 1700000, "equity": 120, "bonus_target": 170000, "total_compensation": 1870000, "justification": "strong"},
		"interview_schedule": {"interview_type": "Technical", "proposed_dates": "2026-02-02", "recruiters": ["Asha"], "tech_interviewers": ["Vik"], "availability_window": "10-12"},
		"compliance_notes": "none"}`
	e, _ := newTestEngine(&replies{queue: []string{good}}, newMemStore(), nil)
	task := InterpretFallback("x")
	rr, trace, err := e.Research(context.Background(), &task, bandContext())
	if err != nil {
		t.Fatalf("Research: %v", err)
	}
	if trace.Fallback {
		t.Fatalf("unexpected fallback: %s", trace.Reason)
	}
	if rr.CompensationProposal.BaseSalary != 1700000 {
		t.Errorf("base = %v", rr.CompensationProposal.BaseSalary)
	}
	if len(rr.InterviewSchedule.ProposedDates) != 1 {
		t.Errorf("dates = %v", rr.InterviewSchedule.ProposedDates)
	}

	bad := strings.Replace(good, `"equity": 120`, `"equity": -5`, 1)
	e, _ = newTestEngine(&replies{queue: []string{bad}}, newMemStore(), nil)
	_, trace, err = e.Research(context.Background(), &task, bandContext())
	if err != nil {
		t.Fatalf("Research: %v", err)
	}
	if !trace.Fallback || !strings.Contains(trace.Reason, "negative") {
		t.Errorf("trace = %+v, want negative-value fallback", trace)
	}
}

func TestResearch_BaseOutsideBandFallsBack(t *testing.T) {
	reply := `{"candidate_verification": {"name": "Raja"},
		"compensation_proposal": {"base_salary": 9000000, "equity": 150, "bonus_target": 900000, "total_compensation": 9900000},
		"interview_schedule": {"proposed_dates": ["2026-02-02"]}}`
	e, _ := newTestEngine(&replies{queue: []string{reply}}, newMemStore(), nil)
	task := InterpretFallback(rajaRequest)

	rr, trace, err := e.Research(context.Background(), &task, bandContext())
	if err != nil {
		t.Fatalf("Research: %v", err)
	}
	if !trace.Fallback || !strings.Contains(trace.Reason, "outside band") {
		t.Errorf("trace = %+v, want out-of-band fallback", trace)
	}
	if rr.CompensationProposal.BaseSalary != 1650000 {
		t.Errorf("base = %v, want band midpoint", rr.CompensationProposal.BaseSalary)
	}

	cc := bandContext()
	cc.SalaryBands = nil
	e, _ = newTestEngine(&replies{queue: []string{reply}}, newMemStore(), nil)
	rr, trace, err = e.Research(context.Background(), &task, cc)
	if err != nil {
		t.Fatalf("Research without band: %v", err)
	}
	if trace.Fallback || rr.CompensationProposal.BaseSalary != 9000000 {
		t.Errorf("without a band the reply should be kept, got fallback=%v base=%v", trace.Fallback, rr.CompensationProposal.BaseSalary)
	}
}

func TestResearch_PromptCapsPolicies(t *testing.T) {
	cc := bandContext()
	long := strings.Repeat("x", 600)
	for i := 0; i < 5; i++ {
		cc.Policies = append(cc.Policies, pipeline.PolicyDoc{Content: long})
	}
	gen := &replies{}
	e, _ := newTestEngine(gen, newMemStore(), nil)
	task := InterpretFallback("x")
	if _, _, err := e.Research(context.Background(), &task, cc); err != nil {
		t.Fatalf("Research: %v", err)
	}
	if n := strings.Count(gen.calls[0].Prompt, strings.Repeat("x", 500)); n != 3 {
		t.Errorf("policy excerpts in prompt = %d, want 3", n)
	}
	if strings.Contains(gen.calls[0].Prompt, strings.Repeat("x", 501)) {
		t.Error("excerpt not truncated to 500 chars")
	}
}

func TestExecute_WritesRecords(t *testing.T) {
	store := newMemStore()
	gen := &replies{queue: []string{"Dear Raja, please join us."}}
	e, _ := newTestEngine(gen, store, nil)
	rr := ResearchFallback(bandContext(), monday)

	er, trace, err := e.Execute(context.Background(), &rr, bandContext())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if er.CandidateID != "CAND-1" {
		t.Errorf("CandidateID = %q", er.CandidateID)
	}
	if len(er.ScheduleIDs) != 1 || !strings.HasPrefix(er.ScheduleIDs[0], "INT-20260112-") {
		t.Errorf("ScheduleIDs = %v", er.ScheduleIDs)
	}
	if trace.Dropped != 2 {
		t.Errorf("Dropped = %d, want 2", trace.Dropped)
	}
	if er.ProposalID != 1 {
		t.Errorf("ProposalID = %d, want 1", er.ProposalID)
	}
	if er.EmailDraft != "Dear Raja, please join us." {
		t.Errorf("EmailDraft = %q", er.EmailDraft)
	}
	if er.ExecutionStatus != pipeline.ExecutionCompleted {
		t.Errorf("ExecutionStatus = %q", er.ExecutionStatus)
	}
	if er.Timestamp != "2026-01-12T09:00:00Z" {
		t.Errorf("Timestamp = %q", er.Timestamp)
	}

	if c := store.candidates["CAND-1"]; c.Status != CandidateInterviewScheduled {
		t.Errorf("candidate status = %q", c.Status)
	}
	if s := store.schedules[0]; s.ScheduledDate != "2026-01-19 14:00:00" || s.Recruiter != "Recruiter 1" || s.TechInterviewer != "Tech Lead 1, Senior Engineer 1" {
		t.Errorf("schedule = %+v", s)
	}
	if p := store.proposals[0]; p.BaseSalary != 1650000 || p.EquityAmount != 150 || p.Status != ProposalDraft {
		t.Errorf("proposal = %+v", p)
	}
}

func TestExecute_IdempotentCandidateUpsert(t *testing.T) {
	d, err := db.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	if err := d.Migrate(); err != nil {
		t.Fatal(err)
	}
	e, _ := newTestEngine(&replies{}, d, nil)
	rr := ResearchFallback(bandContext(), monday)

	for i := 0; i < 2; i++ {
		if _, _, err := e.Execute(context.Background(), &rr, bandContext()); err != nil {
			t.Fatalf("Execute #%d: %v", i+1, err)
		}
	}
	list, err := d.ListCandidates(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("candidate rows = %d, want 1", len(list))
	}
	props, err := d.ListCompensationProposals(context.Background(), "CAND-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(props) != 2 {
		t.Errorf("proposal rows = %d, want 2 (append-only)", len(props))
	}
}

func TestExecute_AbsorbsWriteFailures(t *testing.T) {
	store := newMemStore()
	store.failWrites = true
	e, buf := newTestEngine(&replies{}, store, nil)
	rr := ResearchFallback(bandContext(), monday)

	er, trace, err := e.Execute(context.Background(), &rr, bandContext())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(er.ScheduleIDs) != 0 {
		t.Errorf("ScheduleIDs = %v, want empty", er.ScheduleIDs)
	}
	if er.ProposalID != 0 {
		t.Errorf("ProposalID = %d, want 0", er.ProposalID)
	}
	if er.CandidateID != "CAND-1" {
		t.Errorf("CandidateID = %q, want generated id kept", er.CandidateID)
	}
	if len(trace.Notes) != 3 {
		t.Errorf("Notes = %v, want 3 write failures", trace.Notes)
	}
	if !strings.Contains(buf.String(), "disk full") {
		t.Error("write failures should be logged")
	}
	if !trace.Fallback || !strings.Contains(er.EmailDraft, "Dear Raja") {
		t.Errorf("expected template email, got %q", er.EmailDraft)
	}
}

func TestExecute_NoDates(t *testing.T) {
	store := newMemStore()
	e, _ := newTestEngine(&replies{}, store, nil)
	rr := ResearchFallback(bandContext(), monday)
	rr.InterviewSchedule.ProposedDates = nil

	er, _, err := e.Execute(context.Background(), &rr, bandContext())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(er.ScheduleIDs) != 0 || len(store.schedules) != 0 {
		t.Errorf("no dates should schedule nothing, got %v", er.ScheduleIDs)
	}
}

const approvedReview = `{"validation_status": "approved",
	"compliance_checks": {
		"content_language": {"status": "PASS", "details": "ok"},
		"compensation": {"status": "pass", "details": "in band"},
		"scheduling": {"status": "PASS", "details": "ok"},
		"data_integrity": {"status": "FAIL", "details": "missing resume"}
	},
	"issues_found": ["missing resume"]}`

func executedFixtures() (*pipeline.ExecutionResult, *pipeline.ResearchResult, *pipeline.CoordinatedContext) {
	rr := ResearchFallback(bandContext(), monday)
	er := &pipeline.ExecutionResult{CandidateID: "CAND-1", ScheduleIDs: []string{"INT-1"}, ProposalID: 1, ExecutionStatus: pipeline.ExecutionCompleted}
	return er, &rr, bandContext()
}

func TestReview_Parsed(t *testing.T) {
	store := newMemStore()
	gen := &replies{queue: []string{approvedReview}}
	e, _ := newTestEngine(gen, store, nil)
	er, rr, cc := executedFixtures()

	r, trace, err := e.Review(context.Background(), er, rr, cc)
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if trace.Fallback {
		t.Fatalf("unexpected fallback: %s", trace.Reason)
	}
	if r.ValidationStatus != pipeline.StatusApproved {
		t.Errorf("ValidationStatus = %q", r.ValidationStatus)
	}
	if r.ComplianceChecks["compensation"].Status != pipeline.CheckPass {
		t.Errorf("compensation status not normalised: %q", r.ComplianceChecks["compensation"].Status)
	}
	if len(store.compliance) != 4 {
		t.Fatalf("compliance rows = %d, want 4", len(store.compliance))
	}
	for i, name := range pipeline.ComplianceCheckNames {
		if store.compliance[i].CheckType != name || store.compliance[i].CheckedBy != CheckedByReviewer {
			t.Errorf("row %d = %+v", i, store.compliance[i])
		}
	}
	if gen.calls[0].Temperature != 0.3 {
		t.Errorf("temperature = %v, want 0.3", gen.calls[0].Temperature)
	}
}

func TestReview_InvalidEnumsFallBack(t *testing.T) {
	tests := []string{
		strings.Replace(approvedReview, `"approved"`, `"MAYBE"`, 1),
		strings.Replace(approvedReview, `"status": "FAIL"`, `"status": "WARN"`, 1),
		`{"validation_status": "REJECTED", "compliance_checks": {"content_language": {"status": "PASS"}}}`,
		"not json",
	}
	for _, reply := range tests {
		store := newMemStore()
		e, buf := newTestEngine(&replies{queue: []string{reply}}, store, nil)
		er, rr, cc := executedFixtures()

		r, trace, err := e.Review(context.Background(), er, rr, cc)
		if err != nil {
			t.Fatalf("Review: %v", err)
		}
		if !trace.Fallback {
			t.Errorf("reply %q: expected fallback", reply)
		}
		if r.ValidationStatus != pipeline.StatusApproved {
			t.Errorf("ValidationStatus = %q, want default APPROVED", r.ValidationStatus)
		}
		if !strings.Contains(buf.String(), "WARNING") {
			t.Error("fallback verdict should be logged loudly")
		}
		if len(store.compliance) != 4 || store.compliance[0].CheckedBy != CheckedByFallback {
			t.Errorf("compliance rows = %+v", store.compliance)
		}
	}
}

func TestReview_ConfigurableFallback(t *testing.T) {
	e, _ := newTestEngine(&replies{}, newMemStore(), nil)
	if err := e.SetReviewFallback("MAYBE"); err == nil {
		t.Error("expected error for invalid fallback status")
	}
	if err := e.SetReviewFallback(pipeline.StatusRejected); err != nil {
		t.Fatal(err)
	}
	er, rr, cc := executedFixtures()
	r, _, err := e.Review(context.Background(), er, rr, cc)
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if r.ValidationStatus != pipeline.StatusRejected {
		t.Errorf("ValidationStatus = %q, want REJECTED", r.ValidationStatus)
	}
	for name, c := range r.ComplianceChecks {
		if c.Status != pipeline.CheckFail {
			t.Errorf("%s = %q, want FAIL", name, c.Status)
		}
	}
}

func TestReview_ExtraChecksAreNotLogged(t *testing.T) {
	reply := strings.Replace(approvedReview, `"data_integrity"`, `"tone": {"status": "PASS", "details": "friendly"},
		"data_integrity"`, 1)
	store := newMemStore()
	e, _ := newTestEngine(&replies{queue: []string{reply}}, store, nil)
	er, rr, cc := executedFixtures()

	r, trace, err := e.Review(context.Background(), er, rr, cc)
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if trace.Fallback {
		t.Fatalf("unexpected fallback: %s", trace.Reason)
	}
	if _, ok := r.ComplianceChecks["tone"]; !ok {
		t.Error("extra check should stay in the verdict")
	}
	if len(store.compliance) != len(pipeline.ComplianceCheckNames) {
		t.Fatalf("compliance rows = %d, want %d", len(store.compliance), len(pipeline.ComplianceCheckNames))
	}
	for _, row := range store.compliance {
		if row.CheckType == "tone" {
			t.Error("extra check was logged")
		}
	}
	if len(trace.Notes) != 1 || !strings.Contains(trace.Notes[0], "tone") {
		t.Errorf("Notes = %v, want the extra check noted", trace.Notes)
	}
}

func TestReview_AbsorbsWriteFailures(t *testing.T) {
	store := newMemStore()
	store.failWrites = true
	e, _ := newTestEngine(&replies{queue: []string{approvedReview}}, store, nil)
	er, rr, cc := executedFixtures()

	_, trace, err := e.Review(context.Background(), er, rr, cc)
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if len(trace.Notes) != 1 {
		t.Errorf("Notes = %v", trace.Notes)
	}
}

func TestConfigure(t *testing.T) {
	gen := &replies{}
	e, _ := newTestEngine(gen, newMemStore(), nil)
	if err := e.Configure("bogus", Settings{}); err == nil {
		t.Error("expected error for unknown stage")
	}
	if err := e.Configure(Interpret, Settings{Temperature: 0.1, Model: "small", Template: "Custom: {{request}}"}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := e.Interpret(context.Background(), "hi"); err != nil {
		t.Fatal(err)
	}
	if gen.calls[0].Prompt != "Custom: hi" || gen.calls[0].Model != "small" || gen.calls[0].Temperature != 0.1 {
		t.Errorf("request = %+v", gen.calls[0])
	}
}
