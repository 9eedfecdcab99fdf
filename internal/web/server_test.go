package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lucasnoah/hirefactory/internal/db"
	"github.com/lucasnoah/hirefactory/internal/orchestrator"
	"github.com/lucasnoah/hirefactory/internal/pipeline"
)

func testDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := d.Migrate(); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

// stubRunner returns a canned report, or err when set.
type stubRunner struct {
	archive *pipeline.Archive
	err     error
	got     string
}

func (s *stubRunner) Run(ctx context.Context, raw string) (*pipeline.Report, error) {
	s.got = raw
	if s.err != nil {
		return nil, s.err
	}
	rep := sampleReport("run-new", raw)
	if s.archive != nil {
		s.archive.Save(rep)
	}
	return rep, nil
}

type stubPolicies struct{}

func (stubPolicies) Query(query, policyType string) []pipeline.PolicyDoc {
	return []pipeline.PolicyDoc{{Content: "matched " + query, Metadata: map[string]string{"policy_type": policyType}}}
}

func sampleReport(id, raw string) *pipeline.Report {
	return &pipeline.Report{
		RunID:   id,
		Request: raw,
		Output: &pipeline.FinalOutput{
			Candidate: pipeline.ExecutionResult{CandidateID: "CAND-1", ProposalID: 3, ExecutionStatus: pipeline.ExecutionCompleted},
			Review:    pipeline.ReviewResult{ValidationStatus: pipeline.StatusApproved},
		},
		AuditLog:   []string{"[INTERPRET] Interpreted task: hire", "[REVIEW] Validation: APPROVED"},
		Stages:     []pipeline.StageSummary{{Stage: "interpret"}, {Stage: "review", Fallback: true, Reason: "empty reply"}},
		StartedAt:  "2026-01-12T09:00:00Z",
		FinishedAt: "2026-01-12T09:00:05Z",
	}
}

func newTestServer(t *testing.T, runner Runner) (*Server, *db.DB, *pipeline.Archive) {
	t.Helper()
	d := testDB(t)
	archive := pipeline.NewArchive(t.TempDir())
	if sr, ok := runner.(*stubRunner); ok {
		sr.archive = archive
	}
	return NewServer(runner, d, archive, stubPolicies{}, ":0"), d, archive
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestCreateRun(t *testing.T) {
	runner := &stubRunner{}
	s, _, _ := newTestServer(t, runner)

	rec := do(t, s, http.MethodPost, "/api/runs", `{"request": "hire Raja"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if runner.got != "hire Raja" {
		t.Errorf("runner got %q", runner.got)
	}
	var rep pipeline.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatal(err)
	}
	if rep.RunID != "run-new" || rep.Output.Review.ValidationStatus != pipeline.StatusApproved {
		t.Errorf("report = %+v", rep)
	}
}

func TestCreateRun_BadRequests(t *testing.T) {
	s, _, _ := newTestServer(t, &stubRunner{})
	for _, body := range []string{"", "{", `{"request": "   "}`} {
		rec := do(t, s, http.MethodPost, "/api/runs", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestCreateRun_StageError(t *testing.T) {
	runner := &stubRunner{err: &orchestrator.StageError{
		RunID: "run-x", Stage: "coordinate", Err: errors.New("db down"), AuditLog: []string{"[INTERPRET] ok"},
	}}
	s, _, _ := newTestServer(t, runner)

	rec := do(t, s, http.MethodPost, "/api/runs", `{"request": "x"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
	var body RunError
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Stage != "coordinate" || body.RunID != "run-x" || len(body.AuditLog) != 1 {
		t.Errorf("body = %+v", body)
	}
	if !strings.Contains(body.Error, "db down") {
		t.Errorf("error = %q", body.Error)
	}
}

func TestCreateRun_NoRunner(t *testing.T) {
	s := NewServer(nil, testDB(t), nil, nil, ":0")
	rec := do(t, s, http.MethodPost, "/api/runs", `{"request": "x"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestListAndGetRuns(t *testing.T) {
	s, _, archive := newTestServer(t, &stubRunner{})
	old := sampleReport("run-a", "first")
	newer := sampleReport("run-b", "second")
	newer.StartedAt = "2026-01-13T09:00:00Z"
	for _, r := range []*pipeline.Report{old, newer} {
		if err := archive.Save(r); err != nil {
			t.Fatal(err)
		}
	}

	rec := do(t, s, http.MethodGet, "/api/runs", "")
	var items []RunListItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[0].RunID != "run-b" {
		t.Fatalf("items = %+v, want newest first", items)
	}
	if items[1].CandidateID != "CAND-1" || items[1].DurationMS != 5000 {
		t.Errorf("item = %+v", items[1])
	}
	if len(items[1].Fallbacks) != 1 || items[1].Fallbacks[0] != "review" {
		t.Errorf("fallbacks = %v", items[1].Fallbacks)
	}

	rec = do(t, s, http.MethodGet, "/api/runs?limit=1", "")
	items = nil
	json.Unmarshal(rec.Body.Bytes(), &items)
	if len(items) != 1 {
		t.Errorf("limit=1 returned %d items", len(items))
	}

	rec = do(t, s, http.MethodGet, "/api/runs/run-a", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"request": "first"`) {
		t.Errorf("get run: %d %s", rec.Code, rec.Body)
	}

	rec = do(t, s, http.MethodGet, "/api/runs/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing run status = %d, want 404", rec.Code)
	}
}

func TestGetCandidate(t *testing.T) {
	s, d, _ := newTestServer(t, &stubRunner{})
	ctx := context.Background()
	if err := d.UpsertCandidate(ctx, db.Candidate{CandidateID: "CAND-1", Name: "Raja", Email: "raja@example.com", Status: "interview_scheduled"}); err != nil {
		t.Fatal(err)
	}
	if _, err := d.InsertCompensationProposal(ctx, db.CompensationProposal{CandidateID: "CAND-1", BaseSalary: 1650000, Status: "draft"}); err != nil {
		t.Fatal(err)
	}
	if err := d.InsertComplianceLog(ctx, db.ComplianceLog{CandidateID: "CAND-1", CheckType: "compensation", Result: "PASS", CheckedBy: "REVIEWER_AGENT"}); err != nil {
		t.Fatal(err)
	}

	rec := do(t, s, http.MethodGet, "/api/candidates/CAND-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var detail CandidateDetail
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatal(err)
	}
	if detail.Candidate.Name != "Raja" || len(detail.Proposals) != 1 || len(detail.Compliance) != 1 {
		t.Errorf("detail = %+v", detail)
	}

	if rec := do(t, s, http.MethodGet, "/api/candidates/NOPE", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing candidate status = %d", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/candidates/CAND-1", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "raja@example.com") {
		t.Errorf("candidate page: %d", rec.Code)
	}
}

func TestPolicies(t *testing.T) {
	s, d, _ := newTestServer(t, &stubRunner{})
	if _, err := d.Seed(context.Background()); err != nil {
		t.Fatal(err)
	}

	rec := do(t, s, http.MethodGet, "/api/policies", "")
	var list []db.Policy
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) == 0 {
		t.Error("expected seeded policies")
	}

	rec = do(t, s, http.MethodGet, "/api/policies?q=equity&type=compensation", "")
	var docs []pipeline.PolicyDoc
	if err := json.Unmarshal(rec.Body.Bytes(), &docs); err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].Content != "matched equity" || docs[0].Metadata["policy_type"] != "compensation" {
		t.Errorf("docs = %+v", docs)
	}
}

func TestStats(t *testing.T) {
	s, d, _ := newTestServer(t, &stubRunner{})
	ctx := context.Background()
	d.LogPipelineEvent(ctx, "r1", "interpret", db.EventFallback, "empty reply")
	d.LogPipelineEvent(ctx, "r1", "coordinate", db.EventCompleted, "")

	rec := do(t, s, http.MethodGet, "/api/stats", "")
	var st Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st.Runs.Runs != 1 || len(st.Stages) != 2 || st.Stages[0].FallbackPct != 100 {
		t.Errorf("stats = %+v", st)
	}
}

func TestDashboardAndRunPage(t *testing.T) {
	s, _, archive := newTestServer(t, &stubRunner{})
	if err := archive.Save(sampleReport("run-a", "hire <b>Raja</b>")); err != nil {
		t.Fatal(err)
	}

	rec := do(t, s, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `href="/runs/run-a"`) {
		t.Error("dashboard does not link the run")
	}
	if strings.Contains(body, "<b>Raja</b>") {
		t.Error("request text not escaped")
	}

	rec = do(t, s, http.MethodGet, "/runs/run-a", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "[REVIEW] Validation: APPROVED") {
		t.Errorf("run page: %d", rec.Code)
	}

	if rec := do(t, s, http.MethodGet, "/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	s, _, _ := newTestServer(t, &stubRunner{})
	if rec := do(t, s, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestSwaggerDoc(t *testing.T) {
	s, _, _ := newTestServer(t, &stubRunner{})
	rec := do(t, s, http.MethodGet, "/swagger/doc.json", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var doc struct {
		Info  struct{ Title string }                `json:"info"`
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("doc.json is not JSON: %v", err)
	}
	if doc.Info.Title != "hirefactory API" {
		t.Errorf("title = %q", doc.Info.Title)
	}
	for pattern := range s.apiRoutes() {
		method, path, _ := strings.Cut(pattern, " ")
		ops, ok := doc.Paths[path]
		if !ok {
			t.Errorf("doc.json missing path %s", path)
			continue
		}
		if _, ok := ops[strings.ToLower(method)]; !ok {
			t.Errorf("doc.json missing %s", pattern)
		}
	}
}
