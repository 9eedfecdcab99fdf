package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/lucasnoah/hirefactory/internal/analytics"
	"github.com/lucasnoah/hirefactory/internal/db"
	"github.com/lucasnoah/hirefactory/internal/orchestrator"
	"github.com/lucasnoah/hirefactory/internal/pipeline"
)

const maxRequestBytes = 64 << 10

// RunRequest is the body of POST /api/runs.
type RunRequest struct {
	Request string `json:"request"`
}

// RunError is returned when a stage aborts the run.
type RunError struct {
	Error    string   `json:"error"`
	RunID    string   `json:"run_id,omitempty"`
	Stage    string   `json:"stage,omitempty"`
	AuditLog []string `json:"audit_log,omitempty"`
}

// RunListItem summarises one archived run.
type RunListItem struct {
	RunID            string   `json:"run_id"`
	Request          string   `json:"request"`
	CandidateID      string   `json:"candidate_id"`
	ValidationStatus string   `json:"validation_status"`
	Fallbacks        []string `json:"fallbacks"`
	StartedAt        string   `json:"started_at"`
	DurationMS       int64    `json:"duration_ms"`
}

// CandidateDetail is everything recorded for one candidate.
type CandidateDetail struct {
	Candidate  *db.Candidate             `json:"candidate"`
	Interviews []db.InterviewSchedule    `json:"interviews"`
	Proposals  []db.CompensationProposal `json:"proposals"`
	Compliance []db.ComplianceLog        `json:"compliance"`
}

// Stats bundles the analytics summaries.
type Stats struct {
	Runs       analytics.RunCount            `json:"runs"`
	Stages     []analytics.StageFallbackRate `json:"stages"`
	Compliance []analytics.ComplianceSummary `json:"compliance"`
	Proposals  analytics.ProposalStats       `json:"proposals"`
	Funnel     []analytics.FunnelStage       `json:"funnel"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, RunError{Error: msg})
}

// handleCreateRun runs the pipeline for one request.
// @Summary Run the pipeline
// @Description Runs Interpret, Coordinate, Research, Execute and Review for one free-text request
// @Tags runs
// @Accept json
// @Produce json
// @Param request body RunRequest true "Recruitment request"
// @Success 201 {object} pipeline.Report
// @Failure 400 {object} RunError
// @Failure 502 {object} RunError "A stage aborted the run"
// @Router /api/runs [post]
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "runs are disabled on this server")
		return
	}
	var req RunRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Request) == "" {
		writeError(w, http.StatusBadRequest, "request is required")
		return
	}

	rep, err := s.runner.Run(r.Context(), req.Request)
	if err != nil {
		body := RunError{Error: err.Error()}
		var se *orchestrator.StageError
		if errors.As(err, &se) {
			body.RunID, body.Stage, body.AuditLog = se.RunID, se.Stage, se.AuditLog
		}
		writeJSON(w, http.StatusBadGateway, body)
		return
	}
	writeJSON(w, http.StatusCreated, rep)
}

func listItem(rep pipeline.Report) RunListItem {
	item := RunListItem{
		RunID:      rep.RunID,
		Request:    rep.Request,
		Fallbacks:  rep.Fallbacks(),
		StartedAt:  rep.StartedAt,
		DurationMS: rep.Duration().Milliseconds(),
	}
	if item.Fallbacks == nil {
		item.Fallbacks = []string{}
	}
	if out := rep.Output; out != nil {
		item.CandidateID = out.Candidate.CandidateID
		item.ValidationStatus = out.Review.ValidationStatus
	}
	return item
}

// recentRuns returns archived runs newest first, capped at limit when positive.
func (s *Server) recentRuns(limit int) ([]RunListItem, error) {
	items := []RunListItem{}
	if s.archive == nil {
		return items, nil
	}
	reports, err := s.archive.List()
	if err != nil {
		return nil, err
	}
	for i := len(reports) - 1; i >= 0; i-- {
		items = append(items, listItem(reports[i]))
		if limit > 0 && len(items) == limit {
			break
		}
	}
	return items, nil
}

func queryLimit(r *http.Request, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		return v
	}
	return def
}

// @Summary List archived runs
// @Tags runs
// @Produce json
// @Param limit query int false "Maximum runs, newest first"
// @Success 200 {array} RunListItem
// @Router /api/runs [get]
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	items, err := s.recentRuns(queryLimit(r, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) getRun(id string) (*pipeline.Report, int, error) {
	if s.archive == nil {
		return nil, http.StatusNotFound, errors.New("no run archive configured")
	}
	rep, err := s.archive.Get(id)
	if err != nil {
		if errors.Is(err, pipeline.ErrRunNotFound) {
			return nil, http.StatusNotFound, errors.New("run not found")
		}
		return nil, http.StatusBadRequest, err
	}
	return rep, http.StatusOK, nil
}

// @Summary Get an archived run
// @Tags runs
// @Produce json
// @Param id path string true "Run id"
// @Success 200 {object} pipeline.Report
// @Failure 404 {object} RunError
// @Router /api/runs/{id} [get]
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	rep, status, err := s.getRun(r.PathValue("id"))
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// @Summary List candidates
// @Tags candidates
// @Produce json
// @Param limit query int false "Maximum candidates"
// @Success 200 {array} db.Candidate
// @Router /api/candidates [get]
func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	list, err := s.db.ListCandidates(r.Context(), queryLimit(r, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []db.Candidate{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) candidateDetail(r *http.Request, id string) (*CandidateDetail, error) {
	ctx := r.Context()
	cand, err := s.db.GetCandidate(ctx, id)
	if err != nil || cand == nil {
		return nil, err
	}
	d := &CandidateDetail{Candidate: cand}
	if d.Interviews, err = s.db.ListInterviewSchedules(ctx, id); err != nil {
		return nil, err
	}
	if d.Proposals, err = s.db.ListCompensationProposals(ctx, id); err != nil {
		return nil, err
	}
	if d.Compliance, err = s.db.ListComplianceLogs(ctx, id); err != nil {
		return nil, err
	}
	return d, nil
}

// @Summary Get a candidate with interviews, proposals and compliance results
// @Tags candidates
// @Produce json
// @Param id path string true "Candidate id"
// @Success 200 {object} CandidateDetail
// @Failure 404 {object} RunError
// @Router /api/candidates/{id} [get]
func (s *Server) handleGetCandidate(w http.ResponseWriter, r *http.Request) {
	d, err := s.candidateDetail(r, r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if d == nil {
		writeError(w, http.StatusNotFound, "candidate not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handlePolicies lists stored policies, or ranks them when q is given.
// @Summary List or search policies
// @Tags policies
// @Produce json
// @Param q query string false "Keyword query"
// @Param type query string false "Policy type filter"
// @Success 200 {array} pipeline.PolicyDoc "Ranked matches when q is set, otherwise the stored policy rows"
// @Router /api/policies [get]
func (s *Server) handlePolicies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q != "" && s.policies != nil {
		docs := s.policies.Query(q, r.URL.Query().Get("type"))
		if docs == nil {
			docs = []pipeline.PolicyDoc{}
		}
		writeJSON(w, http.StatusOK, docs)
		return
	}
	list, err := s.db.ListPolicies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []db.Policy{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) stats(since string) (*Stats, error) {
	var st Stats
	var err error
	if st.Runs, err = analytics.QueryRunCount(s.db, since); err != nil {
		return nil, err
	}
	if st.Stages, err = analytics.QueryStageFallbackRates(s.db, since); err != nil {
		return nil, err
	}
	if st.Compliance, err = analytics.QueryComplianceSummary(s.db, since); err != nil {
		return nil, err
	}
	if st.Proposals, err = analytics.QueryProposalStats(s.db, since); err != nil {
		return nil, err
	}
	if st.Funnel, err = analytics.QueryCandidateFunnel(s.db); err != nil {
		return nil, err
	}
	return &st, nil
}

// @Summary Analytics summaries
// @Tags stats
// @Produce json
// @Param since query string false "Only rows on or after this date (YYYY-MM-DD)"
// @Success 200 {object} Stats
// @Router /api/stats [get]
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.stats(r.URL.Query().Get("since"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}
