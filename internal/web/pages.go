package web

import (
	"encoding/json"
	"html/template"
	"log"
	"net/http"

	"github.com/lucasnoah/hirefactory/internal/pipeline"
)

// ---- view models ----

type DashboardData struct {
	Runs  []RunListItem
	Stats *Stats
}

type RunPageData struct {
	Report *pipeline.Report
	Output string
}

type CandidatePageData struct {
	Detail *CandidateDetail
}

func (s *Server) render(w http.ResponseWriter, tmpl *template.Template, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		log.Printf("render: %v", err)
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	runs, err := s.recentRuns(20)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	st, err := s.stats("")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.render(w, s.dashboardTmpl, DashboardData{Runs: runs, Stats: st})
}

func (s *Server) handleRunPage(w http.ResponseWriter, r *http.Request) {
	rep, status, err := s.getRun(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}
	out, _ := json.MarshalIndent(rep.Output, "", "  ")
	s.render(w, s.runTmpl, RunPageData{Report: rep, Output: string(out)})
}

func (s *Server) handleCandidatePage(w http.ResponseWriter, r *http.Request) {
	d, err := s.candidateDetail(r, r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if d == nil {
		http.NotFound(w, r)
		return
	}
	s.render(w, s.candidateTmpl, CandidatePageData{Detail: d})
}
