// Package web serves the JSON API and the HTML dashboard for recruitment runs.
//
// @title       hirefactory API
// @version     1.0
// @description Runs recruitment requests through the five-stage pipeline and exposes the record store.
// @BasePath    /
package web

//go:generate swag init -g server.go -o docs --outputTypes go

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strings"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/lucasnoah/hirefactory/internal/db"
	"github.com/lucasnoah/hirefactory/internal/pipeline"
	_ "github.com/lucasnoah/hirefactory/internal/web/docs"
)

//go:embed templates
var templateFS embed.FS

var funcMap = template.FuncMap{
	"badgeClass": func(status string) string {
		return "badge badge-" + strings.ToLower(strings.ReplaceAll(status, "_", "-"))
	},
	"relTime": relTime,
	"money": func(v float64) string {
		return fmt.Sprintf("%.0f", v)
	},
}

// Runner executes one recruitment request.
type Runner interface {
	Run(ctx context.Context, raw string) (*pipeline.Report, error)
}

// PolicySearcher ranks policy documents for a query.
type PolicySearcher interface {
	Query(query, policyType string) []pipeline.PolicyDoc
}

// Server is the web UI and API server.
type Server struct {
	runner   Runner
	db       *db.DB
	archive  *pipeline.Archive
	policies PolicySearcher
	addr     string

	dashboardTmpl *template.Template
	runTmpl       *template.Template
	candidateTmpl *template.Template
}

// NewServer creates a Server with parsed templates. runner may be nil, in
// which case POST /api/runs answers 503.
func NewServer(runner Runner, database *db.DB, archive *pipeline.Archive, policies PolicySearcher, addr string) *Server {
	return &Server{
		runner:        runner,
		db:            database,
		archive:       archive,
		policies:      policies,
		addr:          addr,
		dashboardTmpl: mustParseTmpl("base.html", "dashboard.html"),
		runTmpl:       mustParseTmpl("base.html", "run.html"),
		candidateTmpl: mustParseTmpl("base.html", "candidate.html"),
	}
}

func mustParseTmpl(names ...string) *template.Template {
	patterns := make([]string, len(names))
	for i, n := range names {
		patterns[i] = "templates/" + n
	}
	return template.Must(template.New("").Funcs(funcMap).ParseFS(templateFS, patterns...))
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /runs/{id}", s.handleRunPage)
	mux.HandleFunc("GET /candidates/{id}", s.handleCandidatePage)

	for pattern, h := range s.apiRoutes() {
		mux.HandleFunc(pattern, h)
	}
	mux.Handle("GET /swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

// apiRoutes maps each JSON API pattern to its handler. Every entry carries a
// @Router annotation, and docs/ is regenerated from those with go generate.
func (s *Server) apiRoutes() map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		"POST /api/runs":           s.handleCreateRun,
		"GET /api/runs":            s.handleListRuns,
		"GET /api/runs/{id}":       s.handleGetRun,
		"GET /api/candidates":      s.handleListCandidates,
		"GET /api/candidates/{id}": s.handleGetCandidate,
		"GET /api/policies":        s.handlePolicies,
		"GET /api/stats":           s.handleStats,
	}
}

// Start listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HireFactory UI: http://localhost%s", displayAddr(s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return addr
	}
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		return addr[i:]
	}
	return addr
}

func relTime(ts string) string {
	var t time.Time
	for _, f := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(f, ts); err == nil {
			t = parsed
			break
		}
	}
	if t.IsZero() {
		return ts
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
