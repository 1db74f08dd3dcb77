package dashboard

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"loggedin/internal/logging"
	"loggedin/internal/report"
	"loggedin/internal/store"
)

//go:embed templates/*
var templatesFS embed.FS

// Server represents the dashboard HTTP server
type Server struct {
	store     ReportStore
	templates *template.Template
	port      string
}

// NewServer creates a new dashboard server
func NewServer(rs ReportStore, port string) (*Server, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &Server{
		store:     rs,
		templates: tmpl,
		port:      port,
	}, nil
}

// Handler returns the routed mux
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Web UI
	mux.HandleFunc("GET /{$}", s.handleDashboard)

	// API endpoints
	mux.HandleFunc("GET /api/v1/report", s.handleAPIReport)
	mux.HandleFunc("GET /api/v1/runs", s.handleAPIRuns)
	mux.HandleFunc("GET /api/v1/top-failed", s.handleAPITopFailed)

	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// Start serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	log := logging.For("dashboard")

	addr := s.port
	if addr != "" && addr[0] != ':' {
		addr = ":" + addr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("starting dashboard")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleDashboard renders the main dashboard page
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	latest, err := s.store.LatestReport(r.Context())
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	runs, _ := s.store.ListRuns(r.Context(), 10)
	top, _ := s.store.TopFailedUsers(r.Context(), 5)

	data := map[string]interface{}{
		"Report":    latest,
		"Stats":     statsOf(latest),
		"Runs":      runs,
		"TopFailed": top,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		log := logging.For("dashboard")
		log.Error().Err(err).Msg("failed to render dashboard")
	}
}

// handleAPIReport returns one archived report, the latest unless ?run= is given
func (s *Server) handleAPIReport(w http.ResponseWriter, r *http.Request) {
	var (
		rep *report.Report
		err error
	)
	if id := r.URL.Query().Get("run"); id != "" {
		rep, err = s.store.LoadReport(r.Context(), id)
	} else {
		rep, err = s.store.LatestReport(r.Context())
	}
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, rep)
}

// handleAPIRuns returns the run history
func (s *Server) handleAPIRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context(), limitParam(r, 20))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, runs)
}

// handleAPITopFailed ranks users by failed logins across runs
func (s *Server) handleAPITopFailed(w http.ResponseWriter, r *http.Request) {
	top, err := s.store.TopFailedUsers(r.Context(), limitParam(r, 10))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, top)
}

func limitParam(r *http.Request, def int) int {
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		return l
	}
	return def
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
