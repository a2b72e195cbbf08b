package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/domafordarwin/readingpro-docgen/internal/chart"
	"github.com/domafordarwin/readingpro-docgen/internal/config"
	"github.com/domafordarwin/readingpro-docgen/internal/converter"
	"github.com/domafordarwin/readingpro-docgen/internal/hwpx"
	"github.com/domafordarwin/readingpro-docgen/internal/pipeline"
)

// Server is the HTTP API server for report generation.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	converter    *converter.Client
	charts       *chart.Generator
	injector     *hwpx.Injector
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, conv *converter.Client, charts *chart.Generator, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		converter:    conv,
		charts:       charts,
		injector:     hwpx.NewInjector(log),
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Get("/health/converter", s.handleConverterHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.DocgenAPIKey, s.log))

		r.Post("/api/reports", s.handleCreateReport)
		r.Get("/api/reports/{jobID}/status", s.handleReportStatus)
		r.Get("/api/reports/{jobID}/download", s.handleReportDownload)

		r.Post("/api/charts/radar", s.handleRadarChart)
		r.Post("/api/hwpx/inject", s.handleInject)

		r.Get("/api/stats/conversions", s.handleConversionStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
