// Package api exposes the HTTP interface for the scraper service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sparkmate/dealscraper/internal/catalog"
	"github.com/sparkmate/dealscraper/internal/metrics"
)

const requestTimeout = 15 * time.Minute

// Orchestrator runs a single supplier scrape.
type Orchestrator interface {
	Run(ctx context.Context, slug string, mode catalog.RunMode) catalog.RunReport
}

// BatchRunner runs every registered supplier in sequence.
type BatchRunner interface {
	Run(ctx context.Context) catalog.BatchSummary
}

// Server wires HTTP handlers to the orchestrator and job store.
type Server struct {
	router chi.Router
	store  catalog.Store
	orch   Orchestrator
	batch  BatchRunner
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(store catalog.Store, orch Orchestrator, batch BatchRunner, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:  store,
		orch:   orch,
		batch:  batch,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(requestTimeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/runs", s.submitRun)
		r.Post("/batch", s.submitBatch)
		r.Get("/jobs/{job_id}", s.getJob)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type runRequest struct {
	Supplier string `json:"supplier"`
	Mode     string `json:"mode"`
}

func (s *Server) submitRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Supplier == "" {
		writeError(w, http.StatusBadRequest, "supplier required")
		return
	}
	mode := catalog.RunMode(req.Mode)
	if req.Mode == "" {
		mode = catalog.ModeFullCatalog
	}
	if !mode.Valid() {
		writeError(w, http.StatusBadRequest, "mode must be full_catalog or deals_only")
		return
	}

	report := s.orch.Run(r.Context(), req.Supplier, mode)
	writeJSON(w, runStatus(report), report)
}

func (s *Server) submitBatch(w http.ResponseWriter, r *http.Request) {
	summary := s.batch.Run(r.Context())
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.store.GetJob(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job": job})
}

// runStatus maps a run report to a response code. A report for a slug
// nobody registered is the caller's mistake, not a scrape failure.
func runStatus(report catalog.RunReport) int {
	if report.Success {
		return http.StatusOK
	}
	for _, msg := range report.Errors {
		if strings.HasPrefix(msg, "Unknown supplier:") {
			return http.StatusNotFound
		}
	}
	return http.StatusBadGateway
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("panic", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
