// Package api provides the local HTTP API of the trainer. The single-page
// client talks to it for profile, stats, settings, progress and play
// sessions.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/knightly-chess/knightly/internal/app/engagement"
	"github.com/knightly-chess/knightly/internal/app/progress"
	"github.com/knightly-chess/knightly/internal/domain"
	"github.com/knightly-chess/knightly/internal/health"
)

// Version is reported by /api/version.
const Version = "0.1.0"

// Services are the collaborators behind the routes.
type Services struct {
	Store        *progress.Store
	Puzzles      domain.PuzzleSource
	Achievements *engagement.AchievementService
	Health       *health.Checker // optional
	Sessions     *Hub
	Log          *zap.Logger
}

// Server is the Knightly HTTP API server.
type Server struct {
	svc            Services
	log            *zap.Logger
	metricsEnabled bool
	corsOrigins    []string
}

// NewServer creates a new API server.
func NewServer(svc Services) *Server {
	log := svc.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{svc: svc, log: log, corsOrigins: []string{"*"}}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetCORSOrigins sets the allowed origins. The first one is echoed.
func (s *Server) SetCORSOrigins(origins []string) {
	if len(origins) > 0 {
		s.corsOrigins = origins
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.corsMiddleware)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"version": Version})
		})

		r.Get("/profile", s.handleGetProfile)
		r.Patch("/profile", s.handlePatchProfile)
		r.Get("/stats", s.handleGetStats)
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)
		r.Get("/progress", s.handleListProgress)
		r.Get("/progress/{id}", s.handleGetProgress)
		r.Get("/achievements", s.handleAchievements)
		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)
		r.Post("/clear", s.handleClear)

		r.Get("/puzzles", s.handleListPuzzles)
		r.Get("/puzzles/{id}", s.handleGetPuzzle)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Post("/moves", s.handleSubmitMove)
				r.Get("/hint", s.handleHint)
				r.Post("/next", s.handleNext)
				r.Post("/reveal", s.handleReveal)
				r.Post("/pause", s.handlePause)
				r.Post("/resume", s.handleResume)
				r.Get("/analysis", s.handleAnalysis)
			})
		})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.svc.Health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	status, code := "ok", http.StatusOK
	if !s.svc.Health.IsHealthy() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status": status,
		"checks": s.svc.Health.Statuses(),
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeErr maps a domain error onto a status code.
func (s *Server) writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrPuzzleNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrMissingField), errors.Is(err, domain.ErrInvalidSetting),
		errors.Is(err, domain.ErrIllegalMove), errors.Is(err, domain.ErrInvalidPosition):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionEnded), errors.Is(err, domain.ErrDailyCompleted),
		errors.Is(err, domain.ErrNoActivePuzzle), errors.Is(err, domain.ErrNotSupported):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrNoPuzzles):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	writeError(w, status, err.Error())
}

// decodeBody decodes a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// corsMiddleware adds CORS headers for the local client.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigins[0])
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
