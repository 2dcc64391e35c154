// Package server exposes the prediction and statistics HTTP API.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/sandovabarbora/golemio-public-transportation/internal/monitoring"
	"github.com/sandovabarbora/golemio-public-transportation/internal/predictor"
	"github.com/sandovabarbora/golemio-public-transportation/internal/repository"
)

// Server wires the history repository, the current prediction session and
// the HTTP handlers. The session is an immutable snapshot; Refresh swaps in
// a new one atomically.
type Server struct {
	repo    repository.HistoryRepository
	stats   StatsRepository
	cfg     predictor.Config
	metrics *monitoring.Collector

	minReliability float64

	mu      sync.RWMutex
	session *predictor.Session
}

// NewServer builds a server over the given repository. stats may be nil
// when no hourly statistics store is available (Postgres-only deployments).
func NewServer(repo repository.HistoryRepository, stats StatsRepository, cfg predictor.Config, minReliability float64, metrics *monitoring.Collector) *Server {
	return &Server{
		repo:           repo,
		stats:          stats,
		cfg:            cfg,
		metrics:        metrics,
		minReliability: minReliability,
	}
}

// Refresh loads a fresh snapshot from the repository and replaces the
// current session.
func (s *Server) Refresh(ctx context.Context) error {
	records, err := s.repo.LoadStopTimes(ctx)
	if err != nil {
		return fmt.Errorf("failed to load stop times: %w", err)
	}
	events, err := s.repo.LoadEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}

	session := predictor.NewSession(s.cfg, records, events)

	s.mu.Lock()
	s.session = session
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.SnapshotRecords.Set(float64(session.RecordCount()))
	}
	return nil
}

// Current returns the active session, nil before the first Refresh.
func (s *Server) Current() *predictor.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Router assembles the chi router with all API routes.
func (s *Server) Router(allowedOrigins []string) chi.Router {
	predictions := NewPredictionHandler(s, s.minReliability, s.metrics)
	stats := NewStatsHandler(s, s.stats)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	// Health check endpoint with database connectivity test
	r.Get("/health", s.handleHealth)

	r.Get("/api/session", s.handleSession)
	r.Post("/api/session/refresh", s.handleRefresh)

	r.Get("/api/stops", predictions.GetStops)
	r.Get("/api/stops/{baseStopID}/prediction", predictions.GetStopPrediction)
	r.Get("/api/stops/{baseStopID}/predictions/short-term", predictions.GetStopShortTerm)
	r.Get("/api/stops/{baseStopID}/predictions/weekly", predictions.GetStopWeekly)
	r.Get("/api/stops/{baseStopID}/next", predictions.GetNextStop)

	r.Get("/api/segments", predictions.GetSegments)
	r.Get("/api/segments/{segmentID}/prediction", predictions.GetSegmentPrediction)
	r.Get("/api/segments/{segmentID}/predictions/short-term", predictions.GetSegmentShortTerm)

	r.Get("/api/events/impact", stats.GetEventImpact)
	r.Get("/api/delays/stats", stats.GetHourlyDelayStats)
	r.Get("/api/baselines/{baseStopID}", stats.GetBaseline)

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.repo.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "error",
			"database":  "disconnected",
			"timestamp": time.Now().UTC(),
			"error":     err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"database":  "connected",
		"timestamp": time.Now().UTC(),
	})
}

// SessionResponse is the JSON response for GET /api/session
type SessionResponse struct {
	SessionID   string    `json:"sessionId"`
	CreatedAt   time.Time `json:"createdAt"`
	RecordCount int       `json:"recordCount"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	session := s.Current()
	if session == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "No session loaded"})
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{
		SessionID:   session.ID,
		CreatedAt:   session.CreatedAt,
		RecordCount: session.RecordCount(),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := s.Refresh(ctx); err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to refresh session"})
		return
	}
	s.handleSession(w, r)
}

// ErrorResponse is the JSON error response structure
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
