package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sandovabarbora/golemio-public-transportation/internal/db"
	"github.com/sandovabarbora/golemio-public-transportation/internal/stats"
)

// StatsRepository defines the interface for aggregate statistics operations
type StatsRepository interface {
	GetHourlyDelayStats(ctx context.Context, baseStopID string, hours int) ([]db.HourlyDelayStat, error)
	GetBaseline(ctx context.Context, baseStopID string, hour, dayOfWeek int) (*stats.DelayBaseline, error)
}

// StatsHandler handles HTTP requests for event impact and delay statistics
type StatsHandler struct {
	sessions SessionProvider
	repo     StatsRepository
}

// NewStatsHandler creates a new handler. repo may be nil; the hourly and
// baseline endpoints then report the store as unavailable.
func NewStatsHandler(sessions SessionProvider, repo StatsRepository) *StatsHandler {
	return &StatsHandler{sessions: sessions, repo: repo}
}

// EventImpactResponse is the JSON response for GET /api/events/impact
type EventImpactResponse struct {
	SessionID   string             `json:"sessionId"`
	Impact      stats.ImpactResult `json:"impact"`
	LastChecked time.Time          `json:"lastChecked"`
}

// GetEventImpact handles GET /api/events/impact
func (h *StatsHandler) GetEventImpact(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.Current()
	if session == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "No session loaded"})
		return
	}

	writeJSON(w, http.StatusOK, EventImpactResponse{
		SessionID:   session.ID,
		Impact:      session.EventImpact(),
		LastChecked: time.Now().UTC(),
	})
}

// HourlyStatsResponse is the JSON response for GET /api/delays/stats
type HourlyStatsResponse struct {
	Stats       []db.HourlyDelayStat `json:"stats"`
	Count       int                  `json:"count"`
	LastChecked time.Time            `json:"lastChecked"`
}

// GetHourlyDelayStats handles GET /api/delays/stats
// Query params: stop_id (optional), period (optional, default "24h")
func (h *StatsHandler) GetHourlyDelayStats(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "Statistics store not available"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	baseStopID := r.URL.Query().Get("stop_id")

	// Parse period (default 24h); supports "24h", "48h", "168h"
	hours := 24
	if periodStr := r.URL.Query().Get("period"); periodStr != "" {
		if len(periodStr) > 1 && periodStr[len(periodStr)-1] == 'h' {
			if parsed, err := strconv.Atoi(periodStr[:len(periodStr)-1]); err == nil && parsed > 0 && parsed <= 720 {
				hours = parsed
			}
		}
	}

	hourly, err := h.repo.GetHourlyDelayStats(ctx, baseStopID, hours)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to get hourly delay stats"})
		return
	}

	writeJSON(w, http.StatusOK, HourlyStatsResponse{
		Stats:       hourly,
		Count:       len(hourly),
		LastChecked: time.Now().UTC(),
	})
}

// BaselineResponse is the JSON response for GET /api/baselines/{baseStopID}
type BaselineResponse struct {
	Baseline *stats.DelayBaseline `json:"baseline"`
}

// GetBaseline handles GET /api/baselines/{baseStopID}
// Query params: hour (required, 0-23), day (required, 0=Monday .. 6=Sunday)
func (h *StatsHandler) GetBaseline(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "Statistics store not available"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	hour, err := strconv.Atoi(r.URL.Query().Get("hour"))
	if err != nil || hour < 0 || hour > 23 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Missing or invalid 'hour' parameter"})
		return
	}
	day, err := strconv.Atoi(r.URL.Query().Get("day"))
	if err != nil || day < 0 || day > 6 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Missing or invalid 'day' parameter"})
		return
	}

	baseline, err := h.repo.GetBaseline(ctx, chi.URLParam(r, "baseStopID"), hour, day)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to get baseline"})
		return
	}

	writeJSON(w, http.StatusOK, BaselineResponse{Baseline: baseline})
}
