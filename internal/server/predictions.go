package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sandovabarbora/golemio-public-transportation/internal/monitoring"
	"github.com/sandovabarbora/golemio-public-transportation/internal/predictor"
)

// SessionProvider hands out the active prediction session.
type SessionProvider interface {
	Current() *predictor.Session
}

// PredictionHandler handles HTTP requests for stop and segment predictions
type PredictionHandler struct {
	sessions       SessionProvider
	minReliability float64
	metrics        *monitoring.Collector
}

// NewPredictionHandler creates a new handler over the given session source
func NewPredictionHandler(sessions SessionProvider, minReliability float64, metrics *monitoring.Collector) *PredictionHandler {
	return &PredictionHandler{
		sessions:       sessions,
		minReliability: minReliability,
		metrics:        metrics,
	}
}

// StopsResponse is the JSON response for GET /api/stops
type StopsResponse struct {
	Stops []string `json:"stops"`
	Count int      `json:"count"`
}

// SegmentsResponse is the JSON response for GET /api/segments
type SegmentsResponse struct {
	Segments []string `json:"segments"`
	Count    int      `json:"count"`
}

// PredictionResponse wraps a single prediction with its session id.
type PredictionResponse struct {
	SessionID  string                `json:"sessionId"`
	Prediction *predictor.Prediction `json:"prediction"`
}

// PredictionsResponse wraps a horizon batch.
type PredictionsResponse struct {
	SessionID   string                 `json:"sessionId"`
	Predictions []predictor.Prediction `json:"predictions"`
	Count       int                    `json:"count"`
}

// NextStopResponse is the JSON response for GET /api/stops/{baseStopID}/next
type NextStopResponse struct {
	BaseStopID string `json:"baseStopId"`
	Direction  int    `json:"direction"`
	NextStop   string `json:"nextStop"`
}

func (h *PredictionHandler) session(w http.ResponseWriter) *predictor.Session {
	session := h.sessions.Current()
	if session == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "No session loaded"})
	}
	return session
}

// parseTarget reads the "at" query parameter, defaulting to now.
func parseTarget(r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("at")
	if raw == "" {
		return time.Now().UTC(), true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// parseDirection reads the optional "direction" query parameter.
func parseDirection(r *http.Request) (*int, bool) {
	raw := r.URL.Query().Get("direction")
	if raw == "" {
		return nil, true
	}
	d, err := strconv.Atoi(raw)
	if err != nil {
		return nil, false
	}
	return &d, true
}

// GetStops handles GET /api/stops
func (h *PredictionHandler) GetStops(w http.ResponseWriter, r *http.Request) {
	session := h.session(w)
	if session == nil {
		return
	}
	stops := session.Delay.BaseStops()
	writeJSON(w, http.StatusOK, StopsResponse{Stops: stops, Count: len(stops)})
}

// GetSegments handles GET /api/segments
func (h *PredictionHandler) GetSegments(w http.ResponseWriter, r *http.Request) {
	session := h.session(w)
	if session == nil {
		return
	}
	segments := session.Segment.ShortSegmentIDs()
	writeJSON(w, http.StatusOK, SegmentsResponse{Segments: segments, Count: len(segments)})
}

// GetStopPrediction handles GET /api/stops/{baseStopID}/prediction
// Query params: at (optional RFC3339, default now), direction (optional)
func (h *PredictionHandler) GetStopPrediction(w http.ResponseWriter, r *http.Request) {
	session := h.session(w)
	if session == nil {
		return
	}

	target, ok := parseTarget(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid 'at' parameter, expected RFC3339"})
		return
	}
	direction, ok := parseDirection(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid 'direction' parameter"})
		return
	}

	pred := session.Delay.ComputePrediction(target, chi.URLParam(r, "baseStopID"), direction)
	h.countPrediction(pred != nil)
	writeJSON(w, http.StatusOK, PredictionResponse{SessionID: session.ID, Prediction: pred})
}

// GetStopShortTerm handles GET /api/stops/{baseStopID}/predictions/short-term
func (h *PredictionHandler) GetStopShortTerm(w http.ResponseWriter, r *http.Request) {
	session := h.session(w)
	if session == nil {
		return
	}

	target, ok := parseTarget(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid 'at' parameter, expected RFC3339"})
		return
	}
	direction, ok := parseDirection(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid 'direction' parameter"})
		return
	}

	preds := session.Delay.ShortTermPredictions(target, chi.URLParam(r, "baseStopID"), direction,
		predictor.DefaultInterval, predictor.DefaultShortTermHorizon)
	h.countPrediction(len(preds) > 0)
	writeJSON(w, http.StatusOK, PredictionsResponse{
		SessionID:   session.ID,
		Predictions: preds,
		Count:       len(preds),
	})
}

// GetStopWeekly handles GET /api/stops/{baseStopID}/predictions/weekly
// Query params: at, direction, min_reliability (optional override)
func (h *PredictionHandler) GetStopWeekly(w http.ResponseWriter, r *http.Request) {
	session := h.session(w)
	if session == nil {
		return
	}

	target, ok := parseTarget(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid 'at' parameter, expected RFC3339"})
		return
	}
	direction, ok := parseDirection(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid 'direction' parameter"})
		return
	}

	minReliability := h.minReliability
	if raw := r.URL.Query().Get("min_reliability"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 100 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid 'min_reliability' parameter"})
			return
		}
		minReliability = v
	}

	preds := session.Delay.WeeklyPredictions(target, chi.URLParam(r, "baseStopID"), direction,
		time.Hour, minReliability)
	h.countPrediction(len(preds) > 0)
	writeJSON(w, http.StatusOK, PredictionsResponse{
		SessionID:   session.ID,
		Predictions: preds,
		Count:       len(preds),
	})
}

// GetNextStop handles GET /api/stops/{baseStopID}/next
// Query params: direction (required)
func (h *PredictionHandler) GetNextStop(w http.ResponseWriter, r *http.Request) {
	session := h.session(w)
	if session == nil {
		return
	}

	direction, err := strconv.Atoi(r.URL.Query().Get("direction"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Missing or invalid 'direction' parameter"})
		return
	}

	baseStopID := chi.URLParam(r, "baseStopID")
	writeJSON(w, http.StatusOK, NextStopResponse{
		BaseStopID: baseStopID,
		Direction:  direction,
		NextStop:   session.Delay.NextStop(baseStopID, direction),
	})
}

// GetSegmentPrediction handles GET /api/segments/{segmentID}/prediction
func (h *PredictionHandler) GetSegmentPrediction(w http.ResponseWriter, r *http.Request) {
	session := h.session(w)
	if session == nil {
		return
	}

	target, ok := parseTarget(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid 'at' parameter, expected RFC3339"})
		return
	}
	direction, ok := parseDirection(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid 'direction' parameter"})
		return
	}

	pred := session.Segment.ComputePrediction(target, chi.URLParam(r, "segmentID"), direction)
	h.countPrediction(pred != nil)
	writeJSON(w, http.StatusOK, PredictionResponse{SessionID: session.ID, Prediction: pred})
}

// GetSegmentShortTerm handles GET /api/segments/{segmentID}/predictions/short-term
func (h *PredictionHandler) GetSegmentShortTerm(w http.ResponseWriter, r *http.Request) {
	session := h.session(w)
	if session == nil {
		return
	}

	target, ok := parseTarget(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid 'at' parameter, expected RFC3339"})
		return
	}
	direction, ok := parseDirection(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid 'direction' parameter"})
		return
	}

	preds := session.Segment.ShortTermPredictions(target, chi.URLParam(r, "segmentID"), direction,
		predictor.DefaultInterval, predictor.DefaultShortTermHorizon)
	h.countPrediction(len(preds) > 0)
	writeJSON(w, http.StatusOK, PredictionsResponse{
		SessionID:   session.ID,
		Predictions: preds,
		Count:       len(preds),
	})
}

func (h *PredictionHandler) countPrediction(served bool) {
	if h.metrics == nil {
		return
	}
	if served {
		h.metrics.PredictionsServed.Inc()
	} else {
		h.metrics.PredictionsEmpty.Inc()
	}
}
