package predictor

import (
	"time"

	"github.com/google/uuid"

	"github.com/sandovabarbora/golemio-public-transportation/internal/stats"
	"github.com/sandovabarbora/golemio-public-transportation/internal/transit"
)

// Session owns one predictor pair for a single immutable dataset snapshot.
// The host application creates a Session when it loads (or reloads) history
// and discards it wholesale on the next load; the predictors themselves keep
// no hidden caches across snapshots.
type Session struct {
	ID        string
	CreatedAt time.Time

	Delay   *DelayPredictor
	Segment *SegmentPredictor

	records []transit.StopTimeRecord
	events  []transit.EventRecord
}

// NewSession builds both predictors over one snapshot of history and events.
func NewSession(cfg Config, records []transit.StopTimeRecord, events []transit.EventRecord) *Session {
	return &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Delay:     NewDelayPredictor(cfg, records, events),
		Segment:   NewSegmentPredictor(cfg, records, events),
		records:   records,
		events:    events,
	}
}

// RecordCount reports the snapshot size.
func (s *Session) RecordCount() int {
	return len(s.records)
}

// EventImpact runs the event vs. regular day comparison over the snapshot.
func (s *Session) EventImpact() stats.ImpactResult {
	return stats.AnalyzeEventImpact(s.records, s.events)
}
