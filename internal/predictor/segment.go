package predictor

import (
	"sort"
	"time"

	"github.com/sandovabarbora/golemio-public-transportation/internal/segments"
	"github.com/sandovabarbora/golemio-public-transportation/internal/transit"
)

// SegmentPredictor estimates realized travel times per short segment. It runs
// the same similarity/recency procedure as the DelayPredictor, keyed by
// (short segment id, hour, weekday, optional direction) over the travel
// times derived once at construction.
type SegmentPredictor struct {
	cfg        Config
	rows       []segments.TravelTime
	index      []indexed
	eventDates map[time.Time]bool
}

// NewSegmentPredictor derives per-record travel times from the history and
// keeps only rows with an inbound segment and a valid scheduled departure.
func NewSegmentPredictor(cfg Config, records []transit.StopTimeRecord, events []transit.EventRecord) *SegmentPredictor {
	if cfg.Scorer == nil {
		cfg.Scorer = DefaultScorer()
	}

	derived := segments.DeriveTravelTimes(records)
	rows := make([]segments.TravelTime, 0, len(derived))
	for i := range derived {
		if derived[i].RealTravelSec != nil && !derived[i].ScheduledDeparture.IsZero() {
			rows = append(rows, derived[i])
		}
	}

	p := &SegmentPredictor{
		cfg:        cfg,
		rows:       rows,
		index:      make([]indexed, len(rows)),
		eventDates: make(map[time.Time]bool),
	}
	for i := range rows {
		p.index[i] = indexOf(rows[i].ScheduledDeparture)
	}
	for i := range events {
		p.eventDates[events[i].Date()] = true
	}
	return p
}

// ComputePrediction estimates the travel time over the given short segment at
// the target time. Returns nil when fewer than the minimum number of similar
// historical traversals exist.
func (p *SegmentPredictor) ComputePrediction(target time.Time, shortSegmentID string, direction *int) *Prediction {
	target = transit.NormalizeUTC(target)
	targetHour := target.Hour()
	targetWeekday := transit.WeekdayIndex(target)

	match := func(i int) bool {
		if p.rows[i].ShortSectionID != shortSegmentID {
			return false
		}
		if direction != nil && p.rows[i].DirectionID != *direction {
			return false
		}
		return true
	}

	var values []float64
	for i := range p.rows {
		if p.index[i].hour == targetHour && p.index[i].weekday == targetWeekday && match(i) {
			values = append(values, *p.rows[i].RealTravelSec)
		}
	}
	if len(values) < p.cfg.MinSampleSize {
		return nil
	}

	var recent []float64
	recentStart := target.Add(-p.cfg.RecentWindow)
	for i := range p.rows {
		dep := p.index[i].departure
		if !dep.Before(recentStart) && !dep.After(target) && match(i) {
			recent = append(recent, *p.rows[i].RealTravelSec)
		}
	}

	return finalize(p.cfg, p.eventDates, target, values, recent)
}

// ShortSegmentIDs lists the distinct short segment IDs in the history,
// sorted.
func (p *SegmentPredictor) ShortSegmentIDs() []string {
	seen := make(map[string]bool)
	for i := range p.rows {
		seen[p.rows[i].ShortSectionID] = true
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
