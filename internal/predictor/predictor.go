// Package predictor estimates departure delays and segment travel times from
// historical stop-time records. Estimates are conditional means over records
// sharing the target's (hour, weekday) bucket, nudged by a trailing
// recent-observation window, with a Student-t confidence interval and a
// heuristic reliability score.
package predictor

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sandovabarbora/golemio-public-transportation/internal/transit"
)

// Config holds the tunables shared by the delay and segment predictors.
type Config struct {
	ConfidenceLevel  float64
	RecentWindow     time.Duration
	MinSampleSize    int
	MinRecentSamples int
	Scorer           ReliabilityScorer
}

// DefaultConfig returns the stock configuration: 95% confidence, a 60-minute
// recency window, 5 minimum similar samples and 3 minimum recent samples.
func DefaultConfig() Config {
	return Config{
		ConfidenceLevel:  0.95,
		RecentWindow:     60 * time.Minute,
		MinSampleSize:    5,
		MinRecentSamples: 3,
		Scorer:           DefaultScorer(),
	}
}

// Prediction is a computed estimate for one target timestamp. PointEstimate
// is always BaseEstimate + Correction, and the confidence bounds are
// PointEstimate +/- MarginError.
type Prediction struct {
	Target        time.Time `json:"datetime"`
	PointEstimate float64   `json:"point_estimate"`
	BaseEstimate  float64   `json:"base_estimate"`
	Correction    float64   `json:"correction"`
	Median        float64   `json:"median"`
	Std           float64   `json:"std"`

	ConfidenceLower float64 `json:"confidence_lower"`
	ConfidenceUpper float64 `json:"confidence_upper"`
	MarginError     float64 `json:"margin_error"`

	SampleSize  int     `json:"sample_size"`
	Reliability float64 `json:"reliability"`

	IsEventDay bool `json:"is_event_day"`
	IsWeekend  bool `json:"is_weekend"`
	IsPeakHour bool `json:"is_peak_hour"`

	// Set only on weekly horizon output.
	DayName    string `json:"day_name,omitempty"`
	TimePeriod string `json:"time_period,omitempty"`
}

// indexed caches the derived time fields of one record so horizon generation
// does not recompute them per step.
type indexed struct {
	departure time.Time
	hour      int
	weekday   int
}

func indexOf(departure time.Time) indexed {
	dep := transit.NormalizeUTC(departure)
	return indexed{departure: dep, hour: dep.Hour(), weekday: transit.WeekdayIndex(dep)}
}

// DelayPredictor estimates departure delays per base stop. It is read-only
// over the dataset it was built with; build a new one per dataset snapshot.
type DelayPredictor struct {
	cfg        Config
	records    []transit.StopTimeRecord
	index      []indexed
	eventDates map[time.Time]bool

	// nextStops maps (base stop, direction) to the observed following raw
	// stop IDs with their frequencies, for NextStop lookups.
	nextStops map[nextStopKey]map[string]int
	stopNames map[string]string // base stop id -> name
	baseStops map[string]bool
}

type nextStopKey struct {
	baseStopID string
	direction  int
}

// NewDelayPredictor builds a predictor over the given history and event
// calendar. Records with a zero scheduled departure are dropped, mirroring
// the ingestion contract that timestamps are either valid or absent.
func NewDelayPredictor(cfg Config, records []transit.StopTimeRecord, events []transit.EventRecord) *DelayPredictor {
	if cfg.Scorer == nil {
		cfg.Scorer = DefaultScorer()
	}

	kept := make([]transit.StopTimeRecord, 0, len(records))
	for i := range records {
		if !records[i].ScheduledDeparture.IsZero() {
			kept = append(kept, records[i])
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].TripID != kept[j].TripID {
			return kept[i].TripID < kept[j].TripID
		}
		return kept[i].StopSequence < kept[j].StopSequence
	})

	p := &DelayPredictor{
		cfg:        cfg,
		records:    kept,
		index:      make([]indexed, len(kept)),
		eventDates: make(map[time.Time]bool),
		nextStops:  make(map[nextStopKey]map[string]int),
		stopNames:  make(map[string]string),
		baseStops:  make(map[string]bool),
	}
	for i := range kept {
		p.index[i] = indexOf(kept[i].ScheduledDeparture)
		if kept[i].BaseStopID == "" {
			continue
		}
		p.baseStops[kept[i].BaseStopID] = true
		if kept[i].StopName != "" {
			if _, ok := p.stopNames[kept[i].BaseStopID]; !ok {
				p.stopNames[kept[i].BaseStopID] = kept[i].StopName
			}
		}
	}
	for i := 1; i < len(kept); i++ {
		prev, curr := &kept[i-1], &kept[i]
		if prev.TripID != curr.TripID {
			continue
		}
		k := nextStopKey{prev.BaseStopID, prev.DirectionID}
		if p.nextStops[k] == nil {
			p.nextStops[k] = make(map[string]int)
		}
		p.nextStops[k][curr.StopID]++
	}
	for i := range events {
		p.eventDates[events[i].Date()] = true
	}
	return p
}

// ComputePrediction estimates the delay at the target time, optionally
// restricted to one base stop and/or direction. It returns nil when fewer
// than the minimum number of similar historical records exist; that is a
// normal outcome, not an error.
func (p *DelayPredictor) ComputePrediction(target time.Time, baseStopID string, direction *int) *Prediction {
	target = transit.NormalizeUTC(target)
	targetHour := target.Hour()
	targetWeekday := transit.WeekdayIndex(target)

	match := func(i int) bool {
		if direction != nil && p.records[i].DirectionID != *direction {
			return false
		}
		if baseStopID != "" && p.records[i].BaseStopID != baseStopID {
			return false
		}
		return true
	}

	var delays []float64
	for i := range p.records {
		if p.index[i].hour == targetHour && p.index[i].weekday == targetWeekday && match(i) {
			delays = append(delays, p.records[i].DepartureDelaySec)
		}
	}
	if len(delays) < p.cfg.MinSampleSize {
		return nil
	}

	var recent []float64
	recentStart := target.Add(-p.cfg.RecentWindow)
	for i := range p.records {
		dep := p.index[i].departure
		if !dep.Before(recentStart) && !dep.After(target) && match(i) {
			recent = append(recent, p.records[i].DepartureDelaySec)
		}
	}

	return finalize(p.cfg, p.eventDates, target, delays, recent)
}

// finalize turns a similar-sample and recent-sample selection into a full
// Prediction. Shared by the delay and segment predictors.
func finalize(cfg Config, eventDates map[time.Time]bool, target time.Time, values, recent []float64) *Prediction {
	base := stat.Mean(values, nil)
	std := sampleStd(values)
	n := len(values)

	margin := 0.0
	if std > 0 {
		tCrit := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}.Quantile((1 + cfg.ConfidenceLevel) / 2)
		margin = tCrit * std / math.Sqrt(float64(n))
	}

	correction := 0.0
	if len(recent) >= cfg.MinRecentSamples {
		correction = stat.Mean(recent, nil) - base
	}
	point := base + correction

	isPeak := transit.IsPeakHour(target.Hour())
	isEvent := eventDates[transit.DateOf(target)]

	return &Prediction{
		Target:          target,
		PointEstimate:   point,
		BaseEstimate:    base,
		Correction:      correction,
		Median:          median(values),
		Std:             std,
		ConfidenceLower: point - margin,
		ConfidenceUpper: point + margin,
		MarginError:     margin,
		SampleSize:      n,
		Reliability: cfg.Scorer.Score(ReliabilityInput{
			PointEstimate: point,
			MarginError:   margin,
			SampleSize:    n,
			IsPeakHour:    isPeak,
			IsEventDay:    isEvent,
		}),
		IsEventDay: isEvent,
		IsWeekend:  transit.IsWeekend(transit.WeekdayIndex(target)),
		IsPeakHour: isPeak,
	}
}

// NextStop returns the name of the most frequently observed following stop
// for a base stop and direction, or "" when the history holds none.
func (p *DelayPredictor) NextStop(baseStopID string, direction int) string {
	counts := p.nextStops[nextStopKey{baseStopID, direction}]
	if len(counts) == 0 {
		return ""
	}
	var best string
	bestCount := -1
	for stopID, c := range counts {
		if c > bestCount || (c == bestCount && stopID < best) {
			best, bestCount = stopID, c
		}
	}
	return p.stopNames[transit.BaseStopID(best)]
}

// BaseStops lists the base stop IDs present in the history, sorted.
func (p *DelayPredictor) BaseStops() []string {
	ids := make([]string, 0, len(p.baseStops))
	for id := range p.baseStops {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func median(xs []float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}
