package stats

import (
	"context"
	"log"

	"github.com/sandovabarbora/golemio-public-transportation/internal/transit"
)

// DelayBaseline is the learned expected delay for one (base stop, hour,
// weekday) bucket. Updated incrementally as new history is ingested.
type DelayBaseline struct {
	BaseStopID  string
	HourOfDay   int
	DayOfWeek   int // Monday=0
	DelayMean   float64
	DelayStdDev float64
	SampleCount int
}

// BaselineStore persists per-bucket baselines.
type BaselineStore interface {
	GetBaseline(ctx context.Context, baseStopID string, hour, dayOfWeek int) (*DelayBaseline, error)
	SaveBaseline(ctx context.Context, baseline DelayBaseline) error
}

// BaselineLearner folds new stop-time observations into the stored baselines
// using Welford's algorithm.
type BaselineLearner struct {
	store BaselineStore
}

// NewBaselineLearner creates a learner over the given store.
func NewBaselineLearner(store BaselineStore) *BaselineLearner {
	return &BaselineLearner{store: store}
}

// Observe updates the baselines touched by a batch of freshly ingested
// records. Failures on individual buckets are logged and skipped so one bad
// bucket does not abort a whole ingest run.
func (l *BaselineLearner) Observe(ctx context.Context, records []transit.StopTimeRecord) error {
	type bucket struct {
		stop string
		hour int
		dow  int
	}
	grouped := make(map[bucket][]float64)
	for i := range records {
		r := &records[i]
		if r.BaseStopID == "" {
			continue
		}
		dep := transit.NormalizeUTC(r.ScheduledDeparture)
		b := bucket{r.BaseStopID, dep.Hour(), transit.WeekdayIndex(dep)}
		grouped[b] = append(grouped[b], r.DepartureDelaySec)
	}

	for b, delays := range grouped {
		existing, err := l.store.GetBaseline(ctx, b.stop, b.hour, b.dow)
		if err != nil {
			log.Printf("Baseline: failed to read %s h=%d dow=%d: %v", b.stop, b.hour, b.dow, err)
			continue
		}

		var w *Welford
		if existing != nil {
			w = ResumeWelford(existing.DelayMean, existing.DelayStdDev, existing.SampleCount)
		} else {
			w = &Welford{}
		}
		for _, d := range delays {
			w.Add(d)
		}

		err = l.store.SaveBaseline(ctx, DelayBaseline{
			BaseStopID:  b.stop,
			HourOfDay:   b.hour,
			DayOfWeek:   b.dow,
			DelayMean:   w.Mean,
			DelayStdDev: w.StdDev(),
			SampleCount: w.Count,
		})
		if err != nil {
			log.Printf("Baseline: failed to save %s h=%d dow=%d: %v", b.stop, b.hour, b.dow, err)
		}
	}
	return nil
}
