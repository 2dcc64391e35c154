// Package stats implements the descriptive and comparative statistics behind
// the delay dashboard: incremental per-bucket aggregates and the event-day
// impact analysis.
package stats

import "math"

// Welford holds running statistics using Welford's online algorithm, so the
// hourly delay aggregates can be updated in O(1) without keeping raw rows.
type Welford struct {
	Count int
	Mean  float64
	M2    float64 // sum of squared differences from the mean
}

// ResumeWelford reconstructs a Welford accumulator from previously persisted
// mean/stddev/count, allowing incremental updates across ingest runs.
func ResumeWelford(mean, stddev float64, count int) *Welford {
	if count == 0 {
		return &Welford{}
	}
	return &Welford{
		Count: count,
		Mean:  mean,
		M2:    stddev * stddev * float64(count),
	}
}

// Add folds one observation into the accumulator.
func (w *Welford) Add(value float64) {
	w.Count++
	delta := value - w.Mean
	w.Mean += delta / float64(w.Count)
	w.M2 += delta * (value - w.Mean)
}

// StdDev returns the population standard deviation, 0 with fewer than two
// observations.
func (w *Welford) StdDev() float64 {
	if w.Count < 2 {
		return 0
	}
	return math.Sqrt(w.M2 / float64(w.Count))
}
