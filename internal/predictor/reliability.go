package predictor

import "math"

// ReliabilityInput carries everything a scoring policy may look at for a
// single prediction.
type ReliabilityInput struct {
	PointEstimate float64
	MarginError   float64
	SampleSize    int
	IsPeakHour    bool
	IsEventDay    bool
}

// ReliabilityScorer turns a prediction's sample size, interval width and
// condition flags into a [0,100] confidence proxy. The scoring policy is
// pluggable; the weighted blend below is the default, not a derived constant.
type ReliabilityScorer interface {
	Score(in ReliabilityInput) float64
}

// WeightedScorer blends a sample-size adequacy score, a confidence-interval
// tightness score and a condition penalty.
type WeightedScorer struct {
	SampleWeight    float64
	CIWeight        float64
	ConditionWeight float64

	// FullSampleSize is the sample count at which the adequacy score
	// saturates at 1.0.
	FullSampleSize int

	PeakPenalty  float64
	EventPenalty float64
}

// DefaultScorer returns the stock weighting (0.4/0.4/0.2, saturation at 30
// samples, x0.8 peak and x0.9 event-day penalties).
func DefaultScorer() *WeightedScorer {
	return &WeightedScorer{
		SampleWeight:    0.4,
		CIWeight:        0.4,
		ConditionWeight: 0.2,
		FullSampleSize:  30,
		PeakPenalty:     0.8,
		EventPenalty:    0.9,
	}
}

// Score implements ReliabilityScorer. The result is rounded to one decimal.
func (s *WeightedScorer) Score(in ReliabilityInput) float64 {
	sampleScore := math.Min(1.0, float64(in.SampleSize)/float64(s.FullSampleSize))

	relCI := (2 * in.MarginError) / (math.Abs(in.PointEstimate) + 1)
	ciScore := 1 - math.Min(1.0, relCI)

	condScore := 1.0
	if in.IsPeakHour {
		condScore *= s.PeakPenalty
	}
	if in.IsEventDay {
		condScore *= s.EventPenalty
	}

	reliability := (s.SampleWeight*sampleScore +
		s.CIWeight*ciScore +
		s.ConditionWeight*condScore) * 100
	return math.Round(reliability*10) / 10
}
