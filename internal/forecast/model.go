package forecast

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/sandovabarbora/golemio-public-transportation/internal/transit"
)

// ModelConfig holds the ensemble and training-window tunables.
type ModelConfig struct {
	Trees           int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int

	// TrainingWindowDays is the initial trailing window; it doubles up to
	// MaxWindowDays until MinTrainingSamples rows are found.
	TrainingWindowDays int
	MaxWindowDays      int
	MinTrainingSamples int

	ConfidenceLevel float64
	Seed            int64
}

// DefaultModelConfig mirrors the stock ensemble settings.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Trees:              100,
		MaxDepth:           20,
		MinSamplesSplit:    4,
		MinSamplesLeaf:     2,
		TrainingWindowDays: 14,
		MaxWindowDays:      365,
		MinTrainingSamples: 100,
		ConfidenceLevel:    0.95,
		Seed:               42,
	}
}

// DelayModel is a trained ensemble. It is immutable after Train; build a new
// model to incorporate new history.
type DelayModel struct {
	cfg      ModelConfig
	stops    *CategoryTable
	kickoffs map[time.Time]time.Time
	trees    []*treeNode

	importances []float64
	TrainedAt   time.Time
	WindowStart time.Time
	WindowEnd   time.Time
	Samples     int
}

// ModelPrediction is one point estimate with ensemble-spread bounds.
type ModelPrediction struct {
	Target          time.Time `json:"datetime"`
	PredictedDelay  float64   `json:"predicted_delay"`
	ConfidenceLower float64   `json:"confidence_lower"`
	ConfidenceUpper float64   `json:"confidence_upper"`
	TreeStd         float64   `json:"tree_std"`
}

// FeatureImportance pairs a feature name with its normalized importance.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// TrainWithDateRange trains over the trailing window ending at end, doubling
// the window until enough samples are found; when even the maximum window is
// too small, all available history is used.
func TrainWithDateRange(cfg ModelConfig, records []transit.StopTimeRecord, events []transit.EventRecord, end time.Time) (*DelayModel, error) {
	end = transit.NormalizeUTC(end)

	window := cfg.TrainingWindowDays
	var selected []transit.StopTimeRecord
	var start time.Time
	for ; window <= cfg.MaxWindowDays; window *= 2 {
		start = end.AddDate(0, 0, -window)
		selected = selected[:0]
		for i := range records {
			dep := transit.NormalizeUTC(records[i].ScheduledDeparture)
			if !dep.Before(start) && !dep.After(end) {
				selected = append(selected, records[i])
			}
		}
		if len(selected) >= cfg.MinTrainingSamples {
			break
		}
	}
	if len(selected) < cfg.MinTrainingSamples {
		selected = records
		start = time.Time{}
	}

	model, err := train(cfg, selected, events)
	if err != nil {
		return nil, err
	}
	model.WindowStart = start
	model.WindowEnd = end
	return model, nil
}

// Train fits the ensemble on the given history.
func Train(cfg ModelConfig, records []transit.StopTimeRecord, events []transit.EventRecord) (*DelayModel, error) {
	return train(cfg, records, events)
}

func train(cfg ModelConfig, records []transit.StopTimeRecord, events []transit.EventRecord) (*DelayModel, error) {
	if cfg.Trees <= 0 {
		cfg = DefaultModelConfig()
	}

	labels := make([]string, 0, len(records))
	for i := range records {
		labels = append(labels, records[i].BaseStopID)
	}
	stops := BuildCategoryTable(labels)
	kickoffs := kickoffByDate(events)

	var xs [][]float64
	var ys []float64
	for i := range records {
		r := &records[i]
		if r.ScheduledDeparture.IsZero() || r.BaseStopID == "" {
			continue
		}
		xs = append(xs, featureVector(r.ScheduledDeparture, stops.Index(r.BaseStopID), kickoffs))
		ys = append(ys, r.DepartureDelaySec)
	}
	if len(xs) == 0 {
		return nil, fmt.Errorf("no valid training data after preprocessing")
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	params := treeParams{
		maxDepth:        cfg.MaxDepth,
		minSamplesSplit: cfg.MinSamplesSplit,
		minSamplesLeaf:  cfg.MinSamplesLeaf,
	}

	importances := make([]float64, len(FeatureNames))
	trees := make([]*treeNode, cfg.Trees)
	for t := 0; t < cfg.Trees; t++ {
		sampleXs, sampleYs := bootstrapSample(rng, xs, ys)
		trees[t] = growTree(sampleXs, sampleYs, 0, params, importances)
	}

	total := 0.0
	for _, imp := range importances {
		total += imp
	}
	if total > 0 {
		for i := range importances {
			importances[i] /= total
		}
	}

	return &DelayModel{
		cfg:         cfg,
		stops:       stops,
		kickoffs:    kickoffs,
		trees:       trees,
		importances: importances,
		TrainedAt:   time.Now().UTC(),
		Samples:     len(xs),
	}, nil
}

// StopTable exposes the versioned category mapping used at training time.
func (m *DelayModel) StopTable() *CategoryTable {
	return m.stops
}

// Predict estimates the delay for one stop at one time. Confidence bounds
// are the per-tree prediction quantiles at the configured level.
func (m *DelayModel) Predict(target time.Time, baseStopID string) ModelPrediction {
	x := featureVector(target, m.stops.Index(baseStopID), m.kickoffs)

	preds := make([]float64, len(m.trees))
	sum := 0.0
	for i, tree := range m.trees {
		preds[i] = tree.predict(x)
		sum += preds[i]
	}
	point := sum / float64(len(preds))

	sort.Float64s(preds)
	alpha := 1 - m.cfg.ConfidenceLevel
	return ModelPrediction{
		Target:          transit.NormalizeUTC(target),
		PredictedDelay:  point,
		ConfidenceLower: quantileSorted(preds, alpha/2),
		ConfidenceUpper: quantileSorted(preds, 1-alpha/2),
		TreeStd:         stdDev(preds, point),
	}
}

// PredictHorizon walks the horizon at the given interval for one stop.
func (m *DelayModel) PredictHorizon(start time.Time, baseStopID string, interval, horizon time.Duration) []ModelPrediction {
	var out []ModelPrediction
	end := start.Add(horizon)
	for curr := start; curr.Before(end); curr = curr.Add(interval) {
		out = append(out, m.Predict(curr, baseStopID))
	}
	return out
}

// FeatureImportances returns the normalized importances sorted descending.
func (m *DelayModel) FeatureImportances() []FeatureImportance {
	out := make([]FeatureImportance, len(FeatureNames))
	for i, name := range FeatureNames {
		out[i] = FeatureImportance{Feature: name, Importance: m.importances[i]}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Importance > out[j].Importance
	})
	return out
}

// quantileSorted interpolates the q-quantile of an ascending slice.
func quantileSorted(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func stdDev(xs []float64, mean float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		d := x - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}
