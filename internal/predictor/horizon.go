package predictor

import "time"

// Horizon defaults shared by the generators.
const (
	DefaultInterval         = 15 * time.Minute
	DefaultShortTermHorizon = 3 * time.Hour
	DefaultWeeklyHorizon    = 7 * 24 * time.Hour
)

// ShortTermPredictions walks the next duration hours from start at the given
// interval and collects the predictions that have enough data. Steps yielding
// no prediction are skipped, not reported.
func (p *DelayPredictor) ShortTermPredictions(start time.Time, baseStopID string, direction *int, interval, horizon time.Duration) []Prediction {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if horizon <= 0 {
		horizon = DefaultShortTermHorizon
	}
	var out []Prediction
	end := start.Add(horizon)
	for curr := start; curr.Before(end); curr = curr.Add(interval) {
		if pred := p.ComputePrediction(curr, baseStopID, direction); pred != nil {
			out = append(out, *pred)
		}
	}
	return out
}

// WeeklyPredictions generates predictions for the next seven days, starting
// from the hour boundary of start, dropping steps below minReliability.
// Each result is annotated with its day name and time period.
func (p *DelayPredictor) WeeklyPredictions(start time.Time, baseStopID string, direction *int, interval time.Duration, minReliability float64) []Prediction {
	if interval <= 0 {
		interval = DefaultInterval
	}
	var out []Prediction
	curr := start.Truncate(time.Hour)
	end := start.Add(DefaultWeeklyHorizon)
	for ; curr.Before(end); curr = curr.Add(interval) {
		pred := p.ComputePrediction(curr, baseStopID, direction)
		if pred == nil || pred.Reliability < minReliability {
			continue
		}
		pred.DayName = pred.Target.Weekday().String()
		pred.TimePeriod = timePeriod(pred.Target.Hour())
		out = append(out, *pred)
	}
	return out
}

// ShortTermPredictions is the segment-level horizon walk, identical in shape
// to the stop-level one.
func (p *SegmentPredictor) ShortTermPredictions(start time.Time, shortSegmentID string, direction *int, interval, horizon time.Duration) []Prediction {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if horizon <= 0 {
		horizon = DefaultShortTermHorizon
	}
	var out []Prediction
	end := start.Add(horizon)
	for curr := start; curr.Before(end); curr = curr.Add(interval) {
		if pred := p.ComputePrediction(curr, shortSegmentID, direction); pred != nil {
			out = append(out, *pred)
		}
	}
	return out
}

func timePeriod(hour int) string {
	switch {
	case hour >= 7 && hour <= 9:
		return "Morning Peak"
	case hour >= 16 && hour <= 18:
		return "Evening Peak"
	default:
		return "Off-Peak"
	}
}
