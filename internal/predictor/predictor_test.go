package predictor

import (
	"math"
	"testing"
	"time"

	"github.com/sandovabarbora/golemio-public-transportation/internal/transit"
)

// mondayTarget is a Monday 08:30 UTC, inside the morning peak.
var mondayTarget = time.Date(2024, 3, 11, 8, 30, 0, 0, time.UTC)

func stopRecord(tripID string, dep time.Time, delay float64) transit.StopTimeRecord {
	return transit.StopTimeRecord{
		TripID:             tripID,
		StopID:             "U1Z1",
		BaseStopID:         "U1",
		StopSequence:       1,
		ScheduledDeparture: dep,
		DepartureDelaySec:  delay,
	}
}

// mondayHistory builds seven records in the Monday 08:00 bucket on weeks
// before the target, one per week.
func mondayHistory(delays []float64) []transit.StopTimeRecord {
	var records []transit.StopTimeRecord
	for i, d := range delays {
		dep := mondayTarget.AddDate(0, 0, -7*(i+1))
		records = append(records, stopRecord("trip", dep, d))
	}
	return records
}

func TestComputePredictionRecencyCorrection(t *testing.T) {
	records := mondayHistory([]float64{30, 45, 60, 50, 40, 35, 55})

	// Three observations inside the trailing hour, outside the 08:00 bucket
	for i := 0; i < 3; i++ {
		dep := mondayTarget.Add(-time.Duration(35+5*i) * time.Minute)
		records = append(records, stopRecord("recent", dep, 90))
	}

	p := NewDelayPredictor(DefaultConfig(), records, nil)
	pred := p.ComputePrediction(mondayTarget, "U1", nil)
	if pred == nil {
		t.Fatal("expected a prediction")
	}

	if pred.SampleSize != 7 {
		t.Errorf("SampleSize = %d, expected 7", pred.SampleSize)
	}
	if math.Abs(pred.BaseEstimate-45) > 1e-9 {
		t.Errorf("BaseEstimate = %v, expected 45", pred.BaseEstimate)
	}
	if math.Abs(pred.Correction-45) > 1e-9 {
		t.Errorf("Correction = %v, expected 45", pred.Correction)
	}
	if math.Abs(pred.PointEstimate-90) > 1e-9 {
		t.Errorf("PointEstimate = %v, expected 90", pred.PointEstimate)
	}
	if pred.Median != 45 {
		t.Errorf("Median = %v, expected 45", pred.Median)
	}

	// Interval is symmetric around the corrected point
	if pred.MarginError <= 0 {
		t.Errorf("MarginError = %v, expected > 0", pred.MarginError)
	}
	if math.Abs(pred.ConfidenceLower-(pred.PointEstimate-pred.MarginError)) > 1e-9 ||
		math.Abs(pred.ConfidenceUpper-(pred.PointEstimate+pred.MarginError)) > 1e-9 {
		t.Errorf("bounds not point +/- margin: [%v, %v] around %v",
			pred.ConfidenceLower, pred.ConfidenceUpper, pred.PointEstimate)
	}

	if !pred.IsPeakHour {
		t.Error("08:30 should be a peak hour")
	}
	if pred.IsWeekend || pred.IsEventDay {
		t.Error("Monday without events should be neither weekend nor event day")
	}
}

func TestComputePredictionNoCorrectionWithoutRecentSamples(t *testing.T) {
	// Two recent observations are below the minimum of three
	records := mondayHistory([]float64{30, 45, 60, 50, 40, 35, 55})
	records = append(records,
		stopRecord("recent", mondayTarget.Add(-40*time.Minute), 90),
		stopRecord("recent", mondayTarget.Add(-45*time.Minute), 90),
	)

	p := NewDelayPredictor(DefaultConfig(), records, nil)
	pred := p.ComputePrediction(mondayTarget, "U1", nil)
	if pred == nil {
		t.Fatal("expected a prediction")
	}
	if pred.Correction != 0 {
		t.Errorf("Correction = %v, expected 0 with too few recent samples", pred.Correction)
	}
	if pred.PointEstimate != pred.BaseEstimate {
		t.Errorf("point %v should equal base %v", pred.PointEstimate, pred.BaseEstimate)
	}
}

func TestComputePredictionInsufficientData(t *testing.T) {
	// Four matching records, one short of the minimum
	records := mondayHistory([]float64{30, 45, 60, 50})

	p := NewDelayPredictor(DefaultConfig(), records, nil)
	if pred := p.ComputePrediction(mondayTarget, "U1", nil); pred != nil {
		t.Errorf("expected nil with 4 samples, got %+v", pred)
	}

	// Wrong stop and wrong hour must not match either
	records = mondayHistory([]float64{30, 45, 60, 50, 40, 35, 55})
	p = NewDelayPredictor(DefaultConfig(), records, nil)
	if pred := p.ComputePrediction(mondayTarget, "U999", nil); pred != nil {
		t.Error("expected nil for unknown stop")
	}
	if pred := p.ComputePrediction(mondayTarget.Add(3*time.Hour), "U1", nil); pred != nil {
		t.Error("expected nil for an hour bucket with no history")
	}
}

func TestComputePredictionDirectionFilter(t *testing.T) {
	records := mondayHistory([]float64{30, 45, 60, 50, 40, 35, 55})
	for i := range records {
		records[i].DirectionID = 1
	}

	p := NewDelayPredictor(DefaultConfig(), records, nil)
	otherDirection := 0
	if pred := p.ComputePrediction(mondayTarget, "U1", &otherDirection); pred != nil {
		t.Error("expected nil for the unobserved direction")
	}
	sameDirection := 1
	if pred := p.ComputePrediction(mondayTarget, "U1", &sameDirection); pred == nil {
		t.Error("expected a prediction for the observed direction")
	}
}

func TestZeroDepartureRecordsDropped(t *testing.T) {
	records := mondayHistory([]float64{30, 45, 60, 50, 40})
	records = append(records, transit.StopTimeRecord{
		TripID: "bad", StopID: "U1Z1", BaseStopID: "U1", DepartureDelaySec: 999,
	})

	p := NewDelayPredictor(DefaultConfig(), records, nil)
	pred := p.ComputePrediction(mondayTarget, "U1", nil)
	if pred == nil {
		t.Fatal("expected a prediction")
	}
	if pred.SampleSize != 5 {
		t.Errorf("SampleSize = %d, expected 5 (zero-departure row dropped)", pred.SampleSize)
	}
}

func TestEventDayFlag(t *testing.T) {
	records := mondayHistory([]float64{30, 45, 60, 50, 40, 35, 55})
	events := []transit.EventRecord{
		{Kickoff: mondayTarget.Add(10 * time.Hour), Opponent: "Slavia", IsHome: true},
	}

	withEvents := NewDelayPredictor(DefaultConfig(), records, events)
	pred := withEvents.ComputePrediction(mondayTarget, "U1", nil)
	if pred == nil || !pred.IsEventDay {
		t.Fatal("target on an event date should be flagged")
	}

	withoutEvents := NewDelayPredictor(DefaultConfig(), records, nil)
	plain := withoutEvents.ComputePrediction(mondayTarget, "U1", nil)
	if plain == nil || plain.IsEventDay {
		t.Fatal("target without events should not be flagged")
	}
	// Event day can only lower the reliability, everything else equal
	if pred.Reliability > plain.Reliability {
		t.Errorf("event-day reliability %v should not exceed plain %v",
			pred.Reliability, plain.Reliability)
	}
}

func TestWeightedScorer(t *testing.T) {
	scorer := DefaultScorer()

	base := ReliabilityInput{PointEstimate: 60, MarginError: 5, SampleSize: 30}

	plain := scorer.Score(base)

	peak := base
	peak.IsPeakHour = true
	if got := scorer.Score(peak); got >= plain {
		t.Errorf("peak score %v should be below off-peak %v", got, plain)
	}

	event := base
	event.IsEventDay = true
	if got := scorer.Score(event); got >= plain {
		t.Errorf("event score %v should be below plain %v", got, plain)
	}

	both := peak
	both.IsEventDay = true
	if got := scorer.Score(both); got >= scorer.Score(peak) {
		t.Errorf("stacked penalties should score below a single one")
	}

	small := base
	small.SampleSize = 3
	if got := scorer.Score(small); got >= plain {
		t.Errorf("small sample score %v should be below saturated %v", got, plain)
	}

	wide := base
	wide.MarginError = 100
	if got := scorer.Score(wide); got >= plain {
		t.Errorf("wide interval score %v should be below tight %v", got, plain)
	}

	// Scores stay in [0, 100] with one decimal
	for _, in := range []ReliabilityInput{base, peak, event, both, small, wide} {
		got := scorer.Score(in)
		if got < 0 || got > 100 {
			t.Errorf("score %v out of range", got)
		}
		if math.Abs(got*10-math.Round(got*10)) > 1e-9 {
			t.Errorf("score %v not rounded to one decimal", got)
		}
	}
}

func TestWeeklyPredictions(t *testing.T) {
	records := mondayHistory([]float64{30, 45, 60, 50, 40, 35, 55})
	p := NewDelayPredictor(DefaultConfig(), records, nil)

	// Start mid-week so the Monday 08:00 bucket falls inside the horizon
	start := time.Date(2024, 3, 13, 9, 17, 0, 0, time.UTC)
	preds := p.WeeklyPredictions(start, "U1", nil, time.Hour, 0)
	if len(preds) != 1 {
		t.Fatalf("expected exactly the Monday 08:00 step, got %d", len(preds))
	}
	pred := preds[0]
	if pred.Target.Hour() != 8 || pred.Target.Weekday() != time.Monday {
		t.Errorf("Target = %v, expected a Monday 08:00 step", pred.Target)
	}
	if pred.DayName != "Monday" {
		t.Errorf("DayName = %q, expected Monday", pred.DayName)
	}
	if pred.TimePeriod != "Morning Peak" {
		t.Errorf("TimePeriod = %q, expected Morning Peak", pred.TimePeriod)
	}

	// An unreachable reliability floor filters everything out
	if got := p.WeeklyPredictions(start, "U1", nil, time.Hour, 101); len(got) != 0 {
		t.Errorf("expected no predictions above reliability 101, got %d", len(got))
	}
}

func TestShortTermPredictionsSkipEmptySteps(t *testing.T) {
	records := mondayHistory([]float64{30, 45, 60, 50, 40, 35, 55})
	p := NewDelayPredictor(DefaultConfig(), records, nil)

	// 3-hour walk from 07:00 covers 08:00-08:45 steps with history
	start := time.Date(2024, 3, 11, 7, 0, 0, 0, time.UTC)
	preds := p.ShortTermPredictions(start, "U1", nil, 15*time.Minute, 3*time.Hour)
	if len(preds) != 4 {
		t.Fatalf("expected 4 populated steps, got %d", len(preds))
	}
	for _, pred := range preds {
		if pred.Target.Hour() != 8 {
			t.Errorf("unexpected step at %v", pred.Target)
		}
	}
}

func TestNextStop(t *testing.T) {
	base := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)
	records := []transit.StopTimeRecord{
		{TripID: "t1", StopID: "U1Z1", BaseStopID: "U1", StopSequence: 1, ScheduledDeparture: base},
		{TripID: "t1", StopID: "U2Z1", BaseStopID: "U2", StopName: "Stadion", StopSequence: 2, ScheduledDeparture: base.Add(2 * time.Minute)},
		{TripID: "t2", StopID: "U1Z1", BaseStopID: "U1", StopSequence: 1, ScheduledDeparture: base.Add(10 * time.Minute)},
		{TripID: "t2", StopID: "U2Z1", BaseStopID: "U2", StopName: "Stadion", StopSequence: 2, ScheduledDeparture: base.Add(12 * time.Minute)},
		{TripID: "t3", StopID: "U1Z1", BaseStopID: "U1", StopSequence: 1, ScheduledDeparture: base.Add(20 * time.Minute)},
		{TripID: "t3", StopID: "U3Z1", BaseStopID: "U3", StopName: "Nadrazi", StopSequence: 2, ScheduledDeparture: base.Add(22 * time.Minute)},
	}

	p := NewDelayPredictor(DefaultConfig(), records, nil)

	// U2 follows twice, U3 once
	if got := p.NextStop("U1", 0); got != "Stadion" {
		t.Errorf("NextStop = %q, expected Stadion", got)
	}
	if got := p.NextStop("U1", 1); got != "" {
		t.Errorf("NextStop for unobserved direction = %q, expected empty", got)
	}
	if got := p.NextStop("U999", 0); got != "" {
		t.Errorf("NextStop for unknown stop = %q, expected empty", got)
	}
}

func TestBaseStops(t *testing.T) {
	records := mondayHistory([]float64{30, 45, 60})
	records = append(records, transit.StopTimeRecord{
		TripID: "x", StopID: "U2Z1", BaseStopID: "U2",
		ScheduledDeparture: mondayTarget,
	})

	p := NewDelayPredictor(DefaultConfig(), records, nil)
	stops := p.BaseStops()
	if len(stops) != 2 || stops[0] != "U1" || stops[1] != "U2" {
		t.Errorf("BaseStops = %v, expected [U1 U2]", stops)
	}
}

func TestSessionSnapshot(t *testing.T) {
	records := mondayHistory([]float64{30, 45, 60, 50, 40, 35, 55})
	s1 := NewSession(DefaultConfig(), records, nil)
	s2 := NewSession(DefaultConfig(), records, nil)

	if s1.ID == "" || s1.ID == s2.ID {
		t.Error("sessions over the same data must still get distinct IDs")
	}
	if s1.RecordCount() != len(records) {
		t.Errorf("RecordCount = %d, expected %d", s1.RecordCount(), len(records))
	}
	if s1.Delay == nil || s1.Segment == nil {
		t.Fatal("session should carry both predictors")
	}
}
