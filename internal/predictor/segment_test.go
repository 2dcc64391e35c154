package predictor

import (
	"testing"
	"time"

	"github.com/sandovabarbora/golemio-public-transportation/internal/transit"
)

// segmentHistory builds one two-stop trip per week, all in the Monday 08:00
// bucket, with the given realized travel times in seconds.
func segmentHistory(travelSecs []float64) []transit.StopTimeRecord {
	var records []transit.StopTimeRecord
	for i, travel := range travelSecs {
		dep := mondayTarget.AddDate(0, 0, -7*(i+1))
		tripID := dep.Format("2006-01-02")

		first := transit.StopTimeRecord{
			TripID: tripID, StopID: "U1Z1", BaseStopID: "U1", StopSequence: 1,
			ScheduledDeparture: dep,
		}
		second := transit.StopTimeRecord{
			TripID: tripID, StopID: "U2Z1", BaseStopID: "U2", StopSequence: 2,
			ScheduledDeparture: dep.Add(time.Duration(travel) * time.Second),
		}
		records = append(records, first, second)
	}
	return records
}

func TestSegmentPredictor(t *testing.T) {
	p := NewSegmentPredictor(DefaultConfig(), segmentHistory([]float64{280, 300, 320, 290, 310}), nil)

	ids := p.ShortSegmentIDs()
	if len(ids) != 1 || ids[0] != "U1_U2" {
		t.Fatalf("ShortSegmentIDs = %v, expected [U1_U2]", ids)
	}

	pred := p.ComputePrediction(mondayTarget, "U1_U2", nil)
	if pred == nil {
		t.Fatal("expected a travel time prediction")
	}
	if pred.SampleSize != 5 {
		t.Errorf("SampleSize = %d, expected 5", pred.SampleSize)
	}
	if pred.BaseEstimate != 300 {
		t.Errorf("BaseEstimate = %v, expected 300", pred.BaseEstimate)
	}

	if got := p.ComputePrediction(mondayTarget, "U2_U3", nil); got != nil {
		t.Error("expected nil for an unknown segment")
	}
}

func TestSegmentPredictorInsufficientData(t *testing.T) {
	p := NewSegmentPredictor(DefaultConfig(), segmentHistory([]float64{280, 300, 320}), nil)
	if pred := p.ComputePrediction(mondayTarget, "U1_U2", nil); pred != nil {
		t.Errorf("expected nil with 3 traversals, got %+v", pred)
	}
}
