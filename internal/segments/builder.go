// Package segments derives stop-to-stop edges and realized travel times from
// ordered stop-time history. It is the preprocessing step behind the
// segment-level travel-time predictor.
package segments

import (
	"sort"
	"time"

	"github.com/sandovabarbora/golemio-public-transportation/internal/transit"
)

// TravelTime is a stop-time record annotated with its inbound segment: the
// edge from the previous stop of the same trip to this one. The first record
// of a trip has no previous stop, so its segment fields stay empty and its
// travel times nil.
type TravelTime struct {
	transit.StopTimeRecord

	PreviousStopID string
	SectionID      string
	ShortSectionID string

	RealDeparture time.Time
	RealArrival   time.Time

	// Seconds spent between the previous stop's departure and this stop's
	// arrival, observed and scheduled. Nil for the first record of a trip.
	RealTravelSec    *float64
	PlannedTravelSec *float64
}

// sortByTripSequence orders records by (trip, stop sequence), the canonical
// order for adjacent-pair extraction.
func sortByTripSequence(records []transit.StopTimeRecord) []transit.StopTimeRecord {
	sorted := make([]transit.StopTimeRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TripID != sorted[j].TripID {
			return sorted[i].TripID < sorted[j].TripID
		}
		return sorted[i].StopSequence < sorted[j].StopSequence
	})
	return sorted
}

// Build emits one Segment per consecutive stop pair of each trip, ordered by
// (trip, sequence). A trip with a single record produces no segments.
func Build(records []transit.StopTimeRecord) []transit.Segment {
	sorted := sortByTripSequence(records)

	var out []transit.Segment
	for i := 1; i < len(sorted); i++ {
		prev, curr := &sorted[i-1], &sorted[i]
		if prev.TripID != curr.TripID {
			continue
		}
		out = append(out, transit.Segment{
			TripID:         curr.TripID,
			PreviousStopID: prev.StopID,
			CurrentStopID:  curr.StopID,
			FullID:         transit.SegmentID(prev.StopID, curr.StopID),
			ShortID:        transit.ShortSegmentID(prev.StopID, curr.StopID),
		})
	}
	return out
}

// DeriveTravelTimes computes per-record real departure/arrival and the
// realized and planned transit times of the inbound segment. Output rows are
// ordered by (trip, sequence) and correspond 1:1 to the input records.
func DeriveTravelTimes(records []transit.StopTimeRecord) []TravelTime {
	sorted := sortByTripSequence(records)

	out := make([]TravelTime, 0, len(sorted))
	for i := range sorted {
		curr := &sorted[i]
		tt := TravelTime{
			StopTimeRecord: *curr,
			RealDeparture:  curr.RealDeparture(),
			RealArrival:    curr.RealArrival(),
		}

		if i > 0 && sorted[i-1].TripID == curr.TripID {
			prev := &sorted[i-1]
			tt.PreviousStopID = prev.StopID
			tt.SectionID = transit.SegmentID(prev.StopID, curr.StopID)
			tt.ShortSectionID = transit.ShortSegmentID(prev.StopID, curr.StopID)

			real := tt.RealArrival.Sub(prev.RealDeparture()).Seconds()
			tt.RealTravelSec = &real

			if !curr.ScheduledArrival.IsZero() {
				planned := curr.ScheduledArrival.Sub(prev.ScheduledDeparture).Seconds()
				tt.PlannedTravelSec = &planned
			}
		}

		out = append(out, tt)
	}
	return out
}

// SegmentSummary aggregates one segment of a single trip.
type SegmentSummary struct {
	SectionID        string
	PlannedStart     time.Time
	PlannedEnd       time.Time
	ActualStart      time.Time
	ActualEnd        time.Time
	PlannedTravelSec float64
	ActualTravelSec  float64
	StartDelaySec    float64
}

// SummarizeTrip reduces the derived travel times of one trip to a per-segment
// summary: planned vs. actual span and the delay at the segment start.
func SummarizeTrip(derived []TravelTime, tripID string) []SegmentSummary {
	byTrip := make(map[string]*TravelTime)
	for i := range derived {
		if derived[i].TripID == tripID && derived[i].PreviousStopID != "" {
			byTrip[derived[i].SectionID] = &derived[i]
		}
	}
	if len(byTrip) == 0 {
		return nil
	}

	// Walk the trip in order to keep the summaries in sequence.
	var out []SegmentSummary
	seen := make(map[string]bool)
	for i := range derived {
		tt := &derived[i]
		if tt.TripID != tripID || tt.PreviousStopID == "" || seen[tt.SectionID] {
			continue
		}
		seen[tt.SectionID] = true

		var prevSchedDep, prevRealDep time.Time
		for j := range derived {
			if derived[j].TripID == tripID && derived[j].StopID == tt.PreviousStopID {
				prevSchedDep = derived[j].ScheduledDeparture
				prevRealDep = derived[j].RealDeparture
				break
			}
		}

		s := SegmentSummary{
			SectionID:     tt.SectionID,
			PlannedStart:  prevSchedDep,
			PlannedEnd:    tt.ScheduledArrival,
			ActualStart:   prevRealDep,
			ActualEnd:     tt.RealArrival,
			StartDelaySec: prevRealDep.Sub(prevSchedDep).Seconds(),
		}
		s.PlannedTravelSec = s.PlannedEnd.Sub(s.PlannedStart).Seconds()
		s.ActualTravelSec = s.ActualEnd.Sub(s.ActualStart).Seconds()
		out = append(out, s)
	}
	return out
}
