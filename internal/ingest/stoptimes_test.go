package ingest

import (
	"strings"
	"testing"
	"time"
)

const stopTimesHeader = "rt_trip_id,gtfs_stop_id,gtfs_stop_sequence,current_stop_departure,current_stop_arrival,current_stop_dep_delay,current_stop_arr_delay,gtfs_route_short_name,gtfs_direction_id,stop_name"

func TestParseStopTimes(t *testing.T) {
	csv := stopTimesHeader + "\n" +
		"trip-1,U118Z2P,3,2024-03-04T08:02:00Z,2024-03-04T08:01:30Z,120,90,22,1,Hradcanska\n" +
		"trip-1,U100S3,4,2024-03-04 08:05:00,,60,,22,1,Malostranska\n"

	records, err := ParseStopTimes(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.TripID != "trip-1" || first.StopID != "U118Z2P" {
		t.Errorf("first record identity wrong: %+v", first)
	}
	if first.BaseStopID != "U118" {
		t.Errorf("BaseStopID = %q, expected U118", first.BaseStopID)
	}
	if first.StopSequence != 3 || first.DirectionID != 1 {
		t.Errorf("sequence/direction wrong: %+v", first)
	}
	if first.DepartureDelaySec != 120 {
		t.Errorf("DepartureDelaySec = %v", first.DepartureDelaySec)
	}
	if first.ArrivalDelaySec == nil || *first.ArrivalDelaySec != 90 {
		t.Errorf("ArrivalDelaySec = %v, expected 90", first.ArrivalDelaySec)
	}
	if first.StopName != "Hradcanska" {
		t.Errorf("StopName = %q", first.StopName)
	}
	expected := time.Date(2024, 3, 4, 8, 2, 0, 0, time.UTC)
	if !first.ScheduledDeparture.Equal(expected) {
		t.Errorf("ScheduledDeparture = %v, expected %v", first.ScheduledDeparture, expected)
	}

	// Second row uses the space-separated layout and has no arrival data
	second := records[1]
	if second.ArrivalDelaySec != nil {
		t.Errorf("missing arrival delay should stay nil, got %v", *second.ArrivalDelaySec)
	}
	if !second.ScheduledArrival.IsZero() {
		t.Errorf("missing arrival should stay zero, got %v", second.ScheduledArrival)
	}
}

func TestParseStopTimesMissingColumn(t *testing.T) {
	// No current_stop_departure column
	csv := "rt_trip_id,gtfs_stop_id,gtfs_stop_sequence,current_stop_dep_delay,gtfs_route_short_name,gtfs_direction_id\n" +
		"trip-1,U1Z1,1,60,22,0\n"

	_, err := ParseStopTimes(strings.NewReader(csv))
	if err == nil {
		t.Fatal("expected an error for a missing required column")
	}
	if !strings.Contains(err.Error(), "current_stop_departure") {
		t.Errorf("error should name the missing column: %v", err)
	}
}

func TestParseStopTimesDropsBadTimestamps(t *testing.T) {
	csv := stopTimesHeader + "\n" +
		"trip-1,U1Z1,1,not-a-time,,60,,22,0,\n" +
		"trip-1,U2Z1,2,,,60,,22,0,\n" +
		"trip-1,U3Z1,3,2024-03-04T08:10:00Z,,60,,22,0,\n"

	records, err := ParseStopTimes(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected only the valid row, got %d", len(records))
	}
	if records[0].StopID != "U3Z1" {
		t.Errorf("surviving row = %q, expected U3Z1", records[0].StopID)
	}
}

func TestParseStopTimesHeaderNormalization(t *testing.T) {
	// Mixed case and stray spaces in the header are tolerated
	csv := "RT_Trip_ID, GTFS_STOP_ID ,gtfs_stop_sequence,Current_Stop_Departure,current_stop_dep_delay,gtfs_route_short_name,gtfs_direction_id\n" +
		"trip-1,U1Z1,1,2024-03-04T08:00:00Z,30,22,0\n"

	records, err := ParseStopTimes(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
}
