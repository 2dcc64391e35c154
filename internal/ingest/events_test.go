package ingest

import (
	"strings"
	"testing"
	"time"
)

func TestParseEvents(t *testing.T) {
	csv := "kolo;misto;datum;cas;souper\n" +
		"1;d;10.08.2024;19:00;Slavia Praha\n" +
		"2;v;17.08.2024;15:30;Plzen\n" +
		"3;D;24.08.2024;20:00;\n"

	events, err := ParseEvents(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}

	first := events[0]
	expected := time.Date(2024, 8, 10, 19, 0, 0, 0, time.UTC)
	if !first.Kickoff.Equal(expected) {
		t.Errorf("Kickoff = %v, expected %v", first.Kickoff, expected)
	}
	if !first.IsHome {
		t.Error("location 'd' should mark a home match")
	}
	if first.Opponent != "Slavia Praha" {
		t.Errorf("Opponent = %q", first.Opponent)
	}

	if events[1].IsHome {
		t.Error("location 'v' should mark an away match")
	}

	// Case-insensitive home marker, missing opponent defaults to TBD
	third := events[2]
	if !third.IsHome {
		t.Error("location 'D' should mark a home match")
	}
	if third.Opponent != "TBD" {
		t.Errorf("Opponent = %q, expected TBD", third.Opponent)
	}
}

func TestParseEventsDropsBadRows(t *testing.T) {
	csv := "kolo;misto;datum;cas;souper\n" +
		"1;d;not-a-date;19:00;Slavia\n" +
		"2;d;10.08.2024;25:99;Slavia\n" +
		"3;d\n" +
		"4;d;10.08.2024;19:00;Slavia\n"

	events, err := ParseEvents(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected only the valid row, got %d", len(events))
	}
	if events[0].Opponent != "Slavia" {
		t.Errorf("surviving event = %+v", events[0])
	}
}

func TestEventDate(t *testing.T) {
	csv := "kolo;misto;datum;cas;souper\n" +
		"1;d;10.08.2024;19:00;Slavia\n"

	events, err := ParseEvents(strings.NewReader(csv))
	if err != nil || len(events) != 1 {
		t.Fatalf("setup failed: %v, %d events", err, len(events))
	}
	expected := time.Date(2024, 8, 10, 0, 0, 0, 0, time.UTC)
	if !events[0].Date().Equal(expected) {
		t.Errorf("Date = %v, expected %v", events[0].Date(), expected)
	}
}
