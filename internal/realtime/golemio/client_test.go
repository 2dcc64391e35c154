package golemio

import (
	"testing"
	"time"

	"google.golang.org/protobuf/proto"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
)

func feedEntity(tripID, stopID string, seq uint32, depTime int64, depDelay int32) *gtfs.FeedEntity {
	id := tripID + ":" + stopID
	return &gtfs.FeedEntity{
		Id: proto.String(id),
		TripUpdate: &gtfs.TripUpdate{
			Trip: &gtfs.TripDescriptor{
				TripId:      proto.String(tripID),
				RouteId:     proto.String("22"),
				DirectionId: proto.Uint32(1),
			},
			StopTimeUpdate: []*gtfs.TripUpdate_StopTimeUpdate{
				{
					StopId:       proto.String(stopID),
					StopSequence: proto.Uint32(seq),
					Departure: &gtfs.TripUpdate_StopTimeEvent{
						Time:  proto.Int64(depTime),
						Delay: proto.Int32(depDelay),
					},
				},
			},
		},
	}
}

func TestRecordsFromFeed(t *testing.T) {
	depTime := time.Date(2024, 3, 4, 8, 2, 0, 0, time.UTC)

	feed := &gtfs.FeedMessage{
		Entity: []*gtfs.FeedEntity{
			feedEntity("trip-1", "U123S2", 3, depTime.Unix(), 120),
		},
	}

	records := RecordsFromFeed(feed)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	rec := records[0]
	if rec.TripID != "trip-1" {
		t.Errorf("TripID = %q, expected trip-1", rec.TripID)
	}
	if rec.BaseStopID != "U123" {
		t.Errorf("BaseStopID = %q, expected U123", rec.BaseStopID)
	}
	if rec.StopSequence != 3 {
		t.Errorf("StopSequence = %d, expected 3", rec.StopSequence)
	}
	if rec.DepartureDelaySec != 120 {
		t.Errorf("DepartureDelaySec = %v, expected 120", rec.DepartureDelaySec)
	}
	// Scheduled departure is the predicted time minus the delay
	expected := depTime.Add(-2 * time.Minute)
	if !rec.ScheduledDeparture.Equal(expected) {
		t.Errorf("ScheduledDeparture = %v, expected %v", rec.ScheduledDeparture, expected)
	}
	if rec.RouteShortName != "22" || rec.DirectionID != 1 {
		t.Errorf("trip descriptor not carried over: route=%q direction=%d", rec.RouteShortName, rec.DirectionID)
	}
}

func TestRecordsFromFeedDropsIncompleteUpdates(t *testing.T) {
	depTime := time.Now().UTC().Unix()

	// No departure event at all
	noDeparture := feedEntity("trip-2", "U5Z1", 1, depTime, 0)
	noDeparture.TripUpdate.StopTimeUpdate[0].Departure = nil

	// Departure time without a delay
	noDelay := feedEntity("trip-3", "U6Z1", 1, depTime, 0)
	noDelay.TripUpdate.StopTimeUpdate[0].Departure.Delay = nil

	// Missing trip descriptor
	noTrip := feedEntity("trip-4", "U7Z1", 1, depTime, 60)
	noTrip.TripUpdate.Trip = nil

	feed := &gtfs.FeedMessage{
		Entity: []*gtfs.FeedEntity{
			noDeparture, noDelay, noTrip,
			feedEntity("trip-5", "U8Z1", 1, depTime, 60),
		},
	}

	records := RecordsFromFeed(feed)
	if len(records) != 1 {
		t.Fatalf("expected only the complete update to survive, got %d records", len(records))
	}
	if records[0].TripID != "trip-5" {
		t.Errorf("surviving record TripID = %q, expected trip-5", records[0].TripID)
	}
}
