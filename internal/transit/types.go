package transit

import "time"

// StopTimeRecord is one observed vehicle event at a stop, as exported by the
// Golemio vehicle positions history. Scheduled times come from the static
// timetable; the delays are the signed offsets actually observed (positive
// means late).
type StopTimeRecord struct {
	TripID             string
	StopID             string
	BaseStopID         string
	StopName           string
	StopSequence       int
	ScheduledDeparture time.Time
	ScheduledArrival   time.Time
	DepartureDelaySec  float64
	ArrivalDelaySec    *float64
	RouteShortName     string
	DirectionID        int
}

// RealDeparture is the observed departure: scheduled plus the signed delay.
func (r *StopTimeRecord) RealDeparture() time.Time {
	return r.ScheduledDeparture.Add(time.Duration(r.DepartureDelaySec * float64(time.Second)))
}

// RealArrival is the observed arrival. When no arrival delay was reported the
// departure-delay-adjusted value is used instead.
func (r *StopTimeRecord) RealArrival() time.Time {
	if r.ArrivalDelaySec != nil && !r.ScheduledArrival.IsZero() {
		return r.ScheduledArrival.Add(time.Duration(*r.ArrivalDelaySec * float64(time.Second)))
	}
	return r.RealDeparture()
}

// StopMetadata describes one physical stop cluster. Multiple raw stop IDs
// (one per platform/direction) aggregate into a single base stop with
// averaged coordinates.
type StopMetadata struct {
	BaseStopID string
	Name       string
	Latitude   float64
	Longitude  float64
	RawStopIDs []string
}

// EventRecord is a scheduled match that may influence transport demand.
type EventRecord struct {
	Kickoff  time.Time
	Opponent string
	IsHome   bool
}

// Date returns the event's calendar date in UTC.
func (e *EventRecord) Date() time.Time {
	y, m, d := e.Kickoff.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Segment is a directed edge between two consecutive stops on one trip.
// FullID concatenates the raw stop IDs; ShortID concatenates the base stop
// IDs so that delay statistics for the same physical segment can be
// aggregated across directional stop variants.
type Segment struct {
	TripID         string
	PreviousStopID string
	CurrentStopID  string
	FullID         string
	ShortID        string
}
