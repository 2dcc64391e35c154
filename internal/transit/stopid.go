package transit

import (
	"strings"
	"time"
)

// directionMarkers are the characters that separate the physical-stop part of
// a Golemio stop ID from its directional suffix (e.g. "U118Z2P" -> "U118").
const directionMarkers = "SZ"

// BaseStopID truncates a raw stop ID at its first direction marker, merging
// both-direction variants of a stop into one identifier. IDs without a marker
// are returned unchanged.
func BaseStopID(rawStopID string) string {
	if i := strings.IndexAny(rawStopID, directionMarkers); i >= 0 {
		return rawStopID[:i]
	}
	return rawStopID
}

// SegmentID joins two raw stop IDs into a full segment key.
func SegmentID(previousStopID, currentStopID string) string {
	return previousStopID + "_" + currentStopID
}

// ShortSegmentID joins the base forms of two stop IDs, giving a key that is
// stable across the directional variants of the same physical segment.
func ShortSegmentID(previousStopID, currentStopID string) string {
	return BaseStopID(previousStopID) + "_" + BaseStopID(currentStopID)
}

// Peak hours are a fixed policy: 07:00-09:59 and 16:00-18:59.
func IsPeakHour(hour int) bool {
	return (hour >= 7 && hour <= 9) || (hour >= 16 && hour <= 18)
}

// IsWeekend reports whether the weekday index (Monday=0) falls on a weekend.
func IsWeekend(weekday int) bool {
	return weekday == 5 || weekday == 6
}

// WeekdayIndex maps a timestamp to the Monday=0..Sunday=6 convention used
// throughout the history dataset.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// NormalizeUTC coerces a timestamp to UTC. The history dataset carries no
// local-time semantics, so a timestamp in any zone is converted rather than
// rejected.
func NormalizeUTC(t time.Time) time.Time {
	return t.UTC()
}

// DateOf truncates a timestamp to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
