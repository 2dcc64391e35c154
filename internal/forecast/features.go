// Package forecast holds the trained delay model: a bagged ensemble of
// regression trees over calendar/stop features, with confidence bounds taken
// from the spread of per-tree predictions.
package forecast

import (
	"fmt"
	"hash/fnv"
	"sort"
	"time"

	"github.com/sandovabarbora/golemio-public-transportation/internal/transit"
)

// UnknownCategory is the reserved index for labels not seen at training
// time.
const UnknownCategory = 0

// CategoryTable is an explicit, versioned mapping from category labels to
// feature indexes. It is a pure function of the training data: building it
// twice from the same labels yields the same table and version. Unseen
// labels map to UnknownCategory at prediction time instead of mutating the
// table.
type CategoryTable struct {
	version string
	indexes map[string]int
	labels  []string
}

// BuildCategoryTable constructs the table from the training labels.
// Duplicates are collapsed and ordering does not matter.
func BuildCategoryTable(labels []string) *CategoryTable {
	uniq := make(map[string]bool, len(labels))
	for _, l := range labels {
		if l != "" {
			uniq[l] = true
		}
	}
	sorted := make([]string, 0, len(uniq))
	for l := range uniq {
		sorted = append(sorted, l)
	}
	sort.Strings(sorted)

	h := fnv.New64a()
	indexes := make(map[string]int, len(sorted))
	for i, l := range sorted {
		indexes[l] = i + 1 // 0 is reserved for unknown
		h.Write([]byte(l))
		h.Write([]byte{0})
	}

	return &CategoryTable{
		version: fmt.Sprintf("%016x", h.Sum64()),
		indexes: indexes,
		labels:  sorted,
	}
}

// Version identifies the exact label set the table was built from.
func (t *CategoryTable) Version() string {
	return t.version
}

// Index maps a label to its feature index, UnknownCategory for unseen ones.
func (t *CategoryTable) Index(label string) int {
	if i, ok := t.indexes[label]; ok {
		return i
	}
	return UnknownCategory
}

// Labels returns the known labels in index order (excluding unknown).
func (t *CategoryTable) Labels() []string {
	return t.labels
}

// FeatureNames lists the model features in vector order.
var FeatureNames = []string{
	"hour",
	"minute",
	"weekday",
	"is_weekend",
	"is_peak_hour",
	"time_of_day",
	"stop_index",
	"is_match_day",
	"minutes_to_kickoff",
}

// noKickoffMinutes is the sentinel distance used on days without a match.
const noKickoffMinutes = 720

// kickoffByDate indexes the first kickoff per calendar date.
func kickoffByDate(events []transit.EventRecord) map[time.Time]time.Time {
	out := make(map[time.Time]time.Time, len(events))
	for i := range events {
		d := events[i].Date()
		if _, ok := out[d]; !ok {
			out[d] = events[i].Kickoff.UTC()
		}
	}
	return out
}

// featureVector encodes one (departure, stop) pair.
func featureVector(departure time.Time, stopIndex int, kickoffs map[time.Time]time.Time) []float64 {
	dep := transit.NormalizeUTC(departure)
	hour := dep.Hour()
	minute := dep.Minute()
	weekday := transit.WeekdayIndex(dep)

	isWeekend, isPeak, isMatch := 0.0, 0.0, 0.0
	if transit.IsWeekend(weekday) {
		isWeekend = 1
	}
	if transit.IsPeakHour(hour) {
		isPeak = 1
	}

	minutesToKickoff := float64(noKickoffMinutes)
	if kickoff, ok := kickoffs[transit.DateOf(dep)]; ok {
		isMatch = 1
		minutesToKickoff = float64(hour*60+minute) - float64(kickoff.Hour()*60+kickoff.Minute())
	}

	return []float64{
		float64(hour),
		float64(minute),
		float64(weekday),
		isWeekend,
		isPeak,
		float64(hour) + float64(minute)/60,
		float64(stopIndex),
		isMatch,
		minutesToKickoff,
	}
}
