// Package ingest parses the tabular inputs of the analytics core: the
// Golemio stop-times history export, the match schedule CSV and the stops
// metadata from the Golemio API. Rows with unparseable timestamps are
// dropped here so the downstream packages can assume valid times.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/sandovabarbora/golemio-public-transportation/internal/transit"
)

// Required columns of the stop-times export. A missing column is a contract
// violation with the exporter and fails loudly.
var stopTimeColumns = []string{
	"rt_trip_id",
	"gtfs_stop_id",
	"gtfs_stop_sequence",
	"current_stop_departure",
	"current_stop_dep_delay",
	"gtfs_route_short_name",
	"gtfs_direction_id",
}

// timeLayouts are the timestamp formats seen in history exports.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseStopTimes reads a stop-times CSV export. Rows whose departure
// timestamp does not parse are skipped; their count is logged once at the
// end. The base stop ID is derived from the raw stop ID.
func ParseStopTimes(r io.Reader) ([]transit.StopTimeRecord, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	idx := makeIndex(header)
	for _, col := range stopTimeColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("stop times export missing required column %q", col)
		}
	}

	var records []transit.StopTimeRecord
	dropped := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			dropped++
			continue
		}

		departure, ok := parseTimestamp(getField(row, idx, "current_stop_departure"))
		if !ok {
			dropped++
			continue
		}

		rawStopID := getField(row, idx, "gtfs_stop_id")
		rec := transit.StopTimeRecord{
			TripID:             getField(row, idx, "rt_trip_id"),
			StopID:             rawStopID,
			BaseStopID:         transit.BaseStopID(rawStopID),
			StopName:           getField(row, idx, "stop_name"),
			StopSequence:       parseIntDefault(getField(row, idx, "gtfs_stop_sequence"), 0),
			ScheduledDeparture: departure,
			DepartureDelaySec:  parseFloatDefault(getField(row, idx, "current_stop_dep_delay"), 0),
			RouteShortName:     getField(row, idx, "gtfs_route_short_name"),
			DirectionID:        parseIntDefault(getField(row, idx, "gtfs_direction_id"), 0),
		}
		if arrival, ok := parseTimestamp(getField(row, idx, "current_stop_arrival")); ok {
			rec.ScheduledArrival = arrival
		}
		if s := getField(row, idx, "current_stop_arr_delay"); s != "" {
			if v, err := strconv.ParseFloat(s, 64); err == nil {
				rec.ArrivalDelaySec = &v
			}
		}
		records = append(records, rec)
	}

	if dropped > 0 {
		log.Printf("Stop times: dropped %d rows with unparseable timestamps", dropped)
	}
	return records, nil
}

func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseIntDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func parseFloatDefault(s string, def float64) float64 {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return def
}

func makeIndex(header []string) map[string]int {
	idx := make(map[string]int)
	for i, h := range header {
		idx[strings.TrimSpace(strings.ToLower(h))] = i
	}
	return idx
}

func getField(record []string, idx map[string]int, field string) string {
	if i, ok := idx[field]; ok && i < len(record) {
		return strings.TrimSpace(record[i])
	}
	return ""
}
