package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/sandovabarbora/golemio-public-transportation/internal/transit"
)

// ParseEvents reads the semicolon-delimited match schedule. Columns after
// the header row: round (ignored), location ("d" = home), date (dd.mm.yyyy),
// kickoff time (HH:MM), opponent. Rows with an unparseable date or time are
// dropped, not defaulted.
func ParseEvents(r io.Reader) ([]transit.EventRecord, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	// Skip the header row.
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var events []transit.EventRecord
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
		if len(row) < 4 {
			dropped++
			continue
		}

		date, dateErr := time.Parse("02.01.2006", strings.TrimSpace(row[2]))
		kickoff, timeErr := time.Parse("15:04", strings.TrimSpace(row[3]))
		if dateErr != nil || timeErr != nil {
			dropped++
			continue
		}

		opponent := "TBD"
		if len(row) > 4 && strings.TrimSpace(row[4]) != "" {
			opponent = strings.TrimSpace(row[4])
		}

		events = append(events, transit.EventRecord{
			Kickoff: time.Date(date.Year(), date.Month(), date.Day(),
				kickoff.Hour(), kickoff.Minute(), 0, 0, time.UTC),
			Opponent: opponent,
			IsHome:   strings.EqualFold(strings.TrimSpace(row[1]), "d"),
		})
	}

	if dropped > 0 {
		log.Printf("Events: dropped %d rows with unparseable date/time", dropped)
	}
	return events, nil
}
