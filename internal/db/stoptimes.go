package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/sandovabarbora/golemio-public-transportation/internal/transit"
)

// Watermark returns the maximum scheduled departure timestamp present in the
// store, or the zero time when the store is empty. Incremental loads insert
// only rows strictly newer than the watermark, making re-ingestion of
// overlapping exports idempotent.
func (db *DB) Watermark(ctx context.Context) (time.Time, error) {
	var max sql.NullString
	err := db.conn.QueryRowContext(ctx,
		"SELECT MAX(current_stop_departure) FROM stop_times").Scan(&max)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read watermark: %w", err)
	}
	if !max.Valid || max.String == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, max.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse watermark %q: %w", max.String, err)
	}
	return t, nil
}

// InsertStopTimes appends records newer than the current watermark and
// returns how many rows were written. Duplicate keys within the batch are
// ignored rather than erroring.
func (db *DB) InsertStopTimes(ctx context.Context, records []transit.StopTimeRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	watermark, err := db.Watermark(ctx)
	if err != nil {
		return 0, err
	}

	db.LockWrite()
	defer db.UnlockWrite()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO stop_times (
			rt_trip_id, gtfs_stop_id, base_stop_id, stop_name,
			gtfs_stop_sequence, current_stop_departure, current_stop_arrival,
			current_stop_dep_delay, current_stop_arr_delay,
			gtfs_route_short_name, gtfs_direction_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i := range records {
		r := &records[i]
		dep := transit.NormalizeUTC(r.ScheduledDeparture)
		if !watermark.IsZero() && !dep.After(watermark) {
			continue
		}

		var arrival interface{}
		if !r.ScheduledArrival.IsZero() {
			arrival = transit.NormalizeUTC(r.ScheduledArrival).Format(time.RFC3339)
		}
		var arrDelay interface{}
		if r.ArrivalDelaySec != nil {
			arrDelay = *r.ArrivalDelaySec
		}

		res, err := stmt.ExecContext(ctx,
			r.TripID, r.StopID, r.BaseStopID, r.StopName,
			r.StopSequence, dep.Format(time.RFC3339), arrival,
			r.DepartureDelaySec, arrDelay,
			r.RouteShortName, r.DirectionID,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert stop time for trip %s: %w", r.TripID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit stop times: %w", err)
	}
	if inserted < len(records) {
		log.Printf("Stop times: inserted %d of %d rows (rest at or below watermark)", inserted, len(records))
	}
	return inserted, nil
}

// LoadStopTimes reads the full history ordered by (trip, sequence).
func (db *DB) LoadStopTimes(ctx context.Context) ([]transit.StopTimeRecord, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT rt_trip_id, gtfs_stop_id, base_stop_id, stop_name,
			gtfs_stop_sequence, current_stop_departure, current_stop_arrival,
			current_stop_dep_delay, current_stop_arr_delay,
			gtfs_route_short_name, gtfs_direction_id
		FROM stop_times
		ORDER BY rt_trip_id, gtfs_stop_sequence
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stop times: %w", err)
	}
	defer rows.Close()

	var records []transit.StopTimeRecord
	for rows.Next() {
		var r transit.StopTimeRecord
		var depStr string
		var arrStr sql.NullString
		var arrDelay sql.NullFloat64
		err := rows.Scan(&r.TripID, &r.StopID, &r.BaseStopID, &r.StopName,
			&r.StopSequence, &depStr, &arrStr,
			&r.DepartureDelaySec, &arrDelay,
			&r.RouteShortName, &r.DirectionID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stop time: %w", err)
		}

		r.ScheduledDeparture, err = time.Parse(time.RFC3339, depStr)
		if err != nil {
			// Stored timestamps are written by us; a bad one is corruption.
			return nil, fmt.Errorf("corrupt departure timestamp %q: %w", depStr, err)
		}
		if arrStr.Valid && arrStr.String != "" {
			if t, err := time.Parse(time.RFC3339, arrStr.String); err == nil {
				r.ScheduledArrival = t
			}
		}
		if arrDelay.Valid {
			v := arrDelay.Float64
			r.ArrivalDelaySec = &v
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
