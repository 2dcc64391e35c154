package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sandovabarbora/golemio-public-transportation/internal/transit"
)

// UpsertStops inserts or updates stop metadata.
func (db *DB) UpsertStops(ctx context.Context, stops []transit.StopMetadata) error {
	if len(stops) == 0 {
		return nil
	}

	db.LockWrite()
	defer db.UnlockWrite()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stops (base_stop_id, stop_name, latitude, longitude, raw_stop_ids, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (base_stop_id) DO UPDATE SET
			stop_name = excluded.stop_name,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			raw_stop_ids = excluded.raw_stop_ids,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare stop upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for i := range stops {
		s := &stops[i]
		rawIDs, err := json.Marshal(s.RawStopIDs)
		if err != nil {
			return fmt.Errorf("failed to encode raw stop ids for %s: %w", s.BaseStopID, err)
		}
		_, err = stmt.ExecContext(ctx, s.BaseStopID, s.Name, s.Latitude, s.Longitude, string(rawIDs), now)
		if err != nil {
			return fmt.Errorf("failed to upsert stop %s: %w", s.BaseStopID, err)
		}
	}
	return tx.Commit()
}

// LoadStops reads all stop metadata ordered by base stop ID.
func (db *DB) LoadStops(ctx context.Context) ([]transit.StopMetadata, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT base_stop_id, stop_name, latitude, longitude, raw_stop_ids FROM stops ORDER BY base_stop_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query stops: %w", err)
	}
	defer rows.Close()

	var stops []transit.StopMetadata
	for rows.Next() {
		var s transit.StopMetadata
		var rawIDs string
		if err := rows.Scan(&s.BaseStopID, &s.Name, &s.Latitude, &s.Longitude, &rawIDs); err != nil {
			return nil, fmt.Errorf("failed to scan stop: %w", err)
		}
		if err := json.Unmarshal([]byte(rawIDs), &s.RawStopIDs); err != nil {
			return nil, fmt.Errorf("corrupt raw stop ids for %s: %w", s.BaseStopID, err)
		}
		stops = append(stops, s)
	}
	return stops, rows.Err()
}
