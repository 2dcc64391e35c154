package db

import (
	"context"
	"fmt"
	"time"

	"github.com/sandovabarbora/golemio-public-transportation/internal/transit"
)

// UpsertEvents inserts or updates the match schedule, keyed by kickoff time.
func (db *DB) UpsertEvents(ctx context.Context, events []transit.EventRecord) error {
	if len(events) == 0 {
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
		INSERT INTO events (kickoff_utc, opponent, is_home)
		VALUES (?, ?, ?)
		ON CONFLICT (kickoff_utc) DO UPDATE SET
			opponent = excluded.opponent,
			is_home = excluded.is_home
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare event upsert: %w", err)
	}
	defer stmt.Close()

	for i := range events {
		e := &events[i]
		isHome := 0
		if e.IsHome {
			isHome = 1
		}
		_, err := stmt.ExecContext(ctx, e.Kickoff.UTC().Format(time.RFC3339), e.Opponent, isHome)
		if err != nil {
			return fmt.Errorf("failed to upsert event %s: %w", e.Kickoff, err)
		}
	}
	return tx.Commit()
}

// LoadEvents reads the full match schedule ordered by kickoff.
func (db *DB) LoadEvents(ctx context.Context) ([]transit.EventRecord, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT kickoff_utc, opponent, is_home FROM events ORDER BY kickoff_utc")
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []transit.EventRecord
	for rows.Next() {
		var kickoffStr string
		var e transit.EventRecord
		var isHome int
		if err := rows.Scan(&kickoffStr, &e.Opponent, &isHome); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		kickoff, err := time.Parse(time.RFC3339, kickoffStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt kickoff timestamp %q: %w", kickoffStr, err)
		}
		e.Kickoff = kickoff
		e.IsHome = isHome == 1
		events = append(events, e)
	}
	return events, rows.Err()
}
