package db

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Cleanup deletes raw stop-time history and hourly aggregates older than the
// retention duration. Baselines are kept: they are the long-term memory.
func (db *DB) Cleanup(ctx context.Context, retention time.Duration) error {
	days := int(retention.Hours() / 24)
	if days < 1 {
		days = 1
	}

	db.LockWrite()
	defer db.UnlockWrite()

	queries := []struct {
		name  string
		query string
	}{
		{
			name:  "stop_times",
			query: fmt.Sprintf("DELETE FROM stop_times WHERE datetime(current_stop_departure) < datetime('now', '-%d days')", days),
		},
		{
			name:  "stats_delay_hourly",
			query: fmt.Sprintf("DELETE FROM stats_delay_hourly WHERE datetime(hour_bucket) < datetime('now', '-%d days')", days),
		},
	}

	totalDeleted := 0
	for _, q := range queries {
		result, err := db.conn.ExecContext(ctx, q.query)
		if err != nil {
			return fmt.Errorf("failed to cleanup %s: %w", q.name, err)
		}
		rows, _ := result.RowsAffected()
		totalDeleted += int(rows)
	}

	if totalDeleted > 0 {
		log.Printf("Cleanup: deleted %d records older than %d days", totalDeleted, days)
	}
	return nil
}
