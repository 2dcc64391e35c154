package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/sandovabarbora/golemio-public-transportation/internal/stats"
)

// GetBaseline retrieves the learned delay baseline for a (stop, hour,
// weekday) bucket, or nil when none has been recorded yet. Implements
// stats.BaselineStore.
func (db *DB) GetBaseline(ctx context.Context, baseStopID string, hour, dayOfWeek int) (*stats.DelayBaseline, error) {
	var b stats.DelayBaseline
	err := db.conn.QueryRowContext(ctx, `
		SELECT base_stop_id, hour_of_day, day_of_week, delay_mean, delay_stddev, sample_count
		FROM delay_baselines
		WHERE base_stop_id = ? AND hour_of_day = ? AND day_of_week = ?
	`, baseStopID, hour, dayOfWeek).Scan(
		&b.BaseStopID, &b.HourOfDay, &b.DayOfWeek,
		&b.DelayMean, &b.DelayStdDev, &b.SampleCount,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// SaveBaseline upserts a baseline record. Implements stats.BaselineStore.
func (db *DB) SaveBaseline(ctx context.Context, baseline stats.DelayBaseline) error {
	db.LockWrite()
	defer db.UnlockWrite()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO delay_baselines (base_stop_id, hour_of_day, day_of_week,
			delay_mean, delay_stddev, sample_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (base_stop_id, hour_of_day, day_of_week) DO UPDATE SET
			delay_mean = excluded.delay_mean,
			delay_stddev = excluded.delay_stddev,
			sample_count = excluded.sample_count,
			updated_at = excluded.updated_at
	`,
		baseline.BaseStopID, baseline.HourOfDay, baseline.DayOfWeek,
		baseline.DelayMean, baseline.DelayStdDev, baseline.SampleCount,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}
