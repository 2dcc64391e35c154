package db

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/sandovabarbora/golemio-public-transportation/internal/transit"
)

// DelayThresholdSeconds is the threshold above which a departure is counted
// as "delayed" in the hourly aggregates (5 minutes).
const DelayThresholdSeconds = 300

// HourlyDelayStat is one aggregated (base stop, hour) bucket.
type HourlyDelayStat struct {
	BaseStopID       string
	HourBucket       time.Time
	ObservationCount int
	DelayMean        float64
	DelayStdDev      float64
	DelayedCount     int
	OnTimeCount      int
	MaxDelaySeconds  float64
}

// UpdateDelayStats folds a batch of freshly ingested records into the hourly
// per-stop aggregates using Welford's algorithm, so dashboard summaries do
// not rescan the raw history.
func (db *DB) UpdateDelayStats(ctx context.Context, records []transit.StopTimeRecord) error {
	if len(records) == 0 {
		return nil
	}

	type bucket struct {
		stop string
		hour string
	}
	grouped := make(map[bucket][]float64)
	for i := range records {
		r := &records[i]
		if r.BaseStopID == "" {
			continue
		}
		hour := transit.NormalizeUTC(r.ScheduledDeparture).Truncate(time.Hour).Format(time.RFC3339)
		b := bucket{r.BaseStopID, hour}
		grouped[b] = append(grouped[b], r.DepartureDelaySec)
	}
	if len(grouped) == 0 {
		return nil
	}

	db.LockWrite()
	defer db.UnlockWrite()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for b, delays := range grouped {
		var count, delayedCount, onTimeCount int
		var mean, m2, maxDelay float64

		err := tx.QueryRowContext(ctx, `
			SELECT observation_count, delay_mean_seconds, delay_m2,
				delayed_count, on_time_count, max_delay_seconds
			FROM stats_delay_hourly
			WHERE base_stop_id = ? AND hour_bucket = ?
		`, b.stop, b.hour).Scan(&count, &mean, &m2, &delayedCount, &onTimeCount, &maxDelay)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("failed to read delay stats for %s: %w", b.stop, err)
		}

		for _, delaySec := range delays {
			count++
			delta := delaySec - mean
			mean += delta / float64(count)
			m2 += delta * (delaySec - mean)

			absDelay := math.Abs(delaySec)
			if absDelay > DelayThresholdSeconds {
				delayedCount++
			} else {
				onTimeCount++
			}
			if absDelay > maxDelay {
				maxDelay = absDelay
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO stats_delay_hourly (base_stop_id, hour_bucket, observation_count,
				delay_mean_seconds, delay_m2, delayed_count, on_time_count, max_delay_seconds)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (base_stop_id, hour_bucket) DO UPDATE SET
				observation_count = excluded.observation_count,
				delay_mean_seconds = excluded.delay_mean_seconds,
				delay_m2 = excluded.delay_m2,
				delayed_count = excluded.delayed_count,
				on_time_count = excluded.on_time_count,
				max_delay_seconds = excluded.max_delay_seconds
		`, b.stop, b.hour, count, mean, m2, delayedCount, onTimeCount, maxDelay)
		if err != nil {
			return fmt.Errorf("failed to upsert delay stats for %s: %w", b.stop, err)
		}
	}

	return tx.Commit()
}

// GetHourlyDelayStats returns the aggregates for a stop (or all stops when
// baseStopID is empty) over the trailing number of hours.
func (db *DB) GetHourlyDelayStats(ctx context.Context, baseStopID string, hours int) ([]HourlyDelayStat, error) {
	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour).Truncate(time.Hour).Format(time.RFC3339)

	query := `
		SELECT base_stop_id, hour_bucket, observation_count, delay_mean_seconds,
			delay_m2, delayed_count, on_time_count, max_delay_seconds
		FROM stats_delay_hourly
		WHERE hour_bucket >= ?`
	args := []interface{}{since}
	if baseStopID != "" {
		query += " AND base_stop_id = ?"
		args = append(args, baseStopID)
	}
	query += " ORDER BY hour_bucket, base_stop_id"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query delay stats: %w", err)
	}
	defer rows.Close()

	var stats []HourlyDelayStat
	for rows.Next() {
		var s HourlyDelayStat
		var bucketStr string
		var m2 float64
		err := rows.Scan(&s.BaseStopID, &bucketStr, &s.ObservationCount, &s.DelayMean,
			&m2, &s.DelayedCount, &s.OnTimeCount, &s.MaxDelaySeconds)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delay stats: %w", err)
		}
		if s.ObservationCount > 1 {
			s.DelayStdDev = math.Sqrt(m2 / float64(s.ObservationCount))
		}
		s.HourBucket, _ = time.Parse(time.RFC3339, bucketStr)
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
