package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sandovabarbora/golemio-public-transportation/internal/transit"
)

// PostgresRepository serves snapshots from a shared PostgreSQL history
// database with the same logical layout as the SQLite store, but native
// timestamptz columns.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository connects to the given database URL.
func NewPostgresRepository(databaseURL string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) LoadStopTimes(ctx context.Context) ([]transit.StopTimeRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT rt_trip_id, gtfs_stop_id, base_stop_id, COALESCE(stop_name, ''),
			gtfs_stop_sequence, current_stop_departure, current_stop_arrival,
			current_stop_dep_delay, current_stop_arr_delay,
			COALESCE(gtfs_route_short_name, ''), gtfs_direction_id
		FROM stop_times
		ORDER BY rt_trip_id, gtfs_stop_sequence
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stop times: %w", err)
	}
	defer rows.Close()

	var records []transit.StopTimeRecord
	for rows.Next() {
		var rec transit.StopTimeRecord
		var arrival *time.Time
		var arrDelay *float64
		err := rows.Scan(&rec.TripID, &rec.StopID, &rec.BaseStopID, &rec.StopName,
			&rec.StopSequence, &rec.ScheduledDeparture, &arrival,
			&rec.DepartureDelaySec, &arrDelay,
			&rec.RouteShortName, &rec.DirectionID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stop time: %w", err)
		}
		if arrival != nil {
			rec.ScheduledArrival = *arrival
		}
		rec.ArrivalDelaySec = arrDelay
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *PostgresRepository) LoadEvents(ctx context.Context) ([]transit.EventRecord, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT kickoff_utc, opponent, is_home FROM events ORDER BY kickoff_utc")
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []transit.EventRecord
	for rows.Next() {
		var e transit.EventRecord
		if err := rows.Scan(&e.Kickoff, &e.Opponent, &e.IsHome); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *PostgresRepository) LoadStops(ctx context.Context) ([]transit.StopMetadata, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT base_stop_id, COALESCE(stop_name, ''), latitude, longitude, raw_stop_ids FROM stops ORDER BY base_stop_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query stops: %w", err)
	}
	defer rows.Close()

	var stops []transit.StopMetadata
	for rows.Next() {
		var s transit.StopMetadata
		if err := rows.Scan(&s.BaseStopID, &s.Name, &s.Latitude, &s.Longitude, &s.RawStopIDs); err != nil {
			return nil, fmt.Errorf("failed to scan stop: %w", err)
		}
		stops = append(stops, s)
	}
	return stops, rows.Err()
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
