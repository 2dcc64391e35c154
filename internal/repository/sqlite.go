package repository

import (
	"context"

	"github.com/sandovabarbora/golemio-public-transportation/internal/db"
	"github.com/sandovabarbora/golemio-public-transportation/internal/transit"
)

// SQLiteRepository serves snapshots from the local history database.
type SQLiteRepository struct {
	db *db.DB
}

// NewSQLiteRepository opens the SQLite history store at the given path.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	database, err := db.Connect(dbPath)
	if err != nil {
		return nil, err
	}
	return &SQLiteRepository{db: database}, nil
}

// NewSQLiteRepositoryFromDB wraps an already-open store.
func NewSQLiteRepositoryFromDB(database *db.DB) *SQLiteRepository {
	return &SQLiteRepository{db: database}
}

// Store exposes the underlying history store for callers that need the
// aggregate statistics queries on top of the snapshot loads.
func (r *SQLiteRepository) Store() *db.DB {
	return r.db
}

func (r *SQLiteRepository) LoadStopTimes(ctx context.Context) ([]transit.StopTimeRecord, error) {
	return r.db.LoadStopTimes(ctx)
}

func (r *SQLiteRepository) LoadEvents(ctx context.Context) ([]transit.EventRecord, error) {
	return r.db.LoadEvents(ctx)
}

func (r *SQLiteRepository) LoadStops(ctx context.Context) ([]transit.StopMetadata, error) {
	return r.db.LoadStops(ctx)
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.Conn().PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
