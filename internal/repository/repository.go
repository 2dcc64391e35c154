// Package repository is the read side of the history store. The API server
// talks to a HistoryRepository and does not care whether the snapshot comes
// from the local SQLite file or a shared PostgreSQL instance.
package repository

import (
	"context"

	"github.com/sandovabarbora/golemio-public-transportation/internal/transit"
)

// HistoryRepository loads one consistent snapshot of the analytics inputs.
type HistoryRepository interface {
	LoadStopTimes(ctx context.Context) ([]transit.StopTimeRecord, error)
	LoadEvents(ctx context.Context) ([]transit.EventRecord, error)
	LoadStops(ctx context.Context) ([]transit.StopMetadata, error)
	Ping(ctx context.Context) error
	Close() error
}
