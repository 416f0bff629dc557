// Package checkpointdb persists the registry of produced policy
// checkpoints so a restarted harness can rebuild its opponent pool and
// broadcast known artifacts to its workers.
package checkpointdb

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record describes one saved checkpoint artifact.
type Record struct {
	ID        string
	Path      string
	Stage     string
	WinRate   float64
	CreatedAt time.Time
}

// NewRecord stamps a fresh record for the given artifact.
func NewRecord(path, stage string, winRate float64) Record {
	return Record{
		ID:        uuid.NewString(),
		Path:      path,
		Stage:     stage,
		WinRate:   winRate,
		CreatedAt: time.Now().UTC(),
	}
}

// Store is the checkpoint registry. List returns records in insertion
// order, oldest first, so a pool rebuilt from it keeps FIFO semantics.
type Store interface {
	Init(ctx context.Context) error
	Put(ctx context.Context, record Record) error
	List(ctx context.Context) ([]Record, error)
	Close() error
}
