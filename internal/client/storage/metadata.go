package storage

import (
	"context"
	"time"

	"github.com/iudanet/meshsync/internal/models"
)

// MetadataStorage defines interface for storing client metadata
type MetadataStorage interface {
	// SaveClock saves the device vector clock
	SaveClock(ctx context.Context, clock models.VectorClock) error

	// LoadClock returns the saved device clock
	// Returns an empty clock if nothing was saved yet
	LoadClock(ctx context.Context) (models.VectorClock, error)

	// SaveLastSyncAt saves the time of the last acknowledged dispatch
	SaveLastSyncAt(ctx context.Context, at time.Time) error

	// GetLastSyncAt returns the time of the last acknowledged dispatch
	// Returns zero time if no sync has been performed yet
	GetLastSyncAt(ctx context.Context) (time.Time, error)
}
