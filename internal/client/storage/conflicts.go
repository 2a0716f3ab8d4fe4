package storage

import (
	"context"

	"github.com/iudanet/meshsync/internal/models"
)

// ConflictStorage keeps the conflict log
type ConflictStorage interface {
	// SaveConflict stores or updates a conflict record
	SaveConflict(ctx context.Context, record *models.ConflictRecord) error

	// GetConflict retrieves a conflict by ID
	// Returns ErrConflictNotFound if conflict doesn't exist
	GetConflict(ctx context.Context, id string) (*models.ConflictRecord, error)

	// ListConflicts returns conflicts accepted by filter in detection order
	ListConflicts(ctx context.Context, filter func(record *models.ConflictRecord) bool) ([]*models.ConflictRecord, error)
}
