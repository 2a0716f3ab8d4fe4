package storage

import (
	"context"

	"github.com/iudanet/meshsync/internal/models"
)

//go:generate moq -out operationstorage_mock.go . OperationStorage

// OperationStorage defines the durable outbox of sync operations
type OperationStorage interface {
	// AppendOperation stores a new operation together with the device clock
	// in one transaction. clock may be nil for copies of remote operations.
	// Returns ErrOperationExists if the ID is already stored.
	AppendOperation(ctx context.Context, op *models.SyncOperation, clock models.VectorClock) error

	// GetOperation retrieves an operation by ID
	// Returns ErrOperationNotFound if operation doesn't exist
	GetOperation(ctx context.Context, id string) (*models.SyncOperation, error)

	// UpdateOperation applies fn to the stored operation and saves the result
	// atomically. If fn returns an error nothing is written.
	UpdateOperation(ctx context.Context, id string, fn func(op *models.SyncOperation) error) (*models.SyncOperation, error)

	// ListOperations returns operations accepted by filter in ID (creation) order.
	// A nil filter returns everything.
	ListOperations(ctx context.Context, filter func(op *models.SyncOperation) bool) ([]*models.SyncOperation, error)
}
