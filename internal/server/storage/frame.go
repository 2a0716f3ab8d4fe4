package storage

import (
	"context"

	"github.com/iudanet/meshsync/internal/models"
)

// FrameStorage defines interface for relay frame audit persistence
type FrameStorage interface {
	// SaveFrame appends an audit record of a relayed envelope
	SaveFrame(ctx context.Context, frame *models.RelayFrame) error

	// ListFrames retrieves the latest audit records of the business, newest first
	// limit <= 0 returns all records
	ListFrames(ctx context.Context, businessID string, limit int) ([]*models.RelayFrame, error)
}

// Storage combines everything the relay persists
type Storage interface {
	DeviceStorage
	FrameStorage
	Close() error
}
