package storage

import (
	"context"
	"time"

	"github.com/iudanet/meshsync/internal/models"
)

// DeviceStorage defines interface for relay device registry persistence
type DeviceStorage interface {
	// MarkOnline registers the device on first connect and marks it online
	MarkOnline(ctx context.Context, businessID, deviceID string, at time.Time) error

	// MarkOffline marks the device offline and updates its last seen time
	// Returns ErrDeviceNotFound if device was never registered
	MarkOffline(ctx context.Context, businessID, deviceID string, at time.Time) error

	// ResetOnline marks every device offline (used on relay startup)
	ResetOnline(ctx context.Context) error

	// GetDevice retrieves a single device of the business
	// Returns ErrDeviceNotFound if device doesn't exist
	GetDevice(ctx context.Context, businessID, deviceID string) (*models.Device, error)

	// ListDevices retrieves all devices of the business ordered by device ID
	// Returns empty slice if no devices found
	ListDevices(ctx context.Context, businessID string) ([]*models.Device, error)
}
