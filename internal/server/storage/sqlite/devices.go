package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/meshsync/internal/models"
	"github.com/iudanet/meshsync/internal/server/storage"
)

// MarkOnline registers the device on first connect and marks it online
func (s *Storage) MarkOnline(ctx context.Context, businessID, deviceID string, at time.Time) error {
	query := `
		INSERT INTO devices (business_id, device_id, first_seen, last_seen, online)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT (business_id, device_id)
		DO UPDATE SET last_seen = excluded.last_seen, online = 1
	`

	at = at.UTC()
	if _, err := s.db.ExecContext(ctx, query, businessID, deviceID, at, at); err != nil {
		return fmt.Errorf("failed to mark device online: %w", err)
	}
	return nil
}

// MarkOffline marks the device offline and updates its last seen time
func (s *Storage) MarkOffline(ctx context.Context, businessID, deviceID string, at time.Time) error {
	query := `
		UPDATE devices SET online = 0, last_seen = ?
		WHERE business_id = ? AND device_id = ?
	`

	res, err := s.db.ExecContext(ctx, query, at.UTC(), businessID, deviceID)
	if err != nil {
		return fmt.Errorf("failed to mark device offline: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return storage.ErrDeviceNotFound
	}
	return nil
}

// ResetOnline marks every device offline
func (s *Storage) ResetOnline(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE devices SET online = 0 WHERE online = 1`); err != nil {
		return fmt.Errorf("failed to reset online devices: %w", err)
	}
	return nil
}

// GetDevice retrieves a single device of the business
func (s *Storage) GetDevice(ctx context.Context, businessID, deviceID string) (*models.Device, error) {
	query := `
		SELECT business_id, device_id, first_seen, last_seen, online
		FROM devices
		WHERE business_id = ? AND device_id = ?
	`

	device, err := scanDevice(s.db.QueryRowContext(ctx, query, businessID, deviceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrDeviceNotFound
		}
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	return device, nil
}

// ListDevices retrieves all devices of the business ordered by device ID
func (s *Storage) ListDevices(ctx context.Context, businessID string) ([]*models.Device, error) {
	query := `
		SELECT business_id, device_id, first_seen, last_seen, online
		FROM devices
		WHERE business_id = ?
		ORDER BY device_id
	`

	rows, err := s.db.QueryContext(ctx, query, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	devices := make([]*models.Device, 0)
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, device)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating devices: %w", err)
	}
	return devices, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*models.Device, error) {
	device := &models.Device{}
	var online int

	if err := row.Scan(
		&device.BusinessID,
		&device.DeviceID,
		&device.FirstSeen,
		&device.LastSeen,
		&online,
	); err != nil {
		return nil, err
	}

	device.Online = online == 1
	return device, nil
}
