package sqlite

import (
	"context"
	"fmt"

	"github.com/iudanet/meshsync/internal/models"
)

// SaveFrame appends an audit record of a relayed envelope
func (s *Storage) SaveFrame(ctx context.Context, frame *models.RelayFrame) error {
	query := `
		INSERT INTO relay_frames (envelope_id, business_id, from_device, to_device, type, size, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		frame.ID,
		frame.BusinessID,
		frame.FromDevice,
		frame.ToDevice,
		frame.Type,
		frame.Size,
		frame.ReceivedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert frame: %w", err)
	}
	return nil
}

// ListFrames retrieves the latest audit records of the business, newest first
func (s *Storage) ListFrames(ctx context.Context, businessID string, limit int) ([]*models.RelayFrame, error) {
	query := `
		SELECT envelope_id, business_id, from_device, to_device, type, size, received_at
		FROM relay_frames
		WHERE business_id = ?
		ORDER BY seq DESC
	`
	args := []any{businessID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query frames: %w", err)
	}
	defer rows.Close()

	frames := make([]*models.RelayFrame, 0)
	for rows.Next() {
		frame := &models.RelayFrame{}
		if err := rows.Scan(
			&frame.ID,
			&frame.BusinessID,
			&frame.FromDevice,
			&frame.ToDevice,
			&frame.Type,
			&frame.Size,
			&frame.ReceivedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan frame: %w", err)
		}
		frames = append(frames, frame)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating frames: %w", err)
	}
	return frames, nil
}
