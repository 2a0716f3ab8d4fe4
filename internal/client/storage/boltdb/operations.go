package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/meshsync/internal/client/storage"
	"github.com/iudanet/meshsync/internal/models"
)

// AppendOperation stores a new operation and, if clock is not nil, the device
// clock in the same transaction
func (s *Storage) AppendOperation(ctx context.Context, op *models.SyncOperation, clock models.VectorClock) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("failed to marshal operation: %w", err)
	}

	var clockData []byte
	if clock != nil {
		if clockData, err = json.Marshal(clock); err != nil {
			return fmt.Errorf("failed to marshal clock: %w", err)
		}
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketOperations)

		if bucket.Get([]byte(op.ID)) != nil {
			return fmt.Errorf("%w: %s", storage.ErrOperationExists, op.ID)
		}
		if err := bucket.Put([]byte(op.ID), data); err != nil {
			return fmt.Errorf("failed to save operation: %w", err)
		}

		// Часы сохраняются вместе с операцией: после рестарта счетчик не повторится
		if clockData != nil {
			if err := tx.Bucket(bucketMetadata).Put([]byte(keyDeviceClock), clockData); err != nil {
				return fmt.Errorf("failed to save clock: %w", err)
			}
		}

		return nil
	})
}

// GetOperation retrieves an operation by ID
func (s *Storage) GetOperation(ctx context.Context, id string) (*models.SyncOperation, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var op *models.SyncOperation

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketOperations).Get([]byte(id))
		if data == nil {
			return storage.ErrOperationNotFound
		}

		op = &models.SyncOperation{}
		if err := json.Unmarshal(data, op); err != nil {
			return fmt.Errorf("failed to unmarshal operation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return op, nil
}

// UpdateOperation applies fn to the stored operation inside one write transaction
func (s *Storage) UpdateOperation(ctx context.Context, id string, fn func(op *models.SyncOperation) error) (*models.SyncOperation, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var op *models.SyncOperation

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketOperations)

		data := bucket.Get([]byte(id))
		if data == nil {
			return storage.ErrOperationNotFound
		}

		op = &models.SyncOperation{}
		if err := json.Unmarshal(data, op); err != nil {
			return fmt.Errorf("failed to unmarshal operation: %w", err)
		}

		if err := fn(op); err != nil {
			return err
		}

		updated, err := json.Marshal(op)
		if err != nil {
			return fmt.Errorf("failed to marshal operation: %w", err)
		}
		return bucket.Put([]byte(id), updated)
	})
	if err != nil {
		return nil, err
	}

	return op, nil
}

// ListOperations returns operations accepted by filter in ID order
func (s *Storage) ListOperations(ctx context.Context, filter func(op *models.SyncOperation) bool) ([]*models.SyncOperation, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var ops []*models.SyncOperation

	err := s.db.View(func(tx *bbolt.Tx) error {
		// ключи - ULID, поэтому ForEach идет в порядке создания
		return tx.Bucket(bucketOperations).ForEach(func(k, v []byte) error {
			var op models.SyncOperation
			if err := json.Unmarshal(v, &op); err != nil {
				return fmt.Errorf("failed to unmarshal operation %s: %w", k, err)
			}
			if filter == nil || filter(&op) {
				ops = append(ops, &op)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}

	return ops, nil
}
