package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/meshsync/internal/client/storage"
	"github.com/iudanet/meshsync/internal/models"
)

const (
	keyDeviceClock = "device_clock"
	keyLastSyncAt  = "last_sync_at"
)

// SaveClock saves the device vector clock
func (s *Storage) SaveClock(ctx context.Context, clock models.VectorClock) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(clock)
	if err != nil {
		return fmt.Errorf("failed to marshal clock: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketMetadata).Put([]byte(keyDeviceClock), data); err != nil {
			return fmt.Errorf("failed to save clock: %w", err)
		}
		return nil
	})
}

// LoadClock returns the saved device clock or an empty clock
func (s *Storage) LoadClock(ctx context.Context) (models.VectorClock, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	clock := models.VectorClock{}

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMetadata).Get([]byte(keyDeviceClock))
		if data == nil {
			// Часы еще не сохранялись - первый запуск
			return nil
		}
		return json.Unmarshal(data, &clock)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load clock: %w", err)
	}

	return clock, nil
}

// SaveLastSyncAt saves the time of the last acknowledged dispatch
func (s *Storage) SaveLastSyncAt(ctx context.Context, at time.Time) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		// Конвертируем время в bytes
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(at.UnixNano()))

		if err := tx.Bucket(bucketMetadata).Put([]byte(keyLastSyncAt), buf); err != nil {
			return fmt.Errorf("failed to save last sync time: %w", err)
		}
		return nil
	})
}

// GetLastSyncAt returns the time of the last acknowledged dispatch
// Returns zero time if no sync has been performed yet
func (s *Storage) GetLastSyncAt(ctx context.Context) (time.Time, error) {
	if s.db == nil {
		return time.Time{}, storage.ErrStorageClosed
	}

	var at time.Time

	err := s.db.View(func(tx *bbolt.Tx) error {
		buf := tx.Bucket(bucketMetadata).Get([]byte(keyLastSyncAt))
		if buf == nil {
			return nil
		}
		at = time.Unix(0, int64(binary.BigEndian.Uint64(buf)))
		return nil
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last sync time: %w", err)
	}

	return at, nil
}
