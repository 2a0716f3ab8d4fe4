package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/meshsync/internal/client/storage"
)

// Records - реализация хранилища бизнес-записей поверх того же файла БД:
// один вложенный bucket на коллекцию, значение - payload последней видимой версии.

// Get returns the visible payload of a document
func (s *Storage) Get(ctx context.Context, collection, documentID string) ([]byte, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var payload []byte

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRecords).Bucket([]byte(collection))
		if bucket == nil {
			return storage.ErrRecordNotFound
		}

		data := bucket.Get([]byte(documentID))
		if data == nil {
			return storage.ErrRecordNotFound
		}

		// данные bbolt валидны только внутри транзакции
		payload = make([]byte, len(data))
		copy(payload, data)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return payload, nil
}

// Put stores the visible payload of a document
func (s *Storage) Put(ctx context.Context, collection, documentID string, payload []byte) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.Bucket(bucketRecords).CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			return fmt.Errorf("failed to create collection bucket: %w", err)
		}

		// bbolt не хранит nil-значения
		if payload == nil {
			payload = []byte{}
		}
		if err := bucket.Put([]byte(documentID), payload); err != nil {
			return fmt.Errorf("failed to save record: %w", err)
		}
		return nil
	})
}

// Delete removes a document; deleting a missing document is not an error
func (s *Storage) Delete(ctx context.Context, collection, documentID string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRecords).Bucket([]byte(collection))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(documentID))
	})
}

// List returns all visible documents of a collection
func (s *Storage) List(ctx context.Context, collection string) (map[string][]byte, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	out := make(map[string][]byte)

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRecords).Bucket([]byte(collection))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			payload := make([]byte, len(v))
			copy(payload, v)
			out[string(k)] = payload
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	return out, nil
}
