package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/meshsync/internal/client/storage"
	"github.com/iudanet/meshsync/internal/models"
)

// documentKey "collection/documentID"; имя коллекции не содержит '/'
func documentKey(collection, documentID string) []byte {
	return []byte(collection + "/" + documentID)
}

// GetDocument returns the causality state of a document
func (s *Storage) GetDocument(ctx context.Context, collection, documentID string) (*models.DocumentState, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var state *models.DocumentState

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocuments).Get(documentKey(collection, documentID))
		if data == nil {
			return storage.ErrDocumentNotFound
		}

		state = &models.DocumentState{}
		if err := json.Unmarshal(data, state); err != nil {
			return fmt.Errorf("failed to unmarshal document state: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if state.Clock == nil {
		state.Clock = models.VectorClock{}
	}
	return state, nil
}

// SaveDocument stores or replaces the state of a document
func (s *Storage) SaveDocument(ctx context.Context, state *models.DocumentState) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal document state: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketDocuments).Put(documentKey(state.Collection, state.DocumentID), data); err != nil {
			return fmt.Errorf("failed to save document state: %w", err)
		}
		return nil
	})
}
