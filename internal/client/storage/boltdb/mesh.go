package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/meshsync/internal/client/storage"
	"github.com/iudanet/meshsync/internal/models"
)

const keyTopology = "topology"

// SaveTopology replaces the stored topology
func (s *Storage) SaveTopology(ctx context.Context, topology *models.MeshTopology) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(topology)
	if err != nil {
		return fmt.Errorf("failed to marshal topology: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMesh).Put([]byte(keyTopology), data)
	})
}

// LoadTopology returns the stored topology
func (s *Storage) LoadTopology(ctx context.Context) (*models.MeshTopology, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var topology *models.MeshTopology

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMesh).Get([]byte(keyTopology))
		if data == nil {
			return storage.ErrTopologyNotFound
		}

		topology = &models.MeshTopology{}
		return json.Unmarshal(data, topology)
	})
	if err != nil {
		return nil, err
	}

	return topology, nil
}
