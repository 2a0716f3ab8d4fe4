package storage

import (
	"context"

	"github.com/iudanet/meshsync/internal/models"
)

// MeshStorage persists known peers and the current primary
type MeshStorage interface {
	// SaveTopology replaces the stored topology
	SaveTopology(ctx context.Context, topology *models.MeshTopology) error

	// LoadTopology returns the stored topology
	// Returns ErrTopologyNotFound on first start
	LoadTopology(ctx context.Context) (*models.MeshTopology, error)
}
