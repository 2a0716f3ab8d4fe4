package storage

import (
	"context"

	"github.com/iudanet/meshsync/internal/models"
)

// DocumentStorage keeps per-document causality bookkeeping
type DocumentStorage interface {
	// GetDocument returns the state of a document
	// Returns ErrDocumentNotFound if nothing was applied to it yet
	GetDocument(ctx context.Context, collection, documentID string) (*models.DocumentState, error)

	// SaveDocument stores or replaces the state of a document
	SaveDocument(ctx context.Context, state *models.DocumentState) error
}
