package storage

import "errors"

// Common client storage errors
var (
	// ErrOperationNotFound indicates that the operation is not in the outbox
	ErrOperationNotFound = errors.New("operation not found")

	// ErrOperationExists indicates that an operation with the same ID is already stored
	ErrOperationExists = errors.New("operation already exists")

	// ErrDocumentNotFound indicates that no operation was applied to the document yet
	ErrDocumentNotFound = errors.New("document state not found")

	// ErrConflictNotFound indicates that conflict record was not found
	ErrConflictNotFound = errors.New("conflict not found")

	// ErrTopologyNotFound indicates that mesh topology was never saved
	ErrTopologyNotFound = errors.New("topology not found")

	// ErrRecordNotFound indicates that record is absent in the record store
	ErrRecordNotFound = errors.New("record not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
