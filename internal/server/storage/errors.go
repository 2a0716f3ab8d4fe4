package storage

import "errors"

// Common storage errors
var (
	// ErrDeviceNotFound indicates that device was never seen by the relay
	ErrDeviceNotFound = errors.New("device not found")
)
