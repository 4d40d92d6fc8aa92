package storage

import "errors"

// Sentinel errors surfaced by all storage backends.
// Use errors.Is to check: errors.Is(err, storage.ErrConceptNotFound)
var (
	// ErrConceptNotFound indicates the concept does not exist, or is
	// archived or deleted at the time of a write.
	ErrConceptNotFound = errors.New("concept not found")

	// ErrPermissionDenied indicates the concept belongs to a different user.
	ErrPermissionDenied = errors.New("permission denied")
)
