package types

import "errors"

// Structural errors surfaced to callers. Transient per-file failures
// during indexing are absorbed and logged where they occur, never
// wrapped in these.
var (
	// ErrStorageUnavailable indicates the backing store could not be opened
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrDimensionMismatch indicates an embedding length disagrees with
	// the store's configured dimension
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrInvalidWeights indicates a negative signal weight in a query
	ErrInvalidWeights = errors.New("search weights must be non-negative")

	// ErrStoreClosed indicates an operation after Close
	ErrStoreClosed = errors.New("store is closed")

	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")

	// Search result validation errors
	ErrInvalidChunkID = errors.New("invalid chunk ID")
	ErrInvalidScore   = errors.New("score must be non-negative")
	ErrNoSignals      = errors.New("result must name at least one signal")
)
