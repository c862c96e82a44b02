package embedder

import (
	"context"
	"errors"
)

// Common errors
var (
	ErrEmptyText      = errors.New("text cannot be empty")
	ErrProviderFailed = errors.New("embedding provider failed")
)

// Embedding represents a vector embedding with metadata
type Embedding struct {
	Vector    []float32
	Dimension int
	Provider  string
	Model     string
}

// Embedder is the boundary to the external embedding provider. The
// core never generates vectors itself; it consumes them. Callers own
// retry and backoff; when an embedding is unavailable the engine
// degrades the query rather than failing it.
type Embedder interface {
	// GenerateEmbedding generates a single embedding for the given text
	GenerateEmbedding(ctx context.Context, text string) (*Embedding, error)

	// Dimension returns the embedding dimension for this provider
	Dimension() int

	// Provider returns the provider name
	Provider() string

	// Model returns the model name
	Model() string
}
