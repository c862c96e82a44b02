package chunkstore

import (
	"context"

	"github.com/testweave/coreindex/pkg/types"
)

// Metric selects the similarity function used by vector search
type Metric string

const (
	MetricCosine Metric = "cosine"
	MetricDot    Metric = "dot"
)

// Options configures a chunk store. Dimension is fixed for the life of
// the store; every inserted embedding must match it.
type Options struct {
	Dimension int
	Metric    Metric
}

// Filter restricts the candidate population of a vector search
type Filter struct {
	Kinds         []types.ChunkKind
	FilePath      string
	MinComplexity float64
}

// SearchOptions bounds a vector search
type SearchOptions struct {
	K      int
	Filter *Filter
}

// ScoredChunk is a chunk paired with its raw similarity to the query
// embedding. Cosine similarity is in [-1, 1]; dot product is unbounded.
type ScoredChunk struct {
	Chunk      types.CodeChunk
	Similarity float64
}

// Stats describes the store contents
type Stats struct {
	TotalChunks int
	TotalFiles  int
	SizeBytes   int64
}

// Store defines the interface for persisting and querying code chunks
// with their embeddings
type Store interface {
	// InsertChunks upserts chunks by id. Chunks whose embedding length
	// disagrees with the store dimension are rejected with
	// types.ErrDimensionMismatch; the remaining chunks still commit.
	InsertChunks(ctx context.Context, chunks []types.CodeChunk) error

	// Search returns the k most similar chunks to the query embedding,
	// restricted to chunks matching the filter. Ties break by chunk id.
	Search(ctx context.Context, queryEmbedding []float32, opts SearchOptions) ([]ScoredChunk, error)

	// GetChunk retrieves a chunk by id; types.ErrNotFound if absent
	GetChunk(ctx context.Context, id string) (*types.CodeChunk, error)

	// ListByFile returns every chunk owned by a file, in insertion order
	ListByFile(ctx context.Context, filePath string) ([]types.CodeChunk, error)

	// ListAll returns every chunk in the store, in insertion order
	ListAll(ctx context.Context) ([]types.CodeChunk, error)

	// DeleteChunks removes chunks by id; missing ids are not an error
	DeleteChunks(ctx context.Context, ids []string) error

	// DeleteByFile removes every chunk owned by a file
	DeleteByFile(ctx context.Context, filePath string) error

	// Stats reports chunk count, distinct file count, and on-disk size
	Stats(ctx context.Context) (*Stats, error)

	// Dimension returns the fixed embedding length of the store
	Dimension() int

	// Close releases the backing storage; later operations fail with
	// types.ErrStoreClosed
	Close() error
}
