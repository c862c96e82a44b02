// Package chunkstore provides SQLite-based persistence for code chunks
// and their embeddings.
//
// The store manages:
//   - Chunk records (id, owning file, kind, content, complexity)
//   - Embedding vectors, serialized as little-endian float32 blobs
//   - Nearest-neighbor queries with kind/complexity/file filters
//
// # Basic Usage
//
//	store, err := chunkstore.NewSQLiteStore("index.db", chunkstore.Options{
//	    Dimension: 1536,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	err = store.InsertChunks(ctx, chunks)
//
//	results, err := store.Search(ctx, queryEmbedding, chunkstore.SearchOptions{
//	    K: 10,
//	    Filter: &chunkstore.Filter{Kinds: []types.ChunkKind{types.ChunkFunction}},
//	})
//
// # Invariants
//
// The embedding dimension is fixed per store. InsertChunks rejects any
// chunk whose embedding length disagrees, returning an error wrapping
// types.ErrDimensionMismatch, while the remaining chunks of the batch
// still commit. Inserts are transactional per batch: a chunk is either
// fully written or its prior record is left untouched.
//
// Search results are ordered by similarity descending with ties broken
// by chunk id, so a fixed query against a fixed store is deterministic.
//
// # Build Tags
//
// Two build configurations are supported:
//
// CGO build (sqlite_vec tag):
//
//   - github.com/mattn/go-sqlite3 driver
//   - sqlite-vec extension computes cosine distance in SQL
//
//     CGO_ENABLED=1 go build -tags "sqlite_vec"
//
// Pure Go build (default):
//
//   - modernc.org/sqlite driver
//   - similarity computed in Go (slower, no C compiler needed)
//
//     CGO_ENABLED=0 go build
package chunkstore
