// Package types provides shared type definitions for the coreindex
// retrieval and caching core.
//
// This package defines the domain types used across components: code
// chunks, search queries and results, file-change records, and the
// persisted index metadata.
//
// # Core Types
//
// CodeChunk represents a retrievable unit of source code with an
// externally produced embedding:
//
//	chunk := types.CodeChunk{
//	    ID:        "auth.go:LoginHandler",
//	    FilePath:  "internal/auth/auth.go",
//	    Name:      "LoginHandler",
//	    Kind:      types.ChunkFunction,
//	    Content:   source,
//	    Embedding: vector,
//	}
//
// SearchQuery carries the optional inputs of a hybrid search. Each
// relevance signal fires only when its input (embedding, text, or file
// path) and a positive weight are both present:
//
//	query := types.SearchQuery{
//	    Text:     "session token validation",
//	    FilePath: "internal/auth/auth.go",
//	    TopK:     10,
//	    Weights:  types.DefaultWeights(),
//	}
//
// SearchResult pairs a chunk with its aggregate score, a per-signal
// breakdown, and the list of signals that matched it.
//
// # Errors
//
// Sentinel errors distinguish structural failures (closed store,
// invalid weights, dimension mismatch) from ordinary outcomes such as
// empty results or cache misses, which are never errors.
package types
