package chunkstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/testweave/coreindex/pkg/types"
)

// searchVector performs vector similarity search. The sqlite-vec SQL
// path is used when the extension is available and the metric is
// cosine; otherwise similarity is computed in Go.
func searchVector(ctx context.Context, db *sql.DB, queryVector []float32, metric Metric, opts SearchOptions) ([]ScoredChunk, error) {
	if VectorExtensionAvailable && metric == MetricCosine {
		return searchVectorOptimized(ctx, db, queryVector, opts)
	}
	return searchVectorFallback(ctx, db, queryVector, metric, opts)
}

// searchVectorOptimized computes cosine distance at the database layer
// using the sqlite-vec extension. vec_distance_cosine returns distance
// (lower is better); it is converted to similarity (1 - distance) so
// both paths score the same way.
func searchVectorOptimized(ctx context.Context, db *sql.DB, queryVector []float32, opts SearchOptions) ([]ScoredChunk, error) {
	queryBlob := serializeVector(queryVector)

	query := `
		SELECT chunk_id, file_path, name, kind, line_count, complexity, content, embedding,
		       1.0 - vec_distance_cosine(embedding, ?) AS similarity
		FROM chunks
		WHERE dimension = ?
	`
	args := []interface{}{queryBlob, len(queryVector)}

	query, args = applyFilter(query, args, opts.Filter)

	// Tie-break on chunk id for reproducible ordering
	query += " ORDER BY similarity DESC, chunk_id ASC LIMIT ?"
	args = append(args, opts.K)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]ScoredChunk, 0, opts.K)
	for rows.Next() {
		scored, err := scanScoredChunk(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, scored)
	}

	return results, rows.Err()
}

// searchVectorFallback loads candidate embeddings and ranks them in Go.
// Used for purego builds and for the dot-product metric.
func searchVectorFallback(ctx context.Context, db *sql.DB, queryVector []float32, metric Metric, opts SearchOptions) ([]ScoredChunk, error) {
	query := `
		SELECT chunk_id, file_path, name, kind, line_count, complexity, content, embedding
		FROM chunks
		WHERE dimension = ?
	`
	args := []interface{}{len(queryVector)}

	query, args = applyFilter(query, args, opts.Filter)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var candidates []ScoredChunk
	for rows.Next() {
		var chunk types.CodeChunk
		var kind string
		var blob []byte
		if err := rows.Scan(&chunk.ID, &chunk.FilePath, &chunk.Name, &kind,
			&chunk.LineCount, &chunk.Complexity, &chunk.Content, &blob); err != nil {
			return nil, err
		}
		chunk.Kind = types.ChunkKind(kind)
		chunk.Embedding = deserializeVector(blob)

		if len(chunk.Embedding) != len(queryVector) {
			continue
		}

		var similarity float64
		switch metric {
		case MetricDot:
			similarity = dotProduct(queryVector, chunk.Embedding)
		default:
			similarity = cosineSimilarity(queryVector, chunk.Embedding)
		}

		candidates = append(candidates, ScoredChunk{Chunk: chunk, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortScoredChunks(candidates)

	if opts.K < len(candidates) {
		candidates = candidates[:opts.K]
	}
	return candidates, nil
}

// scanScoredChunk reads one row from the optimized search query
func scanScoredChunk(rows *sql.Rows) (ScoredChunk, error) {
	var scored ScoredChunk
	var kind string
	var blob []byte
	err := rows.Scan(&scored.Chunk.ID, &scored.Chunk.FilePath, &scored.Chunk.Name, &kind,
		&scored.Chunk.LineCount, &scored.Chunk.Complexity, &scored.Chunk.Content, &blob,
		&scored.Similarity)
	if err != nil {
		return scored, fmt.Errorf("failed to scan result: %w", err)
	}
	scored.Chunk.Kind = types.ChunkKind(kind)
	scored.Chunk.Embedding = deserializeVector(blob)
	return scored, nil
}

// applyFilter adds WHERE clause restrictions for a search filter
func applyFilter(query string, args []interface{}, filter *Filter) (string, []interface{}) {
	if filter == nil {
		return query, args
	}

	if len(filter.Kinds) > 0 {
		query += " AND kind IN ("
		for i, kind := range filter.Kinds {
			if i > 0 {
				query += ","
			}
			query += "?"
			args = append(args, string(kind))
		}
		query += ")"
	}

	if filter.FilePath != "" {
		query += " AND file_path = ?"
		args = append(args, filter.FilePath)
	}

	if filter.MinComplexity > 0 {
		query += " AND complexity >= ?"
		args = append(args, filter.MinComplexity)
	}

	return query, args
}

// sortScoredChunks orders by similarity descending, ties by chunk id
func sortScoredChunks(chunks []ScoredChunk) {
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].Similarity != chunks[j].Similarity {
			return chunks[i].Similarity > chunks[j].Similarity
		}
		return chunks[i].Chunk.ID < chunks[j].Chunk.ID
	})
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// dotProduct computes the dot product of two vectors
func dotProduct(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// SerializeVector is an exported helper for testing
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for testing
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// CosineSimilarity is an exported helper for other packages and tests
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
