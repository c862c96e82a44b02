package chunkstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/testweave/coreindex/pkg/types"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db        *sql.DB
	dimension int
	metric    Metric
	closed    atomic.Bool
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore opens (or creates) a chunk store at dbPath. The
// embedding dimension is fixed for the life of the store.
func NewSQLiteStore(dbPath string, opts Options) (*SQLiteStore, error) {
	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", opts.Dimension)
	}
	if opts.Metric == "" {
		opts.Metric = MetricCosine
	}

	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: failed to apply migrations: %v", types.ErrStorageUnavailable, err)
	}

	return &SQLiteStore{
		db:        db,
		dimension: opts.Dimension,
		metric:    opts.Metric,
	}, nil
}

// Dimension returns the fixed embedding length of the store
func (s *SQLiteStore) Dimension() int {
	return s.dimension
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.closed.Swap(true) {
		return types.ErrStoreClosed
	}
	return s.db.Close()
}

// checkOpen guards every operation against use after Close
func (s *SQLiteStore) checkOpen() error {
	if s.closed.Load() {
		return types.ErrStoreClosed
	}
	return nil
}

// InsertChunks upserts chunks by id inside a single transaction.
// Chunks whose embedding length disagrees with the store dimension are
// rejected individually; the remaining chunks still commit. A rejected
// chunk leaves any prior record for that id untouched.
func (s *SQLiteStore) InsertChunks(ctx context.Context, chunks []types.CodeChunk) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	var rejected []error
	valid := make([]types.CodeChunk, 0, len(chunks))
	for i := range chunks {
		if len(chunks[i].Embedding) != s.dimension {
			rejected = append(rejected, fmt.Errorf("chunk %q: %w: expected %d, got %d",
				chunks[i].ID, types.ErrDimensionMismatch, s.dimension, len(chunks[i].Embedding)))
			continue
		}
		valid = append(valid, chunks[i])
	}

	if len(valid) > 0 {
		if err := s.insertValid(ctx, valid); err != nil {
			return err
		}
	}

	return errors.Join(rejected...)
}

func (s *SQLiteStore) insertValid(ctx context.Context, chunks []types.CodeChunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO chunks (chunk_id, file_path, name, kind, line_count, complexity, content, embedding, dimension, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			file_path = excluded.file_path,
			name = excluded.name,
			kind = excluded.kind,
			line_count = excluded.line_count,
			complexity = excluded.complexity,
			content = excluded.content,
			embedding = excluded.embedding,
			dimension = excluded.dimension,
			updated_at = excluded.updated_at
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now()
	for i := range chunks {
		c := &chunks[i]
		_, err := stmt.ExecContext(ctx, c.ID, c.FilePath, c.Name, string(c.Kind),
			c.LineCount, c.Complexity, c.Content, serializeVector(c.Embedding), s.dimension, now, now)
		if err != nil {
			return fmt.Errorf("failed to upsert chunk %q: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit insert: %w", err)
	}
	return nil
}

// Search returns the k most similar chunks to the query embedding
func (s *SQLiteStore) Search(ctx context.Context, queryEmbedding []float32, opts SearchOptions) ([]ScoredChunk, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if opts.K <= 0 || len(queryEmbedding) == 0 {
		return []ScoredChunk{}, nil
	}

	return searchVector(ctx, s.db, queryEmbedding, s.metric, opts)
}

// GetChunk retrieves a chunk by id
func (s *SQLiteStore) GetChunk(ctx context.Context, id string) (*types.CodeChunk, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	query := `
		SELECT chunk_id, file_path, name, kind, line_count, complexity, content, embedding
		FROM chunks
		WHERE chunk_id = ?
	`
	var chunk types.CodeChunk
	var kind string
	var blob []byte
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&chunk.ID, &chunk.FilePath, &chunk.Name, &kind,
		&chunk.LineCount, &chunk.Complexity, &chunk.Content, &blob,
	)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	chunk.Kind = types.ChunkKind(kind)
	chunk.Embedding = deserializeVector(blob)
	return &chunk, nil
}

// ListByFile returns every chunk owned by a file, in insertion order
func (s *SQLiteStore) ListByFile(ctx context.Context, filePath string) ([]types.CodeChunk, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.listChunks(ctx, "WHERE file_path = ?", filePath)
}

// ListAll returns every chunk in the store, in insertion order
func (s *SQLiteStore) ListAll(ctx context.Context) ([]types.CodeChunk, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.listChunks(ctx, "")
}

func (s *SQLiteStore) listChunks(ctx context.Context, where string, args ...interface{}) ([]types.CodeChunk, error) {
	query := `
		SELECT chunk_id, file_path, name, kind, line_count, complexity, content, embedding
		FROM chunks ` + where + `
		ORDER BY seq
	`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var chunks []types.CodeChunk
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
		chunks = append(chunks, chunk)
	}

	return chunks, rows.Err()
}

// DeleteChunks removes chunks by id
func (s *SQLiteStore) DeleteChunks(ctx context.Context, ids []string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE chunk_id = ?", id); err != nil {
			return fmt.Errorf("failed to delete chunk %q: %w", id, err)
		}
	}

	return tx.Commit()
}

// DeleteByFile removes every chunk owned by a file
func (s *SQLiteStore) DeleteByFile(ctx context.Context, filePath string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE file_path = ?", filePath)
	if err != nil {
		return fmt.Errorf("failed to delete chunks for %s: %w", filePath, err)
	}
	return nil
}

// Stats reports chunk count, distinct file count, and approximate
// on-disk size
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	stats := &Stats{}
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COUNT(DISTINCT file_path) FROM chunks").
		Scan(&stats.TotalChunks, &stats.TotalFiles)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return nil, err
	}
	stats.SizeBytes = pageCount * pageSize

	return stats, nil
}
