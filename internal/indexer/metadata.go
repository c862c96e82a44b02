package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/testweave/coreindex/pkg/types"
)

// metadataFile persists index metadata as JSON with atomic replacement.
// Reads may run concurrently; writes are serialized.
type metadataFile struct {
	path string
	mu   sync.RWMutex
}

// load reads the persisted metadata. Returns an os.IsNotExist error
// when no index has been saved yet.
func (m *metadataFile) load() (*types.IndexMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := os.ReadFile(m.path)
	if err != nil {
		return nil, err
	}

	var meta types.IndexMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if meta.FileHashes == nil {
		meta.FileHashes = make(map[string]string)
	}
	return &meta, nil
}

// save writes metadata to a temp file in the target directory and
// renames it into place, so readers never observe a partial write
func (m *metadataFile) save(meta *types.IndexMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".metadata-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp metadata file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp metadata file: %w", err)
	}

	if err := os.Rename(tmpPath, m.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace metadata: %w", err)
	}
	return nil
}

// clear removes the persisted metadata, forcing the next cycle to a
// full index. Missing metadata is not an error.
func (m *metadataFile) clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove metadata: %w", err)
	}
	return nil
}

// SaveMetadata hashes every tracked file and replaces the persisted
// metadata wholesale, recording the completion of an indexing cycle.
// Unreadable files are skipped with a warning so one bad file cannot
// block the whole save. Calling it twice with no intervening file
// changes produces equivalent metadata.
func (idx *Indexer) SaveMetadata(ctx context.Context) (*types.IndexMetadata, error) {
	tracked, err := idx.discoverFiles()
	if err != nil {
		return nil, err
	}

	meta := types.NewIndexMetadata(idx.root)

	var mu sync.Mutex
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(idx.concurrency)

	for _, rel := range tracked {
		g.Go(func() error {
			hash, err := hashFile(idx.abs(rel))
			if err != nil {
				idx.logger.Warn("skipping unreadable file in metadata", "path", rel, "error", err)
				return nil
			}
			mu.Lock()
			meta.FileHashes[rel] = hash
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := idx.meta.save(meta); err != nil {
		return nil, err
	}

	idx.logger.Info("index metadata saved",
		"path", idx.metadataPath,
		"files", len(meta.FileHashes))
	return meta, nil
}

// ClearMetadata removes persisted metadata so the next DetectChanges
// reports a full index
func (idx *Indexer) ClearMetadata() error {
	return idx.meta.clear()
}

// LoadMetadata returns the persisted metadata, or types.ErrNotFound
// when no indexing cycle has completed yet
func (idx *Indexer) LoadMetadata() (*types.IndexMetadata, error) {
	meta, err := idx.meta.load()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no index metadata at %s", types.ErrNotFound, idx.metadataPath)
		}
		return nil, err
	}
	return meta, nil
}
