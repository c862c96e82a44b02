package indexer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/testweave/coreindex/pkg/types"
)

// Strategy tells the caller how much work the next indexing cycle needs
type Strategy string

const (
	// StrategyFull means no metadata exists; everything must be indexed
	StrategyFull Strategy = "full"

	// StrategyIncremental means only the reported changes need work
	StrategyIncremental Strategy = "incremental"
)

// ReindexEverything is the TotalFilesToReindex sentinel for a full index
const ReindexEverything = -1

// ChangeDetection is the outcome of one DetectChanges cycle
type ChangeDetection struct {
	Strategy Strategy
	Changes  []types.FileChangeInfo

	// TotalFilesToReindex is len(Changes) for incremental cycles and
	// ReindexEverything (-1) for the initial full index
	TotalFilesToReindex int

	Duration time.Duration
}

// Config configures an Indexer
type Config struct {
	// MetadataPath is where index metadata persists
	// (default: <root>/.coreindex/metadata.json)
	MetadataPath string

	// Extensions restricts tracked files (e.g. ".go", ".ts");
	// empty tracks every regular file
	Extensions []string

	// Concurrency bounds parallel file hashing (default: NumCPU)
	Concurrency int

	Logger *slog.Logger
}

// Indexer decides, per cycle, whether a full or incremental re-index is
// required and exactly which files changed. Change detection layers
// three detectors: version-control status, content hashing
// (authoritative), and modification times.
type Indexer struct {
	root         string
	metadataPath string
	extensions   map[string]struct{}
	concurrency  int
	logger       *slog.Logger

	meta  metadataFile
	cycle IndexLock
}

// New creates an Indexer for a project root
func New(root string, cfg Config) *Indexer {
	if cfg.MetadataPath == "" {
		cfg.MetadataPath = filepath.Join(root, ".coreindex", "metadata.json")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var extensions map[string]struct{}
	if len(cfg.Extensions) > 0 {
		extensions = make(map[string]struct{}, len(cfg.Extensions))
		for _, ext := range cfg.Extensions {
			extensions[ext] = struct{}{}
		}
	}

	return &Indexer{
		root:         root,
		metadataPath: cfg.MetadataPath,
		extensions:   extensions,
		concurrency:  cfg.Concurrency,
		logger:       cfg.Logger,
		meta:         metadataFile{path: cfg.MetadataPath},
	}
}

// TryBeginCycle attempts to claim the single in-flight indexing cycle.
// Returns false when a cycle is already running.
func (idx *Indexer) TryBeginCycle() bool {
	return idx.cycle.TryAcquire()
}

// EndCycle releases the cycle claimed by TryBeginCycle
func (idx *Indexer) EndCycle() {
	idx.cycle.Release()
}

// DetectChanges loads the persisted metadata and, when it exists, runs
// the three detectors concurrently and merges their outputs. With no
// metadata the cycle short-circuits to a full index. Per-file detector
// failures are logged and absorbed; the cycle still succeeds with a
// best-effort change list.
func (idx *Indexer) DetectChanges(ctx context.Context) (*ChangeDetection, error) {
	start := time.Now()

	meta, err := idx.meta.load()
	if err != nil {
		if !os.IsNotExist(err) {
			idx.logger.Warn("metadata unreadable, falling back to full index", "error", err)
		}
		return &ChangeDetection{
			Strategy:            StrategyFull,
			Changes:             []types.FileChangeInfo{},
			TotalFilesToReindex: ReindexEverything,
			Duration:            time.Since(start),
		}, nil
	}

	tracked, err := idx.discoverFiles()
	if err != nil {
		return nil, err
	}

	// The detectors are read-only against shared state, so they run
	// concurrently. Results land in fixed priority slots: version
	// control first, then hash, then timestamp.
	detectors := []detector{
		{name: "git", run: idx.detectGitChanges},
		{name: "hash", run: idx.detectHashChanges},
		{name: "timestamp", run: idx.detectTimestampChanges},
	}

	outputs := make([][]types.FileChangeInfo, len(detectors))
	g, gctx := errgroup.WithContext(ctx)
	for i, det := range detectors {
		g.Go(func() error {
			changes, err := det.run(gctx, meta, tracked)
			if err != nil {
				// A failed detector contributes nothing; the others
				// still make the cycle succeed
				idx.logger.Warn("change detector failed", "detector", det.name, "error", err)
				return nil
			}
			outputs[i] = changes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := mergeChanges(outputs)

	return &ChangeDetection{
		Strategy:            StrategyIncremental,
		Changes:             merged,
		TotalFilesToReindex: len(merged),
		Duration:            time.Since(start),
	}, nil
}

// detector pairs a name with a detection function
type detector struct {
	name string
	run  func(ctx context.Context, meta *types.IndexMetadata, tracked []string) ([]types.FileChangeInfo, error)
}

// mergeChanges deduplicates detector outputs by path. Slice order is
// the fixed detector priority, so the first detector to report a path
// wins regardless of which goroutine finished first.
func mergeChanges(outputs [][]types.FileChangeInfo) []types.FileChangeInfo {
	seen := make(map[string]struct{})
	var merged []types.FileChangeInfo

	for _, changes := range outputs {
		for _, change := range changes {
			if _, dup := seen[change.Path]; dup {
				continue
			}
			seen[change.Path] = struct{}{}
			merged = append(merged, change)
		}
	}

	if merged == nil {
		merged = []types.FileChangeInfo{}
	}
	return merged
}

// discoverFiles walks the project root and returns tracked files as
// root-relative paths
func (idx *Indexer) discoverFiles() ([]string, error) {
	var files []string

	err := filepath.Walk(idx.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal
			idx.logger.Warn("skipping unreadable path", "path", path, "error", err)
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			if path != idx.root && skipDir(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if !idx.tracks(path) {
			return nil
		}

		rel, err := filepath.Rel(idx.root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})

	return files, err
}

// skipDir names directory components excluded from indexing
func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules"
}

// tracks reports whether a file participates in indexing
func (idx *Indexer) tracks(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	if idx.extensions == nil {
		return true
	}
	_, ok := idx.extensions[filepath.Ext(path)]
	return ok
}

// tracksPath applies both the file filter and the directory skip rules
// to a root-relative path. Detector-reported paths go through here so
// they obey the same exclusions as the discovery walk.
func (idx *Indexer) tracksPath(rel string) bool {
	parts := strings.Split(rel, "/")
	for _, dir := range parts[:len(parts)-1] {
		if skipDir(dir) {
			return false
		}
	}
	return idx.tracks(rel)
}

// abs converts a root-relative tracked path back to an absolute one
func (idx *Indexer) abs(rel string) string {
	return filepath.Join(idx.root, filepath.FromSlash(rel))
}
