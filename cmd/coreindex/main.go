package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/testweave/coreindex/internal/chunkstore"
	"github.com/testweave/coreindex/internal/config"
	"github.com/testweave/coreindex/internal/indexer"
	"github.com/testweave/coreindex/internal/logger"
	"github.com/testweave/coreindex/internal/watcher"
	"github.com/testweave/coreindex/pkg/types"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

const usage = `coreindex - retrieval and caching core for test generation

Usage:
  coreindex <command> [flags]

Commands:
  version   print build information
  stats     print chunk store statistics
  detect    detect file changes since the last index run
  save      record the current tree as indexed
  reset     clear index metadata, forcing a full re-index
  watch     report debounced file changes until interrupted

Flags:
  -config   path to YAML config (or COREINDEX_CONFIG)
  -root     project root to index (default ".")
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]

	flags := flag.NewFlagSet(command, flag.ExitOnError)
	configPath := flags.String("config", os.Getenv("COREINDEX_CONFIG"), "path to YAML config")
	root := flags.String("root", ".", "project root to index")
	_ = flags.Parse(os.Args[2:])

	if command == "version" {
		fmt.Printf("coreindex %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", chunkstore.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", chunkstore.DriverName)
		fmt.Printf("Vector Extension: %v\n", chunkstore.VectorExtensionAvailable)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "coreindex: %v\n", err)
		os.Exit(1)
	}

	// Log to stderr so stdout stays parseable
	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch command {
	case "stats":
		err = runStats(ctx, cfg)
	case "detect":
		err = runDetect(ctx, cfg, *root)
	case "save":
		err = runSave(ctx, cfg, *root)
	case "reset":
		err = runReset(cfg, *root)
	case "watch":
		err = runWatch(ctx, cfg, *root)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		log.Error("command failed", "command", command, "error", err)
		os.Exit(1)
	}
}

func runStats(ctx context.Context, cfg config.Config) error {
	store, err := chunkstore.NewSQLiteStore(cfg.Store.Path, chunkstore.Options{
		Dimension: cfg.Store.Dimension,
		Metric:    chunkstore.Metric(cfg.Store.Metric),
	})
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Chunks:     %d\n", stats.TotalChunks)
	fmt.Printf("Files:      %d\n", stats.TotalFiles)
	fmt.Printf("Size:       %d bytes\n", stats.SizeBytes)
	fmt.Printf("Dimension:  %d\n", store.Dimension())
	return nil
}

func newIndexer(cfg config.Config, root string) *indexer.Indexer {
	return indexer.New(root, indexer.Config{
		MetadataPath: cfg.Indexer.MetadataPath,
		Extensions:   cfg.Indexer.Extensions,
		Concurrency:  cfg.Indexer.Concurrency,
	})
}

func runDetect(ctx context.Context, cfg config.Config, root string) error {
	idx := newIndexer(cfg, root)
	if !idx.TryBeginCycle() {
		return fmt.Errorf("an indexing cycle is already running")
	}
	defer idx.EndCycle()

	result, err := idx.DetectChanges(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Strategy:   %s\n", result.Strategy)
	if result.TotalFilesToReindex == indexer.ReindexEverything {
		fmt.Println("Reindex:    everything (no prior index)")
	} else {
		fmt.Printf("Reindex:    %d file(s)\n", result.TotalFilesToReindex)
	}
	fmt.Printf("Duration:   %s\n", result.Duration.Round(time.Millisecond))

	for _, change := range result.Changes {
		fmt.Printf("  %-9s %s\n", change.Kind, change.Path)
	}
	return nil
}

func runSave(ctx context.Context, cfg config.Config, root string) error {
	idx := newIndexer(cfg, root)
	if !idx.TryBeginCycle() {
		return fmt.Errorf("an indexing cycle is already running")
	}
	defer idx.EndCycle()

	meta, err := idx.SaveMetadata(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Indexed:    %d file(s)\n", len(meta.FileHashes))
	fmt.Printf("Version:    %s\n", meta.Version)
	return nil
}

func runReset(cfg config.Config, root string) error {
	idx := newIndexer(cfg, root)
	if err := idx.ClearMetadata(); err != nil {
		return err
	}
	fmt.Println("Index metadata cleared; next run performs a full index")
	return nil
}

func runWatch(ctx context.Context, cfg config.Config, root string) error {
	w, err := watcher.New(watcher.Config{
		Debounce:   time.Duration(cfg.Indexer.WatchDebounceMS) * time.Millisecond,
		Extensions: cfg.Indexer.Extensions,
		OnChange: func(change types.FileChangeInfo) {
			fmt.Printf("%-9s %s\n", change.Kind, change.Path)
		},
	})
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	if err := w.Watch(root); err != nil {
		return err
	}

	if err := w.Start(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
