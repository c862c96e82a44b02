package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/testweave/coreindex/pkg/types"
)

// DefaultDebounce is how long a path must stay quiet before its change
// is reported. Editors tend to fire several events per save.
const DefaultDebounce = time.Second

// Config holds watcher configuration
type Config struct {
	// Debounce delays reporting until a path stops changing
	// (default: DefaultDebounce)
	Debounce time.Duration

	// Extensions restricts reported files (e.g. ".go", ".ts");
	// empty reports every file
	Extensions []string

	// OnChange receives each debounced change
	OnChange func(types.FileChangeInfo)

	Logger *slog.Logger
}

// FileWatcher watches directories and feeds debounced file changes to
// an indexing pipeline. Events for the same path within the debounce
// window collapse into one report carrying the latest change kind.
type FileWatcher struct {
	watcher    *fsnotify.Watcher
	onChange   func(types.FileChangeInfo)
	extensions map[string]struct{}
	debounce   time.Duration
	logger     *slog.Logger

	mu      sync.Mutex
	watched map[string]bool
	pending map[string]*pendingChange
}

type pendingChange struct {
	timer *time.Timer
	kind  types.ChangeKind
}

// New creates a file watcher
func New(cfg Config) (*FileWatcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	var extensions map[string]struct{}
	if len(cfg.Extensions) > 0 {
		extensions = make(map[string]struct{}, len(cfg.Extensions))
		for _, ext := range cfg.Extensions {
			extensions[ext] = struct{}{}
		}
	}

	return &FileWatcher{
		watcher:    fsWatcher,
		onChange:   cfg.OnChange,
		extensions: extensions,
		debounce:   cfg.Debounce,
		logger:     cfg.Logger,
		watched:    make(map[string]bool),
		pending:    make(map[string]*pendingChange),
	}, nil
}

// Watch adds a directory to the watch list
func (w *FileWatcher) Watch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	if w.watched[abs] {
		return nil
	}

	if err := w.watcher.Add(abs); err != nil {
		return fmt.Errorf("failed to watch %s: %w", abs, err)
	}

	w.watched[abs] = true
	return nil
}

// Unwatch removes a directory from the watch list
func (w *FileWatcher) Unwatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	if !w.watched[abs] {
		return nil
	}

	if err := w.watcher.Remove(abs); err != nil {
		return fmt.Errorf("failed to unwatch %s: %w", abs, err)
	}

	delete(w.watched, abs)
	return nil
}

// Start consumes filesystem events until the context is canceled.
// Watcher-level errors are logged, not fatal.
func (w *FileWatcher) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}

			kind, relevant := classifyOp(event.Op)
			if !relevant || !w.tracks(event.Name) {
				continue
			}

			w.handleEvent(event.Name, kind)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// classifyOp maps a filesystem operation to a change kind
func classifyOp(op fsnotify.Op) (types.ChangeKind, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return types.ChangeAdded, true
	case op.Has(fsnotify.Write):
		return types.ChangeModified, true
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return types.ChangeDeleted, true
	default:
		return "", false
	}
}

// handleEvent debounces events per path; the latest kind wins when
// several land inside the window
func (w *FileWatcher) handleEvent(path string, kind types.ChangeKind) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if existing, exists := w.pending[path]; exists {
		existing.timer.Stop()
	}

	change := &pendingChange{kind: kind}
	change.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		if w.onChange != nil {
			w.onChange(types.FileChangeInfo{
				Path:       filepath.ToSlash(path),
				Kind:       kind,
				DetectedAt: time.Now(),
			})
		}
	})
	w.pending[path] = change
}

// tracks reports whether a file's changes are worth reporting
func (w *FileWatcher) tracks(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	if w.extensions == nil {
		return true
	}
	_, ok := w.extensions[filepath.Ext(path)]
	return ok
}

// Watched returns the watched directories
func (w *FileWatcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	paths := make([]string, 0, len(w.watched))
	for path := range w.watched {
		paths = append(paths, path)
	}
	return paths
}

// Close stops the watcher, cancels pending reports, and releases
// resources
func (w *FileWatcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, change := range w.pending {
		change.timer.Stop()
	}
	w.pending = make(map[string]*pendingChange)

	return w.watcher.Close()
}
