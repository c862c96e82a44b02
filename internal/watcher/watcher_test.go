package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testweave/coreindex/pkg/types"
)

func collectChanges(t *testing.T, cfg Config, dir string, act func()) []types.FileChangeInfo {
	t.Helper()

	changes := make(chan types.FileChangeInfo, 16)
	cfg.OnChange = func(change types.FileChangeInfo) {
		changes <- change
	}
	if cfg.Debounce == 0 {
		cfg.Debounce = 50 * time.Millisecond
	}

	w, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, w.Watch(dir))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = w.Start(ctx) }()

	act()

	var collected []types.FileChangeInfo
	deadline := time.After(2 * time.Second)
	for {
		select {
		case change := <-changes:
			collected = append(collected, change)
		case <-deadline:
			return collected
		case <-time.After(500 * time.Millisecond):
			return collected
		}
	}
}

func TestReportsCreatedFile(t *testing.T) {
	dir := t.TempDir()

	changes := collectChanges(t, Config{}, dir, func() {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n"), 0o644))
	})

	require.NotEmpty(t, changes, "file creation should be reported")
	assert.Equal(t, filepath.ToSlash(filepath.Join(dir, "a.go")), changes[0].Path)
	assert.Contains(t, []types.ChangeKind{types.ChangeAdded, types.ChangeModified}, changes[0].Kind)
	assert.False(t, changes[0].DetectedAt.IsZero())
}

func TestDebounceCollapsesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "b.go")

	changes := collectChanges(t, Config{Debounce: 150 * time.Millisecond}, dir, func() {
		for i := 0; i < 5; i++ {
			require.NoError(t, os.WriteFile(path, []byte("package b\n"), 0o644))
			time.Sleep(10 * time.Millisecond)
		}
	})

	count := 0
	for _, change := range changes {
		if change.Path == filepath.ToSlash(path) {
			count++
		}
	}
	assert.Equal(t, 1, count, "rapid writes to one path should collapse to one report")
}

func TestExtensionFilter(t *testing.T) {
	dir := t.TempDir()

	changes := collectChanges(t, Config{Extensions: []string{".go"}}, dir, func() {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "tracked.go"), []byte("package t\n"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.md"), []byte("# notes\n"), 0o644))
	})

	for _, change := range changes {
		assert.Equal(t, ".go", filepath.Ext(change.Path))
	}
}

func TestHiddenFilesIgnored(t *testing.T) {
	dir := t.TempDir()

	changes := collectChanges(t, Config{}, dir, func() {
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0o644))
	})

	for _, change := range changes {
		assert.NotEqual(t, ".hidden", filepath.Base(change.Path))
	}
}

func TestClassifyOp(t *testing.T) {
	tests := []struct {
		op       fsnotify.Op
		kind     types.ChangeKind
		relevant bool
	}{
		{fsnotify.Create, types.ChangeAdded, true},
		{fsnotify.Write, types.ChangeModified, true},
		{fsnotify.Remove, types.ChangeDeleted, true},
		{fsnotify.Rename, types.ChangeDeleted, true},
		{fsnotify.Chmod, "", false},
	}

	for _, tt := range tests {
		kind, relevant := classifyOp(tt.op)
		assert.Equal(t, tt.relevant, relevant, "op %v", tt.op)
		if tt.relevant {
			assert.Equal(t, tt.kind, kind, "op %v", tt.op)
		}
	}
}

func TestWatchUnwatch(t *testing.T) {
	dir := t.TempDir()

	w, err := New(Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, w.Watch(dir))
	require.NoError(t, w.Watch(dir), "watching twice is a no-op")
	assert.Len(t, w.Watched(), 1)

	require.NoError(t, w.Unwatch(dir))
	require.NoError(t, w.Unwatch(dir), "unwatching twice is a no-op")
	assert.Empty(t, w.Watched())
}

func TestStartStopsOnContextCancel(t *testing.T) {
	w, err := New(Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
