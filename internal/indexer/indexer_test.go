package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testweave/coreindex/internal/depgraph"
	"github.com/testweave/coreindex/pkg/types"
)

func newTestIndexer(t *testing.T) (*Indexer, string) {
	t.Helper()
	root := t.TempDir()
	idx := New(root, Config{Extensions: []string{".ts"}})
	return idx, root
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func changeByPath(changes []types.FileChangeInfo, path string) (types.FileChangeInfo, bool) {
	for _, c := range changes {
		if c.Path == path {
			return c, true
		}
	}
	return types.FileChangeInfo{}, false
}

func TestDetectChangesNoMetadataFullIndex(t *testing.T) {
	idx, root := newTestIndexer(t)
	writeFile(t, root, "a.ts", "export const a = 1\n")

	result, err := idx.DetectChanges(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StrategyFull, result.Strategy)
	assert.Equal(t, ReindexEverything, result.TotalFilesToReindex)
	assert.NotNil(t, result.Changes)
	assert.Empty(t, result.Changes)
}

func TestDetectChangesEmptyProjectFullIndex(t *testing.T) {
	idx, _ := newTestIndexer(t)

	result, err := idx.DetectChanges(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StrategyFull, result.Strategy)
	assert.Equal(t, ReindexEverything, result.TotalFilesToReindex)
}

func TestDetectChangesNoChanges(t *testing.T) {
	idx, root := newTestIndexer(t)
	writeFile(t, root, "a.ts", "export const a = 1\n")
	writeFile(t, root, "b.ts", "export const b = 2\n")

	_, err := idx.SaveMetadata(context.Background())
	require.NoError(t, err)

	result, err := idx.DetectChanges(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StrategyIncremental, result.Strategy)
	assert.Equal(t, 0, result.TotalFilesToReindex)
	assert.NotNil(t, result.Changes)
	assert.Empty(t, result.Changes)
}

func TestDetectChangesAddedModifiedDeleted(t *testing.T) {
	idx, root := newTestIndexer(t)
	writeFile(t, root, "keep.ts", "export const keep = 1\n")
	writeFile(t, root, "edit.ts", "export const edit = 1\n")
	writeFile(t, root, "gone.ts", "export const gone = 1\n")

	_, err := idx.SaveMetadata(context.Background())
	require.NoError(t, err)

	writeFile(t, root, "edit.ts", "export const edit = 2\n")
	writeFile(t, root, "fresh.ts", "export const fresh = 1\n")
	require.NoError(t, os.Remove(filepath.Join(root, "gone.ts")))

	result, err := idx.DetectChanges(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StrategyIncremental, result.Strategy)
	assert.Equal(t, len(result.Changes), result.TotalFilesToReindex)

	edit, ok := changeByPath(result.Changes, "edit.ts")
	require.True(t, ok, "edited file should be reported")
	assert.Equal(t, types.ChangeModified, edit.Kind)

	fresh, ok := changeByPath(result.Changes, "fresh.ts")
	require.True(t, ok, "new file should be reported")
	assert.Equal(t, types.ChangeAdded, fresh.Kind)

	gone, ok := changeByPath(result.Changes, "gone.ts")
	require.True(t, ok, "deleted file should be reported")
	assert.Equal(t, types.ChangeDeleted, gone.Kind)

	_, ok = changeByPath(result.Changes, "keep.ts")
	assert.False(t, ok, "unchanged file should not be reported")
}

func TestDetectChangesIgnoresUntrackedExtensions(t *testing.T) {
	idx, root := newTestIndexer(t)
	writeFile(t, root, "a.ts", "export const a = 1\n")

	_, err := idx.SaveMetadata(context.Background())
	require.NoError(t, err)

	writeFile(t, root, "notes.md", "# notes\n")

	result, err := idx.DetectChanges(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Changes)
}

func TestSaveMetadataIdempotent(t *testing.T) {
	idx, root := newTestIndexer(t)
	writeFile(t, root, "a.ts", "export const a = 1\n")
	writeFile(t, root, "sub/b.ts", "export const b = 2\n")

	first, err := idx.SaveMetadata(context.Background())
	require.NoError(t, err)

	second, err := idx.SaveMetadata(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.FileHashes, second.FileHashes)
	assert.Len(t, second.FileHashes, 2)
	assert.Contains(t, second.FileHashes, "sub/b.ts")
	assert.Equal(t, types.MetadataVersion, second.Version)
}

func TestLoadMetadataRoundTrip(t *testing.T) {
	idx, root := newTestIndexer(t)
	writeFile(t, root, "a.ts", "export const a = 1\n")

	saved, err := idx.SaveMetadata(context.Background())
	require.NoError(t, err)

	loaded, err := idx.LoadMetadata()
	require.NoError(t, err)
	assert.Equal(t, saved.FileHashes, loaded.FileHashes)
	assert.Equal(t, saved.Version, loaded.Version)
}

func TestLoadMetadataMissing(t *testing.T) {
	idx, _ := newTestIndexer(t)

	_, err := idx.LoadMetadata()
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestClearMetadataForcesFullIndex(t *testing.T) {
	idx, root := newTestIndexer(t)
	writeFile(t, root, "a.ts", "export const a = 1\n")

	_, err := idx.SaveMetadata(context.Background())
	require.NoError(t, err)
	require.NoError(t, idx.ClearMetadata())

	result, err := idx.DetectChanges(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StrategyFull, result.Strategy)
	assert.Equal(t, ReindexEverything, result.TotalFilesToReindex)
}

func TestHashFileSensitiveToSingleByte(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "f.ts")

	require.NoError(t, os.WriteFile(path, []byte("export const x = 1\n"), 0o644))
	before, err := hashFile(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("export const x = 2\n"), 0o644))
	after, err := hashFile(path)
	require.NoError(t, err)

	assert.NotEqual(t, before, after)
	assert.Len(t, before, 64)
}

func TestMergeChangesFirstDetectorWins(t *testing.T) {
	now := time.Now()
	outputs := [][]types.FileChangeInfo{
		{{Path: "a.ts", Kind: types.ChangeModified, Hash: "git-hash", DetectedAt: now}},
		{
			{Path: "a.ts", Kind: types.ChangeModified, Hash: "hash-hash", DetectedAt: now},
			{Path: "b.ts", Kind: types.ChangeAdded, Hash: "new", DetectedAt: now},
		},
		{{Path: "b.ts", Kind: types.ChangeModified, DetectedAt: now}},
	}

	merged := mergeChanges(outputs)
	require.Len(t, merged, 2)

	a, ok := changeByPath(merged, "a.ts")
	require.True(t, ok)
	assert.Equal(t, "git-hash", a.Hash, "higher-priority detector should win")

	b, ok := changeByPath(merged, "b.ts")
	require.True(t, ok)
	assert.Equal(t, types.ChangeAdded, b.Kind)
}

func TestMergeChangesEmptyIsNonNil(t *testing.T) {
	merged := mergeChanges([][]types.FileChangeInfo{nil, nil, nil})
	assert.NotNil(t, merged)
	assert.Empty(t, merged)
}

func TestCalculateAffectedFiles(t *testing.T) {
	// A.ts imports B.ts; C.ts imports A.ts
	graph := depgraph.New(map[string][]string{
		"A.ts": {"B.ts"},
		"C.ts": {"A.ts"},
	})

	affected := CalculateAffectedFiles(graph, []string{"B.ts"})
	assert.Equal(t, []string{"A.ts", "C.ts"}, affected)

	affected = CalculateAffectedFiles(graph, []string{"A.ts"})
	assert.Equal(t, []string{"C.ts"}, affected)

	affected = CalculateAffectedFiles(graph, []string{"C.ts"})
	assert.Empty(t, affected)
}

func TestCalculateAffectedFilesExcludesOrigins(t *testing.T) {
	graph := depgraph.New(map[string][]string{
		"A.ts": {"B.ts"},
	})

	affected := CalculateAffectedFiles(graph, []string{"A.ts", "B.ts"})
	assert.Empty(t, affected, "changed files are not re-reported as affected")
}

func TestCalculateAffectedFilesCycleTerminates(t *testing.T) {
	graph := depgraph.New(map[string][]string{
		"A.ts": {"B.ts"},
		"B.ts": {"C.ts"},
		"C.ts": {"A.ts"},
	})

	affected := CalculateAffectedFiles(graph, []string{"A.ts"})
	assert.ElementsMatch(t, []string{"B.ts", "C.ts"}, affected)
}

func TestCalculateAffectedFilesNilGraph(t *testing.T) {
	assert.Empty(t, CalculateAffectedFiles(nil, []string{"A.ts"}))
}

func initGitRepo(t *testing.T, dir string) *git.Repository {
	t.Helper()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return repo
}

func commitPaths(t *testing.T, repo *git.Repository, paths ...string) {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)
	for _, path := range paths {
		_, err = wt.Add(path)
		require.NoError(t, err)
	}
	_, err = wt.Commit("add fixtures", &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

func TestDetectChangesIdempotentInGitRepo(t *testing.T) {
	idx, root := newTestIndexer(t)
	initGitRepo(t, root)
	writeFile(t, root, "a.ts", "export const a = 1\n")
	writeFile(t, root, "b.ts", "export const b = 2\n")

	_, err := idx.SaveMetadata(context.Background())
	require.NoError(t, err)

	// The files are untracked in git but already indexed; an untouched
	// tree must report nothing
	result, err := idx.DetectChanges(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StrategyIncremental, result.Strategy)
	assert.Empty(t, result.Changes)

	_, err = idx.SaveMetadata(context.Background())
	require.NoError(t, err)

	result, err = idx.DetectChanges(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Changes)
}

func TestGitDetectorReportsAgainstIndexBaseline(t *testing.T) {
	idx, root := newTestIndexer(t)
	initGitRepo(t, root)
	writeFile(t, root, "edit.ts", "export const edit = 1\n")

	_, err := idx.SaveMetadata(context.Background())
	require.NoError(t, err)

	writeFile(t, root, "edit.ts", "export const edit = 2\n")

	result, err := idx.DetectChanges(context.Background())
	require.NoError(t, err)

	change, ok := changeByPath(result.Changes, "edit.ts")
	require.True(t, ok)
	assert.Equal(t, types.ChangeModified, change.Kind,
		"an indexed file counts as modified even while git calls it untracked")
	assert.NotEmpty(t, change.Hash)
	assert.Len(t, result.Changes, 1)
}

func TestGitDetectorSkipsExcludedDirs(t *testing.T) {
	root := t.TempDir()
	idx := New(root, Config{}) // no extension filter
	initGitRepo(t, root)
	writeFile(t, root, "a.ts", "export const a = 1\n")
	writeFile(t, root, "vendor/dep.ts", "export const dep = 1\n")
	writeFile(t, root, "node_modules/pkg/index.js", "module.exports = {}\n")

	_, err := idx.SaveMetadata(context.Background())
	require.NoError(t, err)

	// git sees the metadata file, vendor, and node_modules as
	// untracked; none of them are indexable changes
	result, err := idx.DetectChanges(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Changes)
}

func TestGitDetectorNestedProjectRoot(t *testing.T) {
	repoDir := t.TempDir()
	repo := initGitRepo(t, repoDir)
	writeFile(t, repoDir, "app/gone.ts", "export const gone = 1\n")
	writeFile(t, repoDir, "app/keep.ts", "export const keep = 1\n")
	writeFile(t, repoDir, "outside.ts", "export const outside = 1\n")
	commitPaths(t, repo, "app/gone.ts", "app/keep.ts", "outside.ts")

	root := filepath.Join(repoDir, "app")
	idx := New(root, Config{Extensions: []string{".ts"}})

	_, err := idx.SaveMetadata(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "gone.ts")))
	require.NoError(t, os.Remove(filepath.Join(repoDir, "outside.ts")))

	// One real deletion inside the root, reported once under the
	// root-relative path; the deletion outside the root is not ours
	result, err := idx.DetectChanges(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Changes, 1)
	assert.Equal(t, "gone.ts", result.Changes[0].Path)
	assert.Equal(t, types.ChangeDeleted, result.Changes[0].Kind)
}

func TestRebaseRepoPath(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "repo", "app")
	repoRoot := filepath.Join(string(filepath.Separator), "repo")

	rel, ok := rebaseRepoPath(root, repoRoot, "app/src/a.ts")
	require.True(t, ok)
	assert.Equal(t, "src/a.ts", rel)

	_, ok = rebaseRepoPath(root, repoRoot, "other/b.ts")
	assert.False(t, ok, "paths outside the project root are not ours")

	_, ok = rebaseRepoPath(root, repoRoot, "app")
	assert.False(t, ok)
}

func TestTracksPathDirectoryRules(t *testing.T) {
	idx := New(t.TempDir(), Config{})

	assert.True(t, idx.tracksPath("src/a.ts"))
	assert.False(t, idx.tracksPath(".coreindex/metadata.json"))
	assert.False(t, idx.tracksPath("vendor/dep.ts"))
	assert.False(t, idx.tracksPath("node_modules/pkg/index.js"))
	assert.False(t, idx.tracksPath("src/.hidden"))
}

func TestTryBeginCycleExclusive(t *testing.T) {
	idx, _ := newTestIndexer(t)

	require.True(t, idx.TryBeginCycle())
	assert.False(t, idx.TryBeginCycle(), "second cycle must be refused while one runs")

	idx.EndCycle()
	assert.True(t, idx.TryBeginCycle())
	idx.EndCycle()
}
