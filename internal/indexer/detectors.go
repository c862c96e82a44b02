package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"golang.org/x/sync/errgroup"

	"github.com/testweave/coreindex/pkg/types"
)

// detectGitChanges classifies changes from version-control working-tree
// status. Not being a repository is a missing capability, not an error:
// the detector reports nothing and the others cover for it.
//
// Git's baseline is the committed tree, not the persisted index
// metadata, so every status entry is reconciled against the stored
// hashes: a file git flags as untracked or modified but whose content
// already matches the metadata is not a change.
func (idx *Indexer) detectGitChanges(ctx context.Context, meta *types.IndexMetadata, tracked []string) ([]types.FileChangeInfo, error) {
	repo, err := git.PlainOpenWithOptions(idx.root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		idx.logger.Debug("not a git repository, skipping version-control detector", "root", idx.root)
		return nil, nil
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, err
	}

	status, err := worktree.Status()
	if err != nil {
		return nil, err
	}

	// Status paths are relative to the repository root, which may sit
	// above the project root when the project is nested in a larger
	// repository.
	repoRoot, err := filepath.Abs(worktree.Filesystem.Root())
	if err != nil {
		return nil, err
	}
	rootAbs, err := filepath.Abs(idx.root)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var changes []types.FileChangeInfo
	for repoPath, fileStatus := range status {
		rel, inside := rebaseRepoPath(rootAbs, repoRoot, repoPath)
		if !inside || !idx.tracksPath(rel) {
			continue
		}

		kind, ok := classifyGitStatus(fileStatus)
		if !ok {
			continue
		}

		if kind == types.ChangeDeleted {
			// Only a deletion of something the index knows about matters
			if _, known := meta.FileHashes[rel]; known {
				changes = append(changes, types.FileChangeInfo{Path: rel, Kind: types.ChangeDeleted, DetectedAt: now})
			}
			continue
		}

		hash, err := hashFile(idx.abs(rel))
		if err != nil {
			idx.logger.Warn("failed to hash changed file", "path", rel, "error", err)
			continue
		}

		stored, known := meta.FileHashes[rel]
		if known && stored == hash {
			continue
		}

		kind = types.ChangeModified
		if !known {
			kind = types.ChangeAdded
		}
		changes = append(changes, types.FileChangeInfo{Path: rel, Kind: kind, Hash: hash, DetectedAt: now})
	}

	sortChanges(changes)
	return changes, nil
}

// rebaseRepoPath converts a repository-relative status path into a
// project-root-relative one. Paths outside the project root report
// false.
func rebaseRepoPath(rootAbs, repoRoot, repoPath string) (string, bool) {
	rel, err := filepath.Rel(rootAbs, filepath.Join(repoRoot, filepath.FromSlash(repoPath)))
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

// classifyGitStatus maps a git file status to a change kind
func classifyGitStatus(status *git.FileStatus) (types.ChangeKind, bool) {
	code := status.Worktree
	if code == git.Unmodified {
		code = status.Staging
	}

	switch code {
	case git.Untracked, git.Added:
		return types.ChangeAdded, true
	case git.Modified, git.Renamed, git.Copied, git.UpdatedButUnmerged:
		return types.ChangeModified, true
	case git.Deleted:
		return types.ChangeDeleted, true
	default:
		return "", false
	}
}

// detectHashChanges recomputes every tracked file's content hash and
// compares against the stored metadata. This detector is authoritative
// for correctness; the other two are layered optimizations.
func (idx *Indexer) detectHashChanges(ctx context.Context, meta *types.IndexMetadata, tracked []string) ([]types.FileChangeInfo, error) {
	now := time.Now()

	var mu sync.Mutex
	var changes []types.FileChangeInfo

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(idx.concurrency)

	onDisk := make(map[string]struct{}, len(tracked))
	for _, rel := range tracked {
		onDisk[rel] = struct{}{}

		g.Go(func() error {
			hash, err := hashFile(idx.abs(rel))
			if err != nil {
				// Unreadable file: warn and move on
				idx.logger.Warn("failed to hash file", "path", rel, "error", err)
				return nil
			}

			stored, known := meta.FileHashes[rel]
			if known && stored == hash {
				return nil
			}

			kind := types.ChangeModified
			if !known {
				kind = types.ChangeAdded
			}

			mu.Lock()
			changes = append(changes, types.FileChangeInfo{Path: rel, Kind: kind, Hash: hash, DetectedAt: now})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Metadata paths no longer on disk are deletions
	for rel := range meta.FileHashes {
		if _, present := onDisk[rel]; !present {
			changes = append(changes, types.FileChangeInfo{Path: rel, Kind: types.ChangeDeleted, DetectedAt: now})
		}
	}

	sortChanges(changes)
	return changes, nil
}

// detectTimestampChanges compares modification times against the last
// index run. Cheap but fooled by clock skew and tools that rewrite
// mtimes, which is why the hash detector has priority over it.
func (idx *Indexer) detectTimestampChanges(ctx context.Context, meta *types.IndexMetadata, tracked []string) ([]types.FileChangeInfo, error) {
	now := time.Now()

	var changes []types.FileChangeInfo
	onDisk := make(map[string]struct{}, len(tracked))

	for _, rel := range tracked {
		onDisk[rel] = struct{}{}

		info, err := os.Stat(idx.abs(rel))
		if err != nil {
			idx.logger.Warn("failed to stat file", "path", rel, "error", err)
			continue
		}

		_, known := meta.FileHashes[rel]
		if !known {
			changes = append(changes, types.FileChangeInfo{Path: rel, Kind: types.ChangeAdded, DetectedAt: now})
			continue
		}

		if info.ModTime().After(meta.LastIndexedAt) {
			changes = append(changes, types.FileChangeInfo{Path: rel, Kind: types.ChangeModified, DetectedAt: now})
		}
	}

	// Anything present in metadata but now unreadable is a deletion
	for rel := range meta.FileHashes {
		if _, present := onDisk[rel]; present {
			continue
		}
		if _, err := os.Stat(idx.abs(rel)); err != nil {
			changes = append(changes, types.FileChangeInfo{Path: rel, Kind: types.ChangeDeleted, DetectedAt: now})
		}
	}

	sortChanges(changes)
	return changes, nil
}

// sortChanges orders a detector's output by path so merged results are
// stable run to run
func sortChanges(changes []types.FileChangeInfo) {
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Path < changes[j].Path
	})
}

// hashFile computes the SHA-256 hash of a file's raw bytes
func hashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = file.Close() }()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}
