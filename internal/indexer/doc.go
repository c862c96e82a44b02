// Package indexer implements incremental change detection for an
// indexed project tree.
//
// The indexer persists a metadata snapshot (per-file SHA-256 hashes
// plus the last index time) after each cycle. On the next cycle,
// DetectChanges compares the tree against that snapshot using three
// detectors run concurrently:
//
//   - git: working-tree status from version control, when available
//   - hash: per-file content hashes (authoritative)
//   - timestamp: modification times (cheap, least trusted)
//
// Outputs merge in that fixed priority order; the first detector to
// report a path wins. A single failed detector degrades the result
// rather than failing the cycle. With no metadata on disk, the cycle
// reports a full-index strategy with TotalFilesToReindex set to
// ReindexEverything.
//
// CalculateAffectedFiles extends a changed-file set to everything that
// transitively depends on it, so callers can regenerate exactly the
// impacted work products.
package indexer
