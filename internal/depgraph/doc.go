// Package depgraph holds the read-only file dependency graph consumed
// by the dependency ranking signal and by affected-file propagation.
// Graphs may contain cycles; every traversal is bounded and guarded by
// a visited set.
package depgraph
