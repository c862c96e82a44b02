// Package watcher turns raw filesystem notifications into debounced
// file-change reports suitable for triggering incremental indexing
// cycles.
package watcher
