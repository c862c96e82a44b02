//go:build sqlite_vec
// +build sqlite_vec

package chunkstore

// This file is compiled when building with CGO and the sqlite_vec tag.
// It enables the sqlite-vec extension so cosine distance is computed at
// the database layer.
//
// Build command:
//   CGO_ENABLED=1 go build -tags "sqlite_vec" ./...
//
// Driver used: github.com/mattn/go-sqlite3

import (
	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// VectorExtensionAvailable indicates if vector extension is available
	VectorExtensionAvailable = true

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)

func init() {
	// Register sqlite-vec for all future connections
	sqlite_vec.Auto()
}
