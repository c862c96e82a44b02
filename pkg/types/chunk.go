package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ChunkKind represents the structural kind of a code chunk
type ChunkKind string

const (
	ChunkFunction  ChunkKind = "function"
	ChunkMethod    ChunkKind = "method"
	ChunkClass     ChunkKind = "class"
	ChunkInterface ChunkKind = "interface"
	ChunkTypeDecl  ChunkKind = "type"
	ChunkModule    ChunkKind = "module"
)

// CodeChunk is a retrievable unit of source code with its embedding.
// Chunks are produced by an external extraction step; the core only
// stores, ranks, and invalidates them.
type CodeChunk struct {
	// Identification
	ID       string
	FilePath string
	Name     string

	// Content
	Content    string
	Kind       ChunkKind
	LineCount  int
	Complexity float64

	// Embedding produced by an external model. Length must match the
	// owning store's configured dimension.
	Embedding []float32
}

// ValidateContent checks if the chunk content is valid
func (c *CodeChunk) ValidateContent() error {
	if c.ID == "" {
		return errors.New("chunk id cannot be empty")
	}

	if c.FilePath == "" {
		return errors.New("chunk file path cannot be empty")
	}

	if c.Content == "" {
		return errors.New("chunk content cannot be empty")
	}

	if c.LineCount < 0 {
		return errors.New("line count must be non-negative")
	}

	return nil
}

// ValidateKind checks if the chunk kind is valid
func (c *CodeChunk) ValidateKind() error {
	switch c.Kind {
	case ChunkFunction, ChunkMethod, ChunkClass, ChunkInterface, ChunkTypeDecl, ChunkModule:
		return nil
	default:
		return errors.New("invalid chunk kind")
	}
}

// Validate performs comprehensive validation of the chunk
func (c *CodeChunk) Validate() error {
	if err := c.ValidateContent(); err != nil {
		return err
	}

	if err := c.ValidateKind(); err != nil {
		return err
	}

	return nil
}

// ContentHash computes the SHA-256 hash of the chunk content
func (c *CodeChunk) ContentHash() string {
	sum := sha256.Sum256([]byte(c.Content))
	return hex.EncodeToString(sum[:])
}
