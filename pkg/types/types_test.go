package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validChunk() CodeChunk {
	return CodeChunk{
		ID:       "chunk-1",
		FilePath: "internal/app/app.go",
		Name:     "Run",
		Content:  "func Run() {}",
		Kind:     ChunkFunction,
	}
}

func TestChunkValidate(t *testing.T) {
	chunk := validChunk()
	require.NoError(t, chunk.Validate())

	tests := []struct {
		name   string
		mutate func(*CodeChunk)
	}{
		{"empty id", func(c *CodeChunk) { c.ID = "" }},
		{"empty file path", func(c *CodeChunk) { c.FilePath = "" }},
		{"empty content", func(c *CodeChunk) { c.Content = "" }},
		{"negative line count", func(c *CodeChunk) { c.LineCount = -1 }},
		{"unknown kind", func(c *CodeChunk) { c.Kind = "macro" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := validChunk()
			tt.mutate(&bad)
			assert.Error(t, bad.Validate())
		})
	}
}

func TestChunkContentHash(t *testing.T) {
	a := validChunk()
	b := validChunk()
	assert.Equal(t, a.ContentHash(), b.ContentHash())
	assert.Len(t, a.ContentHash(), 64)

	b.Content += " "
	assert.NotEqual(t, a.ContentHash(), b.ContentHash())
}

func TestWeightsValidate(t *testing.T) {
	assert.NoError(t, DefaultWeights().Validate())
	assert.NoError(t, SignalWeights{}.Validate())
	assert.ErrorIs(t, SignalWeights{Vector: -0.1}.Validate(), ErrInvalidWeights)
	assert.ErrorIs(t, SignalWeights{Keyword: -1}.Validate(), ErrInvalidWeights)
	assert.ErrorIs(t, SignalWeights{Dependency: -0.5}.Validate(), ErrInvalidWeights)
}

func TestWeightsNormalized(t *testing.T) {
	normalized := SignalWeights{Vector: 2, Keyword: 1, Dependency: 1}.Normalized()
	assert.InDelta(t, 0.5, normalized.Vector, 1e-9)
	assert.InDelta(t, 0.25, normalized.Keyword, 1e-9)
	assert.InDelta(t, 0.25, normalized.Dependency, 1e-9)
	assert.InDelta(t, 1.0, normalized.Sum(), 1e-9)

	zero := SignalWeights{}.Normalized()
	assert.Equal(t, SignalWeights{}, zero)

	already := DefaultWeights().Normalized()
	assert.Equal(t, DefaultWeights(), already)
}

func TestSearchResultValidate(t *testing.T) {
	score := 0.8
	result := SearchResult{
		Chunk:     validChunk(),
		Score:     0.4,
		Breakdown: ScoreBreakdown{Vector: &score},
		MatchedBy: []string{SignalVector},
	}
	require.NoError(t, result.Validate())

	noID := result
	noID.Chunk.ID = ""
	assert.ErrorIs(t, noID.Validate(), ErrInvalidChunkID)

	negative := result
	negative.Score = -0.1
	assert.ErrorIs(t, negative.Validate(), ErrInvalidScore)

	noSignals := result
	noSignals.MatchedBy = nil
	assert.ErrorIs(t, noSignals.Validate(), ErrNoSignals)
}

func TestNewIndexMetadata(t *testing.T) {
	meta := NewIndexMetadata("/project")
	assert.Equal(t, MetadataVersion, meta.Version)
	assert.Equal(t, "/project", meta.ProjectPath)
	assert.NotNil(t, meta.FileHashes)
	assert.False(t, meta.LastIndexedAt.IsZero())
}
