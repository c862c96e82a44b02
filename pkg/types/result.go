package types

// Signal names reported in SearchResult.MatchedBy
const (
	SignalVector     = "vector"
	SignalKeyword    = "keyword"
	SignalDependency = "dependency"
)

// ScoreBreakdown holds the per-signal scores of a result. A nil entry
// means the signal did not fire for this chunk.
type ScoreBreakdown struct {
	Vector     *float64
	Keyword    *float64
	Dependency *float64
}

// SearchResult is a single ranked hit from the hybrid engine
type SearchResult struct {
	Chunk CodeChunk

	// Score is the weighted combination of the fired signals
	Score float64

	Breakdown ScoreBreakdown

	// MatchedBy names the signals that contributed, in the fixed
	// order vector, keyword, dependency
	MatchedBy []string
}

// Validate checks if the search result is well formed
func (sr *SearchResult) Validate() error {
	if sr.Chunk.ID == "" {
		return ErrInvalidChunkID
	}

	if sr.Score < 0 {
		return ErrInvalidScore
	}

	if len(sr.MatchedBy) == 0 {
		return ErrNoSignals
	}

	return nil
}
