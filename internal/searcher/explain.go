package searcher

import (
	"fmt"
	"strings"

	"github.com/testweave/coreindex/pkg/types"
)

// ExplainSearch renders a human-readable breakdown of a result list:
// which signals fired per result, their individual scores, and the
// weights used to combine them. Pure formatting, no side effects.
func ExplainSearch(results []types.SearchResult, weights types.SignalWeights) string {
	var b strings.Builder

	normalized := weights.Normalized()
	fmt.Fprintf(&b, "weights: vector=%.2f keyword=%.2f dependency=%.2f\n",
		normalized.Vector, normalized.Keyword, normalized.Dependency)

	if len(results) == 0 {
		b.WriteString("no results\n")
		return b.String()
	}

	for i, result := range results {
		fmt.Fprintf(&b, "%d. %s (%s) score=%.4f\n",
			i+1, result.Chunk.ID, result.Chunk.FilePath, result.Score)
		fmt.Fprintf(&b, "   matched by: %s\n", strings.Join(result.MatchedBy, ", "))

		if result.Breakdown.Vector != nil {
			fmt.Fprintf(&b, "   vector:     %.4f x %.2f = %.4f\n",
				*result.Breakdown.Vector, normalized.Vector, *result.Breakdown.Vector*normalized.Vector)
		}
		if result.Breakdown.Keyword != nil {
			fmt.Fprintf(&b, "   keyword:    %.4f x %.2f = %.4f\n",
				*result.Breakdown.Keyword, normalized.Keyword, *result.Breakdown.Keyword*normalized.Keyword)
		}
		if result.Breakdown.Dependency != nil {
			fmt.Fprintf(&b, "   dependency: %.4f x %.2f = %.4f\n",
				*result.Breakdown.Dependency, normalized.Dependency, *result.Breakdown.Dependency*normalized.Dependency)
		}
	}

	return b.String()
}
