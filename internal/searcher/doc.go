// Package searcher implements hybrid code search fusing three
// independent relevance signals into one ranked, explainable result
// list.
//
// Signals:
//   - Vector: embedding similarity against the chunk store, normalized
//     into [0, 1]
//   - Keyword: term-overlap ratio against an in-memory inverted index,
//     boosted by term frequency
//   - Dependency: proximity of a chunk's owning file to the query file
//     in the dependency graph, decaying with hop distance
//
// # Basic Usage
//
//	engine := searcher.New(store, graph, embedder, searcher.Config{})
//	engine.BuildKeywordIndex(chunks)
//
//	results, err := engine.Search(ctx, types.SearchQuery{
//	    Text:     "retry with exponential backoff",
//	    FilePath: "internal/client/client.go",
//	    TopK:     10,
//	    Weights:  types.DefaultWeights(),
//	})
//
// # Scoring
//
// A signal fires for a chunk only when its input (embedding, text, or
// file path) and a positive weight are both present. The aggregate
// score is the sum of fired signal scores scaled by their normalized
// weights; MatchedBy names the contributors. Results sort by score
// descending with ties broken by chunk id, so a fixed query against a
// fixed index is deterministic.
//
// # Degradation
//
// Missing optional query fields and individual signal failures degrade
// the search to the remaining signals. The only pre-lookup rejection is
// a negative weight (types.ErrInvalidWeights). When the caller's
// context expires mid-search, the engine merges whichever signals
// completed rather than failing.
//
// # Explainability
//
// ExplainSearch formats the per-signal breakdown of a result list for
// debugging ranking decisions.
package searcher
