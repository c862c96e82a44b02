package searcher

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/testweave/coreindex/internal/chunkstore"
	"github.com/testweave/coreindex/internal/depgraph"
	"github.com/testweave/coreindex/internal/embedder"
	"github.com/testweave/coreindex/pkg/types"
)

const (
	defaultTopK    = 10
	maxTopK        = 100
	defaultMaxHops = 2

	// Vector search over-fetches so the merge step has candidates to
	// work with even when other signals push them down
	vectorFetchFactor = 2
)

// Config tunes an Engine
type Config struct {
	// MaxHops bounds the dependency-signal traversal (default 2)
	MaxHops int

	Logger *slog.Logger
}

// Engine fuses vector similarity, keyword overlap, and dependency
// proximity into one ranked result list. Construct one Engine per
// logical index; statistics are owned by the instance.
type Engine struct {
	store    chunkstore.Store
	graph    *depgraph.Graph
	embedder embedder.Embedder // optional, query-side only
	logger   *slog.Logger
	maxHops  int

	mu    sync.RWMutex
	index *keywordIndex

	stats engineStats
}

// New creates a hybrid search engine. The embedder may be nil; the
// vector signal then fires only for queries that carry an embedding.
func New(store chunkstore.Store, graph *depgraph.Graph, emb embedder.Embedder, cfg Config) *Engine {
	if cfg.MaxHops <= 0 {
		cfg.MaxHops = defaultMaxHops
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Engine{
		store:    store,
		graph:    graph,
		embedder: emb,
		logger:   cfg.Logger,
		maxHops:  cfg.MaxHops,
		index:    buildKeywordIndex(nil),
	}
}

// SetGraph replaces the dependency graph used by the dependency signal
func (e *Engine) SetGraph(graph *depgraph.Graph) {
	e.mu.Lock()
	e.graph = graph
	e.mu.Unlock()
}

// BuildKeywordIndex rebuilds the inverted index from a chunk snapshot.
// The rebuild happens off to the side and the finished index is swapped
// in atomically, so concurrent searches never see a torn view.
func (e *Engine) BuildKeywordIndex(chunks []types.CodeChunk) {
	fresh := buildKeywordIndex(chunks)

	e.mu.Lock()
	e.index = fresh
	e.mu.Unlock()
}

// signalResult carries one signal's scores back to the collector
type signalResult struct {
	name   string
	scores map[string]float64
	chunks map[string]types.CodeChunk // populated by the vector signal
	err    error
}

// Search runs every signal the query enables concurrently and merges
// the scores. Missing optional query fields degrade the search; they
// never fail it. A caller timeout on ctx yields a partial result from
// whichever signals completed in time.
func (e *Engine) Search(ctx context.Context, query types.SearchQuery) ([]types.SearchResult, error) {
	start := time.Now()

	if err := query.Weights.Validate(); err != nil {
		return nil, err
	}
	weights := query.Weights.Normalized()

	if query.TopK <= 0 {
		query.TopK = defaultTopK
	}
	if query.TopK > maxTopK {
		query.TopK = maxTopK
	}

	e.mu.RLock()
	index := e.index
	graph := e.graph
	e.mu.RUnlock()

	resultChan := make(chan signalResult, 3)
	fired := 0

	if weights.Vector > 0 && (len(query.Embedding) > 0 || (e.embedder != nil && query.Text != "")) {
		fired++
		go e.runVectorSignal(ctx, query, resultChan)
	}
	if weights.Keyword > 0 && query.Text != "" {
		fired++
		go func() {
			resultChan <- signalResult{name: types.SignalKeyword, scores: index.score(query.Text)}
		}()
	}
	if weights.Dependency > 0 && query.FilePath != "" && graph != nil {
		fired++
		go func() {
			resultChan <- signalResult{name: types.SignalDependency, scores: dependencyScores(graph, index, query.FilePath, e.maxHops)}
		}()
	}

	// Collect until every fired signal reports or the caller's
	// deadline expires; a timeout merges whatever already arrived.
	collected := make([]signalResult, 0, fired)
	for len(collected) < fired {
		select {
		case res := <-resultChan:
			if res.err != nil {
				e.logger.Warn("search signal failed", "signal", res.name, "error", res.err)
				res.scores = nil
			}
			collected = append(collected, res)
		case <-ctx.Done():
			e.logger.Warn("search deadline expired, returning partial result",
				"completed", len(collected), "fired", fired)
			fired = len(collected)
		}
	}

	results := e.merge(collected, index, weights, query.TopK)
	e.stats.record(time.Since(start), results)

	return results, nil
}

// runVectorSignal queries the chunk store by embedding similarity,
// resolving the query embedding from text when the caller did not
// supply one
func (e *Engine) runVectorSignal(ctx context.Context, query types.SearchQuery, out chan<- signalResult) {
	res := signalResult{name: types.SignalVector}

	queryEmbedding := query.Embedding
	if len(queryEmbedding) == 0 {
		emb, err := e.embedder.GenerateEmbedding(ctx, query.Text)
		if err != nil {
			// Embedding unavailable: degrade, don't fail
			res.err = err
			out <- res
			return
		}
		queryEmbedding = emb.Vector
	}

	scored, err := e.store.Search(ctx, queryEmbedding, chunkstore.SearchOptions{
		K: query.TopK * vectorFetchFactor,
	})
	if err != nil {
		res.err = err
		out <- res
		return
	}

	res.scores = make(map[string]float64, len(scored))
	res.chunks = make(map[string]types.CodeChunk, len(scored))
	for _, sc := range scored {
		res.scores[sc.Chunk.ID] = normalizeSimilarity(sc.Similarity)
		res.chunks[sc.Chunk.ID] = sc.Chunk
	}

	out <- res
}

// dependencyScores scores chunks owned by files near the query file in
// the dependency graph; the score decays with hop distance
func dependencyScores(graph *depgraph.Graph, index *keywordIndex, filePath string, maxHops int) map[string]float64 {
	neighbors := graph.NeighborsWithin(filePath, maxHops)
	if len(neighbors) == 0 {
		return nil
	}

	scores := make(map[string]float64)
	for file, hop := range neighbors {
		score := 1.0 / float64(1+hop)
		for _, id := range index.byFile[file] {
			if score > scores[id] {
				scores[id] = score
			}
		}
	}

	return scores
}

// normalizeSimilarity maps a raw similarity into [0, 1]. Cosine lives
// in [-1, 1]; anything outside is clamped.
func normalizeSimilarity(similarity float64) float64 {
	normalized := (similarity + 1) / 2
	if normalized < 0 {
		return 0
	}
	if normalized > 1 {
		return 1
	}
	return normalized
}

// merge aggregates the per-signal scores into the final ranking.
// Aggregate score is the weight-scaled sum over the signals that fired
// for each chunk; ties break by chunk id for reproducibility.
func (e *Engine) merge(collected []signalResult, index *keywordIndex, weights types.SignalWeights, topK int) []types.SearchResult {
	perSignal := make(map[string]map[string]float64, len(collected))
	vectorChunks := make(map[string]types.CodeChunk)
	for _, res := range collected {
		if res.scores != nil {
			perSignal[res.name] = res.scores
		}
		for id, chunk := range res.chunks {
			vectorChunks[id] = chunk
		}
	}

	signalWeight := map[string]float64{
		types.SignalVector:     weights.Vector,
		types.SignalKeyword:    weights.Keyword,
		types.SignalDependency: weights.Dependency,
	}

	byID := make(map[string]*types.SearchResult)
	// Fixed signal order keeps MatchedBy and breakdowns deterministic
	for _, name := range []string{types.SignalVector, types.SignalKeyword, types.SignalDependency} {
		scores, ok := perSignal[name]
		if !ok {
			continue
		}
		for id, score := range scores {
			result, ok := byID[id]
			if !ok {
				chunk, found := e.lookupChunk(id, index, vectorChunks)
				if !found {
					continue
				}
				result = &types.SearchResult{Chunk: chunk}
				byID[id] = result
			}

			score := score
			switch name {
			case types.SignalVector:
				result.Breakdown.Vector = &score
			case types.SignalKeyword:
				result.Breakdown.Keyword = &score
			case types.SignalDependency:
				result.Breakdown.Dependency = &score
			}
			result.Score += score * signalWeight[name]
			result.MatchedBy = append(result.MatchedBy, name)
		}
	}

	results := make([]types.SearchResult, 0, len(byID))
	for _, result := range byID {
		results = append(results, *result)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})

	if topK < len(results) {
		results = results[:topK]
	}
	return results
}

// lookupChunk resolves chunk data from the vector results or the
// keyword-index snapshot
func (e *Engine) lookupChunk(id string, index *keywordIndex, vectorChunks map[string]types.CodeChunk) (types.CodeChunk, bool) {
	if chunk, ok := vectorChunks[id]; ok {
		return chunk, true
	}
	chunk, ok := index.chunks[id]
	return chunk, ok
}
