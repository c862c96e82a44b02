package semcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/testweave/coreindex/internal/chunkstore"
)

const (
	// DefaultCapacity bounds the number of cached responses
	DefaultCapacity = 256

	// DefaultSimilarityThreshold is the minimum cosine similarity for a
	// semantic hit. Deployment-tunable; this default favors precision.
	DefaultSimilarityThreshold = 0.92
)

// Request identifies one generation call. The exact fingerprint is
// derived from every field except Embedding; Embedding only feeds the
// similarity fallback.
type Request struct {
	Provider    string
	Model       string
	Prompt      string
	Temperature float64
	MaxTokens   int

	// Embedding of the prompt, optional. Enables semantic matching for
	// this request and for later requests probing against it.
	Embedding []float32
}

// Fingerprint returns the stable exact-match key for the request
func (r Request) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%g|%d", r.Provider, r.Model, r.Prompt, r.Temperature, r.MaxTokens)
	return hex.EncodeToString(h.Sum(nil))
}

// HitKind distinguishes how a lookup was satisfied
type HitKind string

const (
	HitExact    HitKind = "exact"
	HitSemantic HitKind = "semantic"
)

type entry struct {
	fingerprint string
	embedding   []float32
	response    string
	storedAt    time.Time
}

// Stats is a snapshot of cache effectiveness counters
type Stats struct {
	Entries      int
	Hits         int64
	Misses       int64
	ExactHits    int64
	SemanticHits int64
	HitRate      float64
}

// Config configures a Cache
type Config struct {
	// Capacity is the maximum entry count (default: DefaultCapacity)
	Capacity int

	// SimilarityThreshold gates semantic hits
	// (default: DefaultSimilarityThreshold)
	SimilarityThreshold float64

	// DisableSemanticMatch restricts lookups to exact fingerprints
	DisableSemanticMatch bool

	Logger *slog.Logger
}

// Cache stores prior (request, response) pairs keyed by exact
// fingerprint with LRU eviction, plus an embedding-similarity fallback
// for near-identical prompts. One instance per logical index; stats
// are owned by the instance.
type Cache struct {
	entries   *lru.Cache[string, *entry]
	threshold float64
	semantic  bool
	logger    *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// New creates a Cache
func New(cfg Config) (*Cache, error) {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	entries, err := lru.New[string, *entry](cfg.Capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	return &Cache{
		entries:   entries,
		threshold: cfg.SimilarityThreshold,
		semantic:  !cfg.DisableSemanticMatch,
		logger:    cfg.Logger,
	}, nil
}

// Set stores a response under the request's fingerprint, evicting the
// least-recently-used entry when at capacity
func (c *Cache) Set(req Request, response string) {
	fingerprint := req.Fingerprint()

	var embedding []float32
	if len(req.Embedding) > 0 {
		embedding = make([]float32, len(req.Embedding))
		copy(embedding, req.Embedding)
	}

	c.entries.Add(fingerprint, &entry{
		fingerprint: fingerprint,
		embedding:   embedding,
		response:    response,
		storedAt:    time.Now(),
	})
}

// Get looks up a response for the request: exact fingerprint first,
// then embedding similarity against stored entries when enabled and
// the request carries an embedding. A miss is a normal outcome.
func (c *Cache) Get(req Request) (string, HitKind, bool) {
	fingerprint := req.Fingerprint()

	if hit, ok := c.entries.Get(fingerprint); ok {
		c.record(HitExact)
		return hit.response, HitExact, true
	}

	if c.semantic && len(req.Embedding) > 0 {
		if hit, similarity, ok := c.bestMatch(req.Embedding); ok {
			c.logger.Debug("semantic cache hit",
				"similarity", similarity,
				"threshold", c.threshold)
			c.record(HitSemantic)
			return hit.response, HitSemantic, true
		}
	}

	c.recordMiss()
	return "", "", false
}

// bestMatch scans stored embeddings for the closest one at or above
// the threshold. Peek keeps the scan from reordering recency; only
// the winner is promoted.
func (c *Cache) bestMatch(embedding []float32) (*entry, float64, bool) {
	var best *entry
	bestSimilarity := c.threshold

	for _, key := range c.entries.Keys() {
		candidate, ok := c.entries.Peek(key)
		if !ok || len(candidate.embedding) != len(embedding) {
			continue
		}

		similarity := chunkstore.CosineSimilarity(embedding, candidate.embedding)
		if similarity >= bestSimilarity {
			best = candidate
			bestSimilarity = similarity
		}
	}

	if best == nil {
		return nil, 0, false
	}
	c.entries.Get(best.fingerprint)
	return best, bestSimilarity, true
}

// Len returns the current entry count
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Purge removes every entry; stats are unaffected
func (c *Cache) Purge() {
	c.entries.Purge()
}

// Stats returns a snapshot of the cache counters
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := c.stats
	snapshot.Entries = c.entries.Len()

	total := snapshot.Hits + snapshot.Misses
	if total > 0 {
		snapshot.HitRate = float64(snapshot.Hits) / float64(total)
	}
	return snapshot
}

// ResetStats zeroes the counters without touching stored entries
func (c *Cache) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = Stats{}
}

func (c *Cache) record(kind HitKind) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Hits++
	switch kind {
	case HitExact:
		c.stats.ExactHits++
	case HitSemantic:
		c.stats.SemanticHits++
	}
}

func (c *Cache) recordMiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Misses++
}
