package searcher

import (
	"sync"
	"time"

	"github.com/testweave/coreindex/pkg/types"
)

// Stats reports running counters for one Engine instance
type Stats struct {
	TotalSearches  int64
	AvgLatency     time.Duration
	VectorHits     int64
	KeywordHits    int64
	DependencyHits int64
}

// engineStats is the mutable backing state, one per Engine instance;
// reset restores the zero state.
type engineStats struct {
	mu             sync.Mutex
	totalSearches  int64
	totalLatency   time.Duration
	vectorHits     int64
	keywordHits    int64
	dependencyHits int64
}

// record updates counters after one search. A signal counts as a hit
// when at least one returned result is attributed to it.
func (s *engineStats) record(latency time.Duration, results []types.SearchResult) {
	var vector, keyword, dependency bool
	for i := range results {
		for _, name := range results[i].MatchedBy {
			switch name {
			case types.SignalVector:
				vector = true
			case types.SignalKeyword:
				keyword = true
			case types.SignalDependency:
				dependency = true
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalSearches++
	s.totalLatency += latency
	if vector {
		s.vectorHits++
	}
	if keyword {
		s.keywordHits++
	}
	if dependency {
		s.dependencyHits++
	}
}

func (s *engineStats) snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{
		TotalSearches:  s.totalSearches,
		VectorHits:     s.vectorHits,
		KeywordHits:    s.keywordHits,
		DependencyHits: s.dependencyHits,
	}
	if s.totalSearches > 0 {
		stats.AvgLatency = s.totalLatency / time.Duration(s.totalSearches)
	}
	return stats
}

func (s *engineStats) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalSearches = 0
	s.totalLatency = 0
	s.vectorHits = 0
	s.keywordHits = 0
	s.dependencyHits = 0
}

// Stats returns a snapshot of the engine's counters
func (e *Engine) Stats() Stats {
	return e.stats.snapshot()
}

// ResetStats clears the engine's counters
func (e *Engine) ResetStats() {
	e.stats.reset()
}
