package types

// SignalWeights controls how much each relevance signal contributes to
// the aggregate score of a hybrid search.
type SignalWeights struct {
	Vector     float64
	Keyword    float64
	Dependency float64
}

// DefaultWeights returns the standard signal weighting
func DefaultWeights() SignalWeights {
	return SignalWeights{Vector: 0.5, Keyword: 0.3, Dependency: 0.2}
}

// Validate checks that no weight is negative
func (w SignalWeights) Validate() error {
	if w.Vector < 0 || w.Keyword < 0 || w.Dependency < 0 {
		return ErrInvalidWeights
	}
	return nil
}

// Sum returns the total of all weights
func (w SignalWeights) Sum() float64 {
	return w.Vector + w.Keyword + w.Dependency
}

// Normalized returns weights scaled so they sum to 1. Weights that
// already sum to zero are returned unchanged; the engine treats an
// all-zero query as matching nothing.
func (w SignalWeights) Normalized() SignalWeights {
	sum := w.Sum()
	if sum == 0 || sum == 1 {
		return w
	}
	return SignalWeights{
		Vector:     w.Vector / sum,
		Keyword:    w.Keyword / sum,
		Dependency: w.Dependency / sum,
	}
}

// SearchQuery describes one hybrid search. Text, Embedding, and
// FilePath are each optional; a signal only fires when its input and a
// positive weight are both present.
type SearchQuery struct {
	Text      string
	Embedding []float32
	FilePath  string
	TopK      int
	Weights   SignalWeights
}
