package searcher

import (
	"strings"
	"unicode"

	"github.com/testweave/coreindex/pkg/types"
)

// keywordIndex is an immutable inverted index over chunk text and
// names. It is rebuilt wholesale and swapped in atomically, so readers
// never observe a partially built index.
type keywordIndex struct {
	// term -> chunk id -> term frequency in that chunk
	postings map[string]map[string]int

	// chunk snapshot taken at build time, used for keyword and
	// dependency scoring and for result hydration
	chunks map[string]types.CodeChunk

	// file path -> ids of chunks owned by that file
	byFile map[string][]string
}

// buildKeywordIndex constructs a fresh index from a chunk snapshot
func buildKeywordIndex(chunks []types.CodeChunk) *keywordIndex {
	idx := &keywordIndex{
		postings: make(map[string]map[string]int),
		chunks:   make(map[string]types.CodeChunk, len(chunks)),
		byFile:   make(map[string][]string),
	}

	for _, chunk := range chunks {
		idx.chunks[chunk.ID] = chunk
		idx.byFile[chunk.FilePath] = append(idx.byFile[chunk.FilePath], chunk.ID)

		for term, freq := range termFrequencies(chunk.Content + " " + chunk.Name) {
			ids, ok := idx.postings[term]
			if !ok {
				ids = make(map[string]int)
				idx.postings[term] = ids
			}
			ids[chunk.ID] += freq
		}
	}

	return idx
}

// score computes the keyword score of every chunk matching the query
// text: matched terms over query terms, boosted by term frequency in
// the chunk, capped at 1.
func (idx *keywordIndex) score(queryText string) map[string]float64 {
	queryTerms := tokenize(queryText)
	if len(queryTerms) == 0 {
		return nil
	}

	matched := make(map[string]int)   // chunk id -> matched query terms
	frequency := make(map[string]int) // chunk id -> total term frequency

	seen := make(map[string]struct{}, len(queryTerms))
	uniqueTerms := 0
	for _, term := range queryTerms {
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		uniqueTerms++

		for id, freq := range idx.postings[term] {
			matched[id]++
			frequency[id] += freq
		}
	}

	scores := make(map[string]float64, len(matched))
	for id, count := range matched {
		ratio := float64(count) / float64(uniqueTerms)

		// Mild frequency boost so chunks that mention a term often
		// rank above one-off mentions
		boost := 1 + 0.1*float64(min(frequency[id], 5))
		score := ratio * boost
		if score > 1 {
			score = 1
		}
		scores[id] = score
	}

	return scores
}

// tokenize splits text into lowercase terms. Identifiers are split on
// both non-alphanumeric boundaries and camelCase transitions, and the
// whole lowercased identifier is kept as a term as well.
func tokenize(text string) []string {
	var terms []string

	for _, word := range splitNonAlnum(text) {
		lower := strings.ToLower(word)
		terms = append(terms, lower)

		parts := splitCamel(word)
		if len(parts) > 1 {
			for _, part := range parts {
				terms = append(terms, strings.ToLower(part))
			}
		}
	}

	return terms
}

// termFrequencies counts tokenized terms
func termFrequencies(text string) map[string]int {
	freqs := make(map[string]int)
	for _, term := range tokenize(text) {
		freqs[term]++
	}
	return freqs
}

// splitNonAlnum splits on any rune that is not a letter or digit
func splitNonAlnum(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// splitCamel splits an identifier at lower-to-upper transitions
func splitCamel(word string) []string {
	var parts []string
	start := 0
	runes := []rune(word)

	for i := 1; i < len(runes); i++ {
		if unicode.IsUpper(runes[i]) && unicode.IsLower(runes[i-1]) {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	parts = append(parts, string(runes[start:]))

	return parts
}
