package lexical

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/corpusworks/fusedex/core"
	"github.com/corpusworks/fusedex/embed"
)

// Stop words to filter out before weighting tokens
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true,
}

// Encoder implements embed.SparseEncoder using local token statistics.
type Encoder struct{}

var _ embed.SparseEncoder = (*Encoder)(nil)

// NewEncoder creates a sparse encoder.
//
// Returns embed.SparseEncoder interface to enforce abstraction.
func NewEncoder() embed.SparseEncoder {
	return &Encoder{}
}

// Encode maps text to a weighted token vector. Text consisting only of
// stop words or punctuation yields an empty vector, which is not an
// error.
func (e *Encoder) Encode(ctx context.Context, text string) (core.SparseVector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	counts := make(map[uint32]int)
	for _, token := range tokenizeAndFilter(text) {
		counts[tokenID(token)]++
	}

	vector := make(core.SparseVector, len(counts))
	for id, tf := range counts {
		vector[id] = float32(1 + math.Log(float64(tf)))
	}
	return vector, nil
}

// EncodeBatch maps each text to its weighted token vector.
func (e *Encoder) EncodeBatch(ctx context.Context, texts []string) ([]core.SparseVector, error) {
	vectors := make([]core.SparseVector, 0, len(texts))
	for _, text := range texts {
		vector, err := e.Encode(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vector)
	}
	return vectors, nil
}

// tokenizeAndFilter splits text into words, lowercases, trims punctuation, and removes stop words
func tokenizeAndFilter(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		// Lowercase and trim punctuation
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))

		// Skip stop words and empty strings
		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}

	return filtered
}

// tokenID hashes a normalized token to its stable 32-bit identifier.
// The mapping must never change; stored postings depend on it.
func tokenID(token string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(token))
	return h.Sum32()
}
