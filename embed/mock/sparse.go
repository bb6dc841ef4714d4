package mock

import (
	"context"
	"hash/fnv"
	"strings"
	"sync/atomic"

	"github.com/corpusworks/fusedex/core"
	"github.com/corpusworks/fusedex/embed"
)

// SparseEncoder is a test double for embed.SparseEncoder.
// It allows custom behavior injection via function fields.
type SparseEncoder struct {
	// EncodeFunc is called by Encode if set.
	// If nil, uses default deterministic behavior.
	EncodeFunc func(ctx context.Context, text string) (core.SparseVector, error)

	// EncodeBatchFunc is called by EncodeBatch if set.
	// If nil, uses default deterministic behavior.
	EncodeBatchFunc func(ctx context.Context, texts []string) ([]core.SparseVector, error)

	callCount atomic.Int64
}

var _ embed.SparseEncoder = (*SparseEncoder)(nil)

// NewSparseEncoder creates a mock sparse encoder with default deterministic behavior.
// Note: Returns concrete type to allow test assertions via CallCount().
func NewSparseEncoder() *SparseEncoder {
	return &SparseEncoder{}
}

// Encode hashes lowercased whitespace-separated words into token counts.
func (m *SparseEncoder) Encode(ctx context.Context, text string) (core.SparseVector, error) {
	m.callCount.Add(1)

	if m.EncodeFunc != nil {
		return m.EncodeFunc(ctx, text)
	}

	return deterministicSparse(text), nil
}

// EncodeBatch hashes each text into token counts.
func (m *SparseEncoder) EncodeBatch(ctx context.Context, texts []string) ([]core.SparseVector, error) {
	m.callCount.Add(1)

	if m.EncodeBatchFunc != nil {
		return m.EncodeBatchFunc(ctx, texts)
	}

	vectors := make([]core.SparseVector, len(texts))
	for i, text := range texts {
		vectors[i] = deterministicSparse(text)
	}
	return vectors, nil
}

// CallCount returns the number of times any method was called.
func (m *SparseEncoder) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and injected behavior.
func (m *SparseEncoder) Reset() {
	m.callCount.Store(0)
	m.EncodeFunc = nil
	m.EncodeBatchFunc = nil
}

// deterministicSparse maps every lowercased word to a token weighted by
// its occurrence count.
func deterministicSparse(text string) core.SparseVector {
	vector := core.SparseVector{}
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		vector[h.Sum32()]++
	}
	return vector
}
