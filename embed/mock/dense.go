package mock

import (
	"context"
	"hash/fnv"
	"math"
	"sync/atomic"

	"github.com/corpusworks/fusedex/embed"
)

// DenseEncoder is a test double for embed.DenseEncoder.
// It allows custom behavior injection via function fields.
type DenseEncoder struct {
	// EncodeFunc is called by Encode if set.
	// If nil, uses default deterministic behavior.
	EncodeFunc func(ctx context.Context, text string) ([]float32, error)

	// EncodeBatchFunc is called by EncodeBatch if set.
	// If nil, uses default deterministic behavior.
	EncodeBatchFunc func(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the width of generated vectors. Defaults to 384.
	Dimensions int

	callCount atomic.Int64
}

var _ embed.DenseEncoder = (*DenseEncoder)(nil)

// NewDenseEncoder creates a mock dense encoder with default deterministic behavior.
// Note: Returns concrete type to allow test assertions via CallCount().
func NewDenseEncoder() *DenseEncoder {
	return &DenseEncoder{Dimensions: 384}
}

// Encode generates a deterministic embedding based on the text hash.
func (m *DenseEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	m.callCount.Add(1)

	if m.EncodeFunc != nil {
		return m.EncodeFunc(ctx, text)
	}

	return deterministicVector(text, m.dims()), nil
}

// EncodeBatch generates deterministic embeddings for multiple texts.
func (m *DenseEncoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.callCount.Add(1)

	if m.EncodeBatchFunc != nil {
		return m.EncodeBatchFunc(ctx, texts)
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = deterministicVector(text, m.dims())
	}
	return vectors, nil
}

// CallCount returns the number of times any method was called.
func (m *DenseEncoder) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and injected behavior.
func (m *DenseEncoder) Reset() {
	m.callCount.Store(0)
	m.EncodeFunc = nil
	m.EncodeBatchFunc = nil
}

func (m *DenseEncoder) dims() int {
	if m.Dimensions > 0 {
		return m.Dimensions
	}
	return 384
}

// deterministicVector creates a stable unit vector from text.
// It uses FNV hash to ensure the same text always produces the same vector.
func deterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		// Simple pseudo-random generation based on seed and index
		seed = seed*1664525 + 1013904223 // LCG constants
		vector[i] = float32(seed%1000)/1000.0 - 0.5
	}

	// Normalize to unit length
	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares > 0 {
		inv := 1 / math.Sqrt(sumSquares)
		for i := range vector {
			vector[i] = float32(float64(vector[i]) * inv)
		}
	}

	return vector
}
