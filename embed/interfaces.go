package embed

import (
	"context"

	"github.com/corpusworks/fusedex/core"
)

// Encoder generates embeddings of type V from text.
// Implementations must be thread-safe for concurrent use.
type Encoder[V any] interface {
	// Encode generates an embedding for a single text string.
	// Returns an error if the embedding generation fails.
	Encode(ctx context.Context, text string) (V, error)

	// EncodeBatch generates embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling Encode multiple times.
	// The returned slice contains embeddings in the same order as the input
	// texts, one per input.
	// Returns an error if any embedding generation fails.
	EncodeBatch(ctx context.Context, texts []string) ([]V, error)
}

// DenseEncoder produces fixed-dimension semantic vectors.
type DenseEncoder = Encoder[[]float32]

// SparseEncoder produces weighted token maps for lexical matching.
// Sparse encoders work purely locally and never call a remote service.
type SparseEncoder = Encoder[core.SparseVector]
