package openai

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/corpusworks/fusedex/embed"
)

// Encoder implements embed.DenseEncoder using OpenAI-compatible embedding APIs.
type Encoder struct {
	embedder embeddings.Embedder
	config   *embed.Config
	logger   *slog.Logger
}

var _ embed.DenseEncoder = (*Encoder)(nil)

// NewEncoder creates a dense encoder using the provided configuration.
// A nil config uses embed.DefaultConfig.
//
// Returns embed.DenseEncoder interface to enforce abstraction.
func NewEncoder(config *embed.Config) (embed.DenseEncoder, error) {
	if config == nil {
		config = embed.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that don't
	// require authentication.
	token := config.APIKey
	if token == "" {
		token = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(token),
		openai.WithEmbeddingModel(config.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: create client: %w", embed.ErrProvider, err)
	}

	// Wrap in langchaingo embedder; it handles request batching.
	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithStripNewLines(true),
		embeddings.WithBatchSize(config.BatchSize),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: create embedder: %w", embed.ErrProvider, err)
	}

	return &Encoder{
		embedder: embedder,
		config:   config,
		logger:   slog.Default().With("component", "openai-encoder"),
	}, nil
}

// Encode generates a vector embedding for a single text string.
func (e *Encoder) Encode(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EncodeBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EncodeBatch generates vector embeddings for multiple text strings.
// Each provider call attempt gets a fresh request timeout; failed calls
// are retried with exponential backoff before giving up.
func (e *Encoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	e.logger.Debug("generating embeddings", "count", len(texts), "model", e.config.Model)

	var vectors [][]float32
	err := embed.RetryWithBackoff(ctx, func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, e.config.RequestTimeout)
		defer cancel()

		var embedErr error
		vectors, embedErr = e.embedder.EmbedDocuments(attemptCtx, texts)
		return embedErr
	}, e.config.MaxRetries, e.config.RetryDelay)
	if err != nil {
		// Caller-initiated cancellation is not a provider fault.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, fmt.Errorf("%w: %w", embed.ErrProvider, err)
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: %w: got %d vectors for %d texts",
			embed.ErrProvider, embed.ErrBatchMismatch, len(vectors), len(texts))
	}
	for i, vector := range vectors {
		if len(vector) != e.config.Dimensions {
			return nil, fmt.Errorf("%w: %w: vector %d has %d dimensions, want %d",
				embed.ErrProvider, embed.ErrDimensionMismatch, i, len(vector), e.config.Dimensions)
		}
		normalize(vector)
	}

	return vectors, nil
}

// normalize scales the vector to unit length in place. Dot products over
// unit vectors are cosine similarities.
func normalize(vector []float32) {
	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares == 0 {
		return
	}
	inv := 1 / math.Sqrt(sumSquares)
	for i := range vector {
		vector[i] = float32(float64(vector[i]) * inv)
	}
}
