package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"github.com/corpusworks/fusedex/chunk"
	"github.com/corpusworks/fusedex/core"
	"github.com/corpusworks/fusedex/embed"
	"github.com/corpusworks/fusedex/storage"
)

// DefaultBatchSize is the number of chunk texts sent to the dense
// encoder per request.
const DefaultBatchSize = 64

// Pipeline orchestrates the ingestion of documents into the index.
// It manages concurrent generation of dense and sparse embeddings.
type Pipeline struct {
	chunks     storage.ChunkRepository
	dense      embed.DenseEncoder
	sparse     embed.SparseEncoder
	splitter   *chunk.Splitter
	densePool  *ants.Pool
	sparsePool *ants.Pool
	batchSize  int
	progress   func(done, total int)
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pools
		if p.densePool != nil {
			p.densePool.Release()
		}
		if p.sparsePool != nil {
			p.sparsePool.Release()
		}

		// Create new pools
		densePool, err := ants.NewPool(size)
		if err != nil {
			return err
		}

		sparsePool, err := ants.NewPool(size)
		if err != nil {
			densePool.Release()
			return err
		}

		p.densePool = densePool
		p.sparsePool = sparsePool
		return nil
	}
}

// WithBatchSize sets how many chunk texts are sent to the dense encoder
// per request. Default is DefaultBatchSize, with a minimum of 1.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		p.batchSize = size
		return nil
	}
}

// WithSplitter replaces the default chunking geometry.
func WithSplitter(splitter *chunk.Splitter) Option {
	return func(p *Pipeline) error {
		if splitter == nil {
			return fmt.Errorf("%w: splitter cannot be nil", core.ErrInvalidConfig)
		}
		p.splitter = splitter
		return nil
	}
}

// WithProgress sets a callback reporting embedding completion. Each
// chunk counts twice, once per embedding kind. The callback is invoked
// from worker goroutines and must be safe for concurrent use.
func WithProgress(fn func(done, total int)) Option {
	return func(p *Pipeline) error {
		p.progress = fn
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	chunks storage.ChunkRepository,
	dense embed.DenseEncoder,
	sparse embed.SparseEncoder,
	opts ...Option,
) (*Pipeline, error) {
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if dense == nil {
		return nil, ErrDenseEncoderRequired
	}
	if sparse == nil {
		return nil, ErrSparseEncoderRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	densePool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	sparsePool, err := ants.NewPool(poolSize)
	if err != nil {
		densePool.Release()
		return nil, err
	}

	splitter, err := chunk.NewSplitter(chunk.DefaultChunkSize, chunk.DefaultOverlap)
	if err != nil {
		densePool.Release()
		sparsePool.Release()
		return nil, err
	}

	// Create pipeline with defaults
	p := &Pipeline{
		chunks:     chunks,
		dense:      dense,
		sparse:     sparse,
		splitter:   splitter,
		densePool:  densePool,
		sparsePool: sparsePool,
		batchSize:  DefaultBatchSize,
		logger:     slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Ingest splits the document, embeds every chunk, and commits the result
// as one atomic replacement of whatever was previously indexed for the
// document's source. Nothing is written unless every chunk embeds
// successfully. The returned count is the number of chunks indexed.
func (p *Pipeline) Ingest(ctx context.Context, doc *core.Document) (int, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return 0, err
	}
	doc.Id = core.DocumentID(doc.Source)

	spans := p.splitter.SplitAll(doc.Text)
	if len(spans) == 0 {
		p.logger.Debug("document produced no chunks", "source", doc.Source)
		return 0, nil
	}

	texts := make([]string, len(spans))
	for i, span := range spans {
		texts[i] = span.Text
	}

	// Each chunk completes twice, once per embedding kind.
	total := 2 * len(texts)
	var completed atomic.Int64
	report := func(delta int) {
		if p.progress == nil {
			return
		}
		p.progress(int(completed.Add(int64(delta))), total)
	}

	denseVectors := make([][]float32, len(texts))
	sparseVectors := make([]core.SparseVector, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.embedDense(gctx, texts, denseVectors, report)
	})
	g.Go(func() error {
		return p.embedSparse(gctx, texts, sparseVectors, report)
	})
	if err := g.Wait(); err != nil {
		return 0, err
	}

	dims := len(denseVectors[0])
	chunks := make([]*core.Chunk, len(texts))
	for i, text := range texts {
		if len(denseVectors[i]) != dims {
			return 0, fmt.Errorf("%w: chunk %d has %d dimensions, chunk 0 has %d",
				ErrInconsistentVectors, i, len(denseVectors[i]), dims)
		}

		c := &core.Chunk{
			Id:         core.ChunkID(doc.Source, i, text),
			DocumentId: doc.Id,
			Ordinal:    i,
			Text:       text,
			Dense:      denseVectors[i],
			Sparse:     sparseVectors[i],
		}
		if err := core.ValidateChunk(c); err != nil {
			return 0, err
		}
		chunks[i] = c
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if err := p.chunks.UpsertDocument(ctx, doc, chunks); err != nil {
		return 0, err
	}

	p.logger.Info("ingested document", "source", doc.Source, "chunks", len(chunks))
	return len(chunks), nil
}

// embedDense fills vectors with batched dense embeddings, fanning the
// batches out over the dense worker pool.
func (p *Pipeline) embedDense(ctx context.Context, texts []string, vectors [][]float32, report func(int)) error {
	batches := (len(texts) + p.batchSize - 1) / p.batchSize

	var wg sync.WaitGroup
	errs := make([]error, batches)

	for b := 0; b < batches; b++ {
		lo := b * p.batchSize
		hi := min(lo+p.batchSize, len(texts))

		wg.Add(1)
		task := func() {
			defer wg.Done()

			if err := ctx.Err(); err != nil {
				errs[b] = err
				return
			}

			encoded, err := p.dense.EncodeBatch(ctx, texts[lo:hi])
			if err != nil {
				errs[b] = fmt.Errorf("dense embedding batch %d: %w", b, err)
				return
			}
			if len(encoded) != hi-lo {
				errs[b] = fmt.Errorf("%w: batch %d: sent %d texts, got %d vectors",
					embed.ErrBatchMismatch, b, hi-lo, len(encoded))
				return
			}

			copy(vectors[lo:hi], encoded)
			report(hi - lo)
		}
		if err := p.densePool.Submit(task); err != nil {
			wg.Done()
			errs[b] = err
			break
		}
	}

	wg.Wait()
	return errors.Join(errs...)
}

// embedSparse fills vectors with per-chunk sparse embeddings on the
// sparse worker pool. Sparse encoding is local and cheap, so chunks are
// not batched.
func (p *Pipeline) embedSparse(ctx context.Context, texts []string, vectors []core.SparseVector, report func(int)) error {
	var wg sync.WaitGroup
	errs := make([]error, len(texts))

	for i := range texts {
		wg.Add(1)
		task := func() {
			defer wg.Done()

			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}

			vector, err := p.sparse.Encode(ctx, texts[i])
			if err != nil {
				errs[i] = fmt.Errorf("sparse embedding chunk %d: %w", i, err)
				return
			}

			vectors[i] = vector
			report(1)
		}
		if err := p.sparsePool.Submit(task); err != nil {
			wg.Done()
			errs[i] = err
			break
		}
	}

	wg.Wait()
	return errors.Join(errs...)
}

// Release releases resources including worker pools.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.densePool != nil {
		p.densePool.Release()
	}
	if p.sparsePool != nil {
		p.sparsePool.Release()
	}
}
