// Copyright 2025 Corpusworks
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/corpusworks/fusedex/core"
	"github.com/corpusworks/fusedex/embed"
	"github.com/corpusworks/fusedex/storage"
)

const (
	// DefaultLimit is the number of fused hits returned when the caller
	// doesn't ask for a specific count.
	DefaultLimit = 5

	// DefaultPerListFactor sizes each retrieval path's candidate list
	// relative to the requested limit. Fetching more than limit per path
	// gives fusion enough overlap to reward agreement between the paths.
	DefaultPerListFactor = 2
)

// Options control a single retrieval call. The zero value requests
// defaults for every field.
type Options struct {
	// Limit is the maximum number of fused hits to return.
	// Zero means DefaultLimit.
	Limit int

	// PerListLimit is how many candidates each retrieval path fetches
	// before fusion. Zero means Limit * DefaultPerListFactor.
	PerListLimit int

	// RRFConstant is the smoothing constant for reciprocal rank fusion.
	// Zero means DefaultRRFConstant.
	RRFConstant int
}

// normalized fills in defaults and rejects negative values.
func (o Options) normalized() (Options, error) {
	if o.Limit < 0 {
		return o, fmt.Errorf("%w: limit must not be negative, got %d", core.ErrInvalidConfig, o.Limit)
	}
	if o.PerListLimit < 0 {
		return o, fmt.Errorf("%w: per-list limit must not be negative, got %d", core.ErrInvalidConfig, o.PerListLimit)
	}
	if o.RRFConstant < 0 {
		return o, fmt.Errorf("%w: rrf constant must not be negative, got %d", core.ErrInvalidConfig, o.RRFConstant)
	}

	if o.Limit == 0 {
		o.Limit = DefaultLimit
	}
	if o.PerListLimit == 0 {
		o.PerListLimit = o.Limit * DefaultPerListFactor
	}
	if o.RRFConstant == 0 {
		o.RRFConstant = DefaultRRFConstant
	}
	return o, nil
}

// Hit is one fused retrieval result hydrated with its chunk and the
// document it came from.
type Hit struct {
	core.FusedResult

	// Chunk is the stored chunk, including its text.
	Chunk *core.Chunk

	// Source and Title identify the parent document. Empty when the
	// document record vanished between search and hydration.
	Source string
	Title  string
}

// ResultSet is the outcome of one retrieval call.
type ResultSet struct {
	Hits []*Hit

	// Degraded reports that one retrieval path was unavailable and the
	// hits come from the surviving path alone. Ranking quality may be
	// reduced; the results are still valid.
	Degraded bool

	// DegradedReason names the failed path when Degraded is set.
	DegradedReason string
}

// Retriever runs hybrid dense and sparse retrieval over the chunk store.
type Retriever struct {
	chunks storage.ChunkRepository
	dense  embed.DenseEncoder
	sparse embed.SparseEncoder
	logger *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRetriever creates a new retriever.
func NewRetriever(
	chunks storage.ChunkRepository,
	dense embed.DenseEncoder,
	sparse embed.SparseEncoder,
	opts ...Option,
) (*Retriever, error) {
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if dense == nil {
		return nil, ErrDenseEncoderRequired
	}
	if sparse == nil {
		return nil, ErrSparseEncoderRequired
	}

	r := &Retriever{
		chunks: chunks,
		dense:  dense,
		sparse: sparse,
		logger: slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Retrieve runs the query along both retrieval paths and returns the
// fused hits, best first.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts Options) (*ResultSet, error) {
	return r.RetrieveWithMonitor(ctx, query, opts, nil)
}

// RetrieveWithMonitor runs the query along both retrieval paths with
// monitoring. The monitor receives callbacks at each stage.
//
// The dense and sparse paths run concurrently; neither reads the
// other's output, so fusion is the only join point. An embedding
// failure on one path degrades the result set instead of failing the
// call: the surviving list is fused against an empty counterpart and
// ResultSet.Degraded is set. Store failures and the loss of both paths
// are errors.
func (r *Retriever) RetrieveWithMonitor(ctx context.Context, query string, opts Options, monitor RetrievalMonitor) (*ResultSet, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidConfig, ErrEmptyQuery)
	}

	opts, err := opts.normalized()
	if err != nil {
		return nil, err
	}

	monitor.Start(query)

	var (
		denseHits  []core.SearchHit
		sparseHits []core.SearchHit
		denseErr   error
		sparseErr  error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vector, err := r.dense.Encode(gctx, query)
		if err != nil {
			// Embedding failure is degradable, not fatal.
			denseErr = err
			monitor.BranchDone(BranchDense, nil, err)
			return nil
		}
		hits, err := r.chunks.SearchDense(gctx, vector, opts.PerListLimit)
		if err != nil {
			return err
		}
		denseHits = hits
		monitor.BranchDone(BranchDense, hits, nil)
		return nil
	})
	g.Go(func() error {
		vector, err := r.sparse.Encode(gctx, query)
		if err != nil {
			sparseErr = err
			monitor.BranchDone(BranchSparse, nil, err)
			return nil
		}
		// A query of nothing but stop words has no lexical signal.
		if len(vector) == 0 {
			monitor.BranchDone(BranchSparse, nil, nil)
			return nil
		}
		hits, err := r.chunks.SearchSparse(gctx, vector, opts.PerListLimit)
		if err != nil {
			return err
		}
		sparseHits = hits
		monitor.BranchDone(BranchSparse, hits, nil)
		return nil
	})
	if err := g.Wait(); err != nil {
		r.logger.Error("retrieval search failed", "err", err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if denseErr != nil && sparseErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrAllPathsFailed, errors.Join(denseErr, sparseErr))
	}

	result := &ResultSet{}
	if denseErr != nil {
		result.Degraded = true
		result.DegradedReason = "dense retrieval unavailable: " + denseErr.Error()
		r.logger.Warn("dense retrieval unavailable, serving sparse results only", "err", denseErr)
	}
	if sparseErr != nil {
		result.Degraded = true
		result.DegradedReason = "sparse retrieval unavailable: " + sparseErr.Error()
		r.logger.Warn("sparse retrieval unavailable, serving dense results only", "err", sparseErr)
	}

	fused := Fuse(denseHits, sparseHits, opts.RRFConstant, opts.Limit)
	monitor.FusionDone(fused)

	if len(fused) == 0 {
		monitor.Finish(result)
		return result, nil
	}

	hits, err := r.hydrate(ctx, fused)
	if err != nil {
		r.logger.Error("error hydrating fused results", "resultCount", len(fused), "err", err)
		return nil, err
	}
	result.Hits = hits

	monitor.Finish(result)
	return result, nil
}

// hydrate loads the chunk and document records behind the fused
// results. Chunks deleted between search and hydration are dropped; a
// missing document record only blanks the source attribution.
func (r *Retriever) hydrate(ctx context.Context, fused []*core.FusedResult) ([]*Hit, error) {
	chunkIDs := make([]core.ID, 0, len(fused))
	for _, result := range fused {
		chunkIDs = append(chunkIDs, result.ChunkId)
	}
	chunks, err := r.chunks.GetChunks(ctx, chunkIDs...)
	if err != nil {
		return nil, err
	}
	chunkByID := make(map[core.ID]*core.Chunk, len(chunks))
	for _, chunk := range chunks {
		chunkByID[chunk.Id] = chunk
	}

	docIDs := make([]core.ID, 0, len(chunks))
	seen := make(map[core.ID]bool, len(chunks))
	for _, chunk := range chunks {
		if !seen[chunk.DocumentId] {
			seen[chunk.DocumentId] = true
			docIDs = append(docIDs, chunk.DocumentId)
		}
	}
	docs, err := r.chunks.GetDocuments(ctx, docIDs...)
	if err != nil {
		return nil, err
	}
	docByID := make(map[core.ID]*core.Document, len(docs))
	for _, doc := range docs {
		docByID[doc.Id] = doc
	}

	hits := make([]*Hit, 0, len(fused))
	for _, result := range fused {
		chunk, ok := chunkByID[result.ChunkId]
		if !ok {
			continue
		}
		hit := &Hit{FusedResult: *result, Chunk: chunk}
		if doc, ok := docByID[chunk.DocumentId]; ok {
			hit.Source = doc.Source
			hit.Title = doc.Title
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
