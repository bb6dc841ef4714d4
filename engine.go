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


package fusedex

import (
	"context"
	"log/slog"

	"github.com/corpusworks/fusedex/chunk"
	"github.com/corpusworks/fusedex/core"
	"github.com/corpusworks/fusedex/embed"
	"github.com/corpusworks/fusedex/embed/cache"
	"github.com/corpusworks/fusedex/embed/lexical"
	"github.com/corpusworks/fusedex/embed/openai"
	"github.com/corpusworks/fusedex/ingest"
	"github.com/corpusworks/fusedex/retrieval"
	"github.com/corpusworks/fusedex/storage"
	"github.com/corpusworks/fusedex/storage/badger"
)

// Engine ties the index store, the encoders, the ingestion pipeline, and
// the retriever together behind a single handle.
type Engine struct {
	backend   *badger.Backend
	chunks    storage.ChunkRepository
	dense     embed.DenseEncoder
	sparse    embed.SparseEncoder
	splitter  *chunk.Splitter
	pipeline  *ingest.Pipeline
	retriever *retrieval.Retriever
	builder   *retrieval.ContextBuilder
	logger    *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	embedConfig  *embed.Config
	dense        embed.DenseEncoder
	sparse       embed.SparseEncoder
	chunkSize    int
	chunkOverlap int
	inMemory     bool
	logger       *slog.Logger
}

// WithEmbedConfig sets the configuration for the default dense encoder.
func WithEmbedConfig(config *embed.Config) EngineOption {
	return func(o *engineOptions) {
		if config != nil {
			o.embedConfig = config
		}
	}
}

// WithDenseEncoder replaces the default remote dense encoder.
func WithDenseEncoder(encoder embed.DenseEncoder) EngineOption {
	return func(o *engineOptions) {
		o.dense = encoder
	}
}

// WithSparseEncoder replaces the default lexical sparse encoder.
func WithSparseEncoder(encoder embed.SparseEncoder) EngineOption {
	return func(o *engineOptions) {
		o.sparse = encoder
	}
}

// WithChunking sets the chunk window geometry in runes.
func WithChunking(size, overlap int) EngineOption {
	return func(o *engineOptions) {
		o.chunkSize = size
		o.chunkOverlap = overlap
	}
}

// WithInMemory keeps the index entirely in memory. Intended for tests.
func WithInMemory() EngineOption {
	return func(o *engineOptions) {
		o.inMemory = true
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New opens or creates an engine rooted at filePath.
func New(filePath string, opts ...EngineOption) (*Engine, error) {
	// Apply options
	options := &engineOptions{
		embedConfig:  embed.DefaultConfig(),
		chunkSize:    chunk.DefaultChunkSize,
		chunkOverlap: chunk.DefaultOverlap,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	// Open backend
	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	// Create chunk repository
	chunks, err := badger.NewChunkRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	// Create encoders with configured settings
	dense := options.dense
	if dense == nil {
		encoder, err := openai.NewEncoder(options.embedConfig)
		if err != nil {
			chunks.Close()
			backend.Close()
			return nil, err
		}
		dense = cache.Wrap(encoder, options.embedConfig.Model,
			options.embedConfig.CacheSize, options.embedConfig.CacheTTL)
	}

	sparse := options.sparse
	if sparse == nil {
		sparse = lexical.NewEncoder()
	}

	splitter, err := chunk.NewSplitter(options.chunkSize, options.chunkOverlap)
	if err != nil {
		chunks.Close()
		backend.Close()
		return nil, err
	}

	pipeline, err := ingest.NewPipeline(chunks, dense, sparse,
		ingest.WithSplitter(splitter),
		ingest.WithBatchSize(options.embedConfig.BatchSize),
		ingest.WithLogger(options.logger))
	if err != nil {
		chunks.Close()
		backend.Close()
		return nil, err
	}

	retriever, err := retrieval.NewRetriever(chunks, dense, sparse,
		retrieval.WithLogger(options.logger))
	if err != nil {
		pipeline.Release()
		chunks.Close()
		backend.Close()
		return nil, err
	}

	builder, err := retrieval.NewContextBuilder()
	if err != nil {
		pipeline.Release()
		chunks.Close()
		backend.Close()
		return nil, err
	}

	return &Engine{
		backend:   backend,
		chunks:    chunks,
		dense:     dense,
		sparse:    sparse,
		splitter:  splitter,
		pipeline:  pipeline,
		retriever: retriever,
		builder:   builder,
		logger:    options.logger,
	}, nil
}

// Ingest indexes a document, replacing any previous version of the same
// source. Returns the number of chunks indexed.
func (e *Engine) Ingest(ctx context.Context, doc *core.Document) (int, error) {
	return e.pipeline.Ingest(ctx, doc)
}

// Retrieve runs a hybrid search over the index.
func (e *Engine) Retrieve(ctx context.Context, query string, opts retrieval.Options) (*retrieval.ResultSet, error) {
	return e.retriever.Retrieve(ctx, query, opts)
}

// BuildContext renders hits into an LLM-ready context block.
func (e *Engine) BuildContext(hits []*retrieval.Hit) string {
	return e.builder.Build(hits)
}

// DeleteSource removes a document and its chunks from the index.
// Returns the number of chunks removed.
func (e *Engine) DeleteSource(ctx context.Context, source string) (int, error) {
	return e.chunks.DeleteBySource(ctx, source)
}

// Sources lists every indexed document with its chunk count.
func (e *Engine) Sources(ctx context.Context) ([]*storage.SourceStat, error) {
	return e.chunks.ListSources(ctx)
}

// ChunkRepository exposes the underlying index store.
func (e *Engine) ChunkRepository() storage.ChunkRepository {
	return e.chunks
}

// NewPipeline creates an additional ingestion pipeline sharing the
// engine's store, encoders, and chunking geometry.
func (e *Engine) NewPipeline(opts ...ingest.Option) (*ingest.Pipeline, error) {
	defaults := []ingest.Option{
		ingest.WithSplitter(e.splitter),
		ingest.WithLogger(e.logger),
	}
	return ingest.NewPipeline(e.chunks, e.dense, e.sparse, append(defaults, opts...)...)
}

// NewRetriever creates an additional retriever sharing the engine's
// store and encoders.
func (e *Engine) NewRetriever(opts ...retrieval.Option) (*retrieval.Retriever, error) {
	defaults := []retrieval.Option{retrieval.WithLogger(e.logger)}
	return retrieval.NewRetriever(e.chunks, e.dense, e.sparse, append(defaults, opts...)...)
}

func (e *Engine) Close() error {
	// Stop accepting work first
	e.pipeline.Release()

	// Close repositories
	if err := e.chunks.Close(); err != nil {
		e.logger.Error("error closing chunk repository", "err", err)
		return err
	}

	// Close backend
	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}
