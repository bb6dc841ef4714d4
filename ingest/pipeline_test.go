package ingest

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpusworks/fusedex/chunk"
	"github.com/corpusworks/fusedex/core"
	"github.com/corpusworks/fusedex/embed"
	"github.com/corpusworks/fusedex/embed/lexical"
	"github.com/corpusworks/fusedex/embed/mock"
	"github.com/corpusworks/fusedex/storage"
	"github.com/corpusworks/fusedex/storage/badger"
)

const sampleText = `Hybrid search combines lexical and semantic match.

Dense vectors capture meaning. Sparse vectors capture exact terms.

Fusion merges both rankings into a single list.`

func setupTestRepository(t *testing.T) storage.ChunkRepository {
	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
		backend.Close()
	})
	return repo
}

// smallSplitter forces multi-chunk documents out of short fixtures.
func smallSplitter(t *testing.T) *chunk.Splitter {
	t.Helper()
	splitter, err := chunk.NewSplitter(60, 10)
	require.NoError(t, err)
	return splitter
}

func TestNewPipeline(t *testing.T) {
	repo := setupTestRepository(t)
	dense := mock.NewDenseEncoder()
	sparse := mock.NewSparseEncoder()

	t.Run("valid configuration", func(t *testing.T) {
		p, err := NewPipeline(repo, dense, sparse)
		require.NoError(t, err)
		require.NotNil(t, p)
		p.Release()
	})

	t.Run("nil chunk repository", func(t *testing.T) {
		_, err := NewPipeline(nil, dense, sparse)
		assert.Equal(t, ErrChunkRepositoryRequired, err)
	})

	t.Run("nil dense encoder", func(t *testing.T) {
		_, err := NewPipeline(repo, nil, sparse)
		assert.Equal(t, ErrDenseEncoderRequired, err)
	})

	t.Run("nil sparse encoder", func(t *testing.T) {
		_, err := NewPipeline(repo, dense, nil)
		assert.Equal(t, ErrSparseEncoderRequired, err)
	})

	t.Run("nil splitter option", func(t *testing.T) {
		_, err := NewPipeline(repo, dense, sparse, WithSplitter(nil))
		assert.ErrorIs(t, err, core.ErrInvalidConfig)
	})
}

func TestIngest_SplitsEmbedsAndStores(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	p, err := NewPipeline(repo, mock.NewDenseEncoder(), mock.NewSparseEncoder(),
		WithSplitter(smallSplitter(t)))
	require.NoError(t, err)
	defer p.Release()

	doc := &core.Document{Source: "docs/hybrid.md", Title: "Hybrid", Text: sampleText}
	count, err := p.Ingest(ctx, doc)
	require.NoError(t, err)
	require.Greater(t, count, 1, "fixture should split into multiple chunks")

	stored, err := repo.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, count, stored)

	sources, err := repo.ListSources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "docs/hybrid.md", sources[0].Source)
	assert.Equal(t, "Hybrid", sources[0].Title)
	assert.Equal(t, count, sources[0].ChunkCount)

	// Every chunk carries a dense vector, so all of them rank.
	hits, err := repo.SearchDense(ctx, make([]float32, 384), count+10)
	require.NoError(t, err)
	assert.Len(t, hits, count)
}

func TestIngest_DerivesDocumentID(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	p, err := NewPipeline(repo, mock.NewDenseEncoder(), mock.NewSparseEncoder())
	require.NoError(t, err)
	defer p.Release()

	doc := &core.Document{Source: "docs/id.md", Text: "identity is derived from the source path"}
	_, err = p.Ingest(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, core.DocumentID("docs/id.md"), doc.Id)

	stored, err := repo.GetDocument(ctx, core.DocumentID("docs/id.md"))
	require.NoError(t, err)
	assert.Equal(t, "docs/id.md", stored.Source)
	assert.False(t, stored.IngestedAt.IsZero(), "store stamps ingestion time")
}

func TestIngest_EmptyDocument(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	p, err := NewPipeline(repo, mock.NewDenseEncoder(), mock.NewSparseEncoder())
	require.NoError(t, err)
	defer p.Release()

	for _, text := range []string{"", "   \n\t  "} {
		count, err := p.Ingest(ctx, &core.Document{Source: "docs/empty.md", Text: text})
		require.NoError(t, err, "text %q", text)
		assert.Zero(t, count)
	}

	// Nothing was written, not even the document record.
	_, err = repo.GetDocument(ctx, core.DocumentID("docs/empty.md"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIngest_InvalidDocument(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	p, err := NewPipeline(repo, mock.NewDenseEncoder(), mock.NewSparseEncoder())
	require.NoError(t, err)
	defer p.Release()

	_, err = p.Ingest(ctx, nil)
	assert.ErrorIs(t, err, core.ErrInvalidDocument)

	_, err = p.Ingest(ctx, &core.Document{Text: "no source"})
	assert.ErrorIs(t, err, core.ErrEmptySource)
}

func TestIngest_ReplacesPreviousVersion(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	// Real lexical encoding makes the replacement observable through
	// sparse search.
	p, err := NewPipeline(repo, mock.NewDenseEncoder(), lexical.NewEncoder())
	require.NoError(t, err)
	defer p.Release()

	_, err = p.Ingest(ctx, &core.Document{
		Source: "docs/versioned.md",
		Title:  "Version One",
		Text:   "alpha appears only in version one. alpha alpha.",
	})
	require.NoError(t, err)

	count, err := p.Ingest(ctx, &core.Document{
		Source: "docs/versioned.md",
		Title:  "Version Two",
		Text:   "delta appears only in version two.",
	})
	require.NoError(t, err)

	stored, err := repo.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, count, stored, "old chunks are gone")

	encoder := lexical.NewEncoder()
	oldQuery, err := encoder.Encode(ctx, "alpha")
	require.NoError(t, err)
	hits, err := repo.SearchSparse(ctx, oldQuery, 10)
	require.NoError(t, err)
	assert.Empty(t, hits, "postings of the old version are gone")

	newQuery, err := encoder.Encode(ctx, "delta")
	require.NoError(t, err)
	hits, err = repo.SearchSparse(ctx, newQuery, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, hits)

	sources, err := repo.ListSources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "Version Two", sources[0].Title)
}

func TestIngest_DenseFailureLeavesStoreUntouched(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	dense := mock.NewDenseEncoder()
	p, err := NewPipeline(repo, dense, mock.NewSparseEncoder(), WithSplitter(smallSplitter(t)))
	require.NoError(t, err)
	defer p.Release()

	_, err = p.Ingest(ctx, &core.Document{Source: "docs/stable.md", Title: "Good", Text: sampleText})
	require.NoError(t, err)
	before, err := repo.CountChunks(ctx)
	require.NoError(t, err)

	dense.EncodeBatchFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, fmt.Errorf("%w: rate limited", embed.ErrProvider)
	}

	_, err = p.Ingest(ctx, &core.Document{Source: "docs/stable.md", Title: "Bad", Text: "replacement attempt"})
	require.Error(t, err)
	assert.ErrorIs(t, err, embed.ErrProvider)
	assert.ErrorContains(t, err, "dense embedding")

	// The previous good version survives intact.
	after, err := repo.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	sources, err := repo.ListSources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "Good", sources[0].Title)
}

func TestIngest_SparseFailureLeavesStoreUntouched(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	sparse := mock.NewSparseEncoder()
	sparse.EncodeFunc = func(ctx context.Context, text string) (core.SparseVector, error) {
		return nil, fmt.Errorf("tokenizer failure")
	}

	p, err := NewPipeline(repo, mock.NewDenseEncoder(), sparse)
	require.NoError(t, err)
	defer p.Release()

	_, err = p.Ingest(ctx, &core.Document{Source: "docs/doomed.md", Text: "never indexed"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "sparse embedding")

	count, err := repo.CountChunks(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestIngest_BatchCountMismatch(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	dense := mock.NewDenseEncoder()
	dense.EncodeBatchFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1, 0}}, nil
	}

	p, err := NewPipeline(repo, dense, mock.NewSparseEncoder(), WithSplitter(smallSplitter(t)))
	require.NoError(t, err)
	defer p.Release()

	_, err = p.Ingest(ctx, &core.Document{Source: "docs/mismatch.md", Text: sampleText})
	assert.ErrorIs(t, err, embed.ErrBatchMismatch)
}

func TestIngest_InconsistentDimensions(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	// Batch size 1 gives every chunk its own encoder call, so the
	// second call can disagree with the first on dimensionality.
	var calls atomic.Int64
	dense := mock.NewDenseEncoder()
	dense.EncodeBatchFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		dims := 3
		if calls.Add(1) > 1 {
			dims = 4
		}
		out := make([][]float32, len(texts))
		for i := range out {
			out[i] = make([]float32, dims)
			out[i][0] = 1
		}
		return out, nil
	}

	p, err := NewPipeline(repo, dense, mock.NewSparseEncoder(),
		WithSplitter(smallSplitter(t)), WithBatchSize(1))
	require.NoError(t, err)
	defer p.Release()

	_, err = p.Ingest(ctx, &core.Document{Source: "docs/dims.md", Text: sampleText})
	assert.ErrorIs(t, err, ErrInconsistentVectors)

	count, err := repo.CountChunks(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestIngest_ProgressReporting(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	var mu sync.Mutex
	var dones []int
	var totals []int

	p, err := NewPipeline(repo, mock.NewDenseEncoder(), mock.NewSparseEncoder(),
		WithSplitter(smallSplitter(t)),
		WithBatchSize(1),
		WithProgress(func(done, total int) {
			mu.Lock()
			defer mu.Unlock()
			dones = append(dones, done)
			totals = append(totals, total)
		}))
	require.NoError(t, err)
	defer p.Release()

	count, err := p.Ingest(ctx, &core.Document{Source: "docs/progress.md", Text: sampleText})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()

	// One report per embedding: each chunk embeds twice.
	want := 2 * count
	require.Len(t, dones, want)
	for _, total := range totals {
		assert.Equal(t, want, total)
	}

	// Counts are unique and cover 1..total, whatever the arrival order.
	slices.Sort(dones)
	for i, done := range dones {
		assert.Equal(t, i+1, done)
	}
}

func TestIngest_CanceledContext(t *testing.T) {
	repo := setupTestRepository(t)

	p, err := NewPipeline(repo, mock.NewDenseEncoder(), mock.NewSparseEncoder())
	require.NoError(t, err)
	defer p.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.Ingest(ctx, &core.Document{Source: "docs/canceled.md", Text: "never stored"})
	assert.ErrorIs(t, err, context.Canceled)

	count, err := repo.CountChunks(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}
