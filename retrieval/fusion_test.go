package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpusworks/fusedex/core"
)

func TestFuse_BothEmpty(t *testing.T) {
	results := Fuse(nil, nil, DefaultRRFConstant, 10)

	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestFuse_ScoreFormula(t *testing.T) {
	dense := []core.SearchHit{
		{ChunkId: 1, Score: 0.9},
		{ChunkId: 2, Score: 0.8},
		{ChunkId: 3, Score: 0.7},
	}
	sparse := []core.SearchHit{
		{ChunkId: 4, Score: 5.0},
		{ChunkId: 5, Score: 4.0},
		{ChunkId: 1, Score: 3.0},
	}

	results := Fuse(dense, sparse, 60, 0)
	require.Len(t, results, 5)

	byID := make(map[core.ID]*core.FusedResult, len(results))
	for _, r := range results {
		byID[r.ChunkId] = r
	}

	// Chunk 1 appears in both lists: dense rank 1, sparse rank 3.
	assert.Equal(t, 1, byID[1].DenseRank)
	assert.Equal(t, 3, byID[1].SparseRank)
	assert.InDelta(t, 1.0/61+1.0/63, byID[1].Score, 1e-9)

	// Chunk 4 appears only in the sparse list at rank 1; the dense list
	// contributes exactly nothing.
	assert.Equal(t, 0, byID[4].DenseRank)
	assert.Equal(t, 1, byID[4].SparseRank)
	assert.InDelta(t, 1.0/61, byID[4].Score, 1e-9)

	// Chunk 2 appears only in the dense list at rank 2.
	assert.Equal(t, 2, byID[2].DenseRank)
	assert.Equal(t, 0, byID[2].SparseRank)
	assert.InDelta(t, 1.0/62, byID[2].Score, 1e-9)
}

func TestFuse_AgreementBeatsSingleTop(t *testing.T) {
	// Chunk 10 tops the dense list but appears nowhere in the sparse
	// list. Chunk 20 sits at moderate rank in both. With k=60 the
	// agreement wins.
	dense := []core.SearchHit{
		{ChunkId: 10, Score: 0.99},
		{ChunkId: 20, Score: 0.5},
	}
	sparse := []core.SearchHit{
		{ChunkId: 30, Score: 9.0},
		{ChunkId: 20, Score: 5.0},
	}

	results := Fuse(dense, sparse, 60, 0)
	require.Len(t, results, 3)

	assert.Equal(t, core.ID(20), results[0].ChunkId)
	assert.InDelta(t, 1.0/62+1.0/62, results[0].Score, 1e-9)
}

func TestFuse_Commutative(t *testing.T) {
	listA := []core.SearchHit{
		{ChunkId: 1, Score: 0.9},
		{ChunkId: 2, Score: 0.8},
		{ChunkId: 3, Score: 0.7},
	}
	listB := []core.SearchHit{
		{ChunkId: 3, Score: 6.0},
		{ChunkId: 4, Score: 5.0},
	}

	forward := Fuse(listA, listB, 60, 0)
	swapped := Fuse(listB, listA, 60, 0)
	require.Equal(t, len(forward), len(swapped))

	for i := range forward {
		assert.Equal(t, forward[i].ChunkId, swapped[i].ChunkId, "position %d", i)
		assert.InDelta(t, forward[i].Score, swapped[i].Score, 1e-9)

		// The rank fields trade places; the ranking does not.
		assert.Equal(t, forward[i].DenseRank, swapped[i].SparseRank)
		assert.Equal(t, forward[i].SparseRank, swapped[i].DenseRank)
	}
}

func TestFuse_TieBreakByChunkID(t *testing.T) {
	// One chunk per list, both at rank 1: identical scores.
	dense := []core.SearchHit{{ChunkId: 9, Score: 0.9}}
	sparse := []core.SearchHit{{ChunkId: 2, Score: 4.0}}

	results := Fuse(dense, sparse, 60, 0)
	require.Len(t, results, 2)

	assert.Equal(t, core.ID(2), results[0].ChunkId)
	assert.Equal(t, core.ID(9), results[1].ChunkId)
	assert.InDelta(t, results[0].Score, results[1].Score, 1e-9)
}

func TestFuse_TopN(t *testing.T) {
	dense := []core.SearchHit{
		{ChunkId: 1, Score: 0.9},
		{ChunkId: 2, Score: 0.8},
		{ChunkId: 3, Score: 0.7},
		{ChunkId: 4, Score: 0.6},
	}

	t.Run("truncates", func(t *testing.T) {
		results := Fuse(dense, nil, 60, 2)
		require.Len(t, results, 2)
		assert.Equal(t, core.ID(1), results[0].ChunkId)
		assert.Equal(t, core.ID(2), results[1].ChunkId)
	})

	t.Run("larger than input returns everything", func(t *testing.T) {
		results := Fuse(dense, nil, 60, 100)
		assert.Len(t, results, 4)
	})

	t.Run("non-positive returns everything", func(t *testing.T) {
		results := Fuse(dense, nil, 60, 0)
		assert.Len(t, results, 4)
	})
}

func TestFuse_NonPositiveConstantUsesDefault(t *testing.T) {
	dense := []core.SearchHit{
		{ChunkId: 1, Score: 0.9},
		{ChunkId: 2, Score: 0.8},
	}
	sparse := []core.SearchHit{
		{ChunkId: 2, Score: 3.0},
	}

	explicit := Fuse(dense, sparse, DefaultRRFConstant, 0)
	defaulted := Fuse(dense, sparse, 0, 0)
	require.Equal(t, len(explicit), len(defaulted))

	for i := range explicit {
		assert.Equal(t, explicit[i].ChunkId, defaulted[i].ChunkId)
		assert.InDelta(t, explicit[i].Score, defaulted[i].Score, 1e-9)
	}
}

func TestFuse_SingleListOrderPreserved(t *testing.T) {
	sparse := []core.SearchHit{
		{ChunkId: 7, Score: 9.0},
		{ChunkId: 5, Score: 8.0},
		{ChunkId: 6, Score: 7.0},
	}

	results := Fuse(nil, sparse, 60, 0)
	require.Len(t, results, 3)

	// Reciprocal rank scoring is monotone in rank, so a single list
	// fuses to itself.
	assert.Equal(t, core.ID(7), results[0].ChunkId)
	assert.Equal(t, core.ID(5), results[1].ChunkId)
	assert.Equal(t, core.ID(6), results[2].ChunkId)
}
