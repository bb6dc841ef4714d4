package retrieval

import (
	"slices"

	"github.com/corpusworks/fusedex/core"
)

// DefaultRRFConstant dampens the influence of very-top ranks in
// reciprocal rank fusion. 60 is the value from the original RRF paper
// and works well without tuning.
const DefaultRRFConstant = 60

// Fuse merges two ranked hit lists with reciprocal rank fusion. A chunk
// at 1-based rank r contributes 1/(kConstant + r) per list it appears
// in; absence from a list contributes nothing, so a chunk ranked by
// both paths at moderate positions can outscore one ranked first by a
// single path.
//
// Results are ordered by fused score descending. Equal scores rank by
// the smaller combined rank sum, then by ascending chunk ID, so fusion
// output is fully deterministic. topN caps the output; non-positive
// topN returns everything.
//
// Fusing two empty lists yields an empty result. Fuse is commutative:
// swapping the dense and sparse arguments changes which rank field is
// populated but never the scores or the order.
func Fuse(dense, sparse []core.SearchHit, kConstant, topN int) []*core.FusedResult {
	if kConstant <= 0 {
		kConstant = DefaultRRFConstant
	}

	merged := make(map[core.ID]*core.FusedResult, len(dense)+len(sparse))
	for i, hit := range dense {
		rank := i + 1
		merged[hit.ChunkId] = &core.FusedResult{
			ChunkId:   hit.ChunkId,
			DenseRank: rank,
			Score:     1 / float64(kConstant+rank),
		}
	}
	for i, hit := range sparse {
		rank := i + 1
		result, ok := merged[hit.ChunkId]
		if !ok {
			result = &core.FusedResult{ChunkId: hit.ChunkId}
			merged[hit.ChunkId] = result
		}
		result.SparseRank = rank
		result.Score += 1 / float64(kConstant+rank)
	}

	results := make([]*core.FusedResult, 0, len(merged))
	for _, result := range merged {
		results = append(results, result)
	}
	slices.SortFunc(results, compareFused)

	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results
}

// compareFused orders by score descending, then combined rank sum
// ascending, then chunk ID ascending. A rank of zero means absent from
// that list and adds nothing to the sum.
func compareFused(a, b *core.FusedResult) int {
	if a.Score > b.Score {
		return -1
	}
	if a.Score < b.Score {
		return 1
	}
	sumA := a.DenseRank + a.SparseRank
	sumB := b.DenseRank + b.SparseRank
	if sumA != sumB {
		return sumA - sumB
	}
	if a.ChunkId < b.ChunkId {
		return -1
	}
	if a.ChunkId > b.ChunkId {
		return 1
	}
	return 0
}
