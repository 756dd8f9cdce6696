package improvement

import (
	"slices"
	"sort"

	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/models"
)

// Less orders results: fewer compressed points first, then more data kept,
// then earlier enumeration index.
func Less(a, b models.EvaluationResult) bool {
	if a.CompressedPointCount != b.CompressedPointCount {
		return a.CompressedPointCount < b.CompressedPointCount
	}
	if a.DataKeptPct != b.DataKeptPct {
		return a.DataKeptPct > b.DataKeptPct
	}
	return a.Index < b.Index
}

// Rank returns a sorted copy of results. The sort is stable, so results that
// tie on every key keep their input order.
func Rank(results []models.EvaluationResult) []models.EvaluationResult {
	ranked := slices.Clone(results)
	sort.SliceStable(ranked, func(i, j int) bool {
		return Less(ranked[i], ranked[j])
	})
	return ranked
}

// TopK returns the first min(k, len(results)) entries of Rank(results)
func TopK(results []models.EvaluationResult, k int) []models.EvaluationResult {
	if k <= 0 || len(results) == 0 {
		return []models.EvaluationResult{}
	}
	ranked := Rank(results)
	if k > len(ranked) {
		k = len(ranked)
	}
	return ranked[:k]
}

// SelectBest returns the best successful result, or false when every result
// is a failure sentinel or there are none.
func SelectBest(results []models.EvaluationResult) (models.EvaluationResult, bool) {
	ranked := Rank(results)
	if len(ranked) == 0 || ranked[0].Failed() {
		return models.EvaluationResult{}, false
	}
	return ranked[0], true
}
