package improvement

import (
	"math"
	"testing"

	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/models"
)

func result(index int, count, kept float64) models.EvaluationResult {
	return models.EvaluationResult{
		Index:                index,
		Parameters:           DefaultParameterSet(),
		CompressedPointCount: count,
		DataKeptPct:          kept,
	}
}

func indexes(results []models.EvaluationResult) []int {
	out := make([]int, len(results))
	for i, r := range results {
		out[i] = r.Index
	}
	return out
}

func TestRankOrdering(t *testing.T) {
	results := []models.EvaluationResult{
		result(0, 40, 20),
		result(1, math.Inf(1), 0),
		result(2, 10, 50),
		result(3, 10, 80),
		result(4, 25, 10),
	}

	ranked := Rank(results)
	got := indexes(ranked)
	want := []int{3, 2, 4, 0, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}

	// input is left untouched
	if results[0].Index != 0 || results[2].Index != 2 {
		t.Fatal("Rank modified its input")
	}
}

func TestRankEqualCountPrefersMoreDataKept(t *testing.T) {
	ranked := Rank([]models.EvaluationResult{
		result(0, 3, 40),
		result(1, 3, 60),
	})
	if ranked[0].Index != 1 {
		t.Fatalf("expected higher data kept first, got index %d", ranked[0].Index)
	}
}

func TestRankTieBreakByEnumerationOrder(t *testing.T) {
	// shuffled input, identical metrics
	ranked := Rank([]models.EvaluationResult{
		result(2, 7, 30),
		result(0, 7, 30),
		result(1, 7, 30),
	})
	got := indexes(ranked)
	for i, idx := range got {
		if idx != i {
			t.Fatalf("expected enumeration order, got %v", got)
		}
	}
}

func TestRankFailuresTieAmongThemselves(t *testing.T) {
	ranked := Rank([]models.EvaluationResult{
		result(1, math.Inf(1), 0),
		result(0, math.Inf(1), 0),
	})
	if ranked[0].Index != 0 {
		t.Fatalf("expected failures ordered by index, got %v", indexes(ranked))
	}
}

func TestTopKBound(t *testing.T) {
	results := []models.EvaluationResult{
		result(0, 5, 0), result(1, 4, 0), result(2, 3, 0),
		result(3, 2, 0), result(4, 1, 0), result(5, 6, 0), result(6, 7, 0),
	}

	for _, tt := range []struct {
		input []models.EvaluationResult
		k     int
		want  int
	}{
		{results, 5, 5},
		{results[:3], 5, 3},
		{results, 0, 0},
		{nil, 5, 0},
	} {
		top := TopK(tt.input, tt.k)
		if len(top) != tt.want {
			t.Fatalf("TopK(%d results, %d) returned %d entries, expected %d", len(tt.input), tt.k, len(top), tt.want)
		}
		ranked := Rank(tt.input)
		for i := range top {
			if top[i].Index != ranked[i].Index {
				t.Fatalf("TopK is not a prefix of Rank at %d", i)
			}
		}
	}
}

func TestSelectBest(t *testing.T) {
	best, ok := SelectBest([]models.EvaluationResult{
		result(0, math.Inf(1), 0),
		result(1, 12, 10),
		result(2, 9, 10),
	})
	if !ok {
		t.Fatal("expected a winner")
	}
	if best.Index != 2 {
		t.Fatalf("expected index 2, got %d", best.Index)
	}

	if _, ok := SelectBest(nil); ok {
		t.Fatal("expected no winner for empty results")
	}
	if _, ok := SelectBest([]models.EvaluationResult{result(0, math.Inf(1), 0)}); ok {
		t.Fatal("expected no winner when every result failed")
	}
}
