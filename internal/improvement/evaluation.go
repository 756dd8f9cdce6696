package improvement

import (
	"context"
	"sync"

	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/models"
)

// evaluateAll scores every candidate and returns results in enumeration
// order. With parallelism > 1 at most that many goroutines exist at once: a
// slot is taken before each goroutine starts. Each goroutine writes only its
// own result slot, so ordering is preserved without locking.
func (o *Optimizer) evaluateAll(ctx context.Context, candidates []models.ParameterSet, data models.Dataset) []models.EvaluationResult {
	results := make([]models.EvaluationResult, len(candidates))

	if o.parallelism <= 1 {
		for i, params := range candidates {
			results[i] = o.evaluate(ctx, i, params, data)
		}
		return results
	}

	semaphore := make(chan struct{}, o.parallelism)
	var wg sync.WaitGroup
	for i, params := range candidates {
		semaphore <- struct{}{}
		wg.Add(1)
		go func(idx int, p models.ParameterSet) {
			defer wg.Done()
			defer func() { <-semaphore }()

			results[idx] = o.evaluate(ctx, idx, p, data)
		}(i, params)
	}
	wg.Wait()

	return results
}
