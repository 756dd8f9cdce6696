package improvement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/logger"
	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/models"
	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/utils"
)

var (
	// ErrEmptyDataset means there was nothing to compress
	ErrEmptyDataset = errors.New("no data provided")
	// ErrNoValidResult means no candidate was scored successfully
	ErrNoValidResult = errors.New("no candidate could be evaluated")
)

// RunObserver receives per-candidate and per-run notifications. It is called
// from evaluation goroutines and must be safe for concurrent use.
type RunObserver interface {
	ObserveCandidate(result models.EvaluationResult, elapsed time.Duration)
	ObserveRun(report *Report)
}

// Report is the outcome of one optimisation run
type Report struct {
	Results        []models.EvaluationResult // ranked
	Top            []models.EvaluationResult
	Optimal        models.OptimalParameters
	Winner         *models.EvaluationResult // nil on fallback
	Fallback       bool
	FallbackReason error
	Candidates     int
	Failed         int
	Duration       time.Duration
}

// Optimizer runs an exhaustive grid search over a ParameterSpace, scoring each
// candidate through a ScoringOracle. It keeps no state between runs and is
// safe for concurrent use.
type Optimizer struct {
	space          *ParameterSpace
	oracle         ScoringOracle
	baselinePoints float64
	topK           int
	parallelism    int
	callTimeout    time.Duration
	fallback       models.ParameterSet
	observer       RunObserver
}

// NewOptimizer creates an optimizer with sequential evaluation, a 5000 point
// baseline, top-5 reporting and the built-in default parameters.
func NewOptimizer(space *ParameterSpace, oracle ScoringOracle) *Optimizer {
	return &Optimizer{
		space:          space,
		oracle:         oracle,
		baselinePoints: models.DefaultBaselinePoints,
		topK:           5,
		parallelism:    1,
		fallback:       DefaultParameterSet(),
	}
}

// WithBaseline sets the reference size used for size reduction
func (o *Optimizer) WithBaseline(points float64) *Optimizer {
	if points > 0 {
		o.baselinePoints = points
	}
	return o
}

// WithTopK sets how many ranked results are reported
func (o *Optimizer) WithTopK(k int) *Optimizer {
	if k > 0 {
		o.topK = k
	}
	return o
}

// WithParallelism bounds concurrent oracle calls; 1 evaluates sequentially
func (o *Optimizer) WithParallelism(n int) *Optimizer {
	if n > 0 {
		o.parallelism = n
	}
	return o
}

// WithCallTimeout bounds each oracle call; zero means only the run context applies
func (o *Optimizer) WithCallTimeout(d time.Duration) *Optimizer {
	o.callTimeout = d
	return o
}

// WithFallback replaces the parameters returned when no result is usable
func (o *Optimizer) WithFallback(p models.ParameterSet) *Optimizer {
	o.fallback = p
	return o
}

// WithObserver installs a metrics observer
func (o *Optimizer) WithObserver(obs RunObserver) *Optimizer {
	o.observer = obs
	return o
}

// Space returns the parameter space being searched
func (o *Optimizer) Space() *ParameterSpace {
	return o.space
}

// Optimize scores every candidate against data and returns the best one. It
// always yields usable parameters: the configured fallback is returned when
// data is empty or when every candidate failed.
func (o *Optimizer) Optimize(ctx context.Context, data models.Dataset) *Report {
	start := time.Now()
	logger.Info("starting optimisation", "points", len(data))

	if len(data) == 0 {
		logger.Error("no data provided")
		report := o.fallbackReport(nil, ErrEmptyDataset)
		report.Duration = time.Since(start)
		o.observeRun(report)
		return report
	}

	candidates := o.space.Enumerate()
	logger.Info("testing parameter combinations", "candidates", len(candidates), "parallelism", o.parallelism)

	results := o.evaluateAll(ctx, candidates, data)
	ranked := Rank(results)
	logger.Info("optimisation complete", "results", len(ranked))

	var report *Report
	if best, ok := SelectBest(ranked); ok {
		report = &Report{
			Results: ranked,
			Optimal: models.NewOptimalParameters(best.Parameters),
			Winner:  &best,
		}
		logger.Info("optimal parameters", "parameters", best.Parameters.String(),
			"compressed_points", best.CompressedPointCount,
			"size_reduction_pct", best.SizeReductionPct,
			"data_kept_pct", best.DataKeptPct)
	} else {
		report = o.fallbackReport(ranked, ErrNoValidResult)
	}

	report.Top = TopK(ranked, o.topK)
	report.Candidates = len(candidates)
	for _, r := range ranked {
		if r.Failed() {
			report.Failed++
		}
	}
	report.Duration = time.Since(start)
	logger.Info("evaluation finished", "candidates", report.Candidates, "failed", report.Failed,
		"elapsed", utils.FormatDuration(report.Duration))
	logTop(report.Top)
	o.observeRun(report)
	return report
}

func (o *Optimizer) fallbackReport(ranked []models.EvaluationResult, reason error) *Report {
	logger.Warn("no results, returning default", "reason", reason.Error(), "default", o.fallback.String())
	return &Report{
		Results:        ranked,
		Top:            []models.EvaluationResult{},
		Optimal:        models.NewOptimalParameters(o.fallback),
		Fallback:       true,
		FallbackReason: reason,
	}
}

// evaluate scores one candidate. Panics from the oracle and cancelled contexts
// are turned into failure outcomes.
func (o *Optimizer) evaluate(ctx context.Context, index int, params models.ParameterSet, data models.Dataset) (result models.EvaluationResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("oracle panicked", "candidate", index, "panic", fmt.Sprint(r))
			result = newResult(index, params, Failure(fmt.Errorf("oracle panic: %v", r)), o.baselinePoints)
		}
		if o.observer != nil {
			o.observer.ObserveCandidate(result, time.Since(start))
		}
	}()

	if err := ctx.Err(); err != nil {
		return newResult(index, params, Failure(fmt.Errorf("run cancelled: %w", err)), o.baselinePoints)
	}

	callCtx := ctx
	if o.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.callTimeout)
		defer cancel()
	}

	outcome := o.oracle.Evaluate(callCtx, params, data)
	result = newResult(index, params, outcome, o.baselinePoints)
	logger.Debug("candidate evaluated", "candidate", index, "parameters", params.String(),
		"failed", result.Failed(), "data_kept_pct", result.DataKeptPct)
	return result
}

func (o *Optimizer) observeRun(report *Report) {
	if o.observer != nil {
		o.observer.ObserveRun(report)
	}
}

func logTop(top []models.EvaluationResult) {
	if len(top) == 0 {
		return
	}
	logger.Info("top parameter combinations", "count", len(top))
	for i, r := range top {
		// JSON has no infinity; failed candidates only carry the reason
		attrs := []any{"rank", i + 1, "parameters", r.Parameters.String()}
		if r.Failed() {
			attrs = append(attrs, "failure", r.Failure)
		} else {
			attrs = append(attrs,
				"file_size", r.CompressedPointCount,
				"file_size_reduction_pct", r.SizeReductionPct,
				"data_kept_pct", r.DataKeptPct)
		}
		logger.Info("top candidate", attrs...)
	}
}
