// Package optd serves the optimiser over HTTP and gRPC.
package optd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GoSim-25-26J-441/compression-optimizer/internal/dataset"
	"github.com/GoSim-25-26J-441/compression-optimizer/internal/improvement"
	"github.com/GoSim-25-26J-441/compression-optimizer/internal/metrics"
	"github.com/GoSim-25-26J-441/compression-optimizer/internal/runstore"
	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/config"
	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/logger"
	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/models"
	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/utils"
)

// BuildSpace turns the search configuration into a parameter space
func BuildSpace(search config.SearchConfig) (*improvement.ParameterSpace, error) {
	grid, err := improvement.GridPreset(search.Preset)
	if err != nil {
		return nil, err
	}
	if g := search.Grid; g != nil {
		grid = grid.Override(improvement.Grid{
			CFDeviationTypes:  g.CFDeviationTypes,
			CFDeviationLimits: g.CFDeviationLimits,
			EFDeviationTypes:  g.EFDeviationTypes,
			EFDeviationLimits: g.EFDeviationLimits,
			MinResampleLimits: g.MinResampleLimits,
			MaxResampleLimits: g.MaxResampleLimits,
		})
	}
	space, err := improvement.NewParameterSpace(grid)
	if err != nil {
		return nil, err
	}
	return space.WithExcludeInverted(search.ExcludeInvertedResample), nil
}

// BuildOptimizer wires an optimiser from configuration
func BuildOptimizer(cfg *config.Config, oracle improvement.ScoringOracle, observer improvement.RunObserver) (*improvement.Optimizer, error) {
	space, err := BuildSpace(cfg.Search)
	if err != nil {
		return nil, fmt.Errorf("failed to build parameter space: %w", err)
	}
	timeout, err := cfg.Oracle.GetTimeout()
	if err != nil {
		return nil, fmt.Errorf("invalid oracle timeout: %w", err)
	}

	opt := improvement.NewOptimizer(space, oracle).
		WithBaseline(cfg.Search.BaselinePoints).
		WithTopK(cfg.Search.TopK).
		WithParallelism(cfg.Search.Parallelism).
		WithCallTimeout(timeout)
	if cfg.Search.DefaultParameters != nil {
		opt = opt.WithFallback(*cfg.Search.DefaultParameters)
	}
	if observer != nil {
		opt = opt.WithObserver(observer)
	}
	return opt, nil
}

// Service resolves a request, runs the optimiser and records the run
type Service struct {
	optimizer *improvement.Optimizer
	resolver  *dataset.Resolver
	store     runstore.Store
	metrics   *metrics.Metrics
}

// NewService creates a service; store and metrics may be nil
func NewService(optimizer *improvement.Optimizer, resolver *dataset.Resolver, store runstore.Store, m *metrics.Metrics) *Service {
	if store == nil {
		store = runstore.NewMemoryStore(0)
	}
	return &Service{
		optimizer: optimizer,
		resolver:  resolver,
		store:     store,
		metrics:   m,
	}
}

// Store returns the run history
func (s *Service) Store() runstore.Store {
	return s.store
}

// Space returns the searched parameter space
func (s *Service) Space() *improvement.ParameterSpace {
	return s.optimizer.Space()
}

// Run optimises the dataset a request refers to. Request errors are returned
// unchanged so callers can classify them with IsRequestError.
func (s *Service) Run(ctx context.Context, req dataset.Request) (*runstore.RunRecord, error) {
	data, err := s.resolver.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	report := s.optimizer.Optimize(ctx, data)
	rec := runstore.NewRunRecord(report, len(data), started)

	if err := s.store.Save(ctx, rec); err != nil {
		// history is best effort; the caller still gets its parameters
		logger.Error("failed to save run", "run_id", rec.ID, "error", err)
	}

	logger.Info("optimisation run finished",
		"run_id", rec.ID,
		"status", string(rec.Status),
		"points", rec.DatasetPoints,
		"candidates", rec.Candidates,
		"failed", rec.Failed,
		"duration_ms", utils.TimeToMs(report.Duration))
	return rec, nil
}

// IsRequestError reports whether err was caused by the caller's input
func IsRequestError(err error) bool {
	var verr *models.ValidationError
	return errors.Is(err, dataset.ErrNoInput) ||
		errors.Is(err, dataset.ErrFetchFailed) ||
		errors.Is(err, dataset.ErrInvalidRequest) ||
		errors.As(err, &verr)
}

// requestErrorMessage maps request errors to the messages clients expect
func requestErrorMessage(err error) string {
	switch {
	case errors.Is(err, dataset.ErrNoInput):
		return "No data or storage_url provided"
	case errors.Is(err, dataset.ErrFetchFailed):
		return "Failed to fetch data from storage_url"
	default:
		return err.Error()
	}
}
