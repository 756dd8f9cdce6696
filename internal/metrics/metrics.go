// Package metrics provides Prometheus instrumentation for the optimiser.
//
// Metrics exposed:
//   - compressopt_oracle_calls_total: compression service calls by outcome
//   - compressopt_oracle_call_duration_seconds: compression service latency
//   - compressopt_candidates_total: evaluated candidates by result
//   - compressopt_runs_total: optimisation runs by outcome
//   - compressopt_run_duration_seconds: wall time of a run
//   - compressopt_last_size_reduction_pct / compressopt_last_data_kept_pct: winner of the latest run
//   - compressopt_requests_total: optimisation requests by transport and status
//
// Every method is safe to call on a nil *Metrics.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/GoSim-25-26J-441/compression-optimizer/internal/improvement"
	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/models"
)

// Run outcomes
const (
	RunOptimal          = "optimal"
	RunFallbackEmpty    = "fallback_empty"
	RunFallbackNoResult = "fallback_no_result"
)

type Metrics struct {
	OracleCalls        *prometheus.CounterVec
	OracleCallDuration prometheus.Histogram
	Candidates         *prometheus.CounterVec
	Runs               *prometheus.CounterVec
	RunDuration        prometheus.Histogram
	LastSizeReduction  prometheus.Gauge
	LastDataKept       prometheus.Gauge
	Requests           *prometheus.CounterVec
}

// New registers the optimiser metrics with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OracleCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "compressopt_oracle_calls_total",
			Help: "Total number of compression service calls by outcome",
		}, []string{"outcome"}),

		OracleCallDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "compressopt_oracle_call_duration_seconds",
			Help:    "Duration of compression service calls",
			Buckets: prometheus.DefBuckets,
		}),

		Candidates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "compressopt_candidates_total",
			Help: "Total number of evaluated parameter candidates by result",
		}, []string{"result"}),

		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "compressopt_runs_total",
			Help: "Total number of optimisation runs by outcome",
		}, []string{"outcome"}),

		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "compressopt_run_duration_seconds",
			Help:    "Duration of optimisation runs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),

		LastSizeReduction: factory.NewGauge(prometheus.GaugeOpts{
			Name: "compressopt_last_size_reduction_pct",
			Help: "Size reduction of the winner of the latest successful run",
		}),

		LastDataKept: factory.NewGauge(prometheus.GaugeOpts{
			Name: "compressopt_last_data_kept_pct",
			Help: "Data kept by the winner of the latest successful run",
		}),

		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "compressopt_requests_total",
			Help: "Total number of optimisation requests by transport and status",
		}, []string{"transport", "status"}),
	}
}

// ObserveOracleCall implements oracle.CallObserver
func (m *Metrics) ObserveOracleCall(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.OracleCalls.WithLabelValues(outcome).Inc()
	m.OracleCallDuration.Observe(elapsed.Seconds())
}

// ObserveCandidate implements improvement.RunObserver
func (m *Metrics) ObserveCandidate(result models.EvaluationResult, _ time.Duration) {
	if m == nil {
		return
	}
	label := "success"
	if result.Failed() {
		label = "failed"
	}
	m.Candidates.WithLabelValues(label).Inc()
}

// ObserveRun implements improvement.RunObserver
func (m *Metrics) ObserveRun(report *improvement.Report) {
	if m == nil || report == nil {
		return
	}
	m.Runs.WithLabelValues(RunOutcome(report)).Inc()
	m.RunDuration.Observe(report.Duration.Seconds())
	if report.Winner != nil {
		m.LastSizeReduction.Set(report.Winner.SizeReductionPct)
		m.LastDataKept.Set(report.Winner.DataKeptPct)
	}
}

// RecordRequest counts one optimisation request
func (m *Metrics) RecordRequest(transport, status string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(transport, status).Inc()
}

// RunOutcome labels a report
func RunOutcome(report *improvement.Report) string {
	switch {
	case !report.Fallback:
		return RunOptimal
	case errors.Is(report.FallbackReason, improvement.ErrEmptyDataset):
		return RunFallbackEmpty
	default:
		return RunFallbackNoResult
	}
}
