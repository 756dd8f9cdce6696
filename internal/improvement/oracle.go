package improvement

import (
	"context"

	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/models"
)

// ScoringOracle scores one candidate against a dataset. Implementations must
// not panic on remote failures; they report them through Outcome.Err.
type ScoringOracle interface {
	Evaluate(ctx context.Context, params models.ParameterSet, data models.Dataset) Outcome
}

// OracleFunc adapts a plain function to ScoringOracle
type OracleFunc func(ctx context.Context, params models.ParameterSet, data models.Dataset) Outcome

func (f OracleFunc) Evaluate(ctx context.Context, params models.ParameterSet, data models.Dataset) Outcome {
	return f(ctx, params, data)
}

// CompressionMetrics is what a successful oracle call reports
type CompressionMetrics struct {
	RawPoints        int
	CompressedPoints int
	CompressionRatio float64
	DataKeptPct      float64
}

// Outcome is either metrics (Err == nil) or a failure reason
type Outcome struct {
	Metrics CompressionMetrics
	Err     error
}

// OK reports whether the call succeeded
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Success derives ratio and data kept from point counts
func Success(compressedPoints, rawPoints int) Outcome {
	ratio := CompressionRatio(compressedPoints, rawPoints)
	return Outcome{
		Metrics: CompressionMetrics{
			RawPoints:        rawPoints,
			CompressedPoints: compressedPoints,
			CompressionRatio: ratio,
			DataKeptPct:      DataKeptPct(ratio),
		},
	}
}

// Failure wraps a failure reason
func Failure(err error) Outcome {
	return Outcome{Err: err}
}
