package improvement

import (
	"math"

	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/models"
	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/utils"
)

// CompressionRatio is compressed / raw, defined as 1.0 for an empty raw series
func CompressionRatio(compressedPoints, rawPoints int) float64 {
	if rawPoints <= 0 {
		return 1.0
	}
	return float64(compressedPoints) / float64(rawPoints)
}

// DataKeptPct converts a compression ratio into the retained-data percentage
func DataKeptPct(ratio float64) float64 {
	return (1 - ratio) * 100
}

// SizeReductionPct is round(100 - compressed/baseline*100, 2). The failure
// sentinel (+Inf points) yields -Inf.
func SizeReductionPct(compressedPoints, baselinePoints float64) float64 {
	if math.IsInf(compressedPoints, 1) {
		return math.Inf(-1)
	}
	return utils.Round(100-(compressedPoints/baselinePoints*100), 2)
}

// DefaultParameterSet is returned when no candidate could be evaluated
func DefaultParameterSet() models.ParameterSet {
	return models.ParameterSet{
		CFDeviationLimit: 5,
		CFDeviationType:  models.DeviationAbsolute,
		EFDeviationLimit: 2,
		EFDeviationType:  models.DeviationPercentage,
		MinResampleLimit: models.ResampleLimit{0, 0, 0},
		MaxResampleLimit: models.ResampleLimit{0, 0, 0},
	}
}

// newResult turns an oracle outcome into a scored result
func newResult(index int, params models.ParameterSet, outcome Outcome, baselinePoints float64) models.EvaluationResult {
	r := models.EvaluationResult{
		Index:      index,
		Parameters: params,
	}
	if outcome.OK() {
		r.CompressedPointCount = float64(outcome.Metrics.CompressedPoints)
		r.CompressionRatio = outcome.Metrics.CompressionRatio
		r.DataKeptPct = utils.Round(outcome.Metrics.DataKeptPct, 2)
	} else {
		r.CompressedPointCount = math.Inf(1)
		r.CompressionRatio = 1.0
		r.DataKeptPct = 0.0
		r.Failure = outcome.Err.Error()
	}
	r.SizeReductionPct = SizeReductionPct(r.CompressedPointCount, baselinePoints)
	return r
}
