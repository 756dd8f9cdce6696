package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultBaselinePoints is the assumed size, in points, of an uncompressed
// file. It is a normalisation constant, not derived from the dataset.
const DefaultBaselinePoints = 5000

// DeviationType selects how a filter tolerance is measured
type DeviationType string

const (
	DeviationAbsolute   DeviationType = "absolute"
	DeviationPercentage DeviationType = "percentage"
)

// ParseDeviationType accepts either vocabulary ("absolute", "ABSOLUTE", ...)
func ParseDeviationType(s string) (DeviationType, error) {
	switch DeviationType(strings.ToLower(strings.TrimSpace(s))) {
	case DeviationAbsolute:
		return DeviationAbsolute, nil
	case DeviationPercentage:
		return DeviationPercentage, nil
	default:
		return "", fmt.Errorf("unknown deviation type %q (must be absolute or percentage)", s)
	}
}

// Valid reports whether d is one of the known deviation types
func (d DeviationType) Valid() bool {
	return d == DeviationAbsolute || d == DeviationPercentage
}

// Wire returns the compression service spelling (upper-cased)
func (d DeviationType) Wire() string {
	return strings.ToUpper(string(d))
}

// ResampleLimit is an (hours, minutes, seconds) triple. It serializes as a
// plain JSON/YAML array.
type ResampleLimit [3]int

// NewResampleLimit builds a triple, rejecting negative components
func NewResampleLimit(hours, minutes, seconds int) (ResampleLimit, error) {
	r := ResampleLimit{hours, minutes, seconds}
	if err := r.Validate(); err != nil {
		return ResampleLimit{}, err
	}
	return r, nil
}

func (r ResampleLimit) Hours() int   { return r[0] }
func (r ResampleLimit) Minutes() int { return r[1] }
func (r ResampleLimit) Seconds() int { return r[2] }

// IsZero reports whether the limit is (0, 0, 0), i.e. disabled
func (r ResampleLimit) IsZero() bool {
	return r == ResampleLimit{}
}

// Duration converts the triple into a time.Duration
func (r ResampleLimit) Duration() time.Duration {
	return time.Duration(r[0])*time.Hour + time.Duration(r[1])*time.Minute + time.Duration(r[2])*time.Second
}

// Validate checks that all components are non-negative
func (r ResampleLimit) Validate() error {
	for i, v := range r {
		if v < 0 {
			return fmt.Errorf("component %d is negative (%d)", i, v)
		}
	}
	return nil
}

// Slice returns the triple as a plain []int
func (r ResampleLimit) Slice() []int {
	return []int{r[0], r[1], r[2]}
}

func (r ResampleLimit) String() string {
	return fmt.Sprintf("(%d,%d,%d)", r[0], r[1], r[2])
}

func resampleFromSlice(vals []int) (ResampleLimit, error) {
	if len(vals) != 3 {
		return ResampleLimit{}, fmt.Errorf("want 3 components (hours, minutes, seconds), got %d", len(vals))
	}
	return NewResampleLimit(vals[0], vals[1], vals[2])
}

func (r ResampleLimit) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Slice())
}

func (r *ResampleLimit) UnmarshalJSON(data []byte) error {
	var vals []int
	if err := json.Unmarshal(data, &vals); err != nil {
		return fmt.Errorf("resample limit: %w", err)
	}
	parsed, err := resampleFromSlice(vals)
	if err != nil {
		return fmt.Errorf("resample limit: %w", err)
	}
	*r = parsed
	return nil
}

func (r ResampleLimit) MarshalYAML() (any, error) {
	return r.Slice(), nil
}

func (r *ResampleLimit) UnmarshalYAML(node *yaml.Node) error {
	var vals []int
	if err := node.Decode(&vals); err != nil {
		return fmt.Errorf("resample limit: %w", err)
	}
	parsed, err := resampleFromSlice(vals)
	if err != nil {
		return fmt.Errorf("resample limit: %w", err)
	}
	*r = parsed
	return nil
}

// ValidationError reports a malformed field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

// ParameterSet is one candidate tuning of the compression and exception filters.
type ParameterSet struct {
	CFDeviationLimit float64       `json:"cf_deviation_limit" yaml:"cf_deviation_limit"`
	CFDeviationType  DeviationType `json:"cf_deviation_type" yaml:"cf_deviation_type"`
	EFDeviationLimit float64       `json:"ef_deviation_limit" yaml:"ef_deviation_limit"`
	EFDeviationType  DeviationType `json:"ef_deviation_type" yaml:"ef_deviation_type"`
	MinResampleLimit ResampleLimit `json:"min_resample_limit" yaml:"min_resample_limit"`
	MaxResampleLimit ResampleLimit `json:"max_resample_limit" yaml:"max_resample_limit"`
}

// NewParameterSet builds a validated parameter set
func NewParameterSet(cfType DeviationType, cfLimit float64, efType DeviationType, efLimit float64, minResample, maxResample ResampleLimit) (ParameterSet, error) {
	p := ParameterSet{
		CFDeviationLimit: cfLimit,
		CFDeviationType:  cfType,
		EFDeviationLimit: efLimit,
		EFDeviationType:  efType,
		MinResampleLimit: minResample,
		MaxResampleLimit: maxResample,
	}
	if err := p.Validate(); err != nil {
		return ParameterSet{}, err
	}
	return p, nil
}

// ValidateLimit checks a deviation limit: finite and non-negative
func ValidateLimit(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("must be finite")
	}
	if v < 0 {
		return fmt.Errorf("must be non-negative, got %g", v)
	}
	return nil
}

// Validate checks every field of the parameter set
func (p ParameterSet) Validate() error {
	if !p.CFDeviationType.Valid() {
		return &ValidationError{Field: "cf_deviation_type", Reason: fmt.Sprintf("unknown value %q", p.CFDeviationType)}
	}
	if err := ValidateLimit(p.CFDeviationLimit); err != nil {
		return &ValidationError{Field: "cf_deviation_limit", Reason: err.Error()}
	}
	if !p.EFDeviationType.Valid() {
		return &ValidationError{Field: "ef_deviation_type", Reason: fmt.Sprintf("unknown value %q", p.EFDeviationType)}
	}
	if err := ValidateLimit(p.EFDeviationLimit); err != nil {
		return &ValidationError{Field: "ef_deviation_limit", Reason: err.Error()}
	}
	if err := p.MinResampleLimit.Validate(); err != nil {
		return &ValidationError{Field: "min_resample_limit", Reason: err.Error()}
	}
	if err := p.MaxResampleLimit.Validate(); err != nil {
		return &ValidationError{Field: "max_resample_limit", Reason: err.Error()}
	}
	return nil
}

// ResampleInverted reports whether both resample limits are set and the
// minimum exceeds the maximum.
func (p ParameterSet) ResampleInverted() bool {
	if p.MinResampleLimit.IsZero() || p.MaxResampleLimit.IsZero() {
		return false
	}
	return p.MinResampleLimit.Duration() > p.MaxResampleLimit.Duration()
}

func (p ParameterSet) String() string {
	return fmt.Sprintf("cf=%s/%g ef=%s/%g min=%s max=%s",
		p.CFDeviationType, p.CFDeviationLimit, p.EFDeviationType, p.EFDeviationLimit,
		p.MinResampleLimit, p.MaxResampleLimit)
}

// UnmarshalJSON decodes strictly: unknown fields and invalid values are rejected.
func (p *ParameterSet) UnmarshalJSON(data []byte) error {
	type plain ParameterSet
	var raw plain
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("parameter set: %w", err)
	}
	decoded := ParameterSet(raw)
	if err := decoded.Validate(); err != nil {
		return err
	}
	*p = decoded
	return nil
}

// OptimalParameters is the externally visible outcome of an optimisation run.
type OptimalParameters struct {
	CFDeviationLimit float64       `json:"cf_deviation_limit"`
	CFDeviationType  DeviationType `json:"cf_deviation_type"`
	EFDeviationLimit float64       `json:"ef_deviation_limit"`
	EFDeviationType  DeviationType `json:"ef_deviation_type"`
	MinResampleLimit []int         `json:"min_resample_limit"`
	MaxResampleLimit []int         `json:"max_resample_limit"`
}

// NewOptimalParameters converts a winning parameter set; resample limits become
// plain ordered triples.
func NewOptimalParameters(p ParameterSet) OptimalParameters {
	return OptimalParameters{
		CFDeviationLimit: p.CFDeviationLimit,
		CFDeviationType:  p.CFDeviationType,
		EFDeviationLimit: p.EFDeviationLimit,
		EFDeviationType:  p.EFDeviationType,
		MinResampleLimit: p.MinResampleLimit.Slice(),
		MaxResampleLimit: p.MaxResampleLimit.Slice(),
	}
}

// Sample is one raw time-series point
type Sample struct {
	Timestamp string  `json:"timestamp"`
	Value     float64 `json:"value"`
}

// Dataset is an ordered sequence of samples; order is chronological.
type Dataset []Sample

// Validate checks every sample has a timestamp and a finite value
func (d Dataset) Validate() error {
	for i, s := range d {
		if strings.TrimSpace(s.Timestamp) == "" {
			return &ValidationError{Field: fmt.Sprintf("data[%d].timestamp", i), Reason: "empty"}
		}
		if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
			return &ValidationError{Field: fmt.Sprintf("data[%d].value", i), Reason: "must be finite"}
		}
	}
	return nil
}

// EvaluationResult is one scored candidate. CompressedPointCount is +Inf when
// the compression service failed for the candidate.
type EvaluationResult struct {
	Index                int
	Parameters           ParameterSet
	CompressedPointCount float64
	CompressionRatio     float64
	SizeReductionPct     float64
	DataKeptPct          float64
	Failure              string
}

// Failed reports whether the result is the failure sentinel
func (r EvaluationResult) Failed() bool {
	return math.IsInf(r.CompressedPointCount, 1)
}

type evaluationResultJSON struct {
	Index                int          `json:"index"`
	Parameters           ParameterSet `json:"parameters"`
	CompressedPointCount *float64     `json:"compressed_point_count"`
	CompressionRatio     float64      `json:"compression_ratio"`
	SizeReductionPct     *float64     `json:"size_reduction_pct"`
	DataKeptPct          float64      `json:"data_kept_pct"`
	Failure              string       `json:"failure,omitempty"`
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// MarshalJSON encodes non-finite metrics as null
func (r EvaluationResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(evaluationResultJSON{
		Index:                r.Index,
		Parameters:           r.Parameters,
		CompressedPointCount: finiteOrNil(r.CompressedPointCount),
		CompressionRatio:     r.CompressionRatio,
		SizeReductionPct:     finiteOrNil(r.SizeReductionPct),
		DataKeptPct:          r.DataKeptPct,
		Failure:              r.Failure,
	})
}

// UnmarshalJSON restores null metrics to the failure sentinel
func (r *EvaluationResult) UnmarshalJSON(data []byte) error {
	var raw evaluationResultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = EvaluationResult{
		Index:                raw.Index,
		Parameters:           raw.Parameters,
		CompressedPointCount: math.Inf(1),
		CompressionRatio:     raw.CompressionRatio,
		SizeReductionPct:     math.Inf(-1),
		DataKeptPct:          raw.DataKeptPct,
		Failure:              raw.Failure,
	}
	if raw.CompressedPointCount != nil {
		r.CompressedPointCount = *raw.CompressedPointCount
	}
	if raw.SizeReductionPct != nil {
		r.SizeReductionPct = *raw.SizeReductionPct
	}
	return nil
}
