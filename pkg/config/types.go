package config

import (
	"time"

	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/models"
)

// Config represents the optimiser daemon and CLI configuration
type Config struct {
	LogLevel  string        `yaml:"log_level"`
	LogFormat string        `yaml:"log_format"` // json or text
	Server    ServerConfig  `yaml:"server"`
	Oracle    OracleConfig  `yaml:"oracle"`
	Search    SearchConfig  `yaml:"search"`
	Storage   StorageConfig `yaml:"storage"`
	Store     StoreConfig   `yaml:"store"`
}

// ServerConfig holds listen addresses
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"` // empty disables the gRPC listener
	// CORSOrigins lists browser origins allowed to call POST /optimise
	CORSOrigins []string `yaml:"cors_origins"`
}

// OracleConfig points at the remote compression service
type OracleConfig struct {
	URL     string `yaml:"url"`
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"` // per call, e.g. "30s"
	// MaxResponseBytes caps one compression reply; larger replies count as malformed
	MaxResponseBytes int64 `yaml:"max_response_bytes"`
}

// SearchConfig controls the grid search
type SearchConfig struct {
	Preset                  string               `yaml:"preset"` // default or extended
	Grid                    *GridConfig          `yaml:"grid,omitempty"`
	BaselinePoints          float64              `yaml:"baseline_points"`
	TopK                    int                  `yaml:"top_k"`
	Parallelism             int                  `yaml:"parallelism"`
	ExcludeInvertedResample bool                 `yaml:"exclude_inverted_resample"`
	DefaultParameters       *models.ParameterSet `yaml:"default_parameters,omitempty"`
}

// GridConfig overrides individual domains of the preset. Empty lists keep the
// preset's domain.
type GridConfig struct {
	CFDeviationTypes  []models.DeviationType `yaml:"cf_deviation_types"`
	CFDeviationLimits []float64              `yaml:"cf_deviation_limits"`
	EFDeviationTypes  []models.DeviationType `yaml:"ef_deviation_types"`
	EFDeviationLimits []float64              `yaml:"ef_deviation_limits"`
	MinResampleLimits []models.ResampleLimit `yaml:"min_resample_limits"`
	MaxResampleLimits []models.ResampleLimit `yaml:"max_resample_limits"`
}

// StorageConfig controls dataset retrieval from storage locators
type StorageConfig struct {
	FetchTimeout string `yaml:"fetch_timeout"`
	MaxBytes     int64  `yaml:"max_bytes"` // largest dataset object accepted
}

// StoreConfig selects where run history is kept
type StoreConfig struct {
	Driver string `yaml:"driver"` // memory or postgres
	DSN    string `yaml:"dsn"`
}

// GetTimeout parses the per-call oracle timeout
func (o *OracleConfig) GetTimeout() (time.Duration, error) {
	return time.ParseDuration(o.Timeout)
}

// GetFetchTimeout parses the storage fetch timeout
func (s *StorageConfig) GetFetchTimeout() (time.Duration, error) {
	return time.ParseDuration(s.FetchTimeout)
}
