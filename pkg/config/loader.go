package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/models"
)

// Environment variables that override file values. Secrets are expected here
// rather than in the YAML file.
const (
	EnvOracleURL = "COMPRESSION_API_URL"
	EnvOracleKey = "COMPRESSION_API_KEY"
	EnvStoreDSN  = "RUN_STORE_DSN"
)

// LoadConfig loads and parses a configuration file, then applies environment
// overrides. An empty path yields DefaultConfig with overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		cfg, err = ParseConfigYAML(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	ApplyEnv(cfg, os.Getenv)
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config after environment overrides: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays non-empty environment values onto cfg
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv(EnvOracleURL); v != "" {
		cfg.Oracle.URL = v
	}
	if v := getenv(EnvOracleKey); v != "" {
		cfg.Oracle.APIKey = v
	}
	if v := getenv(EnvStoreDSN); v != "" {
		cfg.Store.DSN = v
	}
}

// validateConfig performs validation on the configuration
func validateConfig(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return fmt.Errorf("invalid log_format: %s (must be json or text)", cfg.LogFormat)
	}

	if cfg.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr cannot be empty")
	}

	if err := validateOracle(&cfg.Oracle); err != nil {
		return fmt.Errorf("oracle validation failed: %w", err)
	}

	if err := validateSearch(&cfg.Search); err != nil {
		return fmt.Errorf("search validation failed: %w", err)
	}

	if _, err := cfg.Storage.GetFetchTimeout(); err != nil {
		return fmt.Errorf("invalid storage.fetch_timeout %q: %w", cfg.Storage.FetchTimeout, err)
	}
	if cfg.Storage.MaxBytes <= 0 {
		return fmt.Errorf("storage.max_bytes must be positive")
	}

	switch cfg.Store.Driver {
	case "memory":
	case "postgres":
		if cfg.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("invalid store.driver: %s (must be memory or postgres)", cfg.Store.Driver)
	}

	return nil
}

func validateOracle(o *OracleConfig) error {
	timeout, err := o.GetTimeout()
	if err != nil {
		return fmt.Errorf("invalid timeout %q: %w", o.Timeout, err)
	}
	if timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if o.MaxResponseBytes <= 0 {
		return fmt.Errorf("max_response_bytes must be positive")
	}
	if o.URL == "" {
		return nil
	}
	u, err := url.Parse(o.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url must be http or https, got %q", o.URL)
	}
	return nil
}

func validateSearch(s *SearchConfig) error {
	switch strings.ToLower(s.Preset) {
	case "default", "extended":
	default:
		return fmt.Errorf("unknown preset %q (must be default or extended)", s.Preset)
	}
	if s.BaselinePoints <= 0 {
		return fmt.Errorf("baseline_points must be positive")
	}
	if s.TopK <= 0 {
		return fmt.Errorf("top_k must be positive")
	}
	if s.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be at least 1")
	}
	if s.Grid != nil {
		if err := validateGrid(s.Grid); err != nil {
			return fmt.Errorf("grid: %w", err)
		}
	}
	if s.DefaultParameters != nil {
		if err := s.DefaultParameters.Validate(); err != nil {
			return fmt.Errorf("default_parameters: %w", err)
		}
	}
	return nil
}

func validateGrid(g *GridConfig) error {
	for name, types := range map[string][]models.DeviationType{
		"cf_deviation_types": g.CFDeviationTypes,
		"ef_deviation_types": g.EFDeviationTypes,
	} {
		for _, dt := range types {
			if !dt.Valid() {
				return fmt.Errorf("%s: unknown deviation type %q", name, dt)
			}
		}
	}
	for name, limits := range map[string][]float64{
		"cf_deviation_limits": g.CFDeviationLimits,
		"ef_deviation_limits": g.EFDeviationLimits,
	} {
		for _, v := range limits {
			if err := models.ValidateLimit(v); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	return nil
}
