package config

import (
	"fmt"

	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/models"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultTopK is how many ranked candidates are reported per run
	DefaultTopK = 5
	// DefaultStorageMaxBytes bounds a dataset object read from storage
	DefaultStorageMaxBytes = 64 << 20
	// DefaultOracleMaxResponseBytes bounds one compression service reply
	DefaultOracleMaxResponseBytes = 32 << 20
)

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "json",
		Server: ServerConfig{
			HTTPAddr: ":5000",
			GRPCAddr: ":50051",
		},
		Oracle: OracleConfig{
			Timeout:          "30s",
			MaxResponseBytes: DefaultOracleMaxResponseBytes,
		},
		Search: SearchConfig{
			Preset:         "default",
			BaselinePoints: models.DefaultBaselinePoints,
			TopK:           DefaultTopK,
			Parallelism:    1,
		},
		Storage: StorageConfig{
			FetchTimeout: "30s",
			MaxBytes:     DefaultStorageMaxBytes,
		},
		Store: StoreConfig{
			Driver: "memory",
		},
	}
}

// ParseConfigYAML parses a Config from YAML bytes on top of DefaultConfig and
// validates it. Environment overrides are not applied here.
func ParseConfigYAML(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config yaml: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ParseConfigYAMLString parses a Config from a YAML string and validates it.
func ParseConfigYAMLString(yamlText string) (*Config, error) {
	return ParseConfigYAML([]byte(yamlText))
}
