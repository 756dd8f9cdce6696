package config

import (
	"strings"
	"testing"

	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/models"
)

func TestParseConfigYAMLStringOverridesDefaults(t *testing.T) {
	yamlText := `
log_level: debug
log_format: text
search:
  preset: extended
  parallelism: 4
  grid:
    cf_deviation_limits: [1, 3]
    min_resample_limits:
      - [0, 0, 0]
      - [0, 0, 30]
storage:
  max_bytes: 1048576
store:
  driver: postgres
  dsn: postgres://optd@localhost/optd?sslmode=disable
`
	cfg, err := ParseConfigYAMLString(yamlText)
	if err != nil {
		t.Fatalf("ParseConfigYAMLString failed: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "text" {
		t.Fatalf("unexpected log settings: %s/%s", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.Search.Preset != "extended" || cfg.Search.Parallelism != 4 {
		t.Fatalf("unexpected search: %+v", cfg.Search)
	}
	// untouched fields keep defaults
	if cfg.Search.TopK != DefaultTopK || cfg.Search.BaselinePoints != models.DefaultBaselinePoints {
		t.Fatalf("expected defaults for top_k/baseline, got %d/%f", cfg.Search.TopK, cfg.Search.BaselinePoints)
	}
	if cfg.Storage.MaxBytes != 1<<20 || cfg.Oracle.MaxResponseBytes != DefaultOracleMaxResponseBytes {
		t.Fatalf("unexpected size limits: storage %d, oracle %d", cfg.Storage.MaxBytes, cfg.Oracle.MaxResponseBytes)
	}
	if cfg.Server.HTTPAddr != ":5000" {
		t.Fatalf("expected default http_addr, got %s", cfg.Server.HTTPAddr)
	}
	if cfg.Search.Grid == nil || len(cfg.Search.Grid.CFDeviationLimits) != 2 {
		t.Fatalf("expected grid override with 2 cf limits")
	}
	if cfg.Search.Grid.MinResampleLimits[1] != (models.ResampleLimit{0, 0, 30}) {
		t.Fatalf("unexpected resample override: %v", cfg.Search.Grid.MinResampleLimits)
	}
}

func TestParseConfigYAMLValidation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"bad log level", "log_level: loud\n", "invalid log_level"},
		{"bad log format", "log_format: xml\n", "invalid log_format"},
		{"bad timeout", "oracle:\n  timeout: soon\n", "invalid timeout"},
		{"zero timeout", "oracle:\n  timeout: 0s\n", "timeout must be positive"},
		{"zero oracle response limit", "oracle:\n  max_response_bytes: 0\n", "max_response_bytes"},
		{"negative storage limit", "storage:\n  max_bytes: -1\n", "storage.max_bytes"},
		{"bad oracle scheme", "oracle:\n  url: ftp://x\n", "http or https"},
		{"bad preset", "search:\n  preset: random\n", "unknown preset"},
		{"zero baseline", "search:\n  baseline_points: 0\n", "baseline_points"},
		{"zero parallelism", "search:\n  parallelism: 0\n", "parallelism"},
		{"negative top k", "search:\n  top_k: -1\n", "top_k"},
		{"bad grid type", "search:\n  grid:\n    cf_deviation_types: [relative]\n", "unknown deviation type"},
		{"negative grid limit", "search:\n  grid:\n    ef_deviation_limits: [-1]\n", "non-negative"},
		{"short resample", "search:\n  grid:\n    max_resample_limits:\n      - [0, 1]\n", "3 components"},
		{"bad default", "search:\n  default_parameters:\n    cf_deviation_type: fuzzy\n", "default_parameters"},
		{"postgres without dsn", "store:\n  driver: postgres\n", "store.dsn"},
		{"unknown driver", "store:\n  driver: sqlite\n", "store.driver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfigYAMLString(tt.yaml)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseConfigYAMLMalformed(t *testing.T) {
	if _, err := ParseConfigYAML([]byte("search: [unclosed")); err == nil {
		t.Fatal("expected yaml syntax error")
	}
}
