package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/models"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv(EnvOracleURL, "")
	t.Setenv(EnvOracleKey, "")
	t.Setenv(EnvStoreDSN, "")

	cfg, err := LoadConfig("../../config/config.yaml")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Expected log_level 'info', got '%s'", cfg.LogLevel)
	}
	if cfg.Server.HTTPAddr != ":5000" {
		t.Errorf("Expected http_addr :5000, got %s", cfg.Server.HTTPAddr)
	}
	if cfg.Search.BaselinePoints != 5000 {
		t.Errorf("Expected baseline 5000, got %f", cfg.Search.BaselinePoints)
	}
	if cfg.Search.TopK != 5 {
		t.Errorf("Expected top_k 5, got %d", cfg.Search.TopK)
	}

	timeout, err := cfg.Oracle.GetTimeout()
	if err != nil {
		t.Fatalf("Failed to parse oracle timeout: %v", err)
	}
	if timeout != 30*time.Second {
		t.Errorf("Expected timeout 30s, got %v", timeout)
	}

	def := cfg.Search.DefaultParameters
	if def == nil {
		t.Fatal("DefaultParameters should not be nil")
	}
	if def.CFDeviationType != models.DeviationAbsolute || def.CFDeviationLimit != 5 {
		t.Errorf("unexpected default cf parameters: %+v", def)
	}
	if def.MinResampleLimit != (models.ResampleLimit{}) {
		t.Errorf("unexpected default min resample: %v", def.MinResampleLimit)
	}
}

func TestLoadConfigEmptyPathUsesDefaults(t *testing.T) {
	t.Setenv(EnvOracleURL, "https://compress.example.com/api/compressdata")
	t.Setenv(EnvOracleKey, "secret")
	t.Setenv(EnvStoreDSN, "")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig(\"\") failed: %v", err)
	}
	if cfg.Oracle.URL != "https://compress.example.com/api/compressdata" {
		t.Errorf("expected env URL override, got %q", cfg.Oracle.URL)
	}
	if cfg.Oracle.APIKey != "secret" {
		t.Errorf("expected env key override, got %q", cfg.Oracle.APIKey)
	}
	if cfg.Search.Preset != "default" || cfg.Search.Parallelism != 1 {
		t.Errorf("unexpected search defaults: %+v", cfg.Search)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfigValidatesEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "optd.yaml")
	if err := os.WriteFile(path, []byte("store:\n  driver: memory\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(EnvOracleURL, "ftp://nope")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected non-http oracle url from env to be rejected")
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	env := map[string]string{EnvStoreDSN: "postgres://u@db/runs"}
	ApplyEnv(cfg, func(k string) string { return env[k] })

	if cfg.Store.DSN != "postgres://u@db/runs" {
		t.Errorf("expected DSN override, got %q", cfg.Store.DSN)
	}
	if cfg.Oracle.URL != "" {
		t.Errorf("unset env should not override, got %q", cfg.Oracle.URL)
	}
}
