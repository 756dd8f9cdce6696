//go:build integration
// +build integration

package integration_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GoSim-25-26J-441/compression-optimizer/internal/dataset"
	"github.com/GoSim-25-26J-441/compression-optimizer/internal/metrics"
	"github.com/GoSim-25-26J-441/compression-optimizer/internal/optd"
	"github.com/GoSim-25-26J-441/compression-optimizer/internal/oracle"
	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/config"
)

// fakeCompressionService answers with as many points as the requested cf
// deviation limit and rejects requests without the function key.
func fakeCompressionService(t *testing.T, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get(oracle.APIKeyHeader) != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req struct {
			RawData    []json.RawMessage `json:"rawData"`
			Parameters struct {
				DeviationLimit float64 `json:"deviationLimit"`
				DeviationType  string  `json:"deviationType"`
			} `json:"parameters"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		n := int(req.Parameters.DeviationLimit)
		if req.Parameters.DeviationType == "PERCENTAGE" {
			n++
		}
		points := make([]map[string]any, n)
		for i := range points {
			points[i] = map[string]any{"timestamp": i, "value": 0}
		}
		_ = json.NewEncoder(w).Encode(points)
	}))
}

func newStack(t *testing.T, oracleURL, apiKey string) http.Handler {
	t.Helper()
	cfg, err := config.ParseConfigYAMLString(`
log_level: error
oracle:
  timeout: 5s
search:
  preset: default
  parallelism: 4
  top_k: 3
`)
	if err != nil {
		t.Fatalf("ParseConfigYAMLString failed: %v", err)
	}
	cfg.Oracle.APIKey = apiKey

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	client := oracle.NewClient(oracleURL, cfg.Oracle.APIKey,
		oracle.WithTimeout(5*time.Second),
		oracle.WithMaxResponseBytes(cfg.Oracle.MaxResponseBytes),
		oracle.WithObserver(m))
	opt, err := optd.BuildOptimizer(cfg, client, m)
	if err != nil {
		t.Fatalf("BuildOptimizer failed: %v", err)
	}
	svc := optd.NewService(opt, dataset.NewResolver(dataset.NewFetcher(5*time.Second).WithMaxBytes(cfg.Storage.MaxBytes)), nil, m)
	return optd.NewHTTPServer(svc, optd.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))).Handler()
}

func TestIntegration_ConfigLoadSmoke(t *testing.T) {
	cfgPath := filepath.Join("..", "..", "config", "config.yaml")

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		t.Fatalf("LoadConfig(%s) failed: %v", cfgPath, err)
	}
	space, err := optd.BuildSpace(cfg.Search)
	if err != nil {
		t.Fatalf("BuildSpace failed: %v", err)
	}
	if space.Size() != 8 {
		t.Fatalf("expected the default grid of 8 candidates, got %d", space.Size())
	}
}

func TestIntegration_OptimiseFromStorageOverHTTP(t *testing.T) {
	var calls atomic.Int64
	compress := fakeCompressionService(t, &calls)
	defer compress.Close()

	blob := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("timestamp,value\n2024-01-01T00:00:00Z,1\n2024-01-01T00:01:00Z,2\n2024-01-01T00:02:00Z,4\n"))
	}))
	defer blob.Close()

	srv := httptest.NewServer(newStack(t, compress.URL, "secret"))
	defer srv.Close()

	body, _ := json.Marshal(map[string]any{"storage_url": blob.URL + "/readings.csv"})
	resp, err := http.Post(srv.URL+"/v1/optimizations", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var out struct {
		Run struct {
			ID            string         `json:"id"`
			Status        string         `json:"status"`
			DatasetPoints int            `json:"dataset_points"`
			Candidates    int            `json:"candidates"`
			Optimal       map[string]any `json:"optimal"`
			Top           []any          `json:"top"`
		} `json:"run"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if out.Run.Status != "completed" || out.Run.DatasetPoints != 3 || out.Run.Candidates != 8 {
		t.Fatalf("unexpected run: %+v", out.Run)
	}
	if out.Run.Optimal["cf_deviation_type"] != "absolute" || out.Run.Optimal["cf_deviation_limit"] != 2.0 {
		t.Fatalf("unexpected optimal parameters: %v", out.Run.Optimal)
	}
	if len(out.Run.Top) != 3 {
		t.Fatalf("expected 3 top results, got %d", len(out.Run.Top))
	}
	if calls.Load() != 8 {
		t.Fatalf("expected one oracle call per candidate, got %d", calls.Load())
	}

	resp, err = http.Get(srv.URL + "/v1/optimizations/" + out.Run.ID)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected stored run, got %d", resp.StatusCode)
	}
}

func TestIntegration_UnauthorizedOracleFallsBack(t *testing.T) {
	var calls atomic.Int64
	compress := fakeCompressionService(t, &calls)
	defer compress.Close()

	// every call is rejected with 401
	srv := httptest.NewServer(newStack(t, compress.URL, "wrong"))
	defer srv.Close()

	body := `{"data": [{"timestamp": "t1", "value": 1}, {"timestamp": "t2", "value": 2}]}`
	resp, err := http.Post(srv.URL+"/optimise", "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with default parameters, got %d", resp.StatusCode)
	}
	var optimal map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&optimal); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if optimal["cf_deviation_limit"] != 5.0 {
		t.Fatalf("expected default cf limit 5, got %v", optimal["cf_deviation_limit"])
	}

	metricsResp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer metricsResp.Body.Close()
	raw, _ := io.ReadAll(metricsResp.Body)
	for _, want := range []string{
		`compressopt_runs_total{outcome="fallback_no_result"} 1`,
		`compressopt_oracle_calls_total{outcome="status_error"} 8`,
	} {
		if !strings.Contains(string(raw), want) {
			t.Fatalf("expected %q in /metrics output", want)
		}
	}
}
