// Package oracle implements the scoring oracle against the remote compression
// service.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/GoSim-25-26J-441/compression-optimizer/internal/improvement"
	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/logger"
	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/models"
	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/utils"
)

// APIKeyHeader carries the compression service key
const APIKeyHeader = "x-functions-key"

// Call outcomes reported to a CallObserver
const (
	OutcomeSuccess   = "success"
	OutcomeStatus    = "status_error"
	OutcomeMalformed = "malformed"
	OutcomeTransport = "transport_error"
)

// ErrMalformedResponse is returned when the service answers 2xx with something
// other than a JSON array.
var ErrMalformedResponse = errors.New("malformed compression response")

// StatusError is a non-2xx answer from the compression service
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("compression service returned status %d", e.Code)
	}
	return fmt.Sprintf("compression service returned status %d: %s", e.Code, e.Body)
}

// CallObserver is notified once per compression call
type CallObserver interface {
	ObserveOracleCall(outcome string, elapsed time.Duration)
}

// CompressRequest is the body posted to the compression service
type CompressRequest struct {
	RawData    []models.Sample `json:"rawData"`
	Parameters WireParameters  `json:"parameters"`
}

// WireParameters is a ParameterSet in the compression service's vocabulary
type WireParameters struct {
	DeviationLimit                float64 `json:"deviationLimit"`
	DeviationType                 string  `json:"deviationType"`
	ExceptionFilterDeviationLimit float64 `json:"exceptionFilterDeviationLimit"`
	ExceptionFilterDeviationType  string  `json:"exceptionFilterDeviationType"`
	MinResampleLimit              []int   `json:"minResampleLimit"`
	MaxResampleLimit              []int   `json:"maxResampleLimit"`
}

// NewCompressRequest builds the wire request for one candidate
func NewCompressRequest(params models.ParameterSet, data models.Dataset) CompressRequest {
	raw := data
	if raw == nil {
		raw = models.Dataset{}
	}
	return CompressRequest{
		RawData: raw,
		Parameters: WireParameters{
			DeviationLimit:                params.CFDeviationLimit,
			DeviationType:                 params.CFDeviationType.Wire(),
			ExceptionFilterDeviationLimit: params.EFDeviationLimit,
			ExceptionFilterDeviationType:  params.EFDeviationType.Wire(),
			MinResampleLimit:              params.MinResampleLimit.Slice(),
			MaxResampleLimit:              params.MaxResampleLimit.Slice(),
		},
	}
}

// Client is an HTTP client for the compression service. It implements
// improvement.ScoringOracle and is safe for concurrent use.
type Client struct {
	url              string
	apiKey           string
	httpClient       *http.Client
	observer         CallObserver
	maxResponseBytes int64
}

// DefaultMaxResponseBytes caps a compression service reply
const DefaultMaxResponseBytes = 32 << 20

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the HTTP client timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMaxResponseBytes caps the size of a reply; larger replies are malformed
func WithMaxResponseBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxResponseBytes = n
		}
	}
}

// WithObserver installs a call observer, typically Prometheus metrics
func WithObserver(obs CallObserver) Option {
	return func(c *Client) {
		c.observer = obs
	}
}

// NewClient creates a client for the compression endpoint at url.
// A default timeout of 30 seconds is used.
func NewClient(url, apiKey string, opts ...Option) *Client {
	c := &Client{
		url:    url,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxResponseBytes: DefaultMaxResponseBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compress posts one candidate and returns the compressed points
func (c *Client) Compress(ctx context.Context, params models.ParameterSet, data models.Dataset) ([]json.RawMessage, error) {
	body, err := json.Marshal(NewCompressRequest(params, data))
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}

	var raw json.RawMessage
	if err := json.NewDecoder(utils.LimitReader(resp.Body, c.maxResponseBytes)).Decode(&raw); err != nil {
		if errors.Is(err, utils.ErrBodyTooLarge) {
			return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrMalformedResponse)
	}
	var points []json.RawMessage
	if err := json.Unmarshal(raw, &points); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return points, nil
}

// Evaluate implements improvement.ScoringOracle. Every failure becomes a
// failure Outcome.
func (c *Client) Evaluate(ctx context.Context, params models.ParameterSet, data models.Dataset) improvement.Outcome {
	start := time.Now()
	logger.Debug("calling compression service", "parameters", params.String(), "points", len(data))

	points, err := c.Compress(ctx, params, data)
	elapsed := time.Since(start)
	c.observe(classify(err), elapsed)

	if err != nil {
		logger.Error("compression service error", "parameters", params.String(), "error", err)
		return improvement.Failure(err)
	}

	outcome := improvement.Success(len(points), len(data))
	logger.Info("compression result",
		"parameters", params.String(),
		"file_size", outcome.Metrics.CompressedPoints,
		"ratio", outcome.Metrics.CompressionRatio,
		"data_kept_pct", outcome.Metrics.DataKeptPct,
		"duration_ms", elapsed.Milliseconds())
	return outcome
}

func (c *Client) observe(outcome string, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveOracleCall(outcome, elapsed)
	}
}

func classify(err error) string {
	var statusErr *StatusError
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.As(err, &statusErr):
		return OutcomeStatus
	case errors.Is(err, ErrMalformedResponse):
		return OutcomeMalformed
	default:
		return OutcomeTransport
	}
}
