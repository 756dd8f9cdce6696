package dataset

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/logger"
	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/models"
	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/utils"
)

// ErrEmptyStorage is returned when a storage locator yields no usable rows
var ErrEmptyStorage = errors.New("storage object contains no data")

// Fetcher downloads CSV datasets from HTTP(S) storage locators such as
// pre-signed blob URLs. It is safe for concurrent use.
type Fetcher struct {
	httpClient *http.Client
	maxBytes   int64
}

// DefaultMaxObjectBytes caps downloaded storage objects
const DefaultMaxObjectBytes = 64 << 20

// NewFetcher creates a fetcher with the given request timeout
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxBytes: DefaultMaxObjectBytes,
	}
}

// WithMaxBytes caps the size of a downloaded object; larger objects fail
func (f *Fetcher) WithMaxBytes(n int64) *Fetcher {
	if n > 0 {
		f.maxBytes = n
	}
	return f
}

// Fetch downloads and parses the object at storageURL
func (f *Fetcher) Fetch(ctx context.Context, storageURL string) (models.Dataset, error) {
	u, err := url.Parse(storageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid storage url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid storage url: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid storage url: missing host")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("storage object not found: %s", u.Path)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	result, err := ParseCSV(utils.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, err
	}
	if result.Skipped > 0 {
		logger.Warn("skipped malformed csv rows", "path", u.Path, "skipped", result.Skipped, "total", result.Total)
	}
	if len(result.Data) == 0 {
		return nil, ErrEmptyStorage
	}

	logger.Info("fetched dataset from storage", "path", u.Path, "points", len(result.Data))
	return result.Data, nil
}
