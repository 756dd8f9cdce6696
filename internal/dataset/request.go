// Package dataset resolves optimisation requests into datasets: inline JSON
// samples or CSV objects behind a storage locator.
package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/logger"
	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/models"
)

var (
	// ErrNoInput means the request carried neither samples nor a storage locator
	ErrNoInput = errors.New("no data or storage_url provided")
	// ErrFetchFailed wraps every storage locator failure
	ErrFetchFailed = errors.New("failed to fetch data from storage_url")
	// ErrInvalidRequest wraps request bodies that cannot be decoded
	ErrInvalidRequest = errors.New("invalid request body")
)

// Request is the body of an optimisation request
type Request struct {
	Data       models.Dataset `json:"data"`
	StorageURL string         `json:"storage_url"`
}

// DecodeRequest reads a JSON request body. Unknown fields are rejected.
func DecodeRequest(r io.Reader) (Request, error) {
	var req Request
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	req.StorageURL = strings.TrimSpace(req.StorageURL)
	return req, nil
}

// Source fetches a dataset from a storage locator
type Source interface {
	Fetch(ctx context.Context, storageURL string) (models.Dataset, error)
}

// Resolver turns a Request into a Dataset
type Resolver struct {
	source Source
}

// NewResolver creates a resolver; a nil source rejects storage locators
func NewResolver(source Source) *Resolver {
	return &Resolver{source: source}
}

// Resolve returns the dataset a request refers to. A storage locator takes
// precedence over inline samples.
func (r *Resolver) Resolve(ctx context.Context, req Request) (models.Dataset, error) {
	if len(req.Data) == 0 && req.StorageURL == "" {
		return nil, ErrNoInput
	}

	if req.StorageURL != "" {
		if r.source == nil {
			return nil, fmt.Errorf("%w: storage locators are not enabled", ErrFetchFailed)
		}
		data, err := r.source.Fetch(ctx, req.StorageURL)
		if err != nil {
			logger.Error("error fetching storage object", "error", err)
			return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
		}
		if len(data) == 0 {
			return nil, ErrFetchFailed
		}
		return data, nil
	}

	if err := req.Data.Validate(); err != nil {
		return nil, err
	}
	return req.Data, nil
}
