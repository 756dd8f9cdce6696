package dataset

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/models"
)

type stubSource struct {
	data models.Dataset
	err  error
	urls []string
}

func (s *stubSource) Fetch(_ context.Context, storageURL string) (models.Dataset, error) {
	s.urls = append(s.urls, storageURL)
	return s.data, s.err
}

func TestDecodeRequest(t *testing.T) {
	req, err := DecodeRequest(strings.NewReader(`{"data":[{"timestamp":"t1","value":1.5}],"storage_url":"  "}`))
	if err != nil {
		t.Fatalf("DecodeRequest() error = %v", err)
	}
	if len(req.Data) != 1 || req.StorageURL != "" {
		t.Fatalf("unexpected request: %+v", req)
	}

	if _, err := DecodeRequest(strings.NewReader(`{"dataset":[]}`)); err == nil {
		t.Fatal("expected error for unknown field")
	}
	if _, err := DecodeRequest(strings.NewReader(`not json`)); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestResolveInline(t *testing.T) {
	r := NewResolver(nil)
	data, err := r.Resolve(context.Background(), Request{Data: models.Dataset{{Timestamp: "t1", Value: 1}}})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(data) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(data))
	}

	_, err = r.Resolve(context.Background(), Request{Data: models.Dataset{{Timestamp: "", Value: 1}}})
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResolveNoInput(t *testing.T) {
	_, err := NewResolver(&stubSource{}).Resolve(context.Background(), Request{})
	if !errors.Is(err, ErrNoInput) {
		t.Fatalf("expected ErrNoInput, got %v", err)
	}
}

func TestResolveStoragePrecedence(t *testing.T) {
	src := &stubSource{data: models.Dataset{{Timestamp: "a", Value: 1}, {Timestamp: "b", Value: 2}}}
	data, err := NewResolver(src).Resolve(context.Background(), Request{
		Data:       models.Dataset{{Timestamp: "inline", Value: 9}},
		StorageURL: "https://blob.example.com/c/data.csv",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(data) != 2 || data[0].Timestamp != "a" {
		t.Fatalf("expected storage data to win, got %+v", data)
	}
	if len(src.urls) != 1 {
		t.Fatalf("expected one fetch, got %d", len(src.urls))
	}
}

func TestResolveStorageFailures(t *testing.T) {
	tests := []struct {
		name     string
		resolver *Resolver
	}{
		{"fetch error", NewResolver(&stubSource{err: errors.New("403 forbidden")})},
		{"empty object", NewResolver(&stubSource{})},
		{"no source", NewResolver(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.resolver.Resolve(context.Background(), Request{StorageURL: "https://blob.example.com/x.csv"})
			if !errors.Is(err, ErrFetchFailed) {
				t.Fatalf("expected ErrFetchFailed, got %v", err)
			}
		})
	}
}
