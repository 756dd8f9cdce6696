package dataset

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/utils"
)

func TestFetcherFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/container/sensors/day1.csv" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("sig") != "abc" {
			t.Errorf("query string not forwarded: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("timestamp,value\nt1,1\nt2,bad\nt3,3\n"))
	}))
	defer server.Close()

	data, err := NewFetcher(5*time.Second).Fetch(context.Background(), server.URL+"/container/sensors/day1.csv?sig=abc")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(data) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(data))
	}
}

func TestFetcherErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/forbidden":
			w.WriteHeader(http.StatusForbidden)
		case "/empty":
			w.Write([]byte("timestamp,value\n"))
		case "/noheader":
			w.Write([]byte("a,b\n1,2\n"))
		}
	}))
	defer server.Close()

	f := NewFetcher(5 * time.Second)
	tests := []struct {
		name string
		url  string
	}{
		{"not found", server.URL + "/missing"},
		{"forbidden", server.URL + "/forbidden"},
		{"empty", server.URL + "/empty"},
		{"bad header", server.URL + "/noheader"},
		{"bad scheme", "ftp://example.com/data.csv"},
		{"no host", "https:///data.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.Fetch(context.Background(), tt.url); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	if _, err := f.Fetch(context.Background(), server.URL+"/empty"); !errors.Is(err, ErrEmptyStorage) {
		t.Fatalf("expected ErrEmptyStorage, got %v", err)
	}
}

func TestFetcherRejectsOversizedObject(t *testing.T) {
	body := "timestamp,value\n" + strings.Repeat("2024-01-01T00:00:00Z,1\n", 100)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer server.Close()

	_, err := NewFetcher(5*time.Second).WithMaxBytes(256).Fetch(context.Background(), server.URL+"/big.csv")
	if !errors.Is(err, utils.ErrBodyTooLarge) {
		t.Fatalf("expected ErrBodyTooLarge, got %v", err)
	}

	data, err := NewFetcher(5*time.Second).WithMaxBytes(int64(len(body))).Fetch(context.Background(), server.URL+"/big.csv")
	if err != nil {
		t.Fatalf("object at the limit should be accepted: %v", err)
	}
	if len(data) != 100 {
		t.Fatalf("expected 100 samples, got %d", len(data))
	}
}
