package optd

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/compression-optimizer/internal/dataset"
	"github.com/GoSim-25-26J-441/compression-optimizer/internal/runstore"
	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/logger"
)

// RunIDHeader carries the id of the run that produced a response
const RunIDHeader = "X-Run-Id"

// maxBodyBytes bounds optimisation request bodies
const maxBodyBytes = 32 << 20

type HTTPServer struct {
	mux         *http.ServeMux
	service     *Service
	corsOrigins map[string]bool
}

// HTTPOption configures an HTTPServer
type HTTPOption func(*HTTPServer)

// WithCORSOrigins allows browser calls from the given origins
func WithCORSOrigins(origins []string) HTTPOption {
	return func(s *HTTPServer) {
		for _, o := range origins {
			s.corsOrigins[strings.TrimRight(o, "/")] = true
		}
	}
}

// WithMetricsHandler serves h on /metrics
func WithMetricsHandler(h http.Handler) HTTPOption {
	return func(s *HTTPServer) {
		s.mux.Handle("/metrics", h)
	}
}

func NewHTTPServer(service *Service, opts ...HTTPOption) *HTTPServer {
	s := &HTTPServer{
		mux:         http.NewServeMux(),
		service:     service,
		corsOrigins: make(map[string]bool),
	}

	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/optimise", s.handleOptimise)
	s.mux.HandleFunc("/v1/optimizations", s.handleOptimizations)
	s.mux.HandleFunc("/v1/optimizations/", s.handleOptimizationByID)
	s.mux.HandleFunc("/v1/space", s.handleSpace)

	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withCORS(s.withRecovery(s.mux))
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleOptimise handles POST /optimise and answers with the optimal parameters
func (s *HTTPServer) handleOptimise(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rec, ok := s.runOptimisation(w, r)
	if !ok {
		return
	}
	w.Header().Set(RunIDHeader, rec.ID)
	s.writeJSON(w, http.StatusOK, rec.Optimal)
}

// handleOptimizations handles /v1/optimizations
func (s *HTTPServer) handleOptimizations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateOptimization(w, r)
	case http.MethodGet:
		s.handleListOptimizations(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleCreateOptimization handles POST /v1/optimizations
func (s *HTTPServer) handleCreateOptimization(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.runOptimisation(w, r)
	if !ok {
		return
	}
	w.Header().Set(RunIDHeader, rec.ID)
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"run": rec,
	})
}

// handleListOptimizations handles GET /v1/optimizations
func (s *HTTPServer) handleListOptimizations(w http.ResponseWriter, r *http.Request) {
	limit := runstore.DefaultListLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	runs, err := s.service.Store().List(r.Context(), limit)
	if err != nil {
		logger.Error("failed to list runs", "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

// handleOptimizationByID handles GET /v1/optimizations/{id}
func (s *HTTPServer) handleOptimizationByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/optimizations/")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "run ID is required")
		return
	}
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rec, err := s.service.Store().Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, runstore.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "run not found")
			return
		}
		logger.Error("failed to get run", "run_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"run": rec,
	})
}

// handleSpace handles GET /v1/space
func (s *HTTPServer) handleSpace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	candidates := s.service.Space().Enumerate()
	size := len(candidates)
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed >= 0 && parsed < len(candidates) {
			candidates = candidates[:parsed]
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"size":       size,
		"candidates": candidates,
	})
}

// runOptimisation decodes, resolves and runs a request, writing the error
// response itself when it fails.
func (s *HTTPServer) runOptimisation(w http.ResponseWriter, r *http.Request) (*runstore.RunRecord, bool) {
	req, err := dataset.DecodeRequest(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.service.metrics.RecordRequest("http", "invalid")
		s.writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	rec, err := s.service.Run(r.Context(), req)
	if err != nil {
		if IsRequestError(err) {
			logger.Error("rejected optimisation request", "error", err)
			s.service.metrics.RecordRequest("http", "invalid")
			s.writeError(w, http.StatusBadRequest, requestErrorMessage(err))
			return nil, false
		}
		logger.Error("error processing request", "error", err)
		s.service.metrics.RecordRequest("http", "error")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}

	s.service.metrics.RecordRequest("http", "ok")
	return rec, true
}

func (s *HTTPServer) withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic while serving request", "path", r.URL.Path, "panic", fmt.Sprint(rec))
				s.writeError(w, http.StatusInternalServerError, fmt.Sprint(rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" || !s.corsOrigins[origin] {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
		w.Header().Set("Access-Control-Expose-Headers", RunIDHeader)
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}
