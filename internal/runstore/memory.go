package runstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/utils"
)

// DefaultMemoryCapacity is how many runs a MemoryStore keeps by default
const DefaultMemoryCapacity = 1000

// MemoryStore keeps the most recent runs in process memory. Once capacity is
// reached the oldest run is evicted.
type MemoryStore struct {
	mu       sync.RWMutex
	runs     map[string]*RunRecord
	order    []string // oldest first
	capacity int
}

// NewMemoryStore creates a store holding up to capacity runs
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{
		runs:     make(map[string]*RunRecord),
		capacity: capacity,
	}
}

func (s *MemoryStore) Save(_ context.Context, rec *RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = utils.NewRunID()
	}
	id, err := utils.ParseRunID(rec.ID)
	if err != nil {
		return err
	}
	rec.ID = id
	if _, exists := s.runs[rec.ID]; exists {
		return fmt.Errorf("%w: %s", ErrExists, rec.ID)
	}

	cp := *rec
	s.runs[rec.ID] = &cp
	s.order = append(s.order, rec.ID)

	for len(s.order) > s.capacity {
		delete(s.runs, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*RunRecord, error) {
	// keys are canonical UUIDs, as in the postgres store
	runID, err := utils.ParseRunID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit = normalizeLimit(limit)
	out := make([]*RunRecord, 0, min(limit, len(s.order)))
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *s.runs[s.order[i]]
		out = append(out, &cp)
	}
	return out, nil
}

// Len returns the number of stored runs
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

func (s *MemoryStore) Close() error {
	return nil
}
