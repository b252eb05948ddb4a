package dataset

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used for tests and wiring without a
// database.
type MemoryStore struct {
	mu       sync.RWMutex
	datasets map[string]*Dataset
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{datasets: make(map[string]*Dataset)}
}

func (s *MemoryStore) GetOrCreate(ctx context.Context, tests []TestCase) (*Dataset, bool, error) {
	id, err := ComputeID(tests)
	if err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.datasets[id]; ok {
		return existing, false, nil
	}

	ds := &Dataset{
		ID:        id,
		Tests:     append([]TestCase(nil), tests...),
		TestCount: len(tests),
		CreatedAt: time.Now().UTC(),
	}
	s.datasets[id] = ds
	return ds, true, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ds, ok := s.datasets[id]
	if !ok {
		return nil, ErrDatasetNotFound
	}
	return ds, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.datasets), nil
}
