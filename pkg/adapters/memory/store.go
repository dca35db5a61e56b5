package memory

import (
	"context"
	"sync"

	"github.com/aretw0/stepwise/pkg/domain"
)

// Store implements ports.StateStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.FlowState
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.FlowState),
	}
}

// Save persists a deep copy of the state.
func (s *Store) Save(ctx context.Context, flowID string, state *domain.FlowState) error {
	copied := state.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[flowID] = copied
	return nil
}

// Load returns a copy so callers can't mutate stored state by pointer.
func (s *Store) Load(ctx context.Context, flowID string) (*domain.FlowState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.data[flowID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return state.Snapshot(), nil
}

// Delete removes the state.
func (s *Store) Delete(ctx context.Context, flowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, flowID)
	return nil
}

// List returns the stored flow IDs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	flows := make([]string, 0, len(s.data))
	for id := range s.data {
		flows = append(flows, id)
	}
	return flows, nil
}
