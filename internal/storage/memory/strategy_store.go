package memory

import (
	"context"
	"sync"
	"time"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage"
)

// StrategyStore is an in-memory implementation of storage.StrategyStore.
type StrategyStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Strategy
}

// NewStrategyStore creates a new in-memory strategy store.
func NewStrategyStore() *StrategyStore {
	return &StrategyStore{data: make(map[string]*domain.Strategy)}
}

var _ storage.StrategyStore = (*StrategyStore)(nil)

// Insert adds a new strategy. Returns ErrDuplicateKey if the id exists.
func (s *StrategyStore) Insert(_ context.Context, st *domain.Strategy) error {
	if st == nil || st.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[st.ID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *st
	s.data[st.ID] = &cp
	return nil
}

// GetByID retrieves a strategy by id. Returns ErrNotFound if not exists.
func (s *StrategyStore) GetByID(_ context.Context, id string) (*domain.Strategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

// GetByUserID retrieves all strategies owned by a user.
func (s *StrategyStore) GetByUserID(_ context.Context, userID string) ([]*domain.Strategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Strategy
	for _, st := range s.data {
		if st.UserID == userID {
			cp := *st
			result = append(result, &cp)
		}
	}
	return result, nil
}

// GetActive retrieves all strategies flagged active.
func (s *StrategyStore) GetActive(_ context.Context) ([]*domain.Strategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Strategy
	for _, st := range s.data {
		if st.IsActive {
			cp := *st
			result = append(result, &cp)
		}
	}
	return result, nil
}

// SetActive persists the active flag. Returns ErrNotFound if not exists.
func (s *StrategyStore) SetActive(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}
	st.IsActive = active
	st.UpdatedAt = time.Now()
	return nil
}
