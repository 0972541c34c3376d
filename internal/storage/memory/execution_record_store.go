package memory

import (
	"context"
	"sort"
	"sync"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage"
)

// ExecutionRecordStore is an in-memory implementation of
// storage.ExecutionRecordStore.
type ExecutionRecordStore struct {
	mu   sync.RWMutex
	data []*domain.ExecutionRecord
}

// NewExecutionRecordStore creates a new in-memory execution record store.
func NewExecutionRecordStore() *ExecutionRecordStore {
	return &ExecutionRecordStore{}
}

var _ storage.ExecutionRecordStore = (*ExecutionRecordStore)(nil)

// Insert appends an execution record.
func (s *ExecutionRecordStore) Insert(_ context.Context, r *domain.ExecutionRecord) error {
	if r == nil || r.StrategyID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *r
	s.data = append(s.data, &cp)
	return nil
}

// GetByStrategyID retrieves all records for a strategy, oldest first.
func (s *ExecutionRecordStore) GetByStrategyID(_ context.Context, strategyID string) ([]*domain.ExecutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ExecutionRecord
	for _, r := range s.data {
		if r.StrategyID == strategyID {
			cp := *r
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ExecutedAt.Before(result[j].ExecutedAt)
	})
	return result, nil
}
