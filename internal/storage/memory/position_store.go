package memory

import (
	"context"
	"sync"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage"
)

// PositionStore is an in-memory implementation of storage.PositionStore.
// User scoping is resolved through the wallet store (postgres does this
// with a join).
type PositionStore struct {
	mu      sync.RWMutex
	data    map[string]*domain.Position
	wallets storage.WalletStore
}

// NewPositionStore creates a new in-memory position store.
func NewPositionStore(wallets storage.WalletStore) *PositionStore {
	return &PositionStore{
		data:    make(map[string]*domain.Position),
		wallets: wallets,
	}
}

var _ storage.PositionStore = (*PositionStore)(nil)

// Insert adds a new position. Returns ErrDuplicateKey if the id exists.
func (s *PositionStore) Insert(_ context.Context, p *domain.Position) error {
	if p == nil || p.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.ID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *p
	s.data[p.ID] = &cp
	return nil
}

// GetByID retrieves a position by id. Returns ErrNotFound if not exists.
func (s *PositionStore) GetByID(_ context.Context, id string) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// GetOpenByWalletToken retrieves the OPEN position for a
// (walletID, tokenAddress) pair. Returns ErrNotFound if none exists.
func (s *PositionStore) GetOpenByWalletToken(_ context.Context, walletID, tokenAddress string) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.data {
		if p.WalletID == walletID && p.TokenAddress == tokenAddress && p.Status == domain.PositionStatusOpen {
			cp := *p
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

// GetByUserID retrieves all positions in wallets owned by a user.
func (s *PositionStore) GetByUserID(ctx context.Context, userID string) ([]*domain.Position, error) {
	wallets, err := s.wallets.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	owned := make(map[string]struct{}, len(wallets))
	for _, w := range wallets {
		owned[w.ID] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Position
	for _, p := range s.data {
		if _, ok := owned[p.WalletID]; ok {
			cp := *p
			result = append(result, &cp)
		}
	}
	return result, nil
}

// Update persists a modified position with optimistic concurrency on
// the version field.
func (s *PositionStore) Update(_ context.Context, p *domain.Position) error {
	if p == nil || p.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.data[p.ID]
	if !exists {
		return storage.ErrNotFound
	}
	if existing.Version != p.Version {
		return storage.ErrVersionConflict
	}

	cp := *p
	cp.Version = p.Version + 1
	s.data[p.ID] = &cp
	p.Version = cp.Version
	return nil
}
