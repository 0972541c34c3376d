package memory

import (
	"context"
	"fmt"
	"sync"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage"
)

// WalletStore is an in-memory implementation of storage.WalletStore.
type WalletStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Wallet
}

// NewWalletStore creates a new in-memory wallet store.
func NewWalletStore() *WalletStore {
	return &WalletStore{data: make(map[string]*domain.Wallet)}
}

var _ storage.WalletStore = (*WalletStore)(nil)

// Insert adds a new wallet. Returns ErrDuplicateKey if the id exists
// and ErrInvalidInput for a malformed or off-curve address.
func (s *WalletStore) Insert(_ context.Context, w *domain.Wallet) error {
	if w == nil || w.ID == "" {
		return storage.ErrInvalidInput
	}
	if err := domain.ValidateWalletAddress(w.Address); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[w.ID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *w
	s.data[w.ID] = &cp
	return nil
}

// GetByID retrieves a wallet by id. Returns ErrNotFound if not exists.
func (s *WalletStore) GetByID(_ context.Context, id string) (*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

// GetByUserID retrieves all wallets owned by a user.
func (s *WalletStore) GetByUserID(_ context.Context, userID string) ([]*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Wallet
	for _, w := range s.data {
		if w.UserID == userID {
			cp := *w
			result = append(result, &cp)
		}
	}
	return result, nil
}

// UpdateBalance replaces the last-known balance.
func (s *WalletStore) UpdateBalance(_ context.Context, id string, balance float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}
	w.Balance = balance
	return nil
}
