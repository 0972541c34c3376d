package memory

import (
	"context"
	"sort"
	"sync"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage"
)

// TransactionStore is an in-memory implementation of storage.TransactionStore.
type TransactionStore struct {
	mu      sync.RWMutex
	data    map[string]*domain.Transaction
	wallets storage.WalletStore
}

// NewTransactionStore creates a new in-memory transaction store.
func NewTransactionStore(wallets storage.WalletStore) *TransactionStore {
	return &TransactionStore{
		data:    make(map[string]*domain.Transaction),
		wallets: wallets,
	}
}

var _ storage.TransactionStore = (*TransactionStore)(nil)

// Insert adds a new transaction. Returns ErrDuplicateKey if the id exists.
func (s *TransactionStore) Insert(_ context.Context, t *domain.Transaction) error {
	if t == nil || t.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.ID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *t
	s.data[t.ID] = &cp
	return nil
}

// GetByID retrieves a transaction by id. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetByID(_ context.Context, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// GetByWalletID retrieves all transactions for a wallet, newest first.
func (s *TransactionStore) GetByWalletID(_ context.Context, walletID string) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Transaction
	for _, t := range s.data {
		if t.WalletID == walletID {
			cp := *t
			result = append(result, &cp)
		}
	}
	sortTransactionsDesc(result)
	return result, nil
}

// GetByUserID retrieves all transactions in wallets owned by a user.
func (s *TransactionStore) GetByUserID(ctx context.Context, userID string) ([]*domain.Transaction, error) {
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

	var result []*domain.Transaction
	for _, t := range s.data {
		if _, ok := owned[t.WalletID]; ok {
			cp := *t
			result = append(result, &cp)
		}
	}
	sortTransactionsDesc(result)
	return result, nil
}

func sortTransactionsDesc(txs []*domain.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
}
