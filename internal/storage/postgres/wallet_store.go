package postgres

import (
	"context"
	"fmt"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage"
)

// WalletStore implements storage.WalletStore using PostgreSQL.
type WalletStore struct {
	pool *Pool
}

// NewWalletStore creates a new WalletStore.
func NewWalletStore(pool *Pool) *WalletStore {
	return &WalletStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WalletStore = (*WalletStore)(nil)

const walletColumns = `
	id, user_id, address, execution_account_id, balance, created_at, updated_at
`

// Insert adds a new wallet. Returns ErrDuplicateKey if the id exists
// and ErrInvalidInput for a malformed or off-curve address.
func (s *WalletStore) Insert(ctx context.Context, w *domain.Wallet) error {
	if err := domain.ValidateWalletAddress(w.Address); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	query := `
		INSERT INTO wallets (` + walletColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		w.ID, w.UserID, w.Address, w.ExecutionAccountID, w.Balance, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByID retrieves a wallet by id. Returns ErrNotFound if not exists.
func (s *WalletStore) GetByID(ctx context.Context, id string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`

	var w domain.Wallet
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&w.ID, &w.UserID, &w.Address, &w.ExecutionAccountID, &w.Balance, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get wallet by id: %w", err)
	}
	return &w, nil
}

// GetByUserID retrieves all wallets owned by a user.
func (s *WalletStore) GetByUserID(ctx context.Context, userID string) ([]*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query wallets by user: %w", err)
	}
	defer rows.Close()

	var result []*domain.Wallet
	for rows.Next() {
		var w domain.Wallet
		if err := rows.Scan(
			&w.ID, &w.UserID, &w.Address, &w.ExecutionAccountID, &w.Balance, &w.CreatedAt, &w.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		result = append(result, &w)
	}
	return result, rows.Err()
}

// UpdateBalance replaces the last-known balance.
func (s *WalletStore) UpdateBalance(ctx context.Context, id string, balance float64) error {
	query := `UPDATE wallets SET balance = $2, updated_at = now() WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id, balance)
	if err != nil {
		return fmt.Errorf("update wallet balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
