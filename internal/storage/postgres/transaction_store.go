package postgres

import (
	"context"
	"fmt"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage"
)

// TransactionStore implements storage.TransactionStore using PostgreSQL.
type TransactionStore struct {
	pool *Pool
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(pool *Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

const transactionColumns = `
	id, wallet_id, strategy_id, type, token_address, amount, price,
	quantity, fee, signature, status, block_time, created_at
`

// Insert adds a new transaction. Returns ErrDuplicateKey if the id exists.
func (s *TransactionStore) Insert(ctx context.Context, t *domain.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := s.pool.Exec(ctx, query,
		t.ID, t.WalletID, t.StrategyID, t.Type, t.TokenAddress, t.Amount, t.Price,
		t.Quantity, t.Fee, t.Signature, t.Status, t.BlockTime, t.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a transaction by id. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	var t domain.Transaction
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.WalletID, &t.StrategyID, &t.Type, &t.TokenAddress, &t.Amount, &t.Price,
		&t.Quantity, &t.Fee, &t.Signature, &t.Status, &t.BlockTime, &t.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get transaction by id: %w", err)
	}
	return &t, nil
}

// GetByWalletID retrieves all transactions for a wallet, newest first.
func (s *TransactionStore) GetByWalletID(ctx context.Context, walletID string) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC
	`
	return s.queryTransactions(ctx, query, walletID)
}

// GetByUserID retrieves all transactions in wallets owned by a user.
func (s *TransactionStore) GetByUserID(ctx context.Context, userID string) ([]*domain.Transaction, error) {
	query := `
		SELECT t.id, t.wallet_id, t.strategy_id, t.type, t.token_address, t.amount, t.price,
		       t.quantity, t.fee, t.signature, t.status, t.block_time, t.created_at
		FROM transactions t
		JOIN wallets w ON w.id = t.wallet_id
		WHERE w.user_id = $1
		ORDER BY t.created_at DESC
	`
	return s.queryTransactions(ctx, query, userID)
}

func (s *TransactionStore) queryTransactions(ctx context.Context, query string, args ...any) ([]*domain.Transaction, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var result []*domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(
			&t.ID, &t.WalletID, &t.StrategyID, &t.Type, &t.TokenAddress, &t.Amount, &t.Price,
			&t.Quantity, &t.Fee, &t.Signature, &t.Status, &t.BlockTime, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		result = append(result, &t)
	}
	return result, rows.Err()
}
