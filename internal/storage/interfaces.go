package storage

import (
	"context"

	"solana-trade-engine/internal/domain"
)

// WalletStore provides access to wallet records. Key custody lives in
// the external vault; the ledger keeps only the execution-account
// mapping and the last-known balance.
type WalletStore interface {
	// Insert adds a new wallet. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, w *domain.Wallet) error

	// GetByID retrieves a wallet by id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Wallet, error)

	// GetByUserID retrieves all wallets owned by a user.
	GetByUserID(ctx context.Context, userID string) ([]*domain.Wallet, error)

	// UpdateBalance replaces the last-known balance.
	UpdateBalance(ctx context.Context, id string, balance float64) error
}

// StrategyStore provides access to strategy records.
type StrategyStore interface {
	// Insert adds a new strategy. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, s *domain.Strategy) error

	// GetByID retrieves a strategy by id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Strategy, error)

	// GetByUserID retrieves all strategies owned by a user.
	GetByUserID(ctx context.Context, userID string) ([]*domain.Strategy, error)

	// GetActive retrieves all strategies flagged active.
	GetActive(ctx context.Context) ([]*domain.Strategy, error)

	// SetActive persists the active flag. Returns ErrNotFound if not exists.
	SetActive(ctx context.Context, id string, active bool) error
}

// PositionStore provides access to position records.
type PositionStore interface {
	// Insert adds a new position. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, p *domain.Position) error

	// GetByID retrieves a position by id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Position, error)

	// GetOpenByWalletToken retrieves the OPEN position for a
	// (walletID, tokenAddress) pair. Returns ErrNotFound if none exists.
	GetOpenByWalletToken(ctx context.Context, walletID, tokenAddress string) (*domain.Position, error)

	// GetByUserID retrieves all positions in wallets owned by a user.
	GetByUserID(ctx context.Context, userID string) ([]*domain.Position, error)

	// Update persists a modified position using optimistic concurrency:
	// the write succeeds only if the stored version equals p.Version,
	// and increments both the stored version and p.Version. Returns
	// ErrVersionConflict on a stale version and ErrNotFound if the id
	// does not exist.
	Update(ctx context.Context, p *domain.Position) error
}

// TransactionStore provides access to executed-trade records.
type TransactionStore interface {
	// Insert adds a new transaction. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, t *domain.Transaction) error

	// GetByID retrieves a transaction by id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)

	// GetByWalletID retrieves all transactions for a wallet, newest first.
	GetByWalletID(ctx context.Context, walletID string) ([]*domain.Transaction, error)

	// GetByUserID retrieves all transactions in wallets owned by a user.
	GetByUserID(ctx context.Context, userID string) ([]*domain.Transaction, error)
}

// ExecutionRecordStore is the append-only audit log of strategy
// decision attempts.
type ExecutionRecordStore interface {
	// Insert appends an execution record.
	Insert(ctx context.Context, r *domain.ExecutionRecord) error

	// GetByStrategyID retrieves all records for a strategy, oldest first.
	GetByStrategyID(ctx context.Context, strategyID string) ([]*domain.ExecutionRecord, error)
}
