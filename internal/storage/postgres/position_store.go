package postgres

import (
	"context"
	"fmt"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage"
)

// PositionStore implements storage.PositionStore using PostgreSQL.
// Updates use a version column for optimistic concurrency, so two
// processes merging buys into the same position cannot silently lose
// one write.
type PositionStore struct {
	pool *Pool
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

const positionColumns = `
	id, wallet_id, token_address, quantity, entry_price, current_price,
	status, realized_pnl, unrealized_pnl, version, opened_at, updated_at, closed_at
`

// Insert adds a new position. Returns ErrDuplicateKey if the id exists.
func (s *PositionStore) Insert(ctx context.Context, p *domain.Position) error {
	query := `
		INSERT INTO positions (` + positionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := s.pool.Exec(ctx, query,
		p.ID, p.WalletID, p.TokenAddress, p.Quantity, p.EntryPrice, p.CurrentPrice,
		p.Status, p.RealizedPnl, p.UnrealizedPnl, p.Version, p.OpenedAt, p.UpdatedAt, p.ClosedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// GetByID retrieves a position by id. Returns ErrNotFound if not exists.
func (s *PositionStore) GetByID(ctx context.Context, id string) (*domain.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE id = $1`

	p, err := s.scanOne(ctx, query, id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetOpenByWalletToken retrieves the OPEN position for a
// (walletID, tokenAddress) pair. Returns ErrNotFound if none exists.
func (s *PositionStore) GetOpenByWalletToken(ctx context.Context, walletID, tokenAddress string) (*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE wallet_id = $1 AND token_address = $2 AND status = $3
		ORDER BY opened_at
		LIMIT 1
	`
	return s.scanOne(ctx, query, walletID, tokenAddress, domain.PositionStatusOpen)
}

// GetByUserID retrieves all positions in wallets owned by a user.
func (s *PositionStore) GetByUserID(ctx context.Context, userID string) ([]*domain.Position, error) {
	query := `
		SELECT p.id, p.wallet_id, p.token_address, p.quantity, p.entry_price, p.current_price,
		       p.status, p.realized_pnl, p.unrealized_pnl, p.version, p.opened_at, p.updated_at, p.closed_at
		FROM positions p
		JOIN wallets w ON w.id = p.wallet_id
		WHERE w.user_id = $1
		ORDER BY p.opened_at
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query positions by user: %w", err)
	}
	defer rows.Close()

	var result []*domain.Position
	for rows.Next() {
		var p domain.Position
		if err := rows.Scan(
			&p.ID, &p.WalletID, &p.TokenAddress, &p.Quantity, &p.EntryPrice, &p.CurrentPrice,
			&p.Status, &p.RealizedPnl, &p.UnrealizedPnl, &p.Version, &p.OpenedAt, &p.UpdatedAt, &p.ClosedAt,
		); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		result = append(result, &p)
	}
	return result, rows.Err()
}

// Update persists a modified position. The write succeeds only when the
// stored version matches p.Version; the version is then incremented.
// Returns ErrVersionConflict on a stale version.
func (s *PositionStore) Update(ctx context.Context, p *domain.Position) error {
	query := `
		UPDATE positions
		SET quantity = $2, entry_price = $3, current_price = $4, status = $5,
		    realized_pnl = $6, unrealized_pnl = $7, version = version + 1,
		    updated_at = $8, closed_at = $9
		WHERE id = $1 AND version = $10
	`

	tag, err := s.pool.Exec(ctx, query,
		p.ID, p.Quantity, p.EntryPrice, p.CurrentPrice, p.Status,
		p.RealizedPnl, p.UnrealizedPnl, p.UpdatedAt, p.ClosedAt, p.Version,
	)
	if err != nil {
		return fmt.Errorf("update position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish missing row from stale version.
		if _, err := s.GetByID(ctx, p.ID); err != nil {
			return err
		}
		return storage.ErrVersionConflict
	}
	p.Version++
	return nil
}

func (s *PositionStore) scanOne(ctx context.Context, query string, args ...any) (*domain.Position, error) {
	var p domain.Position
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&p.ID, &p.WalletID, &p.TokenAddress, &p.Quantity, &p.EntryPrice, &p.CurrentPrice,
		&p.Status, &p.RealizedPnl, &p.UnrealizedPnl, &p.Version, &p.OpenedAt, &p.UpdatedAt, &p.ClosedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get position: %w", err)
	}
	return &p, nil
}
