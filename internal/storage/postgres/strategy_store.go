package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage"
)

// StrategyStore implements storage.StrategyStore using PostgreSQL.
// The config union is stored as JSONB.
type StrategyStore struct {
	pool *Pool
}

// NewStrategyStore creates a new StrategyStore.
func NewStrategyStore(pool *Pool) *StrategyStore {
	return &StrategyStore{pool: pool}
}

// Compile-time interface check.
var _ storage.StrategyStore = (*StrategyStore)(nil)

// Insert adds a new strategy. Returns ErrDuplicateKey if the id exists.
func (s *StrategyStore) Insert(ctx context.Context, st *domain.Strategy) error {
	cfg, err := json.Marshal(st.Config)
	if err != nil {
		return fmt.Errorf("marshal strategy config: %w", err)
	}

	query := `
		INSERT INTO strategies (
			id, user_id, name, config, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = s.pool.Exec(ctx, query,
		st.ID, st.UserID, st.Name, cfg, st.IsActive, st.CreatedAt, st.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert strategy: %w", err)
	}
	return nil
}

// GetByID retrieves a strategy by id. Returns ErrNotFound if not exists.
func (s *StrategyStore) GetByID(ctx context.Context, id string) (*domain.Strategy, error) {
	query := `
		SELECT id, user_id, name, config, is_active, created_at, updated_at
		FROM strategies
		WHERE id = $1
	`

	var st domain.Strategy
	var cfg []byte
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&st.ID, &st.UserID, &st.Name, &cfg, &st.IsActive, &st.CreatedAt, &st.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get strategy by id: %w", err)
	}

	if err := json.Unmarshal(cfg, &st.Config); err != nil {
		return nil, fmt.Errorf("unmarshal strategy config: %w", err)
	}
	return &st, nil
}

// GetByUserID retrieves all strategies owned by a user.
func (s *StrategyStore) GetByUserID(ctx context.Context, userID string) ([]*domain.Strategy, error) {
	query := `
		SELECT id, user_id, name, config, is_active, created_at, updated_at
		FROM strategies
		WHERE user_id = $1
		ORDER BY created_at
	`
	return s.queryStrategies(ctx, query, userID)
}

// GetActive retrieves all strategies flagged active.
func (s *StrategyStore) GetActive(ctx context.Context) ([]*domain.Strategy, error) {
	query := `
		SELECT id, user_id, name, config, is_active, created_at, updated_at
		FROM strategies
		WHERE is_active
		ORDER BY created_at
	`
	return s.queryStrategies(ctx, query)
}

// SetActive persists the active flag. Returns ErrNotFound if not exists.
func (s *StrategyStore) SetActive(ctx context.Context, id string, active bool) error {
	query := `
		UPDATE strategies
		SET is_active = $2, updated_at = now()
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query, id, active)
	if err != nil {
		return fmt.Errorf("set strategy active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *StrategyStore) queryStrategies(ctx context.Context, query string, args ...any) ([]*domain.Strategy, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query strategies: %w", err)
	}
	defer rows.Close()

	var result []*domain.Strategy
	for rows.Next() {
		var st domain.Strategy
		var cfg []byte
		if err := rows.Scan(
			&st.ID, &st.UserID, &st.Name, &cfg, &st.IsActive, &st.CreatedAt, &st.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan strategy: %w", err)
		}
		if err := json.Unmarshal(cfg, &st.Config); err != nil {
			return nil, fmt.Errorf("unmarshal strategy config: %w", err)
		}
		result = append(result, &st)
	}
	return result, rows.Err()
}
