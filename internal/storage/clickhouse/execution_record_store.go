package clickhouse

import (
	"context"
	"fmt"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage"
)

// ExecutionRecordStore implements storage.ExecutionRecordStore using
// ClickHouse. The execution log is append-only and query-heavy, which
// fits a MergeTree table better than the relational ledger.
type ExecutionRecordStore struct {
	conn *Conn
}

// NewExecutionRecordStore creates a new ExecutionRecordStore.
func NewExecutionRecordStore(conn *Conn) *ExecutionRecordStore {
	return &ExecutionRecordStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ExecutionRecordStore = (*ExecutionRecordStore)(nil)

// Insert appends an execution record.
func (s *ExecutionRecordStore) Insert(ctx context.Context, r *domain.ExecutionRecord) error {
	if r == nil || r.StrategyID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO execution_records (
			id, strategy_id, event, status, token_address,
			amount, price, quantity, error, executed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		r.ID, r.StrategyID, r.Event, r.Status, r.TokenAddress,
		r.Amount, r.Price, r.Quantity, r.Error, r.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("insert execution record: %w", err)
	}
	return nil
}

// GetByStrategyID retrieves all records for a strategy, oldest first.
func (s *ExecutionRecordStore) GetByStrategyID(ctx context.Context, strategyID string) ([]*domain.ExecutionRecord, error) {
	query := `
		SELECT id, strategy_id, event, status, token_address,
		       amount, price, quantity, error, executed_at
		FROM execution_records
		WHERE strategy_id = ?
		ORDER BY executed_at
	`

	rows, err := s.conn.Query(ctx, query, strategyID)
	if err != nil {
		return nil, fmt.Errorf("query execution records: %w", err)
	}
	defer rows.Close()

	var result []*domain.ExecutionRecord
	for rows.Next() {
		var r domain.ExecutionRecord
		if err := rows.Scan(
			&r.ID, &r.StrategyID, &r.Event, &r.Status, &r.TokenAddress,
			&r.Amount, &r.Price, &r.Quantity, &r.Error, &r.ExecutedAt,
		); err != nil {
			return nil, fmt.Errorf("scan execution record: %w", err)
		}
		result = append(result, &r)
	}
	return result, rows.Err()
}
