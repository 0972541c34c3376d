package domain

import "time"

// StrategyMetrics is derived on demand from transaction and position
// aggregates scoped to the strategy's owning user. Not persisted.
type StrategyMetrics struct {
	TotalTrades      int
	SuccessfulTrades int
	FailedTrades     int
	TotalVolume      float64
	RealizedPnL      float64
	UnrealizedPnL    float64
	WinRate          float64 // percent of confirmed trades
	AverageProfit    float64
	LargestWin       float64
	LargestLoss      float64
	ActivePositions  int
	LastExecutionAt  time.Time
}

// Execution record status values.
const (
	ExecutionStatusSuccess = "success"
	ExecutionStatusFailed  = "failed"
)

// ExecutionRecord is one audited strategy decision attempt: a buy/sell
// that was tried (or skipped with an error), written to the append-only
// execution log.
type ExecutionRecord struct {
	ID           string
	StrategyID   string
	Event        string // e.g. "buy_executed", "grid_sell_executed"
	Status       string
	TokenAddress string
	Amount       float64
	Price        float64
	Quantity     float64
	Error        string
	ExecutedAt   time.Time
}
