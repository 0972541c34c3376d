package domain

import "time"

// Transaction type values.
const (
	TransactionTypeBuy  = "BUY"
	TransactionTypeSell = "SELL"
)

// Transaction status values.
const (
	TransactionStatusPending   = "PENDING"
	TransactionStatusConfirmed = "CONFIRMED"
	TransactionStatusFailed    = "FAILED"
	TransactionStatusCancelled = "CANCELLED"
)

// Transaction is an executed order persisted by the order executor after
// a gateway response. Immutable once CONFIRMED or FAILED.
type Transaction struct {
	ID           string
	WalletID     string
	StrategyID   string // empty for manual trades
	Type         string
	TokenAddress string
	Amount       float64 // notional
	Price        float64
	Quantity     float64
	Fee          float64
	Signature    string // external settlement id
	Status       string
	BlockTime    time.Time
	CreatedAt    time.Time
}

// OrderResult is what the order executor returns to a strategy loop
// after a successful gateway fill.
type OrderResult struct {
	Signature    string
	TokenAddress string
	Amount       float64
	Price        float64
	Quantity     float64
	Fee          float64
	Timestamp    time.Time
}
