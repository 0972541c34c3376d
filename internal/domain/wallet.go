package domain

import "time"

// Wallet is the ledger's view of a trading wallet. Keys are held by the
// external vault; ExecutionAccountID maps the wallet to its account at
// the execution gateway, Balance is the last-known balance and is not
// atomically reserved by trades.
type Wallet struct {
	ID                 string
	UserID             string
	Address            string
	ExecutionAccountID string
	Balance            float64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
