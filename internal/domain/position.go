package domain

import "time"

// Position status values.
const (
	PositionStatusOpen    = "OPEN"
	PositionStatusPartial = "PARTIAL"
	PositionStatusClosed  = "CLOSED"
)

// Position is a holding of one token in one wallet, tracked from entry
// to close. EntryPrice is the volume-weighted average cost over all buys
// merged into the position.
//
// Invariants:
//   - UnrealizedPnl = (CurrentPrice - EntryPrice) * Quantity while OPEN
//   - Quantity == 0 forces StatusClosed
//   - close fixes RealizedPnl and zeroes Quantity and UnrealizedPnl;
//     the closed state is terminal and later price updates do not reopen it
type Position struct {
	ID            string
	WalletID      string
	TokenAddress  string
	Quantity      float64
	EntryPrice    float64
	CurrentPrice  float64
	Status        string
	RealizedPnl   float64
	UnrealizedPnl float64
	// Version supports optimistic-concurrency updates in persistent stores.
	Version   int64
	OpenedAt  time.Time
	UpdatedAt time.Time
	ClosedAt  *time.Time
}

// IsOpen reports whether the position still holds quantity.
func (p *Position) IsOpen() bool {
	return p.Status == PositionStatusOpen || p.Status == PositionStatusPartial
}
