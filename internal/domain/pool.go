package domain

import "time"

// PoolEvent is a new liquidity-pool creation event delivered by the
// market feed's push subscription.
type PoolEvent struct {
	Address      string
	TokenAddress string
	TokenSymbol  string
	TokenName    string
	Liquidity    float64
	PriceUSD     float64
	CreatedAt    time.Time
}

// TokenMetadata is the rug-check payload for a token: how much of the
// pool liquidity is locked and how concentrated the top holders are.
type TokenMetadata struct {
	Address         string
	Symbol          string
	Name            string
	Decimals        int
	Supply          float64
	Holders         int
	LiquidityLocked float64 // fraction [0,1]
	Top10Holdings   float64 // fraction [0,1]
}
