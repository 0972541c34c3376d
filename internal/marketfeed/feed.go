// Package marketfeed provides access to the external market-data feed:
// current token prices, token metadata for rug checks, and a push
// subscription for new liquidity-pool events.
package marketfeed

import (
	"context"
	"errors"

	"solana-trade-engine/internal/domain"
)

// ErrMetadataUnavailable is returned when the feed has no metadata for
// a token.
var ErrMetadataUnavailable = errors.New("marketfeed: token metadata unavailable")

// Feed is the market-data interface the trading core consumes.
type Feed interface {
	// GetCurrentPrice returns the current price for a token. An error
	// means the feed is unavailable; callers that must not fail treat
	// that as price 0.
	GetCurrentPrice(ctx context.Context, tokenAddress string) (float64, error)

	// GetTokenMetadata returns rug-check metadata for a token.
	GetTokenMetadata(ctx context.Context, tokenAddress string) (*domain.TokenMetadata, error)

	// SubscribeNewPools delivers pool-creation events on the returned
	// channel until ctx is cancelled. The subscription reconnects on
	// transport failures; the channel is closed only on cancellation.
	SubscribeNewPools(ctx context.Context) (<-chan domain.PoolEvent, error)
}
