// Package stub provides a scripted market feed for tests.
package stub

import (
	"context"
	"sync"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/marketfeed"
)

// Feed implements marketfeed.Feed with scripted prices, metadata and a
// caller-driven pool event channel.
type Feed struct {
	mu sync.Mutex

	prices   map[string]float64
	metadata map[string]*domain.TokenMetadata

	priceErr error

	pools chan domain.PoolEvent
}

// NewFeed creates a new stub feed.
func NewFeed() *Feed {
	return &Feed{
		prices:   make(map[string]float64),
		metadata: make(map[string]*domain.TokenMetadata),
		pools:    make(chan domain.PoolEvent, 16),
	}
}

// Compile-time interface check.
var _ marketfeed.Feed = (*Feed)(nil)

// SetPrice scripts the price for a token.
func (f *Feed) SetPrice(tokenAddress string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[tokenAddress] = price
}

// SetPriceErr scripts a failure for every GetCurrentPrice call; nil
// clears it.
func (f *Feed) SetPriceErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priceErr = err
}

// SetMetadata scripts the metadata for a token.
func (f *Feed) SetMetadata(tokenAddress string, meta *domain.TokenMetadata) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metadata[tokenAddress] = meta
}

// EmitPool pushes a pool event to the subscription channel.
func (f *Feed) EmitPool(event domain.PoolEvent) {
	f.pools <- event
}

// GetCurrentPrice returns the scripted price, 0 if none.
func (f *Feed) GetCurrentPrice(_ context.Context, tokenAddress string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.priceErr != nil {
		return 0, f.priceErr
	}
	return f.prices[tokenAddress], nil
}

// GetTokenMetadata returns the scripted metadata.
func (f *Feed) GetTokenMetadata(_ context.Context, tokenAddress string) (*domain.TokenMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	meta, ok := f.metadata[tokenAddress]
	if !ok {
		return nil, marketfeed.ErrMetadataUnavailable
	}
	cp := *meta
	return &cp, nil
}

// SubscribeNewPools returns the scripted pool channel. The channel is
// closed when ctx is cancelled.
func (f *Feed) SubscribeNewPools(ctx context.Context) (<-chan domain.PoolEvent, error) {
	out := make(chan domain.PoolEvent)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-f.pools:
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
