// Package stub provides a scripted execution gateway for tests and
// dry-run mode.
package stub

import (
	"context"
	"fmt"
	"sync"

	"solana-trade-engine/internal/gateway"
)

// Gateway implements gateway.ExecutionGateway for testing. Fills are
// priced from the Prices map; a scripted error fails every request.
type Gateway struct {
	mu sync.Mutex

	// Prices maps token address to fill price. Missing tokens fill at 1.0.
	Prices map[string]float64

	// FeeRate is the fee charged per trade as a fraction of notional.
	FeeRate float64

	err error

	buys  []gateway.TradeParams
	sells []gateway.TradeParams
}

// NewGateway creates a new stub gateway.
func NewGateway() *Gateway {
	return &Gateway{Prices: make(map[string]float64)}
}

// Compile-time interface check.
var _ gateway.ExecutionGateway = (*Gateway)(nil)

// Buy records the request and returns a scripted fill.
func (g *Gateway) Buy(_ context.Context, params gateway.TradeParams) (*gateway.TradeResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.err != nil {
		return nil, g.err
	}
	g.buys = append(g.buys, params)

	price := g.priceFor(params.TokenAddress)
	return &gateway.TradeResponse{
		Signature: fmt.Sprintf("stub-buy-%d", len(g.buys)),
		Price:     price,
		Quantity:  params.Amount / price,
		Fee:       params.Amount * g.FeeRate,
	}, nil
}

// Sell records the request and returns a scripted fill. For sells the
// amount is interpreted as token quantity.
func (g *Gateway) Sell(_ context.Context, params gateway.TradeParams) (*gateway.TradeResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.err != nil {
		return nil, g.err
	}
	g.sells = append(g.sells, params)

	price := g.priceFor(params.TokenAddress)
	return &gateway.TradeResponse{
		Signature: fmt.Sprintf("stub-sell-%d", len(g.sells)),
		Price:     price,
		Quantity:  params.Amount,
		Fee:       params.Amount * price * g.FeeRate,
	}, nil
}

// SetErr scripts a failure for every Buy/Sell call; nil clears it.
func (g *Gateway) SetErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

// SetPrice scripts the fill price for a token.
func (g *Gateway) SetPrice(tokenAddress string, price float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Prices[tokenAddress] = price
}

// Buys returns a copy of all recorded buy requests.
func (g *Gateway) Buys() []gateway.TradeParams {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]gateway.TradeParams(nil), g.buys...)
}

// Sells returns a copy of all recorded sell requests.
func (g *Gateway) Sells() []gateway.TradeParams {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]gateway.TradeParams(nil), g.sells...)
}

func (g *Gateway) priceFor(tokenAddress string) float64 {
	if p, ok := g.Prices[tokenAddress]; ok && p > 0 {
		return p
	}
	return 1.0
}
