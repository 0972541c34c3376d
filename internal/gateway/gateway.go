// Package gateway provides the client for the external execution venue
// that actually places buy and sell orders on chain.
package gateway

import (
	"context"
	"errors"
)

// Classified gateway errors. Invalid-request errors are never retried;
// anything else is treated as transient by the client.
var (
	// ErrInsufficientFunds means the execution account cannot cover the order.
	ErrInsufficientFunds = errors.New("gateway: insufficient funds")

	// ErrInvalidAccount means the execution account id is unknown to the venue.
	ErrInvalidAccount = errors.New("gateway: invalid execution account")

	// ErrRejected means the venue rejected the request as malformed or
	// otherwise unprocessable. Not retried.
	ErrRejected = errors.New("gateway: request rejected")
)

// TradeParams describe one buy or sell request to the venue.
type TradeParams struct {
	ExecutionAccountID string  `json:"walletId"`
	TokenAddress       string  `json:"tokenAddress"`
	Amount             float64 `json:"amount"`
	Slippage           float64 `json:"slippage"`
}

// TradeResponse is a fill returned by the venue.
type TradeResponse struct {
	Signature string  `json:"signature"`
	Price     float64 `json:"price"`
	Quantity  float64 `json:"quantity"`
	Fee       float64 `json:"fee"`
}

// ExecutionGateway accepts buy/sell requests and returns fills.
// Transient failures are retried inside the client; callers only see
// the final outcome.
type ExecutionGateway interface {
	Buy(ctx context.Context, params TradeParams) (*TradeResponse, error)
	Sell(ctx context.Context, params TradeParams) (*TradeResponse, error)
}
