// Package executor places orders through the execution gateway,
// enforcing the per-wallet rate limit and persisting executed trades.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/gateway"
	"solana-trade-engine/internal/observability"
	"solana-trade-engine/internal/storage"
)

// Executor errors.
var (
	// ErrRateLimitExceeded means the wallet hit its trade-frequency
	// ceiling. Callers treat it as a skipped opportunity, not fatal.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInsufficientBalance means the wallet's last-known balance
	// cannot cover the buy.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrWalletNotFound means the wallet id does not resolve.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrWalletNotConfigured means the wallet has no execution-account
	// mapping at the gateway.
	ErrWalletNotConfigured = errors.New("wallet has no execution account configured")

	// ErrInvalidTokenAddress means the request names a malformed token
	// mint. Rejected before the rate limit; a bad address never costs
	// trade budget.
	ErrInvalidTokenAddress = errors.New("invalid token address")
)

// TradeRequest describes one buy or sell. For buys Amount is notional;
// for sells it is token quantity, matching the gateway contract.
type TradeRequest struct {
	WalletID     string
	TokenAddress string
	Amount       float64
	Slippage     float64
	StrategyID   string // optional
}

// OrderExecutor wraps the execution gateway with rate limiting and
// trade persistence. It never touches position state; callers update
// positions from the returned fill.
type OrderExecutor struct {
	wallets      storage.WalletStore
	transactions storage.TransactionStore
	gateway      gateway.ExecutionGateway
	limiter      *RateLimiter
	metrics      *observability.Metrics
	log          zerolog.Logger
}

// NewOrderExecutor creates a new order executor. metrics may be nil.
func NewOrderExecutor(
	wallets storage.WalletStore,
	transactions storage.TransactionStore,
	gw gateway.ExecutionGateway,
	limiter *RateLimiter,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *OrderExecutor {
	return &OrderExecutor{
		wallets:      wallets,
		transactions: transactions,
		gateway:      gw,
		limiter:      limiter,
		metrics:      metrics,
		log:          log,
	}
}

// ExecuteBuy places a buy order. The wallet's last-known balance must
// cover the amount; the balance is not atomically reserved, so two
// concurrent buys can both pass the check.
func (e *OrderExecutor) ExecuteBuy(ctx context.Context, req TradeRequest) (*domain.OrderResult, error) {
	return e.execute(ctx, domain.TransactionTypeBuy, req)
}

// ExecuteSell places a sell order.
func (e *OrderExecutor) ExecuteSell(ctx context.Context, req TradeRequest) (*domain.OrderResult, error) {
	return e.execute(ctx, domain.TransactionTypeSell, req)
}

func (e *OrderExecutor) execute(ctx context.Context, tradeType string, req TradeRequest) (*domain.OrderResult, error) {
	log := e.log.With().
		Str("wallet_id", req.WalletID).
		Str("token", req.TokenAddress).
		Str("type", tradeType).
		Logger()

	if err := domain.ValidateTokenAddress(req.TokenAddress); err != nil {
		log.Warn().Err(err).Msg("trade rejected, malformed token address")
		return nil, ErrInvalidTokenAddress
	}

	if !e.limiter.Allow(req.WalletID) {
		log.Warn().Msg("trade rejected by rate limit")
		e.countRateLimited()
		return nil, ErrRateLimitExceeded
	}

	wallet, err := e.wallets.GetByID(ctx, req.WalletID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("resolve wallet: %w", err)
	}
	if wallet.ExecutionAccountID == "" {
		return nil, ErrWalletNotConfigured
	}
	if tradeType == domain.TransactionTypeBuy && wallet.Balance < req.Amount {
		log.Warn().
			Float64("required", req.Amount).
			Float64("available", wallet.Balance).
			Msg("trade rejected, insufficient balance")
		return nil, ErrInsufficientBalance
	}

	params := gateway.TradeParams{
		ExecutionAccountID: wallet.ExecutionAccountID,
		TokenAddress:       req.TokenAddress,
		Amount:             req.Amount,
		Slippage:           req.Slippage,
	}

	var fill *gateway.TradeResponse
	if tradeType == domain.TransactionTypeBuy {
		fill, err = e.gateway.Buy(ctx, params)
	} else {
		fill, err = e.gateway.Sell(ctx, params)
	}
	if err != nil {
		log.Error().Err(err).Msg("gateway trade failed")
		e.countFailed(tradeType)
		return nil, err
	}

	now := time.Now()
	tx := &domain.Transaction{
		ID:           uuid.NewString(),
		WalletID:     req.WalletID,
		StrategyID:   req.StrategyID,
		Type:         tradeType,
		TokenAddress: req.TokenAddress,
		Amount:       req.Amount,
		Price:        fill.Price,
		Quantity:     fill.Quantity,
		Fee:          fill.Fee,
		Signature:    fill.Signature,
		Status:       domain.TransactionStatusConfirmed,
		BlockTime:    now,
		CreatedAt:    now,
	}
	if err := e.transactions.Insert(ctx, tx); err != nil {
		// The trade already settled at the venue; surface the
		// persistence failure but do not pretend the fill failed.
		return nil, fmt.Errorf("persist transaction %s: %w", fill.Signature, err)
	}

	e.limiter.Record(req.WalletID)
	e.countExecuted(tradeType, req.Amount)
	log.Info().
		Str("signature", fill.Signature).
		Float64("price", fill.Price).
		Float64("quantity", fill.Quantity).
		Msg("trade confirmed")

	return &domain.OrderResult{
		Signature:    fill.Signature,
		TokenAddress: req.TokenAddress,
		Amount:       req.Amount,
		Price:        fill.Price,
		Quantity:     fill.Quantity,
		Fee:          fill.Fee,
		Timestamp:    now,
	}, nil
}

func (e *OrderExecutor) countRateLimited() {
	if e.metrics != nil {
		e.metrics.RateLimitRejections.Inc()
	}
}

func (e *OrderExecutor) countFailed(tradeType string) {
	if e.metrics != nil {
		e.metrics.TradesFailed.WithLabelValues(tradeType).Inc()
	}
}

func (e *OrderExecutor) countExecuted(tradeType string, amount float64) {
	if e.metrics != nil {
		e.metrics.TradesExecuted.WithLabelValues(tradeType).Inc()
		e.metrics.TradeVolume.Add(amount)
	}
}
