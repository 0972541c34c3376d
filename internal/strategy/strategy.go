// Package strategy implements the four trading-strategy variants:
// auto-buy on new pools, grid take-profit selling, trailing stop-loss
// and dollar-cost averaging. Each variant is a long-running decision
// loop driven by market data and cancelled through its context.
package strategy

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"solana-trade-engine/internal/executor"
	"solana-trade-engine/internal/marketfeed"
	"solana-trade-engine/internal/notify"
	"solana-trade-engine/internal/observability"
	"solana-trade-engine/internal/position"
	"solana-trade-engine/internal/pricetracker"
	"solana-trade-engine/internal/storage"
)

// Loop tuning defaults. Tests shrink these through Intervals.
const (
	DefaultGridPollInterval = 10 * time.Second
	DefaultGridTimeout      = 30 * 24 * time.Hour
	DefaultTrailTimeout     = 30 * 24 * time.Hour

	// defaultSlippage is applied to strategy-initiated orders that
	// carry no per-config slippage setting.
	defaultSlippage = 2.0
)

// Runner is one live strategy instance. Run blocks until the context
// is cancelled or the strategy completes naturally (e.g. a DCA series
// finishing or a trailing stop firing).
type Runner interface {
	Run(ctx context.Context, strategyID string) error

	// Type returns the strategy type constant the runner implements.
	Type() string
}

// Deps bundles the collaborators every variant draws from. Metrics may
// be nil; Notifier may be nil.
type Deps struct {
	Executor  *executor.OrderExecutor
	Positions *position.Manager
	Prices    *pricetracker.Tracker
	Feed      marketfeed.Feed
	Notifier  notify.Notifier
	Records   storage.ExecutionRecordStore
	Metrics   *observability.Metrics
	Log       zerolog.Logger
	Intervals Intervals
}

// Intervals overrides the loop timing constants. Zero values use the
// defaults.
type Intervals struct {
	GridPoll     time.Duration
	GridTimeout  time.Duration
	TrailTimeout time.Duration
}

func (i Intervals) withDefaults() Intervals {
	if i.GridPoll <= 0 {
		i.GridPoll = DefaultGridPollInterval
	}
	if i.GridTimeout <= 0 {
		i.GridTimeout = DefaultGridTimeout
	}
	if i.TrailTimeout <= 0 {
		i.TrailTimeout = DefaultTrailTimeout
	}
	return i
}
