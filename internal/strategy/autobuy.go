package strategy

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/executor"
	"solana-trade-engine/internal/position"
)

// AutoBuyRunner buys a fixed amount of every new pool whose liquidity
// falls inside the configured band, optionally screened by a rug check.
// Pool events are handled concurrently; a failed buy never stops the
// subscription.
type AutoBuyRunner struct {
	cfg  domain.AutoBuyConfig
	deps Deps
}

// NewAutoBuyRunner creates an AUTO_BUY_NEW_POOLS runner.
func NewAutoBuyRunner(cfg domain.AutoBuyConfig, deps Deps) *AutoBuyRunner {
	return &AutoBuyRunner{cfg: cfg, deps: deps}
}

var _ Runner = (*AutoBuyRunner)(nil)

func (r *AutoBuyRunner) Type() string { return domain.StrategyTypeAutoBuyNewPools }

// Run consumes the new-pool stream until ctx is cancelled.
func (r *AutoBuyRunner) Run(ctx context.Context, strategyID string) error {
	log := r.deps.Log.With().
		Str("strategy_id", strategyID).
		Str("strategy_type", r.Type()).
		Logger()
	tracker := newMetricsTracker(strategyID, r.Type(), r.deps)

	events, err := r.deps.Feed.SubscribeNewPools(ctx)
	if err != nil {
		return fmt.Errorf("subscribe new pools: %w", err)
	}
	log.Info().
		Float64("min_liquidity", r.cfg.MinLiquidity).
		Float64("max_liquidity", r.cfg.MaxLiquidity).
		Msg("auto-buy watching new pools")

	var wg sync.WaitGroup
	defer wg.Wait()

	for ev := range events {
		if r.deps.Metrics != nil {
			r.deps.Metrics.PoolEventsReceived.Inc()
		}
		if ev.Liquidity < r.cfg.MinLiquidity || ev.Liquidity > r.cfg.MaxLiquidity {
			log.Debug().
				Str("pool", ev.Address).
				Float64("liquidity", ev.Liquidity).
				Msg("pool outside liquidity band")
			continue
		}

		wg.Add(1)
		go func(ev domain.PoolEvent) {
			defer wg.Done()
			r.handlePool(ctx, strategyID, ev, tracker, log)
		}(ev)
	}
	return ctx.Err()
}

func (r *AutoBuyRunner) handlePool(ctx context.Context, strategyID string, ev domain.PoolEvent, tracker *metricsTracker, log zerolog.Logger) {
	if r.cfg.RugCheckEnabled && !r.passesRugCheck(ctx, ev.TokenAddress, log) {
		log.Warn().Str("token", ev.TokenAddress).Msg("token failed rug check")
		return
	}

	res, err := r.deps.Executor.ExecuteBuy(ctx, executor.TradeRequest{
		WalletID:     r.cfg.WalletID,
		TokenAddress: ev.TokenAddress,
		Amount:       r.cfg.BuyAmount,
		Slippage:     r.cfg.Slippage,
		StrategyID:   strategyID,
	})
	if err != nil {
		log.Error().Err(err).Str("pool", ev.Address).Msg("auto-buy failed")
		tracker.record(ctx, outcome{
			Event:        "buy_executed",
			TokenAddress: ev.TokenAddress,
			Amount:       r.cfg.BuyAmount,
			Err:          err,
		})
		return
	}

	if _, err := r.deps.Positions.Open(ctx, position.OpenInput{
		WalletID:     r.cfg.WalletID,
		TokenAddress: ev.TokenAddress,
		Quantity:     res.Quantity,
		Price:        res.Price,
	}); err != nil {
		log.Error().Err(err).Str("token", ev.TokenAddress).Msg("position open failed after buy")
	}

	tracker.record(ctx, outcome{
		Event:        "buy_executed",
		TokenAddress: ev.TokenAddress,
		Amount:       res.Amount,
		Price:        res.Price,
		Quantity:     res.Quantity,
		Payload: map[string]any{
			"tokenAddress": ev.TokenAddress,
			"amount":       res.Amount,
			"price":        res.Price,
			"quantity":     res.Quantity,
		},
	})
}

// passesRugCheck screens a token by locked liquidity and top-holder
// concentration. A metadata failure counts as a failed check.
func (r *AutoBuyRunner) passesRugCheck(ctx context.Context, tokenAddress string, log zerolog.Logger) bool {
	meta, err := r.deps.Feed.GetTokenMetadata(ctx, tokenAddress)
	if err != nil {
		log.Warn().Err(err).Str("token", tokenAddress).Msg("rug-check metadata unavailable")
		return false
	}
	if meta.LiquidityLocked < r.cfg.MinLiquidityLocked {
		return false
	}
	if meta.Top10Holdings > r.cfg.MaxTop10Holdings {
		return false
	}
	return true
}
