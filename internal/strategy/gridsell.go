package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/executor"
	"solana-trade-engine/internal/position"
)

// GridSellingRunner takes partial profits on an existing position at
// successive price multiples of its entry price. Targets are processed
// strictly in list order; each sell is a percentage of the ORIGINAL
// quantity, so target percentages are independent of earlier fills.
type GridSellingRunner struct {
	cfg  domain.GridSellingConfig
	deps Deps
	iv   Intervals
}

// NewGridSellingRunner creates a GRID_SELLING runner.
func NewGridSellingRunner(cfg domain.GridSellingConfig, deps Deps) *GridSellingRunner {
	return &GridSellingRunner{cfg: cfg, deps: deps, iv: deps.Intervals.withDefaults()}
}

var _ Runner = (*GridSellingRunner)(nil)

func (r *GridSellingRunner) Type() string { return domain.StrategyTypeGridSelling }

// Run walks the target list, blocking on each until the price reaches
// it or the overall timeout abandons the remaining targets.
func (r *GridSellingRunner) Run(ctx context.Context, strategyID string) error {
	log := r.deps.Log.With().
		Str("strategy_id", strategyID).
		Str("strategy_type", r.Type()).
		Str("position_id", r.cfg.PositionID).
		Logger()
	tracker := newMetricsTracker(strategyID, r.Type(), r.deps)

	pos, err := r.deps.Positions.Get(ctx, r.cfg.PositionID)
	if err != nil {
		return fmt.Errorf("load position %s: %w", r.cfg.PositionID, err)
	}
	entryPrice := pos.EntryPrice
	originalQty := pos.Quantity
	deadline := time.Now().Add(r.iv.GridTimeout)

	for i, target := range r.cfg.Targets {
		targetPrice := entryPrice * target.PriceMultiplier
		sellQty := originalQty * target.SellPercent / 100

		log.Info().
			Int("target", i).
			Float64("target_price", targetPrice).
			Float64("sell_quantity", sellQty).
			Msg("waiting for grid target")

		reached, err := r.waitForPrice(ctx, pos.TokenAddress, targetPrice, deadline)
		if err != nil {
			return err
		}
		if !reached {
			log.Warn().
				Int("targets_remaining", len(r.cfg.Targets)-i).
				Msg("grid selling timed out, abandoning remaining targets")
			return nil
		}

		r.sellTarget(ctx, strategyID, pos, targetPrice, sellQty, tracker, log)
	}

	log.Info().Msg("grid selling completed all targets")
	return nil
}

// waitForPrice polls the price cache until it reaches targetPrice.
// Returns false when the deadline passes first.
func (r *GridSellingRunner) waitForPrice(ctx context.Context, tokenAddress string, targetPrice float64, deadline time.Time) (bool, error) {
	ticker := time.NewTicker(r.iv.GridPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
			if time.Now().After(deadline) {
				return false, nil
			}
			price := r.deps.Positions.CurrentPrice(ctx, tokenAddress)
			if price == 0 {
				continue
			}
			if price >= targetPrice {
				return true, nil
			}
		}
	}
}

func (r *GridSellingRunner) sellTarget(ctx context.Context, strategyID string, pos *domain.Position, targetPrice, sellQty float64, tracker *metricsTracker, log zerolog.Logger) {
	res, err := r.deps.Executor.ExecuteSell(ctx, executor.TradeRequest{
		WalletID:     pos.WalletID,
		TokenAddress: pos.TokenAddress,
		Amount:       sellQty,
		Slippage:     defaultSlippage,
		StrategyID:   strategyID,
	})
	if err != nil {
		log.Error().Err(err).Float64("target_price", targetPrice).Msg("grid sell failed")
		tracker.record(ctx, outcome{
			Event:        "grid_sell_executed",
			TokenAddress: pos.TokenAddress,
			Amount:       sellQty,
			Err:          err,
		})
		return
	}

	latest, err := r.deps.Positions.Get(ctx, r.cfg.PositionID)
	if err != nil {
		log.Error().Err(err).Msg("position reload failed after grid sell")
	} else {
		remaining := latest.Quantity - sellQty
		if remaining < 0 {
			remaining = 0
		}
		if _, err := r.deps.Positions.Update(ctx, r.cfg.PositionID, position.UpdateInput{
			Quantity:     &remaining,
			CurrentPrice: &res.Price,
		}); err != nil {
			log.Error().Err(err).Msg("position update failed after grid sell")
		}
	}

	tracker.record(ctx, outcome{
		Event:        "grid_sell_executed",
		TokenAddress: pos.TokenAddress,
		Amount:       sellQty,
		Price:        res.Price,
		Quantity:     res.Quantity,
		Payload: map[string]any{
			"tokenAddress": pos.TokenAddress,
			"quantity":     sellQty,
			"price":        res.Price,
			"pnl":          (res.Price - pos.EntryPrice) * sellQty,
		},
	})
}
