package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/executor"
	"solana-trade-engine/internal/pricetracker"
)

// TrailingStopRunner protects a position's gains with a stop-loss that
// rises with the highest price seen. The all-time-high seeds at entry
// price (or entry x activationMultiplier when > 1); the stop sits
// trailPercent below the ATH and only ever moves up.
type TrailingStopRunner struct {
	cfg  domain.TrailingStopConfig
	deps Deps
	iv   Intervals
}

// NewTrailingStopRunner creates a TRAILING_STOP runner.
func NewTrailingStopRunner(cfg domain.TrailingStopConfig, deps Deps) *TrailingStopRunner {
	return &TrailingStopRunner{cfg: cfg, deps: deps, iv: deps.Intervals.withDefaults()}
}

var _ Runner = (*TrailingStopRunner)(nil)

func (r *TrailingStopRunner) Type() string { return domain.StrategyTypeTrailingStop }

// Run watches the price feed until the stop fires, the overall timeout
// lapses (position left open) or ctx is cancelled.
func (r *TrailingStopRunner) Run(ctx context.Context, strategyID string) error {
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

	ath := pos.EntryPrice
	if r.cfg.ActivationMultiplier > 1 {
		ath = pos.EntryPrice * r.cfg.ActivationMultiplier
	}
	stop := ath * (1 - r.cfg.TrailPercent/100)
	log.Info().
		Float64("ath", ath).
		Float64("stop_price", stop).
		Msg("trailing stop armed")

	// Sampled, not buffered: only the latest price matters on a slow
	// consumer.
	updates := make(chan pricetracker.Update, 1)
	unsubscribe := r.deps.Prices.Subscribe(pos.TokenAddress, func(u pricetracker.Update) {
		select {
		case updates <- u:
		default:
		}
	})
	defer unsubscribe()

	timeout := time.NewTimer(r.iv.TrailTimeout)
	defer timeout.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout.C:
			log.Warn().Msg("trailing stop timed out, position left open")
			return nil
		case u := <-updates:
			if u.Price == 0 {
				continue
			}
			if u.Price > ath {
				ath = u.Price
				stop = ath * (1 - r.cfg.TrailPercent/100)
				log.Info().
					Float64("ath", ath).
					Float64("stop_price", stop).
					Msg("new all-time high")
			}
			if u.Price > stop {
				continue
			}

			if r.fireStop(ctx, strategyID, u.Price, stop, tracker, log) {
				return nil
			}
			// Sell failed; keep watching and retry on the next tick.
		}
	}
}

// fireStop sells the full remaining quantity and closes the position at
// the triggering price. Returns false when the sell failed and the loop
// should keep running.
func (r *TrailingStopRunner) fireStop(ctx context.Context, strategyID string, price, stop float64, tracker *metricsTracker, log zerolog.Logger) bool {
	latest, err := r.deps.Positions.Get(ctx, r.cfg.PositionID)
	if err != nil {
		log.Error().Err(err).Msg("position reload failed on stop trigger")
		return false
	}
	if !latest.IsOpen() || latest.Quantity == 0 {
		log.Info().Msg("position already closed, trailing stop exiting")
		return true
	}

	log.Info().
		Float64("price", price).
		Float64("stop_price", stop).
		Msg("stop loss triggered, selling position")

	res, err := r.deps.Executor.ExecuteSell(ctx, executor.TradeRequest{
		WalletID:     latest.WalletID,
		TokenAddress: latest.TokenAddress,
		Amount:       latest.Quantity,
		Slippage:     defaultSlippage,
		StrategyID:   strategyID,
	})
	if err != nil {
		log.Error().Err(err).Msg("stop-loss sell failed")
		tracker.record(ctx, outcome{
			Event:        "stop_loss_triggered",
			TokenAddress: latest.TokenAddress,
			Amount:       latest.Quantity,
			Err:          err,
		})
		return false
	}

	closed, err := r.deps.Positions.Close(ctx, r.cfg.PositionID, price)
	if err != nil {
		log.Error().Err(err).Msg("position close failed after stop-loss sell")
	}

	var pnl float64
	if closed != nil {
		pnl = closed.RealizedPnl
	}
	tracker.record(ctx, outcome{
		Event:        "stop_loss_triggered",
		TokenAddress: latest.TokenAddress,
		Amount:       latest.Quantity,
		Price:        res.Price,
		Quantity:     res.Quantity,
		Payload: map[string]any{
			"tokenAddress": latest.TokenAddress,
			"exitPrice":    price,
			"pnl":          pnl,
		},
	})
	return true
}
