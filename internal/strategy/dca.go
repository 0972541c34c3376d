package strategy

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/executor"
	"solana-trade-engine/internal/position"
)

// DCARunner buys a fixed amount of one token at fixed time intervals,
// accumulating the fills into a single volume-weighted position. The
// series is time-driven: a failed buy is logged and the next attempt
// still happens on schedule, so exactly totalBuys attempts are made.
type DCARunner struct {
	cfg  domain.DCAConfig
	deps Deps
}

// NewDCARunner creates a DCA runner.
func NewDCARunner(cfg domain.DCAConfig, deps Deps) *DCARunner {
	return &DCARunner{cfg: cfg, deps: deps}
}

var _ Runner = (*DCARunner)(nil)

func (r *DCARunner) Type() string { return domain.StrategyTypeDCA }

// Run executes the buy series, first attempt immediately, then one per
// interval, until the series completes or ctx is cancelled.
func (r *DCARunner) Run(ctx context.Context, strategyID string) error {
	log := r.deps.Log.With().
		Str("strategy_id", strategyID).
		Str("strategy_type", r.Type()).
		Str("token", r.cfg.TokenAddress).
		Logger()
	tracker := newMetricsTracker(strategyID, r.Type(), r.deps)

	interval := time.Duration(r.cfg.IntervalHours * float64(time.Hour))
	log.Info().
		Int("total_buys", r.cfg.TotalBuys).
		Dur("interval", interval).
		Msg("dca series starting")

	for n := 1; n <= r.cfg.TotalBuys; n++ {
		r.attemptBuy(ctx, strategyID, n, tracker, log)

		if n == r.cfg.TotalBuys {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}

	log.Info().Int("total_buys", r.cfg.TotalBuys).Msg("dca series completed")
	return nil
}

func (r *DCARunner) attemptBuy(ctx context.Context, strategyID string, buyNumber int, tracker *metricsTracker, log zerolog.Logger) {
	res, err := r.deps.Executor.ExecuteBuy(ctx, executor.TradeRequest{
		WalletID:     r.cfg.WalletID,
		TokenAddress: r.cfg.TokenAddress,
		Amount:       r.cfg.BuyAmount,
		Slippage:     defaultSlippage,
		StrategyID:   strategyID,
	})
	if err != nil {
		log.Error().Err(err).Int("buy_number", buyNumber).Msg("dca buy failed")
		tracker.record(ctx, outcome{
			Event:        "dca_buy_executed",
			TokenAddress: r.cfg.TokenAddress,
			Amount:       r.cfg.BuyAmount,
			Err:          err,
		})
		return
	}

	if _, err := r.deps.Positions.OpenOrMerge(ctx, position.OpenInput{
		WalletID:     r.cfg.WalletID,
		TokenAddress: r.cfg.TokenAddress,
		Quantity:     res.Quantity,
		Price:        res.Price,
	}); err != nil {
		log.Error().Err(err).Int("buy_number", buyNumber).Msg("position merge failed after dca buy")
	}

	tracker.record(ctx, outcome{
		Event:        "dca_buy_executed",
		TokenAddress: r.cfg.TokenAddress,
		Amount:       res.Amount,
		Price:        res.Price,
		Quantity:     res.Quantity,
		Payload: map[string]any{
			"buyNumber":    buyNumber,
			"totalBuys":    r.cfg.TotalBuys,
			"tokenAddress": r.cfg.TokenAddress,
			"amount":       res.Amount,
			"price":        res.Price,
			"quantity":     res.Quantity,
		},
	})
}
