package strategy

import (
	"errors"

	"solana-trade-engine/internal/domain"
)

// Factory errors
var (
	ErrUnknownStrategyType = errors.New("unknown strategy type")
	ErrMissingVariant      = errors.New("config variant does not match strategy type")

	ErrMissingWalletID      = errors.New("strategy requires walletId")
	ErrMissingBuyAmount     = errors.New("strategy requires a positive buyAmount")
	ErrInvalidLiquidityBand = errors.New("AUTO_BUY_NEW_POOLS requires 0 <= minLiquidity <= maxLiquidity")
	ErrMissingPositionID    = errors.New("strategy requires positionId")
	ErrMissingTargets       = errors.New("GRID_SELLING requires at least one target")
	ErrInvalidTarget        = errors.New("GRID_SELLING target requires priceMultiplier > 0 and sellPercent in (0, 100]")
	ErrMissingTrailPercent  = errors.New("TRAILING_STOP requires trailPercent in (0, 100)")
	ErrMissingTokenAddress  = errors.New("DCA requires tokenAddress")
	ErrInvalidInterval      = errors.New("DCA requires a positive intervalHours")
	ErrInvalidTotalBuys     = errors.New("DCA requires a positive totalBuys")
)

// FromConfig builds the Runner matching cfg.Type. Validates required
// parameters per strategy type and returns clear errors for
// missing/invalid params; an unknown type is a configuration error,
// never a silent no-op.
func FromConfig(cfg domain.StrategyConfig, deps Deps) (Runner, error) {
	switch cfg.Type {
	case domain.StrategyTypeAutoBuyNewPools:
		return fromAutoBuyConfig(cfg, deps)
	case domain.StrategyTypeGridSelling:
		return fromGridSellingConfig(cfg, deps)
	case domain.StrategyTypeTrailingStop:
		return fromTrailingStopConfig(cfg, deps)
	case domain.StrategyTypeDCA:
		return fromDCAConfig(cfg, deps)
	default:
		return nil, ErrUnknownStrategyType
	}
}

func fromAutoBuyConfig(cfg domain.StrategyConfig, deps Deps) (*AutoBuyRunner, error) {
	if cfg.AutoBuy == nil {
		return nil, ErrMissingVariant
	}
	c := *cfg.AutoBuy
	if c.WalletID == "" {
		return nil, ErrMissingWalletID
	}
	if c.BuyAmount <= 0 {
		return nil, ErrMissingBuyAmount
	}
	if c.MinLiquidity < 0 || c.MaxLiquidity < c.MinLiquidity {
		return nil, ErrInvalidLiquidityBand
	}
	return NewAutoBuyRunner(c, deps), nil
}

func fromGridSellingConfig(cfg domain.StrategyConfig, deps Deps) (*GridSellingRunner, error) {
	if cfg.GridSelling == nil {
		return nil, ErrMissingVariant
	}
	c := *cfg.GridSelling
	if c.PositionID == "" {
		return nil, ErrMissingPositionID
	}
	if len(c.Targets) == 0 {
		return nil, ErrMissingTargets
	}
	for _, target := range c.Targets {
		if target.PriceMultiplier <= 0 || target.SellPercent <= 0 || target.SellPercent > 100 {
			return nil, ErrInvalidTarget
		}
	}
	return NewGridSellingRunner(c, deps), nil
}

func fromTrailingStopConfig(cfg domain.StrategyConfig, deps Deps) (*TrailingStopRunner, error) {
	if cfg.TrailingStop == nil {
		return nil, ErrMissingVariant
	}
	c := *cfg.TrailingStop
	if c.PositionID == "" {
		return nil, ErrMissingPositionID
	}
	if c.TrailPercent <= 0 || c.TrailPercent >= 100 {
		return nil, ErrMissingTrailPercent
	}
	return NewTrailingStopRunner(c, deps), nil
}

func fromDCAConfig(cfg domain.StrategyConfig, deps Deps) (*DCARunner, error) {
	if cfg.DCA == nil {
		return nil, ErrMissingVariant
	}
	c := *cfg.DCA
	if c.WalletID == "" {
		return nil, ErrMissingWalletID
	}
	if c.TokenAddress == "" {
		return nil, ErrMissingTokenAddress
	}
	if c.BuyAmount <= 0 {
		return nil, ErrMissingBuyAmount
	}
	if c.IntervalHours <= 0 {
		return nil, ErrInvalidInterval
	}
	if c.TotalBuys <= 0 {
		return nil, ErrInvalidTotalBuys
	}
	return NewDCARunner(c, deps), nil
}
