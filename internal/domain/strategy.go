package domain

import "time"

// Strategy type constants. Exactly one config variant matches each type.
const (
	StrategyTypeAutoBuyNewPools = "AUTO_BUY_NEW_POOLS"
	StrategyTypeGridSelling     = "GRID_SELLING"
	StrategyTypeTrailingStop    = "TRAILING_STOP"
	StrategyTypeDCA             = "DCA"
)

// Strategy is a persisted trading strategy record.
// IsActive mirrors whether a runtime instance is supposed to exist;
// config is immutable while active (stop before edit).
type Strategy struct {
	ID        string
	UserID    string
	Name      string
	Config    StrategyConfig
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StrategyConfig is a tagged union over the four strategy variants.
// Type selects the variant; exactly one variant pointer must be non-nil
// and match Type. Validation happens in the strategy factory.
type StrategyConfig struct {
	Type string `json:"type"`

	AutoBuy      *AutoBuyConfig      `json:"autoBuy,omitempty"`
	GridSelling  *GridSellingConfig  `json:"gridSelling,omitempty"`
	TrailingStop *TrailingStopConfig `json:"trailingStop,omitempty"`
	DCA          *DCAConfig          `json:"dca,omitempty"`
}

// AutoBuyConfig parameterizes AUTO_BUY_NEW_POOLS: buy a fixed amount of
// every new pool whose liquidity falls inside [MinLiquidity, MaxLiquidity],
// optionally screened by a rug check.
type AutoBuyConfig struct {
	WalletID           string  `json:"walletId"`
	MinLiquidity       float64 `json:"minLiquidity"`
	MaxLiquidity       float64 `json:"maxLiquidity"`
	BuyAmount          float64 `json:"buyAmount"`
	Slippage           float64 `json:"slippage"`
	RugCheckEnabled    bool    `json:"rugCheckEnabled"`
	MinLiquidityLocked float64 `json:"minLiquidityLocked"`
	MaxTop10Holdings   float64 `json:"maxTop10Holdings"`
}

// GridTarget is one take-profit rung: at EntryPrice*PriceMultiplier sell
// SellPercent percent of the position's original quantity.
type GridTarget struct {
	PriceMultiplier float64 `json:"priceMultiplier"`
	SellPercent     float64 `json:"sellPercent"`
}

// GridSellingConfig parameterizes GRID_SELLING over an existing position.
// Targets are processed strictly in list order.
type GridSellingConfig struct {
	PositionID string       `json:"positionId"`
	Targets    []GridTarget `json:"targets"`
}

// TrailingStopConfig parameterizes TRAILING_STOP over an existing position.
// ActivationMultiplier > 1 seeds the all-time-high above entry price.
type TrailingStopConfig struct {
	PositionID           string  `json:"positionId"`
	TrailPercent         float64 `json:"trailPercent"`
	ActivationMultiplier float64 `json:"activationMultiplier,omitempty"`
}

// DCAConfig parameterizes DCA: TotalBuys purchases of BuyAmount spaced
// IntervalHours apart, accumulated into one volume-weighted position.
type DCAConfig struct {
	WalletID      string  `json:"walletId"`
	TokenAddress  string  `json:"tokenAddress"`
	BuyAmount     float64 `json:"buyAmount"`
	IntervalHours float64 `json:"intervalHours"`
	TotalBuys     int     `json:"totalBuys"`
}
