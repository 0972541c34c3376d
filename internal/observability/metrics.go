// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the trading core.
type Metrics struct {
	// Execution metrics
	TradesExecuted      *prometheus.CounterVec // labels: type
	TradesFailed        *prometheus.CounterVec // labels: type
	RateLimitRejections prometheus.Counter
	TradeVolume         prometheus.Counter

	// Strategy metrics
	StrategiesRunning prometheus.Gauge
	StrategyStarts    *prometheus.CounterVec // labels: strategy_type
	StrategyStops     prometheus.Counter
	DecisionErrors    *prometheus.CounterVec // labels: strategy_type

	// Position metrics
	PositionsOpened prometheus.Counter
	PositionsClosed prometheus.Counter
	PriceRefreshes  prometheus.Counter

	// Feed metrics
	PoolEventsReceived prometheus.Counter
	FeedErrors         prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "trade_engine"
	}

	return &Metrics{
		TradesExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "trades_executed_total",
			Help:      "Total number of trades confirmed by the gateway",
		}, []string{"type"}),
		TradesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "trades_failed_total",
			Help:      "Total number of trades rejected or failed",
		}, []string{"type"}),
		RateLimitRejections: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "rate_limit_rejections_total",
			Help:      "Total number of trades rejected by the per-wallet rate limit",
		}),
		TradeVolume: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "trade_volume_total",
			Help:      "Cumulative notional volume of confirmed trades",
		}),
		StrategiesRunning: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "supervisor",
			Name:      "strategies_running",
			Help:      "Number of strategy instances currently running",
		}),
		StrategyStarts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "supervisor",
			Name:      "strategy_starts_total",
			Help:      "Total number of strategy starts",
		}, []string{"strategy_type"}),
		StrategyStops: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "supervisor",
			Name:      "strategy_stops_total",
			Help:      "Total number of strategy stops",
		}),
		DecisionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "decision_errors_total",
			Help:      "Total number of failed strategy decision attempts",
		}, []string{"strategy_type"}),
		PositionsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "position",
			Name:      "opened_total",
			Help:      "Total number of positions opened",
		}),
		PositionsClosed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "position",
			Name:      "closed_total",
			Help:      "Total number of positions closed",
		}),
		PriceRefreshes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "position",
			Name:      "price_refreshes_total",
			Help:      "Total number of background position price refreshes",
		}),
		PoolEventsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "pool_events_total",
			Help:      "Total number of new-pool events received",
		}),
		FeedErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "errors_total",
			Help:      "Total number of market feed errors",
		}),
	}
}

// Handler returns an HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
