package strategy

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/notify"
	"solana-trade-engine/internal/observability"
	"solana-trade-engine/internal/storage"
)

// metricsTracker records the outcome of every decision attempt: an
// append-only execution record, a user notification and the prometheus
// counters. Each runner holds its own tracker. All sinks are
// fire-and-forget; failures are logged and never reach the loop.
type metricsTracker struct {
	strategyID   string
	strategyType string
	records      storage.ExecutionRecordStore
	notifier     notify.Notifier
	metrics      *observability.Metrics
	log          zerolog.Logger
}

func newMetricsTracker(strategyID, strategyType string, deps Deps) *metricsTracker {
	return &metricsTracker{
		strategyID:   strategyID,
		strategyType: strategyType,
		records:      deps.Records,
		notifier:     deps.Notifier,
		metrics:      deps.Metrics,
		log: deps.Log.With().
			Str("strategy_id", strategyID).
			Str("strategy_type", strategyType).
			Logger(),
	}
}

// outcome is one decision attempt's result.
type outcome struct {
	Event        string
	TokenAddress string
	Amount       float64
	Price        float64
	Quantity     float64
	Err          error
	Payload      any // notification payload; nil skips the notification
}

func (t *metricsTracker) record(ctx context.Context, o outcome) {
	status := domain.ExecutionStatusSuccess
	errText := ""
	if o.Err != nil {
		status = domain.ExecutionStatusFailed
		errText = o.Err.Error()
		if t.metrics != nil {
			t.metrics.DecisionErrors.WithLabelValues(t.strategyType).Inc()
		}
	}

	rec := &domain.ExecutionRecord{
		ID:           uuid.NewString(),
		StrategyID:   t.strategyID,
		Event:        o.Event,
		Status:       status,
		TokenAddress: o.TokenAddress,
		Amount:       o.Amount,
		Price:        o.Price,
		Quantity:     o.Quantity,
		Error:        errText,
		ExecutedAt:   time.Now().UTC(),
	}
	if t.records != nil {
		// The audit row must land even when the loop is being cancelled.
		if err := t.records.Insert(context.WithoutCancel(ctx), rec); err != nil {
			t.log.Warn().Err(err).Str("event", o.Event).Msg("execution record write failed")
		}
	}

	if o.Payload != nil && t.notifier != nil {
		t.notifier.Notify(t.strategyID, o.Event, o.Payload)
	}
}
