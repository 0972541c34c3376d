// Package supervisor maps persisted strategy records to running
// instances. It owns the runtime registry, the per-strategy
// cancellation scopes and the on-demand metrics aggregation.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/observability"
	"solana-trade-engine/internal/storage"
	"solana-trade-engine/internal/strategy"
)

// DefaultStopWait bounds how long Stop waits for a cancelled runner to
// wind down.
const DefaultStopWait = 5 * time.Second

// Supervisor errors.
var (
	// ErrStrategyNotFound means the strategy id does not resolve.
	ErrStrategyNotFound = errors.New("strategy not found")

	// ErrAlreadyRunning means a runtime instance already exists for the
	// strategy.
	ErrAlreadyRunning = errors.New("strategy already running")

	// ErrNotRunning means Stop was called for a strategy with no
	// runtime instance.
	ErrNotRunning = errors.New("strategy not running")
)

// Supervisor is the boundary the CRUD/API layer calls into. The
// registry is in-memory only: after a restart nothing is resumed, a
// strategy flagged active must be started again explicitly.
type Supervisor struct {
	strategies   storage.StrategyStore
	transactions storage.TransactionStore
	positions    storage.PositionStore
	deps         strategy.Deps
	metrics      *observability.Metrics
	log          zerolog.Logger
	stopWait     time.Duration

	mu      sync.Mutex
	running map[string]*instance
}

type instance struct {
	cancel     context.CancelFunc
	done       chan struct{}
	runnerType string
}

// New creates a supervisor. metrics may be nil; stopWait <= 0 uses
// DefaultStopWait.
func New(
	strategies storage.StrategyStore,
	transactions storage.TransactionStore,
	positions storage.PositionStore,
	deps strategy.Deps,
	metrics *observability.Metrics,
	log zerolog.Logger,
	stopWait time.Duration,
) *Supervisor {
	if stopWait <= 0 {
		stopWait = DefaultStopWait
	}
	return &Supervisor{
		strategies:   strategies,
		transactions: transactions,
		positions:    positions,
		deps:         deps,
		metrics:      metrics,
		log:          log.With().Str("component", "supervisor").Logger(),
		stopWait:     stopWait,
		running:      make(map[string]*instance),
	}
}

// Start loads the strategy, builds its runner and spawns it under a
// per-strategy cancellation scope. Rejects a second start while an
// instance is live. An unknown or invalid config is a configuration
// error; nothing is spawned and the active flag is untouched.
func (s *Supervisor) Start(ctx context.Context, strategyID string) error {
	record, err := s.strategies.GetByID(ctx, strategyID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrStrategyNotFound
		}
		return fmt.Errorf("load strategy: %w", err)
	}

	runner, err := strategy.FromConfig(record.Config, s.deps)
	if err != nil {
		return fmt.Errorf("strategy %s config: %w", strategyID, err)
	}

	s.mu.Lock()
	if _, ok := s.running[strategyID]; ok {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}

	// The runner outlives the Start call; its lifetime is owned by the
	// registry entry, not the caller's request context.
	runCtx, cancel := context.WithCancel(context.Background())
	inst := &instance{
		cancel:     cancel,
		done:       make(chan struct{}),
		runnerType: runner.Type(),
	}
	s.running[strategyID] = inst
	s.mu.Unlock()

	if err := s.strategies.SetActive(ctx, strategyID, true); err != nil {
		cancel()
		s.remove(strategyID, inst)
		close(inst.done)
		return fmt.Errorf("persist active flag: %w", err)
	}

	if s.metrics != nil {
		s.metrics.StrategyStarts.WithLabelValues(runner.Type()).Inc()
		s.metrics.StrategiesRunning.Inc()
	}
	s.log.Info().
		Str("strategy_id", strategyID).
		Str("strategy_type", runner.Type()).
		Msg("strategy started")

	go s.run(runCtx, strategyID, inst, runner)
	return nil
}

// Stop cancels the strategy's context, waits (bounded) for the runner
// to exit and persists the inactive flag. Cancellation reaches every
// timer the runner spawned, so no trade executes after Stop returns.
func (s *Supervisor) Stop(ctx context.Context, strategyID string) error {
	s.mu.Lock()
	inst, ok := s.running[strategyID]
	if !ok {
		s.mu.Unlock()
		return ErrNotRunning
	}
	delete(s.running, strategyID)
	s.mu.Unlock()

	inst.cancel()
	select {
	case <-inst.done:
	case <-time.After(s.stopWait):
		s.log.Warn().Str("strategy_id", strategyID).Msg("runner did not exit within stop timeout")
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := s.strategies.SetActive(ctx, strategyID, false); err != nil {
		return fmt.Errorf("persist inactive flag: %w", err)
	}
	if s.metrics != nil {
		s.metrics.StrategyStops.Inc()
	}
	s.log.Info().Str("strategy_id", strategyID).Msg("strategy stopped")
	return nil
}

// IsRunning reports whether a runtime instance exists for the strategy.
func (s *Supervisor) IsRunning(strategyID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[strategyID]
	return ok
}

// Shutdown stops every running strategy, bounded by stopWait each.
func (s *Supervisor) Shutdown(ctx context.Context) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.running))
	for id := range s.running {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		if err := s.Stop(ctx, id); err != nil && !errors.Is(err, ErrNotRunning) {
			s.log.Warn().Err(err).Str("strategy_id", id).Msg("shutdown stop failed")
		}
	}
}

// Metrics aggregates trading metrics for the strategy's owning user
// from transaction and position state. User-scoped, not per-strategy.
func (s *Supervisor) Metrics(ctx context.Context, strategyID string) (*domain.StrategyMetrics, error) {
	record, err := s.strategies.GetByID(ctx, strategyID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrStrategyNotFound
		}
		return nil, fmt.Errorf("load strategy: %w", err)
	}

	transactions, err := s.transactions.GetByUserID(ctx, record.UserID)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	positions, err := s.positions.GetByUserID(ctx, record.UserID)
	if err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}

	m := &domain.StrategyMetrics{
		TotalTrades:     len(transactions),
		LastExecutionAt: time.Now().UTC(),
	}
	for _, tx := range transactions {
		switch tx.Status {
		case domain.TransactionStatusConfirmed:
			m.SuccessfulTrades++
		case domain.TransactionStatusFailed:
			m.FailedTrades++
		}
		m.TotalVolume += tx.Amount
	}

	first := true
	for _, p := range positions {
		switch p.Status {
		case domain.PositionStatusClosed:
			m.RealizedPnL += p.RealizedPnl
			if first || p.RealizedPnl > m.LargestWin {
				m.LargestWin = p.RealizedPnl
			}
			if first || p.RealizedPnl < m.LargestLoss {
				m.LargestLoss = p.RealizedPnl
			}
			first = false
		case domain.PositionStatusOpen:
			m.UnrealizedPnL += p.UnrealizedPnl
			m.ActivePositions++
		}
	}
	if first {
		m.LargestWin, m.LargestLoss = 0, 0
	}

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.SuccessfulTrades) / float64(m.TotalTrades) * 100
	}
	if m.SuccessfulTrades > 0 {
		m.AverageProfit = m.RealizedPnL / float64(m.SuccessfulTrades)
	}
	return m, nil
}

func (s *Supervisor) run(ctx context.Context, strategyID string, inst *instance, runner strategy.Runner) {
	defer close(inst.done)

	err := runner.Run(ctx, strategyID)
	switch {
	case err == nil:
		s.log.Info().Str("strategy_id", strategyID).Msg("strategy completed")
	case errors.Is(err, context.Canceled):
		s.log.Debug().Str("strategy_id", strategyID).Msg("strategy cancelled")
	default:
		s.log.Error().Err(err).Str("strategy_id", strategyID).Msg("strategy failed")
	}

	if s.metrics != nil {
		s.metrics.StrategiesRunning.Dec()
	}

	// Natural completion or failure: clear the registry entry and the
	// persisted flag. After Stop the entry is already gone and the
	// flag write is a harmless repeat.
	if s.remove(strategyID, inst) {
		if err := s.strategies.SetActive(context.WithoutCancel(ctx), strategyID, false); err != nil {
			s.log.Warn().Err(err).Str("strategy_id", strategyID).Msg("inactive flag write failed")
		}
	}
}

// remove clears the registry entry if it still points at inst. Returns
// whether it was removed here.
func (s *Supervisor) remove(strategyID string, inst *instance) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.running[strategyID]; ok && cur == inst {
		delete(s.running, strategyID)
		return true
	}
	return false
}
