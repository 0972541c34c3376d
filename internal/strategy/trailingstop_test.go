package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-trade-engine/internal/domain"
)

func TestTrailingStopRidesUpThenSellsOnDrop(t *testing.T) {
	h := newHarness(t)
	h.addWallet(t, "wallet-1", 10_000)
	pos := h.openPosition(t, "wallet-1", testMint, 100, 1.0)

	cfg := domain.TrailingStopConfig{PositionID: pos.ID, TrailPercent: 10}
	r := NewTrailingStopRunner(cfg, h.deps)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runAsync(ctx, r, "strat-1")

	// Stop starts at 0.9. A dip to 0.95 must not trigger.
	h.feed.SetPrice(testMint, 0.95)
	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, h.gateway.Sells())

	// Rally to 2.0 lifts the stop to 1.8.
	h.feed.SetPrice(testMint, 2.0)
	time.Sleep(30 * time.Millisecond)

	// 1.85 is above the new stop: still holding.
	h.feed.SetPrice(testMint, 1.85)
	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, h.gateway.Sells())

	// 1.79 breaches the 1.8 stop: full quantity sold, position closed.
	h.feed.SetPrice(testMint, 1.79)
	h.gateway.SetPrice(testMint, 1.79)

	require.NoError(t, waitDone(t, done))
	require.Len(t, h.gateway.Sells(), 1)
	assert.Equal(t, 100.0, h.gateway.Sells()[0].Amount)

	got, err := h.manager.Get(context.Background(), pos.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PositionStatusClosed, got.Status)
	assert.InDelta(t, (1.79-1.0)*100, got.RealizedPnl, 1e-9)
}

func TestTrailingStopActivationMultiplierSeedsATH(t *testing.T) {
	h := newHarness(t)
	h.addWallet(t, "wallet-1", 10_000)
	pos := h.openPosition(t, "wallet-1", testMint, 100, 1.0)

	// ATH seeds at 2.0, so the stop starts at 1.8 even though price
	// never traded there.
	cfg := domain.TrailingStopConfig{
		PositionID:           pos.ID,
		TrailPercent:         10,
		ActivationMultiplier: 2,
	}
	r := NewTrailingStopRunner(cfg, h.deps)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runAsync(ctx, r, "strat-1")

	h.feed.SetPrice(testMint, 1.5)
	h.gateway.SetPrice(testMint, 1.5)

	require.NoError(t, waitDone(t, done))
	require.Len(t, h.gateway.Sells(), 1, "price below the seeded stop must trigger")
}

func TestTrailingStopTimeoutLeavesPositionOpen(t *testing.T) {
	h := newHarness(t)
	h.addWallet(t, "wallet-1", 10_000)
	pos := h.openPosition(t, "wallet-1", testMint, 100, 1.0)

	h.deps.Intervals.TrailTimeout = 30 * time.Millisecond
	cfg := domain.TrailingStopConfig{PositionID: pos.ID, TrailPercent: 10}
	r := NewTrailingStopRunner(cfg, h.deps)

	h.feed.SetPrice(testMint, 1.0)
	done := runAsync(context.Background(), r, "strat-1")

	require.NoError(t, waitDone(t, done))
	assert.Empty(t, h.gateway.Sells())

	got, err := h.manager.Get(context.Background(), pos.ID)
	require.NoError(t, err)
	assert.True(t, got.IsOpen())
}

func TestTrailingStopIgnoresZeroPrices(t *testing.T) {
	h := newHarness(t)
	h.addWallet(t, "wallet-1", 10_000)
	pos := h.openPosition(t, "wallet-1", testMint, 100, 1.0)

	cfg := domain.TrailingStopConfig{PositionID: pos.ID, TrailPercent: 10}
	r := NewTrailingStopRunner(cfg, h.deps)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runAsync(ctx, r, "strat-1")

	// Feed outage reports 0, which is below any stop. Must not sell.
	h.feed.SetPrice(testMint, 0)
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, h.gateway.Sells())

	cancel()
	waitDone(t, done)
}

func TestTrailingStopRetriesAfterSellFailure(t *testing.T) {
	h := newHarness(t)
	h.addWallet(t, "wallet-1", 10_000)
	pos := h.openPosition(t, "wallet-1", testMint, 100, 1.0)

	cfg := domain.TrailingStopConfig{PositionID: pos.ID, TrailPercent: 10}
	r := NewTrailingStopRunner(cfg, h.deps)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runAsync(ctx, r, "strat-1")

	h.gateway.SetErr(assert.AnError)
	h.feed.SetPrice(testMint, 0.5)

	require.Eventually(t, func() bool {
		recs, err := h.records.GetByStrategyID(context.Background(), "strat-1")
		return err == nil && len(recs) >= 1 && recs[0].Status == domain.ExecutionStatusFailed
	}, time.Second, 5*time.Millisecond)

	h.gateway.SetErr(nil)
	h.gateway.SetPrice(testMint, 0.5)

	require.NoError(t, waitDone(t, done))
	require.NotEmpty(t, h.gateway.Sells())
}
