package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/executor"
	gwstub "solana-trade-engine/internal/gateway/stub"
	feedstub "solana-trade-engine/internal/marketfeed/stub"
	"solana-trade-engine/internal/position"
	"solana-trade-engine/internal/pricetracker"
	"solana-trade-engine/internal/storage/memory"
	"solana-trade-engine/internal/strategy"
)

type fixture struct {
	sup        *Supervisor
	gateway    *gwstub.Gateway
	feed       *feedstub.Feed
	strategies *memory.StrategyStore
	positions  *memory.PositionStore
	wallets    *memory.WalletStore
	manager    *position.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	wallets := memory.NewWalletStore()
	positions := memory.NewPositionStore(wallets)
	transactions := memory.NewTransactionStore(wallets)
	strategies := memory.NewStrategyStore()
	records := memory.NewExecutionRecordStore()
	gw := gwstub.NewGateway()
	feed := feedstub.NewFeed()
	log := zerolog.Nop()

	limiter := executor.NewRateLimiter(executor.DefaultMaxTradesPerWindow, executor.DefaultRateWindow)
	exec := executor.NewOrderExecutor(wallets, transactions, gw, limiter, nil, log)

	manager := position.NewManager(positions, feed, nil, nil, log, position.Config{
		PriceCacheTTL:   time.Millisecond,
		RefreshInterval: time.Hour,
	})
	t.Cleanup(manager.Shutdown)

	prices := pricetracker.New(feed, nil, log, 5*time.Millisecond)
	t.Cleanup(prices.Shutdown)

	deps := strategy.Deps{
		Executor:  exec,
		Positions: manager,
		Prices:    prices,
		Feed:      feed,
		Records:   records,
		Log:       log,
		Intervals: strategy.Intervals{
			GridPoll:     5 * time.Millisecond,
			GridTimeout:  time.Hour,
			TrailTimeout: time.Hour,
		},
	}

	sup := New(strategies, transactions, positions, deps, nil, log, time.Second)
	t.Cleanup(func() { sup.Shutdown(context.Background()) })

	return &fixture{
		sup:        sup,
		gateway:    gw,
		feed:       feed,
		strategies: strategies,
		positions:  positions,
		wallets:    wallets,
		manager:    manager,
	}
}

// Well-formed base58 addresses; wallet inserts and executor requests
// are validated.
const (
	testWalletAddr = "FVen3X669xLzsi6N2V91DoiyzHzg1uAgqiT8jZ9nS96Z"
	testMint       = "5F4MKLxqfMksi9dH7FwQWmap5E3efT4wNBb66qwTgCBr"
)

func (f *fixture) addWallet(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, f.wallets.Insert(context.Background(), &domain.Wallet{
		ID:                 id,
		UserID:             "user-1",
		Address:            testWalletAddr,
		ExecutionAccountID: "exec-" + id,
		Balance:            100_000,
	}))
}

func (f *fixture) addStrategy(t *testing.T, cfg domain.StrategyConfig) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, f.strategies.Insert(context.Background(), &domain.Strategy{
		ID:     id,
		UserID: "user-1",
		Name:   "test " + cfg.Type,
		Config: cfg,
	}))
	return id
}

func trailingConfig(positionID string) domain.StrategyConfig {
	return domain.StrategyConfig{
		Type: domain.StrategyTypeTrailingStop,
		TrailingStop: &domain.TrailingStopConfig{
			PositionID:   positionID,
			TrailPercent: 10,
		},
	}
}

func TestStartRunsStrategyAndPersistsActive(t *testing.T) {
	f := newFixture(t)
	f.addWallet(t, "wallet-1")
	pos, err := f.manager.Open(context.Background(), position.OpenInput{
		WalletID: "wallet-1", TokenAddress: testMint, Quantity: 100, Price: 1,
	})
	require.NoError(t, err)
	id := f.addStrategy(t, trailingConfig(pos.ID))

	require.NoError(t, f.sup.Start(context.Background(), id))
	assert.True(t, f.sup.IsRunning(id))

	stored, err := f.strategies.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
}

func TestStartRejectsSecondInstance(t *testing.T) {
	f := newFixture(t)
	f.addWallet(t, "wallet-1")
	pos, err := f.manager.Open(context.Background(), position.OpenInput{
		WalletID: "wallet-1", TokenAddress: testMint, Quantity: 100, Price: 1,
	})
	require.NoError(t, err)
	id := f.addStrategy(t, trailingConfig(pos.ID))

	require.NoError(t, f.sup.Start(context.Background(), id))
	assert.ErrorIs(t, f.sup.Start(context.Background(), id), ErrAlreadyRunning)
}

func TestStartUnknownStrategyID(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.sup.Start(context.Background(), "missing"), ErrStrategyNotFound)
}

func TestStartRejectsBadConfigWithoutSpawning(t *testing.T) {
	f := newFixture(t)
	id := f.addStrategy(t, domain.StrategyConfig{Type: "MARTINGALE"})

	err := f.sup.Start(context.Background(), id)
	assert.ErrorIs(t, err, strategy.ErrUnknownStrategyType)
	assert.False(t, f.sup.IsRunning(id))

	stored, err := f.strategies.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, stored.IsActive, "rejected start must not flag the strategy active")
}

func TestStopPreventsAnyFurtherTrade(t *testing.T) {
	f := newFixture(t)
	f.addWallet(t, "wallet-1")
	pos, err := f.manager.Open(context.Background(), position.OpenInput{
		WalletID: "wallet-1", TokenAddress: testMint, Quantity: 100, Price: 1,
	})
	require.NoError(t, err)
	id := f.addStrategy(t, trailingConfig(pos.ID))

	require.NoError(t, f.sup.Start(context.Background(), id))

	// Keep the price safely above the stop while the runner is live.
	f.feed.SetPrice(testMint, 1.0)
	time.Sleep(30 * time.Millisecond)

	require.NoError(t, f.sup.Stop(context.Background(), id))
	assert.False(t, f.sup.IsRunning(id))

	stored, err := f.strategies.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	// Crash the price well below the stop after Stop returned: the
	// cancelled loop must not trade.
	f.feed.SetPrice(testMint, 0.1)
	f.gateway.SetPrice(testMint, 0.1)
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, f.gateway.Sells(), "no trade may execute after Stop")
}

func TestStopWithoutInstance(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.sup.Stop(context.Background(), "anything"), ErrNotRunning)
}

func TestNaturalCompletionClearsRegistry(t *testing.T) {
	f := newFixture(t)
	f.addWallet(t, "wallet-1")

	id := f.addStrategy(t, domain.StrategyConfig{
		Type: domain.StrategyTypeDCA,
		DCA: &domain.DCAConfig{
			WalletID:      "wallet-1",
			TokenAddress:  testMint,
			BuyAmount:     100,
			IntervalHours: 1e-6, // ~3.6ms
			TotalBuys:     2,
		},
	})

	require.NoError(t, f.sup.Start(context.Background(), id))

	require.Eventually(t, func() bool {
		return !f.sup.IsRunning(id)
	}, time.Second, 5*time.Millisecond, "completed series must leave the registry")

	assert.Len(t, f.gateway.Buys(), 2)
	stored, err := f.strategies.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, stored.IsActive, "completed strategy must be flagged inactive")

	// A finished strategy can be started again.
	require.NoError(t, f.sup.Start(context.Background(), id))
}

func TestMetricsAggregatesUserScope(t *testing.T) {
	f := newFixture(t)
	f.addWallet(t, "wallet-1")
	ctx := context.Background()

	id := f.addStrategy(t, trailingConfig("unused"))

	// Two closed positions and one open one.
	p1, err := f.manager.Open(ctx, position.OpenInput{WalletID: "wallet-1", TokenAddress: "t1", Quantity: 100, Price: 1})
	require.NoError(t, err)
	_, err = f.manager.Close(ctx, p1.ID, 3) // +200
	require.NoError(t, err)

	p2, err := f.manager.Open(ctx, position.OpenInput{WalletID: "wallet-1", TokenAddress: "t2", Quantity: 100, Price: 1})
	require.NoError(t, err)
	_, err = f.manager.Close(ctx, p2.ID, 0.5) // -50
	require.NoError(t, err)

	p3, err := f.manager.Open(ctx, position.OpenInput{WalletID: "wallet-1", TokenAddress: "t3", Quantity: 10, Price: 1})
	require.NoError(t, err)
	price := 2.0
	_, err = f.manager.Update(ctx, p3.ID, position.UpdateInput{CurrentPrice: &price}) // +10 unrealized
	require.NoError(t, err)

	m, err := f.sup.Metrics(ctx, id)
	require.NoError(t, err)

	assert.InDelta(t, 150.0, m.RealizedPnL, 1e-9)
	assert.InDelta(t, 10.0, m.UnrealizedPnL, 1e-9)
	assert.Equal(t, 200.0, m.LargestWin)
	assert.Equal(t, -50.0, m.LargestLoss)
	assert.Equal(t, 1, m.ActivePositions)
}

func TestMetricsCountsTrades(t *testing.T) {
	f := newFixture(t)
	f.addWallet(t, "wallet-1")
	ctx := context.Background()

	id := f.addStrategy(t, trailingConfig("unused"))

	// Three confirmed trades through the executor.
	limiter := executor.NewRateLimiter(executor.DefaultMaxTradesPerWindow, executor.DefaultRateWindow)
	transactions := memory.NewTransactionStore(f.wallets)
	exec := executor.NewOrderExecutor(f.wallets, transactions, f.gateway, limiter, nil, zerolog.Nop())

	sup := New(f.strategies, transactions, f.positions, strategy.Deps{}, nil, zerolog.Nop(), time.Second)
	for i := 0; i < 3; i++ {
		_, err := exec.ExecuteBuy(ctx, executor.TradeRequest{
			WalletID:     "wallet-1",
			TokenAddress: testMint,
			Amount:       50,
		})
		require.NoError(t, err)
	}

	m, err := sup.Metrics(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, m.TotalTrades)
	assert.Equal(t, 3, m.SuccessfulTrades)
	assert.Equal(t, 0, m.FailedTrades)
	assert.InDelta(t, 150.0, m.TotalVolume, 1e-9)
	assert.Equal(t, 100.0, m.WinRate)
}

func TestStartIgnoresStaleActiveFlag(t *testing.T) {
	f := newFixture(t)
	f.addWallet(t, "wallet-1")
	pos, err := f.manager.Open(context.Background(), position.OpenInput{
		WalletID: "wallet-1", TokenAddress: testMint, Quantity: 100, Price: 1,
	})
	require.NoError(t, err)
	id := f.addStrategy(t, trailingConfig(pos.ID))

	// A crashed process can leave the persisted flag set with no
	// runtime instance behind it. Only the registry gates Start.
	require.NoError(t, f.strategies.SetActive(context.Background(), id, true))

	require.NoError(t, f.sup.Start(context.Background(), id))
	assert.True(t, f.sup.IsRunning(id))
}
