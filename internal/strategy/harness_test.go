package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/executor"
	gwstub "solana-trade-engine/internal/gateway/stub"
	feedstub "solana-trade-engine/internal/marketfeed/stub"
	"solana-trade-engine/internal/position"
	"solana-trade-engine/internal/pricetracker"
	"solana-trade-engine/internal/storage/memory"
)

// harness wires a full in-memory trading core around the runner under
// test.
type harness struct {
	deps      Deps
	gateway   *gwstub.Gateway
	feed      *feedstub.Feed
	wallets   *memory.WalletStore
	positions *memory.PositionStore
	records   *memory.ExecutionRecordStore
	manager   *position.Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	wallets := memory.NewWalletStore()
	positions := memory.NewPositionStore(wallets)
	transactions := memory.NewTransactionStore(wallets)
	records := memory.NewExecutionRecordStore()
	gw := gwstub.NewGateway()
	feed := feedstub.NewFeed()
	log := zerolog.Nop()

	limiter := executor.NewRateLimiter(executor.DefaultMaxTradesPerWindow, executor.DefaultRateWindow)
	exec := executor.NewOrderExecutor(wallets, transactions, gw, limiter, nil, log)

	manager := position.NewManager(positions, feed, nil, nil, log, position.Config{
		PriceCacheTTL:   time.Millisecond,
		RefreshInterval: time.Hour, // keep the refresh loop quiet in tests
	})
	t.Cleanup(manager.Shutdown)

	prices := pricetracker.New(feed, nil, log, 5*time.Millisecond)
	t.Cleanup(prices.Shutdown)

	return &harness{
		deps: Deps{
			Executor:  exec,
			Positions: manager,
			Prices:    prices,
			Feed:      feed,
			Records:   records,
			Log:       log,
			Intervals: Intervals{
				GridPoll:     5 * time.Millisecond,
				GridTimeout:  time.Hour,
				TrailTimeout: time.Hour,
			},
		},
		gateway:   gw,
		feed:      feed,
		wallets:   wallets,
		positions: positions,
		records:   records,
		manager:   manager,
	}
}

// Well-formed base58 addresses: seeded wallets must be on-curve and
// trade requests reaching the executor must carry a valid token mint.
const (
	testWalletAddr = "FVen3X669xLzsi6N2V91DoiyzHzg1uAgqiT8jZ9nS96Z"
	testMint       = "5F4MKLxqfMksi9dH7FwQWmap5E3efT4wNBb66qwTgCBr"
)

// addWallet seeds a funded wallet the gateway will accept.
func (h *harness) addWallet(t *testing.T, id string, balance float64) {
	t.Helper()
	err := h.wallets.Insert(context.Background(), &domain.Wallet{
		ID:                 id,
		UserID:             "user-1",
		Address:            testWalletAddr,
		ExecutionAccountID: "exec-" + id,
		Balance:            balance,
	})
	require.NoError(t, err)
}

// openPosition seeds an open position through the manager.
func (h *harness) openPosition(t *testing.T, walletID, token string, qty, entry float64) *domain.Position {
	t.Helper()
	p, err := h.manager.Open(context.Background(), position.OpenInput{
		WalletID:     walletID,
		TokenAddress: token,
		Quantity:     qty,
		Price:        entry,
	})
	require.NoError(t, err)
	return p
}

// runAsync starts the runner and returns a done channel carrying its
// return value.
func runAsync(ctx context.Context, r Runner, strategyID string) <-chan error {
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, strategyID) }()
	return done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not finish in time")
		return nil
	}
}
