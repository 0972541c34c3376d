package executor

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/gateway/stub"
	"solana-trade-engine/internal/storage/memory"
)

func newTestExecutor(t *testing.T, maxTrades int) (*OrderExecutor, *stub.Gateway, *memory.TransactionStore, *memory.WalletStore) {
	t.Helper()
	wallets := memory.NewWalletStore()
	transactions := memory.NewTransactionStore(wallets)
	gw := stub.NewGateway()
	limiter := NewRateLimiter(maxTrades, time.Minute)
	e := NewOrderExecutor(wallets, transactions, gw, limiter, nil, zerolog.Nop())
	return e, gw, transactions, wallets
}

// Well-formed base58 addresses; wallet inserts and trade requests are
// validated.
const (
	testWalletAddr = "FVen3X669xLzsi6N2V91DoiyzHzg1uAgqiT8jZ9nS96Z"
	testMint       = "5F4MKLxqfMksi9dH7FwQWmap5E3efT4wNBb66qwTgCBr"
)

func seedWallet(t *testing.T, wallets *memory.WalletStore, w domain.Wallet) {
	t.Helper()
	if w.Address == "" {
		w.Address = testWalletAddr
	}
	require.NoError(t, wallets.Insert(context.Background(), &w))
}

func TestExecuteBuyPersistsConfirmedTransaction(t *testing.T) {
	e, gw, transactions, wallets := newTestExecutor(t, 10)
	seedWallet(t, wallets, domain.Wallet{
		ID: "wallet-1", UserID: "user-1", ExecutionAccountID: "exec-1", Balance: 1000,
	})
	gw.SetPrice(testMint, 2)

	res, err := e.ExecuteBuy(context.Background(), TradeRequest{
		WalletID:     "wallet-1",
		TokenAddress: testMint,
		Amount:       100,
		Slippage:     1,
		StrategyID:   "strat-1",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.Signature)
	assert.Equal(t, 2.0, res.Price)
	assert.Equal(t, 50.0, res.Quantity)

	txs, err := transactions.GetByWalletID(context.Background(), "wallet-1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TransactionTypeBuy, txs[0].Type)
	assert.Equal(t, domain.TransactionStatusConfirmed, txs[0].Status)
	assert.Equal(t, res.Signature, txs[0].Signature)
	assert.Equal(t, "strat-1", txs[0].StrategyID)
}

func TestExecuteBuyRejectsUnknownWallet(t *testing.T) {
	e, _, transactions, _ := newTestExecutor(t, 10)

	_, err := e.ExecuteBuy(context.Background(), TradeRequest{
		WalletID:     "missing",
		TokenAddress: testMint,
		Amount:       100,
	})
	assert.ErrorIs(t, err, ErrWalletNotFound)

	txs, err := transactions.GetByWalletID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, txs, "no transaction may be written for a rejected request")
}

func TestExecuteBuyRejectsUnconfiguredWallet(t *testing.T) {
	e, _, _, wallets := newTestExecutor(t, 10)
	seedWallet(t, wallets, domain.Wallet{ID: "wallet-1", UserID: "user-1", Balance: 1000})

	_, err := e.ExecuteBuy(context.Background(), TradeRequest{
		WalletID:     "wallet-1",
		TokenAddress: testMint,
		Amount:       100,
	})
	assert.ErrorIs(t, err, ErrWalletNotConfigured)
}

func TestExecuteBuyRejectsInsufficientBalance(t *testing.T) {
	e, gw, _, wallets := newTestExecutor(t, 10)
	seedWallet(t, wallets, domain.Wallet{
		ID: "wallet-1", UserID: "user-1", ExecutionAccountID: "exec-1", Balance: 50,
	})

	_, err := e.ExecuteBuy(context.Background(), TradeRequest{
		WalletID:     "wallet-1",
		TokenAddress: testMint,
		Amount:       100,
	})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Empty(t, gw.Buys(), "gateway must not be called")
}

func TestExecuteSellSkipsBalanceCheck(t *testing.T) {
	e, _, _, wallets := newTestExecutor(t, 10)
	seedWallet(t, wallets, domain.Wallet{
		ID: "wallet-1", UserID: "user-1", ExecutionAccountID: "exec-1", Balance: 0,
	})

	// Selling token quantity is not constrained by the SOL balance.
	_, err := e.ExecuteSell(context.Background(), TradeRequest{
		WalletID:     "wallet-1",
		TokenAddress: testMint,
		Amount:       500,
	})
	require.NoError(t, err)
}

func TestRateLimitAcrossBuysAndSells(t *testing.T) {
	e, gw, _, wallets := newTestExecutor(t, 10)
	seedWallet(t, wallets, domain.Wallet{
		ID: "wallet-1", UserID: "user-1", ExecutionAccountID: "exec-1", Balance: 100_000,
	})

	for i := 0; i < 5; i++ {
		_, err := e.ExecuteBuy(context.Background(), TradeRequest{
			WalletID: "wallet-1", TokenAddress: testMint, Amount: 10,
		})
		require.NoError(t, err)
		_, err = e.ExecuteSell(context.Background(), TradeRequest{
			WalletID: "wallet-1", TokenAddress: testMint, Amount: 10,
		})
		require.NoError(t, err)
	}

	_, err := e.ExecuteBuy(context.Background(), TradeRequest{
		WalletID: "wallet-1", TokenAddress: testMint, Amount: 10,
	})
	assert.ErrorIs(t, err, ErrRateLimitExceeded)
	assert.Len(t, gw.Buys(), 5)
	assert.Len(t, gw.Sells(), 5)

	// Another wallet is unaffected.
	seedWallet(t, wallets, domain.Wallet{
		ID: "wallet-2", UserID: "user-1", ExecutionAccountID: "exec-2", Balance: 100_000,
	})
	_, err = e.ExecuteBuy(context.Background(), TradeRequest{
		WalletID: "wallet-2", TokenAddress: testMint, Amount: 10,
	})
	require.NoError(t, err)
}

func TestFailedGatewayTradeDoesNotConsumeRateBudget(t *testing.T) {
	e, gw, transactions, wallets := newTestExecutor(t, 1)
	seedWallet(t, wallets, domain.Wallet{
		ID: "wallet-1", UserID: "user-1", ExecutionAccountID: "exec-1", Balance: 1000,
	})

	gw.SetErr(assert.AnError)
	_, err := e.ExecuteBuy(context.Background(), TradeRequest{
		WalletID: "wallet-1", TokenAddress: testMint, Amount: 10,
	})
	require.Error(t, err)

	txs, err := transactions.GetByWalletID(context.Background(), "wallet-1")
	require.NoError(t, err)
	assert.Empty(t, txs)

	// The failed attempt did not count against the single-trade budget.
	gw.SetErr(nil)
	_, err = e.ExecuteBuy(context.Background(), TradeRequest{
		WalletID: "wallet-1", TokenAddress: testMint, Amount: 10,
	})
	require.NoError(t, err)
}

func TestExecuteBuyRejectsMalformedTokenAddress(t *testing.T) {
	e, gw, transactions, wallets := newTestExecutor(t, 1)
	seedWallet(t, wallets, domain.Wallet{
		ID: "wallet-1", UserID: "user-1", ExecutionAccountID: "exec-1", Balance: 1000,
	})

	for _, addr := range []string{"", "not-base58-0OIl", "abc"} {
		_, err := e.ExecuteBuy(context.Background(), TradeRequest{
			WalletID: "wallet-1", TokenAddress: addr, Amount: 10,
		})
		assert.ErrorIs(t, err, ErrInvalidTokenAddress, "addr %q", addr)
	}
	assert.Empty(t, gw.Buys(), "gateway must not be called")

	txs, err := transactions.GetByWalletID(context.Background(), "wallet-1")
	require.NoError(t, err)
	assert.Empty(t, txs)

	// Malformed requests did not consume the single-trade budget.
	_, err = e.ExecuteBuy(context.Background(), TradeRequest{
		WalletID: "wallet-1", TokenAddress: testMint, Amount: 10,
	})
	require.NoError(t, err)
}
