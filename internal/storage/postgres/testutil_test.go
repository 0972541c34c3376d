package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage/migrations"
	pgstore "solana-trade-engine/internal/storage/postgres"
)

// setupTestDB starts a PostgreSQL container, applies the embedded
// migrations and returns a connected pool. Cleanup runs via t.Cleanup.
func setupTestDB(t *testing.T) *pgstore.Pool {
	t.Helper()

	ctx := context.Background()

	container, err := pgcontainer.Run(ctx, "postgres:15-alpine",
		pgcontainer.WithDatabase("testdb"),
		pgcontainer.WithUsername("test"),
		pgcontainer.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := pgstore.NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")
	t.Cleanup(pool.Close)

	require.NoError(t, migrations.RunPostgresMigrations(ctx, pool), "failed to apply migrations")

	return pool
}

// testWalletAddr is an on-curve base58 address; wallet inserts are
// validated.
const testWalletAddr = "FVen3X669xLzsi6N2V91DoiyzHzg1uAgqiT8jZ9nS96Z"

// seedWallet inserts a wallet so foreign keys on positions and
// transactions resolve.
func seedWallet(t *testing.T, pool *pgstore.Pool, id, userID string) {
	t.Helper()

	now := time.Now().UTC()
	wallets := pgstore.NewWalletStore(pool)
	require.NoError(t, wallets.Insert(context.Background(), &domain.Wallet{
		ID:                 id,
		UserID:             userID,
		Address:            testWalletAddr,
		ExecutionAccountID: "exec-" + id,
		Balance:            1000,
		CreatedAt:          now,
		UpdatedAt:          now,
	}))
}

func newOpenPosition(id, walletID, token string) *domain.Position {
	now := time.Now().UTC()
	return &domain.Position{
		ID:           id,
		WalletID:     walletID,
		TokenAddress: token,
		Quantity:     100,
		EntryPrice:   1,
		CurrentPrice: 1,
		Status:       domain.PositionStatusOpen,
		OpenedAt:     now,
		UpdatedAt:    now,
	}
}
