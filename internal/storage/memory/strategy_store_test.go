package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage"
)

func sampleStrategy(id, userID string, active bool) *domain.Strategy {
	return &domain.Strategy{
		ID:       id,
		UserID:   userID,
		Name:     "dca " + id,
		IsActive: active,
		Config: domain.StrategyConfig{
			Type: domain.StrategyTypeDCA,
			DCA: &domain.DCAConfig{
				WalletID:      "wallet-1",
				TokenAddress:  "token-1",
				BuyAmount:     10,
				IntervalHours: 1,
				TotalBuys:     5,
			},
		},
	}
}

func TestStrategyInsertAndGet(t *testing.T) {
	store := NewStrategyStore()
	ctx := context.Background()

	s := sampleStrategy("strat-1", "user-1", false)
	require.NoError(t, store.Insert(ctx, s))
	assert.ErrorIs(t, store.Insert(ctx, s), storage.ErrDuplicateKey)

	got, err := store.GetByID(ctx, "strat-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyTypeDCA, got.Config.Type)
	require.NotNil(t, got.Config.DCA)
	assert.Equal(t, 5, got.Config.DCA.TotalBuys)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStrategyInsertRejectsInvalid(t *testing.T) {
	store := NewStrategyStore()
	assert.ErrorIs(t, store.Insert(context.Background(), nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Insert(context.Background(), &domain.Strategy{}), storage.ErrInvalidInput)
}

func TestStrategySetActiveAndGetActive(t *testing.T) {
	store := NewStrategyStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, sampleStrategy("strat-1", "user-1", false)))
	require.NoError(t, store.Insert(ctx, sampleStrategy("strat-2", "user-1", false)))

	active, err := store.GetActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	require.NoError(t, store.SetActive(ctx, "strat-1", true))
	active, err = store.GetActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "strat-1", active[0].ID)

	require.NoError(t, store.SetActive(ctx, "strat-1", false))
	active, err = store.GetActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	assert.ErrorIs(t, store.SetActive(ctx, "missing", true), storage.ErrNotFound)
}

func TestStrategyGetByUserID(t *testing.T) {
	store := NewStrategyStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, sampleStrategy("strat-1", "user-1", false)))
	require.NoError(t, store.Insert(ctx, sampleStrategy("strat-2", "user-2", false)))

	mine, err := store.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "strat-1", mine[0].ID)
}
