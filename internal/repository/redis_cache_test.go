package repository

import (
	"context"
	"testing"
	"time"

	"github.com/Dhoini/billing-backoffice/internal/domain"
	"github.com/Dhoini/billing-backoffice/pkg/logger"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T) (*miniredis.Miniredis, *RedisCacheRepository) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisCacheFromClient(client, time.Minute, logger.NewNop())
}

func TestRedisCacheRepository_RoundTrip(t *testing.T) {
	mr, cache := setupCache(t)
	ctx := context.Background()

	got, err := cache.GetCachedSnapshot(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, got)

	end := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, cache.CacheSnapshot(ctx, domain.BillingSnapshot{
		CustomerID:           "c1",
		SubscriptionStatus:   domain.SubscriptionStatusActive,
		CurrentPeriodEnd:     &end,
		StripeSubscriptionID: "sub_1",
	}))
	assert.True(t, mr.Exists("billing_snapshot:c1"))

	got, err = cache.GetCachedSnapshot(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "sub_1", got.StripeSubscriptionID)
	assert.True(t, end.Equal(*got.CurrentPeriodEnd))

	mr.FastForward(2 * time.Minute)
	got, err = cache.GetCachedSnapshot(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCachedSnapshotRepository_InvalidatesOnWrite(t *testing.T) {
	mr, cache := setupCache(t)
	ctx := context.Background()

	store := NewInMemorySnapshotRepository(logger.NewNop())
	require.NoError(t, store.Upsert(ctx, domain.BillingSnapshot{CustomerID: "c1", SubscriptionStatus: domain.SubscriptionStatusActive}))

	repo := NewCachedSnapshotRepository(store, cache, logger.NewNop())

	_, err := repo.GetByCustomerID(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("billing_snapshot:c1"))

	end := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SetPeriodEnd(ctx, "c1", &end))
	assert.False(t, mr.Exists("billing_snapshot:c1"))

	got, err := repo.GetByCustomerID(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got.CurrentPeriodEnd)
	assert.True(t, end.Equal(*got.CurrentPeriodEnd))
}

func TestCachedSnapshotRepository_FallsBackWhenRedisDown(t *testing.T) {
	mr, cache := setupCache(t)
	ctx := context.Background()

	store := NewInMemorySnapshotRepository(logger.NewNop())
	require.NoError(t, store.Upsert(ctx, domain.BillingSnapshot{CustomerID: "c1", SubscriptionStatus: domain.SubscriptionStatusPastDue}))
	repo := NewCachedSnapshotRepository(store, cache, logger.NewNop())

	mr.Close()

	got, err := repo.GetByCustomerID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusPastDue, got.SubscriptionStatus)

	_, err = repo.GetByCustomerID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
