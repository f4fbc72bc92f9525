package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/Dhoini/billing-backoffice/internal/domain"
	"github.com/Dhoini/billing-backoffice/internal/repository"
	"github.com/Dhoini/billing-backoffice/pkg/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDuplicate(t *testing.T) {
	assert.True(t, isDuplicate(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isDuplicate(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isDuplicate(errors.New("boom")))
}

func TestNullString(t *testing.T) {
	assert.Nil(t, nullString(""))
	assert.Equal(t, "cus_1", *nullString("cus_1"))
}

// newTestPool подключается к PG_URL; без него тест пропускается
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("PG_URL")
	if dsn == "" {
		t.Skip("PG_URL not set")
	}

	ctx := context.Background()
	log := logger.NewNop()
	pool, err := NewConnection(ctx, dsn, log)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, Migrate(ctx, pool, log))
	return pool
}

func TestPostgres_PromoLifecycle_Integration(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	repos := NewRepositories(pool, NewEventLogDB(pool), logger.NewNop())

	customerID := "it-" + uuid.NewString()
	_, err := repos.Customers.Create(ctx, domain.Customer{ID: customerID, Name: "Acme", PlanTier: domain.PlanTierFreeTrial})
	require.NoError(t, err)

	promo, err := repos.Promos.Create(ctx, domain.PromoCode{
		ID:             uuid.NewString(),
		Code:           "IT" + uuid.NewString()[:8],
		Type:           domain.PromoTypeExtendedTrial,
		FreeDays:       7,
		MaxRedemptions: func() *int { v := 1; return &v }(),
		IsActive:       true,
	})
	require.NoError(t, err)

	_, err = repos.Promos.Create(ctx, promo)
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	err = repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := repos.Promos.IncrementRedemptions(ctx, promo.ID); err != nil {
			return err
		}
		return repos.Redemptions.Create(ctx, domain.PromoCodeRedemption{
			ID: uuid.NewString(), PromoCodeID: promo.ID, CustomerID: customerID,
			Status: domain.RedemptionStatusActive, AppliedBy: "it@example.com", AppliedAt: time.Now(),
		})
	})
	require.NoError(t, err)

	assert.ErrorIs(t, repos.Promos.IncrementRedemptions(ctx, promo.ID), repository.ErrLimitReached)

	// откат транзакции возвращает счетчик
	rollback := errors.New("rollback")
	err = repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, repos.Promos.DecrementRedemptions(ctx, promo.ID))
		return rollback
	})
	assert.ErrorIs(t, err, rollback)

	stored, err := repos.Promos.GetByCode(ctx, promo.Code)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.CurrentRedemptions)

	active, err := repos.Redemptions.FindActive(ctx, promo.ID, customerID)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	_, err = repos.Customers.GetByID(ctx, "missing-"+uuid.NewString())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
