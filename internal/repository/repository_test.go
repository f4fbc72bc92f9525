package repository

import (
	"context"
	"testing"
	"time"

	"github.com/Dhoini/billing-backoffice/internal/domain"
	"github.com/Dhoini/billing-backoffice/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryCustomerRepository(t *testing.T) {
	repo := NewInMemoryCustomerRepository(logger.NewNop())
	ctx := context.Background()

	created, err := repo.Create(ctx, domain.Customer{ID: "c1", Name: "Acme", PlanTier: domain.PlanTierFreeTrial})
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusActive, created.AccountStatus)

	_, err = repo.Create(ctx, domain.Customer{ID: "c1"})
	assert.ErrorIs(t, err, ErrDuplicate)

	created.AccountStatus = domain.AccountStatusSuspended
	require.NoError(t, repo.Update(ctx, created))

	got, err := repo.GetByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusSuspended, got.AccountStatus)

	assert.ErrorIs(t, repo.Update(ctx, domain.Customer{ID: "nope"}), ErrNotFound)
	_, err = repo.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemorySnapshotRepository_SetPeriodEnd(t *testing.T) {
	repo := NewInMemorySnapshotRepository(logger.NewNop())
	ctx := context.Background()

	_, err := repo.GetByCustomerID(ctx, "c1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Upsert(ctx, domain.BillingSnapshot{CustomerID: "c1", SubscriptionStatus: domain.SubscriptionStatusActive}))

	end := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SetPeriodEnd(ctx, "c1", &end))

	got, err := repo.GetByCustomerID(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got.CurrentPeriodEnd)
	assert.True(t, end.Equal(*got.CurrentPeriodEnd))

	require.NoError(t, repo.SetPeriodEnd(ctx, "c1", nil))
	got, err = repo.GetByCustomerID(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, got.CurrentPeriodEnd)

	assert.ErrorIs(t, repo.SetPeriodEnd(ctx, "missing", nil), ErrNotFound)
}

func TestInMemoryRedemptionRepository(t *testing.T) {
	repo := NewInMemoryRedemptionRepository(logger.NewNop())
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, domain.PromoCodeRedemption{ID: "r1", PromoCodeID: "p1", CustomerID: "c1", Status: domain.RedemptionStatusActive, AppliedAt: base}))
	require.NoError(t, repo.Create(ctx, domain.PromoCodeRedemption{ID: "r2", PromoCodeID: "p1", CustomerID: "c1", Status: domain.RedemptionStatusActive, AppliedAt: base.Add(time.Hour)}))
	require.NoError(t, repo.Create(ctx, domain.PromoCodeRedemption{ID: "r3", PromoCodeID: "p1", CustomerID: "c2", Status: domain.RedemptionStatusActive, AppliedAt: base}))
	assert.ErrorIs(t, repo.Create(ctx, domain.PromoCodeRedemption{ID: "r1"}), ErrDuplicate)

	active, err := repo.FindActive(ctx, "p1", "c1")
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "r1", active[0].ID)

	require.NoError(t, repo.Reverse(ctx, "r1", base.Add(2*time.Hour)))
	active, err = repo.FindActive(ctx, "p1", "c1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "r2", active[0].ID)

	all, err := repo.ListByCustomer(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, domain.RedemptionStatusReversed, all[0].Status)
	require.NotNil(t, all[0].ReversedAt)

	assert.ErrorIs(t, repo.Reverse(ctx, "missing", base), ErrNotFound)
}

func TestInMemoryAuditRepository_ListByCustomer(t *testing.T) {
	repo := NewInMemoryAuditRepository(logger.NewNop())
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Insert(ctx, domain.AuditEntry{
			ID:               string(rune('a' + i)),
			TargetCustomerID: "c1",
			Action:           domain.AuditActionCompMonth,
			CreatedAt:        base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, repo.Insert(ctx, domain.AuditEntry{ID: "z", TargetCustomerID: "c2", CreatedAt: base}))

	got, err := repo.ListByCustomer(ctx, "c1", base.Add(time.Hour), 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "e", got[0].ID)
	assert.Equal(t, "d", got[1].ID)
	assert.Equal(t, "c", got[2].ID)

	assert.Len(t, repo.All(), 6)
}

func TestInMemoryEventLogRepositories(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	lockboxes := NewInMemoryLockboxRepository(logger.NewNop())
	lockboxes.AddLockbox("c1", "lb2")
	lockboxes.AddLockbox("c1", "lb1")
	lockboxes.AddLockbox("c2", "lb3")
	lockboxes.AddAction(domain.LockboxAction{ID: "a1", LockboxID: "lb1", CreatedAt: base})
	lockboxes.AddAction(domain.LockboxAction{ID: "a2", LockboxID: "lb2", CreatedAt: base.Add(time.Hour)})
	lockboxes.AddAction(domain.LockboxAction{ID: "a3", LockboxID: "lb3", CreatedAt: base.Add(time.Hour)})

	ids, err := lockboxes.ListIDsByCustomer(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"lb1", "lb2"}, ids)

	actions, err := lockboxes.ListActions(ctx, ids, base, 10)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, "a2", actions[0].ID)

	emails := NewInMemoryEmailLogRepository(logger.NewNop())
	emails.Add(domain.EmailLog{ID: "e1", CustomerID: "c1", SentAt: base.Add(-time.Hour)})
	emails.Add(domain.EmailLog{ID: "e2", CustomerID: "c1", SentAt: base})

	logs, err := emails.ListByCustomer(ctx, "c1", base, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "e2", logs[0].ID)
}
