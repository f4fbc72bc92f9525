package service

import (
	"context"
	"testing"

	"github.com/Dhoini/billing-backoffice/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomerService_GetStatus(t *testing.T) {
	f := newFixture(t)
	f.addCustomer(t, domain.Customer{ID: "trial"})
	f.addCustomer(t, domain.Customer{ID: "paid", PlanTier: domain.PlanTierPro})
	f.addSnapshot(t, domain.BillingSnapshot{CustomerID: "paid", SubscriptionStatus: domain.SubscriptionStatusActive, CancelAtPeriodEnd: true})
	f.addCustomer(t, domain.Customer{ID: "gone", PlanTier: domain.PlanTierStarter})
	svc := NewCustomerService(f.store, f.log)
	ctx := context.Background()

	tests := []struct {
		id   string
		want domain.CustomerStatus
	}{
		{"trial", domain.StatusActiveTrial},
		{"paid", domain.StatusPendingCancellation},
		{"gone", domain.StatusCancelled},
	}
	for _, tt := range tests {
		view, err := svc.GetStatus(ctx, tt.id)
		require.NoError(t, err)
		assert.Equal(t, tt.want, view.Status, tt.id)
	}

	_, err := svc.GetStatus(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.Get(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
