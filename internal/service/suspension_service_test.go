package service

import (
	"context"
	"testing"

	"github.com/Dhoini/billing-backoffice/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeSuspensionReason(t *testing.T) {
	assert.Equal(t, "Chargeback", ComposeSuspensionReason(ReasonChargeback, ""))
	assert.Equal(t, "Non-payment: third failed invoice", ComposeSuspensionReason(ReasonNonPayment, "  third failed invoice "))
	assert.Equal(t, "Other", ComposeSuspensionReason(ReasonOther, "   "))
}

func TestSuspension_SuspendAndReEnable(t *testing.T) {
	f := newFixture(t)
	f.addCustomer(t, domain.Customer{ID: "c1", PlanTier: domain.PlanTierPro})
	svc := NewSuspensionService(f.store, f.audit, f.log, f.opts()...)
	ctx := context.Background()

	suspended, err := svc.Suspend(ctx, SuspendInput{
		CustomerID: "c1", ReasonCode: ReasonFraud, Notes: "stolen card", Actor: "ops@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusSuspended, suspended.AccountStatus)
	require.NotNil(t, suspended.SuspendedReason)
	assert.Equal(t, "Fraud: stolen card", *suspended.SuspendedReason)
	assert.Equal(t, t0, *suspended.SuspendedAt)

	_, err = svc.Suspend(ctx, SuspendInput{CustomerID: "c1", ReasonCode: ReasonAbuse, Actor: "ops@example.com"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	enabled, err := svc.ReEnable(ctx, ReEnableInput{CustomerID: "c1", Reason: "chargeback resolved by bank", Actor: "ops@example.com"})
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusActive, enabled.AccountStatus)
	// история приостановки сохраняется
	assert.Equal(t, "Fraud: stolen card", *enabled.SuspendedReason)

	_, err = svc.ReEnable(ctx, ReEnableInput{CustomerID: "c1", Reason: "chargeback resolved by bank", Actor: "ops@example.com"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	entries := f.auditEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, domain.AuditActionCustomerSuspended, entries[0].Action)
	assert.Equal(t, domain.AuditActionCustomerReEnabled, entries[1].Action)
}

func TestSuspension_Validation(t *testing.T) {
	f := newFixture(t)
	f.addCustomer(t, domain.Customer{ID: "c1"})
	svc := NewSuspensionService(f.store, f.audit, f.log, f.opts()...)
	ctx := context.Background()

	_, err := svc.Suspend(ctx, SuspendInput{CustomerID: "c1", ReasonCode: "angry", Actor: "ops@example.com"})
	var verrs domain.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, []string{"reason_code"}, verrs.Fields())

	_, err = svc.Suspend(ctx, SuspendInput{CustomerID: "missing", ReasonCode: ReasonFraud, Actor: "ops@example.com"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Suspend(ctx, SuspendInput{CustomerID: "c1", ReasonCode: ReasonFraud, Actor: "ops@example.com"})
	require.NoError(t, err)

	// причина короче 10 символов после обрезки пробелов
	_, err = svc.ReEnable(ctx, ReEnableInput{CustomerID: "c1", Reason: "   ok now     ", Actor: "ops@example.com"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, domain.AccountStatusSuspended, f.customer(t, "c1").AccountStatus)
	assert.Len(t, f.auditEntries(), 1)
}
