package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Dhoini/billing-backoffice/internal/domain"
	"github.com/Dhoini/billing-backoffice/internal/integration/stripe"
	"github.com/Dhoini/billing-backoffice/internal/repository"
	"github.com/Dhoini/billing-backoffice/pkg/logger"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func day(n int) time.Time { return t0.AddDate(0, 0, n) }

type fixture struct {
	store Store
	audit AuditService
	now   time.Time
	log   *logger.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewNop()
	f := &fixture{
		store: NewInMemoryStore(log),
		now:   t0,
		log:   log,
	}
	f.audit = NewAuditService(f.store.Audit, nil, log, f.opts()...)
	return f
}

func (f *fixture) opts() []Option {
	return []Option{WithClock(func() time.Time { return f.now })}
}

func (f *fixture) auditEntries() []domain.AuditEntry {
	return f.store.Audit.(*repository.InMemoryAuditRepository).All()
}

func (f *fixture) addCustomer(t *testing.T, c domain.Customer) domain.Customer {
	t.Helper()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = day(-4)
	}
	if c.PlanTier == "" {
		c.PlanTier = domain.PlanTierFreeTrial
	}
	created, err := f.store.Customers.Create(context.Background(), c)
	require.NoError(t, err)
	return created
}

func (f *fixture) addSnapshot(t *testing.T, s domain.BillingSnapshot) {
	t.Helper()
	require.NoError(t, f.store.Snapshots.Upsert(context.Background(), s))
}

func (f *fixture) addPromo(t *testing.T, p domain.PromoCode) domain.PromoCode {
	t.Helper()
	if p.ID == "" {
		p.ID = "promo-" + p.Code
	}
	p.IsActive = true
	created, err := f.store.Promos.Create(context.Background(), p)
	require.NoError(t, err)
	return created
}

func (f *fixture) customer(t *testing.T, id string) domain.Customer {
	t.Helper()
	c, err := f.store.Customers.GetByID(context.Background(), id)
	require.NoError(t, err)
	return c
}

func (f *fixture) promo(t *testing.T, code string) domain.PromoCode {
	t.Helper()
	p, err := f.store.Promos.GetByCode(context.Background(), code)
	require.NoError(t, err)
	return p
}

// fakeProvider подменяет Stripe в тестах
type fakeProvider struct {
	mu        sync.Mutex
	extendErr error
	creditErr error
	extended  []time.Time
	credits   []stripe.CreditInput
}

func (p *fakeProvider) ExtendSubscriptionPeriod(ctx context.Context, subscriptionID string, periodEnd time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.extendErr != nil {
		return p.extendErr
	}
	p.extended = append(p.extended, periodEnd)
	return nil
}

func (p *fakeProvider) ApplyCredit(ctx context.Context, input stripe.CreditInput) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.creditErr != nil {
		return "", p.creditErr
	}
	p.credits = append(p.credits, input)
	return "cbtxn_1", nil
}
