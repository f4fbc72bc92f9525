package domain

import (
	"time"
)

// PlanTier тарифный уровень клиента
type PlanTier string

const (
	PlanTierFreeTrial  PlanTier = "free_trial"
	PlanTierStarter    PlanTier = "starter"
	PlanTierPro        PlanTier = "pro"
	PlanTierBusiness   PlanTier = "business"
	PlanTierEnterprise PlanTier = "enterprise"
)

// AccountStatus состояние доступа к аккаунту
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusSuspended AccountStatus = "suspended"
)

// DefaultTrialLength длина триала, если trial_ends_at не задан
const DefaultTrialLength = 14 * 24 * time.Hour

// Customer представляет собой модель клиента (тенанта)
type Customer struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	Email              string        `json:"email,omitempty"`
	PlanTier           PlanTier      `json:"plan_tier"`
	BillingExempt      bool          `json:"billing_exempt"`
	StripeCustomerID   string        `json:"stripe_customer_id,omitempty"` // ID клиента в Stripe
	TrialEndsAt        *time.Time    `json:"trial_ends_at,omitempty"`
	AccountStatus      AccountStatus `json:"account_status"`
	SuspendedAt        *time.Time    `json:"suspended_at,omitempty"`
	SuspendedReason    *string       `json:"suspended_reason,omitempty"`
	SuspendedBy        *string       `json:"suspended_by,omitempty"`
	ReEnabledAt        *time.Time    `json:"re_enabled_at,omitempty"`
	ReEnabledBy        *string       `json:"re_enabled_by,omitempty"`
	PendingPromoCodeID *string       `json:"pending_promo_code_id,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// IsActive сообщает, не приостановлен ли аккаунт
func (c Customer) IsActive() bool {
	return c.AccountStatus == AccountStatusActive
}

// EffectiveTrialEnd возвращает конец триала, подставляя дату регистрации + 14 дней
func (c Customer) EffectiveTrialEnd() time.Time {
	if c.TrialEndsAt != nil {
		return *c.TrialEndsAt
	}
	return c.CreatedAt.Add(DefaultTrialLength)
}
