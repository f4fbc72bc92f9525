package domain

import (
	"time"
)

// SubscriptionStatus статус подписки в зеркале Stripe
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
	SubscriptionStatusInactive SubscriptionStatus = "inactive"
)

// BillingSnapshot локальное зеркало подписки клиента у платежного провайдера
type BillingSnapshot struct {
	CustomerID           string             `json:"customer_id"`
	SubscriptionStatus   SubscriptionStatus `json:"subscription_status"`
	CancelAtPeriodEnd    bool               `json:"cancel_at_period_end"`
	CurrentPeriodEnd     *time.Time         `json:"current_period_end,omitempty"`
	StripeSubscriptionID string             `json:"stripe_subscription_id,omitempty"` // ID подписки в Stripe
	UpdatedAt            time.Time          `json:"updated_at"`
}

// HasPaidHistory сообщает, была ли у клиента когда-либо платная подписка
func (s *BillingSnapshot) HasPaidHistory() bool {
	return s != nil && s.StripeSubscriptionID != ""
}
