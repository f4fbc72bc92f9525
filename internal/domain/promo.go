package domain

import (
	"time"
)

// PromoType тип промокода
type PromoType string

const (
	PromoTypeExtendedTrial        PromoType = "extended_trial"
	PromoTypeSubscriptionDiscount PromoType = "subscription_discount"
)

// RedemptionStatus статус погашения промокода
type RedemptionStatus string

const (
	RedemptionStatusActive   RedemptionStatus = "active"
	RedemptionStatusReversed RedemptionStatus = "reversed"
)

// AppliedToTrialExtension метка погашения, продлившего триал
const AppliedToTrialExtension = "trial_extension"

// PromoCode представляет промокод
type PromoCode struct {
	ID                 string     `json:"id"`
	Code               string     `json:"code"`
	Type               PromoType  `json:"type"`
	FreeDays           int        `json:"free_days,omitempty"`
	DiscountPercent    int        `json:"discount_percent,omitempty"`
	DurationMonths     int        `json:"duration_months,omitempty"`
	MaxRedemptions     *int       `json:"max_redemptions,omitempty"` // nil = без ограничений
	CurrentRedemptions int        `json:"current_redemptions"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	NewCustomersOnly   bool       `json:"new_customers_only"`
	OnePerCustomer     bool       `json:"one_per_customer"`
	IsActive           bool       `json:"is_active"`
	CreatedBy          string     `json:"created_by,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// IsExpired проверяет срок действия на момент now
func (p PromoCode) IsExpired(now time.Time) bool {
	return p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}

// LimitReached проверяет, исчерпан ли лимит погашений
func (p PromoCode) LimitReached() bool {
	return p.MaxRedemptions != nil && p.CurrentRedemptions >= *p.MaxRedemptions
}

// PromoCodeRedemption запись о применении промокода к клиенту
type PromoCodeRedemption struct {
	ID          string           `json:"id"`
	PromoCodeID string           `json:"promo_code_id"`
	CustomerID  string           `json:"customer_id"`
	Status      RedemptionStatus `json:"status"`
	AppliedTo   *string          `json:"applied_to,omitempty"`
	AppliedBy   string           `json:"applied_by"`
	AppliedAt   time.Time        `json:"applied_at"`
	ReversedAt  *time.Time       `json:"reversed_at,omitempty"`
}
