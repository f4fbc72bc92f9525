package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Dhoini/billing-backoffice/internal/domain"
	"github.com/Dhoini/billing-backoffice/internal/lock"
	"github.com/Dhoini/billing-backoffice/internal/metrics"
	"github.com/Dhoini/billing-backoffice/internal/repository"
	"github.com/Dhoini/billing-backoffice/pkg/logger"
	"github.com/google/uuid"
)

var promoCodePattern = regexp.MustCompile(`^[A-Z0-9_-]{3,32}$`)

// ApplyPromoInput запрос на применение промокода к клиенту
type ApplyPromoInput struct {
	CustomerID string `json:"customer_id" validate:"required"`
	Code       string `json:"code" validate:"required,max=32"`
	Force      bool   `json:"force"`
	Reason     string `json:"reason" validate:"required,min=3"`
	Actor      string `json:"actor" validate:"required"`
}

// ApplyPromoResult результат применения
type ApplyPromoResult struct {
	Type         domain.PromoType `json:"type"`
	TrialEndsAt  *time.Time       `json:"trial_ends_at,omitempty"`
	RedemptionID string           `json:"redemption_id"`
	Overridden   []string         `json:"overridden,omitempty"`
}

// CreatePromoInput запрос на создание промокода
type CreatePromoInput struct {
	Code             string           `json:"code" validate:"required"`
	Type             domain.PromoType `json:"type" validate:"required,oneof=extended_trial subscription_discount"`
	FreeDays         int              `json:"free_days"`
	DiscountPercent  int              `json:"discount_percent"`
	DurationMonths   int              `json:"duration_months"`
	MaxRedemptions   *int             `json:"max_redemptions" validate:"omitempty,min=1"`
	ExpiresAt        *time.Time       `json:"expires_at"`
	NewCustomersOnly bool             `json:"new_customers_only"`
	OnePerCustomer   bool             `json:"one_per_customer"`
	Reason           string           `json:"reason" validate:"required,min=3"`
	Actor            string           `json:"actor" validate:"required"`
}

// EditPromoInput изменение промокода. Тип и размер скидки неизменны.
type EditPromoInput struct {
	Code                string     `json:"code" validate:"required"`
	MaxRedemptions      *int       `json:"max_redemptions" validate:"omitempty,min=1"`
	ClearMaxRedemptions bool       `json:"clear_max_redemptions"`
	ExpiresAt           *time.Time `json:"expires_at"`
	ClearExpiresAt      bool       `json:"clear_expires_at"`
	NewCustomersOnly    *bool      `json:"new_customers_only"`
	OnePerCustomer      *bool      `json:"one_per_customer"`
	Reason              string     `json:"reason" validate:"required,min=3"`
	Actor               string     `json:"actor" validate:"required"`
}

// DeactivatePromoInput запрос на отключение промокода
type DeactivatePromoInput struct {
	Code   string `json:"code" validate:"required"`
	Reason string `json:"reason" validate:"required,min=3"`
	Actor  string `json:"actor" validate:"required"`
}

// PromoService применение и управление промокодами
type PromoService interface {
	Apply(ctx context.Context, input ApplyPromoInput) (ApplyPromoResult, error)
	Create(ctx context.Context, input CreatePromoInput) (domain.PromoCode, error)
	Edit(ctx context.Context, input EditPromoInput) (domain.PromoCode, error)
	Deactivate(ctx context.Context, input DeactivatePromoInput) error
	Get(ctx context.Context, code string) (domain.PromoCode, error)
}

type promoService struct {
	store   Store
	audit   AuditService
	locker  lock.Locker
	metrics metrics.BillingMetrics
	now     func() time.Time
	log     *logger.Logger
}

// NewPromoService создает сервис промокодов
func NewPromoService(store Store, audit AuditService, log *logger.Logger, opts ...Option) PromoService {
	o := buildOptions(opts)
	return &promoService{
		store:   store,
		audit:   audit,
		locker:  o.locker,
		metrics: o.metrics,
		now:     o.now,
		log:     log,
	}
}

// Apply проверяет код и правила применимости, затем продлевает триал или
// назначает отложенную скидку. Все записи выполняются в одной транзакции
// под блокировками клиента и кода.
func (s *promoService) Apply(ctx context.Context, input ApplyPromoInput) (ApplyPromoResult, error) {
	input.Code = normalizeCode(input.Code)
	input.Reason = strings.TrimSpace(input.Reason)
	if err := validate(input); err != nil {
		return ApplyPromoResult{}, err
	}

	release, err := lock.AcquireAll(ctx, s.locker, lock.CustomerKey(input.CustomerID), lock.PromoKey(input.Code))
	if err != nil {
		return ApplyPromoResult{}, err
	}
	defer release()

	var (
		result  ApplyPromoResult
		entry   domain.AuditEntry
		promoTy domain.PromoType
	)
	err = s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		promo, err := s.store.Promos.GetByCode(ctx, input.Code)
		if err != nil {
			return notFound(err, "promo code", input.Code)
		}
		promoTy = promo.Type

		now := s.now()
		switch {
		case !promo.IsActive:
			return domain.NewConflictError("promo code %s is not active", promo.Code)
		case promo.IsExpired(now):
			return domain.NewConflictError("promo code %s has expired", promo.Code)
		case promo.LimitReached():
			return domain.NewConflictError("promo code %s redemption limit reached", promo.Code)
		}

		customer, err := loadCustomer(ctx, s.store.Customers, input.CustomerID)
		if err != nil {
			return err
		}
		snapshot, err := loadSnapshot(ctx, s.store.Snapshots, customer.ID)
		if err != nil {
			return err
		}
		active, err := s.store.Redemptions.FindActive(ctx, promo.ID, customer.ID)
		if err != nil {
			return fmt.Errorf("find redemptions: %w", err)
		}

		eligibility := evaluateEligibility(eligibilityInput{
			promo:             promo,
			customer:          customer,
			snapshot:          snapshot,
			activeRedemptions: len(active),
		})
		if err := eligibility.Resolve(input.Force); err != nil {
			return err
		}
		overridden := eligibility.Overridden(input.Force)

		// Счетчик первым: при исчерпанном лимите ничего не записано
		if err := s.store.Promos.IncrementRedemptions(ctx, promo.ID); err != nil {
			if errors.Is(err, repository.ErrLimitReached) {
				return domain.NewConflictError("promo code %s redemption limit reached", promo.Code)
			}
			return fmt.Errorf("increment redemptions: %w", err)
		}

		details := map[string]any{
			"code":          promo.Code,
			"promo_code_id": promo.ID,
			"type":          string(promo.Type),
			"forced":        input.Force,
		}
		if len(overridden) > 0 {
			details["overridden"] = overridden
		}

		redemption := domain.PromoCodeRedemption{
			ID:          uuid.NewString(),
			PromoCodeID: promo.ID,
			CustomerID:  customer.ID,
			Status:      domain.RedemptionStatusActive,
			AppliedBy:   input.Actor,
			AppliedAt:   now,
		}

		switch promo.Type {
		case domain.PromoTypeExtendedTrial:
			previous := customer.EffectiveTrialEnd()
			newEnd := previous.AddDate(0, 0, promo.FreeDays)
			customer.TrialEndsAt = timePtr(newEnd)
			redemption.AppliedTo = strPtr(domain.AppliedToTrialExtension)

			details["free_days"] = promo.FreeDays
			details["previous_trial_ends_at"] = previous
			details["trial_ends_at"] = newEnd
			result.TrialEndsAt = timePtr(newEnd)

		case domain.PromoTypeSubscriptionDiscount:
			if customer.PendingPromoCodeID != nil && *customer.PendingPromoCodeID != promo.ID {
				replaced, err := s.reversePending(ctx, *customer.PendingPromoCodeID, customer.ID, now)
				if err != nil {
					return err
				}
				details["replaced_promo_code_id"] = *customer.PendingPromoCodeID
				details["reversed_redemptions"] = replaced
			}
			customer.PendingPromoCodeID = strPtr(promo.ID)

			details["discount_percent"] = promo.DiscountPercent
			details["duration_months"] = promo.DurationMonths

		default:
			return fmt.Errorf("unsupported promo type %q", promo.Type)
		}

		if err := s.store.Customers.Update(ctx, customer); err != nil {
			return fmt.Errorf("update customer: %w", err)
		}
		if err := s.store.Redemptions.Create(ctx, redemption); err != nil {
			return fmt.Errorf("create redemption: %w", err)
		}
		details["redemption_id"] = redemption.ID

		entry, err = s.audit.Record(ctx, domain.AuditEntry{
			ActorEmail:       input.Actor,
			Action:           domain.AuditActionPromoApplied,
			TargetCustomerID: customer.ID,
			Details:          details,
			Reason:           strPtr(input.Reason),
			CreatedAt:        now,
		})
		if err != nil {
			return err
		}

		result.Type = promo.Type
		result.RedemptionID = redemption.ID
		result.Overridden = overridden
		return nil
	})
	if err != nil {
		outcome := "rejected"
		if errors.Is(err, domain.ErrRequiresForce) {
			outcome = "requires_force"
		}
		if promoTy != "" {
			s.metrics.IncPromoRedemption(string(promoTy), outcome)
		}
		return ApplyPromoResult{}, err
	}

	s.metrics.IncPromoRedemption(string(result.Type), "applied")
	s.audit.Publish(ctx, entry)
	s.log.Info("Promo code %s applied to customer %s by %s (force=%v)", input.Code, input.CustomerID, input.Actor, input.Force)
	return result, nil
}

// reversePending снимает активные погашения прежней отложенной скидки и
// уменьшает ее счетчик на каждое снятое погашение
func (s *promoService) reversePending(ctx context.Context, promoID, customerID string, at time.Time) (int, error) {
	prior, err := s.store.Redemptions.FindActive(ctx, promoID, customerID)
	if err != nil {
		return 0, fmt.Errorf("find pending redemptions: %w", err)
	}

	for _, r := range prior {
		if err := s.store.Redemptions.Reverse(ctx, r.ID, at); err != nil {
			return 0, fmt.Errorf("reverse redemption %s: %w", r.ID, err)
		}
		if err := s.store.Promos.DecrementRedemptions(ctx, promoID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("decrement redemptions: %w", err)
		}
	}

	if len(prior) > 0 {
		s.log.Debug("Reversed %d pending redemption(s) of promo %s for customer %s", len(prior), promoID, customerID)
	}
	return len(prior), nil
}

func (s *promoService) Create(ctx context.Context, input CreatePromoInput) (domain.PromoCode, error) {
	input.Code = normalizeCode(input.Code)
	input.Reason = strings.TrimSpace(input.Reason)
	if err := validate(input); err != nil {
		return domain.PromoCode{}, err
	}

	now := s.now()
	var verrs domain.ValidationErrors
	if !promoCodePattern.MatchString(input.Code) {
		verrs.Add("code", "must be 3-32 characters of A-Z, 0-9, '_' or '-'")
	}
	switch input.Type {
	case domain.PromoTypeExtendedTrial:
		if input.FreeDays < 1 || input.FreeDays > 365 {
			verrs.Add("free_days", "must be between 1 and 365")
		}
		input.DiscountPercent, input.DurationMonths = 0, 0
	case domain.PromoTypeSubscriptionDiscount:
		if input.DiscountPercent < 1 || input.DiscountPercent > 100 {
			verrs.Add("discount_percent", "must be between 1 and 100")
		}
		if input.DurationMonths < 1 || input.DurationMonths > 36 {
			verrs.Add("duration_months", "must be between 1 and 36")
		}
		input.FreeDays = 0
	}
	if input.ExpiresAt != nil && !input.ExpiresAt.After(now) {
		verrs.Add("expires_at", "must be in the future")
	}
	if err := verrs.AsError(); err != nil {
		return domain.PromoCode{}, err
	}

	release, err := s.locker.Acquire(ctx, lock.PromoKey(input.Code))
	if err != nil {
		return domain.PromoCode{}, err
	}
	defer release()

	var (
		created domain.PromoCode
		entry   domain.AuditEntry
	)
	err = s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		promo, err := s.store.Promos.Create(ctx, domain.PromoCode{
			ID:               uuid.NewString(),
			Code:             input.Code,
			Type:             input.Type,
			FreeDays:         input.FreeDays,
			DiscountPercent:  input.DiscountPercent,
			DurationMonths:   input.DurationMonths,
			MaxRedemptions:   input.MaxRedemptions,
			ExpiresAt:        input.ExpiresAt,
			NewCustomersOnly: input.NewCustomersOnly,
			OnePerCustomer:   input.OnePerCustomer,
			IsActive:         true,
			CreatedBy:        input.Actor,
			CreatedAt:        now,
		})
		if err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return domain.NewConflictError("promo code %s already exists", input.Code)
			}
			return fmt.Errorf("create promo code: %w", err)
		}

		entry, err = s.audit.Record(ctx, domain.AuditEntry{
			ActorEmail: input.Actor,
			Action:     domain.AuditActionPromoCreated,
			Details: map[string]any{
				"code":          promo.Code,
				"promo_code_id": promo.ID,
				"type":          string(promo.Type),
			},
			Reason:    strPtr(input.Reason),
			CreatedAt: now,
		})
		created = promo
		return err
	})
	if err != nil {
		return domain.PromoCode{}, err
	}

	s.audit.Publish(ctx, entry)
	s.log.Info("Promo code %s (%s) created by %s", created.Code, created.Type, input.Actor)
	return created, nil
}

func (s *promoService) Edit(ctx context.Context, input EditPromoInput) (domain.PromoCode, error) {
	input.Code = normalizeCode(input.Code)
	input.Reason = strings.TrimSpace(input.Reason)
	if err := validate(input); err != nil {
		return domain.PromoCode{}, err
	}

	release, err := s.locker.Acquire(ctx, lock.PromoKey(input.Code))
	if err != nil {
		return domain.PromoCode{}, err
	}
	defer release()

	var (
		updated domain.PromoCode
		entry   domain.AuditEntry
	)
	err = s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		promo, err := s.store.Promos.GetByCode(ctx, input.Code)
		if err != nil {
			return notFound(err, "promo code", input.Code)
		}

		now := s.now()
		changes := map[string]any{}
		var verrs domain.ValidationErrors

		switch {
		case input.ClearMaxRedemptions:
			if promo.MaxRedemptions != nil {
				changes["max_redemptions"] = map[string]any{"from": *promo.MaxRedemptions, "to": nil}
				promo.MaxRedemptions = nil
			}
		case input.MaxRedemptions != nil:
			if *input.MaxRedemptions < promo.CurrentRedemptions {
				verrs.Add("max_redemptions", fmt.Sprintf("must not be below current redemptions (%d)", promo.CurrentRedemptions))
				break
			}
			if promo.MaxRedemptions == nil || *promo.MaxRedemptions != *input.MaxRedemptions {
				var from any
				if promo.MaxRedemptions != nil {
					from = *promo.MaxRedemptions
				}
				changes["max_redemptions"] = map[string]any{"from": from, "to": *input.MaxRedemptions}
				v := *input.MaxRedemptions
				promo.MaxRedemptions = &v
			}
		}

		switch {
		case input.ClearExpiresAt:
			if promo.ExpiresAt != nil {
				changes["expires_at"] = map[string]any{"from": *promo.ExpiresAt, "to": nil}
				promo.ExpiresAt = nil
			}
		case input.ExpiresAt != nil:
			if !input.ExpiresAt.After(now) {
				verrs.Add("expires_at", "must be in the future")
				break
			}
			if promo.ExpiresAt == nil || !promo.ExpiresAt.Equal(*input.ExpiresAt) {
				var from any
				if promo.ExpiresAt != nil {
					from = *promo.ExpiresAt
				}
				changes["expires_at"] = map[string]any{"from": from, "to": *input.ExpiresAt}
				promo.ExpiresAt = timePtr(*input.ExpiresAt)
			}
		}

		if input.NewCustomersOnly != nil && *input.NewCustomersOnly != promo.NewCustomersOnly {
			changes["new_customers_only"] = map[string]any{"from": promo.NewCustomersOnly, "to": *input.NewCustomersOnly}
			promo.NewCustomersOnly = *input.NewCustomersOnly
		}
		if input.OnePerCustomer != nil && *input.OnePerCustomer != promo.OnePerCustomer {
			changes["one_per_customer"] = map[string]any{"from": promo.OnePerCustomer, "to": *input.OnePerCustomer}
			promo.OnePerCustomer = *input.OnePerCustomer
		}

		if err := verrs.AsError(); err != nil {
			return err
		}
		if len(changes) == 0 {
			return domain.NewValidationError("code", "no changes requested")
		}

		if err := s.store.Promos.Update(ctx, promo); err != nil {
			return fmt.Errorf("update promo code: %w", err)
		}

		entry, err = s.audit.Record(ctx, domain.AuditEntry{
			ActorEmail: input.Actor,
			Action:     domain.AuditActionPromoUpdated,
			Details: map[string]any{
				"code":          promo.Code,
				"promo_code_id": promo.ID,
				"changes":       changes,
			},
			Reason:    strPtr(input.Reason),
			CreatedAt: now,
		})
		updated = promo
		return err
	})
	if err != nil {
		return domain.PromoCode{}, err
	}

	s.audit.Publish(ctx, entry)
	s.log.Info("Promo code %s updated by %s", updated.Code, input.Actor)
	return s.Get(ctx, updated.Code)
}

// Deactivate необратимо отключает код. Существующие погашения не трогаются.
func (s *promoService) Deactivate(ctx context.Context, input DeactivatePromoInput) error {
	input.Code = normalizeCode(input.Code)
	input.Reason = strings.TrimSpace(input.Reason)
	if err := validate(input); err != nil {
		return err
	}

	release, err := s.locker.Acquire(ctx, lock.PromoKey(input.Code))
	if err != nil {
		return err
	}
	defer release()

	var entry domain.AuditEntry
	err = s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		promo, err := s.store.Promos.GetByCode(ctx, input.Code)
		if err != nil {
			return notFound(err, "promo code", input.Code)
		}
		if !promo.IsActive {
			return domain.NewConflictError("promo code %s is already inactive", promo.Code)
		}

		promo.IsActive = false
		if err := s.store.Promos.Update(ctx, promo); err != nil {
			return fmt.Errorf("deactivate promo code: %w", err)
		}

		entry, err = s.audit.Record(ctx, domain.AuditEntry{
			ActorEmail: input.Actor,
			Action:     domain.AuditActionPromoDeactivated,
			Details: map[string]any{
				"code":                promo.Code,
				"promo_code_id":       promo.ID,
				"current_redemptions": promo.CurrentRedemptions,
			},
			Reason:    strPtr(input.Reason),
			CreatedAt: s.now(),
		})
		return err
	})
	if err != nil {
		return err
	}

	s.audit.Publish(ctx, entry)
	s.log.Info("Promo code %s deactivated by %s", input.Code, input.Actor)
	return nil
}

func (s *promoService) Get(ctx context.Context, code string) (domain.PromoCode, error) {
	code = normalizeCode(code)
	if code == "" {
		return domain.PromoCode{}, domain.NewValidationError("code", "is required")
	}

	promo, err := s.store.Promos.GetByCode(ctx, code)
	if err != nil {
		return domain.PromoCode{}, notFound(err, "promo code", code)
	}
	return promo, nil
}
