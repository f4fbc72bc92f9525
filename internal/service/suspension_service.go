package service

import (
	"context"
	"strings"
	"time"

	"github.com/Dhoini/billing-backoffice/internal/domain"
	"github.com/Dhoini/billing-backoffice/internal/lock"
	"github.com/Dhoini/billing-backoffice/internal/metrics"
	"github.com/Dhoini/billing-backoffice/pkg/logger"
)

// Коды причин приостановки
const (
	ReasonChargeback = "chargeback"
	ReasonFraud      = "fraud"
	ReasonAbuse      = "abuse"
	ReasonNonPayment = "non_payment"
	ReasonOther      = "other"
)

var suspensionReasonLabels = map[string]string{
	ReasonChargeback: "Chargeback",
	ReasonFraud:      "Fraud",
	ReasonAbuse:      "Abuse",
	ReasonNonPayment: "Non-payment",
	ReasonOther:      "Other",
}

// ComposeSuspensionReason собирает "label" или "label: notes"
func ComposeSuspensionReason(reasonCode, notes string) string {
	label, ok := suspensionReasonLabels[reasonCode]
	if !ok {
		label = reasonCode
	}
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return label
	}
	return label + ": " + notes
}

// SuspendInput запрос на приостановку аккаунта
type SuspendInput struct {
	CustomerID string `json:"customer_id" validate:"required"`
	ReasonCode string `json:"reason_code" validate:"required,oneof=chargeback fraud abuse non_payment other"`
	Notes      string `json:"notes" validate:"max=2000"`
	Actor      string `json:"actor" validate:"required"`
}

// ReEnableInput запрос на восстановление аккаунта
type ReEnableInput struct {
	CustomerID string `json:"customer_id" validate:"required"`
	Reason     string `json:"reason" validate:"required,min=10"`
	Actor      string `json:"actor" validate:"required"`
}

// SuspensionService переходы active -> suspended -> active
type SuspensionService interface {
	Suspend(ctx context.Context, input SuspendInput) (domain.Customer, error)
	ReEnable(ctx context.Context, input ReEnableInput) (domain.Customer, error)
}

type suspensionService struct {
	store   Store
	audit   AuditService
	locker  lock.Locker
	metrics metrics.BillingMetrics
	now     func() time.Time
	log     *logger.Logger
}

// NewSuspensionService создает сервис приостановки аккаунтов
func NewSuspensionService(store Store, audit AuditService, log *logger.Logger, opts ...Option) SuspensionService {
	o := buildOptions(opts)
	return &suspensionService{
		store:   store,
		audit:   audit,
		locker:  o.locker,
		metrics: o.metrics,
		now:     o.now,
		log:     log,
	}
}

func (s *suspensionService) Suspend(ctx context.Context, input SuspendInput) (domain.Customer, error) {
	input.Notes = strings.TrimSpace(input.Notes)
	if err := validate(input); err != nil {
		return domain.Customer{}, err
	}

	release, err := s.locker.Acquire(ctx, lock.CustomerKey(input.CustomerID))
	if err != nil {
		return domain.Customer{}, err
	}
	defer release()

	var (
		updated domain.Customer
		entry   domain.AuditEntry
	)
	err = s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		customer, err := loadCustomer(ctx, s.store.Customers, input.CustomerID)
		if err != nil {
			return err
		}
		if !customer.IsActive() {
			return domain.NewConflictError("customer is already %s", customer.AccountStatus)
		}

		now := s.now()
		reason := ComposeSuspensionReason(input.ReasonCode, input.Notes)
		customer.AccountStatus = domain.AccountStatusSuspended
		customer.SuspendedAt = timePtr(now)
		customer.SuspendedReason = strPtr(reason)
		customer.SuspendedBy = strPtr(input.Actor)

		if err := s.store.Customers.Update(ctx, customer); err != nil {
			return err
		}

		details := map[string]any{"reason_code": input.ReasonCode}
		if input.Notes != "" {
			details["notes"] = input.Notes
		}
		entry, err = s.audit.Record(ctx, domain.AuditEntry{
			ActorEmail:       input.Actor,
			Action:           domain.AuditActionCustomerSuspended,
			TargetCustomerID: customer.ID,
			Details:          details,
			Reason:           strPtr(reason),
			CreatedAt:        now,
		})
		updated = customer
		return err
	})
	if err != nil {
		return domain.Customer{}, err
	}

	s.metrics.IncSuspension("suspend", input.ReasonCode)
	s.audit.Publish(ctx, entry)
	s.log.Info("Customer %s suspended by %s (%s)", updated.ID, input.Actor, input.ReasonCode)
	return updated, nil
}

func (s *suspensionService) ReEnable(ctx context.Context, input ReEnableInput) (domain.Customer, error) {
	input.Reason = strings.TrimSpace(input.Reason)
	if err := validate(input); err != nil {
		return domain.Customer{}, err
	}

	release, err := s.locker.Acquire(ctx, lock.CustomerKey(input.CustomerID))
	if err != nil {
		return domain.Customer{}, err
	}
	defer release()

	var (
		updated domain.Customer
		entry   domain.AuditEntry
	)
	err = s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		customer, err := loadCustomer(ctx, s.store.Customers, input.CustomerID)
		if err != nil {
			return err
		}
		if customer.IsActive() {
			return domain.NewConflictError("customer is already active")
		}

		// suspended_* остаются для истории
		now := s.now()
		customer.AccountStatus = domain.AccountStatusActive
		customer.ReEnabledAt = timePtr(now)
		customer.ReEnabledBy = strPtr(input.Actor)

		if err := s.store.Customers.Update(ctx, customer); err != nil {
			return err
		}

		details := map[string]any{}
		if customer.SuspendedReason != nil {
			details["previous_reason"] = *customer.SuspendedReason
		}
		entry, err = s.audit.Record(ctx, domain.AuditEntry{
			ActorEmail:       input.Actor,
			Action:           domain.AuditActionCustomerReEnabled,
			TargetCustomerID: customer.ID,
			Details:          details,
			Reason:           strPtr(input.Reason),
			CreatedAt:        now,
		})
		updated = customer
		return err
	})
	if err != nil {
		return domain.Customer{}, err
	}

	s.metrics.IncSuspension("re_enable", "")
	s.audit.Publish(ctx, entry)
	s.log.Info("Customer %s re-enabled by %s", updated.ID, input.Actor)
	return updated, nil
}
