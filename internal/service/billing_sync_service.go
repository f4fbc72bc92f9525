package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dhoini/billing-backoffice/internal/domain"
	"github.com/Dhoini/billing-backoffice/internal/integration/stripe"
	"github.com/Dhoini/billing-backoffice/internal/lock"
	"github.com/Dhoini/billing-backoffice/internal/metrics"
	"github.com/Dhoini/billing-backoffice/internal/saga"
	"github.com/Dhoini/billing-backoffice/pkg/logger"
	"github.com/google/uuid"
)

// Границы кредита в минорных единицах
const (
	MinCreditAmount = 1
	MaxCreditAmount = 100000

	// CompMonthDays на сколько дней сдвигается конец периода
	CompMonthDays = 30

	DefaultCurrency = "usd"
)

// CompMonthInput запрос на бесплатный месяц
type CompMonthInput struct {
	CustomerID string `json:"customer_id" validate:"required"`
	Reason     string `json:"reason" validate:"required,min=3"`
	Actor      string `json:"actor" validate:"required"`
}

// CompMonthResult новый конец периода
type CompMonthResult struct {
	NewPeriodEnd time.Time `json:"new_period_end"`
}

// ApplyCreditInput запрос на зачисление кредита
type ApplyCreditInput struct {
	CustomerID string `json:"customer_id" validate:"required"`
	Amount     int64  `json:"amount" validate:"min=1,max=100000"`
	Reason     string `json:"reason" validate:"required,min=3"`
	Actor      string `json:"actor" validate:"required"`
}

// ApplyCreditResult результат зачисления
type ApplyCreditResult struct {
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// BillingSyncService операции, меняющие локальное состояние и провайдера согласованно
type BillingSyncService interface {
	CompMonth(ctx context.Context, input CompMonthInput) (CompMonthResult, error)
	ApplyCredit(ctx context.Context, input ApplyCreditInput) (ApplyCreditResult, error)
}

type billingSyncService struct {
	store    Store
	provider stripe.Provider
	audit    AuditService
	currency string
	locker   lock.Locker
	metrics  metrics.BillingMetrics
	now      func() time.Time
	log      *logger.Logger
}

// NewBillingSyncService создает сервис синхронизации с провайдером.
// Пустая currency означает usd.
func NewBillingSyncService(store Store, provider stripe.Provider, audit AuditService, currency string, log *logger.Logger, opts ...Option) BillingSyncService {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	o := buildOptions(opts)
	return &billingSyncService{
		store:    store,
		provider: provider,
		audit:    audit,
		currency: currency,
		locker:   o.locker,
		metrics:  o.metrics,
		now:      o.now,
		log:      log,
	}
}

// CompMonth сдвигает current_period_end на 30 дней локально, затем у провайдера.
// Если провайдер отказал, локальное значение восстанавливается как было.
func (s *billingSyncService) CompMonth(ctx context.Context, input CompMonthInput) (CompMonthResult, error) {
	input.Reason = strings.TrimSpace(input.Reason)
	if err := validate(input); err != nil {
		return CompMonthResult{}, err
	}

	release, err := s.locker.Acquire(ctx, lock.CustomerKey(input.CustomerID))
	if err != nil {
		return CompMonthResult{}, err
	}
	defer release()

	customer, err := loadCustomer(ctx, s.store.Customers, input.CustomerID)
	if err != nil {
		return CompMonthResult{}, err
	}
	snapshot, err := loadSnapshot(ctx, s.store.Snapshots, customer.ID)
	if err != nil {
		return CompMonthResult{}, err
	}

	status := domain.ResolveStatus(customer.PlanTier, snapshot)
	if status != domain.StatusActivePaid && status != domain.StatusPendingCancellation {
		return CompMonthResult{}, domain.NewConflictError("no active paid subscription")
	}
	if snapshot.StripeSubscriptionID == "" {
		return CompMonthResult{}, domain.NewConflictError("customer has no billing provider subscription")
	}

	now := s.now()
	previous := snapshot.CurrentPeriodEnd
	base := now
	if previous != nil {
		base = *previous
	}
	newEnd := base.AddDate(0, 0, CompMonthDays)

	steps := []saga.Step{
		{
			Name: "local_period_end",
			Action: func(ctx context.Context) error {
				return s.store.Snapshots.SetPeriodEnd(ctx, customer.ID, timePtr(newEnd))
			},
			Compensate: func(ctx context.Context) error {
				return s.store.Snapshots.SetPeriodEnd(ctx, customer.ID, previous)
			},
		},
		{
			Name: "provider_period_end",
			Action: func(ctx context.Context) error {
				return s.provider.ExtendSubscriptionPeriod(ctx, snapshot.StripeSubscriptionID, newEnd)
			},
		},
	}

	result, runErr := saga.New(domain.AuditActionCompMonth, s.log, steps...).Run(ctx)

	synced := runErr == nil
	ambiguous := !synced && result.FailedStep == "provider_period_end" && saga.IsAmbiguous(runErr)
	reverted := !synced && !ambiguous && result.Reverted()
	details := map[string]any{
		"previous_period_end": previous,
		"new_period_end":      newEnd,
		"subscription_id":     snapshot.StripeSubscriptionID,
		"provider_synced":     synced,
		"reverted":            reverted,
	}
	if ambiguous {
		details["ambiguous"] = true
	}
	if runErr != nil {
		details["failed_step"] = result.FailedStep
		details["provider_message"] = stripe.ProviderMessage(errors.Unwrap(runErr))
		if len(result.CompensationErrors) > 0 {
			details["compensation_failed"] = true
		}
	}

	// Попытку аудируем даже если запрос уже отменен
	entry, auditErr := s.audit.Record(context.WithoutCancel(ctx), domain.AuditEntry{
		ActorEmail:       input.Actor,
		Action:           domain.AuditActionCompMonth,
		TargetCustomerID: customer.ID,
		Details:          details,
		Reason:           strPtr(input.Reason),
		CreatedAt:        now,
	})
	if auditErr == nil {
		s.audit.Publish(ctx, entry)
	}

	if runErr != nil {
		return CompMonthResult{}, s.compFailure(customer.ID, runErr, result)
	}
	if auditErr != nil {
		return CompMonthResult{}, auditErr
	}

	s.metrics.IncSagaOutcome(domain.AuditActionCompMonth, metrics.SagaOutcomeSynced)
	s.log.Info("Comp month applied to customer %s by %s, period ends %s", customer.ID, input.Actor, newEnd.Format(time.RFC3339))
	return CompMonthResult{NewPeriodEnd: newEnd}, nil
}

func (s *billingSyncService) compFailure(customerID string, runErr error, result saga.Result) error {
	stepErr := runErr
	var se *saga.StepError
	if errors.As(runErr, &se) {
		stepErr = se.Err
	}

	// Локальная запись не прошла: провайдера не трогали
	if result.FailedStep == "local_period_end" {
		s.metrics.IncSagaOutcome(domain.AuditActionCompMonth, metrics.SagaOutcomeFailed)
		return fmt.Errorf("update local period end: %w", stepErr)
	}

	switch {
	case saga.IsAmbiguous(stepErr):
		s.metrics.IncSagaOutcome(domain.AuditActionCompMonth, metrics.SagaOutcomeAmbiguous)
		s.log.Errorw("Comp month outcome at provider unknown, manual reconciliation required",
			"customerID", customerID, "error", stepErr)
	case result.Reverted():
		s.metrics.IncSagaOutcome(domain.AuditActionCompMonth, metrics.SagaOutcomeReverted)
	default:
		s.metrics.IncSagaOutcome(domain.AuditActionCompMonth, metrics.SagaOutcomeFailed)
	}

	perr := domain.NewBillingProviderError(domain.AuditActionCompMonth, stripe.ProviderMessage(stepErr), stepErr)
	// При неизвестном исходе откат локальной записи не означает согласованности с провайдером
	perr.Ambiguous = saga.IsAmbiguous(stepErr)
	perr.Reverted = !perr.Ambiguous && result.Reverted()
	return perr
}

// ApplyCredit зачисляет кредит на баланс клиента у провайдера.
// Локального состояния нет, поэтому аудируется только успех.
func (s *billingSyncService) ApplyCredit(ctx context.Context, input ApplyCreditInput) (ApplyCreditResult, error) {
	input.Reason = strings.TrimSpace(input.Reason)
	if err := validate(input); err != nil {
		return ApplyCreditResult{}, err
	}

	release, err := s.locker.Acquire(ctx, lock.CustomerKey(input.CustomerID))
	if err != nil {
		return ApplyCreditResult{}, err
	}
	defer release()

	customer, err := loadCustomer(ctx, s.store.Customers, input.CustomerID)
	if err != nil {
		return ApplyCreditResult{}, err
	}
	if customer.StripeCustomerID == "" {
		return ApplyCreditResult{}, domain.NewConflictError("customer has no billing provider account")
	}

	txnID, err := s.provider.ApplyCredit(ctx, stripe.CreditInput{
		StripeCustomerID: customer.StripeCustomerID,
		Amount:           input.Amount,
		Currency:         s.currency,
		Description:      input.Reason,
		IdempotencyKey:   uuid.NewString(),
	})
	if err != nil {
		outcome := metrics.SagaOutcomeFailed
		if saga.IsAmbiguous(err) {
			outcome = metrics.SagaOutcomeAmbiguous
			s.log.Errorw("Credit outcome at provider unknown, manual reconciliation required",
				"customerID", customer.ID, "amount", input.Amount, "error", err)
		}
		s.metrics.IncSagaOutcome(domain.AuditActionCreditApplied, outcome)
		return ApplyCreditResult{}, domain.NewBillingProviderError(domain.AuditActionCreditApplied, stripe.ProviderMessage(err), err)
	}

	entry, err := s.audit.Record(context.WithoutCancel(ctx), domain.AuditEntry{
		ActorEmail:       input.Actor,
		Action:           domain.AuditActionCreditApplied,
		TargetCustomerID: customer.ID,
		Details: map[string]any{
			"amount":         input.Amount,
			"currency":       s.currency,
			"transaction_id": txnID,
		},
		Reason:    strPtr(input.Reason),
		CreatedAt: s.now(),
	})
	if err != nil {
		return ApplyCreditResult{}, err
	}

	s.metrics.IncSagaOutcome(domain.AuditActionCreditApplied, metrics.SagaOutcomeSynced)
	s.audit.Publish(ctx, entry)
	s.log.Info("Credit of %d %s applied to customer %s by %s", input.Amount, s.currency, customer.ID, input.Actor)
	return ApplyCreditResult{Amount: input.Amount, Currency: s.currency, TransactionID: txnID}, nil
}
