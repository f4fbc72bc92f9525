package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dhoini/billing-backoffice/internal/domain"
	"github.com/Dhoini/billing-backoffice/internal/lock"
	"github.com/Dhoini/billing-backoffice/internal/metrics"
	"github.com/Dhoini/billing-backoffice/internal/repository"
	"github.com/Dhoini/billing-backoffice/pkg/logger"
	"github.com/Dhoini/billing-backoffice/pkg/req"
)

// Минимальные длины причин
const (
	MinReasonLength         = 3
	MinReEnableReasonLength = 10
)

// Store репозитории, общие для сервисов бэк-офиса
type Store struct {
	Customers   repository.CustomerRepository
	Snapshots   repository.SnapshotRepository
	Promos      repository.PromoCodeRepository
	Redemptions repository.RedemptionRepository
	Audit       repository.AuditRepository
	Lockboxes   repository.LockboxRepository
	Emails      repository.EmailLogRepository
	Tx          repository.Transactor
}

// NewInMemoryStore хранилище в памяти для однопроцессного запуска и тестов
func NewInMemoryStore(log *logger.Logger) Store {
	return Store{
		Customers:   repository.NewInMemoryCustomerRepository(log),
		Snapshots:   repository.NewInMemorySnapshotRepository(log),
		Promos:      repository.NewInMemoryPromoCodeRepository(log),
		Redemptions: repository.NewInMemoryRedemptionRepository(log),
		Audit:       repository.NewInMemoryAuditRepository(log),
		Lockboxes:   repository.NewInMemoryLockboxRepository(log),
		Emails:      repository.NewInMemoryEmailLogRepository(log),
		Tx:          repository.NewNoopTransactor(),
	}
}

// Option настройка сервиса
type Option func(*options)

type options struct {
	now     func() time.Time
	metrics metrics.BillingMetrics
	locker  lock.Locker
}

// WithClock подменяет источник текущего времени
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithMetrics подключает метрики
func WithMetrics(m metrics.BillingMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLocker задает блокировку сущностей (по умолчанию в памяти процесса)
func WithLocker(l lock.Locker) Option {
	return func(o *options) { o.locker = l }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.metrics == nil {
		o.metrics = metrics.NewNop()
	}
	if o.locker == nil {
		o.locker = lock.NewKeyedMutex()
	}
	return o
}

// validate проверяет структуру тегами validator и переводит ошибки в доменные
func validate(payload any) error {
	err := req.IsValid(payload)
	if err == nil {
		return nil
	}

	fields := req.FieldErrors(err)
	if len(fields) == 0 {
		return fmt.Errorf("validate input: %w", err)
	}

	var verrs domain.ValidationErrors
	for _, f := range fields {
		verrs.Add(f.Field, f.Message)
	}
	return verrs
}

// notFound переводит repository.ErrNotFound в доменную ошибку
func notFound(err error, entity, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NewNotFoundError(entity, id)
	}
	return err
}

func loadCustomer(ctx context.Context, repo repository.CustomerRepository, id string) (domain.Customer, error) {
	customer, err := repo.GetByID(ctx, id)
	if err != nil {
		return domain.Customer{}, notFound(err, "customer", id)
	}
	return customer, nil
}

// loadSnapshot возвращает nil, если снимка нет
func loadSnapshot(ctx context.Context, repo repository.SnapshotRepository, customerID string) (*domain.BillingSnapshot, error) {
	snapshot, err := repo.GetByCustomerID(ctx, customerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load billing snapshot: %w", err)
	}
	return &snapshot, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }
