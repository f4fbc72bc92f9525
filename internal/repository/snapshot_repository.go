package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Dhoini/billing-backoffice/internal/domain"
	"github.com/Dhoini/billing-backoffice/pkg/logger"
)

// SnapshotRepository интерфейс для локального зеркала подписок провайдера
type SnapshotRepository interface {
	GetByCustomerID(ctx context.Context, customerID string) (domain.BillingSnapshot, error)
	Upsert(ctx context.Context, snapshot domain.BillingSnapshot) error
	// SetPeriodEnd записывает current_period_end как есть, включая nil.
	SetPeriodEnd(ctx context.Context, customerID string, periodEnd *time.Time) error
}

// InMemorySnapshotRepository реализация репозитория снимков в памяти
type InMemorySnapshotRepository struct {
	snapshots map[string]domain.BillingSnapshot
	mutex     sync.RWMutex
	log       *logger.Logger
}

// NewInMemorySnapshotRepository создает новый репозиторий снимков в памяти
func NewInMemorySnapshotRepository(log *logger.Logger) *InMemorySnapshotRepository {
	return &InMemorySnapshotRepository{
		snapshots: make(map[string]domain.BillingSnapshot),
		log:       log,
	}
}

// GetByCustomerID возвращает снимок клиента
func (r *InMemorySnapshotRepository) GetByCustomerID(ctx context.Context, customerID string) (domain.BillingSnapshot, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	snapshot, exists := r.snapshots[customerID]
	if !exists {
		return domain.BillingSnapshot{}, ErrNotFound
	}

	return snapshot, nil
}

// Upsert создает или заменяет снимок
func (r *InMemorySnapshotRepository) Upsert(ctx context.Context, snapshot domain.BillingSnapshot) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	snapshot.UpdatedAt = time.Now()
	r.snapshots[snapshot.CustomerID] = snapshot

	return nil
}

// SetPeriodEnd обновляет current_period_end
func (r *InMemorySnapshotRepository) SetPeriodEnd(ctx context.Context, customerID string, periodEnd *time.Time) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	snapshot, exists := r.snapshots[customerID]
	if !exists {
		return ErrNotFound
	}

	if periodEnd != nil {
		v := *periodEnd
		periodEnd = &v
	}
	snapshot.CurrentPeriodEnd = periodEnd
	snapshot.UpdatedAt = time.Now()
	r.snapshots[customerID] = snapshot

	return nil
}
