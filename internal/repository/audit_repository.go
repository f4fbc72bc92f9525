package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dhoini/billing-backoffice/internal/domain"
	"github.com/Dhoini/billing-backoffice/pkg/logger"
)

// AuditRepository журнал действий операторов. Только вставка и чтение.
type AuditRepository interface {
	Insert(ctx context.Context, entry domain.AuditEntry) error
	// ListByCustomer возвращает до limit записей с created_at >= since, новые первыми
	ListByCustomer(ctx context.Context, customerID string, since time.Time, limit int) ([]domain.AuditEntry, error)
}

// InMemoryAuditRepository реализация журнала аудита в памяти
type InMemoryAuditRepository struct {
	entries []domain.AuditEntry
	mutex   sync.RWMutex
	log     *logger.Logger
}

// NewInMemoryAuditRepository создает новый журнал аудита в памяти
func NewInMemoryAuditRepository(log *logger.Logger) *InMemoryAuditRepository {
	return &InMemoryAuditRepository{log: log}
}

// Insert добавляет запись в журнал
func (r *InMemoryAuditRepository) Insert(ctx context.Context, entry domain.AuditEntry) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.entries = append(r.entries, entry)
	return nil
}

// ListByCustomer возвращает записи журнала по клиенту
func (r *InMemoryAuditRepository) ListByCustomer(ctx context.Context, customerID string, since time.Time, limit int) ([]domain.AuditEntry, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var result []domain.AuditEntry
	for _, e := range r.entries {
		if e.TargetCustomerID == customerID && !e.CreatedAt.Before(since) {
			result = append(result, e)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// All возвращает копию журнала в порядке вставки
func (r *InMemoryAuditRepository) All() []domain.AuditEntry {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make([]domain.AuditEntry, len(r.entries))
	copy(out, r.entries)
	return out
}
