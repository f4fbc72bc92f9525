package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dhoini/billing-backoffice/internal/domain"
	"github.com/Dhoini/billing-backoffice/pkg/logger"
)

// LockboxRepository чтение действий над локбоксами клиента
type LockboxRepository interface {
	ListIDsByCustomer(ctx context.Context, customerID string) ([]string, error)
	ListActions(ctx context.Context, lockboxIDs []string, since time.Time, limit int) ([]domain.LockboxAction, error)
}

// EmailLogRepository чтение журнала исходящих писем
type EmailLogRepository interface {
	ListByCustomer(ctx context.Context, customerID string, since time.Time, limit int) ([]domain.EmailLog, error)
}

// InMemoryLockboxRepository реализация в памяти
type InMemoryLockboxRepository struct {
	owners  map[string]string // lockboxID -> customerID
	actions []domain.LockboxAction
	mutex   sync.RWMutex
	log     *logger.Logger
}

// NewInMemoryLockboxRepository создает новый репозиторий локбоксов в памяти
func NewInMemoryLockboxRepository(log *logger.Logger) *InMemoryLockboxRepository {
	return &InMemoryLockboxRepository{
		owners: make(map[string]string),
		log:    log,
	}
}

// AddLockbox регистрирует локбокс клиента
func (r *InMemoryLockboxRepository) AddLockbox(customerID, lockboxID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.owners[lockboxID] = customerID
}

// AddAction добавляет сырое действие
func (r *InMemoryLockboxRepository) AddAction(action domain.LockboxAction) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.actions = append(r.actions, action)
}

// ListIDsByCustomer возвращает ID локбоксов клиента
func (r *InMemoryLockboxRepository) ListIDsByCustomer(ctx context.Context, customerID string) ([]string, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var ids []string
	for id, owner := range r.owners {
		if owner == customerID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ListActions возвращает до limit действий по списку локбоксов, новые первыми
func (r *InMemoryLockboxRepository) ListActions(ctx context.Context, lockboxIDs []string, since time.Time, limit int) ([]domain.LockboxAction, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	wanted := make(map[string]struct{}, len(lockboxIDs))
	for _, id := range lockboxIDs {
		wanted[id] = struct{}{}
	}

	var result []domain.LockboxAction
	for _, a := range r.actions {
		if _, ok := wanted[a.LockboxID]; ok && !a.CreatedAt.Before(since) {
			result = append(result, a)
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

// InMemoryEmailLogRepository реализация журнала писем в памяти
type InMemoryEmailLogRepository struct {
	logs  []domain.EmailLog
	mutex sync.RWMutex
	log   *logger.Logger
}

// NewInMemoryEmailLogRepository создает новый журнал писем в памяти
func NewInMemoryEmailLogRepository(log *logger.Logger) *InMemoryEmailLogRepository {
	return &InMemoryEmailLogRepository{log: log}
}

// Add добавляет запись о письме
func (r *InMemoryEmailLogRepository) Add(entry domain.EmailLog) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.logs = append(r.logs, entry)
}

// ListByCustomer возвращает до limit писем клиента, новые первыми
func (r *InMemoryEmailLogRepository) ListByCustomer(ctx context.Context, customerID string, since time.Time, limit int) ([]domain.EmailLog, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var result []domain.EmailLog
	for _, e := range r.logs {
		if e.CustomerID == customerID && !e.SentAt.Before(since) {
			result = append(result, e)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].SentAt.After(result[j].SentAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
