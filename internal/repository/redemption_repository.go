package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dhoini/billing-backoffice/internal/domain"
	"github.com/Dhoini/billing-backoffice/pkg/logger"
)

// RedemptionRepository интерфейс для погашений промокодов
type RedemptionRepository interface {
	Create(ctx context.Context, redemption domain.PromoCodeRedemption) error
	// FindActive возвращает активные погашения пары (промокод, клиент)
	FindActive(ctx context.Context, promoCodeID, customerID string) ([]domain.PromoCodeRedemption, error)
	Reverse(ctx context.Context, id string, reversedAt time.Time) error
	ListByCustomer(ctx context.Context, customerID string) ([]domain.PromoCodeRedemption, error)
}

// InMemoryRedemptionRepository реализация репозитория погашений в памяти
type InMemoryRedemptionRepository struct {
	redemptions map[string]domain.PromoCodeRedemption
	mutex       sync.RWMutex
	log         *logger.Logger
}

// NewInMemoryRedemptionRepository создает новый репозиторий погашений в памяти
func NewInMemoryRedemptionRepository(log *logger.Logger) *InMemoryRedemptionRepository {
	return &InMemoryRedemptionRepository{
		redemptions: make(map[string]domain.PromoCodeRedemption),
		log:         log,
	}
}

// Create сохраняет погашение
func (r *InMemoryRedemptionRepository) Create(ctx context.Context, redemption domain.PromoCodeRedemption) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.redemptions[redemption.ID]; exists {
		return ErrDuplicate
	}
	r.redemptions[redemption.ID] = redemption

	return nil
}

// FindActive возвращает активные погашения, старые первыми
func (r *InMemoryRedemptionRepository) FindActive(ctx context.Context, promoCodeID, customerID string) ([]domain.PromoCodeRedemption, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var result []domain.PromoCodeRedemption
	for _, red := range r.redemptions {
		if red.PromoCodeID == promoCodeID && red.CustomerID == customerID && red.Status == domain.RedemptionStatusActive {
			result = append(result, red)
		}
	}
	sortByAppliedAt(result)

	return result, nil
}

// Reverse переводит погашение в статус reversed
func (r *InMemoryRedemptionRepository) Reverse(ctx context.Context, id string, reversedAt time.Time) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	red, exists := r.redemptions[id]
	if !exists {
		return ErrNotFound
	}

	red.Status = domain.RedemptionStatusReversed
	red.ReversedAt = &reversedAt
	r.redemptions[id] = red

	return nil
}

// ListByCustomer возвращает все погашения клиента, старые первыми
func (r *InMemoryRedemptionRepository) ListByCustomer(ctx context.Context, customerID string) ([]domain.PromoCodeRedemption, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var result []domain.PromoCodeRedemption
	for _, red := range r.redemptions {
		if red.CustomerID == customerID {
			result = append(result, red)
		}
	}
	sortByAppliedAt(result)

	return result, nil
}

func sortByAppliedAt(list []domain.PromoCodeRedemption) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].AppliedAt.Equal(list[j].AppliedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].AppliedAt.Before(list[j].AppliedAt)
	})
}
