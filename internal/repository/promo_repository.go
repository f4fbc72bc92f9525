package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Dhoini/billing-backoffice/internal/domain"
	"github.com/Dhoini/billing-backoffice/pkg/logger"
)

// PromoCodeRepository интерфейс для работы с промокодами
type PromoCodeRepository interface {
	GetByID(ctx context.Context, id string) (domain.PromoCode, error)
	GetByCode(ctx context.Context, code string) (domain.PromoCode, error)
	Create(ctx context.Context, promo domain.PromoCode) (domain.PromoCode, error)
	Update(ctx context.Context, promo domain.PromoCode) error
	// IncrementRedemptions увеличивает счетчик, только если лимит не исчерпан.
	// Возвращает ErrLimitReached, если инкремент не прошел.
	IncrementRedemptions(ctx context.Context, id string) error
	// DecrementRedemptions уменьшает счетчик, не опускаясь ниже нуля.
	DecrementRedemptions(ctx context.Context, id string) error
}

// InMemoryPromoCodeRepository реализация репозитория промокодов в памяти
type InMemoryPromoCodeRepository struct {
	promos map[string]domain.PromoCode // по ID
	codes  map[string]string           // code -> ID
	mutex  sync.RWMutex
	log    *logger.Logger
}

// NewInMemoryPromoCodeRepository создает новый репозиторий промокодов в памяти
func NewInMemoryPromoCodeRepository(log *logger.Logger) *InMemoryPromoCodeRepository {
	return &InMemoryPromoCodeRepository{
		promos: make(map[string]domain.PromoCode),
		codes:  make(map[string]string),
		log:    log,
	}
}

// GetByID возвращает промокод по ID
func (r *InMemoryPromoCodeRepository) GetByID(ctx context.Context, id string) (domain.PromoCode, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	promo, exists := r.promos[id]
	if !exists {
		return domain.PromoCode{}, ErrNotFound
	}

	return promo, nil
}

// GetByCode возвращает промокод по коду (код уже нормализован вызывающим)
func (r *InMemoryPromoCodeRepository) GetByCode(ctx context.Context, code string) (domain.PromoCode, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	id, exists := r.codes[code]
	if !exists {
		return domain.PromoCode{}, ErrNotFound
	}

	return r.promos[id], nil
}

// Create создает новый промокод
func (r *InMemoryPromoCodeRepository) Create(ctx context.Context, promo domain.PromoCode) (domain.PromoCode, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.codes[promo.Code]; exists {
		return domain.PromoCode{}, ErrDuplicate
	}
	if _, exists := r.promos[promo.ID]; exists {
		return domain.PromoCode{}, ErrDuplicate
	}

	now := time.Now()
	if promo.CreatedAt.IsZero() {
		promo.CreatedAt = now
	}
	promo.UpdatedAt = now

	r.promos[promo.ID] = promo
	r.codes[promo.Code] = promo.ID

	return promo, nil
}

// Update обновляет изменяемые поля промокода. Счетчик погашений не трогается.
func (r *InMemoryPromoCodeRepository) Update(ctx context.Context, promo domain.PromoCode) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	existing, exists := r.promos[promo.ID]
	if !exists {
		return ErrNotFound
	}

	promo.Code = existing.Code
	promo.CurrentRedemptions = existing.CurrentRedemptions
	promo.CreatedAt = existing.CreatedAt
	promo.UpdatedAt = time.Now()
	r.promos[promo.ID] = promo

	return nil
}

// IncrementRedemptions условно увеличивает счетчик погашений
func (r *InMemoryPromoCodeRepository) IncrementRedemptions(ctx context.Context, id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	promo, exists := r.promos[id]
	if !exists {
		return ErrNotFound
	}
	if promo.LimitReached() {
		return ErrLimitReached
	}

	promo.CurrentRedemptions++
	promo.UpdatedAt = time.Now()
	r.promos[id] = promo

	return nil
}

// DecrementRedemptions уменьшает счетчик погашений с полом 0
func (r *InMemoryPromoCodeRepository) DecrementRedemptions(ctx context.Context, id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	promo, exists := r.promos[id]
	if !exists {
		return ErrNotFound
	}

	if promo.CurrentRedemptions > 0 {
		promo.CurrentRedemptions--
	}
	promo.UpdatedAt = time.Now()
	r.promos[id] = promo

	return nil
}
