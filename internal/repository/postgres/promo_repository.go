package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/billing-backoffice/internal/domain"
	"github.com/Dhoini/billing-backoffice/internal/repository"
	"github.com/Dhoini/billing-backoffice/pkg/logger"
	"github.com/jackc/pgx/v5"
)

const promoColumns = `id, code, type, free_days, discount_percent, duration_months, max_redemptions,
	current_redemptions, expires_at, new_customers_only, one_per_customer, is_active,
	COALESCE(created_by, ''), created_at, updated_at`

// PostgresPromoCodeRepository промокоды в PostgreSQL
type PostgresPromoCodeRepository struct {
	db  querier
	log *logger.Logger
}

// NewPostgresPromoCodeRepository создает репозиторий промокодов
func NewPostgresPromoCodeRepository(db querier, log *logger.Logger) *PostgresPromoCodeRepository {
	return &PostgresPromoCodeRepository{db: db, log: log}
}

func scanPromo(row pgx.Row) (domain.PromoCode, error) {
	var p domain.PromoCode
	err := row.Scan(
		&p.ID,
		&p.Code,
		&p.Type,
		&p.FreeDays,
		&p.DiscountPercent,
		&p.DurationMonths,
		&p.MaxRedemptions,
		&p.CurrentRedemptions,
		&p.ExpiresAt,
		&p.NewCustomersOnly,
		&p.OnePerCustomer,
		&p.IsActive,
		&p.CreatedBy,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PromoCode{}, repository.ErrNotFound
	}
	return p, err
}

func (r *PostgresPromoCodeRepository) GetByID(ctx context.Context, id string) (domain.PromoCode, error) {
	p, err := scanPromo(conn(ctx, r.db).QueryRow(ctx, `SELECT `+promoColumns+` FROM promo_codes WHERE id = $1`, id))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return domain.PromoCode{}, fmt.Errorf("failed to get promo code: %w", err)
	}
	return p, err
}

func (r *PostgresPromoCodeRepository) GetByCode(ctx context.Context, code string) (domain.PromoCode, error) {
	p, err := scanPromo(conn(ctx, r.db).QueryRow(ctx, `SELECT `+promoColumns+` FROM promo_codes WHERE code = $1`, code))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return domain.PromoCode{}, fmt.Errorf("failed to get promo code: %w", err)
	}
	return p, err
}

func (r *PostgresPromoCodeRepository) Create(ctx context.Context, p domain.PromoCode) (domain.PromoCode, error) {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	query := `
		INSERT INTO promo_codes (id, code, type, free_days, discount_percent, duration_months,
			max_redemptions, current_redemptions, expires_at, new_customers_only, one_per_customer,
			is_active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := conn(ctx, r.db).Exec(ctx, query,
		p.ID, p.Code, p.Type, p.FreeDays, p.DiscountPercent, p.DurationMonths,
		p.MaxRedemptions, p.CurrentRedemptions, p.ExpiresAt, p.NewCustomersOnly, p.OnePerCustomer,
		p.IsActive, nullString(p.CreatedBy), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isDuplicate(err) {
			return domain.PromoCode{}, repository.ErrDuplicate
		}
		return domain.PromoCode{}, fmt.Errorf("failed to create promo code: %w", err)
	}
	return p, nil
}

// Update меняет изменяемые поля. code, тип и счетчик не трогаются.
func (r *PostgresPromoCodeRepository) Update(ctx context.Context, p domain.PromoCode) error {
	query := `
		UPDATE promo_codes
		SET max_redemptions = $1, expires_at = $2, new_customers_only = $3,
			one_per_customer = $4, is_active = $5, updated_at = NOW()
		WHERE id = $6
	`
	result, err := conn(ctx, r.db).Exec(ctx, query,
		p.MaxRedemptions, p.ExpiresAt, p.NewCustomersOnly, p.OnePerCustomer, p.IsActive, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update promo code: %w", err)
	}
	if result.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// IncrementRedemptions условный инкремент: строка не меняется, если лимит исчерпан
func (r *PostgresPromoCodeRepository) IncrementRedemptions(ctx context.Context, id string) error {
	query := `
		UPDATE promo_codes
		SET current_redemptions = current_redemptions + 1, updated_at = NOW()
		WHERE id = $1 AND (max_redemptions IS NULL OR current_redemptions < max_redemptions)
	`
	result, err := conn(ctx, r.db).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to increment redemptions: %w", err)
	}
	if result.RowsAffected() == 1 {
		return nil
	}

	// Ноль строк: либо кода нет, либо лимит
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return repository.ErrLimitReached
}

func (r *PostgresPromoCodeRepository) DecrementRedemptions(ctx context.Context, id string) error {
	result, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE promo_codes SET current_redemptions = GREATEST(current_redemptions - 1, 0), updated_at = NOW() WHERE id = $1`,
		id)
	if err != nil {
		return fmt.Errorf("failed to decrement redemptions: %w", err)
	}
	if result.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
