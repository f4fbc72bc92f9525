package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Dhoini/billing-backoffice/internal/domain"
	"github.com/Dhoini/billing-backoffice/internal/repository"
	"github.com/Dhoini/billing-backoffice/pkg/logger"
	"github.com/jackc/pgx/v5"
)

const redemptionColumns = `id, promo_code_id, customer_id, status, applied_to, applied_by, applied_at, reversed_at`

// PostgresRedemptionRepository погашения промокодов в PostgreSQL
type PostgresRedemptionRepository struct {
	db  querier
	log *logger.Logger
}

// NewPostgresRedemptionRepository создает репозиторий погашений
func NewPostgresRedemptionRepository(db querier, log *logger.Logger) *PostgresRedemptionRepository {
	return &PostgresRedemptionRepository{db: db, log: log}
}

func (r *PostgresRedemptionRepository) Create(ctx context.Context, red domain.PromoCodeRedemption) error {
	query := `INSERT INTO promo_code_redemptions (` + redemptionColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := conn(ctx, r.db).Exec(ctx, query,
		red.ID, red.PromoCodeID, red.CustomerID, red.Status, red.AppliedTo, red.AppliedBy, red.AppliedAt, red.ReversedAt)
	if err != nil {
		if isDuplicate(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create redemption: %w", err)
	}
	return nil
}

func (r *PostgresRedemptionRepository) FindActive(ctx context.Context, promoCodeID, customerID string) ([]domain.PromoCodeRedemption, error) {
	query := `SELECT ` + redemptionColumns + ` FROM promo_code_redemptions
		WHERE promo_code_id = $1 AND customer_id = $2 AND status = $3
		ORDER BY applied_at, id`
	return r.list(ctx, query, promoCodeID, customerID, domain.RedemptionStatusActive)
}

func (r *PostgresRedemptionRepository) Reverse(ctx context.Context, id string, reversedAt time.Time) error {
	result, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE promo_code_redemptions SET status = $1, reversed_at = $2 WHERE id = $3`,
		domain.RedemptionStatusReversed, reversedAt, id)
	if err != nil {
		return fmt.Errorf("failed to reverse redemption: %w", err)
	}
	if result.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *PostgresRedemptionRepository) ListByCustomer(ctx context.Context, customerID string) ([]domain.PromoCodeRedemption, error) {
	query := `SELECT ` + redemptionColumns + ` FROM promo_code_redemptions
		WHERE customer_id = $1 ORDER BY applied_at, id`
	return r.list(ctx, query, customerID)
}

func (r *PostgresRedemptionRepository) list(ctx context.Context, query string, args ...any) ([]domain.PromoCodeRedemption, error) {
	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query redemptions: %w", err)
	}

	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.PromoCodeRedemption, error) {
		var red domain.PromoCodeRedemption
		err := row.Scan(&red.ID, &red.PromoCodeID, &red.CustomerID, &red.Status,
			&red.AppliedTo, &red.AppliedBy, &red.AppliedAt, &red.ReversedAt)
		return red, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan redemptions: %w", err)
	}
	return result, nil
}
