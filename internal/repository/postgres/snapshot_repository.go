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

// PostgresSnapshotRepository зеркало подписок провайдера в PostgreSQL
type PostgresSnapshotRepository struct {
	db  querier
	log *logger.Logger
}

// NewPostgresSnapshotRepository создает репозиторий снимков
func NewPostgresSnapshotRepository(db querier, log *logger.Logger) *PostgresSnapshotRepository {
	return &PostgresSnapshotRepository{db: db, log: log}
}

func (r *PostgresSnapshotRepository) GetByCustomerID(ctx context.Context, customerID string) (domain.BillingSnapshot, error) {
	query := `
		SELECT customer_id, subscription_status, cancel_at_period_end, current_period_end,
			COALESCE(stripe_subscription_id, ''), updated_at
		FROM billing_snapshots
		WHERE customer_id = $1
	`

	var s domain.BillingSnapshot
	err := conn(ctx, r.db).QueryRow(ctx, query, customerID).Scan(
		&s.CustomerID,
		&s.SubscriptionStatus,
		&s.CancelAtPeriodEnd,
		&s.CurrentPeriodEnd,
		&s.StripeSubscriptionID,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.BillingSnapshot{}, repository.ErrNotFound
		}
		return domain.BillingSnapshot{}, fmt.Errorf("failed to get billing snapshot: %w", err)
	}

	return s, nil
}

func (r *PostgresSnapshotRepository) Upsert(ctx context.Context, s domain.BillingSnapshot) error {
	query := `
		INSERT INTO billing_snapshots (customer_id, subscription_status, cancel_at_period_end,
			current_period_end, stripe_subscription_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (customer_id) DO UPDATE SET
			subscription_status = EXCLUDED.subscription_status,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			current_period_end = EXCLUDED.current_period_end,
			stripe_subscription_id = EXCLUDED.stripe_subscription_id,
			updated_at = NOW()
	`

	_, err := conn(ctx, r.db).Exec(ctx, query,
		s.CustomerID,
		s.SubscriptionStatus,
		s.CancelAtPeriodEnd,
		s.CurrentPeriodEnd,
		nullString(s.StripeSubscriptionID),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert billing snapshot: %w", err)
	}
	return nil
}

func (r *PostgresSnapshotRepository) SetPeriodEnd(ctx context.Context, customerID string, periodEnd *time.Time) error {
	result, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE billing_snapshots SET current_period_end = $1, updated_at = NOW() WHERE customer_id = $2`,
		periodEnd, customerID)
	if err != nil {
		return fmt.Errorf("failed to set period end: %w", err)
	}
	if result.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
