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

const customerColumns = `id, name, COALESCE(email, ''), plan_tier, billing_exempt, COALESCE(stripe_customer_id, ''),
	trial_ends_at, account_status, suspended_at, suspended_reason, suspended_by,
	re_enabled_at, re_enabled_by, pending_promo_code_id, created_at, updated_at`

// PostgresCustomerRepository реализация репозитория клиентов через PostgreSQL
type PostgresCustomerRepository struct {
	db  querier
	log *logger.Logger
}

// NewPostgresCustomerRepository создает новый репозиторий клиентов через PostgreSQL
func NewPostgresCustomerRepository(db querier, log *logger.Logger) *PostgresCustomerRepository {
	return &PostgresCustomerRepository{
		db:  db,
		log: log,
	}
}

func scanCustomer(row pgx.Row) (domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Email,
		&c.PlanTier,
		&c.BillingExempt,
		&c.StripeCustomerID,
		&c.TrialEndsAt,
		&c.AccountStatus,
		&c.SuspendedAt,
		&c.SuspendedReason,
		&c.SuspendedBy,
		&c.ReEnabledAt,
		&c.ReEnabledBy,
		&c.PendingPromoCodeID,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

// GetByID возвращает клиента по ID
func (r *PostgresCustomerRepository) GetByID(ctx context.Context, id string) (domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

	customer, err := scanCustomer(conn(ctx, r.db).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Customer{}, repository.ErrNotFound
		}
		return domain.Customer{}, fmt.Errorf("failed to get customer: %w", err)
	}

	return customer, nil
}

// Create создает нового клиента
func (r *PostgresCustomerRepository) Create(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	now := time.Now()
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = now
	}
	customer.UpdatedAt = now
	if customer.AccountStatus == "" {
		customer.AccountStatus = domain.AccountStatusActive
	}

	query := `
		INSERT INTO customers (id, name, email, plan_tier, billing_exempt, stripe_customer_id,
			trial_ends_at, account_status, pending_promo_code_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := conn(ctx, r.db).Exec(ctx, query,
		customer.ID,
		customer.Name,
		nullString(customer.Email),
		customer.PlanTier,
		customer.BillingExempt,
		nullString(customer.StripeCustomerID),
		customer.TrialEndsAt,
		customer.AccountStatus,
		customer.PendingPromoCodeID,
		customer.CreatedAt,
		customer.UpdatedAt,
	)
	if err != nil {
		if isDuplicate(err) {
			return domain.Customer{}, repository.ErrDuplicate
		}
		return domain.Customer{}, fmt.Errorf("failed to create customer: %w", err)
	}

	return customer, nil
}

// Update обновляет изменяемые бэк-офисом поля клиента
func (r *PostgresCustomerRepository) Update(ctx context.Context, customer domain.Customer) error {
	query := `
		UPDATE customers
		SET plan_tier = $1, trial_ends_at = $2, account_status = $3,
			suspended_at = $4, suspended_reason = $5, suspended_by = $6,
			re_enabled_at = $7, re_enabled_by = $8, pending_promo_code_id = $9,
			stripe_customer_id = $10, updated_at = NOW()
		WHERE id = $11
	`

	result, err := conn(ctx, r.db).Exec(ctx, query,
		customer.PlanTier,
		customer.TrialEndsAt,
		customer.AccountStatus,
		customer.SuspendedAt,
		customer.SuspendedReason,
		customer.SuspendedBy,
		customer.ReEnabledAt,
		customer.ReEnabledBy,
		customer.PendingPromoCodeID,
		nullString(customer.StripeCustomerID),
		customer.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}

	if result.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}
