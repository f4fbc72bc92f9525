package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dhoini/billing-backoffice/internal/domain"
	"github.com/Dhoini/billing-backoffice/pkg/logger"
	"github.com/jackc/pgx/v5"
)

// PostgresAuditRepository журнал аудита в PostgreSQL. Только вставка и чтение.
type PostgresAuditRepository struct {
	db  querier
	log *logger.Logger
}

// NewPostgresAuditRepository создает репозиторий аудита
func NewPostgresAuditRepository(db querier, log *logger.Logger) *PostgresAuditRepository {
	return &PostgresAuditRepository{db: db, log: log}
}

func (r *PostgresAuditRepository) Insert(ctx context.Context, e domain.AuditEntry) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal audit details: %w", err)
	}
	if e.Details == nil {
		details = []byte("{}")
	}

	_, err = conn(ctx, r.db).Exec(ctx, `
		INSERT INTO admin_audit_log (id, actor_email, action, target_customer_id, details, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.ActorEmail, e.Action, nullString(e.TargetCustomerID), details, e.Reason, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

func (r *PostgresAuditRepository) ListByCustomer(ctx context.Context, customerID string, since time.Time, limit int) ([]domain.AuditEntry, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `
		SELECT id, actor_email, action, COALESCE(target_customer_id, ''), details, reason, created_at
		FROM admin_audit_log
		WHERE target_customer_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT $3`,
		customerID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.AuditEntry, error) {
		var (
			e       domain.AuditEntry
			details []byte
		)
		if err := row.Scan(&e.ID, &e.ActorEmail, &e.Action, &e.TargetCustomerID, &details, &e.Reason, &e.CreatedAt); err != nil {
			return e, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return e, fmt.Errorf("decode details of %s: %w", e.ID, err)
			}
		}
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan audit log: %w", err)
	}
	return entries, nil
}
