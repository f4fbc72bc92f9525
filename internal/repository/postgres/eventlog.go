package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dhoini/billing-backoffice/internal/domain"
	"github.com/Dhoini/billing-backoffice/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// NewEventLogDB открывает sqlx поверх пула pgx для чтения журналов ленты
func NewEventLogDB(pool *pgxpool.Pool) *sqlx.DB {
	return sqlx.NewDb(stdlib.OpenDBFromPool(pool), "pgx")
}

type lockboxActionRow struct {
	ID          string    `db:"id"`
	LockboxID   string    `db:"lockbox_id"`
	LockboxName string    `db:"lockbox_name"`
	Action      string    `db:"action"`
	ActorEmail  string    `db:"actor_email"`
	Details     []byte    `db:"details"`
	CreatedAt   time.Time `db:"created_at"`
}

type emailLogRow struct {
	ID         string    `db:"id"`
	CustomerID string    `db:"customer_id"`
	Template   string    `db:"template"`
	Recipient  string    `db:"recipient"`
	Subject    string    `db:"subject"`
	Status     string    `db:"status"`
	SentAt     time.Time `db:"sent_at"`
}

// LockboxReader читает действия над локбоксами
type LockboxReader struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewLockboxReader создает читателя журнала локбоксов
func NewLockboxReader(db *sqlx.DB, log *logger.Logger) *LockboxReader {
	return &LockboxReader{db: db, log: log}
}

func (r *LockboxReader) ListIDsByCustomer(ctx context.Context, customerID string) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM lockboxes WHERE customer_id = $1 ORDER BY id`, customerID); err != nil {
		return nil, fmt.Errorf("failed to list lockboxes: %w", err)
	}
	return ids, nil
}

func (r *LockboxReader) ListActions(ctx context.Context, lockboxIDs []string, since time.Time, limit int) ([]domain.LockboxAction, error) {
	if len(lockboxIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT a.id, a.lockbox_id, l.name AS lockbox_name, a.action,
			COALESCE(a.actor_email, '') AS actor_email, a.details, a.created_at
		FROM lockbox_actions a
		JOIN lockboxes l ON l.id = a.lockbox_id
		WHERE a.lockbox_id IN (?) AND a.created_at >= ?
		ORDER BY a.created_at DESC
		LIMIT ?`, lockboxIDs, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to build lockbox query: %w", err)
	}

	var rows []lockboxActionRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list lockbox actions: %w", err)
	}

	actions := make([]domain.LockboxAction, 0, len(rows))
	for _, row := range rows {
		action := domain.LockboxAction{
			ID:          row.ID,
			LockboxID:   row.LockboxID,
			LockboxName: row.LockboxName,
			Action:      row.Action,
			ActorEmail:  row.ActorEmail,
			CreatedAt:   row.CreatedAt,
		}
		if len(row.Details) > 0 {
			if err := json.Unmarshal(row.Details, &action.Details); err != nil {
				r.log.Warn("Skipping malformed details of lockbox action %s: %v", row.ID, err)
			}
		}
		actions = append(actions, action)
	}
	return actions, nil
}

// EmailLogReader читает журнал исходящих писем
type EmailLogReader struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewEmailLogReader создает читателя журнала писем
func NewEmailLogReader(db *sqlx.DB, log *logger.Logger) *EmailLogReader {
	return &EmailLogReader{db: db, log: log}
}

func (r *EmailLogReader) ListByCustomer(ctx context.Context, customerID string, since time.Time, limit int) ([]domain.EmailLog, error) {
	var rows []emailLogRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, customer_id, template, COALESCE(recipient, '') AS recipient,
			COALESCE(subject, '') AS subject, COALESCE(status, '') AS status, sent_at
		FROM email_logs
		WHERE customer_id = $1 AND sent_at >= $2
		ORDER BY sent_at DESC
		LIMIT $3`, customerID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list email logs: %w", err)
	}

	logs := make([]domain.EmailLog, 0, len(rows))
	for _, row := range rows {
		logs = append(logs, domain.EmailLog(row))
	}
	return logs, nil
}
