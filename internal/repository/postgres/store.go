package postgres

import (
	"github.com/Dhoini/billing-backoffice/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
)

// Repositories все репозитории PostgreSQL поверх одного пула
type Repositories struct {
	Customers   *PostgresCustomerRepository
	Snapshots   *PostgresSnapshotRepository
	Promos      *PostgresPromoCodeRepository
	Redemptions *PostgresRedemptionRepository
	Audit       *PostgresAuditRepository
	Lockboxes   *LockboxReader
	Emails      *EmailLogReader
	Tx          *Transactor
}

// NewRepositories собирает репозитории. eventDB используется только для чтения ленты.
func NewRepositories(pool *pgxpool.Pool, eventDB *sqlx.DB, log *logger.Logger) Repositories {
	return Repositories{
		Customers:   NewPostgresCustomerRepository(pool, log),
		Snapshots:   NewPostgresSnapshotRepository(pool, log),
		Promos:      NewPostgresPromoCodeRepository(pool, log),
		Redemptions: NewPostgresRedemptionRepository(pool, log),
		Audit:       NewPostgresAuditRepository(pool, log),
		Lockboxes:   NewLockboxReader(eventDB, log),
		Emails:      NewEmailLogReader(eventDB, log),
		Tx:          NewTransactor(pool, log),
	}
}
