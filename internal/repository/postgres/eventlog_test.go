package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Dhoini/billing-backoffice/pkg/logger"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "pgx"), mock
}

func TestLockboxReader_ListIDsByCustomer(t *testing.T) {
	db, mock := newMockDB(t)
	reader := NewLockboxReader(db, logger.NewNop())

	mock.ExpectQuery(`SELECT id FROM lockboxes WHERE customer_id = \$1`).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("lb1").AddRow("lb2"))

	ids, err := reader.ListIDsByCustomer(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"lb1", "lb2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockboxReader_ListActions(t *testing.T) {
	db, mock := newMockDB(t)
	reader := NewLockboxReader(db, logger.NewNop())
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	at := since.Add(48 * time.Hour)

	rows := sqlmock.NewRows([]string{"id", "lockbox_id", "lockbox_name", "action", "actor_email", "details", "created_at"}).
		AddRow("a2", "lb2", "Backups", "secret_rotated", "ops@example.com", []byte(`{"secret":"db"}`), at).
		AddRow("a1", "lb1", "Main", "created", "", nil, since)

	mock.ExpectQuery(`FROM lockbox_actions a\s+JOIN lockboxes l ON l.id = a.lockbox_id\s+WHERE a.lockbox_id IN \(\$1, \$2\) AND a.created_at >= \$3`).
		WithArgs("lb1", "lb2", sqlmock.AnyArg(), 150).
		WillReturnRows(rows)

	actions, err := reader.ListActions(context.Background(), []string{"lb1", "lb2"}, since, 150)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, "Backups", actions[0].LockboxName)
	assert.Equal(t, map[string]any{"secret": "db"}, actions[0].Details)
	assert.Nil(t, actions[1].Details)
	assert.Equal(t, since, actions[1].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockboxReader_NoLockboxesSkipsQuery(t *testing.T) {
	db, mock := newMockDB(t)
	reader := NewLockboxReader(db, logger.NewNop())

	actions, err := reader.ListActions(context.Background(), nil, time.Now(), 150)
	require.NoError(t, err)
	assert.Empty(t, actions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailLogReader_ListByCustomer(t *testing.T) {
	db, mock := newMockDB(t)
	reader := NewEmailLogReader(db, logger.NewNop())
	sent := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM email_logs\s+WHERE customer_id = \$1 AND sent_at >= \$2`).
		WithArgs("c1", sqlmock.AnyArg(), 25).
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "template", "recipient", "subject", "status", "sent_at"}).
			AddRow("m1", "c1", "trial_ending", "owner@example.com", "Your trial ends soon", "delivered", sent))

	logs, err := reader.ListByCustomer(context.Background(), "c1", sent.Add(-time.Hour), 25)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "trial_ending", logs[0].Template)
	assert.Equal(t, "delivered", logs[0].Status)
	assert.Equal(t, sent, logs[0].SentAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailLogReader_QueryError(t *testing.T) {
	db, mock := newMockDB(t)
	reader := NewEmailLogReader(db, logger.NewNop())

	mock.ExpectQuery(`FROM email_logs`).WillReturnError(errors.New("connection reset"))

	_, err := reader.ListByCustomer(context.Background(), "c1", time.Now(), 25)
	assert.ErrorContains(t, err, "connection reset")
}
