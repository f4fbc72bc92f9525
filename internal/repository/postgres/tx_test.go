package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/Dhoini/billing-backoffice/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTx реализует только Commit и Rollback, остальное не вызывается
type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (tx *fakeTx) Commit(ctx context.Context) error {
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(ctx context.Context) error {
	tx.rolledBack = true
	return nil
}

type fakeBeginner struct {
	txs []*fakeTx
}

func (b *fakeBeginner) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	tx := &fakeTx{}
	b.txs = append(b.txs, tx)
	return tx, nil
}

func newFakeTransactor() (*Transactor, *fakeBeginner) {
	b := &fakeBeginner{}
	return &Transactor{pool: b, log: logger.NewNop()}, b
}

func TestTransactor_CommitAndRollback(t *testing.T) {
	tr, b := newFakeTransactor()
	ctx := context.Background()

	require.NoError(t, tr.WithinTx(ctx, func(ctx context.Context) error { return nil }))
	boom := errors.New("boom")
	assert.ErrorIs(t, tr.WithinTx(ctx, func(ctx context.Context) error { return boom }), boom)

	require.Len(t, b.txs, 2)
	assert.True(t, b.txs[0].committed)
	assert.False(t, b.txs[0].rolledBack)
	assert.True(t, b.txs[1].rolledBack)
	assert.False(t, b.txs[1].committed)
}

func TestTransactor_NestedReusesOuterTx(t *testing.T) {
	tr, b := newFakeTransactor()

	err := tr.WithinTx(context.Background(), func(ctx context.Context) error {
		return tr.WithinTx(ctx, func(ctx context.Context) error { return nil })
	})
	require.NoError(t, err)
	assert.Len(t, b.txs, 1)
}

func TestTransactor_PanicRollsBackAndRepanics(t *testing.T) {
	tr, b := newFakeTransactor()

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = tr.WithinTx(context.Background(), func(ctx context.Context) error {
			panic("kaboom")
		})
	})

	require.Len(t, b.txs, 1)
	assert.True(t, b.txs[0].rolledBack)
	assert.False(t, b.txs[0].committed)
}
