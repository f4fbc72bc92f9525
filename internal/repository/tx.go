package repository

import "context"

// Transactor выполняет fn в одной транзакции хранилища.
// Репозитории, получившие ctx из fn, работают внутри этой транзакции.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NoopTransactor для хранилища в памяти: атомарность обеспечивают блокировки сервиса
type NoopTransactor struct{}

// NewNoopTransactor создает транзактор без транзакций
func NewNoopTransactor() NoopTransactor {
	return NoopTransactor{}
}

// WithinTx просто вызывает fn
func (NoopTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
