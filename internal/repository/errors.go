package repository

import "errors"

var (
	// ErrNotFound запись не найдена
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate дубликат записи
	ErrDuplicate = errors.New("duplicate record")

	// ErrLimitReached условный инкремент счетчика не прошел: лимит погашений исчерпан
	ErrLimitReached = errors.New("redemption limit reached")
)
