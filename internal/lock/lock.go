// Package lock сериализует изменения одной сущности (клиента или промокода).
package lock

import (
	"context"
	"errors"
	"sort"
)

// ErrNotAcquired блокировку не удалось получить до истечения контекста или попыток
var ErrNotAcquired = errors.New("lock not acquired")

// Locker выдает эксклюзивную блокировку по ключу. Release идемпотентен.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// CustomerKey ключ блокировки клиента
func CustomerKey(customerID string) string {
	return "customer:" + customerID
}

// PromoKey ключ блокировки промокода
func PromoKey(code string) string {
	return "promo:" + code
}

// AcquireAll берет несколько блокировок в отсортированном порядке, чтобы
// два запроса с одинаковым набором ключей не ждали друг друга по кругу.
func AcquireAll(ctx context.Context, l Locker, keys ...string) (func(), error) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	releases := make([]func(), 0, len(sorted))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}

	var prev string
	for i, key := range sorted {
		if i > 0 && key == prev {
			continue
		}
		prev = key

		release, err := l.Acquire(ctx, key)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}

	return releaseAll, nil
}
