package lock

import (
	"context"
	"fmt"
	"sync"
)

// KeyedMutex блокировка по ключу внутри одного процесса
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	ch   chan struct{} // буфер 1: токен свободной блокировки
	refs int
}

// NewKeyedMutex создает блокировку по ключам в памяти
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedEntry)}
}

func (m *KeyedMutex) ref(key string) *keyedEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[key]
	if !ok {
		entry = &keyedEntry{ch: make(chan struct{}, 1)}
		m.locks[key] = entry
	}
	entry.refs++
	return entry
}

func (m *KeyedMutex) unref(key string, entry *keyedEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(m.locks, key)
	}
}

// Acquire ждет блокировку по ключу до отмены контекста
func (m *KeyedMutex) Acquire(ctx context.Context, key string) (func(), error) {
	entry := m.ref(key)

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		m.unref(key, entry)
		return nil, fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.ch
			m.unref(key, entry)
		})
	}, nil
}

// Len количество ключей с держателями или ожидающими
func (m *KeyedMutex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
