package lock

import (
	"context"
	"testing"
	"time"

	"github.com/Dhoini/billing-backoffice/pkg/logger"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLocker(t *testing.T, wait time.Duration) (*miniredis.Miniredis, *RedisLocker) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisLocker(client, time.Minute, wait, logger.NewNop())
}

func TestRedisLocker_AcquireRelease(t *testing.T) {
	mr, l := newRedisLocker(t, 100*time.Millisecond)
	ctx := context.Background()

	release, err := l.Acquire(ctx, CustomerKey("c1"))
	require.NoError(t, err)
	assert.True(t, mr.Exists("backoffice:lock:customer:c1"))
	assert.Equal(t, time.Minute, mr.TTL("backoffice:lock:customer:c1"))

	release()
	assert.False(t, mr.Exists("backoffice:lock:customer:c1"))

	release2, err := l.Acquire(ctx, CustomerKey("c1"))
	require.NoError(t, err)
	release2()
}

func TestRedisLocker_ContendedTimesOut(t *testing.T) {
	_, l := newRedisLocker(t, 80*time.Millisecond)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "k")
	require.NoError(t, err)
	defer release()

	_, err = l.Acquire(ctx, "k")
	assert.ErrorIs(t, err, ErrNotAcquired)
}

func TestRedisLocker_ReleaseDoesNotDeleteForeignLock(t *testing.T) {
	mr, l := newRedisLocker(t, 80*time.Millisecond)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "k")
	require.NoError(t, err)

	// ключ истек и его занял другой экземпляр
	require.NoError(t, mr.Set("backoffice:lock:k", "someone-else"))

	release()
	got, err := mr.Get("backoffice:lock:k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedisLocker_WaitsForRelease(t *testing.T) {
	_, l := newRedisLocker(t, 2*time.Second)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "k")
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		release()
	}()

	release2, err := l.Acquire(ctx, "k")
	require.NoError(t, err)
	release2()
}
