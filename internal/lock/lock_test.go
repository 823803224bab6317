package lock

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func exerciseMutualExclusion(t *testing.T, l Locker) {
	t.Helper()
	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			release, err := l.Acquire(ctx, "user:1")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}

func TestLocalLockerMutualExclusion(t *testing.T) {
	exerciseMutualExclusion(t, NewLocalLocker())
}

func TestLocalLockerTimesOut(t *testing.T) {
	l := NewLocalLocker()
	release, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "k")
	assert.ErrorIs(t, err, ErrLocked)

	other, err := l.Acquire(context.Background(), "other")
	require.NoError(t, err)
	other()
}

func TestLocalLockerReleaseIsIdempotent(t *testing.T) {
	l := NewLocalLocker()
	release, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)
	release()
	release()

	again, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)
	again()
	assert.Empty(t, l.slots)
}

// TestRedisLocker runs against a live Redis when REDIS_ADDR is set.
func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("set REDIS_ADDR to run the redis lock test")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	exerciseMutualExclusion(t, NewRedisLocker(client, "invest-test-lock", 5*time.Second, zap.NewNop()))
}

func TestRedisLockerKeyPrefix(t *testing.T) {
	l := NewRedisLocker(nil, "invest:lock:", time.Second, nil)
	assert.Equal(t, "invest:lock:ledger:1", l.key("ledger:1"))

	l = NewRedisLocker(nil, "invest:lock", time.Second, nil)
	assert.Equal(t, "invest:lock:ledger:1", l.key("ledger:1"))
}

func TestRedisLockerLogsFailedRelease(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	l := NewRedisLocker(client, "invest:lock", 10*time.Second, zap.New(core))
	l.release(l.key("ledger:7"), "token")

	entries := logs.FilterMessage("release ledger lock failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "invest:lock:ledger:7", entries[0].ContextMap()["key"])
}
