// Package lock serializes work per key (per user) so that read-validate-write
// sequences on a user's ledger do not interleave.
package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrLocked is returned when the lock could not be taken before ctx ended.
var ErrLocked = errors.New("lock held by another request")

// Locker acquires an exclusive lock on key. The returned release func must
// be called exactly once.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// LocalLocker serializes within one process.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker returns an in-process Locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]*slot)}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.drop(key, s)
		return nil, fmt.Errorf("%w: %v", ErrLocked, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.drop(key, s)
		})
	}, nil
}

func (l *LocalLocker) drop(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker serializes across processes with SET NX PX and a token-checked
// release. The TTL bounds how long a crashed holder can block others.
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	retry  time.Duration
	logger *zap.Logger
}

// NewRedisLocker returns a Locker backed by client. Keys are stored as
// "<prefix>:<key>".
func NewRedisLocker(client redis.UniversalClient, prefix string, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{
		client: client,
		prefix: strings.TrimRight(prefix, ":"),
		ttl:    ttl,
		retry:  25 * time.Millisecond,
		logger: logger,
	}
}

func (l *RedisLocker) key(k string) string {
	return l.prefix + ":" + k
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	fullKey := l.key(key)
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("acquire %s: %w", fullKey, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrLocked, ctx.Err())
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.release(fullKey, token)
		})
	}, nil
}

// release deletes fullKey if it still holds token. A failure leaves the key
// to expire with its TTL.
func (l *RedisLocker) release(fullKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, l.client, []string{fullKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		l.logger.Warn("release ledger lock failed",
			zap.String("key", fullKey),
			zap.Duration("expires_in", l.ttl),
			zap.Error(err),
		)
	}
}
