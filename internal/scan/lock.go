package scan

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/logger"
	redisClient "github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/redis"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	scanLockPrefix     = "scan:lock:"
	defaultLockTTL     = 5 * time.Minute
	lockReleaseTimeout = 2 * time.Second
)

// Locker excludes concurrent scans of the same user across processes
type Locker interface {
	// Acquire returns ErrScanInProgress when another holder owns the lock.
	Acquire(ctx context.Context, userID string) (release func(), err error)
}

// RedisLocker implements Locker with SET NX and a token-checked release
type RedisLocker struct {
	redis *redisClient.Client
	ttl   time.Duration
}

// NewRedisLocker creates a Redis scan lock
func NewRedisLocker(redis *redisClient.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{redis: redis, ttl: ttl}
}

// Acquire takes the user's scan lock
func (l *RedisLocker) Acquire(ctx context.Context, userID string) (func(), error) {
	key := scanLockPrefix + userID
	token := uuid.NewString()

	ok, err := l.redis.AcquireLock(ctx, key, token, l.ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrScanInProgress
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), lockReleaseTimeout)
		defer cancel()
		if err := l.redis.ReleaseLock(ctx, key, token); err != nil {
			if errors.Is(err, redisClient.ErrLockNotHeld) {
				logger.Warn("scan lock expired before release", zap.String("user_id", userID))
				return
			}
			logger.Error("failed to release scan lock", zap.String("user_id", userID), zap.Error(err))
		}
	}, nil
}

// keyedMutex serializes work per key. Entries are dropped once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() { k.unlock(key, m) }
}

// TryLock takes the key only if nobody holds or waits for it
func (k *keyedMutex) TryLock(key string) (func(), bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, busy := k.locks[key]; busy {
		return nil, false
	}
	m := &refMutex{refs: 1}
	m.Lock()
	k.locks[key] = m
	return func() { k.unlock(key, m) }, true
}

func (k *keyedMutex) unlock(key string, m *refMutex) {
	m.Unlock()
	k.mu.Lock()
	m.refs--
	if m.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}
