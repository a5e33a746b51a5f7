package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockTimeout = errors.New("timed out waiting for session lock")
	ErrLockLost    = errors.New("session lock expired or was taken over")
)

// Locker serializes dialogue turns per user. Locks on different keys
// never block each other.
type Locker interface {
	Lock(ctx context.Context, key string) (Lease, error)
}

// Lease is a held lock.
type Lease interface {
	// Check returns ErrLockLost once another holder may have taken the
	// lock. Writes made under the lock must be preceded by a Check.
	Check(ctx context.Context) error
	Unlock()
}

// KeyedMutex is an in-process Locker.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

// NewKeyedMutex returns a KeyedMutex with no keys held.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyLock)}
}

// Lock blocks until key is free or ctx is done.
func (k *KeyedMutex) Lock(ctx context.Context, key string) (Lease, error) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{sem: make(chan struct{}, 1)}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		k.release(key, l)
		return nil, fmt.Errorf("%w: %s: %v", ErrLockTimeout, key, ctx.Err())
	}

	return &mutexLease{release: func() {
		<-l.sem
		k.release(key, l)
	}}, nil
}

// mutexLease cannot be lost: the mutex has no expiry.
type mutexLease struct {
	once    sync.Once
	release func()
}

func (m *mutexLease) Check(context.Context) error { return nil }

func (m *mutexLease) Unlock() { m.once.Do(m.release) }

func (k *KeyedMutex) release(key string, l *keyLock) {
	k.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}

// held reports how many keys currently have waiters or holders.
func (k *KeyedMutex) held() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

const redisLockPrefix = "lock:session:"

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

var extendScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker is a Locker shared by every replica using the same Redis.
// The ttl bounds how long a crashed holder can block a user. Live
// holders renew the lock every ttl/3 until they unlock.
type RedisLocker struct {
	rdb   *redis.Client
	ttl   time.Duration
	retry time.Duration
}

// NewRedisLocker locks keys in rdb. A ttl of zero or less means 30s.
func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{rdb: rdb, ttl: ttl, retry: 25 * time.Millisecond}
}

// Lock polls until the key is acquired or ctx is done. The returned
// lease renews itself until Unlock.
func (r *RedisLocker) Lock(ctx context.Context, key string) (Lease, error) {
	redisKey := redisLockPrefix + key
	token := uuid.NewString()

	for {
		ok, err := r.rdb.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(r.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %s: %v", ErrLockTimeout, key, ctx.Err())
		case <-timer.C:
		}
	}

	l := &redisLease{r: r, key: redisKey, token: token, stop: make(chan struct{})}
	go l.renew()
	return l, nil
}

type redisLease struct {
	r     *RedisLocker
	key   string
	token string
	stop  chan struct{}
	once  sync.Once
}

// Check confirms the token is still ours and pushes the expiry out.
func (l *redisLease) Check(ctx context.Context) error {
	n, err := extendScript.Run(ctx, l.r.rdb, []string{l.key}, l.token, l.r.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("redis lock %s: %w", l.key, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrLockLost, l.key)
	}
	return nil
}

func (l *redisLease) renew() {
	interval := l.r.ttl / 3
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			err := l.Check(ctx)
			cancel()
			if errors.Is(err, ErrLockLost) {
				return
			}
		}
	}
}

func (l *redisLease) Unlock() {
	l.once.Do(func() {
		close(l.stop)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.r.rdb, []string{l.key}, l.token).Err()
	})
}
