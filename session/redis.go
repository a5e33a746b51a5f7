package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:"

// RedisStore keeps one JSON document per user under session:<userId>.
// A positive ttl turns on sliding idle expiry.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

// NewRedisStore keeps sessions in rdb. Zero ttl disables expiry.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl, now: time.Now}
}

// Get loads the session for userID.
func (r *RedisStore) Get(ctx context.Context, userID string) (*Session, error) {
	data, err := r.rdb.Get(ctx, redisKeyPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	s, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode session %s: %w", userID, err)
	}
	return s, nil
}

// Create stores a fresh session, replacing any existing one.
func (r *RedisStore) Create(ctx context.Context, userID string) (*Session, error) {
	s := New(userID, r.now())
	data, err := encode(s)
	if err != nil {
		return nil, err
	}
	if err := r.rdb.Set(ctx, redisKeyPrefix+userID, data, r.ttl).Err(); err != nil {
		return nil, fmt.Errorf("redis create session: %w", err)
	}
	return s, nil
}

// Update uses SET XX so a session deleted in the meantime stays deleted.
func (r *RedisStore) Update(ctx context.Context, userID string, s *Session) error {
	s.UpdatedAt = r.now()
	data, err := encode(s)
	if err != nil {
		return err
	}
	if err := r.rdb.SetXX(ctx, redisKeyPrefix+userID, data, r.ttl).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis update session: %w", err)
	}
	return nil
}

// Delete removes the session key.
func (r *RedisStore) Delete(ctx context.Context, userID string) error {
	if err := r.rdb.Del(ctx, redisKeyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}
