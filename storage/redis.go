package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions selects a Redis server either by URL or by address.
type RedisOptions struct {
	URL      string
	Addr     string
	Password string
	DB       int
}

// ConnectRedis creates a Redis client and checks the connection.
func ConnectRedis(ctx context.Context, o RedisOptions) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     o.Addr,
		Password: o.Password,
		DB:       o.DB,
	}
	if o.URL != "" {
		parsed, err := redis.ParseURL(o.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		opts = parsed
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("Redis is unavailable: %w", err)
	}

	fmt.Println("✅ Connected to Redis")
	return rdb, nil
}
