// Package cache wraps Redis for the cross-process run lock and the feed body cache.
package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Config holds Redis connection settings
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// RedisCache is a Redis-backed lock and byte cache
type RedisCache struct {
	client *redis.Client
}

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(cfg Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr(), err)
	}

	return &RedisCache{client: client}, nil
}

// Close closes the Redis client
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Health pings Redis
func (c *RedisCache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Acquire takes key for ttl. ok is false when someone else holds it.
// release is a no-op unless ok is true.
func (c *RedisCache) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token, err := newToken()
	if err != nil {
		return func() {}, false, err
	}

	ok, err := c.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return func() {}, false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return func() {}, false, nil
	}

	release := func() {
		// the caller's context may already be done
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, c.client, []string{key}, token).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to release lock")
		}
	}
	return release, true, nil
}

// GetBytes returns the cached value for key. ok is false on a miss.
func (c *RedisCache) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return b, true, nil
}

// SetBytes stores value under key for ttl
func (c *RedisCache) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
