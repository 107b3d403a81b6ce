package core

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient returns a configured go-redis client from URL (e.g., redis://localhost:6379/0).
func NewRedisClient(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, errors.New("empty redis url")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

// Cache is a small JSON cache-aside layer over Redis for verse lookups
// and the leaderboard. The corpus is immutable, so a short TTL exists
// only to bound memory, not for correctness. A nil *Cache is valid and
// always misses, so handlers need no nil checks when caching is off.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache wraps client with the given entry lifetime. Returns nil
// (caching disabled) when client is nil or ttl is not positive.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if client == nil || ttl <= 0 {
		return nil
	}
	return &Cache{client: client, ttl: ttl}
}

// Get loads the JSON value at key into dest and reports a hit.
// Redis errors are treated as misses: the cache is best-effort and the
// database remains the source of truth.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) bool {
	if c == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

// Set stores val as JSON at key with the configured TTL, best-effort.
func (c *Cache) Set(ctx context.Context, key string, val interface{}) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Ping reports cache reachability for the status endpoint.
func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return errors.New("cache disabled")
	}
	return c.client.Ping(ctx).Err()
}
