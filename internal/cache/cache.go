// Package cache provides a Redis-backed response cache for read endpoints.
// Entries are keyed by request path and query parameters and flushed
// wholesale whenever the library contents change.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key is absent.
var ErrMiss = errors.New("cache miss")

// Cache stores serialized responses in Redis. A nil *Cache is a valid
// disabled cache: Get always misses and Set and Flush are no-ops.
type Cache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// Config holds cache construction parameters.
type Config struct {
	URL    string        // Redis connection URL, e.g. redis://localhost:6379/0
	Prefix string        // Key namespace, e.g. "biblio-cache"
	TTL    time.Duration // Zero means entries never expire
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Cache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("unable to ping redis: %w", err)
	}

	return &Cache{rdb: rdb, prefix: cfg.Prefix, ttl: cfg.TTL}, nil
}

// Key builds the cache key for a request: the configured prefix joined
// with an md5 digest of the path and its query parameters in sorted order,
// so parameter order does not fragment the cache.
func (c *Cache) Key(path string, query url.Values) string {
	prefix := "biblio-cache"
	if c != nil && c.prefix != "" {
		prefix = c.prefix
	}

	var b strings.Builder
	b.WriteString(path)

	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		vals := append([]string(nil), query[k]...)
		sort.Strings(vals)
		for _, v := range vals {
			b.WriteString("&")
			b.WriteString(k)
			b.WriteString("=")
			b.WriteString(v)
		}
	}

	sum := md5.Sum([]byte(b.String()))
	return prefix + ":" + hex.EncodeToString(sum[:])
}

// Get returns the cached value for key, or ErrMiss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	if c == nil {
		return nil, ErrMiss
	}
	val, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	return val, nil
}

// Set stores value under key with the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	if c == nil {
		return nil
	}
	if err := c.rdb.Set(ctx, key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Flush removes every entry in the cache's namespace. Called after
// ingestion and on shutdown so stale listings never outlive the data.
func (c *Cache) Flush(ctx context.Context) error {
	if c == nil {
		return nil
	}

	var cursor uint64
	pattern := c.prefix + ":*"
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("cache scan: %w", err)
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("cache del: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Ping reports whether Redis is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return errors.New("cache disabled")
	}
	return c.rdb.Ping(ctx).Err()
}

// Enabled reports whether a Redis connection is configured.
func (c *Cache) Enabled() bool {
	return c != nil
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
