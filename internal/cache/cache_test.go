package cache

import (
	"context"
	"errors"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	c := &Cache{prefix: "biblio-cache"}

	t.Run("stable across parameter order", func(t *testing.T) {
		a := c.Key("/api/books/1/search", url.Values{"query": {"болото"}, "page": {"2"}, "limit": {"5"}})
		b := c.Key("/api/books/1/search", url.Values{"limit": {"5"}, "page": {"2"}, "query": {"болото"}})
		if a != b {
			t.Errorf("keys differ for same request: %q vs %q", a, b)
		}
	})

	t.Run("distinct for different paths", func(t *testing.T) {
		a := c.Key("/api/books/1/search", url.Values{"query": {"болото"}})
		b := c.Key("/api/books/2/search", url.Values{"query": {"болото"}})
		if a == b {
			t.Error("keys collide for different paths")
		}
	})

	t.Run("distinct for different parameters", func(t *testing.T) {
		a := c.Key("/api/books/1/search", url.Values{"query": {"болото"}, "page": {"1"}})
		b := c.Key("/api/books/1/search", url.Values{"query": {"болото"}, "page": {"2"}})
		if a == b {
			t.Error("keys collide for different parameters")
		}
	})

	t.Run("prefixed", func(t *testing.T) {
		key := c.Key("/api/books", nil)
		if !strings.HasPrefix(key, "biblio-cache:") {
			t.Errorf("key %q missing prefix", key)
		}
	})
}

func TestDisabledCache(t *testing.T) {
	ctx := context.Background()
	var c *Cache

	if c.Enabled() {
		t.Error("nil cache should report disabled")
	}
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Errorf("Get on nil cache = %v, want ErrMiss", err)
	}
	if err := c.Set(ctx, "k", []byte("v")); err != nil {
		t.Errorf("Set on nil cache = %v, want nil", err)
	}
	if err := c.Flush(ctx); err != nil {
		t.Errorf("Flush on nil cache = %v, want nil", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close on nil cache = %v, want nil", err)
	}
}

func TestCacheIntegration(t *testing.T) {
	redisURL := os.Getenv("BIBLIO_TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("BIBLIO_TEST_REDIS_URL not set")
	}

	ctx := context.Background()
	c, err := New(ctx, Config{URL: redisURL, Prefix: "biblio-cache-test", TTL: time.Minute})
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	defer c.Close()
	defer c.Flush(ctx)

	key := c.Key("/api/books", nil)

	t.Run("miss before set", func(t *testing.T) {
		if _, err := c.Get(ctx, key); !errors.Is(err, ErrMiss) {
			t.Errorf("Get = %v, want ErrMiss", err)
		}
	})

	t.Run("hit after set", func(t *testing.T) {
		if err := c.Set(ctx, key, []byte(`{"items":[]}`)); err != nil {
			t.Fatalf("Set: %v", err)
		}
		got, err := c.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if string(got) != `{"items":[]}` {
			t.Errorf("Get = %q", got)
		}
	})

	t.Run("miss after flush", func(t *testing.T) {
		if err := c.Flush(ctx); err != nil {
			t.Fatalf("Flush: %v", err)
		}
		if _, err := c.Get(ctx, key); !errors.Is(err, ErrMiss) {
			t.Errorf("Get after flush = %v, want ErrMiss", err)
		}
	})
}
