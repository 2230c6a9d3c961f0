package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewProgressCacheSelectsDatabase(t *testing.T) {
	c := NewProgressCache("localhost:6379", "secret", 3, time.Minute)
	if !c.Enabled() {
		t.Fatal("cache with an address should be enabled")
	}
	opts := c.client.Options()
	if opts.Addr != "localhost:6379" {
		t.Fatalf("redis addr = %q, want localhost:6379", opts.Addr)
	}
	if opts.DB != 3 {
		t.Fatalf("redis db = %d, want 3", opts.DB)
	}
}

func TestDisabledCacheAlwaysMisses(t *testing.T) {
	c := NewProgressCache("", "", 0, 0)
	if c.Enabled() {
		t.Fatal("cache without an address should be disabled")
	}

	var dst map[string]any
	if err := c.Get(context.Background(), "abc123", &dst); !errors.Is(err, ErrMiss) {
		t.Fatalf("get on disabled cache = %v, want ErrMiss", err)
	}
	c.Set(context.Background(), "abc123", map[string]any{"status": "pending"})
	c.Invalidate(context.Background(), "abc123")
	if err := c.Close(); err != nil {
		t.Fatalf("close disabled cache: %v", err)
	}
}
