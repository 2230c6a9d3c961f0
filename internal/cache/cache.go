// Package cache provides an optional Redis-backed cache for public
// progress lookups. When no Redis address is configured the cache runs
// in disabled mode and every operation is a no-op, so callers never
// need to branch on availability.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// ErrMiss is returned by Get when no cached view exists for the key.
var ErrMiss = errors.New("cache: miss")

// ProgressCache stores rendered progress views keyed by request public ID.
type ProgressCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewProgressCache connects to Redis at addr, selecting the numbered
// database. An empty addr yields a disabled cache.
func NewProgressCache(addr, password string, db int, ttl time.Duration) *ProgressCache {
	if addr == "" {
		return &ProgressCache{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &ProgressCache{client: client, ttl: ttl}
}

// Enabled reports whether a Redis backend is configured.
func (c *ProgressCache) Enabled() bool {
	return c != nil && c.client != nil
}

func progressKey(publicID string) string {
	return fmt.Sprintf("progress:%s", publicID)
}

// Get loads the cached progress view into dst. Returns ErrMiss when the
// key is absent or the cache is disabled.
func (c *ProgressCache) Get(ctx context.Context, publicID string, dst any) error {
	if !c.Enabled() {
		return ErrMiss
	}
	raw, err := c.client.Get(ctx, progressKey(publicID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		return fmt.Errorf("cache: get progress %s: %w", publicID, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("cache: decode progress %s: %w", publicID, err)
	}
	return nil
}

// Set stores the progress view under the request public ID. Failures
// are logged and swallowed, a cold cache is never an error.
func (c *ProgressCache) Set(ctx context.Context, publicID string, view any) {
	if !c.Enabled() {
		return
	}
	raw, err := json.Marshal(view)
	if err != nil {
		log.WithError(err).Warn("failed to encode progress view for cache")
		return
	}
	if err := c.client.Set(ctx, progressKey(publicID), raw, c.ttl).Err(); err != nil {
		log.WithError(err).Warn("failed to cache progress view")
	}
}

// Invalidate drops the cached view for the request, called after any
// step transition or status change.
func (c *ProgressCache) Invalidate(ctx context.Context, publicID string) {
	if !c.Enabled() {
		return
	}
	if err := c.client.Del(ctx, progressKey(publicID)).Err(); err != nil {
		log.WithError(err).Warn("failed to invalidate cached progress view")
	}
}

// Close releases the underlying Redis connection.
func (c *ProgressCache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}
