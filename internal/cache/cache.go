// Package cache stores serialised aggregation results for a short TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/web3-frozen/aptos-yield-monitor/internal/metrics"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Cache is a byte store with per-key expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open returns a Redis cache when redisURL is set and reachable, and an
// in-process cache otherwise.
func Open(redisURL, password string, logger *slog.Logger) Cache {
	if redisURL != "" {
		r, err := NewRedis(redisURL, password)
		if err == nil {
			logger.Info("cache: redis connected")
			return r
		}
		logger.Warn("cache: redis unavailable, using local cache", "error", err)
	}
	l, err := NewLocal(1 << 26)
	if err != nil {
		// only reachable with an invalid ristretto config
		panic(err)
	}
	return l
}

// GetJSON decodes the value at key into v and reports whether it was found.
// Corrupt entries count as misses.
func GetJSON(ctx context.Context, c Cache, key string, v any) bool {
	b, err := c.Get(ctx, key)
	if err != nil {
		metrics.CacheRequestsTotal.WithLabelValues(key, "miss").Inc()
		return false
	}
	if err := json.Unmarshal(b, v); err != nil {
		metrics.CacheRequestsTotal.WithLabelValues(key, "corrupt").Inc()
		return false
	}
	metrics.CacheRequestsTotal.WithLabelValues(key, "hit").Inc()
	return true
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, b, ttl)
}
