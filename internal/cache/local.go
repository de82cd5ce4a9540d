package cache

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto"
)

// Local is an in-process cache for single-replica deployments.
type Local struct {
	c *ristretto.Cache
}

// NewLocal sizes the cache to maxBytes of stored values.
func NewLocal(maxBytes int64) (*Local, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Local{c: c}, nil
}

func (l *Local) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := l.c.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, ErrMiss
	}
	return b, nil
}

// Set waits for the write to be applied so a following Get observes it.
func (l *Local) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	l.c.SetWithTTL(key, value, int64(len(value)), ttl)
	l.c.Wait()
	return nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	l.c.Del(key)
	return nil
}

func (l *Local) Close() error {
	l.c.Close()
	return nil
}
