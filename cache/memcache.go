package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// TTL is an in-memory cache table whose entries expire a fixed duration
// after they were written. It is safe for concurrent use.
//
// The table has no capacity bound and no LRU eviction: expired entries are
// dropped lazily on lookup or overwritten by the next write. The key space
// is expected to stay small over the process lifetime; a flood of distinct
// queries grows the table without limit.
type TTL[V any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[V]
	ttl     time.Duration

	now     func() time.Time
	metrics Metrics
	loads   singleflight.Group
}

type options struct {
	now     func() time.Time
	metrics Metrics
}

// Option configures a TTL cache.
type Option func(*options)

// WithClock overrides the time source; useful for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithMetrics reports hits and misses to m.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// NewTTL creates an empty table whose entries live for ttl.
func NewTTL[V any](ttl time.Duration, opts ...Option) *TTL[V] {
	o := options{now: time.Now, metrics: NoopMetrics{}}
	for _, fn := range opts {
		fn(&o)
	}
	return &TTL[V]{
		entries: make(map[string]Entry[V]),
		ttl:     ttl,
		now:     o.now,
		metrics: o.metrics,
	}
}

// Get returns the value for key if present and not expired.
func (c *TTL[V]) Get(key string) (V, bool) {
	now := c.now()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && e.Valid(now) {
		c.metrics.Hit()
		return e.Value, true
	}
	if ok {
		c.evict(key, now)
	}
	c.metrics.Miss()
	var zero V
	return zero, false
}

// evict removes key if it is still expired; a concurrent writer may have
// replaced it in the meantime.
func (c *TTL[V]) evict(key string, now time.Time) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && !e.Valid(now) {
		delete(c.entries, key)
	}
	c.mu.Unlock()
}

// Set stores value under key with expiresAt = now + ttl, unconditionally
// replacing any previous entry.
func (c *TTL[V]) Set(key string, value V) {
	e := Entry[V]{Value: value, ExpiresAt: c.now().Add(c.ttl)}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}

// Len returns the number of stored entries, including expired ones not yet
// evicted.
func (c *TTL[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetOrLoad returns the cached value for key, calling load on a miss and
// storing its result. Concurrent misses for the same key share one load.
// A failed load is returned to every waiting caller and nothing is stored.
//
// load runs detached from ctx cancellation: once started, the fetch and the
// cache write complete even if the caller goes away.
func (c *TTL[V]) GetOrLoad(ctx context.Context, key string, load func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	detached := context.WithoutCancel(ctx)
	ch := c.loads.DoChan(key, func() (any, error) {
		v, err := load(detached)
		if err != nil {
			return nil, err
		}
		c.Set(key, v)
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			var zero V
			return zero, res.Err
		}
		return res.Val.(V), nil
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

var _ Cache[int] = (*TTL[int])(nil)
