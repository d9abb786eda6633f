// Package cache provides in-memory TTL caching for upstream API responses.
//
// Each TTL cache is an independent table: entries are never shared between
// tables, never mutated after insertion, and an expired entry is treated
// exactly like a missing one.
package cache

import "time"

// Entry is a cached value together with its absolute expiry time.
type Entry[V any] struct {
	Value     V
	ExpiresAt time.Time
}

// Valid reports whether the entry is still usable at now.
func (e Entry[V]) Valid(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Reader defines the interface for reading cache entries
type Reader[V any] interface {
	// Get returns the value for key and true if present and not expired
	Get(key string) (V, bool)
}

// Writer defines the interface for writing cache entries
type Writer[V any] interface {
	// Set stores value under key, replacing any previous entry
	Set(key string, value V)
}

// Cache combines both cache operations
type Cache[V any] interface {
	Reader[V]
	Writer[V]
	Len() int
}

// Metrics receives hit/miss notifications from a cache table.
type Metrics interface {
	Hit()
	Miss()
}

// NoopMetrics discards all notifications.
type NoopMetrics struct{}

func (NoopMetrics) Hit()  {}
func (NoopMetrics) Miss() {}

var _ Metrics = NoopMetrics{}
