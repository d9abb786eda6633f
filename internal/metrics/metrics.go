// Package metrics exports cache and upstream counters to Prometheus.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/briangreenhill/shelfscout/cache"
	"github.com/briangreenhill/shelfscout/openlibrary"
)

// Metrics holds the collectors shared by the cache tables and the upstream
// client. All Prometheus metric types are goroutine-safe.
type Metrics struct {
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	attempts    *prometheus.CounterVec
	retries     *prometheus.CounterVec
}

// New registers the collectors with reg (nil => prometheus.DefaultRegisterer).
func New(reg prometheus.Registerer, namespace string) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Cache hits by family",
		}, []string{"family"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Cache misses by family",
		}, []string{"family"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "attempts_total",
			Help:      "Upstream HTTP attempts by status (0 = no response)",
		}, []string{"status"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "retries_total",
			Help:      "Upstream retries by triggering status",
		}, []string{"status"}),
	}
	reg.MustRegister(m.cacheHits, m.cacheMisses, m.attempts, m.retries)
	return m
}

// CacheFamily returns the hit/miss sink for one cache table.
func (m *Metrics) CacheFamily(family string) cache.Metrics {
	return familyMetrics{
		hits:   m.cacheHits.WithLabelValues(family),
		misses: m.cacheMisses.WithLabelValues(family),
	}
}

// ObserveAttempt implements openlibrary.Observer.
func (m *Metrics) ObserveAttempt(status int) {
	m.attempts.WithLabelValues(strconv.Itoa(status)).Inc()
}

// ObserveRetry implements openlibrary.Observer.
func (m *Metrics) ObserveRetry(status int) {
	m.retries.WithLabelValues(strconv.Itoa(status)).Inc()
}

type familyMetrics struct {
	hits, misses prometheus.Counter
}

func (f familyMetrics) Hit()  { f.hits.Inc() }
func (f familyMetrics) Miss() { f.misses.Inc() }

var (
	_ cache.Metrics        = familyMetrics{}
	_ openlibrary.Observer = (*Metrics)(nil)
)
