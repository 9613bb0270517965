// Package metrics provides Prometheus metrics for loyalty SDK operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for SDK operations.
type Metrics struct {
	enabled bool

	// Request metrics
	requestsTotal   *prometheus.CounterVec
	requestDuration prometheus.Histogram

	// Query cache metrics
	cacheHitsTotal   *prometheus.CounterVec
	cacheMissTotal   *prometheus.CounterVec
	cacheResetsTotal *prometheus.CounterVec
	cacheEntries     prometheus.Gauge

	// Session metrics
	authFailuresTotal     *prometheus.CounterVec
	tokenResolutionsTotal prometheus.Counter

	// Realtime metrics
	realtimeEventsTotal *prometheus.CounterVec
}

// New creates and registers Prometheus metrics.
// If enabled is false, returns a no-op Metrics instance.
func New(enabled bool) *Metrics {
	m := &Metrics{enabled: enabled}

	if !enabled {
		return m
	}

	m.requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loyalty_requests_total",
		Help: "Total API requests by entity, operation and result",
	}, []string{"entity", "operation", "result"})

	m.requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "loyalty_request_duration_seconds",
		Help:    "API request duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	m.cacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loyalty_cache_hits_total",
		Help: "Total query cache hits",
	}, []string{"entity"})

	m.cacheMissTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loyalty_cache_misses_total",
		Help: "Total query cache misses",
	}, []string{"entity"})

	m.cacheResetsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loyalty_cache_resets_total",
		Help: "Total full cache resets triggered by mutations",
	}, []string{"entity"})

	m.cacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "loyalty_cache_entries",
		Help: "Current number of entries in the query cache",
	})

	m.authFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loyalty_auth_failures_total",
		Help: "Total authentication failures",
	}, []string{"reason"})

	m.tokenResolutionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_token_resolutions_total",
		Help: "Total session token resolutions (misses on the token lease)",
	})

	m.realtimeEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loyalty_realtime_events_total",
		Help: "Total realtime push events received",
	}, []string{"type"})

	return m
}

// RecordRequest records an API request outcome and duration.
func (m *Metrics) RecordRequest(entity, operation, result string, durationSeconds float64) {
	if !m.enabled {
		return
	}
	m.requestsTotal.WithLabelValues(entity, operation, result).Inc()
	m.requestDuration.Observe(durationSeconds)
}

// RecordCacheHit records a query cache hit.
func (m *Metrics) RecordCacheHit(entity string) {
	if !m.enabled {
		return
	}
	m.cacheHitsTotal.WithLabelValues(entity).Inc()
}

// RecordCacheMiss records a query cache miss.
func (m *Metrics) RecordCacheMiss(entity string) {
	if !m.enabled {
		return
	}
	m.cacheMissTotal.WithLabelValues(entity).Inc()
}

// RecordCacheReset records a full cache reset for an entity.
func (m *Metrics) RecordCacheReset(entity string) {
	if !m.enabled {
		return
	}
	m.cacheResetsTotal.WithLabelValues(entity).Inc()
}

// SetCacheSize sets the current cache size.
func (m *Metrics) SetCacheSize(size float64) {
	if !m.enabled {
		return
	}
	m.cacheEntries.Set(size)
}

// RecordAuthFailure records a failed authentication.
func (m *Metrics) RecordAuthFailure(reason string) {
	if !m.enabled {
		return
	}
	m.authFailuresTotal.WithLabelValues(reason).Inc()
}

// RecordTokenResolution records a session token resolution.
func (m *Metrics) RecordTokenResolution() {
	if !m.enabled {
		return
	}
	m.tokenResolutionsTotal.Inc()
}

// RecordRealtimeEvent records an inbound push event.
func (m *Metrics) RecordRealtimeEvent(eventType string) {
	if !m.enabled {
		return
	}
	m.realtimeEventsTotal.WithLabelValues(eventType).Inc()
}
