package metrics

import (
	"testing"
)

// Global metrics instance (reused across enabled tests to avoid Prometheus registry conflicts)
var globalMetrics *Metrics

func init() {
	globalMetrics = New(true)
}

func TestMetricsEnabled(t *testing.T) {
	if globalMetrics == nil {
		t.Fatal("metrics should not be nil")
	}
}

func TestMetricsDisabled(t *testing.T) {
	metrics := New(false)

	if metrics == nil {
		t.Fatal("metrics should not be nil (noop)")
	}

	// These should not panic even though they're noop
	metrics.RecordRequest("users", "getAll", "ok", 0.01)
	metrics.RecordCacheHit("users")
	metrics.RecordCacheMiss("badges")
	metrics.RecordCacheReset("users")
	metrics.SetCacheSize(42)
	metrics.RecordAuthFailure("unauthenticated")
	metrics.RecordTokenResolution()
	metrics.RecordRealtimeEvent("achievement.unlocked")
}

func TestRecordRequest(t *testing.T) {
	// Should not panic
	globalMetrics.RecordRequest("users", "getAll", "ok", 0.001)
	globalMetrics.RecordRequest("payments", "create", "error", 0.2)
}

func TestRecordCacheMetrics(t *testing.T) {
	// Should not panic
	globalMetrics.RecordCacheHit("users")
	globalMetrics.RecordCacheMiss("users")
	globalMetrics.RecordCacheReset("users")
	globalMetrics.SetCacheSize(10)
}

func TestRecordSessionMetrics(t *testing.T) {
	// Should not panic
	globalMetrics.RecordAuthFailure("unauthenticated")
	globalMetrics.RecordTokenResolution()
}

func TestRecordRealtimeEvent(t *testing.T) {
	// Should not panic
	globalMetrics.RecordRealtimeEvent("achievement.unlocked")
	globalMetrics.RecordRealtimeEvent("badge.unlocked")
}
