// Package observability provides Prometheus metrics for the credential
// manager. The collector is nil-safe: a nil *MetricsCollector records
// nothing, so components take it unconditionally and a single nil check
// per operation disables the feature.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector holds all Prometheus metrics, registered on a custom
// registry — no global state.
type MetricsCollector struct {
	Registry *prometheus.Registry

	// Vault storage metrics.
	StorageOpsTotal *prometheus.CounterVec

	// Permission gate metrics. Bypass releases are a separate result so
	// operator-forced access is never mistaken for a user grant.
	PermissionDecisionsTotal *prometheus.CounterVec

	// Interactive collection metrics.
	CollectionsTotal   *prometheus.CounterVec
	CollectionDuration prometheus.Histogram
	SecretsStoredTotal prometheus.Counter
}

// NewMetricsCollector creates a MetricsCollector with all metrics
// registered on a fresh prometheus.Registry.
func NewMetricsCollector() *MetricsCollector {
	reg := prometheus.NewRegistry()

	m := &MetricsCollector{
		Registry: reg,

		StorageOpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mcp_secrets",
			Subsystem: "storage",
			Name:      "operations_total",
			Help:      "Total credential vault operations.",
		}, []string{"op", "status"}),

		PermissionDecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mcp_secrets",
			Subsystem: "permission",
			Name:      "decisions_total",
			Help:      "Permission gate decisions by result.",
		}, []string{"result"}),

		CollectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mcp_secrets",
			Subsystem: "collection",
			Name:      "attempts_total",
			Help:      "Interactive collection attempts by outcome.",
		}, []string{"outcome"}),

		CollectionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mcp_secrets",
			Subsystem: "collection",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of collection attempts.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
		}),

		SecretsStoredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mcp_secrets",
			Subsystem: "collection",
			Name:      "secrets_stored_total",
			Help:      "Secrets written by successful collections.",
		}),
	}

	reg.MustRegister(
		m.StorageOpsTotal,
		m.PermissionDecisionsTotal,
		m.CollectionsTotal,
		m.CollectionDuration,
		m.SecretsStoredTotal,
	)

	return m
}

// RecordStorageOp records one vault operation.
func (m *MetricsCollector) RecordStorageOp(op string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.StorageOpsTotal.WithLabelValues(op, status).Inc()
}

// RecordPermissionDecision records one gate decision. Results:
// "granted", "granted_session", "cached_session", "bypass", "denied".
func (m *MetricsCollector) RecordPermissionDecision(result string) {
	if m == nil {
		return
	}
	m.PermissionDecisionsTotal.WithLabelValues(result).Inc()
}

// RecordCollection records one collection attempt. Outcomes: "success",
// "cancelled", "failed".
func (m *MetricsCollector) RecordCollection(outcome string, elapsed time.Duration, stored int) {
	if m == nil {
		return
	}
	m.CollectionsTotal.WithLabelValues(outcome).Inc()
	m.CollectionDuration.Observe(elapsed.Seconds())
	if stored > 0 {
		m.SecretsStoredTotal.Add(float64(stored))
	}
}
