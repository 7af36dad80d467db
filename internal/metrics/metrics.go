// Package metrics exposes Prometheus instrumentation for the import
// pipeline. All collectors are registered on a private registry so tests can
// create as many instances as they like.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the service records into.
type Metrics struct {
	registry *prometheus.Registry

	BatchesTotal   *prometheus.CounterVec
	RowsTotal      *prometheus.CounterVec
	ActiveImports  prometheus.Gauge
	ProcessSeconds prometheus.Histogram
}

// New creates and registers all collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		BatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Subsystem: "import",
			Name:      "batches_total",
			Help:      "Completed import batches by terminal status.",
		}, []string{"status"}),
		RowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Subsystem: "import",
			Name:      "rows_total",
			Help:      "Rows handled across all batches, by disposition.",
		}, []string{"disposition"}),
		ActiveImports: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "crm",
			Subsystem: "import",
			Name:      "active_batches",
			Help:      "Batches currently in the processing phase.",
		}),
		ProcessSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "crm",
			Subsystem: "import",
			Name:      "process_duration_seconds",
			Help:      "Wall time of the reconciliation phase per batch.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}

	reg.MustRegister(m.BatchesTotal, m.RowsTotal, m.ActiveImports, m.ProcessSeconds)
	return m
}

// RecordBatch records the outcome counts of one completed batch.
func (m *Metrics) RecordBatch(status string, imported, updated, skipped, duplicates int) {
	m.BatchesTotal.WithLabelValues(status).Inc()
	m.RowsTotal.WithLabelValues("imported").Add(float64(imported))
	m.RowsTotal.WithLabelValues("updated").Add(float64(updated))
	m.RowsTotal.WithLabelValues("skipped").Add(float64(skipped))
	m.RowsTotal.WithLabelValues("duplicates").Add(float64(duplicates))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
