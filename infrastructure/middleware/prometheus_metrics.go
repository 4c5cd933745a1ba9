// Package middleware provides the observability adapters of the report
// pipeline: a Prometheus MetricsCollector and an OpenTelemetry report
// observer.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fsscore/zonescore/internal/ports"
)

// namespace prefixes every metric exported by this package.
const namespace = "zonescore"

// PrometheusMetrics implements the MetricsCollector interface using Prometheus.
// It tracks report outcomes and latency, record source fetches, and the
// distribution of zone scores surfaced in reports.
type PrometheusMetrics struct {
	reportsTotal      *prometheus.CounterVec
	reportDuration    *prometheus.HistogramVec
	fetchTotal        *prometheus.CounterVec
	fetchDuration     *prometheus.HistogramVec
	excludedSnapshots *prometheus.CounterVec
	zoneScores        *prometheus.HistogramVec
	executionLatency  *prometheus.HistogramVec
	operationCounter  *prometheus.CounterVec
	systemGauges      *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance and registers
// all metrics with reg. A nil reg uses the default Prometheus registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		// Report metrics.
		reportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reports_total",
				Help:      "Total number of report requests by type and outcome.",
			},
			[]string{"report_type", "status"},
		),
		reportDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "report_generation_duration_seconds",
				Help:      "Time taken to fetch records and build a report.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"report_type", "status"},
		),
		excludedSnapshots: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "excluded_snapshots_total",
				Help:      "Snapshots requested for a principal report that had no zone data.",
			},
			[]string{"report_type"},
		),
		zoneScores: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "zone_score",
				Help:      "Distribution of zone scores surfaced in reports.",
				Buckets:   prometheus.LinearBuckets(10, 10, 10),
			},
			[]string{"report_type"},
		),

		// Record source metrics.
		fetchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_fetch_total",
				Help:      "Total number of record source fetches by operation and outcome.",
			},
			[]string{"operation", "status"},
		),
		fetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "source_fetch_duration_seconds",
				Help:      "Latency of record source fetches.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "status"},
		),

		// Fallbacks for metrics without a dedicated vector.
		executionLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Execution time of other operations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of other counted events.",
			},
			[]string{"metric", "status"},
		),
		systemGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "system_state",
				Help:      "Last observed values such as the scored zone count of a report.",
			},
			[]string{"metric", "report_type"},
		),
	}
}

// label returns labels[key] or "unknown" when it is missing or empty.
func label(labels map[string]string, key string) string {
	if v, ok := labels[key]; ok && v != "" {
		return v
	}
	return "unknown"
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	switch operation {
	case ports.MetricReportDuration:
		pm.reportDuration.WithLabelValues(label(labels, "report_type"), label(labels, "status")).
			Observe(duration.Seconds())
	case ports.MetricSourceFetchLatency:
		pm.fetchDuration.WithLabelValues(label(labels, "operation"), label(labels, "status")).
			Observe(duration.Seconds())
	default:
		pm.executionLatency.WithLabelValues(operation).Observe(duration.Seconds())
	}
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case ports.MetricReportsTotal:
		pm.reportsTotal.WithLabelValues(label(labels, "report_type"), label(labels, "status")).Add(value)
	case ports.MetricSourceFetchTotal:
		pm.fetchTotal.WithLabelValues(label(labels, "operation"), label(labels, "status")).Add(value)
	case ports.MetricExcludedSnapshots:
		pm.excludedSnapshots.WithLabelValues(label(labels, "report_type")).Add(value)
	default:
		status, ok := labels["status"]
		if !ok {
			status = "success"
		}
		pm.operationCounter.WithLabelValues(metric, status).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	pm.systemGauges.WithLabelValues(metric, label(labels, "report_type")).Set(value)
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case ports.MetricZoneScore:
		pm.zoneScores.WithLabelValues(label(labels, "report_type")).Observe(value)
	default:
		pm.executionLatency.WithLabelValues(metric).Observe(value)
	}
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
