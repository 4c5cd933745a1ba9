package ports

import (
	"context"
	"time"

	"github.com/fsscore/zonescore/internal/domain"
)

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus or OpenTelemetry.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// This is useful for tracking events like report outcomes and fetch errors.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	// This is useful for tracking distributions like zone scores.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// Metric names shared between the report pipeline and collectors.
const (
	MetricReportsTotal       = "reports_total"
	MetricReportDuration     = "report_generation"
	MetricSourceFetchTotal   = "source_fetch_total"
	MetricSourceFetchLatency = "source_fetch"
	MetricScoredZones        = "scored_zones"
	MetricExcludedSnapshots  = "excluded_snapshots_total"
	MetricZoneScore          = "zone_score"
)

// ReportKind names the two report types.
type ReportKind string

const (
	ReportStudent   ReportKind = "student"
	ReportPrincipal ReportKind = "principal"
)

// ReportOutcome summarizes a finished report request for observers.
type ReportOutcome struct {
	// AnalyzedSnapshots counts the snapshots that contributed zone data.
	AnalyzedSnapshots int

	// ExcludedSnapshots counts requested snapshots without zone data.
	ExcludedSnapshots int

	// ScoredZones counts the zones that carried a score.
	ScoredZones int

	// Scores holds the zone scores surfaced by the report.
	Scores []float64

	// Err is the error returned to the caller, if any.
	Err error
}

// ReportObserver receives lifecycle hooks around report generation so that
// tracing and metrics stay out of the report logic.
type ReportObserver interface {
	// ReportStarted is called before any record is fetched. The returned
	// context carries observer state (such as a span) into the fetches and
	// the returned function must be called exactly once with the outcome.
	ReportStarted(
		ctx context.Context,
		kind ReportKind,
		snapshotIDs []domain.SnapshotID,
	) (context.Context, func(ReportOutcome))
}
