package middleware

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fsscore/zonescore/internal/domain"
	"github.com/fsscore/zonescore/internal/ports"
)

var _ ports.ReportObserver = (*OTelReportObserver)(nil)

// OTelReportObserver implements observability for report generation using
// OpenTelemetry tracing. It opens a span per report, annotates it with the
// requested snapshots and the outcome, and forwards latency, outcome and
// zone score metrics to a MetricsCollector.
type OTelReportObserver struct {
	metrics ports.MetricsCollector
	tracer  trace.Tracer
	now     func() time.Time
}

// NewOTelReportObserver creates a report observer. A nil metrics collector
// disables metrics while keeping tracing.
func NewOTelReportObserver(metrics ports.MetricsCollector) *OTelReportObserver {
	return &OTelReportObserver{
		metrics: metrics,
		tracer:  otel.Tracer("github.com/fsscore/zonescore/report"),
		now:     time.Now,
	}
}

// ReportStarted implements the ReportObserver interface. It starts a span
// named after the report kind and returns the function that ends it.
func (o *OTelReportObserver) ReportStarted(
	ctx context.Context,
	kind ports.ReportKind,
	snapshotIDs []domain.SnapshotID,
) (context.Context, func(ports.ReportOutcome)) {
	ids := make([]int64, len(snapshotIDs))
	for i, id := range snapshotIDs {
		ids[i] = int64(id)
	}

	ctx, span := o.tracer.Start(ctx, "ReportService."+string(kind),
		trace.WithAttributes(
			attribute.String("report.type", string(kind)),
			attribute.Int64Slice("report.snapshot_ids", ids),
		),
	)
	start := o.now()

	return ctx, func(outcome ports.ReportOutcome) {
		defer span.End()
		o.finish(span, kind, o.now().Sub(start), outcome)
	}
}

// finish annotates the span and records metrics for a finished report.
func (o *OTelReportObserver) finish(
	span trace.Span,
	kind ports.ReportKind,
	elapsed time.Duration,
	outcome ports.ReportOutcome,
) {
	status := ReportStatus(outcome.Err)

	span.SetAttributes(
		attribute.String("report.status", status),
		attribute.Int("report.analyzed_snapshots", outcome.AnalyzedSnapshots),
		attribute.Int("report.excluded_snapshots", outcome.ExcludedSnapshots),
		attribute.Int("report.scored_zones", outcome.ScoredZones),
	)

	if o.metrics != nil {
		labels := map[string]string{"report_type": string(kind), "status": status}
		o.metrics.RecordLatency(ports.MetricReportDuration, elapsed, labels)
		o.metrics.RecordCounter(ports.MetricReportsTotal, 1, labels)
	}

	if outcome.Err != nil {
		var nd *domain.NoDataError
		if errors.As(outcome.Err, &nd) {
			// An empty result is an expected outcome, not a span error.
			span.AddEvent("report.no_data", trace.WithAttributes(
				attribute.String("reason", string(nd.Reason)),
			))
			span.SetStatus(codes.Unset, "")
			return
		}
		span.RecordError(outcome.Err)
		span.SetStatus(codes.Error, outcome.Err.Error())
		return
	}

	if o.metrics != nil {
		labels := map[string]string{"report_type": string(kind)}
		o.metrics.RecordGauge(ports.MetricScoredZones, float64(outcome.ScoredZones), labels)
		if outcome.ExcludedSnapshots > 0 {
			o.metrics.RecordCounter(ports.MetricExcludedSnapshots, float64(outcome.ExcludedSnapshots), labels)
		}
		for _, s := range outcome.Scores {
			o.metrics.RecordHistogram(ports.MetricZoneScore, s, labels)
		}
	}

	span.AddEvent("report.generated", trace.WithAttributes(
		attribute.Int("zones_reported", len(outcome.Scores)),
	))
	span.SetStatus(codes.Ok, "report generated")
}

// ReportStatus maps a report error to a low-cardinality status label.
func ReportStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrNoData):
		return "no_data"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ports.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, new(*ports.SourceError)):
		return "source_error"
	default:
		return "error"
	}
}
