package source

import (
	"context"
	"errors"
	"time"

	"github.com/fsscore/zonescore/internal/domain"
	"github.com/fsscore/zonescore/internal/ports"
)

// MetricsMiddleware creates middleware that records fetch latency and
// outcome counts. A nil collector disables recording.
func MetricsMiddleware(collector ports.MetricsCollector) Middleware {
	return intercepting(func(ctx context.Context, op string, snapshotID domain.SnapshotID, fetch call) error {
		start := time.Now()
		err := fetch(ctx)

		if collector != nil {
			labels := map[string]string{
				"operation": op,
				"status":    fetchStatus(ctx, err),
			}
			collector.RecordLatency(ports.MetricSourceFetchLatency, time.Since(start), labels)
			collector.RecordCounter(ports.MetricSourceFetchTotal, 1, labels)
		}
		return err
	})
}

// fetchStatus maps a fetch outcome to a low-cardinality status label.
func fetchStatus(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, ports.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ports.ErrTimeout), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_record"
	default:
		return "error"
	}
}
