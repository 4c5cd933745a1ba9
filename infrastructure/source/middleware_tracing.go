package source

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fsscore/zonescore/internal/domain"
)

// tracerName identifies spans emitted by record sources.
const tracerName = "github.com/fsscore/zonescore/source"

// TracingMiddleware creates middleware that wraps each fetch in an
// OpenTelemetry span named "source.<operation>". The span uses the global
// tracer provider, so it is a no-op until one is installed.
func TracingMiddleware() Middleware {
	tracer := otel.Tracer(tracerName)

	return intercepting(func(ctx context.Context, op string, snapshotID domain.SnapshotID, fetch call) error {
		ctx, span := tracer.Start(ctx, "source."+op,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("source.operation", op),
				attribute.Int("snapshot.id", int(snapshotID)),
			),
		)
		defer span.End()

		err := fetch(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	})
}
