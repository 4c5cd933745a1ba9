// Package source provides record sources and the middleware that wraps them.
//
// A RecordSource is composed from a backing store (memory, YAML file or
// PostgreSQL) and a chain of middleware that adds rate limiting, retries,
// timeouts, circuit breaking, metrics and tracing. Middleware is applied
// in reverse order so the first entry in the chain is the outermost
// wrapper:
//
//	src := source.Chain(store,
//	    source.TracingMiddleware(),
//	    source.MetricsMiddleware(collector),
//	    source.RetryMiddleware(3, 100*time.Millisecond, 2*time.Second),
//	    source.TimeoutMiddleware(5*time.Second),
//	    source.RateLimitMiddleware(50, 100),
//	)
package source

import (
	"context"

	"github.com/fsscore/zonescore/internal/domain"
	"github.com/fsscore/zonescore/internal/ports"
)

// Middleware wraps a RecordSource to add cross-cutting functionality.
// Middleware functions are composable and are applied in reverse order.
type Middleware func(ports.RecordSource) ports.RecordSource

// Chain wraps src with the given middleware. The first middleware becomes
// the outermost layer.
func Chain(src ports.RecordSource, middleware ...Middleware) ports.RecordSource {
	for i := len(middleware) - 1; i >= 0; i-- {
		src = middleware[i](src)
	}
	return src
}

// call performs one fetch against the wrapped source. The result is
// captured by the closure so interceptors stay independent of the record
// type.
type call func(ctx context.Context) error

// interceptor runs a fetch, possibly several times or not at all.
type interceptor func(ctx context.Context, op string, snapshotID domain.SnapshotID, fetch call) error

// interceptedSource adapts an interceptor to the three fetch operations of
// a RecordSource.
type interceptedSource struct {
	next      ports.RecordSource
	intercept interceptor
}

// intercepting builds a Middleware from an interceptor.
func intercepting(i interceptor) Middleware {
	return func(next ports.RecordSource) ports.RecordSource {
		return &interceptedSource{next: next, intercept: i}
	}
}

// FetchQuestions forwards the fetch through the interceptor.
func (s *interceptedSource) FetchQuestions(ctx context.Context, snapshotID domain.SnapshotID) ([]domain.Question, error) {
	var out []domain.Question
	err := s.intercept(ctx, ports.OpFetchQuestions, snapshotID, func(ctx context.Context) error {
		var err error
		out, err = s.next.FetchQuestions(ctx, snapshotID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FetchZones forwards the fetch through the interceptor.
func (s *interceptedSource) FetchZones(ctx context.Context, snapshotID domain.SnapshotID) ([]domain.Zone, error) {
	var out []domain.Zone
	err := s.intercept(ctx, ports.OpFetchZones, snapshotID, func(ctx context.Context) error {
		var err error
		out, err = s.next.FetchZones(ctx, snapshotID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FetchZoneMemberships forwards the fetch through the interceptor.
func (s *interceptedSource) FetchZoneMemberships(ctx context.Context, snapshotID domain.SnapshotID) ([]domain.ZoneMembership, error) {
	var out []domain.ZoneMembership
	err := s.intercept(ctx, ports.OpFetchZoneMemberships, snapshotID, func(ctx context.Context) error {
		var err error
		out, err = s.next.FetchZoneMemberships(ctx, snapshotID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
