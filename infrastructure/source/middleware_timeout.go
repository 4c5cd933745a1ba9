package source

import (
	"context"
	"errors"
	"time"

	"github.com/fsscore/zonescore/internal/domain"
	"github.com/fsscore/zonescore/internal/ports"
)

// TimeoutMiddleware creates middleware that bounds each fetch attempt.
// When the attempt's own deadline expires the error is reported as a
// SourceError wrapping ports.ErrTimeout, which the retry middleware treats
// as transient. Cancellation of the caller's context is passed through
// unchanged.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return intercepting(func(ctx context.Context, op string, snapshotID domain.SnapshotID, fetch call) error {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		err := fetch(attemptCtx)
		if err == nil {
			return nil
		}
		if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, ports.ErrTimeout) {
			return ports.NewSourceError(op, snapshotID, errors.Join(ports.ErrTimeout, err))
		}
		return err
	})
}
