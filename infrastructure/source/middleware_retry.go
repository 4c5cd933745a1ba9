package source

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/fsscore/zonescore/internal/domain"
	"github.com/fsscore/zonescore/internal/ports"
)

// RetryMiddleware creates middleware that retries retryable fetch failures
// with exponential backoff and jitter. Only errors for which
// ports.IsRetryable reports true are retried; invalid records and open
// circuits fail immediately.
func RetryMiddleware(maxRetries int, baseDelay, maxDelay time.Duration) Middleware {
	r := &retrier{maxRetries: maxRetries, baseDelay: baseDelay, maxDelay: maxDelay}
	return intercepting(r.run)
}

type retrier struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

func (r *retrier) run(ctx context.Context, op string, snapshotID domain.SnapshotID, fetch call) error {
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		err := fetch(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !ports.IsRetryable(err) || ctx.Err() != nil || attempt == r.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ports.NewSourceError(op, snapshotID, ctx.Err())
		case <-time.After(r.delay(attempt)):
		}
	}

	if !ports.IsRetryable(lastErr) {
		return lastErr
	}
	return fmt.Errorf("fetch failed after %d attempts: %w", r.maxRetries+1, lastErr)
}

func (r *retrier) delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		attempt = 30
	}
	// #nosec G115 - attempt is bounded between 0 and 30
	d := time.Duration(float64(r.baseDelay) * float64(uint64(1)<<uint(attempt)))

	// Jitter of ±25%.
	// #nosec G404 - weak RNG is fine for jitter
	jitter := time.Duration(rand.Float64() * float64(d) * 0.5)
	d = d + jitter - d/4

	if d > r.maxDelay {
		d = r.maxDelay
	}
	return d
}
