package source

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/fsscore/zonescore/internal/domain"
	"github.com/fsscore/zonescore/internal/ports"
)

// RateLimitMiddleware creates middleware that paces fetches with a token
// bucket. The limit sets fetches per second and burst allows short spikes
// above it. All three fetch operations share one bucket.
//
// A fetch that cannot obtain a token before its context ends fails with a
// SourceError wrapping ports.ErrRateLimited.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, burst)

	return intercepting(func(ctx context.Context, op string, snapshotID domain.SnapshotID, fetch call) error {
		if err := limiter.Wait(ctx); err != nil {
			return ports.NewSourceError(op, snapshotID, fmt.Errorf("%w: %w", ports.ErrRateLimited, err))
		}
		return fetch(ctx)
	})
}
