// Package apithrottle wraps the teacher's sliding-window rate limiter
// (pkg/ratelimit, originally built for the admin HTTP API's per-IP/per-user
// limits) into a blocking "wait for a slot" call usable by outbound clients
// to external AI services. The teacher's contract is "decide allow/deny for
// an inbound request"; the enrichment worker instead wants to throttle its
// own outbound call rate, so Wait loops on IsAllowed and sleeps for the
// reported retry-after interval instead of returning a decision to a caller.
package apithrottle

import (
	"context"
	"fmt"
	"time"

	"feedmill/pkg/ratelimit"
)

// Throttle limits calls to a single named external service to limit calls
// per window.
type Throttle struct {
	algo   *ratelimit.SlidingWindowAlgorithm
	store  ratelimit.RateLimitStore
	key    string
	limit  int
	window time.Duration
}

// New builds a Throttle for an external service identified by key (e.g.
// "claude-api", "embeddings-service"), allowing limit calls per window.
func New(key string, limit int, window time.Duration) *Throttle {
	return &Throttle{
		algo:   ratelimit.NewSlidingWindowAlgorithm(&ratelimit.SystemClock{}),
		store:  ratelimit.NewInMemoryRateLimitStore(ratelimit.DefaultInMemoryStoreConfig()),
		key:    key,
		limit:  limit,
		window: window,
	}
}

// Wait blocks until a call slot is available, honoring ctx cancellation.
func (t *Throttle) Wait(ctx context.Context) error {
	for {
		decision, err := t.algo.IsAllowed(ctx, t.key, t.store, t.limit, t.window)
		if err != nil {
			return fmt.Errorf("apithrottle: %w", err)
		}
		if decision.IsAllowed() {
			return nil
		}

		retryAfter := time.Duration(decision.RetryAfterSeconds()) * time.Second
		if retryAfter <= 0 {
			retryAfter = 100 * time.Millisecond
		}
		select {
		case <-time.After(retryAfter):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
