package ratelimit

import (
	"context"
	"time"
)

// Sleeper is the sleepFn contract from spec §4.4: injected so the limiter
// works identically under a real clock and under a durable orchestrator
// that persists sleeps across restarts.
type Sleeper func(ctx context.Context, d time.Duration) error

// RealSleeper blocks for d or until ctx is cancelled, whichever comes first.
func RealSleeper(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
