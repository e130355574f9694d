// Package ratelimit implements the generic host-cooldown scheduling
// primitive described in spec §4.4: given a batch of URLs, run work on up
// to maxConcurrent of them at a time, never touching the same host more
// often than domainCooldown allows.
package ratelimit

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"feedmill/internal/observability/metrics"
)

// Item is one unit of work: an opaque id plus the URL whose host governs
// its cooldown.
type Item struct {
	ID  int64
	URL string
}

// Config holds the limiter's tunables (spec §4.4).
type Config struct {
	MaxConcurrent  int
	GlobalCooldown time.Duration
	DomainCooldown time.Duration
}

// Limiter tracks the last-access time per host across calls to ProcessBatch.
// Safe for concurrent use.
type Limiter struct {
	cfg Config

	mu         sync.Mutex
	lastAccess map[string]time.Time
}

func New(cfg Config) *Limiter {
	return &Limiter{cfg: cfg, lastAccess: make(map[string]time.Time)}
}

// Work is run for a ready item. Its returned error is treated the way the
// teacher's errgroup-based fan-out treats per-item errors: logged and
// discarded, never aborting the batch (spec §4.4: "discard rejected ones").
type Work[T any] func(ctx context.Context, item Item, host string) (T, error)

// ProcessBatch runs work over items under the limiter's concurrency and
// per-host cooldown constraints, in the order described by spec §4.4.
// sleepFn is injected so tests and durable orchestrators can control time.
func ProcessBatch[T any](ctx context.Context, l *Limiter, items []Item, sleepFn Sleeper, work Work[T]) ([]T, error) {
	pending := make([]Item, 0, len(items))
	hosts := make(map[int64]string, len(items))
	for _, item := range items {
		host, ok := hostOf(item.URL)
		if !ok {
			continue
		}
		hosts[item.ID] = host
		pending = append(pending, item)
	}

	var results []T
	for len(pending) > 0 {
		ready, wait := l.selectReady(pending, hosts)

		if len(ready) == 0 {
			sleepFor := wait
			if sleepFor < 500*time.Millisecond {
				sleepFor = 500 * time.Millisecond
			}
			metrics.RecordRateLimiterWait(sleepFor)
			if err := sleepFn(ctx, sleepFor); err != nil {
				return results, err
			}
			continue
		}

		metrics.RecordRateLimiterBatch(len(ready))
		batchResults, err := runReady(ctx, ready, hosts, work)
		if err != nil {
			return results, err
		}
		results = append(results, batchResults...)

		pending = remaining(pending, ready)
		if len(pending) > 0 {
			if err := sleepFn(ctx, l.cfg.GlobalCooldown); err != nil {
				return results, err
			}
		}
	}

	return results, nil
}

// selectReady picks up to MaxConcurrent items whose host cooldown has
// elapsed, marking their host's last-access to now as it selects them so
// concurrent selections within the same call never double-book a host.
func (l *Limiter) selectReady(pending []Item, hosts map[int64]string) ([]Item, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	var ready []Item
	minWait := time.Duration(-1)

	for _, item := range pending {
		host := hosts[item.ID]
		last, seen := l.lastAccess[host]
		if !seen {
			last = time.Time{}
		}

		elapsed := now.Sub(last)
		if elapsed >= l.cfg.DomainCooldown {
			ready = append(ready, item)
			l.lastAccess[host] = now
			if len(ready) >= l.cfg.MaxConcurrent {
				break
			}
			continue
		}

		remainingWait := l.cfg.DomainCooldown - elapsed
		if minWait < 0 || remainingWait < minWait {
			minWait = remainingWait
		}
	}

	if minWait < 0 {
		minWait = 0
	}
	return ready, minWait
}

func runReady[T any](ctx context.Context, ready []Item, hosts map[int64]string, work Work[T]) ([]T, error) {
	eg, egCtx := errgroup.WithContext(ctx)
	results := make([]T, len(ready))
	ok := make([]bool, len(ready))

	for i, item := range ready {
		i, item := i, item
		eg.Go(func() error {
			result, err := work(egCtx, item, hosts[item.ID])
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				return nil
			}
			results[i] = result
			ok[i] = true
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	fulfilled := make([]T, 0, len(results))
	for i, fine := range ok {
		if fine {
			fulfilled = append(fulfilled, results[i])
		}
	}
	return fulfilled, nil
}

func remaining(pending, ready []Item) []Item {
	done := make(map[int64]bool, len(ready))
	for _, item := range ready {
		done[item.ID] = true
	}
	out := make([]Item, 0, len(pending)-len(ready))
	for _, item := range pending {
		if !done[item.ID] {
			out = append(out, item)
		}
	}
	return out
}

func hostOf(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", false
	}
	return u.Hostname(), true
}
