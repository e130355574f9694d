package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessBatch_DropsInvalidURLsSilently(t *testing.T) {
	l := New(Config{MaxConcurrent: 2, GlobalCooldown: time.Millisecond, DomainCooldown: time.Millisecond})
	items := []Item{{ID: 1, URL: "://not-a-url"}, {ID: 2, URL: "https://example.com/a"}}

	results, err := ProcessBatch(context.Background(), l, items, RealSleeper, func(ctx context.Context, item Item, host string) (int64, error) {
		return item.ID, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, results)
}

func TestProcessBatch_DiscardsRejectedResults(t *testing.T) {
	l := New(Config{MaxConcurrent: 2, GlobalCooldown: time.Millisecond, DomainCooldown: time.Millisecond})
	items := []Item{{ID: 1, URL: "https://a.example.com/x"}, {ID: 2, URL: "https://b.example.com/x"}}

	results, err := ProcessBatch(context.Background(), l, items, RealSleeper, func(ctx context.Context, item Item, host string) (int64, error) {
		if item.ID == 1 {
			return 0, assert.AnError
		}
		return item.ID, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, results)
}

// TestProcessBatch_RateLimitSpacing mirrors spec's "rate-limit spacing"
// scenario: three items on the same host with maxConcurrent=2 and a short
// domainCooldown each run only once their host's cooldown has elapsed,
// serializing despite maxConcurrent allowing two at once.
func TestProcessBatch_RateLimitSpacing(t *testing.T) {
	const cooldown = 50 * time.Millisecond
	l := New(Config{MaxConcurrent: 2, GlobalCooldown: time.Millisecond, DomainCooldown: cooldown})
	items := []Item{
		{ID: 1, URL: "https://example.com/a"},
		{ID: 2, URL: "https://example.com/b"},
		{ID: 3, URL: "https://example.com/c"},
	}

	var mu sync.Mutex
	var runAt []time.Duration
	start := time.Now()

	results, err := ProcessBatch(context.Background(), l, items, RealSleeper, func(ctx context.Context, item Item, host string) (int64, error) {
		mu.Lock()
		runAt = append(runAt, time.Since(start))
		mu.Unlock()
		return item.ID, nil
	})
	require.NoError(t, err)
	assert.Len(t, results, 3)
	require.Len(t, runAt, 3)

	assert.Less(t, runAt[0], cooldown)
	assert.GreaterOrEqual(t, runAt[1], cooldown)
	assert.GreaterOrEqual(t, runAt[2], 2*cooldown)
}

func TestProcessBatch_GlobalCooldownBetweenIterations(t *testing.T) {
	l := New(Config{MaxConcurrent: 1, GlobalCooldown: 30 * time.Millisecond, DomainCooldown: time.Millisecond})
	items := []Item{
		{ID: 1, URL: "https://a.example.com/x"},
		{ID: 2, URL: "https://b.example.com/x"},
	}

	start := time.Now()
	results, err := ProcessBatch(context.Background(), l, items, RealSleeper, func(ctx context.Context, item Item, host string) (int64, error) {
		return item.ID, nil
	})
	elapsed := time.Since(start)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
}

func TestProcessBatch_ContextCancelledDuringWaitPropagates(t *testing.T) {
	l := New(Config{MaxConcurrent: 1, GlobalCooldown: time.Millisecond, DomainCooldown: time.Hour})
	items := []Item{
		{ID: 1, URL: "https://example.com/a"},
		{ID: 2, URL: "https://example.com/b"},
	}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := ProcessBatch(ctx, l, items, RealSleeper, func(c context.Context, item Item, host string) (int64, error) {
		calls++
		if calls == 1 {
			cancel()
		}
		return item.ID, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
