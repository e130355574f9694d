// Package scraper implements the per-source state machine described in
// spec §4.5: one instance per source URL, owning a self-rearming schedule
// that periodically fetches a feed, inserts newly-seen articles, and
// publishes their ids to the bus for enrichment.
//
// The teacher's worker drives a fixed cron.Schedule (cmd/worker/main.go);
// this state machine's tick interval depends on a per-source, mutable
// FrequencyTier, so each Instance arms its own timer with time.AfterFunc
// rather than sharing a cron schedule (see DESIGN.md).
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"feedmill/internal/domain/entity"
	"feedmill/internal/infra/bus"
	"feedmill/internal/infra/feed"
	"feedmill/internal/observability/metrics"
	"feedmill/internal/observability/tracing"
	"feedmill/internal/repository"
	"feedmill/internal/resilience/retry"
)

// initialTickDelay is how far in the future Initialize arms the first tick
// (spec §4.5: "arms the first tick 5s in the future").
const initialTickDelay = 5 * time.Second

// invalidStateBackoff is how far out a tick re-arms itself when the
// persisted SourceState fails validation (spec §4.5 step 1: "arm a tick 24h
// out and exit").
const invalidStateBackoff = 24 * time.Hour

// Deps are the collaborators an Instance needs. FeedFetcher must already be
// configured with the per-step retry policy (retry.FeedParseConfig());
// Decode itself is retried separately by the Instance (spec §4.5 steps 3
// and 4 are independently-retried steps).
type Deps struct {
	Sources   repository.SourceRepository
	States    repository.SourceStateRepository
	Articles  repository.ArticleRepository
	Fetcher   *feed.Fetcher
	Publisher bus.Publisher
	Logger    *slog.Logger

	// Now stands in for time.Now in tests. Defaults to time.Now.
	Now func() time.Time
}

func (d *Deps) withDefaults() {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
}

// Instance is one per-source scheduler. Safe for concurrent use; Tick and
// Trigger serialize against each other so a source never runs two ticks at
// once (spec §5: "Source scraper ticks for the same source are serial").
type Instance struct {
	deps     Deps
	sourceID int64

	// runCtx is the context scheduled ticks run under. It outlives any
	// single Initialize/Trigger call — those are often request-scoped and
	// would otherwise cancel a tick armed minutes or hours in the future.
	runCtx    context.Context
	runCancel context.CancelFunc

	mu         sync.Mutex
	state      entity.SchedulerState
	nextTickAt *time.Time
	timer      *time.Timer

	// ticking is the re-entrancy guard for Tick itself. state flips back to
	// Scheduled mid-tick (step 2 arms the next regular tick before the rest
	// of the run), so state alone can't tell a concurrent Trigger that a
	// tick is already in flight. ticking can.
	ticking bool
}

// NewInstance builds an uninitialized Instance for sourceID. Call
// Initialize (first run) or Tick/resume (already-initialized source) to
// start the schedule.
func NewInstance(deps Deps, sourceID int64) *Instance {
	deps.withDefaults()
	runCtx, cancel := context.WithCancel(context.Background())
	return &Instance{
		deps:      deps,
		sourceID:  sourceID,
		state:     entity.SchedulerUninitialized,
		runCtx:    runCtx,
		runCancel: cancel,
	}
}

// Initialize verifies the source still exists, persists a fresh SourceState
// with lastChecked=nil, writes do_initialized_at, and arms the first tick
// 5s out. Returns silently (not an error) if the source has since been
// deleted, per spec §4.5's race-safety note.
func (i *Instance) Initialize(ctx context.Context) error {
	source, err := i.deps.Sources.Get(ctx, i.sourceID)
	if err != nil {
		return fmt.Errorf("scraper: load source %d: %w", i.sourceID, err)
	}
	if source == nil {
		i.deps.Logger.Info("scraper: source no longer exists, skipping initialize", slog.Int64("sourceId", i.sourceID))
		return nil
	}

	state := &entity.SourceState{
		SourceID:      source.ID,
		URL:           source.URL,
		FrequencyTier: source.FrequencyTier,
		LastCheckedAt: nil,
	}
	if err := i.deps.States.Put(ctx, state); err != nil {
		return fmt.Errorf("scraper: persist initial state: %w", err)
	}

	now := i.deps.Now()
	if err := i.deps.Sources.SetInitialized(ctx, source.ID, now); err != nil {
		return fmt.Errorf("scraper: mark source initialized: %w", err)
	}

	i.arm(initialTickDelay)
	return nil
}

// Trigger arms an immediate tick, cancelling any pending regular one.
func (i *Instance) Trigger() {
	i.arm(0)
}

// Status returns the scheduler's current lifecycle state and next tick time.
func (i *Instance) Status() entity.SchedulerStatus {
	i.mu.Lock()
	defer i.mu.Unlock()
	return entity.SchedulerStatus{State: i.state, NextTickAt: i.nextTickAt}
}

// Destroy stops the timer, removes persisted state, and clears
// do_initialized_at on the source row. Terminal: the Instance must not be
// reused afterward.
func (i *Instance) Destroy(ctx context.Context) error {
	i.mu.Lock()
	if i.timer != nil {
		i.timer.Stop()
		i.timer = nil
	}
	i.state = entity.SchedulerDestroyed
	i.nextTickAt = nil
	i.mu.Unlock()
	i.runCancel()

	if err := i.deps.States.Delete(ctx, i.sourceID); err != nil {
		return fmt.Errorf("scraper: delete state: %w", err)
	}
	if err := i.deps.Sources.ClearInitialized(ctx, i.sourceID); err != nil {
		return fmt.Errorf("scraper: clear initialized: %w", err)
	}
	return nil
}

// arm (re)schedules the timer to fire Tick after delay, replacing any
// pending timer. A destroyed instance ignores arm requests.
func (i *Instance) arm(delay time.Duration) {
	i.mu.Lock()
	if i.state == entity.SchedulerDestroyed {
		i.mu.Unlock()
		return
	}
	if i.timer != nil {
		i.timer.Stop()
	}
	next := i.deps.Now().Add(delay)
	i.nextTickAt = &next
	i.state = entity.SchedulerScheduled
	i.timer = time.AfterFunc(delay, i.Tick)
	i.mu.Unlock()
}

// Tick runs the 8-step algorithm from spec §4.5. Errors are logged, not
// returned, since Tick is the body of a timer callback; the next regular
// tick (armed at step 2, before anything that can fail) is what recovers.
// It runs under the Instance's own long-lived context, not a caller's.
//
// Re-entrant calls (a Trigger landing while a previous Tick's steps 3-8 are
// still running) are refused under the ticking guard, not just the state
// field, so two ticks for the same source never run concurrently.
func (i *Instance) Tick() {
	i.mu.Lock()
	if i.state == entity.SchedulerDestroyed {
		i.mu.Unlock()
		return
	}
	if i.ticking {
		i.mu.Unlock()
		i.deps.Logger.Warn("scraper: tick already in progress, ignoring re-entrant trigger", slog.Int64("sourceId", i.sourceID))
		return
	}
	i.ticking = true
	i.state = entity.SchedulerRunning
	i.mu.Unlock()

	defer func() {
		i.mu.Lock()
		i.ticking = false
		i.mu.Unlock()
	}()

	ctx, span := tracing.GetTracer().Start(i.runCtx, "scraper.Tick")
	span.SetAttributes(attribute.Int64("source.id", i.sourceID))
	defer span.End()

	log := i.deps.Logger.With(slog.Int64("sourceId", i.sourceID))

	// Step 1: load and validate state.
	state, err := i.deps.States.Get(ctx, i.sourceID)
	if err != nil {
		log.Error("scraper: load state failed", slog.Any("error", err))
		metrics.RecordScraperTick(i.sourceID, "invalid_state", 0)
		i.arm(invalidStateBackoff)
		return
	}
	if err := state.Validate(); err != nil {
		log.Warn("scraper: state failed validation, backing off", slog.Any("error", err))
		metrics.RecordScraperTick(i.sourceID, "invalid_state", 0)
		i.arm(invalidStateBackoff)
		return
	}

	// Step 2: arm the next regular tick before anything that can fail.
	interval := state.FrequencyTier.Interval()
	i.arm(interval)

	now := i.deps.Now()

	// Step 3: fetch the feed body. i.deps.Fetcher is built with
	// feed.NewFetcherWithRetryConfig(client, retry.FeedParseConfig()), so
	// FetchBytes already retries internally per spec §4.5 step 3 (3
	// attempts, 500ms initial backoff) — no separate retry loop here.
	body, err := i.deps.Fetcher.FetchBytes(ctx, state.URL)
	if err != nil {
		log.Warn("scraper: fetch exhausted retries, skipping tick", slog.Any("error", err))
		metrics.RecordScraperTick(i.sourceID, "fetch_failed", 0)
		return
	}

	// Step 4: parse the feed body, bounded retries (deterministic parse
	// errors won't heal across attempts, but a truncated/interrupted read
	// upstream can, so the retry loop still applies per spec).
	var entries []feed.Entry
	parseErr := retry.WithBackoff(ctx, retry.FeedParseConfig(), func() error {
		e, err := feed.Decode(body)
		if err != nil {
			return err
		}
		entries = e
		return nil
	})
	if parseErr != nil {
		log.Warn("scraper: parse exhausted retries, skipping tick", slog.Any("error", parseErr))
		metrics.RecordScraperTick(i.sourceID, "parse_failed", 0)
		return
	}

	// Step 5: build insert rows.
	rows := make([]repository.FeedEntryInsert, 0, len(entries))
	for _, e := range entries {
		row := repository.FeedEntryInsert{URL: e.Link, Title: e.Title}
		if e.PublishDate != nil {
			formatted := e.PublishDate.UTC().Format(time.RFC3339)
			row.PublishDate = &formatted
		}
		rows = append(rows, row)
	}

	// Step 6: insert, bounded retries.
	var insertedIDs []int64
	insertErr := retry.WithBackoff(ctx, retry.FeedParseConfig(), func() error {
		ids, err := i.deps.Articles.InsertNewReturningIDs(ctx, i.sourceID, rows)
		if err != nil {
			return err
		}
		insertedIDs = ids
		return nil
	})
	if insertErr != nil {
		log.Warn("scraper: insert exhausted retries, skipping tick", slog.Any("error", insertErr))
		metrics.RecordScraperTick(i.sourceID, "insert_failed", 0)
		return
	}

	// Step 7: publish in sub-batches of <= bus.MaxBatchSize (Publish itself
	// performs the sub-batching).
	if len(insertedIDs) > 0 {
		if err := i.deps.Publisher.Publish(ctx, insertedIDs); err != nil {
			log.Error("scraper: publish failed, articles inserted but not enqueued", slog.Any("error", err), slog.Int("count", len(insertedIDs)))
			metrics.RecordScraperTick(i.sourceID, "publish_failed", 0)
			return
		}
	}

	// Step 8: only now advance lastChecked.
	if err := i.deps.Sources.TouchLastChecked(ctx, i.sourceID, now); err != nil {
		log.Error("scraper: touch last checked failed", slog.Any("error", err))
		return
	}

	metrics.RecordScraperTick(i.sourceID, "success", len(insertedIDs))
	log.Info("scraper: tick complete", slog.Int("newArticles", len(insertedIDs)))
}
