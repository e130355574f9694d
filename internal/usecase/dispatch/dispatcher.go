// Package dispatch implements the job dispatcher described in spec §4.8:
// it bridges bus messages to enrichment-worker invocations and owns the
// batch (n)ack semantics. Grounded on internal/usecase/notify/service.go's
// worker-pool-with-acquire-timeout and panic-recovered-goroutine idiom,
// repurposed from "fan out one notification per channel" to "start one
// enrichment job per bus message."
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"feedmill/internal/domain/entity"
	"feedmill/internal/infra/bus"
	"feedmill/internal/observability/metrics"
	"feedmill/internal/ratelimit"
	"feedmill/internal/repository"
)

const (
	// requeueDelay is spec §4.8's "retry the whole batch after 30s" on
	// job-creation failure.
	requeueDelay = 30 * time.Second

	// defaultJobSlotTimeout bounds how long Receive-then-dispatch will wait
	// for a free worker slot before treating the attempt as a job-creation
	// failure, per the teacher's workerPoolTimeout idiom.
	defaultJobSlotTimeout = 5 * time.Second

	defaultMaxAttempts = 5
)

var errWorkerPoolFull = errors.New("dispatch: worker pool full")

// Worker is the subset of enrichment.Worker's surface the dispatcher needs.
type Worker interface {
	ProcessBatch(ctx context.Context, ids []int64) error
}

// DeadLetterNotifier is the subset of deadletter.Service's surface the
// dispatcher needs to announce a batch once it's recorded. Optional: a nil
// Notifier in Config means dead-lettering is silent, persisted but
// unannounced.
type DeadLetterNotifier interface {
	NotifyDeadLetter(ctx context.Context, dl *entity.DeadLetter) error
}

// Config are the collaborators and tunables for a Dispatcher.
type Config struct {
	Bus         bus.Subscriber
	Worker      Worker
	DeadLetters repository.DeadLetterRepository
	Notifier    DeadLetterNotifier

	// MaxConcurrentJobs bounds how many enrichment jobs run at once.
	MaxConcurrentJobs int
	// MaxAttempts is the delivery-attempt threshold after which a message
	// is sent to the dead-letter sink instead of requeued (spec §4.8).
	MaxAttempts int
	// JobSlotTimeout overrides defaultJobSlotTimeout; tests shrink this to
	// avoid real waits when exercising the pool-full path.
	JobSlotTimeout time.Duration

	Sleeper ratelimit.Sleeper
	Logger  *slog.Logger
	Now     func() time.Time
}

func (c *Config) withDefaults() {
	if c.MaxConcurrentJobs <= 0 {
		c.MaxConcurrentJobs = 10
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.JobSlotTimeout <= 0 {
		c.JobSlotTimeout = defaultJobSlotTimeout
	}
	if c.Sleeper == nil {
		c.Sleeper = ratelimit.RealSleeper
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Dispatcher consumes bus messages and starts one enrichment job per
// message, never blocking the receive loop on a job's completion: once a
// job is successfully started the message is considered acked, since "the
// job owns durability from here" (spec §4.8) via the per-article terminal
// statuses the enrichment worker persists.
type Dispatcher struct {
	cfg        Config
	workerPool chan struct{}
	wg         sync.WaitGroup
}

// New builds a Dispatcher from cfg.
func New(cfg Config) *Dispatcher {
	cfg.withDefaults()
	return &Dispatcher{
		cfg:        cfg,
		workerPool: make(chan struct{}, cfg.MaxConcurrentJobs),
	}
}

// Run blocks, receiving and dispatching messages until ctx is cancelled or
// the bus returns a non-context error.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		msg, err := d.cfg.Bus.Receive(ctx)
		if err != nil {
			return err
		}
		d.handle(ctx, msg)
	}
}

// Shutdown waits for in-flight jobs and pending requeue delays to finish,
// or for ctx to expire first.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) handle(ctx context.Context, msg bus.Message) {
	if len(msg.ArticleIDs) == 0 {
		return
	}

	select {
	case d.workerPool <- struct{}{}:
	case <-time.After(d.cfg.JobSlotTimeout):
		d.cfg.Logger.Warn("dispatch: no free job slot, requeuing batch", slog.Int("articles", len(msg.ArticleIDs)))
		d.retryOrDeadLetter(ctx, msg, errWorkerPoolFull.Error())
		return
	}

	d.wg.Add(1)
	go d.runJob(msg)
}

func (d *Dispatcher) runJob(msg bus.Message) {
	defer d.wg.Done()
	defer func() { <-d.workerPool }()
	failed := false
	defer func() { metrics.RecordDispatcherJobFinished(failed) }()
	defer func() {
		if r := recover(); r != nil {
			failed = true
			d.cfg.Logger.Error("dispatch: panic in enrichment job",
				slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
		}
	}()

	metrics.RecordDispatcherJobStarted()

	// The job runs detached from the message's receive context: once
	// started it is acked, so its lifetime is no longer tied to the bus.
	jobCtx := context.Background()
	if err := d.cfg.Worker.ProcessBatch(jobCtx, msg.ArticleIDs); err != nil {
		failed = true
		d.cfg.Logger.Error("dispatch: enrichment job returned an error",
			slog.Int("articles", len(msg.ArticleIDs)), slog.Any("error", err))
	}
}

// retryOrDeadLetter implements the job-creation-failure path: requeue with
// a 30s delay, unless msg has already exhausted the configured attempt
// threshold, in which case it is recorded to the dead-letter sink instead.
func (d *Dispatcher) retryOrDeadLetter(ctx context.Context, msg bus.Message, reason string) {
	if msg.Attempts >= d.cfg.MaxAttempts {
		d.sendToDeadLetter(ctx, msg, reason)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.cfg.Sleeper(ctx, requeueDelay); err != nil {
			return
		}
		if err := d.cfg.Bus.Requeue(ctx, msg); err != nil {
			d.cfg.Logger.Error("dispatch: requeue failed", slog.Any("error", err))
		}
	}()
}

func (d *Dispatcher) sendToDeadLetter(ctx context.Context, msg bus.Message, reason string) {
	dl := &entity.DeadLetter{
		ID:         uuid.New().String(),
		ArticleIDs: msg.ArticleIDs,
		Attempts:   msg.Attempts,
		LastError:  reason,
		CreatedAt:  d.cfg.Now(),
	}
	if err := d.cfg.DeadLetters.Record(ctx, dl); err != nil {
		d.cfg.Logger.Error("dispatch: dead-letter record failed",
			slog.Int("articles", len(msg.ArticleIDs)), slog.Any("error", err))
		return
	}
	if d.cfg.Notifier != nil {
		if err := d.cfg.Notifier.NotifyDeadLetter(ctx, dl); err != nil {
			d.cfg.Logger.Error("dispatch: dead-letter notification failed",
				slog.String("deadLetterId", dl.ID), slog.Any("error", err))
		}
	}
	metrics.RecordDispatcherDeadLettered()
	d.cfg.Logger.Warn("dispatch: batch dead-lettered",
		slog.String("deadLetterId", dl.ID), slog.Int("attempts", dl.Attempts), slog.Int("articles", len(msg.ArticleIDs)))
}
