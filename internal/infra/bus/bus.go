// Package bus implements the message bus between the source scraper and the
// job dispatcher (spec §6: bus message {"articles_id": [...]}, batch size
// capped at 100). The teacher talks to an external broker over gRPC
// (internal/infra/grpc); no such broker is part of this spec, so this is a
// small in-process channel queue in the same idiom: buffered channel,
// context-aware send/receive, no external dependency to justify here since
// the spec names no concrete broker (see DESIGN.md).
package bus

import (
	"context"
	"fmt"

	"feedmill/internal/observability/metrics"
)

// MaxBatchSize is the largest number of article ids a single message may
// carry (spec §6).
const MaxBatchSize = 100

// Message is one unit of work handed from the scraper to the dispatcher.
type Message struct {
	// ArticleIDs is the batch of newly-inserted article ids (spec §4.5 step 7).
	ArticleIDs []int64

	// Attempts counts how many times this message has been delivered,
	// incremented by the dispatcher on requeue (spec §4.8). Zero on first
	// delivery.
	Attempts int
}

// Publisher is implemented by producers (the source scraper).
type Publisher interface {
	// Publish enqueues msg, splitting it into sub-batches of at most
	// MaxBatchSize article ids each if necessary. Blocks until every
	// sub-batch is enqueued or ctx is done.
	Publish(ctx context.Context, articleIDs []int64) error
}

// Subscriber is implemented by consumers (the job dispatcher).
type Subscriber interface {
	// Receive blocks until a message is available or ctx is done.
	Receive(ctx context.Context) (Message, error)

	// Requeue re-enqueues msg with Attempts incremented, for the
	// dispatcher's 30s-delay retry path (spec §4.8).
	Requeue(ctx context.Context, msg Message) error
}

// Bus is a buffered, in-process implementation of Publisher and Subscriber.
type Bus struct {
	ch chan Message
}

// New creates a Bus with the given channel buffer size.
func New(bufferSize int) *Bus {
	return &Bus{ch: make(chan Message, bufferSize)}
}

func (b *Bus) Publish(ctx context.Context, articleIDs []int64) error {
	for start := 0; start < len(articleIDs); start += MaxBatchSize {
		end := start + MaxBatchSize
		if end > len(articleIDs) {
			end = len(articleIDs)
		}
		msg := Message{ArticleIDs: articleIDs[start:end]}
		select {
		case b.ch <- msg:
			metrics.RecordBusPublish()
		case <-ctx.Done():
			return fmt.Errorf("bus: publish: %w", ctx.Err())
		}
	}
	return nil
}

func (b *Bus) Receive(ctx context.Context) (Message, error) {
	select {
	case msg := <-b.ch:
		return msg, nil
	case <-ctx.Done():
		return Message{}, fmt.Errorf("bus: receive: %w", ctx.Err())
	}
}

func (b *Bus) Requeue(ctx context.Context, msg Message) error {
	msg.Attempts++
	select {
	case b.ch <- msg:
		metrics.RecordBusRequeue()
		return nil
	case <-ctx.Done():
		return fmt.Errorf("bus: requeue: %w", ctx.Err())
	}
}
