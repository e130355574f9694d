// Package notifier provides abstraction for sending notifications about
// dead-lettered enrichment batches. It defines the Notifier interface which
// allows different notification mechanisms (Discord, Slack, a no-op) to be
// used interchangeably through dependency injection.
//
// The teacher's version of this package announced newly fetched articles;
// this one announces batches the job dispatcher gave up on (spec §4.8's
// "dead-letter sink"), so downstream operators learn about stuck batches
// without having to poll the dead_letters table.
package notifier

import (
	"context"

	"feedmill/internal/domain/entity"
)

// Notifier is an interface for sending dead-letter notifications.
// Implementations should handle rate limiting, retries, and error logging
// internally.
type Notifier interface {
	// NotifyDeadLetter announces a batch that exceeded the dispatcher's
	// delivery-attempt threshold and was recorded to the dead-letter sink.
	//
	// Implementations should:
	//   - Generate a unique request ID for tracing
	//   - Apply rate limiting to prevent API abuse
	//   - Retry transient failures with exponential backoff
	//   - Log all attempts with the request ID for debugging
	//   - Respect context cancellation
	NotifyDeadLetter(ctx context.Context, dl *entity.DeadLetter) error
}
