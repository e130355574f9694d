// Package deadletter provides use cases for announcing dead-lettered
// enrichment batches across multiple delivery channels. Grounded on the
// teacher's internal/usecase/notify package, repurposed from "announce a
// newly fetched article" to "announce a batch the job dispatcher gave up
// on" (spec §4.8's "a dead-letter sink captures messages...").
package deadletter

import (
	"context"

	"feedmill/internal/domain/entity"
)

// Channel represents a notification delivery channel (Discord, Slack, ...).
// Each channel implementation handles its own rate limiting, retries, and
// error handling.
//
// Retry Policy Contract:
//   - Transient failures (5xx, network errors): retry with exponential backoff (max 2 attempts)
//   - Rate limits (429): sleep for retry_after duration, then retry
//   - Client errors (4xx except 429): no retry
//   - Context timeout: no retry
//
// Thread Safety: all methods must be safe for concurrent use by multiple
// goroutines.
type Channel interface {
	// Name returns the channel identifier (e.g., "discord", "slack").
	Name() string

	// IsEnabled returns true if this channel is enabled via configuration.
	IsEnabled() bool

	// Send announces dl on this channel.
	Send(ctx context.Context, dl *entity.DeadLetter) error
}
