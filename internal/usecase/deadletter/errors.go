package deadletter

import "errors"

// Sentinel errors for deadletter use case operations.
var (
	// ErrChannelDisabled indicates that Send() was called on a disabled channel.
	ErrChannelDisabled = errors.New("channel is disabled")

	// ErrInvalidDeadLetter indicates the dead letter is nil or missing its id.
	ErrInvalidDeadLetter = errors.New("invalid dead letter data")

	// ErrNotificationDropped indicates a notification was dropped due to
	// goroutine pool saturation or a worker-slot wait timeout.
	ErrNotificationDropped = errors.New("notification dropped due to pool saturation")

	// ErrCircuitBreakerOpen indicates the circuit breaker is open for this
	// channel and notifications are being rejected to prevent continuous
	// failures. It closes automatically after the timeout period.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open for this channel")
)
