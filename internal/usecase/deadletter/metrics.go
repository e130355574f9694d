package deadletter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for dead-letter notification monitoring.
var (
	dispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deadletter_notification_dispatched_total",
			Help: "Total number of dead-letter notifications dispatched",
		},
		[]string{"channel"},
	)

	sentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deadletter_notification_sent_total",
			Help: "Total number of dead-letter notifications sent",
		},
		[]string{"channel", "status"}, // status: success|failure
	)

	sendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deadletter_notification_duration_seconds",
			Help:    "Dead-letter notification send duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"channel"},
	)

	circuitBreakerOpenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deadletter_notification_circuit_breaker_open_total",
			Help: "Total number of circuit breaker open events",
		},
		[]string{"channel"},
	)

	droppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deadletter_notification_dropped_total",
			Help: "Total number of dropped dead-letter notifications",
		},
		[]string{"channel", "reason"}, // reason: pool_full|circuit_open|disabled
	)

	activeGoroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deadletter_notification_active_goroutines",
			Help: "Number of active dead-letter notification goroutines",
		},
	)

	channelsEnabledGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deadletter_notification_channels_enabled",
			Help: "Number of enabled dead-letter notification channels",
		},
	)
)

// RecordDispatch records a notification dispatch attempt.
func RecordDispatch(channel string) {
	dispatchedTotal.WithLabelValues(channel).Inc()
}

// RecordSuccess records a successful notification send.
func RecordSuccess(channel string, duration time.Duration) {
	sentTotal.WithLabelValues(channel, "success").Inc()
	sendDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// RecordFailure records a failed notification send.
func RecordFailure(channel string, duration time.Duration) {
	sentTotal.WithLabelValues(channel, "failure").Inc()
	sendDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// RecordDropped records a dropped notification.
func RecordDropped(channel string, reason string) {
	droppedTotal.WithLabelValues(channel, reason).Inc()
}

// RecordCircuitBreakerOpen records a circuit breaker open event.
func RecordCircuitBreakerOpen(channel string) {
	circuitBreakerOpenTotal.WithLabelValues(channel).Inc()
}

// SetActiveGoroutines sets the current number of active notification goroutines.
func SetActiveGoroutines(count float64) {
	activeGoroutines.Set(count)
}

// IncrementActiveGoroutines increments the active goroutines gauge by 1.
func IncrementActiveGoroutines() {
	activeGoroutines.Inc()
}

// DecrementActiveGoroutines decrements the active goroutines gauge by 1.
func DecrementActiveGoroutines() {
	activeGoroutines.Dec()
}

// SetChannelsEnabled sets the number of enabled notification channels.
func SetChannelsEnabled(count float64) {
	channelsEnabledGauge.Set(count)
}
