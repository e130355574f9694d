package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ReconcileMetrics tracks the coarse robfig/cron-driven sweep that keeps
// scraper.Instance schedules in sync with the sources table (see
// cmd/worker's reconciler). Grounded on the teacher's WorkerMetrics
// (worker_cron_job_*), repurposed from "one crawl-all-sources job" to "one
// reconcile pass over per-source schedulers" since the per-source ticking
// itself is tracked separately by metrics.RecordScraperTick.
type ReconcileMetrics struct {
	RunsTotal             *prometheus.CounterVec
	DurationSeconds       prometheus.Histogram
	SourcesInitialized    prometheus.Counter
	SourcesDestroyed      prometheus.Counter
	LastSuccessTimestamp  prometheus.Gauge
}

// NewReconcileMetrics creates and registers the reconcile-loop metrics.
func NewReconcileMetrics() *ReconcileMetrics {
	return &ReconcileMetrics{
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_reconcile_runs_total",
			Help: "Total number of source-reconcile passes by status (success/failure)",
		}, []string{"status"}),

		DurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_reconcile_duration_seconds",
			Help:    "Duration of a source-reconcile pass",
			Buckets: []float64{0.1, 0.5, 1, 5, 30, 60, 300},
		}),

		SourcesInitialized: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_reconcile_sources_initialized_total",
			Help: "Total number of sources newly initialized by a reconcile pass",
		}),

		SourcesDestroyed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_reconcile_sources_destroyed_total",
			Help: "Total number of scraper instances torn down by a reconcile pass",
		}),

		LastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_reconcile_last_success_timestamp",
			Help: "Unix timestamp of the last successful reconcile pass",
		}),
	}
}

// RecordRun increments the run counter for the given status.
func (m *ReconcileMetrics) RecordRun(status string) {
	m.RunsTotal.WithLabelValues(status).Inc()
}

// RecordDuration observes a reconcile pass's duration in seconds.
func (m *ReconcileMetrics) RecordDuration(seconds float64) {
	m.DurationSeconds.Observe(seconds)
}

// RecordSourcesInitialized adds count newly-initialized sources.
func (m *ReconcileMetrics) RecordSourcesInitialized(count int) {
	m.SourcesInitialized.Add(float64(count))
}

// RecordSourcesDestroyed adds count torn-down instances.
func (m *ReconcileMetrics) RecordSourcesDestroyed(count int) {
	m.SourcesDestroyed.Add(float64(count))
}

// RecordLastSuccess records the current time as the last successful pass.
func (m *ReconcileMetrics) RecordLastSuccess() {
	m.LastSuccessTimestamp.SetToCurrentTime()
}
