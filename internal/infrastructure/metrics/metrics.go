// Package metrics exposes Prometheus collectors for the ingestion pipeline.
// Collectors are registered on an explicit registry so tests and multiple
// workers in one process never collide on the global one.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codeclub/leetboard/internal/application/command"
	"github.com/codeclub/leetboard/internal/domain/profile"
	"github.com/codeclub/leetboard/internal/infrastructure/external/leetcode"
	"github.com/codeclub/leetboard/internal/infrastructure/scheduler"
	"github.com/codeclub/leetboard/pkg/batch"
)

const namespace = "leetboard"

// Metrics holds every collector. A nil *Metrics is a valid no-op recorder.
type Metrics struct {
	registry *prometheus.Registry

	fetchTotal    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec

	batchItems        *prometheus.CounterVec
	batchItemDuration *prometheus.HistogramVec

	snapshotsStored prometheus.Counter
	snapshotEntries prometheus.Histogram
	snapshotGainers prometheus.Histogram

	jobRuns     *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	jobLastRun  *prometheus.GaugeVec
}

var (
	_ leetcode.Recorder        = (*Metrics)(nil)
	_ batch.Recorder           = (*Metrics)(nil)
	_ command.SnapshotRecorder = (*Metrics)(nil)
	_ scheduler.Observer       = (*Metrics)(nil)
)

// New registers all collectors on reg. A nil reg creates a fresh registry
// with the Go and process collectors attached.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		fetchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "leetcode",
			Name:      "fetch_total",
			Help:      "Profile fetches by outcome and failure reason.",
		}, []string{"outcome", "reason"}),
		fetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "leetcode",
			Name:      "fetch_duration_seconds",
			Help:      "Latency of a single profile fetch.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 3, 5, 8},
		}, []string{"outcome"}),

		batchItems: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "items_total",
			Help:      "Batch items by batch name and status.",
		}, []string{"batch", "status"}),
		batchItemDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "item_duration_seconds",
			Help:      "Time spent on one batch item.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"batch"}),

		snapshotsStored: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "stored_total",
			Help:      "Group snapshots written.",
		}),
		snapshotEntries: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "leaderboard_entries",
			Help:      "Leaderboard size of stored snapshots.",
			Buckets:   prometheus.ExponentialBuckets(5, 2, 8),
		}),
		snapshotGainers: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "active_gainers",
			Help:      "Active gainers in stored snapshots.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 9),
		}),

		jobRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Scheduled job runs by job and result.",
		}, []string{"job", "result"}),
		jobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_duration_seconds",
			Help:      "Duration of scheduled job runs.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"job"}),
		jobLastRun: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_last_run_timestamp_seconds",
			Help:      "Unix time of the last finished run.",
		}, []string{"job"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveFetch implements leetcode.Recorder.
func (m *Metrics) ObserveFetch(outcome profile.Outcome, reason profile.FailureReason, d time.Duration) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(string(outcome), string(reason)).Inc()
	m.fetchDuration.WithLabelValues(string(outcome)).Observe(d.Seconds())
}

// ObserveItem implements batch.Recorder.
func (m *Metrics) ObserveItem(name string, status batch.Status, d time.Duration) {
	if m == nil {
		return
	}
	m.batchItems.WithLabelValues(name, status.String()).Inc()
	if status != batch.StatusSkipped {
		m.batchItemDuration.WithLabelValues(name).Observe(d.Seconds())
	}
}

// ObserveSnapshot implements command.SnapshotRecorder.
func (m *Metrics) ObserveSnapshot(entries, gainers int) {
	if m == nil {
		return
	}
	m.snapshotsStored.Inc()
	m.snapshotEntries.Observe(float64(entries))
	m.snapshotGainers.Observe(float64(gainers))
}

// ObserveJob records a finished scheduled job run.
func (m *Metrics) ObserveJob(job string, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.jobRuns.WithLabelValues(job, result).Inc()
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
	m.jobLastRun.WithLabelValues(job).SetToCurrentTime()
}
