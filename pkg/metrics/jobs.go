package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	jobSucceeded = "success"
	jobFailed    = "failure"
)

// JobMetrics times background batches (outbox publish rounds and the like)
// and counts them by outcome.
type JobMetrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	now         func() time.Time
}

// NewJobMetrics registers the job collectors on reg. A nil registerer yields
// metrics that record nothing.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	m := &JobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_job_runs_total",
			Help: "Background job runs by outcome.",
		}, []string{"job", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_job_duration_seconds",
			Help:    "Wall time of background job runs.",
			Buckets: []float64{.005, .025, .1, .25, 1, 2.5, 10, 30},
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "storefront_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run per job.",
		}, []string{"job"}),
		now: time.Now,
	}
	reg.MustRegister(m.runs, m.duration, m.lastSuccess)
	return m
}

// Track runs fn under job and records its outcome. fn's error is returned as is.
func (m *JobMetrics) Track(job string, fn func() error) error {
	if m == nil || m.runs == nil {
		return fn()
	}
	if job == "" {
		job = "unknown"
	}
	start := m.now()
	err := fn()
	end := m.now()

	m.duration.WithLabelValues(job).Observe(end.Sub(start).Seconds())
	if err != nil {
		m.runs.WithLabelValues(job, jobFailed).Inc()
		return err
	}
	m.runs.WithLabelValues(job, jobSucceeded).Inc()
	m.lastSuccess.WithLabelValues(job).Set(float64(end.Unix()))
	return nil
}
