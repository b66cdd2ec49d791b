package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes the subsystem's Prometheus metrics.
type Recorder struct {
	cacheLookups *prometheus.CounterVec
	batchItems   *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	jobsActive   prometheus.Gauge
	latency      *prometheus.HistogramVec
	jobDuration  prometheus.Histogram
}

// New creates a Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		cacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "draks_ohlcv_cache_total",
				Help: "OHLCV cache lookups by result",
			},
			[]string{"result"},
		),
		batchItems: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "draks_batch_items_total",
				Help: "Batch symbols resolved by terminal status",
			},
			[]string{"status"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "draks_errors_total",
				Help: "Errors by kind",
			},
			[]string{"kind"},
		),
		jobsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "draks_batch_jobs_active",
				Help: "Batch jobs with unresolved symbols",
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "draks_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		jobDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "draks_batch_job_duration_seconds",
				Help:    "Wall time from submit to last resolved symbol",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
	}
}

// RecordCacheHit counts an OHLCV cache hit.
func (r *Recorder) RecordCacheHit() { r.cacheLookups.WithLabelValues("hit").Inc() }

// RecordCacheMiss counts an OHLCV cache miss.
func (r *Recorder) RecordCacheMiss() { r.cacheLookups.WithLabelValues("miss").Inc() }

// RecordBatchItem counts a resolved batch symbol ("done" or "failed").
func (r *Recorder) RecordBatchItem(status string) {
	r.batchItems.WithLabelValues(status).Inc()
}

// RecordError counts an error by kind.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// JobStarted moves the active jobs gauge up.
func (r *Recorder) JobStarted() { r.jobsActive.Inc() }

// JobFinished moves the active jobs gauge down and records duration.
func (r *Recorder) JobFinished(seconds float64) {
	r.jobsActive.Dec()
	r.jobDuration.Observe(seconds)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
