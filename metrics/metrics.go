// Package metrics provides Prometheus metrics for store operations.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Recorder records store operation counts, latency and affected rows.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	rows       *prometheus.CounterVec
}

// Option applies a configuration option to the Recorder.
type Option func(*Recorder)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		if namespace != "" {
			r.namespace = namespace
		}
	}
}

// WithSubsystem sets the subsystem for all metrics.
func WithSubsystem(subsystem string) Option {
	return func(r *Recorder) {
		if subsystem != "" {
			r.subsystem = subsystem
		}
	}
}

// WithHistogramBuckets sets custom buckets for the latency histogram.
func WithHistogramBuckets(buckets []float64) Option {
	return func(r *Recorder) {
		if len(buckets) > 0 {
			r.histogramBuckets = buckets
		}
	}
}

// WithRegistry sets the registerer the metrics are registered on.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(r *Recorder) {
		if registry != nil {
			r.registry = registry
		}
	}
}

// NewRecorder creates a Recorder registered on prometheus.DefaultRegisterer
// unless WithRegistry is given.
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		namespace:        "ac_store",
		subsystem:        "store",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(r)
	}

	auto := promauto.With(r.registry)
	r.operations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: r.subsystem,
		Name:      "operations_total",
		Help:      "Total number of store operations by operation and outcome",
	}, []string{"operation", "outcome"})

	r.duration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Subsystem: r.subsystem,
		Name:      "operation_duration_seconds",
		Help:      "Store operation latency in seconds",
		Buckets:   r.histogramBuckets,
	}, []string{"operation"})

	r.rows = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: r.subsystem,
		Name:      "rows_affected_total",
		Help:      "Rows inserted or updated by write operations",
	}, []string{"operation"})

	return r
}

// ObserveOperation counts one operation and records its latency.
func (r *Recorder) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(operation, outcome).Inc()
	r.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// AddRows adds to the affected-rows counter of a write operation.
func (r *Recorder) AddRows(operation string, n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.rows.WithLabelValues(operation).Add(float64(n))
}

// Push sends everything gathered from g to a Prometheus pushgateway.
func Push(url, job string, g prometheus.Gatherer) error {
	if err := push.New(url, job).Gatherer(g).Push(); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
