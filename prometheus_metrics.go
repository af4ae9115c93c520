package confdata

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics implements the Metrics interface using Prometheus.
// Metric names like "confdata.backup.create" are exported as counters
// labelled with the operation segment ("backup.create").
type PrometheusMetrics struct {
	registry *prometheus.Registry

	operations *prometheus.CounterVec
	gauges     *prometheus.GaugeVec
	durations  *prometheus.HistogramVec

	mu sync.Mutex
}

// NewPrometheusMetrics creates a new Prometheus metrics instance.
// If registry is nil, a fresh registry is created; expose it via
// promhttp.HandlerFor in the serving binary.
func NewPrometheusMetrics(registry *prometheus.Registry) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	pm := &PrometheusMetrics{registry: registry}

	pm.operations = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "confdata",
			Name:      "operations_total",
			Help:      "Total number of store, sequence and backup operations",
		},
		[]string{"operation"},
	)

	pm.gauges = promauto.With(registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "confdata",
			Name:      "gauge",
			Help:      "Point-in-time values reported by confdata components",
		},
		[]string{"name"},
	)

	pm.durations = promauto.With(registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "confdata",
			Name:      "operation_duration_seconds",
			Help:      "Operation duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	return pm
}

// Registry returns the underlying registry for HTTP exposition
func (p *PrometheusMetrics) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusMetrics) Increment(name string, tags ...string) {
	p.operations.WithLabelValues(operationLabel(name)).Inc()
}

func (p *PrometheusMetrics) Gauge(name string, value float64, tags ...string) {
	p.gauges.WithLabelValues(operationLabel(name)).Set(value)
}

func (p *PrometheusMetrics) Timing(name string, duration time.Duration, tags ...string) {
	p.durations.WithLabelValues(operationLabel(name)).Observe(duration.Seconds())
}

// operationLabel strips the "confdata." prefix from internal metric names
func operationLabel(name string) string {
	return strings.TrimPrefix(name, "confdata.")
}
