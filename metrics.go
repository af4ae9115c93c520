package confdata

import "time"

// Metrics provides observability for confdata operations
type Metrics interface {
	// Increment increases a counter by 1
	Increment(name string, tags ...string)

	// Gauge sets an absolute value
	Gauge(name string, value float64, tags ...string)

	// Timing records a duration
	Timing(name string, duration time.Duration, tags ...string)
}

// NoOpMetrics is a metrics collector that does nothing
type NoOpMetrics struct{}

func (m *NoOpMetrics) Increment(name string, tags ...string)                      {}
func (m *NoOpMetrics) Gauge(name string, value float64, tags ...string)           {}
func (m *NoOpMetrics) Timing(name string, duration time.Duration, tags ...string) {}

// InMemoryMetrics stores metrics in memory for testing
type InMemoryMetrics struct {
	Counters map[string]int
	Gauges   map[string]float64
	Timings  map[string][]time.Duration
}

func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		Counters: make(map[string]int),
		Gauges:   make(map[string]float64),
		Timings:  make(map[string][]time.Duration),
	}
}

func (m *InMemoryMetrics) Increment(name string, tags ...string) {
	m.Counters[name]++
}

func (m *InMemoryMetrics) Gauge(name string, value float64, tags ...string) {
	m.Gauges[name] = value
}

func (m *InMemoryMetrics) Timing(name string, duration time.Duration, tags ...string) {
	m.Timings[name] = append(m.Timings[name], duration)
}

// Common metric names
const (
	MetricGetSuccess     = "confdata.get.success"
	MetricGetError       = "confdata.get.error"
	MetricGetDuration    = "confdata.get.duration"
	MetricPutSuccess     = "confdata.put.success"
	MetricPutError       = "confdata.put.error"
	MetricPutDuration    = "confdata.put.duration"
	MetricDeleteSuccess  = "confdata.delete.success"
	MetricDeleteError    = "confdata.delete.error"
	MetricDeleteDuration = "confdata.delete.duration"
	MetricQueryDuration  = "confdata.query.duration"
	MetricQueryResults   = "confdata.query.results"

	MetricSequenceNext  = "confdata.sequence.next"
	MetricSequenceError = "confdata.sequence.error"

	MetricBackupCreate    = "confdata.backup.create"
	MetricBackupRestore   = "confdata.backup.restore"
	MetricBackupError     = "confdata.backup.error"
	MetricBackupDuration  = "confdata.backup.duration"
	MetricBackupScheduled = "confdata.backup.scheduled"
)
