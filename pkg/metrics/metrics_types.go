package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the service
type Registry struct {
	// HTTP Metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Signal chain editor metrics
	ConnectionAttemptsTotal *prometheus.CounterVec
	EditorMutationsTotal    *prometheus.CounterVec
	EditorSessions          prometheus.Gauge

	// Simulation metrics
	SimulationRunsTotal         *prometheus.CounterVec
	SimulationDuration          *prometheus.HistogramVec
	SimulationsInFlight         prometheus.Gauge
	SimulationValidationFailure prometheus.Counter
	EngineUp                    prometheus.Gauge

	// Scene store metrics
	StoreOperationsTotal *prometheus.CounterVec

	// Event bus metrics
	EventsDroppedTotal prometheus.Gauge

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge

	registry  *prometheus.Registry
	startTime time.Time
	mu        sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a registry with every metric group registered
func NewRegistry() *Registry {
	r := &Registry{
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
	}

	r.initHTTPMetrics()
	r.initEditorMetrics()
	r.initSimulationMetrics()
	r.initStoreMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
