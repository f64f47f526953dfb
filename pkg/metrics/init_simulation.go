package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSimulationMetrics() {
	r.SimulationRunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "aspire_simulation_runs_total",
			Help: "Completed simulation runs by type and status",
		},
		[]string{"type", "status"},
	)

	r.SimulationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aspire_simulation_duration_seconds",
			Help:    "Wall time of a simulation engine round trip",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"type"},
	)

	r.SimulationsInFlight = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "aspire_simulations_in_flight",
			Help: "Simulations waiting on the engine",
		},
	)

	r.SimulationValidationFailure = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "aspire_simulation_validation_failures_total",
			Help: "Simulation requests rejected before reaching the engine",
		},
	)

	r.EngineUp = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "aspire_engine_up",
			Help: "1 when the last engine health check succeeded",
		},
	)
}
