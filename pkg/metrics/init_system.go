package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSystemMetrics() {
	r.UptimeSeconds = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "aspire_uptime_seconds",
			Help: "Time since the server started in seconds",
		},
	)

	r.GoRoutines = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "aspire_goroutines",
			Help: "Number of goroutines",
		},
	)

	r.MemoryAllocBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "aspire_memory_alloc_bytes",
			Help: "Bytes of allocated heap objects",
		},
	)

	r.EventsDroppedTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "aspire_events_dropped",
			Help: "Scene events dropped because a subscriber was too slow",
		},
	)
}
