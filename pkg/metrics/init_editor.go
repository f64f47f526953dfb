package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initEditorMetrics() {
	r.ConnectionAttemptsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "aspire_signalchain_connection_attempts_total",
			Help: "Connection attempts by source type, target type and result",
		},
		[]string{"source_type", "target_type", "result"},
	)

	r.EditorMutationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "aspire_signalchain_mutations_total",
			Help: "Signal chain mutations by kind",
		},
		[]string{"kind"},
	)

	r.EditorSessions = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "aspire_editor_sessions",
			Help: "Scenes with an open editor session",
		},
	)
}
