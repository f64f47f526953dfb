package metrics

import (
	"runtime"
	"time"

	"github.com/dd0wney/aspire-acoustics/pkg/signalchain"
	"github.com/dd0wney/aspire-acoustics/pkg/simulation"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordResponseSize observes the size of a response body.
func (r *Registry) RecordResponseSize(method, path string, size float64) {
	r.HTTPResponseSizeBytes.WithLabelValues(method, path).Observe(size)
}

func (r *Registry) IncHTTPRequestsInFlight() { r.HTTPRequestsInFlight.Inc() }
func (r *Registry) DecHTTPRequestsInFlight() { r.HTTPRequestsInFlight.Dec() }

// ConnectionAttempt counts one validated connection. result is the verdict code.
func (r *Registry) ConnectionAttempt(source, target signalchain.NodeType, result string) {
	r.ConnectionAttemptsTotal.WithLabelValues(string(source), string(target), result).Inc()
}

// Mutation counts one signal chain edit.
func (r *Registry) Mutation(kind string) {
	r.EditorMutationsTotal.WithLabelValues(kind).Inc()
}

func (r *Registry) RunStarted(t simulation.Type) {
	r.SimulationsInFlight.Inc()
}

func (r *Registry) RunFinished(t simulation.Type, status simulation.RunStatus, d time.Duration) {
	r.SimulationsInFlight.Dec()
	r.SimulationRunsTotal.WithLabelValues(string(t), string(status)).Inc()
	r.SimulationDuration.WithLabelValues(string(t)).Observe(d.Seconds())
}

func (r *Registry) ValidationFailed() {
	r.SimulationValidationFailure.Inc()
}

// SetEditorSessions records how many scenes have a live editor session.
func (r *Registry) SetEditorSessions(n int) {
	r.EditorSessions.Set(float64(n))
}

// SetEventsDropped records the event bus drop counter.
func (r *Registry) SetEventsDropped(n uint64) {
	r.EventsDroppedTotal.Set(float64(n))
}

// SetEngineUp records the result of an engine health probe.
func (r *Registry) SetEngineUp(up bool) {
	if up {
		r.EngineUp.Set(1)
	} else {
		r.EngineUp.Set(0)
	}
}

// StoreOperation counts one scene store call.
func (r *Registry) StoreOperation(op string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.StoreOperationsTotal.WithLabelValues(op, status).Inc()
}

// UpdateSystemMetrics refreshes uptime and runtime gauges.
func (r *Registry) UpdateSystemMetrics() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	r.UptimeSeconds.Set(time.Since(r.startTime).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(mem.Alloc))
}
