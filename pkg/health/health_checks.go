package health

import (
	"context"
	"runtime"
	"time"

	"github.com/dd0wney/aspire-acoustics/pkg/simulation"
)

// SimpleCheck reports a component as healthy
func SimpleCheck(name string) CheckFunc {
	return func(context.Context) Check {
		return Check{
			Name:        name,
			Status:      StatusHealthy,
			LastChecked: time.Now(),
		}
	}
}

// StoreCheck reports the scene store as unhealthy when ping fails
func StoreCheck(ping func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{Name: "scene_store"}
		if err := ping(ctx); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		} else {
			check.Status = StatusHealthy
			check.Message = "Connected"
		}
		return check
	}
}

// EngineCheck probes the simulation engine. An unreachable engine only
// degrades the service; scenes can still be edited and saved.
// report, when set, receives the probe result.
func EngineCheck(engine simulation.Engine, report func(up bool)) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{
			Name:    "simulation_engine",
			Details: make(map[string]any),
		}

		h, err := engine.Health(ctx)
		up := err == nil
		if report != nil {
			report(up)
		}
		if !up {
			check.Status = StatusDegraded
			check.Message = err.Error()
			return check
		}

		check.Status = StatusHealthy
		check.Message = "Engine reachable"
		if h.Status != "" {
			check.Details["engine_status"] = h.Status
		}
		if h.Version != "" {
			check.Details["engine_version"] = h.Version
		}
		return check
	}
}

// MemoryCheck degrades when the heap holds most of the memory taken from the OS
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	if getUsage == nil {
		getUsage = runtimeMemory
	}
	return func(context.Context) Check {
		check := Check{
			Name:    "memory",
			Details: make(map[string]any),
		}

		alloc, sys := getUsage()
		check.Details["alloc_bytes"] = alloc
		check.Details["sys_bytes"] = sys

		if sys > 0 && float64(alloc)/float64(sys)*100 > 90 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}
		return check
	}
}

func runtimeMemory() (alloc, sys uint64) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc, m.Sys
}
