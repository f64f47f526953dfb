package simulation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidRequest     = errors.New("simulation: invalid request")
	ErrEngineFailure      = errors.New("simulation: engine failure")
	ErrSimulationInFlight = errors.New("simulation: a run is already in progress for this scene")
	ErrUnknownType        = errors.New("simulation: unknown simulation type")
)

// RequestError carries every problem found in a request.
type RequestError struct {
	Errors []string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("invalid simulation request: %s", strings.Join(e.Errors, "; "))
}

func (e *RequestError) Unwrap() error { return ErrInvalidRequest }

// EngineError is a failure reported by, or while reaching, the engine.
// StatusCode is zero for transport errors and for error bodies returned with
// a 2xx status.
type EngineError struct {
	StatusCode int
	Message    string
}

func (e *EngineError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("simulation engine error (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return "simulation engine error: " + e.Message
}

func (e *EngineError) Unwrap() error { return ErrEngineFailure }
