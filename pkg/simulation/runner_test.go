package simulation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/aspire-acoustics/pkg/acoustics"
	"github.com/dd0wney/aspire-acoustics/pkg/pubsub"
)

type fakeEngine struct {
	mu      sync.Mutex
	calls   int
	resp    EngineResponse
	err     error
	block   chan struct{}
	started chan struct{}
}

func (f *fakeEngine) Simulate(ctx context.Context, req EngineRequest) (EngineResponse, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	return f.resp, f.err
}

func (f *fakeEngine) Health(context.Context) (EngineHealth, error) {
	return EngineHealth{Status: "healthy"}, nil
}

func (f *fakeEngine) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type memoryRecorder struct {
	mu   sync.Mutex
	runs []Run
}

func (m *memoryRecorder) RecordRun(_ context.Context, run Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

type countingObserver struct {
	started, invalid int
	finished         []RunStatus
}

func (o *countingObserver) RunStarted(Type) { o.started++ }
func (o *countingObserver) RunFinished(_ Type, s RunStatus, _ time.Duration) {
	o.finished = append(o.finished, s)
}
func (o *countingObserver) ValidationFailed() { o.invalid++ }

func validInput(sceneID string) Input {
	faces := acoustics.NewFaceMaterials()
	return Input{SceneID: sceneID, Dimensions: acoustics.DefaultDimensions(), Faces: &faces, Speakers: oneSpeaker()}
}

func TestRunner_Success(t *testing.T) {
	engine := &fakeEngine{resp: successResponse(2.0, map[string]float64{"500": 2.0, "1000": 2.0})}
	rec := &memoryRecorder{}
	obs := &countingObserver{}
	bus := pubsub.NewBus()
	defer bus.Shutdown()
	sub, err := bus.Subscribe(context.Background(), pubsub.SceneTopic("s1"))
	require.NoError(t, err)

	r := NewRunner(RunnerConfig{Engine: engine, Recorder: rec, Observer: obs, Publisher: bus})
	out, err := r.Run(context.Background(), validInput("s1"))
	require.NoError(t, err)

	assert.Equal(t, TypeSabine, out.Request.SimulationType)
	assert.Equal(t, Optimal, out.Report.Category.ID)
	assert.Equal(t, RunSucceeded, out.Run.Status)
	require.NotNil(t, out.Run.AverageRT60)
	assert.Equal(t, 2.0, *out.Run.AverageRT60)
	assert.NotEmpty(t, out.Run.ID)
	assert.False(t, r.InFlight("s1"))

	require.Len(t, rec.runs, 1)
	assert.Equal(t, out.Run.ID, rec.runs[0].ID)
	assert.Equal(t, 1, obs.started)
	assert.Equal(t, []RunStatus{RunSucceeded}, obs.finished)

	assert.Equal(t, EventStarted, (<-sub.C()).Kind)
	assert.Equal(t, EventFinished, (<-sub.C()).Kind)
}

func TestRunner_InvalidRequestNeverCallsEngine(t *testing.T) {
	engine := &fakeEngine{}
	obs := &countingObserver{}
	r := NewRunner(RunnerConfig{Engine: engine, Observer: obs})

	in := validInput("s1")
	in.Speakers = nil
	_, err := r.Run(context.Background(), in)

	var re *RequestError
	require.ErrorAs(t, err, &re)
	assert.Contains(t, re.Errors, "at least one speaker must be connected to the simulation")
	assert.Zero(t, engine.Calls())
	assert.Equal(t, 1, obs.invalid)
	assert.False(t, r.InFlight("s1"))
}

func TestRunner_EngineErrorStatus(t *testing.T) {
	msg := "absorption out of range"
	engine := &fakeEngine{resp: EngineResponse{Status: StatusError, ErrorMessage: &msg}}
	rec := &memoryRecorder{}
	r := NewRunner(RunnerConfig{Engine: engine, Recorder: rec})

	out, err := r.Run(context.Background(), validInput("s1"))
	assert.ErrorIs(t, err, ErrEngineFailure)
	assert.Equal(t, RunFailed, out.Run.Status)
	assert.Equal(t, msg, out.Run.Error)
	require.Len(t, rec.runs, 1)
	assert.NotNil(t, rec.runs[0].Response)
	assert.False(t, r.InFlight("s1"), "gate released so the user can retry")
	assert.Equal(t, 1, engine.Calls(), "no automatic retry")
}

func TestRunner_TransportError(t *testing.T) {
	engine := &fakeEngine{err: &EngineError{Message: "connection refused"}}
	r := NewRunner(RunnerConfig{Engine: engine})

	out, err := r.Run(context.Background(), validInput("s1"))
	assert.ErrorIs(t, err, ErrEngineFailure)
	assert.Equal(t, "connection refused", out.Run.Error)
	assert.Nil(t, out.Run.Response)
}

func TestRunner_OneRunPerScene(t *testing.T) {
	engine := &fakeEngine{
		resp:    successResponse(1.7, map[string]float64{"500": 1.7}),
		block:   make(chan struct{}),
		started: make(chan struct{}, 2),
	}
	r := NewRunner(RunnerConfig{Engine: engine})

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), validInput("s1"))
		done <- err
	}()
	<-engine.started
	assert.True(t, r.InFlight("s1"))

	_, err := r.Run(context.Background(), validInput("s1"))
	assert.ErrorIs(t, err, ErrSimulationInFlight)

	// Other scenes are independent.
	go func() { _, _ = r.Run(context.Background(), validInput("s2")) }()
	<-engine.started

	close(engine.block)
	require.NoError(t, <-done)
	assert.Eventually(t, func() bool { return !r.InFlight("s1") && !r.InFlight("s2") }, time.Second, 5*time.Millisecond)
}

func TestRunner_UnknownType(t *testing.T) {
	r := NewRunner(RunnerConfig{Engine: &fakeEngine{}})
	in := validInput("s1")
	in.Type = "rt60_guess"
	_, err := r.Run(context.Background(), in)
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.False(t, errors.Is(err, ErrSimulationInFlight))
}
