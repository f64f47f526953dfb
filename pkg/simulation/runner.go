package simulation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/aspire-acoustics/pkg/acoustics"
	"github.com/dd0wney/aspire-acoustics/pkg/logging"
	"github.com/dd0wney/aspire-acoustics/pkg/pubsub"
	"github.com/dd0wney/aspire-acoustics/pkg/room"
)

// Event kinds published on the scene topic.
const (
	EventStarted  = "simulation.started"
	EventFinished = "simulation.finished"
	EventFailed   = "simulation.failed"
)

// RunStatus is the outcome of a run as kept in history.
type RunStatus string

const (
	RunSucceeded RunStatus = "success"
	RunFailed    RunStatus = "error"
)

// Run is one entry of a scene's simulation history.
type Run struct {
	ID             string          `json:"id"`
	SceneID        string          `json:"sceneId"`
	Type           Type            `json:"simulationType"`
	Status         RunStatus       `json:"status"`
	AverageRT60    *float64        `json:"averageRt60,omitempty"`
	Classification CategoryID      `json:"classification,omitempty"`
	Error          string          `json:"error,omitempty"`
	StartedAt      time.Time       `json:"startedAt"`
	FinishedAt     time.Time       `json:"finishedAt"`
	Response       *EngineResponse `json:"response,omitempty"`
}

// Duration is the wall time of the run.
func (r Run) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// RunRecorder keeps run history.
type RunRecorder interface {
	RecordRun(ctx context.Context, run Run) error
}

// Observer receives runner activity for metrics.
type Observer interface {
	RunStarted(t Type)
	RunFinished(t Type, status RunStatus, d time.Duration)
	ValidationFailed()
}

type nopObserver struct{}

func (nopObserver) RunStarted(Type)                            {}
func (nopObserver) RunFinished(Type, RunStatus, time.Duration) {}
func (nopObserver) ValidationFailed()                          {}

// Input is the room state a run is built from.
type Input struct {
	SceneID    string
	Type       Type
	Dimensions acoustics.Dimensions
	Faces      *acoustics.FaceMaterials
	Speakers   []room.Speaker
	Bands      []int
}

// Outcome is a completed engine round trip.
type Outcome struct {
	Run      Run            `json:"run"`
	Request  EngineRequest  `json:"request"`
	Response EngineResponse `json:"response"`
	Report   Report         `json:"report"`
}

// RunnerConfig wires a Runner. Only Engine is required.
type RunnerConfig struct {
	Engine      Engine
	Transformer *Transformer
	Logger      logging.Logger
	Publisher   pubsub.Publisher
	Observer    Observer
	Recorder    RunRecorder
}

// Runner executes simulations, at most one at a time per scene.
type Runner struct {
	engine      Engine
	transformer Transformer
	logger      logging.Logger
	publish     pubsub.Publisher
	observer    Observer
	recorder    RunRecorder
	now         func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewRunner(cfg RunnerConfig) *Runner {
	r := &Runner{
		engine:      cfg.Engine,
		transformer: NewTransformer(),
		logger:      logging.OrNop(cfg.Logger).With(logging.Component("simulation_runner")),
		publish:     pubsub.OrDiscard(cfg.Publisher),
		observer:    cfg.Observer,
		recorder:    cfg.Recorder,
		now:         time.Now,
		inFlight:    make(map[string]struct{}),
	}
	if cfg.Transformer != nil {
		r.transformer = *cfg.Transformer
	}
	if r.observer == nil {
		r.observer = nopObserver{}
	}
	return r
}

// InFlight reports whether sceneID has a run in progress.
func (r *Runner) InFlight(sceneID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.inFlight[sceneID]
	return ok
}

func (r *Runner) acquire(sceneID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inFlight[sceneID]; busy {
		return false
	}
	r.inFlight[sceneID] = struct{}{}
	return true
}

func (r *Runner) release(sceneID string) {
	r.mu.Lock()
	delete(r.inFlight, sceneID)
	r.mu.Unlock()
}

// Run validates the room, calls the engine once and classifies the result.
// An invalid room fails with *RequestError before any network call; engine
// failures come back as *EngineError. A second run for a scene that is still
// running fails with ErrSimulationInFlight. Nothing is retried.
func (r *Runner) Run(ctx context.Context, in Input) (Outcome, error) {
	simType, err := ParseType(string(in.Type))
	if err != nil {
		return Outcome{}, err
	}
	if !r.acquire(in.SceneID) {
		return Outcome{}, ErrSimulationInFlight
	}
	defer r.release(in.SceneID)

	logger := r.logger.With(logging.SceneID(in.SceneID), logging.String("simulation_type", string(simType)))

	req := ToRequest(in.Dimensions, in.Faces, in.Speakers, in.Bands)
	if err := req.Err(); err != nil {
		r.observer.ValidationFailed()
		logger.Warn("simulation request rejected", logging.Error(err))
		return Outcome{}, err
	}
	logger.Debug(req.Summary())

	out := Outcome{
		Request: r.transformer.Transform(req, simType),
		Run: Run{
			ID:        uuid.New().String(),
			SceneID:   in.SceneID,
			Type:      simType,
			StartedAt: r.now().UTC(),
		},
	}

	topic := pubsub.SceneTopic(in.SceneID)
	r.observer.RunStarted(simType)
	r.publish.Publish(topic, EventStarted, out.Run.ID)

	resp, err := r.engine.Simulate(ctx, out.Request)
	if err == nil {
		out.Response = resp
		out.Report, err = NewReport(resp)
	}
	out.Run.FinishedAt = r.now().UTC()

	if err != nil {
		out.Run.Status = RunFailed
		out.Run.Error = failureMessage(err)
		if resp.Status != "" {
			out.Run.Response = &resp
		}
		r.finish(ctx, logger, out.Run)
		r.publish.Publish(topic, EventFailed, out.Run)
		return out, err
	}

	avg := out.Report.AverageRT60
	out.Run.Status = RunSucceeded
	out.Run.AverageRT60 = &avg
	out.Run.Classification = out.Report.Category.ID
	out.Run.Response = &out.Response
	r.finish(ctx, logger, out.Run)
	r.publish.Publish(topic, EventFinished, out.Run)
	return out, nil
}

func (r *Runner) finish(ctx context.Context, logger logging.Logger, run Run) {
	r.observer.RunFinished(run.Type, run.Status, run.Duration())

	fields := []logging.Field{logging.RunID(run.ID), logging.Latency(run.Duration())}
	if run.Status == RunSucceeded {
		logger.Info("simulation finished", append(fields,
			logging.Float64("average_rt60", *run.AverageRT60),
			logging.String("classification", string(run.Classification)))...)
	} else {
		logger.Error("simulation failed", append(fields, logging.String("error", run.Error))...)
	}

	if r.recorder == nil {
		return
	}
	// The caller's context may already be done when the engine timed out.
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.recorder.RecordRun(recCtx, run); err != nil {
		logger.Warn("failed to record simulation run", logging.RunID(run.ID), logging.Error(err))
	}
}

// failureMessage is the single human-readable message for a failed run.
func failureMessage(err error) string {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Message
	}
	return err.Error()
}
