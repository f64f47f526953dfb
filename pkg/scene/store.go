package scene

import (
	"context"

	"github.com/dd0wney/aspire-acoustics/pkg/room"
	"github.com/dd0wney/aspire-acoustics/pkg/signalchain"
	"github.com/dd0wney/aspire-acoustics/pkg/simulation"
)

// Store persists scenes and their run history. Every lookup of an unknown
// scene fails with an error matching ErrSceneNotFound.
type Store interface {
	Create(ctx context.Context, in CreateInput) (Scene, error)
	Get(ctx context.Context, id string) (Scene, error)
	// List returns a project's scenes, most recently updated first.
	List(ctx context.Context, projectID string) ([]Scene, error)
	Update(ctx context.Context, id string, patch Patch) (Scene, error)
	Duplicate(ctx context.Context, id string) (Scene, error)
	Delete(ctx context.Context, id string) error

	SaveInstrumentSetup(ctx context.Context, id string, g signalchain.Graph) (Scene, error)
	SaveGeometry(ctx context.Context, id string, geo GeometryData) (Scene, error)
	SaveSpeakers(ctx context.Context, id string, speakers []room.Speaker) (Scene, error)

	RecordRun(ctx context.Context, run simulation.Run) error
	// Runs returns a scene's history, newest first.
	Runs(ctx context.Context, sceneID string, limit int) ([]simulation.Run, error)

	Ping(ctx context.Context) error
	Close() error
}

// DefaultRunLimit caps Runs when the caller passes a non-positive limit.
const DefaultRunLimit = 50

// Observer is told the outcome of every store call.
type Observer interface {
	StoreOperation(op string, err error)
}

// Observe wraps s so each call is reported to obs.
func Observe(s Store, obs Observer) Store {
	if obs == nil {
		return s
	}
	return &observedStore{next: s, obs: obs}
}

type observedStore struct {
	next Store
	obs  Observer
}

func (o *observedStore) Create(ctx context.Context, in CreateInput) (Scene, error) {
	s, err := o.next.Create(ctx, in)
	o.obs.StoreOperation("create", err)
	return s, err
}

func (o *observedStore) Get(ctx context.Context, id string) (Scene, error) {
	s, err := o.next.Get(ctx, id)
	o.obs.StoreOperation("get", err)
	return s, err
}

func (o *observedStore) List(ctx context.Context, projectID string) ([]Scene, error) {
	s, err := o.next.List(ctx, projectID)
	o.obs.StoreOperation("list", err)
	return s, err
}

func (o *observedStore) Update(ctx context.Context, id string, patch Patch) (Scene, error) {
	s, err := o.next.Update(ctx, id, patch)
	o.obs.StoreOperation("update", err)
	return s, err
}

func (o *observedStore) Duplicate(ctx context.Context, id string) (Scene, error) {
	s, err := o.next.Duplicate(ctx, id)
	o.obs.StoreOperation("duplicate", err)
	return s, err
}

func (o *observedStore) Delete(ctx context.Context, id string) error {
	err := o.next.Delete(ctx, id)
	o.obs.StoreOperation("delete", err)
	return err
}

func (o *observedStore) SaveInstrumentSetup(ctx context.Context, id string, g signalchain.Graph) (Scene, error) {
	s, err := o.next.SaveInstrumentSetup(ctx, id, g)
	o.obs.StoreOperation("save_instrument_setup", err)
	return s, err
}

func (o *observedStore) SaveGeometry(ctx context.Context, id string, geo GeometryData) (Scene, error) {
	s, err := o.next.SaveGeometry(ctx, id, geo)
	o.obs.StoreOperation("save_geometry", err)
	return s, err
}

func (o *observedStore) SaveSpeakers(ctx context.Context, id string, speakers []room.Speaker) (Scene, error) {
	s, err := o.next.SaveSpeakers(ctx, id, speakers)
	o.obs.StoreOperation("save_speakers", err)
	return s, err
}

func (o *observedStore) RecordRun(ctx context.Context, run simulation.Run) error {
	err := o.next.RecordRun(ctx, run)
	o.obs.StoreOperation("record_run", err)
	return err
}

func (o *observedStore) Runs(ctx context.Context, sceneID string, limit int) ([]simulation.Run, error) {
	r, err := o.next.Runs(ctx, sceneID, limit)
	o.obs.StoreOperation("runs", err)
	return r, err
}

func (o *observedStore) Ping(ctx context.Context) error {
	err := o.next.Ping(ctx)
	o.obs.StoreOperation("ping", err)
	return err
}

func (o *observedStore) Close() error { return o.next.Close() }
