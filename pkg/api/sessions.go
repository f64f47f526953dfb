package api

import (
	"context"
	"sync"

	"github.com/dd0wney/aspire-acoustics/pkg/editor"
	"github.com/dd0wney/aspire-acoustics/pkg/logging"
	"github.com/dd0wney/aspire-acoustics/pkg/pubsub"
	"github.com/dd0wney/aspire-acoustics/pkg/room"
	"github.com/dd0wney/aspire-acoustics/pkg/scene"
	"github.com/dd0wney/aspire-acoustics/pkg/signalchain"
)

// session is the live editing state of one scene: its signal chain and its
// room. It is built from the stored scene on first use.
type session struct {
	sceneID    string
	chain      *editor.Store
	room       *room.Editor
	violations []signalchain.Violation

	// save serializes writes of this scene's documents.
	save sync.Mutex
}

// sessionRegistry keeps one session per scene.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*session
	// loading guards against two requests building the same session.
	loading map[string]*sync.Mutex

	store     scene.Store
	logger    logging.Logger
	publisher pubsub.Publisher
	recorder  editor.Recorder
	onCount   func(int)
}

func newSessionRegistry(store scene.Store, logger logging.Logger, pub pubsub.Publisher, rec editor.Recorder, onCount func(int)) *sessionRegistry {
	if onCount == nil {
		onCount = func(int) {}
	}
	return &sessionRegistry{
		sessions:  make(map[string]*session),
		loading:   make(map[string]*sync.Mutex),
		store:     store,
		logger:    logger,
		publisher: pub,
		recorder:  rec,
		onCount:   onCount,
	}
}

// get returns the scene's session, loading it from the store if needed.
func (r *sessionRegistry) get(ctx context.Context, sceneID string) (*session, error) {
	r.mu.Lock()
	if s, ok := r.sessions[sceneID]; ok {
		r.mu.Unlock()
		return s, nil
	}
	l, ok := r.loading[sceneID]
	if !ok {
		l = &sync.Mutex{}
		r.loading[sceneID] = l
	}
	r.mu.Unlock()

	l.Lock()
	defer l.Unlock()

	r.mu.Lock()
	if s, ok := r.sessions[sceneID]; ok {
		r.mu.Unlock()
		return s, nil
	}
	r.mu.Unlock()

	sc, err := r.store.Get(ctx, sceneID)
	if err != nil {
		return nil, err
	}
	s, err := r.open(sc)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.sessions[sceneID] = s
	delete(r.loading, sceneID)
	n := len(r.sessions)
	r.mu.Unlock()

	r.onCount(n)
	return s, nil
}

func (r *sessionRegistry) open(sc scene.Scene) (*session, error) {
	chain := editor.New(sc.ID, editor.Config{
		Logger:    r.logger,
		Publisher: r.publisher,
		Recorder:  r.recorder,
	})
	violations := chain.LoadFlow(sc.InstrumentSetup.Nodes, sc.InstrumentSetup.Edges)

	rm := room.NewEditor(sc.ID, r.logger, r.publisher)
	if err := rm.Load(sc.GeometryData.DimensionsOrDefault(), sc.SoundSourceData.Speakers, sc.GeometryData.Materials); err != nil {
		return nil, err
	}

	r.logger.Debug("editor session opened",
		logging.SceneID(sc.ID),
		logging.Int("nodes", len(sc.InstrumentSetup.Nodes)),
		logging.Int("violations", len(violations)))
	return &session{sceneID: sc.ID, chain: chain, room: rm, violations: violations}, nil
}

// drop forgets a scene's session, e.g. after the scene is deleted.
func (r *sessionRegistry) drop(sceneID string) {
	r.mu.Lock()
	_, ok := r.sessions[sceneID]
	delete(r.sessions, sceneID)
	n := len(r.sessions)
	r.mu.Unlock()
	if ok {
		r.onCount(n)
	}
}

func (r *sessionRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// geometry is the room state in its stored form.
func (s *session) geometry() scene.GeometryData {
	dims := s.room.Dimensions()
	faces := s.room.FaceMaterials()
	return scene.GeometryData{Dimensions: &dims, Materials: &faces}
}
