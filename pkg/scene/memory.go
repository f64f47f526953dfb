package scene

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/aspire-acoustics/pkg/logging"
	"github.com/dd0wney/aspire-acoustics/pkg/room"
	"github.com/dd0wney/aspire-acoustics/pkg/signalchain"
	"github.com/dd0wney/aspire-acoustics/pkg/simulation"
)

// MemoryOptions configures a MemoryStore.
type MemoryOptions struct {
	// Dir, when set, holds a compressed snapshot rewritten after every change.
	Dir string
	// RunLimit caps the history kept per scene. Zero keeps DefaultRunLimit.
	RunLimit int
	Logger   logging.Logger
	// Now and NewID are overridable for tests.
	Now   func() time.Time
	NewID func() string
}

// MemoryStore keeps scenes in memory, optionally backed by a snapshot file.
type MemoryStore struct {
	mu       sync.RWMutex
	scenes   map[string]Scene
	runs     map[string][]simulation.Run
	dir      string
	runLimit int
	logger   logging.Logger
	now      func() time.Time
	newID    func() string
}

// NewMemoryStore creates a store and loads the snapshot in opts.Dir, if any.
func NewMemoryStore(opts MemoryOptions) (*MemoryStore, error) {
	s := &MemoryStore{
		scenes:   make(map[string]Scene),
		runs:     make(map[string][]simulation.Run),
		dir:      opts.Dir,
		runLimit: opts.RunLimit,
		logger:   logging.OrNop(opts.Logger).With(logging.Component("scene_store")),
		now:      opts.Now,
		newID:    opts.NewID,
	}
	if s.runLimit <= 0 {
		s.runLimit = DefaultRunLimit
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.dir == "" {
		return s, nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, storeErr("open", "", err)
	}
	snap, err := readSnapshotFile(s.dir)
	if err != nil {
		return nil, storeErr("open", "", err)
	}
	for _, sc := range snap.Scenes {
		s.scenes[sc.ID] = sc
	}
	for id, runs := range snap.Runs {
		s.runs[id] = runs
	}
	s.logger.Info("scene snapshot loaded",
		logging.String("dir", s.dir),
		logging.Count(len(s.scenes)))
	return s, nil
}

// persist writes the snapshot. Callers hold mu.
func (s *MemoryStore) persist(op, id string) error {
	if s.dir == "" {
		return nil
	}
	snap := snapshot{Scenes: make([]Scene, 0, len(s.scenes)), Runs: s.runs}
	for _, sc := range s.scenes {
		snap.Scenes = append(snap.Scenes, sc)
	}
	sort.Slice(snap.Scenes, func(i, j int) bool { return snap.Scenes[i].ID < snap.Scenes[j].ID })
	if err := writeSnapshotFile(s.dir, snap); err != nil {
		s.logger.Error("scene snapshot write failed",
			logging.Operation(op), logging.SceneID(id), logging.Error(err))
		return storeErr(op, id, err)
	}
	return nil
}

func (s *MemoryStore) Create(ctx context.Context, in CreateInput) (Scene, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return Scene{}, storeErr("create", "", err)
	}
	now := s.now()
	sc := Scene{
		ID:          s.newID(),
		ProjectID:   in.ProjectID,
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenes[sc.ID] = sc
	if err := s.persist("create", sc.ID); err != nil {
		delete(s.scenes, sc.ID)
		return Scene{}, err
	}
	return sc.Clone(), nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Scene, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.scenes[id]
	if !ok {
		return Scene{}, notFound("get", id)
	}
	return sc.Clone(), nil
}

func (s *MemoryStore) List(ctx context.Context, projectID string) ([]Scene, error) {
	s.mu.RLock()
	out := make([]Scene, 0)
	for _, sc := range s.scenes {
		if sc.ProjectID == projectID {
			out = append(out, sc.Clone())
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// mutate applies fn to a copy of the scene, bumps UpdatedAt and persists.
// The stored scene is only replaced when fn and the snapshot both succeed.
func (s *MemoryStore) mutate(op, id string, fn func(*Scene, time.Time) error) (Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.scenes[id]
	if !ok {
		return Scene{}, notFound(op, id)
	}
	next := prev.Clone()
	now := s.now()
	if err := fn(&next, now); err != nil {
		return Scene{}, storeErr(op, id, err)
	}
	next.UpdatedAt = now
	s.scenes[id] = next
	if err := s.persist(op, id); err != nil {
		s.scenes[id] = prev
		return Scene{}, err
	}
	return next.Clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, patch Patch) (Scene, error) {
	return s.mutate("update", id, func(sc *Scene, _ time.Time) error {
		return patch.apply(sc)
	})
}

func (s *MemoryStore) Duplicate(ctx context.Context, id string) (Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.scenes[id]
	if !ok {
		return Scene{}, notFound("duplicate", id)
	}
	now := s.now()
	cp := src.Clone()
	cp.ID = s.newID()
	cp.Name = src.Name + CopySuffix
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.scenes[cp.ID] = cp
	if err := s.persist("duplicate", cp.ID); err != nil {
		delete(s.scenes, cp.ID)
		return Scene{}, err
	}
	return cp.Clone(), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.scenes[id]
	if !ok {
		return notFound("delete", id)
	}
	runs := s.runs[id]
	delete(s.scenes, id)
	delete(s.runs, id)
	if err := s.persist("delete", id); err != nil {
		s.scenes[id] = sc
		if runs != nil {
			s.runs[id] = runs
		}
		return err
	}
	return nil
}

func (s *MemoryStore) SaveInstrumentSetup(ctx context.Context, id string, g signalchain.Graph) (Scene, error) {
	return s.mutate("save_instrument_setup", id, func(sc *Scene, now time.Time) error {
		sc.InstrumentSetup = instrumentSetup(g, now)
		return nil
	})
}

func (s *MemoryStore) SaveGeometry(ctx context.Context, id string, geo GeometryData) (Scene, error) {
	if err := validateGeometry(geo); err != nil {
		return Scene{}, storeErr("save_geometry", id, err)
	}
	return s.mutate("save_geometry", id, func(sc *Scene, _ time.Time) error {
		sc.GeometryData = geo.clone()
		return nil
	})
}

func (s *MemoryStore) SaveSpeakers(ctx context.Context, id string, speakers []room.Speaker) (Scene, error) {
	return s.mutate("save_speakers", id, func(sc *Scene, now time.Time) error {
		sc.SoundSourceData = soundSources(speakers, now)
		return nil
	})
}

// RecordRun prepends run to its scene's history, trimming to the run limit.
func (s *MemoryStore) RecordRun(ctx context.Context, run simulation.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scenes[run.SceneID]; !ok {
		return notFound("record_run", run.SceneID)
	}
	prev := s.runs[run.SceneID]
	next := make([]simulation.Run, 0, len(prev)+1)
	next = append(next, run)
	next = append(next, prev...)
	if len(next) > s.runLimit {
		next = next[:s.runLimit]
	}
	s.runs[run.SceneID] = next
	if err := s.persist("record_run", run.SceneID); err != nil {
		s.runs[run.SceneID] = prev
		return err
	}
	return nil
}

func (s *MemoryStore) Runs(ctx context.Context, sceneID string, limit int) ([]simulation.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.scenes[sceneID]; !ok {
		return nil, notFound("runs", sceneID)
	}
	if limit <= 0 {
		limit = DefaultRunLimit
	}
	runs := s.runs[sceneID]
	if len(runs) > limit {
		runs = runs[:limit]
	}
	out := make([]simulation.Run, len(runs))
	copy(out, runs)
	return out, nil
}

// Ping checks that the snapshot directory is still writable.
func (s *MemoryStore) Ping(ctx context.Context) error {
	if s.dir == "" {
		return nil
	}
	info, err := os.Stat(s.dir)
	if err != nil {
		return storeErr("ping", "", err)
	}
	if !info.IsDir() {
		return storeErr("ping", "", fmt.Errorf("%s is not a directory", s.dir))
	}
	return nil
}

// Close flushes a final snapshot.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist("close", "")
}

// Len reports how many scenes are stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scenes)
}
