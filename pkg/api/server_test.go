package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/aspire-acoustics/pkg/acoustics"
	"github.com/dd0wney/aspire-acoustics/pkg/catalog"
	"github.com/dd0wney/aspire-acoustics/pkg/editor"
	"github.com/dd0wney/aspire-acoustics/pkg/metrics"
	"github.com/dd0wney/aspire-acoustics/pkg/pubsub"
	"github.com/dd0wney/aspire-acoustics/pkg/room"
	"github.com/dd0wney/aspire-acoustics/pkg/scene"
	"github.com/dd0wney/aspire-acoustics/pkg/signalchain"
	"github.com/dd0wney/aspire-acoustics/pkg/simulation"
)

type fakeEngine struct {
	mu      sync.Mutex
	calls   int
	resp    simulation.EngineResponse
	err     error
	started chan struct{}
	block   chan struct{}
}

func (f *fakeEngine) Simulate(ctx context.Context, _ simulation.EngineRequest) (simulation.EngineResponse, error) {
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

func (f *fakeEngine) Health(context.Context) (simulation.EngineHealth, error) {
	return simulation.EngineHealth{Status: "ok"}, nil
}

func (f *fakeEngine) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func engineSuccess(avg float64) simulation.EngineResponse {
	id := "sim-1"
	return simulation.EngineResponse{
		Status:   simulation.StatusSuccess,
		Metadata: simulation.Metadata{SimulationID: &id, EngineUsed: "sabine", Timestamp: "2026-01-01T00:00:00Z"},
		Results: &simulation.RT60Result{
			RT60ByBand:  map[string]float64{"500": avg, "1000": avg},
			AverageRT60: avg,
		},
	}
}

type fakePutter struct {
	key  string
	body []byte
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.key = *in.Key
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	return &s3.PutObjectOutput{}, nil
}

type testEnv struct {
	server  *Server
	handler http.Handler
	store   *scene.MemoryStore
	engine  *fakeEngine
	bus     *pubsub.Bus
	metrics *metrics.Registry
}

func newTestEnv(t *testing.T, mutate ...func(*Config)) *testEnv {
	t.Helper()
	store, err := scene.NewMemoryStore(scene.MemoryOptions{})
	require.NoError(t, err)
	cat, err := catalog.NewSeeded()
	require.NoError(t, err)

	bus := pubsub.NewBus()
	t.Cleanup(bus.Shutdown)
	reg := metrics.NewRegistry()
	engine := &fakeEngine{resp: engineSuccess(2.0)}

	cfg := Config{
		Store:   store,
		Catalog: cat,
		Runner: simulation.NewRunner(simulation.RunnerConfig{
			Engine:    engine,
			Recorder:  store,
			Observer:  reg,
			Publisher: bus,
		}),
		Bus:     bus,
		Metrics: reg,
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	srv, err := NewServer(cfg)
	require.NoError(t, err)
	return &testEnv{server: srv, handler: srv.Handler(), store: store, engine: engine, bus: bus, metrics: reg}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rdr = strings.NewReader(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			rdr = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, rdr)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (e *testEnv) createScene(t *testing.T) scene.Scene {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/scenes", map[string]string{"projectId": "p1", "name": "Main hall"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[scene.Scene](t, rec)
}

func (e *testEnv) addNode(t *testing.T, sceneID string, typ signalchain.NodeType) signalchain.Node {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/scenes/"+sceneID+"/signal-chain/nodes", AddNodeRequest{Type: string(typ)})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[signalchain.Node](t, rec)
}

func (e *testEnv) setCatalog(t *testing.T, sceneID, nodeID, catalogID string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, http.MethodPatch, "/api/scenes/"+sceneID+"/signal-chain/nodes/"+nodeID,
		map[string]string{"catalogId": catalogID})
}

func (e *testEnv) connect(t *testing.T, sceneID, source, target string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, http.MethodPost, "/api/scenes/"+sceneID+"/signal-chain/connections",
		ConnectRequest{Source: source, Target: target})
}

// wireSpeaker builds speaker -> simulation with a catalogued speaker.
func (e *testEnv) wireSpeaker(t *testing.T, sceneID string) {
	t.Helper()
	spk := e.addNode(t, sceneID, signalchain.Speaker)
	sim := e.addNode(t, sceneID, signalchain.Simulation)
	require.Equal(t, http.StatusOK, e.setCatalog(t, sceneID, spk.ID, "jbl-prx908").Code)
	require.Equal(t, http.StatusCreated, e.connect(t, sceneID, spk.ID, sim.ID).Code)
}

func TestNewServerRequiresCollaborators(t *testing.T) {
	_, err := NewServer(Config{})
	assert.Error(t, err)

	store, err := scene.NewMemoryStore(scene.MemoryOptions{})
	require.NoError(t, err)
	_, err = NewServer(Config{Store: store})
	assert.ErrorContains(t, err, "catalog")
}

func TestSceneLifecycle(t *testing.T) {
	env := newTestEnv(t)
	sc := env.createScene(t)
	assert.Equal(t, "Main hall", sc.Name)

	rec := env.do(t, http.MethodGet, "/api/scenes?project=p1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]scene.Scene](t, rec), 1)

	rec = env.do(t, http.MethodPatch, "/api/scenes/"+sc.ID, map[string]string{"name": "Side hall"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Side hall", decode[scene.Scene](t, rec).Name)

	rec = env.do(t, http.MethodPost, "/api/scenes/"+sc.ID+"/duplicate", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	dup := decode[scene.Scene](t, rec)
	assert.NotEqual(t, sc.ID, dup.ID)

	rec = env.do(t, http.MethodDelete, "/api/scenes/"+sc.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/scenes/"+sc.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, decode[ErrorResponse](t, rec).Code)
}

func TestCreateSceneErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"missing name", map[string]string{"projectId": "p1"}, http.StatusUnprocessableEntity},
		{"blank name", map[string]string{"projectId": "p1", "name": "   "}, http.StatusUnprocessableEntity},
		{"unknown field", `{"projectId":"p1","name":"x","colour":"red"}`, http.StatusBadRequest},
		{"malformed", `{"projectId":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/scenes", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	rec := env.do(t, http.MethodPost, "/api/scenes", map[string]string{"projectId": "p1"})
	assert.NotEmpty(t, decode[ErrorResponse](t, rec).Errors)

	rec = env.do(t, http.MethodGet, "/api/scenes", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignalChainEditing(t *testing.T) {
	env := newTestEnv(t)
	sc := env.createScene(t)

	inst := env.addNode(t, sc.ID, signalchain.Instrument)
	mixer := env.addNode(t, sc.ID, signalchain.Mixer)
	assert.Equal(t, "Mixer", mixer.Data.Label)

	// A mixer without a model refuses input.
	rec := env.connect(t, sc.ID, inst.ID, mixer.ID)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rejected := decode[ConnectionRejectedResponse](t, rec)
	assert.False(t, rejected.Verdict.Allowed)
	assert.Equal(t, "catalog_required", rejected.Verdict.Code)
	assert.Equal(t, rejected.Verdict.Message, rejected.Message)

	rec = env.setCatalog(t, sc.ID, mixer.ID, "midas-mr18")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[signalchain.Node](t, rec)
	require.NotNil(t, updated.Data.CatalogData)
	assert.Equal(t, "midas-mr18", updated.Data.CatalogData.ID)

	rec = env.connect(t, sc.ID, inst.ID, mixer.ID)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	edge := decode[signalchain.Edge](t, rec)
	assert.Equal(t, inst.ID, edge.Source)

	rec = env.do(t, http.MethodGet, "/api/scenes/"+sc.ID+"/signal-chain", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[SignalChainResponse](t, rec)
	assert.Len(t, snap.Nodes, 2)
	assert.Len(t, snap.Edges, 1)
	assert.True(t, snap.HasChanges)

	// Nothing is stored until save.
	stored, err := env.store.Get(context.Background(), sc.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.InstrumentSetup.Nodes)

	rec = env.do(t, http.MethodPost, "/api/scenes/"+sc.ID+"/signal-chain/save", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	saved := decode[scene.Scene](t, rec)
	assert.Len(t, saved.InstrumentSetup.Nodes, 2)
	assert.Len(t, saved.InstrumentSetup.Edges, 1)

	rec = env.do(t, http.MethodGet, "/api/scenes/"+sc.ID+"/signal-chain", nil)
	assert.False(t, decode[SignalChainResponse](t, rec).HasChanges)

	rec = env.do(t, http.MethodDelete, "/api/scenes/"+sc.ID+"/signal-chain/nodes/"+mixer.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/scenes/"+sc.ID+"/signal-chain", nil)
	snap = decode[SignalChainResponse](t, rec)
	assert.Len(t, snap.Nodes, 1)
	assert.Empty(t, snap.Edges, "edges of a deleted node go with it")
}

func TestSignalChainErrors(t *testing.T) {
	env := newTestEnv(t)
	sc := env.createScene(t)
	spk := env.addNode(t, sc.ID, signalchain.Speaker)
	sim := env.addNode(t, sc.ID, signalchain.Simulation)
	base := "/api/scenes/" + sc.ID + "/signal-chain"

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"unknown node type", http.MethodPost, base + "/nodes", AddNodeRequest{Type: "amplifier"}, http.StatusUnprocessableEntity},
		{"missing node type", http.MethodPost, base + "/nodes", AddNodeRequest{}, http.StatusUnprocessableEntity},
		{"unknown node", http.MethodPatch, base + "/nodes/node_99", map[string]string{"label": "x"}, http.StatusNotFound},
		{"unknown catalog item", http.MethodPatch, base + "/nodes/" + spk.ID, map[string]string{"catalogId": "no-such-speaker"}, http.StatusNotFound},
		{"catalog on simulation", http.MethodPatch, base + "/nodes/" + sim.ID, map[string]string{"catalogId": "jbl-prx908"}, http.StatusUnprocessableEntity},
		{"delete unknown node", http.MethodDelete, base + "/nodes/node_99", nil, http.StatusNotFound},
		{"unknown scene", http.MethodGet, "/api/scenes/missing/signal-chain", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	rec := env.connect(t, sc.ID, sim.ID, spk.ID)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "forbidden_pair", decode[ConnectionRejectedResponse](t, rec).Verdict.Code)

	rec = env.connect(t, sc.ID, spk.ID, spk.ID)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "self_loop", decode[ConnectionRejectedResponse](t, rec).Verdict.Code)
}

func TestUpdateNodeClearsCatalog(t *testing.T) {
	env := newTestEnv(t)
	sc := env.createScene(t)
	spk := env.addNode(t, sc.ID, signalchain.Speaker)

	require.Equal(t, http.StatusOK, env.setCatalog(t, sc.ID, spk.ID, "jbl-prx908").Code)
	rec := env.setCatalog(t, sc.ID, spk.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	n := decode[signalchain.Node](t, rec)
	assert.Empty(t, n.Data.CatalogID)
	assert.Nil(t, n.Data.CatalogData)
}

func TestApplyChangesAndSelection(t *testing.T) {
	env := newTestEnv(t)
	sc := env.createScene(t)
	spk := env.addNode(t, sc.ID, signalchain.Speaker)
	base := "/api/scenes/" + sc.ID + "/signal-chain"

	rec := env.do(t, http.MethodPost, base+"/changes", ChangesRequest{
		Nodes: []editor.NodeChange{{Type: editor.ChangePosition, ID: spk.ID, Position: &signalchain.Position{X: 40, Y: 80}}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[ChangesResponse](t, rec)
	require.Len(t, resp.Snapshot.Nodes, 1)
	assert.Equal(t, signalchain.Position{X: 40, Y: 80}, resp.Snapshot.Nodes[0].Position)

	rec = env.do(t, http.MethodPost, base+"/selection", SelectNodeRequest{NodeID: spk.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, spk.ID, decode[editor.Snapshot](t, rec).SelectedNodeID)

	rec = env.do(t, http.MethodGet, base+"/nodes/"+spk.ID+"/handles", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	handles := decode[map[string][]string](t, rec)
	assert.Contains(t, handles, "inputs")
	assert.Contains(t, handles, "outputs")
}

func TestPrepareSpeakers(t *testing.T) {
	env := newTestEnv(t)
	sc := env.createScene(t)
	env.wireSpeaker(t, sc.ID)
	// A speaker that feeds nothing stays out of the room.
	env.addNode(t, sc.ID, signalchain.Speaker)

	rec := env.do(t, http.MethodPost, "/api/scenes/"+sc.ID+"/speakers/prepare", PrepareSpeakersRequest{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[PrepareSpeakersResponse](t, rec)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "jbl-prx908", resp.Speakers[0].SpeakerID)
	assert.True(t, strings.HasPrefix(resp.Speakers[0].ID, room.SpeakerIDPrefix))

	stored, err := env.store.Get(context.Background(), sc.ID)
	require.NoError(t, err)
	assert.Len(t, stored.SoundSourceData.Speakers, 1)

	radius := -1.0
	rec = env.do(t, http.MethodPost, "/api/scenes/"+sc.ID+"/speakers/prepare", PrepareSpeakersRequest{Radius: &radius})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// The body is optional.
	rec = env.do(t, http.MethodPost, "/api/scenes/"+sc.ID+"/speakers/prepare", nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRoomEditing(t *testing.T) {
	env := newTestEnv(t)
	sc := env.createScene(t)
	base := "/api/scenes/" + sc.ID + "/room"

	rec := env.do(t, http.MethodPut, base+"/dimensions", map[string]float64{"width": 12, "height": 5, "depth": 20})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	state := decode[room.State](t, rec)
	assert.Equal(t, 12.0, state.Dimensions.Width)

	rec = env.do(t, http.MethodPut, base+"/faces/floor", AssignMaterialRequest{MaterialID: "floor-wood"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	state = decode[room.State](t, rec)
	floor := state.FaceMaterials.Get(acoustics.Floor)
	assert.Equal(t, "floor-wood", floor.MaterialID)

	stored, err := env.store.Get(context.Background(), sc.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.GeometryData.Dimensions)
	assert.Equal(t, 20.0, stored.GeometryData.Dimensions.Depth)
	require.NotNil(t, stored.GeometryData.Materials)
	storedFloor := stored.GeometryData.Materials.Get(acoustics.Floor)
	assert.Equal(t, "floor-wood", storedFloor.MaterialID)

	rec = env.do(t, http.MethodDelete, base+"/faces/floor", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	state = decode[room.State](t, rec)
	floor = state.FaceMaterials.Get(acoustics.Floor)
	assert.True(t, floor.IsDefault())

	rec = env.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 12.0, decode[room.State](t, rec).Dimensions.Width)
}

func TestRoomErrors(t *testing.T) {
	env := newTestEnv(t)
	sc := env.createScene(t)
	base := "/api/scenes/" + sc.ID + "/room"

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"zero width", http.MethodPut, base + "/dimensions", map[string]float64{"width": 0, "height": 3, "depth": 4}, http.StatusUnprocessableEntity},
		{"unknown face", http.MethodPut, base + "/faces/roof", AssignMaterialRequest{MaterialID: "floor-wood"}, http.StatusUnprocessableEntity},
		{"unknown material", http.MethodPut, base + "/faces/floor", AssignMaterialRequest{MaterialID: "moss"}, http.StatusNotFound},
		{"missing material", http.MethodPut, base + "/faces/floor", AssignMaterialRequest{}, http.StatusUnprocessableEntity},
		{"duplicate speakers", http.MethodPut, base + "/speakers", []room.Speaker{{ID: "a"}, {ID: "a"}}, http.StatusUnprocessableEntity},
		{"speaker without id", http.MethodPut, base + "/speakers", []room.Speaker{{}}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	rec := env.do(t, http.MethodPut, base+"/speakers", []room.Speaker{{ID: "manual-1", SpeakerID: "jbl-prx912"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stored, err := env.store.Get(context.Background(), sc.ID)
	require.NoError(t, err)
	require.Len(t, stored.SoundSourceData.Speakers, 1)
	assert.Equal(t, "manual-1", stored.SoundSourceData.Speakers[0].ID)
}

func TestSimulate(t *testing.T) {
	env := newTestEnv(t)
	sc := env.createScene(t)
	env.wireSpeaker(t, sc.ID)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/scenes/"+sc.ID+"/speakers/prepare", nil).Code)

	rec := env.do(t, http.MethodPost, "/api/scenes/"+sc.ID+"/simulate", SimulateRequest{SimulationType: "rt60_eyring"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[SimulateResponse](t, rec)
	assert.Equal(t, simulation.RunSucceeded, resp.Run.Status)
	assert.Equal(t, simulation.TypeEyring, resp.Request.SimulationType)
	assert.Equal(t, 2.0, resp.Report.AverageRT60)
	assert.Equal(t, "optimal", resp.Export.Classification)
	assert.NotEmpty(t, resp.Summary)
	assert.Equal(t, 1, env.engine.Calls())

	rec = env.do(t, http.MethodGet, "/api/scenes/"+sc.ID+"/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decode[RunsResponse](t, rec)
	require.Equal(t, 1, runs.Count)
	assert.Equal(t, resp.Run.ID, runs.Runs[0].ID)

	rec = env.do(t, http.MethodGet, "/api/scenes/"+sc.ID+"/runs?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSimulateErrors(t *testing.T) {
	t.Run("no speakers", func(t *testing.T) {
		env := newTestEnv(t)
		sc := env.createScene(t)
		rec := env.do(t, http.MethodPost, "/api/scenes/"+sc.ID+"/simulate", nil)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		resp := decode[ErrorResponse](t, rec)
		assert.Contains(t, resp.Errors, "at least one speaker must be connected to the simulation")
		assert.Zero(t, env.engine.Calls())
	})

	t.Run("speaker unwired after prepare", func(t *testing.T) {
		env := newTestEnv(t)
		sc := env.createScene(t)
		env.wireSpeaker(t, sc.ID)
		require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/scenes/"+sc.ID+"/speakers/prepare", nil).Code)

		rec := env.do(t, http.MethodGet, "/api/scenes/"+sc.ID+"/signal-chain", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		edges := decode[SignalChainResponse](t, rec).Edges
		require.Len(t, edges, 1)
		rec = env.do(t, http.MethodPost, "/api/scenes/"+sc.ID+"/signal-chain/changes", ChangesRequest{
			Edges: []editor.EdgeChange{{Type: editor.ChangeRemove, ID: edges[0].ID}},
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = env.do(t, http.MethodPost, "/api/scenes/"+sc.ID+"/simulate", nil)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
		assert.Contains(t, decode[ErrorResponse](t, rec).Errors, "at least one speaker must be connected to the simulation")
		assert.Zero(t, env.engine.Calls())
	})

	t.Run("non-standard band", func(t *testing.T) {
		env := newTestEnv(t)
		sc := env.createScene(t)
		env.wireSpeaker(t, sc.ID)
		env.do(t, http.MethodPost, "/api/scenes/"+sc.ID+"/speakers/prepare", nil)

		rec := env.do(t, http.MethodPost, "/api/scenes/"+sc.ID+"/simulate", SimulateRequest{Bands: []int{63, 500}})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
		resp := decode[ErrorResponse](t, rec)
		require.Len(t, resp.Errors, 1)
		assert.Contains(t, resp.Errors[0], "must be one of")
		assert.Zero(t, env.engine.Calls())
	})

	t.Run("unknown type", func(t *testing.T) {
		env := newTestEnv(t)
		sc := env.createScene(t)
		rec := env.do(t, http.MethodPost, "/api/scenes/"+sc.ID+"/simulate", SimulateRequest{SimulationType: "rt60_magic"})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("engine failure", func(t *testing.T) {
		env := newTestEnv(t)
		env.engine.err = &simulation.EngineError{StatusCode: 500, Message: "solver crashed"}
		sc := env.createScene(t)
		env.wireSpeaker(t, sc.ID)
		env.do(t, http.MethodPost, "/api/scenes/"+sc.ID+"/speakers/prepare", nil)

		rec := env.do(t, http.MethodPost, "/api/scenes/"+sc.ID+"/simulate", nil)
		require.Equal(t, http.StatusBadGateway, rec.Code, rec.Body.String())
		assert.Contains(t, decode[ErrorResponse](t, rec).Message, "solver crashed")

		runs, err := env.store.Runs(context.Background(), sc.ID, 0)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, simulation.RunFailed, runs[0].Status)
	})

	t.Run("run in progress", func(t *testing.T) {
		env := newTestEnv(t)
		env.engine.started = make(chan struct{}, 1)
		env.engine.block = make(chan struct{})
		sc := env.createScene(t)
		env.wireSpeaker(t, sc.ID)
		env.do(t, http.MethodPost, "/api/scenes/"+sc.ID+"/speakers/prepare", nil)

		done := make(chan int)
		go func() {
			req := httptest.NewRequest(http.MethodPost, "/api/scenes/"+sc.ID+"/simulate", nil)
			rec := httptest.NewRecorder()
			env.handler.ServeHTTP(rec, req)
			done <- rec.Code
		}()
		<-env.engine.started

		rec := env.do(t, http.MethodPost, "/api/scenes/"+sc.ID+"/simulate", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)

		close(env.engine.block)
		assert.Equal(t, http.StatusOK, <-done)
		assert.Equal(t, 1, env.engine.Calls())
	})
}

func TestCatalogEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/catalog/speakers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[[]catalog.Item](t, rec))

	rec = env.do(t, http.MethodGet, "/api/catalog/speaker/jbl-prx908", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jbl-prx908", decode[catalog.Item](t, rec).ID)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/catalog/amplifiers", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/catalog/speaker/nope", nil).Code)

	rec = env.do(t, http.MethodGet, "/api/materials", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mats := decode[[]MaterialResponse](t, rec)
	require.NotEmpty(t, mats)
	for _, m := range mats {
		assert.InDelta(t, m.Material.NRC(), m.NRC, 1e-9, m.ID)
	}

	rec = env.do(t, http.MethodGet, "/api/simulation-types", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]simulation.TypeInfo](t, rec), 3)
}

func TestArchiveScene(t *testing.T) {
	env := newTestEnv(t)
	sc := env.createScene(t)
	rec := env.do(t, http.MethodPost, "/api/scenes/"+sc.ID+"/archive", nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	put := &fakePutter{}
	env = newTestEnv(t, func(c *Config) {
		c.Archiver = scene.NewArchiver(put, "aspire-archive", "test", nil)
	})
	sc = env.createScene(t)
	rec = env.do(t, http.MethodPost, "/api/scenes/"+sc.ID+"/archive", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[ArchiveResponse](t, rec)
	assert.Equal(t, put.key, resp.Key)
	assert.Contains(t, resp.Key, sc.ID)
	assert.Zero(t, resp.Runs)

	archived, err := scene.DecodeArchive(put.body)
	require.NoError(t, err)
	assert.Equal(t, sc.ID, archived.Scene.ID)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/api/scenes/missing/archive", nil).Code)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		rec := env.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	sc := env.createScene(t)
	env.addNode(t, sc.ID, signalchain.Speaker)

	rec := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "aspire_http_requests_total")
	assert.Contains(t, body, `path="POST /api/scenes"`)
	assert.Contains(t, body, "aspire_editor_sessions 1")
	assert.Contains(t, body, "aspire_signalchain_mutations_total")
}

func TestRequestIDEchoed(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/simulation-types", nil)
	req.Header.Set("X-Request-ID", "trace-42")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, "trace-42", rec.Header().Get("X-Request-ID"))
}

func TestSceneEventsStream(t *testing.T) {
	env := newTestEnv(t)
	sc := env.createScene(t)
	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/scenes/"+sc.ID+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	raw, err := json.Marshal(AddNodeRequest{Type: "speaker"})
	require.NoError(t, err)
	post, err := http.Post(ts.URL+"/api/scenes/"+sc.ID+"/signal-chain/nodes", "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	post.Body.Close()
	require.Equal(t, http.StatusCreated, post.StatusCode)

	scanner := bufio.NewScanner(resp.Body)
	var data string
	for scanner.Scan() {
		if scanner.Text() == "event: "+editor.EventNodeAdded {
			require.True(t, scanner.Scan())
			data = strings.TrimPrefix(scanner.Text(), "data: ")
			break
		}
	}
	require.NotEmpty(t, data, "node added event not streamed")

	var ev pubsub.Event
	require.NoError(t, json.Unmarshal([]byte(data), &ev))
	assert.Equal(t, pubsub.SceneTopic(sc.ID), ev.Topic)
}

func TestSceneEventsErrors(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/scenes/missing/events", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	env = newTestEnv(t, func(c *Config) { c.Bus = nil })
	sc := env.createScene(t)
	rec = env.do(t, http.MethodGet, "/api/scenes/"+sc.ID+"/events", nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestRespondErrUnknownIsInternal(t *testing.T) {
	env := newTestEnv(t)
	rec := httptest.NewRecorder()
	env.server.respondErr(rec, httptest.NewRequest(http.MethodGet, "/", nil), "probe", errors.New("disk on fire"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "probe failed", decode[ErrorResponse](t, rec).Message)
}
