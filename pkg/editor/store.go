// Package editor is the mutation surface for a scene's signal chain. A Store
// owns one graph plus its selection and unsaved-changes flag; every edit goes
// through it so connection rules hold at all times.
package editor

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dd0wney/aspire-acoustics/pkg/catalog"
	"github.com/dd0wney/aspire-acoustics/pkg/logging"
	"github.com/dd0wney/aspire-acoustics/pkg/pubsub"
	"github.com/dd0wney/aspire-acoustics/pkg/room"
	"github.com/dd0wney/aspire-acoustics/pkg/signalchain"
)

// Event kinds published on the scene topic.
const (
	EventNodeAdded    = "signalchain.node.added"
	EventNodeUpdated  = "signalchain.node.updated"
	EventNodeDeleted  = "signalchain.node.deleted"
	EventEdgeAdded    = "signalchain.edge.added"
	EventChanges      = "signalchain.changes"
	EventLoaded       = "signalchain.loaded"
	EventSaved        = "signalchain.saved"
	EventSpeakersSeed = "signalchain.speakers.prepared"
)

// Recorder receives editor activity for metrics.
type Recorder interface {
	ConnectionAttempt(source, target signalchain.NodeType, result string)
	Mutation(kind string)
}

type nopRecorder struct{}

func (nopRecorder) ConnectionAttempt(signalchain.NodeType, signalchain.NodeType, string) {}
func (nopRecorder) Mutation(string)                                                      {}

// Config wires a Store's collaborators. Zero fields get working defaults.
type Config struct {
	Logger    logging.Logger
	Publisher pubsub.Publisher
	Recorder  Recorder
	IDs       signalchain.IDAllocator
}

// Snapshot is a detached copy of the store contents.
type Snapshot struct {
	Nodes          []signalchain.Node `json:"nodes"`
	Edges          []signalchain.Edge `json:"edges"`
	SelectedNodeID string             `json:"selectedNodeId,omitempty"`
	HasChanges     bool               `json:"hasChanges"`
}

// Store is the editor state of one scene. It is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	graph      signalchain.Graph
	selected   string
	hasChanges bool

	topic     string
	ids       signalchain.IDAllocator
	validator *signalchain.Validator
	logger    logging.Logger
	publish   pubsub.Publisher
	recorder  Recorder
}

// New returns an empty store for the scene.
func New(sceneID string, cfg Config) *Store {
	logger := logging.OrNop(cfg.Logger).With(logging.Component("editor_store"), logging.SceneID(sceneID))
	s := &Store{
		graph:     signalchain.Graph{Nodes: []signalchain.Node{}, Edges: []signalchain.Edge{}},
		topic:     pubsub.SceneTopic(sceneID),
		ids:       cfg.IDs,
		validator: signalchain.NewValidator(logger),
		logger:    logger,
		publish:   pubsub.OrDiscard(cfg.Publisher),
		recorder:  cfg.Recorder,
	}
	if s.ids == nil {
		s.ids = signalchain.NewCounterAllocator()
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	return s
}

// AddNode appends a node of type t with the type's default label.
func (s *Store) AddNode(t signalchain.NodeType, pos signalchain.Position) (signalchain.Node, error) {
	if !t.Valid() {
		return signalchain.Node{}, fmt.Errorf("%w: %q", signalchain.ErrUnknownNodeType, t)
	}
	n := signalchain.Node{
		ID:       s.ids.Next(),
		Type:     t,
		Position: pos,
		Data:     signalchain.NodeData{Label: t.DefaultLabel(), Settings: map[string]any{}},
	}

	s.mu.Lock()
	s.graph.Nodes = append(s.graph.Nodes, n)
	s.hasChanges = true
	s.mu.Unlock()

	s.recorder.Mutation("add_node")
	s.publish.Publish(s.topic, EventNodeAdded, n.Clone())
	s.logger.Debug("node added", logging.NodeID(n.ID), logging.NodeType(string(t)))
	return n.Clone(), nil
}

// Connect validates c against the current graph and appends the edge when it
// is allowed. A rejected candidate leaves the graph untouched.
func (s *Store) Connect(c signalchain.Connection) (signalchain.Edge, signalchain.Verdict) {
	s.mu.Lock()
	v := s.validator.Check(c, s.graph.Nodes, s.graph.Edges)
	var e signalchain.Edge
	if v.Allowed {
		e = c.Edge()
		s.graph.Edges = append(s.graph.Edges, e)
		s.hasChanges = true
	}
	s.mu.Unlock()

	s.recorder.ConnectionAttempt(v.SourceType, v.TargetType, v.Code)
	if v.Allowed {
		s.recorder.Mutation("connect")
		s.publish.Publish(s.topic, EventEdgeAdded, e)
	}
	return e, v
}

// UpdateNodeData shallow-merges patch into the node's data.
func (s *Store) UpdateNodeData(id string, patch NodePatch) (signalchain.Node, error) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return signalchain.Node{}, fmt.Errorf("%w: %s", signalchain.ErrNodeNotFound, id)
	}
	if patch.empty() {
		n := s.graph.Nodes[i].Clone()
		s.mu.Unlock()
		return n, nil
	}
	patch.apply(&s.graph.Nodes[i].Data)
	s.hasChanges = true
	n := s.graph.Nodes[i].Clone()
	s.mu.Unlock()

	s.recorder.Mutation("update_node")
	s.publish.Publish(s.topic, EventNodeUpdated, n.Clone())
	return n, nil
}

// DeleteNode removes the node with every edge touching it and clears the
// selection if it pointed at the node.
func (s *Store) DeleteNode(id string) error {
	s.mu.Lock()
	if s.indexOf(id) < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", signalchain.ErrNodeNotFound, id)
	}
	before := len(s.graph.Edges)
	s.graph = s.graph.WithoutNode(id)
	removed := before - len(s.graph.Edges)
	if s.selected == id {
		s.selected = ""
	}
	s.hasChanges = true
	s.mu.Unlock()

	s.recorder.Mutation("delete_node")
	s.publish.Publish(s.topic, EventNodeDeleted, id)
	s.logger.Debug("node deleted", logging.NodeID(id), logging.Int("edges_removed", removed))
	return nil
}

// SelectNode selects a node by id; "" clears the selection.
func (s *Store) SelectNode(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" && s.indexOf(id) < 0 {
		return fmt.Errorf("%w: %s", signalchain.ErrNodeNotFound, id)
	}
	s.setSelection(id)
	return nil
}

// setSelection makes id the only selected node and keeps every node's
// Selected flag in step with it. Must be called with mu held.
func (s *Store) setSelection(id string) {
	s.selected = id
	for i := range s.graph.Nodes {
		s.graph.Nodes[i].Selected = id != "" && s.graph.Nodes[i].ID == id
	}
}

// SelectedNode returns the selected node, if any.
func (s *Store) SelectedNode() (signalchain.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(s.selected); i >= 0 {
		return s.graph.Nodes[i].Clone(), true
	}
	return signalchain.Node{}, false
}

// InitializeEditor replaces the whole graph with persisted data, clears the
// selection (including stored Selected flags) and the unsaved flag, and
// reseeds the id allocator.
func (s *Store) InitializeEditor(nodes []signalchain.Node, edges []signalchain.Edge) {
	g := signalchain.Graph{Nodes: nodes, Edges: edges}.Clone()
	if g.Nodes == nil {
		g.Nodes = []signalchain.Node{}
	}
	if g.Edges == nil {
		g.Edges = []signalchain.Edge{}
	}

	s.mu.Lock()
	s.graph = g
	s.setSelection("")
	s.hasChanges = false
	s.ids.Seed(g.Nodes)
	s.mu.Unlock()

	s.publish.Publish(s.topic, EventLoaded, map[string]int{"nodes": len(g.Nodes), "edges": len(g.Edges)})
}

// LoadFlow is InitializeEditor for data of unknown provenance: the loaded
// graph is audited and every broken rule is logged and returned. The data is
// loaded as is.
func (s *Store) LoadFlow(nodes []signalchain.Node, edges []signalchain.Edge) []signalchain.Violation {
	s.InitializeEditor(nodes, edges)

	s.mu.RLock()
	violations := s.graph.Audit()
	s.mu.RUnlock()

	for _, v := range violations {
		s.logger.Warn("loaded signal chain breaks a connection rule",
			logging.String("reason", v.Code),
			logging.EdgeID(v.EdgeID),
			logging.NodeID(v.NodeID),
		)
	}
	return violations
}

// MarkAsSaved clears the unsaved-changes flag.
func (s *Store) MarkAsSaved() {
	s.SetHasChanges(false)
	s.publish.Publish(s.topic, EventSaved, nil)
}

// SetHasChanges overrides the unsaved-changes flag.
func (s *Store) SetHasChanges(v bool) {
	s.mu.Lock()
	s.hasChanges = v
	s.mu.Unlock()
}

// HasChanges reports whether the graph changed since the last load or save.
func (s *Store) HasChanges() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasChanges
}

// Graph returns a deep copy of the graph.
func (s *Store) Graph() signalchain.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.Clone()
}

// Snapshot returns a deep copy of the full store state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g := s.graph.Clone()
	return Snapshot{Nodes: g.Nodes, Edges: g.Edges, SelectedNodeID: s.selected, HasChanges: s.hasChanges}
}

// SpeakerNodes returns every speaker node, wired or not.
func (s *Store) SpeakerNodes() []signalchain.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.Clone().NodesOfType(signalchain.Speaker)
}

// Handles returns the connection points the node exposes.
func (s *Store) Handles(id string) (signalchain.HandleLayout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.graph.Node(id)
	if !ok {
		return signalchain.HandleLayout{}, fmt.Errorf("%w: %s", signalchain.ErrNodeNotFound, id)
	}
	return signalchain.LayoutFor(n), nil
}

// WiredSpeakers filters room speakers down to the ones a simulation may use.
// A speaker seeded from a speaker node (id prefix room.SpeakerIDPrefix) is
// kept only while that node still feeds a simulation node in g; speakers
// placed by other means are kept as they are.
func WiredSpeakers(g signalchain.Graph, speakers []room.Speaker) []room.Speaker {
	wired := make(map[string]bool)
	for _, n := range g.ActiveSpeakers() {
		wired[n.ID] = true
	}
	out := make([]room.Speaker, 0, len(speakers))
	for _, sp := range speakers {
		if nodeID, ok := strings.CutPrefix(sp.ID, room.SpeakerIDPrefix); ok && !wired[nodeID] {
			continue
		}
		out = append(out, sp)
	}
	return out
}

// PrepareSpeakersForSimulation turns every speaker wired into a simulation
// node into a room speaker, spread evenly on the placement circle and facing
// its center. Catalog data, when attached, supplies the name and
// specifications.
func (s *Store) PrepareSpeakersForSimulation(placement room.CirclePlacement) []room.Speaker {
	s.mu.RLock()
	active := s.graph.Clone().ActiveSpeakers()
	s.mu.RUnlock()

	out := make([]room.Speaker, 0, len(active))
	for i, n := range active {
		spec := speakerSpec(n, s.logger)
		height := 0.0
		if spec.DimensionsMM != nil {
			height = spec.DimensionsMM.Height
		}
		pos, rot := placement.Place(i, len(active), height)

		speakerID := n.Data.CatalogID
		if speakerID == "" {
			speakerID = "unknown"
		}
		sp := room.Speaker{
			ID:             room.SpeakerIDPrefix + n.ID,
			Name:           speakerName(n),
			SpeakerID:      speakerID,
			Position:       pos,
			Rotation:       rot,
			Specifications: room.SpecWithDefaults(spec),
		}
		out = append(out, sp)
	}

	s.logger.Info("speakers prepared for simulation", logging.Count(len(out)))
	s.publish.Publish(s.topic, EventSpeakersSeed, len(out))
	return out
}

func speakerName(n signalchain.Node) string {
	item := n.Data.CatalogData
	if item == nil {
		return "Speaker " + n.ID
	}
	model := item.Model
	if model == "" {
		model = item.Name
	}
	return strings.TrimSpace(item.Brand + " " + model)
}

// speakerSpec decodes the attached catalog specifications. Undecodable data
// is logged and treated as absent.
func speakerSpec(n signalchain.Node, logger logging.Logger) catalog.SpeakerSpec {
	if n.Data.CatalogData == nil {
		return catalog.SpeakerSpec{}
	}
	spec, err := n.Data.CatalogData.SpeakerSpec()
	if err != nil {
		logger.Warn("ignoring speaker specifications", logging.NodeID(n.ID), logging.Error(err))
		return catalog.SpeakerSpec{}
	}
	return spec
}

// indexOf must be called with mu held.
func (s *Store) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.graph.Nodes {
		if s.graph.Nodes[i].ID == id {
			return i
		}
	}
	return -1
}
