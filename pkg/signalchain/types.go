// Package signalchain models a sound-reinforcement signal chain as a directed
// graph of typed nodes and decides which connections between them are legal.
package signalchain

import (
	"errors"
	"fmt"

	"github.com/dd0wney/aspire-acoustics/pkg/catalog"
)

var (
	ErrNodeNotFound    = errors.New("signalchain: node not found")
	ErrUnknownNodeType = errors.New("signalchain: unknown node type")
)

// NodeType is the role a node plays in the chain.
type NodeType string

const (
	Instrument NodeType = "instrument"
	Microphone NodeType = "microphone"
	Mixer      NodeType = "mixer"
	Processor  NodeType = "processor"
	Speaker    NodeType = "speaker"
	Simulation NodeType = "simulation"
)

// NodeTypes lists every node type.
var NodeTypes = []NodeType{Instrument, Microphone, Mixer, Processor, Speaker, Simulation}

var defaultLabels = map[NodeType]string{
	Instrument: "Instrument",
	Microphone: "Microphone",
	Mixer:      "Mixer",
	Processor:  "Processor",
	Speaker:    "Speaker",
	Simulation: "Simulation",
}

// Valid reports whether t is a known node type.
func (t NodeType) Valid() bool {
	_, ok := defaultLabels[t]
	return ok
}

// DefaultLabel is the label a freshly added node of type t gets.
func (t NodeType) DefaultLabel() string {
	if l, ok := defaultLabels[t]; ok {
		return l
	}
	return "Node"
}

// CatalogKind is the catalog category backing nodes of type t. Simulation
// nodes have none.
func (t NodeType) CatalogKind() (catalog.Kind, bool) {
	switch t {
	case Instrument:
		return catalog.KindInstrument, true
	case Microphone:
		return catalog.KindMicrophone, true
	case Mixer:
		return catalog.KindMixer, true
	case Processor:
		return catalog.KindProcessor, true
	case Speaker:
		return catalog.KindSpeaker, true
	default:
		return "", false
	}
}

// ParseNodeType converts a name into a NodeType.
func ParseNodeType(s string) (NodeType, error) {
	t := NodeType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownNodeType, s)
	}
	return t, nil
}

// Position is a node's location on the editing canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData is the user-editable payload of a node.
type NodeData struct {
	Label       string         `json:"label"`
	CatalogID   string         `json:"catalogId,omitempty"`
	CatalogData *catalog.Item  `json:"catalogData,omitempty"`
	Settings    map[string]any `json:"settings"`
}

// Node is a vertex of the signal chain.
type Node struct {
	ID       string   `json:"id"`
	Type     NodeType `json:"type"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
	Selected bool     `json:"selected,omitempty"`
	Width    float64  `json:"width,omitempty"`
	Height   float64  `json:"height,omitempty"`
}

// HasCatalog reports whether the node references an equipment model.
func (n Node) HasCatalog() bool { return n.Data.CatalogID != "" }

// Clone returns a copy that shares nothing mutable with n.
func (n Node) Clone() Node {
	c := n
	if n.Data.Settings != nil {
		c.Data.Settings = make(map[string]any, len(n.Data.Settings))
		for k, v := range n.Data.Settings {
			c.Data.Settings[k] = v
		}
	}
	if n.Data.CatalogData != nil {
		item := *n.Data.CatalogData
		c.Data.CatalogData = &item
	}
	return c
}

// Edge is a directed connection between two node handles. An empty handle
// means the node's default handle.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Connection is a candidate edge proposed by the editor.
type Connection struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// EdgeID derives the identifier of the edge c would create. The same
// endpoints and handles always yield the same id.
func EdgeID(c Connection) string {
	return fmt.Sprintf("edge_%s_%s_to_%s_%s",
		c.Source, handleOrDefault(c.SourceHandle), c.Target, handleOrDefault(c.TargetHandle))
}

func handleOrDefault(h string) string {
	if h == "" {
		return "default"
	}
	return h
}

// Edge materialises c with its deterministic id.
func (c Connection) Edge() Edge {
	return Edge{
		ID:           EdgeID(c),
		Source:       c.Source,
		Target:       c.Target,
		SourceHandle: c.SourceHandle,
		TargetHandle: c.TargetHandle,
	}
}

// Connection returns the endpoints of e.
func (e Edge) Connection() Connection {
	return Connection{Source: e.Source, Target: e.Target, SourceHandle: e.SourceHandle, TargetHandle: e.TargetHandle}
}

// Touches reports whether e is incident to nodeID.
func (e Edge) Touches(nodeID string) bool { return e.Source == nodeID || e.Target == nodeID }
