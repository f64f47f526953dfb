package signalchain

import "fmt"

// Graph is a snapshot of the chain: nodes and edges in insertion order.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Clone deep-copies g.
func (g Graph) Clone() Graph {
	out := Graph{Nodes: make([]Node, len(g.Nodes)), Edges: make([]Edge, len(g.Edges))}
	for i, n := range g.Nodes {
		out.Nodes[i] = n.Clone()
	}
	copy(out.Edges, g.Edges)
	return out
}

// Node returns the node with id.
func (g Graph) Node(id string) (Node, bool) {
	if n := findNode(g.Nodes, id); n != nil {
		return *n, true
	}
	return Node{}, false
}

// Incoming returns the edges whose target is nodeID.
func (g Graph) Incoming(nodeID string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.Target == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// Outgoing returns the edges whose source is nodeID.
func (g Graph) Outgoing(nodeID string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.Source == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// NodesOfType returns the nodes of type t in graph order.
func (g Graph) NodesOfType(t NodeType) []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// WithoutNode returns g minus the node and every edge incident to it.
func (g Graph) WithoutNode(id string) Graph {
	out := Graph{Nodes: make([]Node, 0, len(g.Nodes)), Edges: make([]Edge, 0, len(g.Edges))}
	for _, n := range g.Nodes {
		if n.ID != id {
			out.Nodes = append(out.Nodes, n)
		}
	}
	for _, e := range g.Edges {
		if !e.Touches(id) {
			out.Edges = append(out.Edges, e)
		}
	}
	return out
}

// ActiveSpeakers returns the speaker nodes wired directly into any simulation
// node, in graph order. A graph with no simulation node has none.
func (g Graph) ActiveSpeakers() []Node {
	sims := make(map[string]bool)
	for _, n := range g.Nodes {
		if n.Type == Simulation {
			sims[n.ID] = true
		}
	}
	if len(sims) == 0 {
		return nil
	}
	feeding := make(map[string]bool)
	for _, e := range g.Edges {
		if sims[e.Target] {
			feeding[e.Source] = true
		}
	}
	var out []Node
	for _, n := range g.Nodes {
		if n.Type == Speaker && feeding[n.ID] {
			out = append(out, n)
		}
	}
	return out
}

// Violation is a broken invariant found in a stored graph.
type Violation struct {
	Reason  Reason `json:"-"`
	Code    string `json:"reason"`
	EdgeID  string `json:"edgeId,omitempty"`
	NodeID  string `json:"nodeId,omitempty"`
	Message string `json:"message"`
}

// Audit checks a whole graph, as loaded from storage, against the rules new
// connections must satisfy. It reports every problem rather than the first.
func (g Graph) Audit() []Violation {
	var out []Violation
	add := func(r Reason, e Edge, nodeID, format string, args ...any) {
		out = append(out, Violation{Reason: r, Code: r.String(), EdgeID: e.ID, NodeID: nodeID, Message: fmt.Sprintf(format, args...)})
	}

	seenNode := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if seenNode[n.ID] {
			add(DuplicateNode, Edge{}, n.ID, "node id %s appears more than once", n.ID)
		}
		seenNode[n.ID] = true
	}

	seenEdge := make(map[Connection]bool, len(g.Edges))
	occupied := make(map[[2]string]int)
	for _, e := range g.Edges {
		c := e.Connection()
		if e.Source == e.Target {
			add(SelfLoop, e, e.Source, "edge %s loops on %s", e.ID, e.Source)
			continue
		}
		src, tgt := findNode(g.Nodes, e.Source), findNode(g.Nodes, e.Target)
		if src == nil || tgt == nil {
			add(UnknownNode, e, "", "edge %s references a missing node", e.ID)
			continue
		}
		if seenEdge[c] {
			add(DuplicateEdge, e, "", "edge %s duplicates an earlier edge", e.ID)
		}
		seenEdge[c] = true
		if e.SourceHandle != "" && !LayoutFor(*src).Has(SourceHandle, e.SourceHandle) {
			add(UnknownHandle, e, e.Source, "%s has no output %s", e.Source, e.SourceHandle)
		}
		if e.TargetHandle != "" && !LayoutFor(*tgt).Has(TargetHandle, e.TargetHandle) {
			add(UnknownHandle, e, e.Target, "%s has no input %s", e.Target, e.TargetHandle)
		}
		if !AcceptsFanIn(tgt.Type) {
			key := [2]string{e.Target, e.TargetHandle}
			occupied[key]++
			if occupied[key] == 2 {
				add(HandleOccupied, e, e.Target, "input %s of %s has more than one connection", handleOrDefault(e.TargetHandle), e.Target)
			}
		}
		if !CanConnect(src.Type, tgt.Type) {
			add(ForbiddenPair, e, "", "%s cannot feed %s", src.Type, tgt.Type)
		}
	}
	return out
}
