package signalchain

import (
	"github.com/dd0wney/aspire-acoustics/pkg/logging"
)

// Reason explains why a connection was rejected.
type Reason int

const (
	Accepted Reason = iota
	MissingEndpoint
	SelfLoop
	UnknownNode
	HandleOccupied
	CatalogRequired
	DuplicateEdge
	ForbiddenPair
	DuplicateNode
	UnknownHandle
)

func (r Reason) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case MissingEndpoint:
		return "missing_endpoint"
	case SelfLoop:
		return "self_loop"
	case UnknownNode:
		return "unknown_node"
	case HandleOccupied:
		return "handle_occupied"
	case CatalogRequired:
		return "catalog_required"
	case DuplicateEdge:
		return "duplicate_edge"
	case ForbiddenPair:
		return "forbidden_pair"
	case DuplicateNode:
		return "duplicate_node"
	case UnknownHandle:
		return "unknown_handle"
	default:
		return "unknown"
	}
}

// Message is a user-facing explanation of the reason.
func (r Reason) Message() string {
	switch r {
	case Accepted:
		return "connection allowed"
	case MissingEndpoint:
		return "connection is missing its source or target"
	case SelfLoop:
		return "a node cannot connect to itself"
	case UnknownNode:
		return "source or target node does not exist"
	case HandleOccupied:
		return "this input already has a connection; disconnect it first"
	case CatalogRequired:
		return "the target node needs a model selected before it can be connected"
	case DuplicateEdge:
		return "this connection already exists"
	case ForbiddenPair:
		return "these node types cannot be connected"
	case DuplicateNode:
		return "node id is used more than once"
	case UnknownHandle:
		return "the node has no handle with that id"
	default:
		return "connection rejected"
	}
}

// Verdict is the outcome of checking a connection.
type Verdict struct {
	Allowed    bool     `json:"allowed"`
	Reason     Reason   `json:"-"`
	Code       string   `json:"reason"`
	Message    string   `json:"message"`
	SourceType NodeType `json:"sourceType,omitempty"`
	TargetType NodeType `json:"targetType,omitempty"`
}

func verdict(r Reason, src, tgt *Node) Verdict {
	v := Verdict{Allowed: r == Accepted, Reason: r, Code: r.String(), Message: r.Message()}
	if src != nil {
		v.SourceType = src.Type
	}
	if tgt != nil {
		v.TargetType = tgt.Type
	}
	return v
}

// Check runs the connection rules in order and reports the first that fails.
// It has no side effects.
func Check(c Connection, nodes []Node, edges []Edge) Verdict {
	if c.Source == "" || c.Target == "" {
		return verdict(MissingEndpoint, nil, nil)
	}
	if c.Source == c.Target {
		return verdict(SelfLoop, nil, nil)
	}

	src, tgt := findNode(nodes, c.Source), findNode(nodes, c.Target)
	if src == nil || tgt == nil {
		return verdict(UnknownNode, src, tgt)
	}

	if !AcceptsFanIn(tgt.Type) {
		for _, e := range edges {
			if e.Target == c.Target && e.TargetHandle == c.TargetHandle {
				return verdict(HandleOccupied, src, tgt)
			}
		}
	}

	if RequiresCatalog(tgt.Type) && !tgt.HasCatalog() {
		return verdict(CatalogRequired, src, tgt)
	}

	for _, e := range edges {
		if e.Source == c.Source && e.Target == c.Target &&
			e.SourceHandle == c.SourceHandle && e.TargetHandle == c.TargetHandle {
			return verdict(DuplicateEdge, src, tgt)
		}
	}

	if !CanConnect(src.Type, tgt.Type) {
		return verdict(ForbiddenPair, src, tgt)
	}
	return verdict(Accepted, src, tgt)
}

func findNode(nodes []Node, id string) *Node {
	for i := range nodes {
		if nodes[i].ID == id {
			return &nodes[i]
		}
	}
	return nil
}

// CheckHandles checks the handle ids of c against the layouts of its
// endpoints: a named handle must exist on its node, and an input handle of a
// node without fan-in holds one edge. Empty handle ids name the node's
// default handle and are not looked up. Run it once Check has accepted c.
func CheckHandles(c Connection, nodes []Node, edges []Edge) Verdict {
	src, tgt := findNode(nodes, c.Source), findNode(nodes, c.Target)
	if src == nil || tgt == nil {
		return verdict(UnknownNode, src, tgt)
	}
	if c.SourceHandle != "" && !LayoutFor(*src).Has(SourceHandle, c.SourceHandle) {
		return verdict(UnknownHandle, src, tgt)
	}
	if c.TargetHandle != "" && !LayoutFor(*tgt).Has(TargetHandle, c.TargetHandle) {
		return verdict(UnknownHandle, src, tgt)
	}
	if !AcceptsFanIn(tgt.Type) && !ValidateHandleConnections(tgt.ID, c.TargetHandle, TargetHandle, edges, 1) {
		return verdict(HandleOccupied, src, tgt)
	}
	return verdict(Accepted, src, tgt)
}

// Validator wraps Check and CheckHandles with diagnostic logging of
// rejections.
type Validator struct {
	logger logging.Logger
}

// NewValidator returns a validator logging to logger. A nil logger discards.
func NewValidator(logger logging.Logger) *Validator {
	return &Validator{logger: logging.OrNop(logger).With(logging.Component("connection_validator"))}
}

// Check runs the connection rules, then the handle layout rules, and logs
// any rejection.
func (v *Validator) Check(c Connection, nodes []Node, edges []Edge) Verdict {
	res := Check(c, nodes, edges)
	if res.Allowed {
		res = CheckHandles(c, nodes, edges)
	}
	if !res.Allowed {
		v.logger.Warn("connection rejected",
			logging.String("reason", res.Code),
			logging.NodeID(c.Source),
			logging.String("target_id", c.Target),
			logging.String("source_type", string(res.SourceType)),
			logging.String("target_type", string(res.TargetType)),
			logging.String("source_handle", c.SourceHandle),
			logging.String("target_handle", c.TargetHandle),
		)
	}
	return res
}

// IsValidConnection reports whether c may be added to the graph.
func (v *Validator) IsValidConnection(c Connection, nodes []Node, edges []Edge) bool {
	return v.Check(c, nodes, edges).Allowed
}

// HandleKind selects which end of an edge a handle sits on.
type HandleKind string

const (
	SourceHandle HandleKind = "source"
	TargetHandle HandleKind = "target"
)

// ValidateHandleConnections reports whether one more edge may attach to the
// given handle without reaching maxConnections.
func ValidateHandleConnections(nodeID, handleID string, kind HandleKind, edges []Edge, maxConnections int) bool {
	return CountHandleConnections(nodeID, handleID, kind, edges) < maxConnections
}

// CountHandleConnections counts edges attached to a handle.
func CountHandleConnections(nodeID, handleID string, kind HandleKind, edges []Edge) int {
	n := 0
	for _, e := range edges {
		switch kind {
		case SourceHandle:
			if e.Source == nodeID && e.SourceHandle == handleID {
				n++
			}
		case TargetHandle:
			if e.Target == nodeID && e.TargetHandle == handleID {
				n++
			}
		}
	}
	return n
}
