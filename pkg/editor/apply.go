package editor

import (
	"github.com/dd0wney/aspire-acoustics/pkg/logging"
	"github.com/dd0wney/aspire-acoustics/pkg/signalchain"
)

// ApplyNodeChanges applies a batch of node deltas in order. Removing a node
// also removes its edges. Any non-empty batch marks the graph as changed.
func (s *Store) ApplyNodeChanges(changes []NodeChange) ChangeSummary {
	var sum ChangeSummary
	if len(changes) == 0 {
		return sum
	}

	s.mu.Lock()
	for _, ch := range changes {
		if s.applyNodeChange(ch) {
			sum.Applied++
		} else {
			sum.Skipped++
		}
	}
	s.hasChanges = true
	s.mu.Unlock()

	s.recorder.Mutation("node_changes")
	s.publish.Publish(s.topic, EventChanges, sum)
	if sum.Skipped > 0 {
		s.logger.Debug("node changes skipped", logging.Count(sum.Skipped))
	}
	return sum
}

// applyNodeChange must be called with mu held.
func (s *Store) applyNodeChange(ch NodeChange) bool {
	if ch.Type == ChangeAdd {
		if ch.Item == nil || !ch.Item.Type.Valid() {
			return false
		}
		n := ch.Item.Clone()
		if n.ID == "" {
			n.ID = s.ids.Next()
		} else if s.indexOf(n.ID) >= 0 {
			return false
		}
		if n.Data.Label == "" {
			n.Data.Label = n.Type.DefaultLabel()
		}
		if n.Data.Settings == nil {
			n.Data.Settings = map[string]any{}
		}
		selected := n.Selected
		n.Selected = false
		s.graph.Nodes = append(s.graph.Nodes, n)
		if selected {
			s.setSelection(n.ID)
		}
		// Keep later allocations clear of ids supplied by the caller.
		s.ids.Seed(s.graph.Nodes)
		return true
	}

	i := s.indexOf(ch.ID)
	if i < 0 {
		return false
	}
	n := &s.graph.Nodes[i]

	switch ch.Type {
	case ChangePosition:
		if ch.Position == nil {
			return false
		}
		n.Position = *ch.Position
	case ChangeDimensions:
		if ch.Width != nil {
			n.Width = *ch.Width
		}
		if ch.Height != nil {
			n.Height = *ch.Height
		}
	case ChangeSelect:
		if ch.Selected == nil {
			return false
		}
		if *ch.Selected {
			s.setSelection(ch.ID)
		} else if s.selected == ch.ID {
			s.setSelection("")
		}
	case ChangeRemove:
		s.graph = s.graph.WithoutNode(ch.ID)
		if s.selected == ch.ID {
			s.selected = ""
		}
	default:
		return false
	}
	return true
}

// ApplyEdgeChanges applies a batch of edge deltas in order. Added edges go
// through the connection rules and get the deterministic edge id; refused
// ones are reported in the summary. Edges carry no selection, so select
// entries are skipped. Any non-empty batch marks the graph as changed.
func (s *Store) ApplyEdgeChanges(changes []EdgeChange) ChangeSummary {
	var sum ChangeSummary
	if len(changes) == 0 {
		return sum
	}

	type attempt struct {
		src, tgt signalchain.NodeType
		code     string
	}
	var attempts []attempt

	s.mu.Lock()
	for _, ch := range changes {
		switch ch.Type {
		case ChangeAdd:
			if ch.Item == nil {
				sum.Skipped++
				continue
			}
			c := ch.Item.Connection()
			v := s.validator.Check(c, s.graph.Nodes, s.graph.Edges)
			attempts = append(attempts, attempt{v.SourceType, v.TargetType, v.Code})
			if !v.Allowed {
				sum.Rejected = append(sum.Rejected, v)
				continue
			}
			s.graph.Edges = append(s.graph.Edges, c.Edge())
			sum.Applied++
		case ChangeRemove:
			if s.removeEdge(ch.ID) {
				sum.Applied++
			} else {
				sum.Skipped++
			}
		default:
			sum.Skipped++
		}
	}
	s.hasChanges = true
	s.mu.Unlock()

	for _, a := range attempts {
		s.recorder.ConnectionAttempt(a.src, a.tgt, a.code)
	}
	s.recorder.Mutation("edge_changes")
	s.publish.Publish(s.topic, EventChanges, sum)
	return sum
}

func (s *Store) edgeIndex(id string) int {
	for i := range s.graph.Edges {
		if s.graph.Edges[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) removeEdge(id string) bool {
	i := s.edgeIndex(id)
	if i < 0 {
		return false
	}
	s.graph.Edges = append(s.graph.Edges[:i:i], s.graph.Edges[i+1:]...)
	return true
}
