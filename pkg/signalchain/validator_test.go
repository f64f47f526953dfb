package signalchain

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/aspire-acoustics/pkg/logging"
)

func node(id string, t NodeType, catalogID string) Node {
	return Node{ID: id, Type: t, Data: NodeData{Label: t.DefaultLabel(), CatalogID: catalogID, Settings: map[string]any{}}}
}

func conn(src, tgt string) Connection {
	return Connection{Source: src, Target: tgt, SourceHandle: "output-0", TargetHandle: "input-0"}
}

func TestCheck_RuleOrder(t *testing.T) {
	nodes := []Node{
		node("guitar", Instrument, "guitar-acoustic"),
		node("mic", Microphone, "shure-sm57"),
		node("desk", Mixer, ""),
		node("desk2", Mixer, "midas-mr18"),
		node("pa", Speaker, "jbl-prx912"),
		node("sim", Simulation, ""),
	}
	existing := []Edge{conn("guitar", "mic").Edge()}

	tests := []struct {
		name string
		c    Connection
		want Reason
	}{
		{"missing target", Connection{Source: "guitar"}, MissingEndpoint},
		{"self loop", conn("mic", "mic"), SelfLoop},
		{"unknown target", conn("mic", "ghost"), UnknownNode},
		{"input already taken", Connection{Source: "pa", Target: "mic", SourceHandle: "output-0", TargetHandle: "input-0"}, HandleOccupied},
		{"mixer without model", conn("mic", "desk"), CatalogRequired},
		{"forbidden pair", conn("mic", "pa"), ForbiddenPair},
		{"simulation is terminal", conn("sim", "pa"), ForbiddenPair},
		{"valid mixer feed", conn("mic", "desk2"), Accepted},
		{"speaker into simulation", conn("pa", "sim"), Accepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Check(tt.c, nodes, existing)
			assert.Equal(t, tt.want, got.Reason, got.Message)
			assert.Equal(t, tt.want == Accepted, got.Allowed)
		})
	}
}

func TestCheck_OccupiedBeatsCatalogCheck(t *testing.T) {
	// Step 3 runs before step 4: a taken input on an unconfigured mixer
	// reports the occupied handle.
	nodes := []Node{node("a", Microphone, "x"), node("b", Microphone, "y"), node("m", Mixer, "")}
	edges := []Edge{{ID: "legacy", Source: "a", Target: "m", SourceHandle: "output-0", TargetHandle: "input-0"}}
	assert.Equal(t, HandleOccupied, Check(conn("b", "m"), nodes, edges).Reason)
}

func TestCheck_SimulationFanIn(t *testing.T) {
	nodes := []Node{node("s1", Speaker, ""), node("s2", Speaker, ""), node("sim", Simulation, "")}
	edges := []Edge{conn("s1", "sim").Edge()}

	assert.True(t, Check(conn("s2", "sim"), nodes, edges).Allowed)
	// Same speaker, same handles: duplicate rather than occupied.
	assert.Equal(t, DuplicateEdge, Check(conn("s1", "sim"), nodes, edges).Reason)
}

func TestValidatorLogsRejections(t *testing.T) {
	var buf bytes.Buffer
	v := NewValidator(logging.NewJSONLogger(&buf, logging.DebugLevel))
	nodes := []Node{node("mic", Microphone, ""), node("pa", Speaker, "")}

	assert.False(t, v.IsValidConnection(conn("mic", "pa"), nodes, nil))
	out := buf.String()
	assert.True(t, strings.Contains(out, `"reason":"forbidden_pair"`), out)
	assert.Contains(t, out, `"component":"connection_validator"`)

	buf.Reset()
	assert.True(t, v.IsValidConnection(conn("pa", "mic"), nodes, nil))
	assert.Empty(t, buf.String())
}

func TestEdgeIDIsDeterministic(t *testing.T) {
	c := Connection{Source: "node_1", Target: "node_2", SourceHandle: "output-0"}
	assert.Equal(t, "edge_node_1_output-0_to_node_2_default", EdgeID(c))
	assert.Equal(t, EdgeID(c), c.Edge().ID)
	assert.Equal(t, c, c.Edge().Connection())
}

func TestValidateHandleConnections(t *testing.T) {
	edges := []Edge{
		{Source: "mix", SourceHandle: "output-0", Target: "a", TargetHandle: "input-0"},
		{Source: "mix", SourceHandle: "output-0", Target: "b", TargetHandle: "input-0"},
		{Source: "mix", SourceHandle: "output-1", Target: "c", TargetHandle: "input-0"},
	}
	assert.False(t, ValidateHandleConnections("mix", "output-0", SourceHandle, edges, 2))
	assert.True(t, ValidateHandleConnections("mix", "output-0", SourceHandle, edges, 3))
	assert.True(t, ValidateHandleConnections("mix", "output-1", SourceHandle, edges, 2))
	assert.False(t, ValidateHandleConnections("a", "input-0", TargetHandle, edges, 1))
	assert.True(t, ValidateHandleConnections("a", "input-1", TargetHandle, edges, 1))
}

func TestCheckHandles(t *testing.T) {
	nodes := []Node{
		node("gtr", Instrument, "guitar-acoustic"),
		node("mic", Microphone, "shure-sm57"),
		node("pa", Speaker, "jbl-prx908"),
		node("pa2", Speaker, "jbl-prx908"),
		node("sim", Simulation, ""),
	}
	edges := []Edge{conn("gtr", "mic").Edge(), conn("pa", "sim").Edge()}

	tests := []struct {
		name string
		c    Connection
		want Reason
	}{
		{"simulation takes another speaker", conn("pa2", "sim"), Accepted},
		{"default handles", Connection{Source: "pa2", Target: "sim"}, Accepted},
		{"input beyond layout", Connection{Source: "gtr", Target: "mic", SourceHandle: "output-0", TargetHandle: "input-7"}, UnknownHandle},
		{"made-up input", Connection{Source: "gtr", Target: "mic", TargetHandle: "bogus"}, UnknownHandle},
		{"output beyond layout", Connection{Source: "pa2", Target: "sim", SourceHandle: "output-1"}, UnknownHandle},
		{"input on the output side", Connection{Source: "pa2", Target: "sim", SourceHandle: "input-0"}, UnknownHandle},
		{"taken input", Connection{Source: "pa2", Target: "mic", SourceHandle: "output-0", TargetHandle: "input-0"}, HandleOccupied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckHandles(tt.c, nodes, edges)
			assert.Equal(t, tt.want, got.Reason, got.Message)
		})
	}
}

func TestValidatorEnforcesHandleLayout(t *testing.T) {
	var buf bytes.Buffer
	v := NewValidator(logging.NewJSONLogger(&buf, logging.DebugLevel))
	nodes := []Node{node("gtr", Instrument, "guitar-acoustic"), node("mic", Microphone, "shure-sm57")}

	var edges []Edge
	for _, handle := range []string{"input-0", "input-7", "bogus"} {
		c := Connection{Source: "gtr", Target: "mic", SourceHandle: "output-0", TargetHandle: handle}
		if res := v.Check(c, nodes, edges); res.Allowed {
			edges = append(edges, c.Edge())
		} else {
			assert.Equal(t, UnknownHandle, res.Reason, handle)
			assert.Equal(t, "unknown_handle", res.Code)
		}
	}

	assert.Equal(t, 1, CountHandleConnections("mic", "input-0", TargetHandle, edges))
	assert.Len(t, edges, 1, "a single-input microphone takes one edge")
	assert.Contains(t, buf.String(), `"reason":"unknown_handle"`)
	assert.Contains(t, buf.String(), `"target_handle":"input-7"`)
}

func TestCounterAllocator(t *testing.T) {
	a := NewCounterAllocator()
	assert.Equal(t, "node_1", a.Next())
	assert.Equal(t, "node_2", a.Next())

	a.Seed([]Node{{ID: "node_7"}, {ID: "dndnode_12"}, {ID: "custom"}, {ID: "node_3"}})
	assert.Equal(t, "node_13", a.Next())

	a.Seed(nil)
	assert.Equal(t, "node_1", a.Next())
}

func TestParseNodeType(t *testing.T) {
	nt, err := ParseNodeType("processor")
	require.NoError(t, err)
	assert.Equal(t, Processor, nt)
	assert.Equal(t, "Processor", nt.DefaultLabel())
	_, err = ParseNodeType("amplifier")
	assert.ErrorIs(t, err, ErrUnknownNodeType)
}
