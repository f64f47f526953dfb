package signalchain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/aspire-acoustics/pkg/catalog"
)

func TestActiveSpeakers(t *testing.T) {
	g := Graph{
		Nodes: []Node{
			node("mix", Mixer, "m"),
			node("s1", Speaker, ""),
			node("s2", Speaker, ""),
			node("s3", Speaker, ""),
			node("sim", Simulation, ""),
		},
		Edges: []Edge{
			conn("mix", "s1").Edge(),
			conn("s3", "sim").Edge(),
			conn("s1", "sim").Edge(),
			conn("mix", "sim").Edge(),
		},
	}
	active := g.ActiveSpeakers()
	require.Len(t, active, 2)
	assert.Equal(t, "s1", active[0].ID)
	assert.Equal(t, "s3", active[1].ID)

	assert.Empty(t, Graph{Nodes: []Node{node("s1", Speaker, "")}}.ActiveSpeakers())
}

func TestWithoutNodeCascades(t *testing.T) {
	g := Graph{
		Nodes: []Node{node("a", Microphone, ""), node("b", Mixer, "m"), node("c", Speaker, "")},
		Edges: []Edge{conn("a", "b").Edge(), conn("b", "c").Edge()},
	}
	out := g.WithoutNode("b")
	assert.Len(t, out.Nodes, 2)
	assert.Empty(t, out.Edges)
	assert.Len(t, g.Edges, 2, "original untouched")
}

func TestCloneIsDeep(t *testing.T) {
	n := node("a", Mixer, "m")
	n.Data.Settings["gain"] = 3
	g := Graph{Nodes: []Node{n}}
	c := g.Clone()
	c.Nodes[0].Data.Settings["gain"] = 9
	assert.Equal(t, 3, g.Nodes[0].Data.Settings["gain"])
}

func TestAudit(t *testing.T) {
	g := Graph{
		Nodes: []Node{node("mic", Microphone, ""), node("mic2", Microphone, ""), node("pa", Speaker, ""), node("pa", Speaker, "")},
		Edges: []Edge{
			{ID: "e1", Source: "mic", Target: "pa"},
			{ID: "e2", Source: "mic2", Target: "pa"},
			{ID: "e3", Source: "mic", Target: "ghost"},
			{ID: "e4", Source: "pa", Target: "pa"},
		},
	}
	codes := map[string]int{}
	for _, v := range g.Audit() {
		codes[v.Code]++
	}
	assert.Equal(t, 1, codes["duplicate_node"])
	assert.Equal(t, 2, codes["forbidden_pair"])
	assert.Equal(t, 1, codes["handle_occupied"])
	assert.Equal(t, 1, codes["unknown_node"])
	assert.Equal(t, 1, codes["self_loop"])
}

func TestAuditUnknownHandles(t *testing.T) {
	g := Graph{
		Nodes: []Node{node("gtr", Instrument, ""), node("mic", Microphone, ""), node("pa", Speaker, ""), node("sim", Simulation, "")},
		Edges: []Edge{
			{ID: "e1", Source: "gtr", SourceHandle: "output-0", Target: "mic", TargetHandle: "input-7"},
			{ID: "e2", Source: "pa", SourceHandle: "output-3", Target: "sim", TargetHandle: "input-0"},
			{ID: "e3", Source: "gtr", Target: "mic"},
		},
	}
	var got []Violation
	for _, v := range g.Audit() {
		if v.Reason == UnknownHandle {
			got = append(got, v)
		}
	}
	require.Len(t, got, 2)
	assert.Equal(t, "e1", got[0].EdgeID)
	assert.Equal(t, "mic", got[0].NodeID)
	assert.Equal(t, "e2", got[1].EdgeID)
	assert.Equal(t, "pa", got[1].NodeID)
}

func TestLayoutFor(t *testing.T) {
	mixer := node("m", Mixer, "midas-mr18")
	mixer.Data.CatalogData = &catalog.Item{ID: "midas-mr18", Kind: catalog.KindMixer, Specifications: json.RawMessage(`{"channels":18,"auxSends":6}`)}
	assert.Equal(t, HandleLayout{Inputs: 18, Outputs: 8}, LayoutFor(mixer))

	assert.Equal(t, HandleLayout{Inputs: 4, Outputs: 4}, LayoutFor(node("m2", Mixer, "")))

	proc := node("p", Processor, "dbx")
	proc.Data.CatalogData = &catalog.Item{ID: "dbx", Kind: catalog.KindProcessor, Specifications: json.RawMessage(`{"inputs":2,"outputs":6}`)}
	l := LayoutFor(proc)
	assert.Equal(t, HandleLayout{Inputs: 2, Outputs: 6}, l)
	assert.Equal(t, []string{"input-0", "input-1"}, l.InputHandles())
	assert.True(t, l.Has(SourceHandle, "output-5"))
	assert.False(t, l.Has(SourceHandle, "output-6"))
	assert.False(t, l.Has(TargetHandle, "output-0"))

	assert.Equal(t, HandleLayout{Inputs: 0, Outputs: 1}, LayoutFor(node("i", Instrument, "")))
	assert.Equal(t, HandleLayout{Inputs: 1, Outputs: 0}, LayoutFor(node("s", Simulation, "")))
}
