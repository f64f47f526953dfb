package api

import (
	"github.com/dd0wney/aspire-acoustics/pkg/acoustics"
	"github.com/dd0wney/aspire-acoustics/pkg/editor"
	"github.com/dd0wney/aspire-acoustics/pkg/room"
	"github.com/dd0wney/aspire-acoustics/pkg/signalchain"
	"github.com/dd0wney/aspire-acoustics/pkg/simulation"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Code    int      `json:"code"`
	Errors  []string `json:"errors,omitempty"`
}

// ConnectionRejectedResponse is returned when the validator refuses an edge.
type ConnectionRejectedResponse struct {
	ErrorResponse
	Verdict signalchain.Verdict `json:"verdict"`
}

// UpdateSceneRequest renames or redescribes a scene.
type UpdateSceneRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=50"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

// AddNodeRequest adds one node to a signal chain.
type AddNodeRequest struct {
	Type     string               `json:"type" validate:"required"`
	Position signalchain.Position `json:"position"`
}

// UpdateNodeRequest patches a node's data. A catalogId is resolved against
// the catalog and the item is attached to the node; "" detaches it.
type UpdateNodeRequest struct {
	Label     *string        `json:"label,omitempty" validate:"omitempty,max=100"`
	CatalogID *string        `json:"catalogId,omitempty"`
	Settings  map[string]any `json:"settings,omitempty"`
}

// ConnectRequest proposes one edge.
type ConnectRequest struct {
	Source       string `json:"source" validate:"required"`
	Target       string `json:"target" validate:"required"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

func (r ConnectRequest) connection() signalchain.Connection {
	return signalchain.Connection{
		Source:       r.Source,
		Target:       r.Target,
		SourceHandle: r.SourceHandle,
		TargetHandle: r.TargetHandle,
	}
}

// ChangesRequest carries the change batches of one editing gesture.
type ChangesRequest struct {
	Nodes []editor.NodeChange `json:"nodes,omitempty"`
	Edges []editor.EdgeChange `json:"edges,omitempty"`
}

// ChangesResponse reports both batches and the resulting graph.
type ChangesResponse struct {
	Nodes    editor.ChangeSummary `json:"nodes"`
	Edges    editor.ChangeSummary `json:"edges"`
	Snapshot editor.Snapshot      `json:"snapshot"`
}

// SignalChainResponse is the editor state plus the rules the stored data
// breaks, if any.
type SignalChainResponse struct {
	editor.Snapshot
	Violations []signalchain.Violation `json:"violations,omitempty"`
}

// SelectNodeRequest selects a node; an empty id clears the selection.
type SelectNodeRequest struct {
	NodeID string `json:"nodeId"`
}

// PrepareSpeakersRequest overrides the placement circle.
type PrepareSpeakersRequest struct {
	Radius *float64   `json:"radius,omitempty" validate:"omitempty,gt=0"`
	Center *room.Vec3 `json:"center,omitempty"`
}

// PrepareSpeakersResponse lists the speakers written to the scene.
type PrepareSpeakersResponse struct {
	Speakers []room.Speaker `json:"speakers"`
	Count    int            `json:"count"`
}

// AssignMaterialRequest names the material for one face.
type AssignMaterialRequest struct {
	MaterialID string `json:"materialId" validate:"required"`
}

// SimulateRequest starts a run. Bands default to the configured set and are
// limited to the octave bands materials are characterised over.
type SimulateRequest struct {
	SimulationType string `json:"simulationType,omitempty"`
	Bands          []int  `json:"bands,omitempty" validate:"omitempty,dive,oneof=125 250 500 1000 2000 4000"`
}

// SimulateResponse is a finished run with its request, report and the export
// document.
type SimulateResponse struct {
	simulation.Outcome
	Summary string            `json:"summary"`
	Export  simulation.Export `json:"export"`
}

// RunsResponse is a page of run history.
type RunsResponse struct {
	Runs  []simulation.Run `json:"runs"`
	Count int              `json:"count"`
}

// ArchiveResponse names the object a scene was archived to.
type ArchiveResponse struct {
	Key  string `json:"key"`
	Runs int    `json:"runs"`
}

// MaterialResponse is a material with its derived NRC.
type MaterialResponse struct {
	acoustics.Material
	NRC float64 `json:"nrc"`
}
