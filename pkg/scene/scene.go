// Package scene persists scenes: the signal chain, room geometry and speaker
// layout of one configuration, stored as three JSON documents, plus the
// simulation runs made against it.
package scene

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dd0wney/aspire-acoustics/pkg/acoustics"
	"github.com/dd0wney/aspire-acoustics/pkg/room"
	"github.com/dd0wney/aspire-acoustics/pkg/signalchain"
	"github.com/dd0wney/aspire-acoustics/pkg/validation"
)

var (
	ErrSceneNotFound = errors.New("scene: not found")
	ErrInvalidScene  = errors.New("scene: invalid")
)

// DocumentVersion is stamped on saved instrument setups and speaker layouts.
const DocumentVersion = "1.0"

// CopySuffix is appended to the name of a duplicated scene.
const CopySuffix = " (copy)"

// MaxNameLength bounds scene names.
const MaxNameLength = 50

// InstrumentSetup is the saved signal chain.
type InstrumentSetup struct {
	Nodes     []signalchain.Node `json:"nodes,omitempty"`
	Edges     []signalchain.Edge `json:"edges,omitempty"`
	Version   string             `json:"version,omitempty"`
	UpdatedAt *time.Time         `json:"updatedAt,omitempty"`
}

// Graph returns the setup as a detached graph.
func (s InstrumentSetup) Graph() signalchain.Graph {
	return signalchain.Graph{Nodes: s.Nodes, Edges: s.Edges}.Clone()
}

// GeometryData is the saved room shape and face materials.
type GeometryData struct {
	Dimensions *acoustics.Dimensions    `json:"dimensions,omitempty"`
	Materials  *acoustics.FaceMaterials `json:"materials,omitempty"`
}

// DimensionsOrDefault returns the saved dimensions, or the default room.
func (g GeometryData) DimensionsOrDefault() acoustics.Dimensions {
	if g.Dimensions == nil {
		return acoustics.DefaultDimensions()
	}
	return *g.Dimensions
}

func (g GeometryData) clone() GeometryData {
	out := GeometryData{}
	if g.Dimensions != nil {
		d := *g.Dimensions
		out.Dimensions = &d
	}
	if g.Materials != nil {
		m := g.Materials.Clone()
		out.Materials = &m
	}
	return out
}

// SoundSourceData is the saved speaker layout.
type SoundSourceData struct {
	Speakers  []room.Speaker `json:"speakers,omitempty"`
	Version   string         `json:"version,omitempty"`
	UpdatedAt *time.Time     `json:"updatedAt,omitempty"`
}

// Scene is one stored configuration.
type Scene struct {
	ID              string          `json:"id"`
	ProjectID       string          `json:"projectId"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	InstrumentSetup InstrumentSetup `json:"instrumentSetup"`
	GeometryData    GeometryData    `json:"geometryData"`
	SoundSourceData SoundSourceData `json:"soundSourceData"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Clone deep-copies s.
func (s Scene) Clone() Scene {
	out := s
	g := s.InstrumentSetup.Graph()
	out.InstrumentSetup.Nodes = g.Nodes
	out.InstrumentSetup.Edges = g.Edges
	if s.InstrumentSetup.Nodes == nil {
		out.InstrumentSetup.Nodes = nil
	}
	if s.InstrumentSetup.Edges == nil {
		out.InstrumentSetup.Edges = nil
	}
	out.InstrumentSetup.UpdatedAt = cloneTime(s.InstrumentSetup.UpdatedAt)
	out.GeometryData = s.GeometryData.clone()
	out.SoundSourceData.Speakers = room.CloneSpeakers(s.SoundSourceData.Speakers)
	out.SoundSourceData.UpdatedAt = cloneTime(s.SoundSourceData.UpdatedAt)
	return out
}

// CreateInput is what a new scene needs.
type CreateInput struct {
	ProjectID   string `json:"projectId" validate:"required"`
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description,omitempty" validate:"max=500"`
}

// Normalize trims the free-text fields.
func (in CreateInput) Normalize() CreateInput {
	in.ProjectID = strings.TrimSpace(in.ProjectID)
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	return in
}

// Validate checks a normalized input.
func (in CreateInput) Validate() error {
	if err := validation.Struct(in); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScene, err)
	}
	return nil
}

// Patch renames or redescribes a scene. nil fields are left alone.
type Patch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (p Patch) apply(s *Scene) error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" || len(name) > MaxNameLength {
			return fmt.Errorf("%w: name must be 1 to %d characters", ErrInvalidScene, MaxNameLength)
		}
		s.Name = name
	}
	if p.Description != nil {
		s.Description = strings.TrimSpace(*p.Description)
	}
	return nil
}

// StoreError records which store operation failed for which scene.
type StoreError struct {
	Op      string
	SceneID string
	Cause   error
}

func (e *StoreError) Error() string {
	if e.SceneID == "" {
		return fmt.Sprintf("scene: %s: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("scene: %s %s: %v", e.Op, e.SceneID, e.Cause)
}

func (e *StoreError) Unwrap() error { return e.Cause }

func storeErr(op, id string, cause error) error {
	if cause == nil {
		return nil
	}
	return &StoreError{Op: op, SceneID: id, Cause: cause}
}

func notFound(op, id string) error {
	return &StoreError{Op: op, SceneID: id, Cause: ErrSceneNotFound}
}

func instrumentSetup(g signalchain.Graph, now time.Time) InstrumentSetup {
	g = g.Clone()
	return InstrumentSetup{Nodes: g.Nodes, Edges: g.Edges, Version: DocumentVersion, UpdatedAt: &now}
}

func soundSources(speakers []room.Speaker, now time.Time) SoundSourceData {
	return SoundSourceData{Speakers: room.CloneSpeakers(speakers), Version: DocumentVersion, UpdatedAt: &now}
}

func validateGeometry(g GeometryData) error {
	if g.Dimensions == nil {
		return nil
	}
	if err := g.Dimensions.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScene, err)
	}
	return nil
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
