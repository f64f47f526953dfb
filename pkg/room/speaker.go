// Package room holds the 3D room editor state: box dimensions, placed speakers
// and the material on each face.
package room

import (
	"errors"
	"strings"

	"github.com/dd0wney/aspire-acoustics/pkg/acoustics"
	"github.com/dd0wney/aspire-acoustics/pkg/catalog"
	"github.com/dd0wney/aspire-acoustics/pkg/directivity"
)

var (
	ErrSpeakerNotFound  = errors.New("room: speaker not found")
	ErrDuplicateSpeaker = errors.New("room: speaker id already present")
	ErrMissingSpeakerID = errors.New("room: speaker id is required")
	ErrUnknownDimension = errors.New("room: unknown dimension")
)

// SpeakerIDPrefix marks speakers seeded from signal-chain nodes.
const SpeakerIDPrefix = "speaker-3d-"

// Default physical size used when the catalog has none, in millimetres.
var DefaultSpeakerDimensions = catalog.DimensionsMM{Height: 500, Width: 300, Depth: 300}

// UnknownSpeakerType labels speakers whose catalog entry carries no type.
const UnknownSpeakerType = "Unknown"

// Vec3 is a position or Euler rotation (radians) in scene space.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Speaker is a speaker placed in the room.
type Speaker struct {
	ID             string              `json:"id"`
	Name           string              `json:"name,omitempty"`
	SpeakerID      string              `json:"speakerId,omitempty"`
	Position       Vec3                `json:"position"`
	Rotation       Vec3                `json:"rotation"`
	Scale          *Vec3               `json:"scale,omitempty"`
	Specifications catalog.SpeakerSpec `json:"specifications"`
}

// WithDefaults fills in the unit scale, the default dispersion, the default
// box size and the "Unknown" type where they are missing.
func (s Speaker) WithDefaults() Speaker {
	if s.Scale == nil {
		s.Scale = &Vec3{X: 1, Y: 1, Z: 1}
	}
	s.Specifications = SpecWithDefaults(s.Specifications)
	return s
}

// SpecWithDefaults returns spec with the placement defaults applied.
func SpecWithDefaults(spec catalog.SpeakerSpec) catalog.SpeakerSpec {
	if spec.Type == "" {
		spec.Type = UnknownSpeakerType
	}
	if !spec.Dispersion.IsSet() {
		spec.Dispersion = directivity.DefaultDispersion()
	}
	if spec.DimensionsMM == nil {
		d := DefaultSpeakerDimensions
		spec.DimensionsMM = &d
	} else {
		d := *spec.DimensionsMM
		spec.DimensionsMM = &d
	}
	return spec
}

// DimensionsMeters is the speaker box size in metres.
func (s Speaker) DimensionsMeters() acoustics.Dimensions {
	d := DefaultSpeakerDimensions
	if s.Specifications.DimensionsMM != nil {
		d = *s.Specifications.DimensionsMM
	}
	return acoustics.Dimensions{
		Width:  d.Width * acoustics.MMToMeters,
		Height: d.Height * acoustics.MMToMeters,
		Depth:  d.Depth * acoustics.MMToMeters,
	}
}

// Directivity returns the coverage shape drawn in front of the speaker.
func (s Speaker) Directivity() directivity.Shape {
	return directivity.Compute(s.Specifications.Dispersion, s.DimensionsMeters().Depth)
}

// Omnidirectional reports whether the speaker radiates in every direction.
func (s Speaker) Omnidirectional() bool {
	return directivity.IsOmnidirectional(s.Specifications.Dispersion)
}

// DisplayName picks a human label: an explicit name, then a "brand-model"
// catalog id, then the catalog spec type, then the source node number.
func (s Speaker) DisplayName() string {
	if name := strings.TrimSpace(s.Name); name != "" && !strings.HasPrefix(name, SpeakerIDPrefix) {
		return s.Name
	}

	id := s.SpeakerID
	if id == "" {
		id = s.ID
	}
	if !strings.HasPrefix(id, SpeakerIDPrefix) && strings.Contains(id, "-") {
		parts := strings.Split(id, "-")
		return strings.ToUpper(parts[0]) + " " + strings.ToUpper(strings.Join(parts[1:], " "))
	}

	if s.Specifications.Type != "" {
		return s.Specifications.Type
	}

	if n, ok := strings.CutPrefix(id, SpeakerIDPrefix+"node_"); ok {
		return "Speaker Node " + n
	}
	return id
}

// Clone returns a copy sharing no pointers with s.
func (s Speaker) Clone() Speaker {
	if s.Scale != nil {
		v := *s.Scale
		s.Scale = &v
	}
	if s.Specifications.DimensionsMM != nil {
		d := *s.Specifications.DimensionsMM
		s.Specifications.DimensionsMM = &d
	}
	s.Specifications.PowerWattsPeak = cloneFloat(s.Specifications.PowerWattsPeak)
	s.Specifications.PowerWattsRMS = cloneFloat(s.Specifications.PowerWattsRMS)
	s.Specifications.PowerWattsContinuous = cloneFloat(s.Specifications.PowerWattsContinuous)
	s.Specifications.PowerWattsProgram = cloneFloat(s.Specifications.PowerWattsProgram)
	s.Specifications.MaxSPLDB = cloneFloat(s.Specifications.MaxSPLDB)
	s.Specifications.WeightKG = cloneFloat(s.Specifications.WeightKG)
	return s
}

// CloneSpeakers deep-copies a speaker list. nil stays nil.
func CloneSpeakers(in []Speaker) []Speaker {
	if in == nil {
		return nil
	}
	out := make([]Speaker, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
