package simulation

import (
	"github.com/dd0wney/aspire-acoustics/pkg/acoustics"
	"github.com/dd0wney/aspire-acoustics/pkg/directivity"
)

// Transformer converts a Request into the engine's wire format.
type Transformer struct {
	Temperature   float64
	Humidity      float64
	SourcePowerDB float64
}

// NewTransformer uses 20 °C, 50 % humidity and 95 dB sources.
func NewTransformer() Transformer {
	return Transformer{Temperature: DefaultTemperature, Humidity: DefaultHumidity, SourcePowerDB: DefaultSourcePowerDB}
}

// Transform builds the engine request. Width and depth become the engine's
// length and width; faces with per-band data send it as is, others are
// rebuilt from their NRC.
func (t Transformer) Transform(r Request, simType Type) EngineRequest {
	if simType == "" {
		simType = DefaultType
	}
	out := EngineRequest{
		SimulationType: simType,
		Geometry: BoxGeometry{
			Type: "box",
			Dimensions: BoxDimensions{
				Length: r.Geometry.Width,
				Width:  r.Geometry.Depth,
				Height: r.Geometry.Height,
			},
		},
		Params: Params{
			Temperature:    t.Temperature,
			Humidity:       t.Humidity,
			FrequencyBands: append([]int(nil), r.Config.Frequencies...),
		},
	}

	faces := r.Materials
	if faces == nil {
		def := acoustics.NewFaceMaterials()
		faces = &def
	}
	for _, f := range acoustics.AllFaces {
		*out.Materials.Surface(f) = surfaceFor(faces.Get(f))
	}

	for _, s := range r.Speakers {
		out.Sources = append(out.Sources, SoundSource{
			ID:       s.ID,
			Type:     "speaker",
			ModelID:  s.SpeakerID,
			Position: Position3D{X: s.Position.X, Y: s.Position.Y, Z: s.Position.Z},
			Orientation: Orientation3D{
				Yaw:   s.Rotation.Y,
				Pitch: s.Rotation.X,
				Roll:  s.Rotation.Z,
			},
			PowerDB:     t.SourcePowerDB,
			Directivity: sourceDirectivity(s.Dispersion),
		})
	}
	return out
}

func surfaceFor(fm acoustics.FaceMaterial) SurfaceMaterial {
	fallback := WeightedCoefficients(fm.AbsorptionCoefficient)
	sm := SurfaceMaterial{MaterialID: fm.MaterialID}
	for _, b := range acoustics.StandardBands {
		v, ok := fm.Coefficients[b]
		if !ok {
			v = fallback[b]
		}
		if v <= 0 {
			v = acoustics.DefaultAbsorption
		}
		sm.Absorption.set(b, v)
	}
	return sm
}

// sourceDirectivity sends omni axes as 360° and unusable ones as the
// defaults.
func sourceDirectivity(d directivity.Dispersion) DirectivityPattern {
	axis := func(a directivity.Angle, def float64) float64 {
		if a.IsOmni() {
			return directivity.FullCircle
		}
		if v, ok := a.Numeric(); ok && v > 0 && v < directivity.FullCircle {
			return v
		}
		return def
	}
	return DirectivityPattern{
		Horizontal: axis(d.Horizontal, directivity.DefaultHorizontal),
		Vertical:   axis(d.Vertical, directivity.DefaultVertical),
	}
}
