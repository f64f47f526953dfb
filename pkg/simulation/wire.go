package simulation

import (
	"github.com/dd0wney/aspire-acoustics/pkg/acoustics"
)

// EngineRequest is the body of POST /api/v1/simulate/rt60.
type EngineRequest struct {
	SimulationType Type               `json:"simulation_type"`
	Geometry       BoxGeometry        `json:"geometry"`
	Materials      RoomMaterials      `json:"materials"`
	Sources        []SoundSource      `json:"sources,omitempty"`
	Receivers      []MeasurementPoint `json:"receivers,omitempty"`
	Params         Params             `json:"params"`
}

// BoxGeometry is a rectangular room. The engine names the axes length (x),
// width (z) and height (y).
type BoxGeometry struct {
	Type       string        `json:"type"`
	Dimensions BoxDimensions `json:"dimensions"`
}

type BoxDimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Absorption holds one coefficient per standard octave band.
type Absorption struct {
	Hz125  float64 `json:"125"`
	Hz250  float64 `json:"250"`
	Hz500  float64 `json:"500"`
	Hz1000 float64 `json:"1000"`
	Hz2000 float64 `json:"2000"`
	Hz4000 float64 `json:"4000"`
}

// Get returns the coefficient for a standard band, zero otherwise.
func (a Absorption) Get(b acoustics.Band) float64 {
	switch b {
	case acoustics.Band125:
		return a.Hz125
	case acoustics.Band250:
		return a.Hz250
	case acoustics.Band500:
		return a.Hz500
	case acoustics.Band1k:
		return a.Hz1000
	case acoustics.Band2k:
		return a.Hz2000
	case acoustics.Band4k:
		return a.Hz4000
	}
	return 0
}

func (a *Absorption) set(b acoustics.Band, v float64) {
	switch b {
	case acoustics.Band125:
		a.Hz125 = v
	case acoustics.Band250:
		a.Hz250 = v
	case acoustics.Band500:
		a.Hz500 = v
	case acoustics.Band1k:
		a.Hz1000 = v
	case acoustics.Band2k:
		a.Hz2000 = v
	case acoustics.Band4k:
		a.Hz4000 = v
	}
}

type SurfaceMaterial struct {
	MaterialID string     `json:"material_id"`
	Name       string     `json:"name,omitempty"`
	Absorption Absorption `json:"absorption"`
}

type RoomMaterials struct {
	Floor     SurfaceMaterial `json:"floor"`
	Ceiling   SurfaceMaterial `json:"ceiling"`
	WallFront SurfaceMaterial `json:"wall_front"`
	WallBack  SurfaceMaterial `json:"wall_back"`
	WallLeft  SurfaceMaterial `json:"wall_left"`
	WallRight SurfaceMaterial `json:"wall_right"`
}

// Surface returns the entry for a room face.
func (m *RoomMaterials) Surface(f acoustics.Face) *SurfaceMaterial {
	switch f {
	case acoustics.Floor:
		return &m.Floor
	case acoustics.Ceiling:
		return &m.Ceiling
	case acoustics.Front:
		return &m.WallFront
	case acoustics.Back:
		return &m.WallBack
	case acoustics.Left:
		return &m.WallLeft
	case acoustics.Right:
		return &m.WallRight
	}
	return nil
}

type Position3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Orientation3D is in radians.
type Orientation3D struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

// DirectivityPattern is coverage in degrees; 360 is omnidirectional.
type DirectivityPattern struct {
	Horizontal float64 `json:"horizontal"`
	Vertical   float64 `json:"vertical"`
}

type SoundSource struct {
	ID          string             `json:"id"`
	Type        string             `json:"type"`
	ModelID     string             `json:"model_id,omitempty"`
	Position    Position3D         `json:"position"`
	Orientation Orientation3D      `json:"orientation"`
	PowerDB     float64            `json:"power_db"`
	Directivity DirectivityPattern `json:"directivity"`
}

type MeasurementPoint struct {
	ID       string     `json:"id"`
	Position Position3D `json:"position"`
	Name     string     `json:"name,omitempty"`
}

type Params struct {
	Temperature    float64 `json:"temperature"`
	Humidity       float64 `json:"humidity"`
	FrequencyBands []int   `json:"frequency_bands"`
}

// EngineResponse is the engine's reply.
type EngineResponse struct {
	Status       Status      `json:"status"`
	Metadata     Metadata    `json:"metadata"`
	Results      *RT60Result `json:"results"`
	ErrorMessage *string     `json:"error_message"`
}

type Metadata struct {
	SimulationID         *string `json:"simulation_id"`
	EngineUsed           string  `json:"engine_used"`
	ExecutionTimeSeconds float64 `json:"execution_time_seconds"`
	Timestamp            string  `json:"timestamp"`
}

// RT60Result maps band (Hz, as a string) to seconds.
type RT60Result struct {
	RT60ByBand  map[string]float64 `json:"rt60_by_band"`
	AverageRT60 float64            `json:"average_rt60"`
}

// Failure returns the engine's error message, or a generic one.
func (r EngineResponse) Failure() string {
	if r.ErrorMessage != nil && *r.ErrorMessage != "" {
		return *r.ErrorMessage
	}
	return "unknown simulation error"
}
