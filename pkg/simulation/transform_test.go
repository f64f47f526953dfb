package simulation

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/aspire-acoustics/pkg/acoustics"
	"github.com/dd0wney/aspire-acoustics/pkg/catalog"
	"github.com/dd0wney/aspire-acoustics/pkg/directivity"
	"github.com/dd0wney/aspire-acoustics/pkg/room"
)

func oneSpeaker() []room.Speaker {
	return []room.Speaker{room.Speaker{
		ID:        "speaker-3d-node_1",
		SpeakerID: "jbl-prx908",
		Position:  room.Vec3{X: 5, Y: 1.5},
		Rotation:  room.Vec3{X: 0.1, Y: -0.5, Z: 0.2},
	}.WithDefaults()}
}

func TestTransform_DefaultRoomScenario(t *testing.T) {
	faces := acoustics.NewFaceMaterials()
	req := ToRequest(acoustics.Dimensions{Width: 10, Height: 4, Depth: 8}, &faces, oneSpeaker(), nil)
	require.True(t, req.Validate().Valid)

	out := NewTransformer().Transform(req, "")
	assert.Equal(t, TypeSabine, out.SimulationType)
	assert.Equal(t, "box", out.Geometry.Type)
	assert.Equal(t, BoxDimensions{Length: 10, Width: 8, Height: 4}, out.Geometry.Dimensions)

	for _, f := range acoustics.AllFaces {
		s := out.Materials.Surface(f)
		require.NotNil(t, s)
		assert.Equal(t, acoustics.DefaultMaterialID, s.MaterialID)
		assert.InDelta(t, 0.1, s.Absorption.Hz500, 1e-12, "face %s", f)
		assert.InDelta(t, 0.08, s.Absorption.Hz125, 1e-12)
		assert.InDelta(t, 0.12, s.Absorption.Hz4000, 1e-12)
	}

	assert.Equal(t, []int{125, 250, 500, 1000, 2000, 4000}, out.Params.FrequencyBands)
	assert.Equal(t, DefaultTemperature, out.Params.Temperature)
	assert.Equal(t, DefaultHumidity, out.Params.Humidity)

	require.Len(t, out.Sources, 1)
	src := out.Sources[0]
	assert.Equal(t, "speaker", src.Type)
	assert.Equal(t, "jbl-prx908", src.ModelID)
	assert.Equal(t, Orientation3D{Yaw: -0.5, Pitch: 0.1, Roll: 0.2}, src.Orientation)
	assert.Equal(t, DefaultSourcePowerDB, src.PowerDB)
	assert.Equal(t, DirectivityPattern{Horizontal: 90, Vertical: 60}, src.Directivity)
}

func TestTransform_PrefersPerBandData(t *testing.T) {
	faces := acoustics.NewFaceMaterials()
	_, err := faces.Assign(acoustics.Ceiling, &acoustics.Material{ID: "panel", Coefficients: acoustics.Coefficients{
		acoustics.Band125: 0.3, acoustics.Band250: 0.6, acoustics.Band500: 0.9,
		acoustics.Band1k: 0.95, acoustics.Band2k: 0.9, acoustics.Band4k: 0,
	}})
	require.NoError(t, err)

	out := NewTransformer().Transform(ToRequest(acoustics.DefaultDimensions(), &faces, oneSpeaker(), nil), TypeEyring)
	c := out.Materials.Ceiling
	assert.Equal(t, "panel", c.MaterialID)
	assert.Equal(t, 0.3, c.Absorption.Hz125)
	assert.Equal(t, 0.95, c.Absorption.Hz1000)
	assert.Equal(t, acoustics.DefaultAbsorption, c.Absorption.Hz4000, "non-positive falls back")
}

func TestTransform_PartialBandsUseWeights(t *testing.T) {
	faces := acoustics.NewFaceMaterials()
	require.NoError(t, faces.Set(acoustics.Floor, acoustics.FaceMaterial{
		MaterialID:            "legacy",
		AbsorptionCoefficient: 0.5,
		Coefficients:          acoustics.Coefficients{acoustics.Band500: 0.7},
	}))
	out := NewTransformer().Transform(ToRequest(acoustics.DefaultDimensions(), &faces, oneSpeaker(), nil), "")
	assert.Equal(t, 0.7, out.Materials.Floor.Absorption.Hz500)
	assert.InDelta(t, 0.4, out.Materials.Floor.Absorption.Hz125, 1e-12)
	assert.InDelta(t, 0.6, out.Materials.Floor.Absorption.Hz4000, 1e-12)
}

func TestTransform_Directivity(t *testing.T) {
	tests := []struct {
		name string
		d    directivity.Dispersion
		want DirectivityPattern
	}{
		{"numeric", directivity.Dispersion{Horizontal: directivity.Degrees(100), Vertical: directivity.Degrees(40)}, DirectivityPattern{100, 40}},
		{"omni token", directivity.Dispersion{Horizontal: directivity.Omni, Vertical: directivity.Degrees(90)}, DirectivityPattern{360, 90}},
		{"full circle", directivity.Dispersion{Horizontal: directivity.Degrees(360), Vertical: directivity.Degrees(360)}, DirectivityPattern{360, 360}},
		{"garbage", directivity.Dispersion{Horizontal: directivity.Token("wide"), Vertical: directivity.Degrees(-5)}, DirectivityPattern{90, 60}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sourceDirectivity(tt.d))
		})
	}
}

func TestRequest_Validate(t *testing.T) {
	faces := acoustics.NewFaceMaterials()
	good := ToRequest(acoustics.DefaultDimensions(), &faces, oneSpeaker(), nil)
	assert.True(t, good.Validate().Valid)
	assert.NoError(t, good.Err())

	bad := ToRequest(acoustics.Dimensions{Width: 0, Height: 4, Depth: 8}, nil, nil, []int{})
	res := bad.Validate()
	assert.False(t, res.Valid)
	assert.Len(t, res.Errors, 4, "every problem is reported")

	err := bad.Err()
	assert.ErrorIs(t, err, ErrInvalidRequest)
	var re *RequestError
	require.ErrorAs(t, err, &re)
	assert.Len(t, re.Errors, 4)
}

func TestRequest_ValidateRejectsNonStandardBands(t *testing.T) {
	faces := acoustics.NewFaceMaterials()
	req := ToRequest(acoustics.DefaultDimensions(), &faces, oneSpeaker(), []int{63, 500, 8000})
	res := req.Validate()
	require.False(t, res.Valid)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "63 Hz")
	assert.Contains(t, res.Errors[1], "8000 Hz")
}

func TestRequest_ValidateProperty(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	faces := acoustics.NewFaceMaterials()
	properties.Property("valid iff positive size, speakers, materials and bands", prop.ForAll(
		func(w, h, d float64, speakers, bands int, withMaterials bool) bool {
			var sp []room.Speaker
			for i := 0; i < speakers; i++ {
				sp = append(sp, room.Speaker{ID: string(rune('a' + i))})
			}
			var fm *acoustics.FaceMaterials
			if withMaterials {
				fm = &faces
			}
			req := ToRequest(acoustics.Dimensions{Width: w, Height: h, Depth: d}, fm, sp, acoustics.StandardFrequencies()[:bands])
			want := w > 0 && h > 0 && d > 0 && speakers > 0 && withMaterials && bands > 0
			return req.Validate().Valid == want
		},
		gen.Float64Range(-1, 20),
		gen.Float64Range(-1, 20),
		gen.Float64Range(-1, 20),
		gen.IntRange(0, 3),
		gen.IntRange(0, 6),
		gen.Bool(),
	))
	properties.TestingRun(t)
}

func TestRequest_Summary(t *testing.T) {
	faces := acoustics.NewFaceMaterials()
	s := ToRequest(acoustics.Dimensions{Width: 12, Height: 5, Depth: 20}, &faces, oneSpeaker(), nil).Summary()
	assert.True(t, strings.HasPrefix(s, "Simulation summary:"))
	assert.Contains(t, s, "12m × 5m × 20m")
	assert.Contains(t, s, "Speakers: 1")
	assert.Contains(t, s, "125, 250, 500, 1000, 2000, 4000 Hz")
	assert.Contains(t, s, "Rays: 10000")
}

func TestEngineRequest_WireShape(t *testing.T) {
	faces := acoustics.NewFaceMaterials()
	sp := oneSpeaker()
	sp[0].Specifications = room.SpecWithDefaults(catalog.SpeakerSpec{Dispersion: directivity.Dispersion{Horizontal: directivity.Omni, Vertical: directivity.Omni}})
	out := NewTransformer().Transform(ToRequest(acoustics.DefaultDimensions(), &faces, sp, nil), TypeISM)

	data, err := json.Marshal(out)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, "rt60_ism", raw["simulation_type"])
	materials := raw["materials"].(map[string]any)
	for _, k := range []string{"floor", "ceiling", "wall_front", "wall_back", "wall_left", "wall_right"} {
		m := materials[k].(map[string]any)
		abs := m["absorption"].(map[string]any)
		assert.Len(t, abs, 6, k)
		assert.Contains(t, abs, "1000")
	}
	sources := raw["sources"].([]any)
	dir := sources[0].(map[string]any)["directivity"].(map[string]any)
	assert.Equal(t, 360.0, dir["horizontal"])
	assert.NotContains(t, raw, "receivers")
}

func TestWeightedCoefficients(t *testing.T) {
	c := WeightedCoefficients(0.5)
	assert.Len(t, c, 6)
	assert.InDelta(t, 0.4, c[acoustics.Band125], 1e-12)
	assert.InDelta(t, 0.45, c[acoustics.Band250], 1e-12)
	assert.InDelta(t, 0.5, c[acoustics.Band1k], 1e-12)
	assert.InDelta(t, 0.55, c[acoustics.Band2k], 1e-12)
}
