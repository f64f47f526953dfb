package directivity

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestIsOmnidirectional(t *testing.T) {
	tests := []struct {
		name string
		d    Dispersion
		want bool
	}{
		{"omni token on one axis", Dispersion{Horizontal: Omni, Vertical: Degrees(90)}, true},
		{"lowercase token", Dispersion{Horizontal: Degrees(90), Vertical: Token("omni")}, true},
		{"token inside text", Dispersion{Horizontal: Token("Omnidirectional"), Vertical: Degrees(60)}, true},
		{"full circle", Dispersion{Horizontal: Degrees(360), Vertical: Degrees(60)}, true},
		{"wide but directional", Dispersion{Horizontal: Degrees(180), Vertical: Degrees(180)}, false},
		{"unset", Dispersion{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsOmnidirectional(tt.d))
		})
	}
}

func TestValidDispersion(t *testing.T) {
	h, v := ValidDispersion(Dispersion{Horizontal: Degrees(105), Vertical: Token("40")})
	assert.Equal(t, 105.0, h)
	assert.Equal(t, 40.0, v)

	h, v = ValidDispersion(Dispersion{Horizontal: Degrees(0), Vertical: Token("wide")})
	assert.Equal(t, DefaultHorizontal, h)
	assert.Equal(t, DefaultVertical, v)

	h, v = ValidDispersion(Dispersion{Horizontal: Degrees(-10), Vertical: Degrees(400)})
	assert.Equal(t, DefaultHorizontal, h)
	assert.Equal(t, DefaultVertical, v)
}

func TestAngleEncoding(t *testing.T) {
	var d Dispersion
	require.NoError(t, json.Unmarshal([]byte(`{"horizontal":"Omni","vertical":90}`), &d))
	assert.True(t, d.Horizontal.IsOmni())
	deg, ok := d.Vertical.Numeric()
	assert.True(t, ok)
	assert.Equal(t, 90.0, deg)

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"horizontal":"Omni","vertical":90}`, string(out))

	var y Dispersion
	require.NoError(t, yaml.Unmarshal([]byte("horizontal: 105\nvertical: Omni\n"), &y))
	assert.Equal(t, Degrees(105), y.Horizontal)
	assert.Equal(t, Omni, y.Vertical)
}

func TestComputeCone(t *testing.T) {
	// 0.3 m deep box, 90 x 60 coverage.
	s := Compute(DefaultDispersion(), 0.3)
	require.Equal(t, KindCone, s.Kind)
	assert.InDelta(t, 1.5, s.Distance, 1e-12)
	assert.InDelta(t, 1.5, s.RadiusH, 1e-12) // tan(45°) = 1
	assert.InDelta(t, 1.5*math.Tan(math.Pi/6), s.RadiusV, 1e-12)
	assert.InDelta(t, (s.RadiusH+s.RadiusV)/2, s.AvgRadius, 1e-12)
	assert.InDelta(t, s.RadiusH/s.AvgRadius, s.Scale[0], 1e-12)
	assert.InDelta(t, s.RadiusV/s.AvgRadius, s.Scale[1], 1e-12)
	assert.Equal(t, 1.0, s.Scale[2])
	assert.InDelta(t, -math.Pi/2, s.Rotation[0], 1e-12)
	assert.InDelta(t, 0.15+0.75, s.Offset[2], 1e-12)
	assert.Equal(t, ConeSegments, s.Segments)
}

func TestComputeSphere(t *testing.T) {
	s := Compute(Dispersion{Horizontal: Omni, Vertical: Omni}, 0.6)
	assert.Equal(t, KindSphere, s.Kind)
	assert.Equal(t, OmniRadius, s.Radius)
}

func TestComputeZeroDepth(t *testing.T) {
	s := Compute(DefaultDispersion(), 0)
	assert.Equal(t, Vec3{1, 1, 1}, s.Scale)
	assert.False(t, math.IsNaN(s.Scale[0]))
}

func TestConeScaleProperty(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping property tests in short mode")
	}
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	properties.Property("elliptical scale factors average to one", prop.ForAll(
		func(h, v, depth float64) bool {
			s := Compute(Dispersion{Horizontal: Degrees(h), Vertical: Degrees(v)}, depth)
			return math.Abs((s.Scale[0]+s.Scale[1])/2-1) < 1e-9
		},
		gen.Float64Range(1, 179), gen.Float64Range(1, 179), gen.Float64Range(0.05, 1.5),
	))
	properties.TestingRun(t)
}
