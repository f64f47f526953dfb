package directivity

import "math"

const (
	// ConeLengthFactor scales the speaker depth into the cone length.
	ConeLengthFactor = 5.0
	ConeSegments     = 16
	SphereSegments   = 16
	OmniRadius       = 2.0
)

// Kind distinguishes the two coverage shapes.
type Kind string

const (
	KindCone   Kind = "cone"
	KindSphere Kind = "sphere"
)

// Vec3 is an (x, y, z) triple in metres or radians.
type Vec3 [3]float64

// Shape describes the coverage mesh in the speaker's local frame. For a cone,
// the base radius is AvgRadius and Scale stretches it into an ellipse; the
// mesh sits Offset in front of the speaker and is rotated by Rotation so its
// axis points down local +Z.
type Shape struct {
	Kind       Kind    `json:"kind"`
	Horizontal float64 `json:"horizontalDeg,omitempty"`
	Vertical   float64 `json:"verticalDeg,omitempty"`
	Distance   float64 `json:"distance,omitempty"`
	RadiusH    float64 `json:"radiusHorizontal,omitempty"`
	RadiusV    float64 `json:"radiusVertical,omitempty"`
	AvgRadius  float64 `json:"avgRadius,omitempty"`
	Radius     float64 `json:"radius,omitempty"`
	Segments   int     `json:"segments"`
	Scale      Vec3    `json:"scale"`
	Rotation   Vec3    `json:"rotation"`
	Offset     Vec3    `json:"offset"`
}

func degToRad(d float64) float64 { return d * math.Pi / 180 }

// Compute derives the coverage shape for a speaker of the given physical depth
// in metres.
func Compute(d Dispersion, depth float64) Shape {
	if IsOmnidirectional(d) {
		return Shape{
			Kind:     KindSphere,
			Radius:   OmniRadius,
			Segments: SphereSegments,
			Scale:    Vec3{1, 1, 1},
		}
	}

	h, v := ValidDispersion(d)
	distance := depth * ConeLengthFactor
	rh := distance * math.Tan(degToRad(h)/2)
	rv := distance * math.Tan(degToRad(v)/2)
	avg := (rh + rv) / 2

	scale := Vec3{1, 1, 1}
	if avg > 0 {
		scale = Vec3{rh / avg, rv / avg, 1}
	}
	return Shape{
		Kind:       KindCone,
		Horizontal: h,
		Vertical:   v,
		Distance:   distance,
		RadiusH:    rh,
		RadiusV:    rv,
		AvgRadius:  avg,
		Segments:   ConeSegments,
		Scale:      scale,
		Rotation:   Vec3{-math.Pi / 2, 0, 0},
		Offset:     Vec3{0, 0, depth/2 + distance/2},
	}
}
