package room

import (
	"math"

	"github.com/dd0wney/aspire-acoustics/pkg/acoustics"
)

const (
	// DefaultPlacementRadius is the circle speakers are seeded on, in metres.
	DefaultPlacementRadius = 5.0
	// DefaultSpeakerHeight is used when the speaker's size is unknown.
	DefaultSpeakerHeight = 1.5
	// FloorOffset lifts a speaker of known size off the floor.
	FloorOffset = 0.5
)

// CirclePlacement spreads n speakers evenly on a horizontal circle around
// Center, each turned to face it.
type CirclePlacement struct {
	Radius float64
	Center Vec3
}

// DefaultPlacement is a 5 m circle about the origin.
func DefaultPlacement() CirclePlacement {
	return CirclePlacement{Radius: DefaultPlacementRadius}
}

// Place returns the position and rotation of speaker i of n. heightMM is the
// physical box height; zero or less means unknown.
func (p CirclePlacement) Place(i, n int, heightMM float64) (position, rotation Vec3) {
	angle := float64(i) / float64(max(n, 1)) * 2 * math.Pi

	y := DefaultSpeakerHeight
	if heightMM > 0 {
		y = heightMM*acoustics.MMToMeters*0.5 + FloorOffset
	}

	position = Vec3{
		X: p.Center.X + math.Cos(angle)*p.Radius,
		Y: p.Center.Y + y,
		Z: p.Center.Z + math.Sin(angle)*p.Radius,
	}
	rotation = Vec3{Y: -angle}
	return position, rotation
}
