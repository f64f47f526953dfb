package acoustics

import (
	"errors"
	"fmt"

	"github.com/dd0wney/aspire-acoustics/pkg/validation"
)

var (
	ErrUnknownFace     = errors.New("acoustics: unknown face")
	ErrUnknownMaterial = errors.New("acoustics: unknown material")

	ErrInvalidDimensions = errors.New("acoustics: invalid room dimensions")
)

// MMToMeters converts catalog millimetres to scene metres.
const MMToMeters = 0.001

// Dimensions of a box room in metres.
type Dimensions struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
	Depth  float64 `json:"depth" yaml:"depth"`
}

// DefaultDimensions is the room a new scene starts with.
func DefaultDimensions() Dimensions {
	return Dimensions{Width: 10, Height: 4, Depth: 8}
}

// Volume in cubic metres.
func (d Dimensions) Volume() float64 { return d.Width * d.Height * d.Depth }

// Validate requires all three dimensions to be positive. Failures match
// ErrInvalidDimensions.
func (d Dimensions) Validate() error {
	err := validation.NewCollector("").
		PositiveFloat("width", d.Width).
		PositiveFloat("height", d.Height).
		PositiveFloat("depth", d.Depth).
		Err()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDimensions, err)
	}
	return nil
}
