package acoustics

import (
	"errors"

	"github.com/dd0wney/aspire-acoustics/pkg/validation"
)

// DefaultMaterialID marks a face with no material assigned.
const DefaultMaterialID = "default"

// DefaultAbsorption is the coefficient of an unassigned face.
const DefaultAbsorption = 0.1

// ErrMissingCoefficients is returned when a material has no absorption data.
var ErrMissingCoefficients = errors.New("acoustics: material has no absorption coefficients")

// Material is an acoustic surface treatment characterised per octave band.
type Material struct {
	ID           string       `json:"id" yaml:"id"`
	Name         string       `json:"name" yaml:"name"`
	Description  string       `json:"description,omitempty" yaml:"description,omitempty"`
	Coefficients Coefficients `json:"absorptionCoefficients" yaml:"absorption_coefficients"`
}

// NRC is the material's noise reduction coefficient.
func (m Material) NRC() float64 { return ComputeNRC(m.Coefficients) }

// Validate checks identity and that every coefficient lies in [0, 1].
func (m Material) Validate() error {
	c := validation.NewCollector("material").Required("id", m.ID).Required("name", m.Name)
	if len(m.Coefficients) == 0 {
		c.Fail(ErrMissingCoefficients.Error())
	}
	for _, b := range m.Coefficients.Bands() {
		c.RangeFloat("absorption_coefficients."+b.Key(), m.Coefficients[b], 0, 1)
	}
	return c.Err()
}

// ComputeNRC averages the 250, 500, 1k and 2k coefficients. Missing bands
// count as zero.
func ComputeNRC(c Coefficients) float64 {
	return (c.Get(Band250) + c.Get(Band500) + c.Get(Band1k) + c.Get(Band2k)) / 4
}

// AbsorptionClass buckets a coefficient for display.
type AbsorptionClass string

const (
	AbsorptionLow    AbsorptionClass = "low"
	AbsorptionMedium AbsorptionClass = "medium"
	AbsorptionHigh   AbsorptionClass = "high"
)

// ClassifyCoefficient buckets v at 0.20 and 0.50.
func ClassifyCoefficient(v float64) AbsorptionClass {
	switch {
	case v < 0.2:
		return AbsorptionLow
	case v < 0.5:
		return AbsorptionMedium
	default:
		return AbsorptionHigh
	}
}
