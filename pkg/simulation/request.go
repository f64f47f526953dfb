// Package simulation turns a configured room into an RT60 request for the
// external acoustic engine, runs it and classifies the result.
package simulation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dd0wney/aspire-acoustics/pkg/acoustics"
	"github.com/dd0wney/aspire-acoustics/pkg/directivity"
	"github.com/dd0wney/aspire-acoustics/pkg/room"
	"github.com/dd0wney/aspire-acoustics/pkg/validation"
)

const (
	DefaultRayCount       = 10000
	DefaultMaxReflections = 20
	DefaultTemperature    = 20.0
	DefaultHumidity       = 50.0
	DefaultSourcePowerDB  = 95.0
)

// nrcBandWeights rebuild a per-band vector from a single NRC figure when the
// face carries no band data.
var nrcBandWeights = map[acoustics.Band]float64{
	acoustics.Band125: 0.8,
	acoustics.Band250: 0.9,
	acoustics.Band500: 1.0,
	acoustics.Band1k:  1.0,
	acoustics.Band2k:  1.1,
	acoustics.Band4k:  1.2,
}

// WeightedCoefficients spreads nrc over the standard bands.
func WeightedCoefficients(nrc float64) acoustics.Coefficients {
	out := make(acoustics.Coefficients, len(nrcBandWeights))
	for b, w := range nrcBandWeights {
		out[b] = nrc * w
	}
	return out
}

// SpeakerSource is an active speaker as the request sees it.
type SpeakerSource struct {
	ID         string                 `json:"id"`
	SpeakerID  string                 `json:"speakerId"`
	Position   room.Vec3              `json:"position"`
	Rotation   room.Vec3              `json:"rotation"`
	Dispersion directivity.Dispersion `json:"dispersion"`
}

// RunConfig holds the solver settings carried with a request.
type RunConfig struct {
	Frequencies      []int `json:"frequencies"`
	RayCount         int   `json:"rayCount"`
	MaxReflections   int   `json:"maxReflections"`
	CalculateMetrics bool  `json:"calculateMetrics"`
}

// Request is the engine-independent form of a simulation: the room as the
// editor holds it.
type Request struct {
	Geometry  acoustics.Dimensions     `json:"geometry"`
	Speakers  []SpeakerSource          `json:"speakers"`
	Materials *acoustics.FaceMaterials `json:"materials"`
	Config    RunConfig                `json:"config"`
}

// ToRequest assembles a Request from room state. bands nil means the
// standard octave bands.
func ToRequest(dims acoustics.Dimensions, faces *acoustics.FaceMaterials, speakers []room.Speaker, bands []int) Request {
	if bands == nil {
		bands = acoustics.StandardFrequencies()
	}
	req := Request{
		Geometry: dims,
		Speakers: make([]SpeakerSource, 0, len(speakers)),
		Config: RunConfig{
			Frequencies:      append([]int(nil), bands...),
			RayCount:         DefaultRayCount,
			MaxReflections:   DefaultMaxReflections,
			CalculateMetrics: true,
		},
	}
	if faces != nil {
		fm := faces.Clone()
		req.Materials = &fm
	}
	for _, s := range speakers {
		req.Speakers = append(req.Speakers, SpeakerSource{
			ID:         s.ID,
			SpeakerID:  s.SpeakerID,
			Position:   s.Position,
			Rotation:   s.Rotation,
			Dispersion: s.Specifications.Dispersion,
		})
	}
	return req
}

// ValidationResult lists every problem found, not just the first.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Validate checks that the room has a positive size, at least one speaker,
// a material map and at least one frequency band, every one of them a band
// materials carry coefficients for.
func (r Request) Validate() ValidationResult {
	c := validation.NewCollector("")
	g := r.Geometry
	c.Check(g.Width > 0 && g.Height > 0 && g.Depth > 0, "room dimensions must all be greater than zero")
	c.Check(len(r.Speakers) > 0, "at least one speaker must be connected to the simulation")
	c.Check(r.Materials != nil, "acoustic materials are missing")
	c.Check(len(r.Config.Frequencies) > 0, "at least one frequency band is required")
	for _, hz := range r.Config.Frequencies {
		c.Check(acoustics.IsStandardFrequency(hz),
			fmt.Sprintf("%d Hz is not a standard octave band (125, 250, 500, 1000, 2000, 4000)", hz))
	}

	errs := c.Messages()
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// Err is Validate as an error: nil, or a *RequestError.
func (r Request) Err() error {
	if res := r.Validate(); !res.Valid {
		return &RequestError{Errors: res.Errors}
	}
	return nil
}

// Summary is a short human-readable description of the request.
func (r Request) Summary() string {
	freqs := make([]string, len(r.Config.Frequencies))
	for i, f := range r.Config.Frequencies {
		freqs[i] = strconv.Itoa(f)
	}
	var b strings.Builder
	b.WriteString("Simulation summary:\n")
	fmt.Fprintf(&b, "- Room: %gm × %gm × %gm\n", r.Geometry.Width, r.Geometry.Height, r.Geometry.Depth)
	fmt.Fprintf(&b, "- Speakers: %d\n", len(r.Speakers))
	fmt.Fprintf(&b, "- Frequencies: %s Hz\n", strings.Join(freqs, ", "))
	fmt.Fprintf(&b, "- Rays: %d\n", r.Config.RayCount)
	fmt.Fprintf(&b, "- Max reflections: %d", r.Config.MaxReflections)
	return b.String()
}
