// Package acoustics holds the room-acoustics vocabulary shared by the editor and
// the simulation pipeline: octave bands, absorption coefficients, materials,
// room faces and dimensions.
package acoustics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Band is an octave-band centre frequency in Hz.
type Band int

const (
	Band125 Band = 125
	Band250 Band = 250
	Band500 Band = 500
	Band1k  Band = 1000
	Band2k  Band = 2000
	Band4k  Band = 4000
)

// StandardBands are the six octave bands materials are characterised over.
var StandardBands = []Band{Band125, Band250, Band500, Band1k, Band2k, Band4k}

// StandardFrequencies returns StandardBands as plain Hz values.
func StandardFrequencies() []int {
	out := make([]int, len(StandardBands))
	for i, b := range StandardBands {
		out[i] = int(b)
	}
	return out
}

// IsStandardFrequency reports whether hz is one of StandardBands.
func IsStandardFrequency(hz int) bool {
	for _, b := range StandardBands {
		if int(b) == hz {
			return true
		}
	}
	return false
}

// Key is the short catalog spelling: "125", "500", "1k", "4k".
func (b Band) Key() string {
	if b >= 1000 && b%1000 == 0 {
		return strconv.Itoa(int(b)/1000) + "k"
	}
	return strconv.Itoa(int(b))
}

// HzKey is the plain Hz spelling used on the engine wire: "1000".
func (b Band) HzKey() string { return strconv.Itoa(int(b)) }

func (b Band) String() string { return b.HzKey() + " Hz" }

// ParseBand accepts every band spelling found in stored data: "125", "1000",
// "1k", "hz1k", "hz125" and "2kHz".
func ParseBand(s string) (Band, error) {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.TrimPrefix(k, "hz")
	k = strings.TrimSuffix(k, "hz")
	mult := 1.0
	if strings.HasSuffix(k, "k") {
		mult = 1000
		k = strings.TrimSuffix(k, "k")
	}
	v, err := strconv.ParseFloat(k, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("acoustics: invalid band %q", s)
	}
	return Band(v*mult + 0.5), nil
}

// Coefficients maps a band to an absorption coefficient in [0, 1].
type Coefficients map[Band]float64

// Get returns the coefficient for b, or 0 when the band is absent.
func (c Coefficients) Get(b Band) float64 { return c[b] }

// Bands returns the bands present, ascending.
func (c Coefficients) Bands() []Band {
	out := make([]Band, 0, len(c))
	for b := range c {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns an independent copy.
func (c Coefficients) Clone() Coefficients {
	if c == nil {
		return nil
	}
	out := make(Coefficients, len(c))
	for b, v := range c {
		out[b] = v
	}
	return out
}

func (c Coefficients) MarshalJSON() ([]byte, error) {
	m := make(map[string]float64, len(c))
	for b, v := range c {
		m[b.Key()] = v
	}
	return json.Marshal(m)
}

func (c *Coefficients) UnmarshalJSON(data []byte) error {
	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return c.fromKeys(raw)
}

func (c Coefficients) MarshalYAML() (any, error) {
	m := make(map[string]float64, len(c))
	for b, v := range c {
		m[b.Key()] = v
	}
	return m, nil
}

func (c *Coefficients) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]float64
	if err := node.Decode(&raw); err != nil {
		return err
	}
	return c.fromKeys(raw)
}

func (c *Coefficients) fromKeys(raw map[string]float64) error {
	if raw == nil {
		*c = nil
		return nil
	}
	out := make(Coefficients, len(raw))
	for k, v := range raw {
		b, err := ParseBand(k)
		if err != nil {
			return err
		}
		out[b] = v
	}
	*c = out
	return nil
}
