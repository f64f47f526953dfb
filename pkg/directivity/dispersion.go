// Package directivity models loudspeaker dispersion and derives the cone or
// sphere that visualises it.
package directivity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultHorizontal = 90.0
	DefaultVertical   = 60.0
	// FullCircle and above is treated as omnidirectional.
	FullCircle = 360.0
)

// Angle is one dispersion axis as catalogs publish it: a number of degrees or
// a token such as "Omni". The zero Angle is unset.
type Angle struct {
	deg   float64
	text  string
	isNum bool
}

// Degrees returns a numeric angle.
func Degrees(v float64) Angle { return Angle{deg: v, isNum: true} }

// Token returns a textual angle such as "Omni" or "120".
func Token(s string) Angle { return Angle{text: s} }

// Omni is the conventional omnidirectional token.
var Omni = Token("Omni")

// IsSet reports whether the angle carries any value.
func (a Angle) IsSet() bool { return a.isNum || a.text != "" }

// IsOmni reports whether the axis radiates in every direction.
func (a Angle) IsOmni() bool {
	if a.isNum {
		return a.deg >= FullCircle
	}
	return strings.Contains(strings.ToLower(a.text), "omni")
}

// Numeric returns the angle in degrees when it is a number or a numeric token.
func (a Angle) Numeric() (float64, bool) {
	if a.isNum {
		return a.deg, true
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(a.text), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (a Angle) String() string {
	switch {
	case a.isNum:
		return strconv.FormatFloat(a.deg, 'f', -1, 64) + "°"
	case a.text != "":
		return a.text
	default:
		return "unset"
	}
}

func (a Angle) MarshalJSON() ([]byte, error) {
	switch {
	case a.isNum:
		return json.Marshal(a.deg)
	case a.text != "":
		return json.Marshal(a.text)
	default:
		return []byte("null"), nil
	}
}

func (a *Angle) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*a = Angle{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Token(s)
		return nil
	default:
		var v float64
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("directivity: angle must be a number or string: %w", err)
		}
		*a = Degrees(v)
		return nil
	}
}

func (a Angle) MarshalYAML() (any, error) {
	switch {
	case a.isNum:
		return a.deg, nil
	case a.text != "":
		return a.text, nil
	default:
		return nil, nil
	}
}

func (a *Angle) UnmarshalYAML(node *yaml.Node) error {
	switch node.ShortTag() {
	case "!!int", "!!float":
		var v float64
		if err := node.Decode(&v); err != nil {
			return err
		}
		*a = Degrees(v)
	case "!!null":
		*a = Angle{}
	default:
		*a = Token(node.Value)
	}
	return nil
}

// Dispersion is a speaker's horizontal and vertical coverage.
type Dispersion struct {
	Horizontal Angle `json:"horizontal" yaml:"horizontal"`
	Vertical   Angle `json:"vertical" yaml:"vertical"`
}

// DefaultDispersion is used when a speaker publishes nothing usable.
func DefaultDispersion() Dispersion {
	return Dispersion{Horizontal: Degrees(DefaultHorizontal), Vertical: Degrees(DefaultVertical)}
}

// IsSet reports whether either axis carries a value.
func (d Dispersion) IsSet() bool { return d.Horizontal.IsSet() || d.Vertical.IsSet() }

// IsOmnidirectional is true when either axis is omni.
func IsOmnidirectional(d Dispersion) bool {
	return d.Horizontal.IsOmni() || d.Vertical.IsOmni()
}

// ValidDispersion returns usable degrees for both axes. Values outside
// (0, 360) or non-numeric tokens fall back to 90° horizontal and 60° vertical.
func ValidDispersion(d Dispersion) (horizontal, vertical float64) {
	return validAxis(d.Horizontal, DefaultHorizontal), validAxis(d.Vertical, DefaultVertical)
}

func validAxis(a Angle, def float64) float64 {
	v, ok := a.Numeric()
	if !ok || v <= 0 || v >= FullCircle {
		return def
	}
	return v
}
