package acoustics

import (
	"encoding/json"
	"fmt"
)

// Face is one of the six boundary surfaces of a box room.
type Face string

const (
	Floor   Face = "floor"
	Ceiling Face = "ceiling"
	Front   Face = "front"
	Back    Face = "back"
	Left    Face = "left"
	Right   Face = "right"
)

// AllFaces lists every face in a stable order.
var AllFaces = [6]Face{Floor, Ceiling, Front, Back, Left, Right}

var faceNames = map[Face]string{
	Floor:   "Floor",
	Ceiling: "Ceiling",
	Front:   "Front wall",
	Back:    "Back wall",
	Left:    "Left wall",
	Right:   "Right wall",
}

func (f Face) index() int {
	for i, x := range AllFaces {
		if x == f {
			return i
		}
	}
	return -1
}

// Valid reports whether f names one of the six faces.
func (f Face) Valid() bool { return f.index() >= 0 }

// DisplayName is a human label for the face.
func (f Face) DisplayName() string { return faceNames[f] }

// ParseFace converts a face name, rejecting unknown names.
func ParseFace(s string) (Face, error) {
	f := Face(s)
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownFace, s)
	}
	return f, nil
}

// FaceMaterial is the material resolved onto a face. Coefficients carries the
// material's per-band data when known so later stages need not rebuild it from
// the single averaged figure.
type FaceMaterial struct {
	MaterialID            string       `json:"materialId"`
	AbsorptionCoefficient float64      `json:"absorptionCoefficient"`
	Coefficients          Coefficients `json:"coefficients,omitempty"`
}

// DefaultFaceMaterial is the entry for a face with nothing assigned.
func DefaultFaceMaterial() FaceMaterial {
	return FaceMaterial{MaterialID: DefaultMaterialID, AbsorptionCoefficient: DefaultAbsorption}
}

// IsDefault reports whether the face carries the unassigned sentinel.
func (fm FaceMaterial) IsDefault() bool { return fm.MaterialID == DefaultMaterialID }

// FaceMaterials is a total mapping from every Face to a FaceMaterial. The zero
// value reads as every face unassigned.
type FaceMaterials struct {
	entries [6]FaceMaterial
}

// NewFaceMaterials returns a map with every face set to the default entry.
func NewFaceMaterials() FaceMaterials {
	var fm FaceMaterials
	fm.ResetAll()
	return fm
}

// Get returns the entry for face. Unknown faces yield the default entry.
func (m *FaceMaterials) Get(face Face) FaceMaterial {
	i := face.index()
	if i < 0 {
		return DefaultFaceMaterial()
	}
	e := m.entries[i]
	if e.MaterialID == "" {
		return DefaultFaceMaterial()
	}
	return e
}

// Assign resolves mat onto face. A nil material or the "default" id resets the
// face. A material without coefficients is rejected and the map is left as it
// was.
func (m *FaceMaterials) Assign(face Face, mat *Material) (FaceMaterial, error) {
	i := face.index()
	if i < 0 {
		return FaceMaterial{}, fmt.Errorf("%w: %q", ErrUnknownFace, face)
	}
	if mat == nil || mat.ID == DefaultMaterialID {
		m.entries[i] = DefaultFaceMaterial()
		return m.entries[i], nil
	}
	if len(mat.Coefficients) == 0 {
		return FaceMaterial{}, fmt.Errorf("%w: %s", ErrMissingCoefficients, mat.ID)
	}
	m.entries[i] = FaceMaterial{
		MaterialID:            mat.ID,
		AbsorptionCoefficient: mat.NRC(),
		Coefficients:          mat.Coefficients.Clone(),
	}
	return m.entries[i], nil
}

// Set stores an already-resolved entry, as read back from a saved scene. An
// empty material id stores the default entry.
func (m *FaceMaterials) Set(face Face, fm FaceMaterial) error {
	i := face.index()
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownFace, face)
	}
	if fm.MaterialID == "" {
		fm = DefaultFaceMaterial()
	}
	fm.Coefficients = fm.Coefficients.Clone()
	m.entries[i] = fm
	return nil
}

// Clone returns a copy that shares no band maps with m.
func (m *FaceMaterials) Clone() FaceMaterials {
	out := *m
	for i := range out.entries {
		out.entries[i].Coefficients = out.entries[i].Coefficients.Clone()
	}
	return out
}

// Reset puts face back to the default entry.
func (m *FaceMaterials) Reset(face Face) {
	if i := face.index(); i >= 0 {
		m.entries[i] = DefaultFaceMaterial()
	}
}

// ResetAll puts every face back to the default entry.
func (m *FaceMaterials) ResetAll() {
	for i := range m.entries {
		m.entries[i] = DefaultFaceMaterial()
	}
}

// Each calls fn for every face in AllFaces order.
func (m *FaceMaterials) Each(fn func(Face, FaceMaterial)) {
	for _, f := range AllFaces {
		fn(f, m.Get(f))
	}
}

// MaterialIDs returns face -> material id, including "default" entries.
func (m *FaceMaterials) MaterialIDs() map[Face]string {
	out := make(map[Face]string, len(AllFaces))
	m.Each(func(f Face, fm FaceMaterial) { out[f] = fm.MaterialID })
	return out
}

func (m FaceMaterials) MarshalJSON() ([]byte, error) {
	out := make(map[Face]FaceMaterial, len(AllFaces))
	m.Each(func(f Face, fm FaceMaterial) { out[f] = fm })
	return json.Marshal(out)
}

// UnmarshalJSON accepts a partial object; faces not present get the default
// entry and unknown keys are rejected.
func (m *FaceMaterials) UnmarshalJSON(data []byte) error {
	var raw map[string]FaceMaterial
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.ResetAll()
	for k, v := range raw {
		f, err := ParseFace(k)
		if err != nil {
			return err
		}
		if v.MaterialID == "" {
			v = DefaultFaceMaterial()
		}
		m.entries[f.index()] = v
	}
	return nil
}
