package simulation

import "fmt"

// Type selects the engine's RT60 method.
type Type string

const (
	TypeSabine Type = "rt60_sabine"
	TypeEyring Type = "rt60_eyring"
	TypeISM    Type = "rt60_ism"
)

// DefaultType is used when a run does not name one.
const DefaultType = TypeSabine

// TypeInfo describes a simulation type for clients.
type TypeInfo struct {
	ID          Type   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var availableTypes = []TypeInfo{
	{ID: TypeSabine, Name: "RT60 Sabine", Description: "Sabine equation, a fast reverberation estimate"},
	{ID: TypeEyring, Name: "RT60 Eyring", Description: "Eyring equation, for rooms with high absorption"},
	{ID: TypeISM, Name: "RT60 ISM", Description: "Image Source Method, for a detailed simulation"},
}

// AvailableTypes lists the simulation types the engine accepts.
func AvailableTypes() []TypeInfo {
	out := make([]TypeInfo, len(availableTypes))
	copy(out, availableTypes)
	return out
}

func (t Type) Valid() bool {
	for _, info := range availableTypes {
		if info.ID == t {
			return true
		}
	}
	return false
}

// ParseType accepts a known type id; "" means DefaultType.
func ParseType(s string) (Type, error) {
	if s == "" {
		return DefaultType, nil
	}
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
	return t, nil
}

// Status is the engine's verdict on a run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)
