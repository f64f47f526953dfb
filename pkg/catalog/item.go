// Package catalog resolves equipment models and acoustic materials. Items keep
// their raw specification document; typed views are decoded and validated on
// request so malformed catalog rows are caught at the boundary.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound    = errors.New("catalog: item not found")
	ErrUnknownKind = errors.New("catalog: unknown kind")
	ErrBadSpec     = errors.New("catalog: invalid specifications")
)

// Kind is an equipment category.
type Kind string

const (
	KindInstrument Kind = "instrument"
	KindMicrophone Kind = "microphone"
	KindMixer      Kind = "mixer"
	KindProcessor  Kind = "processor"
	KindSpeaker    Kind = "speaker"
)

// Kinds lists every equipment category.
var Kinds = []Kind{KindInstrument, KindMicrophone, KindMixer, KindProcessor, KindSpeaker}

// ParseKind accepts singular or plural, any case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s"))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Item is one equipment model.
type Item struct {
	ID             string          `json:"id"`
	Kind           Kind            `json:"kind"`
	Brand          string          `json:"brand,omitempty"`
	Model          string          `json:"model,omitempty"`
	Name           string          `json:"name,omitempty"`
	Category       string          `json:"category,omitempty"`
	Specifications json.RawMessage `json:"specifications,omitempty"`
}

// DisplayName is "brand model", falling back to the plain name.
func (i Item) DisplayName() string {
	model := i.Model
	if model == "" {
		model = i.Name
	}
	return strings.TrimSpace(i.Brand + " " + model)
}

// Spec decodes the item's specifications into the variant for its kind.
func (i Item) Spec() (Spec, error) {
	switch i.Kind {
	case KindSpeaker:
		return decodeSpec[SpeakerSpec](i)
	case KindMixer:
		return decodeSpec[MixerSpec](i)
	case KindProcessor:
		return decodeSpec[ProcessorSpec](i)
	case KindMicrophone:
		return decodeSpec[MicrophoneSpec](i)
	case KindInstrument:
		return decodeSpec[InstrumentSpec](i)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, i.Kind)
	}
}

// SpeakerSpec decodes the item as a speaker.
func (i Item) SpeakerSpec() (SpeakerSpec, error) { return decodeSpec[SpeakerSpec](i) }

// MixerSpec decodes the item as a mixer.
func (i Item) MixerSpec() (MixerSpec, error) { return decodeSpec[MixerSpec](i) }

// ProcessorSpec decodes the item as a processor.
func (i Item) ProcessorSpec() (ProcessorSpec, error) { return decodeSpec[ProcessorSpec](i) }
