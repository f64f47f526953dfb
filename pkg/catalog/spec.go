package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/dd0wney/aspire-acoustics/pkg/directivity"
	"github.com/dd0wney/aspire-acoustics/pkg/validation"
)

// Spec is a decoded, validated specification variant.
type Spec interface {
	Kind() Kind
}

// DimensionsMM is a physical size in millimetres.
type DimensionsMM struct {
	Width  float64 `json:"width" validate:"gte=0"`
	Height float64 `json:"height" validate:"gte=0"`
	Depth  float64 `json:"depth" validate:"gte=0"`
}

type SpeakerSpec struct {
	Type                    string                 `json:"type,omitempty"`
	PowerWattsPeak          *float64               `json:"power_watts_peak,omitempty" validate:"omitempty,gte=0"`
	PowerWattsRMS           *float64               `json:"power_watts_rms,omitempty" validate:"omitempty,gte=0"`
	PowerWattsContinuous    *float64               `json:"power_watts_continuous,omitempty" validate:"omitempty,gte=0"`
	PowerWattsProgram       *float64               `json:"power_watts_program,omitempty" validate:"omitempty,gte=0"`
	MaxSPLDB                *float64               `json:"max_spl_db,omitempty" validate:"omitempty,gte=0,lte=200"`
	FrequencyRangeMinus10DB string                 `json:"frequencyRange_minus_10_db,omitempty"`
	FrequencyRangeMinus3DB  string                 `json:"frequencyRange_minus_3_db,omitempty"`
	Dispersion              directivity.Dispersion `json:"dispersion"`
	WeightKG                *float64               `json:"weight_kg,omitempty" validate:"omitempty,gte=0"`
	DimensionsMM            *DimensionsMM          `json:"dimensions_mm,omitempty"`
	Notes                   string                 `json:"notes,omitempty"`
}

func (SpeakerSpec) Kind() Kind { return KindSpeaker }

type MixerSpec struct {
	Type       string   `json:"type,omitempty"`
	Channels   int      `json:"channels,omitempty" validate:"gte=0,lte=256"`
	AuxSends   int      `json:"auxSends,omitempty" validate:"gte=0,lte=64"`
	MicPreamps int      `json:"micPreamps,omitempty" validate:"gte=0,lte=256"`
	PreampType string   `json:"preampType,omitempty"`
	Features   []string `json:"features,omitempty"`
	Notes      string   `json:"notes,omitempty"`
}

func (MixerSpec) Kind() Kind { return KindMixer }

type ProcessorSpec struct {
	Type     string   `json:"type,omitempty"`
	Inputs   int      `json:"inputs,omitempty" validate:"gte=0,lte=64"`
	Outputs  int      `json:"outputs,omitempty" validate:"gte=0,lte=64"`
	Features []string `json:"features,omitempty"`
	Notes    string   `json:"notes,omitempty"`
}

func (ProcessorSpec) Kind() Kind { return KindProcessor }

type MicrophoneSpec struct {
	Type                string        `json:"type,omitempty"`
	PolarPattern        string        `json:"polarPattern,omitempty"`
	FrequencyResponse   string        `json:"frequencyResponse,omitempty"`
	ImpedanceOhm        float64       `json:"impedance_ohm,omitempty" validate:"gte=0"`
	SensitivityMVPa     float64       `json:"sensitivity_mvpa,omitempty" validate:"gte=0"`
	SensitivityDBVPa    float64       `json:"sensitivity_dbvpa,omitempty"`
	Connector           string        `json:"connector,omitempty"`
	DimensionsMM        *DimensionsMM `json:"dimensions_mm,omitempty"`
	WeightG             float64       `json:"weight_g,omitempty" validate:"gte=0"`
	PrimaryApplications []string      `json:"primaryApplications,omitempty"`
	CommonUses          []string      `json:"commonUses,omitempty"`
}

func (MicrophoneSpec) Kind() Kind { return KindMicrophone }

type InstrumentSpec struct {
	FundamentalRange string `json:"fundamentalRange,omitempty"`
	Harmonics        string `json:"harmonics,omitempty"`
	AcousticPower    string `json:"acousticPower,omitempty"`
	Notes            string `json:"notes,omitempty"`
}

func (InstrumentSpec) Kind() Kind { return KindInstrument }

func decodeSpec[T Spec](i Item) (T, error) {
	var spec T
	if len(i.Specifications) == 0 {
		return spec, nil
	}
	if err := json.Unmarshal(i.Specifications, &spec); err != nil {
		return spec, fmt.Errorf("%w: %s %s: %v", ErrBadSpec, i.Kind, i.ID, err)
	}
	if err := validation.Struct(&spec); err != nil {
		return spec, fmt.Errorf("%w: %s %s: %v", ErrBadSpec, i.Kind, i.ID, err)
	}
	return spec, nil
}
