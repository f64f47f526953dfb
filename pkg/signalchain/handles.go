package signalchain

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	defaultMixerChannels = 4
	defaultMixerAuxSends = 2
	mixerMainOutputs     = 2
)

// HandleLayout is how many input and output handles a node exposes.
type HandleLayout struct {
	Inputs  int `json:"inputs"`
	Outputs int `json:"outputs"`
}

// InputHandles returns the input handle ids, input-0 first.
func (l HandleLayout) InputHandles() []string { return handleIDs("input", l.Inputs) }

// OutputHandles returns the output handle ids, output-0 first.
func (l HandleLayout) OutputHandles() []string { return handleIDs("output", l.Outputs) }

func handleIDs(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s-%d", prefix, i)
	}
	return out
}

// Has reports whether handleID exists on the given side.
func (l HandleLayout) Has(kind HandleKind, handleID string) bool {
	prefix, limit := "output-", l.Outputs
	if kind == TargetHandle {
		prefix, limit = "input-", l.Inputs
	}
	rest, ok := strings.CutPrefix(handleID, prefix)
	if !ok {
		return false
	}
	i, err := strconv.Atoi(rest)
	return err == nil && i >= 0 && i < limit
}

// LayoutFor derives the handle layout of n. Mixers and processors size
// themselves from their catalog model; unreadable specs fall back to the
// defaults.
func LayoutFor(n Node) HandleLayout {
	switch n.Type {
	case Instrument:
		return HandleLayout{Inputs: 0, Outputs: 1}
	case Microphone, Speaker:
		return HandleLayout{Inputs: 1, Outputs: 1}
	case Simulation:
		return HandleLayout{Inputs: 1, Outputs: 0}
	case Mixer:
		channels, aux := defaultMixerChannels, defaultMixerAuxSends
		if item := n.Data.CatalogData; item != nil {
			if spec, err := item.MixerSpec(); err == nil {
				if spec.Channels > 0 {
					channels = spec.Channels
				}
				if spec.AuxSends > 0 {
					aux = spec.AuxSends
				}
			}
		}
		return HandleLayout{Inputs: channels, Outputs: mixerMainOutputs + aux}
	case Processor:
		layout := HandleLayout{Inputs: 1, Outputs: 1}
		if item := n.Data.CatalogData; item != nil {
			if spec, err := item.ProcessorSpec(); err == nil {
				if spec.Inputs > 0 {
					layout.Inputs = spec.Inputs
				}
				if spec.Outputs > 0 {
					layout.Outputs = spec.Outputs
				}
			}
		}
		return layout
	default:
		return HandleLayout{}
	}
}
