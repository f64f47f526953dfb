package simulation

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/dd0wney/aspire-acoustics/pkg/acoustics"
)

// BandResult is one band of a report.
type BandResult struct {
	Frequency int        `json:"frequency"`
	RT60      float64    `json:"rt60"`
	Status    BandStatus `json:"status"`
}

// Report is a classified engine result.
type Report struct {
	SimulationType string       `json:"simulationType"`
	Timestamp      string       `json:"timestamp"`
	AverageRT60    float64      `json:"averageRt60"`
	Bands          []BandResult `json:"bands"`
	Category       Category     `json:"category"`
}

// NewReport classifies a successful response. Bands are sorted by frequency;
// keys that are not band spellings are rejected.
func NewReport(resp EngineResponse) (Report, error) {
	if resp.Status != StatusSuccess {
		return Report{}, &EngineError{Message: resp.Failure()}
	}
	if resp.Results == nil {
		return Report{}, &EngineError{Message: "engine returned no results"}
	}

	rep := Report{
		SimulationType: resp.Metadata.EngineUsed,
		Timestamp:      resp.Metadata.Timestamp,
		AverageRT60:    resp.Results.AverageRT60,
		Category:       Classify(resp.Results.AverageRT60),
		Bands:          make([]BandResult, 0, len(resp.Results.RT60ByBand)),
	}
	for key, v := range resp.Results.RT60ByBand {
		b, err := acoustics.ParseBand(key)
		if err != nil {
			return Report{}, fmt.Errorf("%w: %v", ErrEngineFailure, err)
		}
		rep.Bands = append(rep.Bands, BandResult{Frequency: int(b), RT60: v, Status: ClassifyBand(v)})
	}
	sort.Slice(rep.Bands, func(i, j int) bool { return rep.Bands[i].Frequency < rep.Bands[j].Frequency })
	return rep, nil
}

// MaxRT60 is the scale for plotting bands: the largest band, at least 3 s.
func (r Report) MaxRT60() float64 {
	m := 3.0
	for _, b := range r.Bands {
		m = max(m, b.RT60)
	}
	return m
}

// Export is the downloadable form of a report.
type Export struct {
	Timestamp      string             `json:"timestamp"`
	SimulationType string             `json:"simulation_type"`
	AverageRT60    float64            `json:"average_rt60"`
	RT60ByBand     map[string]float64 `json:"rt60_by_band"`
	Classification string             `json:"classification"`
}

func (r Report) Export() Export {
	byBand := make(map[string]float64, len(r.Bands))
	for _, b := range r.Bands {
		byBand[strconv.Itoa(b.Frequency)] = b.RT60
	}
	return Export{
		Timestamp:      r.Timestamp,
		SimulationType: r.SimulationType,
		AverageRT60:    r.AverageRT60,
		RT60ByBand:     byBand,
		Classification: r.Category.Label,
	}
}
