package editor

import (
	"github.com/dd0wney/aspire-acoustics/pkg/catalog"
	"github.com/dd0wney/aspire-acoustics/pkg/signalchain"
)

// ChangeType names one structural delta coming from the editing surface.
type ChangeType string

const (
	ChangePosition   ChangeType = "position"
	ChangeDimensions ChangeType = "dimensions"
	ChangeSelect     ChangeType = "select"
	ChangeRemove     ChangeType = "remove"
	ChangeAdd        ChangeType = "add"
)

// NodeChange is one entry of a node change batch. Only the fields relevant to
// Type are read.
type NodeChange struct {
	Type     ChangeType            `json:"type"`
	ID       string                `json:"id,omitempty"`
	Position *signalchain.Position `json:"position,omitempty"`
	Selected *bool                 `json:"selected,omitempty"`
	Width    *float64              `json:"width,omitempty"`
	Height   *float64              `json:"height,omitempty"`
	Item     *signalchain.Node     `json:"item,omitempty"`
}

// EdgeChange is one entry of an edge change batch. Selected is accepted from
// clients but edges keep no selection state.
type EdgeChange struct {
	Type     ChangeType        `json:"type"`
	ID       string            `json:"id,omitempty"`
	Selected *bool             `json:"selected,omitempty"`
	Item     *signalchain.Edge `json:"item,omitempty"`
}

// ChangeSummary reports what a batch did. Skipped counts entries that named an
// unknown id or were malformed; Rejected lists edge additions the validator
// refused.
type ChangeSummary struct {
	Applied  int                   `json:"applied"`
	Skipped  int                   `json:"skipped"`
	Rejected []signalchain.Verdict `json:"rejected,omitempty"`
}

// NodePatch is shallow-merged into a node's data: every non-nil field
// replaces the stored one wholesale. An empty CatalogID also drops the
// attached catalog data.
type NodePatch struct {
	Label       *string        `json:"label,omitempty"`
	CatalogID   *string        `json:"catalogId,omitempty"`
	CatalogData *catalog.Item  `json:"catalogData,omitempty"`
	Settings    map[string]any `json:"settings,omitempty"`
}

func (p NodePatch) empty() bool {
	return p.Label == nil && p.CatalogID == nil && p.CatalogData == nil && p.Settings == nil
}

func (p NodePatch) apply(d *signalchain.NodeData) {
	if p.Label != nil {
		d.Label = *p.Label
	}
	if p.CatalogID != nil {
		d.CatalogID = *p.CatalogID
		if d.CatalogID == "" {
			d.CatalogData = nil
		}
	}
	if p.CatalogData != nil {
		item := *p.CatalogData
		d.CatalogData = &item
	}
	if p.Settings != nil {
		d.Settings = make(map[string]any, len(p.Settings))
		for k, v := range p.Settings {
			d.Settings[k] = v
		}
	}
}
