package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/aspire-acoustics/pkg/acoustics"
)

//go:embed seed.yaml
var seedYAML []byte

// Memory is an in-process catalog.
type Memory struct {
	mu        sync.RWMutex
	items     map[Kind]map[string]Item
	materials map[string]acoustics.Material
}

// NewMemory returns an empty catalog.
func NewMemory() *Memory {
	m := &Memory{
		items:     make(map[Kind]map[string]Item, len(Kinds)),
		materials: make(map[string]acoustics.Material),
	}
	for _, k := range Kinds {
		m.items[k] = make(map[string]Item)
	}
	return m
}

// NewSeeded returns a catalog holding the built-in seed data.
func NewSeeded() (*Memory, error) {
	m := NewMemory()
	if err := m.LoadYAML(seedYAML); err != nil {
		return nil, err
	}
	return m, nil
}

// Put adds or replaces an item.
func (m *Memory) Put(item Item) error {
	bucket, ok := m.items[item.Kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, item.Kind)
	}
	m.mu.Lock()
	bucket[item.ID] = item
	m.mu.Unlock()
	return nil
}

// PutMaterial adds or replaces a material after validating it.
func (m *Memory) PutMaterial(mat acoustics.Material) error {
	if err := mat.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.materials[mat.ID] = mat
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(_ context.Context, kind Kind, id string) (Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bucket, ok := m.items[kind]
	if !ok {
		return Item{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	item, ok := bucket[id]
	if !ok {
		return Item{}, fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
	}
	return item, nil
}

func (m *Memory) List(_ context.Context, kind Kind) ([]Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bucket, ok := m.items[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	out := make([]Item, 0, len(bucket))
	for _, it := range bucket {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) Material(_ context.Context, id string) (acoustics.Material, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mat, ok := m.materials[id]
	if !ok {
		return acoustics.Material{}, fmt.Errorf("%w: %q", acoustics.ErrUnknownMaterial, id)
	}
	return mat, nil
}

func (m *Memory) Materials(_ context.Context) ([]acoustics.Material, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]acoustics.Material, 0, len(m.materials))
	for _, mat := range m.materials {
		out = append(out, mat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type seedItem struct {
	ID             string         `yaml:"id"`
	Brand          string         `yaml:"brand"`
	Model          string         `yaml:"model"`
	Name           string         `yaml:"name"`
	Category       string         `yaml:"category"`
	Specifications map[string]any `yaml:"specifications"`
}

type seedFile struct {
	Materials   []acoustics.Material `yaml:"materials"`
	Speakers    []seedItem           `yaml:"speakers"`
	Microphones []seedItem           `yaml:"microphones"`
	Instruments []seedItem           `yaml:"instruments"`
	Mixers      []seedItem           `yaml:"mixers"`
	Processors  []seedItem           `yaml:"processors"`
}

// LoadYAML merges a seed document into the catalog. Every item's
// specifications must decode into the variant for its kind.
func (m *Memory) LoadYAML(data []byte) error {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("catalog: parse seed: %w", err)
	}
	for _, mat := range f.Materials {
		if err := m.PutMaterial(mat); err != nil {
			return fmt.Errorf("catalog: seed material %s: %w", mat.ID, err)
		}
	}
	groups := []struct {
		kind  Kind
		items []seedItem
	}{
		{KindSpeaker, f.Speakers},
		{KindMicrophone, f.Microphones},
		{KindInstrument, f.Instruments},
		{KindMixer, f.Mixers},
		{KindProcessor, f.Processors},
	}
	for _, g := range groups {
		for _, s := range g.items {
			item := Item{ID: s.ID, Kind: g.kind, Brand: s.Brand, Model: s.Model, Name: s.Name, Category: s.Category}
			if s.Specifications != nil {
				raw, err := json.Marshal(s.Specifications)
				if err != nil {
					return fmt.Errorf("catalog: seed %s %s: %w", g.kind, s.ID, err)
				}
				item.Specifications = raw
			}
			if _, err := item.Spec(); err != nil {
				return err
			}
			if err := m.Put(item); err != nil {
				return err
			}
		}
	}
	return nil
}

// Snapshot returns every item and material, for seeding another catalog.
func (m *Memory) Snapshot() ([]Item, []acoustics.Material) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var items []Item
	for _, k := range Kinds {
		for _, it := range m.items[k] {
			items = append(items, it)
		}
	}
	mats := make([]acoustics.Material, 0, len(m.materials))
	for _, mat := range m.materials {
		mats = append(mats, mat)
	}
	return items, mats
}
