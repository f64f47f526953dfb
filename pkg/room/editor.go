package room

import (
	"fmt"
	"sync"

	"github.com/dd0wney/aspire-acoustics/pkg/acoustics"
	"github.com/dd0wney/aspire-acoustics/pkg/logging"
	"github.com/dd0wney/aspire-acoustics/pkg/pubsub"
)

// Event kinds published on the scene topic.
const (
	EventDimensions     = "room.dimensions"
	EventSpeakerAdded   = "room.speaker.added"
	EventSpeakerUpdated = "room.speaker.updated"
	EventSpeakerRemoved = "room.speaker.removed"
	EventSpeakersSet    = "room.speakers.set"
	EventFaceMaterial   = "room.face.material"
	EventReset          = "room.reset"
)

// State is a copy of the editor contents.
type State struct {
	Dimensions      acoustics.Dimensions    `json:"dimensions"`
	Speakers        []Speaker               `json:"speakers"`
	FaceMaterials   acoustics.FaceMaterials `json:"faceMaterials"`
	SelectedSpeaker string                  `json:"selectedSpeaker,omitempty"`
	SelectedFace    acoustics.Face          `json:"selectedFace,omitempty"`
}

// InitialState is an empty default-sized room with nothing assigned.
func InitialState() State {
	return State{
		Dimensions:    acoustics.DefaultDimensions(),
		Speakers:      []Speaker{},
		FaceMaterials: acoustics.NewFaceMaterials(),
	}
}

// SpeakerPatch lists the fields UpdateSpeaker overwrites; nil fields are kept.
type SpeakerPatch struct {
	Name     *string `json:"name,omitempty"`
	Position *Vec3   `json:"position,omitempty"`
	Rotation *Vec3   `json:"rotation,omitempty"`
	Scale    *Vec3   `json:"scale,omitempty"`
}

// Editor is the mutable room of one scene. It is safe for concurrent use.
type Editor struct {
	mu      sync.RWMutex
	state   State
	topic   string
	logger  logging.Logger
	publish pubsub.Publisher
}

// NewEditor returns an editor in the initial state. Events go to the scene's
// topic on pub; both logger and pub may be nil.
func NewEditor(sceneID string, logger logging.Logger, pub pubsub.Publisher) *Editor {
	return &Editor{
		state:   InitialState(),
		topic:   pubsub.SceneTopic(sceneID),
		logger:  logging.OrNop(logger).With(logging.Component("room_editor"), logging.SceneID(sceneID)),
		publish: pubsub.OrDiscard(pub),
	}
}

// Load replaces dimensions, speakers and face materials, clearing the
// selection. Zero dimensions keep the default room.
func (e *Editor) Load(dims acoustics.Dimensions, speakers []Speaker, faces *acoustics.FaceMaterials) error {
	st := InitialState()
	if dims != (acoustics.Dimensions{}) {
		if err := dims.Validate(); err != nil {
			return err
		}
		st.Dimensions = dims
	}
	var err error
	if st.Speakers, err = normalizeSpeakers(speakers); err != nil {
		return err
	}
	if faces != nil {
		st.FaceMaterials = faces.Clone()
	}

	e.mu.Lock()
	e.state = st
	e.mu.Unlock()

	e.logger.Debug("room loaded", logging.Count(len(st.Speakers)))
	return nil
}

// SetDimensions replaces the room size. Non-positive values are rejected.
func (e *Editor) SetDimensions(d acoustics.Dimensions) error {
	if err := d.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	e.state.Dimensions = d
	e.mu.Unlock()
	e.publish.Publish(e.topic, EventDimensions, d)
	return nil
}

// UpdateDimension changes one of "width", "height" or "depth".
func (e *Editor) UpdateDimension(key string, value float64) error {
	e.mu.RLock()
	d := e.state.Dimensions
	e.mu.RUnlock()

	switch key {
	case "width":
		d.Width = value
	case "height":
		d.Height = value
	case "depth":
		d.Depth = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDimension, key)
	}
	return e.SetDimensions(d)
}

// AddSpeaker appends s with defaults applied.
func (e *Editor) AddSpeaker(s Speaker) error {
	if s.ID == "" {
		return ErrMissingSpeakerID
	}
	s = s.WithDefaults()

	e.mu.Lock()
	if e.indexOf(s.ID) >= 0 {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateSpeaker, s.ID)
	}
	e.state.Speakers = append(e.state.Speakers, s)
	e.mu.Unlock()

	e.publish.Publish(e.topic, EventSpeakerAdded, s.Clone())
	return nil
}

// UpdateSpeaker merges patch into the speaker with the given id.
func (e *Editor) UpdateSpeaker(id string, patch SpeakerPatch) (Speaker, error) {
	e.mu.Lock()
	i := e.indexOf(id)
	if i < 0 {
		e.mu.Unlock()
		return Speaker{}, fmt.Errorf("%w: %s", ErrSpeakerNotFound, id)
	}
	s := &e.state.Speakers[i]
	if patch.Name != nil {
		s.Name = *patch.Name
	}
	if patch.Position != nil {
		s.Position = *patch.Position
	}
	if patch.Rotation != nil {
		s.Rotation = *patch.Rotation
	}
	if patch.Scale != nil {
		v := *patch.Scale
		s.Scale = &v
	}
	out := s.Clone()
	e.mu.Unlock()

	e.publish.Publish(e.topic, EventSpeakerUpdated, out)
	return out, nil
}

// RemoveSpeaker deletes a speaker and drops it from the selection.
func (e *Editor) RemoveSpeaker(id string) error {
	e.mu.Lock()
	i := e.indexOf(id)
	if i < 0 {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSpeakerNotFound, id)
	}
	e.state.Speakers = append(e.state.Speakers[:i:i], e.state.Speakers[i+1:]...)
	if e.state.SelectedSpeaker == id {
		e.state.SelectedSpeaker = ""
	}
	e.mu.Unlock()

	e.publish.Publish(e.topic, EventSpeakerRemoved, id)
	return nil
}

// SetSpeakers replaces the speaker list.
func (e *Editor) SetSpeakers(speakers []Speaker) error {
	list, err := normalizeSpeakers(speakers)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.state.Speakers = list
	if e.state.SelectedSpeaker != "" && e.indexOf(e.state.SelectedSpeaker) < 0 {
		e.state.SelectedSpeaker = ""
	}
	e.mu.Unlock()

	e.publish.Publish(e.topic, EventSpeakersSet, len(list))
	return nil
}

// Speakers returns a copy of the placed speakers.
func (e *Editor) Speakers() []Speaker {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Speaker, len(e.state.Speakers))
	for i, s := range e.state.Speakers {
		out[i] = s.Clone()
	}
	return out
}

// AssignMaterial resolves mat onto face. A material without coefficients is
// logged and rejected; the face keeps its previous entry.
func (e *Editor) AssignMaterial(face acoustics.Face, mat *acoustics.Material) (acoustics.FaceMaterial, error) {
	e.mu.Lock()
	fm, err := e.state.FaceMaterials.Assign(face, mat)
	e.mu.Unlock()

	if err != nil {
		fields := []logging.Field{logging.Face(string(face)), logging.Error(err)}
		if mat != nil {
			fields = append(fields, logging.MaterialID(mat.ID))
		}
		e.logger.Warn("material assignment rejected", fields...)
		return acoustics.FaceMaterial{}, err
	}

	e.publish.Publish(e.topic, EventFaceMaterial, map[string]any{"face": face, "material": fm})
	return fm, nil
}

// ResetFace puts face back to the default material.
func (e *Editor) ResetFace(face acoustics.Face) (acoustics.FaceMaterial, error) {
	if !face.Valid() {
		return acoustics.FaceMaterial{}, fmt.Errorf("%w: %q", acoustics.ErrUnknownFace, face)
	}
	e.mu.Lock()
	e.state.FaceMaterials.Reset(face)
	fm := e.state.FaceMaterials.Get(face)
	e.mu.Unlock()

	e.publish.Publish(e.topic, EventFaceMaterial, map[string]any{"face": face, "material": fm})
	return fm, nil
}

// FaceMaterials returns a copy of the face map.
func (e *Editor) FaceMaterials() acoustics.FaceMaterials {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.FaceMaterials.Clone()
}

// Dimensions returns the room size.
func (e *Editor) Dimensions() acoustics.Dimensions {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Dimensions
}

// SelectSpeaker selects a speaker by id; "" clears the selection.
func (e *Editor) SelectSpeaker(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id != "" && e.indexOf(id) < 0 {
		return fmt.Errorf("%w: %s", ErrSpeakerNotFound, id)
	}
	e.state.SelectedSpeaker = id
	return nil
}

// SelectedSpeaker returns the selected speaker, if any.
func (e *Editor) SelectedSpeaker() (Speaker, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if i := e.indexOf(e.state.SelectedSpeaker); i >= 0 {
		return e.state.Speakers[i].Clone(), true
	}
	return Speaker{}, false
}

// SelectFace selects a face; "" clears the selection.
func (e *Editor) SelectFace(face acoustics.Face) error {
	if face != "" && !face.Valid() {
		return fmt.Errorf("%w: %q", acoustics.ErrUnknownFace, face)
	}
	e.mu.Lock()
	e.state.SelectedFace = face
	e.mu.Unlock()
	return nil
}

// Reset returns the editor to InitialState.
func (e *Editor) Reset() {
	e.mu.Lock()
	e.state = InitialState()
	e.mu.Unlock()
	e.publish.Publish(e.topic, EventReset, nil)
}

// Snapshot returns a deep copy of the state.
func (e *Editor) Snapshot() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	st := e.state
	st.Speakers = make([]Speaker, len(e.state.Speakers))
	for i, s := range e.state.Speakers {
		st.Speakers[i] = s.Clone()
	}
	st.FaceMaterials = e.state.FaceMaterials.Clone()
	return st
}

// indexOf must be called with mu held.
func (e *Editor) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range e.state.Speakers {
		if e.state.Speakers[i].ID == id {
			return i
		}
	}
	return -1
}

func normalizeSpeakers(in []Speaker) ([]Speaker, error) {
	out := make([]Speaker, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if s.ID == "" {
			return nil, ErrMissingSpeakerID
		}
		if _, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSpeaker, s.ID)
		}
		seen[s.ID] = struct{}{}
		out = append(out, s.WithDefaults().Clone())
	}
	return out, nil
}
