package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/aspire-acoustics/pkg/acoustics"
	"github.com/dd0wney/aspire-acoustics/pkg/directivity"
)

func TestSeededCatalog(t *testing.T) {
	ctx := context.Background()
	cat, err := NewSeeded()
	require.NoError(t, err)

	sp, err := cat.Get(ctx, KindSpeaker, "jbl-prx908")
	require.NoError(t, err)
	assert.Equal(t, "JBL PRX908 (8-Inch)", sp.DisplayName())

	spec, err := sp.SpeakerSpec()
	require.NoError(t, err)
	require.NotNil(t, spec.DimensionsMM)
	assert.Equal(t, 479.0, spec.DimensionsMM.Height)
	h, _ := spec.Dispersion.Horizontal.Numeric()
	assert.Equal(t, 105.0, h)

	sub, err := cat.Get(ctx, KindSpeaker, "jbl-prx418s")
	require.NoError(t, err)
	subSpec, err := sub.SpeakerSpec()
	require.NoError(t, err)
	assert.True(t, directivity.IsOmnidirectional(subSpec.Dispersion))

	mixer, err := cat.Get(ctx, KindMixer, "midas-mr18")
	require.NoError(t, err)
	ms, err := mixer.MixerSpec()
	require.NoError(t, err)
	assert.Equal(t, 18, ms.Channels)

	mat, err := cat.Material(ctx, "drapes-cotton-14oz-7_8-area")
	require.NoError(t, err)
	assert.InDelta(t, (0.12+0.15+0.27+0.37)/4, mat.NRC(), 1e-12)

	mats, err := cat.Materials(ctx)
	require.NoError(t, err)
	assert.Len(t, mats, 22)

	for _, k := range Kinds {
		items, err := cat.List(ctx, k)
		require.NoError(t, err)
		assert.NotEmpty(t, items, k)
	}
}

func TestCatalogNotFound(t *testing.T) {
	ctx := context.Background()
	cat := NewMemory()
	_, err := cat.Get(ctx, KindSpeaker, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = cat.Material(ctx, "nope")
	assert.ErrorIs(t, err, acoustics.ErrUnknownMaterial)

	_, err = cat.List(ctx, Kind("amp"))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestSpecVariants(t *testing.T) {
	item := Item{ID: "p1", Kind: KindProcessor, Specifications: json.RawMessage(`{"inputs":2,"outputs":6}`)}
	spec, err := item.Spec()
	require.NoError(t, err)
	ps, ok := spec.(ProcessorSpec)
	require.True(t, ok)
	assert.Equal(t, 6, ps.Outputs)

	bad := Item{ID: "m1", Kind: KindMixer, Specifications: json.RawMessage(`{"channels":-3}`)}
	_, err = bad.Spec()
	assert.ErrorIs(t, err, ErrBadSpec)

	garbled := Item{ID: "s1", Kind: KindSpeaker, Specifications: json.RawMessage(`{"dispersion":{"horizontal":[1]}}`)}
	_, err = garbled.Spec()
	assert.ErrorIs(t, err, ErrBadSpec)

	empty := Item{ID: "i1", Kind: KindInstrument}
	spec, err = empty.Spec()
	require.NoError(t, err)
	assert.Equal(t, KindInstrument, spec.Kind())
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Speakers")
	require.NoError(t, err)
	assert.Equal(t, KindSpeaker, k)
	_, err = ParseKind("amplifier")
	assert.Error(t, err)
}

func TestLoadYAMLRejectsBadMaterial(t *testing.T) {
	cat := NewMemory()
	err := cat.LoadYAML([]byte("materials:\n  - id: x\n    name: X\n    absorption_coefficients: {\"500\": 2.0}\n"))
	assert.Error(t, err)
}
