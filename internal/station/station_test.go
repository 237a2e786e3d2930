package station

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := Default()
	assert.Equal(t, 13, r.Len())
	assert.Equal(t, "Las Pintas", r.Names()[0])
}

func TestLookupExact(t *testing.T) {
	s, ok := Default().Lookup("las pintas")
	require.True(t, ok)
	assert.Equal(t, "Las Pintas", s.Name)
	assert.InDelta(t, 20.5768, s.Coords.Lat, 1e-9)
}

func TestLookupAccentInsensitive(t *testing.T) {
	s, ok := Default().Lookup("Águilas")
	require.True(t, ok)
	assert.Equal(t, "Aguilas", s.Name)
}

func TestLookupNameInsideFragment(t *testing.T) {
	s, ok := Default().Lookup("Las Pintas y alrededores")
	require.True(t, ok)
	assert.Equal(t, "Las Pintas", s.Name)
}

func TestLookupPrefersLongestName(t *testing.T) {
	r := NewRegistry([]Station{{Name: "Santa"}, {Name: "Santa Fe"}})
	s, ok := r.Lookup("estación Santa Fe.")
	require.True(t, ok)
	assert.Equal(t, "Santa Fe", s.Name)
}

func TestLookupFragmentInsideName(t *testing.T) {
	s, ok := Default().Lookup("Margarita")
	require.True(t, ok)
	assert.Equal(t, "Santa Margarita", s.Name)
}

func TestLookupAmbiguousFragment(t *testing.T) {
	_, ok := Default().Lookup("Santa")
	assert.False(t, ok)
}

func TestLookupUnknown(t *testing.T) {
	_, ok := Default().Lookup("Puerto Vallarta Marina")
	// "Vallarta" is a registry name appearing as a word in the fragment.
	assert.True(t, ok)

	_, ok = Default().Lookup("Zapotlanejo")
	assert.False(t, ok)

	_, ok = Default().Lookup("")
	assert.False(t, ok)
}

func TestFold(t *testing.T) {
	assert.Equal(t, "aguilas norte", Fold("  ÁGUILAS,   Norte "))
}

func TestLookupPrefersEarliestName(t *testing.T) {
	s, ok := Default().Lookup("Centro y Las Pintas")
	require.True(t, ok)
	assert.Equal(t, "Centro", s.Name)
}
