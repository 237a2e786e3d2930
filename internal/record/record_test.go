package record

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		index int
		want  Status
	}{
		{0, StatusGood},
		{50, StatusGood},
		{51, StatusModerate},
		{100, StatusModerate},
		{101, StatusBad},
		{150, StatusBad},
		{151, StatusVeryBad},
		{200, StatusVeryBad},
		{201, StatusExtremelyBad},
		{300, StatusExtremelyBad},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Classify(c.index), "index %d", c.index)
	}
}

func TestClassifyIsTotal(t *testing.T) {
	for v := MinIndex; v <= MaxIndex; v++ {
		s := Classify(v)
		assert.NotEmpty(t, s.Label(), "index %d has no label", v)
	}
}

func TestValidIndex(t *testing.T) {
	assert.True(t, ValidIndex(0))
	assert.True(t, ValidIndex(300))
	assert.False(t, ValidIndex(-1))
	assert.False(t, ValidIndex(301))
}

func TestParseLabel(t *testing.T) {
	s, ok := ParseLabel("Muy  Mala")
	require.True(t, ok)
	assert.Equal(t, StatusVeryBad, s)

	s, ok = ParseLabel("mala")
	require.True(t, ok)
	assert.Equal(t, StatusBad, s)

	_, ok = ParseLabel("pésima")
	assert.False(t, ok)
}

func TestStatusColor(t *testing.T) {
	assert.Equal(t, "#FF7E00", StatusBad.Color())
	assert.Equal(t, "#808080", Status("unknown").Color())
}

func TestOutcomeUnwrap(t *testing.T) {
	v, err := OK(42).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	cause := errors.New("scrape failed")
	d := Degraded(7, cause)
	v, err = d.Unwrap()
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, KindDegraded, d.Kind)
	assert.ErrorIs(t, d.Err, cause)

	_, err = Failed[int](cause).Unwrap()
	assert.ErrorIs(t, err, cause)
}
