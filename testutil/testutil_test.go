package testutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/rastercache/raster"
)

func TestPattern(t *testing.T) {
	a := Pattern(raster.Coord{Band: 1, Row: 2, Col: 3}, 32)
	b := Pattern(raster.Coord{Band: 1, Row: 3, Col: 2}, 32)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, Pattern(raster.Coord{Band: 1, Row: 2, Col: 3}, 32))

	// Shorter than the header still works.
	assert.Len(t, Pattern(raster.Coord{}, 4), 4)
}

func TestNewPatternRaster(t *testing.T) {
	r := NewPatternRaster(2, 3, 2, 16, raster.Read)
	assert.Equal(t, raster.Read, r.Policy())

	c := raster.Coord{Band: 1, Row: 1, Col: 2}
	dst := make([]byte, 16)
	require.NoError(t, r.ReadBlock(t.Context(), c, dst))
	assert.Equal(t, Pattern(c, 16), dst)
}

func TestFaultyRaster(t *testing.T) {
	fr := NewFaultyRaster(NewPatternRaster(1, 2, 2, 8, raster.ReadWrite))
	errBoom := errors.New("boom")
	c := raster.Coord{Row: 1}

	fr.FailRead(c, errBoom)
	assert.ErrorIs(t, fr.ReadBlock(t.Context(), c, make([]byte, 8)), errBoom)

	fr.FailRead(c, nil)
	require.NoError(t, fr.ReadBlock(t.Context(), c, make([]byte, 8)))

	fr.FailWrite(c, errBoom)
	assert.ErrorIs(t, fr.WriteBlock(t.Context(), c, make([]byte, 8)), errBoom)

	assert.Equal(t, []raster.Coord{c, c}, fr.Reads())
	assert.Equal(t, []raster.Coord{c}, fr.Writes())

	fr.Reset()
	assert.Empty(t, fr.Ops())
}

func TestRNG_Coords(t *testing.T) {
	l, err := raster.NewLayout(raster.NewMemory(2, 4, 4, 8, raster.Read))
	require.NoError(t, err)

	rng := NewRNG(4711)
	for range 100 {
		assert.NoError(t, l.Validate(rng.Coord(l)))
		assert.NoError(t, l.Validate(rng.ZipfCoord(l, 1.2)))
	}

	rng.Reset()
	first := rng.Intn(1000)
	rng.Reset()
	assert.Equal(t, first, rng.Intn(1000))
	assert.Equal(t, int64(4711), rng.Seed())
}
