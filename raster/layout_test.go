package raster

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gridRaster declares per-band geometry and performs no I/O.
type gridRaster struct {
	grids [][3]int // blocksX, blocksY, blockSize
}

func (g gridRaster) BandCount() int { return len(g.grids) }
func (g gridRaster) BlockGrid(b int) (int, int) {
	return g.grids[b][0], g.grids[b][1]
}
func (g gridRaster) BlockSize(b int) int                           { return g.grids[b][2] }
func (gridRaster) ReadBlock(context.Context, Coord, []byte) error  { return nil }
func (gridRaster) WriteBlock(context.Context, Coord, []byte) error { return nil }
func (gridRaster) Policy() Policy                                  { return Read }

func TestNewLayout(t *testing.T) {
	l, err := NewLayout(gridRaster{grids: [][3]int{{3, 2, 16}, {1, 4, 64}}})
	require.NoError(t, err)

	assert.Equal(t, 2, l.BandCount())
	assert.Equal(t, 10, l.TotalBlocks())
	assert.Equal(t, 64, l.MaxBlockSize())
	assert.Equal(t, 6, l.Band(0).Blocks())
}

func TestNewLayout_MaxBlocks(t *testing.T) {
	l, err := NewLayout(gridRaster{grids: [][3]int{{65535, 65537, 1}}})
	require.NoError(t, err)
	assert.Equal(t, MaxBlocks, int64(l.TotalBlocks()))

	last := Coord{Row: 65536, Col: 65534}
	assert.Equal(t, int64(math.MaxUint32-1), int64(l.Index(last)))
	assert.Equal(t, last, l.Coord(l.Index(last)))
}

func TestNewLayout_Configuration(t *testing.T) {
	tests := []struct {
		name string
		r    Raster
	}{
		{"nil raster", nil},
		{"no bands", gridRaster{}},
		{"empty grid", gridRaster{grids: [][3]int{{0, 2, 16}}}},
		{"zero block size", gridRaster{grids: [][3]int{{2, 2, 0}}}},
		{"too many blocks", gridRaster{grids: [][3]int{{1 << 20, 1 << 13, 1}}}},
		{"too many blocks over bands", gridRaster{grids: [][3]int{{1 << 16, 1 << 15, 1}, {1 << 16, 1 << 15, 1}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLayout(tt.r)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestLayout_Validate(t *testing.T) {
	l, err := NewLayout(gridRaster{grids: [][3]int{{3, 2, 16}, {1, 4, 16}}})
	require.NoError(t, err)

	assert.NoError(t, l.Validate(Coord{Band: 1, Row: 3, Col: 0}))

	for _, c := range []Coord{
		{Band: 2},
		{Band: -1},
		{Band: 0, Row: 2},
		{Band: 1, Col: 1},
		{Band: 0, Col: -1},
	} {
		err := l.Validate(c)
		require.ErrorIs(t, err, ErrInvalidIndex, c.String())

		var ie *IndexError
		require.True(t, errors.As(err, &ie))
		assert.Equal(t, c, ie.Coord)
	}
}

func TestLayout_IndexOrder(t *testing.T) {
	l, err := NewLayout(gridRaster{grids: [][3]int{{3, 2, 16}, {1, 4, 16}, {2, 2, 8}}})
	require.NoError(t, err)

	all := l.All()
	require.Len(t, all, l.TotalBlocks())

	for i, c := range all {
		assert.Equal(t, i, l.Index(c))
		assert.Equal(t, c, l.Coord(i))
		if i > 0 {
			assert.True(t, all[i-1].Less(c))
		}
	}
}

func TestPolicy(t *testing.T) {
	assert.Equal(t, Read, ReadWrite.Intersect(Read))
	assert.Equal(t, None, Read.Intersect(Write))
	assert.Equal(t, ReadWrite, ReadWrite.Intersect(ReadWrite))
	assert.True(t, ReadWrite.CanWrite())
	assert.False(t, Read.CanWrite())
	assert.Equal(t, "readwrite", ReadWrite.String())
	assert.Equal(t, "none", None.String())
}
