package raster

import (
	"math"
	"sort"
)

// MaxBlocks is the largest number of blocks a raster may have over all its
// bands; linear block indices fit in a uint32.
const MaxBlocks int64 = math.MaxUint32

// BandGrid is the block geometry of one band.
type BandGrid struct {
	BlocksX   int
	BlocksY   int
	BlockSize int

	// offset is the linear index of the band's block (0, 0).
	offset int
}

// Blocks returns the number of blocks in the band.
func (g BandGrid) Blocks() int { return g.BlocksX * g.BlocksY }

// Layout is an immutable snapshot of a raster's block geometry.
//
// Linear indices are dense in [0, TotalBlocks) and increase in
// (band, row, col) order.
type Layout struct {
	bands        []BandGrid
	totalBlocks  int
	maxBlockSize int
}

// NewLayout captures the block geometry of r.
//
// It returns ErrConfiguration if r is nil, has no bands, any band has an
// empty grid or a non-positive block size, or the raster has more than
// MaxBlocks blocks.
func NewLayout(r Raster) (*Layout, error) {
	if r == nil {
		return nil, configErrorf("raster is nil")
	}

	n := r.BandCount()
	if n <= 0 {
		return nil, configErrorf("raster has %d bands", n)
	}

	l := &Layout{bands: make([]BandGrid, n)}
	for b := range n {
		bx, by := r.BlockGrid(b)
		if bx <= 0 || by <= 0 {
			return nil, configErrorf("band %d has an empty block grid (%dx%d)", b, bx, by)
		}
		size := r.BlockSize(b)
		if size <= 0 {
			return nil, configErrorf("band %d has block size %d", b, size)
		}

		if int64(bx) > (MaxBlocks-int64(l.totalBlocks))/int64(by) {
			return nil, configErrorf("band %d (%dx%d) exceeds %d blocks in total", b, bx, by, MaxBlocks)
		}

		l.bands[b] = BandGrid{BlocksX: bx, BlocksY: by, BlockSize: size, offset: l.totalBlocks}
		l.totalBlocks += bx * by
		l.maxBlockSize = max(l.maxBlockSize, size)
	}

	return l, nil
}

// BandCount returns the number of bands.
func (l *Layout) BandCount() int { return len(l.bands) }

// Band returns the grid of band b. b must be valid.
func (l *Layout) Band(b int) BandGrid { return l.bands[b] }

// TotalBlocks returns the number of blocks across all bands.
func (l *Layout) TotalBlocks() int { return l.totalBlocks }

// MaxBlockSize returns the largest block size across all bands.
func (l *Layout) MaxBlockSize() int { return l.maxBlockSize }

// Validate checks that c lies inside the declared block grid.
func (l *Layout) Validate(c Coord) error {
	if c.Band < 0 || c.Band >= len(l.bands) {
		return &IndexError{Coord: c, Reason: "band out of range"}
	}
	g := l.bands[c.Band]
	if c.Row < 0 || c.Row >= g.BlocksY {
		return &IndexError{Coord: c, Reason: "row out of range"}
	}
	if c.Col < 0 || c.Col >= g.BlocksX {
		return &IndexError{Coord: c, Reason: "column out of range"}
	}
	return nil
}

// Index returns the linear index of c. c must be valid.
func (l *Layout) Index(c Coord) int {
	g := l.bands[c.Band]
	return g.offset + c.Row*g.BlocksX + c.Col
}

// Coord is the inverse of Index. idx must be in [0, TotalBlocks).
func (l *Layout) Coord(idx int) Coord {
	b := sort.Search(len(l.bands), func(i int) bool {
		return l.bands[i].offset > idx
	}) - 1
	g := l.bands[b]
	local := idx - g.offset
	return Coord{Band: b, Row: local / g.BlocksX, Col: local % g.BlocksX}
}

// All returns every coordinate of the raster in (band, row, col) order.
func (l *Layout) All() []Coord {
	out := make([]Coord, 0, l.totalBlocks)
	for b, g := range l.bands {
		for row := range g.BlocksY {
			for col := range g.BlocksX {
				out = append(out, Coord{Band: b, Row: row, Col: col})
			}
		}
	}
	return out
}
