package raster

import (
	"context"
	"fmt"
)

// Policy is an access capability: whether a raster, or a requester, may read,
// write, both, or neither.
type Policy uint8

const (
	// None grants no access.
	None Policy = 0
	// Read grants read access.
	Read Policy = 1 << 0
	// Write grants write access.
	Write Policy = 1 << 1
	// ReadWrite grants both.
	ReadWrite = Read | Write
)

// CanRead reports whether p includes Read.
func (p Policy) CanRead() bool { return p&Read != 0 }

// CanWrite reports whether p includes Write.
func (p Policy) CanWrite() bool { return p&Write != 0 }

// Intersect returns the access both p and other grant.
func (p Policy) Intersect(other Policy) Policy { return p & other & ReadWrite }

func (p Policy) String() string {
	switch p & ReadWrite {
	case None:
		return "none"
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return "readwrite"
	}
}

// Coord identifies one block of one raster.
type Coord struct {
	Band int
	Row  int
	Col  int
}

func (c Coord) String() string {
	return fmt.Sprintf("(band=%d row=%d col=%d)", c.Band, c.Row, c.Col)
}

// Less orders coordinates by band, then row, then column.
func (c Coord) Less(o Coord) bool {
	if c.Band != o.Band {
		return c.Band < o.Band
	}
	if c.Row != o.Row {
		return c.Row < o.Row
	}
	return c.Col < o.Col
}

// Raster is the block-level capability a cache needs from a raster.
//
// ReadBlock and WriteBlock transfer exactly BlockSize(c.Band) bytes. Callers
// validate coordinates before calling; implementations may still reject them.
// Implementations need not be safe for concurrent use: the access
// synchronizer serializes all I/O it performs.
type Raster interface {
	// BandCount returns the number of bands.
	BandCount() int
	// BlockGrid returns the number of blocks along x (columns) and y (rows) for band.
	BlockGrid(band int) (blocksX, blocksY int)
	// BlockSize returns the size of one block of band in bytes.
	BlockSize(band int) int
	// ReadBlock copies the content of block c into dst.
	ReadBlock(ctx context.Context, c Coord, dst []byte) error
	// WriteBlock stores src as the content of block c.
	WriteBlock(ctx context.Context, c Coord, src []byte) error
	// Policy returns the declared access capability.
	Policy() Policy
}
