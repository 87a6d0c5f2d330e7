package testutil

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/hupe1980/rastercache/raster"
)

// Pattern returns size bytes that identify c: the coordinate is encoded in
// the first 12 bytes and the rest repeats a value derived from it.
func Pattern(c raster.Coord, size int) []byte {
	out := make([]byte, size)
	var hdr [12]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(c.Band))
	binary.LittleEndian.PutUint32(hdr[4:], uint32(c.Row))
	binary.LittleEndian.PutUint32(hdr[8:], uint32(c.Col))
	n := copy(out, hdr[:])
	fill := byte(c.Band*31 + c.Row*7 + c.Col + 1)
	for i := n; i < size; i++ {
		out[i] = fill
	}
	return out
}

// NewPatternRaster returns a memory raster whose every block holds Pattern.
func NewPatternRaster(bands, blocksX, blocksY, blockSize int, policy raster.Policy) *raster.Memory {
	m := raster.NewMemory(bands, blocksX, blocksY, blockSize, policy)
	for b := range bands {
		for row := range blocksY {
			for col := range blocksX {
				c := raster.Coord{Band: b, Row: row, Col: col}
				m.Set(c, Pattern(c, blockSize))
			}
		}
	}
	return m
}

// Op identifies a raster operation recorded by FaultyRaster.
type Op struct {
	Write bool
	Coord raster.Coord
}

// FaultyRaster wraps a raster, records every block operation in order and can
// inject errors per coordinate.
type FaultyRaster struct {
	raster.Raster

	mu        sync.Mutex
	ops       []Op
	readErrs  map[raster.Coord]error
	writeErrs map[raster.Coord]error
	onRead    func(raster.Coord)
}

// NewFaultyRaster wraps r.
func NewFaultyRaster(r raster.Raster) *FaultyRaster {
	return &FaultyRaster{
		Raster:    r,
		readErrs:  make(map[raster.Coord]error),
		writeErrs: make(map[raster.Coord]error),
	}
}

// FailRead makes reads of c return err. A nil err clears the fault.
func (f *FaultyRaster) FailRead(c raster.Coord, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.readErrs, c)
		return
	}
	f.readErrs[c] = err
}

// FailWrite makes writes of c return err. A nil err clears the fault.
func (f *FaultyRaster) FailWrite(c raster.Coord, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.writeErrs, c)
		return
	}
	f.writeErrs[c] = err
}

// OnRead installs a hook invoked before every read.
func (f *FaultyRaster) OnRead(fn func(raster.Coord)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onRead = fn
}

// ReadBlock implements raster.Raster.
func (f *FaultyRaster) ReadBlock(ctx context.Context, c raster.Coord, dst []byte) error {
	f.mu.Lock()
	f.ops = append(f.ops, Op{Coord: c})
	err := f.readErrs[c]
	hook := f.onRead
	f.mu.Unlock()

	if hook != nil {
		hook(c)
	}
	if err != nil {
		return err
	}
	return f.Raster.ReadBlock(ctx, c, dst)
}

// WriteBlock implements raster.Raster.
func (f *FaultyRaster) WriteBlock(ctx context.Context, c raster.Coord, src []byte) error {
	f.mu.Lock()
	f.ops = append(f.ops, Op{Write: true, Coord: c})
	err := f.writeErrs[c]
	f.mu.Unlock()

	if err != nil {
		return err
	}
	return f.Raster.WriteBlock(ctx, c, src)
}

// Ops returns the recorded operations in call order.
func (f *FaultyRaster) Ops() []Op {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Op(nil), f.ops...)
}

// Writes returns the coordinates written, in call order.
func (f *FaultyRaster) Writes() []raster.Coord {
	var out []raster.Coord
	for _, op := range f.Ops() {
		if op.Write {
			out = append(out, op.Coord)
		}
	}
	return out
}

// Reads returns the coordinates read, in call order.
func (f *FaultyRaster) Reads() []raster.Coord {
	var out []raster.Coord
	for _, op := range f.Ops() {
		if !op.Write {
			out = append(out, op.Coord)
		}
	}
	return out
}

// Reset clears the recorded operations.
func (f *FaultyRaster) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = nil
}
