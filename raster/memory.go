package raster

import (
	"context"
	"fmt"
	"sync"
)

// Memory is a raster whose blocks live in process memory.
//
// Every band shares the same grid and block size. Memory is safe for
// concurrent use.
type Memory struct {
	mu      sync.RWMutex
	blocksX int
	blocksY int
	size    int
	policy  Policy
	data    [][]byte // per band, blocksX*blocksY*size bytes
	reads   int
	writes  int
}

// NewMemory creates a zero-filled raster with bands bands of blocksY×blocksX
// blocks of blockSize bytes each.
func NewMemory(bands, blocksX, blocksY, blockSize int, policy Policy) *Memory {
	m := &Memory{
		blocksX: blocksX,
		blocksY: blocksY,
		size:    blockSize,
		policy:  policy,
		data:    make([][]byte, bands),
	}
	for b := range m.data {
		m.data[b] = make([]byte, blocksX*blocksY*blockSize)
	}
	return m
}

// BandCount implements Raster.
func (m *Memory) BandCount() int { return len(m.data) }

// BlockGrid implements Raster.
func (m *Memory) BlockGrid(int) (int, int) { return m.blocksX, m.blocksY }

// BlockSize implements Raster.
func (m *Memory) BlockSize(int) int { return m.size }

// Policy implements Raster.
func (m *Memory) Policy() Policy { return m.policy }

// ReadBlock implements Raster.
func (m *Memory) ReadBlock(_ context.Context, c Coord, dst []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	block, err := m.block(c)
	if err != nil {
		return err
	}
	copy(dst, block)
	m.reads++
	return nil
}

// WriteBlock implements Raster.
func (m *Memory) WriteBlock(_ context.Context, c Coord, src []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.policy.CanWrite() {
		return fmt.Errorf("raster: write to %s on %s raster", c, m.policy)
	}
	block, err := m.block(c)
	if err != nil {
		return err
	}
	copy(block, src)
	m.writes++
	return nil
}

// Block returns a copy of block c, bypassing I/O accounting.
func (m *Memory) Block(c Coord) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	block, err := m.block(c)
	if err != nil {
		return nil
	}
	return append([]byte(nil), block...)
}

// Set replaces the content of block c, bypassing policy checks and I/O
// accounting.
func (m *Memory) Set(c Coord, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	block, err := m.block(c)
	if err != nil {
		return
	}
	copy(block, data)
}

// Counts returns how many ReadBlock and WriteBlock calls succeeded.
func (m *Memory) Counts() (reads, writes int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reads, m.writes
}

func (m *Memory) block(c Coord) ([]byte, error) {
	if c.Band < 0 || c.Band >= len(m.data) || c.Row < 0 || c.Row >= m.blocksY || c.Col < 0 || c.Col >= m.blocksX {
		return nil, &IndexError{Coord: c, Reason: "outside memory raster"}
	}
	off := (c.Row*m.blocksX + c.Col) * m.size
	return m.data[c.Band][off : off+m.size], nil
}
