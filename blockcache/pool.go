package blockcache

import (
	"container/list"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/rastercache/internal/resource"
	"github.com/hupe1980/rastercache/raster"
)

type slot struct {
	buf   []byte
	coord raster.Coord
	bound bool
	elem  *list.Element // position in the eviction queue while bound
	pins  int           // outstanding handles
}

// pool owns the slot buffers, the coordinate index, the eviction queue and
// the resident set. It does no I/O and no locking.
type pool struct {
	layout   *raster.Layout
	capacity int
	slotSize int

	slots    []*slot
	free     []int
	index    map[raster.Coord]int
	queue    *list.List // bound slot indices, oldest at the front
	resident *roaring.Bitmap

	rc *resource.Controller
}

// newPool lowers capacity to the number of slots the memory limit of rc can
// hold, keeping at least one.
func newPool(layout *raster.Layout, capacity int, rc *resource.Controller) *pool {
	slotSize := layout.MaxBlockSize()
	if limit := rc.MemoryLimit(); limit > 0 {
		capacity = min(capacity, max(1, int(limit/int64(slotSize))))
	}

	return &pool{
		layout:   layout,
		capacity: capacity,
		slotSize: slotSize,
		index:    make(map[raster.Coord]int, capacity),
		queue:    list.New(),
		resident: roaring.New(),
		rc:       rc,
	}
}

func (p *pool) lookup(c raster.Coord) (*slot, bool) {
	i, ok := p.index[c]
	if !ok {
		return nil, false
	}
	return p.slots[i], true
}

// next returns an unbound slot to load into, or a bound victim that the
// caller must write back and unbind first (evict == true).
func (p *pool) next(pinned func(*slot) bool) (i int, evict bool, err error) {
	if n := len(p.free); n > 0 {
		i = p.free[n-1]
		p.free = p.free[:n-1]
		return i, false, nil
	}

	if len(p.slots) < p.capacity {
		if err := p.rc.AcquireMemory(int64(p.slotSize)); err != nil {
			return 0, false, fmt.Errorf("%w: %d bytes: %w", ErrOutOfMemory, p.slotSize, err)
		}
		p.slots = append(p.slots, &slot{buf: make([]byte, p.slotSize)})
		return len(p.slots) - 1, false, nil
	}

	for e := p.queue.Front(); e != nil; e = e.Next() {
		i := e.Value.(int)
		if !pinned(p.slots[i]) {
			return i, true, nil
		}
	}
	return 0, false, fmt.Errorf("%w: %d resident", ErrBusy, p.queue.Len())
}

func (p *pool) bind(i int, c raster.Coord) {
	s := p.slots[i]
	s.coord = c
	s.bound = true
	s.pins = 0
	s.elem = p.queue.PushBack(i)
	p.index[c] = i
	p.resident.Add(uint32(p.layout.Index(c)))
}

func (p *pool) unbind(i int) {
	s := p.slots[i]
	if !s.bound {
		return
	}
	p.queue.Remove(s.elem)
	delete(p.index, s.coord)
	p.resident.Remove(uint32(p.layout.Index(s.coord)))
	s.elem = nil
	s.bound = false
	s.pins = 0
}

// release returns an unbound slot to the free list.
func (p *pool) release(i int) {
	p.free = append(p.free, i)
}

// ordered returns the bound slots in (band, row, col) order.
func (p *pool) ordered() []*slot {
	out := make([]*slot, 0, p.resident.GetCardinality())
	it := p.resident.Iterator()
	for it.HasNext() {
		c := p.layout.Coord(int(it.Next()))
		out = append(out, p.slots[p.index[c]])
	}
	return out
}

func (p *pool) len() int { return len(p.index) }

// reset drops every slot and returns its memory.
func (p *pool) reset() {
	p.rc.ReleaseMemory(int64(len(p.slots) * p.slotSize))
	p.slots = nil
	p.free = nil
	p.index = make(map[raster.Coord]int)
	p.queue.Init()
	p.resident.Clear()
}

// view returns the part of a slot buffer covering block c.
func (p *pool) view(s *slot, c raster.Coord) []byte {
	return s.buf[:p.layout.Band(c.Band).BlockSize]
}
