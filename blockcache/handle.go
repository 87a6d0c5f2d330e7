package blockcache

import (
	"sync"

	"github.com/hupe1980/rastercache/raster"
)

// Handle gives access to a resident block. The block stays resident until
// Release is called.
type Handle struct {
	coord raster.Coord
	buf   []byte
	unpin func()
	once  sync.Once
}

// Coord returns the block coordinate.
func (h *Handle) Coord() raster.Coord { return h.coord }

// Bytes returns the block buffer. Modifications are written back to the
// raster when the block is flushed, evicted or, for a synchronized cache
// that may write, when its last handle is released.
// The slice must not be used after Release.
func (h *Handle) Bytes() []byte { return h.buf }

// Release unpins the block. Calling it more than once has no effect.
func (h *Handle) Release() {
	h.once.Do(h.unpin)
}
