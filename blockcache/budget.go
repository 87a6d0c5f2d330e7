package blockcache

import (
	"fmt"
	"math"

	"github.com/hupe1980/rastercache/internal/sysmem"
	"github.com/hupe1980/rastercache/raster"
)

// probeMemory is replaced in tests.
var probeMemory = sysmem.Probe

// Budget bounds how many blocks a cache keeps resident.
type Budget struct {
	blocks    int
	percent   float64
	byPercent bool
}

// Blocks limits the cache to n resident blocks.
func Blocks(n int) Budget { return Budget{blocks: n} }

// MemoryPercent sizes the cache to p percent (0 < p <= 100) of the memory
// available to the process.
func MemoryPercent(p float64) Budget { return Budget{percent: p, byPercent: true} }

func (b Budget) String() string {
	if b.byPercent {
		return fmt.Sprintf("%g%% of memory", b.percent)
	}
	return fmt.Sprintf("%d blocks", b.blocks)
}

// capacity resolves b against layout, clamped to [1, TotalBlocks].
func (b Budget) capacity(layout *raster.Layout) (int, error) {
	n := b.blocks
	if b.byPercent {
		if b.percent <= 0 || b.percent > 100 || math.IsNaN(b.percent) {
			return 0, fmt.Errorf("%w: memory percent %g outside (0, 100]", raster.ErrConfiguration, b.percent)
		}

		stats, err := probeMemory()
		if err != nil {
			return 0, fmt.Errorf("%w: probe memory: %w", raster.ErrConfiguration, err)
		}

		free := b.percent / 100 * stats.Available()
		n = int(math.Ceil(free / float64(layout.MaxBlockSize())))
	}

	return max(1, min(n, layout.TotalBlocks())), nil
}
