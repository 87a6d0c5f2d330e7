package resource

import (
	"context"

	"github.com/hupe1980/rastercache/raster"
)

// limitedRaster charges every block transfer against a Controller's I/O limit.
type limitedRaster struct {
	raster.Raster
	rc *Controller
}

// LimitRaster wraps r so that block reads and writes wait for I/O tokens from
// rc. It returns r unchanged when rc has no I/O limit.
func LimitRaster(r raster.Raster, rc *Controller) raster.Raster {
	if rc == nil || rc.ioLimiter == nil {
		return r
	}
	return &limitedRaster{Raster: r, rc: rc}
}

func (l *limitedRaster) ReadBlock(ctx context.Context, c raster.Coord, dst []byte) error {
	if err := l.rc.AcquireIO(ctx, len(dst)); err != nil {
		return err
	}
	return l.Raster.ReadBlock(ctx, c, dst)
}

func (l *limitedRaster) WriteBlock(ctx context.Context, c raster.Coord, src []byte) error {
	if err := l.rc.AcquireIO(ctx, len(src)); err != nil {
		return err
	}
	return l.Raster.WriteBlock(ctx, c, src)
}
