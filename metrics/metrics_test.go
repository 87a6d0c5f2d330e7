package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/rastercache/raster"
)

func TestBasic_Snapshot(t *testing.T) {
	var b Basic

	b.OnHit(raster.Coord{})
	b.OnHit(raster.Coord{})
	b.OnHit(raster.Coord{})
	b.OnMiss(raster.Coord{}, 4*time.Millisecond, nil)
	b.OnMiss(raster.Coord{}, 2*time.Millisecond, errors.New("boom"))
	b.OnEvict(raster.Coord{}, true)
	b.OnEvict(raster.Coord{}, false)
	b.OnFlush(2, time.Millisecond, nil)
	b.OnWait(10*time.Millisecond, nil)

	s := b.Snapshot()
	assert.Equal(t, int64(3), s.Hits)
	assert.Equal(t, int64(2), s.Misses)
	assert.Equal(t, int64(1), s.MissErrors)
	assert.Equal(t, (3 * time.Millisecond).Nanoseconds(), s.MissAvgNanos)
	assert.Equal(t, int64(2), s.Evictions)
	assert.Equal(t, int64(3), s.Flushed)
	assert.Equal(t, int64(1), s.Waits)
	assert.InDelta(t, 0.6, s.HitRatio(), 1e-9)
}

func TestStats_HitRatioEmpty(t *testing.T) {
	assert.Zero(t, Stats{}.HitRatio())
}

func TestMulti(t *testing.T) {
	var a, b Basic
	m := Multi{&a, &b, Noop{}}

	m.OnHit(raster.Coord{})
	m.OnMiss(raster.Coord{Col: 1}, time.Millisecond, nil)
	m.OnEvict(raster.Coord{}, true)
	m.OnFlush(1, time.Millisecond, errors.New("boom"))
	m.OnWait(time.Millisecond, nil)

	for _, s := range []Stats{a.Snapshot(), b.Snapshot()} {
		assert.Equal(t, int64(1), s.Hits)
		assert.Equal(t, int64(1), s.Misses)
		assert.Equal(t, int64(1), s.Evictions)
		assert.Equal(t, int64(1), s.FlushErrors)
		assert.Equal(t, int64(1), s.Waits)
	}
}
