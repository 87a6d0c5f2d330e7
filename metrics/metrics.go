// Package metrics defines the observer hooks emitted by the block
// synchronizer and the block cache managers.
//
// Implement Observer to integrate with a monitoring system; see the
// prometheus subpackage for a ready-made collector.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/rastercache/raster"
)

// Observer receives cache and synchronizer events.
//
// Implementations must be safe for concurrent use and must not block:
// several hooks are invoked while internal locks are held.
type Observer interface {
	// OnHit is called when a requested block is already resident.
	OnHit(c raster.Coord)

	// OnMiss is called after a block was loaded into a slot.
	// d covers slot selection, write-back of the victim and the read.
	OnMiss(c raster.Coord, d time.Duration, err error)

	// OnEvict is called when a resident block leaves its slot.
	// flushed reports whether its content was written back.
	OnEvict(c raster.Coord, flushed bool)

	// OnFlush is called after resident blocks were written back.
	OnFlush(blocks int, d time.Duration, err error)

	// OnWait is called after an acquisition had to wait for another holder.
	OnWait(d time.Duration, err error)
}

// Noop discards all events.
type Noop struct{}

func (Noop) OnHit(raster.Coord)                        {}
func (Noop) OnMiss(raster.Coord, time.Duration, error) {}
func (Noop) OnEvict(raster.Coord, bool)                {}
func (Noop) OnFlush(int, time.Duration, error)         {}
func (Noop) OnWait(time.Duration, error)               {}

// Multi forwards every event to each of its observers in order.
type Multi []Observer

func (m Multi) OnHit(c raster.Coord) {
	for _, o := range m {
		o.OnHit(c)
	}
}

func (m Multi) OnMiss(c raster.Coord, d time.Duration, err error) {
	for _, o := range m {
		o.OnMiss(c, d, err)
	}
}

func (m Multi) OnEvict(c raster.Coord, flushed bool) {
	for _, o := range m {
		o.OnEvict(c, flushed)
	}
}

func (m Multi) OnFlush(blocks int, d time.Duration, err error) {
	for _, o := range m {
		o.OnFlush(blocks, d, err)
	}
}

func (m Multi) OnWait(d time.Duration, err error) {
	for _, o := range m {
		o.OnWait(d, err)
	}
}

// Basic counts events in memory.
// Useful for debugging and tests without external dependencies.
type Basic struct {
	Hits        atomic.Int64
	Misses      atomic.Int64
	MissErrors  atomic.Int64
	MissNanos   atomic.Int64
	Evictions   atomic.Int64
	Flushed     atomic.Int64
	FlushCalls  atomic.Int64
	FlushErrors atomic.Int64
	Waits       atomic.Int64
	WaitErrors  atomic.Int64
	WaitNanos   atomic.Int64
}

// OnHit implements Observer.
func (b *Basic) OnHit(raster.Coord) { b.Hits.Add(1) }

// OnMiss implements Observer.
func (b *Basic) OnMiss(_ raster.Coord, d time.Duration, err error) {
	b.Misses.Add(1)
	b.MissNanos.Add(d.Nanoseconds())
	if err != nil {
		b.MissErrors.Add(1)
	}
}

// OnEvict implements Observer.
func (b *Basic) OnEvict(_ raster.Coord, flushed bool) {
	b.Evictions.Add(1)
	if flushed {
		b.Flushed.Add(1)
	}
}

// OnFlush implements Observer.
func (b *Basic) OnFlush(blocks int, _ time.Duration, err error) {
	b.FlushCalls.Add(1)
	b.Flushed.Add(int64(blocks))
	if err != nil {
		b.FlushErrors.Add(1)
	}
}

// OnWait implements Observer.
func (b *Basic) OnWait(d time.Duration, err error) {
	b.Waits.Add(1)
	b.WaitNanos.Add(d.Nanoseconds())
	if err != nil {
		b.WaitErrors.Add(1)
	}
}

// Stats is a point-in-time copy of Basic.
type Stats struct {
	Hits, Misses, MissErrors   int64
	Evictions, Flushed         int64
	FlushCalls, FlushErrors    int64
	Waits, WaitErrors          int64
	MissAvgNanos, WaitAvgNanos int64
}

// HitRatio returns hits / (hits + misses), or 0 before the first request.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Snapshot returns the current counters.
func (b *Basic) Snapshot() Stats {
	s := Stats{
		Hits:        b.Hits.Load(),
		Misses:      b.Misses.Load(),
		MissErrors:  b.MissErrors.Load(),
		Evictions:   b.Evictions.Load(),
		Flushed:     b.Flushed.Load(),
		FlushCalls:  b.FlushCalls.Load(),
		FlushErrors: b.FlushErrors.Load(),
		Waits:       b.Waits.Load(),
		WaitErrors:  b.WaitErrors.Load(),
	}
	if s.Misses > 0 {
		s.MissAvgNanos = b.MissNanos.Load() / s.Misses
	}
	if s.Waits > 0 {
		s.WaitAvgNanos = b.WaitNanos.Load() / s.Waits
	}
	return s
}
