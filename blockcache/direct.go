package blockcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hupe1980/rastercache/internal/resource"
	"github.com/hupe1980/rastercache/metrics"
	"github.com/hupe1980/rastercache/raster"
)

// Direct is a bounded block cache that reads and writes the raster without a
// synchronizer. It is not safe for concurrent use, including Handle.Release.
//
// Evicted blocks are written back when the raster policy includes Write.
type Direct struct {
	r        raster.Raster
	io       blockIO
	pf       *prefetcher
	rc       *resource.Controller
	logger   *slog.Logger
	observer metrics.Observer

	pool   *pool
	closed bool

	hits, misses, evictions, writeBacks int64
}

// NewDirect creates a Direct cache over r.
//
// With WithPrefetchThreshold a worker goroutine performs all raster I/O and
// reads ahead. It occupies a background slot of the resource controller; if
// none is free the cache runs without read-ahead.
func NewDirect(r raster.Raster, budget Budget, optFns ...Option) (*Direct, error) {
	layout, err := raster.NewLayout(r)
	if err != nil {
		return nil, err
	}

	o := applyOptions(optFns)

	capacity, err := budget.capacity(layout)
	if err != nil {
		return nil, err
	}

	d := &Direct{
		r:        r,
		io:       directIO{r: r, layout: layout},
		rc:       o.rc,
		logger:   o.logger,
		observer: o.observer,
		pool:     newPool(layout, capacity, o.rc),
	}

	if o.prefetchThreshold > 0 {
		if err := d.startPrefetch(o.prefetchThreshold); err != nil {
			d.logger.Warn("read-ahead disabled", "error", err)
		}
	}

	d.logger.Debug("direct block cache created",
		"budget", budget.String(),
		"capacity", d.pool.capacity,
		"block_size", d.pool.slotSize,
		"policy", r.Policy().String(),
		"prefetch", d.pf != nil,
	)

	return d, nil
}

func (d *Direct) startPrefetch(threshold int) error {
	if !d.rc.TryAcquireBackground() {
		return errors.New("no background slot")
	}
	size := int64(d.pool.slotSize)
	if err := d.rc.AcquireMemory(size); err != nil {
		d.rc.ReleaseBackground()
		return fmt.Errorf("%w: read-ahead buffer: %w", ErrOutOfMemory, err)
	}

	d.pf = newPrefetcher(d.r, d.pool.layout, threshold, d.pool.slotSize, d.logger)
	d.io = d.pf
	return nil
}

// Raster returns the cached raster.
func (d *Direct) Raster() raster.Raster { return d.r }

// Capacity returns the maximum number of resident blocks.
func (d *Direct) Capacity() int { return d.pool.capacity }

// Resident returns the number of resident blocks.
func (d *Direct) Resident() int { return d.pool.len() }

// Get returns a pinned handle to block c, loading it on a miss.
func (d *Direct) Get(ctx context.Context, c raster.Coord) (*Handle, error) {
	if err := d.pool.layout.Validate(c); err != nil {
		return nil, err
	}
	if d.closed {
		return nil, ErrClosed
	}

	if s, ok := d.pool.lookup(c); ok {
		d.hits++
		d.observer.OnHit(c)
		return d.handle(s, c), nil
	}

	d.misses++
	start := time.Now()
	s, err := d.load(ctx, c)
	d.observer.OnMiss(c, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return d.handle(s, c), nil
}

func (d *Direct) handle(s *slot, c raster.Coord) *Handle {
	s.pins++
	return &Handle{
		coord: c,
		buf:   d.pool.view(s, c),
		unpin: func() {
			if s.pins > 0 {
				s.pins--
			}
		},
	}
}

func (d *Direct) load(ctx context.Context, c raster.Coord) (*slot, error) {
	i, evict, err := d.pool.next(func(s *slot) bool { return s.pins > 0 })
	if err != nil {
		return nil, err
	}

	s := d.pool.slots[i]
	if evict {
		victim := s.coord
		flushed := d.r.Policy().CanWrite()
		if flushed {
			// The victim stays resident when its write-back fails.
			if err := d.io.write(ctx, victim, s.buf); err != nil {
				d.logger.Warn("write-back on eviction failed", "block", victim.String(), "error", err)
				return nil, fmt.Errorf("blockcache: evict %s: %w", victim, err)
			}
			d.writeBacks++
		}
		d.pool.unbind(i)
		d.evictions++
		d.observer.OnEvict(victim, flushed)
		d.logger.Debug("block evicted", "block", victim.String(), "flushed", flushed)
	}

	buf, err := d.io.read(ctx, c, s.buf)
	s.buf = buf
	if err != nil {
		d.pool.release(i)
		return nil, fmt.Errorf("blockcache: read %s: %w", c, err)
	}

	d.pool.bind(i, c)
	return s, nil
}

// Flush writes every resident block back in (band, row, col) order without
// evicting and returns the number of blocks written. It writes nothing
// unless the raster policy includes Write.
func (d *Direct) Flush(ctx context.Context) (int, error) {
	if d.closed {
		return 0, ErrClosed
	}
	n, err := d.flush(ctx)
	d.logger.Debug("block cache flushed", "blocks", n)
	return n, err
}

func (d *Direct) flush(ctx context.Context) (int, error) {
	if !d.r.Policy().CanWrite() {
		return 0, nil
	}

	start := time.Now()
	var (
		n    int
		errs []error
	)
	for _, s := range d.pool.ordered() {
		if err := d.io.write(ctx, s.coord, s.buf); err != nil {
			errs = append(errs, fmt.Errorf("blockcache: write %s: %w", s.coord, err))
			continue
		}
		n++
	}
	d.writeBacks += int64(n)

	err := errors.Join(errs...)
	d.observer.OnFlush(n, time.Since(start), err)
	return n, err
}

// Close flushes the resident blocks, stops the read-ahead worker and frees
// the buffers. Close is idempotent.
func (d *Direct) Close(ctx context.Context) error {
	if d.closed {
		return nil
	}
	d.closed = true

	n, err := d.flush(ctx)
	if err != nil {
		d.logger.Warn("write-back on close failed", "error", err)
	}

	if d.pf != nil {
		d.pf.close()
		d.rc.ReleaseMemory(int64(d.pool.slotSize))
		d.rc.ReleaseBackground()
	}
	d.pool.reset()

	d.logger.Debug("direct block cache closed", "flushed", n)
	return err
}

// Stats returns a snapshot of the cache counters.
func (d *Direct) Stats() Stats {
	st := Stats{
		Capacity:   d.pool.capacity,
		Resident:   d.pool.len(),
		Hits:       d.hits,
		Misses:     d.misses,
		Evictions:  d.evictions,
		WriteBacks: d.writeBacks,
	}
	if d.pf != nil {
		st.PrefetchHits = d.pf.hits.Load()
	}
	return st
}
