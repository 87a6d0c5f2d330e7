package rastercache

import (
	"context"
	"fmt"

	"github.com/hupe1980/rastercache/access"
	"github.com/hupe1980/rastercache/blockcache"
	"github.com/hupe1980/rastercache/internal/resource"
	"github.com/hupe1980/rastercache/raster"
)

// Cache is a synchronized, bounded block cache over a raster. It is itself a
// raster.Raster, so code written against a raster can use it unchanged.
//
// Caches created with Attach share one synchronizer: they may be used from
// different goroutines and never hold the same block for writing at once.
// Under a Write policy a block is written back and handed to the next waiting
// cache as soon as its last handle is released.
type Cache struct {
	sync   *access.Synchronizer
	mgr    *blockcache.Manager
	rc     *resource.Controller
	logger *Logger
}

var _ raster.Raster = (*Cache)(nil)

// New creates a cache over r.
func New(r raster.Raster, optFns ...Option) (*Cache, error) {
	o := applyOptions(optFns)
	if r == nil {
		return nil, fmt.Errorf("%w: raster is nil", ErrConfiguration)
	}

	rc := resource.NewController(o.resources)
	s, err := access.New(resource.LimitRaster(r, rc), o.policy,
		access.WithLogger(o.logger.Logger),
		access.WithObserver(o.observer),
		access.WithWaitTimeout(o.waitTimeout),
	)
	if err != nil {
		return nil, err
	}

	return attach(s, rc, o)
}

// Attach creates another cache over the same synchronizer as c. The new
// cache has its own budget and resident blocks; policy, wait timeout and
// I/O limit are inherited.
func (c *Cache) Attach(optFns ...Option) (*Cache, error) {
	return attach(c.sync, c.rc, applyOptions(optFns))
}

func attach(s *access.Synchronizer, rc *resource.Controller, o options) (*Cache, error) {
	mgr, err := blockcache.New(s, o.budget,
		blockcache.WithLogger(o.logger.Logger),
		blockcache.WithObserver(o.observer),
		blockcache.WithResourceController(rc),
	)
	if err != nil {
		return nil, err
	}

	o.logger.Info("cache opened",
		"policy", s.Policy().String(),
		"capacity", mgr.Capacity(),
		"blocks", s.Layout().TotalBlocks(),
	)

	return &Cache{sync: s, mgr: mgr, rc: rc, logger: o.logger}, nil
}

// Get returns a pinned handle to block c. Release the handle when done;
// changes to its bytes are written back when the policy includes Write, at
// the latest when the last handle to the block is released.
func (c *Cache) Get(ctx context.Context, coord raster.Coord) (*blockcache.Handle, error) {
	h, err := c.mgr.Get(ctx, coord)
	if err != nil {
		c.logger.WithBlock(coord).DebugContext(ctx, "block request failed", "error", err)
	}
	return h, err
}

// BandCount implements raster.Raster.
func (c *Cache) BandCount() int { return c.sync.Layout().BandCount() }

// BlockGrid implements raster.Raster.
func (c *Cache) BlockGrid(band int) (int, int) {
	g := c.sync.Layout().Band(band)
	return g.BlocksX, g.BlocksY
}

// BlockSize implements raster.Raster.
func (c *Cache) BlockSize(band int) int { return c.sync.Layout().Band(band).BlockSize }

// Policy returns the negotiated policy.
func (c *Cache) Policy() raster.Policy { return c.sync.Policy() }

// ReadBlock copies block coord into dst through the cache.
func (c *Cache) ReadBlock(ctx context.Context, coord raster.Coord, dst []byte) error {
	h, err := c.mgr.Get(ctx, coord)
	if err != nil {
		return err
	}
	defer h.Release()

	if len(dst) < len(h.Bytes()) {
		return fmt.Errorf("%w: buffer of %d bytes for block %s of %d bytes",
			ErrConfiguration, len(dst), coord, len(h.Bytes()))
	}
	copy(dst, h.Bytes())
	return nil
}

// WriteBlock replaces block coord in the cache and writes it through to the
// raster once no other handle of this cache pins the block.
func (c *Cache) WriteBlock(ctx context.Context, coord raster.Coord, src []byte) error {
	if !c.sync.Writable() {
		return ErrReadOnly
	}

	h, err := c.mgr.Get(ctx, coord)
	if err != nil {
		return err
	}
	defer h.Release()

	if len(src) < len(h.Bytes()) {
		return fmt.Errorf("%w: buffer of %d bytes for block %s of %d bytes",
			ErrConfiguration, len(src), coord, len(h.Bytes()))
	}
	copy(h.Bytes(), src)
	return nil
}

// Flush writes resident blocks back without evicting them.
func (c *Cache) Flush(ctx context.Context) error {
	n, err := c.mgr.Flush(ctx)
	c.logger.LogFlush(ctx, n, err)
	return err
}

// Close writes back and releases every resident block. Other caches attached
// to the same synchronizer are unaffected.
func (c *Cache) Close(ctx context.Context) error {
	err := c.mgr.Close(ctx)
	st := c.mgr.Stats()
	c.logger.LogClose(ctx, st.Hits, st.Misses, err)
	return err
}

// Stats returns the cache counters.
func (c *Cache) Stats() blockcache.Stats { return c.mgr.Stats() }

// Synchronizer returns the synchronizer shared by attached caches.
func (c *Cache) Synchronizer() *access.Synchronizer { return c.sync }

// MemoryUsage returns the bytes of block buffers reserved by this cache and
// the caches attached to it.
func (c *Cache) MemoryUsage() int64 { return c.rc.MemoryUsage() }
