package blockcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/rastercache/access"
	"github.com/hupe1980/rastercache/metrics"
	"github.com/hupe1980/rastercache/raster"
)

// Manager is a bounded block cache over an access.Synchronizer.
//
// Every resident block is held through the Synchronizer, so managers sharing
// a Synchronizer see each other's writes and never hold the same block for
// writing at once. When the synchronizer permits writes the capacity is
// forced to one block and the block is written back and released as soon as
// its last handle is released; an idle manager then holds nothing and cannot
// block another one. Otherwise blocks stay held until eviction or Close.
//
// A miss that waits for another holder blocks other calls on the same
// Manager until it completes.
type Manager struct {
	sync     *access.Synchronizer
	logger   *slog.Logger
	observer metrics.Observer

	mu     sync.Mutex
	pool   *pool
	closed bool

	hits       atomic.Int64
	misses     atomic.Int64
	evictions  atomic.Int64
	writeBacks atomic.Int64
}

// New creates a Manager reading and writing through s.
func New(s *access.Synchronizer, budget Budget, optFns ...Option) (*Manager, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil synchronizer", raster.ErrConfiguration)
	}

	o := applyOptions(optFns)

	capacity, err := budget.capacity(s.Layout())
	if err != nil {
		return nil, err
	}
	if s.Capability().CanWrite() {
		capacity = 1
	}

	m := &Manager{
		sync:     s,
		logger:   o.logger,
		observer: o.observer,
		pool:     newPool(s.Layout(), capacity, o.rc),
	}

	m.logger.Debug("block cache created",
		"budget", budget.String(),
		"capacity", m.pool.capacity,
		"block_size", m.pool.slotSize,
		"policy", s.Policy().String(),
	)

	return m, nil
}

// Synchronizer returns the synchronizer the manager goes through.
func (m *Manager) Synchronizer() *access.Synchronizer { return m.sync }

// Capacity returns the maximum number of resident blocks.
func (m *Manager) Capacity() int { return m.pool.capacity }

// Resident returns the number of resident blocks.
func (m *Manager) Resident() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pool.len()
}

// Get returns a pinned handle to block c, loading it on a miss.
//
// A miss on a full cache evicts the oldest unpinned block, writing it back
// when the synchronizer permits writes. It fails with ErrBusy when every
// resident block is pinned and with ErrOutOfMemory when a new buffer cannot
// be reserved.
func (m *Manager) Get(ctx context.Context, c raster.Coord) (*Handle, error) {
	if err := m.pool.layout.Validate(c); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	if s, ok := m.pool.lookup(c); ok {
		m.hits.Add(1)
		m.observer.OnHit(c)
		return m.handle(s, c)
	}

	m.misses.Add(1)
	start := time.Now()
	s, err := m.load(ctx, c)
	m.observer.OnMiss(c, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return m.handle(s, c)
}

func (m *Manager) handle(s *slot, c raster.Coord) (*Handle, error) {
	if err := m.sync.Pin(c); err != nil {
		return nil, err
	}
	s.pins++
	return &Handle{
		coord: c,
		buf:   m.pool.view(s, c),
		unpin: func() { m.unpin(c) },
	}, nil
}

// unpin drops one pin on c. The last pin of a writable manager writes the
// block back and hands it to the next waiting holder.
func (m *Manager) unpin(c raster.Coord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sync.Unpin(c)
	if m.closed {
		return
	}

	i, ok := m.pool.index[c]
	if !ok {
		return
	}
	s := m.pool.slots[i]
	if s.pins > 0 {
		s.pins--
	}
	if s.pins > 0 || !m.sync.Writable() {
		return
	}

	start := time.Now()
	err := m.sync.Release(context.Background(), c, m.pool.view(s, c))
	m.pool.unbind(i)
	m.pool.release(i)

	n := 0
	if err == nil {
		n = 1
		m.writeBacks.Add(1)
		m.logger.Debug("block released", "block", c.String())
	} else {
		m.logger.Warn("write-back on release failed", "block", c.String(), "error", err)
	}
	m.observer.OnFlush(n, time.Since(start), err)
}

func (m *Manager) load(ctx context.Context, c raster.Coord) (*slot, error) {
	i, evict, err := m.pool.next(func(s *slot) bool { return m.sync.Pinned(s.coord) })
	if err != nil {
		return nil, err
	}

	s := m.pool.slots[i]
	if evict {
		victim := s.coord
		err := m.sync.Release(ctx, victim, m.pool.view(s, victim))
		m.pool.unbind(i)
		m.evictions.Add(1)

		flushed := m.sync.Writable() && err == nil
		if flushed {
			m.writeBacks.Add(1)
		}
		m.observer.OnEvict(victim, flushed)
		m.logger.Debug("block evicted", "block", victim.String(), "flushed", flushed)

		if err != nil {
			m.pool.release(i)
			m.logger.Warn("write-back on eviction failed", "block", victim.String(), "error", err)
			return nil, fmt.Errorf("blockcache: evict %s: %w", victim, err)
		}
	}

	if err := m.sync.Acquire(ctx, c, m.pool.view(s, c)); err != nil {
		m.pool.release(i)
		return nil, err
	}

	m.pool.bind(i, c)
	return s, nil
}

// Flush writes every resident block back in (band, row, col) order without
// evicting and returns the number of blocks written. It writes nothing when
// the synchronizer does not permit writes.
func (m *Manager) Flush(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}

	start := time.Now()
	var (
		n    int
		errs []error
	)
	for _, s := range m.pool.ordered() {
		written, err := m.sync.WriteBack(ctx, s.coord, m.pool.view(s, s.coord))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if written {
			n++
		}
	}
	m.writeBacks.Add(int64(n))

	err := errors.Join(errs...)
	m.observer.OnFlush(n, time.Since(start), err)
	m.logger.Debug("block cache flushed", "blocks", n, "errors", len(errs))
	return n, err
}

// Close releases every resident block in (band, row, col) order, writing it
// back when permitted, and frees the buffers. Handles still outstanding must
// not be used afterwards. Close is idempotent.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	start := time.Now()
	var (
		n    int
		errs []error
	)
	for _, s := range m.pool.ordered() {
		err := m.sync.Release(ctx, s.coord, m.pool.view(s, s.coord))
		if err != nil {
			m.logger.Warn("write-back on close failed", "block", s.coord.String(), "error", err)
			errs = append(errs, err)
			continue
		}
		if m.sync.Writable() {
			n++
		}
	}
	m.writeBacks.Add(int64(n))
	m.pool.reset()

	err := errors.Join(errs...)
	m.observer.OnFlush(n, time.Since(start), err)
	m.logger.Debug("block cache closed", "flushed", n)
	return err
}

// Stats returns a snapshot of the cache counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	resident := m.pool.len()
	m.mu.Unlock()

	return Stats{
		Capacity:   m.pool.capacity,
		Resident:   resident,
		Hits:       m.hits.Load(),
		Misses:     m.misses.Load(),
		Evictions:  m.evictions.Load(),
		WriteBacks: m.writeBacks.Load(),
	}
}
