package access

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/hupe1980/rastercache/metrics"
	"github.com/hupe1980/rastercache/raster"
)

// ErrTimeout is returned when a wait for exclusive block access expires.
var ErrTimeout = errors.New("block acquisition timed out")

// Synchronizer serializes block access to one raster.
//
// A Synchronizer lives as long as concurrent access to its raster is needed.
// The raster must outlive it.
type Synchronizer struct {
	r          raster.Raster
	layout     *raster.Layout
	capability raster.Policy
	policy     raster.Policy

	mu       sync.Mutex
	cond     *sync.Cond
	counters [][]int // per band, row-major
	pins     [][]int

	waitTimeout time.Duration
	logger      *slog.Logger
	observer    metrics.Observer
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Synchronizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithObserver sets the metrics observer notified about waits.
func WithObserver(o metrics.Observer) Option {
	return func(s *Synchronizer) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithWaitTimeout bounds how long Acquire waits for exclusive access.
// Zero (the default) waits until the context is done.
func WithWaitTimeout(d time.Duration) Option {
	return func(s *Synchronizer) {
		s.waitTimeout = d
	}
}

// Negotiate returns the policy a requester obtains on a raster with the given
// capability. Write survives only if both sides grant it; a requester that
// asked for any access to a readable raster keeps at least Read.
func Negotiate(requested, capability raster.Policy) raster.Policy {
	p := requested.Intersect(capability)
	if !p.CanWrite() && requested != raster.None && capability.CanRead() {
		p |= raster.Read
	}
	return p
}

// New creates a Synchronizer for r.
//
// It returns raster.ErrConfiguration if r is nil or declares an empty block
// grid.
func New(r raster.Raster, requested raster.Policy, optFns ...Option) (*Synchronizer, error) {
	layout, err := raster.NewLayout(r)
	if err != nil {
		return nil, err
	}

	s := &Synchronizer{
		r:          r,
		layout:     layout,
		capability: r.Policy(),
		counters:   make([][]int, layout.BandCount()),
		pins:       make([][]int, layout.BandCount()),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer:   metrics.Noop{},
	}
	s.policy = Negotiate(requested, s.capability)
	s.cond = sync.NewCond(&s.mu)

	for b := range s.counters {
		n := layout.Band(b).Blocks()
		s.counters[b] = make([]int, n)
		s.pins[b] = make([]int, n)
	}

	for _, fn := range optFns {
		fn(s)
	}

	s.logger.Debug("synchronizer created",
		"bands", layout.BandCount(),
		"blocks", layout.TotalBlocks(),
		"requested", requested.String(),
		"capability", s.capability.String(),
		"policy", s.policy.String(),
	)

	return s, nil
}

// Raster returns the synchronized raster.
func (s *Synchronizer) Raster() raster.Raster { return s.r }

// Layout returns the block geometry of the raster.
func (s *Synchronizer) Layout() *raster.Layout { return s.layout }

// Policy returns the negotiated policy.
func (s *Synchronizer) Policy() raster.Policy { return s.policy }

// Capability returns the raster's declared policy.
func (s *Synchronizer) Capability() raster.Policy { return s.capability }

func (s *Synchronizer) slot(c raster.Coord) int {
	return c.Row*s.layout.Band(c.Band).BlocksX + c.Col
}

func (s *Synchronizer) check(c raster.Coord, buf []byte) error {
	if err := s.layout.Validate(c); err != nil {
		return err
	}
	if size := s.layout.Band(c.Band).BlockSize; len(buf) < size {
		return fmt.Errorf("%w: buffer of %d bytes for block %s of %d bytes",
			raster.ErrConfiguration, len(buf), c, size)
	}
	return nil
}

// Acquire registers the caller as a holder of block c and reads the block
// into dst.
//
// Under a Write policy it first waits until c has no holder. The read happens
// while the lock is held. On a failed read the registration is undone.
func (s *Synchronizer) Acquire(ctx context.Context, c raster.Coord, dst []byte) error {
	if err := s.check(c, dst); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.slot(c)
	counters := s.counters[c.Band]

	if s.policy.CanWrite() {
		if err := s.waitIdle(ctx, c); err != nil {
			return err
		}
		counters[i] = 1
	} else {
		counters[i]++
	}

	size := s.layout.Band(c.Band).BlockSize
	if err := s.r.ReadBlock(ctx, c, dst[:size]); err != nil {
		counters[i]--
		s.cond.Broadcast()
		return fmt.Errorf("access: read %s: %w", c, err)
	}

	return nil
}

// waitIdle blocks until c has no holder. s.mu must be held.
func (s *Synchronizer) waitIdle(ctx context.Context, c raster.Coord) error {
	counters := s.counters[c.Band]
	i := s.slot(c)
	if counters[i] == 0 {
		return nil
	}

	if s.waitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.waitTimeout)
		defer cancel()
	}

	start := time.Now()

	// Wake waiters when the context ends so they can observe it.
	if ctx.Done() != nil {
		stop := context.AfterFunc(ctx, func() {
			s.mu.Lock()
			s.cond.Broadcast()
			s.mu.Unlock()
		})
		defer stop()
	}

	for counters[i] != 0 {
		if err := ctx.Err(); err != nil {
			err = fmt.Errorf("%w: %s: %w", ErrTimeout, c, err)
			s.logger.Debug("block wait expired", "coord", c.String(), "waited", time.Since(start))
			s.observer.OnWait(time.Since(start), err)
			return err
		}
		s.cond.Wait()
	}

	s.observer.OnWait(time.Since(start), nil)
	return nil
}

// Release unregisters one holder of block c.
//
// If c has a holder, src is written back when both the negotiated policy and
// the raster capability include Write. The holder is removed even if the
// write fails; the write error is returned. All waiters are woken.
func (s *Synchronizer) Release(ctx context.Context, c raster.Coord, src []byte) error {
	if err := s.check(c, src); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	counters := s.counters[c.Band]
	i := s.slot(c)
	if counters[i] != 0 {
		if s.Writable() {
			size := s.layout.Band(c.Band).BlockSize
			if werr := s.r.WriteBlock(ctx, c, src[:size]); werr != nil {
				err = fmt.Errorf("access: write %s: %w", c, werr)
				s.logger.Warn("block write-back failed", "coord", c.String(), "error", werr)
			}
		}
		counters[i]--
	}

	s.cond.Broadcast()
	return err
}

// WriteBack writes src to block c for a current holder without releasing it.
// It reports whether a write happened: nothing is written when c has no
// holder or when Write is not both negotiated and declared.
func (s *Synchronizer) WriteBack(ctx context.Context, c raster.Coord, src []byte) (bool, error) {
	if err := s.check(c, src); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.counters[c.Band][s.slot(c)] == 0 || !s.Writable() {
		return false, nil
	}

	size := s.layout.Band(c.Band).BlockSize
	if err := s.r.WriteBlock(ctx, c, src[:size]); err != nil {
		return false, fmt.Errorf("access: write %s: %w", c, err)
	}
	return true, nil
}

// Writable reports whether releasing a block writes it back, that is whether
// both the negotiated policy and the raster capability include Write.
func (s *Synchronizer) Writable() bool {
	return s.policy.CanWrite() && s.capability.CanWrite()
}

// Holders returns the number of current holders of c, or 0 for an invalid c.
func (s *Synchronizer) Holders(c raster.Coord) int {
	if s.layout.Validate(c) != nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[c.Band][s.slot(c)]
}

// Pin records a live reference to a cached copy of c.
func (s *Synchronizer) Pin(c raster.Coord) error {
	if err := s.layout.Validate(c); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pins[c.Band][s.slot(c)]++
	return nil
}

// Unpin drops a reference recorded by Pin. Unpinning an unpinned block is a
// no-op.
func (s *Synchronizer) Unpin(c raster.Coord) {
	if s.layout.Validate(c) != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := &s.pins[c.Band][s.slot(c)]; *p > 0 {
		*p--
	}
}

// Pinned reports whether c has a live reference.
func (s *Synchronizer) Pinned(c raster.Coord) bool {
	if s.layout.Validate(c) != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pins[c.Band][s.slot(c)] > 0
}
