package blockcache

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/hupe1980/rastercache/raster"
)

// blockIO moves blocks between whole slot buffers and the raster. read may
// return a different buffer than dst; the caller adopts it and gives up dst.
type blockIO interface {
	read(ctx context.Context, c raster.Coord, dst []byte) ([]byte, error)
	write(ctx context.Context, c raster.Coord, src []byte) error
	close()
}

type directIO struct {
	r      raster.Raster
	layout *raster.Layout
}

func (d directIO) read(ctx context.Context, c raster.Coord, dst []byte) ([]byte, error) {
	return dst, d.r.ReadBlock(ctx, c, dst[:d.layout.Band(c.Band).BlockSize])
}

func (d directIO) write(ctx context.Context, c raster.Coord, src []byte) error {
	return d.r.WriteBlock(ctx, c, src[:d.layout.Band(c.Band).BlockSize])
}

func (directIO) close() {}

type ioTask struct {
	ctx   context.Context
	write bool
	coord raster.Coord
	buf   []byte
	reply chan ioResult
}

type ioResult struct {
	buf []byte
	err error
}

// prefetcher performs all raster I/O on a worker goroutine. After answering a
// read it may read the next block along the current access direction into a
// spare buffer; a later read of that block swaps buffers with the caller.
type prefetcher struct {
	r         raster.Raster
	layout    *raster.Layout
	threshold int
	logger    *slog.Logger

	tasks chan ioTask
	done  chan struct{}

	// Owned by the worker.
	spare   []byte
	ready   bool
	target  raster.Coord
	last    raster.Coord
	started bool
	dir     [3]int // band, col, row

	hits    atomic.Int64
	fetched atomic.Int64
}

func newPrefetcher(r raster.Raster, layout *raster.Layout, threshold, slotSize int, logger *slog.Logger) *prefetcher {
	p := &prefetcher{
		r:         r,
		layout:    layout,
		threshold: threshold,
		logger:    logger,
		tasks:     make(chan ioTask),
		done:      make(chan struct{}),
		spare:     make([]byte, slotSize),
	}
	go p.run()
	return p
}

func (p *prefetcher) read(ctx context.Context, c raster.Coord, dst []byte) ([]byte, error) {
	return p.do(ioTask{ctx: ctx, coord: c, buf: dst})
}

func (p *prefetcher) write(ctx context.Context, c raster.Coord, src []byte) error {
	_, err := p.do(ioTask{ctx: ctx, write: true, coord: c, buf: src})
	return err
}

func (p *prefetcher) do(t ioTask) ([]byte, error) {
	t.reply = make(chan ioResult, 1)
	p.tasks <- t
	res := <-t.reply
	return res.buf, res.err
}

// close stops the worker and waits for it to exit.
func (p *prefetcher) close() {
	close(p.tasks)
	<-p.done
}

func (p *prefetcher) run() {
	defer close(p.done)

	for t := range p.tasks {
		if t.write {
			if p.ready && p.target == t.coord {
				p.ready = false
			}
			size := p.layout.Band(t.coord.Band).BlockSize
			t.reply <- ioResult{err: p.r.WriteBlock(t.ctx, t.coord, t.buf[:size])}
			continue
		}

		size := p.layout.Band(t.coord.Band).BlockSize
		if p.ready && p.target == t.coord {
			out := p.spare
			p.spare = t.buf
			p.ready = false
			p.hits.Add(1)
			t.reply <- ioResult{buf: out}
		} else {
			err := p.r.ReadBlock(t.ctx, t.coord, t.buf[:size])
			t.reply <- ioResult{buf: t.buf, err: err}
			if err != nil {
				continue
			}
		}

		if next, ok := p.advance(t.coord); ok {
			p.fill(t.ctx, next)
		}
	}
}

// fill reads c into the spare buffer. A failed read-ahead is dropped.
func (p *prefetcher) fill(ctx context.Context, c raster.Coord) {
	size := p.layout.Band(c.Band).BlockSize
	if err := p.r.ReadBlock(context.WithoutCancel(ctx), c, p.spare[:size]); err != nil {
		p.ready = false
		p.logger.Debug("read-ahead failed", "block", c.String(), "error", err)
		return
	}
	p.ready = true
	p.target = c
	p.fetched.Add(1)
}

// advance records an access to c and returns the block to read ahead, if
// the accumulated direction along some axis exceeds the threshold.
func (p *prefetcher) advance(c raster.Coord) (raster.Coord, bool) {
	if !p.started {
		p.started = true
		p.last = c
		return raster.Coord{}, false
	}

	step := [3]int{c.Band - p.last.Band, c.Col - p.last.Col, c.Row - p.last.Row}
	p.last = c

	if abs(step[0]) >= 2 || abs(step[1]) >= 2 || abs(step[2]) >= 2 {
		p.dir = [3]int{}
		return raster.Coord{}, false
	}
	for i := range step {
		p.dir[i] += step[i]
	}

	next := c
	if abs(p.dir[0]) > p.threshold {
		b := next.Band + sign(p.dir[0])
		p.dir[0] -= sign(p.dir[0])
		if b >= 0 && b < p.layout.BandCount() {
			next.Band = b
		}
	}

	grid := p.layout.Band(next.Band)
	if abs(p.dir[1]) > p.threshold {
		col := next.Col + sign(p.dir[1])
		p.dir[1] -= sign(p.dir[1])
		if col >= 0 && col < grid.BlocksX {
			next.Col = col
		}
	}
	if abs(p.dir[2]) > p.threshold {
		row := next.Row + sign(p.dir[2])
		p.dir[2] -= sign(p.dir[2])
		if row >= 0 && row < grid.BlocksY {
			next.Row = row
		}
	}

	if next == c || p.layout.Validate(next) != nil {
		return raster.Coord{}, false
	}
	return next, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	if v < 0 {
		return -1
	}
	return 1
}
