package blobraster

import (
	"io"
	"log/slog"
	"runtime"

	"github.com/hupe1980/rastercache/raster"
)

type options struct {
	logger      *slog.Logger
	concurrency int
	fill        func(c raster.Coord, dst []byte)
	policy      raster.Policy
}

// Option configures Create.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithFill writes every block at creation, with content produced by fn.
// fn is called concurrently.
func WithFill(fn func(c raster.Coord, dst []byte)) Option {
	return func(o *options) {
		o.fill = fn
	}
}

// WithConcurrency bounds the parallel uploads of WithFill.
// Default: GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithPolicy sets the policy of the returned raster. Default: ReadWrite.
func WithPolicy(p raster.Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		concurrency: runtime.GOMAXPROCS(0),
		policy:      raster.ReadWrite,
	}
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}
