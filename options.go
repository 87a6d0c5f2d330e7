package rastercache

import (
	"log/slog"
	"time"

	"github.com/hupe1980/rastercache/blockcache"
	"github.com/hupe1980/rastercache/internal/resource"
	"github.com/hupe1980/rastercache/metrics"
	"github.com/hupe1980/rastercache/raster"
)

// DefaultMemoryPercent is the share of available memory a cache uses unless
// WithBudget says otherwise.
const DefaultMemoryPercent = 40

type options struct {
	policy      raster.Policy
	budget      blockcache.Budget
	waitTimeout time.Duration
	observer    metrics.Observer
	logger      *Logger
	resources   resource.Config
	name        string
}

// Option configures a Cache.
type Option func(*options)

// WithPolicy sets the requested access policy. The cache obtains the
// intersection with the raster's own policy. Default: ReadWrite.
func WithPolicy(p raster.Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithBudget bounds the resident blocks, either as a count or as a share of
// available memory:
//
//	rastercache.WithBudget(blockcache.Blocks(64))
//	rastercache.WithBudget(blockcache.MemoryPercent(10))
//
// A cache over a writable raster always keeps a single block resident.
func WithBudget(b blockcache.Budget) Option {
	return func(o *options) {
		o.budget = b
	}
}

// WithWaitTimeout bounds how long a miss waits for another holder of the
// same block. Zero waits until the context is done.
func WithWaitTimeout(d time.Duration) Option {
	return func(o *options) {
		o.waitTimeout = d
	}
}

// WithObserver reports cache events to obs, for example a
// metrics.Basic or a metrics/prometheus.Observer.
func WithObserver(obs metrics.Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithMemoryLimit caps the bytes of block buffers. A miss that would exceed
// it fails with ErrOutOfMemory. Zero means no limit.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.resources.MemoryLimitBytes = bytes
	}
}

// WithIOLimit throttles raster reads and writes to bytesPerSec.
// Zero means unlimited.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.resources.IOLimitBytesPerSec = bytesPerSec
	}
}

// WithName tags log records of the cache.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := rastercache.NewJSONLogger(slog.LevelDebug)
//	c, _ := rastercache.New(r, rastercache.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		policy:   raster.ReadWrite,
		budget:   blockcache.MemoryPercent(DefaultMemoryPercent),
		observer: metrics.Noop{},
		logger:   NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.name != "" {
		o.logger = o.logger.WithName(o.name)
	}
	return o
}
