package blockcache

import (
	"io"
	"log/slog"

	"github.com/hupe1980/rastercache/internal/resource"
	"github.com/hupe1980/rastercache/metrics"
)

type options struct {
	logger            *slog.Logger
	observer          metrics.Observer
	rc                *resource.Controller
	prefetchThreshold int
}

// Option configures a Manager or a Direct cache.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver sets the metrics observer.
func WithObserver(obs metrics.Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithResourceController reserves block buffer memory from rc. The capacity
// is lowered to what the memory limit of rc can hold; a refused reservation,
// possible when caches share rc, fails the miss with ErrOutOfMemory.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// WithPrefetchThreshold enables read-ahead on a Direct cache. Once recent
// accesses moved more than t blocks in the same direction along an axis, the
// next block along it is read in the background. Zero disables read-ahead.
// Manager ignores this option.
func WithPrefetchThreshold(t int) Option {
	return func(o *options) {
		o.prefetchThreshold = t
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer: metrics.Noop{},
	}
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}
