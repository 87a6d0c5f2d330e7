package rastercache

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/hupe1980/rastercache/raster"
)

// Logger wraps slog.Logger with rastercache-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithBlock adds the coordinate fields of c to the logger.
func (l *Logger) WithBlock(c raster.Coord) *Logger {
	return &Logger{
		Logger: l.Logger.With("band", c.Band, "row", c.Row, "col", c.Col),
	}
}

// WithName adds a name field to the logger (useful to tell caches apart).
func (l *Logger) WithName(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("cache", name),
	}
}

// LogFlush logs a flush and the number of blocks it wrote.
func (l *Logger) LogFlush(ctx context.Context, written int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "flush failed",
			"written", written,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "flush completed",
			"written", written,
		)
	}
}

// LogClose logs the shutdown of a cache.
func (l *Logger) LogClose(ctx context.Context, hits, misses int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "close failed",
			"hits", hits,
			"misses", misses,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "cache closed",
			"hits", hits,
			"misses", misses,
		)
	}
}
