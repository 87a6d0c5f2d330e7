package blockcache

import "errors"

var (
	// ErrBusy is returned when a miss finds every resident block pinned.
	ErrBusy = errors.New("all cached blocks are pinned")

	// ErrOutOfMemory is returned when a block buffer cannot be reserved.
	ErrOutOfMemory = errors.New("cannot allocate block buffer")

	// ErrClosed is returned by operations on a closed cache.
	ErrClosed = errors.New("block cache is closed")
)
