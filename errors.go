package rastercache

import (
	"errors"

	"github.com/hupe1980/rastercache/access"
	"github.com/hupe1980/rastercache/blockcache"
	"github.com/hupe1980/rastercache/raster"
)

var (
	// ErrConfiguration is returned for invalid constructor arguments.
	ErrConfiguration = raster.ErrConfiguration

	// ErrInvalidIndex is returned for coordinates outside the block grid.
	ErrInvalidIndex = raster.ErrInvalidIndex

	// ErrBusy is returned when every resident block is pinned.
	ErrBusy = blockcache.ErrBusy

	// ErrOutOfMemory is returned when a block buffer cannot be reserved.
	ErrOutOfMemory = blockcache.ErrOutOfMemory

	// ErrClosed is returned by operations on a closed cache.
	ErrClosed = blockcache.ErrClosed

	// ErrTimeout is returned when waiting for exclusive access expires.
	ErrTimeout = access.ErrTimeout

	// ErrReadOnly is returned by WriteBlock when the negotiated policy
	// lacks Write.
	ErrReadOnly = errors.New("cache is read-only")
)
