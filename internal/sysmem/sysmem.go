// Package sysmem reports the memory figures used to size block caches from a
// percentage of available memory.
package sysmem

import (
	"errors"
	"math"
)

// ErrUnsupported is returned on platforms without a memory probe.
var ErrUnsupported = errors.New("sysmem: unsupported platform")

// Stats is a snapshot of system and process memory in bytes.
type Stats struct {
	// TotalPhysical is the installed physical memory.
	TotalPhysical uint64
	// TotalVirtual is the address space available to the process.
	// math.MaxUint64 when unlimited.
	TotalVirtual uint64
	// UsedVirtual is the address space currently mapped by the process.
	UsedVirtual uint64
}

// Available returns min(TotalPhysical, max(0, TotalVirtual/2 - UsedVirtual)).
func (s Stats) Available() float64 {
	half := float64(s.TotalVirtual) / 2
	free := math.Max(0, half-float64(s.UsedVirtual))
	return math.Min(float64(s.TotalPhysical), free)
}

// Probe returns the memory figures of the running process.
func Probe() (Stats, error) {
	return probe()
}
