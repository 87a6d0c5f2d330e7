//go:build darwin

package sysmem

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

func probe() (Stats, error) {
	phys, err := unix.SysctlUint64("hw.memsize")
	if err != nil {
		return Stats{}, fmt.Errorf("sysmem: hw.memsize: %w", err)
	}

	var lim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_AS, &lim); err != nil {
		return Stats{}, fmt.Errorf("sysmem: getrlimit: %w", err)
	}

	// Darwin exposes no cheap mapped-size figure; the Go runtime's view of
	// obtained memory is the closest bound.
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return Stats{TotalPhysical: phys, TotalVirtual: lim.Cur, UsedVirtual: ms.Sys}, nil
}
