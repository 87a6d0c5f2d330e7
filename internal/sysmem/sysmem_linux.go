//go:build linux

package sysmem

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

func probe() (Stats, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return Stats{}, fmt.Errorf("sysmem: sysinfo: %w", err)
	}

	var lim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_AS, &lim); err != nil {
		return Stats{}, fmt.Errorf("sysmem: getrlimit: %w", err)
	}

	used, err := mappedBytes()
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		TotalPhysical: uint64(info.Totalram) * uint64(info.Unit), //nolint:unconvert // Totalram is uint32 on 32-bit
		TotalVirtual:  lim.Cur,
		UsedVirtual:   used,
	}, nil
}

// mappedBytes reads the process' virtual size from /proc/self/statm.
func mappedBytes() (uint64, error) {
	data, err := os.ReadFile("/proc/self/statm")
	if err != nil {
		return 0, fmt.Errorf("sysmem: %w", err)
	}

	field, _, _ := bytes.Cut(bytes.TrimSpace(data), []byte(" "))
	pages, err := strconv.ParseUint(string(field), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("sysmem: parse statm: %w", err)
	}

	return pages * uint64(unix.Getpagesize()), nil
}
