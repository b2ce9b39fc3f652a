//go:build linux

package registry

import (
	"golang.org/x/sys/unix"
)

// hostMemory returns the physical memory of the machine, or
// fallbackHostMemory when the kernel does not report it.
func hostMemory() uint64 {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return fallbackHostMemory
	}
	total := uint64(info.Totalram) * uint64(max(info.Unit, 1))
	if total == 0 {
		return fallbackHostMemory
	}
	return total
}
