//go:build linux

package engine

import "golang.org/x/sys/unix"

// availableMemory returns free plus reclaimable buffer memory in bytes.
func availableMemory() (uint64, bool) {
	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err != nil {
		return 0, false
	}
	unit := uint64(si.Unit)
	if unit == 0 {
		unit = 1
	}
	return (uint64(si.Freeram) + uint64(si.Bufferram)) * unit, true
}
