//go:build windows

package preflight

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// freeBytes returns the bytes available to the calling user on the volume
// holding path.
func freeBytes(path string) (int64, error) {
	var freeAvail, total, totalFree uint64
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, fmt.Errorf("invalid path %s: %w", path, err)
	}
	if err := windows.GetDiskFreeSpaceEx(p, &freeAvail, &total, &totalFree); err != nil {
		return 0, fmt.Errorf("query free space for %s: %w", path, err)
	}
	return int64(freeAvail), nil
}
