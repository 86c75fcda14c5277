package mvnclite

import (
	"fmt"
	"strconv"
	"strings"
	"syscall"
	"unsafe"
)

// SetCPUAffinity sets the CPU Affinity mask of the program to run on the
// specified cores.  Threads started afterwards inherit the mask, so call it
// early in main.
func SetCPUAffinity(mask uintptr) error {

	if mask == 0 {
		return fmt.Errorf("failed to set CPU affinity: empty core mask")
	}

	_, _, err := syscall.RawSyscall(syscall.SYS_SCHED_SETAFFINITY, 0,
		unsafe.Sizeof(mask), uintptr(unsafe.Pointer(&mask)))

	if err != 0 {
		return fmt.Errorf("failed to set CPU affinity: %w", err)
	}

	return nil
}

// GetCPUAffinity gets the current CPU Affinity mask the program is running on
func GetCPUAffinity() (uintptr, error) {

	var mask uintptr

	_, _, err := syscall.RawSyscall(syscall.SYS_SCHED_GETAFFINITY, 0,
		unsafe.Sizeof(mask), uintptr(unsafe.Pointer(&mask)))

	if err != 0 {
		return 0, fmt.Errorf("failed to get CPU affinity: %w", err)
	}

	return mask, nil
}

// CPUCoreMask calculates the core mask by passing in the CPU core numbers as a
// slice, eg: []int{4,5,6,7}
func CPUCoreMask(cores []int) uintptr {

	var mask uintptr

	for _, core := range cores {
		mask |= 1 << core
	}

	return mask
}

// ParseCPUList parses a core list in the format used by taskset and
// /sys/devices/system/cpu, eg: "0-3,6", into core numbers
func ParseCPUList(list string) ([]int, error) {

	var cores []int
	maxCore := int(unsafe.Sizeof(uintptr(0))*8) - 1

	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)

		if part == "" {
			continue
		}

		lo, hi, isRange := strings.Cut(part, "-")

		first, err := strconv.Atoi(strings.TrimSpace(lo))

		if err != nil {
			return nil, fmt.Errorf("invalid cpu %q in list %q", lo, list)
		}

		last := first

		if isRange {
			if last, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
				return nil, fmt.Errorf("invalid cpu %q in list %q", hi, list)
			}
		}

		if first < 0 || last < first || last > maxCore {
			return nil, fmt.Errorf("invalid cpu range %q in list %q", part, list)
		}

		for c := first; c <= last; c++ {
			cores = append(cores, c)
		}
	}

	if len(cores) == 0 {
		return nil, fmt.Errorf("no cpus in list %q", list)
	}

	return cores, nil
}
