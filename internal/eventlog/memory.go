package eventlog

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// ProcessMemory reads the resident set size of the current process. It
// prefers the live value from statm and falls back to the peak RSS reported
// by getrusage when statm is unreadable.
type ProcessMemory struct {
	// StatmPath defaults to /proc/self/statm.
	StatmPath string
}

// MemoryUsage implements MemoryGauge.
func (p ProcessMemory) MemoryUsage() (uint64, bool) {
	path := p.StatmPath
	if path == "" {
		path = "/proc/self/statm"
	}
	if rss, ok := readStatmRSS(path); ok {
		return rss, true
	}

	var usage unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &usage); err != nil {
		return 0, false
	}
	// ru_maxrss is in kilobytes on Linux
	return uint64(usage.Maxrss) * 1024, true
}

// readStatmRSS parses "size resident shared ..." (pages) and returns the
// resident size in bytes.
func readStatmRSS(path string) (uint64, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	fields := strings.Fields(string(data))
	if len(fields) < 2 {
		return 0, false
	}
	pages, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return pages * uint64(unix.Getpagesize()), true
}
