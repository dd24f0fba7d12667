package telemetry

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// ErrUnavailable is returned by a Source when a reading does not exist on
// this host (no battery, no MemAvailable and no MemFree, ...).
var ErrUnavailable = errors.New("telemetry: reading unavailable")

// CPUSample holds cumulative jiffies from the aggregate cpu line.
type CPUSample struct {
	Idle  uint64
	Total uint64
}

// MemInfo holds the system memory counters in kilobytes. Available is zero
// when the kernel does not report MemAvailable.
type MemInfo struct {
	Total     uint64
	Available uint64
	Free      uint64
}

// StorageInfo holds filesystem block counts.
type StorageInfo struct {
	Blocks uint64
	Free   uint64
}

// Source reads raw host counters. Every method is best effort; callers
// degrade a failed reading instead of failing the cycle.
type Source interface {
	CPU() (CPUSample, error)
	Memory() (MemInfo, error)
	Storage() (StorageInfo, error)
	Battery() (int, error)
}

// ProcSource reads counters from procfs, sysfs and statfs.
type ProcSource struct {
	ProcRoot    string // defaults to /proc
	BatteryPath string // capacity file of the first battery
	StoragePath string // defaults to /
}

func (p ProcSource) procPath(name string) string {
	root := p.ProcRoot
	if root == "" {
		root = "/proc"
	}
	return filepath.Join(root, name)
}

// CPU parses the first line of <proc>/stat.
func (p ProcSource) CPU() (CPUSample, error) {
	data, err := os.ReadFile(p.procPath("stat"))
	if err != nil {
		return CPUSample{}, fmt.Errorf("read cpu stat: %w", err)
	}
	return parseCPULine(data)
}

// parseCPULine reads "cpu user nice system idle iowait irq softirq steal".
// Total sums those eight fields and Idle is the idle field alone.
func parseCPULine(data []byte) (CPUSample, error) {
	line, _, _ := bytes.Cut(data, []byte("\n"))
	fields := strings.Fields(string(line))
	if len(fields) < 9 || fields[0] != "cpu" {
		return CPUSample{}, fmt.Errorf("malformed cpu line %q", line)
	}
	var s CPUSample
	for i := 1; i <= 8; i++ {
		v, err := strconv.ParseUint(fields[i], 10, 64)
		if err != nil {
			return CPUSample{}, fmt.Errorf("cpu field %d: %w", i, err)
		}
		s.Total += v
		if i == 4 {
			s.Idle = v
		}
	}
	return s, nil
}

// Memory parses MemTotal, MemFree and MemAvailable from <proc>/meminfo.
func (p ProcSource) Memory() (MemInfo, error) {
	f, err := os.Open(p.procPath("meminfo"))
	if err != nil {
		return MemInfo{}, fmt.Errorf("open meminfo: %w", err)
	}
	defer f.Close()

	var m MemInfo
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, rest, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		var dst *uint64
		switch key {
		case "MemTotal":
			dst = &m.Total
		case "MemFree":
			dst = &m.Free
		case "MemAvailable":
			dst = &m.Available
		default:
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		if v, err := strconv.ParseUint(fields[0], 10, 64); err == nil {
			*dst = v
		}
	}
	if err := scanner.Err(); err != nil {
		return MemInfo{}, fmt.Errorf("scan meminfo: %w", err)
	}
	if m.Total == 0 {
		return MemInfo{}, fmt.Errorf("meminfo: %w", ErrUnavailable)
	}
	return m, nil
}

// Storage calls statfs on StoragePath.
func (p ProcSource) Storage() (StorageInfo, error) {
	path := p.StoragePath
	if path == "" {
		path = "/"
	}
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return StorageInfo{}, fmt.Errorf("statfs %s: %w", path, err)
	}
	return StorageInfo{Blocks: uint64(st.Blocks), Free: uint64(st.Bfree)}, nil
}

// Battery reads the capacity percentage from BatteryPath.
func (p ProcSource) Battery() (int, error) {
	if p.BatteryPath == "" {
		return 0, ErrUnavailable
	}
	data, err := os.ReadFile(p.BatteryPath)
	if err != nil {
		return 0, fmt.Errorf("read battery: %w", err)
	}
	capacity, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse battery %q: %w", data, err)
	}
	return capacity, nil
}

// CPUUsage returns 100*(1-Δidle/Δtotal) between prev and cur. Without a
// previous sample, or when no time has passed, it returns 0.
func CPUUsage(prev *CPUSample, cur CPUSample) float64 {
	if prev == nil || cur.Total <= prev.Total {
		return 0
	}
	dTotal := float64(cur.Total - prev.Total)
	dIdle := float64(cur.Idle) - float64(prev.Idle)
	usage := 100 * (1 - dIdle/dTotal)
	return clampPercent(usage)
}

// RAMUsage prefers MemAvailable and falls back to MemFree.
func RAMUsage(m MemInfo) float64 {
	if m.Total == 0 {
		return 0
	}
	avail := m.Available
	if avail == 0 {
		avail = m.Free
	}
	if avail > m.Total {
		return 0
	}
	return float64(m.Total-avail) / float64(m.Total) * 100
}

// StorageUsage returns (blocks-free)/blocks as a percentage.
func StorageUsage(s StorageInfo) float64 {
	if s.Blocks == 0 || s.Free > s.Blocks {
		return 0
	}
	return float64(s.Blocks-s.Free) / float64(s.Blocks) * 100
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
