// Package telemetry samples host metrics and network reachability on two
// independent cadences and publishes them as one immutable Snapshot.
package telemetry

import (
	"fmt"
	"strconv"
)

// DateTimeLayout formats Snapshot.DateTime.
const DateTimeLayout = "2006-01-02 15:04:05"

// BatteryUnknown is reported when no battery capacity can be read.
const BatteryUnknown = "Unknown"

// NetStatus is the outcome of the latest reachability probe.
type NetStatus int

const (
	Disconnected NetStatus = iota
	Connected
)

func (s NetStatus) String() string {
	if s == Connected {
		return "Connected"
	}
	return "Disconnected"
}

// Snapshot is a consistent view of every HUD statistic. Values are copied
// out of the aggregator; a Snapshot is never mutated after publication.
type Snapshot struct {
	CPUUsage     float64 // percent
	RAMUsage     float64 // percent
	StorageUsage float64 // percent
	FPS          float64
	Net          NetStatus
	Battery      string // "87%" or BatteryUnknown
	DateTime     string
}

// BatteryText formats a capacity reading for the snapshot.
func BatteryText(capacity int, ok bool) string {
	if !ok {
		return BatteryUnknown
	}
	return strconv.Itoa(capacity) + "%"
}

// Lines renders the stats block shown on the HUD, one statistic per line.
func (s Snapshot) Lines() []string {
	return []string{
		fmt.Sprintf("FPS: %.1f", s.FPS),
		fmt.Sprintf("CPU: %.1f%%", s.CPUUsage),
		fmt.Sprintf("RAM: %.1f%%", s.RAMUsage),
		fmt.Sprintf("STO: %.1f%%", s.StorageUsage),
		"NET: " + s.Net.String(),
		"BAT: " + s.Battery,
	}
}
