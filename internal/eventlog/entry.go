// Package eventlog holds the HUD event log: a bounded, concurrently written
// queue of short status lines, the admission policies that keep it bounded,
// and the cosmetic generator that keeps it busy.
package eventlog

import "time"

// Severity ranks an entry; the renderer maps it to a colour.
type Severity int

const (
	Info Severity = iota
	Notice
	Warning
	Error
)

var severityNames = [...]string{"info", "notice", "warning", "error"}

func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return "unknown"
	}
	return severityNames[s]
}

// TimestampLayout is the sub-second layout used for Entry.Timestamp.
const TimestampLayout = "15:04:05.000"

// Entry is one immutable log line.
type Entry struct {
	Timestamp string
	Message   string
	Severity  Severity
}

// Seed is a message/severity pair used to (re)populate a stream.
type Seed struct {
	Message  string
	Severity Severity
}

func newEntry(now time.Time, s Seed) Entry {
	return Entry{
		Timestamp: now.Format(TimestampLayout),
		Message:   s.Message,
		Severity:  s.Severity,
	}
}

// StartupSeeds are written once when the application comes up.
var StartupSeeds = []Seed{
	{"System initialized", Info},
	{"Camera active", Info},
	{"Face detection ready", Info},
	{"Monitoring active", Info},
}

// EpisodeSeeds replace the whole log after a successful capture.
var EpisodeSeeds = []Seed{
	{"Analysis in progress", Error},
	{"Processing data", Error},
	{"Scan in progress", Error},
	{"Searching database", Error},
}
