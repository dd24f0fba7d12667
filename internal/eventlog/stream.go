package eventlog

import (
	"sync"
	"sync/atomic"

	"github.com/dj-oyu/presence-hud/internal/clock"
)

// StreamConfig sizes a Stream.
type StreamConfig struct {
	Capacity      int         // hard cap on stored entries (default 100)
	Window        int         // entries returned by Window (default 8)
	MemoryCeiling uint64      // 0 disables memory-based eviction
	Gauge         MemoryGauge // process memory reading for MemoryCeiling
	Clock         clock.Clock // timestamps; defaults to the real clock
}

// StreamStats counts admission outcomes since the stream was created.
type StreamStats struct {
	Appended uint64
	Dropped  uint64 // rejected by the capacity cap
	Evicted  uint64 // removed by memory pressure
}

// Stream is a bounded, arrival-ordered log shared by several producers.
// All mutation happens under one mutex that is never held across I/O.
type Stream struct {
	mu      sync.Mutex
	entries []Entry
	policy  Policy
	window  int
	limit   int
	clock   clock.Clock

	appended atomic.Uint64
	dropped  atomic.Uint64
	evicted  atomic.Uint64
}

// NewStream builds a stream whose admission chain is the memory ceiling
// (when configured) followed by the capacity cap.
func NewStream(cfg StreamConfig) *Stream {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 100
	}
	if cfg.Window <= 0 {
		cfg.Window = 8
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}

	var chain Chain
	if cfg.MemoryCeiling > 0 && cfg.Gauge != nil {
		chain = append(chain, MemoryCeiling{Ceiling: cfg.MemoryCeiling, Gauge: cfg.Gauge})
	}
	chain = append(chain, Capacity{Max: cfg.Capacity})

	return &Stream{
		entries: make([]Entry, 0, cfg.Capacity),
		policy:  chain,
		window:  cfg.Window,
		limit:   cfg.Capacity,
		clock:   cfg.Clock,
	}
}

// lockedQueue exposes the stream to policies while s.mu is held.
type lockedQueue struct{ s *Stream }

func (q lockedQueue) Len() int { return len(q.s.entries) }

func (q lockedQueue) EvictOldest() bool {
	if len(q.s.entries) == 0 {
		return false
	}
	q.s.entries[0] = Entry{}
	q.s.entries = q.s.entries[1:]
	q.s.evicted.Add(1)
	return true
}

// Append stores a new entry if the admission policy allows it and reports
// whether it was stored. It never blocks on a full stream.
func (s *Stream) Append(message string, severity Severity) bool {
	e := newEntry(s.clock.Now(), Seed{Message: message, Severity: severity})

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.policy.Admit(lockedQueue{s}) {
		s.dropped.Add(1)
		return false
	}
	s.entries = append(s.entries, e)
	s.appended.Add(1)
	return true
}

// Reset atomically replaces the whole stream with seeds. Seeds beyond the
// capacity are ignored.
func (s *Stream) Reset(seeds ...Seed) {
	now := s.clock.Now()
	if len(seeds) > s.limit {
		seeds = seeds[:s.limit]
	}
	fresh := make([]Entry, 0, s.limit)
	for _, seed := range seeds {
		fresh = append(fresh, newEntry(now, seed))
	}

	s.mu.Lock()
	s.entries = fresh
	s.mu.Unlock()
	s.appended.Add(uint64(len(seeds)))
}

// Clear empties the stream.
func (s *Stream) Clear() {
	s.Reset()
}

// Len returns the number of stored entries.
func (s *Stream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Entries returns a copy of every stored entry, oldest first.
func (s *Stream) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Window returns a copy of the most recent entries, oldest first, capped at
// the configured window size.
func (s *Stream) Window() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := 0
	if len(s.entries) > s.window {
		start = len(s.entries) - s.window
	}
	out := make([]Entry, len(s.entries)-start)
	copy(out, s.entries[start:])
	return out
}

// Stats returns admission counters.
func (s *Stream) Stats() StreamStats {
	return StreamStats{
		Appended: s.appended.Load(),
		Dropped:  s.dropped.Load(),
		Evicted:  s.evicted.Load(),
	}
}
