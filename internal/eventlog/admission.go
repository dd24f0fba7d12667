package eventlog

// Queue is the view of a stream that an admission policy may act on. The
// stream calls policies with its lock held, so implementations must not call
// back into the Stream.
type Queue interface {
	Len() int
	// EvictOldest drops the oldest entry and reports whether one existed.
	EvictOldest() bool
}

// Policy decides whether a new entry may be stored. It may evict from q
// before answering.
type Policy interface {
	Admit(q Queue) bool
}

// Chain admits an entry only if every policy admits it. Policies run in
// order and a rejection stops the chain.
type Chain []Policy

func (c Chain) Admit(q Queue) bool {
	for _, p := range c {
		if !p.Admit(q) {
			return false
		}
	}
	return true
}

// Capacity rejects new entries once the queue holds Max entries. It never
// evicts: producers over the cap are dropped.
type Capacity struct {
	Max int
}

func (c Capacity) Admit(q Queue) bool {
	return q.Len() < c.Max
}

// MemoryGauge reports current process memory use in bytes. ok is false when
// no reading is available.
type MemoryGauge interface {
	MemoryUsage() (bytes uint64, ok bool)
}

// MemoryGaugeFunc adapts a function to MemoryGauge.
type MemoryGaugeFunc func() (uint64, bool)

func (f MemoryGaugeFunc) MemoryUsage() (uint64, bool) { return f() }

// MemoryCeiling evicts oldest entries while the gauge reads above Ceiling,
// stopping when it drops under the ceiling or the queue is empty. It always
// admits: the check is advisory and leaves the cap to Capacity.
type MemoryCeiling struct {
	Ceiling uint64
	Gauge   MemoryGauge
}

func (m MemoryCeiling) Admit(q Queue) bool {
	if m.Gauge == nil || m.Ceiling == 0 {
		return true
	}
	usage, ok := m.Gauge.MemoryUsage()
	for ok && usage > m.Ceiling && q.EvictOldest() {
		usage, ok = m.Gauge.MemoryUsage()
	}
	return true
}
