package telemetry

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dj-oyu/presence-hud/internal/clock"
	"github.com/dj-oyu/presence-hud/internal/logger"
)

// Config paces an Aggregator.
type Config struct {
	MetricsInterval time.Duration // default 1s
	ProbeInterval   time.Duration // default 5s
	Clock           clock.Clock
}

// Aggregator owns the published Snapshot. The metrics loop and the probe
// loop each run on their own goroutine so a slow probe never delays a
// metrics refresh; both publish under one lock that is never held across
// a read of the Source or the Prober.
type Aggregator struct {
	source Source
	prober Prober
	cfg    Config
	log    *logger.Module

	mu   sync.RWMutex
	snap Snapshot

	// owned by the metrics loop
	prevCPU  *CPUSample
	degraded map[string]bool
}

// NewAggregator returns an aggregator with an initial snapshot reporting
// Disconnected and an unknown battery.
func NewAggregator(source Source, prober Prober, cfg Config) *Aggregator {
	if cfg.MetricsInterval <= 0 {
		cfg.MetricsInterval = time.Second
	}
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = 5 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	return &Aggregator{
		source:   source,
		prober:   prober,
		cfg:      cfg,
		log:      logger.For("Telemetry"),
		snap:     Snapshot{Net: Disconnected, Battery: BatteryUnknown},
		degraded: make(map[string]bool),
	}
}

// Snapshot returns a copy of the latest published statistics.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snap
}

// SetFPS publishes the frame rate measured by the frame loop.
func (a *Aggregator) SetFPS(fps float64) {
	a.mu.Lock()
	a.snap.FPS = fps
	a.mu.Unlock()
}

// Refresh samples every metric once and publishes the five metric fields
// together. It must only be called from one goroutine at a time.
func (a *Aggregator) Refresh() {
	var cpu, ram, storage float64

	if sample, err := a.source.CPU(); err != nil {
		a.degrade("cpu", err)
	} else {
		cpu = CPUUsage(a.prevCPU, sample)
		a.prevCPU = &sample
		a.restore("cpu")
	}

	if mem, err := a.source.Memory(); err != nil {
		a.degrade("ram", err)
	} else {
		ram = RAMUsage(mem)
		a.restore("ram")
	}

	if st, err := a.source.Storage(); err != nil {
		a.degrade("storage", err)
	} else {
		storage = StorageUsage(st)
		a.restore("storage")
	}

	capacity, err := a.source.Battery()
	battery := BatteryText(capacity, err == nil)
	dateTime := a.cfg.Clock.Now().Format(DateTimeLayout)

	a.mu.Lock()
	a.snap.CPUUsage = cpu
	a.snap.RAMUsage = ram
	a.snap.StorageUsage = storage
	a.snap.Battery = battery
	a.snap.DateTime = dateTime
	a.mu.Unlock()
}

// ProbeOnce runs the prober outside the lock and publishes the result.
func (a *Aggregator) ProbeOnce(ctx context.Context) NetStatus {
	status := Disconnected
	if a.prober != nil && a.prober.Probe(ctx) {
		status = Connected
	}
	if ctx.Err() != nil {
		// interrupted by shutdown, not a real failure
		return a.Snapshot().Net
	}

	a.mu.Lock()
	prev := a.snap.Net
	a.snap.Net = status
	a.mu.Unlock()

	if prev != status {
		a.log.Infof("network %s", status)
	}
	return status
}

// Run drives the metrics and probe loops until ctx is cancelled.
func (a *Aggregator) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.RunMetrics(ctx) })
	g.Go(func() error { return a.RunProbe(ctx) })
	return g.Wait()
}

// RunMetrics refreshes immediately and then once per MetricsInterval.
func (a *Aggregator) RunMetrics(ctx context.Context) error {
	a.log.Debugf("metrics loop started (every %v)", a.cfg.MetricsInterval)
	for ctx.Err() == nil {
		a.Refresh()
		if clock.Sleep(ctx, a.cfg.Clock, a.cfg.MetricsInterval) != nil {
			break
		}
	}
	a.log.Debugf("metrics loop stopped")
	return nil
}

// RunProbe probes immediately and then once per ProbeInterval.
func (a *Aggregator) RunProbe(ctx context.Context) error {
	a.log.Debugf("reachability loop started (every %v)", a.cfg.ProbeInterval)
	for ctx.Err() == nil {
		a.ProbeOnce(ctx)
		if clock.Sleep(ctx, a.cfg.Clock, a.cfg.ProbeInterval) != nil {
			break
		}
	}
	a.log.Debugf("reachability loop stopped")
	return nil
}

// degrade logs a failing reading once until it recovers.
func (a *Aggregator) degrade(field string, err error) {
	if a.degraded[field] {
		return
	}
	a.degraded[field] = true
	a.log.Warnf("%s reading unavailable, reporting 0: %v", field, err)
}

func (a *Aggregator) restore(field string) {
	if a.degraded[field] {
		delete(a.degraded, field)
		a.log.Infof("%s reading recovered", field)
	}
}
