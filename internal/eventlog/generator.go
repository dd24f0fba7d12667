package eventlog

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/dj-oyu/presence-hud/internal/clock"
	"github.com/dj-oyu/presence-hud/internal/logger"
)

// Conditions is the only shared state the cosmetic generator looks at.
type Conditions struct {
	PresenceActive bool // a subject is currently tracked
	EpisodeActive  bool // a capture happened and its cooldown is running
}

// ConditionSource publishes Conditions safely across goroutines.
type ConditionSource interface {
	Conditions() Conditions
}

// Category groups cosmetic messages.
type Category int

const (
	CategoryInfo Category = iota
	CategorySecurity
	CategoryWarning
	CategoryError
	CategoryTargetAcquired
)

// DrawRange is the exclusive upper bound of the draw passed to Choose.
const DrawRange = 20

// Choose maps a draw in [0, DrawRange) to a category. Baseline weights are
// 17/20 informational, 2/20 warning, 1/20 error; presence turns draws 10–16
// into security lines and an active episode turns draws 0–11 into
// target-acquired lines.
func Choose(c Conditions, draw int) Category {
	switch {
	case c.EpisodeActive && draw < 12:
		return CategoryTargetAcquired
	case draw < 10:
		return CategoryInfo
	case draw < 17:
		if c.PresenceActive {
			return CategorySecurity
		}
		return CategoryInfo
	case draw < 19:
		return CategoryWarning
	default:
		return CategoryError
	}
}

// Severity is the severity used for lines of the category.
func (c Category) Severity() Severity {
	switch c {
	case CategorySecurity:
		return Notice
	case CategoryWarning:
		return Warning
	case CategoryError, CategoryTargetAcquired:
		return Error
	default:
		return Info
	}
}

// Messages returns the pool lines are drawn from.
func (c Category) Messages() []string {
	switch c {
	case CategorySecurity:
		return securityMessages
	case CategoryWarning:
		return warningMessages
	case CategoryError:
		return errorMessages
	case CategoryTargetAcquired:
		return targetAcquiredMessages
	default:
		return infoMessages
	}
}

var (
	infoMessages = []string{
		"System initialized",
		"Memory block allocated",
		"CPU core scaling: performance",
		"Processing unit online",
		"Tracking algorithm loaded",
		"Connection established",
		"System active",
		"Analysis running",
		"Processing initialized",
		"Scanning active",
	}
	warningMessages = []string{
		"CPU threshold approaching",
		"Memory fragmentation detected",
		"Network latency increasing",
		"I/O bottleneck detected",
		"Identification timeout",
		"Buffer overflow prevented",
		"Resource contention detected",
	}
	errorMessages = []string{
		"Database access failed",
		"Network corruption",
		"Security breach detected",
		"Invalid memory address",
		"System error prevented",
	}
	securityMessages = []string{
		"Subject identified: Processing",
		"Database search: In progress",
		"Scan: Active",
		"Level: Low",
		"Confidence: 78.2%",
		"Analysis: Normal",
		"Access: Restricted",
	}
	targetAcquiredMessages = []string{
		"Processing data",
		"Image captured",
		"Analysis in progress",
		"Verification: Active",
		"Saving data",
		"Tracking: Active",
		"Protocols engaged",
	}
)

// GeneratorConfig paces a Generator.
type GeneratorConfig struct {
	MinInterval time.Duration
	MaxInterval time.Duration
	Clock       clock.Clock
	Rand        *rand.Rand // nil seeds a fresh PCG source
}

// Generator appends cosmetic lines to a Stream at a jittered cadence. A
// Generator is driven by one goroutine.
type Generator struct {
	stream *Stream
	source ConditionSource
	cfg    GeneratorConfig
	rng    *rand.Rand
	log    *logger.Module
}

// NewGenerator returns a generator writing to stream and biased by source.
func NewGenerator(stream *Stream, source ConditionSource, cfg GeneratorConfig) *Generator {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 800 * time.Millisecond
	}
	if cfg.MaxInterval < cfg.MinInterval {
		cfg.MaxInterval = cfg.MinInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{
		stream: stream,
		source: source,
		cfg:    cfg,
		rng:    rng,
		log:    logger.For("EventLog"),
	}
}

// Interval draws the next sleep in [MinInterval, MaxInterval).
func (g *Generator) Interval() time.Duration {
	span := g.cfg.MaxInterval - g.cfg.MinInterval
	if span <= 0 {
		return g.cfg.MinInterval
	}
	return g.cfg.MinInterval + time.Duration(g.rng.Int64N(int64(span)))
}

// Emit appends one line chosen from the current conditions and reports
// whether the stream accepted it.
func (g *Generator) Emit() bool {
	var c Conditions
	if g.source != nil {
		c = g.source.Conditions()
	}
	cat := Choose(c, g.rng.IntN(DrawRange))
	pool := cat.Messages()
	return g.stream.Append(pool[g.rng.IntN(len(pool))], cat.Severity())
}

// Run sleeps a jittered interval, emits a line and repeats until ctx is done.
func (g *Generator) Run(ctx context.Context) error {
	g.log.Debugf("cosmetic generator started (%v-%v)", g.cfg.MinInterval, g.cfg.MaxInterval)
	defer g.log.Debugf("cosmetic generator stopped")

	for {
		if err := clock.Sleep(ctx, g.cfg.Clock, g.Interval()); err != nil {
			return nil
		}
		g.Emit()
	}
}
