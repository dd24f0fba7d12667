// Package tracker turns per-frame face detections into presence episodes.
//
// A Tracker is owned by the frame loop and is not safe for concurrent use.
// Other goroutines learn about presence through the flags published by the
// capture package.
package tracker

import (
	"image"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/dj-oyu/presence-hud/internal/logger"
	"github.com/dj-oyu/presence-hud/pkg/types"
)

// Event is the outcome of one observation.
type Event int

const (
	NoChange Event = iota
	SubjectEntered
	SubjectContinuing
	NewDistinctSubject
	SubjectLost
)

func (e Event) String() string {
	switch e {
	case SubjectEntered:
		return "entered"
	case SubjectContinuing:
		return "continuing"
	case NewDistinctSubject:
		return "distinct"
	case SubjectLost:
		return "lost"
	default:
		return "none"
	}
}

// Phase summarises an EpisodeState for display and logging.
type Phase int

const (
	Idle Phase = iota
	Detected
	Captured
)

func (p Phase) String() string {
	switch p {
	case Detected:
		return "detected"
	case Captured:
		return "captured"
	default:
		return "idle"
	}
}

// Config holds the debounce and gating thresholds.
type Config struct {
	PositionThreshold float64       // px between box centers for a new subject
	NoFaceFrames      int           // consecutive empty observations before loss
	LossTimeout       time.Duration // time since last sighting before loss
	Window            time.Duration // capture eligibility after onset
	Cooldown          time.Duration // capture suppression after an attempt
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		PositionThreshold: 100,
		NoFaceFrames:      10,
		LossTimeout:       time.Second,
		Window:            time.Second,
		Cooldown:          5 * time.Second,
	}
}

// EpisodeState is the tracker's view of the current presence episode.
type EpisodeState struct {
	PresentNow           bool
	LastBox              image.Rectangle
	EpisodeStart         time.Time
	LastSeen             time.Time
	AbsentFrames         int
	InCooldown           bool
	CooldownStart        time.Time
	DistinctFromPrevious bool
	CaptureActive        bool
	Attempted            bool // episode has tried a capture; cleared on SubjectEntered
	EpisodeID            uuid.UUID
}

// Phase derives the coarse state machine position.
func (s EpisodeState) Phase() Phase {
	switch {
	case s.CaptureActive:
		return Captured
	case s.PresentNow:
		return Detected
	default:
		return Idle
	}
}

// Tracker maintains one EpisodeState.
type Tracker struct {
	cfg Config
	st  EpisodeState
	log *logger.Module
}

// New returns an idle tracker. Zero fields in cfg take their defaults.
func New(cfg Config) *Tracker {
	def := DefaultConfig()
	if cfg.PositionThreshold <= 0 {
		cfg.PositionThreshold = def.PositionThreshold
	}
	if cfg.NoFaceFrames <= 0 {
		cfg.NoFaceFrames = def.NoFaceFrames
	}
	if cfg.LossTimeout <= 0 {
		cfg.LossTimeout = def.LossTimeout
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	return &Tracker{cfg: cfg, log: logger.For("Tracker")}
}

// State returns a copy of the episode state.
func (t *Tracker) State() EpisodeState { return t.st }

// Observe feeds one detection result. With several boxes the largest one
// is the tracked subject.
func (t *Tracker) Observe(boxes []image.Rectangle, now time.Time) Event {
	t.st.DistinctFromPrevious = false

	subject, ok := types.Largest(boxes)
	if !ok {
		return t.observeAbsent(now)
	}

	if !t.st.PresentNow {
		t.st.PresentNow = true
		t.st.EpisodeStart = now
		t.st.LastSeen = now
		t.st.LastBox = subject
		t.st.AbsentFrames = 0
		t.st.Attempted = false
		t.st.EpisodeID = uuid.New()
		t.log.Infof("episode %s: subject entered at %v", t.st.EpisodeID, subject)
		return SubjectEntered
	}

	dist := Distance(t.st.LastBox, subject)
	t.st.LastBox = subject
	t.st.LastSeen = now
	t.st.AbsentFrames = 0
	if dist > t.cfg.PositionThreshold {
		t.st.DistinctFromPrevious = true
		t.log.Infof("episode %s: distinct subject (moved %.0fpx)", t.st.EpisodeID, dist)
		return NewDistinctSubject
	}
	return SubjectContinuing
}

func (t *Tracker) observeAbsent(now time.Time) Event {
	if !t.st.PresentNow {
		return NoChange
	}
	t.st.AbsentFrames++
	if t.st.AbsentFrames < t.cfg.NoFaceFrames && now.Sub(t.st.LastSeen) < t.cfg.LossTimeout {
		return NoChange
	}
	t.log.Infof("episode %s: subject lost after %d empty frames, %v unseen",
		t.st.EpisodeID, t.st.AbsentFrames, now.Sub(t.st.LastSeen))
	t.st.PresentNow = false
	t.st.AbsentFrames = 0
	return SubjectLost
}

// InWindow reports whether now is within the detection window of the
// current episode.
func (t *Tracker) InWindow(now time.Time) bool {
	return t.st.PresentNow && now.Sub(t.st.EpisodeStart) <= t.cfg.Window
}

// CaptureEligible reports whether a capture may be attempted now. An
// episode gets one attempt regardless of how the window and cooldown
// lengths relate.
func (t *Tracker) CaptureEligible(now time.Time) bool {
	return !t.st.Attempted && !t.st.InCooldown && t.InWindow(now)
}

// StartCooldown begins the suppression interval after a capture attempt.
// captured marks the episode as having produced an image.
func (t *Tracker) StartCooldown(now time.Time, captured bool) {
	t.st.InCooldown = true
	t.st.CooldownStart = now
	t.st.Attempted = true
	if captured {
		t.st.CaptureActive = true
	}
}

// CheckCooldown ends an elapsed cooldown. expired is true on the single
// call that ends it; hadCapture tells whether that cooldown followed a
// successful capture.
func (t *Tracker) CheckCooldown(now time.Time) (expired, hadCapture bool) {
	if !t.st.InCooldown || now.Sub(t.st.CooldownStart) < t.cfg.Cooldown {
		return false, false
	}
	hadCapture = t.st.CaptureActive
	t.st.InCooldown = false
	t.st.CaptureActive = false
	return true, hadCapture
}

// Distance is the Euclidean distance between the centers of a and b.
func Distance(a, b image.Rectangle) float64 {
	ca, cb := types.Center(a), types.Center(b)
	return math.Hypot(float64(ca.X-cb.X), float64(ca.Y-cb.Y))
}
