// Package capture decides when a frame is persisted and keeps the HUD event
// log in step with presence episodes.
package capture

import (
	"image"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dj-oyu/presence-hud/internal/eventlog"
	"github.com/dj-oyu/presence-hud/internal/logger"
	"github.com/dj-oyu/presence-hud/internal/tracker"
	"github.com/dj-oyu/presence-hud/pkg/types"
)

// Persister writes a frame to path.
type Persister interface {
	Persist(path string, f *types.Frame) error
}

// PersisterFunc adapts a function to Persister.
type PersisterFunc func(path string, f *types.Frame) error

func (fn PersisterFunc) Persist(path string, f *types.Frame) error { return fn(path, f) }

// HUD log lines written by the trigger.
const (
	MsgSubjectDetected  = "Human subject detected in frame"
	MsgNewSubject       = "New subject detected"
	MsgSubjectLost      = "Subject lost from view"
	MsgImageCaptured    = "Image captured"
	MsgCaptureFailed    = "Failed to capture image"
	MsgAnalysisComplete = "Analysis complete"
)

// Config names the snapshot files.
type Config struct {
	Dir    string // default "snapshot"
	Prefix string // default "face_detected_"
}

// Result describes what one observation did.
type Result struct {
	Event     tracker.Event
	Attempted bool
	Captured  bool
	Path      string
}

// Stats counts capture attempts.
type Stats struct {
	Captured uint64
	Failed   uint64
	Subjects uint64
}

// Trigger connects the tracker, the persister and the event log. Observe
// and Tick must be called from the frame loop; Conditions and
// AnalysisActive may be called from any goroutine.
type Trigger struct {
	tracker   *tracker.Tracker
	stream    *eventlog.Stream
	persister Persister
	cfg       Config
	log       *logger.Module

	presence atomic.Bool
	analysis atomic.Bool

	captured atomic.Uint64
	failed   atomic.Uint64
	subjects atomic.Uint64
}

// NewTrigger returns a trigger gating persister with tr.
func NewTrigger(tr *tracker.Tracker, stream *eventlog.Stream, persister Persister, cfg Config) *Trigger {
	if cfg.Dir == "" {
		cfg.Dir = "snapshot"
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "face_detected_"
	}
	return &Trigger{
		tracker:   tr,
		stream:    stream,
		persister: persister,
		cfg:       cfg,
		log:       logger.For("Capture"),
	}
}

// Conditions implements eventlog.ConditionSource.
func (t *Trigger) Conditions() eventlog.Conditions {
	return eventlog.Conditions{
		PresenceActive: t.presence.Load(),
		EpisodeActive:  t.analysis.Load(),
	}
}

// AnalysisActive reports whether a capture's cooldown is still running.
func (t *Trigger) AnalysisActive() bool { return t.analysis.Load() }

// Stats returns capture counters.
func (t *Trigger) Stats() Stats {
	return Stats{
		Captured: t.captured.Load(),
		Failed:   t.failed.Load(),
		Subjects: t.subjects.Load(),
	}
}

// Tick ends an elapsed cooldown. It runs every frame whether or not the
// detector ran.
func (t *Trigger) Tick(now time.Time) {
	expired, hadCapture := t.tracker.CheckCooldown(now)
	if !expired {
		return
	}
	t.analysis.Store(false)
	if hadCapture {
		t.stream.Append(MsgAnalysisComplete, eventlog.Info)
		t.log.Debugf("analysis complete")
	}
}

// Observe feeds one detection result for frame and persists it when the
// episode is eligible. frame must not carry any overlay.
func (t *Trigger) Observe(frame *types.Frame, boxes []image.Rectangle, now time.Time) Result {
	ev := t.tracker.Observe(boxes, now)
	res := Result{Event: ev}

	switch ev {
	case tracker.SubjectEntered:
		t.subjects.Add(1)
		t.stream.Append(MsgSubjectDetected, eventlog.Info)
	case tracker.NewDistinctSubject:
		t.stream.Append(MsgNewSubject, eventlog.Warning)
	case tracker.SubjectLost:
		t.stream.Append(MsgSubjectLost, eventlog.Notice)
	}
	t.presence.Store(t.tracker.State().PresentNow)

	if ev != tracker.SubjectEntered && ev != tracker.SubjectContinuing {
		return res
	}
	if !t.tracker.CaptureEligible(now) {
		return res
	}

	res.Attempted = true
	res.Path = Filename(t.cfg.Dir, t.cfg.Prefix, now)
	episode := t.tracker.State().EpisodeID

	if err := t.persister.Persist(res.Path, frame); err != nil {
		t.failed.Add(1)
		t.log.Errorf("episode %s: save %s: %v", episode, res.Path, err)
		t.stream.Append(MsgCaptureFailed, eventlog.Error)
		t.tracker.StartCooldown(now, false)
		return res
	}

	res.Captured = true
	t.captured.Add(1)
	t.tracker.StartCooldown(now, true)
	t.analysis.Store(true)
	t.log.Infof("episode %s: picture saved: %s", episode, res.Path)
	t.stream.Append(MsgImageCaptured, eventlog.Error)
	t.stream.Reset(eventlog.EpisodeSeeds...)
	return res
}

var unsafeChars = strings.NewReplacer(" ", "_", ":", "_")

// Filename builds dir/<prefix><2006-01-02_15_04_05>.jpg for now.
func Filename(dir, prefix string, now time.Time) string {
	stamp := unsafeChars.Replace(now.Format("2006-01-02 15:04:05"))
	return filepath.Join(dir, prefix+stamp+".jpg")
}
