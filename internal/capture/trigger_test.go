package capture

import (
	"errors"
	"image"
	"testing"
	"time"

	"github.com/dj-oyu/presence-hud/internal/clock"
	"github.com/dj-oyu/presence-hud/internal/eventlog"
	"github.com/dj-oyu/presence-hud/internal/tracker"
	"github.com/dj-oyu/presence-hud/pkg/types"
)

var t0 = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

type recordingPersister struct {
	paths []string
	err   error
}

func (p *recordingPersister) Persist(path string, f *types.Frame) error {
	if p.err != nil {
		return p.err
	}
	p.paths = append(p.paths, path)
	return nil
}

func newFixture(p Persister) (*Trigger, *eventlog.Stream) {
	stream := eventlog.NewStream(eventlog.StreamConfig{Capacity: 100, Window: 8, Clock: clock.Fake(t0)})
	return NewTrigger(tracker.New(tracker.DefaultConfig()), stream, p, Config{}), stream
}

func frame() *types.Frame {
	return &types.Frame{Image: image.NewRGBA(image.Rect(0, 0, 640, 480)), Timestamp: t0}
}

var face = []image.Rectangle{image.Rect(100, 100, 200, 200)}

func messages(s *eventlog.Stream) []string {
	var out []string
	for _, e := range s.Entries() {
		out = append(out, e.Message)
	}
	return out
}

func count(s *eventlog.Stream, msg string) int {
	n := 0
	for _, m := range messages(s) {
		if m == msg {
			n++
		}
	}
	return n
}

func TestCaptureOnEntryReseedsLog(t *testing.T) {
	p := &recordingPersister{}
	trig, stream := newFixture(p)
	stream.Append("noise", eventlog.Warning)

	res := trig.Observe(frame(), face, t0)
	if res.Event != tracker.SubjectEntered || !res.Captured {
		t.Fatalf("Observe = %+v, want captured entry", res)
	}
	if len(p.paths) != 1 || p.paths[0] != "snapshot/face_detected_2026-03-14_09_26_53.jpg" {
		t.Errorf("persisted paths = %v", p.paths)
	}

	want := []string{"Analysis in progress", "Processing data", "Scan in progress", "Searching database"}
	got := messages(stream)
	if len(got) != len(want) {
		t.Fatalf("log after capture = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("log[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if !trig.AnalysisActive() || !trig.Conditions().EpisodeActive || !trig.Conditions().PresenceActive {
		t.Errorf("flags after capture = %+v", trig.Conditions())
	}
}

func TestAtMostOneCapturePerEpisode(t *testing.T) {
	p := &recordingPersister{}
	trig, _ := newFixture(p)

	now := t0
	for i := 0; i < 300; i++ {
		trig.Tick(now)
		trig.Observe(frame(), face, now)
		now = now.Add(125 * time.Millisecond)
	}
	if len(p.paths) != 1 {
		t.Errorf("captures over a 37s episode = %d, want 1", len(p.paths))
	}
	if trig.Stats().Subjects != 1 {
		t.Errorf("Subjects = %d, want 1", trig.Stats().Subjects)
	}
}

func TestLongWindowShortCooldownCapturesOnce(t *testing.T) {
	p := &recordingPersister{}
	stream := eventlog.NewStream(eventlog.StreamConfig{Capacity: 100, Window: 8, Clock: clock.Fake(t0)})
	cfg := tracker.DefaultConfig()
	cfg.Window = 10 * time.Second
	cfg.Cooldown = 2 * time.Second
	trig := NewTrigger(tracker.New(cfg), stream, p, Config{})

	now := t0
	for i := 0; i <= 90; i++ {
		trig.Tick(now)
		trig.Observe(frame(), face, now)
		now = now.Add(100 * time.Millisecond)
	}
	if len(p.paths) != 1 {
		t.Errorf("captures in one continuous episode = %d, want 1", len(p.paths))
	}
	if n := count(stream, MsgAnalysisComplete); n != 1 {
		t.Errorf("%q logged %d times, want 1", MsgAnalysisComplete, n)
	}
}

func TestAnalysisCompleteExactlyOnce(t *testing.T) {
	trig, stream := newFixture(&recordingPersister{})
	trig.Observe(frame(), face, t0)

	for ms := 0; ms <= 8000; ms += 40 {
		trig.Tick(t0.Add(time.Duration(ms) * time.Millisecond))
	}
	if n := count(stream, MsgAnalysisComplete); n != 1 {
		t.Errorf("%q logged %d times, want 1", MsgAnalysisComplete, n)
	}
	if trig.AnalysisActive() {
		t.Error("analysis still active after cooldown")
	}
}

func TestCooldownBlocksNextEpisode(t *testing.T) {
	p := &recordingPersister{}
	trig, stream := newFixture(p)
	trig.Observe(frame(), face, t0)

	// lose the subject and come back inside the cooldown
	trig.Observe(frame(), nil, t0.Add(time.Second))
	if count(stream, MsgSubjectLost) != 1 {
		t.Fatalf("log = %v, want a loss line", messages(stream))
	}
	trig.Observe(frame(), face, t0.Add(2*time.Second))
	if len(p.paths) != 1 {
		t.Fatalf("captured during cooldown: %v", p.paths)
	}

	// a fresh episode after the cooldown captures again
	trig.Tick(t0.Add(5 * time.Second))
	trig.Observe(frame(), nil, t0.Add(6*time.Second))
	res := trig.Observe(frame(), face, t0.Add(7*time.Second))
	if !res.Captured || len(p.paths) != 2 {
		t.Errorf("second episode result = %+v, paths %v", res, p.paths)
	}
}

func TestFailedCaptureStartsCooldown(t *testing.T) {
	p := &recordingPersister{err: errors.New("disk full")}
	trig, stream := newFixture(p)

	res := trig.Observe(frame(), face, t0)
	if !res.Attempted || res.Captured {
		t.Fatalf("Observe = %+v, want a failed attempt", res)
	}
	if count(stream, MsgCaptureFailed) != 1 {
		t.Errorf("log = %v, want one failure line", messages(stream))
	}
	for _, e := range stream.Entries() {
		if e.Message == MsgCaptureFailed && e.Severity != eventlog.Error {
			t.Errorf("failure severity = %v, want error", e.Severity)
		}
	}

	p.err = nil
	if res := trig.Observe(frame(), face, t0.Add(500*time.Millisecond)); res.Attempted {
		t.Error("retried during cooldown")
	}
	if trig.AnalysisActive() {
		t.Error("analysis active after a failed capture")
	}

	trig.Tick(t0.Add(5 * time.Second))
	if count(stream, MsgAnalysisComplete) != 0 {
		t.Error("analysis complete logged for a failed capture")
	}
	if trig.Stats().Failed != 1 {
		t.Errorf("Failed = %d, want 1", trig.Stats().Failed)
	}
}

func TestContinuingOutsideWindowDoesNotCapture(t *testing.T) {
	p := &recordingPersister{}
	stream := eventlog.NewStream(eventlog.StreamConfig{Clock: clock.Fake(t0)})
	tr := tracker.New(tracker.DefaultConfig())
	trig := NewTrigger(tr, stream, p, Config{})

	// enter while an earlier cooldown is still running
	tr.StartCooldown(t0, false)
	trig.Observe(frame(), face, t0.Add(4*time.Second))
	trig.Tick(t0.Add(5 * time.Second))

	res := trig.Observe(frame(), face, t0.Add(5500*time.Millisecond))
	if res.Attempted {
		t.Errorf("captured %v after the detection window", res.Path)
	}
}

func TestTransitionLines(t *testing.T) {
	trig, stream := newFixture(&recordingPersister{err: errors.New("x")})
	trig.Observe(frame(), face, t0)
	trig.Observe(frame(), []image.Rectangle{image.Rect(400, 100, 500, 200)}, t0.Add(100*time.Millisecond))
	trig.Observe(frame(), nil, t0.Add(1200*time.Millisecond))

	want := map[string]eventlog.Severity{
		MsgSubjectDetected: eventlog.Info,
		MsgNewSubject:      eventlog.Warning,
		MsgSubjectLost:     eventlog.Notice,
	}
	for _, e := range stream.Entries() {
		if sev, ok := want[e.Message]; ok {
			if e.Severity != sev {
				t.Errorf("%q severity = %v, want %v", e.Message, e.Severity, sev)
			}
			delete(want, e.Message)
		}
	}
	if len(want) != 0 {
		t.Errorf("missing lines %v in %v", want, messages(stream))
	}
	if trig.Conditions().PresenceActive {
		t.Error("presence still published after loss")
	}
}

func TestFilename(t *testing.T) {
	got := Filename("snapshot", "face_detected_", time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local))
	if got != "snapshot/face_detected_2024-01-02_03_04_05.jpg" {
		t.Errorf("Filename = %q", got)
	}
}
