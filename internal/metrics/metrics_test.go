package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dj-oyu/presence-hud/internal/capture"
	"github.com/dj-oyu/presence-hud/internal/eventlog"
	"github.com/dj-oyu/presence-hud/internal/telemetry"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestHandlerExportsFrameCounters(t *testing.T) {
	m := New(Sources{})
	m.FramesRead.Add(3)
	m.DetectorRuns.Add(1)
	m.UpdateFrameLatency(42 * time.Millisecond)

	body := scrape(t, m)
	for _, want := range []string{
		"hud_frames_read_total 3",
		"hud_detector_runs_total 1",
		"hud_frame_latency_ms 42",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape missing %q", want)
		}
	}
	if strings.Contains(body, "hud_cpu_usage_percent") {
		t.Error("telemetry gauges exported without a source")
	}
}

func TestHandlerExportsSources(t *testing.T) {
	m := New(Sources{
		Telemetry: func() telemetry.Snapshot {
			return telemetry.Snapshot{CPUUsage: 50, FPS: 24, Net: telemetry.Connected}
		},
		EventLog: func() eventlog.StreamStats { return eventlog.StreamStats{Appended: 7, Dropped: 2, Evicted: 1} },
		Capture:  func() capture.Stats { return capture.Stats{Captured: 1, Failed: 4, Subjects: 2} },
	})

	body := scrape(t, m)
	for _, want := range []string{
		"hud_cpu_usage_percent 50",
		"hud_fps 24",
		"hud_network_connected 1",
		"hud_log_dropped_total 2",
		"hud_log_evicted_total 1",
		"hud_captures_total 1",
		"hud_capture_failures_total 4",
		"hud_subjects_total 2",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape missing %q", want)
		}
	}
}
