package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dj-oyu/presence-hud/internal/capture"
	"github.com/dj-oyu/presence-hud/internal/eventlog"
	"github.com/dj-oyu/presence-hud/internal/telemetry"
)

// Metrics holds all application metrics
type Metrics struct {
	// Frame loop counters
	FramesRead     atomic.Uint64
	FramesRendered atomic.Uint64
	DetectorRuns   atomic.Uint64
	FacesDetected  atomic.Uint64
	DisplayErrors  atomic.Uint64

	// Latency tracking
	FrameLatencyMs  atomic.Uint64 // Last frame processing time in ms
	DetectLatencyMs atomic.Uint64 // Last detector run in ms

	// Prometheus collectors
	registry *prometheus.Registry
}

// Sources are read at scrape time. Nil sources are not exported.
type Sources struct {
	Telemetry func() telemetry.Snapshot
	EventLog  func() eventlog.StreamStats
	Capture   func() capture.Stats
}

// New creates a new Metrics instance with Prometheus collectors
func New(src Sources) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	// Register Prometheus gauges
	m.registerFrameMetrics()
	m.registerSourceMetrics(src)

	return m
}

func (m *Metrics) gauge(name, help string, fn func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Name: name, Help: help},
		fn,
	))
}

// registerFrameMetrics registers the frame loop counters
func (m *Metrics) registerFrameMetrics() {
	m.gauge("hud_frames_read_total", "Total frames read from the camera",
		func() float64 { return float64(m.FramesRead.Load()) })
	m.gauge("hud_frames_rendered_total", "Total frames rendered with the overlay",
		func() float64 { return float64(m.FramesRendered.Load()) })
	m.gauge("hud_detector_runs_total", "Total face detector invocations",
		func() float64 { return float64(m.DetectorRuns.Load()) })
	m.gauge("hud_faces_detected_total", "Total face boxes returned by the detector",
		func() float64 { return float64(m.FacesDetected.Load()) })
	m.gauge("hud_display_errors_total", "Total preview window errors",
		func() float64 { return float64(m.DisplayErrors.Load()) })
	m.gauge("hud_frame_latency_ms", "Processing time of the last frame",
		func() float64 { return float64(m.FrameLatencyMs.Load()) })
	m.gauge("hud_detect_latency_ms", "Duration of the last detector run",
		func() float64 { return float64(m.DetectLatencyMs.Load()) })
}

// registerSourceMetrics registers gauges backed by other components
func (m *Metrics) registerSourceMetrics(src Sources) {
	if src.Telemetry != nil {
		snap := src.Telemetry
		m.gauge("hud_cpu_usage_percent", "Host CPU usage",
			func() float64 { return snap().CPUUsage })
		m.gauge("hud_ram_usage_percent", "Host memory usage",
			func() float64 { return snap().RAMUsage })
		m.gauge("hud_storage_usage_percent", "Root filesystem usage",
			func() float64 { return snap().StorageUsage })
		m.gauge("hud_fps", "Measured frame rate",
			func() float64 { return snap().FPS })
		m.gauge("hud_network_connected", "1 when the last reachability probe succeeded",
			func() float64 {
				if snap().Net == telemetry.Connected {
					return 1
				}
				return 0
			})
	}

	if src.EventLog != nil {
		stats := src.EventLog
		m.gauge("hud_log_appended_total", "Event log entries admitted",
			func() float64 { return float64(stats().Appended) })
		m.gauge("hud_log_dropped_total", "Event log entries rejected at capacity",
			func() float64 { return float64(stats().Dropped) })
		m.gauge("hud_log_evicted_total", "Event log entries evicted under memory pressure",
			func() float64 { return float64(stats().Evicted) })
	}

	if src.Capture != nil {
		stats := src.Capture
		m.gauge("hud_captures_total", "Snapshots written",
			func() float64 { return float64(stats().Captured) })
		m.gauge("hud_capture_failures_total", "Snapshot writes that failed",
			func() float64 { return float64(stats().Failed) })
		m.gauge("hud_subjects_total", "Presence episodes started",
			func() float64 { return float64(stats().Subjects) })
	}
}

// UpdateFrameLatency records how long the last frame took
func (m *Metrics) UpdateFrameLatency(d time.Duration) {
	m.FrameLatencyMs.Store(uint64(d.Milliseconds()))
}

// UpdateDetectLatency records how long the last detector run took
func (m *Metrics) UpdateDetectLatency(d time.Duration) {
	m.DetectLatencyMs.Store(uint64(d.Milliseconds()))
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
