// Package engine runs the frame loop and the background producers that feed
// the HUD, and owns their shutdown order.
package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dj-oyu/presence-hud/internal/capture"
	"github.com/dj-oyu/presence-hud/internal/clock"
	"github.com/dj-oyu/presence-hud/internal/eventlog"
	"github.com/dj-oyu/presence-hud/internal/hud"
	"github.com/dj-oyu/presence-hud/internal/logger"
	"github.com/dj-oyu/presence-hud/internal/metrics"
	"github.com/dj-oyu/presence-hud/internal/telemetry"
	"github.com/dj-oyu/presence-hud/pkg/types"
)

// FrameSource delivers camera frames. Read errors end the run.
type FrameSource interface {
	Read() (*types.Frame, error)
	Close() error
}

// FaceDetector returns face boxes for a frame.
type FaceDetector interface {
	Detect(f *types.Frame) []image.Rectangle
}

// Display shows rendered frames and reports a quit request.
type Display interface {
	Show(img *image.RGBA) (quit bool, err error)
	Close() error
}

// Config paces the frame loop.
type Config struct {
	TargetFPS   int    // default 24
	DetectEvery int    // run the detector every Nth frame, default 3
	MetricsAddr string // empty disables the /metrics listener
	Clock       clock.Clock
}

// Components are the collaborators wired by main.
type Components struct {
	Source    FrameSource
	Detector  FaceDetector
	Display   Display // nil runs headless
	Trigger   *capture.Trigger
	Stream    *eventlog.Stream
	Telemetry *telemetry.Aggregator
	Generator *eventlog.Generator
	Renderer  *hud.Renderer
}

// Engine coordinates one run of the application.
type Engine struct {
	cfg     Config
	c       Components
	metrics *metrics.Metrics
	log     *logger.Module

	// owned by the frame loop
	frames uint64
	faces  []image.Rectangle
	view   *image.RGBA
	fps    fpsMeter
}

// New validates the components and registers their metrics.
func New(cfg Config, c Components) (*Engine, error) {
	if c.Source == nil || c.Detector == nil || c.Trigger == nil || c.Stream == nil ||
		c.Telemetry == nil || c.Generator == nil || c.Renderer == nil {
		return nil, errors.New("engine: missing component")
	}
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = 24
	}
	if cfg.DetectEvery <= 0 {
		cfg.DetectEvery = 3
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	m := metrics.New(metrics.Sources{
		Telemetry: c.Telemetry.Snapshot,
		EventLog:  c.Stream.Stats,
		Capture:   c.Trigger.Stats,
	})
	return &Engine{cfg: cfg, c: c, metrics: m, log: logger.For("Engine")}, nil
}

// Metrics exposes the engine's collectors.
func (e *Engine) Metrics() *metrics.Metrics { return e.metrics }

// Run seeds the log, starts the background producers and runs the frame
// loop on the calling goroutine until ctx is cancelled, the user quits or
// the camera fails. Every background goroutine has exited before the camera
// and the window are closed.
func (e *Engine) Run(ctx context.Context) error {
	e.c.Stream.Reset(eventlog.StartupSeeds...)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.c.Telemetry.Run(gctx) })
	g.Go(func() error { return e.c.Generator.Run(gctx) })
	if e.cfg.MetricsAddr != "" {
		g.Go(func() error {
			e.log.Infof("metrics listening on %s", e.cfg.MetricsAddr)
			if err := e.metrics.Serve(gctx, e.cfg.MetricsAddr); err != nil {
				e.log.Errorf("metrics server: %v", err)
			}
			return nil
		})
	}

	e.log.Infof("frame loop started (%d fps target, detect every %d frames)", e.cfg.TargetFPS, e.cfg.DetectEvery)
	loopErr := e.frameLoop(gctx)
	cancel()

	waitErr := g.Wait()
	e.log.Debugf("background goroutines joined")

	e.c.Stream.Clear()
	closeErr := e.teardown()

	return errors.Join(loopErr, waitErr, closeErr)
}

func (e *Engine) teardown() error {
	var errs []error
	if err := e.c.Source.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close camera: %w", err))
	}
	if e.c.Display != nil {
		if err := e.c.Display.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close window: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) frameLoop(ctx context.Context) error {
	budget := time.Second / time.Duration(e.cfg.TargetFPS)
	clk := e.cfg.Clock

	for ctx.Err() == nil {
		start := clk.Now()

		quit, err := e.step(start)
		if err != nil {
			return err
		}
		if quit {
			e.log.Infof("quit requested")
			return nil
		}

		elapsed := clk.Now().Sub(start)
		e.metrics.UpdateFrameLatency(elapsed)
		if clock.Sleep(ctx, clk, budget-elapsed) != nil {
			break
		}
	}
	e.log.Infof("frame loop stopped after %d frames", e.frames)
	return nil
}

// step processes one frame: acquire, cooldown check, detect every Nth
// frame, track and trigger, compose and show.
func (e *Engine) step(now time.Time) (quit bool, err error) {
	frame, err := e.c.Source.Read()
	if err != nil {
		return false, fmt.Errorf("frame loop: %w", err)
	}
	e.frames++
	e.metrics.FramesRead.Add(1)

	if fps, ok := e.fps.tick(now); ok {
		e.c.Telemetry.SetFPS(fps)
	}

	e.c.Trigger.Tick(now)

	if e.frames%uint64(e.cfg.DetectEvery) == 0 {
		detectStart := e.cfg.Clock.Now()
		e.faces = e.c.Detector.Detect(frame)
		e.metrics.UpdateDetectLatency(e.cfg.Clock.Now().Sub(detectStart))
		e.metrics.DetectorRuns.Add(1)
		e.metrics.FacesDetected.Add(uint64(len(e.faces)))

		e.c.Trigger.Observe(frame, e.faces, now)
	}

	view := e.compose(frame)
	e.metrics.FramesRendered.Add(1)

	if e.c.Display == nil {
		return false, nil
	}
	quit, err = e.c.Display.Show(view)
	if err != nil {
		e.metrics.DisplayErrors.Add(1)
		e.log.Warnf("display: %v", err)
		return false, nil
	}
	return quit, nil
}

// compose copies frame into the reusable view buffer and renders the HUD on
// the copy, leaving frame untouched for persistence.
func (e *Engine) compose(frame *types.Frame) *image.RGBA {
	b := frame.Image.Bounds()
	if e.view == nil || e.view.Bounds() != b {
		e.view = image.NewRGBA(b)
	}
	draw.Draw(e.view, b, frame.Image, b.Min, draw.Src)

	e.c.Renderer.Render(e.view, hud.Model{
		Stats:          e.c.Telemetry.Snapshot(),
		Log:            e.c.Stream.Window(),
		Faces:          e.faces,
		AnalysisActive: e.c.Trigger.AnalysisActive(),
	})
	return e.view
}

// fpsMeter averages the frame rate over windows of at least one second.
type fpsMeter struct {
	start  time.Time
	frames int
}

func (m *fpsMeter) tick(now time.Time) (float64, bool) {
	if m.start.IsZero() {
		m.start = now
		return 0, false
	}
	m.frames++
	elapsed := now.Sub(m.start)
	if elapsed < time.Second {
		return 0, false
	}
	fps := float64(m.frames) / elapsed.Seconds()
	m.start = now
	m.frames = 0
	return fps, true
}
