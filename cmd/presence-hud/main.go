package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/dustin/go-humanize"
	flag "github.com/spf13/pflag"

	"github.com/dj-oyu/presence-hud/internal/capture"
	"github.com/dj-oyu/presence-hud/internal/config"
	"github.com/dj-oyu/presence-hud/internal/engine"
	"github.com/dj-oyu/presence-hud/internal/eventlog"
	"github.com/dj-oyu/presence-hud/internal/hud"
	"github.com/dj-oyu/presence-hud/internal/logger"
	"github.com/dj-oyu/presence-hud/internal/telemetry"
	"github.com/dj-oyu/presence-hud/internal/tracker"
	"github.com/dj-oyu/presence-hud/internal/vision"
)

func init() {
	// HighGUI must be driven from the main thread; the frame loop runs on
	// the main goroutine.
	runtime.LockOSThread()
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("presence-hud", flag.ContinueOnError)
	opts := registerFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	cfg, err := loadConfig(fs, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		return 2
	}

	logger.Init(cfg.LogLevel, os.Stderr, cfg.LogColor)
	logger.Info("Main", "Presence HUD starting...")
	logger.Info("Main", "Log level: %s", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runApp(ctx, cfg); err != nil {
		logger.Error("Main", "%v", err)
		return 1
	}
	logger.Info("Main", "Stopped")
	return 0
}

// runApp opens the hardware, wires the components and blocks until the
// engine returns.
func runApp(ctx context.Context, cfg config.Config) error {
	detector, err := vision.NewFaceDetector(vision.CascadeConfig{
		Path:         cfg.Detection.CascadePath,
		ScaleFactor:  cfg.Detection.ScaleFactor,
		MinNeighbors: cfg.Detection.MinNeighbors,
		MinSize:      cfg.Detection.MinSize,
	})
	if err != nil {
		return err
	}
	defer detector.Close()

	camera, err := vision.OpenCamera(vision.CameraConfig{
		Device: cfg.Camera.Device,
		Width:  cfg.Camera.Width,
		Height: cfg.Camera.Height,
		FPS:    cfg.Camera.FPS,
	})
	if err != nil {
		return err
	}

	var display engine.Display
	if !cfg.Display.Headless {
		display = vision.NewWindow(cfg.Display.WindowName)
	}

	stream := eventlog.NewStream(eventlog.StreamConfig{
		Capacity:      cfg.EventLog.Capacity,
		Window:        cfg.EventLog.Window,
		MemoryCeiling: uint64(cfg.EventLog.MemoryCeiling),
		Gauge:         eventlog.ProcessMemory{},
	})

	trigger := capture.NewTrigger(
		tracker.New(tracker.Config{
			PositionThreshold: cfg.Detection.PositionThreshold,
			NoFaceFrames:      cfg.Detection.NoFaceFrames,
			LossTimeout:       cfg.Detection.LossTimeout,
			Window:            cfg.Detection.Window,
			Cooldown:          cfg.Detection.Cooldown,
		}),
		stream,
		vision.JPEGWriter{},
		capture.Config{Dir: cfg.Capture.Dir, Prefix: cfg.Capture.Prefix},
	)

	aggregator := telemetry.NewAggregator(
		telemetry.ProcSource{
			ProcRoot:    cfg.Telemetry.ProcRoot,
			BatteryPath: cfg.Telemetry.BatteryPath,
			StoragePath: cfg.Telemetry.StoragePath,
		},
		telemetry.DialProbe{Address: cfg.Telemetry.ProbeAddress, Timeout: cfg.Telemetry.ProbeTimeout},
		telemetry.Config{
			MetricsInterval: cfg.Telemetry.MetricsInterval,
			ProbeInterval:   cfg.Telemetry.ProbeInterval,
		},
	)

	generator := eventlog.NewGenerator(stream, trigger, eventlog.GeneratorConfig{
		MinInterval: cfg.EventLog.MinInterval,
		MaxInterval: cfg.EventLog.MaxInterval,
	})

	eng, err := engine.New(engine.Config{
		TargetFPS:   cfg.Display.TargetFPS,
		DetectEvery: cfg.Detection.Every,
		MetricsAddr: cfg.MetricsAddr,
	}, engine.Components{
		Source:    camera,
		Detector:  detector,
		Display:   display,
		Trigger:   trigger,
		Stream:    stream,
		Telemetry: aggregator,
		Generator: generator,
		Renderer:  hud.NewRenderer(hud.DefaultLayout()),
	})
	if err != nil {
		camera.Close()
		if display != nil {
			display.Close()
		}
		return err
	}

	logger.Info("Main", "  Camera: device %d, %dx%d", cfg.Camera.Device, cfg.Camera.Width, cfg.Camera.Height)
	logger.Info("Main", "  Frame budget: %v (detect every %d frames)", cfg.Display.FrameBudget(), cfg.Detection.Every)
	logger.Info("Main", "  Snapshots: %s", cfg.Capture.Dir)
	logger.Info("Main", "  Event log: %d entries, memory ceiling %s",
		cfg.EventLog.Capacity, humanize.IBytes(uint64(cfg.EventLog.MemoryCeiling)))
	if cfg.Display.Headless {
		logger.Info("Main", "  Display: headless")
	}

	err = eng.Run(ctx)

	stats := trigger.Stats()
	logStats := stream.Stats()
	logger.Info("Main", "Session: %d subjects, %d captures, %d failed; log dropped %d, evicted %d",
		stats.Subjects, stats.Captured, stats.Failed, logStats.Dropped, logStats.Evicted)
	return err
}
