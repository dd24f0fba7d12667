package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/dj-oyu/presence-hud/internal/logger"
)

// ErrInvalid wraps every validation failure returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Config defines the runtime configuration for the presence HUD.
type Config struct {
	Camera      CameraConfig    `yaml:"camera"`
	Detection   DetectionConfig `yaml:"detection"`
	Capture     CaptureConfig   `yaml:"capture"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	EventLog    EventLogConfig  `yaml:"event_log"`
	Display     DisplayConfig   `yaml:"display"`
	MetricsAddr string          `yaml:"metrics_addr"` // empty disables the /metrics listener
	LogLevel    logger.LogLevel `yaml:"log_level"`
	LogColor    bool            `yaml:"log_color"`
}

// CameraConfig selects and sizes the capture device.
type CameraConfig struct {
	Device int `yaml:"device"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	FPS    int `yaml:"fps"`
}

// DetectionConfig holds the face detector parameters and the presence
// tracker thresholds.
type DetectionConfig struct {
	CascadePath       string        `yaml:"cascade_path"`
	ScaleFactor       float64       `yaml:"scale_factor"`
	MinNeighbors      int           `yaml:"min_neighbors"`
	MinSize           int           `yaml:"min_size"`
	Every             int           `yaml:"every"`              // run the detector every Nth frame
	PositionThreshold float64       `yaml:"position_threshold"` // px between centers for a new subject
	NoFaceFrames      int           `yaml:"no_face_frames"`
	LossTimeout       time.Duration `yaml:"loss_timeout"`
	Window            time.Duration `yaml:"window"`
	Cooldown          time.Duration `yaml:"cooldown"`
}

// CaptureConfig controls where snapshots land.
type CaptureConfig struct {
	Dir    string `yaml:"dir"`
	Prefix string `yaml:"prefix"`
}

// TelemetryConfig controls the system metrics and reachability cadences.
type TelemetryConfig struct {
	MetricsInterval time.Duration `yaml:"metrics_interval"`
	ProbeInterval   time.Duration `yaml:"probe_interval"`
	ProbeAddress    string        `yaml:"probe_address"`
	ProbeTimeout    time.Duration `yaml:"probe_timeout"`
	ProcRoot        string        `yaml:"proc_root"`
	BatteryPath     string        `yaml:"battery_path"`
	StoragePath     string        `yaml:"storage_path"`
}

// EventLogConfig bounds the HUD event log and paces the cosmetic generator.
type EventLogConfig struct {
	Capacity      int           `yaml:"capacity"`
	Window        int           `yaml:"window"`
	MemoryCeiling ByteSize      `yaml:"memory_ceiling"`
	MinInterval   time.Duration `yaml:"min_interval"`
	MaxInterval   time.Duration `yaml:"max_interval"`
}

// DisplayConfig controls frame pacing and the preview window.
type DisplayConfig struct {
	TargetFPS  int    `yaml:"target_fps"`
	Headless   bool   `yaml:"headless"`
	WindowName string `yaml:"window_name"`
}

// Default returns the built-in constants.
func Default() Config {
	return Config{
		Camera: CameraConfig{
			Device: 0,
			Width:  640,
			Height: 480,
			FPS:    30,
		},
		Detection: DetectionConfig{
			CascadePath:       "/usr/share/opencv4/haarcascades/haarcascade_frontalface_default.xml",
			ScaleFactor:       1.1,
			MinNeighbors:      4,
			MinSize:           30,
			Every:             3,
			PositionThreshold: 100,
			NoFaceFrames:      10,
			LossTimeout:       time.Second,
			Window:            time.Second,
			Cooldown:          5 * time.Second,
		},
		Capture: CaptureConfig{
			Dir:    "snapshot",
			Prefix: "face_detected_",
		},
		Telemetry: TelemetryConfig{
			MetricsInterval: time.Second,
			ProbeInterval:   5 * time.Second,
			ProbeAddress:    "google.com:443",
			ProbeTimeout:    3 * time.Second,
			ProcRoot:        "/proc",
			BatteryPath:     "/sys/class/power_supply/BAT0/capacity",
			StoragePath:     "/",
		},
		EventLog: EventLogConfig{
			Capacity:      100,
			Window:        8,
			MemoryCeiling: 300 * humanize.MiByte,
			MinInterval:   800 * time.Millisecond,
			MaxInterval:   2300 * time.Millisecond,
		},
		Display: DisplayConfig{
			TargetFPS:  24,
			WindowName: "Face Detection",
		},
		LogLevel: logger.INFO,
		LogColor: true,
	}
}

// Load reads a YAML file on top of Default and validates the result. An
// empty path returns the validated defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, Validate(&cfg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func Validate(cfg *Config) error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(cfg.Camera.Width > 0 && cfg.Camera.Height > 0, "camera size must be positive, got %dx%d", cfg.Camera.Width, cfg.Camera.Height)
	check(cfg.Detection.CascadePath != "", "detection.cascade_path is required")
	check(cfg.Detection.ScaleFactor > 1, "detection.scale_factor must be > 1, got %v", cfg.Detection.ScaleFactor)
	check(cfg.Detection.Every >= 1, "detection.every must be >= 1, got %d", cfg.Detection.Every)
	check(cfg.Detection.PositionThreshold > 0, "detection.position_threshold must be positive")
	check(cfg.Detection.NoFaceFrames >= 1, "detection.no_face_frames must be >= 1")
	check(cfg.Detection.LossTimeout > 0, "detection.loss_timeout must be positive")
	check(cfg.Detection.Window > 0, "detection.window must be positive")
	check(cfg.Detection.Cooldown > 0, "detection.cooldown must be positive")
	check(cfg.Capture.Dir != "", "capture.dir is required")
	check(cfg.Telemetry.MetricsInterval > 0, "telemetry.metrics_interval must be positive")
	check(cfg.Telemetry.ProbeInterval > 0, "telemetry.probe_interval must be positive")
	check(cfg.EventLog.Capacity >= 1, "event_log.capacity must be >= 1")
	check(cfg.EventLog.Window >= 1, "event_log.window must be >= 1")
	check(cfg.EventLog.MinInterval > 0 && cfg.EventLog.MaxInterval >= cfg.EventLog.MinInterval,
		"event_log interval range [%v, %v] is invalid", cfg.EventLog.MinInterval, cfg.EventLog.MaxInterval)
	check(cfg.Display.TargetFPS > 0, "display.target_fps must be positive")

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// FrameBudget is the time one frame iteration may take at the target rate.
func (d DisplayConfig) FrameBudget() time.Duration {
	return time.Second / time.Duration(d.TargetFPS)
}
