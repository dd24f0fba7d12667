package main

import (
	flag "github.com/spf13/pflag"

	"github.com/dj-oyu/presence-hud/internal/config"
	"github.com/dj-oyu/presence-hud/internal/logger"
)

// cliOptions mirrors the overridable configuration. Only flags the user set
// explicitly override the config file.
type cliOptions struct {
	configPath    string
	logLevel      string
	logColor      bool
	headless      bool
	metricsAddr   string
	device        int
	cascade       string
	snapshotDir   string
	detectEvery   int
	targetFPS     int
	probeAddress  string
	memoryCeiling config.ByteSize
}

func registerFlags(fs *flag.FlagSet) *cliOptions {
	def := config.Default()
	o := &cliOptions{memoryCeiling: def.EventLog.MemoryCeiling}

	fs.StringVarP(&o.configPath, "config", "c", "", "YAML configuration file")
	fs.StringVar(&o.logLevel, "log-level", def.LogLevel.String(), "Log level (debug, info, warn, error, silent)")
	fs.BoolVar(&o.logColor, "log-color", def.LogColor, "Enable colored log output")
	fs.BoolVar(&o.headless, "headless", def.Display.Headless, "Run without the preview window")
	fs.StringVar(&o.metricsAddr, "metrics-addr", def.MetricsAddr, "Serve Prometheus metrics on this address (disabled when empty)")
	fs.IntVar(&o.device, "device", def.Camera.Device, "Camera device index")
	fs.StringVar(&o.cascade, "cascade", def.Detection.CascadePath, "Haar cascade XML file")
	fs.StringVar(&o.snapshotDir, "snapshot-dir", def.Capture.Dir, "Directory for captured images")
	fs.IntVar(&o.detectEvery, "detect-every", def.Detection.Every, "Run face detection every Nth frame")
	fs.IntVar(&o.targetFPS, "fps", def.Display.TargetFPS, "Target frame loop rate")
	fs.StringVar(&o.probeAddress, "probe-address", def.Telemetry.ProbeAddress, "host:port dialed to check network reachability")
	fs.Var(&o.memoryCeiling, "log-memory-ceiling", "Process memory above which old log entries are evicted")
	return o
}

// loadConfig reads the config file and applies explicitly set flags.
func loadConfig(fs *flag.FlagSet, o *cliOptions) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}

	if fs.Changed("log-level") {
		level, err := logger.ParseLevel(o.logLevel)
		if err != nil {
			return cfg, err
		}
		cfg.LogLevel = level
	}
	if fs.Changed("log-color") {
		cfg.LogColor = o.logColor
	}
	if fs.Changed("headless") {
		cfg.Display.Headless = o.headless
	}
	if fs.Changed("metrics-addr") {
		cfg.MetricsAddr = o.metricsAddr
	}
	if fs.Changed("device") {
		cfg.Camera.Device = o.device
	}
	if fs.Changed("cascade") {
		cfg.Detection.CascadePath = o.cascade
	}
	if fs.Changed("snapshot-dir") {
		cfg.Capture.Dir = o.snapshotDir
	}
	if fs.Changed("detect-every") {
		cfg.Detection.Every = o.detectEvery
	}
	if fs.Changed("fps") {
		cfg.Display.TargetFPS = o.targetFPS
	}
	if fs.Changed("probe-address") {
		cfg.Telemetry.ProbeAddress = o.probeAddress
	}
	if fs.Changed("log-memory-ceiling") {
		cfg.EventLog.MemoryCeiling = o.memoryCeiling
	}

	return cfg, config.Validate(&cfg)
}
