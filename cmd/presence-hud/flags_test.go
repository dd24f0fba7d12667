package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	flag "github.com/spf13/pflag"

	"github.com/dj-oyu/presence-hud/internal/config"
	"github.com/dj-oyu/presence-hud/internal/logger"
)

func parse(t *testing.T, args ...string) (config.Config, error) {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	opts := registerFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return loadConfig(fs, opts)
}

func TestFlagsOverrideDefaults(t *testing.T) {
	cfg, err := parse(t, "--headless", "--log-level=debug", "--detect-every=5", "--log-memory-ceiling=64MiB")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if !cfg.Display.Headless || cfg.LogLevel != logger.DEBUG || cfg.Detection.Every != 5 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.EventLog.MemoryCeiling != 64<<20 {
		t.Errorf("MemoryCeiling = %d", cfg.EventLog.MemoryCeiling)
	}
	if cfg.MetricsAddr != "" {
		t.Errorf("MetricsAddr = %q, want disabled by default", cfg.MetricsAddr)
	}
}

func TestUnsetFlagsKeepFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hud.yaml")
	if err := os.WriteFile(path, []byte("detection:\n  every: 4\nmetrics_addr: \":9100\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := parse(t, "-c", path, "--fps=12")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Detection.Every != 4 || cfg.MetricsAddr != ":9100" || cfg.Display.TargetFPS != 12 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestInvalidFlagValues(t *testing.T) {
	if _, err := parse(t, "--detect-every=0"); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("detect-every=0: %v, want ErrInvalid", err)
	}
	if _, err := parse(t, "--log-level=loud"); err == nil {
		t.Error("accepted an unknown log level")
	}
}
