package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dj-oyu/presence-hud/internal/logger"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := Validate(&cfg); err != nil {
		t.Fatalf("Default() does not validate: %v", err)
	}
	if cfg.EventLog.MemoryCeiling != 300*1024*1024 {
		t.Errorf("MemoryCeiling = %d, want 300 MiB", cfg.EventLog.MemoryCeiling)
	}
	if got := cfg.Display.FrameBudget(); got != time.Second/24 {
		t.Errorf("FrameBudget() = %v, want %v", got, time.Second/24)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if cfg.Detection.Cooldown != 5*time.Second {
		t.Errorf("Cooldown = %v, want 5s", cfg.Detection.Cooldown)
	}
}

func TestLoadOverlaysYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hud.yaml")
	content := `
log_level: debug
detection:
  cooldown: 2s
  every: 5
event_log:
  capacity: 40
  memory_ceiling: 64MiB
telemetry:
  probe_address: "1.1.1.1:53"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != logger.DEBUG {
		t.Errorf("LogLevel = %v, want DEBUG", cfg.LogLevel)
	}
	if cfg.Detection.Cooldown != 2*time.Second || cfg.Detection.Every != 5 {
		t.Errorf("detection overlay not applied: %+v", cfg.Detection)
	}
	if cfg.EventLog.Capacity != 40 || cfg.EventLog.MemoryCeiling != 64*1024*1024 {
		t.Errorf("event log overlay not applied: %+v", cfg.EventLog)
	}
	// untouched fields keep their defaults
	if cfg.EventLog.Window != 8 {
		t.Errorf("Window = %d, want default 8", cfg.EventLog.Window)
	}
	if cfg.Telemetry.ProbeAddress != "1.1.1.1:53" {
		t.Errorf("ProbeAddress = %q", cfg.Telemetry.ProbeAddress)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("detection:\n  every: 0\nevent_log:\n  capacity: 0\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := Load(path)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("Load error = %v, want ErrInvalid", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestByteSizeSet(t *testing.T) {
	var b ByteSize
	if err := b.Set("1.5 GiB"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if b != ByteSize(1536*1024*1024) {
		t.Errorf("got %d", b)
	}
	if err := b.Set("lots"); err == nil {
		t.Error("expected parse error")
	}
}
