package hud

import (
	"image"
	"image/color"
	"testing"

	"github.com/dj-oyu/presence-hud/internal/eventlog"
	"github.com/dj-oyu/presence-hud/internal/telemetry"
)

func filled(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestTint(t *testing.T) {
	tests := []struct {
		name   string
		active bool
		in     color.RGBA
		want   color.RGBA
	}{
		{"normal boosts red", false, color.RGBA{100, 100, 100, 255}, color.RGBA{150, 50, 50, 255}},
		{"analysis boosts blue", true, color.RGBA{100, 100, 100, 255}, color.RGBA{50, 50, 150, 255}},
		{"boost saturates", false, color.RGBA{200, 10, 10, 255}, color.RGBA{255, 5, 5, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := filled(4, 3, tt.in)
			Tint(img, tt.active)
			if got := img.RGBAAt(3, 2); got != tt.want {
				t.Errorf("pixel = %v, want %v", got, tt.want)
			}
		})
	}
}

func contains(img *image.RGBA, r image.Rectangle, c color.RGBA) bool {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.RGBAAt(x, y) == c {
				return true
			}
		}
	}
	return false
}

func TestRenderDrawsOverlay(t *testing.T) {
	img := filled(640, 480, color.RGBA{0, 0, 0, 255})
	face := image.Rect(100, 100, 200, 200)
	m := Model{
		Stats: telemetry.Snapshot{FPS: 24, Net: telemetry.Connected, Battery: "Unknown", DateTime: "2026-03-14 09:26:53"},
		Log: []eventlog.Entry{
			{Timestamp: "09:26:53.589", Message: "Subject lost from view", Severity: eventlog.Notice},
			{Timestamp: "09:26:54.001", Message: "Database access failed", Severity: eventlog.Error},
		},
		Faces: []image.Rectangle{face},
	}
	NewRenderer(DefaultLayout()).Render(img, m)

	if got := img.RGBAAt(150, 100); got != boxColor {
		t.Errorf("face box edge = %v, want %v", got, boxColor)
	}
	if !contains(img, image.Rect(0, 0, 200, 110), textColor) {
		t.Error("stats block not drawn")
	}
	panel := image.Rect(640-330, 240, 640, 480)
	for _, c := range []color.RGBA{NormalPalette.Header, NormalPalette.Color(eventlog.Notice), NormalPalette.Color(eventlog.Error)} {
		if !contains(img, panel, c) {
			t.Errorf("log panel missing colour %v", c)
		}
	}
	if contains(img, image.Rect(480, 0, 640, 25), statusColor) {
		t.Error("status text drawn while no analysis is active")
	}
}

func TestRenderAnalysisMode(t *testing.T) {
	img := filled(640, 480, color.RGBA{0, 0, 0, 255})
	m := Model{
		Log:            []eventlog.Entry{{Timestamp: "09:26:53.589", Message: "Analysis in progress", Severity: eventlog.Error}},
		AnalysisActive: true,
	}
	NewRenderer(DefaultLayout()).Render(img, m)

	if !contains(img, image.Rect(480, 0, 640, 25), statusColor) {
		t.Error("ANALYSIS ACTIVE not drawn")
	}
	if !contains(img, image.Rect(310, 240, 640, 480), AnalysisPalette.Header) {
		t.Error("log header not in analysis colour")
	}
}

func TestRenderSmallFrameDoesNotPanic(t *testing.T) {
	img := filled(32, 24, color.RGBA{10, 10, 10, 255})
	NewRenderer(DefaultLayout()).Render(img, Model{
		Faces: []image.Rectangle{image.Rect(-10, -10, 100, 100)},
		Log:   []eventlog.Entry{{Message: "x"}},
	})
}

func TestPaletteColorOutOfRange(t *testing.T) {
	if got := NormalPalette.Color(eventlog.Severity(9)); got != NormalPalette.Color(eventlog.Info) {
		t.Errorf("Color(9) = %v, want info colour", got)
	}
}

func TestLogLine(t *testing.T) {
	e := eventlog.Entry{Timestamp: "09:26:53.589", Message: "Scan: Active"}
	if got := LogLine(e); got != "[09:26:53.589] Scan: Active" {
		t.Errorf("LogLine = %q", got)
	}
}
