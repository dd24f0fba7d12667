// Package hud draws the surveillance overlay onto a frame.
package hud

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/dj-oyu/presence-hud/internal/eventlog"
	"github.com/dj-oyu/presence-hud/internal/telemetry"
)

// Model is everything one rendered frame shows. The frame loop composes it
// from published copies only.
type Model struct {
	Stats          telemetry.Snapshot
	Log            []eventlog.Entry
	Faces          []image.Rectangle
	AnalysisActive bool
}

// Palette colours the log panel.
type Palette struct {
	Header   color.RGBA
	Severity [4]color.RGBA // indexed by eventlog.Severity
}

var (
	// NormalPalette is used while no analysis is running.
	NormalPalette = Palette{
		Header: color.RGBA{50, 230, 50, 255},
		Severity: [4]color.RGBA{
			eventlog.Info:    {50, 230, 50, 255},
			eventlog.Notice:  {200, 220, 80, 255},
			eventlog.Warning: {255, 200, 50, 255},
			eventlog.Error:   {255, 50, 50, 255},
		},
	}
	// AnalysisPalette shifts every severity towards red.
	AnalysisPalette = Palette{
		Header: color.RGBA{255, 50, 50, 255},
		Severity: [4]color.RGBA{
			eventlog.Info:    {200, 100, 100, 255},
			eventlog.Notice:  {220, 120, 50, 255},
			eventlog.Warning: {255, 70, 30, 255},
			eventlog.Error:   {255, 30, 30, 255},
		},
	}

	textColor   = color.RGBA{255, 255, 255, 255}
	statusColor = color.RGBA{255, 30, 30, 255}
	boxColor    = color.RGBA{255, 255, 255, 255}
	panelColor  = color.RGBA{0, 0, 0, 150}
)

// PaletteFor picks the log palette for the analysis state.
func PaletteFor(active bool) Palette {
	if active {
		return AnalysisPalette
	}
	return NormalPalette
}

// Color returns the log colour for sev.
func (p Palette) Color(sev eventlog.Severity) color.RGBA {
	if sev < 0 || int(sev) >= len(p.Severity) {
		return p.Severity[eventlog.Info]
	}
	return p.Severity[sev]
}

// Layout positions the overlay elements.
type Layout struct {
	Margin      int
	LineHeight  int
	PanelWidth  int
	PanelLines  int
	StatusInset int // distance of the status text from the right edge
}

// DefaultLayout fits a 640x480 frame.
func DefaultLayout() Layout {
	return Layout{
		Margin:      10,
		LineHeight:  15,
		PanelWidth:  330,
		PanelLines:  8,
		StatusInset: 150,
	}
}

// Renderer draws Models onto frames.
type Renderer struct {
	layout Layout
	face   font.Face
}

// NewRenderer returns a renderer using the 7x13 bitmap face.
func NewRenderer(layout Layout) *Renderer {
	return &Renderer{layout: layout, face: basicfont.Face7x13}
}

// Render tints img and draws the overlay for m on top of it.
func (r *Renderer) Render(img *image.RGBA, m Model) {
	Tint(img, m.AnalysisActive)

	for _, f := range m.Faces {
		drawBox(img, f, boxColor, 2)
	}

	l := r.layout
	b := img.Bounds()

	for i, line := range m.Stats.Lines() {
		r.drawText(img, b.Min.X+l.Margin, b.Min.Y+20+i*l.LineHeight, line, textColor)
	}

	if m.AnalysisActive {
		r.drawText(img, b.Max.X-l.StatusInset, b.Min.Y+20, "ANALYSIS ACTIVE", statusColor)
	}
	if m.Stats.DateTime != "" {
		r.drawText(img, b.Max.X-l.StatusInset-10, b.Min.Y+35, m.Stats.DateTime, textColor)
	}

	r.drawLogPanel(img, m.Log, PaletteFor(m.AnalysisActive))
}

// LogLine formats one entry the way the panel shows it.
func LogLine(e eventlog.Entry) string {
	return "[" + e.Timestamp + "] " + e.Message
}

func (r *Renderer) drawLogPanel(img *image.RGBA, entries []eventlog.Entry, p Palette) {
	l := r.layout
	b := img.Bounds()
	height := l.PanelLines*l.LineHeight + 24
	panel := image.Rect(b.Max.X-l.PanelWidth, b.Max.Y-height-l.Margin, b.Max.X-5, b.Max.Y-l.Margin)
	panel = panel.Intersect(b)
	if panel.Empty() {
		return
	}
	draw.Draw(img, panel, image.NewUniform(panelColor), image.Point{}, draw.Over)

	x := panel.Min.X + 4
	r.drawText(img, x, panel.Min.Y+14, "[ LOG ]", p.Header)
	if len(entries) > l.PanelLines {
		entries = entries[len(entries)-l.PanelLines:]
	}
	for i, e := range entries {
		r.drawText(img, x, panel.Min.Y+32+i*l.LineHeight, LogLine(e), p.Color(e.Severity))
	}
}

// drawText draws s with its baseline at y.
func (r *Renderer) drawText(img *image.RGBA, x, y int, s string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: r.face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(s)
}

// drawBox outlines rect with the given thickness, clipped to img.
func drawBox(img *image.RGBA, rect image.Rectangle, c color.RGBA, thickness int) {
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+thickness),
		image.Rect(rect.Min.X, rect.Max.Y-thickness, rect.Max.X, rect.Max.Y),
		image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+thickness, rect.Max.Y),
		image.Rect(rect.Max.X-thickness, rect.Min.Y, rect.Max.X, rect.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(img, e.Intersect(img.Bounds()), src, image.Point{}, draw.Src)
	}
}

// Tint shifts the frame towards red, or towards blue while an analysis is
// active. The dominant channel is scaled by 1.5 and the others halved.
func Tint(img *image.RGBA, active bool) {
	boost, cut1, cut2 := 0, 1, 2 // R, G, B
	if active {
		boost, cut1, cut2 = 2, 0, 1
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for i := 0; i+3 < len(row); i += 4 {
			v := int(row[i+boost]) * 3 / 2
			if v > 255 {
				v = 255
			}
			row[i+boost] = uint8(v)
			row[i+cut1] /= 2
			row[i+cut2] /= 2
		}
	}
}
