package wgpu_backend

import (
	"image"
	"testing"

	"github.com/Carmen-Shannon/oxy-gfx/engine/gfx"
)

func TestDebugTextLines(t *testing.T) {
	lines := []gfx.DebugTextLine{{X: 1, Y: 1, Attr: 0x0f, Text: "hello"}}
	tests := []struct {
		name  string
		debug gfx.DebugFlags
		want  int
	}{
		{"text enabled", gfx.DebugText, 1},
		{"text disabled", gfx.DebugNone, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &gfx.Frame{Debug: tt.debug, DebugText: lines}
			if got := len(debugTextLines(f)); got != tt.want {
				t.Errorf("len(debugTextLines()) = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDebugTextLayerRender(t *testing.T) {
	var l debugTextLayer
	t.Cleanup(l.release)

	lines := []gfx.DebugTextLine{
		// White on blue in the second row.
		{X: 1, Y: 1, Attr: 0x1f, Text: "Hello"},
		// Outside the image.
		{X: 500, Y: 0, Attr: 0x1f, Text: "clipped"},
	}
	img, err := l.render(lines, 320, 64)
	if err != nil {
		t.Fatalf("render() error = %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 320, 64) {
		t.Fatalf("bounds = %v, want 320x64", img.Bounds())
	}

	if got := img.RGBAAt(0, 0); got.A != 0 {
		t.Errorf("pixel outside any line = %v, want transparent", got)
	}
	cell := image.Rect(debugCellWidth, debugCellHeight, debugCellWidth*6, debugCellHeight*2)
	if got := img.RGBAAt(cell.Max.X-1, cell.Max.Y-1); got != debugPalette[1] {
		t.Errorf("background pixel = %v, want %v", got, debugPalette[1])
	}
	glyphs := 0
	for y := cell.Min.Y; y < cell.Max.Y; y++ {
		for x := cell.Min.X; x < cell.Max.X; x++ {
			if img.RGBAAt(x, y).R > 0x80 {
				glyphs++
			}
		}
	}
	if glyphs == 0 {
		t.Error("no glyph pixels drawn in the line's cells")
	}

	// The next frame starts from a transparent layer.
	img, err = l.render(nil, 320, 64)
	if err != nil {
		t.Fatal(err)
	}
	if got := img.RGBAAt(cell.Max.X-1, cell.Max.Y-1); got.A != 0 {
		t.Errorf("pixel after an empty frame = %v, want transparent", got)
	}
}
