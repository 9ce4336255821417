// Package font turns strings into RGBA bitmaps that can be uploaded as gfx textures.
package font

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// ErrEmptyText is returned when there is nothing to rasterize.
var ErrEmptyText = errors.New("font: empty text")

// Face is a sized font face.
type Face struct {
	face       xfont.Face
	size       float64
	color      color.Color
	lineHeight int
	ascent     int
}

// FaceBuilderOption is a functional option for configuring a Face.
type FaceBuilderOption func(f *Face)

// WithColor sets the glyph color. Defaults to opaque white.
//
// Parameters:
//   - c: the glyph color
//
// Returns:
//   - FaceBuilderOption: option function to apply
func WithColor(c color.Color) FaceBuilderOption {
	return func(f *Face) {
		f.color = c
	}
}

// NewFace parses TrueType or OpenType data and creates a face of the given pixel size.
//
// Parameters:
//   - data: the font file contents
//   - size: the em size in pixels
//   - options: functional options to configure the face
//
// Returns:
//   - *Face: the face
//   - error: error if the data cannot be parsed or the size is not positive
func NewFace(data []byte, size float64, options ...FaceBuilderOption) (*Face, error) {
	if size <= 0 {
		return nil, fmt.Errorf("font: invalid size %v", size)
	}
	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: xfont.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("creating face: %w", err)
	}

	m := face.Metrics()
	f := &Face{
		face:       face,
		size:       size,
		color:      color.White,
		lineHeight: m.Height.Ceil(),
		ascent:     m.Ascent.Ceil(),
	}
	for _, opt := range options {
		opt(f)
	}
	return f, nil
}

// NewDefaultFace creates a face using the Go Regular font.
func NewDefaultFace(size float64, options ...FaceBuilderOption) (*Face, error) {
	return NewFace(goregular.TTF, size, options...)
}

// Size returns the em size in pixels.
func (f *Face) Size() float64 {
	return f.size
}

// LineHeight returns the distance between two baselines in pixels.
func (f *Face) LineHeight() int {
	return f.lineHeight
}

// Measure returns the pixel size of the bitmap Draw would produce. Lines are split
// on '\n'.
func (f *Face) Measure(text string) (width, height int) {
	lines := strings.Split(text, "\n")
	for _, line := range lines {
		width = max(width, xfont.MeasureString(f.face, line).Ceil())
	}
	return width, len(lines) * f.lineHeight
}

// Draw rasterizes text into a new RGBA image with a transparent background.
//
// Parameters:
//   - text: the text, lines split on '\n'
//
// Returns:
//   - *image.RGBA: the bitmap, sized to fit the text
//   - error: ErrEmptyText if the text has no visible extent
func (f *Face) Draw(text string) (*image.RGBA, error) {
	w, h := f.Measure(text)
	if w == 0 || h == 0 {
		return nil, ErrEmptyText
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	f.DrawAt(dst, image.Point{}, text)
	return dst, nil
}

// DrawAt draws text into dst with the top-left corner of the first line at pt.
func (f *Face) DrawAt(dst draw.Image, pt image.Point, text string) {
	f.DrawColored(dst, pt, text, f.color)
}

// DrawColored is DrawAt with the glyph color c instead of the face color.
func (f *Face) DrawColored(dst draw.Image, pt image.Point, text string, c color.Color) {
	d := &xfont.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: f.face,
	}
	for i, line := range strings.Split(text, "\n") {
		d.Dot = fixed.P(pt.X, pt.Y+f.ascent+i*f.lineHeight)
		d.DrawString(line)
	}
}

// Close releases the face.
func (f *Face) Close() error {
	return f.face.Close()
}

// Rasterize draws text with the Go Regular font at the given pixel size.
//
// Parameters:
//   - text: the text, lines split on '\n'
//   - size: the em size in pixels
//
// Returns:
//   - *image.RGBA: white glyphs on a transparent background
//   - error: error if the face cannot be created or the text is empty
func Rasterize(text string, size float64) (*image.RGBA, error) {
	f, err := NewDefaultFace(size)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Draw(text)
}
