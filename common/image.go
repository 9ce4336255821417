package common

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// DecodeImage decodes PNG, JPEG, BMP or WebP data into tightly packed RGBA8 pixels,
// ready for gfx.TextureFormatRGBA8 uploads.
//
// Parameters:
//   - r: the encoded image
//
// Returns:
//   - *image.RGBA: the decoded image with its origin at (0, 0)
//   - error: error if the format is unknown or the data is corrupt
func DecodeImage(r io.Reader) (*image.RGBA, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return ToRGBA(img), nil
}

// DecodeImageBytes is DecodeImage for in-memory data.
func DecodeImageBytes(data []byte) (*image.RGBA, error) {
	return DecodeImage(bytes.NewReader(data))
}

// LoadImage reads and decodes an image file.
//
// Parameters:
//   - path: the file to read
//
// Returns:
//   - *image.RGBA: the decoded image
//   - error: error if the file cannot be opened or decoded
func LoadImage(path string) (*image.RGBA, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file %s: %w", path, err)
	}
	defer file.Close()

	img, err := DecodeImage(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// ToRGBA converts img to an RGBA image whose bounds start at (0, 0) and whose stride
// equals 4*width. An image that already has that layout is returned as is.
func ToRGBA(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && bounds.Min == (image.Point{}) && rgba.Stride == 4*bounds.Dx() {
		return rgba
	}
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba
}
