package common

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecodeImageBytes(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	src.Set(2, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	img, err := DecodeImageBytes(encodePNG(t, src))
	if err != nil {
		t.Fatalf("DecodeImageBytes() error = %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 3, 2) || img.Stride != 12 {
		t.Fatalf("bounds = %v, stride = %d", img.Bounds(), img.Stride)
	}
	if got := img.RGBAAt(2, 1); got != (color.RGBA{R: 10, G: 20, B: 30, A: 255}) {
		t.Errorf("pixel = %v", got)
	}

	if _, err := DecodeImageBytes([]byte("not an image")); err == nil {
		t.Error("garbage decoded")
	}
}

func TestLoadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "px.png")
	if err := os.WriteFile(path, encodePNG(t, image.NewGray(image.Rect(0, 0, 4, 4))), 0o644); err != nil {
		t.Fatal(err)
	}
	img, err := LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage() error = %v", err)
	}
	if len(img.Pix) != 4*4*4 {
		t.Errorf("len(Pix) = %d, want 64", len(img.Pix))
	}
	if _, err := LoadImage(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("missing file loaded")
	}
}

func TestToRGBA(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(0, 0, 2, 2))
	if ToRGBA(rgba) != rgba {
		t.Error("packed RGBA image was copied")
	}
	sub := rgba.SubImage(image.Rect(1, 1, 2, 2))
	out := ToRGBA(sub)
	if out == rgba || out.Bounds() != image.Rect(0, 0, 1, 1) {
		t.Errorf("sub image bounds = %v", out.Bounds())
	}
}
