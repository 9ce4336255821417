package gfx

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestShaderPath(t *testing.T) {
	got := ShaderPath("shaders", "vs_cubes", RendererTypeWebGPU)
	if want := filepath.Join("shaders", "vs_cubes.wgsl"); got != want {
		t.Errorf("ShaderPath() = %q, want %q", got, want)
	}
}

func TestLoadShaderFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "vs.bin"), []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}

	mem, err := LoadShaderFile(dir, "vs", RendererTypeNoop)
	if err != nil {
		t.Fatalf("LoadShaderFile() error = %v", err)
	}
	if got := string(mem.Data()); got != "abc\x00" {
		t.Errorf("data = %q, want terminated code", got)
	}

	if _, err := LoadShaderFile(dir, "missing", RendererTypeNoop); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("LoadShaderFile() missing error = %v, want fs.ErrNotExist", err)
	}
}

func TestLoadProgram(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"vs_tri", "fs_tri"} {
		if err := os.WriteFile(ShaderPath(dir, name, captureType), []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	c, b := newTestContext(t)

	ph, err := LoadProgram(c, dir, "vs_tri", "fs_tri")
	if err != nil {
		t.Fatalf("LoadProgram() error = %v", err)
	}
	if !ph.IsValid() {
		t.Fatal("LoadProgram() returned invalid handle")
	}
	c.Frame(false)
	if got := len(b.last(t).PreCommands); got != 3 {
		t.Errorf("PreCommands = %d, want 3", got)
	}

	if _, err := LoadProgram(c, dir, "vs_tri", "fs_missing"); err == nil {
		t.Error("LoadProgram() with a missing shader returned nil error")
	}
}
