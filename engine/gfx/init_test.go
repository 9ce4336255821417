package gfx

import (
	"errors"
	"slices"
	"testing"
)

func TestInitValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(in *Init)
		ok     bool
	}{
		{"default", func(in *Init) {}, true},
		{"zero width", func(in *Init) { in.Resolution.Width = 0 }, false},
		{"depth backbuffer", func(in *Init) { in.Resolution.Format = TextureFormatD24S8 }, false},
		{"latency zero", func(in *Init) { in.Resolution.MaxFrameLatency = 0 }, false},
		{"latency four", func(in *Init) { in.Resolution.MaxFrameLatency = 4 }, false},
		{"latency three", func(in *Init) { in.Resolution.MaxFrameLatency = 3 }, true},
		{"no encoders", func(in *Init) { in.Limits.MaxEncoders = 0 }, false},
		{"no views", func(in *Init) { in.Limits.MaxViews = 0 }, false},
		{"bad threading", func(in *Init) { in.Threading = ThreadingManual + 1 }, false},
		{"bad renderer", func(in *Init) { in.Type = RendererTypeCount + 1 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := DefaultInit()
			tt.modify(&in)
			err := in.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() error = %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestContextBuilderOptions(t *testing.T) {
	in := DefaultInit()
	for _, opt := range []ContextBuilderOption{
		WithRendererType(RendererTypeVulkan),
		WithResolution(800, 600),
		WithBackBufferFormat(TextureFormatBGRA8),
		WithResetFlags(ResetMSAAX8),
		WithThreading(ThreadingManual),
		WithMaxFrameLatency(3),
		WithStrict(true),
		WithDebug(DebugStats),
	} {
		opt(&in)
	}

	if in.Type != RendererTypeVulkan || in.Threading != ThreadingManual || !in.Strict || in.Debug != DebugStats {
		t.Errorf("init = %+v", in)
	}
	r := in.Resolution
	if r.Width != 800 || r.Height != 600 || r.Format != TextureFormatBGRA8 || r.Reset != ResetMSAAX8 || r.MaxFrameLatency != 3 {
		t.Errorf("resolution = %+v", r)
	}
}

func TestNewContextInvalidConfig(t *testing.T) {
	_, err := NewContext(WithRendererType(RendererTypeNoop), WithMaxFrameLatency(0))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("NewContext() error = %v, want ErrInvalidConfig", err)
	}
}

func TestNewContextUnregisteredBackend(t *testing.T) {
	if IsBackendRegistered(RendererTypeDirect3D11) {
		t.Skip("a Direct3D11 backend is registered")
	}
	_, err := NewContext(WithRendererType(RendererTypeDirect3D11))
	if !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("NewContext() error = %v, want ErrBackendNotAvailable", err)
	}
}

func TestNewContextNoop(t *testing.T) {
	ctx, err := NewContext(WithRendererType(RendererTypeNoop))
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	defer ctx.Shutdown()

	if ctx.RendererType() != RendererTypeNoop {
		t.Errorf("RendererType() = %v, want Noop", ctx.RendererType())
	}
	if !ctx.Caps().Has(CapsInstancing) {
		t.Error("noop backend does not report instancing")
	}
}

func TestBackendRegistry(t *testing.T) {
	if !IsBackendRegistered(RendererTypeNoop) {
		t.Fatal("noop backend not registered")
	}

	RegisterBackend(captureType, func() Backend { return newCaptureBackend() })
	t.Cleanup(func() { UnregisterBackend(captureType) })

	types := Backends()
	metal := slices.Index(types, captureType)
	noop := slices.Index(types, RendererTypeNoop)
	if metal < 0 || noop < 0 || metal > noop {
		t.Errorf("Backends() = %v, want Metal before Noop", types)
	}

	b, err := NewBackend(RendererTypeCount)
	if err != nil {
		t.Fatalf("NewBackend(auto) error = %v", err)
	}
	if types[0] == captureType && b.Type() != captureType {
		t.Errorf("auto selection picked %v, want %v", b.Type(), captureType)
	}

	UnregisterBackend(captureType)
	if IsBackendRegistered(captureType) {
		t.Error("backend still registered after UnregisterBackend")
	}
}

func TestRendererTypeNames(t *testing.T) {
	if got := RendererTypeWebGPU.String(); got != "WebGPU" {
		t.Errorf("String() = %q", got)
	}
	if got := RendererTypeWebGPU.ShaderExtension(); got != "wgsl" {
		t.Errorf("ShaderExtension() = %q", got)
	}
	if got := RendererType(200).String(); got != "Unknown" {
		t.Errorf("String() = %q", got)
	}
}

func TestResetFlagsMSAASamples(t *testing.T) {
	tests := map[ResetFlags]uint32{
		ResetNone:                1,
		ResetMSAAX2:              2,
		ResetMSAAX4 | ResetVSync: 4,
		ResetMSAAX16:             16,
	}
	for flags, want := range tests {
		if got := flags.MSAASamples(); got != want {
			t.Errorf("%#x.MSAASamples() = %d, want %d", uint32(flags), got, want)
		}
	}
}
