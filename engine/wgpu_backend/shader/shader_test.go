package shader

import (
	"encoding/binary"
	"math"
	"testing"
)

const texturedSource = `
struct Uniforms {
    u_modelViewProj: mat4x4<f32>,
    u_color: vec4<f32>,
    u_params: array<vec4<f32>, 2>,
};

@group(0) @binding(0) var<uniform> u: Uniforms;
@group(1) @binding(0) var s_tex: texture_2d<f32>;
@group(1) @binding(1) var s_smp: sampler;

struct VsOut {
    @builtin(position) pos: vec4<f32>,
    @location(0) uv: vec2<f32>,
};

@vertex
fn vs_main(@location(0) pos: vec3<f32>, @location(10) uv: vec2<f32>) -> VsOut {
    var out: VsOut;
    out.pos = u.u_modelViewProj * vec4<f32>(pos, 1.0);
    out.uv = uv;
    return out;
}

@fragment
fn fs_main(input: VsOut) -> @location(0) vec4<f32> {
    return textureSample(s_tex, s_smp, input.uv) * u.u_color + u.u_params[0];
}
`

const computeSource = `
@compute @workgroup_size(8, 4, 1)
fn cs_main(@builtin(global_invocation_id) id: vec3<u32>) {
}
`

func TestReflectEntryPoints(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   map[ShaderType]string
	}{
		{"render", texturedSource, map[ShaderType]string{ShaderTypeVertex: "vs_main", ShaderTypeFragment: "fs_main"}},
		{"compute", computeSource, map[ShaderType]string{ShaderTypeCompute: "cs_main"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Reflect(tt.source)
			if err != nil {
				t.Fatalf("Reflect: %v", err)
			}
			if len(r.EntryPoints) != len(tt.want) {
				t.Fatalf("entry points = %v, want %v", r.EntryPoints, tt.want)
			}
			for stage, name := range tt.want {
				if got, ok := r.EntryPoint(stage); !ok || got != name {
					t.Errorf("EntryPoint(%s) = %q, %v; want %q", stage, got, ok, name)
				}
			}
		})
	}
}

func TestReflectWorkgroup(t *testing.T) {
	r, err := Reflect(computeSource)
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	if r.Workgroup != [3]uint32{8, 4, 1} {
		t.Errorf("Workgroup = %v, want [8 4 1]", r.Workgroup)
	}
	if r.Uniforms != nil || len(r.Bindings) != 0 {
		t.Errorf("compute module without resources reported uniforms=%v bindings=%v", r.Uniforms, r.Bindings)
	}
}

func TestReflectUniformBlock(t *testing.T) {
	r, err := Reflect(texturedSource)
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	if r.Uniforms == nil {
		t.Fatal("no uniform block")
	}
	if r.Uniforms.Size != 112 {
		t.Errorf("block size = %d, want 112", r.Uniforms.Size)
	}

	tests := []struct {
		name                           string
		offset, size, array, colStride uint32
	}{
		{UniformModelViewProj, 0, 64, 0, 16},
		{"u_color", 64, 16, 0, 0},
		{"u_params", 80, 32, 16, 0},
	}
	for _, tt := range tests {
		m, ok := r.Uniforms.Member(tt.name)
		if !ok {
			t.Errorf("member %s missing", tt.name)
			continue
		}
		if m.Offset != tt.offset || m.Size != tt.size || m.ArrayStride != tt.array || m.ColumnStride != tt.colStride {
			t.Errorf("member %s = %+v, want offset %d size %d array %d column %d",
				tt.name, m, tt.offset, tt.size, tt.array, tt.colStride)
		}
	}
	if _, ok := r.Uniforms.Member("u_missing"); ok {
		t.Error("unknown member reported present")
	}
}

func TestReflectBindings(t *testing.T) {
	r, err := Reflect(texturedSource)
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	if len(r.Bindings) != 2 {
		t.Fatalf("bindings = %+v, want texture and sampler", r.Bindings)
	}
	for _, b := range r.Bindings {
		switch b.Binding {
		case TextureBinding(0):
			if b.Kind != BindingTexture || b.Dimension != Dimension2D || b.SampleType != SampleFloat {
				t.Errorf("texture binding = %+v", b)
			}
		case SamplerBinding(0):
			if b.Kind != BindingSampler {
				t.Errorf("sampler binding = %+v", b)
			}
		default:
			t.Errorf("unexpected binding %d", b.Binding)
		}
		if StageOf(b.Binding) != 0 {
			t.Errorf("StageOf(%d) = %d, want 0", b.Binding, StageOf(b.Binding))
		}
	}
}

func TestReflectRejectsInvalidSource(t *testing.T) {
	if _, err := Reflect("fn broken( {"); err == nil {
		t.Fatal("expected an error for malformed WGSL")
	}
}

func TestLinkMergesStages(t *testing.T) {
	vs := &Reflection{Uniforms: &UniformBlock{Size: 64, Members: []UniformMember{{Name: "a", Offset: 0, Size: 64}}}}
	fs := &Reflection{
		Uniforms: &UniformBlock{Size: 80, Members: []UniformMember{{Name: "a", Offset: 0, Size: 64}, {Name: "b", Offset: 64, Size: 16}}},
		Bindings: []Binding{{Name: "s_tex", Binding: 0, Kind: BindingTexture, Stages: []ShaderType{ShaderTypeFragment}}},
	}
	p, err := Link(vs, fs)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if p.Uniforms.Size != 80 || len(p.Uniforms.Members) != 2 {
		t.Errorf("merged block = %+v", p.Uniforms)
	}
	if len(p.Bindings) != 1 {
		t.Errorf("merged bindings = %+v", p.Bindings)
	}
}

func TestLinkRejectsConflicts(t *testing.T) {
	vs := &Reflection{Uniforms: &UniformBlock{Members: []UniformMember{{Name: "a", Offset: 0, Size: 16}}}}
	fs := &Reflection{Uniforms: &UniformBlock{Members: []UniformMember{{Name: "a", Offset: 16, Size: 16}}}}
	if _, err := Link(vs, fs); err == nil {
		t.Error("expected an error for mismatched offsets")
	}

	vs = &Reflection{Bindings: []Binding{{Name: "t", Binding: 0, Kind: BindingTexture}}}
	fs = &Reflection{Bindings: []Binding{{Name: "s", Binding: 0, Kind: BindingSampler}}}
	if _, err := Link(vs, fs); err == nil {
		t.Error("expected an error for mismatched binding kinds")
	}
}

func floatAt(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}

func TestWriteMat3PadsColumns(t *testing.T) {
	b := &UniformBlock{Size: 48, Members: []UniformMember{{Name: "m", Offset: 0, Size: 48, ColumnStride: 16}}}
	dst := make([]byte, 48)
	if !b.Write(dst, "m", []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}, 3, 3) {
		t.Fatal("Write reported a missing member")
	}
	want := map[int]float32{0: 1, 4: 2, 8: 3, 16: 4, 20: 5, 24: 6, 32: 7, 36: 8, 40: 9, 12: 0, 28: 0, 44: 0}
	for off, v := range want {
		if got := floatAt(dst, off); got != v {
			t.Errorf("byte %d = %v, want %v", off, got, v)
		}
	}
}

func TestWriteArrayStopsAtMemberEnd(t *testing.T) {
	b := &UniformBlock{Size: 48, Members: []UniformMember{
		{Name: "v", Offset: 0, Size: 32, ArrayStride: 16},
		{Name: "tail", Offset: 32, Size: 16},
	}}
	dst := make([]byte, 48)
	values := []float32{1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3}
	b.Write(dst, "v", values, 1, 4)
	if got := floatAt(dst, 16); got != 2 {
		t.Errorf("second element = %v, want 2", got)
	}
	if got := floatAt(dst, 32); got != 0 {
		t.Errorf("write overflowed into the next member: %v", got)
	}
}

func TestWriteSingleValueIgnoresExtraElements(t *testing.T) {
	b := &UniformBlock{Size: 32, Members: []UniformMember{{Name: "c", Offset: 0, Size: 16}}}
	dst := make([]byte, 32)
	b.Write(dst, "c", []float32{1, 2, 3, 4, 5, 6, 7, 8}, 1, 4)
	if got := floatAt(dst, 16); got != 0 {
		t.Errorf("non-array member wrote a second element: %v", got)
	}
	if b.Write(dst, "missing", []float32{1, 2, 3, 4}, 1, 4) {
		t.Error("Write to a missing member reported success")
	}
}

func TestStripNul(t *testing.T) {
	if got := StripNul([]byte("code\x00")); got != "code" {
		t.Errorf("StripNul = %q", got)
	}
}
