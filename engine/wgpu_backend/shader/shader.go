// Package shader reflects WGSL modules for the WebGPU backend. It parses the source with
// naga and reports the entry points, the per-draw uniform block and the texture and
// sampler bindings the backend has to provide.
//
// Shaders follow a fixed binding convention:
//
//	@group(0) @binding(0) var<uniform> u: Uniforms;      // per-draw uniform block
//	@group(1) @binding(2*stage)   var s_tex: texture_2d<f32>;
//	@group(1) @binding(2*stage+1) var s_smp: sampler;
//
// Members of the uniform block are matched to gfx uniforms by name. Members named
// after the Uniform* constants are filled in by the backend for every draw.
package shader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// ShaderType identifies the pipeline stage an entry point belongs to.
type ShaderType int

const (
	// ShaderTypeCompute is a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex is a @vertex entry point.
	ShaderTypeVertex

	// ShaderTypeFragment is a @fragment entry point.
	ShaderTypeFragment
)

func (t ShaderType) String() string {
	switch t {
	case ShaderTypeCompute:
		return "compute"
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return "unknown"
	}
}

const (
	// UniformGroup and UniformBinding locate the per-draw uniform block.
	UniformGroup   = 0
	UniformBinding = 0

	// TextureGroup holds the texture and sampler bindings of every stage.
	TextureGroup = 1
)

// TextureBinding returns the binding index of the texture for a sampler stage.
func TextureBinding(stage uint8) uint32 { return uint32(stage) * 2 }

// SamplerBinding returns the binding index of the sampler for a sampler stage.
func SamplerBinding(stage uint8) uint32 { return uint32(stage)*2 + 1 }

// StageOf returns the sampler stage a group 1 binding index belongs to.
func StageOf(binding uint32) uint8 { return uint8(binding / 2) }

// Predefined uniform block members the backend computes for each draw.
const (
	UniformViewRect      = "u_viewRect"
	UniformViewTexel     = "u_viewTexel"
	UniformView          = "u_view"
	UniformInvView       = "u_invView"
	UniformProj          = "u_proj"
	UniformViewProj      = "u_viewProj"
	UniformModel         = "u_model"
	UniformModelView     = "u_modelView"
	UniformModelViewProj = "u_modelViewProj"
)

// ErrNoEntryPoint is returned when a module has no entry point of a required stage.
var ErrNoEntryPoint = errors.New("shader: no entry point")

// UniformMember is one member of the uniform block.
type UniformMember struct {
	Name   string
	Offset uint32
	Size   uint32
	// ArrayStride is zero unless the member is an array.
	ArrayStride uint32
	// ColumnStride is zero unless the member, or its array element, is a matrix.
	ColumnStride uint32
}

// UniformBlock is the struct bound at group 0 binding 0.
type UniformBlock struct {
	Name    string
	Size    uint32
	Members []UniformMember
}

// Member returns the member called name.
func (b *UniformBlock) Member(name string) (UniformMember, bool) {
	if b == nil {
		return UniformMember{}, false
	}
	for _, m := range b.Members {
		if m.Name == name {
			return m, true
		}
	}
	return UniformMember{}, false
}

// Write copies values into the member called name inside dst, which holds one
// instance of the block. Each source element is columns x rows tightly packed floats;
// matrix columns are spread out to the member's column stride. Elements past the end
// of the member are dropped.
//
// Parameters:
//   - dst: the block bytes, at least b.Size long
//   - name: the member name
//   - values: the source floats
//   - columns: columns per element, 1 for vectors
//   - rows: rows per element, the component count for vectors
//
// Returns:
//   - bool: true if the block has the member
func (b *UniformBlock) Write(dst []byte, name string, values []float32, columns, rows int) bool {
	m, ok := b.Member(name)
	if !ok || columns <= 0 || rows <= 0 {
		return false
	}
	end := min(m.Offset+m.Size, uint32(len(dst)))
	perElem := columns * rows
	colStride := uint32(rows) * 4
	if m.ColumnStride > 0 {
		colStride = m.ColumnStride
	}

	for e := 0; (e+1)*perElem <= len(values); e++ {
		if e > 0 && m.ArrayStride == 0 {
			break
		}
		base := m.Offset + uint32(e)*m.ArrayStride
		for c := range columns {
			col := values[e*perElem+c*rows : e*perElem+(c+1)*rows]
			off := base + uint32(c)*colStride
			for r, v := range col {
				at := off + uint32(r)*4
				if at+4 > end {
					return true
				}
				binary.LittleEndian.PutUint32(dst[at:], math.Float32bits(v))
			}
		}
	}
	return true
}

// BindingKind is the kind of resource bound in the texture group.
type BindingKind uint8

const (
	BindingTexture BindingKind = iota
	BindingSampler
	BindingComparisonSampler
)

// Dimension is the view dimension of a texture binding.
type Dimension uint8

const (
	Dimension2D Dimension = iota
	Dimension2DArray
	DimensionCube
	Dimension3D
	Dimension1D
)

// SampleType is the component type a texture binding samples.
type SampleType uint8

const (
	SampleFloat SampleType = iota
	SampleDepth
	SampleSint
	SampleUint
)

// Binding is a texture or sampler declared in the texture group.
type Binding struct {
	Name         string
	Binding      uint32
	Kind         BindingKind
	Dimension    Dimension
	SampleType   SampleType
	Multisampled bool
	Stages       []ShaderType
}

// Reflection is everything the backend learns from one module.
type Reflection struct {
	EntryPoints map[ShaderType]string
	Workgroup   [3]uint32
	Uniforms    *UniformBlock
	Bindings    []Binding

	// Issues holds naga validation messages. The module is still handed to the driver,
	// which has the final word.
	Issues []string
}

// EntryPoint returns the entry point name for stage t.
func (r *Reflection) EntryPoint(t ShaderType) (string, bool) {
	name, ok := r.EntryPoints[t]
	return name, ok
}

// Has reports whether the module declares an entry point for stage t.
func (r *Reflection) Has(t ShaderType) bool {
	_, ok := r.EntryPoints[t]
	return ok
}

// Reflect parses and lowers WGSL source and extracts the binding interface.
//
// Parameters:
//   - source: the WGSL code
//
// Returns:
//   - *Reflection: entry points, uniform block and texture bindings
//   - error: error if the source does not parse or lower
func Reflect(source string) (*Reflection, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("shader: %w", err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("shader: %w", err)
	}

	r := &Reflection{EntryPoints: make(map[ShaderType]string)}
	if issues, err := naga.Validate(module); err != nil {
		r.Issues = append(r.Issues, err.Error())
	} else {
		for _, issue := range issues {
			r.Issues = append(r.Issues, issue.Error())
		}
	}

	var stages []ShaderType
	for _, ep := range module.EntryPoints {
		var t ShaderType
		switch ep.Stage {
		case ir.StageVertex:
			t = ShaderTypeVertex
		case ir.StageFragment:
			t = ShaderTypeFragment
		case ir.StageCompute:
			t = ShaderTypeCompute
			r.Workgroup = ep.Workgroup
		default:
			continue
		}
		if _, ok := r.EntryPoints[t]; !ok {
			r.EntryPoints[t] = ep.Name
			stages = append(stages, t)
		}
	}

	for _, gv := range module.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		switch {
		case gv.Space == ir.SpaceUniform && gv.Binding.Group == UniformGroup && gv.Binding.Binding == UniformBinding:
			r.Uniforms = uniformBlock(module, gv)
		case gv.Space == ir.SpaceHandle && gv.Binding.Group == TextureGroup:
			if b, ok := handleBinding(module, gv); ok {
				b.Stages = stages
				r.Bindings = append(r.Bindings, b)
			}
		}
	}
	return r, nil
}

func uniformBlock(m *ir.Module, gv ir.GlobalVariable) *UniformBlock {
	t := m.Types[gv.Type]
	st, ok := t.Inner.(ir.StructType)
	if !ok {
		// A bare value bound as the block; expose it under the variable name.
		size := typeSize(m, gv.Type)
		return &UniformBlock{
			Name:    gv.Name,
			Size:    size,
			Members: []UniformMember{member(m, gv.Name, 0, gv.Type)},
		}
	}
	b := &UniformBlock{Name: t.Name, Size: st.Span}
	for _, sm := range st.Members {
		b.Members = append(b.Members, member(m, sm.Name, sm.Offset, sm.Type))
	}
	return b
}

func member(m *ir.Module, name string, offset uint32, h ir.TypeHandle) UniformMember {
	um := UniformMember{Name: name, Offset: offset, Size: typeSize(m, h)}
	inner := m.Types[h].Inner
	if at, ok := inner.(ir.ArrayType); ok {
		um.ArrayStride = at.Stride
		inner = m.Types[at.Base].Inner
	}
	if mt, ok := inner.(ir.MatrixType); ok {
		um.ColumnStride = columnStride(mt)
	}
	return um
}

func handleBinding(m *ir.Module, gv ir.GlobalVariable) (Binding, bool) {
	b := Binding{Name: gv.Name, Binding: gv.Binding.Binding}
	switch inner := m.Types[gv.Type].Inner.(type) {
	case ir.SamplerType:
		b.Kind = BindingSampler
		if inner.Comparison {
			b.Kind = BindingComparisonSampler
		}
	case ir.ImageType:
		b.Kind = BindingTexture
		b.Multisampled = inner.Multisampled
		switch inner.Dim {
		case ir.Dim1D:
			b.Dimension = Dimension1D
		case ir.Dim3D:
			b.Dimension = Dimension3D
		case ir.DimCube:
			b.Dimension = DimensionCube
		default:
			b.Dimension = Dimension2D
			if inner.Arrayed {
				b.Dimension = Dimension2DArray
			}
		}
		switch {
		case inner.Class == ir.ImageClassDepth:
			b.SampleType = SampleDepth
		case inner.SampledKind == ir.ScalarSint:
			b.SampleType = SampleSint
		case inner.SampledKind == ir.ScalarUint:
			b.SampleType = SampleUint
		default:
			b.SampleType = SampleFloat
		}
	default:
		return Binding{}, false
	}
	return b, true
}

// columnStride is the distance between matrix columns: vec3 columns are padded to vec4.
func columnStride(t ir.MatrixType) uint32 {
	rows := uint32(t.Rows)
	if rows == 3 {
		rows = 4
	}
	return rows * uint32(t.Scalar.Width)
}

func typeSize(m *ir.Module, h ir.TypeHandle) uint32 {
	if int(h) >= len(m.Types) {
		return 0
	}
	switch t := m.Types[h].Inner.(type) {
	case ir.ScalarType:
		return uint32(t.Width)
	case ir.VectorType:
		return uint32(t.Size) * uint32(t.Scalar.Width)
	case ir.MatrixType:
		return uint32(t.Columns) * columnStride(t)
	case ir.ArrayType:
		if t.Size.Constant == nil {
			return 0
		}
		return *t.Size.Constant * t.Stride
	case ir.StructType:
		return t.Span
	default:
		return 0
	}
}

// Program is the combined binding interface of a linked vertex and fragment module, or
// of a single compute module.
type Program struct {
	Uniforms *UniformBlock
	Bindings []Binding
}

// Link merges the reflections of the modules of one program. Both stages may declare
// the uniform block; members present in both must agree on offset and size.
//
// Parameters:
//   - modules: the reflected modules, vertex first
//
// Returns:
//   - Program: the merged binding interface
//   - error: error if the stages disagree on a binding
func Link(modules ...*Reflection) (Program, error) {
	var p Program
	for _, r := range modules {
		if r == nil {
			continue
		}
		if r.Uniforms != nil {
			if p.Uniforms == nil {
				p.Uniforms = &UniformBlock{Name: r.Uniforms.Name}
			}
			if err := p.Uniforms.merge(r.Uniforms); err != nil {
				return Program{}, err
			}
		}
		for _, b := range r.Bindings {
			i := indexOfBinding(p.Bindings, b.Binding)
			if i < 0 {
				p.Bindings = append(p.Bindings, b)
				continue
			}
			if p.Bindings[i].Kind != b.Kind {
				return Program{}, fmt.Errorf("shader: binding %d declared as %s and %s",
					b.Binding, p.Bindings[i].Name, b.Name)
			}
			p.Bindings[i].Stages = append(slices.Clip(p.Bindings[i].Stages), b.Stages...)
		}
	}
	return p, nil
}

func (b *UniformBlock) merge(other *UniformBlock) error {
	b.Size = max(b.Size, other.Size)
	for _, om := range other.Members {
		m, ok := b.Member(om.Name)
		if !ok {
			b.Members = append(b.Members, om)
			continue
		}
		if m.Offset != om.Offset || m.Size != om.Size {
			return fmt.Errorf("shader: uniform %s at offset %d in one stage and %d in another",
				om.Name, m.Offset, om.Offset)
		}
	}
	return nil
}

func indexOfBinding(bindings []Binding, binding uint32) int {
	for i := range bindings {
		if bindings[i].Binding == binding {
			return i
		}
	}
	return -1
}

// StripNul removes a trailing NUL terminator and returns the source as a string.
func StripNul(code []byte) string {
	return strings.TrimRight(string(code), "\x00")
}
