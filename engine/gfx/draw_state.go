package gfx

import "slices"

// NumAll passed as a vertex or index count binds every element from the start offset
// to the end of the buffer.
const NumAll = ^uint32(0)

// BufferSource says where a bound vertex or index buffer lives.
type BufferSource uint8

const (
	SourceNone BufferSource = iota
	SourceStatic
	SourceDynamic
	SourceTransient
)

// VertexStream is a vertex buffer bound to one stream of a draw. Transient streams
// address Frame.TransientVertices starting at Offset.
type VertexStream struct {
	Source      BufferSource
	Handle      Handle
	Layout      *VertexLayout
	Offset      uint32
	StartVertex uint32
	NumVertices uint32
}

// IndexBinding is the index buffer of a draw. Transient bindings address
// Frame.TransientIndices starting at Offset.
type IndexBinding struct {
	Source     BufferSource
	Handle     Handle
	Offset     uint32
	Index32    bool
	FirstIndex uint32
	NumIndices uint32
}

// TextureBinding binds a texture to a sampler stage.
type TextureBinding struct {
	Stage   uint8
	Sampler UniformHandle
	Texture TextureHandle
	Flags   SamplerFlags
}

// UniformValue is the value of a uniform for one draw.
type UniformValue struct {
	Handle UniformHandle
	Name   string
	Type   UniformType
	Num    uint16
	Values []float32
}

// RenderItem is one recorded draw or compute dispatch.
type RenderItem struct {
	View          ViewID
	Program       ProgramHandle
	Compute       bool
	State         StateFlags
	BlendFactor   uint32
	FrontStencil  StencilFlags
	BackStencil   StencilFlags
	Scissor       Rect
	Transform     uint32
	NumTransforms uint16
	Streams       []VertexStream
	NumVertices   uint32
	Index         IndexBinding
	Textures      []TextureBinding
	Uniforms      []UniformValue
	Instances     uint32
	Dispatch      [3]uint32
	Depth         uint32
	NumPrimitives uint32

	seq uint32
}

// VertexCount returns the number of vertices the draw consumes before indexing.
func (it *RenderItem) VertexCount() uint32 {
	if len(it.Streams) > 0 {
		return it.Streams[0].NumVertices
	}
	return it.NumVertices
}

// primitiveCount converts an element count to a primitive count for the topology
// encoded in state.
func primitiveCount(state StateFlags, n uint32) uint32 {
	switch state.PrimitiveType() {
	case StatePtTriStrip:
		if n < 3 {
			return 0
		}
		return n - 2
	case StatePtLines:
		return n / 2
	case StatePtLineStrip:
		if n < 2 {
			return 0
		}
		return n - 1
	case StatePtPoints:
		return n
	default:
		return n / 3
	}
}

type streamSlot struct {
	set    bool
	stream VertexStream
	frame  uint32
}

type textureSlot struct {
	set     bool
	binding TextureBinding
}

// drawState is the pending draw of one encoder. Every setter overwrites the previous
// value; Submit consumes it and clears the parts selected by the discard flags.
type drawState struct {
	state         StateFlags
	blendFactor   uint32
	frontStencil  StencilFlags
	backStencil   StencilFlags
	scissor       Rect
	transform     uint32
	numTransforms uint16
	streams       [MaxVertexStreams]streamSlot
	numVertices   uint32
	hasVertices   bool
	index         IndexBinding
	indexFrame    uint32
	textures      [MaxTextureSamplers]textureSlot
	uniforms      []UniformValue
	instances     uint32
}

func newDrawState() drawState {
	var d drawState
	d.discard(DiscardAll)
	return d
}

// discard resets the fields selected by flags to their defaults.
func (d *drawState) discard(flags DiscardFlags) {
	if flags&DiscardState != 0 {
		d.state = StateDefault
		d.blendFactor = 0
		d.frontStencil = StencilNone
		d.backStencil = StencilNone
		d.scissor = Rect{}
	}
	if flags&DiscardTransform != 0 {
		d.transform = 0
		d.numTransforms = 1
	}
	if flags&DiscardVertexStreams != 0 {
		d.streams = [MaxVertexStreams]streamSlot{}
		d.numVertices = 0
		d.hasVertices = false
	}
	if flags&DiscardIndexBuffer != 0 {
		d.index = IndexBinding{}
		d.indexFrame = 0
	}
	if flags&DiscardBindings != 0 {
		d.textures = [MaxTextureSamplers]textureSlot{}
		d.uniforms = nil
	}
	if flags&DiscardInstanceData != 0 {
		d.instances = 1
	}
}

// setUniform stores a value, replacing any earlier value for the same uniform.
func (d *drawState) setUniform(v UniformValue) {
	for i := range d.uniforms {
		if d.uniforms[i].Handle == v.Handle {
			d.uniforms = slices.Clone(d.uniforms)
			d.uniforms[i] = v
			return
		}
	}
	d.uniforms = append(slices.Clip(d.uniforms), v)
}
