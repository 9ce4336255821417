package gfx

import (
	"encoding/binary"
	"hash/fnv"
)

// Attrib names a vertex attribute slot.
type Attrib uint8

const (
	AttribPosition Attrib = iota
	AttribNormal
	AttribTangent
	AttribBitangent
	AttribColor0
	AttribColor1
	AttribColor2
	AttribColor3
	AttribIndices
	AttribWeight
	AttribTexCoord0
	AttribTexCoord1
	AttribTexCoord2
	AttribTexCoord3
	AttribTexCoord4
	AttribTexCoord5
	AttribTexCoord6
	AttribTexCoord7
	AttribCount
)

var attribNames = [AttribCount]string{
	"a_position", "a_normal", "a_tangent", "a_bitangent",
	"a_color0", "a_color1", "a_color2", "a_color3",
	"a_indices", "a_weight",
	"a_texcoord0", "a_texcoord1", "a_texcoord2", "a_texcoord3",
	"a_texcoord4", "a_texcoord5", "a_texcoord6", "a_texcoord7",
}

// String returns the shader-side name of the attribute, e.g. "a_position".
func (a Attrib) String() string {
	if a < AttribCount {
		return attribNames[a]
	}
	return "a_unknown"
}

// AttribType is the component type of a vertex attribute.
type AttribType uint8

const (
	AttribTypeUint8 AttribType = iota
	// AttribTypeUint10 packs three or four components into one 32-bit value.
	AttribTypeUint10
	AttribTypeInt16
	AttribTypeHalf
	AttribTypeFloat
)

var attribTypeSizes = [...]uint16{
	AttribTypeUint8:  1,
	AttribTypeUint10: 4,
	AttribTypeInt16:  2,
	AttribTypeHalf:   2,
	AttribTypeFloat:  4,
}

func (t AttribType) valid() bool { return int(t) < len(attribTypeSizes) }

// attribSize returns the byte size of an attribute with num components of type t.
func attribSize(num uint8, t AttribType) uint16 {
	if t == AttribTypeUint10 {
		return 4
	}
	return uint16(num) * attribTypeSizes[t]
}

// VertexAttribute is one entry of a finalized vertex layout.
type VertexAttribute struct {
	Attrib     Attrib
	Num        uint8
	Type       AttribType
	Normalized bool
	AsInt      bool
	Offset     uint16
}

// VertexLayout describes the byte layout of one vertex. Build it with Begin, Add and
// Skip, then finalize it with End before using it to create buffers.
//
// Example:
//
//	var layout gfx.VertexLayout
//	layout.Begin(gfx.RendererTypeNoop).
//	    Add(gfx.AttribPosition, 3, gfx.AttribTypeFloat, false, false).
//	    Add(gfx.AttribColor0, 4, gfx.AttribTypeUint8, true, false).
//	    End()
type VertexLayout struct {
	renderer   RendererType
	attributes []VertexAttribute
	index      [AttribCount]int8
	stride     uint16
	hash       uint32
	begun      bool
	ended      bool
}

// Begin resets the layout and starts recording attributes.
//
// Parameters:
//   - renderer: the renderer the layout targets, or RendererTypeNoop for any
//
// Returns:
//   - *VertexLayout: the layout, for chaining
func (l *VertexLayout) Begin(renderer RendererType) *VertexLayout {
	*l = VertexLayout{renderer: renderer, begun: true}
	for i := range l.index {
		l.index[i] = -1
	}
	return l
}

// Add appends an attribute at the current end of the vertex.
// Calls on a finalized layout, with a component count outside 1..4, an unknown type,
// or an attribute that is already present are ignored with a warning.
//
// Parameters:
//   - attrib: the attribute slot
//   - num: number of components (1 to 4; 3 or 4 for AttribTypeUint10)
//   - typ: component type
//   - normalized: map integer components to [0,1] or [-1,1]
//   - asInt: expose integer components to the shader without conversion
//
// Returns:
//   - *VertexLayout: the layout, for chaining
func (l *VertexLayout) Add(attrib Attrib, num uint8, typ AttribType, normalized, asInt bool) *VertexLayout {
	switch {
	case l.ended:
		Logger().Warn("gfx: vertex layout is finalized, attribute ignored", "attrib", attrib.String())
		return l
	case !l.begun:
		Logger().Warn("gfx: vertex layout Add before Begin, attribute ignored", "attrib", attrib.String())
		return l
	case attrib >= AttribCount || !typ.valid() || num < 1 || num > 4:
		Logger().Warn("gfx: invalid vertex attribute ignored", "attrib", attrib, "num", num, "type", typ)
		return l
	case typ == AttribTypeUint10 && num < 3:
		Logger().Warn("gfx: uint10 attribute needs 3 or 4 components", "attrib", attrib.String(), "num", num)
		return l
	case l.index[attrib] >= 0:
		Logger().Warn("gfx: duplicate vertex attribute ignored", "attrib", attrib.String())
		return l
	}

	l.index[attrib] = int8(len(l.attributes))
	l.attributes = append(l.attributes, VertexAttribute{
		Attrib:     attrib,
		Num:        num,
		Type:       typ,
		Normalized: normalized,
		AsInt:      asInt,
		Offset:     l.stride,
	})
	l.stride += attribSize(num, typ)
	return l
}

// Skip inserts padding bytes at the current end of the vertex.
func (l *VertexLayout) Skip(bytes uint8) *VertexLayout {
	if l.ended || !l.begun {
		Logger().Warn("gfx: vertex layout Skip outside Begin/End ignored")
		return l
	}
	l.stride += uint16(bytes)
	return l
}

// End finalizes the layout and computes its hash. The layout is immutable afterwards.
func (l *VertexLayout) End() {
	if !l.begun || l.ended {
		return
	}
	l.ended = true
	l.hash = l.computeHash()
}

func (l *VertexLayout) computeHash() uint32 {
	h := fnv.New32a()
	var buf [8]byte
	for _, a := range l.attributes {
		buf[0] = byte(a.Attrib)
		buf[1] = a.Num
		buf[2] = byte(a.Type)
		buf[3] = boolByte(a.Normalized) | boolByte(a.AsInt)<<1
		binary.LittleEndian.PutUint16(buf[4:], a.Offset)
		binary.LittleEndian.PutUint16(buf[6:], 0)
		_, _ = h.Write(buf[:]) // fnv.Write never returns an error
	}
	binary.LittleEndian.PutUint16(buf[:2], l.stride)
	_, _ = h.Write(buf[:2])
	return h.Sum32()
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// IsFinalized reports whether End has been called.
func (l *VertexLayout) IsFinalized() bool { return l.ended }

// Stride returns the size of one vertex in bytes.
func (l *VertexLayout) Stride() uint16 { return l.stride }

// Hash returns a hash identifying equal layouts. Zero until End is called.
func (l *VertexLayout) Hash() uint32 { return l.hash }

// Renderer returns the renderer type passed to Begin.
func (l *VertexLayout) Renderer() RendererType { return l.renderer }

// Has reports whether the layout contains attrib.
func (l *VertexLayout) Has(attrib Attrib) bool {
	return attrib < AttribCount && l.begun && l.index[attrib] >= 0
}

// Offset returns the byte offset of attrib within a vertex, or 0 when absent.
func (l *VertexLayout) Offset(attrib Attrib) uint16 {
	if !l.Has(attrib) {
		return 0
	}
	return l.attributes[l.index[attrib]].Offset
}

// Decode returns the description of attrib. ok is false when the attribute is absent.
func (l *VertexLayout) Decode(attrib Attrib) (num uint8, typ AttribType, normalized, asInt, ok bool) {
	if !l.Has(attrib) {
		return 0, 0, false, false, false
	}
	a := l.attributes[l.index[attrib]]
	return a.Num, a.Type, a.Normalized, a.AsInt, true
}

// Attributes returns the attributes in the order they were added.
func (l *VertexLayout) Attributes() []VertexAttribute {
	out := make([]VertexAttribute, len(l.attributes))
	copy(out, l.attributes)
	return out
}

// clone returns an independent copy so later edits by the caller cannot change
// layouts already attached to buffers.
func (l *VertexLayout) clone() *VertexLayout {
	c := *l
	c.attributes = l.Attributes()
	return &c
}
