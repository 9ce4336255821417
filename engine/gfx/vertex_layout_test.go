package gfx

import "testing"

func TestVertexLayoutPositionColorStride(t *testing.T) {
	l := positionColorLayout()

	if !l.IsFinalized() {
		t.Fatal("layout not finalized after End")
	}
	if l.Stride() != 16 {
		t.Errorf("Stride() = %d, want 16", l.Stride())
	}
	if got := l.Offset(AttribPosition); got != 0 {
		t.Errorf("Offset(Position) = %d, want 0", got)
	}
	if got := l.Offset(AttribColor0); got != 12 {
		t.Errorf("Offset(Color0) = %d, want 12", got)
	}
}

func TestVertexLayoutAttributeSizes(t *testing.T) {
	tests := []struct {
		name       string
		num        uint8
		typ        AttribType
		wantStride uint16
	}{
		{"uint8x4", 4, AttribTypeUint8, 4},
		{"uint10x3", 3, AttribTypeUint10, 4},
		{"uint10x4", 4, AttribTypeUint10, 4},
		{"int16x2", 2, AttribTypeInt16, 4},
		{"halfx4", 4, AttribTypeHalf, 8},
		{"floatx2", 2, AttribTypeFloat, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l VertexLayout
			l.Begin(RendererTypeNoop).Add(AttribTexCoord0, tt.num, tt.typ, false, false).End()
			if l.Stride() != tt.wantStride {
				t.Errorf("Stride() = %d, want %d", l.Stride(), tt.wantStride)
			}
		})
	}
}

func TestVertexLayoutAddAfterEndIgnored(t *testing.T) {
	l := positionColorLayout()
	hash := l.Hash()

	l.Add(AttribNormal, 3, AttribTypeFloat, false, false)

	if l.Has(AttribNormal) {
		t.Error("attribute added after End")
	}
	if l.Stride() != 16 || l.Hash() != hash {
		t.Error("finalized layout changed")
	}
}

func TestVertexLayoutInvalidAttributesIgnored(t *testing.T) {
	var l VertexLayout
	l.Begin(RendererTypeNoop).
		Add(AttribPosition, 0, AttribTypeFloat, false, false).
		Add(AttribNormal, 5, AttribTypeFloat, false, false).
		Add(AttribTangent, 2, AttribTypeUint10, false, false).
		Add(AttribColor0, 4, AttribTypeUint8, true, false).
		Add(AttribColor0, 4, AttribTypeUint8, true, false).
		End()

	if l.Stride() != 4 {
		t.Errorf("Stride() = %d, want 4", l.Stride())
	}
	if got := len(l.Attributes()); got != 1 {
		t.Errorf("len(Attributes()) = %d, want 1", got)
	}
}

func TestVertexLayoutSkipAndDecode(t *testing.T) {
	var l VertexLayout
	l.Begin(RendererTypeNoop).
		Add(AttribPosition, 2, AttribTypeFloat, false, false).
		Skip(4).
		Add(AttribTexCoord0, 2, AttribTypeInt16, true, true).
		End()

	if l.Offset(AttribTexCoord0) != 12 {
		t.Errorf("Offset(TexCoord0) = %d, want 12", l.Offset(AttribTexCoord0))
	}
	num, typ, norm, asInt, ok := l.Decode(AttribTexCoord0)
	if !ok || num != 2 || typ != AttribTypeInt16 || !norm || !asInt {
		t.Errorf("Decode() = %d, %d, %v, %v, %v", num, typ, norm, asInt, ok)
	}
	if _, _, _, _, ok := l.Decode(AttribNormal); ok {
		t.Error("Decode() of absent attribute reported ok")
	}
}

func TestVertexLayoutHashIdentifiesEqualLayouts(t *testing.T) {
	a := positionColorLayout()
	b := positionColorLayout()
	if a.Hash() == 0 || a.Hash() != b.Hash() {
		t.Errorf("equal layouts hash %#x and %#x", a.Hash(), b.Hash())
	}

	var c VertexLayout
	c.Begin(RendererTypeNoop).
		Add(AttribPosition, 3, AttribTypeFloat, false, false).
		Add(AttribColor0, 4, AttribTypeUint8, false, false).
		End()
	if c.Hash() == a.Hash() {
		t.Error("layouts differing in normalization share a hash")
	}
}

func TestVertexLayoutZeroValueHasNothing(t *testing.T) {
	var l VertexLayout
	if l.Has(AttribPosition) {
		t.Error("zero layout reports Position")
	}
	if l.IsFinalized() {
		t.Error("zero layout reports finalized")
	}
}
