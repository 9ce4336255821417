package gfx

import "testing"

func TestCopyDetachesFromCaller(t *testing.T) {
	src := []byte{1, 2, 3}
	m := Copy(src)
	src[0] = 9
	if m.Data()[0] != 1 {
		t.Error("Copy aliases the caller's slice")
	}
	if m.Size() != 3 {
		t.Errorf("Size() = %d, want 3", m.Size())
	}
}

func TestReferenceAliasesCaller(t *testing.T) {
	src := []byte{1, 2, 3}
	m := Reference(src)
	src[0] = 9
	if m.Data()[0] != 9 {
		t.Error("Reference copied the caller's slice")
	}
}

func TestTypedMemory(t *testing.T) {
	verts := []float32{1, 2, 3, 4}
	if got := CopyOf(verts).Size(); got != 16 {
		t.Errorf("CopyOf size = %d, want 16", got)
	}
	idx := []uint16{0, 1, 2}
	if got := ReferenceOf(idx).Size(); got != 6 {
		t.Errorf("ReferenceOf size = %d, want 6", got)
	}
}

func TestMakeRefReleasesOnce(t *testing.T) {
	n := 0
	m := MakeRef([]byte{1}, func() { n++ })
	m.finish()
	m.finish()
	if n != 1 {
		t.Errorf("release called %d times, want 1", n)
	}
}

func TestNilMemory(t *testing.T) {
	var m *Memory
	if m.Size() != 0 || m.Data() != nil {
		t.Error("nil Memory is not empty")
	}
	m.finish()
}
