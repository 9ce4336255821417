package common

import (
	"math"
	"testing"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func TestMul4Identity(t *testing.T) {
	var id, m, out [16]float32
	Identity(id[:])
	BuildModelMatrix(m[:], 1, 2, 3, 0.3, 0.2, 0.1, 1, 2, 3)
	Mul4(out[:], id[:], m[:])
	if out != m {
		t.Errorf("I*M = %v, want %v", out, m)
	}
}

func TestInvert4(t *testing.T) {
	var m, inv, out [16]float32
	BuildModelMatrix(m[:], 4, -2, 7, 0.5, 1.1, -0.3, 2, 2, 2)
	if !Invert4(inv[:], m[:]) {
		t.Fatal("Invert4() reported a singular matrix")
	}
	Mul4(out[:], m[:], inv[:])
	for i, v := range out {
		want := float32(0)
		if i%5 == 0 {
			want = 1
		}
		if !near(v, want) {
			t.Fatalf("M*inv(M)[%d] = %v, want %v", i, v, want)
		}
	}

	var zero [16]float32
	if Invert4(inv[:], zero[:]) {
		t.Error("zero matrix inverted")
	}
}

func TestPerspectiveDepthRange(t *testing.T) {
	tests := []struct {
		name        string
		homogeneous bool
		wantNear    float32
	}{
		{"zero to one", false, 0},
		{"minus one to one", true, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p [16]float32
			Perspective(p[:], math.Pi/2, 1, 0.5, 100, tt.homogeneous)
			_, _, zn := TransformPoint(p[:], 0, 0, -0.5)
			_, _, zf := TransformPoint(p[:], 0, 0, -100)
			if !near(zn, tt.wantNear) || !near(zf, 1) {
				t.Errorf("near -> %v, far -> %v, want %v and 1", zn, zf, tt.wantNear)
			}
		})
	}
}

func TestOrtho(t *testing.T) {
	var p [16]float32
	Ortho(p[:], 0, 800, 600, 0, 0, 1, false)
	x, y, z := TransformPoint(p[:], 0, 0, 0)
	if !near(x, -1) || !near(y, 1) || !near(z, 0) {
		t.Errorf("top-left = %v,%v,%v, want -1,1,0", x, y, z)
	}
	x, y, z = TransformPoint(p[:], 800, 600, -1)
	if !near(x, 1) || !near(y, -1) || !near(z, 1) {
		t.Errorf("bottom-right far = %v,%v,%v, want 1,-1,1", x, y, z)
	}

	Ortho(p[:], -1, 1, -1, 1, 1, 3, true)
	if _, _, z := TransformPoint(p[:], 0, 0, -1); !near(z, -1) {
		t.Errorf("homogeneous near = %v, want -1", z)
	}
}

func TestLookAtTranslate(t *testing.T) {
	var v, tr [16]float32
	LookAt(v[:], 0, 0, 5, 0, 0, 0, 0, 1, 0)
	Translate(tr[:], 0, 0, -5)
	for i := range v {
		if !near(v[i], tr[i]) {
			t.Fatalf("LookAt along -Z = %v, want %v", v, tr)
		}
	}
}

func TestSliceToBytes(t *testing.T) {
	if SliceToBytes([]float32(nil)) != nil {
		t.Error("empty slice produced bytes")
	}
	b := SliceToBytes([]uint16{0x0102, 0x0304})
	if len(b) != 4 {
		t.Fatalf("len = %d, want 4", len(b))
	}
}

func TestFrustumIntersectsSphere(t *testing.T) {
	for _, homogeneous := range []bool{false, true} {
		var proj, view, vp [16]float32
		Perspective(proj[:], math.Pi/3, 1, 0.1, 50, homogeneous)
		LookAt(view[:], 0, 0, 0, 0, 0, -1, 0, 1, 0)
		Mul4(vp[:], proj[:], view[:])
		f := ExtractFrustumFromMatrix(vp[:], homogeneous)

		if !f.IntersectsSphere(0, 0, -10, 1) {
			t.Errorf("homogeneous=%v: sphere in front culled", homogeneous)
		}
		if f.IntersectsSphere(0, 0, 10, 1) {
			t.Errorf("homogeneous=%v: sphere behind kept", homogeneous)
		}
		if f.IntersectsSphere(0, 0, -60, 1) {
			t.Errorf("homogeneous=%v: sphere past far plane kept", homogeneous)
		}
		if !f.IntersectsSphere(0, 0, -50.5, 1) {
			t.Errorf("homogeneous=%v: sphere straddling the far plane culled", homogeneous)
		}
	}
}

func TestCoalesce(t *testing.T) {
	if got := Coalesce(0, 0, 3, 4); got != 3 {
		t.Errorf("Coalesce = %d, want 3", got)
	}
	if got := Coalesce("", ""); got != "" {
		t.Errorf("Coalesce = %q, want empty", got)
	}
}
