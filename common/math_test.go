package common

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestRoundUp16(t *testing.T) {
	cases := map[int]int{0: 0, 1: 16, 4: 16, 16: 16, 17: 32, 404: 416, 4 + 256*4: 1040}
	for in, want := range cases {
		if got := RoundUp16(in); got != want {
			t.Errorf("RoundUp16(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestPerspectiveDepthRange(t *testing.T) {
	near, far := float32(0.5), float32(50)
	proj := Perspective(mgl32.DegToRad(60), 16.0/9.0, near, far)

	for _, tc := range []struct {
		depth float32
		want  float32
	}{
		{near, 0},
		{far, 1},
	} {
		clip := proj.Mul4x1(mgl32.Vec4{0, 0, -tc.depth, 1})
		ndcZ := clip[2] / clip[3]
		if math.Abs(float64(ndcZ-tc.want)) > 1e-5 {
			t.Errorf("depth %v mapped to %v, want %v", tc.depth, ndcZ, tc.want)
		}
	}
}

func TestUnprojectRoundTrip(t *testing.T) {
	proj := Perspective(mgl32.DegToRad(45), 4.0/3.0, 0.1, 100)
	invProj := proj.Inv()

	view := mgl32.Vec3{1.5, -2, -7}
	clip := proj.Mul4x1(view.Vec4(1))
	ndc := clip.Vec3().Mul(1 / clip[3])

	got := Unproject(invProj, ndc)
	if !got.ApproxEqualThreshold(view, 1e-3) {
		t.Errorf("Unproject = %v, want %v", got, view)
	}
}

func TestNormalMatrixNonUniformScale(t *testing.T) {
	m := mgl32.Translate3D(3, 0, 0).Mul4(mgl32.Scale3D(2, 1, 1))
	normal := TransformDirection(NormalMatrix(m), mgl32.Vec3{1, 1, 0})
	tangent := TransformDirection(m, mgl32.Vec3{1, -1, 0})
	if d := normal.Dot(tangent); math.Abs(float64(d)) > 1e-5 {
		t.Errorf("normal %v not perpendicular to tangent %v (dot %v)", normal, tangent, d)
	}
	// the naive transform tilts the normal
	if d := TransformDirection(m, mgl32.Vec3{1, 1, 0}).Dot(tangent); math.Abs(float64(d)) < 1 {
		t.Errorf("expected the upper 3x3 alone to skew the normal, dot %v", d)
	}

	if got := NormalMatrix(mgl32.Translate3D(1, 2, 3)); !got.ApproxEqual(mgl32.Ident4()) {
		t.Errorf("NormalMatrix of a translation = %v, want identity", got)
	}
}

func TestPutMat4(t *testing.T) {
	buf := make([]byte, 64)
	if end := PutMat4(buf, 0, mgl32.Ident4()); end != 64 {
		t.Fatalf("PutMat4 returned offset %d, want 64", end)
	}
	// column-major identity: element 5 is the second diagonal entry
	if buf[5*4+3] != 0x3f || buf[5*4+2] != 0x80 {
		t.Errorf("unexpected encoding of m[5]: % x", buf[20:24])
	}
}

func TestClampAndCeilDiv(t *testing.T) {
	if Clamp(5, 0, 3) != 3 || Clamp(-1, 0, 3) != 0 || Clamp(2, 0, 3) != 2 {
		t.Error("Clamp returned a value outside the range")
	}
	if CeilDiv(3456, 128) != 27 || CeilDiv(3457, 128) != 28 || CeilDiv(1, 64) != 1 {
		t.Error("CeilDiv mismatch")
	}
}
