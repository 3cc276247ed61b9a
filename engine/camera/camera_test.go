package camera

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

func TestViewLooksDownNegativeZ(t *testing.T) {
	c := NewCamera(WithPosition(0, 0, 5), WithTarget(0, 0, 0), WithResolution(800, 600))

	p := c.ViewMatrix().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	if math.Abs(float64(p[2]+5)) > 1e-5 {
		t.Errorf("target should be 5 units down -Z in view space, got z=%v", p[2])
	}
	if got := c.Aspect(); math.Abs(float64(got-800.0/600.0)) > 1e-6 {
		t.Errorf("aspect = %v", got)
	}
}

func TestInverseProjection(t *testing.T) {
	c := NewCamera(WithPlanes(0.5, 200), WithResolution(1920, 1080))
	id := c.ProjectionMatrix().Mul4(c.InverseProjectionMatrix())
	if !id.ApproxEqualThreshold(mgl32.Ident4(), 1e-4) {
		t.Errorf("proj * invProj != identity: %v", id)
	}
}

func TestFrameSnapshot(t *testing.T) {
	c := NewCamera(WithResolution(800, 600))
	f := c.Frame(1500 * time.Millisecond)

	c.SetResolution(1920, 1080)
	c.SetPosition(1, 2, 3)

	if f.Width != 800 || f.Height != 600 {
		t.Errorf("frame data observed a later resolution change: %dx%d", f.Width, f.Height)
	}
	if f.Eye != (mgl32.Vec3{}) {
		t.Errorf("frame data observed a later move: %v", f.Eye)
	}
	if w, h := c.Resolution(); w != 1920 || h != 1080 {
		t.Errorf("resolution = %dx%d", w, h)
	}
}

func TestFrameUniformsLayout(t *testing.T) {
	c := NewCamera(WithPlanes(0.1, 1000), WithResolution(1280, 720))
	u := c.Frame(2 * time.Second).Uniforms()

	if u.Size() != 288 {
		t.Fatalf("uniform size = %d, want 288", u.Size())
	}
	buf := u.Marshal()
	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	if f(256) != 1280 || f(260) != 720 {
		t.Errorf("resolution at 256 = (%v, %v)", f(256), f(260))
	}
	if f(264) != 0.1 || f(268) != 1000 {
		t.Errorf("planes at 264 = (%v, %v)", f(264), f(268))
	}
	if f(272) != 2 {
		t.Errorf("time at 272 = %v, want 2", f(272))
	}
}
