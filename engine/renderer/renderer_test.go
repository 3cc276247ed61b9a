package renderer

import (
	"errors"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/camera"
	"github.com/Carmen-Shannon/oxy-cluster/engine/cluster"
	"github.com/Carmen-Shannon/oxy-cluster/engine/gbuffer"
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/Carmen-Shannon/oxy-cluster/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

var testGrid = cluster.Config{X: 8, Y: 6, Z: 12, MaxLightsPerCluster: 64, WorkgroupSize: 32}

func testScene() scene.Scene {
	floor := scene.NewNode("floor").Add(&scene.Material{Name: "grey", Albedo: mgl32.Vec4{0.8, 0.8, 0.8, 1}}, scene.NewPlane(20))
	box := scene.NewNode("box").Add(&scene.Material{Name: "red", Albedo: mgl32.Vec4{0.9, 0.2, 0.2, 1}}, scene.NewBox(mgl32.Vec3{1, 1, 1}))
	box.Local = mgl32.Translate3D(0, 0.5, 0)
	return scene.NewScene("test", scene.WithNodes(floor, box))
}

func testContext(width, height uint32, lights int) *Context {
	store := light.NewStore(64)
	store.SetAmbient(0.05, 0.05, 0.05)
	for i := range lights {
		a := float32(i) / float32(max(lights, 1)) * 2 * math.Pi
		x := float32(math.Cos(float64(a))) * 3
		z := float32(math.Sin(float64(a))) * 3
		store.Add(light.NewLight(
			light.WithPosition(x, 0.75, z),
			light.WithColor(1, 0.9, 0.7),
			light.WithIntensity(2),
			light.WithRadius(3.5),
		))
	}
	return &Context{
		Grid: testGrid,
		Camera: camera.NewCamera(
			camera.WithPosition(0, 4, 7),
			camera.WithTarget(0, 0, 0),
			camera.WithPlanes(0.1, 50),
			camera.WithResolution(width, height),
		),
		Lights:     store,
		Scene:      testScene(),
		ClearColor: mgl32.Vec3{0.1, 0.2, 0.3},
	}
}

func newTestRenderer(t *testing.T, ctx *Context, mode Mode) (Renderer, SoftwareBackend) {
	t.Helper()
	backend := NewSoftwareBackend(WithWorkers(2))
	r, err := NewRenderer(backend, ctx, WithMode(mode))
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return r, backend
}

func renderColors(t *testing.T, mode Mode, lights int) []mgl32.Vec3 {
	t.Helper()
	r, backend := newTestRenderer(t, testContext(64, 48, lights), mode)
	defer r.Release()
	if err := r.Frame(16 * time.Millisecond); err != nil {
		t.Fatalf("Frame(%s): %v", mode, err)
	}
	return slices.Clone(backend.Color().Pix)
}

func TestForwardMatchesDeferred(t *testing.T) {
	forward := renderColors(t, ModeForwardPlus, 12)
	deferred := renderColors(t, ModeDeferred, 12)
	if len(forward) != len(deferred) {
		t.Fatalf("target sizes differ: %d vs %d", len(forward), len(deferred))
	}
	for i := range forward {
		if forward[i] != deferred[i] {
			t.Fatalf("pixel %d: forward %v, deferred %v", i, forward[i], deferred[i])
		}
	}
}

func TestClusteredMatchesNaive(t *testing.T) {
	forward := renderColors(t, ModeForwardPlus, 12)
	naive := renderColors(t, ModeNaive, 12)

	lit := 0
	for i := range forward {
		for c := range 3 {
			if d := math.Abs(float64(forward[i][c] - naive[i][c])); d > 1e-3 {
				t.Fatalf("pixel %d channel %d: forward %v, naive %v", i, c, forward[i], naive[i])
			}
		}
		if naive[i][0] > 0.2 {
			lit++
		}
	}
	if lit == 0 {
		t.Error("no pixel received direct light; the scene does not exercise the lights")
	}
}

func TestNoLightsIsAmbient(t *testing.T) {
	ctx := testContext(64, 48, 0)
	r, backend := newTestRenderer(t, ctx, ModeDeferred)
	if err := r.Frame(0); err != nil {
		t.Fatalf("Frame: %v", err)
	}

	covered := 0
	for i, c := range backend.Color().Pix {
		for k := range 3 {
			if math.IsNaN(float64(c[k])) || math.IsInf(float64(c[k]), 0) {
				t.Fatalf("pixel %d is not finite: %v", i, c)
			}
		}
		if !backend.GBuffer().Covered(i) {
			if c != ctx.ClearColor {
				t.Fatalf("uncovered pixel %d = %v, want clear color", i, c)
			}
			continue
		}
		covered++
		want := backend.GBuffer().Albedo[i].Mul(0.05)
		if c.Sub(want).Len() > 1e-6 {
			t.Fatalf("pixel %d = %v, want ambient %v", i, c, want)
		}
	}
	if covered == 0 {
		t.Error("scene covered no pixels")
	}
	if res := backend.LastResult(); res.Lights != 0 || res.OverflowedClusters != 0 {
		t.Errorf("cluster result with no lights = %+v", res)
	}
}

func TestFramePassOrder(t *testing.T) {
	tests := []struct {
		mode Mode
		want []string
	}{
		{ModeForwardPlus, []string{PassCluster, PassGeometry}},
		{ModeDeferred, []string{PassCluster, PassGeometry, PassResolve}},
		{ModeNaive, []string{PassGeometry}},
	}
	r, backend := newTestRenderer(t, testContext(32, 24, 4), ModeForwardPlus)
	for i, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			r.SetMode(tt.mode)
			if err := r.Frame(time.Duration(i) * time.Millisecond); err != nil {
				t.Fatalf("Frame: %v", err)
			}
			if got := backend.Submissions(); got != i+1 {
				t.Errorf("submissions = %d, want one per frame (%d)", got, i+1)
			}
			if got := backend.LastPasses(); !slices.Equal(got, tt.want) {
				t.Errorf("passes = %v, want %v", got, tt.want)
			}
		})
	}
	if r.Frames() != uint64(len(tests)) {
		t.Errorf("Frames() = %d, want %d", r.Frames(), len(tests))
	}
}

func TestStaleTargetsRejected(t *testing.T) {
	ctx := testContext(32, 24, 2)
	r, backend := newTestRenderer(t, ctx, ModeDeferred)

	ctx.Camera.SetResolution(40, 30)
	err := r.Frame(0)
	if !errors.Is(err, ErrStaleTarget) || !errors.Is(err, gbuffer.ErrSizeMismatch) {
		t.Fatalf("Frame after resolution change = %v, want ErrStaleTarget", err)
	}
	if backend.Submissions() != 0 {
		t.Errorf("a stale frame was submitted")
	}

	if err := r.Resize(40, 30); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if err := r.Frame(0); err != nil {
		t.Fatalf("Frame after Resize: %v", err)
	}
}

func TestResizeReallocatesTargets(t *testing.T) {
	ctx := testContext(800, 600, 0)
	ctx.Scene = scene.NewScene("empty")
	r, backend := newTestRenderer(t, ctx, ModeDeferred)

	if err := r.Resize(1920, 1080); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if w, h := backend.Color().Size(); w != 1920 || h != 1080 {
		t.Errorf("color target = %dx%d, want 1920x1080", w, h)
	}
	if w, h := backend.GBuffer().Size(); w != 1920 || h != 1080 {
		t.Errorf("gbuffer = %dx%d, want 1920x1080", w, h)
	}
	if len(backend.GBuffer().Depth) != 1920*1080 {
		t.Errorf("gbuffer depth has %d texels", len(backend.GBuffer().Depth))
	}
	if w, h := ctx.Camera.Resolution(); w != 1920 || h != 1080 {
		t.Errorf("camera resolution = %dx%d, want 1920x1080", w, h)
	}
	if err := r.Frame(0); err != nil {
		t.Fatalf("Frame at new size: %v", err)
	}
	if got := backend.Color().At(1919, 1079); got != ctx.ClearColor {
		t.Errorf("last pixel = %v, want clear color", got)
	}

	if err := r.Resize(0, 1080); err == nil {
		t.Error("Resize(0, 1080) should fail")
	}
}

func TestNewRendererValidatesContext(t *testing.T) {
	ctx := testContext(16, 16, 0)
	ctx.Scene = nil
	if _, err := NewRenderer(NewSoftwareBackend(), ctx); err == nil {
		t.Error("NewRenderer accepted a context without a scene")
	}

	ctx = testContext(16, 16, 0)
	ctx.Grid.MaxLightsPerCluster = 0
	if _, err := NewRenderer(NewSoftwareBackend(), ctx); !errors.Is(err, cluster.ErrInvalidConfig) {
		t.Errorf("NewRenderer with a bad grid = %v, want ErrInvalidConfig", err)
	}
}

func TestEncoderSubmitsOnce(t *testing.T) {
	_, backend := newTestRenderer(t, testContext(16, 16, 1), ModeNaive)
	enc, err := backend.BeginEncoding()
	if err != nil {
		t.Fatalf("BeginEncoding: %v", err)
	}
	if err := enc.Submit(); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if err := enc.Submit(); err == nil {
		t.Error("second Submit should fail")
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeForwardPlus, ModeDeferred, ModeNaive} {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseMode("raytraced"); err == nil {
		t.Error("ParseMode accepted an unknown name")
	}
}

// failingBackend wraps a backend and fails the geometry pass on demand.
type failingBackend struct {
	RendererBackend
	failGeometry bool
	discards     int
}

func (b *failingBackend) BeginEncoding() (CommandEncoder, error) {
	enc, err := b.RendererBackend.BeginEncoding()
	if err != nil {
		return nil, err
	}
	return &failingEncoder{CommandEncoder: enc, backend: b}, nil
}

type failingEncoder struct {
	CommandEncoder
	backend *failingBackend
}

func (e *failingEncoder) EncodeGeometryPass(fs *FrameState, s scene.Scene) error {
	if e.backend.failGeometry {
		return errors.New("out of vertex buffers")
	}
	return e.CommandEncoder.EncodeGeometryPass(fs, s)
}

func (e *failingEncoder) Discard() {
	e.backend.discards++
	e.CommandEncoder.Discard()
}

func TestFrameDiscardsFailedEncoding(t *testing.T) {
	sw := NewSoftwareBackend(WithWorkers(2))
	backend := &failingBackend{RendererBackend: sw, failGeometry: true}
	r, err := NewRenderer(backend, testContext(16, 16, 2), WithMode(ModeDeferred))
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	defer r.Release()

	if err := r.Frame(0); err == nil {
		t.Fatal("expected the geometry error")
	}
	if backend.discards != 1 || r.Frames() != 0 || sw.Submissions() != 0 {
		t.Fatalf("discards = %d, frames = %d, submissions = %d; want 1, 0, 0",
			backend.discards, r.Frames(), sw.Submissions())
	}

	// the next frame encodes normally and is not discarded
	backend.failGeometry = false
	if err := r.Frame(time.Millisecond); err != nil {
		t.Fatalf("Frame after a failed frame: %v", err)
	}
	if backend.discards != 1 || r.Frames() != 1 {
		t.Errorf("discards = %d, frames = %d; want 1, 1", backend.discards, r.Frames())
	}
}

func TestDiscardedEncoderCannotSubmit(t *testing.T) {
	_, backend := newTestRenderer(t, testContext(16, 16, 1), ModeNaive)
	enc, err := backend.BeginEncoding()
	if err != nil {
		t.Fatalf("BeginEncoding: %v", err)
	}
	if err := enc.EncodeGeometryPass(&FrameState{Mode: ModeNaive}, testScene()); err != nil {
		t.Fatalf("EncodeGeometryPass: %v", err)
	}
	enc.Discard()
	if err := enc.Submit(); err == nil {
		t.Error("Submit after Discard should fail")
	}
	if backend.Submissions() != 0 {
		t.Errorf("submissions = %d, want 0", backend.Submissions())
	}
}

func TestReleaseStopsBackend(t *testing.T) {
	r, backend := newTestRenderer(t, testContext(16, 16, 2), ModeForwardPlus)
	if err := r.Frame(0); err != nil {
		t.Fatalf("Frame: %v", err)
	}
	r.Release()
	r.Release()
	if _, err := backend.BeginEncoding(); err == nil {
		t.Error("BeginEncoding after Release should fail")
	}
	if err := r.Frame(time.Millisecond); err == nil {
		t.Error("Frame after Release should fail")
	}
}

func TestTransformVertexNormalUnderScale(t *testing.T) {
	modelView := mgl32.Translate3D(0, 0, -5).Mul4(mgl32.Scale3D(4, 1, 1))
	normalMat := common.NormalMatrix(modelView)
	v := transformVertex(mgl32.Vec3{}, mgl32.Vec3{1, 1, 0}, modelView, normalMat, mgl32.Ident4())

	// the surface through the vertex spans the model-space tangent (1, -1, 0)
	tangent := common.TransformDirection(modelView, mgl32.Vec3{1, -1, 0})
	if d := v.normal.Dot(tangent); math.Abs(float64(d)) > 1e-5 {
		t.Errorf("normal %v not perpendicular to the scaled surface (dot %v)", v.normal, d)
	}
	if l := v.normal.Len(); math.Abs(float64(l)-1) > 1e-5 {
		t.Errorf("normal length = %v, want 1", l)
	}
	if v.view != (mgl32.Vec3{0, 0, -5}) {
		t.Errorf("view position = %v", v.view)
	}
}
