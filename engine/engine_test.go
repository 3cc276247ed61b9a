package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/camera"
	"github.com/Carmen-Shannon/oxy-cluster/engine/cluster"
	"github.com/Carmen-Shannon/oxy-cluster/engine/config"
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
)

var testField = LightField{
	Count:     8,
	Bounds:    light.Bounds{Min: mgl32.Vec3{-6, 0, -6}, Max: mgl32.Vec3{6, 6, 6}},
	Radius:    3,
	Intensity: 1,
	Seed:      7,
	Speed:     1,
}

func newTestRenderer(t *testing.T, capacity int) renderer.Renderer {
	t.Helper()
	ctx := &renderer.Context{
		Grid: cluster.Config{X: 4, Y: 3, Z: 8, MaxLightsPerCluster: 16, WorkgroupSize: 32},
		Camera: camera.NewCamera(
			camera.WithPosition(0, 10, 20),
			camera.WithTarget(0, 0, 0),
			camera.WithPlanes(0.1, 100),
			camera.WithResolution(32, 24),
		),
		Lights: light.NewStore(capacity),
		Scene:  DefaultScene(),
	}
	r, err := renderer.NewRenderer(renderer.NewSoftwareBackend(renderer.WithWorkers(2)), ctx)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	t.Cleanup(r.Release)
	return r
}

// fakeClock advances by a fixed step on every read.
func fakeClock(step time.Duration) func() time.Duration {
	var now time.Duration
	return func() time.Duration {
		now += step
		return now
	}
}

func newTestEngine(t *testing.T, options ...EngineBuilderOption) *engine {
	t.Helper()
	options = append([]EngineBuilderOption{
		WithRenderer(newTestRenderer(t, 16)),
		WithLightField(testField),
		WithClock(fakeClock(16 * time.Millisecond)),
	}, options...)
	e, err := NewEngine(options...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e.(*engine)
}

func TestNewEngineRequiresRenderer(t *testing.T) {
	if _, err := NewEngine(); err == nil {
		t.Fatal("expected an error without a renderer")
	}
}

func TestLightFieldScattered(t *testing.T) {
	e := newTestEngine(t)
	if n := e.renderer.Context().Lights.Count(); n != testField.Count {
		t.Fatalf("light count = %d, want %d", n, testField.Count)
	}
}

func TestRenderFrameAnimatesLights(t *testing.T) {
	e := newTestEngine(t)
	store := e.renderer.Context().Lights

	if err := e.RenderFrame(0); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	before := store.At(0).Position
	if err := e.RenderFrame(500 * time.Millisecond); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	after := store.At(0).Position

	if before.ApproxEqual(after) {
		t.Errorf("light did not move: %v", before)
	}
	if before[0] != after[0] || before[2] != after[2] {
		t.Errorf("light moved off its vertical track: %v -> %v", before, after)
	}
	if e.renderer.Frames() != 2 {
		t.Errorf("Frames = %d, want 2", e.renderer.Frames())
	}

	// paused animation leaves the lights in place
	e.SetAnimating(false)
	if err := e.RenderFrame(time.Second); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	if got := store.At(0).Position; got != after {
		t.Errorf("paused light moved: %v -> %v", after, got)
	}
}

func TestSetLightCountClamps(t *testing.T) {
	e := newTestEngine(t)
	store := e.renderer.Context().Lights

	e.SetLightCount(100)
	if store.Count() != store.Capacity() {
		t.Errorf("count = %d, want capacity %d", store.Count(), store.Capacity())
	}
	e.SetLightCount(3)
	if store.Count() != 3 {
		t.Errorf("count = %d, want 3", store.Count())
	}
	if err := e.RenderFrame(time.Second); err != nil {
		t.Fatalf("RenderFrame after regrow: %v", err)
	}
}

func TestHandleKey(t *testing.T) {
	e := newTestEngine(t)
	store := e.renderer.Context().Lights

	e.handleKey(common.Key3)
	if e.renderer.Mode() != renderer.ModeDeferred {
		t.Errorf("mode = %s, want deferred", e.renderer.Mode())
	}
	e.handleKey(common.Key1)
	if e.renderer.Mode() != renderer.ModeNaive {
		t.Errorf("mode = %s, want naive", e.renderer.Mode())
	}

	e.handleKey(common.KeyMinus)
	if store.Count() != testField.Count/2 {
		t.Errorf("count = %d after halving, want %d", store.Count(), testField.Count/2)
	}
	e.handleKey(common.KeyEqual)
	if store.Count() != testField.Count {
		t.Errorf("count = %d after doubling, want %d", store.Count(), testField.Count)
	}

	e.handleKey(common.KeySpace)
	if e.animating.Load() {
		t.Error("space did not pause animation")
	}
	e.handleKey(common.KeyP)
	if !e.profilingEnabled.Load() {
		t.Error("P did not enable the profiler")
	}
}

func TestRunStopsOnQuit(t *testing.T) {
	e := newTestEngine(t, WithProfiling(true, 32*time.Millisecond))
	frames := 0
	e.SetRenderCallback(func(time.Duration) {
		frames++
		if frames == 3 {
			e.Quit()
		}
	})

	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if frames != 3 || e.renderer.Frames() != 3 {
		t.Errorf("rendered %d frames (renderer %d), want 3", frames, e.renderer.Frames())
	}
}

func TestRunFailsOnStaleTarget(t *testing.T) {
	e := newTestEngine(t)
	// resolution changed without Resize
	e.renderer.Context().Camera.SetResolution(64, 64)

	err := e.Run()
	if !errors.Is(err, renderer.ErrStaleTarget) {
		t.Fatalf("Run error = %v, want ErrStaleTarget", err)
	}
	if e.renderer.Frames() != 0 {
		t.Errorf("Frames = %d, want 0", e.renderer.Frames())
	}
}

func TestDefaultScene(t *testing.T) {
	s := DefaultScene()
	// floor plane plus 14 boxes
	if got, want := s.TriangleCount(), 2+14*12; got != want {
		t.Errorf("TriangleCount = %d, want %d", got, want)
	}
}

func TestNewFromConfigSoftware(t *testing.T) {
	cfg := config.Default()
	cfg.Renderer.Backend = "software"
	cfg.Renderer.Mode = "deferred"
	cfg.Window.Width, cfg.Window.Height = 64, 48
	cfg.Lights.Count = 20
	cfg.Camera.Up = [3]float32{0, 0, 1}

	e, err := NewFromConfig(cfg, WithClock(fakeClock(time.Millisecond)))
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	r := e.Renderer()
	defer r.Release()

	if r.Mode() != renderer.ModeDeferred {
		t.Errorf("mode = %s, want deferred", r.Mode())
	}
	if n := r.Context().Lights.Count(); n != 20 {
		t.Errorf("light count = %d, want 20", n)
	}
	if up := r.Context().Camera.Up(); up != (mgl32.Vec3{0, 0, 1}) {
		t.Errorf("camera up = %v, want the configured +Z", up)
	}
	if w, h := r.Context().Camera.Resolution(); w != 64 || h != 48 {
		t.Errorf("resolution = %dx%d, want 64x48", w, h)
	}
	if err := e.RenderFrame(0); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	if e.Window() != nil {
		t.Error("software backend opened a window")
	}
}

func TestNewFromConfigRejectsInvalid(t *testing.T) {
	cfg := config.Default()
	cfg.Renderer.Mode = "tiled"
	if _, err := NewFromConfig(cfg); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("error = %v, want config.ErrInvalid", err)
	}
}
