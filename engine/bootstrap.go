package engine

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-cluster/engine/camera"
	"github.com/Carmen-Shannon/oxy-cluster/engine/cluster"
	"github.com/Carmen-Shannon/oxy-cluster/engine/config"
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/Carmen-Shannon/oxy-cluster/engine/loader"
	"github.com/Carmen-Shannon/oxy-cluster/engine/logger"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer/wgpu_backend"
	"github.com/Carmen-Shannon/oxy-cluster/engine/scene"
	"github.com/Carmen-Shannon/oxy-cluster/engine/window"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// lightSpeed is the animation speed used when cfg.Lights.Animate is set.
const lightSpeed = 0.8

// NewFromConfig assembles a complete engine from configuration: the window and
// WebGPU backend (or the headless software backend), the camera, the light field,
// the scene and the renderer. Options are applied after the configured ones.
//
// Parameters:
//   - cfg: a validated configuration
//   - options: additional engine options
//
// Returns:
//   - Engine: the engine, ready to Run
//   - error: a configuration, loading or device error
func NewFromConfig(cfg *config.Config, options ...EngineBuilderOption) (Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.Named("oxy")

	mode, err := renderer.ParseMode(cfg.Renderer.Mode)
	if err != nil {
		return nil, err
	}

	s, err := loadScene(cfg.Scene, log)
	if err != nil {
		return nil, err
	}

	var (
		win     window.Window
		backend renderer.RendererBackend
	)
	width, height := cfg.Window.Width, cfg.Window.Height
	switch cfg.Renderer.Backend {
	case "software":
		backend = renderer.NewSoftwareBackend()
	case "wgpu":
		win, err = window.NewWindow(
			window.WithTitle(cfg.Window.Title),
			window.WithSize(width, height),
			window.WithMinSize(cfg.Cluster.X, cfg.Cluster.Y),
		)
		if err != nil {
			return nil, err
		}
		present := renderer.PresentModeVSync
		if cfg.Renderer.PresentMode == "immediate" {
			present = renderer.PresentModeUncapped
		}
		backend, err = wgpu_backend.NewWGPUBackend(win.SurfaceDescriptor(),
			wgpu_backend.WithPresentMode(present),
			wgpu_backend.WithForceFallbackAdapter(cfg.Renderer.ForceFallbackAdapter),
		)
		if err != nil {
			_ = win.Close()
			return nil, err
		}
		// framebuffer pixels can differ from the requested size on high-DPI displays
		width, height = win.Width(), win.Height()
	}

	cc := cfg.Camera
	cam := camera.NewCamera(
		camera.WithFov(mgl32.DegToRad(cc.FovDegrees)),
		camera.WithPlanes(cc.Near, cc.Far),
		camera.WithPosition(cc.Position[0], cc.Position[1], cc.Position[2]),
		camera.WithTarget(cc.Target[0], cc.Target[1], cc.Target[2]),
		camera.WithUp(cc.Up[0], cc.Up[1], cc.Up[2]),
		camera.WithResolution(uint32(width), uint32(height)),
	)

	lc := cfg.Lights
	store := light.NewStore(lc.Capacity)
	store.SetAmbient(lc.Ambient[0], lc.Ambient[1], lc.Ambient[2])

	bg := cfg.Renderer.ClearColor
	ctx := &renderer.Context{
		Grid: cluster.Config{
			X:                   cfg.Cluster.X,
			Y:                   cfg.Cluster.Y,
			Z:                   cfg.Cluster.Z,
			MaxLightsPerCluster: cfg.Cluster.MaxLightsPerCluster,
			WorkgroupSize:       cfg.Cluster.WorkgroupSize,
		},
		Camera:     cam,
		Lights:     store,
		Scene:      s,
		ClearColor: mgl32.Vec3{float32(bg[0]), float32(bg[1]), float32(bg[2])},
		Logger:     log,
	}
	r, err := renderer.NewRenderer(backend, ctx, renderer.WithMode(mode))
	if err != nil {
		if win != nil {
			_ = win.Close()
		}
		return nil, err
	}

	field := LightField{
		Count:     lc.Count,
		Bounds:    light.Bounds{Min: mgl32.Vec3(lc.BoundsMin), Max: mgl32.Vec3(lc.BoundsMax)},
		Radius:    lc.Radius,
		Intensity: lc.Intensity,
		Seed:      lc.Seed,
	}
	if lc.Animate {
		field.Speed = lightSpeed
	}

	opts := []EngineBuilderOption{
		WithRenderer(r),
		WithLogger(log),
		WithLightField(field),
		WithProfiling(cfg.Profiling.Enabled, cfg.Profiling.Interval),
		WithTickRate(float64(cfg.Renderer.TickRate)),
	}
	if win != nil {
		opts = append(opts, WithWindow(win))
	}
	return NewEngine(append(opts, options...)...)
}

// loadScene loads the configured glTF file, or builds the default scene when no
// path is configured.
func loadScene(sc config.SceneConfig, log *zap.Logger) (scene.Scene, error) {
	if sc.GLTFPath == "" {
		return DefaultScene(), nil
	}
	l := loader.NewLoader(loader.BackendTypeGLTF, loader.WithLogger(log))
	s, err := l.Load(sc.GLTFPath)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	return s, nil
}

// DefaultScene returns a ground plane with two rows of pillars, sized to the
// default light bounds.
//
// Returns:
//   - scene.Scene: the scene
func DefaultScene() scene.Scene {
	floor := &scene.Material{Name: "floor", Albedo: mgl32.Vec4{0.8, 0.8, 0.8, 1}}
	stone := &scene.Material{Name: "pillar", Albedo: mgl32.Vec4{0.7, 0.65, 0.6, 1}}

	root := scene.NewNode("root")
	root.AddChild(scene.NewNode("floor").Add(floor, scene.NewPlane(32)))

	pillar := scene.NewBox(mgl32.Vec3{1, 8, 1})
	for i := range 7 {
		x := float32(i-3) * 4
		for _, z := range []float32{-4, 4} {
			n := scene.NewNode(fmt.Sprintf("pillar_%d_%v", i, z)).Add(stone, pillar)
			n.Local = mgl32.Translate3D(x, 4, z)
			root.AddChild(n)
		}
	}
	return scene.NewScene("default", scene.WithNodes(root))
}
