// Package config handles engine configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrInvalid is returned by Validate for any out-of-range setting.
var ErrInvalid = errors.New("config: invalid")

// Config holds all engine settings.
type Config struct {
	Window    WindowConfig    `yaml:"window"`
	Renderer  RendererConfig  `yaml:"renderer"`
	Cluster   ClusterConfig   `yaml:"cluster"`
	Lights    LightsConfig    `yaml:"lights"`
	Camera    CameraConfig    `yaml:"camera"`
	Scene     SceneConfig     `yaml:"scene"`
	Logging   LoggingConfig   `yaml:"logging"`
	Profiling ProfilingConfig `yaml:"profiling"`
}

// WindowConfig holds window and surface settings.
type WindowConfig struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// RendererConfig selects the backend and lighting strategy.
type RendererConfig struct {
	Backend              string     `yaml:"backend"`      // wgpu or software
	Mode                 string     `yaml:"mode"`         // naive, forward_plus or deferred
	PresentMode          string     `yaml:"present_mode"` // fifo or immediate
	ClearColor           [4]float64 `yaml:"clear_color"`
	ForceFallbackAdapter bool       `yaml:"force_fallback_adapter"`
	TickRate             int        `yaml:"tick_rate"`
}

// ClusterConfig holds the cluster grid dimensions. Changing any of these requires
// a full renderer reallocation.
type ClusterConfig struct {
	X                   int `yaml:"x"`
	Y                   int `yaml:"y"`
	Z                   int `yaml:"z"`
	MaxLightsPerCluster int `yaml:"max_lights_per_cluster"`
	WorkgroupSize       int `yaml:"workgroup_size"`
}

// LightsConfig controls the generated light set.
type LightsConfig struct {
	Capacity  int        `yaml:"capacity"`
	Count     int        `yaml:"count"`
	Radius    float32    `yaml:"radius"`
	Intensity float32    `yaml:"intensity"`
	Seed      uint64     `yaml:"seed"`
	Animate   bool       `yaml:"animate"`
	Ambient   [3]float32 `yaml:"ambient"`
	BoundsMin [3]float32 `yaml:"bounds_min"`
	BoundsMax [3]float32 `yaml:"bounds_max"`
}

// CameraConfig holds the initial camera placement and projection.
type CameraConfig struct {
	FovDegrees float32    `yaml:"fov_degrees"`
	Near       float32    `yaml:"near"`
	Far        float32    `yaml:"far"`
	Position   [3]float32 `yaml:"position"`
	Target     [3]float32 `yaml:"target"`
	Up         [3]float32 `yaml:"up"`
}

// SceneConfig holds scene asset paths.
type SceneConfig struct {
	GLTFPath string `yaml:"gltf_path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// ProfilingConfig controls periodic frame statistics.
type ProfilingConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "oxy-cluster",
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			Backend:     "wgpu",
			Mode:        "forward_plus",
			PresentMode: "fifo",
			ClearColor:  [4]float64{0, 0, 0, 1},
			TickRate:    60,
		},
		Cluster: ClusterConfig{
			X:                   16,
			Y:                   9,
			Z:                   24,
			MaxLightsPerCluster: 100,
			WorkgroupSize:       128,
		},
		Lights: LightsConfig{
			Capacity:  5000,
			Count:     500,
			Radius:    2,
			Intensity: 1,
			Seed:      1,
			Animate:   true,
			Ambient:   [3]float32{0.05, 0.05, 0.05},
			BoundsMin: [3]float32{-14, 0, -6},
			BoundsMax: [3]float32{14, 12, 6},
		},
		Camera: CameraConfig{
			FovDegrees: 60,
			Near:       0.1,
			Far:        1000,
			Position:   [3]float32{-7, 2, 0},
			Target:     [3]float32{0, 2, 0},
			Up:         [3]float32{0, 1, 0},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Profiling: ProfilingConfig{
			Enabled:  false,
			Interval: time.Second,
		},
	}
}

// Validate reports the first setting that cannot produce a working renderer.
//
// Returns:
//   - error: an error wrapping ErrInvalid, or nil
func (c *Config) Validate() error {
	switch {
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fmt.Errorf("%w: window size %dx%d", ErrInvalid, c.Window.Width, c.Window.Height)
	case c.Renderer.Backend != "wgpu" && c.Renderer.Backend != "software":
		return fmt.Errorf("%w: renderer backend %q", ErrInvalid, c.Renderer.Backend)
	case c.Renderer.Mode != "naive" && c.Renderer.Mode != "forward_plus" && c.Renderer.Mode != "deferred":
		return fmt.Errorf("%w: renderer mode %q", ErrInvalid, c.Renderer.Mode)
	case c.Renderer.PresentMode != "fifo" && c.Renderer.PresentMode != "immediate":
		return fmt.Errorf("%w: present mode %q", ErrInvalid, c.Renderer.PresentMode)
	case c.Cluster.X <= 0 || c.Cluster.Y <= 0 || c.Cluster.Z <= 0:
		return fmt.Errorf("%w: cluster grid %dx%dx%d", ErrInvalid, c.Cluster.X, c.Cluster.Y, c.Cluster.Z)
	case c.Cluster.MaxLightsPerCluster <= 0 || c.Cluster.WorkgroupSize <= 0:
		return fmt.Errorf("%w: cluster capacity %d, workgroup size %d", ErrInvalid, c.Cluster.MaxLightsPerCluster, c.Cluster.WorkgroupSize)
	case c.Lights.Capacity <= 0 || c.Lights.Count < 0 || c.Lights.Count > c.Lights.Capacity:
		return fmt.Errorf("%w: light count %d exceeds capacity %d", ErrInvalid, c.Lights.Count, c.Lights.Capacity)
	case c.Window.Width < c.Cluster.X || c.Window.Height < c.Cluster.Y:
		return fmt.Errorf("%w: window %dx%d has fewer pixels than cluster tiles %dx%d", ErrInvalid, c.Window.Width, c.Window.Height, c.Cluster.X, c.Cluster.Y)
	case c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near:
		return fmt.Errorf("%w: camera planes near=%v far=%v", ErrInvalid, c.Camera.Near, c.Camera.Far)
	}

	forward := mgl32.Vec3(c.Camera.Target).Sub(mgl32.Vec3(c.Camera.Position))
	if forward.Cross(mgl32.Vec3(c.Camera.Up)).Len() == 0 {
		return fmt.Errorf("%w: camera up %v is zero or parallel to the view direction", ErrInvalid, c.Camera.Up)
	}
	return nil
}
