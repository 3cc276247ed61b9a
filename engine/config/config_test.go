package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Window.Width != 1280 || cfg.Window.Height != 720 {
		t.Errorf("expected 1280x720, got %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if cfg.Renderer.Mode != "forward_plus" {
		t.Errorf("expected forward_plus mode, got %s", cfg.Renderer.Mode)
	}
	if cfg.Cluster.X != 16 || cfg.Cluster.Y != 9 || cfg.Cluster.Z != 24 {
		t.Errorf("expected 16x9x24 grid, got %dx%dx%d", cfg.Cluster.X, cfg.Cluster.Y, cfg.Cluster.Z)
	}
	if cfg.Cluster.MaxLightsPerCluster != 100 {
		t.Errorf("expected 100 lights per cluster, got %d", cfg.Cluster.MaxLightsPerCluster)
	}
	if cfg.Profiling.Interval != time.Second {
		t.Errorf("expected 1s profiling interval, got %v", cfg.Profiling.Interval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
window:
  width: 1920
  height: 1080
renderer:
  backend: software
  mode: deferred
cluster:
  x: 8
  y: 8
  z: 16
  max_lights_per_cluster: 64
lights:
  count: 250
logging:
  level: debug
profiling:
  interval: 500ms
`
	if err := os.WriteFile(path, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Window.Width != 1920 || cfg.Window.Height != 1080 {
		t.Errorf("expected 1920x1080, got %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if cfg.Renderer.Backend != "software" || cfg.Renderer.Mode != "deferred" {
		t.Errorf("renderer section not applied: %+v", cfg.Renderer)
	}
	if cfg.Cluster.X != 8 || cfg.Cluster.Z != 16 || cfg.Cluster.MaxLightsPerCluster != 64 {
		t.Errorf("cluster section not applied: %+v", cfg.Cluster)
	}
	// values absent from the file keep their defaults
	if cfg.Cluster.WorkgroupSize != 128 {
		t.Errorf("expected default workgroup size 128, got %d", cfg.Cluster.WorkgroupSize)
	}
	if cfg.Lights.Count != 250 || cfg.Lights.Capacity != 5000 {
		t.Errorf("lights section not merged: %+v", cfg.Lights)
	}
	if cfg.Profiling.Interval != 500*time.Millisecond {
		t.Errorf("expected 500ms interval, got %v", cfg.Profiling.Interval)
	}
}

func TestLoadFileRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("lights:\n  count: 9000\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := LoadFile(path); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.Window.Width = 0 }},
		{"unknown backend", func(c *Config) { c.Renderer.Backend = "vulkan" }},
		{"unknown mode", func(c *Config) { c.Renderer.Mode = "tiled" }},
		{"unknown present mode", func(c *Config) { c.Renderer.PresentMode = "mailbox" }},
		{"empty grid", func(c *Config) { c.Cluster.Z = 0 }},
		{"zero capacity", func(c *Config) { c.Cluster.MaxLightsPerCluster = 0 }},
		{"inverted planes", func(c *Config) { c.Camera.Far = c.Camera.Near }},
		{"window smaller than grid", func(c *Config) { c.Window.Height = c.Cluster.Y - 1 }},
		{"zero up", func(c *Config) { c.Camera.Up = [3]float32{} }},
		{"up along view", func(c *Config) { c.Camera.Target = [3]float32{-7, 5, 0} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Renderer.Mode = "naive"
	cfg.Lights.Count = 42
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if loaded.Renderer.Mode != "naive" || loaded.Lights.Count != 42 {
		t.Errorf("round trip lost values: mode=%s lights=%d", loaded.Renderer.Mode, loaded.Lights.Count)
	}
}
