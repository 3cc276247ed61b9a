package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging and profiling")
	flagBackend  = flag.String("backend", "", "Renderer backend (wgpu, software)")
	flagMode     = flag.String("mode", "", "Lighting strategy (naive, forward_plus, deferred)")
	flagLights   = flag.Int("lights", -1, "Number of lights")
	flagWidth    = flag.Int("width", 0, "Window width")
	flagHeight   = flag.Int("height", 0, "Window height")
	flagScene    = flag.String("scene", "", "Path to a glTF scene")
	flagFallback = flag.Bool("fallback-adapter", false, "Force the software WebGPU adapter")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
		cfg.Profiling.Enabled = true
	}
	if *flagBackend != "" {
		cfg.Renderer.Backend = *flagBackend
	}
	if *flagMode != "" {
		cfg.Renderer.Mode = *flagMode
	}
	if *flagLights >= 0 {
		cfg.Lights.Count = *flagLights
	}
	if *flagWidth > 0 {
		cfg.Window.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Window.Height = *flagHeight
	}
	if *flagScene != "" {
		cfg.Scene.GLTFPath = *flagScene
	}
	if *flagFallback {
		cfg.Renderer.ForceFallbackAdapter = true
	}
}
