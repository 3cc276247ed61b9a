package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer"
	"github.com/Carmen-Shannon/oxy-cluster/engine/window"
	"go.uber.org/zap"
)

// EngineBuilderOption is a functional option for configuring an Engine.
type EngineBuilderOption func(*engine)

// WithRenderer sets the renderer the engine drives. Required.
//
// Parameters:
//   - r: an initialized Renderer
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderer(r renderer.Renderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithWindow sets the window whose message loop Run blocks on and whose resize and
// key events the engine handles. Without a window the engine runs headless.
//
// Parameters:
//   - w: an open Window
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithClock sets the source of frame timestamps. Defaults to the time since
// NewEngine.
//
// Parameters:
//   - clock: returns the current frame time
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithClock(clock func() time.Duration) EngineBuilderOption {
	return func(e *engine) {
		e.clock = clock
	}
}

// WithLightField makes the engine own the renderer's light set: it is scattered
// at construction and regrown by SetLightCount.
//
// Parameters:
//   - field: placement and animation parameters
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLightField(field LightField) EngineBuilderOption {
	return func(e *engine) {
		e.field = &field
	}
}

// WithLogger sets the parent logger. Defaults to the renderer context's logger.
//
// Parameters:
//   - log: the parent logger
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(log *zap.Logger) EngineBuilderOption {
	return func(e *engine) {
		e.log = log
	}
}

// WithProfiling enables or disables frame statistics.
//
// Parameters:
//   - enabled: if true, enables profiling
//   - interval: reporting interval (defaults to one second if <= 0)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool, interval time.Duration) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled.Store(enabled)
		if interval > 0 {
			e.profileInterval = interval
		}
	}
}

// WithTickRate sets the tick rate in ticks per second.
// Values <= 0 are treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Second / time.Duration(fps)
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Second / time.Duration(fps)
	}
}
