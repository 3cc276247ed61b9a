package wgpu_backend

import (
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
)

// WGPUBackendOption is a functional option applied by NewWGPUBackend.
type WGPUBackendOption func(*wgpuBackend)

// WithPresentMode sets how frames are delivered to the display. Defaults to VSync.
//
// Parameters:
//   - mode: the present mode
//
// Returns:
//   - WGPUBackendOption: a function that sets the present mode
func WithPresentMode(mode renderer.PresentMode) WGPUBackendOption {
	return func(b *wgpuBackend) {
		switch mode {
		case renderer.PresentModeUncapped:
			b.presentMode = wgpu.PresentModeImmediate
		default:
			b.presentMode = wgpu.PresentModeFifo
		}
	}
}

// WithForceFallbackAdapter requests the software fallback adapter.
func WithForceFallbackAdapter(force bool) WGPUBackendOption {
	return func(b *wgpuBackend) {
		b.forceFallbackAdapter = force
	}
}
