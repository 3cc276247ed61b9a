package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithBuffer binds a buffer owned by another provider. Providers built for different
// layouts over the same data (the compute and render views of the frame group) share
// their buffers this way.
//
// Parameters:
//   - binding: the binding index for this buffer
//   - buf: the shared buffer
//
// Returns:
//   - BindGroupProviderOption: a function that binds the shared buffer
func WithBuffer(binding int, buf *wgpu.Buffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.buffers[binding] = buf
		p.shared[binding] = true
	}
}
