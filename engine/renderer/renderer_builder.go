package renderer

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithMode sets the initial lighting strategy. Defaults to ModeForwardPlus.
//
// Parameters:
//   - m: the lighting mode
//
// Returns:
//   - RendererBuilderOption: a function that applies the mode option to a renderer
func WithMode(m Mode) RendererBuilderOption {
	return func(r *renderer) {
		r.mode = m
	}
}
