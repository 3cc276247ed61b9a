package light

import "github.com/go-gl/mathgl/mgl32"

// Light is a point light. Lights live by value inside a Store's fixed-capacity
// array; the array index of a light is its identity for cluster assignment.
type Light struct {
	// Position is the world-space center of the light.
	Position mgl32.Vec3
	// Radius is the distance beyond which the light contributes nothing.
	// It doubles as the bounding-sphere radius for cluster assignment.
	Radius float32
	// Color is the linear RGB color.
	Color mgl32.Vec3
	// Intensity scales Color.
	Intensity float32
}

// NewLight creates a white point light with unit radius and intensity, then applies
// the given options.
//
// Parameters:
//   - options: functional options applied in order
//
// Returns:
//   - Light: the configured light
func NewLight(options ...LightBuilderOption) Light {
	l := Light{
		Radius:    1,
		Color:     mgl32.Vec3{1, 1, 1},
		Intensity: 1,
	}
	for _, option := range options {
		option(&l)
	}
	return l
}

// Radiance returns Color scaled by Intensity.
func (l Light) Radiance() mgl32.Vec3 {
	return l.Color.Mul(l.Intensity)
}
