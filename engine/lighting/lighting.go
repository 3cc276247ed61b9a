// Package lighting holds the one shading formula used by every lighting path: the
// forward fragment stage, the deferred resolve and the naive reference mode. The Go
// functions and the WGSL sources below compute the same thing.
package lighting

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/go-gl/mathgl/mgl32"
)

// Epsilon bounds the squared distance in the attenuation denominator.
const Epsilon float32 = 1e-4

// ShadeSource is the WGSL shading library. It expects `frame` and `light_set` to be
// declared by the including shader.
//
//go:embed assets/lighting.wgsl
var ShadeSource string

// ClusteredShadeSource adds cluster lookups on top of ShadeSource. It expects the
// `clusters` buffer to be declared by the including shader.
//
//go:embed assets/lighting_clustered.wgsl
var ClusteredShadeSource string

// Surface is one shaded point. Position and normal share the space of the lights
// passed to Shade.
type Surface struct {
	Albedo   mgl32.Vec3
	Normal   mgl32.Vec3
	Position mgl32.Vec3
}

// Attenuation returns the distance falloff of a light of the given radius at
// distance d. It reaches zero at the radius and never divides by zero.
func Attenuation(d, radius float32) float32 {
	if radius <= 0 {
		return 0
	}
	q := d / radius
	q *= q
	window := common.Clamp(1-q*q, 0, 1)
	return window / max(d*d, Epsilon)
}

// ShadeLight returns the unfiltered contribution of one light to a surface.
func ShadeLight(s Surface, l light.Light) mgl32.Vec3 {
	toLight := l.Position.Sub(s.Position)
	d := toLight.Len()
	att := Attenuation(d, l.Radius)
	if att == 0 {
		return mgl32.Vec3{}
	}
	dir := toLight.Mul(1 / max(d, Epsilon))
	ndotl := max(s.Normal.Dot(dir), 0)
	return l.Radiance().Mul(ndotl * att)
}

// Shade evaluates the lights selected by indices and returns the surface color.
//
// Parameters:
//   - s: the surface, in the same space as the lights
//   - lights: the whole light array
//   - indices: the lights to evaluate; nil evaluates every light
//   - ambient: the ambient term added before modulating by albedo
//
// Returns:
//   - mgl32.Vec3: albedo * (ambient + sum of light contributions)
func Shade(s Surface, lights []light.Light, indices []uint32, ambient mgl32.Vec3) mgl32.Vec3 {
	sum := ambient
	if indices == nil {
		for _, l := range lights {
			sum = sum.Add(ShadeLight(s, l))
		}
	} else {
		for _, i := range indices {
			if int(i) < len(lights) {
				sum = sum.Add(ShadeLight(s, lights[i]))
			}
		}
	}
	return mgl32.Vec3{s.Albedo[0] * sum[0], s.Albedo[1] * sum[1], s.Albedo[2] * sum[2]}
}

// ToView transforms light positions into view space, writing into dst.
//
// Parameters:
//   - dst: reused storage, may be nil
//   - lights: world-space lights
//   - view: the view matrix
//
// Returns:
//   - []light.Light: the view-space lights, len(lights) long
func ToView(dst []light.Light, lights []light.Light, view mgl32.Mat4) []light.Light {
	dst = append(dst[:0], lights...)
	for i := range dst {
		dst[i].Position = common.TransformPoint(view, dst[i].Position)
	}
	return dst
}
