package light

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// Bounds is an axis-aligned world-space box that lights are placed and animated in.
type Bounds struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// Scatter fills the store with n lights placed uniformly inside bounds with random
// saturated colors. The same seed always yields the same lights. Existing lights are
// replaced.
//
// Parameters:
//   - s: the destination store
//   - n: number of lights, clamped to the store capacity
//   - bounds: the placement volume
//   - radius: radius given to every light
//   - intensity: intensity given to every light
//   - seed: the PRNG seed
func Scatter(s Store, n int, bounds Bounds, radius, intensity float32, seed uint64) {
	n = min(max(n, 0), s.Capacity())
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	ext := bounds.Max.Sub(bounds.Min)

	s.Clear()
	for range n {
		p := mgl32.Vec3{
			bounds.Min[0] + rng.Float32()*ext[0],
			bounds.Min[1] + rng.Float32()*ext[1],
			bounds.Min[2] + rng.Float32()*ext[2],
		}
		_, _ = s.Add(NewLight(
			WithPosition(p[0], p[1], p[2]),
			WithColor(hueToRGB(rng.Float32())),
			WithRadius(radius),
			WithIntensity(intensity),
		))
	}
}

func hueToRGB(h float32) (r, g, b float32) {
	h6 := h * 6
	r = mgl32.Clamp(float32(math.Abs(float64(h6-3)))-1, 0, 1)
	g = mgl32.Clamp(2-float32(math.Abs(float64(h6-2))), 0, 1)
	b = mgl32.Clamp(2-float32(math.Abs(float64(h6-4))), 0, 1)
	return r, g, b
}

// Animator moves lights vertically through their bounds as a pure function of the
// frame timestamp, so replaying the same timestamps reproduces the same frames.
type Animator struct {
	bounds Bounds
	speed  float32
	base   []mgl32.Vec3
}

// NewAnimator captures the current light positions as the animation origin.
//
// Parameters:
//   - s: the store whose lights are animated
//   - bounds: the vertical travel range is [bounds.Min.Y, bounds.Max.Y]
//   - speed: angular speed in radians per second
//
// Returns:
//   - *Animator: the animator
func NewAnimator(s Store, bounds Bounds, speed float32) *Animator {
	a := &Animator{bounds: bounds, speed: speed}
	s.Update(func(_ int, l *Light) {
		a.base = append(a.base, l.Position)
	})
	return a
}

// Apply positions every animated light for timestamp t. Lights added after the
// animator was created are left untouched.
//
// Parameters:
//   - s: the store to update
//   - t: the injected frame timestamp
func (a *Animator) Apply(s Store, t time.Duration) {
	sec := float32(t.Seconds())
	lo, hi := a.bounds.Min[1], a.bounds.Max[1]
	s.Update(func(i int, l *Light) {
		if i >= len(a.base) {
			return
		}
		// golden-ratio phase spread keeps neighbouring indices out of step
		phase := float32(i) * 2.3999632
		wave := 0.5 + 0.5*float32(math.Sin(float64(sec*a.speed+phase)))
		l.Position = mgl32.Vec3{a.base[i][0], lo + (hi-lo)*wave, a.base[i][2]}
	})
}
