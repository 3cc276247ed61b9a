package gbuffer

import (
	"image"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
)

// ColorTarget is the final linear color image of a frame.
type ColorTarget struct {
	width  uint32
	height uint32
	Pix    []mgl32.Vec3
}

// NewColorTarget allocates a color target of the given size.
func NewColorTarget(width, height uint32) *ColorTarget {
	c := &ColorTarget{}
	c.Resize(width, height)
	return c
}

func (c *ColorTarget) Size() (uint32, uint32) {
	return c.width, c.height
}

// Resize reallocates the target for the new resolution.
func (c *ColorTarget) Resize(width, height uint32) {
	c.width, c.height = width, height
	c.Pix = make([]mgl32.Vec3, int(width)*int(height))
}

// Fill sets every pixel to v.
func (c *ColorTarget) Fill(v mgl32.Vec3) {
	for i := range c.Pix {
		c.Pix[i] = v
	}
}

// At returns the color of pixel (x, y), origin top-left.
func (c *ColorTarget) At(x, y int) mgl32.Vec3 {
	return c.Pix[y*int(c.width)+x]
}

// Validate checks that the target matches the frame's resolution.
//
// Returns:
//   - error: an error wrapping ErrSizeMismatch, or nil
func (c *ColorTarget) Validate(width, height uint32) error {
	return validate("color target", c.width, c.height, width, height)
}

// Image converts the target to 8-bit RGBA, clamping each channel to [0, 1].
func (c *ColorTarget) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, int(c.width), int(c.height)))
	for i, p := range c.Pix {
		img.SetRGBA(i%int(c.width), i/int(c.width), color.RGBA{
			R: to8(p[0]),
			G: to8(p[1]),
			B: to8(p[2]),
			A: 255,
		})
	}
	return img
}

func to8(v float32) uint8 {
	return uint8(mgl32.Clamp(v, 0, 1)*255 + 0.5)
}

// DepthTarget is a standalone depth buffer for the forward paths.
type DepthTarget struct {
	width  uint32
	height uint32
	Depth  []float32
}

// NewDepthTarget allocates a cleared depth target of the given size.
func NewDepthTarget(width, height uint32) *DepthTarget {
	d := &DepthTarget{}
	d.Resize(width, height)
	return d
}

func (d *DepthTarget) Size() (uint32, uint32) {
	return d.width, d.height
}

// Resize reallocates the target for the new resolution and clears it.
func (d *DepthTarget) Resize(width, height uint32) {
	d.width, d.height = width, height
	d.Depth = make([]float32, int(width)*int(height))
	d.Clear()
}

// Clear resets every pixel to ClearDepth.
func (d *DepthTarget) Clear() {
	for i := range d.Depth {
		d.Depth[i] = ClearDepth
	}
}

// Validate checks that the target matches the frame's resolution.
//
// Returns:
//   - error: an error wrapping ErrSizeMismatch, or nil
func (d *DepthTarget) Validate(width, height uint32) error {
	return validate("depth target", d.width, d.height, width, height)
}
