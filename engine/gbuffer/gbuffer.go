// Package gbuffer holds the resolution-sized render targets of the renderer: the
// deferred geometry buffer and the final color target.
//
// The G-buffer is buffer-based: every attribute is a flat per-pixel array indexed
// by y*width + x, rewritten every frame by the geometry stage and read by the
// resolve stage. Targets never resize themselves; a size change goes through
// Resize, and every frame checks Validate first.
package gbuffer

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrSizeMismatch is returned when a target's size disagrees with the resolution
// it is about to be drawn at.
var ErrSizeMismatch = errors.New("gbuffer: target size mismatch")

// ClearDepth is the depth every frame starts from; fragments pass when strictly less.
const ClearDepth float32 = 1.0

// Format names a per-pixel storage format, spelled as in WGSL.
type Format string

const (
	FormatRGBA16Float Format = "rgba16float"
	FormatRGBA32Float Format = "rgba32float"
	FormatDepth24Plus Format = "depth24plus"
)

// Attachment describes one G-buffer attribute as the GPU allocates it.
type Attachment struct {
	Name          string
	Format        Format
	BytesPerPixel int
}

// Attachments lists the G-buffer attributes in binding order. The GPU backend
// allocates one target per entry.
var Attachments = []Attachment{
	{Name: "albedo", Format: FormatRGBA16Float, BytesPerPixel: 8},
	{Name: "normal", Format: FormatRGBA16Float, BytesPerPixel: 8},
	{Name: "position", Format: FormatRGBA32Float, BytesPerPixel: 16},
	{Name: "depth", Format: FormatDepth24Plus, BytesPerPixel: 4},
}

// GBuffer is the CPU G-buffer: albedo, view-space normal, view-space position and
// depth per pixel.
type GBuffer struct {
	width  uint32
	height uint32

	Albedo   []mgl32.Vec3
	Normal   []mgl32.Vec3
	Position []mgl32.Vec3
	Depth    []float32
}

// New allocates a cleared G-buffer of the given size.
//
// Parameters:
//   - width, height: the resolution in pixels
//
// Returns:
//   - *GBuffer: the allocated buffer
func New(width, height uint32) *GBuffer {
	g := &GBuffer{}
	g.Resize(width, height)
	return g
}

// Size returns the resolution the buffer was allocated for.
func (g *GBuffer) Size() (uint32, uint32) {
	return g.width, g.height
}

// Resize reallocates every attribute for the new resolution. Contents are lost.
func (g *GBuffer) Resize(width, height uint32) {
	n := int(width) * int(height)
	g.width, g.height = width, height
	g.Albedo = make([]mgl32.Vec3, n)
	g.Normal = make([]mgl32.Vec3, n)
	g.Position = make([]mgl32.Vec3, n)
	g.Depth = make([]float32, n)
	g.Clear()
}

// Clear resets depth to ClearDepth and every attribute to zero.
func (g *GBuffer) Clear() {
	clear(g.Albedo)
	clear(g.Normal)
	clear(g.Position)
	for i := range g.Depth {
		g.Depth[i] = ClearDepth
	}
}

// Validate checks that the buffer matches the resolution a frame is about to use.
//
// Parameters:
//   - width, height: the frame's resolution
//
// Returns:
//   - error: an error wrapping ErrSizeMismatch, or nil
func (g *GBuffer) Validate(width, height uint32) error {
	return validate("gbuffer", g.width, g.height, width, height)
}

// Covered reports whether pixel i was written this frame.
func (g *GBuffer) Covered(i int) bool {
	return g.Depth[i] < ClearDepth
}

// ByteSize returns what the GPU allocates for this resolution across all attachments.
func ByteSize(width, height uint32) int {
	total := 0
	for _, a := range Attachments {
		total += a.BytesPerPixel
	}
	return total * int(width) * int(height)
}

func validate(name string, have, haveH, want, wantH uint32) error {
	if have != want || haveH != wantH {
		return fmt.Errorf("%w: %s is %dx%d, frame is %dx%d", ErrSizeMismatch, name, have, haveH, want, wantH)
	}
	return nil
}
