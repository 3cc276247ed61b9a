package camera

import (
	_ "embed"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-cluster/common"
)

// GPUFrameUniformsSource is the canonical WGSL definition of the FrameUniforms struct.
// Matches GPUFrameUniforms layout exactly (288 bytes).
//
//go:embed assets/frame_uniforms.wgsl
var GPUFrameUniformsSource string

// GPUFrameUniforms is the GPU-aligned representation of the per-frame uniform block.
// Size: 288 bytes (WGSL uniform layout).
type GPUFrameUniforms struct {
	View       [16]float32 // offset   0: world to view (mat4x4<f32>)
	Proj       [16]float32 // offset  64: view to clip
	InvProj    [16]float32 // offset 128: clip to view
	ViewProj   [16]float32 // offset 192: world to clip
	Resolution [2]float32  // offset 256: output size in pixels (vec2<f32>)
	Near       float32     // offset 264
	Far        float32     // offset 268
	Time       float32     // offset 272: injected frame timestamp in seconds
	_pad       [3]float32  // offset 276: padding to 288 bytes
}

// Uniforms converts the captured camera block into its GPU representation.
func (f FrameData) Uniforms() GPUFrameUniforms {
	return GPUFrameUniforms{
		View:       f.View,
		Proj:       f.Proj,
		InvProj:    f.InvProj,
		ViewProj:   f.ViewProj,
		Resolution: [2]float32{float32(f.Width), float32(f.Height)},
		Near:       f.Near,
		Far:        f.Far,
		Time:       float32(f.Time.Seconds()),
	}
}

// Size returns the size of the GPUFrameUniforms struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (288)
func (g *GPUFrameUniforms) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUFrameUniforms struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUFrameUniforms) Marshal() []byte {
	buf := make([]byte, g.Size())
	off := common.PutFloat32s(buf, 0, g.View[:]...)
	off = common.PutFloat32s(buf, off, g.Proj[:]...)
	off = common.PutFloat32s(buf, off, g.InvProj[:]...)
	off = common.PutFloat32s(buf, off, g.ViewProj[:]...)
	common.PutFloat32s(buf, off, g.Resolution[0], g.Resolution[1], g.Near, g.Far, g.Time)
	return buf
}
