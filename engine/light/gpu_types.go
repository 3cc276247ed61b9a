package light

import (
	_ "embed"
	"encoding/binary"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPULightSource is the canonical WGSL definition of the Light and LightSet structs.
// Matches GPULight and GPULightSetHeader exactly.
//
//go:embed assets/light.wgsl
var GPULightSource string

// GPULight is the GPU-aligned representation of a single point light.
// Size: 32 bytes (WGSL storage layout).
type GPULight struct {
	Position  [3]float32 // offset  0: world-space position (vec3<f32>)
	Radius    float32    // offset 12: influence radius
	Color     [3]float32 // offset 16: linear RGB
	Intensity float32    // offset 28: scalar multiplier
}

// Size returns the size of the GPULight struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (g *GPULight) Size() int {
	return int(unsafe.Sizeof(*g))
}

// MarshalTo writes the light into buf at byte offset off.
//
// Returns:
//   - int: the offset just past the light
func (g *GPULight) MarshalTo(buf []byte, off int) int {
	off = common.PutFloat32s(buf, off, g.Position[0], g.Position[1], g.Position[2], g.Radius)
	return common.PutFloat32s(buf, off, g.Color[0], g.Color[1], g.Color[2], g.Intensity)
}

// GPULightSetHeader precedes the light array in the light storage buffer.
// Size: 16 bytes.
type GPULightSetHeader struct {
	Ambient [3]float32 // offset  0: ambient term (vec3<f32>)
	Count   uint32     // offset 12: number of valid lights
}

// Size returns the size of the header in bytes.
//
// Returns:
//   - int: the header size in bytes (16)
func (h *GPULightSetHeader) Size() int {
	return int(unsafe.Sizeof(*h))
}

// BufferSize returns the byte size of a light storage buffer with room for capacity lights.
//
// Parameters:
//   - capacity: number of light slots
//
// Returns:
//   - int: header plus capacity light records
func BufferSize(capacity int) int {
	return int(unsafe.Sizeof(GPULightSetHeader{})) + capacity*int(unsafe.Sizeof(GPULight{}))
}

// ToGPU converts a light to its GPU representation.
func ToGPU(l Light) GPULight {
	return GPULight{
		Position:  l.Position,
		Radius:    l.Radius,
		Color:     l.Color,
		Intensity: l.Intensity,
	}
}

// MarshalLightSet serializes the header and lights into buf, growing it to fit.
// Only the active prefix is written; the tail of a capacity-sized GPU buffer keeps
// stale records that shaders never read because they stop at the header count.
//
// Parameters:
//   - buf: destination buffer, reused when large enough
//   - lights: the frame's light snapshot
//   - ambient: the ambient term
//
// Returns:
//   - []byte: the serialized bytes
func MarshalLightSet(buf []byte, lights []Light, ambient mgl32.Vec3) []byte {
	size := BufferSize(len(lights))
	if cap(buf) < size {
		buf = make([]byte, size)
	}
	buf = buf[:size]

	off := common.PutFloat32s(buf, 0, ambient[0], ambient[1], ambient[2])
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(lights)))
	off += 4
	for _, l := range lights {
		g := ToGPU(l)
		off = g.MarshalTo(buf, off)
	}
	return buf
}
