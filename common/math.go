package common

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Perspective creates a right-handed perspective projection matrix that maps view-space
// depth onto the WebGPU clip-space range [0, 1]. mgl32.Perspective targets the OpenGL
// range [-1, 1] and cannot be used for depth24plus targets.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//
// Returns:
//   - mgl32.Mat4: the column-major projection matrix
func Perspective(fovY, aspect, near, far float32) mgl32.Mat4 {
	f := 1.0 / float32(math.Tan(float64(fovY)/2.0))
	var out mgl32.Mat4
	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1.0
	out[14] = (near * far) / (near - far)
	return out
}

// TransformPoint applies m to the point p (w = 1) without a perspective divide.
func TransformPoint(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

// TransformDirection applies the upper 3x3 of m to the direction d (w = 0).
func TransformDirection(m mgl32.Mat4, d mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(d.Vec4(0)).Vec3()
}

// NormalMatrix returns the inverse transpose of the upper 3x3 of m, which maps
// normals so they stay perpendicular to surfaces under non-uniform scale. A singular
// m is returned with its translation dropped.
func NormalMatrix(m mgl32.Mat4) mgl32.Mat4 {
	m3 := m.Mat3()
	if m3.Det() == 0 {
		return m3.Mat4()
	}
	return m3.Inv().Transpose().Mat4()
}

// Unproject maps a normalized device coordinate through the inverse projection and
// performs the perspective divide, yielding a view-space point.
//
// Parameters:
//   - invProj: the inverse projection matrix
//   - ndc: the normalized device coordinate (x, y in [-1, 1], z in [0, 1])
//
// Returns:
//   - mgl32.Vec3: the view-space position
func Unproject(invProj mgl32.Mat4, ndc mgl32.Vec3) mgl32.Vec3 {
	v := invProj.Mul4x1(ndc.Vec4(1))
	if v[3] == 0 {
		return v.Vec3()
	}
	return v.Vec3().Mul(1 / v[3])
}

// RoundUp rounds n up to the next multiple of align. align must be a power of two.
func RoundUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// RoundUp16 rounds n up to the next multiple of 16, the storage-buffer record alignment.
func RoundUp16(n int) int {
	return RoundUp(n, 16)
}

// PutFloat32s writes values little-endian into buf starting at byte offset off.
//
// Returns:
//   - int: the offset just past the last written value
func PutFloat32s(buf []byte, off int, values ...float32) int {
	for _, v := range values {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}
	return off
}

// PutMat4 writes a column-major matrix into buf at byte offset off.
//
// Returns:
//   - int: the offset just past the matrix (off + 64)
func PutMat4(buf []byte, off int, m mgl32.Mat4) int {
	return PutFloat32s(buf, off, m[:]...)
}
