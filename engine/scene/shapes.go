package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// NewPlane returns a square on the XZ plane centered at the origin, facing +Y.
//
// Parameters:
//   - size: the edge length
//
// Returns:
//   - *Primitive: two triangles with counter-clockwise front faces
func NewPlane(size float32) *Primitive {
	h := size / 2
	up := mgl32.Vec3{0, 1, 0}
	return &Primitive{
		Positions: []mgl32.Vec3{{-h, 0, -h}, {-h, 0, h}, {h, 0, h}, {h, 0, -h}},
		Normals:   []mgl32.Vec3{up, up, up, up},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
	}
}

// NewBox returns an axis-aligned box centered at the origin with flat normals.
//
// Parameters:
//   - size: the edge lengths
//
// Returns:
//   - *Primitive: twelve triangles with counter-clockwise front faces
func NewBox(size mgl32.Vec3) *Primitive {
	h := size.Mul(0.5)
	faces := []struct {
		normal, u, v mgl32.Vec3
	}{
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	}

	p := &Primitive{}
	for _, f := range faces {
		base := uint32(len(p.Positions))
		for _, c := range [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
			pos := f.normal.Add(f.u.Mul(c[0])).Add(f.v.Mul(c[1]))
			p.Positions = append(p.Positions, mgl32.Vec3{pos[0] * h[0], pos[1] * h[1], pos[2] * h[2]})
			p.Normals = append(p.Normals, f.normal)
		}
		p.Indices = append(p.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return p
}
