package cluster

import (
	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/camera"
	"github.com/go-gl/mathgl/mgl32"
)

// AABB is an axis-aligned box in view space.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// Contains reports whether p lies inside the box, with tolerance eps on every face.
func (b AABB) Contains(p mgl32.Vec3, eps float32) bool {
	for i := range 3 {
		if p[i] < b.Min[i]-eps || p[i] > b.Max[i]+eps {
			return false
		}
	}
	return true
}

// Bounds computes the view-space AABB of cluster (x, y, z). The tile's NDC corners
// are unprojected onto the near plane through the inverse projection, and each
// corner ray is scaled onto the slice's near and far depths; the box encloses those
// eight points.
//
// Parameters:
//   - x, y, z: the cluster coordinates
//   - f: the frame's camera block (inverse projection, near, far)
//
// Returns:
//   - AABB: the cluster's view-space bounds
func (c Config) Bounds(x, y, z int, f camera.FrameData) AABB {
	ndcMin, ndcMax := TileRect(x, y, c.X, c.Y)

	zNear := SliceDepth(z, f.Near, f.Far, c.Z)
	zFar := SliceDepth(z+1, f.Near, f.Far, c.Z)

	box := AABB{
		Min: mgl32.Vec3{mgl32.InfPos, mgl32.InfPos, mgl32.InfPos},
		Max: mgl32.Vec3{mgl32.InfNeg, mgl32.InfNeg, mgl32.InfNeg},
	}
	corners := [4]mgl32.Vec2{
		{ndcMin[0], ndcMin[1]},
		{ndcMax[0], ndcMin[1]},
		{ndcMin[0], ndcMax[1]},
		{ndcMax[0], ndcMax[1]},
	}
	for _, corner := range corners {
		p := common.Unproject(f.InvProj, mgl32.Vec3{corner[0], corner[1], 0})
		depth := -p[2]
		for _, d := range [2]float32{zNear, zFar} {
			q := p.Mul(d / depth)
			for i := range 3 {
				box.Min[i] = min(box.Min[i], q[i])
				box.Max[i] = max(box.Max[i], q[i])
			}
		}
	}
	return box
}

// SphereIntersectsAABB reports whether a sphere touches the box, by comparing the
// squared distance from the center to its closest point in the box.
func SphereIntersectsAABB(center mgl32.Vec3, radius float32, b AABB) bool {
	var d2 float32
	for i := range 3 {
		v := center[i]
		if v < b.Min[i] {
			d2 += (b.Min[i] - v) * (b.Min[i] - v)
		} else if v > b.Max[i] {
			d2 += (v - b.Max[i]) * (v - b.Max[i])
		}
	}
	return d2 <= radius*radius
}
