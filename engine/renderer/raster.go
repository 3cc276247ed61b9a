package renderer

import (
	"math"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer/pipeline"
	"github.com/go-gl/mathgl/mgl32"
)

// rasterVertex is a vertex after the vertex stage.
type rasterVertex struct {
	clip   mgl32.Vec4
	view   mgl32.Vec3
	normal mgl32.Vec3
}

// fragment is one covered pixel that passed the depth test.
type fragment struct {
	x, y   int
	index  int
	depth  float32
	view   mgl32.Vec3
	normal mgl32.Vec3
}

// screenX and screenY return the pixel-center coordinates the cluster tile lookup
// uses, origin top-left.
func (f *fragment) screenX() float32 { return float32(f.x) + 0.5 }
func (f *fragment) screenY() float32 { return float32(f.y) + 0.5 }

// transformVertex runs the vertex stage: model-view to view space, projection to
// clip space, normal by the normal matrix of the model-view.
func transformVertex(pos, normal mgl32.Vec3, modelView, normalMat, proj mgl32.Mat4) rasterVertex {
	view := common.TransformPoint(modelView, pos)
	n := common.TransformDirection(normalMat, normal)
	if l := n.Len(); l > 0 {
		n = n.Mul(1 / l)
	}
	return rasterVertex{
		clip:   proj.Mul4x1(view.Vec4(1)),
		view:   view,
		normal: n,
	}
}

// rasterizeTriangle scan-converts one triangle into a width x height target.
// Pixels are sampled at their centers. Attributes are interpolated perspective
// correctly; depth is interpolated linearly in screen space. Triangles with a vertex
// in front of the near plane are discarded rather than clipped.
//
// Parameters:
//   - v: the three transformed vertices
//   - width, height: the target size in pixels
//   - near: the near plane distance
//   - p: supplies cull and depth state
//   - depth: the depth buffer, width*height long
//   - shade: called for every fragment that passes the depth test
func rasterizeTriangle(v [3]rasterVertex, width, height int, near float32, p pipeline.Pipeline, depth []float32, shade func(f *fragment)) {
	for i := range v {
		if v[i].view.Z() > -near || v[i].clip.W() <= 0 {
			return
		}
	}

	var ndc [3]mgl32.Vec3
	var sx, sy, invW [3]float32
	for i := range v {
		invW[i] = 1 / v[i].clip.W()
		ndc[i] = v[i].clip.Vec3().Mul(invW[i])
		sx[i] = (ndc[i].X()*0.5 + 0.5) * float32(width)
		sy[i] = (0.5 - ndc[i].Y()*0.5) * float32(height)
	}

	// winding is judged in NDC, y up
	ndcArea := (ndc[1].X()-ndc[0].X())*(ndc[2].Y()-ndc[0].Y()) - (ndc[2].X()-ndc[0].X())*(ndc[1].Y()-ndc[0].Y())
	if ndcArea == 0 || p.Culls(ndcArea > 0) {
		return
	}

	area := edge(sx[0], sy[0], sx[1], sy[1], sx[2], sy[2])
	if area == 0 {
		return
	}
	sign := float32(1)
	if area < 0 {
		sign = -1
	}
	invArea := 1 / (area * sign)

	minX := max(int(floor(min(sx[0], sx[1], sx[2]))), 0)
	maxX := min(int(ceil(max(sx[0], sx[1], sx[2]))), width-1)
	minY := max(int(floor(min(sy[0], sy[1], sy[2]))), 0)
	maxY := min(int(ceil(max(sy[0], sy[1], sy[2]))), height-1)

	var f fragment
	for y := minY; y <= maxY; y++ {
		py := float32(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float32(x) + 0.5
			w0 := edge(sx[1], sy[1], sx[2], sy[2], px, py) * sign
			w1 := edge(sx[2], sy[2], sx[0], sy[0], px, py) * sign
			w2 := edge(sx[0], sy[0], sx[1], sy[1], px, py) * sign
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			b0, b1, b2 := w0*invArea, w1*invArea, w2*invArea

			z := b0*ndc[0].Z() + b1*ndc[1].Z() + b2*ndc[2].Z()
			if z < 0 || z > 1 {
				continue
			}
			idx := y*width + x
			if !p.DepthPasses(z, depth[idx]) {
				continue
			}
			if p.DepthWriteEnabled() {
				depth[idx] = z
			}

			p0, p1, p2 := b0*invW[0], b1*invW[1], b2*invW[2]
			norm := 1 / (p0 + p1 + p2)
			p0, p1, p2 = p0*norm, p1*norm, p2*norm

			f.x, f.y, f.index, f.depth = x, y, idx, z
			f.view = v[0].view.Mul(p0).Add(v[1].view.Mul(p1)).Add(v[2].view.Mul(p2))
			n := v[0].normal.Mul(p0).Add(v[1].normal.Mul(p1)).Add(v[2].normal.Mul(p2))
			if l := n.Len(); l > 0 {
				n = n.Mul(1 / l)
			}
			f.normal = n
			shade(&f)
		}
	}
}

// edge returns twice the signed area of (a, b, c).
func edge(ax, ay, bx, by, cx, cy float32) float32 {
	return (bx-ax)*(cy-ay) - (by-ay)*(cx-ax)
}

func floor(v float32) float32 { return float32(math.Floor(float64(v))) }
func ceil(v float32) float32  { return float32(math.Ceil(float64(v))) }
