package cluster

import (
	"math"

	"github.com/Carmen-Shannon/oxy-cluster/engine/camera"
	"github.com/go-gl/mathgl/mgl32"
)

// Depth slicing is logarithmic: slice k spans [near·(far/near)^(k/Z), near·(far/near)^((k+1)/Z)).
// The WGSL twin of these functions lives in assets/cluster_partition.wgsl and is the
// only definition the GPU stages include.

// Slice maps a positive view-space depth to its depth slice, clamped to [0, nz-1].
//
// Parameters:
//   - depth: distance along the view direction (-view.z)
//   - near, far: the camera planes
//   - nz: number of slices
//
// Returns:
//   - int: the slice index
func Slice(depth, near, far float32, nz int) int {
	if depth <= near {
		return 0
	}
	s := math.Floor(math.Log(float64(depth/near)) / math.Log(float64(far/near)) * float64(nz))
	return int(min(max(s, 0), float64(nz-1)))
}

// SliceDepth returns the near boundary of slice k. SliceDepth(nz) is far.
func SliceDepth(k int, near, far float32, nz int) float32 {
	return near * float32(math.Pow(float64(far/near), float64(k)/float64(nz)))
}

// Tile maps a pixel-space position (origin top-left) to its screen tile.
//
// Parameters:
//   - screenX, screenY: the pixel position
//   - width, height: the output resolution
//   - nx, ny: the tile counts
//
// Returns:
//   - x, y: the tile coordinates, clamped to the grid
func Tile(screenX, screenY float32, width, height uint32, nx, ny int) (int, int) {
	tileW := float32(width) / float32(nx)
	tileH := float32(height) / float32(ny)
	x := int(math.Floor(float64(screenX / tileW)))
	y := int(math.Floor(float64(screenY / tileH)))
	return min(max(x, 0), nx-1), min(max(y, 0), ny-1)
}

// TileRect returns the NDC rectangle of tile (x, y), the region Tile maps back to
// (x, y). Tile rows run top to bottom while NDC y grows upward.
//
// Parameters:
//   - x, y: the tile coordinates
//   - nx, ny: the tile counts
//
// Returns:
//   - lo, hi: the lower-left and upper-right NDC corners
func TileRect(x, y, nx, ny int) (mgl32.Vec2, mgl32.Vec2) {
	tileW := 2 / float32(nx)
	tileH := 2 / float32(ny)
	lo := mgl32.Vec2{-1 + float32(x)*tileW, 1 - float32(y+1)*tileH}
	hi := mgl32.Vec2{-1 + float32(x+1)*tileW, 1 - float32(y)*tileH}
	return lo, hi
}

// IndexAt derives the cluster index of a fragment: its tile from the pixel position
// and its slice from the view-space depth. The builder's bounds and every shading
// stage go through this one derivation.
//
// Parameters:
//   - screenX, screenY: the pixel position (origin top-left)
//   - viewDepth: positive view-space depth
//   - f: the frame's camera block
//
// Returns:
//   - int: the linear cluster index
func (c Config) IndexAt(screenX, screenY, viewDepth float32, f camera.FrameData) int {
	x, y := Tile(screenX, screenY, f.Width, f.Height, c.X, c.Y)
	return c.Index(x, y, Slice(viewDepth, f.Near, f.Far, c.Z))
}
