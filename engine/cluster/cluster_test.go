package cluster

import (
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/camera"
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/go-gl/mathgl/mgl32"
)

func testFrame() camera.FrameData {
	return camera.NewCamera(
		camera.WithPosition(0, 0, 0),
		camera.WithTarget(0, 0, -1),
		camera.WithFov(mgl32.DegToRad(60)),
		camera.WithPlanes(0.1, 100),
		camera.WithResolution(1600, 900),
	).Frame(0)
}

// frustumPoint returns the world-space point (camera at origin looking down -Z)
// that projects to ndc at the given positive depth.
func frustumPoint(f camera.FrameData, ndcX, ndcY, depth float32) mgl32.Vec3 {
	p := common.Unproject(f.InvProj, mgl32.Vec3{ndcX, ndcY, 0})
	return p.Mul(depth / -p[2])
}

func randomLights(rng *rand.Rand, f camera.FrameData, n int) []light.Light {
	lights := make([]light.Light, n)
	for i := range lights {
		p := frustumPoint(f, rng.Float32()*2-1, rng.Float32()*2-1, f.Near+rng.Float32()*(30-f.Near))
		lights[i] = light.NewLight(light.WithPosition(p[0], p[1], p[2]), light.WithRadius(0.5+rng.Float32()*2.5))
	}
	return lights
}

func TestConfigLayout(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ClusterCount() != 3456 {
		t.Errorf("cluster count = %d, want 3456", cfg.ClusterCount())
	}
	if cfg.RecordStride() != 416 || cfg.RecordWords() != 104 {
		t.Errorf("stride = %d bytes / %d words, want 416 / 104", cfg.RecordStride(), cfg.RecordWords())
	}
	if want := 16 * 9 * 24 * common.RoundUp16(4+100*4); cfg.BufferSize() != want {
		t.Errorf("buffer size = %d, want %d", cfg.BufferSize(), want)
	}
	if cfg.Workgroups() != 27 {
		t.Errorf("workgroups = %d, want 27", cfg.Workgroups())
	}

	odd := Config{X: 3, Y: 3, Z: 3, MaxLightsPerCluster: 3, WorkgroupSize: 10}
	if odd.RecordStride() != 16 || odd.Workgroups() != 3 {
		t.Errorf("odd config stride=%d workgroups=%d, want 16 and 3", odd.RecordStride(), odd.Workgroups())
	}
	for i := range odd.ClusterCount() {
		x, y, z := odd.Coords(i)
		if odd.Index(x, y, z) != i {
			t.Fatalf("Coords/Index disagree at %d", i)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	bad := []Config{
		{X: 0, Y: 1, Z: 1, MaxLightsPerCluster: 1, WorkgroupSize: 1},
		{X: 1, Y: 1, Z: 1, MaxLightsPerCluster: 0, WorkgroupSize: 1},
		{X: 1, Y: 1, Z: 1, MaxLightsPerCluster: 1, WorkgroupSize: 0},
	}
	for _, cfg := range bad {
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Validate(%+v) = %v, want ErrInvalidConfig", cfg, err)
		}
		if _, err := NewGrid(cfg); err == nil {
			t.Errorf("NewGrid(%+v) should fail", cfg)
		}
	}
}

func TestSliceLogarithmic(t *testing.T) {
	near, far, nz := float32(0.1), float32(100), 24
	if Slice(0.05, near, far, nz) != 0 || Slice(near, near, far, nz) != 0 {
		t.Error("depths at or before near must map to slice 0")
	}
	if Slice(far*2, near, far, nz) != nz-1 {
		t.Error("depths beyond far must clamp to the last slice")
	}
	for k := range nz {
		mid := float32(math.Sqrt(float64(SliceDepth(k, near, far, nz) * SliceDepth(k+1, near, far, nz))))
		if got := Slice(mid, near, far, nz); got != k {
			t.Errorf("slice of geometric midpoint of %d = %d", k, got)
		}
	}
	if d := SliceDepth(nz, near, far, nz); math.Abs(float64(d-far)) > 1e-3 {
		t.Errorf("SliceDepth(nz) = %v, want far", d)
	}
}

func TestIndexAtMatchesBounds(t *testing.T) {
	cfg := DefaultConfig()
	f := testFrame()
	rng := rand.New(rand.NewPCG(1, 2))

	for range 2000 {
		ndcX, ndcY := rng.Float32()*1.98-0.99, rng.Float32()*1.98-0.99
		depth := f.Near + rng.Float32()*(f.Far-f.Near)
		p := frustumPoint(f, ndcX, ndcY, depth)

		sx := (ndcX*0.5 + 0.5) * float32(f.Width)
		sy := (0.5 - ndcY*0.5) * float32(f.Height)
		x, y, z := cfg.Coords(cfg.IndexAt(sx, sy, depth, f))

		if box := cfg.Bounds(x, y, z, f); !box.Contains(p, 1e-3*depth) {
			t.Fatalf("point %v (pixel %.1f,%.1f depth %.3f) outside its cluster (%d,%d,%d) %v", p, sx, sy, depth, x, y, z, box)
		}
	}
}

func TestTileRectInvertsTile(t *testing.T) {
	const nx, ny = 16, 9
	var width, height uint32 = 1600, 900
	for y := range ny {
		for x := range nx {
			lo, hi := TileRect(x, y, nx, ny)
			center := lo.Add(hi).Mul(0.5)
			sx := (center[0]*0.5 + 0.5) * float32(width)
			sy := (0.5 - center[1]*0.5) * float32(height)
			if gx, gy := Tile(sx, sy, width, height, nx, ny); gx != x || gy != y {
				t.Fatalf("center of tile (%d,%d) maps to tile (%d,%d)", x, y, gx, gy)
			}
		}
	}
	if lo, hi := TileRect(0, 0, nx, ny); lo[0] != -1 || hi[1] != 1 {
		t.Errorf("tile (0,0) rect %v..%v is not the top-left corner", lo, hi)
	}
}

func TestClusterLightsUsesSharedTileRect(t *testing.T) {
	if !strings.Contains(PartitionSource, "fn cluster_tile_rect(") {
		t.Fatal("partition source does not define cluster_tile_rect")
	}
	if !strings.Contains(ClusterLightsSource, "cluster_tile_rect(") {
		t.Error("light assignment does not derive tiles through cluster_tile_rect")
	}
	if strings.Contains(ClusterLightsSource, "f32(CLUSTER_X)") {
		t.Error("light assignment derives the tile size inline")
	}
}

func TestSphereIntersectsAABB(t *testing.T) {
	box := AABB{Min: mgl32.Vec3{0, 0, 0}, Max: mgl32.Vec3{1, 1, 1}}
	cases := []struct {
		center mgl32.Vec3
		radius float32
		want   bool
	}{
		{mgl32.Vec3{0.5, 0.5, 0.5}, 0.01, true},
		{mgl32.Vec3{2, 0.5, 0.5}, 1, true},
		{mgl32.Vec3{2.01, 0.5, 0.5}, 1, false},
		{mgl32.Vec3{2, 2, 2}, 1.7, false},
		{mgl32.Vec3{2, 2, 2}, 1.75, true},
	}
	for _, tc := range cases {
		if got := SphereIntersectsAABB(tc.center, tc.radius, box); got != tc.want {
			t.Errorf("SphereIntersectsAABB(%v, %v) = %v, want %v", tc.center, tc.radius, got, tc.want)
		}
	}
}

func TestBuildAssignsExactlyIntersectingLights(t *testing.T) {
	cfg := Config{X: 8, Y: 6, Z: 12, MaxLightsPerCluster: 64, WorkgroupSize: 32}
	f := testFrame()
	lights := randomLights(rand.New(rand.NewPCG(3, 4)), f, 300)

	b, err := NewBuilder(cfg, WithWorkers(4))
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	grid, _ := NewGrid(cfg)
	if _, err := b.Build(grid, f, lights); err != nil {
		t.Fatalf("Build: %v", err)
	}

	for i := range grid.Len() {
		x, y, z := cfg.Coords(i)
		box := cfg.Bounds(x, y, z, f)

		var want []uint32
		for idx, l := range lights {
			if SphereIntersectsAABB(common.TransformPoint(f.View, l.Position), l.Radius, box) {
				want = append(want, uint32(idx))
			}
		}
		if len(want) > cfg.MaxLightsPerCluster {
			want = want[:cfg.MaxLightsPerCluster]
		}
		if got := grid.Lights(i); !slices.Equal(got, want) {
			t.Fatalf("cluster %d lights = %v, want %v", i, got, want)
		}
	}
}

func TestBuildScenario500Lights(t *testing.T) {
	cfg := DefaultConfig()
	f := testFrame()
	lights := randomLights(rand.New(rand.NewPCG(5, 6)), f, 500)

	b, _ := NewBuilder(cfg)
	grid, _ := NewGrid(cfg)
	if _, err := b.Build(grid, f, lights); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if grid.SizeBytes() != cfg.BufferSize() {
		t.Errorf("grid size = %d, want %d", grid.SizeBytes(), cfg.BufferSize())
	}

	for i := range grid.Len() {
		list := grid.Lights(i)
		if len(list) > cfg.MaxLightsPerCluster {
			t.Fatalf("cluster %d holds %d lights", i, len(list))
		}
		seen := make(map[uint32]bool, len(list))
		for k, idx := range list {
			if seen[idx] {
				t.Fatalf("cluster %d lists light %d twice", i, idx)
			}
			seen[idx] = true
			if k > 0 && list[k-1] >= idx {
				t.Fatalf("cluster %d list not ascending: %v", i, list)
			}
			if int(idx) >= len(lights) {
				t.Fatalf("cluster %d references light %d of %d", i, idx, len(lights))
			}
		}
	}
}

func TestBuildIdempotentAndNoResidue(t *testing.T) {
	cfg := DefaultConfig()
	f := testFrame()
	lights := randomLights(rand.New(rand.NewPCG(7, 8)), f, 400)

	b, _ := NewBuilder(cfg)
	grid, _ := NewGrid(cfg)
	if _, err := b.Build(grid, f, lights); err != nil {
		t.Fatalf("Build: %v", err)
	}
	first := slices.Clone(grid.Words())
	if _, err := b.Build(grid, f, lights); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !slices.Equal(first, grid.Words()) {
		t.Error("identical input produced different cluster buffers")
	}

	res, err := b.Build(grid, f, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.OverflowedClusters != 0 || res.Lights != 0 {
		t.Errorf("zero-light build result = %+v", res)
	}
	for i, w := range grid.Words() {
		if w != 0 {
			t.Fatalf("word %d = %d after a zero-light build", i, w)
		}
	}
}

func TestBuildOverflowDropsHighestIndices(t *testing.T) {
	cfg := Config{X: 2, Y: 2, Z: 2, MaxLightsPerCluster: 3, WorkgroupSize: 3}
	f := testFrame()
	p := frustumPoint(f, 0.5, 0.5, 1)
	lights := make([]light.Light, 5)
	for i := range lights {
		lights[i] = light.NewLight(light.WithPosition(p[0], p[1], p[2]), light.WithRadius(0.01))
	}

	b, _ := NewBuilder(cfg, WithWorkers(2))
	grid, _ := NewGrid(cfg)
	res, err := b.Build(grid, f, lights)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.OverflowedClusters == 0 || res.DroppedAssignments != 2*res.OverflowedClusters {
		t.Errorf("unexpected overflow result %+v", res)
	}
	for i := range grid.Len() {
		if grid.Count(i) == 0 {
			continue
		}
		if got := grid.Lights(i); !slices.Equal(got, []uint32{0, 1, 2}) {
			t.Errorf("cluster %d kept %v, want the three lowest indices", i, got)
		}
	}

	stats := ComputeStats(grid)
	if stats.Full != res.OverflowedClusters || stats.Max != 3 {
		t.Errorf("stats = %+v, result = %+v", stats, res)
	}
}

func TestBuildRejectsForeignGrid(t *testing.T) {
	b, _ := NewBuilder(DefaultConfig())
	other := DefaultConfig()
	other.MaxLightsPerCluster = 50
	grid, _ := NewGrid(other)
	if _, err := b.Build(grid, testFrame(), nil); !errors.Is(err, ErrConfigMismatch) {
		t.Errorf("expected ErrConfigMismatch, got %v", err)
	}
}

func TestBuildAfterRelease(t *testing.T) {
	cfg := DefaultConfig()
	b, _ := NewBuilder(cfg, WithWorkers(2))
	grid, _ := NewGrid(cfg)
	if _, err := b.Build(grid, testFrame(), nil); err != nil {
		t.Fatalf("Build: %v", err)
	}
	b.Release()
	b.Release()
	if _, err := b.Build(grid, testFrame(), nil); !errors.Is(err, ErrReleased) {
		t.Errorf("Build after Release = %v, want ErrReleased", err)
	}
}

func TestMarshalTo(t *testing.T) {
	cfg := Config{X: 1, Y: 1, Z: 1, MaxLightsPerCluster: 1, WorkgroupSize: 1}
	grid, _ := NewGrid(cfg)
	grid.Words()[0] = 1
	grid.Words()[1] = 0x01020304

	buf := make([]byte, cfg.BufferSize())
	if err := grid.MarshalTo(buf); err != nil {
		t.Fatalf("MarshalTo: %v", err)
	}
	if buf[0] != 1 || buf[4] != 0x04 || buf[7] != 0x01 {
		t.Errorf("unexpected encoding % x", buf)
	}
	if err := grid.MarshalTo(buf[:4]); !errors.Is(err, ErrConfigMismatch) {
		t.Errorf("short buffer should fail, got %v", err)
	}
}
