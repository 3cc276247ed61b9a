package cluster

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/camera"
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Result reports what one build did. Overflow is never an error: lights beyond a
// cluster's capacity are dropped for that cluster only.
type Result struct {
	// Lights is the number of lights considered.
	Lights int
	// OverflowedClusters counts clusters that hit MaxLightsPerCluster and dropped at least one light.
	OverflowedClusters int
	// DroppedAssignments counts (cluster, light) intersections that did not fit.
	DroppedAssignments int
}

type sphere struct {
	center mgl32.Vec3
	radius float32
}

type builderImpl struct {
	mu *sync.Mutex

	cfg     Config
	workers int
	pool    worker.DynamicWorkerPool
	spheres []sphere
	log     *zap.Logger
}

// Builder assigns lights to clusters on the CPU. Each build runs Workgroups()
// independent tasks of WorkgroupSize clusters on a pooled set of workers and
// returns once every task has finished. Builds are serialized.
type Builder interface {
	Config() Config

	// Build fully repopulates grid from the frame's camera block and light snapshot.
	// Light centers are transformed to view space once; every cluster then tests each
	// light in ascending index order and appends hits while capacity remains.
	//
	// Parameters:
	//   - grid: the destination grid, allocated for Config()
	//   - f: the frame's camera block
	//   - lights: the frame's light snapshot
	//
	// Returns:
	//   - Result: overflow diagnostics
	//   - error: ErrConfigMismatch if grid was allocated for a different config, or
	//     ErrReleased after Release
	Build(grid *Grid, f camera.FrameData, lights []light.Light) (Result, error)

	// Release stops the worker pool. Safe to call more than once.
	Release()
}

var _ Builder = &builderImpl{}

// NewBuilder creates a Builder for cfg.
//
// Parameters:
//   - cfg: the grid shape
//   - options: functional options
//
// Returns:
//   - Builder: the builder
//   - error: an error wrapping ErrInvalidConfig
func NewBuilder(cfg Config, options ...BuilderOption) (Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := &builderImpl{
		mu:      &sync.Mutex{},
		cfg:     cfg,
		workers: max(runtime.NumCPU()-1, 1),
		log:     zap.NewNop(),
	}
	for _, option := range options {
		option(b)
	}
	// the queue holds a whole frame of groups so submission never waits on a worker
	b.pool = worker.NewDynamicWorkerPool(b.workers, max(256, cfg.Workgroups()), 1*time.Second)
	return b, nil
}

func (b *builderImpl) Config() Config {
	return b.cfg
}

func (b *builderImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pool != nil {
		b.pool.Stop()
		b.pool = nil
	}
}

func (b *builderImpl) Build(grid *Grid, f camera.FrameData, lights []light.Light) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pool == nil {
		return Result{}, ErrReleased
	}
	if grid.Config() != b.cfg {
		return Result{}, fmt.Errorf("%w: grid %+v, builder %+v", ErrConfigMismatch, grid.Config(), b.cfg)
	}

	b.spheres = b.spheres[:0]
	for _, l := range lights {
		b.spheres = append(b.spheres, sphere{center: common.TransformPoint(f.View, l.Position), radius: l.Radius})
	}

	var overflowed, dropped atomic.Int64
	var wg sync.WaitGroup
	total := b.cfg.ClusterCount()
	for group := range b.cfg.Workgroups() {
		start := group * b.cfg.WorkgroupSize
		end := min(start+b.cfg.WorkgroupSize, total)

		wg.Add(1)
		b.pool.SubmitTask(worker.Task{
			ID: group,
			Do: func() (any, error) {
				defer wg.Done()
				for i := start; i < end; i++ {
					if n := b.assign(grid, i, f); n > 0 {
						overflowed.Add(1)
						dropped.Add(int64(n))
					}
				}
				return nil, nil
			},
		})
	}
	wg.Wait()

	res := Result{
		Lights:             len(lights),
		OverflowedClusters: int(overflowed.Load()),
		DroppedAssignments: int(dropped.Load()),
	}
	if res.OverflowedClusters > 0 {
		b.log.Debug("cluster capacity exceeded",
			zap.Int("clusters", res.OverflowedClusters),
			zap.Int("dropped", res.DroppedAssignments),
			zap.Int("max_lights_per_cluster", b.cfg.MaxLightsPerCluster),
		)
	}
	return res, nil
}

// assign rewrites cluster i's record and returns how many intersecting lights did
// not fit. Only this call writes record i during a build.
func (b *builderImpl) assign(grid *Grid, i int, f camera.FrameData) int {
	x, y, z := b.cfg.Coords(i)
	box := b.cfg.Bounds(x, y, z, f)

	rec := grid.record(i)
	clear(rec)

	count, dropped := 0, 0
	for idx, s := range b.spheres {
		if !SphereIntersectsAABB(s.center, s.radius, box) {
			continue
		}
		if count == b.cfg.MaxLightsPerCluster {
			dropped++
			continue
		}
		rec[1+count] = uint32(idx)
		count++
	}
	rec[0] = uint32(count)
	return dropped
}
