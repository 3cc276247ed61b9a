package renderer

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-cluster/engine/cluster"
	"github.com/Carmen-Shannon/oxy-cluster/engine/gbuffer"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer/passes"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer/pipeline"
	"go.uber.org/zap"
)

// softwareBackend is the implementation of the SoftwareBackend interface.
type softwareBackend struct {
	mu *sync.Mutex

	ctx     *Context
	workers int
	log     *zap.Logger

	builder cluster.Builder
	grid    *cluster.Grid
	pool    worker.DynamicWorkerPool

	color *gbuffer.ColorTarget
	depth *gbuffer.DepthTarget
	gbuf  *gbuffer.GBuffer

	pipelines map[string]pipeline.Pipeline

	lastResult  cluster.Result
	lastPasses  []string
	submissions int
}

// SoftwareBackend realizes frames on the CPU. It shares the cluster builder with
// the GPU path and keeps every target in host memory, so frames can be inspected
// pixel by pixel.
type SoftwareBackend interface {
	RendererBackend

	// Color returns the final color target.
	Color() *gbuffer.ColorTarget

	// GBuffer returns the deferred attribute targets.
	GBuffer() *gbuffer.GBuffer

	// Grid returns the per-cluster light lists of the last cluster stage.
	Grid() *cluster.Grid

	// LastResult returns the overflow diagnostics of the last cluster stage.
	LastResult() cluster.Result

	// Submissions returns how many encoders have been submitted.
	Submissions() int

	// LastPasses returns the pass names of the last submission in execution order.
	LastPasses() []string
}

var _ SoftwareBackend = &softwareBackend{}

// NewSoftwareBackend creates a CPU backend. Init must be called (through
// NewRenderer) before it renders.
//
// Parameters:
//   - options: optional SoftwareBackendOption values
//
// Returns:
//   - SoftwareBackend: the backend
func NewSoftwareBackend(options ...SoftwareBackendOption) SoftwareBackend {
	b := &softwareBackend{
		mu:      &sync.Mutex{},
		workers: max(runtime.NumCPU()-1, 1),
		log:     zap.NewNop(),
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

func (b *softwareBackend) Name() string {
	return "software"
}

func (b *softwareBackend) Init(ctx *Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ctx = ctx
	b.log = ctx.Logger.Named("software")

	builder, err := cluster.NewBuilder(ctx.Grid,
		cluster.WithWorkers(b.workers),
		cluster.WithLogger(ctx.Logger.Named("cluster")),
	)
	if err != nil {
		return err
	}
	grid, err := cluster.NewGrid(ctx.Grid)
	if err != nil {
		return err
	}
	b.builder = builder
	b.grid = grid
	b.pool = worker.NewDynamicWorkerPool(b.workers, 256, 1*time.Second)

	w, h := ctx.Camera.Resolution()
	b.color = gbuffer.NewColorTarget(w, h)
	b.depth = gbuffer.NewDepthTarget(w, h)
	b.gbuf = gbuffer.New(w, h)

	b.pipelines = make(map[string]pipeline.Pipeline, len(passes.Keys))
	for _, key := range passes.Keys {
		typ, opts := passes.State(key)
		b.pipelines[key] = pipeline.NewPipeline(key, typ, opts...)
	}

	b.log.Debug("software targets allocated",
		zap.Uint32("width", w),
		zap.Uint32("height", h),
		zap.Int("gbuffer_bytes", gbuffer.ByteSize(w, h)),
		zap.Int("cluster_buffer_bytes", grid.SizeBytes()),
	)
	return nil
}

func (b *softwareBackend) Resize(width, height uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.color == nil {
		return fmt.Errorf("software: resize before init")
	}
	b.color.Resize(width, height)
	b.depth.Resize(width, height)
	b.gbuf.Resize(width, height)
	return nil
}

func (b *softwareBackend) CheckTargets(width, height uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.color == nil {
		return fmt.Errorf("software: targets not allocated")
	}
	if err := b.color.Validate(width, height); err != nil {
		return err
	}
	if err := b.depth.Validate(width, height); err != nil {
		return err
	}
	return b.gbuf.Validate(width, height)
}

func (b *softwareBackend) BeginEncoding() (CommandEncoder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.builder == nil {
		return nil, fmt.Errorf("software: backend not initialized")
	}
	return &softwareEncoder{backend: b}, nil
}

func (b *softwareBackend) Present() error {
	return nil
}

func (b *softwareBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.builder != nil {
		b.builder.Release()
		b.builder = nil
	}
	if b.pool != nil {
		b.pool.Stop()
		b.pool = nil
	}
	b.pipelines = nil
}

func (b *softwareBackend) Color() *gbuffer.ColorTarget {
	return b.color
}

func (b *softwareBackend) GBuffer() *gbuffer.GBuffer {
	return b.gbuf
}

func (b *softwareBackend) Grid() *cluster.Grid {
	return b.grid
}

func (b *softwareBackend) LastResult() cluster.Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastResult
}

func (b *softwareBackend) Submissions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.submissions
}

func (b *softwareBackend) LastPasses() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.lastPasses...)
}

// SoftwareBackendOption is a functional option applied to the software backend.
type SoftwareBackendOption func(*softwareBackend)

// WithWorkers sets the worker count used by the cluster stage and the resolve.
// Values below 1 are ignored.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - SoftwareBackendOption: a function that sets the worker count
func WithWorkers(n int) SoftwareBackendOption {
	return func(b *softwareBackend) {
		if n > 0 {
			b.workers = n
		}
	}
}
