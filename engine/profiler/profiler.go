// Package profiler reports frame rate, memory and cluster occupancy statistics at
// a fixed interval.
package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-cluster/engine/cluster"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// Report is one interval's statistics.
type Report struct {
	Frames        int
	FPS           float64
	FrameMeanMs   float64
	FrameStdDevMs float64
	HeapMB        float64
	AllocRateMB   float64
	SysMB         float64
	GCCount       uint32
	MaxGCPauseUs  uint64

	// Clusters is set when cluster occupancy was observed during the interval.
	Clusters *cluster.Stats

	// Overflowed and Dropped accumulate cluster.Result counters over the interval.
	Overflowed int
	Dropped    int
}

// Profiler tracks frame timing from injected timestamps and logs a Report every
// interval.
type Profiler struct {
	log      *zap.Logger
	interval time.Duration

	started    bool
	lastTime   time.Duration
	lastFrame  time.Duration
	frameTimes []float64

	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	clusters   *cluster.Stats
	overflowed int
	dropped    int
}

// NewProfiler creates a Profiler.
//
// Parameters:
//   - log: destination logger; nil discards reports
//   - interval: reporting interval (defaults to one second if <= 0)
//
// Returns:
//   - *Profiler: the profiler
func NewProfiler(log *zap.Logger, interval time.Duration) *Profiler {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Profiler{
		log:      log.Named("profiler"),
		interval: interval,
	}
}

// ObserveClusters records the occupancy of the most recently built grid and adds
// the build's overflow counters to the interval totals.
//
// Parameters:
//   - res: the build result
//   - g: the built grid, or nil when occupancy is not readable (GPU grids)
func (p *Profiler) ObserveClusters(res cluster.Result, g *cluster.Grid) {
	p.overflowed += res.OverflowedClusters
	p.dropped += res.DroppedAssignments
	if g != nil {
		s := cluster.ComputeStats(g)
		p.clusters = &s
	}
	if res.DroppedAssignments > 0 {
		p.log.Debug("cluster overflow",
			zap.Int("clusters", res.OverflowedClusters),
			zap.Int("dropped", res.DroppedAssignments),
		)
	}
}

// Tick should be called once per frame with the frame's timestamp.
//
// Parameters:
//   - now: the frame timestamp
//
// Returns:
//   - Report: the interval's statistics when one was logged
//   - bool: true if a report was logged this tick
func (p *Profiler) Tick(now time.Duration) (Report, bool) {
	if !p.started {
		p.started = true
		p.lastTime, p.lastFrame = now, now
		return Report{}, false
	}
	p.frameTimes = append(p.frameTimes, float64(now-p.lastFrame)/float64(time.Millisecond))
	p.lastFrame = now

	elapsed := now - p.lastTime
	if elapsed < p.interval {
		return Report{}, false
	}

	r := Report{
		Frames:     len(p.frameTimes),
		FPS:        float64(len(p.frameTimes)) / elapsed.Seconds(),
		Clusters:   p.clusters,
		Overflowed: p.overflowed,
		Dropped:    p.dropped,
	}
	if len(p.frameTimes) > 1 {
		r.FrameMeanMs, r.FrameStdDevMs = stat.MeanStdDev(p.frameTimes, nil)
	} else {
		r.FrameMeanMs = p.frameTimes[0]
	}
	p.readMemory(&r, elapsed)

	fields := []zap.Field{
		zap.Float64("fps", r.FPS),
		zap.Float64("frame_ms", r.FrameMeanMs),
		zap.Float64("frame_stddev_ms", r.FrameStdDevMs),
		zap.Float64("heap_mb", r.HeapMB),
		zap.Float64("alloc_rate_mb_s", r.AllocRateMB),
		zap.Uint32("gc", r.GCCount),
		zap.Uint64("gc_max_pause_us", r.MaxGCPauseUs),
		zap.Float64("sys_mb", r.SysMB),
	}
	if r.Clusters != nil {
		fields = append(fields,
			zap.Float64("cluster_mean", r.Clusters.Mean),
			zap.Float64("cluster_stddev", r.Clusters.StdDev),
			zap.Int("cluster_max", r.Clusters.Max),
			zap.Int("clusters_empty", r.Clusters.Empty),
			zap.Int("clusters_full", r.Clusters.Full),
		)
	}
	if r.Dropped > 0 {
		fields = append(fields, zap.Int("overflowed", r.Overflowed), zap.Int("dropped", r.Dropped))
	}
	p.log.Info("frame stats", fields...)

	p.lastTime = now
	p.frameTimes = p.frameTimes[:0]
	p.overflowed, p.dropped = 0, 0
	return r, true
}

func (p *Profiler) readMemory(r *Report, elapsed time.Duration) {
	runtime.ReadMemStats(&p.memStats)
	r.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	r.SysMB = float64(p.memStats.Sys) / 1024 / 1024
	r.AllocRateMB = float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds()

	r.GCCount = p.memStats.NumGC
	// PauseNs is a circular buffer of the last 256 pauses
	start := p.lastGCCount
	if r.GCCount-start > 256 {
		start = r.GCCount - 256
	}
	for i := start; i < r.GCCount; i++ {
		r.MaxGCPauseUs = max(r.MaxGCPauseUs, p.memStats.PauseNs[i%256]/1000)
	}

	p.lastGCCount = r.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
}
