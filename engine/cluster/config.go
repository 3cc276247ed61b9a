package cluster

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-cluster/common"
)

var (
	// ErrInvalidConfig is returned for grid dimensions or capacities that cannot be built.
	ErrInvalidConfig = errors.New("cluster: invalid config")

	// ErrConfigMismatch is returned when a grid allocated for one config is handed to a
	// builder or backend configured for another. It signals a missed reallocation.
	ErrConfigMismatch = errors.New("cluster: grid does not match config")

	// ErrReleased is returned by Build after Release.
	ErrReleased = errors.New("cluster: builder released")
)

// recordHeaderBytes is the size of the per-cluster light count.
const recordHeaderBytes = 4

// Config is the build-time shape of the cluster grid. It is fixed for the lifetime
// of every buffer sized from it; changing it requires reallocating those buffers.
type Config struct {
	// X and Y are the screen-space tile counts, Z the number of depth slices.
	X int
	Y int
	Z int

	// MaxLightsPerCluster bounds every cluster's light-index list.
	MaxLightsPerCluster int

	// WorkgroupSize is the number of clusters handled by one worker group.
	WorkgroupSize int
}

// DefaultConfig returns a 16x9x24 grid with 100 lights per cluster and 128-cluster
// worker groups.
func DefaultConfig() Config {
	return Config{X: 16, Y: 9, Z: 24, MaxLightsPerCluster: 100, WorkgroupSize: 128}
}

// Validate checks that every dimension and capacity is positive.
//
// Returns:
//   - error: an error wrapping ErrInvalidConfig, or nil
func (c Config) Validate() error {
	if c.X <= 0 || c.Y <= 0 || c.Z <= 0 {
		return fmt.Errorf("%w: grid %dx%dx%d", ErrInvalidConfig, c.X, c.Y, c.Z)
	}
	if c.MaxLightsPerCluster <= 0 {
		return fmt.Errorf("%w: max lights per cluster %d", ErrInvalidConfig, c.MaxLightsPerCluster)
	}
	if c.WorkgroupSize <= 0 {
		return fmt.Errorf("%w: workgroup size %d", ErrInvalidConfig, c.WorkgroupSize)
	}
	return nil
}

// ClusterCount returns X·Y·Z.
func (c Config) ClusterCount() int {
	return c.X * c.Y * c.Z
}

// RecordStride returns the byte stride of one cluster record:
// [count u32][index u32 × MaxLightsPerCluster] rounded up to 16 bytes.
func (c Config) RecordStride() int {
	return common.RoundUp16(recordHeaderBytes + 4*c.MaxLightsPerCluster)
}

// RecordWords returns RecordStride in 32-bit words.
func (c Config) RecordWords() int {
	return c.RecordStride() / 4
}

// BufferSize returns the total cluster buffer size in bytes.
func (c Config) BufferSize() int {
	return c.ClusterCount() * c.RecordStride()
}

// Workgroups returns the number of worker groups needed to cover every cluster.
func (c Config) Workgroups() int {
	return common.CeilDiv(c.ClusterCount(), c.WorkgroupSize)
}

// Index returns the linear index of cluster (x, y, z).
func (c Config) Index(x, y, z int) int {
	return x + y*c.X + z*c.X*c.Y
}

// Coords is the inverse of Index.
func (c Config) Coords(i int) (x, y, z int) {
	return i % c.X, (i / c.X) % c.Y, i / (c.X * c.Y)
}

// WGSLConstants renders the grid shape as WGSL constants for the cluster_config
// shader include, so the compute and fragment stages are compiled against the same
// grid as the buffers they bind.
func (c Config) WGSLConstants() string {
	var b strings.Builder
	fmt.Fprintf(&b, "const CLUSTER_X: u32 = %du;\n", c.X)
	fmt.Fprintf(&b, "const CLUSTER_Y: u32 = %du;\n", c.Y)
	fmt.Fprintf(&b, "const CLUSTER_Z: u32 = %du;\n", c.Z)
	fmt.Fprintf(&b, "const CLUSTER_COUNT: u32 = %du;\n", c.ClusterCount())
	fmt.Fprintf(&b, "const MAX_LIGHTS_PER_CLUSTER: u32 = %du;\n", c.MaxLightsPerCluster)
	fmt.Fprintf(&b, "const CLUSTER_RECORD_WORDS: u32 = %du;\n", c.RecordWords())
	fmt.Fprintf(&b, "const CLUSTER_WORKGROUP_SIZE: u32 = %du;\n", c.WorkgroupSize)
	return b.String()
}
