package cluster

import (
	"encoding/binary"
	"fmt"
)

// Grid is the CPU image of the cluster buffer: one flat []uint32 of
// ClusterCount records, each RecordWords long, laid out exactly as the GPU buffer.
// Word 0 of a record is the light count, words 1..count are light indices in
// ascending order, and the remaining words are zero.
type Grid struct {
	cfg   Config
	words int
	data  []uint32
}

// NewGrid allocates a zeroed grid for cfg.
//
// Parameters:
//   - cfg: the grid shape
//
// Returns:
//   - *Grid: the allocated grid
//   - error: an error wrapping ErrInvalidConfig
func NewGrid(cfg Config) (*Grid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Grid{
		cfg:   cfg,
		words: cfg.RecordWords(),
		data:  make([]uint32, cfg.ClusterCount()*cfg.RecordWords()),
	}, nil
}

func (g *Grid) Config() Config {
	return g.cfg
}

// Len returns the number of clusters.
func (g *Grid) Len() int {
	return g.cfg.ClusterCount()
}

// Count returns the number of lights assigned to cluster i.
func (g *Grid) Count(i int) int {
	return int(g.data[i*g.words])
}

// Lights returns cluster i's light indices. The slice aliases the grid and is
// only valid until the next build.
func (g *Grid) Lights(i int) []uint32 {
	base := i * g.words
	return g.data[base+1 : base+1+int(g.data[base])]
}

// Words returns the whole flat buffer. The slice aliases the grid.
func (g *Grid) Words() []uint32 {
	return g.data
}

// SizeBytes returns the buffer size in bytes, equal to Config().BufferSize().
func (g *Grid) SizeBytes() int {
	return len(g.data) * 4
}

// MarshalTo encodes the grid little-endian into buf, which must be SizeBytes long.
//
// Returns:
//   - error: if buf has the wrong size
func (g *Grid) MarshalTo(buf []byte) error {
	if len(buf) != g.SizeBytes() {
		return fmt.Errorf("%w: buffer is %d bytes, grid is %d", ErrConfigMismatch, len(buf), g.SizeBytes())
	}
	for i, w := range g.data {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	return nil
}

// Reset zeroes every record.
func (g *Grid) Reset() {
	clear(g.data)
}

// record returns the full record of cluster i, header included.
func (g *Grid) record(i int) []uint32 {
	base := i * g.words
	return g.data[base : base+g.words]
}
