package cluster

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarizes per-cluster occupancy of a built grid.
type Stats struct {
	Mean   float64
	StdDev float64
	Max    int
	Empty  int
	Full   int
}

// ComputeStats summarizes grid occupancy for diagnostics.
func ComputeStats(g *Grid) Stats {
	counts := make([]float64, g.Len())
	var s Stats
	for i := range counts {
		n := g.Count(i)
		counts[i] = float64(n)
		switch {
		case n == 0:
			s.Empty++
		case n == g.cfg.MaxLightsPerCluster:
			s.Full++
		}
	}
	if len(counts) > 1 {
		s.Mean, s.StdDev = stat.MeanStdDev(counts, nil)
	} else {
		s.Mean = counts[0]
	}
	s.Max = int(floats.Max(counts))
	return s
}
