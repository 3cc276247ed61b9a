package renderer

import (
	"fmt"
	"strings"
)

// Mode selects the lighting strategy.
type Mode int

const (
	// ModeForwardPlus shades in the geometry stage against the fragment's cluster.
	ModeForwardPlus Mode = iota

	// ModeDeferred writes a G-buffer in the geometry stage and shades it in a
	// fullscreen resolve stage against each pixel's cluster.
	ModeDeferred

	// ModeNaive shades every fragment against every light and skips the cluster
	// stage. It is the reference the clustered modes are compared with.
	ModeNaive
)

func (m Mode) String() string {
	switch m {
	case ModeForwardPlus:
		return "forward_plus"
	case ModeDeferred:
		return "deferred"
	case ModeNaive:
		return "naive"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Clustered reports whether the mode runs the cluster stage.
func (m Mode) Clustered() bool {
	return m == ModeForwardPlus || m == ModeDeferred
}

// ParseMode parses a mode name as written in configuration.
//
// Parameters:
//   - s: "forward_plus", "deferred" or "naive" (case-insensitive)
//
// Returns:
//   - Mode: the parsed mode
//   - error: an error for unknown names
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forward_plus", "forward+", "forward":
		return ModeForwardPlus, nil
	case "deferred", "clustered_deferred":
		return ModeDeferred, nil
	case "naive":
		return ModeNaive, nil
	default:
		return 0, fmt.Errorf("renderer: unknown mode %q", s)
	}
}
