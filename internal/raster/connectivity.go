package raster

import "fmt"

// Connectivity selects neighbour connectivity: orthogonal (Four) or including
// diagonals (Eight).
type Connectivity int

const (
	// Four uses 4-directional connectivity: N, E, S, W.
	Four Connectivity = iota
	// Eight uses 8-directional connectivity: N, NE, E, SE, S, SW, W, NW.
	Eight
)

var (
	offsets4 = [][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}
	offsets8 = [][2]int{{0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}}

	// Neighbours already visited by a row-major scan, and their mirror for the
	// reverse scan.
	causal4     = [][2]int{{0, -1}, {-1, 0}}
	causal8     = [][2]int{{-1, -1}, {0, -1}, {1, -1}, {-1, 0}}
	anticausal4 = [][2]int{{1, 0}, {0, 1}}
	anticausal8 = [][2]int{{1, 0}, {-1, 1}, {0, 1}, {1, 1}}
)

// ParseConnectivity accepts 4 or 8.
func ParseConnectivity(n int) (Connectivity, error) {
	switch n {
	case 4:
		return Four, nil
	case 8:
		return Eight, nil
	default:
		return Four, fmt.Errorf("connectivity must be 4 or 8, got %d", n)
	}
}

// String returns "4" or "8".
func (c Connectivity) String() string {
	if c == Eight {
		return "8"
	}
	return "4"
}

// Offsets returns the neighbour offsets as (dx, dy) pairs. The slice is shared
// and must not be modified.
func (c Connectivity) Offsets() [][2]int {
	if c == Eight {
		return offsets8
	}
	return offsets4
}

// Causal returns the neighbours that precede a pixel in row-major order.
func (c Connectivity) Causal() [][2]int {
	if c == Eight {
		return causal8
	}
	return causal4
}

// AntiCausal returns the neighbours that follow a pixel in row-major order.
func (c Connectivity) AntiCausal() [][2]int {
	if c == Eight {
		return anticausal8
	}
	return anticausal4
}

// Dual returns the connectivity used for the complement of a region traced
// with c, so that holes and regions never cross each other.
func (c Connectivity) Dual() Connectivity {
	if c == Eight {
		return Four
	}
	return Eight
}
