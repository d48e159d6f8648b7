package vector

import (
	"errors"
	"fmt"

	"github.com/ironsheep/label-segment-mcp/internal/raster"
)

// ErrOpenContour indicates a contour walk that failed to return to its start.
// It means the membership function changed while tracing.
var ErrOpenContour = errors.New("vector: contour did not close")

// Directions of travel along pixel cracks, clockwise from right.
const (
	dirRight = iota
	dirDown
	dirLeft
	dirUp
)

var (
	stepX = [4]int{1, 0, -1, 0}
	stepY = [4]int{0, 1, 0, -1}
)

// ahead returns the two pixels in front of corner (cx, cy) when travelling in
// dir: the one on the left-hand side and the one on the right-hand side.
func ahead(cx, cy, dir int) (lx, ly, rx, ry int) {
	switch dir {
	case dirRight:
		return cx, cy - 1, cx, cy
	case dirDown:
		return cx, cy, cx - 1, cy
	case dirLeft:
		return cx - 1, cy, cx - 1, cy - 1
	default:
		return cx - 1, cy - 1, cx, cy - 1
	}
}

// traceRing walks the outer crack contour of the region containing pixel
// (sx, sy), which must be the region's first pixel in row-major order so that
// the pixels above and to its left are outside. inside reports membership
// and must return false outside the image.
//
// # Algorithm
//
// The walk starts at the top-left corner of (sx, sy) heading right, with the
// region on the right-hand side. At each corner the two pixels ahead decide
// the next direction:
//
//	left ahead  right ahead  next
//	in          in           turn left
//	out         in           straight
//	in          out          turn left (Eight) or right (Four)
//	out         out          turn right
//
// A vertex is emitted whenever the direction changes. The walk ends on
// reaching the start corner heading right again.
func traceRing(sx, sy int, inside func(x, y int) bool, conn raster.Connectivity, maxSteps int) (Ring, error) {
	ring := Ring{{X: sx, Y: sy}}
	cx, cy, dir := sx, sy, dirRight
	for steps := 0; ; steps++ {
		if steps > maxSteps {
			return nil, fmt.Errorf("%w: start (%d,%d) after %d steps", ErrOpenContour, sx, sy, steps)
		}
		cx += stepX[dir]
		cy += stepY[dir]

		lx, ly, rx, ry := ahead(cx, cy, dir)
		inL, inR := inside(lx, ly), inside(rx, ry)
		next := dir
		switch {
		case inL && inR:
			next = (dir + 3) % 4
		case inR:
		case inL && conn == raster.Eight:
			next = (dir + 3) % 4
		default:
			next = (dir + 1) % 4
		}

		if cx == sx && cy == sy && next == dirRight {
			return ring, nil
		}
		if next != dir {
			ring = append(ring, Point{X: cx, Y: cy})
			dir = next
		}
	}
}

// maxTraceSteps bounds a walk over a w×h grid: each crack is crossed at most
// once in each direction.
func maxTraceSteps(w, h int) int {
	return 4*(w+1)*(h+1) + 4
}
