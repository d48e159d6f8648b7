package vector

import (
	"image"
	"slices"

	"github.com/ironsheep/label-segment-mcp/internal/raster"
)

// Point is a pixel corner. Corner (x, y) is the top-left corner of pixel
// (x, y).
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Ring is a closed polygon; the last vertex connects back to the first.
type Ring []Point

// SignedArea returns the shoelace area of the ring: positive for clockwise
// rings (y down), negative for counter-clockwise ones.
func (r Ring) SignedArea() int {
	var sum int
	for i, p := range r {
		q := r[(i+1)%len(r)]
		sum += p.X*q.Y - q.X*p.Y
	}
	return sum / 2
}

func (r Ring) reversed() Ring {
	out := make(Ring, len(r))
	out[0] = r[0]
	for i := 1; i < len(r); i++ {
		out[i] = r[len(r)-i]
	}
	return out
}

// Boundary is the vector outline of one region.
type Boundary struct {
	// Label is the label value of the region.
	Label uint32 `json:"label"`
	// Outer is the clockwise outer ring.
	Outer Ring `json:"outer"`
	// Holes are counter-clockwise rings around enclosed pixels that do not
	// belong to the region. Empty for filled boundaries.
	Holes []Ring `json:"holes,omitempty"`
}

// Area returns the number of pixels the boundary encloses, excluding holes.
func (b *Boundary) Area() int {
	area := b.Outer.SignedArea()
	for _, h := range b.Holes {
		area += h.SignedArea()
	}
	return area
}

// Bounds returns the pixel rectangle covered by the outer ring.
func (b *Boundary) Bounds() image.Rectangle {
	if len(b.Outer) == 0 {
		return image.Rectangle{}
	}
	r := image.Rect(b.Outer[0].X, b.Outer[0].Y, b.Outer[0].X, b.Outer[0].Y)
	for _, p := range b.Outer[1:] {
		r.Min.X = min(r.Min.X, p.X)
		r.Min.Y = min(r.Min.Y, p.Y)
		r.Max.X = max(r.Max.X, p.X)
		r.Max.Y = max(r.Max.Y, p.Y)
	}
	return r
}

// Translate shifts every vertex by (dx, dy).
func (b *Boundary) Translate(dx, dy int) {
	shift := func(r Ring) {
		for i := range r {
			r[i].X += dx
			r[i].Y += dy
		}
	}
	shift(b.Outer)
	for _, h := range b.Holes {
		shift(h)
	}
}

// Fill writes value into every pixel of dst the boundary encloses. Pixels
// outside dst are ignored.
func (b *Boundary) Fill(dst *raster.LabelImage, value uint32) {
	rings := append([]Ring{b.Outer}, b.Holes...)
	scanRings(rings, func(y, x0, x1 int) {
		if y < 0 || y >= dst.Height {
			return
		}
		for x := max(x0, 0); x < min(x1, dst.Width); x++ {
			dst.Set(x, y, value)
		}
	})
}

// scanRings calls fn with every horizontal pixel span [x0, x1) of row y that
// lies inside rings under the even-odd rule. Only vertical edges cross a
// pixel row's centre, so a row's crossings are the x of every vertical edge
// spanning it.
func scanRings(rings []Ring, fn func(y, x0, x1 int)) {
	type edge struct{ x, y0, y1 int }
	var edges []edge
	minY, maxY := 0, 0
	first := true
	for _, r := range rings {
		for i, p := range r {
			q := r[(i+1)%len(r)]
			if p.X != q.X {
				continue
			}
			e := edge{x: p.X, y0: min(p.Y, q.Y), y1: max(p.Y, q.Y)}
			edges = append(edges, e)
			if first || e.y0 < minY {
				minY = e.y0
			}
			if first || e.y1 > maxY {
				maxY = e.y1
			}
			first = false
		}
	}
	if len(edges) == 0 {
		return
	}
	slices.SortFunc(edges, func(a, b edge) int { return a.y0 - b.y0 })

	var xs []int
	for y := minY; y < maxY; y++ {
		xs = xs[:0]
		for _, e := range edges {
			if e.y0 > y {
				break
			}
			if y < e.y1 {
				xs = append(xs, e.x)
			}
		}
		slices.Sort(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			if xs[i] < xs[i+1] {
				fn(y, xs[i], xs[i+1])
			}
		}
	}
}
