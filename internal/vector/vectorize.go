package vector

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/label-segment-mcp/internal/raster"
	"github.com/ironsheep/label-segment-mcp/internal/segment"
)

// TraceLabels returns one filled boundary per label value. The result has
// labels.MaxLabel() entries and the boundary of label v is at index v-1.
// Labels with no pixels have a nil entry.
//
// Only the first region of each label in row-major order is traced; a label
// split into several disjoint parts keeps its first part. Enclosed pixels are
// absorbed into the boundary. Use TraceRegions to get every part and its
// holes.
func TraceLabels(ctx context.Context, labels *raster.LabelImage, conn raster.Connectivity) ([]*Boundary, error) {
	regions, count, err := segment.LabelRegions(ctx, labels, conn)
	if err != nil {
		return nil, err
	}
	out := make([]*Boundary, labels.MaxLabel())
	err = eachRegion(ctx, regions, count, func(id uint32, sx, sy int) error {
		v := labels.At(sx, sy)
		if out[v-1] != nil {
			return nil
		}
		outer, err := traceRing(sx, sy, regionMember(regions, id), conn, maxTraceSteps(labels.Width, labels.Height))
		if err != nil {
			return err
		}
		out[v-1] = &Boundary{Label: v, Outer: outer}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TraceRegions returns one boundary per connected region of labels, in
// row-major discovery order. A label with several disjoint parts yields
// several boundaries.
//
// After tracing a region's outer ring the labels it encloses are checked for
// uniformity. When any enclosed pixel carries a different value the region is
// re-vectorized with its holes.
func TraceRegions(ctx context.Context, labels *raster.LabelImage, conn raster.Connectivity) ([]*Boundary, error) {
	regions, count, err := segment.LabelRegions(ctx, labels, conn)
	if err != nil {
		return nil, err
	}
	out := make([]*Boundary, 0, count)
	steps := maxTraceSteps(labels.Width, labels.Height)
	err = eachRegion(ctx, regions, count, func(id uint32, sx, sy int) error {
		v := labels.At(sx, sy)
		outer, err := traceRing(sx, sy, regionMember(regions, id), conn, steps)
		if err != nil {
			return err
		}
		b := &Boundary{Label: v, Outer: outer}
		if !uniformInterior(labels, outer, v) {
			if b.Holes, err = traceHoles(regions, id, outer, conn); err != nil {
				return err
			}
		}
		out = append(out, b)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TraceThreshold vectorizes every connected region of pixels of r whose value
// lies in [low, high], with holes. Boundary labels number the regions 1..n in
// row-major discovery order.
func TraceThreshold(ctx context.Context, r *raster.Raster, low, high float64, conn raster.Connectivity) ([]*Boundary, error) {
	if low > high {
		return nil, fmt.Errorf("%w: threshold [%g, %g]", raster.ErrInvalidRange, low, high)
	}
	mask := segment.Threshold(r, low, high, 1)
	regions, count, err := segment.LabelComponents(ctx, mask, conn)
	if err != nil {
		return nil, err
	}
	out := make([]*Boundary, 0, count)
	steps := maxTraceSteps(r.Width, r.Height)
	err = eachRegion(ctx, regions, count, func(id uint32, sx, sy int) error {
		outer, err := traceRing(sx, sy, regionMember(regions, id), conn, steps)
		if err != nil {
			return err
		}
		holes, err := traceHoles(regions, id, outer, conn)
		if err != nil {
			return err
		}
		out = append(out, &Boundary{Label: id, Outer: outer, Holes: holes})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// eachRegion calls fn once per region id with the region's first pixel in
// row-major order. Ids are visited in increasing order because regions are
// numbered in discovery order.
func eachRegion(ctx context.Context, regions *raster.LabelImage, count int, fn func(id uint32, sx, sy int) error) error {
	var seen uint32
	for y := 0; y < regions.Height && int(seen) < count; y++ {
		if y%64 == 0 {
			if err := raster.CheckCanceled(ctx); err != nil {
				return err
			}
		}
		for x := 0; x < regions.Width; x++ {
			id := regions.At(x, y)
			if id <= seen {
				continue
			}
			seen = id
			if err := fn(id, x, y); err != nil {
				return err
			}
		}
	}
	return nil
}

func regionMember(regions *raster.LabelImage, id uint32) func(x, y int) bool {
	return func(x, y int) bool {
		return regions.InBounds(x, y) && regions.At(x, y) == id
	}
}

// uniformInterior reports whether every pixel enclosed by outer carries the
// value v.
func uniformInterior(labels *raster.LabelImage, outer Ring, v uint32) bool {
	var values []float64
	scanRings([]Ring{outer}, func(y, x0, x1 int) {
		for x := x0; x < x1; x++ {
			values = append(values, float64(labels.At(x, y)))
		}
	})
	switch len(values) {
	case 0:
		return true
	case 1:
		return values[0] == float64(v)
	}
	mean, variance := stat.MeanVariance(values, nil)
	return variance == 0 && mean == float64(v)
}

// traceHoles returns the counter-clockwise rings around every connected set
// of pixels that outer encloses but region id does not own. Holes are
// connected under the dual of conn.
func traceHoles(regions *raster.LabelImage, id uint32, outer Ring, conn raster.Connectivity) ([]Ring, error) {
	b := (&Boundary{Outer: outer}).Bounds()
	bw, bh := b.Dx(), b.Dy()
	// hole holds, per bounding-box pixel, -1 for a hole candidate, 0 for
	// anything else, and the hole number once assigned.
	hole := make([]int, bw*bh)
	candidates := 0
	scanRings([]Ring{outer}, func(y, x0, x1 int) {
		for x := x0; x < x1; x++ {
			if regions.At(x, y) != id {
				hole[(y-b.Min.Y)*bw+(x-b.Min.X)] = -1
				candidates++
			}
		}
	})
	if candidates == 0 {
		return nil, nil
	}

	dual := conn.Dual()
	offsets := dual.Offsets()
	var holes []Ring
	var queue []int
	var next int
	for i0, h := range hole {
		if h != -1 {
			continue
		}
		next++
		hole[i0] = next
		queue = append(queue[:0], i0)
		for qi := 0; qi < len(queue); qi++ {
			u := queue[qi]
			ux, uy := u%bw, u/bw
			for _, d := range offsets {
				vx, vy := ux+d[0], uy+d[1]
				if vx < 0 || vy < 0 || vx >= bw || vy >= bh {
					continue
				}
				if v := vy*bw + vx; hole[v] == -1 {
					hole[v] = next
					queue = append(queue, v)
				}
			}
		}

		k := next
		member := func(x, y int) bool {
			lx, ly := x-b.Min.X, y-b.Min.Y
			return lx >= 0 && ly >= 0 && lx < bw && ly < bh && hole[ly*bw+lx] == k
		}
		ring, err := traceRing(b.Min.X+i0%bw, b.Min.Y+i0/bw, member, dual, maxTraceSteps(bw, bh))
		if err != nil {
			return nil, err
		}
		holes = append(holes, ring.reversed())
	}
	return holes, nil
}
