package morph

import (
	"context"
	"fmt"
	"math"

	"github.com/ironsheep/label-segment-mcp/internal/raster"
)

// RegionalMaxima marks every pixel that belongs to a regional maximum of r:
// a connected set of equal-valued pixels with no neighbour outside the set
// of greater value. Marked pixels are 1 and all others are 0; use
// segment.LabelComponents to number the individual maxima.
//
// # Algorithm
//
// The marker equals r everywhere except on candidate pixels (those with no
// strictly greater neighbour), where it is lowered to the next smaller
// float64.
// Reconstructing the marker under r restores every candidate that is
// connected through its plateau to a higher pixel; the candidates that stay
// below r are exactly the regional maxima.
//
// A constant raster is one regional maximum covering the whole image.
func RegionalMaxima(ctx context.Context, r *raster.Raster, conn raster.Connectivity) (*raster.LabelImage, error) {
	if r.Len() == 0 {
		return nil, raster.ErrEmptyRaster
	}
	w, h := r.Width, r.Height
	offsets := conn.Offsets()

	marker := &raster.Raster{Width: w, Height: h, Depth: raster.DepthFloat, Pix: make([]float64, len(r.Pix))}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			v := r.Pix[i]
			marker.Pix[i] = math.Nextafter(v, math.Inf(-1))
			for _, d := range offsets {
				nx, ny := x+d[0], y+d[1]
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				if r.Pix[ny*w+nx] > v {
					marker.Pix[i] = v
					break
				}
			}
		}
	}

	rec, err := Reconstruct(ctx, marker, r, conn)
	if err != nil {
		return nil, err
	}
	out := raster.NewLabelImageLike(r)
	for i, v := range r.Pix {
		if v-rec.Pix[i] > 0 {
			out.SetIndex(i, 1)
		}
	}
	return out, nil
}

// RegionalMinima marks the regional minima of r, computed as the regional
// maxima of its negation.
func RegionalMinima(ctx context.Context, r *raster.Raster, conn raster.Connectivity) (*raster.LabelImage, error) {
	return RegionalMaxima(ctx, r.Negate(), conn)
}

// HMaxima suppresses every maximum of r whose dynamic is below h and lowers
// the remaining maxima by h. It is the reconstruction of r - h under r.
// h = 0 returns a copy of r.
func HMaxima(ctx context.Context, r *raster.Raster, h float64, conn raster.Connectivity) (*raster.Raster, error) {
	if h < 0 {
		return nil, fmt.Errorf("%w: h %g", raster.ErrNegativeParameter, h)
	}
	out, err := Reconstruct(ctx, r.AddScalar(-h), r, conn)
	if err != nil {
		return nil, err
	}
	out.Depth = r.Depth
	if h != math.Trunc(h) {
		out.Depth = raster.DepthFloat
	}
	return out, nil
}

// HMinima fills every minimum of r shallower than h and raises the remaining
// minima by h, the dual of HMaxima.
func HMinima(ctx context.Context, r *raster.Raster, h float64, conn raster.Connectivity) (*raster.Raster, error) {
	out, err := HMaxima(ctx, r.Negate(), h, conn)
	if err != nil {
		return nil, err
	}
	for i, v := range out.Pix {
		out.Pix[i] = -v
	}
	out.Depth = r.Depth
	if h != math.Trunc(h) {
		out.Depth = raster.DepthFloat
	}
	return out, nil
}

// ExtendedMaxima marks the maxima of r with a dynamic of at least h: the
// regional maxima of HMaxima(r, h).
func ExtendedMaxima(ctx context.Context, r *raster.Raster, h float64, conn raster.Connectivity) (*raster.LabelImage, error) {
	hmax, err := HMaxima(ctx, r, h, conn)
	if err != nil {
		return nil, err
	}
	return RegionalMaxima(ctx, hmax, conn)
}

// ExtendedMinima marks the minima of r with a depth of at least h.
func ExtendedMinima(ctx context.Context, r *raster.Raster, h float64, conn raster.Connectivity) (*raster.LabelImage, error) {
	hmin, err := HMinima(ctx, r, h, conn)
	if err != nil {
		return nil, err
	}
	return RegionalMinima(ctx, hmin, conn)
}
