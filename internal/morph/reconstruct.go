package morph

import (
	"context"
	"fmt"

	"github.com/ironsheep/label-segment-mcp/internal/raster"
)

// cancelEvery is the number of queue pops between cancellation checks.
const cancelEvery = 1 << 14

// Reconstruct returns the grayscale reconstruction by dilation of marker
// under mask: the largest raster no greater than mask that can be reached
// from marker by repeated dilation, each step clamped to mask.
//
// # Algorithm
//
// The hybrid method:
//
//  1. A forward raster scan raises each pixel to the maximum of itself and
//     its already-visited neighbours, clamped to mask.
//  2. A backward scan does the same with the neighbours below and to the
//     right. A pixel that could still raise one of those neighbours is queued.
//  3. The FIFO queue is drained; each popped pixel raises every neighbour
//     below it that has not reached its own mask value, and queues it.
//
// The result r satisfies marker <= r <= mask everywhere, and reconstructing
// (r, mask) returns r unchanged.
//
// marker and mask must have equal dimensions and marker <= mask pointwise;
// violations return raster.ErrDimensionMismatch or raster.ErrMarkerExceedsMask.
// Neither input is modified.
//
// Time: O(W·H) scans plus O(W·H·d) for the queue in practice.
func Reconstruct(ctx context.Context, marker, mask *raster.Raster, conn raster.Connectivity) (*raster.Raster, error) {
	if err := validatePair(marker, mask); err != nil {
		return nil, err
	}
	if err := raster.CheckCanceled(ctx); err != nil {
		return nil, err
	}

	w, h := mask.Width, mask.Height
	out := marker.Clone()
	if marker.Depth != mask.Depth {
		out.Depth = raster.DepthFloat
	}
	r, m := out.Pix, mask.Pix

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			v := r[i]
			for _, d := range conn.Causal() {
				nx, ny := x+d[0], y+d[1]
				if nx < 0 || ny < 0 || nx >= w {
					continue
				}
				v = max(v, r[ny*w+nx])
			}
			r[i] = min(v, m[i])
		}
	}
	if err := raster.CheckCanceled(ctx); err != nil {
		return nil, err
	}

	queue := make([]int, 0, 1024)
	for y := h - 1; y >= 0; y-- {
		for x := w - 1; x >= 0; x-- {
			i := y*w + x
			v := r[i]
			for _, d := range conn.AntiCausal() {
				nx, ny := x+d[0], y+d[1]
				if nx < 0 || nx >= w || ny >= h {
					continue
				}
				v = max(v, r[ny*w+nx])
			}
			v = min(v, m[i])
			r[i] = v
			for _, d := range conn.AntiCausal() {
				nx, ny := x+d[0], y+d[1]
				if nx < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if r[j] < v && r[j] < m[j] {
					queue = append(queue, i)
					break
				}
			}
		}
	}

	offsets := conn.Offsets()
	for qi := 0; qi < len(queue); qi++ {
		if qi%cancelEvery == 0 {
			if err := raster.CheckCanceled(ctx); err != nil {
				return nil, err
			}
		}
		p := queue[qi]
		px, py := p%w, p/w
		for _, d := range offsets {
			nx, ny := px+d[0], py+d[1]
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			q := ny*w + nx
			if r[q] < r[p] && r[q] != m[q] {
				r[q] = min(r[p], m[q])
				queue = append(queue, q)
			}
		}
		// Compact the consumed prefix.
		if qi >= 1<<16 && qi*2 >= len(queue) {
			queue = append(queue[:0], queue[qi+1:]...)
			qi = -1
		}
	}

	return out, nil
}

// ReconstructByErosion returns the grayscale reconstruction by erosion of
// marker over mask, the dual of Reconstruct. marker must be >= mask
// pointwise.
func ReconstructByErosion(ctx context.Context, marker, mask *raster.Raster, conn raster.Connectivity) (*raster.Raster, error) {
	out, err := Reconstruct(ctx, marker.Negate(), mask.Negate(), conn)
	if err != nil {
		return nil, err
	}
	for i, v := range out.Pix {
		out.Pix[i] = -v
	}
	out.Depth = raster.DepthFloat
	if marker.Depth == mask.Depth {
		out.Depth = mask.Depth
	}
	return out, nil
}

func validatePair(marker, mask *raster.Raster) error {
	if err := raster.SameSize(marker.Width, marker.Height, mask.Width, mask.Height); err != nil {
		return fmt.Errorf("failed to reconstruct: %w", err)
	}
	if mask.Len() == 0 {
		return raster.ErrEmptyRaster
	}
	for i, v := range marker.Pix {
		if v > mask.Pix[i] {
			return fmt.Errorf("%w: pixel (%d,%d) marker %g mask %g",
				raster.ErrMarkerExceedsMask, i%mask.Width, i/mask.Width, v, mask.Pix[i])
		}
	}
	return nil
}
