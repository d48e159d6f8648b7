package imaging

import (
	"fmt"
	"math"

	"github.com/ironsheep/label-segment-mcp/internal/raster"
)

// Smooth returns a Gaussian-blurred copy of r with standard deviation sigma
// pixels. Seed detection on noisy rasters runs on a smoothed copy so that
// single-pixel noise does not create spurious maxima.
//
// # Algorithm
//
// The blur is separable: one horizontal and one vertical pass with a
// normalized kernel of radius ceil(3·sigma). Border pixels use clamped
// (replicated) edge values, so a constant raster stays constant.
//
// sigma 0 returns an unmodified copy. A negative sigma is
// raster.ErrNegativeParameter. The result is DepthFloat.
func Smooth(r *raster.Raster, sigma float64) (*raster.Raster, error) {
	if sigma < 0 {
		return nil, fmt.Errorf("%w: sigma %g", raster.ErrNegativeParameter, sigma)
	}
	if sigma == 0 {
		return r.Clone(), nil
	}

	kernel := gaussianKernel(sigma)
	radius := len(kernel) / 2
	w, h := r.Width, r.Height

	tmp := make([]float64, len(r.Pix))
	for y := 0; y < h; y++ {
		row := r.Pix[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			var sum float64
			for k, kv := range kernel {
				sum += row[clamp(x+k-radius, 0, w-1)] * kv
			}
			tmp[y*w+x] = sum
		}
	}

	out := &raster.Raster{Width: w, Height: h, Depth: raster.DepthFloat, Pix: make([]float64, len(r.Pix))}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for k, kv := range kernel {
				sum += tmp[clamp(y+k-radius, 0, h-1)*w+x] * kv
			}
			out.Pix[y*w+x] = sum
		}
	}
	return out, nil
}

// gaussianKernel returns a normalized 1-D Gaussian of radius ceil(3·sigma).
func gaussianKernel(sigma float64) []float64 {
	radius := int(math.Ceil(3 * sigma))
	kernel := make([]float64, 2*radius+1)
	var total float64
	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
		total += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= total
	}
	return kernel
}

// clamp constrains val to [lo, hi].
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
