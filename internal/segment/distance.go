package segment

import (
	"math"

	"github.com/ironsheep/label-segment-mcp/internal/raster"
)

// DistanceTransform returns, for every pixel, the exact Euclidean distance to
// the nearest non-zero pixel of labels. Labeled pixels are 0. When labels has
// no non-zero pixel every distance is +Inf.
//
// The transform is separable: a squared-distance pass down each column
// followed by one along each row, each computing the lower envelope of
// parabolas rooted at the finite samples.
//
// Time: O(W·H). Memory: O(W·H).
func DistanceTransform(labels *raster.LabelImage) *raster.Raster {
	return distanceTransform(labels.Width, labels.Height, func(i int) bool {
		return labels.AtIndex(i) != 0
	})
}

// InsideDistance returns, for every non-zero pixel of mask, the Euclidean
// distance to the nearest background pixel; background pixels are 0. The
// image border is not treated as background. A mask without any background
// pixel yields max(W, H) everywhere so the result stays finite.
func InsideDistance(mask *raster.LabelImage) *raster.Raster {
	d := distanceTransform(mask.Width, mask.Height, func(i int) bool {
		return mask.AtIndex(i) == 0
	})
	ceiling := float64(max(mask.Width, mask.Height))
	for i, v := range d.Pix {
		if math.IsInf(v, 1) {
			d.Pix[i] = ceiling
		}
	}
	return d
}

func distanceTransform(w, h int, feature func(i int) bool) *raster.Raster {
	out := &raster.Raster{Width: w, Height: h, Depth: raster.DepthFloat, Pix: make([]float64, w*h)}
	inf := math.Inf(1)
	for i := range out.Pix {
		if !feature(i) {
			out.Pix[i] = inf
		}
	}

	n := max(w, h)
	f := make([]float64, n)
	d := make([]float64, n)
	v := make([]int, n)
	z := make([]float64, n+1)

	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			f[y] = out.Pix[y*w+x]
		}
		squaredDistance1D(f[:h], d[:h], v, z)
		for y := 0; y < h; y++ {
			out.Pix[y*w+x] = d[y]
		}
	}
	for y := 0; y < h; y++ {
		row := out.Pix[y*w : (y+1)*w]
		copy(f[:w], row)
		squaredDistance1D(f[:w], d[:w], v, z)
		copy(row, d[:w])
	}

	for i, s := range out.Pix {
		out.Pix[i] = math.Sqrt(s)
	}
	return out
}

// squaredDistance1D computes d[q] = min_p (q-p)² + f[p] over the finite f[p].
// Samples equal to +Inf never root a parabola; when all are infinite d is
// +Inf everywhere.
func squaredDistance1D(f, d []float64, v []int, z []float64) {
	n := len(f)
	k := -1
	for q := 0; q < n; q++ {
		if math.IsInf(f[q], 1) {
			continue
		}
		var s float64
		for {
			if k < 0 {
				s = math.Inf(-1)
				break
			}
			p := v[k]
			s = ((f[q] + float64(q*q)) - (f[p] + float64(p*p))) / float64(2*q-2*p)
			if s > z[k] {
				break
			}
			k--
		}
		k++
		v[k] = q
		z[k] = s
		z[k+1] = math.Inf(1)
	}

	if k < 0 {
		for q := range d {
			d[q] = math.Inf(1)
		}
		return
	}

	k = 0
	for q := 0; q < n; q++ {
		for z[k+1] < float64(q) {
			k++
		}
		dq := float64(q - v[k])
		d[q] = dq*dq + f[v[k]]
	}
}
