package raster

import (
	"fmt"
	"math"
)

// Depth records the numeric type a raster's samples came from.
type Depth int

const (
	// DepthFloat marks samples that may take any float64 value.
	DepthFloat Depth = iota
	// Depth8 marks samples that were unsigned 8-bit integers.
	Depth8
	// Depth16 marks samples that were unsigned 16-bit integers.
	Depth16
)

// String returns the depth name used in tool output.
func (d Depth) String() string {
	switch d {
	case Depth8:
		return "8-bit"
	case Depth16:
		return "16-bit"
	default:
		return "float"
	}
}

// Integral reports whether samples of this depth are whole numbers.
func (d Depth) Integral() bool {
	return d == Depth8 || d == Depth16
}

// Raster is a row-major grid of scalar samples.
//
// The engine treats a caller's Raster as read-only. Operations that need to
// modify samples work on a Clone.
type Raster struct {
	Width  int
	Height int
	Depth  Depth
	Pix    []float64
}

// New allocates a zero-filled raster of the given size and depth.
func New(width, height int, depth Depth) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrEmptyRaster, width, height)
	}
	return &Raster{
		Width:  width,
		Height: height,
		Depth:  depth,
		Pix:    make([]float64, width*height),
	}, nil
}

// FromSlice wraps row-major samples without copying them.
func FromSlice(width, height int, depth Depth, pix []float64) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrEmptyRaster, width, height)
	}
	if len(pix) != width*height {
		return nil, fmt.Errorf("%w: %d samples for %dx%d", ErrDimensionMismatch, len(pix), width, height)
	}
	return &Raster{Width: width, Height: height, Depth: depth, Pix: pix}, nil
}

// FromRows builds a raster from a rectangular [][]float64, copying the data.
func FromRows(rows [][]float64, depth Depth) (*Raster, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyRaster
	}
	w, h := len(rows[0]), len(rows)
	r := &Raster{Width: w, Height: h, Depth: depth, Pix: make([]float64, w*h)}
	for y, row := range rows {
		if len(row) != w {
			return nil, fmt.Errorf("%w: row %d has %d samples, want %d", ErrDimensionMismatch, y, len(row), w)
		}
		copy(r.Pix[y*w:], row)
	}
	return r, nil
}

// Len returns the number of samples.
func (r *Raster) Len() int { return r.Width * r.Height }

// Index maps (x, y) to a row-major index.
func (r *Raster) Index(x, y int) int { return y*r.Width + x }

// InBounds reports whether (x, y) lies within the raster.
func (r *Raster) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < r.Width && y < r.Height
}

// At returns the sample at (x, y). It panics when (x, y) is out of bounds.
func (r *Raster) At(x, y int) float64 { return r.Pix[y*r.Width+x] }

// Set stores v at (x, y).
func (r *Raster) Set(x, y int, v float64) { r.Pix[y*r.Width+x] = v }

// Clone returns a deep copy.
func (r *Raster) Clone() *Raster {
	pix := make([]float64, len(r.Pix))
	copy(pix, r.Pix)
	return &Raster{Width: r.Width, Height: r.Height, Depth: r.Depth, Pix: pix}
}

// Negate returns a copy with every sample negated. The result is always
// DepthFloat since negative samples do not fit the unsigned depths.
func (r *Raster) Negate() *Raster {
	out := &Raster{Width: r.Width, Height: r.Height, Depth: DepthFloat, Pix: make([]float64, len(r.Pix))}
	for i, v := range r.Pix {
		out.Pix[i] = -v
	}
	return out
}

// AddScalar returns a copy with c added to every sample.
func (r *Raster) AddScalar(c float64) *Raster {
	out := &Raster{Width: r.Width, Height: r.Height, Depth: r.Depth, Pix: make([]float64, len(r.Pix))}
	for i, v := range r.Pix {
		out.Pix[i] = v + c
	}
	if r.Depth.Integral() && c != math.Trunc(c) {
		out.Depth = DepthFloat
	}
	return out
}

// MinMax returns the smallest and largest sample.
func (r *Raster) MinMax() (min, max float64) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, v := range r.Pix {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// Crop copies the rectangle [x0,x1)×[y0,y1), which must lie inside r.
func (r *Raster) Crop(x0, y0, x1, y1 int) (*Raster, error) {
	if x0 < 0 || y0 < 0 || x1 > r.Width || y1 > r.Height || x0 >= x1 || y0 >= y1 {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside raster bounds %dx%d",
			x0, y0, x1, y1, r.Width, r.Height)
	}
	w, h := x1-x0, y1-y0
	out := &Raster{Width: w, Height: h, Depth: r.Depth, Pix: make([]float64, w*h)}
	for y := 0; y < h; y++ {
		copy(out.Pix[y*w:(y+1)*w], r.Pix[(y+y0)*r.Width+x0:(y+y0)*r.Width+x1])
	}
	return out, nil
}
