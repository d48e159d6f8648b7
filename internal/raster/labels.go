package raster

import (
	"fmt"
	"math"
)

// LabelStorage identifies the integer width backing a LabelImage.
type LabelStorage int

const (
	// Labels16 stores labels as uint16; labels up to 65535 fit.
	Labels16 LabelStorage = iota
	// Labels32 stores labels as uint32.
	Labels32
)

// String returns "uint16" or "uint32".
func (s LabelStorage) String() string {
	if s == Labels32 {
		return "uint32"
	}
	return "uint16"
}

// LabelImage is a mutable row-major grid of region identifiers; 0 is
// background.
//
// Exactly one of the two backing slices is in use at a time. Writing a label
// above math.MaxUint16 into 16-bit storage promotes the whole image to 32-bit
// storage first.
type LabelImage struct {
	Width  int
	Height int

	storage LabelStorage
	pix16   []uint16
	pix32   []uint32
}

// NewLabelImage allocates an all-background label image with 16-bit storage.
func NewLabelImage(width, height int) (*LabelImage, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrEmptyRaster, width, height)
	}
	return &LabelImage{Width: width, Height: height, pix16: make([]uint16, width*height)}, nil
}

// NewLabelImageLike allocates an all-background label image sized like r.
func NewLabelImageLike(r *Raster) *LabelImage {
	return &LabelImage{Width: r.Width, Height: r.Height, pix16: make([]uint16, r.Len())}
}

// LabelsFromRows builds a label image from a rectangular [][]uint32.
func LabelsFromRows(rows [][]uint32) (*LabelImage, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyRaster
	}
	w, h := len(rows[0]), len(rows)
	l, _ := NewLabelImage(w, h)
	for y, row := range rows {
		if len(row) != w {
			return nil, fmt.Errorf("%w: row %d has %d labels, want %d", ErrDimensionMismatch, y, len(row), w)
		}
		for x, v := range row {
			l.SetIndex(y*w+x, v)
		}
	}
	return l, nil
}

// Storage reports the current integer width.
func (l *LabelImage) Storage() LabelStorage { return l.storage }

// Len returns the number of pixels.
func (l *LabelImage) Len() int { return l.Width * l.Height }

// InBounds reports whether (x, y) lies within the image.
func (l *LabelImage) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < l.Width && y < l.Height
}

// At returns the label at (x, y).
func (l *LabelImage) At(x, y int) uint32 { return l.AtIndex(y*l.Width + x) }

// Set stores v at (x, y), promoting storage when needed.
func (l *LabelImage) Set(x, y int, v uint32) { l.SetIndex(y*l.Width+x, v) }

// AtIndex returns the label at row-major index i.
func (l *LabelImage) AtIndex(i int) uint32 {
	if l.storage == Labels32 {
		return l.pix32[i]
	}
	return uint32(l.pix16[i])
}

// SetIndex stores v at row-major index i, promoting storage when needed.
func (l *LabelImage) SetIndex(i int, v uint32) {
	if l.storage == Labels16 {
		if v <= math.MaxUint16 {
			l.pix16[i] = uint16(v)
			return
		}
		l.Promote()
	}
	l.pix32[i] = v
}

// Promote switches the image to 32-bit storage. It is a no-op when the image
// already uses 32 bits.
func (l *LabelImage) Promote() {
	if l.storage == Labels32 {
		return
	}
	l.pix32 = make([]uint32, len(l.pix16))
	for i, v := range l.pix16 {
		l.pix32[i] = uint32(v)
	}
	l.pix16 = nil
	l.storage = Labels32
}

// Reserve promotes the storage up front when labels up to maxLabel will be
// written.
func (l *LabelImage) Reserve(maxLabel uint32) {
	if maxLabel > math.MaxUint16 {
		l.Promote()
	}
}

// Clone returns a deep copy with the same storage width.
func (l *LabelImage) Clone() *LabelImage {
	c := &LabelImage{Width: l.Width, Height: l.Height, storage: l.storage}
	if l.storage == Labels32 {
		c.pix32 = make([]uint32, len(l.pix32))
		copy(c.pix32, l.pix32)
	} else {
		c.pix16 = make([]uint16, len(l.pix16))
		copy(c.pix16, l.pix16)
	}
	return c
}

// CopyFrom replaces the contents and storage of l with those of src, which
// must have the same dimensions.
func (l *LabelImage) CopyFrom(src *LabelImage) error {
	if err := SameSize(l.Width, l.Height, src.Width, src.Height); err != nil {
		return err
	}
	c := src.Clone()
	l.storage, l.pix16, l.pix32 = c.storage, c.pix16, c.pix32
	return nil
}

// Clear resets every pixel to background, keeping the storage width.
func (l *LabelImage) Clear() {
	if l.storage == Labels32 {
		clear(l.pix32)
		return
	}
	clear(l.pix16)
}

// MaxLabel returns the largest label present.
func (l *LabelImage) MaxLabel() uint32 {
	var m uint32
	n := l.Len()
	for i := 0; i < n; i++ {
		if v := l.AtIndex(i); v > m {
			m = v
		}
	}
	return m
}

// Count returns the number of non-background pixels.
func (l *LabelImage) Count() int {
	n, total := 0, l.Len()
	for i := 0; i < total; i++ {
		if l.AtIndex(i) != 0 {
			n++
		}
	}
	return n
}

// Distinct returns the number of distinct non-zero labels.
func (l *LabelImage) Distinct() int {
	seen := make(map[uint32]struct{})
	total := l.Len()
	for i := 0; i < total; i++ {
		if v := l.AtIndex(i); v != 0 {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

// Equal reports whether two label images have the same size and labels. The
// storage width is not compared.
func (l *LabelImage) Equal(o *LabelImage) bool {
	if l.Width != o.Width || l.Height != o.Height {
		return false
	}
	total := l.Len()
	for i := 0; i < total; i++ {
		if l.AtIndex(i) != o.AtIndex(i) {
			return false
		}
	}
	return true
}

// Rows returns the labels as [][]uint32, mostly useful in tests and tool
// output for small images.
func (l *LabelImage) Rows() [][]uint32 {
	rows := make([][]uint32, l.Height)
	for y := range rows {
		rows[y] = make([]uint32, l.Width)
		for x := range rows[y] {
			rows[y][x] = l.At(x, y)
		}
	}
	return rows
}

// ToRaster converts labels to a raster of the same size, used when a label
// image feeds an operation that expects samples.
func (l *LabelImage) ToRaster() *Raster {
	r := &Raster{Width: l.Width, Height: l.Height, Depth: DepthFloat, Pix: make([]float64, l.Len())}
	if l.MaxLabel() <= math.MaxUint16 {
		r.Depth = Depth16
	}
	for i := range r.Pix {
		r.Pix[i] = float64(l.AtIndex(i))
	}
	return r
}
