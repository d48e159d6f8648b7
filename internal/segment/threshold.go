package segment

import (
	"fmt"

	"github.com/ironsheep/label-segment-mcp/internal/raster"
)

// DefaultOn is the conventional foreground value of a binary mask.
const DefaultOn = 255

// Comparator selects the pointwise comparison used by Compare.
type Comparator int

const (
	// Greater marks pixels where a > b.
	Greater Comparator = iota
	// GreaterEqual marks pixels where a >= b.
	GreaterEqual
	// Equal marks pixels where a == b.
	Equal
)

// ParseComparator accepts ">", ">=" or "==".
func ParseComparator(s string) (Comparator, error) {
	switch s {
	case ">", "gt":
		return Greater, nil
	case ">=", "ge":
		return GreaterEqual, nil
	case "==", "eq":
		return Equal, nil
	default:
		return Greater, fmt.Errorf("unknown comparator: %s", s)
	}
}

// Threshold marks every pixel whose value lies in [low, high] with on and
// every other pixel with 0. Either bound may be infinite.
func Threshold(r *raster.Raster, low, high float64, on uint32) *raster.LabelImage {
	mask := raster.NewLabelImageLike(r)
	mask.Reserve(on)
	for i, v := range r.Pix {
		if v >= low && v <= high {
			mask.SetIndex(i, on)
		}
	}
	return mask
}

// Compare marks every pixel where a op b holds with on. It fails with
// raster.ErrDimensionMismatch when a and b differ in size.
func Compare(a *raster.Raster, op Comparator, b *raster.Raster, on uint32) (*raster.LabelImage, error) {
	if err := raster.SameSize(a.Width, a.Height, b.Width, b.Height); err != nil {
		return nil, fmt.Errorf("failed to compare rasters: %w", err)
	}
	mask := raster.NewLabelImageLike(a)
	mask.Reserve(on)
	for i, va := range a.Pix {
		vb := b.Pix[i]
		var hit bool
		switch op {
		case Greater:
			hit = va > vb
		case GreaterEqual:
			hit = va >= vb
		case Equal:
			hit = va == vb
		}
		if hit {
			mask.SetIndex(i, on)
		}
	}
	return mask, nil
}
