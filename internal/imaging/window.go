package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/label-segment-mcp/internal/raster"
)

// Region is a rectangle in image pixel coordinates. (X1, Y1) is inclusive and
// (X2, Y2) exclusive. The zero Region means the whole image.
type Region struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// IsZero reports whether r selects the whole image.
func (r Region) IsZero() bool { return r == Region{} }

// Rect returns r as an image.Rectangle, or bounds when r is zero.
func (r Region) Rect(bounds image.Rectangle) image.Rectangle {
	if r.IsZero() {
		return bounds
	}
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

// Validate checks that r is non-empty and lies within bounds.
func (r Region) Validate(bounds image.Rectangle) error {
	if r.IsZero() {
		return nil
	}
	if r.X1 < bounds.Min.X || r.Y1 < bounds.Min.Y || r.X2 > bounds.Max.X || r.Y2 > bounds.Max.Y {
		return fmt.Errorf("region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			r.X1, r.Y1, r.X2, r.Y2, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	if r.X1 >= r.X2 || r.Y1 >= r.Y2 {
		return fmt.Errorf("invalid region: x1 must be < x2, y1 must be < y2")
	}
	return nil
}

// NamedRegion returns a predefined region of a w×h image: "top-left",
// "top-right", "bottom-left", "bottom-right", "top-half", "bottom-half",
// "left-half", "right-half" or "center" (the middle 50%).
func NamedRegion(name string, w, h int) (Region, error) {
	midX, midY := w/2, h/2
	switch name {
	case "top-left":
		return Region{0, 0, midX, midY}, nil
	case "top-right":
		return Region{midX, 0, w, midY}, nil
	case "bottom-left":
		return Region{0, midY, midX, h}, nil
	case "bottom-right":
		return Region{midX, midY, w, h}, nil
	case "top-half":
		return Region{0, 0, w, midY}, nil
	case "bottom-half":
		return Region{0, midY, w, h}, nil
	case "left-half":
		return Region{0, 0, midX, h}, nil
	case "right-half":
		return Region{midX, 0, w, h}, nil
	case "center":
		return Region{w / 4, h / 4, w - w/4, h - h/4}, nil
	default:
		return Region{}, fmt.Errorf("unknown region: %s", name)
	}
}

// WindowImage crops region out of img and, when scale is positive and not 1,
// resamples it with a Lanczos filter. At scale 1 the result shares pixels with
// img when img supports SubImage, and keeps img's coordinate origin.
func WindowImage(img image.Image, region Region, scale float64) (image.Image, error) {
	if err := region.Validate(img.Bounds()); err != nil {
		return nil, err
	}
	rect := region.Rect(img.Bounds())

	if scale <= 0 || scale == 1.0 {
		if sub, ok := img.(interface {
			SubImage(image.Rectangle) image.Image
		}); ok {
			return sub.SubImage(rect), nil
		}
		return imaging.Crop(img, rect), nil
	}

	cropped := imaging.Crop(img, rect)
	w := max(1, int(float64(cropped.Bounds().Dx())*scale))
	h := max(1, int(float64(cropped.Bounds().Dy())*scale))
	return imaging.Resize(cropped, w, h, imaging.Lanczos), nil
}

// Window is WindowImage followed by ToRaster. Grayscale sources cropped at
// scale 1 keep their exact samples.
//
// Segmentation results on a window are in window coordinates; a caller
// mapping them back divides by scale and adds (X1, Y1).
func Window(img image.Image, region Region, scale float64) (*raster.Raster, error) {
	win, err := WindowImage(img, region, scale)
	if err != nil {
		return nil, err
	}
	return ToRaster(win)
}
