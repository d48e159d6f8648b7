package imaging

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/effect"

	"github.com/ironsheep/label-segment-mcp/internal/raster"
)

// ToRaster converts img to a single-channel raster with its origin at the
// image's top-left pixel.
//
// Grayscale images keep their exact samples: *image.Gray gives a Depth8
// raster and *image.Gray16 a Depth16 raster. Every other colour model is
// reduced to 8-bit luminance first.
func ToRaster(img image.Image) (*raster.Raster, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("failed to convert image: %w", raster.ErrEmptyRaster)
	}

	switch src := img.(type) {
	case *image.Gray16:
		r, _ := raster.New(w, h, raster.Depth16)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r.Pix[y*w+x] = float64(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
		return r, nil
	case *image.Gray:
		return grayToRaster(src), nil
	default:
		return grayToRaster(effect.Grayscale(img)), nil
	}
}

func grayToRaster(g *image.Gray) *raster.Raster {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	r, _ := raster.New(w, h, raster.Depth8)
	for y := 0; y < h; y++ {
		off := g.PixOffset(b.Min.X, b.Min.Y+y)
		for x, v := range g.Pix[off : off+w] {
			r.Pix[y*w+x] = float64(v)
		}
	}
	return r
}
