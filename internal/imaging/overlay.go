package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/label-segment-mcp/internal/raster"
	"github.com/ironsheep/label-segment-mcp/internal/vector"
)

// OverlayResult is a rendered overlay encoded as base64 PNG.
type OverlayResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Labels      int    `json:"labels"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// OverlayOptions controls RenderOverlay.
type OverlayOptions struct {
	// Opacity of the label fill in [0, 1]. 0 draws outlines only.
	Opacity float64
	// Outline is the colour of boundary edges; nil skips outlines.
	Outline color.Color
}

// LabelColor returns the fill colour of a label. Colours step around the HCL
// hue circle by the golden angle so neighbouring label values never look
// alike, and the same label always gets the same colour.
func LabelColor(label uint32) colorful.Color {
	hue := math.Mod(float64(label)*137.50776405, 360)
	lightness := 0.55 + 0.15*float64(label%3)/2
	return colorful.Hcl(hue, 0.6, lightness).Clamped()
}

// RenderOverlay draws labels over base and traces each boundary's rings on
// top. base and labels must have the same size; base's origin maps to label
// pixel (0, 0).
func RenderOverlay(base image.Image, labels *raster.LabelImage, boundaries []*vector.Boundary, opts OverlayOptions) (*OverlayResult, error) {
	b := base.Bounds()
	if err := raster.SameSize(b.Dx(), b.Dy(), labels.Width, labels.Height); err != nil {
		return nil, fmt.Errorf("failed to render overlay: %w", err)
	}
	opacity := math.Max(0, math.Min(1, opts.Opacity))

	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), base, b.Min, draw.Src)

	palette := make(map[uint32]colorful.Color)
	if opacity > 0 {
		for y := 0; y < labels.Height; y++ {
			for x := 0; x < labels.Width; x++ {
				l := labels.At(x, y)
				if l == 0 {
					continue
				}
				c, ok := palette[l]
				if !ok {
					c = LabelColor(l)
					palette[l] = c
				}
				under, _ := colorful.MakeColor(out.RGBAAt(x, y))
				r, g, bl := under.BlendRgb(c, opacity).Clamped().RGB255()
				out.SetRGBA(x, y, color.RGBA{R: r, G: g, B: bl, A: 255})
			}
		}
	}

	if opts.Outline != nil {
		for _, bd := range boundaries {
			if bd == nil {
				continue
			}
			drawRing(out, bd.Outer, opts.Outline)
			for _, h := range bd.Holes {
				drawRing(out, h, opts.Outline)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode overlay: %w", err)
	}

	return &OverlayResult{
		Width:       b.Dx(),
		Height:      b.Dy(),
		Labels:      len(palette),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// drawRing marks the pixels just inside each crack edge of ring. Vertices are
// pixel corners, so an edge from (x, y) to (x+n, y) runs along the top of
// pixels x..x+n-1 of row y when travelling right.
func drawRing(img *image.RGBA, ring vector.Ring, c color.Color) {
	n := len(ring)
	for i := 0; i < n; i++ {
		p, q := ring[i], ring[(i+1)%n]
		dx, dy := sign(q.X-p.X), sign(q.Y-p.Y)
		x, y := p.X, p.Y
		for x != q.X || y != q.Y {
			// The pixel on the right-hand side of travel.
			px, py := x, y
			switch {
			case dx > 0:
			case dy > 0:
				px--
			case dx < 0:
				px, py = x-1, y-1
			default:
				py--
			}
			if image.Pt(px, py).In(img.Bounds()) {
				img.Set(px, py, c)
			}
			x, y = x+dx, y+dy
		}
	}
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
