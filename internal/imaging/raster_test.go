package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/label-segment-mcp/internal/raster"
	"github.com/ironsheep/label-segment-mcp/internal/vector"
)

func TestToRaster(t *testing.T) {
	t.Run("gray keeps exact samples", func(t *testing.T) {
		r, err := ToRaster(blobGray(8, 6, 2, 1, 4, 3))
		require.NoError(t, err)
		assert.Equal(t, raster.Depth8, r.Depth)
		assert.Equal(t, 255.0, r.At(2, 1))
		assert.Equal(t, 0.0, r.At(0, 0))
	})

	t.Run("gray16 keeps 16-bit samples", func(t *testing.T) {
		img := image.NewGray16(image.Rect(0, 0, 3, 2))
		img.SetGray16(1, 1, color.Gray16{Y: 40000})
		r, err := ToRaster(img)
		require.NoError(t, err)
		assert.Equal(t, raster.Depth16, r.Depth)
		assert.Equal(t, 40000.0, r.At(1, 1))
	})

	t.Run("sub-image origin", func(t *testing.T) {
		img := blobGray(10, 10, 5, 5, 6, 6).SubImage(image.Rect(4, 4, 8, 8))
		r, err := ToRaster(img)
		require.NoError(t, err)
		require.Equal(t, 4, r.Width)
		require.Equal(t, 4, r.Height)
		assert.Equal(t, 255.0, r.At(1, 1), "shifted sample")
	})

	t.Run("colour uses luminance", func(t *testing.T) {
		img := solidRGBA(4, 4, color.RGBA{255, 255, 255, 255})
		img.Set(0, 0, color.RGBA{0, 0, 0, 255})
		r, err := ToRaster(img)
		require.NoError(t, err)
		assert.Equal(t, 0.0, r.At(0, 0))
		assert.GreaterOrEqual(t, r.At(3, 3), 250.0)
	})

	t.Run("empty image", func(t *testing.T) {
		_, err := ToRaster(image.NewGray(image.Rect(0, 0, 0, 5)))
		assert.ErrorIs(t, err, raster.ErrEmptyRaster)
	})
}

func TestWindow(t *testing.T) {
	img := blobGray(100, 80, 10, 10, 20, 20)

	r, err := Window(img, Region{X1: 10, Y1: 10, X2: 30, Y2: 30}, 1.0)
	require.NoError(t, err)
	assert.Equal(t, 20, r.Width)
	assert.Equal(t, 20, r.Height)
	assert.Equal(t, 255.0, r.At(0, 0))
	assert.Equal(t, 0.0, r.At(15, 15))

	whole, err := Window(img, Region{}, 0)
	require.NoError(t, err)
	assert.Equal(t, 100, whole.Width)
	assert.Equal(t, 80, whole.Height)

	half, err := Window(img, Region{X1: 0, Y1: 0, X2: 100, Y2: 80}, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 50, half.Width)
	assert.Equal(t, 40, half.Height)
}

func TestWindowImage_KeepsOrigin(t *testing.T) {
	img := blobGray(40, 30, 20, 10, 30, 20)

	win, err := WindowImage(img, Region{X1: 20, Y1: 10, X2: 40, Y2: 30}, 1.0)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(20, 10), win.Bounds().Min)

	scaled, err := WindowImage(img, Region{X1: 20, Y1: 10, X2: 40, Y2: 30}, 2.0)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 40), scaled.Bounds())
}

func TestWindow_InvalidRegion(t *testing.T) {
	img := blobGray(100, 100, 0, 0, 1, 1)

	tests := []struct {
		name   string
		region Region
	}{
		{"x1 negative", Region{-1, 0, 50, 50}},
		{"y2 too large", Region{0, 0, 50, 101}},
		{"x1 equals x2", Region{50, 0, 50, 50}},
		{"inverted", Region{50, 50, 10, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Window(img, tt.region, 1.0)
			assert.Error(t, err)
		})
	}
}

func TestNamedRegion(t *testing.T) {
	tests := []struct {
		name string
		want Region
	}{
		{"top-left", Region{0, 0, 50, 40}},
		{"bottom-right", Region{50, 40, 100, 80}},
		{"right-half", Region{50, 0, 100, 80}},
		{"center", Region{25, 20, 75, 60}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NamedRegion(tt.name, 100, 80)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := NamedRegion("middle-ish", 100, 80)
	assert.Error(t, err)
}

func TestSmooth(t *testing.T) {
	flat, _ := raster.New(9, 7, raster.Depth8)
	for i := range flat.Pix {
		flat.Pix[i] = 100
	}
	got, err := Smooth(flat, 1.5)
	require.NoError(t, err)
	for i, v := range got.Pix {
		require.InDelta(t, 100, v, 1e-9, "pixel %d", i)
	}
	assert.Equal(t, raster.DepthFloat, got.Depth)

	spot, _ := raster.New(9, 9, raster.Depth8)
	spot.Set(4, 4, 255)
	blurred, err := Smooth(spot, 1)
	require.NoError(t, err)
	assert.Less(t, blurred.At(4, 4), 255.0)
	assert.Greater(t, blurred.At(4, 4), blurred.At(5, 4), "spot should fall off from the centre")
	assert.Greater(t, blurred.At(5, 4), blurred.At(6, 4), "spot should fall off from the centre")
	var total float64
	for _, v := range blurred.Pix {
		total += v
	}
	assert.InDelta(t, 255, total, 1e-6, "blur should preserve mass away from borders")

	same, err := Smooth(spot, 0)
	require.NoError(t, err)
	assert.NotSame(t, spot, same, "Smooth(0) should return a copy")
	assert.Equal(t, 255.0, same.At(4, 4))

	_, err = Smooth(spot, -1)
	assert.ErrorIs(t, err, raster.ErrNegativeParameter)
}

func TestLabelColor(t *testing.T) {
	assert.Equal(t, LabelColor(7), LabelColor(7))
	assert.NotEqual(t, LabelColor(1), LabelColor(2), "adjacent labels should get different colours")
	assert.True(t, LabelColor(12345).IsValid())
}

func TestRenderOverlay(t *testing.T) {
	base := blobGray(6, 6, 0, 0, 0, 0)
	labels, _ := raster.LabelsFromRows([][]uint32{
		{0, 0, 0, 0, 0, 0},
		{0, 1, 1, 0, 0, 0},
		{0, 1, 1, 0, 2, 0},
		{0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0},
	})
	boundary := &vector.Boundary{Label: 1, Outer: vector.Ring{{1, 1}, {3, 1}, {3, 3}, {1, 3}}}

	res, err := RenderOverlay(base, labels, []*vector.Boundary{boundary, nil}, OverlayOptions{
		Opacity: 1,
		Outline: color.RGBA{255, 255, 0, 255},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Labels)
	assert.Equal(t, "image/png", res.MimeType)

	data, err := base64.StdEncoding.DecodeString(res.ImageBase64)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	outline := color.RGBAModel.Convert(img.At(1, 1)).(color.RGBA)
	assert.Equal(t, color.RGBA{255, 255, 0, 255}, outline, "outline pixel")
	fill := color.RGBAModel.Convert(img.At(4, 2)).(color.RGBA)
	lr, lg, lb := LabelColor(2).RGB255()
	assert.Equal(t, color.RGBA{lr, lg, lb, 255}, fill, "label 2 fill")
	bg := color.RGBAModel.Convert(img.At(0, 0)).(color.RGBA)
	assert.Equal(t, uint8(0), bg.R, "background pixel should be unchanged")

	small, _ := raster.NewLabelImage(3, 3)
	_, err = RenderOverlay(base, small, nil, OverlayOptions{})
	assert.ErrorIs(t, err, raster.ErrDimensionMismatch)
}
