package detection

import (
	"context"
	"image"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ironsheep/label-segment-mcp/internal/raster"
)

// canvas returns a w×h Depth8 raster with the given squares set to 255.
// Each square is {x, y, size}.
func canvas(t *testing.T, w, h int, squares ...[3]int) *raster.Raster {
	t.Helper()
	r, err := raster.New(w, h, raster.Depth8)
	require.NoError(t, err)
	for _, s := range squares {
		for y := s[1]; y < s[1]+s[2]; y++ {
			for x := s[0]; x < s[0]+s[2]; x++ {
				r.Set(x, y, 255)
			}
		}
	}
	return r
}

// disc sets every pixel within radius of (cx, cy) to 255.
func disc(r *raster.Raster, cx, cy, radius int) {
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= radius*radius {
				r.Set(x, y, 255)
			}
		}
	}
}

func sortedBounds(objs []Object) []Bounds {
	out := make([]Bounds, len(objs))
	for i, o := range objs {
		out[i] = o.Bounds
	}
	slices.SortFunc(out, func(a, b Bounds) int {
		if a.Y1 != b.Y1 {
			return a.Y1 - b.Y1
		}
		return a.X1 - b.X1
	})
	return out
}

func TestDetect_SeparateObjects(t *testing.T) {
	r := canvas(t, 20, 12, [3]int{1, 1, 3}, [3]int{10, 5, 4})

	res, err := Detect(context.Background(), r, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 2, res.Count)
	require.Equal(t, uint32(1), res.Objects[0].Label)
	require.Equal(t, 9, res.Objects[0].Area)
	require.Equal(t, Bounds{1, 1, 4, 4}, res.Objects[0].Bounds)
	require.Equal(t, 16, res.Objects[1].Area)
	require.Equal(t, Bounds{10, 5, 14, 9}, res.Objects[1].Bounds)
	require.Equal(t, 16, res.Objects[1].Boundary.Area())
	require.Equal(t, 25, res.Labels.Count())
}

func TestDetect_AreaFilter(t *testing.T) {
	r := canvas(t, 20, 12, [3]int{1, 1, 1}, [3]int{4, 1, 3}, [3]int{10, 5, 5})

	opts := DefaultOptions()
	opts.MinArea = 2
	opts.MaxArea = 10
	res, err := Detect(context.Background(), r, opts)
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)
	require.Equal(t, Bounds{4, 1, 7, 4}, res.Objects[0].Bounds)
	require.Equal(t, uint32(1), res.Labels.At(4, 1))
}

func TestDetect_SplitTouchingDiscs(t *testing.T) {
	r := canvas(t, 33, 21)
	disc(r, 10, 10, 7)
	disc(r, 22, 10, 7)

	merged, err := Detect(context.Background(), r, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 1, merged.Count)

	opts := DefaultOptions()
	opts.SplitObjects = true
	opts.H = 2
	split, err := Detect(context.Background(), r, opts)
	require.NoError(t, err)
	require.Equal(t, 2, split.Count)

	left, right := split.Labels.At(10, 10), split.Labels.At(22, 10)
	require.NotZero(t, left)
	require.NotZero(t, right)
	require.NotEqual(t, left, right)
	for _, obj := range split.Objects {
		require.Greater(t, obj.Area, 100)
	}
}

func TestDetect_SplitKeepsFlatComponents(t *testing.T) {
	// A thin line has no distance peak of height 3 but must survive.
	r := canvas(t, 30, 20, [3]int{2, 2, 12})
	for x := 18; x < 28; x++ {
		r.Set(x, 15, 255)
	}

	opts := DefaultOptions()
	opts.SplitObjects = true
	opts.H = 3
	res, err := Detect(context.Background(), r, opts)
	require.NoError(t, err)
	require.Equal(t, 2, res.Count)
	require.NotZero(t, res.Labels.At(20, 15))
}

func TestDetect_Expansion(t *testing.T) {
	r := canvas(t, 11, 11, [3]int{5, 5, 1})

	opts := DefaultOptions()
	opts.Expansion = 2
	res, err := Detect(context.Background(), r, opts)
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)
	require.Equal(t, 9, res.Objects[0].Area)
	require.Equal(t, Bounds{4, 4, 7, 7}, res.Objects[0].Bounds)
}

func TestDetect_Smoothing(t *testing.T) {
	// A lone bright pixel is blurred below the threshold.
	r := canvas(t, 15, 15, [3]int{7, 7, 1}, [3]int{1, 1, 6})

	opts := DefaultOptions()
	opts.SmoothSigma = 1
	res, err := Detect(context.Background(), r, opts)
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)
	require.Zero(t, res.Labels.At(7, 7))
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
		want   error
	}{
		{"inverted threshold", func(o *Options) { o.Low, o.High = 10, 5 }, raster.ErrInvalidRange},
		{"negative area", func(o *Options) { o.MinArea = -1 }, raster.ErrNegativeParameter},
		{"inverted area", func(o *Options) { o.MinArea, o.MaxArea = 10, 5 }, raster.ErrInvalidRange},
		{"negative sigma", func(o *Options) { o.SmoothSigma = -1 }, raster.ErrNegativeParameter},
		{"negative h", func(o *Options) { o.H = -1 }, raster.ErrNegativeParameter},
		{"negative expansion", func(o *Options) { o.Expansion = -1 }, raster.ErrNegativeParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modify(&opts)
			_, err := Detect(context.Background(), canvas(t, 4, 4), opts)
			require.ErrorIs(t, err, tt.want)
		})
	}
	require.NoError(t, DefaultOptions().Validate())
}

func TestDetect_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Detect(ctx, canvas(t, 8, 8, [3]int{1, 1, 2}), DefaultOptions())
	require.ErrorIs(t, err, raster.ErrCanceled)
}

func TestTileGrid(t *testing.T) {
	grid := tileGrid(50, 30, TileOptions{Size: 16, Overlap: 4})
	require.Len(t, grid, 8)
	require.Equal(t, image.Rect(0, 0, 16, 16), grid[0].core)
	require.Equal(t, image.Rect(0, 0, 20, 20), grid[0].padded)
	require.Equal(t, image.Rect(48, 16, 50, 30), grid[7].core)
	require.Equal(t, image.Rect(44, 12, 50, 30), grid[7].padded)

	require.True(t, grid[0].owns(image.Rect(14, 2, 17, 5)), "centre 15.5 is in [0,16)")
	require.False(t, grid[1].owns(image.Rect(14, 2, 17, 5)))
	require.True(t, grid[1].owns(image.Rect(15, 2, 18, 5)), "centre 16.5 is in [16,32)")
}

func TestDetectTiles_MatchesDetect(t *testing.T) {
	r := canvas(t, 64, 48,
		[3]int{1, 1, 3},
		[3]int{14, 3, 3},  // straddles x = 16
		[3]int{30, 14, 3}, // straddles both tile edges
		[3]int{40, 40, 3},
		[3]int{60, 20, 3},
	)

	whole, err := Detect(context.Background(), r, DefaultOptions())
	require.NoError(t, err)

	for _, workers := range []int{1, 3, 8} {
		tiled, err := DetectTiles(context.Background(), r, DefaultOptions(),
			TileOptions{Size: 16, Overlap: 4, Workers: workers}, zaptest.NewLogger(t))
		require.NoError(t, err)
		require.Equal(t, whole.Count, tiled.Count, "workers %d", workers)
		require.Equal(t, sortedBounds(whole.Objects), sortedBounds(tiled.Objects))
		require.Equal(t, whole.Labels.Count(), tiled.Labels.Count())
		for i, obj := range tiled.Objects {
			require.Equal(t, uint32(i+1), obj.Label)
			require.Equal(t, obj.Label, tiled.Labels.At(obj.Bounds.X1, obj.Bounds.Y1))
		}
	}
}

func TestDetectTiles_Errors(t *testing.T) {
	r := canvas(t, 8, 8)
	_, err := DetectTiles(context.Background(), r, DefaultOptions(), TileOptions{Size: 0}, nil)
	require.Error(t, err)

	_, err = DetectTiles(context.Background(), r, DefaultOptions(), TileOptions{Size: 4, Overlap: -1}, nil)
	require.ErrorIs(t, err, raster.ErrNegativeParameter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = DetectTiles(ctx, r, DefaultOptions(), TileOptions{Size: 4, Workers: 2}, nil)
	require.ErrorIs(t, err, raster.ErrCanceled)
}
