package detection

import (
	"context"
	"fmt"
	"math"

	"github.com/ironsheep/label-segment-mcp/internal/imaging"
	"github.com/ironsheep/label-segment-mcp/internal/morph"
	"github.com/ironsheep/label-segment-mcp/internal/raster"
	"github.com/ironsheep/label-segment-mcp/internal/segment"
	"github.com/ironsheep/label-segment-mcp/internal/vector"
)

// Bounds represents a rectangular bounding box in pixel coordinates.
// (X1, Y1) is inclusive and (X2, Y2) exclusive.
type Bounds struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Options configures the detection pipeline.
type Options struct {
	// Low and High are the inclusive foreground intensity range.
	Low  float64
	High float64

	// Connectivity is used for labeling, growth and tracing.
	Connectivity raster.Connectivity

	// MinArea and MaxArea bound object size in pixels after labeling. A
	// MaxArea of 0 means unbounded.
	MinArea int
	MaxArea int

	// SmoothSigma blurs the raster before thresholding; 0 disables it.
	SmoothSigma float64

	// SplitObjects separates touching objects with a seeded watershed on the
	// distance map. H is the minimum dynamic of a distance peak that makes a
	// seed, in pixels.
	SplitObjects bool
	H            float64

	// Expansion grows every object outward by up to this many pixels without
	// merging neighbours; 0 disables it.
	Expansion float64
}

// DefaultOptions returns options for bright objects on a dark 8-bit
// background.
func DefaultOptions() Options {
	return Options{
		Low:          128,
		High:         math.Inf(1),
		Connectivity: raster.Eight,
		H:            1,
	}
}

// Validate reports the first invalid option.
func (o Options) Validate() error {
	switch {
	case o.Low > o.High:
		return fmt.Errorf("%w: threshold [%g, %g]", raster.ErrInvalidRange, o.Low, o.High)
	case o.MinArea < 0 || o.MaxArea < 0:
		return fmt.Errorf("%w: area range [%d, %d]", raster.ErrNegativeParameter, o.MinArea, o.MaxArea)
	case o.MaxArea > 0 && o.MinArea > o.MaxArea:
		return fmt.Errorf("%w: area range [%d, %d]", raster.ErrInvalidRange, o.MinArea, o.MaxArea)
	case o.SmoothSigma < 0:
		return fmt.Errorf("%w: smooth sigma %g", raster.ErrNegativeParameter, o.SmoothSigma)
	case o.H < 0:
		return fmt.Errorf("%w: h %g", raster.ErrNegativeParameter, o.H)
	case o.Expansion < 0:
		return fmt.Errorf("%w: expansion %g", raster.ErrNegativeParameter, o.Expansion)
	}
	return nil
}

// Object is one detected region.
type Object struct {
	// Label is the object's value in Result.Labels.
	Label uint32 `json:"label"`

	// Area is the pixel count.
	Area int `json:"area"`

	// Bounds is the bounding box of the outer boundary.
	Bounds Bounds `json:"bounds"`

	// Boundary is the filled outline of the object.
	Boundary *vector.Boundary `json:"boundary"`
}

// Result contains all objects detected in a raster.
type Result struct {
	// Labels holds the object labels 1..Count; 0 is background and watershed
	// lines between split objects.
	Labels *raster.LabelImage `json:"-"`

	// Objects is sorted by label.
	Objects []Object `json:"objects"`

	// Count is the number of objects.
	Count int `json:"count"`
}

// Detect finds objects in r.
//
// # Algorithm
//
//  1. Smooth r when SmoothSigma > 0
//  2. Threshold to the [Low, High] foreground mask
//  3. Label connected components and drop those outside [MinArea, MaxArea]
//  4. With SplitObjects: compute the distance of every foreground pixel to
//     the background, take the extended maxima of height H as seeds and grow
//     them back over the foreground in order of decreasing distance. Touching
//     objects are separated by a one-pixel watershed line
//  5. Expand every object by up to Expansion pixels
//  6. Trace one filled boundary per object
//
// Labels are dense (1..Count) and follow row-major discovery order of the
// seeds, so the same raster and options always give the same result.
func Detect(ctx context.Context, r *raster.Raster, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	conn := opts.Connectivity

	src := r
	if opts.SmoothSigma > 0 {
		var err error
		if src, err = imaging.Smooth(r, opts.SmoothSigma); err != nil {
			return nil, err
		}
	}

	mask := segment.Threshold(src, opts.Low, opts.High, segment.DefaultOn)
	if opts.MinArea > 0 || opts.MaxArea > 0 {
		maxArea := opts.MaxArea
		if maxArea == 0 {
			maxArea = math.MaxInt
		}
		if _, err := segment.PruneBySize(ctx, mask, opts.MinArea, maxArea, conn); err != nil {
			return nil, fmt.Errorf("failed to prune components: %w", err)
		}
	}

	labels, _, err := segment.LabelComponents(ctx, mask, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to label components: %w", err)
	}

	if opts.SplitObjects && labels.MaxLabel() > 0 {
		if labels, err = split(ctx, labels, opts.H, conn); err != nil {
			return nil, fmt.Errorf("failed to split objects: %w", err)
		}
	}

	if opts.Expansion > 0 {
		if err := segment.Expand(ctx, labels, opts.Expansion, conn); err != nil {
			return nil, fmt.Errorf("failed to expand objects: %w", err)
		}
	}

	return collect(ctx, labels, conn)
}

// split replaces each foreground component by the watershed regions of its
// distance-map peaks. Components with no peak of dynamic h are kept whole.
func split(ctx context.Context, labels *raster.LabelImage, h float64, conn raster.Connectivity) (*raster.LabelImage, error) {
	dist := segment.InsideDistance(labels)
	peaks, err := morph.ExtendedMaxima(ctx, dist, h, conn)
	if err != nil {
		return nil, err
	}
	for i := 0; i < peaks.Len(); i++ {
		if labels.AtIndex(i) == 0 {
			peaks.SetIndex(i, 0)
		}
	}
	seeds, n, err := segment.LabelComponents(ctx, peaks, conn)
	if err != nil {
		return nil, err
	}

	// A component whose peaks were all flattened by h becomes one seed.
	seeded := make([]bool, labels.MaxLabel()+1)
	for i := 0; i < seeds.Len(); i++ {
		if seeds.AtIndex(i) != 0 {
			seeded[labels.AtIndex(i)] = true
		}
	}
	whole := make(map[uint32]uint32)
	next := uint32(n)
	for i := 0; i < labels.Len(); i++ {
		l := labels.AtIndex(i)
		if l == 0 || seeded[l] {
			continue
		}
		id, ok := whole[l]
		if !ok {
			next++
			id = next
			whole[l] = id
		}
		seeds.SetIndex(i, id)
	}

	if err := segment.Grow(ctx, dist, seeds, 0, conn); err != nil {
		return nil, err
	}
	return seeds, nil
}

// collect traces labels and builds the result.
func collect(ctx context.Context, labels *raster.LabelImage, conn raster.Connectivity) (*Result, error) {
	boundaries, err := vector.TraceLabels(ctx, labels, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to trace objects: %w", err)
	}
	areas := segment.ComponentAreas(labels)

	res := &Result{Labels: labels, Objects: make([]Object, 0, len(boundaries))}
	for _, b := range boundaries {
		if b == nil {
			continue
		}
		rect := b.Bounds()
		res.Objects = append(res.Objects, Object{
			Label:    b.Label,
			Area:     areas[b.Label],
			Bounds:   Bounds{X1: rect.Min.X, Y1: rect.Min.Y, X2: rect.Max.X, Y2: rect.Max.Y},
			Boundary: b,
		})
	}
	res.Count = len(res.Objects)
	return res, nil
}
