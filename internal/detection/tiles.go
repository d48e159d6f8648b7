package detection

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/label-segment-mcp/internal/raster"
)

// TileOptions configures DetectTiles.
type TileOptions struct {
	// Size is the edge length of a tile's core in pixels.
	Size int `json:"size"`
	// Overlap is the margin added around each core so objects crossing a
	// core edge are seen whole by at least one tile.
	Overlap int `json:"overlap"`
	// Workers bounds the number of tiles processed at once; 0 means one.
	Workers int `json:"workers"`
}

// Validate reports invalid tile options.
func (t TileOptions) Validate() error {
	if t.Size <= 0 {
		return fmt.Errorf("tile size must be positive, got %d", t.Size)
	}
	if t.Overlap < 0 || t.Workers < 0 {
		return fmt.Errorf("%w: overlap %d, workers %d", raster.ErrNegativeParameter, t.Overlap, t.Workers)
	}
	return nil
}

// tile is one unit of work: the core it owns and the padded window it reads.
type tile struct {
	core   image.Rectangle
	padded image.Rectangle
}

// tileGrid splits a w×h image into row-major tiles.
func tileGrid(w, h int, opts TileOptions) []tile {
	full := image.Rect(0, 0, w, h)
	var tiles []tile
	for y := 0; y < h; y += opts.Size {
		for x := 0; x < w; x += opts.Size {
			core := image.Rect(x, y, x+opts.Size, y+opts.Size).Intersect(full)
			padded := core.Inset(-opts.Overlap).Intersect(full)
			tiles = append(tiles, tile{core: core, padded: padded})
		}
	}
	return tiles
}

// owns reports whether the centre of b lies in the tile's core. Centres
// are compared at twice the resolution to stay in integers.
func (t tile) owns(b image.Rectangle) bool {
	cx, cy := b.Min.X+b.Max.X, b.Min.Y+b.Max.Y
	return cx >= 2*t.core.Min.X && cx < 2*t.core.Max.X &&
		cy >= 2*t.core.Min.Y && cy < 2*t.core.Max.Y
}

// DetectTiles runs Detect over overlapping tiles of r concurrently and merges
// the results into image coordinates.
//
// Each tile reads its core plus Overlap pixels on every side and keeps only
// the objects whose bounding-box centre lies in its core, so an object no
// larger than the overlap is reported exactly once. Tiles share no mutable
// state; each writes only its own result slot. Objects are merged in tile
// order and relabeled 1..Count, so the output does not depend on scheduling.
//
// The first tile error cancels the remaining tiles and is returned.
func DetectTiles(ctx context.Context, r *raster.Raster, opts Options, tiles TileOptions, log *zap.Logger) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := tiles.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	grid := tileGrid(r.Width, r.Height, tiles)
	results := make([][]Object, len(grid))
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, tiles.Workers))
	for i, t := range grid {
		g.Go(func() error {
			sub, err := r.Crop(t.padded.Min.X, t.padded.Min.Y, t.padded.Max.X, t.padded.Max.Y)
			if err != nil {
				return err
			}
			res, err := Detect(gctx, sub, opts)
			if err != nil {
				return fmt.Errorf("tile %d %v: %w", i, t.core, err)
			}

			kept := make([]Object, 0, len(res.Objects))
			for _, obj := range res.Objects {
				obj.Boundary.Translate(t.padded.Min.X, t.padded.Min.Y)
				rect := obj.Boundary.Bounds()
				if !t.owns(rect) {
					continue
				}
				obj.Bounds = Bounds{X1: rect.Min.X, Y1: rect.Min.Y, X2: rect.Max.X, Y2: rect.Max.Y}
				kept = append(kept, obj)
			}
			results[i] = kept

			log.Debug("tile detected",
				zap.Int("tile", i),
				zap.Stringer("core", t.core),
				zap.String("pixels", humanize.Comma(int64(sub.Len()))),
				zap.Int("objects", len(res.Objects)),
				zap.Int("kept", len(kept)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged, err := merge(r.Width, r.Height, results)
	if err != nil {
		return nil, err
	}
	log.Info("tiled detection complete",
		zap.Int("tiles", len(grid)),
		zap.Int("objects", merged.Count),
		zap.String("pixels", humanize.Comma(int64(r.Len()))),
		zap.Duration("elapsed", time.Since(start)))
	return merged, nil
}

// merge relabels per-tile objects in tile order and paints them into one
// label image.
func merge(w, h int, results [][]Object) (*Result, error) {
	labels, err := raster.NewLabelImage(w, h)
	if err != nil {
		return nil, err
	}
	res := &Result{Labels: labels}
	var next uint32
	for _, objs := range results {
		for _, obj := range objs {
			next++
			obj.Label = next
			obj.Boundary.Label = next
			obj.Boundary.Fill(labels, next)
			res.Objects = append(res.Objects, obj)
		}
	}
	res.Count = len(res.Objects)
	return res, nil
}
