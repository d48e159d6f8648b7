// Package segment turns scalar rasters into labeled regions.
//
// It provides the threshold mask generator, the connected-component labeler
// and size pruner, and the priority-ordered seeded watershed grower together
// with the Euclidean distance transform that drives distance-limited label
// expansion.
//
// # Pipeline
//
// A typical caller runs:
//
//  1. Threshold: raster -> binary mask (foreground = on value, usually 255)
//  2. PruneBySize: clear mask regions outside an area range
//  3. LabelComponents: mask -> labels 1..n in row-major discovery order
//  4. Grow or Expand: grow labels across unlabeled pixels, leaving watershed
//     lines between regions that compete for the same pixel
//
// # Determinism
//
// Every function is single-threaded and synchronous. Flood fills use explicit
// queues; the watershed grower breaks ties between equal values by insertion
// order, so results are bit-reproducible for identical inputs.
//
// # Cancellation
//
// Long-running operations take a context.Context and check it once per pass
// and periodically inside propagation loops. A canceled call returns an error
// wrapping raster.ErrCanceled and leaves caller-owned label images unchanged.
package segment
