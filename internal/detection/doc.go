// Package detection finds objects in a raster by driving the segmentation
// engine end to end.
//
// Detect runs the whole pipeline on one raster: threshold, label, prune by
// size, optionally split touching objects with a distance-map watershed,
// optionally expand, and trace one boundary per object. DetectTiles runs
// Detect over overlapping tiles of a large raster with a bounded worker pool
// and merges the objects back into image coordinates.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Bounding boxes use inclusive top-left and exclusive bottom-right
//
// Boundary vertices are pixel corners, so a one-pixel object at (x, y) has
// bounds (x, y)-(x+1, y+1).
//
// # Concurrency
//
// Detect is single-threaded. DetectTiles is the only place that spawns
// goroutines; tiles share no mutable state and their results are merged in
// tile order, so the output is the same for any worker count.
package detection
