// Package raster defines the value types shared by the segmentation engine.
//
// A Raster is a fully materialized 2-D grid of scalar samples and a LabelImage
// is a grid of non-negative region identifiers of the same dimensions, where 0
// means background. Both are row-major: the sample for (x, y) lives at index
// y*Width + x.
//
// # Numeric Storage
//
// Raster samples are held as float64 regardless of the source format. The
// Depth tag records what the samples originally were (8-bit, 16-bit or
// floating point) and is chosen once when the raster is built.
//
// LabelImage storage is one of two closed variants, 16-bit or 32-bit. Storage
// starts narrow and is promoted to 32 bits the first time a label above 65535
// is written, so labelers never overflow silently.
//
// # Connectivity
//
// Connectivity selects which neighbours count as adjacent for flood filling,
// propagation and contour tracing. Four uses N, E, S, W; Eight adds the
// diagonals. Every operation uses a single connectivity for its whole run.
//
// # Errors
//
// The package exports the sentinel errors used throughout the engine. Callers
// match them with errors.Is; operations wrap them with context.
package raster
