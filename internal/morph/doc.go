// Package morph implements grayscale morphological reconstruction and the
// extrema transforms built on it.
//
// Reconstruction by dilation grows a marker raster under a mask raster until
// no pixel can rise any further. It is the basis for:
//
//   - RegionalMaxima and RegionalMinima, which find the flat connected sets
//     that no neighbour exceeds (or undercuts)
//   - HMaxima and HMinima, which suppress peaks and troughs shallower than h
//   - ExtendedMaxima and ExtendedMinima, the regional extrema of the
//     h-transforms, used as watershed seeds
//
// All functions are single-threaded and take a context that is checked once
// per scan and periodically while the propagation queue drains.
package morph
