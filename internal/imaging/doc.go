// Package imaging supplies pixel rasters to the segmentation engine and
// renders its results.
//
// It loads image files (PNG, JPEG, GIF) through a concurrent-safe cache,
// converts them to single-channel rasters, cuts and resamples windows, smooths
// rasters before seed detection, and draws label overlays for inspection.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner, X
// increasing rightward and Y increasing downward. For regions, (x1,y1) is
// inclusive and (x2,y2) is exclusive. Rasters produced from a window have
// their own origin at the window's top-left pixel.
//
// # Sample Values
//
// Grayscale files keep their exact samples (8 or 16 bit), so thresholds can be
// given in the file's own units. Colour files are reduced to 8-bit luminance.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. The other functions are stateless
// and never modify their inputs.
package imaging
