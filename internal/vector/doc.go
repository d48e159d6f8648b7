// Package vector converts label images into polygon boundaries.
//
// Boundaries are traced along pixel edges ("cracks"), so every vertex lies on
// a pixel corner and a ring encloses exactly the pixels of its region. With y
// pointing down, outer rings run clockwise (the region is on the right of the
// direction of travel) and hole rings run counter-clockwise. A vertex is
// recorded only where the direction of travel changes, so an axis-aligned
// rectangle always has four vertices.
//
// Where two pixels of a region touch only at a corner, the tracer follows the
// connectivity it was given: Eight passes through the corner, Four treats the
// pixels as separate regions. Holes are traced with the dual connectivity so
// regions and holes never cross.
//
// Three entry points cover the common cases:
//
//   - TraceLabels: one filled boundary per label value, indexed label-1
//   - TraceRegions: one boundary per connected region, with holes when the
//     region encloses other pixels
//   - TraceThreshold: every connected region of a raster's value range, with
//     holes
package vector
