// Package server implements the MCP (Model Context Protocol) server for label
// image segmentation.
//
// This package provides a JSON-RPC 2.0 server that exposes the segmentation
// engine through the MCP protocol, so MCP clients can threshold, label,
// flood, vectorize and detect objects in images without writing code.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//
// Masks and Labels:
//   - segment_threshold: Foreground mask from an intensity range
//   - segment_label_components: Connected components with area filtering
//   - segment_regional_extrema: Regional or extended maxima/minima
//
// Region Growing:
//   - segment_watershed: Seeded watershed from points or h-maxima
//   - segment_expand_labels: Grow labels by a distance without merging
//
// Vectorization:
//   - segment_vectorize: Polygon outlines with optional holes
//
// Object Detection:
//   - segment_detect_objects: Full detection pipeline
//   - segment_detect_tiled: Detection over parallel tiles
//   - segment_overlay: Detection rendered as a PNG overlay
//
// Every segment_* tool works on a window of the image: x1, y1, x2, y2 or a
// named region, optionally resampled by scale. Results are in window
// coordinates and report the window they refer to.
//
// # Image Caching
//
// Decoded images and their full-size rasters are cached by path for the
// lifetime of the server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.New(cfg, logger)
//	if err := srv.Run(ctx); err != nil {
//	    logger.Fatal("server error", zap.Error(err))
//	}
package server
