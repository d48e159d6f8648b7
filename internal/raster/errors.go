package raster

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch indicates two inputs that must share a size do not.
	ErrDimensionMismatch = errors.New("raster: dimension mismatch")
	// ErrEmptyRaster indicates a raster or label image with no pixels.
	ErrEmptyRaster = errors.New("raster: width and height must be positive")
	// ErrNegativeParameter indicates a radius, height or distance below zero.
	ErrNegativeParameter = errors.New("raster: parameter must not be negative")
	// ErrInvalidRange indicates a lower bound above its upper bound.
	ErrInvalidRange = errors.New("raster: lower bound exceeds upper bound")
	// ErrMarkerExceedsMask indicates a reconstruction marker above its mask.
	ErrMarkerExceedsMask = errors.New("raster: marker exceeds mask")
	// ErrCanceled indicates the caller canceled the operation. Any partial
	// result has been discarded.
	ErrCanceled = errors.New("raster: operation canceled")
)

// CheckCanceled returns an error wrapping ErrCanceled and the context's cause
// once ctx is done, nil otherwise.
func CheckCanceled(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrCanceled, context.Cause(ctx))
	default:
		return nil
	}
}

// SameSize returns ErrDimensionMismatch, with both sizes, unless the two
// grids have equal dimensions.
func SameSize(w1, h1, w2, h2 int) error {
	if w1 != w2 || h1 != h2 {
		return fmt.Errorf("%w: %dx%d vs %dx%d", ErrDimensionMismatch, w1, h1, w2, h2)
	}
	return nil
}
