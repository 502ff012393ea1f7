package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for each failure kind. The typed errors below match them with errors.Is.
var (
	ErrOpen                     = errors.New("raster open failed")
	ErrBandNotFound             = errors.New("band not found")
	ErrOverviewOutOfRange       = errors.New("overview level out of range")
	ErrRead                     = errors.New("raster read failed")
	ErrShapeMismatch            = errors.New("buffer shape mismatch")
	ErrStackShapeMismatch       = errors.New("band shapes differ")
	ErrMissingResampleAlgorithm = errors.New("resampling algorithm required when read and output sizes differ")
	ErrInvalidWindow            = errors.New("invalid window")
	ErrOutsideExtent            = errors.New("window outside band extent")
	ErrUnsupportedResampling    = errors.New("unsupported resampling algorithm")
)

// Error codes returned by ErrorCode.
const (
	CodeOpen               = "OPEN_FAILED"
	CodeBandNotFound       = "BAND_NOT_FOUND"
	CodeOverviewOutOfRange = "OVERVIEW_OUT_OF_RANGE"
	CodeRead               = "READ_FAILED"
	CodeShapeMismatch      = "SHAPE_MISMATCH"
	CodeStackShapeMismatch = "STACK_SHAPE_MISMATCH"
	CodeMissingResample    = "MISSING_RESAMPLE_ALGORITHM"
	CodeInvalidWindow      = "INVALID_WINDOW"
	CodeOutsideExtent      = "OUTSIDE_EXTENT"
	CodeUnsupportedResamp  = "UNSUPPORTED_RESAMPLING"
	CodeInternal           = "INTERNAL"
)

// OpenError reports a source that could not be opened.
type OpenError struct {
	ID  string
	Err error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("failed to open raster %q: %v", e.ID, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

func (e *OpenError) Is(target error) bool { return target == ErrOpen }

// BandNotFoundError reports a 1-based band index outside [1, Count].
type BandNotFoundError struct {
	Band  int
	Count int
}

func (e *BandNotFoundError) Error() string {
	return fmt.Sprintf("band %d not found (raster has %d bands)", e.Band, e.Count)
}

func (e *BandNotFoundError) Is(target error) bool { return target == ErrBandNotFound }

// OverviewOutOfRangeError reports a pyramid level the band does not have.
type OverviewOutOfRangeError struct {
	Requested int
	Available int
}

func (e *OverviewOutOfRangeError) Error() string {
	return fmt.Sprintf("requested overview index %d but band only has %d overviews", e.Requested, e.Available)
}

func (e *OverviewOutOfRangeError) Is(target error) bool { return target == ErrOverviewOutOfRange }

// ReadError wraps a failure from the source's read call. Level is -1 for the base band.
type ReadError struct {
	Band  int
	Level int
	Err   error
}

func (e *ReadError) Error() string {
	if e.Level >= 0 {
		return fmt.Sprintf("failed to read band %d overview %d: %v", e.Band, e.Level, e.Err)
	}
	return fmt.Sprintf("failed to read band %d: %v", e.Band, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

func (e *ReadError) Is(target error) bool { return target == ErrRead }

// ShapeMismatchError reports a buffer whose element count differs from the requested shape.
type ShapeMismatchError struct {
	Expected int
	Actual   int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("buffer has %d elements, expected %d", e.Actual, e.Expected)
}

func (e *ShapeMismatchError) Is(target error) bool { return target == ErrShapeMismatch }

// StackShapeMismatchError reports a band whose (rows, cols) differ from the first band.
type StackShapeMismatchError struct {
	Band     int
	Expected [2]int
	Actual   [2]int
}

func (e *StackShapeMismatchError) Error() string {
	return fmt.Sprintf("band %d has shape %v, expected %v", e.Band, e.Actual, e.Expected)
}

func (e *StackShapeMismatchError) Is(target error) bool { return target == ErrStackShapeMismatch }

// ErrorCode maps an error to a stable code for API responses.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBandNotFound):
		return CodeBandNotFound
	case errors.Is(err, ErrOverviewOutOfRange):
		return CodeOverviewOutOfRange
	case errors.Is(err, ErrMissingResampleAlgorithm):
		return CodeMissingResample
	case errors.Is(err, ErrInvalidWindow):
		return CodeInvalidWindow
	case errors.Is(err, ErrOutsideExtent):
		return CodeOutsideExtent
	case errors.Is(err, ErrUnsupportedResampling):
		return CodeUnsupportedResamp
	case errors.Is(err, ErrStackShapeMismatch):
		return CodeStackShapeMismatch
	case errors.Is(err, ErrShapeMismatch):
		return CodeShapeMismatch
	case errors.Is(err, ErrOpen):
		return CodeOpen
	case errors.Is(err, ErrRead):
		return CodeRead
	default:
		return CodeInternal
	}
}

// IsRequestError reports whether err was caused by the caller's selectors rather than the source.
func IsRequestError(err error) bool {
	switch ErrorCode(err) {
	case CodeBandNotFound, CodeOverviewOutOfRange, CodeMissingResample, CodeInvalidWindow, CodeOutsideExtent,
		CodeUnsupportedResamp:
		return true
	}
	return false
}
