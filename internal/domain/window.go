package domain

import "fmt"

// Size is a (width, height) extent in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Positive reports whether both dimensions are greater than zero.
func (s Size) Positive() bool {
	return s.Width > 0 && s.Height > 0
}

// MaxSamples bounds the samples of one band read, at both the read and the output size.
// 1<<28 float64 samples is 2 GiB.
const MaxSamples = 1 << 28

// Len returns the number of samples covered by the size.
// Only sizes accepted by Window.Validate are guaranteed not to overflow.
func (s Size) Len() int {
	return s.Width * s.Height
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Window describes a rectangular region of a band and the shape it should be read into.
//
// X and Y are the top-left origin in source pixel space. They may be negative; whether such a
// window is readable is decided by the source, not here.
type Window struct {
	X, Y     int
	ReadSize Size // Extent in source pixels.
	OutSize  Size // Shape of the returned array (columns x rows).
}

// NewWindow returns a window whose output size equals its read size.
func NewWindow(x, y, width, height int) Window {
	size := Size{Width: width, Height: height}
	return Window{X: x, Y: y, ReadSize: size, OutSize: size}
}

// FullWindow covers a whole band of the given size at native resolution.
func FullWindow(width, height int) Window {
	return NewWindow(0, 0, width, height)
}

// WithOutSize returns a copy of w that is read into an array of width x height.
func (w Window) WithOutSize(width, height int) Window {
	w.OutSize = Size{Width: width, Height: height}
	return w
}

// Resampled reports whether the read and output sizes differ.
func (w Window) Resampled() bool {
	return w.ReadSize != w.OutSize
}

// Validate reports ErrInvalidWindow unless both sizes are positive and cover at most
// MaxSamples samples.
func (w Window) Validate() error {
	if err := validateSize("read", w.ReadSize); err != nil {
		return err
	}
	return validateSize("output", w.OutSize)
}

func validateSize(name string, s Size) error {
	if !s.Positive() {
		return fmt.Errorf("%w: %s size %s must be positive", ErrInvalidWindow, name, s)
	}
	// Divide rather than multiply so huge dimensions cannot wrap.
	if s.Width > MaxSamples/s.Height {
		return fmt.Errorf("%w: %s size %s exceeds %d samples", ErrInvalidWindow, name, s, MaxSamples)
	}
	return nil
}

func (w Window) String() string {
	return fmt.Sprintf("(%d,%d) %s -> %s", w.X, w.Y, w.ReadSize, w.OutSize)
}
