package domain

import (
	"fmt"
	"strings"
)

// Resampling selects the interpolation or aggregation applied when a window's read size
// differs from its output size.
type Resampling int

const (
	// NoResampling means no algorithm was chosen.
	NoResampling Resampling = iota
	// Nearest picks the closest source pixel.
	Nearest
	// Bilinear interpolates the four surrounding pixel centers.
	Bilinear
	// Cubic convolution.
	Cubic
	// CubicSpline resampling.
	CubicSpline
	// Lanczos windowed sinc.
	Lanczos
	// Average is the area-weighted mean of the source footprint.
	Average
	// Mode is the most frequent value in the footprint.
	Mode
	// Min of the footprint.
	Min
	// Max of the footprint.
	Max
	// Median of the footprint.
	Median
	// Gauss weighted average.
	Gauss
)

// DefaultResampling is used by stack requests that do not pick an algorithm.
const DefaultResampling = Average

var resamplingNames = map[Resampling]string{
	NoResampling: "none",
	Nearest:      "nearest",
	Bilinear:     "bilinear",
	Cubic:        "cubic",
	CubicSpline:  "cubicspline",
	Lanczos:      "lanczos",
	Average:      "average",
	Mode:         "mode",
	Min:          "min",
	Max:          "max",
	Median:       "med",
	Gauss:        "gauss",
}

func (r Resampling) String() string {
	if name, ok := resamplingNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Resampling(%d)", int(r))
}

// ParseResampling parses a GDAL-style algorithm name. The empty string parses as NoResampling.
func ParseResampling(s string) (Resampling, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "":
		return NoResampling, nil
	case "median":
		return Median, nil
	case "near":
		return Nearest, nil
	}
	for alg, n := range resamplingNames {
		if n == name {
			return alg, nil
		}
	}
	return NoResampling, fmt.Errorf("%w: %q", ErrUnsupportedResampling, s)
}
