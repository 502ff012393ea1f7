// Package render turns sample stacks into preview images.
package render

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"go.ngs.io/rasterwin/internal/domain"
)

// ramp is the color scale for single-band previews, low to high.
var ramp = []string{"#440154", "#3b528b", "#21918c", "#5ec962", "#fde725"}

// Preview renders a stack as an image no larger than maxSize on either side.
// One or two bands are colored with a ramp from the first band; three or more are shown
// as RGB from bands 1-3. Each band is stretched to its own finite min/max and non-finite
// samples are transparent. maxSize <= 0 keeps the stack's size.
func Preview(a domain.Array3D, maxSize int) (image.Image, error) {
	if a.Bands < 1 || a.Rows < 1 || a.Cols < 1 {
		return nil, fmt.Errorf("cannot render a stack of shape (%d,%d,%d)", a.Bands, a.Rows, a.Cols)
	}

	var img *image.NRGBA
	if a.Bands < 3 {
		img = single(a.Band(0))
	} else {
		img = rgb(a.Band(0), a.Band(1), a.Band(2))
	}

	if maxSize > 0 && (a.Cols > maxSize || a.Rows > maxSize) {
		return imaging.Fit(img, maxSize, maxSize, imaging.Lanczos), nil
	}
	return img, nil
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		return fmt.Errorf("failed to encode preview: %w", err)
	}
	return nil
}

func single(band domain.Array2D) *image.NRGBA {
	stops := make([]colorful.Color, len(ramp))
	for i, hex := range ramp {
		stops[i], _ = colorful.Hex(hex)
	}
	lo, hi := finiteRange(band.Data)

	img := image.NewNRGBA(image.Rect(0, 0, band.Cols, band.Rows))
	for r := 0; r < band.Rows; r++ {
		for c := 0; c < band.Cols; c++ {
			v := band.At(r, c)
			if !finite(v) {
				continue
			}
			img.Set(c, r, rampColor(stops, stretch(v, lo, hi)))
		}
	}
	return img
}

func rgb(red, green, blue domain.Array2D) *image.NRGBA {
	bands := [3]domain.Array2D{red, green, blue}
	var lo, hi [3]float64
	for i, b := range bands {
		lo[i], hi[i] = finiteRange(b.Data)
	}

	img := image.NewNRGBA(image.Rect(0, 0, red.Cols, red.Rows))
	for r := 0; r < red.Rows; r++ {
		for c := 0; c < red.Cols; c++ {
			var px [3]uint8
			ok := true
			for i, b := range bands {
				v := b.At(r, c)
				if !finite(v) {
					ok = false
					break
				}
				px[i] = uint8(math.Round(stretch(v, lo[i], hi[i]) * 255))
			}
			if ok {
				img.SetNRGBA(c, r, color.NRGBA{R: px[0], G: px[1], B: px[2], A: 255})
			}
		}
	}
	return img
}

// rampColor blends between neighbouring stops in Lab space; t is in [0, 1].
func rampColor(stops []colorful.Color, t float64) color.Color {
	pos := t * float64(len(stops)-1)
	i := int(math.Floor(pos))
	if i >= len(stops)-1 {
		return stops[len(stops)-1].Clamped()
	}
	return stops[i].BlendLab(stops[i+1], pos-float64(i)).Clamped()
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// finiteRange returns the min and max of the finite values, or (0, 0) if there are none.
func finiteRange(values []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if !finite(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo > hi {
		return 0, 0
	}
	return lo, hi
}

// stretch maps v from [lo, hi] onto [0, 1]. A flat band maps to 0.
func stretch(v, lo, hi float64) float64 {
	if hi <= lo {
		return 0
	}
	return math.Max(0, math.Min(1, (v-lo)/(hi-lo)))
}
