package memory

import (
	"fmt"

	"go.ngs.io/rasterwin/internal/adapter/interp"
	"go.ngs.io/rasterwin/internal/domain"
)

// Synthetic builds a raster of the given shape whose samples are
//
//	band*1e6 + row*1e3 + col
//
// (band 1-based), with levels overviews each halving the previous one by averaging.
// Values are unique per pixel, which makes placement errors visible in tests and previews.
func Synthetic(bands, width, height, levels int) (*Raster, error) {
	if bands < 0 || width < 1 || height < 1 || levels < 0 {
		return nil, fmt.Errorf("invalid synthetic raster %d bands of %dx%d with %d overviews", bands, width, height, levels)
	}

	r := &Raster{Bands: make([]*BandData, bands)}
	for b := range r.Bands {
		values := make([]float64, width*height)
		for row := 0; row < height; row++ {
			for col := 0; col < width; col++ {
				values[row*width+col] = float64(b+1)*1e6 + float64(row)*1e3 + float64(col)
			}
		}

		data := &BandData{Plane: Plane{Width: width, Height: height, Values: values}}
		prev := data.Plane
		for l := 0; l < levels; l++ {
			w, h := max(prev.Width/2, 1), max(prev.Height/2, 1)
			if w == prev.Width && h == prev.Height {
				break
			}
			v, err := interp.Resample(prev.Values, prev.Width, prev.Height, w, h, domain.Average)
			if err != nil {
				return nil, fmt.Errorf("building overview %d: %w", l, err)
			}
			prev = Plane{Width: w, Height: h, Values: v}
			data.Overviews = append(data.Overviews, prev)
		}
		r.Bands[b] = data
	}
	return r, nil
}
