package usecase

import (
	"fmt"

	"go.ngs.io/rasterwin/internal/adapter/source"
	"go.ngs.io/rasterwin/internal/domain"
)

// ReadBandWindow reads w from band and reshapes the samples into
// (w.OutSize.Height, w.OutSize.Width). Values are passed through untouched.
//
// alg is required when the read and output sizes differ and ignored when they match.
func ReadBandWindow(band source.Band, w domain.Window, alg domain.Resampling) (domain.Array2D, error) {
	if err := w.Validate(); err != nil {
		return domain.Array2D{}, err
	}
	alg, err := effectiveResampling(w, alg)
	if err != nil {
		return domain.Array2D{}, err
	}

	buf, err := band.Read(w, alg)
	if err != nil {
		return domain.Array2D{}, fmt.Errorf("%w: window %s: %w", domain.ErrRead, w, err)
	}

	return domain.NewArray2D(w.OutSize.Height, w.OutSize.Width, buf)
}

// ReadFullBand reads the whole band at its native size.
func ReadFullBand(band source.Band) (domain.Array2D, error) {
	width, height := band.Size()
	return ReadBandWindow(band, domain.FullWindow(width, height), domain.NoResampling)
}

// effectiveResampling returns the algorithm handed to the source for w.
func effectiveResampling(w domain.Window, alg domain.Resampling) (domain.Resampling, error) {
	if !w.Resampled() {
		return domain.Nearest, nil
	}
	if alg == domain.NoResampling {
		return domain.NoResampling, fmt.Errorf("%w: window %s", domain.ErrMissingResampleAlgorithm, w)
	}
	return alg, nil
}
