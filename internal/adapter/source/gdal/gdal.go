// Package gdal reads GeoTIFF, COG and any other GDAL-supported raster through godal.
package gdal

import (
	"fmt"
	"sync"

	"github.com/airbusgeo/godal"
	"go.uber.org/zap"

	"go.ngs.io/rasterwin/internal/adapter/pathutil"
	"go.ngs.io/rasterwin/internal/adapter/source"
	"go.ngs.io/rasterwin/internal/domain"
)

var registerOnce sync.Once

// Opener opens raster files with GDAL. Each Open returns an independent dataset handle.
type Opener struct {
	logger *zap.Logger
}

// NewOpener creates an Opener. GDAL warnings are logged to logger; a nil logger discards them.
func NewOpener(logger *zap.Logger) *Opener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Opener{logger: logger}
}

// Resolve expands "~" and makes the path absolute.
func (o *Opener) Resolve(id string) (string, error) {
	return pathutil.Expand(id)
}

// Open opens path read-only.
func (o *Opener) Open(path string) (source.Dataset, error) {
	registerOnce.Do(godal.RegisterAll)

	ds, err := godal.Open(path, godal.ErrLogger(o.errorHandler(path)))
	if err != nil {
		return nil, fmt.Errorf("gdal open: %w", err)
	}
	return &dataset{ds: ds, bands: ds.Bands()}, nil
}

// errorHandler logs GDAL warnings and lets only failures abort the call.
func (o *Opener) errorHandler(path string) godal.ErrorHandler {
	return func(ec godal.ErrorCategory, code int, msg string) error {
		if ec > godal.CE_Warning {
			return fmt.Errorf("gdal error %d: %s", code, msg)
		}
		o.logger.Warn("gdal warning",
			zap.String("path", path),
			zap.Int("code", code),
			zap.String("message", msg),
		)
		return nil
	}
}

type dataset struct {
	ds    *godal.Dataset
	bands []godal.Band
}

func (d *dataset) BandCount() int { return len(d.bands) }

func (d *dataset) Band(index int) (source.Band, error) {
	if index < 1 || index > len(d.bands) {
		return nil, &domain.BandNotFoundError{Band: index, Count: len(d.bands)}
	}
	return &band{b: d.bands[index-1]}, nil
}

func (d *dataset) Close() error {
	if d.ds == nil {
		return nil
	}
	err := d.ds.Close()
	d.ds = nil
	return err
}

// ReadBands reads the window of every listed band in one RasterIO call, band after band.
func (d *dataset) ReadBands(indices []int, w domain.Window, alg domain.Resampling) ([]float64, error) {
	ga, err := toGDAL(w, alg)
	if err != nil {
		return nil, err
	}

	st := d.ds.Structure()
	if err := checkExtent(st.SizeX, st.SizeY, w); err != nil {
		return nil, err
	}

	// godal numbers bands from 0.
	zeroBased := make([]int, len(indices))
	for i, idx := range indices {
		if idx < 1 || idx > len(d.bands) {
			return nil, &domain.BandNotFoundError{Band: idx, Count: len(d.bands)}
		}
		zeroBased[i] = idx - 1
	}

	buf := make([]float64, len(indices)*w.OutSize.Len())
	err = d.ds.Read(w.X, w.Y, buf, w.OutSize.Width, w.OutSize.Height,
		godal.Bands(zeroBased...),
		godal.Window(w.ReadSize.Width, w.ReadSize.Height),
		godal.BandInterleaved(),
		godal.Resampling(ga),
	)
	if err != nil {
		return nil, fmt.Errorf("gdal dataset read: %w", err)
	}
	return buf, nil
}

type band struct {
	b        godal.Band
	overview bool
}

func (b *band) Size() (int, int) {
	st := b.b.Structure()
	return st.SizeX, st.SizeY
}

func (b *band) OverviewCount() (int, error) {
	if b.overview {
		return 0, nil
	}
	return len(b.b.Overviews()), nil
}

func (b *band) Overview(level int) (source.Band, error) {
	ovrs := b.b.Overviews()
	if b.overview || level < 0 || level >= len(ovrs) {
		return nil, fmt.Errorf("overview %d not available", level)
	}
	return &band{b: ovrs[level], overview: true}, nil
}

func (b *band) Read(w domain.Window, alg domain.Resampling) ([]float64, error) {
	ga, err := toGDAL(w, alg)
	if err != nil {
		return nil, err
	}
	width, height := b.Size()
	if err := checkExtent(width, height, w); err != nil {
		return nil, err
	}

	buf := make([]float64, w.OutSize.Len())
	err = b.b.Read(w.X, w.Y, buf, w.OutSize.Width, w.OutSize.Height,
		godal.Window(w.ReadSize.Width, w.ReadSize.Height),
		godal.Resampling(ga),
	)
	if err != nil {
		return nil, fmt.Errorf("gdal band read: %w", err)
	}
	return buf, nil
}

// checkExtent rejects windows that RasterIO would refuse as out of range.
func checkExtent(width, height int, w domain.Window) error {
	if w.X < 0 || w.Y < 0 || w.X+w.ReadSize.Width > width || w.Y+w.ReadSize.Height > height {
		return fmt.Errorf("%w: window %s, raster is %dx%d", domain.ErrOutsideExtent, w, width, height)
	}
	return nil
}

// toGDAL maps alg onto the algorithms GDAL's RasterIO accepts.
func toGDAL(w domain.Window, alg domain.Resampling) (godal.ResamplingAlg, error) {
	if !w.Resampled() {
		return godal.Nearest, nil
	}
	switch alg {
	case domain.NoResampling:
		return godal.Nearest, domain.ErrMissingResampleAlgorithm
	case domain.Nearest:
		return godal.Nearest, nil
	case domain.Bilinear:
		return godal.Bilinear, nil
	case domain.Cubic:
		return godal.Cubic, nil
	case domain.CubicSpline:
		return godal.CubicSpline, nil
	case domain.Lanczos:
		return godal.Lanczos, nil
	case domain.Average:
		return godal.Average, nil
	case domain.Gauss:
		return godal.Gauss, nil
	case domain.Mode:
		return godal.Mode, nil
	}
	return godal.Nearest, fmt.Errorf("%w: gdal cannot resample with %s while reading", domain.ErrUnsupportedResampling, alg)
}
