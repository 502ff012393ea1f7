// Package source defines the narrow raster capability the read core depends on.
package source

import "go.ngs.io/rasterwin/internal/domain"

// Opener opens a raster from an identifier (usually a file path).
// Every call must return an independent handle that is safe to use from a single goroutine.
type Opener interface {
	Open(id string) (Dataset, error)
}

// Resolver is implemented by openers whose identifiers need normalising (for example
// expanding "~" in file paths) before they are handed to concurrent workers.
type Resolver interface {
	Resolve(id string) (string, error)
}

// Dataset is an open raster. It is not safe for concurrent use.
type Dataset interface {
	// BandCount returns the number of bands.
	BandCount() int

	// Band returns the band at a 1-based index.
	Band(index int) (Band, error)

	// Close releases the handle. Bands obtained from it become invalid.
	Close() error
}

// Band is a view of one band, or of one overview of a band.
type Band interface {
	// Size returns (width, height) in pixels.
	Size() (int, int)

	// OverviewCount returns the number of reduced-resolution levels.
	OverviewCount() (int, error)

	// Overview returns the band for a pyramid level, as numbered by the source.
	Overview(level int) (Band, error)

	// Read returns w.OutSize.Width*w.OutSize.Height samples in row-major order,
	// converted to float64.
	Read(w domain.Window, alg domain.Resampling) ([]float64, error)
}

// MultiBandReader is implemented by datasets that can read several bands in one call.
// The result holds the bands one after another in the order of indices.
type MultiBandReader interface {
	ReadBands(indices []int, w domain.Window, alg domain.Resampling) ([]float64, error)
}
