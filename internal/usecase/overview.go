package usecase

import (
	"fmt"

	"go.ngs.io/rasterwin/internal/adapter/source"
	"go.ngs.io/rasterwin/internal/domain"
)

// ResolveOverview returns the reduced-resolution view of band at level.
// Levels are the source's own numbering; no resolution arithmetic is done here.
func ResolveOverview(band source.Band, level int) (source.Band, error) {
	n, err := band.OverviewCount()
	if err != nil {
		return nil, fmt.Errorf("failed to count overviews: %w", err)
	}
	if level < 0 || level >= n {
		return nil, &domain.OverviewOutOfRangeError{Requested: level, Available: n}
	}

	ovr, err := band.Overview(level)
	if err != nil {
		return nil, fmt.Errorf("failed to open overview %d: %w", level, err)
	}
	return ovr, nil
}
