package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"go.ngs.io/rasterwin/internal/adapter/source"
	"go.ngs.io/rasterwin/internal/domain"
)

// Assemble reads every band of id into a band-major stack using mode.
func (s *Service) Assemble(ctx context.Context, id string, req StackRequest, mode Mode) (domain.Array3D, error) {
	switch mode {
	case Sequential:
		return s.ReadAllBands(ctx, id, req)
	case Parallel:
		return s.ReadAllBandsParallel(ctx, id, req)
	case Bulk:
		return s.ReadAllBandsBulk(ctx, id, req)
	}
	return domain.Array3D{}, fmt.Errorf("unknown assembly mode %v", mode)
}

// ReadAllBands reads every band through one handle, in ascending band order.
func (s *Service) ReadAllBands(ctx context.Context, id string, req StackRequest) (domain.Array3D, error) {
	if err := req.Validate(); err != nil {
		return domain.Array3D{}, err
	}

	var out domain.Array3D
	err := s.withDataset(ctx, id, func(ds source.Dataset) error {
		stack, err := s.readSequential(ctx, ds, id, req)
		if err != nil {
			return err
		}
		out = stack
		return nil
	})
	if err != nil {
		return domain.Array3D{}, err
	}
	return out, nil
}

func (s *Service) readSequential(ctx context.Context, ds source.Dataset, id string, req StackRequest) (domain.Array3D, error) {
	count := ds.BandCount()
	slices := make([]domain.Array2D, count)
	for i := 1; i <= count; i++ {
		if err := ctx.Err(); err != nil {
			return domain.Array3D{}, err
		}
		start := time.Now()
		arr, err := readBand(ds, i, req.Level, req.Window, req.Resampling)
		if err != nil {
			return domain.Array3D{}, err
		}
		slices[i-1] = arr
		s.logger.Debug("read band",
			zap.String("raster", id),
			zap.Int("band", i),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	return domain.Stack(slices, req.Window.OutSize.Height, req.Window.OutSize.Width)
}

// ReadAllBandsParallel reads each band on its own handle, opened from the resolved
// identifier inside the worker. At most Workers() bands are in flight.
//
// The first failure is returned once every started worker has finished; workers that
// have not started yet skip their open. No partial stack is returned on failure.
func (s *Service) ReadAllBandsParallel(ctx context.Context, id string, req StackRequest) (domain.Array3D, error) {
	if err := req.Validate(); err != nil {
		return domain.Array3D{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Array3D{}, err
	}

	path, err := s.resolve(id)
	if err != nil {
		return domain.Array3D{}, err
	}

	count, err := s.bandCount(path)
	if err != nil {
		return domain.Array3D{}, err
	}
	if count == 0 {
		return domain.Stack(nil, req.Window.OutSize.Height, req.Window.OutSize.Width)
	}

	slices := make([]domain.Array2D, count)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i := 1; i <= count; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			ds, err := s.open(path)
			if err != nil {
				return err
			}
			defer s.close(ds, path)

			start := time.Now()
			arr, err := readBand(ds, i, req.Level, req.Window, req.Resampling)
			if err != nil {
				return err
			}
			slices[i-1] = arr

			s.logger.Debug("read band",
				zap.String("raster", id),
				zap.Int("band", i),
				zap.Duration("elapsed", time.Since(start)),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return domain.Array3D{}, err
	}
	return domain.Stack(slices, req.Window.OutSize.Height, req.Window.OutSize.Width)
}

func (s *Service) bandCount(path string) (int, error) {
	ds, err := s.open(path)
	if err != nil {
		return 0, err
	}
	defer s.close(ds, path)
	return ds.BandCount(), nil
}

// ReadAllBandsBulk reads every band in a single source call when the dataset implements
// source.MultiBandReader. Otherwise, and for overview reads, it reads sequentially.
func (s *Service) ReadAllBandsBulk(ctx context.Context, id string, req StackRequest) (domain.Array3D, error) {
	if err := req.Validate(); err != nil {
		return domain.Array3D{}, err
	}

	var out domain.Array3D
	err := s.withDataset(ctx, id, func(ds source.Dataset) error {
		mbr, ok := ds.(source.MultiBandReader)
		if !ok || req.Level >= 0 {
			s.logger.Debug("bulk read unavailable, reading sequentially",
				zap.String("raster", id),
				zap.Bool("multi_band_reader", ok),
				zap.Int("level", req.Level),
			)
			stack, err := s.readSequential(ctx, ds, id, req)
			if err != nil {
				return err
			}
			out = stack
			return nil
		}

		stack, err := readBulk(mbr, ds.BandCount(), req)
		if err != nil {
			return err
		}
		out = stack
		return nil
	})
	if err != nil {
		return domain.Array3D{}, err
	}
	return out, nil
}

func readBulk(mbr source.MultiBandReader, count int, req StackRequest) (domain.Array3D, error) {
	rows, cols := req.Window.OutSize.Height, req.Window.OutSize.Width
	if count == 0 {
		return domain.Stack(nil, rows, cols)
	}

	alg, err := effectiveResampling(req.Window, req.Resampling)
	if err != nil {
		return domain.Array3D{}, err
	}

	indices := make([]int, count)
	for i := range indices {
		indices[i] = i + 1
	}

	buf, err := mbr.ReadBands(indices, req.Window, alg)
	if err != nil {
		return domain.Array3D{}, fmt.Errorf("%w: bulk read of %d bands: %w", domain.ErrRead, count, err)
	}
	if want := count * rows * cols; len(buf) != want {
		return domain.Array3D{}, &domain.ShapeMismatchError{Expected: want, Actual: len(buf)}
	}
	return domain.Array3D{Bands: count, Rows: rows, Cols: cols, Data: buf}, nil
}
