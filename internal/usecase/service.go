package usecase

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"go.ngs.io/rasterwin/internal/adapter/source"
	"go.ngs.io/rasterwin/internal/domain"
)

// Mode selects how a multi-band stack is assembled.
type Mode int

const (
	// Sequential reads the bands one after another through a single handle.
	Sequential Mode = iota
	// Parallel reads each band on its own handle in a bounded worker pool.
	Parallel
	// Bulk reads all bands in one source call when the source supports it.
	Bulk
)

func (m Mode) String() string {
	switch m {
	case Sequential:
		return "sequential"
	case Parallel:
		return "parallel"
	case Bulk:
		return "bulk"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses "sequential", "parallel" or "bulk". The empty string is Sequential.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sequential":
		return Sequential, nil
	case "parallel":
		return Parallel, nil
	case "bulk":
		return Bulk, nil
	}
	return Sequential, fmt.Errorf("unknown assembly mode %q (expected sequential, parallel or bulk)", s)
}

// StackRequest describes a multi-band read.
type StackRequest struct {
	Window     domain.Window
	Resampling domain.Resampling
	// Level is the overview level read from every band. -1 reads full resolution.
	Level int
}

// NewStackRequest returns a full-resolution request for w using DefaultResampling.
func NewStackRequest(w domain.Window) StackRequest {
	return StackRequest{
		Window:     w,
		Resampling: domain.DefaultResampling,
		Level:      -1,
	}
}

// Validate checks the request before any source is opened.
func (r StackRequest) Validate() error {
	if err := r.Window.Validate(); err != nil {
		return err
	}
	if err := checkLevel(r.Level); err != nil {
		return err
	}
	if _, err := effectiveResampling(r.Window, r.Resampling); err != nil {
		return err
	}
	return nil
}

// Service runs windowed reads against rasters opened through a source.Opener.
type Service struct {
	opener  source.Opener
	logger  *zap.Logger
	workers int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithWorkers bounds the number of bands read concurrently by the parallel path.
// Values below 1 keep the default of runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// NewService creates a Service reading from opener.
func NewService(opener source.Opener, opts ...Option) *Service {
	s := &Service{
		opener:  opener,
		logger:  zap.NewNop(),
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Workers returns the parallel pool size.
func (s *Service) Workers() int { return s.workers }

// resolve normalises id once so every worker opens the same target.
func (s *Service) resolve(id string) (string, error) {
	r, ok := s.opener.(source.Resolver)
	if !ok {
		return id, nil
	}
	resolved, err := r.Resolve(id)
	if err != nil {
		return "", &domain.OpenError{ID: id, Err: err}
	}
	return resolved, nil
}

func (s *Service) open(id string) (source.Dataset, error) {
	ds, err := s.opener.Open(id)
	if err != nil {
		return nil, &domain.OpenError{ID: id, Err: err}
	}
	return ds, nil
}

func (s *Service) close(ds source.Dataset, id string) {
	if err := ds.Close(); err != nil {
		s.logger.Warn("failed to close raster", zap.String("raster", id), zap.Error(err))
	}
}

// withDataset resolves id, opens it, runs fn and closes the handle.
func (s *Service) withDataset(ctx context.Context, id string, fn func(ds source.Dataset) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.resolve(id)
	if err != nil {
		return err
	}
	ds, err := s.open(path)
	if err != nil {
		return err
	}
	defer s.close(ds, path)
	return fn(ds)
}

// band returns the 1-based band index of ds, or its overview when level >= 0.
// checkLevel rejects levels below -1, which name neither the base band nor an overview.
func checkLevel(level int) error {
	if level < -1 {
		return fmt.Errorf("%w: level %d (use -1 for full resolution or an overview index)", domain.ErrOverviewOutOfRange, level)
	}
	return nil
}

func band(ds source.Dataset, index, level int) (source.Band, error) {
	if err := checkLevel(level); err != nil {
		return nil, err
	}
	if count := ds.BandCount(); index < 1 || index > count {
		return nil, &domain.BandNotFoundError{Band: index, Count: count}
	}
	b, err := ds.Band(index)
	if err != nil {
		return nil, fmt.Errorf("failed to get band %d: %w", index, err)
	}
	if level < 0 {
		return b, nil
	}
	ovr, err := ResolveOverview(b, level)
	if err != nil {
		return nil, fmt.Errorf("band %d: %w", index, err)
	}
	return ovr, nil
}

// readBand reads one band of an open dataset. Source failures are reported as ReadError.
func readBand(ds source.Dataset, index, level int, w domain.Window, alg domain.Resampling) (domain.Array2D, error) {
	b, err := band(ds, index, level)
	if err != nil {
		return domain.Array2D{}, err
	}
	arr, err := ReadBandWindow(b, w, alg)
	if err != nil {
		if domain.IsRequestError(err) {
			return domain.Array2D{}, fmt.Errorf("band %d: %w", index, err)
		}
		return domain.Array2D{}, &domain.ReadError{Band: index, Level: level, Err: err}
	}
	return arr, nil
}

// ReadWindow reads w from one band, or from its overview at level when level >= 0.
func (s *Service) ReadWindow(ctx context.Context, id string, index, level int, w domain.Window, alg domain.Resampling) (domain.Array2D, error) {
	var out domain.Array2D
	err := s.withDataset(ctx, id, func(ds source.Dataset) error {
		arr, err := readBand(ds, index, level, w, alg)
		if err != nil {
			return err
		}
		out = arr
		return nil
	})
	return out, err
}

// ReadOverview reads a whole overview of one band at its native size.
func (s *Service) ReadOverview(ctx context.Context, id string, index, level int) (domain.Array2D, error) {
	var out domain.Array2D
	err := s.withDataset(ctx, id, func(ds source.Dataset) error {
		b, err := band(ds, index, level)
		if err != nil {
			return err
		}
		arr, err := ReadFullBand(b)
		if err != nil {
			return &domain.ReadError{Band: index, Level: level, Err: err}
		}
		out = arr
		return nil
	})
	if err != nil {
		return domain.Array2D{}, err
	}

	s.logger.Debug("read overview",
		zap.String("raster", id),
		zap.Int("band", index),
		zap.Int("level", level),
		zap.Int("rows", out.Rows),
		zap.Int("cols", out.Cols),
	)
	return out, nil
}

// Describe reports the bands of a raster and the sizes of their overviews.
func (s *Service) Describe(ctx context.Context, id string) (domain.RasterInfo, error) {
	info := domain.RasterInfo{ID: id}
	err := s.withDataset(ctx, id, func(ds source.Dataset) error {
		count := ds.BandCount()
		info.Bands = make([]domain.BandInfo, 0, count)
		for i := 1; i <= count; i++ {
			b, err := ds.Band(i)
			if err != nil {
				return fmt.Errorf("failed to get band %d: %w", i, err)
			}
			width, height := b.Size()
			n, err := b.OverviewCount()
			if err != nil {
				return fmt.Errorf("failed to count overviews of band %d: %w", i, err)
			}
			bi := domain.BandInfo{Index: i, Width: width, Height: height, Overviews: make([]domain.Size, 0, n)}
			for l := 0; l < n; l++ {
				ovr, err := b.Overview(l)
				if err != nil {
					return fmt.Errorf("failed to open overview %d of band %d: %w", l, i, err)
				}
				ow, oh := ovr.Size()
				bi.Overviews = append(bi.Overviews, domain.Size{Width: ow, Height: oh})
			}
			info.Bands = append(info.Bands, bi)
		}
		return nil
	})
	if err != nil {
		return domain.RasterInfo{}, err
	}
	return info, nil
}
