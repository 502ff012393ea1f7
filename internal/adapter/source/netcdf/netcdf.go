// Package netcdf reads gridded NetCDF variables as raster bands.
//
// A variable of shape [y, x] is a single band; [band, y, x] holds one band per leading index.
// Overview level L of variable "v" is the variable "v_ovr<L+1>", which must share v's band count.
package netcdf

import (
	"errors"
	"fmt"
	"sync"

	"github.com/fhs/go-netcdf/netcdf"
	"go.uber.org/zap"

	"go.ngs.io/rasterwin/internal/adapter/interp"
	"go.ngs.io/rasterwin/internal/adapter/pathutil"
	"go.ngs.io/rasterwin/internal/adapter/source"
	"go.ngs.io/rasterwin/internal/domain"
)

// libnetcdf is not thread-safe; every library call holds this lock.
var libMu sync.Mutex

// ErrClosed is returned when a band is read after its dataset was closed.
var ErrClosed = errors.New("netcdf dataset closed")

// Opener opens one named variable of NetCDF files.
type Opener struct {
	variable string
	logger   *zap.Logger
}

// NewOpener creates an Opener reading variable. A nil logger discards output.
func NewOpener(variable string, logger *zap.Logger) *Opener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Opener{variable: variable, logger: logger}
}

// Resolve expands "~" and makes the path absolute.
func (o *Opener) Resolve(id string) (string, error) {
	return pathutil.Expand(id)
}

// Open opens path read-only and inspects the variable and its overviews.
func (o *Opener) Open(path string) (source.Dataset, error) {
	libMu.Lock()
	defer libMu.Unlock()

	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF file: %w", err)
	}

	ds, err := o.inspect(nc)
	if err != nil {
		_ = nc.Close()
		return nil, err
	}
	return ds, nil
}

func (o *Opener) inspect(nc netcdf.Dataset) (*dataset, error) {
	v, err := nc.Var(o.variable)
	if err != nil {
		return nil, fmt.Errorf("variable %q not found: %w", o.variable, err)
	}
	base, err := describeVar(o.variable, v)
	if err != nil {
		return nil, err
	}

	ds := &dataset{nc: nc, base: base}
	for level := 1; ; level++ {
		name := fmt.Sprintf("%s_ovr%d", o.variable, level)
		ov, err := nc.Var(name)
		if err != nil {
			break
		}
		g, err := describeVar(name, ov)
		if err != nil {
			return nil, err
		}
		if g.bands != base.bands {
			return nil, fmt.Errorf("overview %q has %d bands, expected %d", name, g.bands, base.bands)
		}
		ds.overviews = append(ds.overviews, g)
	}

	o.logger.Debug("opened netcdf variable",
		zap.String("variable", o.variable),
		zap.Int("bands", base.bands),
		zap.Int("width", base.cols),
		zap.Int("height", base.rows),
		zap.Int("overviews", len(ds.overviews)),
	)
	return ds, nil
}

// grid is one variable viewed as bands x rows x cols.
type grid struct {
	name  string
	v     netcdf.Var
	typ   netcdf.Type
	bands int
	rows  int
	cols  int
	is3D  bool
}

func describeVar(name string, v netcdf.Var) (grid, error) {
	dims, err := v.Dims()
	if err != nil {
		return grid{}, fmt.Errorf("failed to get dimensions of %q: %w", name, err)
	}
	typ, err := v.Type()
	if err != nil {
		return grid{}, fmt.Errorf("failed to get type of %q: %w", name, err)
	}

	lens := make([]int, len(dims))
	for i, d := range dims {
		n, err := d.Len()
		if err != nil {
			return grid{}, fmt.Errorf("failed to get dim%d length of %q: %w", i, name, err)
		}
		lens[i] = int(n)
	}

	g := grid{name: name, v: v, typ: typ}
	switch len(lens) {
	case 2:
		g.bands, g.rows, g.cols = 1, lens[0], lens[1]
	case 3:
		g.bands, g.rows, g.cols, g.is3D = lens[0], lens[1], lens[2], true
	default:
		return grid{}, fmt.Errorf("variable %q is %dD, expected [y, x] or [band, y, x]", name, len(lens))
	}
	return g, nil
}

type dataset struct {
	nc        netcdf.Dataset
	base      grid
	overviews []grid
	closed    bool
}

func (d *dataset) BandCount() int { return d.base.bands }

func (d *dataset) Band(index int) (source.Band, error) {
	if index < 1 || index > d.base.bands {
		return nil, &domain.BandNotFoundError{Band: index, Count: d.base.bands}
	}
	return &band{ds: d, g: d.base, index: index, level: -1}, nil
}

func (d *dataset) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	libMu.Lock()
	defer libMu.Unlock()
	return d.nc.Close()
}

// ReadBands reads a run of consecutive bands of a [band, y, x] variable with one hyperslab.
// Other index lists are read band by band.
func (d *dataset) ReadBands(indices []int, w domain.Window, alg domain.Resampling) ([]float64, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if err := checkExtent(d.base, w); err != nil {
		return nil, err
	}
	for _, idx := range indices {
		if idx < 1 || idx > d.base.bands {
			return nil, &domain.BandNotFoundError{Band: idx, Count: d.base.bands}
		}
	}

	if !d.base.is3D || !consecutive(indices) {
		out := make([]float64, 0, len(indices)*w.OutSize.Len())
		for _, idx := range indices {
			b := &band{ds: d, g: d.base, index: idx, level: -1}
			buf, err := b.Read(w, alg)
			if err != nil {
				return nil, fmt.Errorf("band %d: %w", idx, err)
			}
			out = append(out, buf...)
		}
		return out, nil
	}

	n := len(indices)
	//nolint:gosec // G115: window and band indices are validated non-negative.
	start := []uint64{uint64(indices[0] - 1), uint64(w.Y), uint64(w.X)}
	//nolint:gosec // G115: counts come from positive window sizes.
	count := []uint64{uint64(n), uint64(w.ReadSize.Height), uint64(w.ReadSize.Width)}

	libMu.Lock()
	slab, err := readSlab(d.base.v, d.base.typ, start, count, n*w.ReadSize.Len())
	libMu.Unlock()
	if err != nil {
		return nil, err
	}

	readLen := w.ReadSize.Len()
	out := make([]float64, 0, n*w.OutSize.Len())
	for i := 0; i < n; i++ {
		buf, err := interp.Resample(slab[i*readLen:(i+1)*readLen],
			w.ReadSize.Width, w.ReadSize.Height, w.OutSize.Width, w.OutSize.Height, alg)
		if err != nil {
			return nil, err
		}
		out = append(out, buf...)
	}
	return out, nil
}

func consecutive(indices []int) bool {
	for i := 1; i < len(indices); i++ {
		if indices[i] != indices[i-1]+1 {
			return false
		}
	}
	return len(indices) > 0
}

type band struct {
	ds    *dataset
	g     grid
	index int
	level int
}

func (b *band) Size() (int, int) { return b.g.cols, b.g.rows }

func (b *band) OverviewCount() (int, error) {
	if b.level >= 0 {
		return 0, nil
	}
	return len(b.ds.overviews), nil
}

func (b *band) Overview(level int) (source.Band, error) {
	if b.level >= 0 || level < 0 || level >= len(b.ds.overviews) {
		return nil, fmt.Errorf("overview %d not available", level)
	}
	return &band{ds: b.ds, g: b.ds.overviews[level], index: b.index, level: level}, nil
}

func (b *band) Read(w domain.Window, alg domain.Resampling) ([]float64, error) {
	if b.ds.closed {
		return nil, ErrClosed
	}
	if err := checkExtent(b.g, w); err != nil {
		return nil, err
	}

	//nolint:gosec // G115: checkExtent guarantees non-negative offsets.
	start := []uint64{uint64(w.Y), uint64(w.X)}
	//nolint:gosec // G115: counts come from positive window sizes.
	count := []uint64{uint64(w.ReadSize.Height), uint64(w.ReadSize.Width)}
	if b.g.is3D {
		//nolint:gosec // G115: band index is 1-based and validated.
		start = append([]uint64{uint64(b.index - 1)}, start...)
		count = append([]uint64{1}, count...)
	}

	libMu.Lock()
	block, err := readSlab(b.g.v, b.g.typ, start, count, w.ReadSize.Len())
	libMu.Unlock()
	if err != nil {
		return nil, err
	}

	return interp.Resample(block, w.ReadSize.Width, w.ReadSize.Height, w.OutSize.Width, w.OutSize.Height, alg)
}

// checkExtent rejects windows that are invalid or fall outside the variable.
func checkExtent(g grid, w domain.Window) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if w.X < 0 || w.Y < 0 || w.X+w.ReadSize.Width > g.cols || w.Y+w.ReadSize.Height > g.rows {
		return fmt.Errorf("%w: window %s, %q is %dx%d", domain.ErrOutsideExtent, w, g.name, g.cols, g.rows)
	}
	return nil
}

// readSlab reads a hyperslab of n values and converts it to float64.
// Supports DOUBLE, FLOAT, INT, SHORT and UBYTE variables.
func readSlab(v netcdf.Var, typ netcdf.Type, start, count []uint64, n int) ([]float64, error) {
	out := make([]float64, n)

	switch typ {
	case netcdf.DOUBLE:
		if err := v.ReadFloat64Slice(out, start, count); err != nil {
			return nil, fmt.Errorf("failed to read float64 subset: %w", err)
		}
	case netcdf.FLOAT:
		data := make([]float32, n)
		if err := v.ReadFloat32Slice(data, start, count); err != nil {
			return nil, fmt.Errorf("failed to read float32 subset: %w", err)
		}
		for i, val := range data {
			out[i] = float64(val)
		}
	case netcdf.INT:
		data := make([]int32, n)
		if err := v.ReadInt32Slice(data, start, count); err != nil {
			return nil, fmt.Errorf("failed to read int32 subset: %w", err)
		}
		for i, val := range data {
			out[i] = float64(val)
		}
	case netcdf.SHORT:
		data := make([]int16, n)
		if err := v.ReadInt16Slice(data, start, count); err != nil {
			return nil, fmt.Errorf("failed to read int16 subset: %w", err)
		}
		for i, val := range data {
			out[i] = float64(val)
		}
	case netcdf.UBYTE:
		data := make([]uint8, n)
		if err := v.ReadUint8Slice(data, start, count); err != nil {
			return nil, fmt.Errorf("failed to read uint8 subset: %w", err)
		}
		for i, val := range data {
			out[i] = float64(val)
		}
	default:
		return nil, fmt.Errorf("unsupported data type: %v (expected DOUBLE, FLOAT, INT, SHORT or UBYTE)", typ)
	}

	return out, nil
}
