// Package memory is an in-process raster source. Rasters are registered under an identifier
// and every Open returns a fresh handle over the same samples, so concurrent readers behave
// as they would against a file that is reopened per worker.
package memory

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.ngs.io/rasterwin/internal/adapter/interp"
	"go.ngs.io/rasterwin/internal/adapter/source"
	"go.ngs.io/rasterwin/internal/domain"
)

// ErrNotRegistered is returned by Open for identifiers that were never registered.
var ErrNotRegistered = errors.New("raster not registered")

// ErrClosed is returned when a band is read after its dataset was closed.
var ErrClosed = errors.New("dataset closed")

// Plane is one resolution of a band as a row-major grid.
type Plane struct {
	Width  int
	Height int
	Values []float64
}

// BandData holds a band's full-resolution plane and its overview pyramid.
type BandData struct {
	Plane
	Overviews []Plane

	// ReadErr, when set, is returned by every read of this band or its overviews.
	ReadErr error
	// Delay is slept before each read.
	Delay time.Duration
}

// Raster is a registered multi-band dataset.
type Raster struct {
	Bands []*BandData
}

// Registry maps identifiers to rasters and counts handle lifecycles.
type Registry struct {
	mu      sync.RWMutex
	rasters map[string]*Raster

	opens     atomic.Int64
	closes    atomic.Int64
	bulkReads atomic.Int64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{rasters: make(map[string]*Raster)}
}

// Default is the process-wide registry used by Register and by catalog entries with driver "memory".
var Default = NewRegistry()

// Register adds r to the Default registry.
func Register(id string, r *Raster) {
	Default.Register(id, r)
}

// Register adds or replaces the raster stored under id.
func (g *Registry) Register(id string, r *Raster) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rasters[id] = r
}

// Open returns a new handle for id.
func (g *Registry) Open(id string) (source.Dataset, error) {
	g.mu.RLock()
	r, ok := g.rasters[id]
	g.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, id)
	}
	g.opens.Add(1)
	return &dataset{registry: g, raster: r}, nil
}

// Opens returns how many handles have been opened.
func (g *Registry) Opens() int64 { return g.opens.Load() }

// Active returns how many opened handles are not yet closed.
func (g *Registry) Active() int64 { return g.opens.Load() - g.closes.Load() }

// BulkReads returns how many multi-band reads were served.
func (g *Registry) BulkReads() int64 { return g.bulkReads.Load() }

type dataset struct {
	registry *Registry
	raster   *Raster
	closed   atomic.Bool
}

func (d *dataset) BandCount() int { return len(d.raster.Bands) }

func (d *dataset) Band(index int) (source.Band, error) {
	if index < 1 || index > len(d.raster.Bands) {
		return nil, &domain.BandNotFoundError{Band: index, Count: len(d.raster.Bands)}
	}
	data := d.raster.Bands[index-1]
	return &band{ds: d, data: data, plane: data.Plane, level: -1}, nil
}

func (d *dataset) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	d.registry.closes.Add(1)
	return nil
}

// ReadBands reads each band in indices and concatenates the results.
func (d *dataset) ReadBands(indices []int, w domain.Window, alg domain.Resampling) ([]float64, error) {
	d.registry.bulkReads.Add(1)
	out := make([]float64, 0, len(indices)*w.OutSize.Len())
	for _, i := range indices {
		b, err := d.Band(i)
		if err != nil {
			return nil, err
		}
		buf, err := b.Read(w, alg)
		if err != nil {
			return nil, fmt.Errorf("band %d: %w", i, err)
		}
		out = append(out, buf...)
	}
	return out, nil
}

type band struct {
	ds    *dataset
	data  *BandData
	plane Plane
	level int
}

func (b *band) Size() (int, int) { return b.plane.Width, b.plane.Height }

func (b *band) OverviewCount() (int, error) {
	if b.level >= 0 {
		return 0, nil
	}
	return len(b.data.Overviews), nil
}

func (b *band) Overview(level int) (source.Band, error) {
	if b.level >= 0 || level < 0 || level >= len(b.data.Overviews) {
		return nil, fmt.Errorf("overview %d not available", level)
	}
	return &band{ds: b.ds, data: b.data, plane: b.data.Overviews[level], level: level}, nil
}

func (b *band) Read(w domain.Window, alg domain.Resampling) ([]float64, error) {
	if b.ds.closed.Load() {
		return nil, ErrClosed
	}
	if b.data.Delay > 0 {
		time.Sleep(b.data.Delay)
	}
	if b.data.ReadErr != nil {
		return nil, b.data.ReadErr
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}

	p := b.plane
	if w.X < 0 || w.Y < 0 || w.X+w.ReadSize.Width > p.Width || w.Y+w.ReadSize.Height > p.Height {
		return nil, fmt.Errorf("%w: window %s, band is %dx%d", domain.ErrOutsideExtent, w, p.Width, p.Height)
	}

	block := make([]float64, 0, w.ReadSize.Len())
	for r := w.Y; r < w.Y+w.ReadSize.Height; r++ {
		start := r*p.Width + w.X
		block = append(block, p.Values[start:start+w.ReadSize.Width]...)
	}

	return interp.Resample(block, w.ReadSize.Width, w.ReadSize.Height, w.OutSize.Width, w.OutSize.Height, alg)
}
