// Package catalog maps raster identifiers served by the API to files and drivers.
//
// The catalog is a YAML document:
//
//	rasters:
//	  - id: dem
//	    path: ~/data/dem_cog.tif
//	    driver: gdal
//	  - id: sst
//	    path: /data/sst.nc
//	    driver: netcdf
//	    variable: analysed_sst
//	  - id: demo
//	    driver: memory
//	    bands: 4
//	    width: 512
//	    height: 512
//	    overviews: 3
//
// The driver is always explicit.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"go.ngs.io/rasterwin/internal/adapter/source"
	"go.ngs.io/rasterwin/internal/adapter/source/gdal"
	"go.ngs.io/rasterwin/internal/adapter/source/memory"
	"go.ngs.io/rasterwin/internal/adapter/source/netcdf"
)

// Driver names a raster source implementation.
type Driver string

// Supported drivers.
const (
	DriverGDAL   Driver = "gdal"
	DriverNetCDF Driver = "netcdf"
	DriverMemory Driver = "memory"
)

var (
	// ErrUnknownRaster is returned for identifiers that are not in the catalog.
	ErrUnknownRaster = errors.New("unknown raster")
	// ErrInvalidCatalog is returned when the catalog document is malformed.
	ErrInvalidCatalog = errors.New("invalid raster catalog")
)

// Entry is one raster of the catalog document.
type Entry struct {
	ID       string `yaml:"id"`
	Path     string `yaml:"path"`
	Driver   Driver `yaml:"driver"`
	Variable string `yaml:"variable,omitempty"`

	// Synthetic raster shape, memory driver only.
	Bands     int `yaml:"bands,omitempty"`
	Width     int `yaml:"width,omitempty"`
	Height    int `yaml:"height,omitempty"`
	Overviews int `yaml:"overviews,omitempty"`
}

// Document is the top-level YAML structure.
type Document struct {
	Rasters []Entry `yaml:"rasters"`
}

// Validate checks every entry and reports the first bad one by position and id.
func (d Document) Validate() error {
	seen := make(map[string]int, len(d.Rasters))
	for i, e := range d.Rasters {
		if err := e.validate(); err != nil {
			return fmt.Errorf("%w: raster %d (%q): %w", ErrInvalidCatalog, i, e.ID, err)
		}
		if j, dup := seen[e.ID]; dup {
			return fmt.Errorf("%w: raster %d (%q): id already used by raster %d", ErrInvalidCatalog, i, e.ID, j)
		}
		seen[e.ID] = i
	}
	return nil
}

func (e Entry) validate() error {
	if e.ID == "" {
		return errors.New("id is required")
	}
	switch e.Driver {
	case DriverGDAL:
		if e.Path == "" {
			return errors.New("path is required")
		}
	case DriverNetCDF:
		if e.Path == "" {
			return errors.New("path is required")
		}
		if e.Variable == "" {
			return errors.New("variable is required for the netcdf driver")
		}
	case DriverMemory:
		if e.Bands < 1 || e.Width < 1 || e.Height < 1 || e.Overviews < 0 {
			return fmt.Errorf("memory driver needs positive bands, width and height (got %d, %d, %d)", e.Bands, e.Width, e.Height)
		}
	case "":
		return errors.New("driver is required (gdal, netcdf or memory)")
	default:
		return fmt.Errorf("unknown driver %q (expected gdal, netcdf or memory)", e.Driver)
	}
	return nil
}

// Catalog is a loaded catalog. It implements source.Opener and source.Resolver over
// catalog identifiers, dispatching each to its entry's driver.
type Catalog struct {
	entries map[string]*binding
	ids     []string
}

type binding struct {
	entry  Entry
	opener source.Opener
	// target is the resolved path, or the registry key for memory rasters.
	target string
}

type options struct {
	logger   *zap.Logger
	registry *memory.Registry
}

// Option configures Load and Parse.
type Option func(*options)

// WithLogger passes logger to the drivers.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRegistry sets the registry that memory rasters are generated into.
// The default is memory.Default.
func WithRegistry(r *memory.Registry) Option {
	return func(o *options) { o.registry = r }
}

// Load reads and binds the catalog at path.
func Load(path string, opts ...Option) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data, opts...)
}

// Parse decodes a catalog document and binds every entry to its driver.
// File paths are resolved here, once, so that concurrent readers open the same target.
func Parse(data []byte, opts ...Option) (*Catalog, error) {
	o := options{logger: zap.NewNop(), registry: memory.Default}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	c := &Catalog{entries: make(map[string]*binding, len(doc.Rasters))}
	for _, e := range doc.Rasters {
		b, err := bind(e, o)
		if err != nil {
			return nil, fmt.Errorf("raster %q: %w", e.ID, err)
		}
		c.entries[e.ID] = b
		c.ids = append(c.ids, e.ID)
	}
	sort.Strings(c.ids)
	return c, nil
}

func bind(e Entry, o options) (*binding, error) {
	if e.Driver == DriverMemory {
		r, err := memory.Synthetic(e.Bands, e.Width, e.Height, e.Overviews)
		if err != nil {
			return nil, err
		}
		o.registry.Register(e.ID, r)
		return &binding{entry: e, opener: o.registry, target: e.ID}, nil
	}

	opener, err := NewOpener(e.Driver, e.Variable, o.logger)
	if err != nil {
		return nil, err
	}
	target := e.Path
	if r, ok := opener.(source.Resolver); ok {
		if target, err = r.Resolve(e.Path); err != nil {
			return nil, err
		}
	}
	return &binding{entry: e, opener: opener, target: target}, nil
}

// NewOpener returns the file opener for a driver. The memory driver opens memory.Default.
func NewOpener(driver Driver, variable string, logger *zap.Logger) (source.Opener, error) {
	switch driver {
	case DriverGDAL:
		return gdal.NewOpener(logger), nil
	case DriverNetCDF:
		if variable == "" {
			return nil, errors.New("the netcdf driver needs a variable name")
		}
		return netcdf.NewOpener(variable, logger), nil
	case DriverMemory:
		return memory.Default, nil
	}
	return nil, fmt.Errorf("unknown driver %q", driver)
}

// IDs returns the catalog identifiers in sorted order.
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}

// Lookup returns the entry for id.
func (c *Catalog) Lookup(id string) (Entry, bool) {
	b, ok := c.entries[id]
	if !ok {
		return Entry{}, false
	}
	return b.entry, true
}

// Resolve checks that id is in the catalog.
func (c *Catalog) Resolve(id string) (string, error) {
	if _, ok := c.entries[id]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRaster, id)
	}
	return id, nil
}

// Open opens a new handle on the raster registered as id.
func (c *Catalog) Open(id string) (source.Dataset, error) {
	b, ok := c.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRaster, id)
	}
	return b.opener.Open(b.target)
}
