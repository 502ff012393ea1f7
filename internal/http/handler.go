package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go.ngs.io/rasterwin/internal/adapter/render"
	"go.ngs.io/rasterwin/internal/catalog"
	"go.ngs.io/rasterwin/internal/domain"
	"go.ngs.io/rasterwin/internal/usecase"
)

// Codes for errors raised by the HTTP layer itself.
const (
	CodeInvalidParameter = "INVALID_PARAMETER"
	CodeRasterNotFound   = "RASTER_NOT_FOUND"
)

// Preview size limits in pixels.
const (
	DefaultPreviewSize = 512
	MaxPreviewSize     = 4096
)

// MaxWindowSamples caps the samples a window or stack response may carry across all bands.
const MaxWindowSamples = 1 << 24

// Rasters lists the identifiers the service can read.
type Rasters interface {
	IDs() []string
}

// Handler handles HTTP requests for raster windows.
type Handler struct {
	svc               *usecase.Service
	rasters           Rasters
	defaultResampling domain.Resampling
	logger            *zap.Logger
}

// NewHandler creates a new HTTP handler. defaultResampling is used when a request does
// not name an algorithm.
func NewHandler(svc *usecase.Service, rasters Rasters, defaultResampling domain.Resampling, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		svc:               svc,
		rasters:           rasters,
		defaultResampling: defaultResampling,
		logger:            logger,
	}
}

// paramError is a malformed query or path parameter.
type paramError struct {
	name string
	err  error
}

func (e *paramError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.name, e.err)
}

func (e *paramError) Unwrap() error { return e.err }

// sample marshals non-finite values as null.
type sample float64

func (s sample) MarshalJSON() ([]byte, error) {
	v := float64(s)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

func grid(data []float64, rows, cols int) [][]sample {
	out := make([][]sample, rows)
	for r := range out {
		row := make([]sample, cols)
		for c := range row {
			row[c] = sample(data[r*cols+c])
		}
		out[r] = row
	}
	return out
}

// WindowResponse is the response for single-band reads.
type WindowResponse struct {
	Raster     string     `json:"raster"`
	Band       int        `json:"band"`
	Level      int        `json:"level"`
	Resampling string     `json:"resampling,omitempty"`
	Shape      [2]int     `json:"shape"`
	Data       [][]sample `json:"data"`
}

// StackResponse is the response for multi-band reads.
type StackResponse struct {
	Raster     string       `json:"raster"`
	Level      int          `json:"level"`
	Mode       string       `json:"mode"`
	Resampling string       `json:"resampling"`
	Shape      [3]int       `json:"shape"`
	Data       [][][]sample `json:"data"`
}

// ListRasters handles GET /v1/rasters.
func (h *Handler) ListRasters(c *gin.Context) {
	ids := h.rasters.IDs()
	c.JSON(http.StatusOK, gin.H{
		"rasters": ids,
		"count":   len(ids),
	})
}

// GetRaster handles GET /v1/rasters/:id.
func (h *Handler) GetRaster(c *gin.Context) {
	info, err := h.svc.Describe(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// GetWindow handles GET /v1/rasters/:id/bands/:band/window.
func (h *Handler) GetWindow(c *gin.Context) {
	id := c.Param("id")
	index, err := strconv.Atoi(c.Param("band"))
	if err != nil {
		h.writeError(c, &paramError{name: "band", err: err})
		return
	}
	level, err := intQuery(c, "level", -1)
	if err != nil {
		h.writeError(c, err)
		return
	}
	alg, err := h.resampling(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	w, err := h.window(c, 1, func() (domain.Size, error) {
		return h.extent(c.Request.Context(), id, index, level)
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	arr, err := h.svc.ReadWindow(c.Request.Context(), id, index, level, w, alg)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, WindowResponse{
		Raster:     id,
		Band:       index,
		Level:      level,
		Resampling: alg.String(),
		Shape:      [2]int{arr.Rows, arr.Cols},
		Data:       grid(arr.Data, arr.Rows, arr.Cols),
	})
}

// GetOverview handles GET /v1/rasters/:id/overview.
func (h *Handler) GetOverview(c *gin.Context) {
	id := c.Param("id")
	index, err := intQuery(c, "band", 1)
	if err != nil {
		h.writeError(c, err)
		return
	}
	level, err := intQuery(c, "level", 0)
	if err != nil {
		h.writeError(c, err)
		return
	}

	arr, err := h.svc.ReadOverview(c.Request.Context(), id, index, level)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, WindowResponse{
		Raster: id,
		Band:   index,
		Level:  level,
		Shape:  [2]int{arr.Rows, arr.Cols},
		Data:   grid(arr.Data, arr.Rows, arr.Cols),
	})
}

// GetStack handles GET /v1/rasters/:id/stack.
func (h *Handler) GetStack(c *gin.Context) {
	id := c.Param("id")
	stack, req, mode, err := h.readStack(c, id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	plane := stack.Rows * stack.Cols
	data := make([][][]sample, stack.Bands)
	for b := range data {
		data[b] = grid(stack.Data[b*plane:(b+1)*plane], stack.Rows, stack.Cols)
	}

	c.JSON(http.StatusOK, StackResponse{
		Raster:     id,
		Level:      req.Level,
		Mode:       mode.String(),
		Resampling: req.Resampling.String(),
		Shape:      [3]int{stack.Bands, stack.Rows, stack.Cols},
		Data:       data,
	})
}

// GetPreview handles GET /v1/rasters/:id/preview.png.
func (h *Handler) GetPreview(c *gin.Context) {
	id := c.Param("id")
	maxSize, err := intQuery(c, "max_size", DefaultPreviewSize)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if maxSize < 1 || maxSize > MaxPreviewSize {
		h.writeError(c, &paramError{name: "max_size", err: fmt.Errorf("must be between 1 and %d", MaxPreviewSize)})
		return
	}

	stack, _, _, err := h.readStack(c, id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	img, err := render.Preview(stack, maxSize)
	if err != nil {
		h.writeError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := render.EncodePNG(&buf, img); err != nil {
		h.writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"rasters": len(h.rasters.IDs()),
		"workers": h.svc.Workers(),
	})
}

func (h *Handler) readStack(c *gin.Context, id string) (domain.Array3D, usecase.StackRequest, usecase.Mode, error) {
	mode, err := usecase.ParseMode(c.Query("mode"))
	if err != nil {
		return domain.Array3D{}, usecase.StackRequest{}, 0, &paramError{name: "mode", err: err}
	}
	level, err := intQuery(c, "level", -1)
	if err != nil {
		return domain.Array3D{}, usecase.StackRequest{}, 0, err
	}
	alg, err := h.resampling(c)
	if err != nil {
		return domain.Array3D{}, usecase.StackRequest{}, 0, err
	}
	info, err := h.svc.Describe(c.Request.Context(), id)
	if err != nil {
		return domain.Array3D{}, usecase.StackRequest{}, 0, err
	}
	w, err := h.window(c, len(info.Bands), func() (domain.Size, error) {
		return sizeAt(info, 1, level)
	})
	if err != nil {
		return domain.Array3D{}, usecase.StackRequest{}, 0, err
	}

	req := usecase.NewStackRequest(w)
	req.Level = level
	req.Resampling = alg

	stack, err := h.svc.Assemble(c.Request.Context(), id, req, mode)
	if err != nil {
		return domain.Array3D{}, req, mode, err
	}
	return stack, req, mode, nil
}

// window builds the read window from x, y, width, height, out_width and out_height.
// Missing width or height extend the window to the edge reported by extent; missing
// output sizes default to the read size. bands is the number of planes the window
// will be read into.
func (h *Handler) window(c *gin.Context, bands int, extent func() (domain.Size, error)) (domain.Window, error) {
	x, err := intQuery(c, "x", 0)
	if err != nil {
		return domain.Window{}, err
	}
	y, err := intQuery(c, "y", 0)
	if err != nil {
		return domain.Window{}, err
	}
	width, err := intQuery(c, "width", 0)
	if err != nil {
		return domain.Window{}, err
	}
	height, err := intQuery(c, "height", 0)
	if err != nil {
		return domain.Window{}, err
	}

	if width == 0 || height == 0 {
		full, err := extent()
		if err != nil {
			return domain.Window{}, err
		}
		if width == 0 {
			width = full.Width - x
		}
		if height == 0 {
			height = full.Height - y
		}
	}
	if err := checkSamples("width", width, height, 1); err != nil {
		return domain.Window{}, err
	}

	outW, err := intQuery(c, "out_width", width)
	if err != nil {
		return domain.Window{}, err
	}
	outH, err := intQuery(c, "out_height", height)
	if err != nil {
		return domain.Window{}, err
	}
	if err := checkSamples("out_width", outW, outH, bands); err != nil {
		return domain.Window{}, err
	}
	return domain.NewWindow(x, y, width, height).WithOutSize(outW, outH), nil
}

// checkSamples rejects a width x height x planes response larger than MaxWindowSamples.
// Non-positive sizes are left to Window.Validate.
func checkSamples(name string, width, height, planes int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	if planes < 1 {
		planes = 1
	}
	if width > MaxWindowSamples/height/planes {
		return &paramError{name: name, err: fmt.Errorf("%dx%d over %d band(s) exceeds %d samples", width, height, planes, MaxWindowSamples)}
	}
	return nil
}

// extent returns the size of a band, or of one of its overviews when level >= 0.
func (h *Handler) extent(ctx context.Context, id string, index, level int) (domain.Size, error) {
	info, err := h.svc.Describe(ctx, id)
	if err != nil {
		return domain.Size{}, err
	}
	return sizeAt(info, index, level)
}

func sizeAt(info domain.RasterInfo, index, level int) (domain.Size, error) {
	if index < 1 || index > len(info.Bands) {
		return domain.Size{}, &domain.BandNotFoundError{Band: index, Count: len(info.Bands)}
	}
	b := info.Bands[index-1]
	if level < 0 {
		return domain.Size{Width: b.Width, Height: b.Height}, nil
	}
	if level >= len(b.Overviews) {
		return domain.Size{}, &domain.OverviewOutOfRangeError{Requested: level, Available: len(b.Overviews)}
	}
	return b.Overviews[level], nil
}

func (h *Handler) resampling(c *gin.Context) (domain.Resampling, error) {
	name := c.Query("resampling")
	if name == "" {
		return h.defaultResampling, nil
	}
	return domain.ParseResampling(name)
}

func intQuery(c *gin.Context, name string, def int) (int, error) {
	s := c.Query(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, &paramError{name: name, err: err}
	}
	return v, nil
}

// writeError maps err to a status and a JSON body with a stable code.
func (h *Handler) writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, domain.ErrorCode(err)

	var pe *paramError
	switch {
	case errors.As(err, &pe):
		status, code = http.StatusBadRequest, CodeInvalidParameter
	case errors.Is(err, catalog.ErrUnknownRaster):
		status, code = http.StatusNotFound, CodeRasterNotFound
	case domain.IsRequestError(err):
		status = http.StatusBadRequest
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("path", c.Request.URL.Path),
			zap.String("code", code),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": err.Error(),
		"code":  code,
	})
}
