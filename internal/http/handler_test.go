package http

import (
	"encoding/json"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"go.ngs.io/rasterwin/internal/adapter/source/memory"
	"go.ngs.io/rasterwin/internal/catalog"
	"go.ngs.io/rasterwin/internal/domain"
	"go.ngs.io/rasterwin/internal/usecase"
)

const testCatalog = `
rasters:
  - id: demo
    driver: memory
    bands: 3
    width: 8
    height: 8
    overviews: 2
`

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cat, err := catalog.Parse([]byte(testCatalog), catalog.WithRegistry(memory.NewRegistry()))
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	svc := usecase.NewService(cat, usecase.WithWorkers(2))
	return SetupRouter(NewHandler(svc, cat, domain.Average, nil), nil, nil)
}

func get(t *testing.T, router *gin.Engine, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type windowBody struct {
	Band  int         `json:"band"`
	Level int         `json:"level"`
	Shape [2]int      `json:"shape"`
	Data  [][]float64 `json:"data"`
}

type stackBody struct {
	Mode  string        `json:"mode"`
	Shape [3]int        `json:"shape"`
	Data  [][][]float64 `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
}

func TestHealthCheck(t *testing.T) {
	router := setupTestRouter(t)

	w := get(t, router, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]any
	decode(t, w, &body)
	if body["status"] != "ok" || body["rasters"] != float64(1) || body["workers"] != float64(2) {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestListRasters(t *testing.T) {
	router := setupTestRouter(t)

	w := get(t, router, "/v1/rasters")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Rasters []string `json:"rasters"`
		Count   int      `json:"count"`
	}
	decode(t, w, &body)
	if body.Count != 1 || body.Rasters[0] != "demo" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestGetRaster(t *testing.T) {
	router := setupTestRouter(t)

	w := get(t, router, "/v1/rasters/demo")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var info domain.RasterInfo
	decode(t, w, &info)
	if len(info.Bands) != 3 {
		t.Fatalf("bands = %d, want 3", len(info.Bands))
	}
	ovr := info.Bands[0].Overviews
	if len(ovr) != 2 || ovr[0] != (domain.Size{Width: 4, Height: 4}) || ovr[1] != (domain.Size{Width: 2, Height: 2}) {
		t.Errorf("overviews = %v", ovr)
	}
}

func TestGetWindow(t *testing.T) {
	router := setupTestRouter(t)

	w := get(t, router, "/v1/rasters/demo/bands/2/window?x=1&y=2&width=2&height=1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var body windowBody
	decode(t, w, &body)
	if body.Shape != [2]int{1, 2} || body.Band != 2 || body.Level != -1 {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.Data[0][0] != 2002001 || body.Data[0][1] != 2002002 {
		t.Errorf("data = %v, want [[2002001 2002002]]", body.Data)
	}
}

func TestGetWindowDefaults(t *testing.T) {
	router := setupTestRouter(t)

	tests := []struct {
		name  string
		url   string
		shape [2]int
	}{
		{"full band", "/v1/rasters/demo/bands/1/window", [2]int{8, 8}},
		{"to the edge", "/v1/rasters/demo/bands/1/window?x=6&y=5", [2]int{3, 2}},
		{"downsampled", "/v1/rasters/demo/bands/1/window?out_width=4&out_height=2", [2]int{2, 4}},
		{"overview", "/v1/rasters/demo/bands/1/window?level=1", [2]int{2, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, router, tt.url)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", w.Code, w.Body.String())
			}
			var body windowBody
			decode(t, w, &body)
			if body.Shape != tt.shape {
				t.Errorf("shape = %v, want %v", body.Shape, tt.shape)
			}
		})
	}
}

func TestErrorMapping(t *testing.T) {
	router := setupTestRouter(t)

	tests := []struct {
		name   string
		url    string
		status int
		code   string
	}{
		{"unknown raster", "/v1/rasters/nope", http.StatusNotFound, CodeRasterNotFound},
		{"unknown raster window", "/v1/rasters/nope/bands/1/window?width=2&height=2", http.StatusNotFound, CodeRasterNotFound},
		{"bad band", "/v1/rasters/demo/bands/abc/window", http.StatusBadRequest, CodeInvalidParameter},
		{"bad x", "/v1/rasters/demo/bands/1/window?x=left", http.StatusBadRequest, CodeInvalidParameter},
		{"band not found", "/v1/rasters/demo/bands/9/window?width=2&height=2", http.StatusBadRequest, domain.CodeBandNotFound},
		{"band zero", "/v1/rasters/demo/bands/0/window?width=2&height=2", http.StatusBadRequest, domain.CodeBandNotFound},
		{"overview out of range", "/v1/rasters/demo/overview?band=1&level=5", http.StatusBadRequest, domain.CodeOverviewOutOfRange},
		{"missing resampling", "/v1/rasters/demo/bands/1/window?width=4&height=4&out_width=2&out_height=2&resampling=none", http.StatusBadRequest, domain.CodeMissingResample},
		{"unsupported resampling", "/v1/rasters/demo/bands/1/window?resampling=sharpest", http.StatusBadRequest, domain.CodeUnsupportedResamp},
		{"empty window", "/v1/rasters/demo/bands/1/window?x=8", http.StatusBadRequest, domain.CodeInvalidWindow},
		{"outside extent", "/v1/rasters/demo/bands/1/window?x=6&width=4&height=4", http.StatusBadRequest, domain.CodeOutsideExtent},
		{"outside extent bulk stack", "/v1/rasters/demo/stack?x=6&width=4&height=4&mode=bulk", http.StatusBadRequest, domain.CodeOutsideExtent},
		{"oversized read", "/v1/rasters/demo/bands/1/window?width=100000&height=100000", http.StatusBadRequest, CodeInvalidParameter},
		{"oversized output", "/v1/rasters/demo/bands/1/window?out_width=100000&out_height=100000&resampling=nearest", http.StatusBadRequest, CodeInvalidParameter},
		{"overflowing output", "/v1/rasters/demo/bands/1/window?out_width=4294967296&out_height=4294967296&resampling=nearest", http.StatusBadRequest, CodeInvalidParameter},
		{"oversized stack output", "/v1/rasters/demo/stack?out_width=100000&out_height=100000&resampling=nearest", http.StatusBadRequest, CodeInvalidParameter},
		{"stack over total samples", "/v1/rasters/demo/stack?out_width=4096&out_height=2048&resampling=nearest", http.StatusBadRequest, CodeInvalidParameter},
		{"bad mode", "/v1/rasters/demo/stack?mode=fast", http.StatusBadRequest, CodeInvalidParameter},
		{"bad preview size", "/v1/rasters/demo/preview.png?max_size=0", http.StatusBadRequest, CodeInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, router, tt.url)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.status, w.Body.String())
			}
			var body errorBody
			decode(t, w, &body)
			if body.Code != tt.code {
				t.Errorf("code = %s, want %s (%s)", body.Code, tt.code, body.Error)
			}
			if body.Error == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestGetOverview(t *testing.T) {
	router := setupTestRouter(t)

	w := get(t, router, "/v1/rasters/demo/overview?band=3&level=1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var body windowBody
	decode(t, w, &body)
	if body.Shape != [2]int{2, 2} || body.Band != 3 || body.Level != 1 {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestGetStackModesAgree(t *testing.T) {
	router := setupTestRouter(t)

	var first stackBody
	for i, mode := range []string{"sequential", "parallel", "bulk"} {
		w := get(t, router, "/v1/rasters/demo/stack?out_width=4&out_height=4&mode="+mode)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status = %d: %s", mode, w.Code, w.Body.String())
		}
		var body stackBody
		decode(t, w, &body)
		if body.Mode != mode || body.Shape != [3]int{3, 4, 4} {
			t.Fatalf("%s: unexpected body mode=%s shape=%v", mode, body.Mode, body.Shape)
		}
		if i == 0 {
			first = body
			continue
		}
		for b := range body.Data {
			for r := range body.Data[b] {
				for c := range body.Data[b][r] {
					if body.Data[b][r][c] != first.Data[b][r][c] {
						t.Fatalf("%s differs from sequential at (%d,%d,%d)", mode, b, r, c)
					}
				}
			}
		}
	}

	// Band 2, output (0,0) averages source rows 0-1 and cols 0-1.
	if got, want := first.Data[1][0][0], 2e6+500.5; got != want {
		t.Errorf("band 2 (0,0) = %v, want %v", got, want)
	}
}

func TestGetPreview(t *testing.T) {
	router := setupTestRouter(t)

	w := get(t, router, "/v1/rasters/demo/preview.png?max_size=4")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	img, err := png.Decode(w.Body)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 4 {
		t.Errorf("preview size = %dx%d, want 4x4", b.Dx(), b.Dy())
	}
}

func TestRequestID(t *testing.T) {
	router := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if got := w.Header().Get(requestIDHeader); got != "abc-123" {
		t.Errorf("request id = %q, want abc-123", got)
	}

	w = get(t, router, "/health")
	if _, err := uuid.Parse(w.Header().Get(requestIDHeader)); err != nil {
		t.Errorf("generated request id is not a UUID: %v", err)
	}
}

func TestSampleJSON(t *testing.T) {
	out, err := json.Marshal([]sample{1.5, sample(math.NaN()), sample(math.Inf(1)), -2})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != "[1.5,null,null,-2]" {
		t.Errorf("got %s", out)
	}
}
