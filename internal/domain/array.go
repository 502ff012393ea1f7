package domain

import "fmt"

// Array2D is a dense row-major grid of samples for one band.
// Rows corresponds to the window's output height and Cols to its output width.
type Array2D struct {
	Rows int
	Cols int
	Data []float64
}

// NewArray2D wraps data as a rows x cols array. The element count must match.
func NewArray2D(rows, cols int, data []float64) (Array2D, error) {
	if rows < 0 || cols < 0 {
		return Array2D{}, fmt.Errorf("invalid array shape (%d, %d)", rows, cols)
	}
	if len(data) != rows*cols {
		return Array2D{}, &ShapeMismatchError{Expected: rows * cols, Actual: len(data)}
	}
	return Array2D{Rows: rows, Cols: cols, Data: data}, nil
}

// Shape returns (rows, cols).
func (a Array2D) Shape() (int, int) {
	return a.Rows, a.Cols
}

// At returns the sample at row r, column c.
func (a Array2D) At(r, c int) float64 {
	return a.Data[r*a.Cols+c]
}

// Row returns row r as a slice sharing the array's storage.
func (a Array2D) Row(r int) []float64 {
	return a.Data[r*a.Cols : (r+1)*a.Cols]
}

// Array3D is a dense band-major stack: Data[b*Rows*Cols + r*Cols + c].
type Array3D struct {
	Bands int
	Rows  int
	Cols  int
	Data  []float64
}

// Shape returns (bands, rows, cols).
func (a Array3D) Shape() (int, int, int) {
	return a.Bands, a.Rows, a.Cols
}

// At returns the sample of band b (0-based) at row r, column c.
func (a Array3D) At(b, r, c int) float64 {
	return a.Data[(b*a.Rows+r)*a.Cols+c]
}

// Band returns the 0-based band slice b as a 2D view over the stack's storage.
func (a Array3D) Band(b int) Array2D {
	n := a.Rows * a.Cols
	return Array2D{Rows: a.Rows, Cols: a.Cols, Data: a.Data[b*n : (b+1)*n]}
}

// Stack copies per-band arrays into one band-major Array3D in slice order.
// All bands must share the shape of the first one. An empty input yields a zero-band stack
// with the supplied fallback shape.
func Stack(bands []Array2D, rows, cols int) (Array3D, error) {
	if len(bands) == 0 {
		return Array3D{Bands: 0, Rows: rows, Cols: cols, Data: []float64{}}, nil
	}
	rows, cols = bands[0].Rows, bands[0].Cols
	n := rows * cols
	data := make([]float64, 0, len(bands)*n)
	for i, b := range bands {
		if b.Rows != rows || b.Cols != cols {
			return Array3D{}, &StackShapeMismatchError{
				Band:     i + 1,
				Expected: [2]int{rows, cols},
				Actual:   [2]int{b.Rows, b.Cols},
			}
		}
		data = append(data, b.Data...)
	}
	return Array3D{Bands: len(bands), Rows: rows, Cols: cols, Data: data}, nil
}
