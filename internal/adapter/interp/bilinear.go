// Package interp resamples row-major sample grids for sources that cannot resample natively.
package interp

import (
	"fmt"
	"math"
)

// GridCell is the rectangle between four neighbouring pixel centers.
type GridCell struct {
	X0, X1 float64 // Column coordinates of the left and right centers.
	Y0, Y1 float64 // Row coordinates of the top and bottom centers.

	// V00 is at (X0, Y0), V10 at (X1, Y0), V01 at (X0, Y1) and V11 at (X1, Y1).
	V00, V10, V01, V11 float64
}

// BilinearInterpolate evaluates
//
//	f(x,y) = (1-t)(1-u)V00 + t(1-u)V10 + (1-t)u*V01 + tu*V11
//
// with t = (x-X0)/(X1-X0) and u = (y-Y0)/(Y1-Y0).
func BilinearInterpolate(cell GridCell, x, y float64) (float64, error) {
	if cell.X1 <= cell.X0 {
		return 0, fmt.Errorf("invalid grid cell: X1 must be > X0")
	}
	if cell.Y1 <= cell.Y0 {
		return 0, fmt.Errorf("invalid grid cell: Y1 must be > Y0")
	}

	const epsilon = 1e-9
	if x < cell.X0-epsilon || x > cell.X1+epsilon {
		return 0, fmt.Errorf("x coordinate %.6f is outside grid cell [%.6f, %.6f]", x, cell.X0, cell.X1)
	}
	if y < cell.Y0-epsilon || y > cell.Y1+epsilon {
		return 0, fmt.Errorf("y coordinate %.6f is outside grid cell [%.6f, %.6f]", y, cell.Y0, cell.Y1)
	}

	t := (x - cell.X0) / (cell.X1 - cell.X0)
	u := (y - cell.Y0) / (cell.Y1 - cell.Y0)

	t = math.Max(0, math.Min(1, t))
	u = math.Max(0, math.Min(1, u))

	result := (1-t)*(1-u)*cell.V00 +
		t*(1-u)*cell.V10 +
		(1-t)*u*cell.V01 +
		t*u*cell.V11

	return result, nil
}

// Grid is a row-major block of samples addressed in pixel coordinates.
// Pixel (c, r) has its center at x=c, y=r.
type Grid struct {
	Width  int
	Height int
	Values []float64 // Values[r*Width+c].
}

// Validate checks that the grid is non-empty and its buffer matches its shape.
func (g Grid) Validate() error {
	if g.Width < 1 || g.Height < 1 {
		return fmt.Errorf("grid must be at least 1x1, got %dx%d", g.Width, g.Height)
	}
	if len(g.Values) != g.Width*g.Height {
		return fmt.Errorf("grid has %d values, expected %d", len(g.Values), g.Width*g.Height)
	}
	return nil
}

// At returns the sample at column c, row r.
func (g Grid) At(c, r int) float64 {
	return g.Values[r*g.Width+c]
}

// InterpolateAt evaluates the grid at fractional pixel-center coordinates.
// Coordinates beyond the outermost centers are clamped to the edge.
func (g Grid) InterpolateAt(x, y float64) (float64, error) {
	if err := g.Validate(); err != nil {
		return 0, fmt.Errorf("invalid grid: %w", err)
	}

	x = math.Max(0, math.Min(float64(g.Width-1), x))
	y = math.Max(0, math.Min(float64(g.Height-1), y))

	c0 := cellOrigin(x, g.Width)
	r0 := cellOrigin(y, g.Height)
	c1 := min(c0+1, g.Width-1)
	r1 := min(r0+1, g.Height-1)

	// A single column or row yields a cell whose far corners repeat the near ones.
	cell := GridCell{
		X0:  float64(c0),
		X1:  float64(c0 + 1),
		Y0:  float64(r0),
		Y1:  float64(r0 + 1),
		V00: g.At(c0, r0),
		V10: g.At(c1, r0),
		V01: g.At(c0, r1),
		V11: g.At(c1, r1),
	}

	return BilinearInterpolate(cell, x, y)
}

// cellOrigin returns the index of the left/top corner of the cell containing v.
func cellOrigin(v float64, n int) int {
	i := int(math.Floor(v))
	if i > n-2 {
		i = n - 2
	}
	if i < 0 {
		i = 0
	}
	return i
}
