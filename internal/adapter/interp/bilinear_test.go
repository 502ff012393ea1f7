package interp

import (
	"math"
	"testing"
)

func TestBilinearInterpolate(t *testing.T) {
	// Corners of a pixel-center cell: (0,0)=1, (1,0)=3, (0,1)=5, (1,1)=7.
	cell := GridCell{
		X0: 0, X1: 1,
		Y0: 0, Y1: 1,
		V00: 1, V10: 3,
		V01: 5, V11: 7,
	}

	tests := []struct {
		name     string
		x, y     float64
		expected float64
	}{
		{"top-left corner", 0, 0, 1},
		{"top-right corner", 1, 0, 3},
		{"bottom-left corner", 0, 1, 5},
		{"bottom-right corner", 1, 1, 7},
		{"center", 0.5, 0.5, 4},
		{"along top edge", 0.25, 0, 1.5},
		{"along left edge", 0, 0.75, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := BilinearInterpolate(cell, tt.x, tt.y)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("At (%.2f, %.2f): expected %.10f, got %.10f", tt.x, tt.y, tt.expected, result)
			}
		})
	}
}

func TestBilinearInterpolate_Errors(t *testing.T) {
	valid := GridCell{X0: 0, X1: 1, Y0: 0, Y1: 1}

	tests := []struct {
		name string
		cell GridCell
		x, y float64
	}{
		{"x left of cell", valid, -0.5, 0.5},
		{"x right of cell", valid, 1.5, 0.5},
		{"y above cell", valid, 0.5, -0.5},
		{"y below cell", valid, 0.5, 1.5},
		{"collapsed columns", GridCell{X0: 1, X1: 1, Y0: 0, Y1: 1}, 1, 0.5},
		{"inverted rows", GridCell{X0: 0, X1: 1, Y0: 1, Y1: 0}, 0.5, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := BilinearInterpolate(tt.cell, tt.x, tt.y); err == nil {
				t.Errorf("expected error for (%.1f, %.1f), got nil", tt.x, tt.y)
			}
		})
	}
}

func TestGridInterpolateAt(t *testing.T) {
	grid := Grid{
		Width:  3,
		Height: 3,
		Values: []float64{
			1, 2, 3,
			4, 5, 6,
			7, 8, 9,
		},
	}

	tests := []struct {
		name     string
		x, y     float64
		expected float64
	}{
		{"origin center", 0, 0, 1},
		{"pixel center", 1, 1, 5},
		{"last pixel center", 2, 2, 9},
		{"between four centers", 0.5, 0.5, 3},
		{"on last row", 1.5, 2, 8.5},
		{"clamped left", -3, 1, 4},
		{"clamped bottom right", 10, 10, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := grid.InterpolateAt(tt.x, tt.y)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("At (%.1f, %.1f): expected %.10f, got %.10f", tt.x, tt.y, tt.expected, result)
			}
		})
	}
}

func TestGridInterpolateAt_SingleColumn(t *testing.T) {
	grid := Grid{Width: 1, Height: 2, Values: []float64{10, 20}}

	result, err := grid.InterpolateAt(0.7, 0.5)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if math.Abs(result-15) > 1e-9 {
		t.Errorf("expected 15, got %v", result)
	}
}

func TestGridValidate(t *testing.T) {
	tests := []struct {
		name    string
		grid    Grid
		wantErr bool
	}{
		{"valid grid", Grid{Width: 3, Height: 2, Values: []float64{1, 2, 3, 4, 5, 6}}, false},
		{"single pixel", Grid{Width: 1, Height: 1, Values: []float64{1}}, false},
		{"zero width", Grid{Width: 0, Height: 2, Values: nil}, true},
		{"short buffer", Grid{Width: 2, Height: 2, Values: []float64{1, 2, 3}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.grid.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
