package mathutil

import (
	"math"
	"testing"
)

func TestRound(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected float64
	}{
		{"Round up at midpoint", 1.235, 1.24},
		{"Round down below midpoint", 1.234, 1.23},
		{"No rounding needed", 1.23, 1.23},
		{"Large number", 12345.678, 12345.68},
		{"Negative number", -1.234, -1.23},
		{"Zero", 0.0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Round(tt.input)
			if math.Abs(result-tt.expected) > 0.001 {
				t.Errorf("Round(%v) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestIsZero(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected bool
	}{
		{"Exactly zero", 0.0, true},
		{"Below epsilon", 1e-10, true},
		{"Negative below epsilon", -1e-10, true},
		{"Above epsilon", 1e-6, false},
		{"Large", 100.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := IsZero(tt.input); result != tt.expected {
				t.Errorf("IsZero(%v) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		lo, hi   float64
		expected float64
	}{
		{"Inside", 0.5, 0, 1, 0.5},
		{"Below", -2, 0, 1, 0},
		{"Above", 3, 0, 1, 1},
		{"On lower edge", 0, 0, 1, 0},
		{"Degenerate interval", 7, 2, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := Clamp(tt.value, tt.lo, tt.hi); result != tt.expected {
				t.Errorf("Clamp(%v, %v, %v) = %v, expected %v", tt.value, tt.lo, tt.hi, result, tt.expected)
			}
		})
	}
}

func TestFloor(t *testing.T) {
	if got := Floor(0, 1e-9); got != 1e-9 {
		t.Errorf("Floor(0) = %v, expected 1e-9", got)
	}
	if got := Floor(5, 1e-9); got != 5 {
		t.Errorf("Floor(5) = %v, expected 5", got)
	}
}

func TestQuantile(t *testing.T) {
	values := []float64{5, 1, 4, 2, 3}

	tests := []struct {
		name     string
		p        float64
		expected float64
	}{
		{"Minimum", 0, 1},
		{"Median", 0.5, 3},
		{"Maximum", 1, 5},
		{"Interpolated", 0.8, 4.2},
		{"Quarter", 0.25, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Quantile(values, tt.p)
			if !WithinTolerance(result, tt.expected, 1e-12) {
				t.Errorf("Quantile(%v) = %v, expected %v", tt.p, result, tt.expected)
			}
		})
	}

	if values[0] != 5 {
		t.Errorf("Quantile modified its input: %v", values)
	}
	if !math.IsNaN(Quantile(nil, 0.5)) {
		t.Errorf("expected NaN quantile for empty input")
	}
}

func TestConfidenceHalfWidth(t *testing.T) {
	tests := []struct {
		name     string
		std      float64
		n        int
		expected float64
	}{
		{"Four samples", 2, 4, 1.96},
		{"Single sample", 2, 1, 0},
		{"NaN std", math.NaN(), 10, 0},
		{"Zero std", 0, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConfidenceHalfWidth(tt.std, tt.n)
			if !WithinTolerance(result, tt.expected, 1e-12) {
				t.Errorf("ConfidenceHalfWidth(%v, %d) = %v, expected %v", tt.std, tt.n, result, tt.expected)
			}
		})
	}
}
