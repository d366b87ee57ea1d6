// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"
	"sort"

	"github.com/iwvelando/carshare-tariff/pkg/constants"
)

// Round rounds a value to two decimals, i.e. to represent real currency.
func Round(val float64) float64 {
	return math.Round(val*100) / 100
}

// IsZero reports whether a value is within Epsilon of zero.
func IsZero(val float64) bool {
	return math.Abs(val) <= constants.Epsilon
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// Clamp limits value to [lo, hi].
func Clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// Floor returns value, or floor when value is not above it.
func Floor(value, floor float64) float64 {
	if value <= floor {
		return floor
	}
	return value
}

// Quantile returns the p-quantile of values using linear interpolation
// between order statistics at position (n-1)p. The input is not modified.
func Quantile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	p = Clamp(p, 0, 1)
	pos := float64(len(sorted)-1) * p
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// ConfidenceHalfWidth returns std/sqrt(n)*ConfidenceZ, or 0 when n < 2 or the
// standard deviation is not a number.
func ConfidenceHalfWidth(std float64, n int) float64 {
	if n < 2 || math.IsNaN(std) {
		return 0
	}
	return std / math.Sqrt(float64(n)) * constants.ConfidenceZ
}
