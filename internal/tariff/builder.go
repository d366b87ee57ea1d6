package tariff

import "fmt"

// Builder converts between complete Parameters and the vector of dimensions a
// variant optimizes. Inactive dimensions always come from the neutral values.
type Builder struct {
	variant Variant
	dims    []Dimension
	neutral Parameters
}

// NewBuilder returns a Builder for v with the given neutral parameters.
func NewBuilder(v Variant, neutral Parameters) Builder {
	return Builder{variant: v, dims: v.Dimensions(), neutral: neutral}
}

// Dimensions returns the active dimensions in vector order.
func (b Builder) Dimensions() []Dimension {
	return append([]Dimension(nil), b.dims...)
}

// Len returns the number of active dimensions.
func (b Builder) Len() int {
	return len(b.dims)
}

// Vector extracts the active dimensions of p.
func (b Builder) Vector(p Parameters) []float64 {
	x := make([]float64, len(b.dims))
	for i, d := range b.dims {
		x[i] = p.Get(d)
	}
	return x
}

// Merge overlays x onto the neutral parameters.
func (b Builder) Merge(x []float64) (Parameters, error) {
	if len(x) != len(b.dims) {
		return Parameters{}, fmt.Errorf("variant %s expects %d values, got %d", b.variant, len(b.dims), len(x))
	}
	p := b.neutral
	for i, d := range b.dims {
		p = p.With(d, x[i])
	}
	return p, nil
}

// Intervals returns the bounds of the active dimensions in vector order.
func (b Builder) Intervals(bounds Bounds) []Interval {
	out := make([]Interval, len(b.dims))
	for i, d := range b.dims {
		out[i] = bounds.Get(d)
	}
	return out
}

// Neutral returns the values used for inactive dimensions.
func (b Builder) Neutral() Parameters {
	return b.neutral
}
