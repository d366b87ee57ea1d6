package distribution

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// BetaRate is a daily ride rate drawn from Beta(Alpha, Beta) rescaled into [Min, Max].
type BetaRate struct {
	Alpha float64 `json:"alpha" mapstructure:"alpha"`
	Beta  float64 `json:"beta" mapstructure:"beta"`
	Min   float64 `json:"min" mapstructure:"min"`
	Max   float64 `json:"max" mapstructure:"max"`
}

// Validate checks the shape parameters and the rescaling interval.
func (b BetaRate) Validate() error {
	if b.Alpha <= 0 || b.Beta <= 0 {
		return fmt.Errorf("beta shape parameters must be positive, got alpha=%.4f beta=%.4f", b.Alpha, b.Beta)
	}
	if b.Min < 0 {
		return fmt.Errorf("beta rate minimum %.4f must not be negative", b.Min)
	}
	if b.Min > b.Max {
		return fmt.Errorf("beta rate minimum %.4f exceeds maximum %.4f", b.Min, b.Max)
	}
	return nil
}

// Draw samples one rate using src.
func (b BetaRate) Draw(src rand.Source) float64 {
	x := distuv.Beta{Alpha: b.Alpha, Beta: b.Beta, Src: src}.Rand()
	return x*(b.Max-b.Min) + b.Min
}
