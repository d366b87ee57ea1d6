// Package validation provides configuration validation utilities.
package validation

import (
	"fmt"

	"github.com/iwvelando/carshare-tariff/pkg/mathutil"
)

// mixtureWeightTolerance is how far mixture weights may sum from 1 before a
// warning is raised.
const mixtureWeightTolerance = 0.01

// MixtureWeightWarning flags time-of-day mixtures whose weights do not sum to
// one. Such mixtures are still usable: the cumulative table is clamped at 1.
func MixtureWeightWarning(archetype string, weights []float64) string {
	if len(weights) == 0 {
		return ""
	}
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if mathutil.WithinTolerance(sum, 1, mixtureWeightTolerance) {
		return ""
	}
	return fmt.Sprintf("Archetype '%s' start-time weights sum to %.3f instead of 1 - the cumulative table will be clamped or never reach 1",
		archetype, sum)
}

// PinnedDiscountWarning flags a discount the variant does not optimize but
// whose neutral value still discounts every ride.
func PinnedDiscountWarning(variant, dimension string, neutral float64) string {
	if neutral == 0 {
		return ""
	}
	return fmt.Sprintf("Variant %s does not optimize %s but its neutral value is %.3f - the discount still applies",
		variant, dimension, neutral)
}

// SeedBoundsWarning flags a solver seed outside its bounds.
func SeedBoundsWarning(dimension string, seed, lo, hi float64) string {
	if seed >= lo && seed <= hi {
		return ""
	}
	return fmt.Sprintf("Seed %s = %.3f lies outside [%.3f, %.3f] and will be clamped", dimension, seed, lo, hi)
}
