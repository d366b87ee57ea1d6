// Package objective scores a set of household costs and checks whether each
// cooperative-month covers its vehicle lease.
package objective

import (
	"fmt"
	"math"

	"github.com/iwvelando/carshare-tariff/internal/tariff"
	"github.com/iwvelando/carshare-tariff/pkg/constants"
	"github.com/iwvelando/carshare-tariff/pkg/mathutil"
)

// Weights combine the objective components into one score.
type Weights struct {
	Heavy           float64 `json:"heavy" mapstructure:"heavy"`
	Proportionality float64 `json:"proportionality" mapstructure:"proportionality"`
	Overall         float64 `json:"overall" mapstructure:"overall"`
}

// DefaultWeights balances heavy-user affordability and proportionality.
func DefaultWeights() Weights {
	return Weights{Heavy: 1.0, Proportionality: 1.0, Overall: 0.2}
}

// RequestWeights are applied when an HTTP caller omits a weight.
func RequestWeights() Weights {
	return Weights{Heavy: 0, Proportionality: 0, Overall: 0.2}
}

// Components are the individual objective terms.
type Components struct {
	Heavy           float64 `json:"heavy"`
	Proportionality float64 `json:"proportionality"`
	Overall         float64 `json:"overall"`
}

// Score returns the weighted sum of c.
func (w Weights) Score(c Components) float64 {
	return w.Heavy*c.Heavy + w.Proportionality*c.Proportionality + w.Overall*c.Overall
}

// Validate rejects negative and non-finite weights.
func (w Weights) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"heavy", w.Heavy},
		{"proportionality", w.Proportionality},
		{"overall", w.Overall},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%s weight must be finite, got %v", f.name, f.value)
		}
		if f.value < 0 {
			return fmt.Errorf("%s weight must not be negative, got %v", f.name, f.value)
		}
	}
	return nil
}

// UsageScore converts hours to km-equivalents and adds distance.
func UsageScore(r tariff.CostRecord) float64 {
	return r.Km + constants.HourToKmEquivalent*r.Hours
}

// EffectivePrice is cost per usage unit with a floored denominator.
func EffectivePrice(r tariff.CostRecord) float64 {
	return r.Cost / mathutil.Floor(UsageScore(r), constants.Epsilon)
}

// HeavyUserAffordability is the mean effective price of households at or
// above the usage-score quantile that marks the heaviest users.
func HeavyUserAffordability(costs []tariff.CostRecord) float64 {
	if len(costs) == 0 {
		return 0
	}
	scores := make([]float64, len(costs))
	for i, r := range costs {
		scores[i] = UsageScore(r)
	}
	threshold := mathutil.Quantile(scores, 1-constants.HeavyUserQuantile)
	sum := 0.0
	n := 0
	for i, r := range costs {
		if scores[i] >= threshold {
			sum += EffectivePrice(r)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Proportionality is the mean squared difference between each household's
// share of total cost and its share of total usage.
func Proportionality(costs []tariff.CostRecord) float64 {
	if len(costs) == 0 {
		return 0
	}
	usageSum := 0.0
	costSum := 0.0
	for _, r := range costs {
		usageSum += UsageScore(r)
		costSum += r.Cost
	}
	if usageSum <= constants.Epsilon || costSum <= constants.Epsilon {
		return 0
	}
	total := 0.0
	for _, r := range costs {
		d := r.Cost/costSum - UsageScore(r)/usageSum
		total += d * d
	}
	return total / float64(len(costs))
}

// OverallEffectivePrice is the mean effective price across households.
func OverallEffectivePrice(costs []tariff.CostRecord) float64 {
	if len(costs) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range costs {
		sum += EffectivePrice(r)
	}
	return sum / float64(len(costs))
}

// Evaluate computes every component.
func Evaluate(costs []tariff.CostRecord) Components {
	return Components{
		Heavy:           HeavyUserAffordability(costs),
		Proportionality: Proportionality(costs),
		Overall:         OverallEffectivePrice(costs),
	}
}
