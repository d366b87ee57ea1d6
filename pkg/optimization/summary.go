// Package optimization provides shared data structures for optimization results.
package optimization

import (
	"github.com/iwvelando/carshare-tariff/internal/objective"
	"github.com/iwvelando/carshare-tariff/internal/tariff"
)

// Summary captures the result of a single tariff optimization.
type Summary struct {
	RunID               string               `json:"runId"`
	Variant             string               `json:"variant"`
	Status              string               `json:"status"`
	Converged           bool                 `json:"converged"`
	Message             string               `json:"message"`
	Iterations          int                  `json:"iterations"`
	Dimensions          []string             `json:"dimensions"`
	Tariff              tariff.Parameters    `json:"tariff"`
	Objective           float64              `json:"objective"`
	Components          objective.Components `json:"components"`
	Weights             objective.Weights    `json:"weights"`
	FixedMonthlyFee     float64              `json:"fixedMonthlyFee"`
	LeasePerCarPerMonth float64              `json:"leasePerCarPerMonth"`
	DefaultLeasedCars   int                  `json:"defaultLeasedCars"`
	MappedCooperatives  int                  `json:"mappedCooperatives"`
	CoopMonths          int                  `json:"coopMonths"`
	WorstGap            float64              `json:"worstGap"`
	FractionFeasible    float64              `json:"fractionFeasible"`
	Notes               []string             `json:"notes,omitempty"`
}

// Feasible reports whether every cooperative-month covered its lease.
func (s Summary) Feasible() bool {
	return s.CoopMonths == 0 || s.FractionFeasible >= 1
}
