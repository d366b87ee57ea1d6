package objective

import (
	"math"
	"sort"

	"github.com/iwvelando/carshare-tariff/internal/tariff"
	"github.com/iwvelando/carshare-tariff/internal/usage"
	"github.com/iwvelando/carshare-tariff/pkg/constants"
)

// LeaseTable maps cooperatives to their leased car counts.
type LeaseTable struct {
	PerCarPerMonth float64
	DefaultCars    int
	Cars           map[string]int
}

// DefaultLeaseTable returns the stock lease table.
func DefaultLeaseTable() LeaseTable {
	return LeaseTable{
		PerCarPerMonth: constants.DefaultLeasePerCarPerMonth,
		DefaultCars:    constants.DefaultLeasedCars,
		Cars: map[string]int{
			"Bloemenbuurt DEELt":      1,
			"Spaarndammerbuurt DEELt": 1,
			"FlexDeel":                1,
			"Bezuidenhout":            3,
		},
	}
}

// CarsFor returns the car count of coop, falling back to DefaultCars.
func (l LeaseTable) CarsFor(coop string) int {
	if n, ok := l.Cars[coop]; ok {
		return n
	}
	return l.DefaultCars
}

// Mapped reports whether coop has an explicit entry.
func (l LeaseTable) Mapped(coop string) bool {
	_, ok := l.Cars[coop]
	return ok
}

// Required returns the monthly lease owed by coop.
func (l LeaseTable) Required(coop string) float64 {
	return float64(l.CarsFor(coop)) * l.PerCarPerMonth
}

// Gap is one cooperative-month's revenue minus its required lease.
type Gap struct {
	Cooperative string  `json:"cooperative"`
	Month       string  `json:"month"`
	Revenue     float64 `json:"revenue"`
	Required    float64 `json:"required"`
	Gap         float64 `json:"gap"`
}

// Feasible reports whether revenue covers the lease within tolerance.
func (g Gap) Feasible() bool {
	return g.Gap >= -constants.FeasibilityTolerance
}

// Gaps sums revenue per cooperative-month and subtracts the lease.
func Gaps(costs []tariff.CostRecord, lease LeaseTable) []Gap {
	revenue := make(map[usage.CoopMonth]float64)
	for _, r := range costs {
		revenue[r.CoopMonth()] += r.Cost
	}
	gaps := make([]Gap, 0, len(revenue))
	for cm, rev := range revenue {
		required := lease.Required(cm.Cooperative)
		gaps = append(gaps, Gap{
			Cooperative: cm.Cooperative,
			Month:       cm.Month,
			Revenue:     rev,
			Required:    required,
			Gap:         rev - required,
		})
	}
	sort.Slice(gaps, func(i, j int) bool {
		if gaps[i].Cooperative != gaps[j].Cooperative {
			return gaps[i].Cooperative < gaps[j].Cooperative
		}
		return gaps[i].Month < gaps[j].Month
	})
	return gaps
}

// GapSummary condenses a set of gaps.
type GapSummary struct {
	CoopMonths       int     `json:"coopMonths"`
	WorstGap         float64 `json:"worstGap"`
	FractionFeasible float64 `json:"fractionFeasible"`
}

// Summarize reports the worst gap and the share of feasible coop-months.
// An empty set summarizes to zero values.
func Summarize(gaps []Gap) GapSummary {
	if len(gaps) == 0 {
		return GapSummary{}
	}
	worst := math.Inf(1)
	feasible := 0
	for _, g := range gaps {
		worst = math.Min(worst, g.Gap)
		if g.Feasible() {
			feasible++
		}
	}
	return GapSummary{
		CoopMonths:       len(gaps),
		WorstGap:         worst,
		FractionFeasible: float64(feasible) / float64(len(gaps)),
	}
}

// Worst returns up to n gaps ordered from the largest deficit.
func Worst(gaps []Gap, n int) []Gap {
	sorted := append([]Gap(nil), gaps...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Gap < sorted[j].Gap
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
