package engine

import (
	"math"
	"sort"

	"github.com/iwvelando/carshare-tariff/internal/tariff"
	"github.com/iwvelando/carshare-tariff/internal/usage"
	"github.com/iwvelando/carshare-tariff/pkg/mathutil"
	"gonum.org/v1/gonum/stat"
)

// HouseholdInsight summarizes one household id over every replication and
// month it appears in.
type HouseholdInsight struct {
	HouseholdID   string  `json:"householdId"`
	Samples       int     `json:"samples"`
	CostMean      float64 `json:"costMean"`
	CostCIHalf    float64 `json:"costCIHalf"`
	HoursMean     float64 `json:"hoursMean"`
	HoursCIHalf   float64 `json:"hoursCIHalf"`
	KmMean        float64 `json:"kmMean"`
	KmCIHalf      float64 `json:"kmCIHalf"`
	OvershootMean float64 `json:"overshootMean"`
}

// Insight is the per-household view of an optimized tariff.
type Insight struct {
	Households []HouseholdInsight `json:"households"`
	BaseFee    float64            `json:"baseFee"`
}

// NewInsight groups costs by household id. Confidence half-widths are 95%
// intervals on the mean and zero for single samples. Overshoot is the hours
// above the heavy-user threshold of p.
func NewInsight(costs []tariff.CostRecord, p tariff.Parameters, baseFee float64) Insight {
	type samples struct {
		cost, hours, km, overshoot []float64
	}
	grouped := make(map[string]*samples)
	var ids []string
	for _, r := range costs {
		g, ok := grouped[r.HouseholdID]
		if !ok {
			g = &samples{}
			grouped[r.HouseholdID] = g
			ids = append(ids, r.HouseholdID)
		}
		g.cost = append(g.cost, r.Cost)
		g.hours = append(g.hours, r.Hours)
		g.km = append(g.km, r.Km)
		g.overshoot = append(g.overshoot, math.Max(r.Hours-p.HeavyThresholdHours, 0))
	}
	sort.Slice(ids, func(i, j int) bool { return usage.LessID(ids[i], ids[j]) })

	insight := Insight{Households: make([]HouseholdInsight, 0, len(ids)), BaseFee: baseFee}
	for _, id := range ids {
		g := grouped[id]
		n := len(g.cost)
		insight.Households = append(insight.Households, HouseholdInsight{
			HouseholdID:   id,
			Samples:       n,
			CostMean:      stat.Mean(g.cost, nil),
			CostCIHalf:    halfWidth(g.cost),
			HoursMean:     stat.Mean(g.hours, nil),
			HoursCIHalf:   halfWidth(g.hours),
			KmMean:        stat.Mean(g.km, nil),
			KmCIHalf:      halfWidth(g.km),
			OvershootMean: stat.Mean(g.overshoot, nil),
		})
	}
	return insight
}

func halfWidth(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return mathutil.ConfidenceHalfWidth(stat.StdDev(x, nil), len(x))
}
