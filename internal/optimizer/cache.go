package optimizer

import (
	"github.com/iwvelando/carshare-tariff/internal/tariff"
	"github.com/iwvelando/carshare-tariff/internal/usage"
)

// costCache remembers the costs of the most recent point so the objective
// and every constraint evaluated at that point share one computation.
type costCache struct {
	model   tariff.CostModel
	builder tariff.Builder
	records []usage.Record

	x           []float64
	cost        []tariff.CostRecord
	byCoopMonth map[usage.CoopMonth]float64
	misses      int
}

func newCostCache(model tariff.CostModel, builder tariff.Builder, records []usage.Record) *costCache {
	return &costCache{model: model, builder: builder, records: records}
}

func (c *costCache) refresh(x []float64) {
	if c.cost != nil && equalVectors(c.x, x) {
		return
	}
	c.misses++
	params, err := c.builder.Merge(x)
	if err != nil {
		// Only reachable with a malformed vector.
		params = c.builder.Neutral()
	}
	c.x = append(c.x[:0], x...)
	c.cost = c.model.Costs(c.records, params)
	c.revenueByCoopMonth()
}

func (c *costCache) revenueByCoopMonth() {
	c.byCoopMonth = make(map[usage.CoopMonth]float64)
	for _, r := range c.cost {
		c.byCoopMonth[r.CoopMonth()] += r.Cost
	}
}

func (c *costCache) costs(x []float64) []tariff.CostRecord {
	c.refresh(x)
	return c.cost
}

func (c *costCache) revenue(x []float64) map[usage.CoopMonth]float64 {
	c.refresh(x)
	return c.byCoopMonth
}

func equalVectors(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
