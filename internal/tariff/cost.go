package tariff

import (
	"github.com/iwvelando/carshare-tariff/internal/usage"
	"github.com/iwvelando/carshare-tariff/pkg/mathutil"
)

// CostRecord is a usage record with its computed monthly cost.
type CostRecord struct {
	usage.Record
	Cost float64 `json:"cost"`
}

// CostModel prices household-months.
type CostModel struct {
	FixedMonthlyFee float64
}

// HourCost returns the hour charges of u before the heavy-user discount.
func HourCost(u usage.Record, p Parameters) float64 {
	return p.HourRate*u.HoursRegular +
		p.HourRate*(1-p.OffpeakDiscountPct)*u.HoursOffpeak +
		p.HourRate*(1-p.WeekendDiscountPct)*u.HoursWeekend
}

// Cost returns the monthly cost of u under p. The heavy-user discount applies
// to hours above the threshold at the household's average effective hour rate.
func (m CostModel) Cost(u usage.Record, p Parameters) float64 {
	hourCost := HourCost(u, p)
	avgHourRate := 0.0
	if !mathutil.IsZero(u.Hours) {
		avgHourRate = hourCost / u.Hours
	}
	above := u.Hours - p.HeavyThresholdHours
	if above < 0 {
		above = 0
	}
	discount := p.HeavyDiscountPct * avgHourRate * above
	return m.FixedMonthlyFee + hourCost + p.KmRate*u.Km - discount
}

// Costs prices every record.
func (m CostModel) Costs(records []usage.Record, p Parameters) []CostRecord {
	out := make([]CostRecord, len(records))
	for i, r := range records {
		out[i] = CostRecord{Record: r, Cost: m.Cost(r, p)}
	}
	return out
}
