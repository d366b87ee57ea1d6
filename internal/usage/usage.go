// Package usage collapses ride ledgers into per-household monthly usage.
package usage

import (
	"sort"
	"strconv"

	"github.com/iwvelando/carshare-tariff/internal/simulator"
)

// Record is one household's usage in one month. HoursRegular, HoursOffpeak
// and HoursWeekend always sum to Hours.
type Record struct {
	Cooperative  string  `json:"cooperative"`
	Month        string  `json:"month"`
	HouseholdID  string  `json:"householdId"`
	Hours        float64 `json:"hours"`
	Km           float64 `json:"km"`
	Rides        int     `json:"rides"`
	HoursRegular float64 `json:"hoursRegular"`
	HoursOffpeak float64 `json:"hoursOffpeak"`
	HoursWeekend float64 `json:"hoursWeekend"`
}

// Key identifies a record.
type Key struct {
	Cooperative string
	Month       string
	HouseholdID string
}

// CoopMonth identifies one cooperative's billing month.
type CoopMonth struct {
	Cooperative string `json:"cooperative"`
	Month       string `json:"month"`
}

// Key returns the grouping key of r.
func (r Record) Key() Key {
	return Key{Cooperative: r.Cooperative, Month: r.Month, HouseholdID: r.HouseholdID}
}

// CoopMonth returns the cooperative-month r is billed in.
func (r Record) CoopMonth() CoopMonth {
	return CoopMonth{Cooperative: r.Cooperative, Month: r.Month}
}

// Aggregate groups rides by cooperative, month and household. Each ride's
// hours land in exactly one bucket: weekend first, then off-peak, otherwise
// regular.
func Aggregate(rides []simulator.Ride) []Record {
	index := make(map[Key]int)
	var records []Record
	for _, ride := range rides {
		key := Key{Cooperative: ride.Cooperative, Month: ride.Month, HouseholdID: ride.HouseholdID}
		i, ok := index[key]
		if !ok {
			i = len(records)
			index[key] = i
			records = append(records, Record{
				Cooperative: ride.Cooperative,
				Month:       ride.Month,
				HouseholdID: ride.HouseholdID,
			})
		}
		r := &records[i]
		r.Rides++
		r.Km += ride.Km
		switch {
		case ride.IsWeekend:
			r.HoursWeekend += ride.Hours
		case ride.IsOffpeak:
			r.HoursOffpeak += ride.Hours
		default:
			r.HoursRegular += ride.Hours
		}
	}

	for i := range records {
		r := &records[i]
		if r.HoursRegular < 0 {
			r.HoursRegular = 0
		}
		r.Hours = r.HoursRegular + r.HoursOffpeak + r.HoursWeekend
	}

	Sort(records)
	return records
}

// Sort orders records by cooperative, month and household id. Numeric ids
// sort numerically.
func Sort(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Cooperative != b.Cooperative {
			return a.Cooperative < b.Cooperative
		}
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		return LessID(a.HouseholdID, b.HouseholdID)
	})
}

// LessID compares household ids, numerically when both are integers.
func LessID(a, b string) bool {
	ai, errA := strconv.Atoi(a)
	bi, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return ai < bi
	}
	if (errA == nil) != (errB == nil) {
		return errA == nil
	}
	return a < b
}

// CoopMonths returns the distinct cooperative-months of records in first
// appearance order.
func CoopMonths(records []Record) []CoopMonth {
	seen := make(map[CoopMonth]struct{})
	var out []CoopMonth
	for _, r := range records {
		cm := r.CoopMonth()
		if _, ok := seen[cm]; ok {
			continue
		}
		seen[cm] = struct{}{}
		out = append(out, cm)
	}
	return out
}
