// Package testutil provides common fixtures and helpers for testing.
package testutil

import (
	"github.com/iwvelando/carshare-tariff/internal/engine"
	"github.com/iwvelando/carshare-tariff/internal/objective"
	"github.com/iwvelando/carshare-tariff/internal/tariff"
	"github.com/iwvelando/carshare-tariff/internal/usage"
)

// Cooperative is the fixture cooperative. It is not in the lease table, so it
// leases the default single car.
const Cooperative = "Testbuurt"

// UsageFixture returns two months of usage for three households. Month
// 2026-01 covers a 660 lease at maximum prices; 2026-02 does not.
func UsageFixture() []usage.Record {
	return []usage.Record{
		{Cooperative: Cooperative, Month: "2026-01", HouseholdID: "1", Hours: 10, Km: 50, Rides: 3,
			HoursRegular: 6, HoursOffpeak: 2, HoursWeekend: 2},
		{Cooperative: Cooperative, Month: "2026-01", HouseholdID: "2", Hours: 20, Km: 100, Rides: 5,
			HoursRegular: 10, HoursOffpeak: 5, HoursWeekend: 5},
		{Cooperative: Cooperative, Month: "2026-01", HouseholdID: "3", Hours: 40, Km: 300, Rides: 8,
			HoursRegular: 20, HoursOffpeak: 10, HoursWeekend: 10},
		{Cooperative: Cooperative, Month: "2026-02", HouseholdID: "1", Hours: 10, Km: 50, Rides: 2,
			HoursRegular: 10},
	}
}

// LeaseFixture charges 660 per car with a single default car.
func LeaseFixture() objective.LeaseTable {
	return objective.LeaseTable{PerCarPerMonth: 660, DefaultCars: 1}
}

// SettingsFixture returns engine settings over the default bounds with a
// small iteration budget.
func SettingsFixture() engine.Settings {
	return engine.Settings{
		Bounds:          tariff.DefaultBounds(),
		Seed:            tariff.DefaultSeed(),
		Neutral:         tariff.DefaultNeutral(),
		Lease:           LeaseFixture(),
		FixedMonthlyFee: 25,
		MaxIterations:   200,
	}
}

// ServiceFixture returns a service over UsageFixture.
func ServiceFixture() (*engine.Service, error) {
	return engine.NewService(nil, engine.NewContextFromUsage(UsageFixture()), SettingsFixture())
}

// FindReport finds a report by variant name.
// Returns a pointer to the report if found, nil otherwise.
func FindReport(reports []engine.Report, variant string) *engine.Report {
	for i := range reports {
		if reports[i].Summary.Variant == variant {
			return &reports[i]
		}
	}
	return nil
}
