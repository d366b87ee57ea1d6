package simulator

import (
	"math"
	"reflect"
	"sort"
	"testing"

	"github.com/iwvelando/carshare-tariff/internal/distribution"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/stat"
)

// fixedRateProfile rides a fixed share of days so counts are predictable.
func fixedRateProfile(r, weekdayRate, weekendRate float64) Profile {
	return Profile{
		Name: "test",
		StartTime: []distribution.Component{
			{Weight: 0.5, Mean: 8, StdDev: 1},
			{Weight: 0.5, Mean: 17, StdDev: 1.5},
		},
		Duration:     distribution.LogNormal{Mu: 0.9, Sigma: 0.5},
		Distance:     distribution.LogNormal{Mu: 3.2, Sigma: 0.6},
		Correlation:  r,
		WeekdayRides: distribution.BetaRate{Alpha: 2, Beta: 2, Min: weekdayRate, Max: weekdayRate},
		WeekendRides: distribution.BetaRate{Alpha: 2, Beta: 2, Min: weekendRate, Max: weekendRate},
	}
}

func mustGenerator(t *testing.T, p Profile, seed uint64) *RideGenerator {
	t.Helper()
	g, err := NewRideGenerator(nil, p, seed, 0)
	if err != nil {
		t.Fatalf("NewRideGenerator returned error: %v", err)
	}
	return g
}

func TestSimulateMonthCountsAndOrder(t *testing.T) {
	g := mustGenerator(t, fixedRateProfile(0.5, 0.5, 0.5), 42)
	rides := g.SimulateMonth(22, 8)
	if len(rides) != 15 {
		t.Fatalf("expected 11 weekday + 4 weekend rides, got %d", len(rides))
	}
	for i, r := range rides {
		if r.IsWeekend != (i >= 11) {
			t.Fatalf("ride %d weekend flag %v out of order", i, r.IsWeekend)
		}
		if r.StartHour < 0 || r.StartHour >= 24 {
			t.Fatalf("ride %d start hour %v outside [0, 24)", i, r.StartHour)
		}
		if r.Hours <= 0 || r.Km <= 0 {
			t.Fatalf("ride %d has non-positive hours %v or km %v", i, r.Hours, r.Km)
		}
		if r.IsOffpeak != IsOffpeakHour(r.StartHour) {
			t.Fatalf("ride %d off-peak flag disagrees with start hour %v", i, r.StartHour)
		}
	}

	if got := g.SimulateMonth(0, 0); len(got) != 0 {
		t.Fatalf("expected no rides without days, got %d", len(got))
	}
}

func TestRideCountRoundsHalfToEven(t *testing.T) {
	tests := []struct {
		days     int
		rate     float64
		expected int
	}{
		{22, 0.5, 11},
		{5, 0.5, 2},
		{7, 0.5, 4},
		{8, 0.3, 2},
		{0, 0.9, 0},
		{10, 0, 0},
	}
	for _, tt := range tests {
		if got := rideCount(tt.days, tt.rate); got != tt.expected {
			t.Errorf("rideCount(%d, %v) = %d, expected %d", tt.days, tt.rate, got, tt.expected)
		}
	}
}

func TestRideGeneratorDeterminism(t *testing.T) {
	p := fixedRateProfile(0.7, 0.4, 0.6)

	a := mustGenerator(t, p, 7).SimulateMonth(22, 8)
	b := mustGenerator(t, p, 7).SimulateMonth(22, 8)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed produced different rides")
	}

	g := mustGenerator(t, p, 7)
	g.SimulateMonth(22, 8)
	g.Reseed(7)
	if !reflect.DeepEqual(a, g.SimulateMonth(22, 8)) {
		t.Fatalf("reseeding did not restart the stream")
	}

	c := mustGenerator(t, p, 8).SimulateMonth(22, 8)
	if reflect.DeepEqual(a, c) {
		t.Fatalf("different seeds produced identical rides")
	}

	other, err := NewRideGenerator(nil, p, 7, 1)
	if err != nil {
		t.Fatalf("NewRideGenerator returned error: %v", err)
	}
	if reflect.DeepEqual(a, other.SimulateMonth(22, 8)) {
		t.Fatalf("different streams produced identical rides")
	}
}

// ranks returns the rank of each value; draws are continuous so ties do not occur.
func ranks(values []float64) []float64 {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })
	out := make([]float64, len(values))
	for rank, i := range idx {
		out[i] = float64(rank)
	}
	return out
}

func spearman(rides []Ride) float64 {
	hours := make([]float64, len(rides))
	km := make([]float64, len(rides))
	for i, r := range rides {
		hours[i] = r.Hours
		km[i] = r.Km
	}
	return stat.Correlation(ranks(hours), ranks(km), nil)
}

func TestDurationDistanceCorrelation(t *testing.T) {
	tests := []struct {
		name   string
		r      float64
		lo, hi float64
	}{
		{"Fully coupled", 1, 0.999, 1.0001},
		{"Independent", 0, -0.1, 0.1},
		{"Partially coupled", 0.7, 0.85, 0.97},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := mustGenerator(t, fixedRateProfile(tt.r, 2, 0), 42)
			rides := g.SimulateMonth(1000, 0)
			if len(rides) != 2000 {
				t.Fatalf("expected 2000 rides, got %d", len(rides))
			}
			rho := spearman(rides)
			if rho < tt.lo || rho > tt.hi {
				t.Fatalf("Spearman correlation %v outside [%v, %v]", rho, tt.lo, tt.hi)
			}
		})
	}
}

func TestNewRideGeneratorErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Profile)
	}{
		{"Missing duration", func(p *Profile) { p.Duration = nil }},
		{"Correlation above one", func(p *Profile) { p.Correlation = 1.2 }},
		{"Bad weekday beta", func(p *Profile) { p.WeekdayRides.Alpha = 0 }},
		{"Inverted weekend interval", func(p *Profile) { p.WeekendRides.Min = 2 }},
		{"Empty mixture", func(p *Profile) { p.StartTime = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := fixedRateProfile(0.5, 0.5, 0.5)
			tt.mutate(&p)
			if _, err := NewRideGenerator(nil, p, 1, 0); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}

func TestIsOffpeakHour(t *testing.T) {
	tests := []struct {
		hour     float64
		expected bool
	}{
		{8.99, false},
		{9, true},
		{12.5, true},
		{16, true},
		{16.01, false},
		{18.49, false},
		{18.5, true},
		{23.9, true},
		{2, false},
	}
	for _, tt := range tests {
		if got := IsOffpeakHour(tt.hour); got != tt.expected {
			t.Errorf("IsOffpeakHour(%v) = %v, expected %v", tt.hour, got, tt.expected)
		}
	}
}

type countingProgress struct {
	calls int
}

func (c *countingProgress) Add(n int) error {
	c.calls += n
	return nil
}

func TestCooperativeSimulator(t *testing.T) {
	p := fixedRateProfile(0.5, 0.5, 0.5)
	cohorts := []Cohort{
		{Households: 2, Generator: mustGenerator(t, p, 1)},
		{Households: 3, Generator: mustGenerator(t, p, 2)},
	}
	progress := &countingProgress{}
	core, logs := observer.New(zap.InfoLevel)

	sim, err := NewCooperativeSimulator(zap.New(core), "Testbuurt", cohorts,
		WithStartMonth("2026-11"), WithDays(22, 8), WithProgress(progress))
	if err != nil {
		t.Fatalf("NewCooperativeSimulator returned error: %v", err)
	}
	if sim.Households() != 5 {
		t.Fatalf("expected 5 households, got %d", sim.Households())
	}

	rides, err := sim.Simulate(3)
	if err != nil {
		t.Fatalf("Simulate returned error: %v", err)
	}
	if len(rides) != 3*5*15 {
		t.Fatalf("expected %d rides, got %d", 3*5*15, len(rides))
	}
	if progress.calls != 3 {
		t.Fatalf("expected 3 progress updates, got %d", progress.calls)
	}

	ids := map[string]map[string]bool{}
	for _, r := range rides {
		if r.Cooperative != "Testbuurt" {
			t.Fatalf("unexpected cooperative %q", r.Cooperative)
		}
		if ids[r.Month] == nil {
			ids[r.Month] = map[string]bool{}
		}
		ids[r.Month][r.HouseholdID] = true
	}
	want := map[string]bool{"0": true, "1": true, "2": true, "3": true, "4": true}
	for _, month := range []string{"2026-11", "2026-12", "2027-01"} {
		if !reflect.DeepEqual(ids[month], want) {
			t.Fatalf("month %s has household ids %v, expected 0..4", month, ids[month])
		}
	}
	if rides[0].MonthIndex != 0 || rides[len(rides)-1].MonthIndex != 2 {
		t.Fatalf("unexpected month indices %d..%d", rides[0].MonthIndex, rides[len(rides)-1].MonthIndex)
	}
	if logs.FilterMessage("simulated cooperative").Len() != 1 {
		t.Fatalf("expected one summary log entry")
	}
}

func TestCooperativeSimulatorErrors(t *testing.T) {
	if _, err := NewCooperativeSimulator(nil, "x", []Cohort{{Households: 1}}); err == nil {
		t.Fatalf("expected an error for a cohort without generator")
	}
	g := mustGenerator(t, fixedRateProfile(0.5, 0.5, 0.5), 1)
	if _, err := NewCooperativeSimulator(nil, "x", []Cohort{{Households: 1, Generator: g}}, WithDays(-1, 8)); err == nil {
		t.Fatalf("expected an error for negative days")
	}
	sim, err := NewCooperativeSimulator(nil, "x", []Cohort{{Households: 1, Generator: g}}, WithStartMonth("bad"))
	if err != nil {
		t.Fatalf("NewCooperativeSimulator returned error: %v", err)
	}
	if _, err := sim.Simulate(1); err == nil {
		t.Fatalf("expected an error for an invalid start month")
	}
	if rides, err := sim.Simulate(0); err != nil || len(rides) != 0 {
		t.Fatalf("expected no rides and no error for zero months, got %d rides and %v", len(rides), err)
	}
}

func TestSimulateMonthMeanRate(t *testing.T) {
	p := fixedRateProfile(0.5, 0, 0)
	p.WeekdayRides = distribution.BetaRate{Alpha: 2, Beta: 2, Min: 0, Max: 1}
	g := mustGenerator(t, p, 3)
	total := 0
	const months = 2000
	for i := 0; i < months; i++ {
		total += len(g.SimulateMonth(20, 0))
	}
	mean := float64(total) / months
	if math.Abs(mean-10) > 0.5 {
		t.Fatalf("expected about 10 rides per month at a Beta(2,2) rate, got %v", mean)
	}
}
