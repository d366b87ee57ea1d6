package optimizer

import (
	"math"
	"strings"
	"testing"

	"github.com/iwvelando/carshare-tariff/internal/objective"
	"github.com/iwvelando/carshare-tariff/internal/tariff"
	"github.com/iwvelando/carshare-tariff/internal/usage"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func square(v float64) float64 { return v * v }

func paraboloid(x []float64) float64 {
	return square(x[0]-2) + square(x[1]-1)
}

func TestAugmentedLagrangianToyProblems(t *testing.T) {
	box := []tariff.Interval{{Min: 0, Max: 3}, {Min: 0, Max: 3}}

	tests := []struct {
		name        string
		objective   func([]float64) float64
		constraints []Constraint
		want        []float64
	}{
		{
			name:      "interior optimum",
			objective: paraboloid,
			want:      []float64{2, 1},
		},
		{
			name:      "active linear constraint",
			objective: paraboloid,
			constraints: []Constraint{
				func(x []float64) float64 { return x[0] + x[1] - 4 },
			},
			want: []float64{2.5, 1.5},
		},
		{
			name: "optimum outside the box",
			objective: func(x []float64) float64 {
				return square(x[0]-5) + square(x[1]+2)
			},
			want: []float64{3, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			solver := &AugmentedLagrangian{}
			sol, err := solver.Minimize(Problem{
				Objective:   tt.objective,
				Bounds:      box,
				Constraints: tt.constraints,
			}, []float64{0.5, 0.5}, 2000)
			if err != nil {
				t.Fatalf("Minimize returned error: %v", err)
			}
			for i := range tt.want {
				if math.Abs(sol.X[i]-tt.want[i]) > 0.02 {
					t.Fatalf("x = %v, expected close to %v (message %q)", sol.X, tt.want, sol.Message)
				}
			}
			if sol.MaxViolation > 1e-3 {
				t.Fatalf("expected a feasible point, violation %v", sol.MaxViolation)
			}
		})
	}
}

func TestAugmentedLagrangianIterationLimit(t *testing.T) {
	box := []tariff.Interval{{Min: 0, Max: 3}, {Min: 0, Max: 3}}
	solver := &AugmentedLagrangian{}

	sol, err := solver.Minimize(Problem{
		Objective: paraboloid,
		Bounds:    box,
		Constraints: []Constraint{
			func(x []float64) float64 { return x[0] + x[1] - 4 },
		},
	}, []float64{0.1, 0.1}, 5)
	if err != nil {
		t.Fatalf("Minimize returned error: %v", err)
	}
	if sol.Converged {
		t.Fatalf("expected no convergence within 5 iterations")
	}
	if !strings.HasPrefix(sol.Message, "Iteration limit reached") {
		t.Fatalf("unexpected message %q", sol.Message)
	}
	for i, iv := range box {
		if !iv.Contains(sol.X[i]) {
			t.Fatalf("x[%d] = %v outside %v", i, sol.X[i], iv)
		}
	}
}

func TestAugmentedLagrangianIncompatibleConstraints(t *testing.T) {
	box := []tariff.Interval{{Min: 0, Max: 3}}
	solver := &AugmentedLagrangian{}

	sol, err := solver.Minimize(Problem{
		Objective: func(x []float64) float64 { return x[0] },
		Bounds:    box,
		Constraints: []Constraint{
			func(x []float64) float64 { return x[0] - 10 },
		},
	}, []float64{1}, 5000)
	if err != nil {
		t.Fatalf("Minimize returned error: %v", err)
	}
	if sol.Converged {
		t.Fatalf("expected an infeasible problem not to converge")
	}
	if !box[0].Contains(sol.X[0]) {
		t.Fatalf("x = %v outside %v", sol.X, box[0])
	}
	if math.Abs(sol.X[0]-3) > 0.05 {
		t.Fatalf("expected the least violating point near 3, got %v", sol.X[0])
	}
	if sol.MaxViolation < 6.9 {
		t.Fatalf("expected violation near 7, got %v", sol.MaxViolation)
	}
}

func TestAugmentedLagrangianValidation(t *testing.T) {
	box := []tariff.Interval{{Min: 0, Max: 1}}
	tests := []struct {
		name    string
		problem Problem
		x0      []float64
		maxIter int
	}{
		{"missing objective", Problem{Bounds: box}, []float64{0}, 10},
		{"length mismatch", Problem{Objective: paraboloid, Bounds: box}, []float64{0, 1}, 10},
		{"no variables", Problem{Objective: paraboloid}, nil, 10},
		{"zero budget", Problem{Objective: func(x []float64) float64 { return x[0] }, Bounds: box}, []float64{0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := (&AugmentedLagrangian{}).Minimize(tt.problem, tt.x0, tt.maxIter); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}

// testUsage is one unmapped cooperative with a light, a medium and a heavy
// household in one month.
func testUsage() []usage.Record {
	return []usage.Record{
		{Cooperative: "Testbuurt", Month: "2026-01", HouseholdID: "1", Hours: 10, Km: 50, Rides: 3,
			HoursRegular: 6, HoursOffpeak: 2, HoursWeekend: 2},
		{Cooperative: "Testbuurt", Month: "2026-01", HouseholdID: "2", Hours: 20, Km: 100, Rides: 5,
			HoursRegular: 10, HoursOffpeak: 5, HoursWeekend: 5},
		{Cooperative: "Testbuurt", Month: "2026-01", HouseholdID: "3", Hours: 40, Km: 300, Rides: 8,
			HoursRegular: 20, HoursOffpeak: 10, HoursWeekend: 10},
	}
}

func testSettings(v tariff.Variant, w objective.Weights) Settings {
	return Settings{
		Weights:         w,
		Bounds:          tariff.DefaultBounds(),
		Variant:         v,
		Seed:            tariff.DefaultSeed(),
		Neutral:         tariff.DefaultNeutral(),
		Lease:           objective.LeaseTable{PerCarPerMonth: 660, DefaultCars: 1},
		FixedMonthlyFee: 25,
		MaxIterations:   1000,
	}
}

func TestTariffOptimizerRun(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	opt, err := New(zap.New(core), testUsage(), testSettings(tariff.Base, objective.RequestWeights()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if opt.Status() != StatusInitialized {
		t.Fatalf("expected initialized status, got %s", opt.Status())
	}

	result, err := opt.Run()
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	summary := result.Summary
	if summary.RunID == "" {
		t.Fatalf("expected a run id")
	}
	if summary.Variant != "BASE" {
		t.Fatalf("expected BASE variant, got %q", summary.Variant)
	}
	if got := strings.Join(summary.Dimensions, ","); got != "hour_rate,km_rate" {
		t.Fatalf("unexpected dimensions %q", got)
	}
	if !tariff.DefaultBounds().Contains(summary.Tariff) {
		t.Fatalf("tariff %+v outside bounds", summary.Tariff)
	}
	if summary.CoopMonths != 1 || len(result.Gaps) != 1 || len(result.Costs) != 3 {
		t.Fatalf("unexpected result sizes: %d coop-months, %d gaps, %d costs",
			summary.CoopMonths, len(result.Gaps), len(result.Costs))
	}
	// Lower prices always help the objective, so the lease constraint binds.
	if summary.WorstGap < -1 || summary.WorstGap > 5 {
		t.Fatalf("expected the lease constraint to bind, worst gap %v", summary.WorstGap)
	}
	if summary.Converged != (opt.Status() == StatusConverged) {
		t.Fatalf("summary converged=%v does not match status %s", summary.Converged, opt.Status())
	}
	if len(summary.Notes) != 1 || !strings.Contains(summary.Notes[0], "Testbuurt") {
		t.Fatalf("expected a note about the unmapped cooperative, got %v", summary.Notes)
	}
	if logs.FilterMessage("tariff optimization finished").Len() != 1 {
		t.Fatalf("expected one completion log entry")
	}

	if _, err := opt.Run(); err == nil {
		t.Fatalf("expected a second Run to fail")
	}
}

func TestTariffOptimizerPinsInactiveDimensions(t *testing.T) {
	neutral := tariff.DefaultNeutral()
	weightSets := []objective.Weights{
		objective.DefaultWeights(),
		objective.RequestWeights(),
		{Heavy: 3, Proportionality: 0, Overall: 1},
	}

	for _, v := range []tariff.Variant{tariff.Base, tariff.Heavy, tariff.WeekendOffpeak} {
		for _, w := range weightSets {
			opt, err := New(nil, testUsage(), testSettings(v, w))
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}
			result, err := opt.Run()
			if err != nil {
				t.Fatalf("%s: Run returned error: %v", v, err)
			}
			active := map[tariff.Dimension]bool{}
			for _, d := range v.Dimensions() {
				active[d] = true
			}
			for _, d := range tariff.AllDimensions() {
				if active[d] {
					continue
				}
				if got := result.Summary.Tariff.Get(d); got != neutral.Get(d) {
					t.Fatalf("%s: inactive %s = %v, expected neutral %v", v, d, got, neutral.Get(d))
				}
			}
		}
	}
}

func TestTariffOptimizerRespectsBoundsWithoutConvergence(t *testing.T) {
	settings := testSettings(tariff.HeavyWeekendOffpeak, objective.DefaultWeights())
	settings.MaxIterations = 5

	opt, err := New(nil, testUsage(), settings)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	result, err := opt.Run()
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Summary.Converged || opt.Status() != StatusFailed {
		t.Fatalf("expected a failed run with 5 iterations, got %s", opt.Status())
	}
	if !settings.Bounds.Contains(result.Summary.Tariff) {
		t.Fatalf("tariff %+v outside bounds", result.Summary.Tariff)
	}
}

func TestNewRejectsInvalidBounds(t *testing.T) {
	settings := testSettings(tariff.Base, objective.DefaultWeights())
	settings.Bounds.HourRate = tariff.Interval{Min: 5, Max: 1}
	if _, err := New(nil, testUsage(), settings); err == nil {
		t.Fatalf("expected inverted bounds to be rejected")
	}

	// BASE pins the heavy threshold, which would otherwise escape the box.
	settings = testSettings(tariff.Base, objective.DefaultWeights())
	settings.Neutral.HeavyThresholdHours = 60
	if _, err := New(nil, testUsage(), settings); err == nil {
		t.Fatalf("expected a neutral tariff outside the bounds to be rejected")
	}
}

func TestCostCacheReusesLastPoint(t *testing.T) {
	builder := tariff.NewBuilder(tariff.Base, tariff.DefaultNeutral())
	cache := newCostCache(tariff.CostModel{FixedMonthlyFee: 25}, builder, testUsage())

	x := []float64{3, 0.3}
	first := cache.costs(x)
	revenue := cache.revenue(x)
	if cache.misses != 1 {
		t.Fatalf("expected one evaluation, got %d", cache.misses)
	}
	total := 0.0
	for _, r := range first {
		total += r.Cost
	}
	cm := usage.CoopMonth{Cooperative: "Testbuurt", Month: "2026-01"}
	if math.Abs(revenue[cm]-total) > 1e-9 {
		t.Fatalf("revenue %v does not match summed costs %v", revenue[cm], total)
	}

	x[0] = 4
	cache.costs(x)
	if cache.misses != 2 {
		t.Fatalf("expected a changed vector to be re-evaluated, got %d evaluations", cache.misses)
	}
}

func TestStatusString(t *testing.T) {
	tests := map[Status]string{
		StatusInitialized: "initialized",
		StatusSolving:     "solving",
		StatusConverged:   "converged",
		StatusFailed:      "failed",
		Status(9):         "status(9)",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Fatalf("Status(%d).String() = %q, expected %q", int(s), got, want)
		}
	}
}
