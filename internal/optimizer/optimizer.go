// Package optimizer searches for the tariff that minimizes the weighted
// objective while every cooperative-month covers its lease.
package optimizer

import (
	"fmt"
	"math"
	"time"

	"github.com/iwvelando/carshare-tariff/internal/objective"
	"github.com/iwvelando/carshare-tariff/internal/tariff"
	"github.com/iwvelando/carshare-tariff/internal/usage"
	"github.com/iwvelando/carshare-tariff/pkg/constants"
	"github.com/iwvelando/carshare-tariff/pkg/optimization"
	"github.com/lucsky/cuid"
	"go.uber.org/zap"
)

// Status tracks a TariffOptimizer through its lifecycle.
type Status int

const (
	StatusInitialized Status = iota
	StatusSolving
	StatusConverged
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusInitialized:
		return "initialized"
	case StatusSolving:
		return "solving"
	case StatusConverged:
		return "converged"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Settings configure one optimization.
type Settings struct {
	Weights         objective.Weights
	Bounds          tariff.Bounds
	Variant         tariff.Variant
	Seed            tariff.Parameters
	Neutral         tariff.Parameters
	Lease           objective.LeaseTable
	FixedMonthlyFee float64
	MaxIterations   int
	Solver          Solver
}

// Result is the outcome of a run.
type Result struct {
	Summary optimization.Summary
	Costs   []tariff.CostRecord
	Gaps    []objective.Gap
}

// TariffOptimizer runs a single constrained search over one usage table.
type TariffOptimizer struct {
	logger   *zap.Logger
	usage    []usage.Record
	settings Settings
	builder  tariff.Builder
	model    tariff.CostModel
	status   Status
}

// New validates settings and returns an optimizer in the Initialized state.
func New(logger *zap.Logger, records []usage.Record, settings Settings) (*TariffOptimizer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := settings.Bounds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tariff bounds: %w", err)
	}
	// Pinned dimensions keep their neutral value, so it must be admissible too.
	if err := settings.Bounds.CheckParameters(settings.Neutral); err != nil {
		return nil, fmt.Errorf("neutral tariff outside bounds: %w", err)
	}
	if settings.MaxIterations <= 0 {
		settings.MaxIterations = constants.DefaultMaxIterations
	}
	if settings.Solver == nil {
		settings.Solver = &AugmentedLagrangian{Logger: logger}
	}
	return &TariffOptimizer{
		logger:   logger,
		usage:    records,
		settings: settings,
		builder:  tariff.NewBuilder(settings.Variant, settings.Neutral),
		model:    tariff.CostModel{FixedMonthlyFee: settings.FixedMonthlyFee},
		status:   StatusInitialized,
	}, nil
}

// Status returns the current lifecycle state.
func (o *TariffOptimizer) Status() Status {
	return o.status
}

// Run performs the search. Failing to converge is reported on the summary,
// not as an error; the best parameters found are returned either way.
func (o *TariffOptimizer) Run() (*Result, error) {
	if o.status != StatusInitialized {
		return nil, fmt.Errorf("optimizer already ran (status %s)", o.status)
	}
	o.status = StatusSolving
	start := time.Now()
	runID := cuid.New()

	memo := newCostCache(o.model, o.builder, o.usage)
	weights := o.settings.Weights

	coopMonths := usage.CoopMonths(o.usage)
	constraints := make([]Constraint, len(coopMonths))
	for i, cm := range coopMonths {
		required := math.Max(o.settings.Lease.Required(cm.Cooperative), constants.Epsilon)
		constraints[i] = func(x []float64) float64 {
			return (memo.revenue(x)[cm] - required) / required
		}
	}

	problem := Problem{
		Objective: func(x []float64) float64 {
			return weights.Score(objective.Evaluate(memo.costs(x)))
		},
		Bounds:      o.builder.Intervals(o.settings.Bounds),
		Constraints: constraints,
	}

	x0 := o.builder.Vector(o.settings.Bounds.Clamp(o.settings.Seed))
	solution, err := o.settings.Solver.Minimize(problem, x0, o.settings.MaxIterations)
	if err != nil {
		o.status = StatusFailed
		return nil, fmt.Errorf("tariff solve failed: %w", err)
	}

	params, err := o.builder.Merge(solution.X)
	if err != nil {
		o.status = StatusFailed
		return nil, err
	}
	params = clampActive(params, o.builder, o.settings.Bounds)

	costs := o.model.Costs(o.usage, params)
	components := objective.Evaluate(costs)
	gaps := objective.Gaps(costs, o.settings.Lease)
	gapSummary := objective.Summarize(gaps)

	if solution.Converged {
		o.status = StatusConverged
	} else {
		o.status = StatusFailed
	}

	dims := o.builder.Dimensions()
	dimNames := make([]string, len(dims))
	for i, d := range dims {
		dimNames[i] = d.String()
	}

	var notes []string
	for _, cm := range coopMonths {
		if !o.settings.Lease.Mapped(cm.Cooperative) {
			notes = append(notes, fmt.Sprintf("cooperative %q is not in the lease table, assuming %d car(s)",
				cm.Cooperative, o.settings.Lease.DefaultCars))
			break
		}
	}

	summary := optimization.Summary{
		RunID:               runID,
		Variant:             o.settings.Variant.Name,
		Status:              o.status.String(),
		Converged:           solution.Converged,
		Message:             solution.Message,
		Iterations:          solution.Iterations,
		Dimensions:          dimNames,
		Tariff:              params,
		Objective:           weights.Score(components),
		Components:          components,
		Weights:             weights,
		FixedMonthlyFee:     o.settings.FixedMonthlyFee,
		LeasePerCarPerMonth: o.settings.Lease.PerCarPerMonth,
		DefaultLeasedCars:   o.settings.Lease.DefaultCars,
		MappedCooperatives:  len(o.settings.Lease.Cars),
		CoopMonths:          gapSummary.CoopMonths,
		WorstGap:            gapSummary.WorstGap,
		FractionFeasible:    gapSummary.FractionFeasible,
		Notes:               notes,
	}

	o.logger.Info("tariff optimization finished",
		zap.String("op", "optimizer.Run"),
		zap.String("runId", runID),
		zap.String("variant", summary.Variant),
		zap.String("status", summary.Status),
		zap.Bool("converged", summary.Converged),
		zap.String("message", summary.Message),
		zap.Int("iterations", summary.Iterations),
		zap.Int("evaluations", memo.misses),
		zap.Float64("objective", summary.Objective),
		zap.Float64("worstGap", summary.WorstGap),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Result{Summary: summary, Costs: costs, Gaps: gaps}, nil
}

// clampActive clamps the optimized dimensions to their bounds and leaves the
// pinned ones at their neutral values.
func clampActive(p tariff.Parameters, b tariff.Builder, bounds tariff.Bounds) tariff.Parameters {
	for _, d := range b.Dimensions() {
		p = p.With(d, bounds.Get(d).Clamp(p.Get(d)))
	}
	return p
}
