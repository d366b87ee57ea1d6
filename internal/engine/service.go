package engine

import (
	"context"
	"fmt"

	"github.com/iwvelando/carshare-tariff/internal/config"
	"github.com/iwvelando/carshare-tariff/internal/export"
	"github.com/iwvelando/carshare-tariff/internal/objective"
	"github.com/iwvelando/carshare-tariff/internal/optimizer"
	"github.com/iwvelando/carshare-tariff/internal/tariff"
	"github.com/iwvelando/carshare-tariff/pkg/optimization"
	"go.uber.org/zap"
)

// worstGapCount is how many coop-months the feasibility report lists.
const worstGapCount = 10

// Settings are the request-independent inputs of an optimization.
type Settings struct {
	Bounds          tariff.Bounds
	Seed            tariff.Parameters
	Neutral         tariff.Parameters
	Lease           objective.LeaseTable
	FixedMonthlyFee float64
	MaxIterations   int
	// Solver is optional; each request gets a fresh augmented Lagrangian otherwise.
	Solver optimizer.Solver
}

// SettingsFromConfig extracts Settings from the tariff section.
func SettingsFromConfig(c *config.Configuration) Settings {
	return Settings{
		Bounds:          c.Tariff.Bounds,
		Seed:            c.Tariff.Seed,
		Neutral:         c.Tariff.Neutral,
		Lease:           c.LeaseTable(),
		FixedMonthlyFee: c.Tariff.FixedMonthlyFee,
		MaxIterations:   c.Tariff.MaxIterations,
	}
}

// Request selects the objective weights and tariff variant.
type Request struct {
	Weights objective.Weights
	Variant tariff.Variant
}

// Report is the answer to one Request.
type Report struct {
	Summary optimization.Summary `json:"summary"`
	Costs   []tariff.CostRecord  `json:"costs"`
	Gaps    []objective.Gap      `json:"gaps"`
	Insight Insight              `json:"insight"`
}

// FeasibilityReport describes lease coverage at the highest allowed prices.
type FeasibilityReport struct {
	Tariff           tariff.Parameters `json:"tariff"`
	CoopMonths       int               `json:"coopMonths"`
	FractionFeasible float64           `json:"fractionFeasible"`
	WorstGap         float64           `json:"worstGap"`
	Worst            []objective.Gap   `json:"worst"`
}

// Service answers optimization requests over a shared Context.
type Service struct {
	logger   *zap.Logger
	data     *Context
	settings Settings
	sink     export.Sink
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithSink publishes every summary to sink.
func WithSink(sink export.Sink) ServiceOption {
	return func(s *Service) {
		s.sink = sink
	}
}

// NewService returns a Service over data.
func NewService(logger *zap.Logger, data *Context, settings Settings, opts ...ServiceOption) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if data == nil {
		return nil, fmt.Errorf("service requires a context")
	}
	if err := settings.Bounds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tariff bounds: %w", err)
	}
	if err := settings.Bounds.CheckParameters(settings.Neutral); err != nil {
		return nil, fmt.Errorf("neutral tariff outside bounds: %w", err)
	}
	s := &Service{logger: logger, data: data, settings: settings}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Context returns the data the service optimizes over.
func (s *Service) Context() *Context {
	return s.data
}

// Optimize runs one constrained solve. Failing to converge is reported in the
// summary; errors are reserved for unusable inputs.
func (s *Service) Optimize(ctx context.Context, req Request) (*Report, error) {
	records := s.data.Usage()
	opt, err := optimizer.New(s.logger, records, optimizer.Settings{
		Weights:         req.Weights,
		Bounds:          s.settings.Bounds,
		Variant:         req.Variant,
		Seed:            s.settings.Seed,
		Neutral:         s.settings.Neutral,
		Lease:           s.settings.Lease,
		FixedMonthlyFee: s.settings.FixedMonthlyFee,
		MaxIterations:   s.settings.MaxIterations,
		Solver:          s.settings.Solver,
	})
	if err != nil {
		return nil, err
	}
	result, err := opt.Run()
	if err != nil {
		return nil, fmt.Errorf("variant %s: %w", req.Variant, err)
	}

	if s.sink != nil {
		if err := s.sink.Publish(ctx, result.Summary); err != nil {
			s.logger.Warn("failed to publish optimization summary",
				zap.String("op", "engine.Service.Optimize"),
				zap.String("runId", result.Summary.RunID),
				zap.Error(err),
			)
		}
	}

	return &Report{
		Summary: result.Summary,
		Costs:   result.Costs,
		Gaps:    result.Gaps,
		Insight: NewInsight(result.Costs, result.Summary.Tariff, s.settings.FixedMonthlyFee),
	}, nil
}

// OptimizeAll runs every variant with the same weights.
func (s *Service) OptimizeAll(ctx context.Context, weights objective.Weights) ([]Report, error) {
	variants := tariff.Variants()
	reports := make([]Report, 0, len(variants))
	for _, v := range variants {
		report, err := s.Optimize(ctx, Request{Weights: weights, Variant: v})
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}
	return reports, nil
}

// FeasibilityAtMaxPrices checks whether the leases can be covered at all
// within the bounds: hour and km rates at their maxima, no discounts.
func (s *Service) FeasibilityAtMaxPrices() FeasibilityReport {
	params := s.settings.Bounds.MaxPrices()
	model := tariff.CostModel{FixedMonthlyFee: s.settings.FixedMonthlyFee}
	gaps := objective.Gaps(model.Costs(s.data.Usage(), params), s.settings.Lease)
	summary := objective.Summarize(gaps)

	report := FeasibilityReport{
		Tariff:           params,
		CoopMonths:       summary.CoopMonths,
		FractionFeasible: summary.FractionFeasible,
		WorstGap:         summary.WorstGap,
		Worst:            objective.Worst(gaps, worstGapCount),
	}
	s.logger.Info("checked feasibility at maximum prices",
		zap.String("op", "engine.Service.FeasibilityAtMaxPrices"),
		zap.Int("coopMonths", report.CoopMonths),
		zap.Float64("fractionFeasible", report.FractionFeasible),
		zap.Float64("worstGap", report.WorstGap),
	)
	return report
}
