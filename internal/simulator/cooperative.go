package simulator

import (
	"fmt"
	"strconv"
	"time"

	"github.com/iwvelando/carshare-tariff/pkg/constants"
	"github.com/iwvelando/carshare-tariff/pkg/datetime"
	"go.uber.org/zap"
)

// Progress is advanced once per simulated month.
type Progress interface {
	Add(n int) error
}

// Cohort is a group of households drawn from one generator.
type Cohort struct {
	Households int
	Generator  *RideGenerator
}

// CooperativeSimulator produces a cooperative's ride ledger month by month.
type CooperativeSimulator struct {
	logger      *zap.Logger
	cooperative string
	startMonth  string
	weekdays    int
	weekendDays int
	cohorts     []Cohort
	progress    Progress
}

// Option customizes a CooperativeSimulator.
type Option func(*CooperativeSimulator)

// WithDays overrides the weekday and weekend-day counts of every month.
func WithDays(weekdays, weekendDays int) Option {
	return func(s *CooperativeSimulator) {
		s.weekdays = weekdays
		s.weekendDays = weekendDays
	}
}

// WithStartMonth sets the label of the first month.
func WithStartMonth(label string) Option {
	return func(s *CooperativeSimulator) {
		s.startMonth = label
	}
}

// WithProgress reports each finished month to p.
func WithProgress(p Progress) Option {
	return func(s *CooperativeSimulator) {
		s.progress = p
	}
}

// NewCooperativeSimulator returns a simulator for the named cooperative.
func NewCooperativeSimulator(logger *zap.Logger, cooperative string, cohorts []Cohort, opts ...Option) (*CooperativeSimulator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for i, c := range cohorts {
		if c.Generator == nil {
			return nil, fmt.Errorf("cohort %d has no generator", i)
		}
		if c.Households < 0 {
			return nil, fmt.Errorf("cohort %d has negative household count %d", i, c.Households)
		}
	}
	s := &CooperativeSimulator{
		logger:      logger,
		cooperative: cooperative,
		startMonth:  constants.DefaultStartMonth,
		weekdays:    constants.DefaultWeekdays,
		weekendDays: constants.DefaultWeekendDays,
		cohorts:     cohorts,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.weekdays < 0 || s.weekendDays < 0 {
		return nil, fmt.Errorf("day counts must not be negative, got %d and %d", s.weekdays, s.weekendDays)
	}
	return s, nil
}

// Households returns the number of households simulated each month.
func (s *CooperativeSimulator) Households() int {
	n := 0
	for _, c := range s.cohorts {
		n += c.Households
	}
	return n
}

// Simulate generates months of rides. Household ids are assigned
// sequentially across cohorts and restart every month, so the same id refers
// to the same household in every month.
func (s *CooperativeSimulator) Simulate(months int) ([]Ride, error) {
	labels, err := datetime.MonthLabels(s.startMonth, months)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var rides []Ride
	for m, label := range labels {
		household := 0
		for _, c := range s.cohorts {
			for h := 0; h < c.Households; h++ {
				id := strconv.Itoa(household)
				for _, r := range c.Generator.SimulateMonth(s.weekdays, s.weekendDays) {
					r.Cooperative = s.cooperative
					r.Month = label
					r.MonthIndex = m
					r.HouseholdID = id
					rides = append(rides, r)
				}
				household++
			}
		}
		if s.progress != nil {
			if err := s.progress.Add(1); err != nil {
				s.logger.Debug("progress update failed",
					zap.String("op", "simulator.CooperativeSimulator.Simulate"),
					zap.Error(err),
				)
			}
		}
	}

	s.logger.Info("simulated cooperative",
		zap.String("op", "simulator.CooperativeSimulator.Simulate"),
		zap.String("cooperative", s.cooperative),
		zap.Int("months", months),
		zap.Int("households", s.Households()),
		zap.Int("rides", len(rides)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return rides, nil
}
