// Package distribution provides the sampling distributions behind ride
// generation: the time-of-day mixture and the duration/distance marginals.
package distribution

import (
	"fmt"
	"math"

	"github.com/iwvelando/carshare-tariff/pkg/constants"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat/distuv"
)

// Component is one Gaussian of a time-of-day mixture. Hours are expressed on
// the modeled day, so late-night means may exceed 24.
type Component struct {
	Weight float64 `json:"weight" mapstructure:"weight"`
	Mean   float64 `json:"mean" mapstructure:"mean"`
	StdDev float64 `json:"stdDev" mapstructure:"stdDev"`
}

// TimeOfDayModel is a discretized start-hour CDF over [DayStartHour, DayStartHour+24).
type TimeOfDayModel struct {
	table []float64
}

// NewTimeOfDayModel accumulates the mixture density into a cumulative table.
// Accumulated probability above one is clamped and reported once as a warning.
func NewTimeOfDayModel(logger *zap.Logger, components []Component) (*TimeOfDayModel, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(components) == 0 {
		return nil, fmt.Errorf("time-of-day mixture requires at least one component")
	}

	normals := make([]distuv.Normal, len(components))
	for i, c := range components {
		if c.StdDev <= 0 {
			return nil, fmt.Errorf("mixture component %d has non-positive standard deviation %.4f", i, c.StdDev)
		}
		if c.Weight < 0 {
			return nil, fmt.Errorf("mixture component %d has negative weight %.4f", i, c.Weight)
		}
		normals[i] = distuv.Normal{Mu: c.Mean, Sigma: c.StdDev}
	}

	step := constants.HoursPerDay / constants.CDFSteps
	table := make([]float64, constants.CDFSteps)
	current := 0.0
	clamped := false
	for i := range table {
		x := constants.DayStartHour + float64(i)*step
		density := 0.0
		for j, n := range normals {
			density += components[j].Weight * n.Prob(x)
		}
		current += density * step
		if current > 1 {
			if !clamped {
				logger.Warn("time-of-day cumulative probability exceeded 1, clamping",
					zap.String("op", "distribution.NewTimeOfDayModel"),
					zap.Int("index", i),
					zap.Float64("value", current),
				)
				clamped = true
			}
			current = 1
		}
		table[i] = current
	}

	return &TimeOfDayModel{table: table}, nil
}

// Table returns a copy of the cumulative table.
func (m *TimeOfDayModel) Table() []float64 {
	return append([]float64(nil), m.table...)
}

// Index inverts u into a table index with a directional search. The search
// starts mid-table, halves its step only when the direction reverses, and
// stops as soon as it runs off either end of the table.
func (m *TimeOfDayModel) Index(u float64) int {
	last := len(m.table) - 1
	idx := len(m.table) / 2
	step := len(m.table) / 4
	direction := 0
	for step > 0 {
		next := 1
		if m.table[idx] > u {
			next = -1
		}
		reversed := direction != next
		idx += next * step
		if idx < 0 {
			return 0
		}
		if idx > last {
			return last
		}
		if reversed {
			step /= 2
		}
		direction = next
	}
	return idx
}

// Hour maps u to a start hour in [0, 24).
func (m *TimeOfDayModel) Hour(u float64) float64 {
	idx := m.Index(u)
	hour := float64(idx)/float64(len(m.table))*constants.HoursPerDay + constants.DayStartHour
	return math.Mod(hour, constants.HoursPerDay)
}
