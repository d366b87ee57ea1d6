// Package simulator generates synthetic ride ledgers for car-sharing
// cooperatives from household archetypes.
package simulator

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/iwvelando/carshare-tariff/internal/distribution"
	"go.uber.org/zap"
)

// Profile is everything a RideGenerator needs to know about an archetype.
type Profile struct {
	Name         string
	StartTime    []distribution.Component
	Duration     distribution.Marginal
	Distance     distribution.Marginal
	Correlation  float64
	WeekdayRides distribution.BetaRate
	WeekendRides distribution.BetaRate
}

// RideGenerator draws rides for one archetype from its own PCG stream.
type RideGenerator struct {
	profile   Profile
	startTime *distribution.TimeOfDayModel
	stream    uint64
	src       *rand.PCG
	rng       *rand.Rand
}

// NewRideGenerator builds the start-time table of p and seeds the generator.
// stream selects an independent PCG sequence so several archetypes can share
// one seed.
func NewRideGenerator(logger *zap.Logger, p Profile, seed, stream uint64) (*RideGenerator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if p.Duration == nil || p.Distance == nil {
		return nil, fmt.Errorf("profile %q is missing a duration or distance marginal", p.Name)
	}
	if p.Correlation < 0 || p.Correlation > 1 {
		return nil, fmt.Errorf("profile %q correlation %.4f outside [0, 1]", p.Name, p.Correlation)
	}
	if err := p.WeekdayRides.Validate(); err != nil {
		return nil, fmt.Errorf("profile %q weekday rides: %w", p.Name, err)
	}
	if err := p.WeekendRides.Validate(); err != nil {
		return nil, fmt.Errorf("profile %q weekend rides: %w", p.Name, err)
	}
	model, err := distribution.NewTimeOfDayModel(logger.With(zap.String("archetype", p.Name)), p.StartTime)
	if err != nil {
		return nil, fmt.Errorf("profile %q start time: %w", p.Name, err)
	}

	g := &RideGenerator{profile: p, startTime: model, stream: stream}
	g.Reseed(seed)
	return g, nil
}

// Reseed replaces the random stream; later draws depend only on seed.
func (g *RideGenerator) Reseed(seed uint64) {
	g.src = rand.NewPCG(seed, g.stream)
	g.rng = rand.New(g.src)
}

// Profile returns the archetype the generator draws from.
func (g *RideGenerator) Profile() Profile {
	return g.profile
}

// SimulateMonth draws one household's rides for a month with the given
// number of weekdays and weekend days. Weekday rides come first. The
// returned rides carry no cooperative, month or household.
func (g *RideGenerator) SimulateMonth(weekdays, weekendDays int) []Ride {
	weekdayRate := g.profile.WeekdayRides.Draw(g.src)
	weekendRate := g.profile.WeekendRides.Draw(g.src)

	weekdayCount := rideCount(weekdays, weekdayRate)
	weekendCount := rideCount(weekendDays, weekendRate)

	rides := make([]Ride, 0, weekdayCount+weekendCount)
	for i := 0; i < weekdayCount; i++ {
		rides = append(rides, g.drawRide(false))
	}
	for i := 0; i < weekendCount; i++ {
		rides = append(rides, g.drawRide(true))
	}
	return rides
}

func rideCount(days int, rate float64) int {
	if days <= 0 || rate <= 0 {
		return 0
	}
	return int(math.RoundToEven(float64(days) * rate))
}

// drawRide couples duration and distance through a shared uniform: with
// correlation r the distance draw is r*u2 + (1-r)*u3.
func (g *RideGenerator) drawRide(weekend bool) Ride {
	start := g.startTime.Hour(g.rng.Float64())
	u2 := g.rng.Float64()
	u3 := g.rng.Float64()
	r := g.profile.Correlation
	return Ride{
		StartHour: start,
		Hours:     g.profile.Duration.Quantile(u2),
		Km:        g.profile.Distance.Quantile(u2*r + u3*(1-r)),
		IsWeekend: weekend,
		IsOffpeak: IsOffpeakHour(start),
	}
}
