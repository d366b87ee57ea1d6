// Package engine ties simulation, aggregation, cost evaluation and the
// constrained solve together behind a read-only Context.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/iwvelando/carshare-tariff/internal/config"
	"github.com/iwvelando/carshare-tariff/internal/history"
	"github.com/iwvelando/carshare-tariff/internal/simulator"
	"github.com/iwvelando/carshare-tariff/internal/usage"
	"go.uber.org/zap"
)

// Run is one replication: a cooperative's rides and their usage table.
type Run struct {
	Index       int
	Cooperative string
	Rides       []simulator.Ride
	Usage       []usage.Record
}

// Context holds the usage every request optimizes over. It is built once
// and never modified, so handlers may share it without locking.
type Context struct {
	source string
	runs   []Run
	usage  []usage.Record
}

// ReplicationName labels replication i of name.
func ReplicationName(name string, i, replications int) string {
	if replications <= 1 {
		return name
	}
	return fmt.Sprintf("%s #%d", name, i+1)
}

// NewSimulatedContext simulates cfg.Replications cooperatives. Replication i
// is seeded with cfg.Seed+i; each archetype draws from its own stream.
func NewSimulatedContext(logger *zap.Logger, cfg config.SimulationConfig, progress simulator.Progress) (*Context, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Months < 1 {
		return nil, fmt.Errorf("simulation requires at least one month, got %d", cfg.Months)
	}
	replications := cfg.Replications
	if replications < 1 {
		replications = 1
	}

	profiles := make([]simulator.Profile, len(cfg.Archetypes))
	for j, a := range cfg.Archetypes {
		p, err := a.Profile()
		if err != nil {
			return nil, err
		}
		profiles[j] = p
	}

	start := time.Now()
	c := &Context{source: "simulation"}
	for i := 0; i < replications; i++ {
		seed := cfg.Seed + uint64(i)
		cohorts := make([]simulator.Cohort, len(profiles))
		for j, p := range profiles {
			g, err := simulator.NewRideGenerator(logger, p, seed, uint64(j))
			if err != nil {
				return nil, err
			}
			cohorts[j] = simulator.Cohort{Households: cfg.Archetypes[j].Count, Generator: g}
		}

		name := ReplicationName(cfg.Cooperative, i, replications)
		opts := []simulator.Option{
			simulator.WithDays(cfg.Weekdays, cfg.WeekendDays),
			simulator.WithStartMonth(cfg.StartMonth),
		}
		if progress != nil {
			opts = append(opts, simulator.WithProgress(progress))
		}
		sim, err := simulator.NewCooperativeSimulator(logger, name, cohorts, opts...)
		if err != nil {
			return nil, err
		}
		rides, err := sim.Simulate(cfg.Months)
		if err != nil {
			return nil, fmt.Errorf("replication %d: %w", i+1, err)
		}
		c.add(Run{Index: i, Cooperative: name, Rides: rides, Usage: usage.Aggregate(rides)})
	}
	usage.Sort(c.usage)

	logger.Info("built simulated context",
		zap.String("op", "engine.NewSimulatedContext"),
		zap.Int("replications", replications),
		zap.Int("months", cfg.Months),
		zap.Int("usageRecords", len(c.usage)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return c, nil
}

// NewHistoricalContext loads observed rides from source as a single run.
func NewHistoricalContext(ctx context.Context, logger *zap.Logger, source history.Source) (*Context, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	export, err := source.Load(ctx)
	if err != nil {
		return nil, err
	}
	rides := export.Rides()
	if len(rides) == 0 {
		return nil, fmt.Errorf("ride history contains no usable rides (%d rows read)", len(export.Records))
	}

	c := &Context{source: "history"}
	c.add(Run{Index: 0, Rides: rides, Usage: usage.Aggregate(rides)})

	logger.Info("built historical context",
		zap.String("op", "engine.NewHistoricalContext"),
		zap.Int("rows", len(export.Records)),
		zap.Int("rides", len(rides)),
		zap.Int("usageRecords", len(c.usage)),
	)
	return c, nil
}

// NewContextFromUsage wraps an existing usage table.
func NewContextFromUsage(records []usage.Record) *Context {
	c := &Context{source: "usage"}
	c.add(Run{Usage: append([]usage.Record(nil), records...)})
	usage.Sort(c.usage)
	return c
}

func (c *Context) add(r Run) {
	c.runs = append(c.runs, r)
	c.usage = append(c.usage, r.Usage...)
}

// Source names where the usage came from.
func (c *Context) Source() string {
	return c.source
}

// Runs returns the replications.
func (c *Context) Runs() []Run {
	return append([]Run(nil), c.runs...)
}

// Usage returns a copy of the combined usage table.
func (c *Context) Usage() []usage.Record {
	return append([]usage.Record(nil), c.usage...)
}

// Rides returns every ride of every run.
func (c *Context) Rides() []simulator.Ride {
	var rides []simulator.Ride
	for _, r := range c.runs {
		rides = append(rides, r.Rides...)
	}
	return rides
}
