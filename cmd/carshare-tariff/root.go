package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/iwvelando/carshare-tariff/internal/config"
	"github.com/iwvelando/carshare-tariff/internal/engine"
	"github.com/iwvelando/carshare-tariff/internal/history"
	"github.com/iwvelando/carshare-tariff/internal/simulator"
	"github.com/iwvelando/carshare-tariff/pkg/constants"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries what every subcommand needs once the root command has loaded
// the configuration.
type app struct {
	configPath string
	logLevel   string

	conf   *config.Configuration
	logger *zap.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "carshare-tariff",
		Short:         "Simulates car-sharing cooperatives and optimizes their tariffs",
		Long:          `carshare-tariff simulates household rides in car-sharing cooperatives, or loads observed rides, and searches for the tariff that is fairest to households while every cooperative still covers its car leases.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", constants.DefaultConfigFile, "path to configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	root.PersistentFlags().String("output-format", "", "type of output override: pretty, csv, json")

	root.AddCommand(
		a.serveCommand(),
		a.simulateCommand(),
		a.optimizeCommand(),
		a.feasibilityCommand(),
	)
	return root
}

// setup loads the configuration, with the command's flags bound on top, and
// builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	// A missing default file means built-in defaults; an explicit path must exist
	path := a.configPath
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}

	conf, err := config.LoadConfigurationWithFlags(path, cmd.Flags())
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", a.configPath, err)
		return err
	}

	logger, err := initializeLogger(conf.Logging, a.logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		return err
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}
	if err := conf.Validate(); err != nil {
		logger.Error("invalid configuration",
			zap.String("op", "main"),
			zap.Error(err),
		)
		return err
	}

	a.conf = conf
	a.logger = logger
	return nil
}

// buildContext loads observed rides when a history source is configured and
// simulates the configured archetypes otherwise.
func (a *app) buildContext(ctx context.Context, progress simulator.Progress) (*engine.Context, error) {
	h := a.conf.History
	switch {
	case h.CSVPath != "":
		return engine.NewHistoricalContext(ctx, a.logger, history.CSVSource{Path: h.CSVPath})
	case h.Postgres.Enabled():
		source, err := history.NewPostgresSource(ctx, a.logger, h.Postgres.DSN, h.Postgres.Table)
		if err != nil {
			return nil, err
		}
		defer source.Close()
		return engine.NewHistoricalContext(ctx, a.logger, source)
	}
	return engine.NewSimulatedContext(a.logger, a.conf.Simulation, progress)
}

// addSimulationFlags registers the flags bound to simulation settings.
func addSimulationFlags(cmd *cobra.Command) {
	cmd.Flags().Uint64("seed", constants.DefaultSeed, "seed of the first replication")
	cmd.Flags().Int("months", 1, "number of months to simulate")
	cmd.Flags().Int("replications", 1, "number of simulated cooperatives")
	cmd.Flags().String("history-csv", "", "optimize over a ride export instead of simulating")
}
