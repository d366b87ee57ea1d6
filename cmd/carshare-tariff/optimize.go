package main

import (
	"context"
	"os"

	"github.com/iwvelando/carshare-tariff/internal/engine"
	"github.com/iwvelando/carshare-tariff/internal/export"
	"github.com/iwvelando/carshare-tariff/pkg/constants"
	"github.com/iwvelando/carshare-tariff/pkg/output"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) optimizeCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Optimize the tariff of the configured variant, or of every variant",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.optimize(cmd.Context(), all)
		},
	}
	addSimulationFlags(cmd)
	cmd.Flags().String("variant", "", "tariff variant, e.g. BASE or HEAVY_WEEKEND")
	cmd.Flags().BoolVar(&all, "all", false, "optimize every variant")
	return cmd
}

func (a *app) optimize(ctx context.Context, all bool) error {
	data, err := a.buildContext(ctx, nil)
	if err != nil {
		a.logger.Error("failed to build optimization context",
			zap.String("op", "main.optimize"),
			zap.Error(err),
		)
		return err
	}

	var opts []engine.ServiceOption
	if kafka := a.conf.Export.Kafka; kafka.Enabled() {
		sink, err := export.NewKafkaSink(a.logger, kafka.Brokers, kafka.Topic)
		if err != nil {
			return err
		}
		defer func() {
			if err := sink.Close(); err != nil {
				a.logger.Warn("failed to close Kafka sink",
					zap.String("op", "main.optimize"),
					zap.Error(err),
				)
			}
		}()
		opts = append(opts, engine.WithSink(sink))
	}

	service, err := engine.NewService(a.logger, data, engine.SettingsFromConfig(a.conf), opts...)
	if err != nil {
		return err
	}

	var reports []engine.Report
	if all {
		reports, err = service.OptimizeAll(ctx, a.conf.Tariff.Weights)
	} else {
		variant, verr := a.conf.Variant()
		if verr != nil {
			return verr
		}
		var report *engine.Report
		report, err = service.Optimize(ctx, engine.Request{Weights: a.conf.Tariff.Weights, Variant: variant})
		if report != nil {
			reports = []engine.Report{*report}
		}
	}
	if err != nil {
		a.logger.Error("failed to optimize tariff",
			zap.String("op", "main.optimize"),
			zap.Error(err),
		)
		return err
	}

	return output.Render(os.Stdout, a.conf.Output.Format, reports)
}

func (a *app) feasibilityCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feasibility",
		Short: "Check whether the leases can be covered at the highest allowed prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.feasibility(cmd.Context())
		},
	}
	addSimulationFlags(cmd)
	return cmd
}

func (a *app) feasibility(ctx context.Context) error {
	data, err := a.buildContext(ctx, nil)
	if err != nil {
		a.logger.Error("failed to build optimization context",
			zap.String("op", "main.feasibility"),
			zap.Error(err),
		)
		return err
	}
	service, err := engine.NewService(a.logger, data, engine.SettingsFromConfig(a.conf))
	if err != nil {
		return err
	}

	report := service.FeasibilityAtMaxPrices()
	if a.conf.Output.Format == constants.OutputFormatPretty {
		output.PrettyFeasibility(os.Stdout, report)
		return nil
	}
	return output.JSONFormat(os.Stdout, report)
}
