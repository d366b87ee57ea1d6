package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/iwvelando/carshare-tariff/internal/engine"
	"github.com/iwvelando/carshare-tariff/internal/export"
	"github.com/iwvelando/carshare-tariff/pkg/output"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) simulateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate cooperatives and write the ride ledger to Parquet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.simulate(cmd.Context())
		},
	}
	addSimulationFlags(cmd)
	cmd.Flags().String("parquet", "", "path of the Parquet ride ledger")
	return cmd
}

func (a *app) simulate(ctx context.Context) error {
	sim := a.conf.Simulation
	bar := progressbar.NewOptions(sim.Months*sim.Replications,
		progressbar.OptionSetDescription("simulating months"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	data, err := engine.NewSimulatedContext(a.logger, sim, bar)
	if err != nil {
		a.logger.Error("failed to simulate",
			zap.String("op", "main.simulate"),
			zap.Error(err),
		)
		return err
	}
	_ = bar.Finish()

	rides := data.Rides()
	path := a.conf.Export.ParquetPath
	if path == "" {
		// Without a ledger path the usage table is printed instead
		return output.JSONFormat(os.Stdout, data.Usage())
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if err := export.WriteRideLedger(path, rides); err != nil {
		a.logger.Error("failed to write ride ledger",
			zap.String("op", "main.simulate"),
			zap.String("path", path),
			zap.Error(err),
		)
		return err
	}
	a.logger.Info("wrote ride ledger",
		zap.String("op", "main.simulate"),
		zap.String("path", path),
		zap.Int("replications", len(data.Runs())),
		zap.Int("rides", len(rides)),
		zap.Int("usageRecords", len(data.Usage())),
	)

	s3conf := a.conf.Export.S3
	if !s3conf.Enabled() {
		return nil
	}
	key := s3conf.Key
	if key == "" {
		key = filepath.Base(path)
	}
	uploader, err := export.NewS3Uploader(ctx, a.logger, s3conf.Region)
	if err != nil {
		return err
	}
	if err := uploader.UploadFile(ctx, path, s3conf.Bucket, key); err != nil {
		a.logger.Error("failed to upload ride ledger",
			zap.String("op", "main.simulate"),
			zap.String("bucket", s3conf.Bucket),
			zap.Error(err),
		)
		return err
	}
	return nil
}
