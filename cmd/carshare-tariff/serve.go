package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/iwvelando/carshare-tariff/internal/config"
	"github.com/iwvelando/carshare-tariff/internal/engine"
	"github.com/iwvelando/carshare-tariff/internal/server"
	"github.com/iwvelando/carshare-tariff/pkg/constants"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func (a *app) serveCommand() *cobra.Command {
	var serverConfigPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve tariff optimization over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), serverConfigPath)
		},
	}
	cmd.Flags().StringVar(&serverConfigPath, "server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	addSimulationFlags(cmd)
	return cmd
}

func (a *app) serve(ctx context.Context, serverConfigPath string) error {
	serverConf, err := server.LoadConfig(serverConfigPath)
	if err != nil {
		a.logger.Error("failed to load server configuration",
			zap.String("op", "main.serve"),
			zap.String("path", serverConfigPath),
			zap.Error(err),
		)
		return err
	}
	if serverConf.Version == "dev" {
		serverConf.Version = version
	}

	logger := a.logger
	// A logging section in the server config replaces the application's
	if serverConf.Logging != (config.LoggingConfig{}) {
		logger, err = initializeLogger(serverConf.Logging, a.logLevel)
		if err != nil {
			return err
		}
		defer func() {
			_ = logger.Sync()
		}()
	}

	data, err := a.buildContext(ctx, nil)
	if err != nil {
		logger.Error("failed to build optimization context",
			zap.String("op", "main.serve"),
			zap.Error(err),
		)
		return err
	}
	service, err := engine.NewService(logger, data, engine.SettingsFromConfig(a.conf))
	if err != nil {
		return err
	}

	srv := serverConf.NewHTTPServer(logger, server.NewHandler(logger, service, serverConf))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		logger.Info("serving tariff optimization",
			zap.String("op", "main.serve"),
			zap.String("address", serverConf.Address),
			zap.String("version", serverConf.Version),
			zap.String("source", data.Source()),
		)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped",
				zap.String("op", "main.serve"),
				zap.Error(err),
			)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("shutting down",
		zap.String("op", "main.serve"),
	)
	return srv.Shutdown(shutdownCtx)
}
