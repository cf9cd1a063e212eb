// Main ETL daemon. No CLI arguments: every tunable is environment-driven
// (see pkg/config), matching the original indexer's container-first
// startup shape.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evandiewald/helium-arango-etl/internal/progress"
	"github.com/evandiewald/helium-arango-etl/internal/source"
	"github.com/evandiewald/helium-arango-etl/internal/syncctl"
	"github.com/evandiewald/helium-arango-etl/internal/util"
	"github.com/evandiewald/helium-arango-etl/pkg/config"
	"github.com/evandiewald/helium-arango-etl/pkg/errs"
)

const serviceName = "helium-arango-etl"

func main() {
	logger := util.InitLogger()
	logger.Info().Msg("starting helium arango etl")

	ko := util.InitConfig(logger, "config.toml")
	util.UpdateLogLevel(ko, logger)

	cfg, err := config.Load(ko)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srcClient, err := source.New(ctx, cfg.PostgresURL, *logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to source database")
		var classified *errs.Error
		if errors.As(err, &classified) && classified.Kind == errs.KindConnectFatal {
			os.Exit(2) // unrecoverable connection loss gets its own exit code
		}
		os.Exit(1)
	}
	defer srcClient.Close()

	checkpointPath := ko.String("etl.checkpoint.path")
	if checkpointPath == "" {
		checkpointPath = "checkpoint.db"
	}
	checkpointStore, err := syncctl.NewCheckpointStore(checkpointPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open checkpoint store")
	}
	defer checkpointStore.Close()
	logger.Info().Str("path", checkpointPath).Msg("initialized checkpoint store")

	var progressPub *progress.Publisher
	if natsURL := ko.String("nats.url"); natsURL != "" {
		progressPub, err = progress.NewPublisher(natsURL, 24*time.Hour, *logger)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to connect to nats, continuing without progress events")
			progressPub = nil
		} else {
			defer progressPub.Close()
			logger.Info().Str("url", natsURL).Msg("initialized progress publisher")
		}
	}

	controller := syncctl.New(*logger, srcClient, cfg, checkpointStore, progressPub)

	metricsAddr := ko.String("metrics.address")
	if metricsAddr == "" {
		metricsAddr = ":9090"
	}
	metricsServer := &http.Server{Addr: metricsAddr, Handler: promhttp.Handler()}
	go func() {
		logger.Info().Str("address", metricsAddr).Msg("starting metrics server")
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()

	healthAddr := ko.String("health.address")
	if healthAddr == "" {
		healthAddr = ":8080"
	}
	healthServer := &http.Server{Addr: healthAddr, Handler: http.HandlerFunc(healthCheckHandler(controller))}
	go func() {
		logger.Info().Str("address", healthAddr).Msg("starting health check server")
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("health check server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- controller.Start(ctx)
	}()

	exitCode := 0
	controllerDone := false
	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case err := <-errChan:
		controllerDone = true
		if err != nil && err != context.Canceled {
			logger.Error().Err(err).Msg("sync controller exited with error")
			exitCode = 1
		}
	}

	logger.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.DrainTimeout)
	defer shutdownCancel()

	// wait for in-flight controller work up to the drain timeout, then
	// abandon it (idempotent keys make abandoned writes safe)
	if !controllerDone {
		select {
		case <-errChan:
		case <-shutdownCtx.Done():
			logger.Warn().Dur("drain_timeout", cfg.DrainTimeout).Msg("in-flight work still running after drain timeout, abandoning it")
		}
	}

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("metrics server shutdown error")
	}
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("health server shutdown error")
	}

	logger.Info().Msg("shutdown complete")
	os.Exit(exitCode)
}

// healthCheckHandler reports the sync controller's health and progress.
func healthCheckHandler(controller *syncctl.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := controller.GetStatus()
		if !status.Healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "unhealthy\n")
			return
		}

		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "healthy\nphase: %s\nsync_height: %d\ncurrent_height: %d\nbehind: %d\n",
			status.Phase, status.SyncHeight, status.CurrentHeight, status.CurrentHeight-status.SyncHeight)
	}
}
