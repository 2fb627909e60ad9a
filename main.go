package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atlascommerce/shipping/internal/orchestrator"
	"github.com/atlascommerce/shipping/internal/server"
	"github.com/atlascommerce/shipping/internal/telemetry"
	"github.com/atlascommerce/shipping/internal/webhook"
	"github.com/atlascommerce/shipping/pkg/carrier"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "shipping",
	Short:   "Atlas Shipping - multi-carrier shipment orchestration service",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	} else {
		defer tracerShutdown(ctx)
	}

	st, err := initStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing store: %w", err)
	}

	rateCache := initRateCache(ctx, cfg, logger)
	defer rateCache.Close()

	mode := carrier.Mode(cfg.Mode)
	registry := initCarrierRegistry(cfg, logger)
	metrics := telemetry.NewMetrics()
	orderSvc := initOrderService()

	orch := orchestrator.New(registry, st, orderSvc, logger, metrics, mode)
	hooks := webhook.NewProcessor(registry, st, orch, logger, metrics, mode)

	logger.Info("Starting Atlas Shipping",
		zap.Int("port", cfg.Port),
		zap.String("version", cfg.Version),
		zap.String("mode", cfg.Mode),
		zap.Int("carriers", registry.Count()),
	)

	srv := server.New(server.Config{Port: cfg.Port, Mode: mode}, orch, hooks, rateCache, registry, logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
