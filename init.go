package main

import (
	"context"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/atlascommerce/shipping/internal/config"
	"github.com/atlascommerce/shipping/internal/orders"
	"github.com/atlascommerce/shipping/internal/ratecache"
	"github.com/atlascommerce/shipping/internal/store"
	"github.com/atlascommerce/shipping/internal/telemetry"
	"github.com/atlascommerce/shipping/pkg/carrier"
	"github.com/atlascommerce/shipping/pkg/carrier/dhl"
	"github.com/atlascommerce/shipping/pkg/carrier/mock"
	"github.com/atlascommerce/shipping/pkg/carrier/shippo"
	"github.com/atlascommerce/shipping/pkg/carrier/shiprocket"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

func initTracer(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return func(context.Context) error { return nil }, nil
	}

	_, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
	return shutdown, err
}

func initStore(ctx context.Context, cfg *config.Config, logger *otelzap.Logger) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		return store.NewMemory(), nil
	}

	pg, err := store.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return pg, nil
}

func initRateCache(ctx context.Context, cfg *config.Config, logger *otelzap.Logger) *ratecache.Cache {
	if cfg.RedisAddr == "" {
		return nil // nil cache is a no-op
	}
	cache, err := ratecache.New(ctx, cfg.RedisAddr, cfg.RateCacheTTL)
	if err != nil {
		logger.Warn("Rate cache unavailable, quoting without it", zap.Error(err))
		return nil
	}
	return cache
}

// initOrderService wires the order collaborator. The in-process implementation
// stands in until the commerce platform's order service client is available.
func initOrderService() orders.Service {
	return orders.NewMemory()
}

// initCarrierRegistry registers one long-lived adapter per (region, mode)
// pair. Live adapters use real credentials; the sandbox slots get mock
// adapters sharing the live webhook secrets so signed test traffic works.
func initCarrierRegistry(cfg *config.Config, logger *otelzap.Logger) *carrier.Registry {
	registry := carrier.NewRegistry()

	if cfg.ShiprocketEnabled {
		sr := shiprocket.New(shiprocket.Config{
			Email:         cfg.ShiprocketEmail,
			Password:      cfg.ShiprocketPassword,
			BaseURL:       cfg.ShiprocketBaseURL,
			WebhookSecret: cfg.ShiprocketWebhookSecret,
			Timeout:       cfg.ShiprocketTimeout,
			UseMock:       cfg.ShiprocketUseMock,
		}, logger)
		registry.Register(carrier.RegionIN, carrier.ModeLive, sr)
		registry.Register(carrier.RegionIN, carrier.ModeSandbox,
			mock.NewWithSecret("shiprocket", cfg.ShiprocketWebhookSecret))
	}

	if cfg.ShippoEnabled {
		sp := shippo.New(shippo.Config{
			APIToken:      cfg.ShippoAPIToken,
			BaseURL:       cfg.ShippoBaseURL,
			WebhookSecret: cfg.ShippoWebhookSecret,
			Timeout:       cfg.ShippoTimeout,
			UseMock:       cfg.ShippoUseMock,
		}, logger)
		registry.Register(carrier.RegionNA, carrier.ModeLive, sp)
		registry.Register(carrier.RegionNA, carrier.ModeSandbox,
			mock.NewWithSecret("shippo", cfg.ShippoWebhookSecret))
	}

	if cfg.DHLEnabled {
		dh := dhl.New(dhl.Config{
			APIKey:        cfg.DHLAPIKey,
			APISecret:     cfg.DHLAPISecret,
			BaseURL:       cfg.DHLBaseURL,
			WebhookSecret: cfg.DHLWebhookSecret,
			Timeout:       cfg.DHLTimeout,
			UseMock:       cfg.DHLUseMock,
		}, logger)
		registry.Register(carrier.RegionEU, carrier.ModeLive, dh)
		registry.Register(carrier.RegionEU, carrier.ModeSandbox,
			mock.NewWithSecret("dhl", cfg.DHLWebhookSecret))
	}

	return registry
}
