package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Mode     string `envconfig:"SHIPPING_MODE" default:"live"` // live|sandbox

	// Storage
	DatabaseURL string `envconfig:"DATABASE_URL"` // empty selects the in-memory store

	// Rate cache
	RedisAddr    string        `envconfig:"REDIS_ADDR"` // empty disables caching
	RateCacheTTL time.Duration `envconfig:"RATE_CACHE_TTL" default:"5m"`

	// Shiprocket (region IN)
	ShiprocketEmail         string        `envconfig:"SHIPROCKET_EMAIL"`
	ShiprocketPassword      string        `envconfig:"SHIPROCKET_PASSWORD"`
	ShiprocketBaseURL       string        `envconfig:"SHIPROCKET_BASE_URL" default:"https://apiv2.shiprocket.in/v1/external"`
	ShiprocketWebhookSecret string        `envconfig:"SHIPROCKET_WEBHOOK_SECRET"`
	ShiprocketTimeout       time.Duration `envconfig:"SHIPROCKET_TIMEOUT" default:"5s"`
	ShiprocketEnabled       bool          `envconfig:"SHIPROCKET_ENABLED" default:"true"`
	ShiprocketUseMock       bool          `envconfig:"SHIPROCKET_USE_MOCK" default:"false"`

	// Shippo (region NA)
	ShippoAPIToken      string        `envconfig:"SHIPPO_API_TOKEN"`
	ShippoBaseURL       string        `envconfig:"SHIPPO_BASE_URL" default:"https://api.goshippo.com"`
	ShippoWebhookSecret string        `envconfig:"SHIPPO_WEBHOOK_SECRET"`
	ShippoTimeout       time.Duration `envconfig:"SHIPPO_TIMEOUT" default:"5s"`
	ShippoEnabled       bool          `envconfig:"SHIPPO_ENABLED" default:"true"`
	ShippoUseMock       bool          `envconfig:"SHIPPO_USE_MOCK" default:"false"`

	// DHL (region EU)
	DHLAPIKey        string        `envconfig:"DHL_API_KEY"`
	DHLAPISecret     string        `envconfig:"DHL_API_SECRET"`
	DHLBaseURL       string        `envconfig:"DHL_BASE_URL" default:"https://express.api.dhl.com/mydhlapi"`
	DHLWebhookSecret string        `envconfig:"DHL_WEBHOOK_SECRET"`
	DHLTimeout       time.Duration `envconfig:"DHL_TIMEOUT" default:"5s"`
	DHLEnabled       bool          `envconfig:"DHL_ENABLED" default:"true"`
	DHLUseMock       bool          `envconfig:"DHL_USE_MOCK" default:"false"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"true"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"atlas-shipping"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cfg.Mode != "live" && cfg.Mode != "sandbox" {
		return nil, fmt.Errorf("invalid SHIPPING_MODE %q: must be live or sandbox", cfg.Mode)
	}
	return &cfg, nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.String("shipping.mode", c.Mode),
		attribute.Bool("shiprocket.enabled", c.ShiprocketEnabled),
		attribute.Bool("shippo.enabled", c.ShippoEnabled),
		attribute.Bool("dhl.enabled", c.DHLEnabled),
	}
}
