// Package server exposes the shipment orchestration service over REST.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/atlascommerce/shipping/internal/orchestrator"
	"github.com/atlascommerce/shipping/internal/ratecache"
	"github.com/atlascommerce/shipping/internal/webhook"
	"github.com/atlascommerce/shipping/pkg/carrier"
)

// SignatureHeader carries the hex-encoded HMAC-SHA256 of the raw webhook body.
const SignatureHeader = "X-Shipping-Signature"

// Server is the HTTP server for the shipping service.
type Server struct {
	port         int
	orchestrator *orchestrator.Orchestrator
	webhooks     *webhook.Processor
	rateCache    *ratecache.Cache
	registry     *carrier.Registry
	logger       *otelzap.Logger
	mode         carrier.Mode
}

// Config holds server configuration.
type Config struct {
	Port int
	Mode carrier.Mode
}

// New creates a new server instance.
func New(cfg Config, orch *orchestrator.Orchestrator, hooks *webhook.Processor,
	rateCache *ratecache.Cache, registry *carrier.Registry, logger *otelzap.Logger) *Server {
	return &Server{
		port:         cfg.Port,
		orchestrator: orch,
		webhooks:     hooks,
		rateCache:    rateCache,
		registry:     registry,
		logger:       logger,
		mode:         cfg.Mode,
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/shipments", s.handleCreateShipment)
		r.Get("/shipments/{id}", s.handleGetShipment)
		r.Get("/shipments/track/{trackingNumber}", s.handleTrackShipment)
		r.Post("/shipments/{id}/cancel", s.handleCancelShipment)
		r.Post("/shipments/rates", s.handleGetRates)
		r.Post("/webhooks/{carrier}", s.handleWebhook)
		r.Get("/webhooks/{carrier}", s.handleListWebhooks)
	})

	return r
}

// Handler returns the fully wired HTTP handler, primarily for tests and
// embedding.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port), zap.String("mode", string(s.mode)))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"mode":     string(s.mode),
		"carriers": s.registry.Count(),
	})
}
