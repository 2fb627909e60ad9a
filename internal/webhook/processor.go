// Package webhook ingests asynchronous carrier callbacks. Every inbound
// payload is persisted as an audit envelope whether or not it verifies or
// parses; only verified, first-seen events reach the shipment state machine.
package webhook

import (
	"context"
	"fmt"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/atlascommerce/shipping/internal/orchestrator"
	"github.com/atlascommerce/shipping/internal/store"
	"github.com/atlascommerce/shipping/internal/telemetry"
	"github.com/atlascommerce/shipping/pkg/carrier"
)

// Processor verifies, deduplicates, and applies carrier webhooks.
type Processor struct {
	registry     *carrier.Registry
	store        store.Store
	orchestrator *orchestrator.Orchestrator
	logger       *otelzap.Logger
	metrics      *telemetry.Metrics
	mode         carrier.Mode
}

// NewProcessor creates a webhook processor.
func NewProcessor(registry *carrier.Registry, st store.Store, orch *orchestrator.Orchestrator,
	logger *otelzap.Logger, metrics *telemetry.Metrics, mode carrier.Mode) *Processor {
	return &Processor{
		registry:     registry,
		store:        st,
		orchestrator: orch,
		logger:       logger,
		metrics:      metrics,
		mode:         mode,
	}
}

// Process handles one inbound webhook. Returns carrier.ErrInvalidSignature
// when the HMAC does not match; the envelope is persisted with
// Processed=false even in that case. Replays of an already-processed event id
// are no-ops, which makes at-least-once carrier delivery safe.
func (p *Processor) Process(ctx context.Context, carrierID string, payload []byte, signature string) error {
	if !carrier.KnownCarrier(carrierID) {
		// Unknown carriers route to the home region's configuration. That is
		// almost certainly an onboarding gap, so make it loud.
		p.logger.Ctx(ctx).Warn("webhook from carrier with no region mapping",
			zap.String("carrier", carrierID),
		)
		p.metrics.RecordUnmappedCarrier(carrierID)
	}
	region := carrier.ResolveCarrier(carrierID)

	adapter, err := p.registry.Get(region, p.mode)
	if err != nil {
		p.metrics.RecordWebhook(carrierID, "unsupported_region")
		return err
	}

	envelope := adapter.ProcessWebhook(payload)
	envelope.Carrier = carrierID
	envelope.Signature = signature
	// Processed tracks application to the shipment record, not parse success;
	// it flips to true only after the tracking event lands.
	envelope.Processed = false

	existing, err := p.store.GetWebhook(ctx, envelope.ID)
	if err != nil {
		return err
	}
	if existing != nil && existing.Processed {
		p.metrics.RecordWebhook(carrierID, "duplicate")
		return nil
	}

	if !adapter.ValidateWebhook(payload, signature) {
		envelope.Processed = false
		if saveErr := p.store.SaveWebhook(ctx, envelope); saveErr != nil {
			p.logger.Ctx(ctx).Error("failed to persist rejected webhook",
				zap.String("carrier", carrierID),
				zap.Error(saveErr),
			)
		}
		p.metrics.RecordWebhook(carrierID, "invalid_signature")
		return fmt.Errorf("%w: carrier %s", carrier.ErrInvalidSignature, carrierID)
	}

	if existing != nil {
		envelope.RetryCount = existing.RetryCount + 1
	}
	if err := p.store.SaveWebhook(ctx, envelope); err != nil {
		return err
	}

	if envelope.Update == nil {
		// Parsed but carries no tracking implication (or failed to parse).
		// The envelope stays on record with Processed=false.
		p.metrics.RecordWebhook(carrierID, "no_update")
		return nil
	}

	if err := p.orchestrator.ApplyTrackingEvent(ctx, envelope.Update); err != nil {
		p.logger.Ctx(ctx).Error("failed to apply webhook tracking event",
			zap.String("carrier", carrierID),
			zap.String("webhook_id", envelope.ID),
			zap.String("tracking_number", envelope.Update.TrackingNumber),
			zap.Error(err),
		)
		p.metrics.RecordWebhook(carrierID, "apply_failed")
		return err
	}

	envelope.Processed = true
	if err := p.store.SaveWebhook(ctx, envelope); err != nil {
		return err
	}

	p.logger.Ctx(ctx).Info("webhook processed",
		zap.String("carrier", carrierID),
		zap.String("webhook_id", envelope.ID),
		zap.String("event", envelope.Event),
		zap.String("tracking_number", envelope.Update.TrackingNumber),
		zap.String("status", string(envelope.Update.Status)),
	)
	p.metrics.RecordWebhook(carrierID, "ok")
	return nil
}

// Recent returns the newest persisted envelopes for a carrier, for forensic
// review. An empty carrier id lists across carriers.
func (p *Processor) Recent(ctx context.Context, carrierID string, limit int) ([]carrier.ShippingWebhook, error) {
	return p.store.ListWebhooks(ctx, carrierID, limit)
}
