// Package carrier provides an abstraction layer for shipping carriers.
package carrier

import (
	"context"
)

// Adapter defines the interface that all shipping carriers must implement.
// Adapters are stateless translators between the canonical shipment model and
// one carrier's proprietary API; the only long-lived mutable state an adapter
// may hold is a cached authentication token.
type Adapter interface {
	// Name returns the carrier identifier (e.g. "shiprocket", "shippo", "dhl").
	Name() string

	// CreateShipment submits a new shipment to the carrier and returns the
	// normalized response. If the carrier has not yet assigned a tracking
	// number, the adapter synthesizes a placeholder deterministically from
	// the carrier order id and flags it as such.
	CreateShipment(ctx context.Context, req *ShippingRequest) (*ShippingResponse, error)

	// GetShipmentStatus polls the carrier for the current state of a
	// shipment, applying the same status normalization as creation.
	GetShipmentStatus(ctx context.Context, shipmentID string) (*ShippingResponse, error)

	// TrackShipment returns the carrier's full event history normalized into
	// canonical updates. When the carrier reports no events yet it returns an
	// empty slice, never an error.
	TrackShipment(ctx context.Context, trackingNumber string) ([]ShippingUpdate, error)

	// CancelShipment returns true only if the carrier confirmed the
	// cancellation. A carrier rejection (e.g. already dispatched) surfaces as
	// a ProviderError; false without error means the carrier explicitly
	// declined.
	CancelShipment(ctx context.Context, shipmentID, reason string) (bool, error)

	// GetRates accepts a possibly incomplete request, applies carrier
	// defaults for missing fields, and returns the available rate options.
	GetRates(ctx context.Context, req *ShippingRequest) ([]ShippingRate, error)

	// ValidateWebhook checks the HMAC-SHA256 signature of a raw webhook
	// payload using constant-time comparison.
	ValidateWebhook(payload []byte, signature string) bool

	// ProcessWebhook normalizes a raw carrier callback into a webhook
	// envelope. It never returns an error: malformed payloads produce an
	// envelope with Processed=false so the audit trail is always written.
	ProcessWebhook(payload []byte) *ShippingWebhook
}
