// Package store persists shipment records, tracking updates, and webhook
// envelopes.
package store

import (
	"context"
	"time"

	"github.com/atlascommerce/shipping/pkg/carrier"
)

// ShipmentRecord is the persisted state of one shipment. At most one
// non-cancelled record exists per order; that invariant is enforced by the
// store, not by callers.
type ShipmentRecord struct {
	ID                  string
	OrderID             string
	Carrier             string
	Region              carrier.Region
	TrackingNumber      string
	TrackingPlaceholder bool
	Status              carrier.ShipmentStatus
	Cost                carrier.Money
	EstimatedDelivery   *time.Time
	Metadata            map[string]string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Store is the persistence interface shared by the orchestrator and the
// webhook processor. Implementations must make CreateShipment's
// exists-check-and-insert atomic under concurrent duplicate creates.
type Store interface {
	// CreateShipment inserts a new record. Returns carrier.ErrShipmentExists
	// (wrapped) when a non-cancelled record already exists for the order.
	CreateShipment(ctx context.Context, rec *ShipmentRecord) error

	// GetShipment fetches a record by id. Returns carrier.ErrShipmentNotFound
	// when absent.
	GetShipment(ctx context.Context, id string) (*ShipmentRecord, error)

	// GetShipmentByOrder fetches the live (non-cancelled) record for an order.
	GetShipmentByOrder(ctx context.Context, orderID string) (*ShipmentRecord, error)

	// GetShipmentByTracking fetches a record by tracking number.
	GetShipmentByTracking(ctx context.Context, trackingNumber string) (*ShipmentRecord, error)

	// UpdateShipment persists the mutable fields of a record.
	UpdateShipment(ctx context.Context, rec *ShipmentRecord) error

	// AppendUpdates appends tracking events for a shipment. Events are
	// append-only; duplicates are the caller's concern.
	AppendUpdates(ctx context.Context, shipmentID string, updates []carrier.ShippingUpdate) error

	// ListUpdates returns the tracking events for a shipment ordered by
	// carrier timestamp.
	ListUpdates(ctx context.Context, shipmentID string) ([]carrier.ShippingUpdate, error)

	// SaveWebhook upserts a webhook envelope by id.
	SaveWebhook(ctx context.Context, hook *carrier.ShippingWebhook) error

	// GetWebhook fetches a webhook envelope by id; nil when absent.
	GetWebhook(ctx context.Context, id string) (*carrier.ShippingWebhook, error)

	// ListWebhooks returns recent envelopes for a carrier, newest first, for
	// forensic review.
	ListWebhooks(ctx context.Context, carrierID string, limit int) ([]carrier.ShippingWebhook, error)
}
