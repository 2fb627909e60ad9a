// Package mock provides a mock carrier adapter for tests and sandbox mode.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/atlascommerce/shipping/pkg/carrier"
	"github.com/google/uuid"
)

// Client is a mock carrier adapter. Zero value behavior is a well-behaved
// carrier; tests override individual operations with the On* hooks.
type Client struct {
	name   string
	secret string

	OnCreateShipment    func(ctx context.Context, req *carrier.ShippingRequest) (*carrier.ShippingResponse, error)
	OnGetShipmentStatus func(ctx context.Context, shipmentID string) (*carrier.ShippingResponse, error)
	OnTrackShipment     func(ctx context.Context, trackingNumber string) ([]carrier.ShippingUpdate, error)
	OnCancelShipment    func(ctx context.Context, shipmentID, reason string) (bool, error)
	OnGetRates          func(ctx context.Context, req *carrier.ShippingRequest) ([]carrier.ShippingRate, error)
}

// New creates a new mock adapter with the given carrier name.
func New(name string) *Client {
	return &Client{name: name, secret: "mock-secret"}
}

// NewWithSecret creates a mock adapter with a specific webhook secret.
func NewWithSecret(name, secret string) *Client {
	return &Client{name: name, secret: secret}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return c.name
}

// CreateShipment returns a mock shipment creation response.
func (c *Client) CreateShipment(ctx context.Context, req *carrier.ShippingRequest) (*carrier.ShippingResponse, error) {
	if c.OnCreateShipment != nil {
		return c.OnCreateShipment(ctx, req)
	}

	now := time.Now()
	shipmentID := fmt.Sprintf("%s-shp-%d", c.name, now.UnixNano())
	estimated := now.AddDate(0, 0, 4)

	return &carrier.ShippingResponse{
		ShipmentID:        shipmentID,
		TrackingNumber:    fmt.Sprintf("MK%s%09d", c.name[:2], now.UnixNano()%1000000000),
		TrackingURL:       fmt.Sprintf("https://track.%s.mock/%s", c.name, shipmentID),
		Status:            carrier.StatusPending,
		Carrier:           c.name,
		Cost:              carrier.Money{Amount: 99.00, Currency: "INR"},
		EstimatedDelivery: &estimated,
		Metadata:          map[string]string{"mock": "true"},
	}, nil
}

// GetShipmentStatus returns a mock status poll.
func (c *Client) GetShipmentStatus(ctx context.Context, shipmentID string) (*carrier.ShippingResponse, error) {
	if c.OnGetShipmentStatus != nil {
		return c.OnGetShipmentStatus(ctx, shipmentID)
	}

	return &carrier.ShippingResponse{
		ShipmentID:     shipmentID,
		TrackingNumber: "MK" + uuid.New().String()[:10],
		Status:         carrier.StatusInTransit,
		Carrier:        c.name,
		Cost:           carrier.Money{Amount: 99.00, Currency: "INR"},
		Metadata:       map[string]string{"mock": "true"},
	}, nil
}

// TrackShipment returns a mock tracking history.
func (c *Client) TrackShipment(ctx context.Context, trackingNumber string) ([]carrier.ShippingUpdate, error) {
	if c.OnTrackShipment != nil {
		return c.OnTrackShipment(ctx, trackingNumber)
	}

	now := time.Now()
	return []carrier.ShippingUpdate{
		{
			TrackingNumber: trackingNumber,
			Status:         carrier.StatusPacked,
			Location:       "Origin facility",
			Description:    "Shipment packed",
			Timestamp:      now.Add(-24 * time.Hour),
		},
		{
			TrackingNumber: trackingNumber,
			Status:         carrier.StatusInTransit,
			Location:       "Transit hub",
			Description:    "Shipment in transit",
			Timestamp:      now.Add(-4 * time.Hour),
		},
	}, nil
}

// CancelShipment confirms cancellation.
func (c *Client) CancelShipment(ctx context.Context, shipmentID, reason string) (bool, error) {
	if c.OnCancelShipment != nil {
		return c.OnCancelShipment(ctx, shipmentID, reason)
	}
	return true, nil
}

// GetRates returns mock rate options.
func (c *Client) GetRates(ctx context.Context, req *carrier.ShippingRequest) ([]carrier.ShippingRate, error) {
	if c.OnGetRates != nil {
		return c.OnGetRates(ctx, req)
	}

	return []carrier.ShippingRate{
		{
			Carrier:       c.name,
			Method:        carrier.MethodStandard,
			ServiceName:   c.name + " Standard",
			Cost:          carrier.Money{Amount: 99.00, Currency: "INR"},
			EstimatedDays: 4,
			Available:     true,
		},
		{
			Carrier:       c.name,
			Method:        carrier.MethodExpress,
			ServiceName:   c.name + " Express",
			Cost:          carrier.Money{Amount: 199.00, Currency: "INR"},
			EstimatedDays: 2,
			Available:     true,
		},
	}, nil
}

// ValidateWebhook checks the HMAC-SHA256 signature over the raw payload.
func (c *Client) ValidateWebhook(payload []byte, signature string) bool {
	return carrier.VerifySignature(c.secret, payload, signature)
}

// mockWebhook is the payload shape the mock adapter understands.
type mockWebhook struct {
	EventID        string `json:"event_id"`
	TrackingNumber string `json:"tracking_number"`
	Status         string `json:"status"`
	Location       string `json:"location"`
	Description    string `json:"description"`
	Timestamp      string `json:"timestamp"` // RFC 3339
}

// ProcessWebhook normalizes a mock webhook payload.
func (c *Client) ProcessWebhook(payload []byte) *carrier.ShippingWebhook {
	hook := &carrier.ShippingWebhook{
		Carrier:    c.name,
		Payload:    payload,
		ReceivedAt: time.Now().UTC(),
	}

	var wp mockWebhook
	if err := json.Unmarshal(payload, &wp); err != nil || wp.TrackingNumber == "" {
		hook.ID = uuid.New().String()
		hook.Event = "unparsed"
		return hook
	}

	hook.ID = wp.EventID
	if hook.ID == "" {
		hook.ID = uuid.New().String()
	}
	hook.Event = wp.Status

	ts, err := time.Parse(time.RFC3339, wp.Timestamp)
	if err != nil {
		ts = hook.ReceivedAt
	}

	hook.Processed = true
	hook.Update = &carrier.ShippingUpdate{
		TrackingNumber: wp.TrackingNumber,
		Status:         mapStatus(wp.Status),
		Location:       wp.Location,
		Description:    wp.Description,
		Timestamp:      ts,
	}
	return hook
}

// mapStatus accepts canonical status strings; anything else maps to pending.
func mapStatus(status string) carrier.ShipmentStatus {
	switch s := carrier.ShipmentStatus(status); s {
	case carrier.StatusPending, carrier.StatusPacked, carrier.StatusInTransit,
		carrier.StatusDelivered, carrier.StatusCancelled, carrier.StatusReturned,
		carrier.StatusFailed:
		return s
	default:
		return carrier.StatusPending
	}
}

// Ensure Client implements the Adapter interface
var _ carrier.Adapter = (*Client)(nil)
