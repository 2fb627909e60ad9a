// Package dhl provides integration with the DHL Express API for European and
// international shipments.
package dhl

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/atlascommerce/shipping/pkg/carrier"
	"github.com/google/uuid"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const carrierName = "dhl"

// defaultOriginPostal is applied to rate requests with no origin.
const defaultOriginPostal = "10115" // Berlin

// Config holds DHL configuration.
type Config struct {
	APIKey        string
	APISecret     string
	BaseURL       string
	WebhookSecret string
	Timeout       time.Duration
	UseMock       bool
}

// Client is the DHL carrier adapter.
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
}

// New creates a new DHL client.
func New(cfg Config, logger *otelzap.Logger) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey,
			APISecret: cfg.APISecret,
			Timeout:   cfg.Timeout,
		})
	}

	return &Client{config: cfg, apiClient: apiClient, logger: logger}
}

// NewWithAPIClient creates a new DHL client with a custom API client.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger) *Client {
	return &Client{config: cfg, apiClient: apiClient, logger: logger}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return carrierName
}

// CreateShipment books a shipment with DHL.
func (c *Client) CreateShipment(ctx context.Context, req *carrier.ShippingRequest) (*carrier.ShippingResponse, error) {
	c.logger.Info("Creating DHL shipment",
		zap.String("order_id", req.OrderID),
		zap.String("destination_country", req.Destination.CountryCode),
	)

	apiReq := &ShipmentRequest{
		PlannedShippingDate: time.Now().Format(time.RFC3339),
		ProductCode:         mapMethodProduct(req.Method),
		Shipper:             partyFromAddress(req.Origin),
		Receiver:            partyFromAddress(req.Destination),
		Packages: []PackageInput{
			{
				Weight: req.WeightGrams / 1000.0, // DHL expects kg
				Length: req.LengthCM,
				Width:  req.WidthCM,
				Height: req.HeightCM,
			},
		},
		DeclaredValue:     req.DeclaredValue.Amount,
		DeclaredCurrency:  req.DeclaredValue.Currency,
		CustomerReference: req.OrderID,
		Instructions:      req.Instructions,
	}

	apiResp, err := c.apiClient.CreateShipment(ctx, apiReq)
	if err != nil {
		c.logger.Error("DHL API error", zap.Error(err))
		return nil, err
	}

	return shipmentResponseToShipping(apiResp), nil
}

// GetShipmentStatus polls shipment state. DHL keys everything off the
// shipment tracking number.
func (c *Client) GetShipmentStatus(ctx context.Context, shipmentID string) (*carrier.ShippingResponse, error) {
	c.logger.Info("Polling DHL shipment", zap.String("shipment_id", shipmentID))

	details, err := c.apiClient.GetShipment(ctx, shipmentID)
	if err != nil {
		c.logger.Error("DHL API error", zap.Error(err))
		return nil, err
	}

	var estimated *time.Time
	if details.EstimatedDeliveryDate != "" {
		if t, err := time.Parse("2006-01-02", details.EstimatedDeliveryDate); err == nil {
			estimated = &t
		}
	}

	return &carrier.ShippingResponse{
		ShipmentID:        details.ShipmentTrackingNumber,
		TrackingNumber:    details.ShipmentTrackingNumber,
		Status:            mapStatus(details.Status),
		Carrier:           carrierName,
		EstimatedDelivery: estimated,
		Metadata: map[string]string{
			"raw_status":  details.Status,
			"description": details.Description,
		},
	}, nil
}

// TrackShipment returns the normalized tracking history.
func (c *Client) TrackShipment(ctx context.Context, trackingNumber string) ([]carrier.ShippingUpdate, error) {
	c.logger.Info("Tracking DHL shipment", zap.String("tracking_number", trackingNumber))

	apiResp, err := c.apiClient.GetTracking(ctx, trackingNumber)
	if err != nil {
		c.logger.Error("DHL API error", zap.Error(err))
		return nil, err
	}

	updates := make([]carrier.ShippingUpdate, 0)
	for _, s := range apiResp.Shipments {
		for _, ev := range s.Events {
			ts, _ := time.Parse(time.RFC3339, ev.Timestamp)
			updates = append(updates, carrier.ShippingUpdate{
				TrackingNumber: trackingNumber,
				Status:         mapStatus(ev.StatusCode),
				Location:       ev.Location.Address.AddressLocality,
				Description:    ev.Description,
				Timestamp:      ts,
				Metadata:       map[string]string{"raw_status": ev.StatusCode},
			})
		}
	}

	sort.Slice(updates, func(i, j int) bool {
		return updates[i].Timestamp.Before(updates[j].Timestamp)
	})

	return updates, nil
}

// CancelShipment cancels a not-yet-dispatched shipment.
func (c *Client) CancelShipment(ctx context.Context, shipmentID, reason string) (bool, error) {
	c.logger.Info("Cancelling DHL shipment",
		zap.String("shipment_id", shipmentID),
		zap.String("reason", reason),
	)

	apiResp, err := c.apiClient.CancelShipment(ctx, shipmentID, reason)
	if err != nil {
		c.logger.Error("DHL API error", zap.Error(err))
		return false, err
	}

	switch strings.ToLower(apiResp.Status) {
	case "cancelled", "canceled":
		return true, nil
	case "declined":
		return false, nil
	default:
		return false, carrier.NewProviderError(carrierName,
			"unexpected cancel status "+apiResp.Status, apiResp.Message)
	}
}

// GetRates returns rate options, defaulting missing origin fields.
func (c *Client) GetRates(ctx context.Context, req *carrier.ShippingRequest) ([]carrier.ShippingRate, error) {
	origin := req.Origin
	if origin.PostalCode == "" {
		origin.PostalCode = defaultOriginPostal
		origin.CountryCode = "DE"
	}
	weight := req.WeightGrams / 1000.0
	if weight <= 0 {
		weight = 0.5
	}

	apiReq := &RateRequest{
		OriginCountryCode:      origin.CountryCode,
		OriginPostalCode:       origin.PostalCode,
		DestinationCountryCode: req.Destination.CountryCode,
		DestinationPostalCode:  req.Destination.PostalCode,
		Weight:                 weight,
		Length:                 req.LengthCM,
		Width:                  req.WidthCM,
		Height:                 req.HeightCM,
	}

	apiResp, err := c.apiClient.GetRates(ctx, apiReq)
	if err != nil {
		c.logger.Error("DHL API error", zap.Error(err))
		return nil, err
	}

	rates := make([]carrier.ShippingRate, 0, len(apiResp.Products))
	for _, p := range apiResp.Products {
		var cost carrier.Money
		if len(p.TotalPrice) > 0 {
			cost = carrier.Money{Amount: p.TotalPrice[0].Price, Currency: p.TotalPrice[0].CurrencyType}
		}
		rates = append(rates, carrier.ShippingRate{
			Carrier:       carrierName,
			Method:        mapProductMethod(p.ProductCode),
			ServiceName:   p.ProductName,
			Cost:          cost,
			EstimatedDays: p.DeliveryCapabilities.TotalTransitDays,
			Available:     true,
		})
	}
	return rates, nil
}

// ValidateWebhook checks the HMAC-SHA256 signature over the raw payload.
func (c *Client) ValidateWebhook(payload []byte, signature string) bool {
	return carrier.VerifySignature(c.config.WebhookSecret, payload, signature)
}

// ProcessWebhook normalizes a raw DHL push event into a webhook envelope.
func (c *Client) ProcessWebhook(payload []byte) *carrier.ShippingWebhook {
	hook := &carrier.ShippingWebhook{
		Carrier:    carrierName,
		Payload:    payload,
		ReceivedAt: time.Now().UTC(),
	}

	var wp WebhookPayload
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
		Status:         mapStatus(wp.StatusCode),
		Location:       wp.Location,
		Description:    wp.Description,
		Timestamp:      ts,
		Metadata:       map[string]string{"raw_status": wp.StatusCode},
	}
	return hook
}

// ============================================================================
// Conversion helpers
// ============================================================================

func partyFromAddress(a carrier.Address) Party {
	return Party{
		Name:         a.Name,
		AddressLine1: a.Line1,
		AddressLine2: a.Line2,
		City:         a.City,
		PostalCode:   a.PostalCode,
		CountryCode:  a.CountryCode,
		Phone:        a.Phone,
		Email:        a.Email,
	}
}

func shipmentResponseToShipping(resp *ShipmentResponse) *carrier.ShippingResponse {
	tracking := resp.ShipmentTrackingNumber
	placeholder := false
	if tracking == "" && len(resp.Packages) > 0 {
		tracking = resp.Packages[0].TrackingNumber
	}
	if tracking == "" {
		tracking = "DHL-PEND-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(resp.EstimatedDeliveryDate)).String()[:8]
		placeholder = true
	}

	var cost carrier.Money
	if len(resp.ShipmentCharges) > 0 {
		cost = carrier.Money{Amount: resp.ShipmentCharges[0].Price, Currency: resp.ShipmentCharges[0].CurrencyType}
	}

	var estimated *time.Time
	if resp.EstimatedDeliveryDate != "" {
		if t, err := time.Parse("2006-01-02", resp.EstimatedDeliveryDate); err == nil {
			estimated = &t
		}
	}

	return &carrier.ShippingResponse{
		ShipmentID:          resp.ShipmentTrackingNumber,
		TrackingNumber:      tracking,
		TrackingPlaceholder: placeholder,
		TrackingURL:         resp.TrackingURL,
		Status:              carrier.StatusPending, // booked, nothing scanned yet
		Carrier:             carrierName,
		Cost:                cost,
		EstimatedDelivery:   estimated,
		Metadata:            map[string]string{},
	}
}

// ============================================================================
// Mapping helpers
// ============================================================================

// mapStatus normalizes DHL status codes. Unknown strings map to pending.
func mapStatus(status string) carrier.ShipmentStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "pre-transit", "label-created", "unknown":
		return carrier.StatusPending
	case "processed", "picked-up":
		return carrier.StatusPacked
	case "transit", "in-transit", "out-for-delivery", "customs":
		return carrier.StatusInTransit
	case "delivered":
		return carrier.StatusDelivered
	case "cancelled", "canceled":
		return carrier.StatusCancelled
	case "returned", "return-to-sender":
		return carrier.StatusReturned
	case "failure", "lost", "damaged":
		return carrier.StatusFailed
	default:
		return carrier.StatusPending
	}
}

func mapMethodProduct(method carrier.ShippingMethod) string {
	switch method {
	case carrier.MethodExpress, carrier.MethodOvernight, carrier.MethodPriority:
		return "P" // Express Worldwide
	case carrier.MethodEconomy:
		return "W" // Economy Select
	default:
		return "W"
	}
}

func mapProductMethod(code string) carrier.ShippingMethod {
	switch code {
	case "P", "U":
		return carrier.MethodExpress
	case "W", "H":
		return carrier.MethodEconomy
	default:
		return carrier.MethodStandard
	}
}

// Ensure Client implements the Adapter interface
var _ carrier.Adapter = (*Client)(nil)
