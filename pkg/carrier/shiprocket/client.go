// Package shiprocket provides integration with the Shiprocket shipping API.
package shiprocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/atlascommerce/shipping/pkg/carrier"
	"github.com/google/uuid"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const carrierName = "shiprocket"

// scanTimeLayout is Shiprocket's timestamp format for scans and ETDs.
const scanTimeLayout = "2006-01-02 15:04:05"

// defaultOriginPincode is applied to rate requests that arrive before an
// order exists and carry no origin.
const defaultOriginPincode = "110001"

// Config holds Shiprocket configuration.
type Config struct {
	Email         string
	Password      string
	BaseURL       string
	WebhookSecret string
	Timeout       time.Duration
	UseMock       bool // When true, uses the mock API client
}

// Client is the Shiprocket carrier adapter. It implements carrier.Adapter
// and delegates API calls to the underlying APIClient (mock or HTTP).
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
}

// New creates a new Shiprocket client. If cfg.UseMock is true it uses the
// mock API client, otherwise the real HTTP client.
func New(cfg Config, logger *otelzap.Logger) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:  cfg.BaseURL,
			Email:    cfg.Email,
			Password: cfg.Password,
			Timeout:  cfg.Timeout,
		})
	}

	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
	}
}

// NewWithAPIClient creates a new Shiprocket client with a custom API client.
// This is useful for injecting mock clients in tests.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger) *Client {
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
	}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return carrierName
}

// CreateShipment creates a shipment with Shiprocket.
func (c *Client) CreateShipment(ctx context.Context, req *carrier.ShippingRequest) (*carrier.ShippingResponse, error) {
	c.logger.Info("Creating Shiprocket shipment",
		zap.String("order_id", req.OrderID),
		zap.String("destination_city", req.Destination.City),
	)

	apiReq := orderRequestFromShipping(req)

	apiResp, err := c.apiClient.CreateOrder(ctx, apiReq)
	if err != nil {
		c.logger.Error("Shiprocket API error", zap.Error(err))
		return nil, err
	}

	return orderResponseToShipping(apiResp), nil
}

// GetShipmentStatus polls the current state of a shipment.
func (c *Client) GetShipmentStatus(ctx context.Context, shipmentID string) (*carrier.ShippingResponse, error) {
	c.logger.Info("Polling Shiprocket shipment", zap.String("shipment_id", shipmentID))

	apiResp, err := c.apiClient.GetOrder(ctx, shipmentID)
	if err != nil {
		c.logger.Error("Shiprocket API error", zap.Error(err))
		return nil, err
	}

	return orderResponseToShipping(apiResp), nil
}

// TrackShipment returns the normalized tracking history for an AWB.
func (c *Client) TrackShipment(ctx context.Context, trackingNumber string) ([]carrier.ShippingUpdate, error) {
	c.logger.Info("Tracking Shiprocket shipment", zap.String("awb", trackingNumber))

	apiResp, err := c.apiClient.GetTracking(ctx, trackingNumber)
	if err != nil {
		c.logger.Error("Shiprocket API error", zap.Error(err))
		return nil, err
	}

	updates := make([]carrier.ShippingUpdate, 0, len(apiResp.TrackingData.Activities))
	for _, a := range apiResp.TrackingData.Activities {
		ts, _ := time.Parse(scanTimeLayout, a.Date)
		updates = append(updates, carrier.ShippingUpdate{
			TrackingNumber: trackingNumber,
			Status:         mapStatus(a.SRStatus),
			Location:       a.Location,
			Description:    a.Activity,
			Timestamp:      ts,
			Metadata: map[string]string{
				"carrier_status_code": a.Status,
				"raw_status":          a.SRStatus,
			},
		})
	}

	// Carrier activities arrive newest-first; callers expect carrier
	// timestamp order.
	sort.Slice(updates, func(i, j int) bool {
		return updates[i].Timestamp.Before(updates[j].Timestamp)
	})

	return updates, nil
}

// CancelShipment cancels a shipment with Shiprocket. A carrier rejection
// surfaces as a ProviderError; false without error means Shiprocket
// explicitly declined.
func (c *Client) CancelShipment(ctx context.Context, shipmentID, reason string) (bool, error) {
	c.logger.Info("Cancelling Shiprocket shipment",
		zap.String("shipment_id", shipmentID),
		zap.String("reason", reason),
	)

	apiResp, err := c.apiClient.CancelOrder(ctx, shipmentID, reason)
	if err != nil {
		c.logger.Error("Shiprocket API error", zap.Error(err))
		return false, err
	}

	switch strings.ToUpper(apiResp.Status) {
	case "CANCELED", "CANCELLED":
		return true, nil
	case "DECLINED":
		return false, nil
	default:
		return false, carrier.NewProviderError(carrierName,
			fmt.Sprintf("unexpected cancel status %q", apiResp.Status), apiResp.Message)
	}
}

// GetRates returns rate options for a possibly incomplete request. Missing
// origin details default to the configured pickup pincode since this path
// runs before an order exists.
func (c *Client) GetRates(ctx context.Context, req *carrier.ShippingRequest) ([]carrier.ShippingRate, error) {
	pickup := req.Origin.PostalCode
	if pickup == "" {
		pickup = defaultOriginPincode
	}
	weight := req.WeightGrams / 1000.0
	if weight <= 0 {
		weight = 0.5
	}

	apiReq := &ServiceabilityRequest{
		PickupPostcode:   pickup,
		DeliveryPostcode: req.Destination.PostalCode,
		Weight:           weight,
	}

	apiResp, err := c.apiClient.GetServiceability(ctx, apiReq)
	if err != nil {
		c.logger.Error("Shiprocket API error", zap.Error(err))
		return nil, err
	}

	rates := make([]carrier.ShippingRate, 0, len(apiResp.Data.AvailableCouriers))
	for _, opt := range apiResp.Data.AvailableCouriers {
		days, _ := strconv.Atoi(opt.EstimatedDeliveryDays)
		rates = append(rates, carrier.ShippingRate{
			Carrier:       carrierName,
			Method:        mapCourierMethod(opt),
			ServiceName:   opt.CourierName,
			Cost:          carrier.Money{Amount: opt.Rate, Currency: "INR"},
			EstimatedDays: days,
			Available:     opt.Blocked == 0,
		})
	}
	return rates, nil
}

// ValidateWebhook checks the HMAC-SHA256 signature over the raw payload.
func (c *Client) ValidateWebhook(payload []byte, signature string) bool {
	return carrier.VerifySignature(c.config.WebhookSecret, payload, signature)
}

// ProcessWebhook normalizes a raw Shiprocket callback into a webhook
// envelope. Malformed payloads produce an envelope with Processed=false.
func (c *Client) ProcessWebhook(payload []byte) *carrier.ShippingWebhook {
	hook := &carrier.ShippingWebhook{
		Carrier:    carrierName,
		Payload:    payload,
		ReceivedAt: time.Now().UTC(),
	}

	var wp WebhookPayload
	if err := json.Unmarshal(payload, &wp); err != nil || wp.AWB == "" {
		hook.ID = uuid.New().String()
		hook.Event = "unparsed"
		return hook
	}

	hook.ID = wp.EventID
	if hook.ID == "" {
		hook.ID = uuid.New().String()
	}
	hook.Event = wp.CurrentStatus

	ts, err := time.Parse(scanTimeLayout, wp.ScanDate)
	if err != nil {
		ts = hook.ReceivedAt
	}

	hook.Processed = true
	hook.Update = &carrier.ShippingUpdate{
		TrackingNumber: wp.AWB,
		Status:         mapStatus(wp.CurrentStatus),
		Location:       wp.Location,
		Description:    wp.Remarks,
		Timestamp:      ts,
		Metadata: map[string]string{
			"raw_status":   wp.CurrentStatus,
			"courier_name": wp.CourierName,
			"sr_order_id":  wp.OrderID,
		},
	}
	return hook
}

// ============================================================================
// Conversion helpers: canonical models -> API models
// ============================================================================

func orderRequestFromShipping(req *carrier.ShippingRequest) *OrderRequest {
	items := make([]OrderItem, len(req.Items))
	subTotal := 0.0
	for i, it := range req.Items {
		items[i] = OrderItem{
			Name:         it.Name,
			SKU:          it.SKU,
			Units:        it.Quantity,
			SellingPrice: it.UnitValue,
		}
		subTotal += it.UnitValue * float64(it.Quantity)
	}
	if subTotal == 0 {
		subTotal = req.DeclaredValue.Amount
	}

	return &OrderRequest{
		OrderID:           req.OrderID,
		OrderDate:         time.Now().Format("2006-01-02"),
		BillingName:       req.Destination.Name,
		BillingAddress:    req.Destination.Line1,
		BillingAddress2:   req.Destination.Line2,
		BillingCity:       req.Destination.City,
		BillingState:      req.Destination.State,
		BillingPincode:    req.Destination.PostalCode,
		BillingCountry:    req.Destination.CountryCode,
		BillingPhone:      req.Destination.Phone,
		BillingEmail:      req.Destination.Email,
		ShippingIsBilling: true,
		OrderItems:        items,
		PaymentMethod:     "Prepaid",
		SubTotal:          subTotal,
		Length:            req.LengthCM,
		Breadth:           req.WidthCM,
		Height:            req.HeightCM,
		Weight:            req.WeightGrams / 1000.0, // Shiprocket expects kg
		Comment:           req.Instructions,
	}
}

// ============================================================================
// Conversion helpers: API models -> canonical models
// ============================================================================

func orderResponseToShipping(resp *OrderResponse) *carrier.ShippingResponse {
	shipmentID := strconv.FormatInt(resp.ShipmentID, 10)

	tracking := resp.AWBCode
	placeholder := false
	if tracking == "" {
		// No AWB assigned yet; derive a deterministic placeholder from the
		// carrier order id so downstream code never sees an empty number.
		tracking = fmt.Sprintf("SR-PEND-%d", resp.OrderID)
		placeholder = true
	}

	var estimated *time.Time
	if resp.ExpectedDelivery != "" {
		if t, err := time.Parse(scanTimeLayout, resp.ExpectedDelivery); err == nil {
			estimated = &t
		}
	}

	return &carrier.ShippingResponse{
		ShipmentID:          shipmentID,
		TrackingNumber:      tracking,
		TrackingPlaceholder: placeholder,
		TrackingURL:         fmt.Sprintf("https://shiprocket.co/tracking/%s", tracking),
		Status:              mapStatus(resp.Status),
		Carrier:             carrierName,
		Cost:                carrier.Money{Amount: resp.ShippingCharges, Currency: "INR"},
		EstimatedDelivery:   estimated,
		Metadata: map[string]string{
			"sr_order_id":  strconv.FormatInt(resp.OrderID, 10),
			"courier_name": resp.CourierName,
			"raw_status":   resp.Status,
		},
	}
}

// ============================================================================
// Mapping helpers
// ============================================================================

// mapStatus normalizes a Shiprocket status string into the canonical
// lifecycle. Unknown strings map to pending so an unrecognized status never
// blocks visibility of an otherwise valid shipment.
func mapStatus(status string) carrier.ShipmentStatus {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "NEW", "AWB ASSIGNED", "PICKUP SCHEDULED", "PICKUP QUEUED":
		return carrier.StatusPending
	case "PICKUP GENERATED", "READY TO SHIP", "PACKED":
		return carrier.StatusPacked
	case "PICKED UP", "SHIPPED", "IN TRANSIT", "OUT FOR DELIVERY", "REACHED DESTINATION HUB":
		return carrier.StatusInTransit
	case "DELIVERED":
		return carrier.StatusDelivered
	case "CANCELED", "CANCELLED":
		return carrier.StatusCancelled
	case "RTO INITIATED", "RTO IN TRANSIT", "RTO DELIVERED":
		return carrier.StatusReturned
	case "LOST", "DAMAGED", "UNDELIVERED", "DELIVERY FAILED":
		return carrier.StatusFailed
	default:
		return carrier.StatusPending
	}
}

func mapCourierMethod(opt CourierOption) carrier.ShippingMethod {
	name := strings.ToLower(opt.CourierName)
	switch {
	case strings.Contains(name, "air"), strings.Contains(name, "express"):
		return carrier.MethodExpress
	case opt.IsSurface:
		return carrier.MethodStandard
	default:
		return carrier.MethodStandard
	}
}

// Ensure Client implements the Adapter interface
var _ carrier.Adapter = (*Client)(nil)
