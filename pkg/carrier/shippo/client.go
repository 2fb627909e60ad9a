// Package shippo provides integration with the Shippo multi-carrier API for
// North American shipments.
package shippo

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/atlascommerce/shipping/pkg/carrier"
	"github.com/google/uuid"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const carrierName = "shippo"

// defaultOriginZip is applied to rate requests that carry no origin, since
// pre-checkout estimates run before an order exists.
const defaultOriginZip = "94107"

// Config holds Shippo configuration.
type Config struct {
	APIToken      string
	BaseURL       string
	WebhookSecret string
	Timeout       time.Duration
	UseMock       bool
}

// Client is the Shippo carrier adapter.
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
}

// New creates a new Shippo client.
func New(cfg Config, logger *otelzap.Logger) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:  cfg.BaseURL,
			APIToken: cfg.APIToken,
			Timeout:  cfg.Timeout,
		})
	}

	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
	}
}

// NewWithAPIClient creates a new Shippo client with a custom API client.
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

// CreateShipment purchases a label with Shippo's instant transaction flow.
func (c *Client) CreateShipment(ctx context.Context, req *carrier.ShippingRequest) (*carrier.ShippingResponse, error) {
	c.logger.Info("Creating Shippo shipment",
		zap.String("order_id", req.OrderID),
		zap.String("destination_city", req.Destination.City),
	)

	apiReq := &TransactionRequest{
		Shipment:          shipmentRequestFromShipping(req),
		ServiceLevelToken: mapMethodToken(req.Method),
		Metadata:          req.OrderID,
		LabelFileType:     "PDF",
	}

	tx, err := c.apiClient.CreateTransaction(ctx, apiReq)
	if err != nil {
		c.logger.Error("Shippo API error", zap.Error(err))
		return nil, err
	}

	if tx.Status == "ERROR" {
		return nil, carrier.NewProviderError(carrierName,
			"transaction failed: "+messagesText(tx.Messages), "")
	}

	return transactionToShipping(tx), nil
}

// GetShipmentStatus polls the transaction state for a shipment.
func (c *Client) GetShipmentStatus(ctx context.Context, shipmentID string) (*carrier.ShippingResponse, error) {
	c.logger.Info("Polling Shippo shipment", zap.String("shipment_id", shipmentID))

	tx, err := c.apiClient.GetTransaction(ctx, shipmentID)
	if err != nil {
		c.logger.Error("Shippo API error", zap.Error(err))
		return nil, err
	}

	resp := transactionToShipping(tx)

	// A settled transaction says nothing about physical progress; fold in
	// the live tracking status when an actual tracking number exists.
	if tx.TrackingNumber != "" {
		if track, err := c.apiClient.GetTrack(ctx, tx.TrackingNumber); err == nil && track.TrackingStatus != nil {
			resp.Status = mapTrackStatus(track.TrackingStatus.Status)
		}
	}
	return resp, nil
}

// TrackShipment returns the normalized tracking history.
func (c *Client) TrackShipment(ctx context.Context, trackingNumber string) ([]carrier.ShippingUpdate, error) {
	c.logger.Info("Tracking Shippo shipment", zap.String("tracking_number", trackingNumber))

	track, err := c.apiClient.GetTrack(ctx, trackingNumber)
	if err != nil {
		c.logger.Error("Shippo API error", zap.Error(err))
		return nil, err
	}

	updates := make([]carrier.ShippingUpdate, 0, len(track.TrackingHistory))
	for _, ev := range track.TrackingHistory {
		updates = append(updates, trackStatusToUpdate(trackingNumber, ev))
	}

	sort.Slice(updates, func(i, j int) bool {
		return updates[i].Timestamp.Before(updates[j].Timestamp)
	})

	return updates, nil
}

// CancelShipment cancels via Shippo's refund flow. A QUEUED or PENDING
// refund still counts as accepted; ERROR surfaces as a provider error.
func (c *Client) CancelShipment(ctx context.Context, shipmentID, reason string) (bool, error) {
	c.logger.Info("Cancelling Shippo shipment",
		zap.String("shipment_id", shipmentID),
		zap.String("reason", reason),
	)

	refund, err := c.apiClient.RefundTransaction(ctx, shipmentID)
	if err != nil {
		c.logger.Error("Shippo API error", zap.Error(err))
		return false, err
	}

	switch refund.Status {
	case "SUCCESS", "QUEUED", "PENDING":
		return true, nil
	case "ERROR":
		return false, carrier.NewProviderError(carrierName, "refund rejected", "")
	default:
		return false, nil
	}
}

// GetRates returns rate options, defaulting missing origin fields.
func (c *Client) GetRates(ctx context.Context, req *carrier.ShippingRequest) ([]carrier.ShippingRate, error) {
	apiReq := shipmentRequestFromShipping(req)
	if apiReq.AddressFrom.Zip == "" {
		apiReq.AddressFrom.Zip = defaultOriginZip
		apiReq.AddressFrom.Country = "US"
	}

	shipment, err := c.apiClient.GetRates(ctx, &apiReq)
	if err != nil {
		c.logger.Error("Shippo API error", zap.Error(err))
		return nil, err
	}

	rates := make([]carrier.ShippingRate, 0, len(shipment.Rates))
	for _, r := range shipment.Rates {
		amount, _ := strconv.ParseFloat(r.Amount, 64)
		rates = append(rates, carrier.ShippingRate{
			Carrier:       carrierName,
			Method:        mapTokenMethod(r.ServiceLevel.Token),
			ServiceName:   r.Provider + " " + r.ServiceLevel.Name,
			Cost:          carrier.Money{Amount: amount, Currency: r.Currency},
			EstimatedDays: r.EstimatedDays,
			Available:     true,
		})
	}
	return rates, nil
}

// ValidateWebhook checks the HMAC-SHA256 signature over the raw payload.
func (c *Client) ValidateWebhook(payload []byte, signature string) bool {
	return carrier.VerifySignature(c.config.WebhookSecret, payload, signature)
}

// ProcessWebhook normalizes a raw Shippo event into a webhook envelope.
func (c *Client) ProcessWebhook(payload []byte) *carrier.ShippingWebhook {
	hook := &carrier.ShippingWebhook{
		Carrier:    carrierName,
		ID:         uuid.New().String(), // Shippo events carry no id of their own
		Payload:    payload,
		ReceivedAt: time.Now().UTC(),
	}

	var ev WebhookEvent
	if err := json.Unmarshal(payload, &ev); err != nil || ev.Data.TrackingNumber == "" {
		hook.Event = "unparsed"
		return hook
	}

	hook.Event = ev.Event
	if ev.Data.TrackingStatus == nil {
		return hook
	}

	hook.Processed = true
	hook.Update = &carrier.ShippingUpdate{
		TrackingNumber: ev.Data.TrackingNumber,
		Status:         mapTrackStatus(ev.Data.TrackingStatus.Status),
		Location:       formatLocation(ev.Data.TrackingStatus.Location),
		Description:    ev.Data.TrackingStatus.StatusDetails,
		Timestamp:      parseEventTime(ev.Data.TrackingStatus.StatusDate, hook.ReceivedAt),
		Metadata: map[string]string{
			"raw_status":  ev.Data.TrackingStatus.Status,
			"sub_carrier": ev.Data.Carrier,
		},
	}
	return hook
}

// ============================================================================
// Conversion helpers
// ============================================================================

func shipmentRequestFromShipping(req *carrier.ShippingRequest) ShipmentRequest {
	return ShipmentRequest{
		AddressFrom: addressToInput(req.Origin),
		AddressTo:   addressToInput(req.Destination),
		Parcels: []ParcelInput{
			{
				Length:       formatFloat(req.LengthCM),
				Width:        formatFloat(req.WidthCM),
				Height:       formatFloat(req.HeightCM),
				DistanceUnit: "cm",
				Weight:       formatFloat(req.WeightGrams / 1000.0), // Shippo expects kg
				MassUnit:     "kg",
			},
		},
		Async: false,
	}
}

func addressToInput(a carrier.Address) AddressInput {
	return AddressInput{
		Name:    a.Name,
		Street1: a.Line1,
		Street2: a.Line2,
		City:    a.City,
		State:   a.State,
		Zip:     a.PostalCode,
		Country: a.CountryCode,
		Phone:   a.Phone,
		Email:   a.Email,
	}
}

func transactionToShipping(tx *Transaction) *carrier.ShippingResponse {
	tracking := tx.TrackingNumber
	placeholder := false
	if tracking == "" {
		// Label purchase accepted but no tracking assigned yet (QUEUED or
		// WAITING); derive a stable placeholder from the transaction id.
		tracking = "SHIPPO-PEND-" + tx.ObjectID
		placeholder = true
	}

	amount, _ := strconv.ParseFloat(tx.Rate.Amount, 64)

	var estimated *time.Time
	if tx.ETA != "" {
		if t, err := time.Parse(time.RFC3339, tx.ETA); err == nil {
			estimated = &t
		}
	}

	return &carrier.ShippingResponse{
		ShipmentID:          tx.ObjectID,
		TrackingNumber:      tracking,
		TrackingPlaceholder: placeholder,
		TrackingURL:         tx.TrackingURL,
		Status:              mapTransactionStatus(tx.Status),
		Carrier:             carrierName,
		Cost:                carrier.Money{Amount: amount, Currency: tx.Rate.Currency},
		EstimatedDelivery:   estimated,
		Metadata: map[string]string{
			"provider":   tx.Rate.Provider,
			"label_url":  tx.LabelURL,
			"raw_status": tx.Status,
		},
	}
}

func trackStatusToUpdate(trackingNumber string, ev TrackStatus) carrier.ShippingUpdate {
	return carrier.ShippingUpdate{
		TrackingNumber: trackingNumber,
		Status:         mapTrackStatus(ev.Status),
		Location:       formatLocation(ev.Location),
		Description:    ev.StatusDetails,
		Timestamp:      parseEventTime(ev.StatusDate, time.Now().UTC()),
		Metadata:       map[string]string{"raw_status": ev.Status},
	}
}

func formatLocation(loc TrackLocation) string {
	if loc.City == "" {
		return loc.Country
	}
	if loc.State == "" {
		return fmt.Sprintf("%s, %s", loc.City, loc.Country)
	}
	return fmt.Sprintf("%s, %s, %s", loc.City, loc.State, loc.Country)
}

func parseEventTime(s string, fallback time.Time) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return fallback
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func messagesText(msgs []APIMsg) string {
	if len(msgs) == 0 {
		return "no diagnostic messages"
	}
	return msgs[0].Text
}

// ============================================================================
// Mapping helpers
// ============================================================================

// mapTransactionStatus normalizes the label purchase lifecycle. Unknown
// strings map to pending, never an error.
func mapTransactionStatus(status string) carrier.ShipmentStatus {
	switch status {
	case "QUEUED", "WAITING":
		return carrier.StatusPending
	case "SUCCESS":
		return carrier.StatusPacked
	case "REFUNDED":
		return carrier.StatusCancelled
	case "ERROR":
		return carrier.StatusFailed
	default:
		return carrier.StatusPending
	}
}

// mapTrackStatus normalizes Shippo tracking statuses.
func mapTrackStatus(status string) carrier.ShipmentStatus {
	switch status {
	case "PRE_TRANSIT":
		return carrier.StatusPacked
	case "TRANSIT":
		return carrier.StatusInTransit
	case "DELIVERED":
		return carrier.StatusDelivered
	case "RETURNED":
		return carrier.StatusReturned
	case "FAILURE":
		return carrier.StatusFailed
	default:
		return carrier.StatusPending
	}
}

func mapMethodToken(method carrier.ShippingMethod) string {
	switch method {
	case carrier.MethodExpress:
		return "usps_priority_express"
	case carrier.MethodOvernight:
		return "ups_next_day_air"
	case carrier.MethodPriority:
		return "usps_priority"
	case carrier.MethodEconomy:
		return "usps_parcel_select"
	default:
		return "usps_ground_advantage"
	}
}

func mapTokenMethod(token string) carrier.ShippingMethod {
	switch token {
	case "usps_priority_express":
		return carrier.MethodExpress
	case "ups_next_day_air", "fedex_standard_overnight":
		return carrier.MethodOvernight
	case "usps_priority", "fedex_priority_overnight":
		return carrier.MethodPriority
	case "usps_parcel_select":
		return carrier.MethodEconomy
	default:
		return carrier.MethodStandard
	}
}

// Ensure Client implements the Adapter interface
var _ carrier.Adapter = (*Client)(nil)
