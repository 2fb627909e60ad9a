package dhl

import (
	"context"
)

// APIClient defines the interface for DHL Express API operations.
type APIClient interface {
	// CreateShipment books a shipment.
	CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error)

	// GetShipment fetches shipment state by tracking number.
	GetShipment(ctx context.Context, trackingNumber string) (*ShipmentDetails, error)

	// GetTracking fetches tracking events for a tracking number.
	GetTracking(ctx context.Context, trackingNumber string) (*TrackingResponse, error)

	// CancelShipment requests cancellation of a not-yet-dispatched shipment.
	CancelShipment(ctx context.Context, trackingNumber, reason string) (*CancelResponse, error)

	// GetRates fetches available products and prices for a lane.
	GetRates(ctx context.Context, req *RateRequest) (*RateResponse, error)
}

// ============================================================================
// API Request/Response Types (match MyDHL Express API structure)
// ============================================================================

// Party is a shipper or receiver.
type Party struct {
	Name         string `json:"name"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"cityName"`
	PostalCode   string `json:"postalCode"`
	CountryCode  string `json:"countryCode"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
}

// PackageInput is one parcel.
type PackageInput struct {
	Weight float64 `json:"weight"` // kg
	Length float64 `json:"length"` // cm
	Width  float64 `json:"width"`  // cm
	Height float64 `json:"height"` // cm
}

// ShipmentRequest books a shipment.
// POST /shipments
type ShipmentRequest struct {
	PlannedShippingDate string         `json:"plannedShippingDateAndTime"`
	ProductCode         string         `json:"productCode"` // e.g. "N" domestic, "P" express worldwide
	Shipper             Party          `json:"customerDetails_shipperDetails"`
	Receiver            Party          `json:"customerDetails_receiverDetails"`
	Packages            []PackageInput `json:"packages"`
	DeclaredValue       float64        `json:"declaredValue,omitempty"`
	DeclaredCurrency    string         `json:"declaredValueCurrency,omitempty"`
	CustomerReference   string         `json:"customerReference,omitempty"`
	Instructions        string         `json:"specialInstructions,omitempty"`
}

// ShipmentResponse is the booking result.
type ShipmentResponse struct {
	ShipmentTrackingNumber string          `json:"shipmentTrackingNumber"`
	TrackingURL            string          `json:"trackingUrl,omitempty"`
	Packages               []PackageResult `json:"packages,omitempty"`
	ShipmentCharges        []Charge        `json:"shipmentCharges,omitempty"`
	EstimatedDeliveryDate  string          `json:"estimatedDeliveryDate,omitempty"` // "2006-01-02"
}

// PackageResult carries per-package identifiers.
type PackageResult struct {
	ReferenceNumber int    `json:"referenceNumber"`
	TrackingNumber  string `json:"trackingNumber"`
}

// Charge is one price component.
type Charge struct {
	CurrencyType string  `json:"currencyType"`
	Price        float64 `json:"price"`
}

// ShipmentDetails is the current state of a shipment.
// GET /shipments/{trackingNumber}
type ShipmentDetails struct {
	ShipmentTrackingNumber string `json:"shipmentTrackingNumber"`
	Status                 string `json:"status"` // e.g. "pre-transit", "transit", "delivered", "failure"
	Description            string `json:"description,omitempty"`
	EstimatedDeliveryDate  string `json:"estimatedDeliveryDate,omitempty"`
}

// TrackingResponse lists tracking events.
// GET /track/shipments?trackingNumber=...
type TrackingResponse struct {
	Shipments []TrackedShipment `json:"shipments"`
}

// TrackedShipment is one tracked shipment with its event history.
type TrackedShipment struct {
	TrackingNumber string       `json:"id"`
	Status         string       `json:"status"`
	Events         []TrackEvent `json:"events"`
}

// TrackEvent is a single scan.
type TrackEvent struct {
	Timestamp   string `json:"timestamp"` // RFC 3339
	StatusCode  string `json:"statusCode"`
	Description string `json:"description"`
	Location    struct {
		Address struct {
			AddressLocality string `json:"addressLocality"`
		} `json:"address"`
	} `json:"location"`
}

// CancelResponse is the cancellation outcome.
// DELETE /shipments/{trackingNumber}
type CancelResponse struct {
	Status  string `json:"status"` // "cancelled" | "declined"
	Message string `json:"message,omitempty"`
}

// RateRequest queries products and prices for a lane.
// POST /rates
type RateRequest struct {
	OriginCountryCode      string  `json:"originCountryCode"`
	OriginPostalCode       string  `json:"originPostalCode"`
	DestinationCountryCode string  `json:"destinationCountryCode"`
	DestinationPostalCode  string  `json:"destinationPostalCode"`
	Weight                 float64 `json:"weight"` // kg
	Length                 float64 `json:"length"`
	Width                  float64 `json:"width"`
	Height                 float64 `json:"height"`
}

// RateResponse lists available products.
type RateResponse struct {
	Products []Product `json:"products"`
}

// Product is one DHL product with total price.
type Product struct {
	ProductName      string  `json:"productName"`
	ProductCode      string  `json:"productCode"`
	TotalPrice       []Charge `json:"totalPrice"`
	DeliveryCapabilities struct {
		TotalTransitDays int `json:"totalTransitDays"`
	} `json:"deliveryCapabilities"`
}

// WebhookPayload is the shape DHL pushes to webhook subscribers.
type WebhookPayload struct {
	EventID        string `json:"eventId"`
	TrackingNumber string `json:"trackingNumber"`
	Status         string `json:"status"`
	StatusCode     string `json:"statusCode"`
	Description    string `json:"description"`
	Location       string `json:"location"`
	Timestamp      string `json:"timestamp"` // RFC 3339
}
