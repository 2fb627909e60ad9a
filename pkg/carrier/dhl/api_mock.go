package dhl

import (
	"context"
	"fmt"
	"time"

	"github.com/atlascommerce/shipping/pkg/carrier"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors   bool
	SimulateTimeouts bool
	SimulateLatency  time.Duration

	OnCreateShipment func(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error)
	OnGetShipment    func(ctx context.Context, trackingNumber string) (*ShipmentDetails, error)
	OnGetTracking    func(ctx context.Context, trackingNumber string) (*TrackingResponse, error)
	OnCancelShipment func(ctx context.Context, trackingNumber, reason string) (*CancelResponse, error)
	OnGetRates       func(ctx context.Context, req *RateRequest) (*RateResponse, error)
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

func (m *MockAPIClient) simulated() error {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}
	if m.SimulateTimeouts {
		return carrier.NewTimeoutError(carrierName, 5*time.Second)
	}
	if m.SimulateErrors {
		return carrier.NewProviderError(carrierName, "simulated API error", `{"detail":"simulated"}`)
	}
	return nil
}

// CreateShipment returns a mock booking.
func (m *MockAPIClient) CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	if err := m.simulated(); err != nil {
		return nil, err
	}
	if m.OnCreateShipment != nil {
		return m.OnCreateShipment(ctx, req)
	}

	tn := fmt.Sprintf("JD%012d", time.Now().UnixNano()%1000000000000)
	return &ShipmentResponse{
		ShipmentTrackingNumber: tn,
		TrackingURL:            "https://www.dhl.com/track?tracking-id=" + tn,
		Packages:               []PackageResult{{ReferenceNumber: 1, TrackingNumber: tn}},
		ShipmentCharges:        []Charge{{CurrencyType: "EUR", Price: 18.40}},
		EstimatedDeliveryDate:  time.Now().AddDate(0, 0, 2).Format("2006-01-02"),
	}, nil
}

// GetShipment returns a mock shipment state.
func (m *MockAPIClient) GetShipment(ctx context.Context, trackingNumber string) (*ShipmentDetails, error) {
	if err := m.simulated(); err != nil {
		return nil, err
	}
	if m.OnGetShipment != nil {
		return m.OnGetShipment(ctx, trackingNumber)
	}

	return &ShipmentDetails{
		ShipmentTrackingNumber: trackingNumber,
		Status:                 "transit",
		Description:            "Shipment in transit",
	}, nil
}

// GetTracking returns mock tracking events.
func (m *MockAPIClient) GetTracking(ctx context.Context, trackingNumber string) (*TrackingResponse, error) {
	if err := m.simulated(); err != nil {
		return nil, err
	}
	if m.OnGetTracking != nil {
		return m.OnGetTracking(ctx, trackingNumber)
	}

	now := time.Now()
	ev1 := TrackEvent{
		Timestamp:   now.Add(-36 * time.Hour).Format(time.RFC3339),
		StatusCode:  "pre-transit",
		Description: "Shipment information received",
	}
	ev1.Location.Address.AddressLocality = "Leipzig"
	ev2 := TrackEvent{
		Timestamp:   now.Add(-8 * time.Hour).Format(time.RFC3339),
		StatusCode:  "transit",
		Description: "Processed at DHL hub",
	}
	ev2.Location.Address.AddressLocality = "Amsterdam"

	return &TrackingResponse{
		Shipments: []TrackedShipment{
			{TrackingNumber: trackingNumber, Status: "transit", Events: []TrackEvent{ev1, ev2}},
		},
	}, nil
}

// CancelShipment returns a mock cancellation.
func (m *MockAPIClient) CancelShipment(ctx context.Context, trackingNumber, reason string) (*CancelResponse, error) {
	if err := m.simulated(); err != nil {
		return nil, err
	}
	if m.OnCancelShipment != nil {
		return m.OnCancelShipment(ctx, trackingNumber, reason)
	}

	return &CancelResponse{Status: "cancelled"}, nil
}

// GetRates returns mock products.
func (m *MockAPIClient) GetRates(ctx context.Context, req *RateRequest) (*RateResponse, error) {
	if err := m.simulated(); err != nil {
		return nil, err
	}
	if m.OnGetRates != nil {
		return m.OnGetRates(ctx, req)
	}

	economy := Product{ProductName: "DHL Economy Select", ProductCode: "W",
		TotalPrice: []Charge{{CurrencyType: "EUR", Price: 12.90}}}
	economy.DeliveryCapabilities.TotalTransitDays = 4
	express := Product{ProductName: "DHL Express Worldwide", ProductCode: "P",
		TotalPrice: []Charge{{CurrencyType: "EUR", Price: 28.70}}}
	express.DeliveryCapabilities.TotalTransitDays = 1

	return &RateResponse{Products: []Product{economy, express}}, nil
}

// Ensure MockAPIClient implements APIClient interface
var _ APIClient = (*MockAPIClient)(nil)
