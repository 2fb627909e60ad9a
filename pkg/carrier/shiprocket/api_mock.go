package shiprocket

import (
	"context"
	"time"

	"github.com/atlascommerce/shipping/pkg/carrier"
	"github.com/google/uuid"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors   bool
	SimulateTimeouts bool
	SimulateLatency  time.Duration

	OnCreateOrder       func(ctx context.Context, req *OrderRequest) (*OrderResponse, error)
	OnGetOrder          func(ctx context.Context, orderID string) (*OrderResponse, error)
	OnGetTracking       func(ctx context.Context, awb string) (*TrackingResponse, error)
	OnCancelOrder       func(ctx context.Context, orderID, reason string) (*CancelResponse, error)
	OnGetServiceability func(ctx context.Context, req *ServiceabilityRequest) (*ServiceabilityResponse, error)
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
		return carrier.NewProviderError(carrierName, "simulated API error", `{"message":"simulated"}`)
	}
	return nil
}

// CreateOrder returns a mock order creation response.
func (m *MockAPIClient) CreateOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error) {
	if err := m.simulated(); err != nil {
		return nil, err
	}
	if m.OnCreateOrder != nil {
		return m.OnCreateOrder(ctx, req)
	}

	return &OrderResponse{
		OrderID:          time.Now().UnixNano() % 100000000,
		ShipmentID:       time.Now().UnixNano() % 100000000,
		Status:           "NEW",
		StatusCode:       1,
		AWBCode:          "SR" + uuid.New().String()[:10],
		CourierName:      "Delhivery Surface",
		ShippingCharges:  84.50,
		ExpectedDelivery: time.Now().AddDate(0, 0, 4).Format("2006-01-02 15:04:05"),
	}, nil
}

// GetOrder returns a mock order status response.
func (m *MockAPIClient) GetOrder(ctx context.Context, orderID string) (*OrderResponse, error) {
	if err := m.simulated(); err != nil {
		return nil, err
	}
	if m.OnGetOrder != nil {
		return m.OnGetOrder(ctx, orderID)
	}

	return &OrderResponse{
		OrderID:     12345678,
		ShipmentID:  87654321,
		Status:      "IN TRANSIT",
		StatusCode:  18,
		AWBCode:     "SR" + uuid.New().String()[:10],
		CourierName: "Delhivery Surface",
	}, nil
}

// GetTracking returns mock tracking activities.
func (m *MockAPIClient) GetTracking(ctx context.Context, awb string) (*TrackingResponse, error) {
	if err := m.simulated(); err != nil {
		return nil, err
	}
	if m.OnGetTracking != nil {
		return m.OnGetTracking(ctx, awb)
	}

	now := time.Now()
	return &TrackingResponse{
		TrackingData: TrackingData{
			TrackStatus: 1,
			ShipmentTrack: []ShipmentTrack{
				{AWBCode: awb, CurrentStatus: "IN TRANSIT", Destination: "Mumbai", CourierName: "Delhivery Surface"},
			},
			Activities: []Activity{
				{
					Date:     now.Add(-48 * time.Hour).Format("2006-01-02 15:04:05"),
					Status:   "PKP",
					Activity: "Shipment picked up",
					Location: "New Delhi_Okhla (Delhi)",
					SRStatus: "PICKED UP",
				},
				{
					Date:     now.Add(-12 * time.Hour).Format("2006-01-02 15:04:05"),
					Status:   "IT",
					Activity: "Shipment in transit",
					Location: "Nagpur_Hub (Maharashtra)",
					SRStatus: "IN TRANSIT",
				},
			},
		},
	}, nil
}

// CancelOrder returns a mock cancellation response.
func (m *MockAPIClient) CancelOrder(ctx context.Context, orderID, reason string) (*CancelResponse, error) {
	if err := m.simulated(); err != nil {
		return nil, err
	}
	if m.OnCancelOrder != nil {
		return m.OnCancelOrder(ctx, orderID, reason)
	}

	return &CancelResponse{Status: "CANCELED", Message: "Order cancelled successfully"}, nil
}

// GetServiceability returns mock courier options.
func (m *MockAPIClient) GetServiceability(ctx context.Context, req *ServiceabilityRequest) (*ServiceabilityResponse, error) {
	if err := m.simulated(); err != nil {
		return nil, err
	}
	if m.OnGetServiceability != nil {
		return m.OnGetServiceability(ctx, req)
	}

	var resp ServiceabilityResponse
	resp.Status = 200
	resp.Data.AvailableCouriers = []CourierOption{
		{CourierName: "Delhivery Surface", Rate: 84.50, EstimatedDeliveryDays: "4", IsSurface: true},
		{CourierName: "Bluedart Air", Rate: 156.00, EstimatedDeliveryDays: "2"},
		{CourierName: "Ekart Express", Rate: 92.25, EstimatedDeliveryDays: "3", Blocked: 1},
	}
	return &resp, nil
}

// Ensure MockAPIClient implements APIClient interface
var _ APIClient = (*MockAPIClient)(nil)
