package shippo

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

	OnCreateTransaction func(ctx context.Context, req *TransactionRequest) (*Transaction, error)
	OnGetTransaction    func(ctx context.Context, objectID string) (*Transaction, error)
	OnGetTrack          func(ctx context.Context, trackingNumber string) (*Track, error)
	OnRefundTransaction func(ctx context.Context, objectID string) (*Refund, error)
	OnGetRates          func(ctx context.Context, req *ShipmentRequest) (*Shipment, error)
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

// CreateTransaction returns a mock label purchase.
func (m *MockAPIClient) CreateTransaction(ctx context.Context, req *TransactionRequest) (*Transaction, error) {
	if err := m.simulated(); err != nil {
		return nil, err
	}
	if m.OnCreateTransaction != nil {
		return m.OnCreateTransaction(ctx, req)
	}

	id := uuid.New().String()
	return &Transaction{
		ObjectID:       id,
		Status:         "SUCCESS",
		TrackingNumber: "SHP" + id[:12],
		TrackingURL:    "https://track.goshippo.com/" + id[:12],
		LabelURL:       "https://deliver.goshippo.com/labels/" + id + ".pdf",
		Rate: Rate{
			ObjectID:      uuid.New().String(),
			Provider:      "usps",
			ServiceLevel:  Service{Name: "Priority Mail", Token: "usps_priority"},
			Amount:        "8.45",
			Currency:      "USD",
			EstimatedDays: 3,
		},
		ETA: time.Now().AddDate(0, 0, 3).Format(time.RFC3339),
	}, nil
}

// GetTransaction returns a mock transaction status.
func (m *MockAPIClient) GetTransaction(ctx context.Context, objectID string) (*Transaction, error) {
	if err := m.simulated(); err != nil {
		return nil, err
	}
	if m.OnGetTransaction != nil {
		return m.OnGetTransaction(ctx, objectID)
	}

	return &Transaction{
		ObjectID:       objectID,
		Status:         "SUCCESS",
		TrackingNumber: "SHP" + objectID[:12],
		Rate: Rate{
			Provider: "usps",
			Amount:   "8.45",
			Currency: "USD",
		},
	}, nil
}

// GetTrack returns mock tracking history.
func (m *MockAPIClient) GetTrack(ctx context.Context, trackingNumber string) (*Track, error) {
	if err := m.simulated(); err != nil {
		return nil, err
	}
	if m.OnGetTrack != nil {
		return m.OnGetTrack(ctx, trackingNumber)
	}

	now := time.Now()
	return &Track{
		TrackingNumber: trackingNumber,
		Carrier:        "usps",
		TrackingStatus: &TrackStatus{
			Status:        "TRANSIT",
			StatusDetails: "In transit to next facility",
			StatusDate:    now.Add(-6 * time.Hour).Format(time.RFC3339),
			Location:      TrackLocation{City: "Chicago", State: "IL", Country: "US"},
		},
		TrackingHistory: []TrackStatus{
			{
				Status:        "PRE_TRANSIT",
				StatusDetails: "Shipping label created",
				StatusDate:    now.Add(-30 * time.Hour).Format(time.RFC3339),
				Location:      TrackLocation{City: "San Francisco", State: "CA", Country: "US"},
			},
			{
				Status:        "TRANSIT",
				StatusDetails: "In transit to next facility",
				StatusDate:    now.Add(-6 * time.Hour).Format(time.RFC3339),
				Location:      TrackLocation{City: "Chicago", State: "IL", Country: "US"},
			},
		},
	}, nil
}

// RefundTransaction returns a mock refund acceptance.
func (m *MockAPIClient) RefundTransaction(ctx context.Context, objectID string) (*Refund, error) {
	if err := m.simulated(); err != nil {
		return nil, err
	}
	if m.OnRefundTransaction != nil {
		return m.OnRefundTransaction(ctx, objectID)
	}

	return &Refund{
		ObjectID:    uuid.New().String(),
		Status:      "SUCCESS",
		Transaction: objectID,
	}, nil
}

// GetRates returns a mock shipment with rates.
func (m *MockAPIClient) GetRates(ctx context.Context, req *ShipmentRequest) (*Shipment, error) {
	if err := m.simulated(); err != nil {
		return nil, err
	}
	if m.OnGetRates != nil {
		return m.OnGetRates(ctx, req)
	}

	return &Shipment{
		ObjectID: uuid.New().String(),
		Status:   "SUCCESS",
		Rates: []Rate{
			{
				ObjectID:      uuid.New().String(),
				Provider:      "usps",
				ServiceLevel:  Service{Name: "Priority Mail", Token: "usps_priority"},
				Amount:        "8.45",
				Currency:      "USD",
				EstimatedDays: 3,
			},
			{
				ObjectID:      uuid.New().String(),
				Provider:      "ups",
				ServiceLevel:  Service{Name: "UPS Next Day Air", Token: "ups_next_day_air"},
				Amount:        "32.10",
				Currency:      "USD",
				EstimatedDays: 1,
			},
		},
	}, nil
}

// Ensure MockAPIClient implements APIClient interface
var _ APIClient = (*MockAPIClient)(nil)
