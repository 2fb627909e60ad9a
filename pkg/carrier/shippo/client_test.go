package shippo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/atlascommerce/shipping/pkg/carrier"
	"github.com/atlascommerce/shipping/pkg/carrier/shippo"
)

func newTestClient(mockAPI *shippo.MockAPIClient) *shippo.Client {
	logger := otelzap.New(zap.NewNop())
	return shippo.NewWithAPIClient(
		shippo.Config{WebhookSecret: "test-secret"},
		mockAPI,
		logger,
	)
}

func testRequest() *carrier.ShippingRequest {
	return &carrier.ShippingRequest{
		OrderID: "ORD-2",
		Origin: carrier.Address{
			Name:        "Fulfillment Center",
			Line1:       "215 Clayton St",
			City:        "San Francisco",
			State:       "CA",
			PostalCode:  "94117",
			CountryCode: "US",
		},
		Destination: carrier.Address{
			Name:        "Customer",
			Line1:       "100 Main St",
			City:        "Chicago",
			State:       "IL",
			PostalCode:  "60601",
			CountryCode: "US",
		},
		WeightGrams:   1200,
		LengthCM:      30,
		WidthCM:       20,
		HeightCM:      15,
		DeclaredValue: carrier.Money{Amount: 45, Currency: "USD"},
		Method:        carrier.MethodPriority,
	}
}

func TestClient_CreateShipment_Success(t *testing.T) {
	mockAPI := shippo.NewMockAPIClient()
	client := newTestClient(mockAPI)

	resp, err := client.CreateShipment(context.Background(), testRequest())

	require.NoError(t, err)
	assert.NotEmpty(t, resp.ShipmentID)
	assert.NotEmpty(t, resp.TrackingNumber)
	assert.False(t, resp.TrackingPlaceholder)
	// A successful label purchase means packed, not yet moving.
	assert.Equal(t, carrier.StatusPacked, resp.Status)
	assert.Equal(t, "shippo", resp.Carrier)
	assert.InDelta(t, 8.45, resp.Cost.Amount, 0.001)
	assert.Equal(t, "USD", resp.Cost.Currency)
}

func TestClient_CreateShipment_QueuedPlaceholder(t *testing.T) {
	mockAPI := shippo.NewMockAPIClient()
	mockAPI.OnCreateTransaction = func(ctx context.Context, req *shippo.TransactionRequest) (*shippo.Transaction, error) {
		return &shippo.Transaction{ObjectID: "tx-queued-1", Status: "QUEUED"}, nil
	}
	client := newTestClient(mockAPI)

	resp, err := client.CreateShipment(context.Background(), testRequest())

	require.NoError(t, err)
	assert.Equal(t, "SHIPPO-PEND-tx-queued-1", resp.TrackingNumber)
	assert.True(t, resp.TrackingPlaceholder)
	assert.Equal(t, carrier.StatusPending, resp.Status)
}

func TestClient_CreateShipment_TransactionError(t *testing.T) {
	mockAPI := shippo.NewMockAPIClient()
	mockAPI.OnCreateTransaction = func(ctx context.Context, req *shippo.TransactionRequest) (*shippo.Transaction, error) {
		return &shippo.Transaction{
			ObjectID: "tx-err-1",
			Status:   "ERROR",
			Messages: []shippo.APIMsg{{Text: "address could not be verified"}},
		}, nil
	}
	client := newTestClient(mockAPI)

	_, err := client.CreateShipment(context.Background(), testRequest())

	require.Error(t, err)
	assert.Equal(t, carrier.KindProvider, carrier.Kind(err))
	assert.Contains(t, err.Error(), "address could not be verified")
}

func TestClient_GetShipmentStatus_FoldsTrackState(t *testing.T) {
	mockAPI := shippo.NewMockAPIClient()
	client := newTestClient(mockAPI)

	resp, err := client.GetShipmentStatus(context.Background(), "tx-abc-123456789")

	require.NoError(t, err)
	// Transaction says SUCCESS (packed) but live tracking says TRANSIT.
	assert.Equal(t, carrier.StatusInTransit, resp.Status)
}

func TestClient_TrackShipment_History(t *testing.T) {
	mockAPI := shippo.NewMockAPIClient()
	client := newTestClient(mockAPI)

	updates, err := client.TrackShipment(context.Background(), "SHP123456789012")

	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, carrier.StatusPacked, updates[0].Status)
	assert.Equal(t, carrier.StatusInTransit, updates[1].Status)
	assert.Equal(t, "San Francisco, CA, US", updates[0].Location)
}

func TestClient_CancelShipment_RefundAccepted(t *testing.T) {
	mockAPI := shippo.NewMockAPIClient()
	client := newTestClient(mockAPI)

	ok, err := client.CancelShipment(context.Background(), "tx-abc", "ordered wrong size")

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_CancelShipment_RefundQueuedCountsAsAccepted(t *testing.T) {
	mockAPI := shippo.NewMockAPIClient()
	mockAPI.OnRefundTransaction = func(ctx context.Context, objectID string) (*shippo.Refund, error) {
		return &shippo.Refund{ObjectID: "rf-1", Status: "QUEUED", Transaction: objectID}, nil
	}
	client := newTestClient(mockAPI)

	ok, err := client.CancelShipment(context.Background(), "tx-abc", "")

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_CancelShipment_RefundRejected(t *testing.T) {
	mockAPI := shippo.NewMockAPIClient()
	mockAPI.OnRefundTransaction = func(ctx context.Context, objectID string) (*shippo.Refund, error) {
		return &shippo.Refund{ObjectID: "rf-2", Status: "ERROR", Transaction: objectID}, nil
	}
	client := newTestClient(mockAPI)

	ok, err := client.CancelShipment(context.Background(), "tx-abc", "")

	require.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, carrier.KindProvider, carrier.Kind(err))
}

func TestClient_GetRates_DefaultOrigin(t *testing.T) {
	mockAPI := shippo.NewMockAPIClient()
	var captured *shippo.ShipmentRequest
	mockAPI.OnGetRates = func(ctx context.Context, req *shippo.ShipmentRequest) (*shippo.Shipment, error) {
		captured = req
		return &shippo.Shipment{Status: "SUCCESS"}, nil
	}
	client := newTestClient(mockAPI)

	_, err := client.GetRates(context.Background(), &carrier.ShippingRequest{
		Destination: carrier.Address{PostalCode: "60601", CountryCode: "US"},
		WeightGrams: 800,
	})

	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Equal(t, "94107", captured.AddressFrom.Zip)
	assert.Equal(t, "US", captured.AddressFrom.Country)
}

func TestClient_GetRates_MapsServiceTokens(t *testing.T) {
	mockAPI := shippo.NewMockAPIClient()
	client := newTestClient(mockAPI)

	rates, err := client.GetRates(context.Background(), testRequest())

	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Equal(t, carrier.MethodPriority, rates[0].Method)
	assert.Equal(t, carrier.MethodOvernight, rates[1].Method)
	assert.InDelta(t, 32.10, rates[1].Cost.Amount, 0.001)
}

func TestClient_Timeout(t *testing.T) {
	mockAPI := shippo.NewMockAPIClient()
	mockAPI.SimulateTimeouts = true
	client := newTestClient(mockAPI)

	_, err := client.CreateShipment(context.Background(), testRequest())

	require.Error(t, err)
	assert.Equal(t, carrier.KindTimeout, carrier.Kind(err))
}

func TestClient_ProcessWebhook_TrackUpdated(t *testing.T) {
	client := newTestClient(shippo.NewMockAPIClient())

	payload := []byte(`{
		"event": "track_updated",
		"data": {
			"tracking_number": "SHP123456789012",
			"carrier": "usps",
			"tracking_status": {
				"status": "DELIVERED",
				"status_details": "Delivered, front door",
				"status_date": "2026-08-29T10:15:00Z",
				"location": {"city": "Chicago", "state": "IL", "country": "US"}
			}
		}
	}`)

	hook := client.ProcessWebhook(payload)

	assert.True(t, hook.Processed)
	assert.Equal(t, "track_updated", hook.Event)
	require.NotNil(t, hook.Update)
	assert.Equal(t, carrier.StatusDelivered, hook.Update.Status)
	assert.Equal(t, "Chicago, IL, US", hook.Update.Location)
	assert.Equal(t, time.Date(2026, 8, 29, 10, 15, 0, 0, time.UTC), hook.Update.Timestamp)
}

func TestClient_ProcessWebhook_Malformed(t *testing.T) {
	client := newTestClient(shippo.NewMockAPIClient())

	hook := client.ProcessWebhook([]byte(`{{{`))

	assert.NotEmpty(t, hook.ID)
	assert.False(t, hook.Processed)
	assert.Nil(t, hook.Update)
}

func TestClient_ValidateWebhook(t *testing.T) {
	client := newTestClient(shippo.NewMockAPIClient())

	payload := []byte(`{"event":"track_updated"}`)
	sig := carrier.SignPayload("test-secret", payload)

	assert.True(t, client.ValidateWebhook(payload, sig))
	assert.False(t, client.ValidateWebhook(payload, ""))
}

func TestClient_Name(t *testing.T) {
	client := newTestClient(shippo.NewMockAPIClient())
	assert.Equal(t, "shippo", client.Name())
}
