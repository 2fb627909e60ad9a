package dhl_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/atlascommerce/shipping/pkg/carrier"
	"github.com/atlascommerce/shipping/pkg/carrier/dhl"
)

func newTestClient(mockAPI *dhl.MockAPIClient) *dhl.Client {
	logger := otelzap.New(zap.NewNop())
	return dhl.NewWithAPIClient(
		dhl.Config{WebhookSecret: "test-secret"},
		mockAPI,
		logger,
	)
}

func testRequest() *carrier.ShippingRequest {
	return &carrier.ShippingRequest{
		OrderID: "ORD-3",
		Origin: carrier.Address{
			Name:        "EU Warehouse",
			Line1:       "Torstrasse 140",
			City:        "Berlin",
			PostalCode:  "10119",
			CountryCode: "DE",
		},
		Destination: carrier.Address{
			Name:        "Customer",
			Line1:       "10 Rue de Rivoli",
			City:        "Paris",
			PostalCode:  "75001",
			CountryCode: "FR",
		},
		WeightGrams:   2500,
		LengthCM:      40,
		WidthCM:       30,
		HeightCM:      20,
		DeclaredValue: carrier.Money{Amount: 120, Currency: "EUR"},
		Method:        carrier.MethodExpress,
	}
}

func TestClient_CreateShipment_Success(t *testing.T) {
	mockAPI := dhl.NewMockAPIClient()
	client := newTestClient(mockAPI)

	resp, err := client.CreateShipment(context.Background(), testRequest())

	require.NoError(t, err)
	assert.NotEmpty(t, resp.TrackingNumber)
	assert.False(t, resp.TrackingPlaceholder)
	assert.Equal(t, carrier.StatusPending, resp.Status)
	assert.Equal(t, "dhl", resp.Carrier)
	assert.Equal(t, "EUR", resp.Cost.Currency)
	assert.NotNil(t, resp.EstimatedDelivery)
}

func TestClient_CreateShipment_ProductSelection(t *testing.T) {
	mockAPI := dhl.NewMockAPIClient()
	var captured *dhl.ShipmentRequest
	mockAPI.OnCreateShipment = func(ctx context.Context, req *dhl.ShipmentRequest) (*dhl.ShipmentResponse, error) {
		captured = req
		return &dhl.ShipmentResponse{ShipmentTrackingNumber: "JD000000000001"}, nil
	}
	client := newTestClient(mockAPI)

	_, err := client.CreateShipment(context.Background(), testRequest())

	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Equal(t, "P", captured.ProductCode) // express lane
	assert.InDelta(t, 2.5, captured.Packages[0].Weight, 0.001)
	assert.Equal(t, "ORD-3", captured.CustomerReference)
}

func TestClient_CreateShipment_PlaceholderWhenNoTracking(t *testing.T) {
	mockAPI := dhl.NewMockAPIClient()
	mockAPI.OnCreateShipment = func(ctx context.Context, req *dhl.ShipmentRequest) (*dhl.ShipmentResponse, error) {
		return &dhl.ShipmentResponse{EstimatedDeliveryDate: "2026-09-02"}, nil
	}
	client := newTestClient(mockAPI)

	resp, err := client.CreateShipment(context.Background(), testRequest())

	require.NoError(t, err)
	assert.True(t, resp.TrackingPlaceholder)
	assert.Contains(t, resp.TrackingNumber, "DHL-PEND-")
}

func TestClient_GetShipmentStatus(t *testing.T) {
	mockAPI := dhl.NewMockAPIClient()
	client := newTestClient(mockAPI)

	resp, err := client.GetShipmentStatus(context.Background(), "JD000000000001")

	require.NoError(t, err)
	assert.Equal(t, carrier.StatusInTransit, resp.Status)
	assert.Equal(t, "JD000000000001", resp.TrackingNumber)
}

func TestClient_TrackShipment_OrderedEvents(t *testing.T) {
	mockAPI := dhl.NewMockAPIClient()
	client := newTestClient(mockAPI)

	updates, err := client.TrackShipment(context.Background(), "JD000000000001")

	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, carrier.StatusPending, updates[0].Status)
	assert.Equal(t, "Leipzig", updates[0].Location)
	assert.Equal(t, carrier.StatusInTransit, updates[1].Status)
	assert.True(t, updates[0].Timestamp.Before(updates[1].Timestamp))
}

func TestClient_CancelShipment(t *testing.T) {
	mockAPI := dhl.NewMockAPIClient()
	client := newTestClient(mockAPI)

	ok, err := client.CancelShipment(context.Background(), "JD000000000001", "no longer needed")

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_CancelShipment_Declined(t *testing.T) {
	mockAPI := dhl.NewMockAPIClient()
	mockAPI.OnCancelShipment = func(ctx context.Context, trackingNumber, reason string) (*dhl.CancelResponse, error) {
		return &dhl.CancelResponse{Status: "declined", Message: "already with courier"}, nil
	}
	client := newTestClient(mockAPI)

	ok, err := client.CancelShipment(context.Background(), "JD000000000001", "")

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_GetRates_DefaultOrigin(t *testing.T) {
	mockAPI := dhl.NewMockAPIClient()
	var captured *dhl.RateRequest
	mockAPI.OnGetRates = func(ctx context.Context, req *dhl.RateRequest) (*dhl.RateResponse, error) {
		captured = req
		return &dhl.RateResponse{}, nil
	}
	client := newTestClient(mockAPI)

	_, err := client.GetRates(context.Background(), &carrier.ShippingRequest{
		Destination: carrier.Address{PostalCode: "75001", CountryCode: "FR"},
	})

	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Equal(t, "10115", captured.OriginPostalCode)
	assert.Equal(t, "DE", captured.OriginCountryCode)
	assert.InDelta(t, 0.5, captured.Weight, 0.001) // zero weight defaults
}

func TestClient_GetRates_Products(t *testing.T) {
	mockAPI := dhl.NewMockAPIClient()
	client := newTestClient(mockAPI)

	rates, err := client.GetRates(context.Background(), testRequest())

	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Equal(t, carrier.MethodEconomy, rates[0].Method)
	assert.Equal(t, 4, rates[0].EstimatedDays)
	assert.Equal(t, carrier.MethodExpress, rates[1].Method)
	assert.Equal(t, 1, rates[1].EstimatedDays)
}

func TestClient_ProcessWebhook_Delivered(t *testing.T) {
	client := newTestClient(dhl.NewMockAPIClient())

	payload := []byte(`{
		"eventId": "dhl-evt-7",
		"trackingNumber": "JD000000000001",
		"status": "delivered",
		"statusCode": "delivered",
		"location": "Paris",
		"description": "Delivered, signed by customer",
		"timestamp": "2026-08-30T09:05:00Z"
	}`)

	hook := client.ProcessWebhook(payload)

	assert.Equal(t, "dhl-evt-7", hook.ID)
	assert.True(t, hook.Processed)
	require.NotNil(t, hook.Update)
	assert.Equal(t, carrier.StatusDelivered, hook.Update.Status)
	assert.Equal(t, "Paris", hook.Update.Location)
}

func TestClient_ProcessWebhook_Malformed(t *testing.T) {
	client := newTestClient(dhl.NewMockAPIClient())

	hook := client.ProcessWebhook([]byte(`<xml>not json</xml>`))

	assert.NotEmpty(t, hook.ID)
	assert.False(t, hook.Processed)
	assert.Nil(t, hook.Update)
}

func TestClient_ValidateWebhook(t *testing.T) {
	client := newTestClient(dhl.NewMockAPIClient())

	payload := []byte(`{"trackingNumber":"JD1"}`)
	sig := carrier.SignPayload("test-secret", payload)

	assert.True(t, client.ValidateWebhook(payload, sig))
	assert.False(t, client.ValidateWebhook(payload, "bad"))
}

func TestClient_Timeout(t *testing.T) {
	mockAPI := dhl.NewMockAPIClient()
	mockAPI.SimulateTimeouts = true
	client := newTestClient(mockAPI)

	_, err := client.GetShipmentStatus(context.Background(), "JD1")

	require.Error(t, err)
	assert.Equal(t, carrier.KindTimeout, carrier.Kind(err))
}

func TestClient_Name(t *testing.T) {
	client := newTestClient(dhl.NewMockAPIClient())
	assert.Equal(t, "dhl", client.Name())
}
