package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/atlascommerce/shipping/internal/orchestrator"
	"github.com/atlascommerce/shipping/internal/orders"
	"github.com/atlascommerce/shipping/internal/server"
	"github.com/atlascommerce/shipping/internal/store"
	"github.com/atlascommerce/shipping/internal/telemetry"
	"github.com/atlascommerce/shipping/internal/webhook"
	"github.com/atlascommerce/shipping/pkg/carrier"
	"github.com/atlascommerce/shipping/pkg/carrier/mock"
)

// Prometheus collectors register globally, so the package shares one set.
var testMetrics = telemetry.NewMetrics()

const testSecret = "server-test-secret"

type fixture struct {
	handler http.Handler
	store   *store.Memory
	orders  *orders.Memory
	in      *mock.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:  store.NewMemory(),
		orders: orders.NewMemory(),
		in:     mock.NewWithSecret("shiprocket", testSecret),
	}
	registry := carrier.NewRegistry()
	registry.Register(carrier.RegionIN, carrier.ModeLive, f.in)

	logger := otelzap.New(zap.NewNop())
	orch := orchestrator.New(registry, f.store, f.orders, logger, testMetrics, carrier.ModeLive)
	hooks := webhook.NewProcessor(registry, f.store, orch, logger, testMetrics, carrier.ModeLive)

	srv := server.New(server.Config{Port: 8080, Mode: carrier.ModeLive}, orch, hooks, nil, registry, logger)
	f.handler = srv.Handler()
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func shipmentBody(orderID string) map[string]any {
	return map[string]any{
		"orderId": orderID,
		"origin": map[string]any{
			"line1": "Plot 7", "city": "Gurugram",
			"postalCode": "122001", "countryCode": "IN",
		},
		"destination": map[string]any{
			"line1": "12 MG Road", "city": "Bengaluru",
			"postalCode": "560001", "countryCode": "IN",
		},
		"weightGrams":   500,
		"lengthCm":      20,
		"widthCm":       15,
		"heightCm":      10,
		"declaredValue": map[string]any{"amount": 999, "currency": "INR"},
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "live", body["mode"])
}

func TestCreateShipment(t *testing.T) {
	f := newFixture(t)
	f.orders.Put(&orders.Order{ID: "ORD-1", Status: "pending"})

	rec := f.do(t, http.MethodPost, "/v1/shipments", shipmentBody("ORD-1"), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ORD-1", body["orderId"])
	assert.Equal(t, "shiprocket", body["carrier"])
	assert.Equal(t, "pending", body["status"])
	assert.NotEmpty(t, body["trackingNumber"])
}

func TestCreateShipment_Validation(t *testing.T) {
	f := newFixture(t)
	f.orders.Put(&orders.Order{ID: "ORD-2", Status: "pending"})

	body := shipmentBody("ORD-2")
	body["weightGrams"] = 0

	rec := f.do(t, http.MethodPost, "/v1/shipments", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "validation", out["kind"])
	assert.Contains(t, out["error"], "weight_grams")
}

func TestCreateShipment_UnknownOrder(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/shipments", shipmentBody("ORD-ghost"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateShipment_Conflict(t *testing.T) {
	f := newFixture(t)
	f.orders.Put(&orders.Order{ID: "ORD-3", Status: "pending"})

	rec := f.do(t, http.MethodPost, "/v1/shipments", shipmentBody("ORD-3"), nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/shipments", shipmentBody("ORD-3"), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "conflict", out["kind"])
}

func TestCreateShipment_CarrierFailures(t *testing.T) {
	f := newFixture(t)

	f.in.OnCreateShipment = func(ctx context.Context, req *carrier.ShippingRequest) (*carrier.ShippingResponse, error) {
		return nil, carrier.NewProviderError("shiprocket", "booking rejected", "")
	}
	f.orders.Put(&orders.Order{ID: "ORD-4", Status: "pending"})
	rec := f.do(t, http.MethodPost, "/v1/shipments", shipmentBody("ORD-4"), nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	f.in.OnCreateShipment = func(ctx context.Context, req *carrier.ShippingRequest) (*carrier.ShippingResponse, error) {
		return nil, carrier.NewTimeoutError("shiprocket", 5*time.Second)
	}
	f.orders.Put(&orders.Order{ID: "ORD-5", Status: "pending"})
	rec = f.do(t, http.MethodPost, "/v1/shipments", shipmentBody("ORD-5"), nil)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestGetShipment(t *testing.T) {
	f := newFixture(t)
	f.orders.Put(&orders.Order{ID: "ORD-6", Status: "pending"})

	created := f.do(t, http.MethodPost, "/v1/shipments", shipmentBody("ORD-6"), nil)
	require.Equal(t, http.StatusCreated, created.Code)

	var ship map[string]any
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &ship))

	rec := f.do(t, http.MethodGet, "/v1/shipments/"+ship["id"].(string), nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/shipments/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTrackShipment(t *testing.T) {
	f := newFixture(t)
	f.orders.Put(&orders.Order{ID: "ORD-7", Status: "pending"})

	created := f.do(t, http.MethodPost, "/v1/shipments", shipmentBody("ORD-7"), nil)
	require.Equal(t, http.StatusCreated, created.Code)

	var ship map[string]any
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &ship))
	tracking := ship["trackingNumber"].(string)

	rec := f.do(t, http.MethodGet, "/v1/shipments/track/"+tracking, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var updates []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updates))
	require.Len(t, updates, 2)
	assert.Equal(t, "in_transit", updates[1]["status"])
}

func TestCancelShipment(t *testing.T) {
	f := newFixture(t)
	f.orders.Put(&orders.Order{ID: "ORD-8", Status: "pending"})

	created := f.do(t, http.MethodPost, "/v1/shipments", shipmentBody("ORD-8"), nil)
	require.Equal(t, http.StatusCreated, created.Code)

	var ship map[string]any
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &ship))

	rec := f.do(t, http.MethodPost, fmt.Sprintf("/v1/shipments/%s/cancel", ship["id"]),
		map[string]string{"reason": "customer request"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out["cancelled"])
}

func TestGetRates(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/shipments/rates", shipmentBody("ORD-9"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var rates []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rates))
	require.NotEmpty(t, rates)
	assert.Equal(t, "shiprocket", rates[0]["carrier"])
}

func TestWebhook(t *testing.T) {
	f := newFixture(t)
	f.orders.Put(&orders.Order{ID: "ORD-10", Status: "pending"})

	created := f.do(t, http.MethodPost, "/v1/shipments", shipmentBody("ORD-10"), nil)
	require.Equal(t, http.StatusCreated, created.Code)

	var ship map[string]any
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &ship))

	payload, err := json.Marshal(map[string]string{
		"event_id":        "evt-http-1",
		"tracking_number": ship["trackingNumber"].(string),
		"status":          "delivered",
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/shiprocket", bytes.NewReader(payload))
	req.Header.Set(server.SignatureHeader, carrier.SignPayload(testSecret, payload))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The shipment moved to delivered.
	get := f.do(t, http.MethodGet, "/v1/shipments/"+ship["id"].(string), nil, nil)
	require.Equal(t, http.StatusOK, get.Code)
	var updated map[string]any
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &updated))
	assert.Equal(t, "delivered", updated["status"])
}

func TestWebhook_BadSignature(t *testing.T) {
	f := newFixture(t)

	payload := []byte(`{"tracking_number":"TRK-1","status":"delivered"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/shiprocket", bytes.NewReader(payload))
	req.Header.Set(server.SignatureHeader, "deadbeef")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "invalid_signature", out["kind"])
}

func TestListWebhooks(t *testing.T) {
	f := newFixture(t)

	payload := []byte(`{"garbage":`)
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/shiprocket", bytes.NewReader(payload))
	req.Header.Set(server.SignatureHeader, carrier.SignPayload(testSecret, payload))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	list := f.do(t, http.MethodGet, "/v1/webhooks/shiprocket?limit=5", nil, nil)
	require.Equal(t, http.StatusOK, list.Code)

	var hooks []map[string]any
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &hooks))
	require.Len(t, hooks, 1)
	assert.Equal(t, "unparsed", hooks[0]["event"])
	assert.Equal(t, false, hooks[0]["processed"])
}
