package dhl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/atlascommerce/shipping/pkg/carrier"
)

// HTTPAPIClient is the production implementation of APIClient. DHL uses a
// static API key pair in headers.
type HTTPAPIClient struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	timeout    time.Duration
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPAPIClient{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		timeout:   timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateShipment books a shipment.
func (c *HTTPAPIClient) CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	var result ShipmentResponse
	if err := c.doJSON(ctx, http.MethodPost, "/shipments", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetShipment fetches shipment state.
func (c *HTTPAPIClient) GetShipment(ctx context.Context, trackingNumber string) (*ShipmentDetails, error) {
	var result ShipmentDetails
	path := fmt.Sprintf("/shipments/%s", url.PathEscape(trackingNumber))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetTracking fetches tracking events.
func (c *HTTPAPIClient) GetTracking(ctx context.Context, trackingNumber string) (*TrackingResponse, error) {
	var result TrackingResponse
	path := "/track/shipments?trackingNumber=" + url.QueryEscape(trackingNumber)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CancelShipment requests cancellation.
func (c *HTTPAPIClient) CancelShipment(ctx context.Context, trackingNumber, reason string) (*CancelResponse, error) {
	var result CancelResponse
	path := fmt.Sprintf("/shipments/%s?reason=%s", url.PathEscape(trackingNumber), url.QueryEscape(reason))
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetRates fetches available products for a lane.
func (c *HTTPAPIClient) GetRates(ctx context.Context, req *RateRequest) (*RateResponse, error) {
	var result RateResponse
	if err := c.doJSON(ctx, http.MethodPost, "/rates", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPAPIClient) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return carrier.NewProviderError(carrierName, "marshal request body", "").WithCause(err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return carrier.NewProviderError(carrierName, "build request", "").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("DHL-API-Key", c.apiKey)
	req.Header.Set("DHL-API-Secret", c.apiSecret)
	req.Header.Set("User-Agent", "atlas-shipping/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err, c.timeout)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransportError(err, c.timeout)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return carrier.NewProviderError(carrierName,
			fmt.Sprintf("HTTP %d from %s %s", resp.StatusCode, method, path), string(raw))
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return carrier.NewProviderError(carrierName, "malformed response body", string(raw)).WithCause(err)
		}
	}
	return nil
}

func classifyTransportError(err error, timeout time.Duration) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return carrier.NewTimeoutError(carrierName, timeout)
	}
	return carrier.NewProviderError(carrierName, "request failed", "").WithCause(err)
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
