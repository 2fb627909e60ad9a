package shippo

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

// HTTPAPIClient is the production implementation of APIClient. Shippo uses a
// static API token, no session handshake.
type HTTPAPIClient struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	timeout    time.Duration
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL  string
	APIToken string
	Timeout  time.Duration
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPAPIClient{
		baseURL:  cfg.BaseURL,
		apiToken: cfg.APIToken,
		timeout:  timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateTransaction purchases a label via the instant flow.
func (c *HTTPAPIClient) CreateTransaction(ctx context.Context, req *TransactionRequest) (*Transaction, error) {
	var result Transaction
	if err := c.doJSON(ctx, http.MethodPost, "/transactions", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetTransaction fetches a transaction by object id.
func (c *HTTPAPIClient) GetTransaction(ctx context.Context, objectID string) (*Transaction, error) {
	var result Transaction
	path := fmt.Sprintf("/transactions/%s", url.PathEscape(objectID))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetTrack fetches tracking state for a tracking number.
func (c *HTTPAPIClient) GetTrack(ctx context.Context, trackingNumber string) (*Track, error) {
	var result Track
	path := fmt.Sprintf("/tracks/shippo/%s", url.PathEscape(trackingNumber))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RefundTransaction requests a label refund.
func (c *HTTPAPIClient) RefundTransaction(ctx context.Context, objectID string) (*Refund, error) {
	var result Refund
	body := map[string]string{"transaction": objectID}
	if err := c.doJSON(ctx, http.MethodPost, "/refunds", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetRates creates a shipment with synchronous rating and returns it.
func (c *HTTPAPIClient) GetRates(ctx context.Context, req *ShipmentRequest) (*Shipment, error) {
	var result Shipment
	if err := c.doJSON(ctx, http.MethodPost, "/shipments", req, &result); err != nil {
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
	req.Header.Set("Authorization", "ShippoToken "+c.apiToken)
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
