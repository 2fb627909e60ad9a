package shiprocket

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
	"sync"
	"time"

	"github.com/atlascommerce/shipping/pkg/carrier"
)

// HTTPAPIClient is the production implementation of APIClient. Shiprocket
// uses short-lived bearer tokens: the client caches the token with its expiry
// and re-authenticates at most once per logical call.
type HTTPAPIClient struct {
	baseURL    string
	email      string
	password   string
	httpClient *http.Client
	timeout    time.Duration

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL  string
	Email    string
	Password string
	Timeout  time.Duration
}

// tokenTTL is conservative versus Shiprocket's documented 10 day validity.
const tokenTTL = 24 * time.Hour

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPAPIClient{
		baseURL:  cfg.BaseURL,
		email:    cfg.Email,
		password: cfg.Password,
		timeout:  timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateOrder creates an adhoc order via the Shiprocket API.
func (c *HTTPAPIClient) CreateOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error) {
	var result OrderResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/external/orders/create/adhoc", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetOrder fetches an order by Shiprocket order id.
func (c *HTTPAPIClient) GetOrder(ctx context.Context, orderID string) (*OrderResponse, error) {
	var result OrderResponse
	path := fmt.Sprintf("/v1/external/orders/show/%s", url.PathEscape(orderID))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetTracking fetches tracking activities for an AWB.
func (c *HTTPAPIClient) GetTracking(ctx context.Context, awb string) (*TrackingResponse, error) {
	var result TrackingResponse
	path := fmt.Sprintf("/v1/external/courier/track/awb/%s", url.PathEscape(awb))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CancelOrder cancels an order.
func (c *HTTPAPIClient) CancelOrder(ctx context.Context, orderID, reason string) (*CancelResponse, error) {
	var result CancelResponse
	req := &CancelRequest{IDs: []string{orderID}}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/external/orders/cancel", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetServiceability fetches courier options for a lane.
func (c *HTTPAPIClient) GetServiceability(ctx context.Context, req *ServiceabilityRequest) (*ServiceabilityResponse, error) {
	q := url.Values{}
	q.Set("pickup_postcode", req.PickupPostcode)
	q.Set("delivery_postcode", req.DeliveryPostcode)
	q.Set("weight", fmt.Sprintf("%.2f", req.Weight))
	if req.COD {
		q.Set("cod", "1")
	} else {
		q.Set("cod", "0")
	}

	var result ServiceabilityResponse
	path := "/v1/external/courier/serviceability?" + q.Encode()
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// authenticate obtains a fresh bearer token. Callers hold tokenMu.
func (c *HTTPAPIClient) authenticate(ctx context.Context) error {
	body, err := json.Marshal(AuthRequest{Email: c.email, Password: c.password})
	if err != nil {
		return carrier.NewProviderError(carrierName, "marshal auth request", "").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/external/auth/login", bytes.NewReader(body))
	if err != nil {
		return carrier.NewProviderError(carrierName, "build auth request", "").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err, c.timeout)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return carrier.NewProviderError(carrierName,
			fmt.Sprintf("auth failed with HTTP %d", resp.StatusCode), string(raw))
	}

	var auth AuthResponse
	if err := json.Unmarshal(raw, &auth); err != nil || auth.Token == "" {
		return carrier.NewProviderError(carrierName, "auth response missing token", string(raw))
	}

	c.token = auth.Token
	c.tokenExpiry = time.Now().Add(tokenTTL)
	return nil
}

// bearerToken returns the cached token, authenticating if none is cached or
// it has expired. The lock is adapter-scoped so concurrent requests do not
// trigger redundant re-authentication storms.
func (c *HTTPAPIClient) bearerToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}
	if err := c.authenticate(ctx); err != nil {
		return "", err
	}
	return c.token, nil
}

// invalidateToken discards the cached token after a 401-class response.
func (c *HTTPAPIClient) invalidateToken() {
	c.tokenMu.Lock()
	c.token = ""
	c.tokenExpiry = time.Time{}
	c.tokenMu.Unlock()
}

// doJSON performs an authenticated request and decodes the JSON response.
// A 401 invalidates the cached token and retries exactly once with a fresh
// token; a second 401 surfaces as a provider error to avoid loops.
func (c *HTTPAPIClient) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	resp, raw, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.invalidateToken()
		resp, raw, err = c.doRequest(ctx, method, path, body)
		if err != nil {
			return err
		}
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

func (c *HTTPAPIClient) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, []byte, error) {
	token, err := c.bearerToken(ctx)
	if err != nil {
		return nil, nil, err
	}

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, nil, carrier.NewProviderError(carrierName, "marshal request body", "").WithCause(err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, nil, carrier.NewProviderError(carrierName, "build request", "").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", "atlas-shipping/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, classifyTransportError(err, c.timeout)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, classifyTransportError(err, c.timeout)
	}
	return resp, raw, nil
}

// classifyTransportError maps connection and read failures into the shipping
// error taxonomy: deadline and timeout failures become TimeoutError, the
// rest become ProviderError.
func classifyTransportError(err error, timeout time.Duration) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return carrier.NewTimeoutError(carrierName, timeout)
	}
	return carrier.NewProviderError(carrierName, "request failed", "").WithCause(err)
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
