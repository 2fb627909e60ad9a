package shiprocket

import (
	"context"
)

// APIClient defines the interface for Shiprocket API operations. The
// abstraction allows mock implementations in tests and the real HTTP client
// in production.
type APIClient interface {
	// CreateOrder creates an adhoc shipment order.
	CreateOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error)

	// GetOrder fetches the current state of an order.
	GetOrder(ctx context.Context, orderID string) (*OrderResponse, error)

	// GetTracking fetches tracking activities for an AWB.
	GetTracking(ctx context.Context, awb string) (*TrackingResponse, error)

	// CancelOrder requests cancellation of an order.
	CancelOrder(ctx context.Context, orderID, reason string) (*CancelResponse, error)

	// GetServiceability fetches the available courier options and rates for
	// a lane.
	GetServiceability(ctx context.Context, req *ServiceabilityRequest) (*ServiceabilityResponse, error)
}

// ============================================================================
// API Request/Response Types (match Shiprocket external API v1 structure)
// ============================================================================

// OrderRequest represents a Shiprocket adhoc order creation request.
// POST /v1/external/orders/create/adhoc
type OrderRequest struct {
	OrderID         string      `json:"order_id"` // merchant order reference
	OrderDate       string      `json:"order_date"`
	PickupLocation  string      `json:"pickup_location,omitempty"`
	BillingName     string      `json:"billing_customer_name"`
	BillingAddress  string      `json:"billing_address"`
	BillingAddress2 string      `json:"billing_address_2,omitempty"`
	BillingCity     string      `json:"billing_city"`
	BillingState    string      `json:"billing_state"`
	BillingPincode  string      `json:"billing_pincode"`
	BillingCountry  string      `json:"billing_country"`
	BillingPhone    string      `json:"billing_phone"`
	BillingEmail    string      `json:"billing_email,omitempty"`
	ShippingIsBilling bool      `json:"shipping_is_billing"`
	OrderItems      []OrderItem `json:"order_items"`
	PaymentMethod   string      `json:"payment_method"` // "Prepaid" | "COD"
	SubTotal        float64     `json:"sub_total"`
	Length          float64     `json:"length"`  // cm
	Breadth         float64     `json:"breadth"` // cm
	Height          float64     `json:"height"`  // cm
	Weight          float64     `json:"weight"`  // kg
	Comment         string      `json:"comment,omitempty"`
}

// OrderItem represents a single line of an order.
type OrderItem struct {
	Name         string  `json:"name"`
	SKU          string  `json:"sku,omitempty"`
	Units        int     `json:"units"`
	SellingPrice float64 `json:"selling_price"`
}

// OrderResponse represents the Shiprocket order creation/status response.
type OrderResponse struct {
	OrderID           int64   `json:"order_id"`
	ShipmentID        int64   `json:"shipment_id"`
	Status            string  `json:"status"` // e.g. "NEW", "PICKED UP", "DELIVERED"
	StatusCode        int     `json:"status_code"`
	AWBCode           string  `json:"awb_code"`
	CourierCompanyID  int     `json:"courier_company_id,omitempty"`
	CourierName       string  `json:"courier_name"`
	ShippingCharges   float64 `json:"shipping_charges,omitempty"`
	ExpectedDelivery  string  `json:"etd,omitempty"` // "2006-01-02 15:04:05"
}

// TrackingResponse represents tracking data for an AWB.
// GET /v1/external/courier/track/awb/{awb}
type TrackingResponse struct {
	TrackingData TrackingData `json:"tracking_data"`
}

// TrackingData holds the shipment track and its activity history.
type TrackingData struct {
	TrackStatus   int             `json:"track_status"`
	ShipmentTrack []ShipmentTrack `json:"shipment_track"`
	Activities    []Activity      `json:"shipment_track_activities"`
}

// ShipmentTrack is the summary row for a tracked shipment.
type ShipmentTrack struct {
	AWBCode       string `json:"awb_code"`
	CurrentStatus string `json:"current_status"`
	Destination   string `json:"destination"`
	CourierName   string `json:"courier_name"`
}

// Activity is a single tracking scan.
type Activity struct {
	Date     string `json:"date"` // "2006-01-02 15:04:05"
	Status   string `json:"status"`
	Activity string `json:"activity"`
	Location string `json:"location"`
	SRStatus string `json:"sr-status"`
}

// CancelRequest represents a Shiprocket order cancellation request.
// POST /v1/external/orders/cancel
type CancelRequest struct {
	IDs []string `json:"ids"`
}

// CancelResponse represents the cancellation outcome.
type CancelResponse struct {
	Status  string `json:"status"` // "CANCELED" on success
	Message string `json:"message,omitempty"`
}

// ServiceabilityRequest queries courier availability and rates for a lane.
// GET /v1/external/courier/serviceability
type ServiceabilityRequest struct {
	PickupPostcode   string  `json:"pickup_postcode"`
	DeliveryPostcode string  `json:"delivery_postcode"`
	Weight           float64 `json:"weight"` // kg
	COD              bool    `json:"cod"`
}

// ServiceabilityResponse lists the available courier companies.
type ServiceabilityResponse struct {
	Status int `json:"status"`
	Data   struct {
		AvailableCouriers []CourierOption `json:"available_courier_companies"`
	} `json:"data"`
}

// CourierOption is one available courier with its rate.
type CourierOption struct {
	CourierName           string  `json:"courier_name"`
	Rate                  float64 `json:"rate"`
	EstimatedDeliveryDays string  `json:"estimated_delivery_days"`
	ETD                   string  `json:"etd,omitempty"`
	IsSurface             bool    `json:"is_surface"`
	Blocked               int     `json:"blocked"`
}

// AuthRequest represents a Shiprocket login request.
// POST /v1/external/auth/login
type AuthRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the bearer token.
type AuthResponse struct {
	Token string `json:"token"`
}

// WebhookPayload is the shape Shiprocket posts to webhook endpoints.
type WebhookPayload struct {
	AWB           string `json:"awb"`
	OrderID       string `json:"order_id"`
	ShipmentID    int64  `json:"sr_shipment_id"`
	CurrentStatus string `json:"current_status"`
	StatusCode    int    `json:"shipment_status_id"`
	Location      string `json:"location"`
	Remarks       string `json:"remarks"`
	ScanDate      string `json:"current_timestamp"` // "2006-01-02 15:04:05"
	EventID       string `json:"event_id,omitempty"`
	CourierName   string `json:"courier_name"`
}
