package shippo

import (
	"context"
)

// APIClient defines the interface for Shippo API operations.
type APIClient interface {
	// CreateTransaction purchases a label for a shipment in a single call.
	CreateTransaction(ctx context.Context, req *TransactionRequest) (*Transaction, error)

	// GetTransaction fetches a transaction by object id.
	GetTransaction(ctx context.Context, objectID string) (*Transaction, error)

	// GetTrack fetches tracking state and history for a tracking number.
	GetTrack(ctx context.Context, trackingNumber string) (*Track, error)

	// RefundTransaction requests a label refund, Shippo's cancellation path.
	RefundTransaction(ctx context.Context, objectID string) (*Refund, error)

	// GetRates creates a shipment object and returns its synchronous rates.
	GetRates(ctx context.Context, req *ShipmentRequest) (*Shipment, error)
}

// ============================================================================
// API Request/Response Types (match goshippo REST API structure)
// ============================================================================

// AddressInput is a Shippo address payload.
type AddressInput struct {
	Name    string `json:"name"`
	Street1 string `json:"street1"`
	Street2 string `json:"street2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}

// ParcelInput is a Shippo parcel payload. Shippo takes strings for numeric
// fields.
type ParcelInput struct {
	Length       string `json:"length"`
	Width        string `json:"width"`
	Height       string `json:"height"`
	DistanceUnit string `json:"distance_unit"` // "cm"
	Weight       string `json:"weight"`
	MassUnit     string `json:"mass_unit"` // "kg"
}

// ShipmentRequest creates a shipment object with synchronous rating.
// POST /shipments
type ShipmentRequest struct {
	AddressFrom AddressInput  `json:"address_from"`
	AddressTo   AddressInput  `json:"address_to"`
	Parcels     []ParcelInput `json:"parcels"`
	Async       bool          `json:"async"`
}

// Shipment is the Shippo shipment object carrying rates.
type Shipment struct {
	ObjectID string `json:"object_id"`
	Status   string `json:"status"`
	Rates    []Rate `json:"rates"`
}

// Rate is one Shippo rate option.
type Rate struct {
	ObjectID        string   `json:"object_id"`
	Provider        string   `json:"provider"`
	ServiceLevel    Service  `json:"servicelevel"`
	Amount          string   `json:"amount"`
	Currency        string   `json:"currency"`
	EstimatedDays   int      `json:"estimated_days"`
	DurationTerms   string   `json:"duration_terms,omitempty"`
	Attributes      []string `json:"attributes,omitempty"`
}

// Service identifies a carrier service level.
type Service struct {
	Name  string `json:"name"`
	Token string `json:"token"`
}

// TransactionRequest purchases a label. Shippo's instant flow takes the full
// shipment inline.
// POST /transactions
type TransactionRequest struct {
	Shipment          ShipmentRequest `json:"shipment"`
	CarrierAccount    string          `json:"carrier_account,omitempty"`
	ServiceLevelToken string          `json:"servicelevel_token,omitempty"`
	Metadata          string          `json:"metadata,omitempty"`
	LabelFileType     string          `json:"label_file_type,omitempty"`
}

// Transaction is the label purchase result.
type Transaction struct {
	ObjectID       string   `json:"object_id"`
	Status         string   `json:"status"` // QUEUED, WAITING, SUCCESS, ERROR, REFUNDED
	TrackingNumber string   `json:"tracking_number"`
	TrackingURL    string   `json:"tracking_url_provider"`
	LabelURL       string   `json:"label_url"`
	Rate           Rate     `json:"rate"`
	ETA            string   `json:"eta,omitempty"` // RFC 3339
	Messages       []APIMsg `json:"messages,omitempty"`
	Metadata       string   `json:"metadata,omitempty"`
}

// APIMsg is a Shippo diagnostic message.
type APIMsg struct {
	Source string `json:"source,omitempty"`
	Code   string `json:"code,omitempty"`
	Text   string `json:"text"`
}

// Refund represents a label refund request state.
// POST /refunds
type Refund struct {
	ObjectID    string `json:"object_id"`
	Status      string `json:"status"` // QUEUED, PENDING, SUCCESS, ERROR
	Transaction string `json:"transaction"`
}

// Track is tracking state plus history for one tracking number.
// GET /tracks/{carrier}/{tracking_number}
type Track struct {
	TrackingNumber  string        `json:"tracking_number"`
	Carrier         string        `json:"carrier"`
	ETA             string        `json:"eta,omitempty"`
	TrackingStatus  *TrackStatus  `json:"tracking_status"`
	TrackingHistory []TrackStatus `json:"tracking_history"`
}

// TrackStatus is one tracking event.
type TrackStatus struct {
	Status        string        `json:"status"` // UNKNOWN, PRE_TRANSIT, TRANSIT, DELIVERED, RETURNED, FAILURE
	StatusDetails string        `json:"status_details"`
	StatusDate    string        `json:"status_date"` // RFC 3339
	Location      TrackLocation `json:"location"`
}

// TrackLocation is where a tracking event occurred.
type TrackLocation struct {
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// WebhookEvent is the envelope Shippo posts to webhook endpoints.
type WebhookEvent struct {
	Event string `json:"event"` // e.g. "track_updated"
	Test  bool   `json:"test"`
	Data  Track  `json:"data"`
}
