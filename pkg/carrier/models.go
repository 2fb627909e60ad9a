package carrier

import (
	"time"
)

// ShipmentStatus is the canonical, carrier-agnostic shipment lifecycle state.
// Every carrier-specific status string an adapter observes must normalize to
// exactly one of these six values.
type ShipmentStatus string

const (
	StatusPending   ShipmentStatus = "pending"
	StatusPacked    ShipmentStatus = "packed"
	StatusInTransit ShipmentStatus = "in_transit"
	StatusDelivered ShipmentStatus = "delivered"
	StatusCancelled ShipmentStatus = "cancelled"
	StatusReturned  ShipmentStatus = "returned"
	StatusFailed    ShipmentStatus = "failed"
)

// IsTerminal reports whether no further transitions are permitted out of s.
func (s ShipmentStatus) IsTerminal() bool {
	switch s {
	case StatusDelivered, StatusFailed, StatusReturned, StatusCancelled:
		return true
	}
	return false
}

// rank orders the forward progression of non-terminal statuses so that
// out-of-order carrier events cannot move a record backwards.
func (s ShipmentStatus) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusPacked:
		return 1
	case StatusInTransit:
		return 2
	default:
		return 3
	}
}

// CanTransition reports whether a record currently in s may move to next.
// Transitions into a terminal status are always accepted from a non-terminal
// state; between non-terminal states only forward movement is allowed. Once
// terminal, the only permitted "transition" is the idempotent
// cancelled -> cancelled no-op.
func (s ShipmentStatus) CanTransition(next ShipmentStatus) bool {
	if s.IsTerminal() {
		return s == StatusCancelled && next == StatusCancelled
	}
	if next == StatusCancelled {
		// Cancellation is only meaningful before the parcel moves.
		return s == StatusPending || s == StatusPacked
	}
	if next.IsTerminal() {
		return true
	}
	return next.rank() >= s.rank()
}

// ShippingMethod is the requested service level.
type ShippingMethod string

const (
	MethodStandard  ShippingMethod = "standard"
	MethodExpress   ShippingMethod = "express"
	MethodOvernight ShippingMethod = "overnight"
	MethodEconomy   ShippingMethod = "economy"
	MethodPriority  ShippingMethod = "priority"
)

// Address is a structurally complete shipping address.
type Address struct {
	Name        string
	Line1       string
	Line2       string
	City        string
	State       string
	PostalCode  string
	CountryCode string // ISO 3166-1 alpha-2, e.g. "IN", "US"
	Phone       string
	Email       string
}

// Complete reports whether the fields required to route a parcel are present.
func (a Address) Complete() bool {
	return a.Line1 != "" && a.City != "" && a.PostalCode != "" && a.CountryCode != ""
}

// LineItem is a single order line included in a shipment.
type LineItem struct {
	ID        string
	Name      string
	Quantity  int
	UnitValue float64
	SKU       string
}

// Money is a monetary amount in a named currency.
type Money struct {
	Amount   float64
	Currency string
}

// ShippingRequest is the canonical request to create (or quote) a shipment.
type ShippingRequest struct {
	OrderID       string
	Origin        Address
	Destination   Address
	WeightGrams   float64
	LengthCM      float64
	WidthCM       float64
	HeightCM      float64
	DeclaredValue Money
	Items         []LineItem
	Method        ShippingMethod
	Instructions  string
}

// ShippingResponse is the canonical result of creating or polling a shipment
// with a carrier.
type ShippingResponse struct {
	ShipmentID          string
	TrackingNumber      string
	TrackingPlaceholder bool // tracking number synthesized, carrier has not assigned one yet
	TrackingURL         string
	Status              ShipmentStatus
	Carrier             string
	Cost                Money
	EstimatedDelivery   *time.Time
	Metadata            map[string]string
}

// ShippingUpdate is a single normalized tracking event. Updates are
// append-only and ordered by carrier timestamp, not arrival order.
type ShippingUpdate struct {
	ShipmentID     string
	TrackingNumber string
	Status         ShipmentStatus
	Location       string
	Description    string
	Timestamp      time.Time
	Metadata       map[string]string
}

// ShippingRate is one rate option returned by a carrier for a (possibly
// partial) request.
type ShippingRate struct {
	Carrier       string
	Method        ShippingMethod
	ServiceName   string
	Cost          Money
	EstimatedDays int
	Available     bool
}

// ShippingWebhook is the persisted envelope of an inbound carrier callback.
// It is written regardless of whether processing succeeded so the audit
// trail is always complete.
type ShippingWebhook struct {
	ID         string
	Carrier    string
	Event      string
	Payload    []byte
	Signature  string
	ReceivedAt time.Time
	Processed  bool
	RetryCount int

	// Normalized tracking implication, populated when the payload parsed.
	Update *ShippingUpdate
}

// Mode selects the credential set and endpoints an adapter talks to.
type Mode string

const (
	ModeLive    Mode = "live"
	ModeSandbox Mode = "sandbox"
)
