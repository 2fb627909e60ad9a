package carrier

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the closed shipping error taxonomy. Call sites handle
// the full set {validation, not-found, conflict, unsupported region,
// signature, provider, timeout} with errors.Is/errors.As rather than runtime
// type inspection of carrier-specific shapes.
var (
	// ErrOrderNotFound indicates the referenced order does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrShipmentNotFound indicates no shipment record exists for the id.
	ErrShipmentNotFound = errors.New("shipment not found")

	// ErrShipmentExists indicates a non-cancelled shipment already exists for
	// the order. The caller should use the existing shipment, not retry.
	ErrShipmentExists = errors.New("shipment already exists for order")

	// ErrUnsupportedRegion indicates no adapter is registered for the
	// (region, mode) pair. A configuration gap, not a transient fault.
	ErrUnsupportedRegion = errors.New("unsupported shipping region")

	// ErrInvalidSignature indicates a webhook signature did not match the
	// HMAC computed over the raw payload.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// ValidationError reports a malformed client request, naming the violated
// field. Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid shipping request: %s: %s", e.Field, e.Reason)
}

// ProviderError is raised when a carrier rejected a request or returned an
// unexpected response. The raw carrier body is retained for support.
type ProviderError struct {
	Carrier string
	Message string
	RawBody string
	Cause   error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s provider error: %s: %v", e.Carrier, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s provider error: %s", e.Carrier, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a ProviderError for a carrier.
func NewProviderError(name, message, raw string) *ProviderError {
	return &ProviderError{Carrier: name, Message: message, RawBody: raw}
}

// WithCause adds a cause to the error.
func (e *ProviderError) WithCause(err error) *ProviderError {
	e.Cause = err
	return e
}

// TimeoutError is raised when a carrier call exceeded its configured
// deadline. No carrier-side state change is confirmed, so it is a safe
// candidate for caller-level retry.
type TimeoutError struct {
	Carrier string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s request timed out after %s", e.Carrier, e.Timeout)
}

// NewTimeoutError creates a TimeoutError for a carrier.
func NewTimeoutError(name string, timeout time.Duration) *TimeoutError {
	return &TimeoutError{Carrier: name, Timeout: timeout}
}

// Error kinds used as metric labels, one per taxonomy entry.
const (
	KindValidation        = "validation"
	KindNotFound          = "not_found"
	KindConflict          = "conflict"
	KindUnsupportedRegion = "unsupported_region"
	KindInvalidSignature  = "invalid_signature"
	KindProvider          = "provider"
	KindTimeout           = "timeout"
	KindInternal          = "internal"
)

// Kind classifies any error into one of the taxonomy kinds. Used to tag
// metrics so provider-specific failure spikes are alertable without parsing
// log text.
func Kind(err error) string {
	var ve *ValidationError
	var pe *ProviderError
	var te *TimeoutError
	switch {
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &te):
		return KindTimeout
	case errors.As(err, &pe):
		return KindProvider
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrShipmentNotFound):
		return KindNotFound
	case errors.Is(err, ErrShipmentExists):
		return KindConflict
	case errors.Is(err, ErrUnsupportedRegion):
		return KindUnsupportedRegion
	case errors.Is(err, ErrInvalidSignature):
		return KindInvalidSignature
	default:
		return KindInternal
	}
}

// IsRetryable reports whether a caller-level retry with backoff is safe.
// Only timeouts qualify: no carrier-side state change is confirmed. Provider
// errors are not retried automatically since carriers may reject retried
// requests as duplicates.
func IsRetryable(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
