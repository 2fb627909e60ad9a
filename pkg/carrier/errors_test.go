package carrier_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlascommerce/shipping/pkg/carrier"
)

func TestKind_Classification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind string
	}{
		{"validation", &carrier.ValidationError{Field: "weight_grams", Reason: "must be positive"}, carrier.KindValidation},
		{"order not found", carrier.ErrOrderNotFound, carrier.KindNotFound},
		{"shipment not found", carrier.ErrShipmentNotFound, carrier.KindNotFound},
		{"conflict", carrier.ErrShipmentExists, carrier.KindConflict},
		{"unsupported region", carrier.ErrUnsupportedRegion, carrier.KindUnsupportedRegion},
		{"invalid signature", carrier.ErrInvalidSignature, carrier.KindInvalidSignature},
		{"provider", carrier.NewProviderError("dhl", "rejected", `{"detail":"bad"}`), carrier.KindProvider},
		{"timeout", carrier.NewTimeoutError("shippo", 5*time.Second), carrier.KindTimeout},
		{"internal", errors.New("something else"), carrier.KindInternal},
		{"nil-adjacent", fmt.Errorf("opaque"), carrier.KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, carrier.Kind(tc.err))
		})
	}
}

func TestKind_Wrapped(t *testing.T) {
	err := fmt.Errorf("create shipment: %w", carrier.ErrShipmentExists)
	assert.Equal(t, carrier.KindConflict, carrier.Kind(err))

	err = fmt.Errorf("shiprocket: %w", carrier.NewTimeoutError("shiprocket", time.Second))
	assert.Equal(t, carrier.KindTimeout, carrier.Kind(err))
}

func TestProviderError(t *testing.T) {
	cause := errors.New("connection reset")
	err := carrier.NewProviderError("shiprocket", "order rejected", "raw body").WithCause(cause)

	assert.Contains(t, err.Error(), "shiprocket")
	assert.Contains(t, err.Error(), "order rejected")
	assert.True(t, errors.Is(err, cause))

	var pe *carrier.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "raw body", pe.RawBody)
}

func TestTimeoutError(t *testing.T) {
	err := carrier.NewTimeoutError("dhl", 3*time.Second)
	assert.Contains(t, err.Error(), "dhl")
	assert.Contains(t, err.Error(), "3s")

	var te *carrier.TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 3*time.Second, te.Timeout)
}

func TestValidationError(t *testing.T) {
	err := &carrier.ValidationError{Field: "destination", Reason: "address incomplete"}
	assert.Contains(t, err.Error(), "destination")
	assert.Contains(t, err.Error(), "address incomplete")
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, carrier.IsRetryable(carrier.NewTimeoutError("shippo", time.Second)))
	assert.True(t, carrier.IsRetryable(fmt.Errorf("wrapped: %w", carrier.NewTimeoutError("shippo", time.Second))))

	assert.False(t, carrier.IsRetryable(carrier.NewProviderError("shippo", "rejected", "")))
	assert.False(t, carrier.IsRetryable(carrier.ErrShipmentExists))
	assert.False(t, carrier.IsRetryable(&carrier.ValidationError{Field: "order_id", Reason: "required"}))
	assert.False(t, carrier.IsRetryable(errors.New("unknown")))
}
