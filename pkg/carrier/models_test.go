package carrier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atlascommerce/shipping/pkg/carrier"
)

func TestShipmentStatus_IsTerminal(t *testing.T) {
	assert.False(t, carrier.StatusPending.IsTerminal())
	assert.False(t, carrier.StatusPacked.IsTerminal())
	assert.False(t, carrier.StatusInTransit.IsTerminal())
	assert.True(t, carrier.StatusDelivered.IsTerminal())
	assert.True(t, carrier.StatusCancelled.IsTerminal())
	assert.True(t, carrier.StatusReturned.IsTerminal())
	assert.True(t, carrier.StatusFailed.IsTerminal())
}

func TestShipmentStatus_ForwardProgression(t *testing.T) {
	assert.True(t, carrier.StatusPending.CanTransition(carrier.StatusPacked))
	assert.True(t, carrier.StatusPacked.CanTransition(carrier.StatusInTransit))
	assert.True(t, carrier.StatusInTransit.CanTransition(carrier.StatusDelivered))

	// Skipping intermediate states is fine; carriers don't report every scan.
	assert.True(t, carrier.StatusPending.CanTransition(carrier.StatusInTransit))
	assert.True(t, carrier.StatusPending.CanTransition(carrier.StatusDelivered))
}

func TestShipmentStatus_NoRegression(t *testing.T) {
	assert.False(t, carrier.StatusInTransit.CanTransition(carrier.StatusPacked))
	assert.False(t, carrier.StatusInTransit.CanTransition(carrier.StatusPending))
	assert.False(t, carrier.StatusPacked.CanTransition(carrier.StatusPending))
}

func TestShipmentStatus_CancellationWindow(t *testing.T) {
	assert.True(t, carrier.StatusPending.CanTransition(carrier.StatusCancelled))
	assert.True(t, carrier.StatusPacked.CanTransition(carrier.StatusCancelled))
	// Once the parcel is moving, cancellation is no longer meaningful.
	assert.False(t, carrier.StatusInTransit.CanTransition(carrier.StatusCancelled))
}

func TestShipmentStatus_TerminalIsFinal(t *testing.T) {
	terminals := []carrier.ShipmentStatus{
		carrier.StatusDelivered,
		carrier.StatusFailed,
		carrier.StatusReturned,
	}
	all := []carrier.ShipmentStatus{
		carrier.StatusPending, carrier.StatusPacked, carrier.StatusInTransit,
		carrier.StatusDelivered, carrier.StatusCancelled, carrier.StatusReturned,
		carrier.StatusFailed,
	}
	for _, from := range terminals {
		for _, to := range all {
			assert.False(t, from.CanTransition(to), "%s -> %s must be rejected", from, to)
		}
	}
}

func TestShipmentStatus_CancelledIdempotent(t *testing.T) {
	assert.True(t, carrier.StatusCancelled.CanTransition(carrier.StatusCancelled))
	assert.False(t, carrier.StatusCancelled.CanTransition(carrier.StatusPending))
	assert.False(t, carrier.StatusCancelled.CanTransition(carrier.StatusDelivered))
}

func TestShipmentStatus_FailureBranches(t *testing.T) {
	assert.True(t, carrier.StatusPending.CanTransition(carrier.StatusFailed))
	assert.True(t, carrier.StatusInTransit.CanTransition(carrier.StatusReturned))
	assert.True(t, carrier.StatusInTransit.CanTransition(carrier.StatusFailed))
}

func TestAddress_Complete(t *testing.T) {
	full := carrier.Address{
		Line1:       "12 MG Road",
		City:        "Bengaluru",
		PostalCode:  "560001",
		CountryCode: "IN",
	}
	assert.True(t, full.Complete())

	missing := full
	missing.PostalCode = ""
	assert.False(t, missing.Complete())
	assert.False(t, carrier.Address{}.Complete())
}
