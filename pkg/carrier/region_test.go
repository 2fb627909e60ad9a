package carrier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atlascommerce/shipping/pkg/carrier"
)

func TestResolveDestination(t *testing.T) {
	assert.Equal(t, carrier.RegionIN, carrier.ResolveDestination("IN"))
	assert.Equal(t, carrier.RegionIN, carrier.ResolveDestination("LK"))
	assert.Equal(t, carrier.RegionNA, carrier.ResolveDestination("US"))
	assert.Equal(t, carrier.RegionNA, carrier.ResolveDestination("CA"))
	assert.Equal(t, carrier.RegionEU, carrier.ResolveDestination("DE"))
	assert.Equal(t, carrier.RegionEU, carrier.ResolveDestination("GB"))
}

func TestResolveDestination_FallsBackToHome(t *testing.T) {
	// Checkout must never block on an unknown destination.
	assert.Equal(t, carrier.HomeRegion, carrier.ResolveDestination("ZW"))
	assert.Equal(t, carrier.HomeRegion, carrier.ResolveDestination(""))
	assert.Equal(t, carrier.HomeRegion, carrier.ResolveDestination("XX"))
}

func TestResolveCarrier(t *testing.T) {
	assert.Equal(t, carrier.RegionIN, carrier.ResolveCarrier("shiprocket"))
	assert.Equal(t, carrier.RegionNA, carrier.ResolveCarrier("shippo"))
	assert.Equal(t, carrier.RegionEU, carrier.ResolveCarrier("dhl"))
	assert.Equal(t, carrier.HomeRegion, carrier.ResolveCarrier("fedex"))
}

func TestKnownCarrier(t *testing.T) {
	assert.True(t, carrier.KnownCarrier("shiprocket"))
	assert.True(t, carrier.KnownCarrier("shippo"))
	assert.True(t, carrier.KnownCarrier("dhl"))
	assert.False(t, carrier.KnownCarrier("fedex"))
	assert.False(t, carrier.KnownCarrier(""))
}
