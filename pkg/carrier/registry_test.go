package carrier_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlascommerce/shipping/pkg/carrier"
	"github.com/atlascommerce/shipping/pkg/carrier/mock"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := carrier.NewRegistry()
	r.Register(carrier.RegionIN, carrier.ModeLive, mock.New("shiprocket"))

	a, err := r.Get(carrier.RegionIN, carrier.ModeLive)
	require.NoError(t, err)
	assert.Equal(t, "shiprocket", a.Name())
}

func TestRegistry_Get_UnknownRegion(t *testing.T) {
	r := carrier.NewRegistry()
	r.Register(carrier.RegionIN, carrier.ModeLive, mock.New("shiprocket"))

	_, err := r.Get(carrier.RegionEU, carrier.ModeLive)
	require.Error(t, err)
	assert.True(t, errors.Is(err, carrier.ErrUnsupportedRegion))
	assert.Equal(t, carrier.KindUnsupportedRegion, carrier.Kind(err))
}

func TestRegistry_Get_ModeIsolation(t *testing.T) {
	r := carrier.NewRegistry()
	r.Register(carrier.RegionNA, carrier.ModeLive, mock.New("shippo"))

	// A live-only region has no sandbox adapter.
	_, err := r.Get(carrier.RegionNA, carrier.ModeSandbox)
	assert.True(t, errors.Is(err, carrier.ErrUnsupportedRegion))
}

func TestRegistry_Register_Replaces(t *testing.T) {
	r := carrier.NewRegistry()
	r.Register(carrier.RegionIN, carrier.ModeLive, mock.New("first"))
	r.Register(carrier.RegionIN, carrier.ModeLive, mock.New("second"))

	a, err := r.Get(carrier.RegionIN, carrier.ModeLive)
	require.NoError(t, err)
	assert.Equal(t, "second", a.Name())
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_AllAndRegions(t *testing.T) {
	r := carrier.NewRegistry()
	r.Register(carrier.RegionIN, carrier.ModeLive, mock.New("shiprocket"))
	r.Register(carrier.RegionNA, carrier.ModeLive, mock.New("shippo"))
	r.Register(carrier.RegionEU, carrier.ModeLive, mock.New("dhl"))
	r.Register(carrier.RegionIN, carrier.ModeSandbox, mock.New("shiprocket"))

	assert.Len(t, r.All(carrier.ModeLive), 3)
	assert.Len(t, r.All(carrier.ModeSandbox), 1)
	assert.ElementsMatch(t,
		[]carrier.Region{carrier.RegionIN, carrier.RegionNA, carrier.RegionEU},
		r.Regions(carrier.ModeLive))
	assert.Equal(t, 4, r.Count())
}

func TestRegistry_RatesFanOut(t *testing.T) {
	r := carrier.NewRegistry()
	r.Register(carrier.RegionIN, carrier.ModeLive, mock.New("shiprocket"))
	r.Register(carrier.RegionNA, carrier.ModeLive, mock.New("shippo"))

	rates, errs := r.RatesFanOut(context.Background(), carrier.ModeLive, &carrier.ShippingRequest{
		OrderID:     "ORD-1",
		WeightGrams: 500,
	})
	assert.Empty(t, errs)
	assert.Len(t, rates, 4) // two mock options per carrier

	names := map[string]bool{}
	for _, rate := range rates {
		names[rate.Carrier] = true
	}
	assert.True(t, names["shiprocket"])
	assert.True(t, names["shippo"])
}

func TestRegistry_RatesFanOut_PartialFailure(t *testing.T) {
	healthy := mock.New("shiprocket")
	broken := mock.New("dhl")
	broken.OnGetRates = func(ctx context.Context, req *carrier.ShippingRequest) ([]carrier.ShippingRate, error) {
		return nil, carrier.NewProviderError("dhl", "rate service unavailable", "")
	}

	r := carrier.NewRegistry()
	r.Register(carrier.RegionIN, carrier.ModeLive, healthy)
	r.Register(carrier.RegionEU, carrier.ModeLive, broken)

	rates, errs := r.RatesFanOut(context.Background(), carrier.ModeLive, &carrier.ShippingRequest{})
	assert.Len(t, rates, 2)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "dhl")
	assert.Equal(t, carrier.KindProvider, carrier.Kind(errs[0]))
}

func TestRegistry_RatesFanOut_Empty(t *testing.T) {
	r := carrier.NewRegistry()
	rates, errs := r.RatesFanOut(context.Background(), carrier.ModeLive, &carrier.ShippingRequest{})
	assert.Empty(t, rates)
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], carrier.ErrUnsupportedRegion))
}
