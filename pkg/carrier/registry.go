package carrier

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// registryKey identifies one registered adapter slot.
type registryKey struct {
	Region Region
	Mode   Mode
}

// Registry holds one long-lived adapter per (region, mode) pair. Construction
// is the only place carrier credentials are materialized; adapters are reused
// across calls.
type Registry struct {
	adapters map[registryKey]Adapter
	mu       sync.RWMutex
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[registryKey]Adapter),
	}
}

// Register binds an adapter to a (region, mode) pair, replacing any previous
// binding.
func (r *Registry) Register(region Region, mode Mode, a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[registryKey{region, mode}] = a
}

// Get returns the adapter for a (region, mode) pair.
func (r *Registry) Get(region Region, mode Mode) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.adapters[registryKey{region, mode}]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrUnsupportedRegion, region, mode)
}

// All returns every adapter registered for the given mode.
func (r *Registry) All(mode Mode) []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Adapter, 0, len(r.adapters))
	for k, a := range r.adapters {
		if k.Mode == mode {
			result = append(result, a)
		}
	}
	return result
}

// Regions returns the regions with an adapter registered for the given mode.
func (r *Registry) Regions(mode Mode) []Region {
	r.mu.RLock()
	defer r.mu.RUnlock()
	regions := make([]Region, 0, len(r.adapters))
	for k := range r.adapters {
		if k.Mode == mode {
			regions = append(regions, k.Region)
		}
	}
	return regions
}

// Count returns the number of registered adapters.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.adapters)
}

// RatesFanOut fetches rates from every adapter registered for the mode in
// parallel. Errors from individual carriers are collected but don't fail the
// entire request; rate shopping degrades to whichever carriers answered.
func (r *Registry) RatesFanOut(ctx context.Context, mode Mode, req *ShippingRequest) ([]ShippingRate, []error) {
	adapters := r.All(mode)
	if len(adapters) == 0 {
		return nil, []error{ErrUnsupportedRegion}
	}

	rates := make([]ShippingRate, 0, len(adapters))
	errs := make([]error, 0)
	mu := &sync.Mutex{}

	g, ctx := errgroup.WithContext(ctx)

	for _, a := range adapters {
		g.Go(func() error {
			got, err := a.GetRates(ctx, req)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", a.Name(), err))
				return nil // keep collecting from the other carriers
			}
			rates = append(rates, got...)
			return nil
		})
	}

	g.Wait()
	return rates, errs
}
