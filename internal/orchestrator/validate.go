package orchestrator

import (
	"github.com/atlascommerce/shipping/pkg/carrier"
)

// validateRequest enforces the structural invariants of a shipping request.
// It runs before any store write or carrier call so an invalid request has no
// side effects.
func validateRequest(req *carrier.ShippingRequest) error {
	switch {
	case req.OrderID == "":
		return &carrier.ValidationError{Field: "order_id", Reason: "must not be empty"}
	case req.WeightGrams <= 0:
		return &carrier.ValidationError{Field: "weight_grams", Reason: "must be positive"}
	case req.LengthCM <= 0:
		return &carrier.ValidationError{Field: "length_cm", Reason: "must be positive"}
	case req.WidthCM <= 0:
		return &carrier.ValidationError{Field: "width_cm", Reason: "must be positive"}
	case req.HeightCM <= 0:
		return &carrier.ValidationError{Field: "height_cm", Reason: "must be positive"}
	case req.DeclaredValue.Amount <= 0:
		return &carrier.ValidationError{Field: "declared_value", Reason: "must be positive"}
	case !req.Origin.Complete():
		return &carrier.ValidationError{Field: "origin", Reason: "address incomplete"}
	case !req.Destination.Complete():
		return &carrier.ValidationError{Field: "destination", Reason: "address incomplete"}
	}
	return nil
}
