// Package orchestrator owns the shipment lifecycle. It validates requests,
// enforces the one-live-shipment-per-order invariant, drives the carrier
// adapters, and is the only component permitted to move a shipment record
// between canonical statuses.
package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/atlascommerce/shipping/internal/orders"
	"github.com/atlascommerce/shipping/internal/store"
	"github.com/atlascommerce/shipping/internal/telemetry"
	"github.com/atlascommerce/shipping/pkg/carrier"
)

// Carrier-specific fields retained in the record's opaque metadata bag.
const (
	metaCarrierShipmentID = "carrier_shipment_id"
	metaTrackingURL       = "tracking_url"
)

// Orchestrator coordinates the store, the order service, and the adapter
// registry. One instance serves all concurrent requests.
type Orchestrator struct {
	registry *carrier.Registry
	store    store.Store
	orders   orders.Service
	logger   *otelzap.Logger
	metrics  *telemetry.Metrics
	mode     carrier.Mode
}

// New creates an orchestrator.
func New(registry *carrier.Registry, st store.Store, orderSvc orders.Service,
	logger *otelzap.Logger, metrics *telemetry.Metrics, mode carrier.Mode) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		store:    st,
		orders:   orderSvc,
		logger:   logger,
		metrics:  metrics,
		mode:     mode,
	}
}

// CreateShipment validates the request, checks the order exists, inserts a
// pending record (the store rejects a second live record for the same order),
// then books the shipment with the regional carrier. The insert happens
// before the carrier call so a timed-out booking leaves a pending record that
// blocks accidental duplicate creation.
func (o *Orchestrator) CreateShipment(ctx context.Context, req *carrier.ShippingRequest) (*store.ShipmentRecord, error) {
	correlationID := uuid.NewString()
	start := time.Now()

	if err := validateRequest(req); err != nil {
		o.logger.Ctx(ctx).Warn("shipping request rejected",
			zap.String("correlation_id", correlationID),
			zap.String("order_id", req.OrderID),
			zap.Error(err),
		)
		return nil, err
	}

	if _, err := o.orders.GetOrder(ctx, req.OrderID); err != nil {
		return nil, err
	}

	region := carrier.ResolveDestination(req.Destination.CountryCode)
	adapter, err := o.registry.Get(region, o.mode)
	if err != nil {
		o.logger.Ctx(ctx).Warn("no carrier registered for region",
			zap.String("correlation_id", correlationID),
			zap.String("order_id", req.OrderID),
			zap.String("region", string(region)),
		)
		o.fail("create_shipment", "", region, err)
		return nil, err
	}

	rec := &store.ShipmentRecord{
		ID:       uuid.NewString(),
		OrderID:  req.OrderID,
		Carrier:  adapter.Name(),
		Region:   region,
		Status:   carrier.StatusPending,
		Metadata: map[string]string{},
	}
	if err := o.store.CreateShipment(ctx, rec); err != nil {
		o.fail("create_shipment", adapter.Name(), region, err)
		return nil, err
	}

	resp, err := adapter.CreateShipment(ctx, req)
	if err != nil {
		// The pending record stays; the exists-check rejects re-creation and
		// the caller can poll or cancel.
		o.logger.Ctx(ctx).Error("carrier rejected shipment creation",
			zap.String("correlation_id", correlationID),
			zap.String("order_id", req.OrderID),
			zap.String("carrier", adapter.Name()),
			zap.String("region", string(region)),
			zap.Error(err),
		)
		o.fail("create_shipment", adapter.Name(), region, err)
		return rec, err
	}

	o.applyResponse(rec, resp)
	if err := o.store.UpdateShipment(ctx, rec); err != nil {
		o.fail("create_shipment", adapter.Name(), region, err)
		return rec, err
	}

	if err := o.orders.UpdateStatus(ctx, req.OrderID, orders.StatusProcessing); err != nil {
		o.logger.Ctx(ctx).Warn("order status update failed",
			zap.String("correlation_id", correlationID),
			zap.String("order_id", req.OrderID),
			zap.Error(err),
		)
	}

	o.logger.Ctx(ctx).Info("shipment created",
		zap.String("correlation_id", correlationID),
		zap.String("order_id", req.OrderID),
		zap.String("shipment_id", rec.ID),
		zap.String("carrier", adapter.Name()),
		zap.String("region", string(region)),
		zap.String("tracking_number", rec.TrackingNumber),
	)
	o.metrics.RecordOperation("create_shipment", adapter.Name(), string(region), "ok", time.Since(start).Seconds())
	return rec, nil
}

// GetShipmentStatus looks up the record, polls the carrier for fresh state,
// and persists the refreshed record. A record created before a timed-out
// booking has no carrier shipment id yet and is returned as stored.
func (o *Orchestrator) GetShipmentStatus(ctx context.Context, shipmentID string) (*store.ShipmentRecord, error) {
	start := time.Now()

	rec, err := o.store.GetShipment(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	carrierID := rec.Metadata[metaCarrierShipmentID]
	if rec.Status.IsTerminal() || carrierID == "" {
		return rec, nil
	}

	adapter, err := o.registry.Get(rec.Region, o.mode)
	if err != nil {
		o.fail("get_status", rec.Carrier, rec.Region, err)
		return nil, err
	}

	resp, err := adapter.GetShipmentStatus(ctx, carrierID)
	if err != nil {
		o.fail("get_status", rec.Carrier, rec.Region, err)
		return nil, err
	}

	o.applyResponse(rec, resp)
	if err := o.store.UpdateShipment(ctx, rec); err != nil {
		o.fail("get_status", rec.Carrier, rec.Region, err)
		return nil, err
	}

	o.metrics.RecordOperation("get_status", rec.Carrier, string(rec.Region), "ok", time.Since(start).Seconds())
	return rec, nil
}

// TrackShipment returns the carrier's normalized event history for a tracking
// number and persists it. The latest event may also advance the record's
// canonical status, subject to the transition rules.
func (o *Orchestrator) TrackShipment(ctx context.Context, trackingNumber string) ([]carrier.ShippingUpdate, error) {
	start := time.Now()

	rec, err := o.store.GetShipmentByTracking(ctx, trackingNumber)
	if err != nil {
		return nil, err
	}

	adapter, err := o.registry.Get(rec.Region, o.mode)
	if err != nil {
		o.fail("track_shipment", rec.Carrier, rec.Region, err)
		return nil, err
	}

	updates, err := adapter.TrackShipment(ctx, trackingNumber)
	if err != nil {
		o.fail("track_shipment", rec.Carrier, rec.Region, err)
		return nil, err
	}
	for i := range updates {
		updates[i].ShipmentID = rec.ID
	}
	if err := o.store.AppendUpdates(ctx, rec.ID, updates); err != nil {
		o.fail("track_shipment", rec.Carrier, rec.Region, err)
		return nil, err
	}

	if len(updates) > 0 {
		latest := updates[len(updates)-1]
		if applied := o.transition(rec, latest.Status); applied {
			if err := o.store.UpdateShipment(ctx, rec); err != nil {
				o.fail("track_shipment", rec.Carrier, rec.Region, err)
				return nil, err
			}
		}
	}

	o.metrics.RecordOperation("track_shipment", rec.Carrier, string(rec.Region), "ok", time.Since(start).Seconds())
	return updates, nil
}

// CancelShipment asks the carrier to cancel. Only a confirmed cancellation
// moves the record to cancelled and transitions the order; a carrier decline
// (false, nil) and a carrier rejection (ProviderError) both leave the record
// untouched.
func (o *Orchestrator) CancelShipment(ctx context.Context, shipmentID, reason string) (bool, error) {
	start := time.Now()

	rec, err := o.store.GetShipment(ctx, shipmentID)
	if err != nil {
		return false, err
	}
	if rec.Status == carrier.StatusCancelled {
		return true, nil
	}

	adapter, err := o.registry.Get(rec.Region, o.mode)
	if err != nil {
		o.fail("cancel_shipment", rec.Carrier, rec.Region, err)
		return false, err
	}

	carrierID := rec.Metadata[metaCarrierShipmentID]
	if carrierID == "" {
		carrierID = rec.ID
	}
	confirmed, err := adapter.CancelShipment(ctx, carrierID, reason)
	if err != nil {
		o.fail("cancel_shipment", rec.Carrier, rec.Region, err)
		return false, err
	}
	if !confirmed {
		o.metrics.RecordOperation("cancel_shipment", rec.Carrier, string(rec.Region), "declined", time.Since(start).Seconds())
		return false, nil
	}

	if o.transition(rec, carrier.StatusCancelled) {
		if err := o.store.UpdateShipment(ctx, rec); err != nil {
			o.fail("cancel_shipment", rec.Carrier, rec.Region, err)
			return false, err
		}
	}
	if err := o.orders.UpdateStatus(ctx, rec.OrderID, orders.StatusCancelled); err != nil {
		o.logger.Ctx(ctx).Warn("order status update failed",
			zap.String("order_id", rec.OrderID),
			zap.Error(err),
		)
	}

	o.logger.Ctx(ctx).Info("shipment cancelled",
		zap.String("shipment_id", rec.ID),
		zap.String("order_id", rec.OrderID),
		zap.String("carrier", rec.Carrier),
		zap.String("reason", reason),
	)
	o.metrics.RecordOperation("cancel_shipment", rec.Carrier, string(rec.Region), "ok", time.Since(start).Seconds())
	return true, nil
}

// GetRates quotes a possibly incomplete request against the regional carrier.
// No order is required and nothing is persisted.
func (o *Orchestrator) GetRates(ctx context.Context, req *carrier.ShippingRequest) ([]carrier.ShippingRate, error) {
	start := time.Now()

	region := carrier.ResolveDestination(req.Destination.CountryCode)
	adapter, err := o.registry.Get(region, o.mode)
	if err != nil {
		o.fail("get_rates", "", region, err)
		return nil, err
	}

	rates, err := adapter.GetRates(ctx, req)
	if err != nil {
		o.fail("get_rates", adapter.Name(), region, err)
		return nil, err
	}

	o.metrics.RecordOperation("get_rates", adapter.Name(), string(region), "ok", time.Since(start).Seconds())
	return rates, nil
}

// GetRatesAll fans the quote out to every registered carrier for rate
// shopping. Individual carrier failures are logged and dropped so the caller
// still sees whatever rates came back.
func (o *Orchestrator) GetRatesAll(ctx context.Context, req *carrier.ShippingRequest) ([]carrier.ShippingRate, error) {
	start := time.Now()

	rates, errs := o.registry.RatesFanOut(ctx, o.mode, req)
	for _, err := range errs {
		o.logger.Ctx(ctx).Warn("carrier rate quote failed", zap.Error(err))
	}
	if len(rates) == 0 && len(errs) > 0 {
		o.fail("get_rates_all", "", "", errs[0])
		return nil, errs[0]
	}

	o.metrics.RecordOperation("get_rates_all", "all", "", "ok", time.Since(start).Seconds())
	return rates, nil
}

// ApplyTrackingEvent feeds a webhook-derived tracking event into the status
// state machine. The event is always appended for audit; the canonical status
// only moves when the transition rules allow it, so duplicated or reordered
// carrier events cannot regress a record.
func (o *Orchestrator) ApplyTrackingEvent(ctx context.Context, update *carrier.ShippingUpdate) error {
	rec, err := o.store.GetShipmentByTracking(ctx, update.TrackingNumber)
	if err != nil {
		return err
	}

	update.ShipmentID = rec.ID
	if err := o.store.AppendUpdates(ctx, rec.ID, []carrier.ShippingUpdate{*update}); err != nil {
		return err
	}

	if !o.transition(rec, update.Status) {
		o.logger.Ctx(ctx).Debug("tracking event persisted without state change",
			zap.String("shipment_id", rec.ID),
			zap.String("current_status", string(rec.Status)),
			zap.String("event_status", string(update.Status)),
		)
		return nil
	}
	if err := o.store.UpdateShipment(ctx, rec); err != nil {
		return err
	}

	switch rec.Status {
	case carrier.StatusInTransit:
		err = o.orders.UpdateStatus(ctx, rec.OrderID, orders.StatusShipped)
	case carrier.StatusDelivered:
		err = o.orders.UpdateStatus(ctx, rec.OrderID, orders.StatusDelivered)
	case carrier.StatusCancelled:
		err = o.orders.UpdateStatus(ctx, rec.OrderID, orders.StatusCancelled)
	}
	if err != nil {
		o.logger.Ctx(ctx).Warn("order status update failed",
			zap.String("order_id", rec.OrderID),
			zap.Error(err),
		)
	}
	return nil
}

// applyResponse folds an adapter response into the record, moving the status
// only when the transition is legal.
func (o *Orchestrator) applyResponse(rec *store.ShipmentRecord, resp *carrier.ShippingResponse) {
	if resp.TrackingNumber != "" {
		rec.TrackingNumber = resp.TrackingNumber
		rec.TrackingPlaceholder = resp.TrackingPlaceholder
	}
	if resp.Cost.Amount > 0 {
		rec.Cost = resp.Cost
	}
	if resp.EstimatedDelivery != nil {
		rec.EstimatedDelivery = resp.EstimatedDelivery
	}
	if rec.Metadata == nil {
		rec.Metadata = map[string]string{}
	}
	for k, v := range resp.Metadata {
		rec.Metadata[k] = v
	}
	if resp.ShipmentID != "" {
		rec.Metadata[metaCarrierShipmentID] = resp.ShipmentID
	}
	if resp.TrackingURL != "" {
		rec.Metadata[metaTrackingURL] = resp.TrackingURL
	}
	o.transition(rec, resp.Status)
}

// transition applies the state machine and reports whether the record moved.
func (o *Orchestrator) transition(rec *store.ShipmentRecord, next carrier.ShipmentStatus) bool {
	if next == "" || next == rec.Status {
		return false
	}
	if !rec.Status.CanTransition(next) {
		return false
	}
	rec.Status = next
	return true
}

func (o *Orchestrator) fail(operation, carrierName string, region carrier.Region, err error) {
	o.metrics.RecordError(operation, carrierName, string(region), carrier.Kind(err))
}
