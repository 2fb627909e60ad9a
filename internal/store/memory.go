package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/atlascommerce/shipping/pkg/carrier"
)

// Memory is an in-memory Store used when no DATABASE_URL is set, and in
// tests. A single mutex makes the create exists-check-and-insert atomic.
type Memory struct {
	mu        sync.Mutex
	shipments map[string]*ShipmentRecord       // id -> record
	byOrder   map[string]string                // order id -> live shipment id
	updates   map[string][]carrier.ShippingUpdate // shipment id -> events
	webhooks  map[string]*carrier.ShippingWebhook // webhook id -> envelope
	hookOrder []string                         // webhook ids, arrival order
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		shipments: map[string]*ShipmentRecord{},
		byOrder:   map[string]string{},
		updates:   map[string][]carrier.ShippingUpdate{},
		webhooks:  map[string]*carrier.ShippingWebhook{},
	}
}

func (m *Memory) CreateShipment(ctx context.Context, rec *ShipmentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byOrder[rec.OrderID]; ok {
		if existing := m.shipments[id]; existing != nil && existing.Status != carrier.StatusCancelled {
			return fmt.Errorf("%w: order %s", carrier.ErrShipmentExists, rec.OrderID)
		}
	}

	now := time.Now().UTC()
	cp := *rec
	cp.CreatedAt = now
	cp.UpdatedAt = now
	m.shipments[cp.ID] = &cp
	m.byOrder[cp.OrderID] = cp.ID

	rec.CreatedAt = now
	rec.UpdatedAt = now
	return nil
}

func (m *Memory) GetShipment(ctx context.Context, id string) (*ShipmentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.shipments[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", carrier.ErrShipmentNotFound, id)
	}
	cp := *rec
	return &cp, nil
}

func (m *Memory) GetShipmentByOrder(ctx context.Context, orderID string) (*ShipmentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byOrder[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: order %s", carrier.ErrShipmentNotFound, orderID)
	}
	rec := m.shipments[id]
	if rec == nil || rec.Status == carrier.StatusCancelled {
		return nil, fmt.Errorf("%w: order %s", carrier.ErrShipmentNotFound, orderID)
	}
	cp := *rec
	return &cp, nil
}

func (m *Memory) GetShipmentByTracking(ctx context.Context, trackingNumber string) (*ShipmentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.shipments {
		if rec.TrackingNumber == trackingNumber {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: tracking %s", carrier.ErrShipmentNotFound, trackingNumber)
}

func (m *Memory) UpdateShipment(ctx context.Context, rec *ShipmentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.shipments[rec.ID]; !ok {
		return fmt.Errorf("%w: %s", carrier.ErrShipmentNotFound, rec.ID)
	}
	cp := *rec
	cp.UpdatedAt = time.Now().UTC()
	m.shipments[cp.ID] = &cp
	rec.UpdatedAt = cp.UpdatedAt
	return nil
}

func (m *Memory) AppendUpdates(ctx context.Context, shipmentID string, updates []carrier.ShippingUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates[shipmentID] = append(m.updates[shipmentID], updates...)
	return nil
}

func (m *Memory) ListUpdates(ctx context.Context, shipmentID string) ([]carrier.ShippingUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]carrier.ShippingUpdate, len(m.updates[shipmentID]))
	copy(out, m.updates[shipmentID])
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (m *Memory) SaveWebhook(ctx context.Context, hook *carrier.ShippingWebhook) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, seen := m.webhooks[hook.ID]; !seen {
		m.hookOrder = append(m.hookOrder, hook.ID)
	}
	cp := *hook
	m.webhooks[hook.ID] = &cp
	return nil
}

func (m *Memory) GetWebhook(ctx context.Context, id string) (*carrier.ShippingWebhook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	hook, ok := m.webhooks[id]
	if !ok {
		return nil, nil
	}
	cp := *hook
	return &cp, nil
}

func (m *Memory) ListWebhooks(ctx context.Context, carrierID string, limit int) ([]carrier.ShippingWebhook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	out := make([]carrier.ShippingWebhook, 0, limit)
	for i := len(m.hookOrder) - 1; i >= 0 && len(out) < limit; i-- {
		hook := m.webhooks[m.hookOrder[i]]
		if carrierID == "" || hook.Carrier == carrierID {
			out = append(out, *hook)
		}
	}
	return out, nil
}

// Ensure Memory implements Store
var _ Store = (*Memory)(nil)
