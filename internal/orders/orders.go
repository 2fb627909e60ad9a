// Package orders defines the contract with the commerce platform's order
// service. Shipping only needs to know that an order exists and to request
// status transitions after shipment events; everything else about orders is
// out of scope here.
package orders

import (
	"context"
	"fmt"
	"sync"

	"github.com/atlascommerce/shipping/pkg/carrier"
)

// Order is the subset of an order the shipping service consumes.
type Order struct {
	ID          string
	Status      string
	Destination carrier.Address
}

// Order status values the shipping service requests.
const (
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

// Service is the order collaborator. GetOrder returns
// carrier.ErrOrderNotFound (wrapped) for unknown ids.
type Service interface {
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	UpdateStatus(ctx context.Context, orderID, status string) error
}

// Memory is an in-process Service used in sandbox mode and tests.
type Memory struct {
	mu     sync.Mutex
	orders map[string]*Order
}

// NewMemory creates an empty in-process order service.
func NewMemory() *Memory {
	return &Memory{orders: map[string]*Order{}}
}

// Put registers an order.
func (m *Memory) Put(order *Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *order
	m.orders[order.ID] = &cp
}

func (m *Memory) GetOrder(_ context.Context, orderID string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", carrier.ErrOrderNotFound, orderID)
	}
	cp := *order
	return &cp, nil
}

func (m *Memory) UpdateStatus(_ context.Context, orderID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return fmt.Errorf("%w: %s", carrier.ErrOrderNotFound, orderID)
	}
	order.Status = status
	return nil
}

var _ Service = (*Memory)(nil)
