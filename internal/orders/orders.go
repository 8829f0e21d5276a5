package orders

import (
	"fmt"
	"sync"
	"time"

	"delivery-auction/internal/auctionerrors"
	model "delivery-auction/internal/models"
)

// OrderDirectory is the narrow view of the order system the auction engine
// consumes: whether an order still needs a driver, and the one-shot
// assignment that moves it to in-transit.
type OrderDirectory interface {
	IsAwaitingDriver(orderID string) (bool, error)
	AssignDriver(orderID, driverID string, now time.Time) error
}

// MemoryOrders is a concurrency-safe in-memory OrderDirectory
type MemoryOrders struct {
	mu     sync.RWMutex
	orders map[string]*model.Order
}

func NewMemoryOrders() *MemoryOrders {
	return &MemoryOrders{orders: make(map[string]*model.Order)}
}

// Provision seeds orders once at startup. Idempotent: an order that already
// exists is left untouched, so re-running provisioning never clobbers state.
func (d *MemoryOrders) Provision(orders []model.Order) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, o := range orders {
		if _, exists := d.orders[o.OrderID]; exists {
			continue
		}
		order := o
		if order.Status == "" {
			order.Status = model.OrderReadyForDelivery
		}
		d.orders[order.OrderID] = &order
	}
}

// IsAwaitingDriver reports whether the order is ready for delivery with no driver assigned
func (d *MemoryOrders) IsAwaitingDriver(orderID string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	order, ok := d.orders[orderID]
	if !ok {
		return false, fmt.Errorf("check order %s: %w", orderID, auctionerrors.ErrOrderNotFound)
	}
	return order.Status == model.OrderReadyForDelivery && order.DeliveryPersonID == "", nil
}

// AssignDriver records the driver and moves the order to in-transit. It
// succeeds at most once per order; a second call fails because the order is
// no longer awaiting a driver.
func (d *MemoryOrders) AssignDriver(orderID, driverID string, now time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	order, ok := d.orders[orderID]
	if !ok {
		return fmt.Errorf("assign driver to order %s: %w", orderID, auctionerrors.ErrOrderNotFound)
	}
	if order.Status != model.OrderReadyForDelivery || order.DeliveryPersonID != "" {
		return fmt.Errorf("assign driver to order %s: order not awaiting a driver (status %s)", orderID, order.Status)
	}

	order.DeliveryPersonID = driverID
	order.Status = model.OrderInTransit
	return nil
}

// OrderByID returns a copy of the order, for dashboards and tests
func (d *MemoryOrders) OrderByID(orderID string) (model.Order, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	order, ok := d.orders[orderID]
	if !ok {
		return model.Order{}, fmt.Errorf("get order %s: %w", orderID, auctionerrors.ErrOrderNotFound)
	}
	return *order, nil
}
