package mango

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/c9s/mangogate/pkg/types"
)

// OrderTracking is the locally kept lifecycle record of one submitted order.
type OrderTracking struct {
	ClientOrderID uint64 `json:"clientOrderID"`

	// ExchangeOrderID is empty until the venue acknowledges the order.
	ExchangeOrderID string `json:"exchangeOrderID,omitempty"`

	Status types.OrderStatus `json:"status"`

	OrderQuantity  decimal.Decimal `json:"orderAmount"`
	FilledQuantity decimal.Decimal `json:"filledAmount"`
}

// OrderTracker keeps the client-order-id ledger of one margin account.
//
// The venue exposes order state only through asynchronous account snapshots
// and fill events, so the tracker is the request layer's only synchronous
// view of an order's lifecycle. Updates for unknown ids are ignored: venue
// events may race against local bookkeeping.
type OrderTracker struct {
	mu     sync.Mutex
	orders map[uint64]*OrderTracking
}

func NewOrderTracker() *OrderTracker {
	return &OrderTracker{
		orders: make(map[uint64]*OrderTracking),
	}
}

// AddOrder registers a freshly submitted order in CREATED state. Re-adding a
// tracked client order id fails and leaves the existing entry untouched.
func (t *OrderTracker) AddOrder(clientOrderID uint64, quantity decimal.Decimal) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.orders[clientOrderID]; ok {
		return &DuplicateOrderIDError{ClientOrderID: clientOrderID}
	}

	t.orders[clientOrderID] = &OrderTracking{
		ClientOrderID: clientOrderID,
		Status:        types.OrderStatusCreated,
		OrderQuantity: quantity,
	}
	return nil
}

// SetExchangeOrderID records the venue-assigned order id once known.
func (t *OrderTracker) SetExchangeOrderID(clientOrderID uint64, exchangeOrderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tracking, ok := t.orders[clientOrderID]; ok {
		tracking.ExchangeOrderID = exchangeOrderID
	}
}

// UpdateStatus moves the order to the given status. A zero filledQuantity
// leaves the recorded fill unchanged, since venue events may omit it.
// Intermediate states are not enforced: venue event delivery may skip OPEN
// and report a fill directly.
func (t *OrderTracker) UpdateStatus(clientOrderID uint64, status types.OrderStatus, filledQuantity decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.update(t.orders[clientOrderID], status, filledQuantity)
}

// UpdateStatusByExchangeOrderID is UpdateStatus keyed by the venue-assigned
// id. The scan is linear; the tracked set is scoped to one account's recent
// history, not the whole venue.
func (t *OrderTracker) UpdateStatusByExchangeOrderID(exchangeOrderID string, status types.OrderStatus, filledQuantity decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.update(t.findByExchangeOrderID(exchangeOrderID), status, filledQuantity)
}

func (t *OrderTracker) update(tracking *OrderTracking, status types.OrderStatus, filledQuantity decimal.Decimal) {
	if tracking == nil {
		return
	}

	tracking.Status = status
	if !filledQuantity.IsZero() {
		tracking.FilledQuantity = filledQuantity
	}
}

func (t *OrderTracker) findByExchangeOrderID(exchangeOrderID string) *OrderTracking {
	for _, tracking := range t.orders {
		if tracking.ExchangeOrderID != "" && tracking.ExchangeOrderID == exchangeOrderID {
			return tracking
		}
	}
	return nil
}

// Get returns a copy of the tracking record for the client order id.
func (t *OrderTracker) Get(clientOrderID uint64) (OrderTracking, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tracking, ok := t.orders[clientOrderID]
	if !ok {
		return OrderTracking{}, false
	}
	return *tracking, true
}

// GetByExchangeOrderID returns a copy of the tracking record carrying the
// venue-assigned id.
func (t *OrderTracker) GetByExchangeOrderID(exchangeOrderID string) (OrderTracking, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tracking := t.findByExchangeOrderID(exchangeOrderID)
	if tracking == nil {
		return OrderTracking{}, false
	}
	return *tracking, true
}

// Orders returns copies of all tracked orders.
func (t *OrderTracker) Orders() (orders []OrderTracking) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, tracking := range t.orders {
		orders = append(orders, *tracking)
	}
	return orders
}

func (t *OrderTracker) NumOfOrders() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.orders)
}
