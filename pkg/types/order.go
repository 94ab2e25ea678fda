package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the order side as submitted by the caller.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType defines the order kind accepted on the request boundary.
type OrderType string

const (
	OrderTypeLimit    OrderType = "LIMIT"
	OrderTypeMarket   OrderType = "MARKET"
	OrderTypeIOC      OrderType = "IOC"
	OrderTypePostOnly OrderType = "POST_ONLY"
)

// OrderStatus is the locally tracked order lifecycle status.
//
// The venue only exposes order state through eventually-consistent account
// snapshots and fill events, so the status here is the gateway's view, not
// the matching engine's.
type OrderStatus string

const (
	OrderStatusCreated         OrderStatus = "CREATED"
	OrderStatusOpen            OrderStatus = "OPEN"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
	OrderStatusExpired         OrderStatus = "EXPIRED"
)

// Closed returns true when the status is terminal.
func (s OrderStatus) Closed() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusExpired:
		return true
	}
	return false
}

// SubmitOrder is a caller-supplied order placement intent. The client order id
// is chosen by the caller and must be unique within the margin account the
// order resolves to.
type SubmitOrder struct {
	Market        string          `json:"market"`
	Side          Side            `json:"side"`
	Type          OrderType       `json:"orderType"`
	Price         decimal.Decimal `json:"price"`
	Quantity      decimal.Decimal `json:"amount"`
	ClientOrderID uint64          `json:"clientOrderID"`
}

func (o SubmitOrder) String() string {
	return fmt.Sprintf("SubmitOrder %s %s %s @ %s x %s #%d",
		o.Market, o.Side, o.Type, o.Price.String(), o.Quantity.String(), o.ClientOrderID)
}

// CancelOrder references a resting order by its venue-assigned order id.
type CancelOrder struct {
	Market          string `json:"market"`
	ExchangeOrderID string `json:"orderID"`
}

// HistoricalOrder is one entry of the venue-side order history.
type HistoricalOrder struct {
	ExchangeOrderID string          `json:"orderID"`
	Market          string          `json:"market"`
	Side            Side            `json:"side"`
	Price           decimal.Decimal `json:"price"`
	Quantity        decimal.Decimal `json:"amount"`
	FilledQuantity  decimal.Decimal `json:"filledAmount"`
	Status          OrderStatus     `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
}
