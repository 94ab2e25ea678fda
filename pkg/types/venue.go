package types

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// PerpOrderSide is the side enumeration the venue program understands.
type PerpOrderSide int

const (
	PerpOrderSideBid PerpOrderSide = iota
	PerpOrderSideAsk
)

// PerpOrderType is the order-kind enumeration the venue program understands.
type PerpOrderType int

const (
	PerpOrderTypeLimit PerpOrderType = iota
	PerpOrderTypeMarket
	PerpOrderTypeImmediateOrCancel
	PerpOrderTypePostOnly
)

// OperationKind tags one unit of venue state change.
type OperationKind string

const (
	OperationPlaceOrder  OperationKind = "perpPlaceOrder"
	OperationCancelOrder OperationKind = "perpCancelOrder"
)

// Operation is one instruction of a venue transaction. A batch of operations
// submitted together is applied atomically by the ledger: either every
// operation lands or none does.
type Operation struct {
	Kind OperationKind `json:"kind"`

	// Account is the margin account address the instruction acts on.
	Account     string `json:"account"`
	Owner       string `json:"owner"`
	MarketIndex uint16 `json:"marketIndex"`

	// Placement fields, meaningful only for OperationPlaceOrder.
	Side          PerpOrderSide   `json:"side,omitempty"`
	OrderType     PerpOrderType   `json:"orderType,omitempty"`
	Price         decimal.Decimal `json:"price,omitempty"`
	Quantity      decimal.Decimal `json:"amount,omitempty"`
	ClientOrderID uint64          `json:"clientOrderID,omitempty"`

	// Cancellation field, meaningful only for OperationCancelOrder.
	ExchangeOrderID string `json:"orderID,omitempty"`
}

func (op Operation) String() string {
	if op.Kind == OperationCancelOrder {
		return fmt.Sprintf("%s market=%d order=%s", op.Kind, op.MarketIndex, op.ExchangeOrderID)
	}
	return fmt.Sprintf("%s market=%d client=%d", op.Kind, op.MarketIndex, op.ClientOrderID)
}

// VenueClient is the boundary to the remote venue. Reads go against the
// venue's data services; Submit sends one atomic transaction to the ledger.
//
// Operation building is pure construction and performs no network calls.
type VenueClient interface {
	Connect(ctx context.Context) error

	ListMarkets(ctx context.Context, group string) ([]PerpMarket, error)
	ListAccounts(ctx context.Context, owner string) ([]MarginAccount, error)
	CreateAccount(ctx context.Context, group, owner string, accountNum uint32, market string) (*MarginAccount, error)

	BuildPlaceOrderOp(
		account *MarginAccount, market PerpMarket,
		side PerpOrderSide, orderType PerpOrderType,
		price, quantity decimal.Decimal, clientOrderID uint64,
	) Operation
	BuildCancelOrderOp(account *MarginAccount, market PerpMarket, exchangeOrderID string) Operation

	// Submit sends the ordered operation list as a single transaction and
	// returns the transaction signature.
	Submit(ctx context.Context, owner string, ops []Operation) (string, error)

	QueryOrderbook(ctx context.Context, market PerpMarket) (*Orderbook, error)
	QueryMarketFills(ctx context.Context, market PerpMarket) ([]Trade, error)
	QueryTradeHistory(ctx context.Context, accountAddress string) ([]Trade, error)
	QueryOrderHistory(ctx context.Context, accountAddress string, marketIndex uint16) ([]HistoricalOrder, error)
	QueryFundingPayments(ctx context.Context, accountAddress string) ([]FundingPayment, error)
	QueryFundingRates(ctx context.Context, group string) ([]FundingInfo, error)
}
