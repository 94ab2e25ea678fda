package mango

import (
	"context"

	"github.com/c9s/mangogate/pkg/types"
)

// OrderUpdateRequest is a heterogeneous batch of cancellations and
// placements for one owner. Single place and single cancel requests are the
// degenerate one-element cases.
type OrderUpdateRequest struct {
	Owner   string              `json:"address"`
	Cancels []types.CancelOrder `json:"cancelOrderParams,omitempty"`
	Creates []types.SubmitOrder `json:"createOrderParams,omitempty"`
}

func translateOrderSide(side types.Side) (types.PerpOrderSide, error) {
	switch side {
	case types.SideBuy:
		return types.PerpOrderSideBid, nil
	case types.SideSell:
		return types.PerpOrderSideAsk, nil
	}

	return 0, &InvalidOrderParameterError{Param: "side", Value: string(side)}
}

func translateOrderType(orderType types.OrderType) (types.PerpOrderType, error) {
	switch orderType {
	case types.OrderTypeLimit:
		return types.PerpOrderTypeLimit, nil
	case types.OrderTypeMarket:
		return types.PerpOrderTypeMarket, nil
	case types.OrderTypeIOC:
		return types.PerpOrderTypeImmediateOrCancel, nil
	case types.OrderTypePostOnly:
		return types.PerpOrderTypePostOnly, nil
	}

	return 0, &InvalidOrderParameterError{Param: "orderType", Value: string(orderType)}
}

// Translator turns an order-update request into ordered ledger operations.
// Account resolution may create margin accounts as a side effect.
type Translator struct {
	catalog   *MarketCatalog
	allocator *AccountAllocator
	client    types.VenueClient
}

func NewTranslator(catalog *MarketCatalog, allocator *AccountAllocator, client types.VenueClient) *Translator {
	return &Translator{
		catalog:   catalog,
		allocator: allocator,
		client:    client,
	}
}

type placement struct {
	order     types.SubmitOrder
	side      types.PerpOrderSide
	orderType types.PerpOrderType
}

// Translate builds the cancellation and creation operation lists for the
// request. The venue's risk engine evaluates margin against the
// post-cancellation book state, so the submission order is always all
// cancellations first, then all creations; callers must keep that order when
// concatenating the two lists.
//
// Parameter validation happens before any account resolution, so an invalid
// side or order kind rejects the whole batch without a venue call.
func (t *Translator) Translate(ctx context.Context, req OrderUpdateRequest) (cancellations, creations []types.Operation, err error) {
	placements := make([]placement, 0, len(req.Creates))
	for _, order := range req.Creates {
		side, err := translateOrderSide(order.Side)
		if err != nil {
			return nil, nil, err
		}

		orderType, err := translateOrderType(order.Type)
		if err != nil {
			return nil, nil, err
		}

		placements = append(placements, placement{order: order, side: side, orderType: orderType})
	}

	for _, cancel := range req.Cancels {
		market, err := t.catalog.Resolve(cancel.Market)
		if err != nil {
			return nil, nil, err
		}

		account, err := t.allocator.Resolve(ctx, req.Owner, cancel.Market)
		if err != nil {
			return nil, nil, err
		}

		cancellations = append(cancellations, t.client.BuildCancelOrderOp(account, market, cancel.ExchangeOrderID))
	}

	for _, p := range placements {
		market, err := t.catalog.Resolve(p.order.Market)
		if err != nil {
			return nil, nil, err
		}

		account, err := t.allocator.Resolve(ctx, req.Owner, p.order.Market)
		if err != nil {
			return nil, nil, err
		}

		creations = append(creations, t.client.BuildPlaceOrderOp(
			account, market,
			p.side, p.orderType,
			p.order.Price, p.order.Quantity, p.order.ClientOrderID))
	}

	return cancellations, creations, nil
}
