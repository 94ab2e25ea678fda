package mango

import (
	"context"
	"strconv"

	"github.com/c9s/mangogate/pkg/types"
)

// Positions returns the owner's active positions on the requested markets.
//
// No account is created implicitly: a market the owner holds no account for
// is simply omitted from the result, as is a symbol missing from the
// catalog. Read paths degrade to partial results instead of failing.
func (c *Connector) Positions(ctx context.Context, owner string, markets []string) ([]types.PerpPosition, error) {
	var positions []types.PerpPosition

	for _, symbol := range markets {
		market, err := c.catalog.Resolve(symbol)
		if err != nil {
			continue
		}

		account, ok := c.allocator.Lookup(owner, symbol)
		if !ok {
			continue
		}

		for _, position := range account.ActivePositions() {
			if position.MarketIndex != market.MarketIndex {
				continue
			}

			position.MarketName = market.Name
			positions = append(positions, position)
		}
	}

	return positions, nil
}

// Trades returns the fill history of the (owner, market) account. When an
// order id is given, only the matching trades are returned; an id that does
// not appear in the history yields an empty result, not an error.
func (c *Connector) Trades(ctx context.Context, owner, market, orderID string) ([]types.Trade, error) {
	account, err := c.allocator.Resolve(ctx, owner, market)
	if err != nil {
		return nil, err
	}

	trades, err := c.client.QueryTradeHistory(ctx, account.Address)
	if err != nil {
		return nil, err
	}

	if orderID == "" {
		return trades, nil
	}

	var matched []types.Trade
	for _, trade := range trades {
		if tradeMatchesOrderID(trade, orderID) {
			matched = append(matched, trade)
		}
	}
	return matched, nil
}

// tradeMatchesOrderID accepts both id spaces: the venue-assigned order id
// and the caller's numeric client order id.
func tradeMatchesOrderID(trade types.Trade, orderID string) bool {
	if trade.ExchangeOrderID == orderID {
		return true
	}

	if clientOrderID, err := strconv.ParseUint(orderID, 10, 64); err == nil {
		return trade.ClientOrderID == clientOrderID
	}

	return false
}

// OrderHistory returns the venue-side order history of the (owner, market)
// account, optionally narrowed to one order id. A missing id yields an
// empty result.
func (c *Connector) OrderHistory(ctx context.Context, owner, market, orderID string) ([]types.HistoricalOrder, error) {
	marketDesc, err := c.catalog.Resolve(market)
	if err != nil {
		return nil, err
	}

	account, err := c.allocator.Resolve(ctx, owner, market)
	if err != nil {
		return nil, err
	}

	orders, err := c.client.QueryOrderHistory(ctx, account.Address, marketDesc.MarketIndex)
	if err != nil {
		return nil, err
	}

	if orderID == "" {
		return orders, nil
	}

	for _, order := range orders {
		if order.ExchangeOrderID == orderID {
			return []types.HistoricalOrder{order}, nil
		}
	}
	return nil, nil
}

// FundingPayments returns the funding settlements applied to the
// (owner, market) account, always fetched fresh from the venue.
func (c *Connector) FundingPayments(ctx context.Context, owner, market string) ([]types.FundingPayment, error) {
	account, err := c.allocator.Resolve(ctx, owner, market)
	if err != nil {
		return nil, err
	}

	return c.client.QueryFundingPayments(ctx, account.Address)
}

// FundingInfo returns the current funding rates of the group's markets.
func (c *Connector) FundingInfo(ctx context.Context) ([]types.FundingInfo, error) {
	return c.client.QueryFundingRates(ctx, c.cfg.Group)
}
