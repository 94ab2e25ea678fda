package mango

import (
	"context"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/c9s/mangogate/pkg/types"
)

// MarketCatalog holds the perp market descriptors of the connector's group.
//
// Refresh replaces the whole mapping atomically: concurrent readers see
// either the previous complete catalog or the new one, never a partial mix.
type MarketCatalog struct {
	client types.VenueClient
	group  string

	markets atomic.Pointer[types.PerpMarketMap]
}

func NewMarketCatalog(client types.VenueClient, group string) *MarketCatalog {
	c := &MarketCatalog{
		client: client,
		group:  group,
	}

	empty := make(types.PerpMarketMap)
	c.markets.Store(&empty)
	return c
}

// Refresh loads the market list from the venue and swaps the catalog in one
// step. The previous catalog stays visible until the new one is complete.
func (c *MarketCatalog) Refresh(ctx context.Context) error {
	markets, err := c.client.ListMarkets(ctx, c.group)
	if err != nil {
		return errors.Wrapf(err, "can not load perp markets for group %s", c.group)
	}

	m := make(types.PerpMarketMap, len(markets))
	for _, market := range markets {
		m.Add(market)
	}

	c.markets.Store(&m)
	return nil
}

// Resolve returns the descriptor of the given market symbol.
func (c *MarketCatalog) Resolve(symbol string) (types.PerpMarket, error) {
	m := *c.markets.Load()
	market, ok := m[symbol]
	if !ok {
		return types.PerpMarket{}, errors.Wrap(ErrMarketNotFound, symbol)
	}

	return market, nil
}

// Markets returns the current catalog. The returned map is the live snapshot
// and must not be mutated by the caller.
func (c *MarketCatalog) Markets() types.PerpMarketMap {
	return *c.markets.Load()
}

func (c *MarketCatalog) Len() int {
	return len(*c.markets.Load())
}
