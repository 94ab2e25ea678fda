package types

import (
	"github.com/shopspring/decimal"
)

// PerpMarket describes one perpetual market of the venue group.
//
// MarketIndex is the opaque index the venue program uses to address the
// market inside a margin account (the risk slot). Address is the on-ledger
// account of the market itself.
type PerpMarket struct {
	Name        string `json:"name"`
	MarketIndex uint16 `json:"marketIndex"`
	Address     string `json:"address"`

	BaseDecimals  int `json:"baseDecimals"`
	QuoteDecimals int `json:"quoteDecimals"`

	TickSize     decimal.Decimal `json:"tickSize"`
	MinOrderSize decimal.Decimal `json:"minOrderSize"`

	TakerFee decimal.Decimal `json:"takerFee"`
	MakerFee decimal.Decimal `json:"makerFee"`
}

// PerpMarketMap maps market name to its descriptor.
type PerpMarketMap map[string]PerpMarket

func (m PerpMarketMap) Add(market PerpMarket) {
	m[market.Name] = market
}

func (m PerpMarketMap) Has(name string) bool {
	_, ok := m[name]
	return ok
}

// PriceLevel is one aggregated level of the order book.
type PriceLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"amount"`
}

// Orderbook holds both sides of a market's book, best price first.
type Orderbook struct {
	Market string       `json:"market"`
	Bids   []PriceLevel `json:"buys"`
	Asks   []PriceLevel `json:"sells"`
}
