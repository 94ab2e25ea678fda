package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarginAccount is one isolated-margin account on the venue.
//
// The venue itself allows an owner to hold any number of accounts; the
// gateway opens one per (owner, market) pair and names the account after the
// market so that it can be re-discovered from a cold cache.
type MarginAccount struct {
	Owner      string `json:"owner"`
	MarketName string `json:"name"`

	// AccountNum is unique per owner. The allocator assigns the lowest
	// unused number so that numbers freed by externally closed accounts
	// get recycled.
	AccountNum uint32 `json:"accountNum"`

	Address string `json:"address"`

	Positions []PerpPosition `json:"positions,omitempty"`
}

// ActivePositions returns the positions with a non-zero base size.
func (a *MarginAccount) ActivePositions() (active []PerpPosition) {
	for _, p := range a.Positions {
		if !p.BasePosition.IsZero() {
			active = append(active, p)
		}
	}
	return active
}

// PerpPosition is a snapshot of one risk slot inside a margin account.
type PerpPosition struct {
	MarketIndex   uint16          `json:"marketIndex"`
	MarketName    string          `json:"market,omitempty"`
	BasePosition  decimal.Decimal `json:"basePosition"`
	QuotePosition decimal.Decimal `json:"quotePosition"`
	EntryPrice    decimal.Decimal `json:"entryPrice"`
	UnrealizedPnL decimal.Decimal `json:"unrealizedPnl"`
}

// Trade is one fill reported by the venue for a margin account.
type Trade struct {
	Market          string          `json:"market"`
	ExchangeOrderID string          `json:"orderID"`
	ClientOrderID   uint64          `json:"clientOrderID"`
	Side            Side            `json:"side"`
	Price           decimal.Decimal `json:"price"`
	Quantity        decimal.Decimal `json:"amount"`
	Fee             decimal.Decimal `json:"fee"`
	IsMaker         bool            `json:"isMaker"`
	Time            time.Time       `json:"timestamp"`
}

// FundingPayment is one hourly funding settlement applied to an account.
type FundingPayment struct {
	Market string          `json:"market"`
	Amount decimal.Decimal `json:"amount"`
	Time   time.Time       `json:"timestamp"`
}

// FundingInfo is the current funding rate of a market.
type FundingInfo struct {
	Market     string          `json:"market"`
	HourlyRate decimal.Decimal `json:"hourlyRate"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}
