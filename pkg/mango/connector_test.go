package mango

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c9s/mangogate/pkg/config"
	"github.com/c9s/mangogate/pkg/testing/venuetest"
	"github.com/c9s/mangogate/pkg/types"
)

func newTestConnector(t *testing.T, fake *venuetest.FakeVenueClient) *Connector {
	if fake.Markets == nil {
		fake.Markets = []types.PerpMarket{
			{Name: "BTC-PERP", MarketIndex: 0, Address: "market/btc"},
			{Name: "ETH-PERP", MarketIndex: 1, Address: "market/eth"},
		}
	}

	conn := NewConnector("solana", "mainnet-beta", config.NetworkConfig{
		Group: "mainnet.1",
	}, fake)
	require.NoError(t, conn.catalog.Refresh(context.Background()))
	return conn
}

func TestConnector_SubmitOrderUpdate(t *testing.T) {
	fake := venuetest.New()
	conn := newTestConnector(t, fake)

	txHash, err := conn.SubmitOrderUpdate(context.Background(), OrderUpdateRequest{
		Owner: "A",
		Creates: []types.SubmitOrder{
			{
				Market:        "BTC-PERP",
				Side:          types.SideBuy,
				Type:          types.OrderTypeLimit,
				Price:         decimal.NewFromInt(42000),
				Quantity:      decimal.NewFromInt(1),
				ClientOrderID: 7,
			},
		},
		Cancels: []types.CancelOrder{
			{Market: "BTC-PERP", ExchangeOrderID: "orderX"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "5igNaTuRe", txHash)

	batches := fake.SubmittedBatches()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 2)

	// all cancellations precede all creations in the submitted sequence
	assert.Equal(t, types.OperationCancelOrder, batches[0][0].Kind)
	assert.Equal(t, "orderX", batches[0][0].ExchangeOrderID)
	assert.Equal(t, types.OperationPlaceOrder, batches[0][1].Kind)

	// the created order is tracked in CREATED state
	orders := conn.TrackedOrders("A", "BTC-PERP")
	require.Len(t, orders, 1)
	assert.Equal(t, uint64(7), orders[0].ClientOrderID)
	assert.Equal(t, types.OrderStatusCreated, orders[0].Status)
}

func TestConnector_SubmitOrderUpdate_DuplicateClientOrderID(t *testing.T) {
	fake := venuetest.New()
	conn := newTestConnector(t, fake)

	order := types.SubmitOrder{
		Market:        "BTC-PERP",
		Side:          types.SideBuy,
		Type:          types.OrderTypeLimit,
		Price:         decimal.NewFromInt(42000),
		Quantity:      decimal.NewFromInt(1),
		ClientOrderID: 7,
	}

	_, err := conn.SubmitOrderUpdate(context.Background(), OrderUpdateRequest{
		Owner:   "A",
		Creates: []types.SubmitOrder{order},
	})
	require.NoError(t, err)

	_, err = conn.SubmitOrderUpdate(context.Background(), OrderUpdateRequest{
		Owner:   "A",
		Creates: []types.SubmitOrder{order},
	})
	require.Error(t, err)

	var dupErr *DuplicateOrderIDError
	require.True(t, errors.As(err, &dupErr))

	// the duplicate was rejected before reaching the venue
	assert.Len(t, fake.SubmittedBatches(), 1)
}

func TestConnector_SubmitOrderUpdate_SubmitErrorLeavesTrackerUntouched(t *testing.T) {
	fake := venuetest.New()
	fake.SubmitErr = &types.VenueRejectionError{Call: "submit", Detail: "margin check failed"}
	conn := newTestConnector(t, fake)

	_, err := conn.SubmitOrderUpdate(context.Background(), OrderUpdateRequest{
		Owner: "A",
		Creates: []types.SubmitOrder{
			{
				Market:        "BTC-PERP",
				Side:          types.SideBuy,
				Type:          types.OrderTypeLimit,
				Price:         decimal.NewFromInt(42000),
				Quantity:      decimal.NewFromInt(1),
				ClientOrderID: 7,
			},
		},
	})
	require.Error(t, err)

	var rejectErr *types.VenueRejectionError
	assert.True(t, errors.As(err, &rejectErr))

	assert.Empty(t, conn.TrackedOrders("A", "BTC-PERP"))
}

func TestConnector_HandleFill(t *testing.T) {
	fake := venuetest.New()
	conn := newTestConnector(t, fake)

	_, err := conn.SubmitOrderUpdate(context.Background(), OrderUpdateRequest{
		Owner: "A",
		Creates: []types.SubmitOrder{
			{
				Market:        "BTC-PERP",
				Side:          types.SideBuy,
				Type:          types.OrderTypeLimit,
				Price:         decimal.NewFromInt(42000),
				Quantity:      decimal.NewFromInt(10),
				ClientOrderID: 7,
			},
		},
	})
	require.NoError(t, err)

	account, ok := conn.allocator.Lookup("A", "BTC-PERP")
	require.True(t, ok)

	conn.handleFill(FillEvent{
		Market:          "BTC-PERP",
		Account:         account.Address,
		ExchangeOrderID: "venue-9",
		ClientOrderID:   7,
		Quantity:        decimal.NewFromInt(4),
	})

	tracking, ok := conn.tracker(account.Address).Get(7)
	require.True(t, ok)
	assert.Equal(t, types.OrderStatusPartiallyFilled, tracking.Status)
	assert.Equal(t, "venue-9", tracking.ExchangeOrderID)
	assert.Equal(t, "4", tracking.FilledQuantity.String())

	conn.handleFill(FillEvent{
		Market:        "BTC-PERP",
		Account:       account.Address,
		ClientOrderID: 7,
		Quantity:      decimal.NewFromInt(6),
	})

	tracking, _ = conn.tracker(account.Address).Get(7)
	assert.Equal(t, types.OrderStatusFilled, tracking.Status)
	assert.Equal(t, "10", tracking.FilledQuantity.String())

	// fills for accounts this process never submitted through are ignored
	conn.handleFill(FillEvent{Account: "someone-else", ClientOrderID: 1})
}

func TestConnector_Markets(t *testing.T) {
	fake := venuetest.New()
	conn := newTestConnector(t, fake)

	markets, err := conn.Markets("")
	require.NoError(t, err)
	assert.Len(t, markets, 2)

	markets, err = conn.Markets("BTC-PERP")
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.True(t, markets.Has("BTC-PERP"))

	_, err = conn.Markets("DOGE-PERP")
	assert.True(t, errors.Is(err, ErrMarketNotFound))
}

func TestConnector_LastTradePrice(t *testing.T) {
	fake := venuetest.New()
	fake.MarketFills = []types.Trade{
		{Market: "BTC-PERP", Price: decimal.NewFromInt(42123)},
		{Market: "BTC-PERP", Price: decimal.NewFromInt(42000)},
	}
	conn := newTestConnector(t, fake)

	price, err := conn.LastTradePrice(context.Background(), "BTC-PERP")
	require.NoError(t, err)
	assert.Equal(t, "42123", price.String())
}
