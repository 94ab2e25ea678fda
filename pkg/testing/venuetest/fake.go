package venuetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/c9s/mangogate/pkg/types"
)

var _ types.VenueClient = (*FakeVenueClient)(nil)

// FakeVenueClient is an in-memory types.VenueClient for tests. Call
// counters and submitted batches are recorded so tests can assert on the
// exact venue traffic a scenario produced.
type FakeVenueClient struct {
	mu sync.Mutex

	Markets         []types.PerpMarket
	AccountsByOwner map[string][]types.MarginAccount

	ConnectErr      error
	ConnectDelay    time.Duration
	ListMarketsErr  error
	ListAccountsErr error
	CreateErr       error
	SubmitErr       error

	SubmitSignature string

	MarketFills     []types.Trade
	Trades          []types.Trade
	OrderHistory    []types.HistoricalOrder
	FundingPayments []types.FundingPayment
	FundingRates    []types.FundingInfo
	Orderbook       *types.Orderbook

	ConnectCalls       int
	ListMarketsCalls   int
	ListAccountsCalls  int
	CreateAccountCalls int

	Submitted [][]types.Operation
}

func New() *FakeVenueClient {
	return &FakeVenueClient{
		AccountsByOwner: make(map[string][]types.MarginAccount),
		SubmitSignature: "5igNaTuRe",
	}
}

func (f *FakeVenueClient) Connect(ctx context.Context) error {
	f.mu.Lock()
	f.ConnectCalls++
	delay := f.ConnectDelay
	err := f.ConnectErr
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return err
}

func (f *FakeVenueClient) ListMarkets(ctx context.Context, group string) ([]types.PerpMarket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ListMarketsCalls++
	if f.ListMarketsErr != nil {
		return nil, f.ListMarketsErr
	}
	return f.Markets, nil
}

func (f *FakeVenueClient) ListAccounts(ctx context.Context, owner string) ([]types.MarginAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ListAccountsCalls++
	if f.ListAccountsErr != nil {
		return nil, f.ListAccountsErr
	}
	return f.AccountsByOwner[owner], nil
}

func (f *FakeVenueClient) CreateAccount(ctx context.Context, group, owner string, accountNum uint32, market string) (*types.MarginAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.CreateAccountCalls++
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}

	account := types.MarginAccount{
		Owner:      owner,
		MarketName: market,
		AccountNum: accountNum,
		Address:    fmt.Sprintf("account/%s/%d", owner, accountNum),
	}
	f.AccountsByOwner[owner] = append(f.AccountsByOwner[owner], account)
	return &account, nil
}

func (f *FakeVenueClient) BuildPlaceOrderOp(
	account *types.MarginAccount, market types.PerpMarket,
	side types.PerpOrderSide, orderType types.PerpOrderType,
	price, quantity decimal.Decimal, clientOrderID uint64,
) types.Operation {
	return types.Operation{
		Kind:          types.OperationPlaceOrder,
		Account:       account.Address,
		Owner:         account.Owner,
		MarketIndex:   market.MarketIndex,
		Side:          side,
		OrderType:     orderType,
		Price:         price,
		Quantity:      quantity,
		ClientOrderID: clientOrderID,
	}
}

func (f *FakeVenueClient) BuildCancelOrderOp(account *types.MarginAccount, market types.PerpMarket, exchangeOrderID string) types.Operation {
	return types.Operation{
		Kind:            types.OperationCancelOrder,
		Account:         account.Address,
		Owner:           account.Owner,
		MarketIndex:     market.MarketIndex,
		ExchangeOrderID: exchangeOrderID,
	}
}

func (f *FakeVenueClient) Submit(ctx context.Context, owner string, ops []types.Operation) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SubmitErr != nil {
		return "", f.SubmitErr
	}

	batch := make([]types.Operation, len(ops))
	copy(batch, ops)
	f.Submitted = append(f.Submitted, batch)
	return f.SubmitSignature, nil
}

func (f *FakeVenueClient) QueryOrderbook(ctx context.Context, market types.PerpMarket) (*types.Orderbook, error) {
	return f.Orderbook, nil
}

func (f *FakeVenueClient) QueryMarketFills(ctx context.Context, market types.PerpMarket) ([]types.Trade, error) {
	return f.MarketFills, nil
}

func (f *FakeVenueClient) QueryTradeHistory(ctx context.Context, accountAddress string) ([]types.Trade, error) {
	return f.Trades, nil
}

func (f *FakeVenueClient) QueryOrderHistory(ctx context.Context, accountAddress string, marketIndex uint16) ([]types.HistoricalOrder, error) {
	return f.OrderHistory, nil
}

func (f *FakeVenueClient) QueryFundingPayments(ctx context.Context, accountAddress string) ([]types.FundingPayment, error) {
	return f.FundingPayments, nil
}

func (f *FakeVenueClient) QueryFundingRates(ctx context.Context, group string) ([]types.FundingInfo, error) {
	return f.FundingRates, nil
}

// Counters returns a snapshot of the venue call counters.
func (f *FakeVenueClient) Counters() (connect, listMarkets, listAccounts, createAccount int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.ConnectCalls, f.ListMarketsCalls, f.ListAccountsCalls, f.CreateAccountCalls
}

// SubmittedBatches returns a copy of every operation batch submitted.
func (f *FakeVenueClient) SubmittedBatches() [][]types.Operation {
	f.mu.Lock()
	defer f.mu.Unlock()

	batches := make([][]types.Operation, len(f.Submitted))
	copy(batches, f.Submitted)
	return batches
}
