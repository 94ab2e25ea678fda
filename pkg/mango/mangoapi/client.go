package mangoapi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/c9s/mangogate/pkg/config"
	"github.com/c9s/mangogate/pkg/metrics"
	"github.com/c9s/mangogate/pkg/types"
)

var log = logrus.WithFields(logrus.Fields{
	"venue": "mangoapi",
})

// the data API budget is shared across all connector instances
var restSharedLimiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 5)

const maxReadRetries = 3

// Client implements types.VenueClient against the venue's HTTP services:
// the data API for reads and the transaction router for atomic operation
// batches. Idempotent reads are retried with exponential backoff; Submit is
// never retried since the transaction outcome would be ambiguous.
type Client struct {
	data   *resty.Client
	router *resty.Client
}

func NewClient(cfg config.NetworkConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = config.DefaultVenueTimeout
	}

	return &Client{
		data: resty.New().
			SetBaseURL(strings.TrimSuffix(cfg.DataAPIEndpoint, "/")).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		router: resty.New().
			SetBaseURL(strings.TrimSuffix(cfg.RPCEndpoint, "/")).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

func observe(call string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}

	metrics.VenueRequestsMetric.WithLabelValues(call, result).Inc()
	metrics.VenueRequestDurationMetric.WithLabelValues(call).Observe(time.Since(start).Seconds())
}

// wrapTimeout converts deadline errors into the timeout error type the core
// expects. No partial state may be assumed committed after a timeout.
func wrapTimeout(call string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &types.VenueTimeoutError{Call: call, Err: err}
	}
	return err
}

// get performs one idempotent read with rate limiting and bounded retries.
// 4xx responses are venue rejections and are not retried.
func (c *Client) get(ctx context.Context, call, path string, params map[string]string, out interface{}) error {
	start := time.Now()

	op := func() error {
		if err := restSharedLimiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.data.R().
			SetContext(ctx).
			SetQueryParams(params).
			SetResult(out).
			Get(path)
		if err != nil {
			return err
		}

		if resp.IsError() {
			if resp.StatusCode() >= 500 {
				return errors.Errorf("%s returned status %d", call, resp.StatusCode())
			}
			return backoff.Permanent(&types.VenueRejectionError{Call: call, Detail: resp.String()})
		}

		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxReadRetries), ctx))
	err = wrapTimeout(call, err)
	observe(call, start, err)
	return err
}

func (c *Client) Connect(ctx context.Context) error {
	start := time.Now()

	resp, err := c.data.R().SetContext(ctx).Get("/health")
	if err == nil && resp.IsError() {
		err = errors.Errorf("data api health check returned status %d", resp.StatusCode())
	}

	err = wrapTimeout("connect", err)
	observe("connect", start, err)
	return err
}

func (c *Client) ListMarkets(ctx context.Context, group string) ([]types.PerpMarket, error) {
	var markets []types.PerpMarket
	err := c.get(ctx, "listMarkets", "/v4/perp-markets", map[string]string{
		"group": group,
	}, &markets)
	return markets, err
}

func (c *Client) ListAccounts(ctx context.Context, owner string) ([]types.MarginAccount, error) {
	var accounts []types.MarginAccount
	err := c.get(ctx, "listAccounts", "/v4/margin-accounts", map[string]string{
		"owner": owner,
	}, &accounts)
	return accounts, err
}

type createAccountRequest struct {
	Group      string `json:"group"`
	Owner      string `json:"owner"`
	AccountNum uint32 `json:"accountNum"`
	Market     string `json:"name"`
}

// CreateAccount requests a new isolated-margin account, named after the
// market so the allocator can re-discover it later. Not retried: the
// typical failure is insufficient collateral for the account rent.
func (c *Client) CreateAccount(ctx context.Context, group, owner string, accountNum uint32, market string) (*types.MarginAccount, error) {
	start := time.Now()

	var account types.MarginAccount
	resp, err := c.router.R().
		SetContext(ctx).
		SetBody(createAccountRequest{
			Group:      group,
			Owner:      owner,
			AccountNum: accountNum,
			Market:     market,
		}).
		SetResult(&account).
		Post("/v4/margin-accounts")

	if err == nil && resp.IsError() {
		err = &types.VenueRejectionError{Call: "createAccount", Detail: resp.String()}
	}

	err = wrapTimeout("createAccount", err)
	observe("createAccount", start, err)
	if err != nil {
		return nil, err
	}

	return &account, nil
}

func (c *Client) BuildPlaceOrderOp(
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

func (c *Client) BuildCancelOrderOp(account *types.MarginAccount, market types.PerpMarket, exchangeOrderID string) types.Operation {
	return types.Operation{
		Kind:            types.OperationCancelOrder,
		Account:         account.Address,
		Owner:           account.Owner,
		MarketIndex:     market.MarketIndex,
		ExchangeOrderID: exchangeOrderID,
	}
}

type submitRequest struct {
	Owner      string            `json:"owner"`
	Operations []types.Operation `json:"operations"`
}

type submitResponse struct {
	Signature string `json:"signature"`
	Err       string `json:"error,omitempty"`
}

// Submit sends the ordered operation list to the transaction router as one
// ledger transaction. The router applies the batch atomically; a failure
// means no operation landed.
func (c *Client) Submit(ctx context.Context, owner string, ops []types.Operation) (string, error) {
	start := time.Now()

	var result submitResponse
	resp, err := c.router.R().
		SetContext(ctx).
		SetBody(submitRequest{Owner: owner, Operations: ops}).
		SetResult(&result).
		Post("/v4/transactions")

	if err == nil {
		if resp.IsError() {
			err = &types.VenueRejectionError{Call: "submit", Detail: resp.String()}
		} else if result.Err != "" {
			err = &types.VenueRejectionError{Call: "submit", Detail: result.Err}
		}
	}

	err = wrapTimeout("submit", err)
	observe("submit", start, err)
	if err != nil {
		return "", err
	}

	log.WithFields(logrus.Fields{
		"owner": owner,
		"ops":   len(ops),
		"tx":    result.Signature,
	}).Debug("transaction submitted")

	return result.Signature, nil
}

func (c *Client) QueryOrderbook(ctx context.Context, market types.PerpMarket) (*types.Orderbook, error) {
	var book types.Orderbook
	err := c.get(ctx, "queryOrderbook", "/v4/orderbook", map[string]string{
		"market": market.Address,
	}, &book)
	if err != nil {
		return nil, err
	}

	book.Market = market.Name
	return &book, nil
}

func (c *Client) QueryMarketFills(ctx context.Context, market types.PerpMarket) ([]types.Trade, error) {
	var fills []types.Trade
	err := c.get(ctx, "queryMarketFills", "/v4/fills", map[string]string{
		"market": market.Address,
	}, &fills)
	return fills, err
}

func (c *Client) QueryTradeHistory(ctx context.Context, accountAddress string) ([]types.Trade, error) {
	var trades []types.Trade
	err := c.get(ctx, "queryTradeHistory", "/v4/trade-history", map[string]string{
		"account": accountAddress,
	}, &trades)
	return trades, err
}

func (c *Client) QueryOrderHistory(ctx context.Context, accountAddress string, marketIndex uint16) ([]types.HistoricalOrder, error) {
	var orders []types.HistoricalOrder
	err := c.get(ctx, "queryOrderHistory", "/v4/order-history", map[string]string{
		"account":      accountAddress,
		"market-index": fmt.Sprintf("%d", marketIndex),
	}, &orders)
	return orders, err
}

func (c *Client) QueryFundingPayments(ctx context.Context, accountAddress string) ([]types.FundingPayment, error) {
	var payments []types.FundingPayment
	err := c.get(ctx, "queryFundingPayments", "/v4/funding-payments", map[string]string{
		"account": accountAddress,
	}, &payments)
	return payments, err
}

func (c *Client) QueryFundingRates(ctx context.Context, group string) ([]types.FundingInfo, error) {
	var rates []types.FundingInfo
	err := c.get(ctx, "queryFundingRates", "/v4/funding-rates", map[string]string{
		"group": group,
	}, &rates)
	return rates, err
}
