package mango

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/c9s/mangogate/pkg/config"
	"github.com/c9s/mangogate/pkg/metrics"
	"github.com/c9s/mangogate/pkg/types"
)

var log = logrus.WithFields(logrus.Fields{
	"venue": "mango",
})

// Connector is the per-(chain, network) gateway to one venue deployment. It
// owns the market catalog, the account allocator, and the per-account order
// trackers, and orchestrates batch submission.
type Connector struct {
	chain   string
	network string
	cfg     config.NetworkConfig

	client     types.VenueClient
	catalog    *MarketCatalog
	allocator  *AccountAllocator
	translator *Translator

	cron   *cron.Cron
	stream *FillsStream

	mu       sync.Mutex
	trackers map[string]*OrderTracker

	ready atomic.Bool

	refreshInterval string
}

func NewConnector(chain, network string, cfg config.NetworkConfig, client types.VenueClient) *Connector {
	catalog := NewMarketCatalog(client, cfg.Group)
	allocator := NewAccountAllocator(client, cfg.Group)

	return &Connector{
		chain:      chain,
		network:    network,
		cfg:        cfg,
		client:     client,
		catalog:    catalog,
		allocator:  allocator,
		translator: NewTranslator(catalog, allocator, client),
		trackers:   make(map[string]*OrderTracker),

		refreshInterval: fmt.Sprintf("@every %s", config.DefaultCatalogRefreshInterval),
	}
}

// SetCatalogRefreshInterval overrides the periodic catalog refresh schedule.
// Must be called before Initialize.
func (c *Connector) SetCatalogRefreshInterval(interval time.Duration) {
	c.refreshInterval = fmt.Sprintf("@every %s", interval)
}

func (c *Connector) Chain() string   { return c.chain }
func (c *Connector) Network() string { return c.network }

// Initialize connects the venue client, loads the market catalog, starts
// the periodic catalog refresh and the fills feed. It runs at most once per
// registry key; the registry guarantees no concurrent attempts.
func (c *Connector) Initialize(ctx context.Context) error {
	if err := c.client.Connect(ctx); err != nil {
		return errors.Wrapf(err, "can not connect to venue at %s", c.cfg.RPCEndpoint)
	}

	if err := c.catalog.Refresh(ctx); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"chain":   c.chain,
		"network": c.network,
		"markets": c.catalog.Len(),
	}).Info("market catalog loaded")

	c.cron = cron.New()
	if _, err := c.cron.AddFunc(c.refreshInterval, func() {
		refreshCtx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
		defer cancel()

		if err := c.catalog.Refresh(refreshCtx); err != nil {
			log.WithError(err).Warn("market catalog refresh failed, keeping previous catalog")
		}
	}); err != nil {
		return errors.Wrap(err, "can not schedule catalog refresh")
	}
	c.cron.Start()

	if c.cfg.FillsFeedEndpoint != "" {
		c.stream = NewFillsStream(c.cfg.FillsFeedEndpoint)
		c.stream.OnFill(c.handleFill)
		if err := c.stream.Connect(ctx); err != nil {
			// order tracking degrades to submission-time state without the feed
			log.WithError(err).Warn("can not connect fills feed")
			c.stream = nil
		}
	}

	c.ready.Store(true)
	return nil
}

func (c *Connector) Ready() bool {
	return c.ready.Load()
}

func (c *Connector) Close() {
	c.ready.Store(false)

	if c.cron != nil {
		c.cron.Stop()
	}

	if c.stream != nil {
		if err := c.stream.Close(); err != nil {
			log.WithError(err).Warn("fills stream close error")
		}
	}
}

// tracker returns the order tracker of a margin account, creating it on
// first use.
func (c *Connector) tracker(accountAddress string) *OrderTracker {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.trackers[accountAddress]
	if !ok {
		t = NewOrderTracker()
		c.trackers[accountAddress] = t
	}
	return t
}

// trackerIfExists does not allocate: fills for accounts this process never
// submitted through are ignored.
func (c *Connector) trackerIfExists(accountAddress string) (*OrderTracker, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.trackers[accountAddress]
	return t, ok
}

// Markets returns the catalog, or a single-entry map when symbol is given.
func (c *Connector) Markets(symbol string) (types.PerpMarketMap, error) {
	if symbol == "" {
		return c.catalog.Markets(), nil
	}

	market, err := c.catalog.Resolve(symbol)
	if err != nil {
		return nil, err
	}

	return types.PerpMarketMap{market.Name: market}, nil
}

func (c *Connector) Orderbook(ctx context.Context, symbol string) (*types.Orderbook, error) {
	market, err := c.catalog.Resolve(symbol)
	if err != nil {
		return nil, err
	}

	return c.client.QueryOrderbook(ctx, market)
}

// LastTradePrice returns the price of the most recent fill on the market.
func (c *Connector) LastTradePrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	market, err := c.catalog.Resolve(symbol)
	if err != nil {
		return decimal.Zero, err
	}

	fills, err := c.client.QueryMarketFills(ctx, market)
	if err != nil {
		return decimal.Zero, err
	}

	if len(fills) == 0 {
		return decimal.Zero, errors.Errorf("no recent fills for market %s", symbol)
	}

	return fills[0].Price, nil
}

// SubmitOrderUpdate translates the request into one atomic operation batch,
// submits it, and records the created orders. All cancellations precede all
// creations in the submitted sequence. Translation and duplicate-id errors
// abort the request before any venue mutation.
func (c *Connector) SubmitOrderUpdate(ctx context.Context, req OrderUpdateRequest) (string, error) {
	cancellations, creations, err := c.translator.Translate(ctx, req)
	if err != nil {
		return "", err
	}

	for _, op := range creations {
		if _, ok := c.tracker(op.Account).Get(op.ClientOrderID); ok {
			return "", &DuplicateOrderIDError{ClientOrderID: op.ClientOrderID}
		}
	}

	ops := make([]types.Operation, 0, len(cancellations)+len(creations))
	ops = append(ops, cancellations...)
	ops = append(ops, creations...)

	txSignature, err := c.client.Submit(ctx, req.Owner, ops)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &types.VenueTimeoutError{Call: "submit", Err: err}
		}
		return "", err
	}

	metrics.OrdersSubmittedMetric.WithLabelValues(string(types.OperationCancelOrder)).Add(float64(len(cancellations)))
	metrics.OrdersSubmittedMetric.WithLabelValues(string(types.OperationPlaceOrder)).Add(float64(len(creations)))

	for _, op := range creations {
		// duplicates were rejected above, before submission
		_ = c.tracker(op.Account).AddOrder(op.ClientOrderID, op.Quantity)
	}

	log.WithFields(logrus.Fields{
		"owner":   req.Owner,
		"cancels": len(cancellations),
		"creates": len(creations),
		"tx":      txSignature,
	}).Info("order batch submitted")

	return txSignature, nil
}

// TrackedOrders returns the local tracking view of the (owner, market)
// account. The account is not created when absent.
func (c *Connector) TrackedOrders(owner, market string) []OrderTracking {
	account, ok := c.allocator.Lookup(owner, market)
	if !ok {
		return nil
	}

	tracker, ok := c.trackerIfExists(account.Address)
	if !ok {
		return nil
	}

	return tracker.Orders()
}

// handleFill applies one fills-feed event to the tracked order it belongs
// to. Events for unknown accounts or orders are ignored.
func (c *Connector) handleFill(e FillEvent) {
	tracker, ok := c.trackerIfExists(e.Account)
	if !ok {
		return
	}

	tracking, ok := tracker.Get(e.ClientOrderID)
	if !ok {
		tracking, ok = tracker.GetByExchangeOrderID(e.ExchangeOrderID)
		if !ok {
			return
		}
	}

	if tracking.ExchangeOrderID == "" && e.ExchangeOrderID != "" {
		tracker.SetExchangeOrderID(tracking.ClientOrderID, e.ExchangeOrderID)
	}

	filled := tracking.FilledQuantity.Add(e.Quantity)
	status := types.OrderStatusPartiallyFilled
	if filled.GreaterThanOrEqual(tracking.OrderQuantity) {
		status = types.OrderStatusFilled
	}

	tracker.UpdateStatus(tracking.ClientOrderID, status, filled)
}
