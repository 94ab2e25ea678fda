package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c9s/mangogate/pkg/config"
	"github.com/c9s/mangogate/pkg/mango"
	"github.com/c9s/mangogate/pkg/testing/venuetest"
	"github.com/c9s/mangogate/pkg/types"
)

func newTestEngine(t *testing.T, fake *venuetest.FakeVenueClient) *gin.Engine {
	gin.SetMode(gin.TestMode)

	if fake.Markets == nil {
		fake.Markets = []types.PerpMarket{
			{Name: "BTC-PERP", MarketIndex: 0, Address: "market/btc"},
		}
	}

	cfg := &config.Config{
		Listen:       ":0",
		MaxInstances: 4,
		Chains: map[string]map[string]config.NetworkConfig{
			"solana": {
				"mainnet-beta": {
					RPCEndpoint:     "http://localhost:1",
					DataAPIEndpoint: "http://localhost:2",
					Group:           "mainnet.1",
					Timeout:         5 * time.Second,
				},
			},
		},
	}

	registry, err := mango.NewRegistry(cfg, func(netCfg config.NetworkConfig) types.VenueClient {
		return fake
	})
	require.NoError(t, err)
	t.Cleanup(registry.Shutdown)

	return New(cfg, registry).newEngine()
}

func doJSON(engine *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			panic(err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestRoutes_Ping(t *testing.T) {
	engine := newTestEngine(t, venuetest.New())

	w := doJSON(engine, http.MethodGet, "/api/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pong")
}

func TestRoutes_Markets(t *testing.T) {
	engine := newTestEngine(t, venuetest.New())

	w := doJSON(engine, http.MethodGet, "/api/perp/markets?chain=solana&network=mainnet-beta", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Markets types.PerpMarketMap `json:"markets"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Markets.Has("BTC-PERP"))
}

func TestRoutes_Markets_MissingNetworkSelection(t *testing.T) {
	engine := newTestEngine(t, venuetest.New())

	w := doJSON(engine, http.MethodGet, "/api/perp/markets", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoutes_Markets_UnknownNetwork(t *testing.T) {
	engine := newTestEngine(t, venuetest.New())

	w := doJSON(engine, http.MethodGet, "/api/perp/markets?chain=solana&network=regtest", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoutes_Markets_UnknownMarket(t *testing.T) {
	engine := newTestEngine(t, venuetest.New())

	w := doJSON(engine, http.MethodGet, "/api/perp/markets?chain=solana&network=mainnet-beta&market=DOGE-PERP", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoutes_PostOrder(t *testing.T) {
	fake := venuetest.New()
	engine := newTestEngine(t, fake)

	w := doJSON(engine, http.MethodPost, "/api/perp/orders", gin.H{
		"chain":         "solana",
		"network":       "mainnet-beta",
		"address":       "ownerA",
		"market":        "BTC-PERP",
		"side":          "BUY",
		"orderType":     "LIMIT",
		"price":         "42000",
		"amount":        "0.5",
		"clientOrderID": 7,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "5igNaTuRe")

	batches := fake.SubmittedBatches()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)
	assert.Equal(t, types.OperationPlaceOrder, batches[0][0].Kind)
}

func TestRoutes_PostOrder_InvalidSide(t *testing.T) {
	engine := newTestEngine(t, venuetest.New())

	w := doJSON(engine, http.MethodPost, "/api/perp/orders", gin.H{
		"chain":         "solana",
		"network":       "mainnet-beta",
		"address":       "ownerA",
		"market":        "BTC-PERP",
		"side":          "HODL",
		"orderType":     "LIMIT",
		"price":         "42000",
		"amount":        "0.5",
		"clientOrderID": 7,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoutes_BatchOrders(t *testing.T) {
	fake := venuetest.New()
	engine := newTestEngine(t, fake)

	w := doJSON(engine, http.MethodPost, "/api/perp/orders/batch", gin.H{
		"chain":   "solana",
		"network": "mainnet-beta",
		"address": "ownerA",
		"cancelOrderParams": []gin.H{
			{"market": "BTC-PERP", "orderID": "orderX"},
		},
		"createOrderParams": []gin.H{
			{
				"market":        "BTC-PERP",
				"side":          "SELL",
				"orderType":     "POST_ONLY",
				"price":         "42100",
				"amount":        "0.5",
				"clientOrderID": 8,
			},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	batches := fake.SubmittedBatches()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 2)
	assert.Equal(t, types.OperationCancelOrder, batches[0][0].Kind)
	assert.Equal(t, types.OperationPlaceOrder, batches[0][1].Kind)
}

func TestRoutes_DeleteOrder(t *testing.T) {
	fake := venuetest.New()
	engine := newTestEngine(t, fake)

	w := doJSON(engine, http.MethodDelete, "/api/perp/orders", gin.H{
		"chain":   "solana",
		"network": "mainnet-beta",
		"address": "ownerA",
		"market":  "BTC-PERP",
		"orderId": "orderX",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	batches := fake.SubmittedBatches()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)
	assert.Equal(t, types.OperationCancelOrder, batches[0][0].Kind)
	assert.Equal(t, "orderX", batches[0][0].ExchangeOrderID)
}

func TestRoutes_Positions(t *testing.T) {
	engine := newTestEngine(t, venuetest.New())

	w := doJSON(engine, http.MethodPost, "/api/perp/positions", gin.H{
		"chain":   "solana",
		"network": "mainnet-beta",
		"address": "ownerA",
		"markets": []string{"BTC-PERP"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "positions")
}

func TestRoutes_VenueRejectionMapsToBadGateway(t *testing.T) {
	fake := venuetest.New()
	fake.SubmitErr = &types.VenueRejectionError{Call: "submit", Detail: "margin check failed"}
	engine := newTestEngine(t, fake)

	w := doJSON(engine, http.MethodPost, "/api/perp/orders", gin.H{
		"chain":         "solana",
		"network":       "mainnet-beta",
		"address":       "ownerA",
		"market":        "BTC-PERP",
		"side":          "BUY",
		"orderType":     "LIMIT",
		"price":         "42000",
		"amount":        "0.5",
		"clientOrderID": 7,
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "margin check failed")
}
