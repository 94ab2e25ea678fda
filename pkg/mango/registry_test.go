package mango

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c9s/mangogate/pkg/config"
	"github.com/c9s/mangogate/pkg/testing/venuetest"
	"github.com/c9s/mangogate/pkg/types"
)

func newTestRegistry(t *testing.T, fake *venuetest.FakeVenueClient) *Registry {
	cfg := &config.Config{
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

	registry, err := NewRegistry(cfg, func(netCfg config.NetworkConfig) types.VenueClient {
		return fake
	})
	require.NoError(t, err)
	return registry
}

func TestRegistry_UnknownNetwork(t *testing.T) {
	fake := venuetest.New()
	registry := newTestRegistry(t, fake)

	_, err := registry.Get(context.Background(), "solana", "regtest")
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "regtest", cfgErr.Network)
}

func TestRegistry_SameInstanceForSameKey(t *testing.T) {
	fake := venuetest.New()
	fake.Markets = []types.PerpMarket{{Name: "BTC-PERP"}}
	registry := newTestRegistry(t, fake)
	defer registry.Shutdown()

	first, err := registry.Get(context.Background(), "solana", "mainnet-beta")
	require.NoError(t, err)
	assert.True(t, first.Ready())

	second, err := registry.Get(context.Background(), "solana", "mainnet-beta")
	require.NoError(t, err)
	assert.Same(t, first, second)

	connect, listMarkets, _, _ := fake.Counters()
	assert.Equal(t, 1, connect)
	assert.Equal(t, 1, listMarkets)
}

func TestRegistry_ConcurrentFirstCallersConverge(t *testing.T) {
	fake := venuetest.New()
	fake.Markets = []types.PerpMarket{{Name: "BTC-PERP"}}
	fake.ConnectDelay = 20 * time.Millisecond
	registry := newTestRegistry(t, fake)
	defer registry.Shutdown()

	var wg sync.WaitGroup
	connectors := make([]*Connector, 16)
	for i := 0; i < len(connectors); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			conn, err := registry.Get(context.Background(), "solana", "mainnet-beta")
			assert.NoError(t, err)
			connectors[i] = conn
		}(i)
	}
	wg.Wait()

	connect, listMarkets, _, _ := fake.Counters()
	assert.Equal(t, 1, connect, "initialization must run at most once per key")
	assert.Equal(t, 1, listMarkets)

	for _, conn := range connectors {
		assert.Same(t, connectors[0], conn)
	}
}

func TestRegistry_FailedInitializationIsRetriable(t *testing.T) {
	fake := venuetest.New()
	fake.Markets = []types.PerpMarket{{Name: "BTC-PERP"}}
	fake.ConnectErr = errors.New("rpc unreachable")
	registry := newTestRegistry(t, fake)
	defer registry.Shutdown()

	_, err := registry.Get(context.Background(), "solana", "mainnet-beta")
	require.Error(t, err)

	// the failure leaves no cache entry, so the next call retries
	fake.ConnectErr = nil

	conn, err := registry.Get(context.Background(), "solana", "mainnet-beta")
	require.NoError(t, err)
	assert.True(t, conn.Ready())

	connect, _, _, _ := fake.Counters()
	assert.Equal(t, 2, connect)
}
