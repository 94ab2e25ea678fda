package mango

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c9s/mangogate/pkg/testing/venuetest"
	"github.com/c9s/mangogate/pkg/types"
)

func TestMarketCatalog_Resolve(t *testing.T) {
	fake := venuetest.New()
	fake.Markets = []types.PerpMarket{
		{Name: "BTC-PERP", MarketIndex: 0},
		{Name: "ETH-PERP", MarketIndex: 1},
	}

	catalog := NewMarketCatalog(fake, "mainnet.1")
	require.NoError(t, catalog.Refresh(context.Background()))

	market, err := catalog.Resolve("ETH-PERP")
	require.NoError(t, err)
	assert.Equal(t, uint16(1), market.MarketIndex)

	_, err = catalog.Resolve("DOGE-PERP")
	assert.True(t, errors.Is(err, ErrMarketNotFound))
}

func TestMarketCatalog_RefreshReplacesWholesale(t *testing.T) {
	fake := venuetest.New()
	fake.Markets = []types.PerpMarket{{Name: "BTC-PERP", MarketIndex: 0}}

	catalog := NewMarketCatalog(fake, "mainnet.1")
	require.NoError(t, catalog.Refresh(context.Background()))
	assert.Equal(t, 1, catalog.Len())

	fake.Markets = []types.PerpMarket{
		{Name: "ETH-PERP", MarketIndex: 1},
		{Name: "SOL-PERP", MarketIndex: 2},
	}
	require.NoError(t, catalog.Refresh(context.Background()))

	assert.Equal(t, 2, catalog.Len())
	_, err := catalog.Resolve("BTC-PERP")
	assert.True(t, errors.Is(err, ErrMarketNotFound), "delisted market must disappear with the refresh")
}

func TestMarketCatalog_FailedRefreshKeepsPreviousCatalog(t *testing.T) {
	fake := venuetest.New()
	fake.Markets = []types.PerpMarket{{Name: "BTC-PERP", MarketIndex: 0}}

	catalog := NewMarketCatalog(fake, "mainnet.1")
	require.NoError(t, catalog.Refresh(context.Background()))

	fake.ListMarketsErr = errors.New("data api unavailable")
	require.Error(t, catalog.Refresh(context.Background()))

	_, err := catalog.Resolve("BTC-PERP")
	assert.NoError(t, err)
}

func TestMarketCatalog_ConcurrentReadersDuringRefresh(t *testing.T) {
	fake := venuetest.New()
	fake.Markets = []types.PerpMarket{
		{Name: "BTC-PERP", MarketIndex: 0},
		{Name: "ETH-PERP", MarketIndex: 1},
	}

	catalog := NewMarketCatalog(fake, "mainnet.1")
	require.NoError(t, catalog.Refresh(context.Background()))

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				// a reader sees either the old complete catalog or the new one
				assert.Equal(t, 2, catalog.Len())
			}
		}
	}()

	for i := 0; i < 50; i++ {
		require.NoError(t, catalog.Refresh(context.Background()))
	}

	close(stop)
	wg.Wait()
}
