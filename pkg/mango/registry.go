package mango

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/c9s/mangogate/pkg/config"
	"github.com/c9s/mangogate/pkg/metrics"
	"github.com/c9s/mangogate/pkg/types"
)

// VenueClientFactory builds the venue client for one network deployment.
// The registry takes a factory instead of a concrete client so that tests
// can plug in fakes, the same way exchange constructors are registered in a
// factory table.
type VenueClientFactory func(cfg config.NetworkConfig) types.VenueClient

// Registry hands out connector instances per (chain, network) pair.
//
// Instances are cached in a bounded LRU; initialization runs at most once
// per key even under concurrent first-callers. A failed initialization is
// returned to every waiter and leaves no cache entry behind, so the next
// call retries from scratch.
type Registry struct {
	config  *config.Config
	factory VenueClientFactory

	instances *lru.Cache[string, *Connector]
	group     singleflight.Group
}

func NewRegistry(cfg *config.Config, factory VenueClientFactory) (*Registry, error) {
	instances, err := lru.NewWithEvict[string, *Connector](cfg.MaxInstances, func(key string, conn *Connector) {
		logrus.WithField("key", key).Info("evicting connector instance")
		conn.Close()
		metrics.ConnectorInstancesMetric.Dec()
	})
	if err != nil {
		return nil, errors.Wrap(err, "can not allocate connector cache")
	}

	return &Registry{
		config:    cfg,
		factory:   factory,
		instances: instances,
	}, nil
}

func instanceKey(chain, network string) string {
	return chain + ":" + network
}

// Get returns the connector for (chain, network), initializing it on first
// use. Identical keys converge on the same instance for the process
// lifetime, subject to LRU eviction under capacity pressure.
func (r *Registry) Get(ctx context.Context, chain, network string) (*Connector, error) {
	key := instanceKey(chain, network)

	if conn, ok := r.instances.Get(key); ok {
		return conn, nil
	}

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		// a previous winner may have populated the cache while we waited
		if conn, ok := r.instances.Get(key); ok {
			return conn, nil
		}

		netCfg, ok := r.config.Network(chain, network)
		if !ok {
			return nil, &ConfigurationError{Chain: chain, Network: network}
		}

		conn := NewConnector(chain, network, netCfg, r.factory(netCfg))
		if r.config.CatalogRefreshInterval > 0 {
			conn.SetCatalogRefreshInterval(r.config.CatalogRefreshInterval)
		}
		if err := conn.Initialize(ctx); err != nil {
			conn.Close()
			return nil, errors.Wrapf(err, "connector initialization failed for %s", key)
		}

		r.instances.Add(key, conn)
		metrics.ConnectorInstancesMetric.Inc()
		return conn, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Connector), nil
}

// Shutdown closes every live connector. Purge triggers the eviction
// callback for each entry.
func (r *Registry) Shutdown() {
	r.instances.Purge()
}
