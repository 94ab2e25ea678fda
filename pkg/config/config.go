package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	DefaultListen                 = ":15888"
	DefaultMaxInstances           = 8
	DefaultCatalogRefreshInterval = 5 * time.Minute
	DefaultVenueTimeout           = 30 * time.Second
)

// NetworkConfig holds the endpoints of one (chain, network) deployment of
// the venue.
type NetworkConfig struct {
	// RPCEndpoint is the ledger transaction router the operation batches
	// are submitted to.
	RPCEndpoint string `json:"rpcEndpoint" mapstructure:"rpcEndpoint"`

	// DataAPIEndpoint serves market descriptors, account lists, trade and
	// funding history.
	DataAPIEndpoint string `json:"dataAPIEndpoint" mapstructure:"dataAPIEndpoint"`

	// FillsFeedEndpoint is the websocket fills feed used to track order
	// lifecycle updates. Optional; tracking degrades to submission-time
	// state when empty.
	FillsFeedEndpoint string `json:"fillsFeedEndpoint" mapstructure:"fillsFeedEndpoint"`

	// Group selects the venue's cross-margin basket. One group per
	// gateway instance.
	Group string `json:"group" mapstructure:"group"`

	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// Config is the process configuration loaded at startup.
type Config struct {
	Listen string `json:"listen" mapstructure:"listen"`

	// MaxInstances bounds the connector registry. Least-recently-used
	// (chain, network) instances are evicted beyond this.
	MaxInstances int `json:"maxInstances" mapstructure:"maxInstances"`

	CatalogRefreshInterval time.Duration `json:"catalogRefreshInterval" mapstructure:"catalogRefreshInterval"`

	// Chains maps chain name -> network name -> endpoints.
	Chains map[string]map[string]NetworkConfig `json:"chains" mapstructure:"chains"`
}

// Network looks up the endpoint configuration of a (chain, network) pair.
func (c *Config) Network(chain, network string) (NetworkConfig, bool) {
	networks, ok := c.Chains[strings.ToLower(chain)]
	if !ok {
		return NetworkConfig{}, false
	}

	netCfg, ok := networks[strings.ToLower(network)]
	if !ok {
		return NetworkConfig{}, false
	}

	if netCfg.Timeout == 0 {
		netCfg.Timeout = DefaultVenueTimeout
	}

	return netCfg, true
}

// Load reads the YAML config file and applies defaults. Environment
// variables with the MANGOGATE_ prefix override file values.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetEnvPrefix("mangogate")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen", DefaultListen)
	v.SetDefault("maxInstances", DefaultMaxInstances)
	v.SetDefault("catalogRefreshInterval", DefaultCatalogRefreshInterval)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "can not read config file %s", configFile)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "config unmarshal error")
	}

	if cfg.MaxInstances <= 0 {
		cfg.MaxInstances = DefaultMaxInstances
	}

	return &cfg, nil
}
