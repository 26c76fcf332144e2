package config

import (
	"errors"

	"github.com/andrew-solarstorm/go-packages/common"
)

type RouterConfig struct {
	// DefaultMaxHops is used when a request does not set maxHops.
	// Default: 2
	DefaultMaxHops int
	// MaxHopsLimit caps client supplied maxHops; 0 allows direct markets only.
	// Path enumeration is exponential in this value.
	// Default: 4
	MaxHopsLimit int
	// RateStrategy is "log" or "linear".
	RateStrategy string
	// RouteCacheSize bounds best-path answers memoized per snapshot. 0 disables the cache.
	// Default: 1024
	RouteCacheSize int
}

func (c *RouterConfig) Key() string {
	return ROUTER_CONFIG_KEY
}

func (c *RouterConfig) Load() error {
	c.DefaultMaxHops = common.GetEnvOrDefaultInt("DEFAULT_MAX_HOPS", 2)
	c.MaxHopsLimit = common.GetEnvOrDefaultInt("MAX_HOPS_LIMIT", 4)
	c.RateStrategy = common.GetEnvOrDefault("RATE_STRATEGY", "log")
	c.RouteCacheSize = common.GetEnvOrDefaultInt("ROUTE_CACHE_SIZE", 1024)
	return c.Validate()
}

func (c *RouterConfig) Validate() error {
	if c.DefaultMaxHops < 0 || c.MaxHopsLimit < 0 || c.DefaultMaxHops > c.MaxHopsLimit || c.RouteCacheSize < 0 {
		return errors.New("invalid router config")
	}
	if c.RateStrategy != "log" && c.RateStrategy != "linear" {
		return errors.New("invalid router config: RATE_STRATEGY must be log or linear")
	}
	return nil
}
